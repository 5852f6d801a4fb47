package handler

import (
	"time"

	"github.com/yndnr/blazar-go/internal/backend"
	"github.com/yndnr/blazar-go/internal/topology"
)

// CodeOK marks a successful envelope.
const CodeOK = "OK"

// Response is the envelope around every admin JSON body. Successful
// replies carry Data; failures carry Details, which may be empty.
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// NewResponse wraps data in a success envelope.
func NewResponse(requestID string, data any) *Response {
	return envelope(requestID, CodeOK, "Success", data, nil)
}

// NewErrorResponse builds a failure envelope.
func NewErrorResponse(requestID, code, message string, details any) *Response {
	return envelope(requestID, code, message, nil, details)
}

func envelope(requestID, code, message string, data, details any) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
		Details:   details,
	}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Time      string `json:"time"`
}

// ReadyResponse is the body of GET /ready, in Data when every shard is up
// and in Details otherwise.
type ReadyResponse struct {
	Ready  bool             `json:"ready"`
	Shards []backend.Status `json:"shards"`
}

// ShardsResponse is the body of GET /shards.
type ShardsResponse struct {
	Shards []backend.Status `json:"shards"`
}

// RouteResponse is the body of GET /route.
type RouteResponse struct {
	Placements []topology.Placement `json:"placements"`
}
