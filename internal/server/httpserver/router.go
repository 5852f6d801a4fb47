package httpserver

import (
	"net/http"

	"github.com/yndnr/blazar-go/internal/server/httpserver/handler"
	"github.com/yndnr/blazar-go/internal/telemetry/logger"
)

// RouterConfig holds configuration for the admin router.
type RouterConfig struct {
	// Status reports backend shard state for /ready and /shards.
	Status handler.StatusSource

	// Placer serves /route. Nil leaves the route unregistered.
	Placer handler.Placer

	// Metrics serves /metrics. Nil leaves the route unregistered.
	Metrics http.Handler

	// Logger for panics and access logs. Nil discards.
	Logger logger.Logger

	// AccessLog enables per-request logging.
	AccessLog bool
}

// NewRouter creates the admin router with all routes and middleware.
// Order: RequestID -> Recover -> AccessLog -> handler.
func NewRouter(cfg *RouterConfig) http.Handler {
	l := cfg.Logger
	if l == nil {
		l = logger.Discard()
	}

	middlewares := []Middleware{RequestID(), Recover(l)}
	if cfg.AccessLog {
		middlewares = append(middlewares, AccessLog(l))
	}

	h := handler.New(handler.Config{Status: cfg.Status, Placer: cfg.Placer, Logger: l})

	mux := http.NewServeMux()
	for _, route := range []string{"GET /health", "GET /ready", "GET /shards", "GET /route"} {
		mux.Handle(route, h)
	}
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}

	return Chain(mux, middlewares...)
}
