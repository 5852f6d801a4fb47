package domain

import (
	"errors"
	"strings"
)

// DomainError is a classified failure. Two DomainErrors match under
// errors.Is when their codes are equal, so the sentinels below can be
// refined with details or a cause and still be recognized.
type DomainError struct {
	Code    string // BZ-<AREA>-<NNNN>
	Message string
	Details string
	Cause   error
}

func (e *DomainError) Error() string {
	s := "[" + e.Code + "] " + e.Message
	if e.Details != "" {
		s += ": " + e.Details
	}
	return s
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && e.Code == t.Code
}

// WithDetails returns a copy of e carrying details.
func (e *DomainError) WithDetails(details string) *DomainError {
	cp := *e
	cp.Details = details
	return &cp
}

// WithCause returns a copy of e wrapping cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	cp := *e
	cp.Cause = cause
	return &cp
}

var lineBreaks = strings.NewReplacer("\r", " ", "\n", " ")

// OneLine replaces CR and LF in s with spaces so it fits in one RESP line.
func OneLine(s string) string {
	return lineBreaks.Replace(s)
}

// RedisError renders err as the text of a RESP error frame:
// "ERR <code> <message>[: details]" for a DomainError, "ERR <text>" for
// anything else. The result never contains a line break.
func RedisError(err error) string {
	var de *DomainError
	if !errors.As(err, &de) {
		return OneLine("ERR " + err.Error())
	}
	msg := "ERR " + de.Code + " " + de.Message
	if de.Details != "" {
		msg += ": " + de.Details
	}
	return OneLine(msg)
}

func newError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// Client protocol and command errors.
var (
	ErrProtocol           = newError("BZ-PROTO-4000", "protocol error")
	ErrUnsupportedCommand = newError("BZ-CMD-4000", "unsupported command")
	ErrWrongArity         = newError("BZ-CMD-4001", "wrong number of arguments")
)

// Authentication.
var (
	ErrAuthRequired  = newError("BZ-AUTH-4010", "authentication required")
	ErrWrongPassword = newError("BZ-AUTH-4011", "invalid password")
)

// Admission limits.
var (
	ErrRateLimited    = newError("BZ-RATE-4290", "rate limit exceeded")
	ErrTooManyClients = newError("BZ-RATE-4291", "max number of clients reached")
)

// Backend failures. These reach clients as "ERR BZ-BACK-..." replies.
var (
	// ErrBackendUnavailable means the shard could not be reached or the
	// exchange with it failed.
	ErrBackendUnavailable = newError("BZ-BACK-5030", "backend unavailable")
	ErrBackendShutdown    = newError("BZ-BACK-5031", "proxy shutting down")
	ErrBackendTimeout     = newError("BZ-BACK-5040", "backend timeout")
)
