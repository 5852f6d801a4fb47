package httpserver

import (
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/blazar-go/internal/server/httpserver/handler"
	"github.com/yndnr/blazar-go/internal/telemetry/logger"
)

const (
	codeInternal = "BZ-SYS-5000"

	maxRequestIDLen = 64
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares so that the first one is the outermost.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// RequestID tags every request with an id. A caller supplied X-Request-ID
// is kept when it is short printable ASCII; otherwise a fresh "req-<ulid>"
// replaces it. The id goes back in the response header and into the
// request context, where the logger picks it up.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if !validRequestID(id) {
				id = "req-" + ulid.Make().String()
				r.Header.Set("X-Request-ID", id)
			}
			w.Header().Set("X-Request-ID", id)
			next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
		})
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

// AccessLog writes one record per request. Probes and other successful
// requests log at debug so a scraped proxy stays quiet at info.
func AccessLog(l logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"bytes", rec.written,
				"duration_ms", time.Since(start).Milliseconds(),
				"remote", remoteHost(r),
			}
			log := l.WithContext(r.Context())
			switch {
			case rec.status >= 500:
				log.Error("admin request failed", attrs...)
			case rec.status >= 400:
				log.Warn("admin request rejected", attrs...)
			default:
				log.Debug("admin request", attrs...)
			}
		})
	}
}

// Recover turns a handler panic into a 500 envelope.
func Recover(l logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}
				l.WithContext(r.Context()).Error("admin handler panic", "panic", v, "path", r.URL.Path)

				body := handler.NewErrorResponse(logger.RequestIDFromContext(r.Context()),
					codeInternal, "internal server error", nil)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Error-Code", codeInternal)
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(body)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(p []byte) (int, error) {
	n, err := w.ResponseWriter.Write(p)
	w.written += n
	return n, err
}

// remoteHost is the peer address without its port. Forwarding headers are
// ignored: the admin listener is not meant to sit behind a proxy.
func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
