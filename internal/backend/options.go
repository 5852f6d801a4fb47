package backend

import (
	"context"
	"net"
	"time"

	"github.com/yndnr/blazar-go/internal/server/config"
	"github.com/yndnr/blazar-go/internal/telemetry/logger"
	"github.com/yndnr/blazar-go/internal/telemetry/metric"
	"github.com/yndnr/blazar-go/pkg/resp"
)

// DialFunc opens a connection to a backend master.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Options configures sessions.
type Options struct {
	DialTimeout         time.Duration
	RequestTimeout      time.Duration
	QueueSize           int
	ReconnectMinBackoff time.Duration
	ReconnectMaxBackoff time.Duration

	// HealthCheckInterval is how often an idle session pings its master.
	// Zero disables health checks.
	HealthCheckInterval time.Duration

	Limits resp.Limits

	// Dial defaults to a net.Dialer.
	Dial DialFunc

	Logger  logger.Logger
	Metrics *metric.Registry
}

// OptionsFromConfig builds Options from the backend and protocol sections.
func OptionsFromConfig(b config.BackendSection, p config.ProtocolSection) Options {
	return Options{
		DialTimeout:         b.DialTimeout,
		RequestTimeout:      b.RequestTimeout,
		QueueSize:           b.QueueSize,
		ReconnectMinBackoff: b.ReconnectMinBackoff,
		ReconnectMaxBackoff: b.ReconnectMaxBackoff,
		HealthCheckInterval: b.HealthCheckInterval,
		Limits:              p.Limits(),
	}
}

func (o Options) withDefaults() Options {
	if o.DialTimeout <= 0 {
		o.DialTimeout = config.DefaultDialTimeout
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = config.DefaultRequestTimeout
	}
	if o.QueueSize <= 0 {
		o.QueueSize = config.DefaultQueueSize
	}
	if o.ReconnectMinBackoff <= 0 {
		o.ReconnectMinBackoff = config.DefaultReconnectMinBackoff
	}
	if o.ReconnectMaxBackoff < o.ReconnectMinBackoff {
		o.ReconnectMaxBackoff = o.ReconnectMinBackoff
	}
	if o.Dial == nil {
		var d net.Dialer
		o.Dial = d.DialContext
	}
	if o.Logger == nil {
		o.Logger = logger.Default()
	}
	return o
}

// submitTimeout bounds a Submit whose context has no deadline: one dial,
// one AUTH exchange and the command itself.
func (o Options) submitTimeout() time.Duration {
	return o.DialTimeout + 2*o.RequestTimeout
}
