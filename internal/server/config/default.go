// Package config defines the proxy configuration structure.
package config

import (
	"time"

	"github.com/yndnr/blazar-go/pkg/resp"
)

// Default configuration values.
const (
	DefaultProxyIP   = "127.0.0.1"
	DefaultProxyPort = "6380"

	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 30 * time.Second
	DefaultIdleTimeout  = 5 * time.Minute
	DefaultMaxClients   = 10000
	DefaultRateLimit    = 0

	DefaultDialTimeout         = 3 * time.Second
	DefaultRequestTimeout      = 5 * time.Second
	DefaultQueueSize           = 1024
	DefaultReconnectMinBackoff = 100 * time.Millisecond
	DefaultReconnectMaxBackoff = 5 * time.Second
	DefaultHealthCheckInterval = 10 * time.Second

	DefaultAdminAddr = "127.0.0.1:6390"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default proxy configuration. It has no slices; at
// least one must be configured.
func Default() *ProxyConfig {
	return &ProxyConfig{
		Proxy: ProxySection{
			IP:           DefaultProxyIP,
			Port:         DefaultProxyPort,
			ReadTimeout:  DefaultReadTimeout,
			WriteTimeout: DefaultWriteTimeout,
			IdleTimeout:  DefaultIdleTimeout,
			MaxClients:   DefaultMaxClients,
			RateLimit:    DefaultRateLimit,
		},
		Backend: BackendSection{
			DialTimeout:         DefaultDialTimeout,
			RequestTimeout:      DefaultRequestTimeout,
			QueueSize:           DefaultQueueSize,
			ReconnectMinBackoff: DefaultReconnectMinBackoff,
			ReconnectMaxBackoff: DefaultReconnectMaxBackoff,
			HealthCheckInterval: DefaultHealthCheckInterval,
		},
		Protocol: ProtocolSection{
			MaxDepth:    resp.DefaultMaxDepth,
			MaxBulkLen:  resp.DefaultMaxBulkLen,
			MaxArrayLen: resp.DefaultMaxArrayLen,
		},
		Admin: AdminSection{
			Enabled: true,
			Addr:    DefaultAdminAddr,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// Limits converts the protocol section to decoder limits.
func (p ProtocolSection) Limits() resp.Limits {
	return resp.Limits{
		MaxDepth:    p.MaxDepth,
		MaxBulkLen:  p.MaxBulkLen,
		MaxArrayLen: p.MaxArrayLen,
	}
}
