// Package config defines the proxy configuration structure.
package config

import (
	"net"
	"time"
)

// ProxyConfig is the root configuration for blazar-proxy.
type ProxyConfig struct {
	Proxy    ProxySection    `koanf:"proxy" json:"proxy"`
	Slices   []SliceConfig   `koanf:"slice" json:"slice"`
	Backend  BackendSection  `koanf:"backend" json:"backend"`
	Protocol ProtocolSection `koanf:"protocol" json:"protocol"`
	Admin    AdminSection    `koanf:"admin" json:"admin"`
	Log      LogSection      `koanf:"log" json:"log"`
}

// ProxySection configures the client-facing listener.
type ProxySection struct {
	IP   string `koanf:"proxy_ip" json:"proxy_ip"`
	Port string `koanf:"proxy_port" json:"proxy_port"`

	// RedisAuth is the password clients must present with AUTH.
	// Empty disables client authentication.
	RedisAuth string `koanf:"redis_auth" json:"redis_auth"`

	ReadTimeout  time.Duration `koanf:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" json:"idle_timeout"`

	// MaxClients caps concurrent client connections (0 = unlimited).
	MaxClients int `koanf:"max_clients" json:"max_clients"`

	// RateLimit is the maximum number of commands per second per client IP.
	// Set to 0 to disable rate limiting.
	RateLimit int `koanf:"rate_limit" json:"rate_limit"`
}

// ListenAddr returns the host:port the proxy listens on.
func (p ProxySection) ListenAddr() string {
	return net.JoinHostPort(p.IP, p.Port)
}

// SliceConfig describes one shard. The order of slices determines key
// placement, so reordering them remaps keys.
type SliceConfig struct {
	Master   string `koanf:"master" json:"master"`
	Password string `koanf:"password" json:"password"`
}

// BackendSection configures backend sessions.
type BackendSection struct {
	DialTimeout    time.Duration `koanf:"dial_timeout" json:"dial_timeout"`
	RequestTimeout time.Duration `koanf:"request_timeout" json:"request_timeout"`

	// QueueSize bounds pending commands per shard. Submitters block when
	// the queue is full.
	QueueSize int `koanf:"queue_size" json:"queue_size"`

	ReconnectMinBackoff time.Duration `koanf:"reconnect_min_backoff" json:"reconnect_min_backoff"`
	ReconnectMaxBackoff time.Duration `koanf:"reconnect_max_backoff" json:"reconnect_max_backoff"`

	// HealthCheckInterval is how often an idle session pings its backend.
	// Zero disables health checks.
	HealthCheckInterval time.Duration `koanf:"health_check_interval" json:"health_check_interval"`
}

// ProtocolSection bounds what the RESP decoder accepts from clients and
// backends.
type ProtocolSection struct {
	MaxDepth    int `koanf:"max_depth" json:"max_depth"`
	MaxBulkLen  int `koanf:"max_bulk_len" json:"max_bulk_len"`
	MaxArrayLen int `koanf:"max_array_len" json:"max_array_len"`
}

// AdminSection configures the admin HTTP server (health, readiness, metrics).
type AdminSection struct {
	Enabled bool   `koanf:"enabled" json:"enabled"`
	Addr    string `koanf:"addr" json:"addr"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" json:"level"`
	Format string `koanf:"format" json:"format"`
}
