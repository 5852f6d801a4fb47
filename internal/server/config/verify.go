// Package config defines the proxy configuration structure.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Verify validates the configuration.
func Verify(cfg *ProxyConfig) error {
	if err := verifyProxy(&cfg.Proxy); err != nil {
		return err
	}
	if err := verifySlices(cfg.Slices); err != nil {
		return err
	}
	if err := verifyBackend(&cfg.Backend); err != nil {
		return err
	}
	if err := verifyAdmin(&cfg.Admin); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func verifyProxy(cfg *ProxySection) error {
	port, err := strconv.Atoi(cfg.Port)
	if err != nil || port < 0 || port > 65535 {
		return fmt.Errorf("proxy.proxy_port %q is not a valid port", cfg.Port)
	}
	if cfg.IP != "" && net.ParseIP(cfg.IP) == nil {
		return fmt.Errorf("proxy.proxy_ip %q is not a valid IP address", cfg.IP)
	}
	if cfg.ReadTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return errors.New("proxy timeouts must be positive")
	}
	if cfg.MaxClients < 0 {
		return errors.New("proxy.max_clients must not be negative")
	}
	if cfg.RateLimit < 0 {
		return errors.New("proxy.rate_limit must not be negative")
	}
	return nil
}

func verifySlices(slices []SliceConfig) error {
	if len(slices) == 0 {
		return errors.New("at least one slice is required")
	}
	for i, s := range slices {
		if _, _, err := net.SplitHostPort(s.Master); err != nil {
			return fmt.Errorf("slice[%d].master %q: %w", i, s.Master, err)
		}
	}
	return nil
}

func verifyBackend(cfg *BackendSection) error {
	if cfg.DialTimeout <= 0 {
		return errors.New("backend.dial_timeout must be positive")
	}
	if cfg.RequestTimeout <= 0 {
		return errors.New("backend.request_timeout must be positive")
	}
	if cfg.QueueSize < 1 {
		return errors.New("backend.queue_size must be at least 1")
	}
	if cfg.ReconnectMinBackoff <= 0 {
		return errors.New("backend.reconnect_min_backoff must be positive")
	}
	if cfg.ReconnectMaxBackoff < cfg.ReconnectMinBackoff {
		return errors.New("backend.reconnect_max_backoff must not be less than reconnect_min_backoff")
	}
	if cfg.HealthCheckInterval < 0 {
		return errors.New("backend.health_check_interval must not be negative")
	}
	return nil
}

func verifyAdmin(cfg *AdminSection) error {
	if !cfg.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(cfg.Addr); err != nil {
		return fmt.Errorf("admin.addr %q: %w", cfg.Addr, err)
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	switch strings.ToLower(cfg.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Level)
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format %q is not one of json, text", cfg.Format)
	}
	return nil
}
