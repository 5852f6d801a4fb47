// Package config defines the proxy configuration structure.
package config

import "strings"

// Sanitize returns a copy of the config with sensitive fields masked.
//
// This is used for logging configuration without exposing secrets.
func Sanitize(cfg *ProxyConfig) *ProxyConfig {
	sanitized := *cfg

	if sanitized.Proxy.RedisAuth != "" {
		sanitized.Proxy.RedisAuth = maskSecret(sanitized.Proxy.RedisAuth)
	}

	// Slices is shared with cfg after the shallow copy.
	sanitized.Slices = make([]SliceConfig, len(cfg.Slices))
	for i, s := range cfg.Slices {
		if s.Password != "" {
			s.Password = maskSecret(s.Password)
		}
		sanitized.Slices[i] = s
	}

	return &sanitized
}

// maskSecret masks a secret value for safe logging.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
