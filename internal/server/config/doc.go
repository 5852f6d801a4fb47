// Package config provides proxy configuration for blazar.
//
// This package defines the proxy configuration structure and validation:
//
//   - spec.go: ProxyConfig struct definition
//   - default.go: Default configuration values
//   - verify.go: Validation (topology, addresses, timeouts)
//   - sanitize.go: Log sanitization (hide passwords)
//
// Configuration is loaded via internal/infra/confloader and supports
// multiple sources: files, environment variables, and flags. It is read
// once at startup and treated as read-only afterwards.
package config
