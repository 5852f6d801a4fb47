// Package main provides the entry point for blazar-proxy.
//
// blazar-proxy accepts Redis clients over RESP2 and forwards each command
// to the shard master that owns its key. It also serves an admin HTTP
// endpoint with health, readiness and Prometheus metrics.
//
// Usage:
//
//	blazar-proxy --config /etc/blazar/proxy.yaml
//	blazar-proxy --config proxy.yaml --proxy-port 6400 --log-level debug
//	blazar-proxy --config proxy.yaml --check
//
// Flags override environment variables (BLAZAR_ prefix, "__" between
// nesting levels), which override the file, which overrides defaults.
package main
