// Package handler provides the admin HTTP handlers for blazar-proxy.
//
//   - health.go: liveness, readiness and build information
//   - shards.go: shard session state and key placement
//   - handler.go: routing and the JSON envelope
//
// Every JSON body uses the Response envelope. /metrics is served by the
// Prometheus handler and is not part of this package.
package handler
