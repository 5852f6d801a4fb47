// Package metric provides Prometheus metrics for blazar.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: Registry of proxy metrics and the HTTP handler
//   - collector.go: Collector exporting per-shard state on scrape
//
// Metrics are exposed at /metrics on the admin server.
package metric
