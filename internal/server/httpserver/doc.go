// Package httpserver provides the admin HTTP server of blazar-proxy.
//
// It is built on net/http and exposes health, readiness, shard state, key
// placement and Prometheus metrics. The RESP listener lives in package
// proxy.
package httpserver
