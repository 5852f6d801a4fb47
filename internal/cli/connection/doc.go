// Package connection provides the blazar-cli clients: a RESP client for
// the proxy port and an HTTP client for the admin endpoint.
package connection
