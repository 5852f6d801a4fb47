// Package tests holds end-to-end tests that run the whole proxy stack
// (config file, backend pool, proxy listener, admin endpoint) against
// in-process fake Redis masters.
package tests
