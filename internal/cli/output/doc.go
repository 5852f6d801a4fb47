// Package output provides output formatting for blazar-cli.
//
// Admin and configuration data render as a table (default), JSON or YAML.
// RESP replies render the way redis-cli prints them.
package output
