// Package config defines the blazar-cli profile stored in ~/.blazar/cli.yaml.
//
// Every field can be overridden by a global flag or its BLAZAR_CLI_*
// environment variable.
package config

import "time"

// CLIConfig is the configuration for blazar-cli.
type CLIConfig struct {
	// Server is the proxy address (host:port).
	Server string `yaml:"server" json:"server"`

	// Auth is sent with AUTH after connecting. Empty skips AUTH.
	Auth string `yaml:"auth,omitempty" json:"auth,omitempty"`

	// Admin is the proxy admin HTTP address.
	Admin string `yaml:"admin" json:"admin"`

	// Output is the default format: table, json, yaml.
	Output string `yaml:"output" json:"output"`

	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Server:  "127.0.0.1:6380",
		Admin:   "127.0.0.1:6390",
		Output:  "table",
		Timeout: 5 * time.Second,
	}
}
