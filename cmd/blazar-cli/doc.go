// Package main provides the entry point for blazar-cli.
//
// blazar-cli talks to a running blazar-proxy over RESP and to its admin
// HTTP endpoint. Without a command it opens an interactive prompt.
//
// Usage:
//
//	blazar-cli                              # interactive prompt
//	blazar-cli -s 10.0.0.5:6380 GET user:1  # one-shot command
//	blazar-cli set user:1 alice --ttl 1h
//	blazar-cli route --config proxy.yaml user:1 '{user:1}.cart'
//	blazar-cli config check proxy.yaml
//	blazar-cli token gen
//	blazar-cli --admin 10.0.0.5:6390 system shards
//
// Connection settings come from flags, then BLAZAR_CLI_* variables, then
// the profile at ~/.blazar/cli.yaml.
package main
