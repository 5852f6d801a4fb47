// Package command provides the command definitions for blazar-cli.
//
// Commands are built with urfave/cli/v2:
//
//   - root.go: App, global flags, profile merging, REPL default action
//   - redis.go: ping, get, set and exec against the proxy
//   - route.go: offline key to shard placement
//   - config.go: proxy config checks and the CLI profile
//   - token.go: proxy password generation
//   - system.go: admin endpoint queries (health, shards, route)
//
// Each command resolves its connection settings from flags, then the
// BLAZAR_CLI_* environment, then the profile file, and writes to the
// app's Writer so output can be captured.
package command
