// Package proxy is the client-facing side of blazar.
//
// A Server accepts RESP clients, authenticates them when a token is
// configured, answers connection-local commands itself and routes every
// key-bearing command to the shard that owns its key. Multi-key commands
// are split per shard, sent concurrently and merged back into one reply.
//
// Each client is served by its own goroutine and sees replies in the order
// it sent commands. Backend failures become error replies and never close
// the client connection; malformed client input does.
package proxy
