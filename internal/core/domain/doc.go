// Package domain defines the error model shared by the proxy layers.
//
// Failures that reach a client are classified into DomainError values with
// stable codes (BZ-<AREA>-<NNNN>). RedisError renders them for the wire.
package domain
