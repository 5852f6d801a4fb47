// Package backend forwards commands to shard masters.
//
// Each shard is served by one Session: a goroutine that exclusively owns
// the connection to that master and processes a bounded queue strictly in
// arrival order. Because RESP replies carry no request identifier, the
// reply to the n-th command written is the n-th frame read; the session
// therefore reads exactly one reply per command it writes, even when the
// submitter has already given up, and drops the connection on any failure
// that could break that pairing.
//
// Failures reach submitters as *domain.DomainError values
// (BZ-BACK-5030 unavailable, BZ-BACK-5040 timeout, BZ-BACK-5031 shutdown).
package backend
