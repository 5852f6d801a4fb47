// Package resp implements the RESP2 frame model and codec used by blazar.
//
// Decoding is split in two phases so that callers reading from a stream can
// probe for a complete frame without materializing it:
//
//   - Check scans a buffer and reports the encoded length of the first frame,
//     or ErrIncomplete when more bytes are needed. It does not allocate.
//   - Parse performs the same walk and builds a Frame that owns copies of all
//     payload bytes, so the source buffer can be reused afterwards.
//
// Malformed input is reported as an error wrapping ErrProtocol; input that
// exceeds the configured Limits wraps ErrLimitExceeded. Both are terminal for
// the stream they were read from. ErrIncomplete is never terminal.
//
// Encoding is the exact inverse: AppendFrame and WriteFrame emit CRLF after
// every line and payload and encode Null as "$-1\r\n".
package resp
