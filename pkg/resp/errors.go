package resp

import "errors"

var (
	// ErrIncomplete means the buffer holds a valid prefix of a frame and more
	// bytes are needed. It is a retry signal, not a failure.
	ErrIncomplete = errors.New("resp: incomplete frame")

	// ErrProtocol wraps every malformed-input error.
	ErrProtocol = errors.New("resp: protocol error")

	// ErrLimitExceeded wraps errors for input that is well formed but larger
	// or deeper than the configured Limits allow.
	ErrLimitExceeded = errors.New("resp: limit exceeded")
)

// IsTerminal reports whether err ends the stream it was read from.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrProtocol) || errors.Is(err, ErrLimitExceeded)
}
