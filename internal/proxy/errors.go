package proxy

import (
	"errors"
	"strings"

	"github.com/yndnr/blazar-go/internal/core/domain"
)

// Reply texts that clients match on. They follow what Redis itself sends.
const (
	msgNoAuth    = "NOAUTH Authentication required."
	msgWrongPass = "WRONGPASS invalid username-password pair or user is disabled."
	msgNoPassSet = "ERR AUTH <password> called without any password configured for the default user. Are you sure your configuration is correct?"
)

func errUnsupported(name string) error {
	return domain.ErrUnsupportedCommand.WithDetails(name)
}

func errArity(name string) error {
	return domain.ErrWrongArity.WithDetails(name)
}

// errProtocol wraps a client framing error. The codec's package prefix is
// stripped so the client sees only what was wrong.
func errProtocol(cause error) error {
	msg := strings.TrimPrefix(cause.Error(), "resp: ")
	msg = strings.TrimPrefix(msg, "protocol error: ")
	return domain.ErrProtocol.WithDetails(msg).WithCause(cause)
}

func errTooManyClients() error {
	return domain.ErrTooManyClients
}

// replyError renders err as the text of the error frame sent to a client.
// Client-side failures keep the wording Redis clients expect; backend
// failures carry their BZ code.
func replyError(err error) string {
	var de *domain.DomainError
	if !errors.As(err, &de) {
		return domain.RedisError(err)
	}

	switch {
	case errors.Is(de, domain.ErrUnsupportedCommand):
		return domain.OneLine("ERR unsupported command '" + de.Details + "'")
	case errors.Is(de, domain.ErrWrongArity):
		return domain.OneLine("ERR wrong number of arguments for '" + de.Details + "' command")
	case errors.Is(de, domain.ErrProtocol):
		return domain.OneLine("ERR Protocol error: " + de.Details)
	case errors.Is(de, domain.ErrRateLimited):
		return "ERR rate limit exceeded"
	case errors.Is(de, domain.ErrTooManyClients):
		return "ERR max number of clients reached"
	case errors.Is(de, domain.ErrAuthRequired):
		return msgNoAuth
	case errors.Is(de, domain.ErrWrongPassword):
		return msgWrongPass
	default:
		return domain.RedisError(de)
	}
}
