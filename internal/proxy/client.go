package proxy

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/yndnr/blazar-go/internal/connection"
	"github.com/yndnr/blazar-go/internal/core/domain"
	"github.com/yndnr/blazar-go/internal/telemetry/logger"
	"github.com/yndnr/blazar-go/internal/telemetry/metric"
	"github.com/yndnr/blazar-go/pkg/resp"
	"github.com/yndnr/blazar-go/pkg/token"
)

type connState uint8

const (
	stateAuthenticating connState = iota
	stateReady
	stateClosed
)

func (s connState) String() string {
	switch s {
	case stateAuthenticating:
		return "authenticating"
	case stateReady:
		return "ready"
	default:
		return "closed"
	}
}

// client is one accepted connection. All fields are owned by the serve
// goroutine except conn, which Shutdown may close.
type client struct {
	id     string
	ip     string
	conn   *connection.Conn
	srv    *Server
	state  connState
	logger logger.Logger
}

func (c *client) serve(ctx context.Context) {
	ctx = logger.WithConnID(ctx, c.id)
	c.logger = c.logger.WithContext(ctx)
	c.logger.Debug("client connected", "state", c.state.String())
	defer c.logger.Debug("client disconnected")

	for c.state != stateClosed {
		if err := c.armReadDeadline(); err != nil {
			return
		}
		f, err := c.conn.ReadFrame()
		if err != nil {
			c.readFailed(err)
			return
		}

		name, err := commandName(f)
		if err != nil {
			c.protocolError(err)
			return
		}

		reply, closeAfter := c.execute(ctx, name, f)
		if err := c.write(reply); err != nil {
			c.logger.Debug("client write failed", "error", err)
			return
		}
		if closeAfter {
			c.state = stateClosed
		}
	}
}

// armReadDeadline allows the idle timeout while nothing is buffered and the
// shorter read timeout once a command has started to arrive.
func (c *client) armReadDeadline() error {
	d := c.srv.cfg.IdleTimeout
	if c.conn.Buffered() > 0 {
		d = c.srv.cfg.ReadTimeout
	}
	return c.conn.SetReadDeadline(time.Now().Add(d))
}

func (c *client) readFailed(err error) {
	switch {
	case errors.Is(err, io.EOF):
	case connection.IsTimeout(err):
		c.logger.Debug("client timed out")
	case resp.IsTerminal(err):
		c.protocolError(err)
	default:
		c.logger.Debug("client read error", "error", err)
	}
}

func (c *client) protocolError(err error) {
	c.srv.metrics.ObserveProtocolError("client")
	c.logger.Warn("client protocol error", "error", err)
	_ = c.write(resp.Error(replyError(errProtocol(err))))
}

func (c *client) write(f resp.Frame) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.srv.cfg.WriteTimeout)); err != nil {
		return err
	}
	return c.conn.WriteFrame(f)
}

// execute runs one command and returns exactly one reply. closeAfter asks
// the caller to close the connection once the reply is written.
func (c *client) execute(ctx context.Context, name string, f resp.Frame) (reply resp.Frame, closeAfter bool) {
	reply, closeAfter, err := c.handle(ctx, name, f)

	result := metric.ResultOK
	switch {
	case err != nil:
		reply = resp.Error(replyError(err))
		result = metric.ResultError
		if errors.Is(err, domain.ErrBackendTimeout) {
			result = metric.ResultTimeout
		}
	case reply.IsError():
		result = metric.ResultError
	}
	c.srv.metrics.ObserveCommand(commandLabel(name), result)
	return reply, closeAfter
}

func (c *client) handle(ctx context.Context, name string, f resp.Frame) (resp.Frame, bool, error) {
	args := f.Array

	if c.state == stateAuthenticating {
		switch name {
		case "AUTH":
			return c.auth(args)
		case "QUIT":
			return resp.Simple("OK"), true, nil
		default:
			return resp.Frame{}, true, domain.ErrAuthRequired
		}
	}

	switch name {
	case "QUIT":
		return resp.Simple("OK"), true, nil
	case "AUTH":
		return c.auth(args)
	}

	if !c.srv.limiter.allow(c.ip) {
		return resp.Frame{}, false, domain.ErrRateLimited
	}

	switch name {
	case "PING":
		switch len(args) {
		case 1:
			return resp.Simple("PONG"), false, nil
		case 2:
			return args[1], false, nil
		}
		return resp.Frame{}, false, errArity("ping")
	case "ECHO":
		if len(args) != 2 {
			return resp.Frame{}, false, errArity("echo")
		}
		return args[1], false, nil
	case "SELECT":
		if len(args) != 2 {
			return resp.Frame{}, false, errArity("select")
		}
		if string(args[1].Bulk) != "0" {
			return resp.Error("ERR DB index is out of range"), false, nil
		}
		return resp.Simple("OK"), false, nil
	case "COMMAND":
		return resp.Array(), false, nil
	}

	spec, ok := lookupCommand(name)
	if !ok {
		return resp.Frame{}, false, errUnsupported(args[0].Text())
	}
	if !spec.arityOK(len(args)) {
		return resp.Frame{}, false, errArity(strings.ToLower(name))
	}

	reply, err := c.srv.router.route(ctx, spec, f)
	if err != nil {
		c.logger.Debug("backend request failed", "command", name, "error", err)
	}
	return reply, false, err
}

// auth handles AUTH <token> and AUTH <user> <token>. The user name is
// ignored. A missing or wrong token closes a connection that never
// authenticated.
func (c *client) auth(args []resp.Frame) (resp.Frame, bool, error) {
	if len(args) != 2 && len(args) != 3 {
		return resp.Frame{}, c.state == stateAuthenticating, errArity("auth")
	}
	if c.srv.cfg.Auth == "" {
		return resp.Error(msgNoPassSet), false, nil
	}

	given := args[len(args)-1].Bulk
	if !token.Equal(given, []byte(c.srv.cfg.Auth)) {
		c.logger.Warn("client authentication failed")
		return resp.Frame{}, c.state == stateAuthenticating, domain.ErrWrongPassword
	}

	c.state = stateReady
	return resp.Simple("OK"), false, nil
}

// commandName validates that f is a non-empty array of bulk strings and
// returns the upper-cased command name.
func commandName(f resp.Frame) (string, error) {
	if f.Kind != resp.KindArray {
		return "", errors.New("expected array of bulk strings, got " + f.Kind.String())
	}
	if len(f.Array) == 0 {
		return "", errors.New("empty command")
	}
	for _, a := range f.Array {
		if a.Kind != resp.KindBulk {
			return "", errors.New("expected array of bulk strings, got " + a.Kind.String() + " element")
		}
	}
	return strings.ToUpper(string(f.Array[0].Bulk)), nil
}
