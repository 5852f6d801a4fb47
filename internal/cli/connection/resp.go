package connection

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	rconn "github.com/yndnr/blazar-go/internal/connection"
	"github.com/yndnr/blazar-go/pkg/resp"
)

// ErrEmptyCommand is returned by Do when no arguments are given.
var ErrEmptyCommand = errors.New("connection: empty command")

// Client sends commands to the proxy one at a time.
type Client struct {
	addr    string
	conn    *rconn.Conn
	timeout time.Duration
}

// Dial connects to addr and, when auth is set, authenticates. timeout
// bounds the dial and every later round trip; zero means no bound.
func Dial(ctx context.Context, addr, auth string, timeout time.Duration) (*Client, error) {
	d := net.Dialer{Timeout: timeout}
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}

	c := &Client{addr: addr, conn: rconn.New(nc), timeout: timeout}
	if auth == "" {
		return c, nil
	}

	reply, err := c.Do("AUTH", auth)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	if reply.IsError() {
		_ = c.Close()
		return nil, fmt.Errorf("auth: %s", reply.Str)
	}
	return c, nil
}

// Addr returns the proxy address.
func (c *Client) Addr() string {
	return c.addr
}

// Do sends args as one command and reads its reply. Error replies are
// returned as frames, not Go errors.
func (c *Client) Do(args ...string) (resp.Frame, error) {
	if len(args) == 0 {
		return resp.Frame{}, ErrEmptyCommand
	}
	if c.timeout > 0 {
		_ = c.conn.SetDeadline(time.Now().Add(c.timeout))
	}

	if err := c.conn.WriteFrame(resp.Command(args...)); err != nil {
		return resp.Frame{}, fmt.Errorf("send: %w", err)
	}
	reply, err := c.conn.ReadFrame()
	if err != nil {
		return resp.Frame{}, fmt.Errorf("read reply: %w", err)
	}
	return reply, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
