// Package connection wraps a byte stream with RESP framing.
//
// A Conn reads by accumulating bytes in a growable buffer and asking the
// codec whether a complete frame is present; only then is the frame parsed
// and its bytes released. Writes are encoded into a buffered writer and
// flushed before WriteFrame returns.
package connection

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/yndnr/blazar-go/pkg/resp"
)

// DefaultBufferSize is the initial read buffer and the write buffer size.
const DefaultBufferSize = 4096

// ErrConnectionReset is returned by ReadFrame when the peer closes the
// stream in the middle of a frame.
var ErrConnectionReset = fmt.Errorf("%w: connection reset by peer", resp.ErrProtocol)

// Option configures a Conn.
type Option func(*Conn)

// WithLimits sets the decoder limits.
func WithLimits(lim resp.Limits) Option {
	return func(c *Conn) {
		c.lim = lim
	}
}

// WithBufferSize sets the initial read buffer and the write buffer size.
func WithBufferSize(n int) Option {
	return func(c *Conn) {
		if n > 0 {
			c.bufSize = n
		}
	}
}

// Conn is a framed RESP stream. It is not safe for concurrent readers or
// concurrent writers; one reader and one writer may run in parallel.
type Conn struct {
	rw      io.ReadWriter
	netConn net.Conn
	bw      *bufio.Writer
	lim     resp.Limits
	bufSize int

	// buf[start:end] holds bytes read but not yet consumed.
	buf   []byte
	start int
	end   int

	closeOnce sync.Once
	closeErr  error
}

// New wraps rw. When rw is a net.Conn, deadlines and RemoteAddr pass
// through to it.
func New(rw io.ReadWriter, opts ...Option) *Conn {
	c := &Conn{
		rw:      rw,
		lim:     resp.DefaultLimits(),
		bufSize: DefaultBufferSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	if nc, ok := rw.(net.Conn); ok {
		c.netConn = nc
	}
	c.buf = make([]byte, c.bufSize)
	c.bw = bufio.NewWriterSize(rw, c.bufSize)
	return c
}

// ReadFrame returns the next complete frame from the stream.
//
// It returns io.EOF when the peer closed the stream between frames and
// ErrConnectionReset when it closed mid-frame. Errors wrapping
// resp.ErrProtocol or resp.ErrLimitExceeded leave the stream unusable.
func (c *Conn) ReadFrame() (resp.Frame, error) {
	for {
		if c.end > c.start {
			pending := c.buf[c.start:c.end]
			n, err := c.lim.Check(pending)
			if err == nil {
				f, _, err := c.lim.Parse(pending[:n])
				if err != nil {
					return resp.Frame{}, err
				}
				c.consume(n)
				return f, nil
			}
			if !errors.Is(err, resp.ErrIncomplete) {
				return resp.Frame{}, err
			}
		}

		if err := c.fill(); err != nil {
			if errors.Is(err, io.EOF) {
				if c.Buffered() == 0 {
					return resp.Frame{}, io.EOF
				}
				return resp.Frame{}, ErrConnectionReset
			}
			return resp.Frame{}, err
		}
	}
}

func (c *Conn) consume(n int) {
	c.start += n
	if c.start == c.end {
		c.start, c.end = 0, 0
	}
}

// fill reads at least one byte into the buffer, compacting or growing it
// first when there is no room at the tail.
func (c *Conn) fill() error {
	if c.end == len(c.buf) {
		if c.start > 0 {
			copy(c.buf, c.buf[c.start:c.end])
			c.end -= c.start
			c.start = 0
		} else {
			grown := make([]byte, 2*len(c.buf))
			copy(grown, c.buf[:c.end])
			c.buf = grown
		}
	}

	for empty := 0; ; empty++ {
		n, err := c.rw.Read(c.buf[c.end:])
		c.end += n
		if n > 0 {
			return nil
		}
		if err != nil {
			return err
		}
		if empty >= 100 {
			return io.ErrNoProgress
		}
	}
}

// Buffered returns the number of bytes read from the stream but not yet
// returned as part of a frame.
func (c *Conn) Buffered() int {
	return c.end - c.start
}

// WriteFrame encodes f and flushes it to the stream.
func (c *Conn) WriteFrame(f resp.Frame) error {
	if err := resp.WriteFrame(c.bw, f); err != nil {
		return err
	}
	return c.bw.Flush()
}

// WriteError writes an error frame carrying msg.
func (c *Conn) WriteError(msg string) error {
	return c.WriteFrame(resp.Error(msg))
}

// SetDeadline sets read and write deadlines. It is a no-op when the
// underlying stream is not a net.Conn.
func (c *Conn) SetDeadline(t time.Time) error {
	if c.netConn == nil {
		return nil
	}
	return c.netConn.SetDeadline(t)
}

func (c *Conn) SetReadDeadline(t time.Time) error {
	if c.netConn == nil {
		return nil
	}
	return c.netConn.SetReadDeadline(t)
}

func (c *Conn) SetWriteDeadline(t time.Time) error {
	if c.netConn == nil {
		return nil
	}
	return c.netConn.SetWriteDeadline(t)
}

// RemoteAddr returns the peer address, or nil for non-network streams.
func (c *Conn) RemoteAddr() net.Addr {
	if c.netConn == nil {
		return nil
	}
	return c.netConn.RemoteAddr()
}

// Close closes the underlying stream if it is closable. Calling it more
// than once returns the first result.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		if cl, ok := c.rw.(io.Closer); ok {
			c.closeErr = cl.Close()
		}
	})
	return c.closeErr
}

// IsTimeout reports whether err is a network timeout.
func IsTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
