package resp

import (
	"bytes"
	"fmt"
	"math"
	"unicode/utf8"
)

// Protocol limits to bound resource use on untrusted input.
const (
	// DefaultMaxDepth bounds array nesting.
	DefaultMaxDepth = 32

	// DefaultMaxBulkLen matches the Redis proto-max-bulk-len default (512MB).
	DefaultMaxBulkLen = 512 * 1024 * 1024

	// DefaultMaxArrayLen limits the declared element count of one array.
	DefaultMaxArrayLen = 1024 * 1024

	// DefaultMaxLineLen limits simple strings, errors and length headers.
	DefaultMaxLineLen = 64 * 1024
)

// Limits bounds what the decoder accepts. Zero fields fall back to defaults.
type Limits struct {
	MaxDepth    int
	MaxBulkLen  int
	MaxArrayLen int
	MaxLineLen  int
}

// DefaultLimits returns the limits used by Check and Parse.
func DefaultLimits() Limits {
	return Limits{
		MaxDepth:    DefaultMaxDepth,
		MaxBulkLen:  DefaultMaxBulkLen,
		MaxArrayLen: DefaultMaxArrayLen,
		MaxLineLen:  DefaultMaxLineLen,
	}
}

func (l Limits) normalize() Limits {
	if l.MaxDepth <= 0 {
		l.MaxDepth = DefaultMaxDepth
	}
	if l.MaxBulkLen <= 0 {
		l.MaxBulkLen = DefaultMaxBulkLen
	}
	if l.MaxArrayLen <= 0 {
		l.MaxArrayLen = DefaultMaxArrayLen
	}
	if l.MaxLineLen <= 0 {
		l.MaxLineLen = DefaultMaxLineLen
	}
	return l
}

// Check reports the encoded length of the first frame in buf using the
// default limits. See Limits.Check.
func Check(buf []byte) (int, error) {
	return DefaultLimits().Check(buf)
}

// Parse decodes the first frame in buf using the default limits.
// See Limits.Parse.
func Parse(buf []byte) (Frame, int, error) {
	return DefaultLimits().Parse(buf)
}

// Check scans buf from offset zero and returns the number of bytes taken by
// the first complete frame. It returns ErrIncomplete as soon as the scan runs
// past the end of buf, at any nesting depth. It never allocates.
func (l Limits) Check(buf []byte) (int, error) {
	c := cursor{buf: buf, lim: l.normalize()}
	if err := c.check(0); err != nil {
		return 0, err
	}
	return c.pos, nil
}

// Parse decodes the first frame in buf and returns it with the number of
// bytes consumed. The frame owns its payload; buf may be reused afterwards.
// Callers reading from a stream normally run Check first.
func (l Limits) Parse(buf []byte) (Frame, int, error) {
	c := cursor{buf: buf, lim: l.normalize()}
	f, err := c.parse(0)
	if err != nil {
		return Frame{}, 0, err
	}
	return f, c.pos, nil
}

// cursor is a read position over a borrowed buffer.
type cursor struct {
	buf []byte
	pos int
	lim Limits
}

func (c *cursor) check(depth int) error {
	if depth > c.lim.MaxDepth {
		return fmt.Errorf("%w: nesting depth exceeds limit %d", ErrLimitExceeded, c.lim.MaxDepth)
	}
	t, err := c.readByte()
	if err != nil {
		return err
	}

	switch t {
	case '+', '-':
		line, err := c.readLine()
		if err != nil {
			return err
		}
		if !utf8.Valid(line) {
			return fmt.Errorf("%w: invalid utf-8 in %s string", ErrProtocol, typeName(t))
		}
		return nil
	case ':':
		_, err := c.readInteger()
		return err
	case '$':
		n, err := c.readBulkLen()
		if err != nil || n < 0 {
			return err
		}
		_, err = c.readPayload(n)
		return err
	case '*':
		n, err := c.readArrayLen()
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := c.check(depth + 1); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: invalid frame type byte %q", ErrProtocol, t)
	}
}

func (c *cursor) parse(depth int) (Frame, error) {
	if depth > c.lim.MaxDepth {
		return Frame{}, fmt.Errorf("%w: nesting depth exceeds limit %d", ErrLimitExceeded, c.lim.MaxDepth)
	}
	t, err := c.readByte()
	if err != nil {
		return Frame{}, err
	}

	switch t {
	case '+', '-':
		line, err := c.readLine()
		if err != nil {
			return Frame{}, err
		}
		if !utf8.Valid(line) {
			return Frame{}, fmt.Errorf("%w: invalid utf-8 in %s string", ErrProtocol, typeName(t))
		}
		if t == '+' {
			return Simple(string(line)), nil
		}
		return Error(string(line)), nil
	case ':':
		n, err := c.readInteger()
		if err != nil {
			return Frame{}, err
		}
		return Integer(n), nil
	case '$':
		n, err := c.readBulkLen()
		if err != nil {
			return Frame{}, err
		}
		if n < 0 {
			return Null(), nil
		}
		payload, err := c.readPayload(n)
		if err != nil {
			return Frame{}, err
		}
		return Bulk(payload), nil
	case '*':
		n, err := c.readArrayLen()
		if err != nil {
			return Frame{}, err
		}
		elems := make([]Frame, 0, min(n, 1024))
		for i := 0; i < n; i++ {
			e, err := c.parse(depth + 1)
			if err != nil {
				return Frame{}, err
			}
			elems = append(elems, e)
		}
		return Array(elems...), nil
	default:
		return Frame{}, fmt.Errorf("%w: invalid frame type byte %q", ErrProtocol, t)
	}
}

func (c *cursor) readByte() (byte, error) {
	if c.pos >= len(c.buf) {
		return 0, ErrIncomplete
	}
	b := c.buf[c.pos]
	c.pos++
	return b, nil
}

// readLine returns the bytes up to the next CRLF and moves past it.
func (c *cursor) readLine() ([]byte, error) {
	rest := c.buf[c.pos:]
	i := bytes.IndexByte(rest, '\n')
	if i < 0 {
		if len(rest) > c.lim.MaxLineLen {
			return nil, fmt.Errorf("%w: line length exceeds limit %d", ErrLimitExceeded, c.lim.MaxLineLen)
		}
		return nil, ErrIncomplete
	}
	if i > c.lim.MaxLineLen {
		return nil, fmt.Errorf("%w: line length exceeds limit %d", ErrLimitExceeded, c.lim.MaxLineLen)
	}
	if i == 0 || rest[i-1] != '\r' {
		return nil, fmt.Errorf("%w: line without CRLF terminator", ErrProtocol)
	}
	c.pos += i + 1
	return rest[:i-1], nil
}

func (c *cursor) readInteger() (int64, error) {
	line, err := c.readLine()
	if err != nil {
		return 0, err
	}
	n, ok := parseDecimal(line)
	if !ok {
		return 0, fmt.Errorf("%w: invalid integer %q", ErrProtocol, line)
	}
	return n, nil
}

// readBulkLen returns -1 for the null bulk string.
func (c *cursor) readBulkLen() (int, error) {
	line, err := c.readLine()
	if err != nil {
		return 0, err
	}
	if len(line) == 2 && line[0] == '-' && line[1] == '1' {
		return -1, nil
	}
	n, ok := parseDecimal(line)
	if !ok || n < 0 || line[0] == '-' {
		return 0, fmt.Errorf("%w: invalid bulk length %q", ErrProtocol, line)
	}
	if n > int64(c.lim.MaxBulkLen) {
		return 0, fmt.Errorf("%w: bulk length %d exceeds limit %d", ErrLimitExceeded, n, c.lim.MaxBulkLen)
	}
	return int(n), nil
}

func (c *cursor) readArrayLen() (int, error) {
	line, err := c.readLine()
	if err != nil {
		return 0, err
	}
	n, ok := parseDecimal(line)
	if !ok || n < 0 || line[0] == '-' {
		return 0, fmt.Errorf("%w: invalid array length %q", ErrProtocol, line)
	}
	if n > int64(c.lim.MaxArrayLen) {
		return 0, fmt.Errorf("%w: array length %d exceeds limit %d", ErrLimitExceeded, n, c.lim.MaxArrayLen)
	}
	return int(n), nil
}

// readPayload returns exactly n bytes followed by CRLF.
func (c *cursor) readPayload(n int) ([]byte, error) {
	if len(c.buf)-c.pos < n+2 {
		return nil, ErrIncomplete
	}
	payload := c.buf[c.pos : c.pos+n]
	if c.buf[c.pos+n] != '\r' || c.buf[c.pos+n+1] != '\n' {
		return nil, fmt.Errorf("%w: invalid bulk terminator", ErrProtocol)
	}
	c.pos += n + 2
	return payload, nil
}

// parseDecimal parses an optionally negative base-10 int64 without allocating.
func parseDecimal(b []byte) (int64, bool) {
	if len(b) == 0 {
		return 0, false
	}
	neg := b[0] == '-'
	if neg {
		b = b[1:]
		if len(b) == 0 {
			return 0, false
		}
	}

	var n uint64
	for _, ch := range b {
		if ch < '0' || ch > '9' {
			return 0, false
		}
		d := uint64(ch - '0')
		if n > (math.MaxUint64-d)/10 {
			return 0, false
		}
		n = n*10 + d
	}

	if neg {
		if n > uint64(math.MaxInt64)+1 {
			return 0, false
		}
		return -int64(n), true
	}
	if n > math.MaxInt64 {
		return 0, false
	}
	return int64(n), true
}

func typeName(t byte) string {
	if t == '-' {
		return "error"
	}
	return "simple"
}
