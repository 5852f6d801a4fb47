package resp

import (
	"bytes"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Frame.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindSimple
	KindError
	KindInteger
	KindBulk
	KindNull
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindSimple:
		return "simple"
	case KindError:
		return "error"
	case KindInteger:
		return "integer"
	case KindBulk:
		return "bulk"
	case KindNull:
		return "null"
	case KindArray:
		return "array"
	default:
		return "invalid"
	}
}

// Frame is one decoded RESP value.
//
// Only the field matching Kind is meaningful: Str for simple and error
// strings, Int for integers, Bulk for bulk strings and Array for arrays.
// Frames are treated as immutable once built; constructors copy their input.
type Frame struct {
	Kind  Kind
	Str   string
	Int   int64
	Bulk  []byte
	Array []Frame
}

// Simple returns a simple string frame ("+OK").
func Simple(s string) Frame {
	return Frame{Kind: KindSimple, Str: s}
}

// Error returns an error frame ("-ERR ...").
func Error(s string) Frame {
	return Frame{Kind: KindError, Str: s}
}

// Integer returns an integer frame.
func Integer(n int64) Frame {
	return Frame{Kind: KindInteger, Int: n}
}

// Bulk returns a bulk string frame holding a copy of b.
// A nil b still yields an empty bulk string; use Null for absence.
func Bulk(b []byte) Frame {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Frame{Kind: KindBulk, Bulk: cp}
}

// BulkString returns a bulk string frame holding s.
func BulkString(s string) Frame {
	return Frame{Kind: KindBulk, Bulk: []byte(s)}
}

// Null returns the null bulk string frame ("$-1").
func Null() Frame {
	return Frame{Kind: KindNull}
}

// Array returns an array frame holding the given elements.
func Array(elems ...Frame) Frame {
	if elems == nil {
		elems = []Frame{}
	}
	return Frame{Kind: KindArray, Array: elems}
}

// Command builds the array-of-bulk-strings form clients use to send commands.
func Command(args ...string) Frame {
	elems := make([]Frame, len(args))
	for i, a := range args {
		elems[i] = BulkString(a)
	}
	return Frame{Kind: KindArray, Array: elems}
}

// IsError reports whether f is an error frame.
func (f Frame) IsError() bool {
	return f.Kind == KindError
}

// Text returns the textual payload of simple, error and bulk frames.
func (f Frame) Text() string {
	switch f.Kind {
	case KindSimple, KindError:
		return f.Str
	case KindBulk:
		return string(f.Bulk)
	case KindInteger:
		return strconv.FormatInt(f.Int, 10)
	default:
		return ""
	}
}

// Equal reports whether f and o hold the same variant and payload.
func (f Frame) Equal(o Frame) bool {
	if f.Kind != o.Kind {
		return false
	}
	switch f.Kind {
	case KindSimple, KindError:
		return f.Str == o.Str
	case KindInteger:
		return f.Int == o.Int
	case KindBulk:
		return bytes.Equal(f.Bulk, o.Bulk)
	case KindArray:
		if len(f.Array) != len(o.Array) {
			return false
		}
		for i := range f.Array {
			if !f.Array[i].Equal(o.Array[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// String renders f in a compact, human readable form for logs and tests.
func (f Frame) String() string {
	var sb strings.Builder
	f.render(&sb)
	return sb.String()
}

func (f Frame) render(sb *strings.Builder) {
	switch f.Kind {
	case KindSimple:
		sb.WriteString(f.Str)
	case KindError:
		sb.WriteString("(error) ")
		sb.WriteString(f.Str)
	case KindInteger:
		sb.WriteString("(integer) ")
		sb.WriteString(strconv.FormatInt(f.Int, 10))
	case KindBulk:
		sb.WriteString(strconv.Quote(string(f.Bulk)))
	case KindNull:
		sb.WriteString("(nil)")
	case KindArray:
		sb.WriteByte('[')
		for i, e := range f.Array {
			if i > 0 {
				sb.WriteString(", ")
			}
			e.render(sb)
		}
		sb.WriteByte(']')
	default:
		sb.WriteString("(invalid)")
	}
}
