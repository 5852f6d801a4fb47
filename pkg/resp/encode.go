package resp

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

var crlf = []byte("\r\n")

// Validate reports whether f can be encoded as exactly one frame: every
// kind is known and no simple or error string contains a line feed. A lone
// CR is allowed, since the decoder also accepts it inside a line.
func Validate(f Frame) error {
	switch f.Kind {
	case KindSimple, KindError:
		return checkLine(f.Str)
	case KindInteger, KindBulk, KindNull:
		return nil
	case KindArray:
		for _, e := range f.Array {
			if err := Validate(e); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: cannot encode %s frame", ErrProtocol, f.Kind)
	}
}

func checkLine(s string) error {
	if strings.IndexByte(s, '\n') >= 0 {
		return fmt.Errorf("%w: line break in %q", ErrProtocol, s)
	}
	return nil
}

// AppendFrame appends the wire encoding of f to dst. It does not validate
// f; run Validate first when the text may hold line breaks.
func AppendFrame(dst []byte, f Frame) []byte {
	switch f.Kind {
	case KindSimple:
		dst = append(dst, '+')
		dst = append(dst, f.Str...)
	case KindError:
		dst = append(dst, '-')
		dst = append(dst, f.Str...)
	case KindInteger:
		dst = append(dst, ':')
		dst = strconv.AppendInt(dst, f.Int, 10)
	case KindBulk:
		dst = append(dst, '$')
		dst = strconv.AppendInt(dst, int64(len(f.Bulk)), 10)
		dst = append(dst, crlf...)
		dst = append(dst, f.Bulk...)
	case KindNull:
		dst = append(dst, "$-1"...)
	case KindArray:
		dst = append(dst, '*')
		dst = strconv.AppendInt(dst, int64(len(f.Array)), 10)
		dst = append(dst, crlf...)
		for _, e := range f.Array {
			dst = AppendFrame(dst, e)
		}
		return dst
	default:
		return dst
	}
	return append(dst, crlf...)
}

// WriteFrame writes the wire encoding of f to w. It does not flush. An
// invalid frame is rejected before anything is written.
func WriteFrame(w *bufio.Writer, f Frame) error {
	if err := Validate(f); err != nil {
		return err
	}
	return writeFrame(w, f)
}

func writeFrame(w *bufio.Writer, f Frame) error {
	switch f.Kind {
	case KindSimple:
		return WriteSimpleString(w, f.Str)
	case KindError:
		return WriteError(w, f.Str)
	case KindInteger:
		return WriteInteger(w, f.Int)
	case KindBulk:
		return WriteBulk(w, f.Bulk)
	case KindNull:
		return WriteNullBulk(w)
	case KindArray:
		if err := WriteArrayHeader(w, len(f.Array)); err != nil {
			return err
		}
		for _, e := range f.Array {
			if err := writeFrame(w, e); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: cannot encode %s frame", ErrProtocol, f.Kind)
	}
}

func WriteSimpleString(w *bufio.Writer, s string) error {
	if err := checkLine(s); err != nil {
		return err
	}
	_, err := w.WriteString("+" + s + "\r\n")
	return err
}

func WriteError(w *bufio.Writer, s string) error {
	if err := checkLine(s); err != nil {
		return err
	}
	_, err := w.WriteString("-" + s + "\r\n")
	return err
}

func WriteInteger(w *bufio.Writer, n int64) error {
	_, err := w.WriteString(":" + strconv.FormatInt(n, 10) + "\r\n")
	return err
}

func WriteNullBulk(w *bufio.Writer) error {
	_, err := w.WriteString("$-1\r\n")
	return err
}

// WriteBulk writes b as a bulk string. A nil b is written as an empty bulk
// string; call WriteNullBulk for absence.
func WriteBulk(w *bufio.Writer, b []byte) error {
	if _, err := w.WriteString("$" + strconv.Itoa(len(b)) + "\r\n"); err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return err
	}
	_, err := w.Write(crlf)
	return err
}

func WriteArrayHeader(w *bufio.Writer, n int) error {
	_, err := w.WriteString("*" + strconv.Itoa(n) + "\r\n")
	return err
}
