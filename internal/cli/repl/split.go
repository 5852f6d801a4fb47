package repl

import (
	"errors"
	"strconv"
	"strings"
)

// ErrUnbalancedQuotes is returned by SplitArgs for an unterminated quote.
var ErrUnbalancedQuotes = errors.New("invalid argument(s): unbalanced quotes")

// SplitArgs splits a prompt line into arguments the way redis-cli does.
// Double-quoted arguments understand \n, \r, \t, \", \\ and \xHH escapes;
// single-quoted arguments are taken literally except for \'. A closing
// quote must be followed by a space or the end of the line.
func SplitArgs(line string) ([]string, error) {
	var args []string
	i := 0
	for {
		for i < len(line) && isSpace(line[i]) {
			i++
		}
		if i >= len(line) {
			return args, nil
		}

		var sb strings.Builder
		switch line[i] {
		case '"':
			i++
			for {
				if i >= len(line) {
					return nil, ErrUnbalancedQuotes
				}
				c := line[i]
				if c == '"' {
					i++
					break
				}
				if c == '\\' && i+1 < len(line) {
					n, width := unescape(line[i+1:])
					sb.WriteByte(n)
					i += 1 + width
					continue
				}
				sb.WriteByte(c)
				i++
			}
		case '\'':
			i++
			for {
				if i >= len(line) {
					return nil, ErrUnbalancedQuotes
				}
				c := line[i]
				if c == '\'' {
					i++
					break
				}
				if c == '\\' && i+1 < len(line) && line[i+1] == '\'' {
					sb.WriteByte('\'')
					i += 2
					continue
				}
				sb.WriteByte(c)
				i++
			}
		default:
			for i < len(line) && !isSpace(line[i]) {
				sb.WriteByte(line[i])
				i++
			}
			args = append(args, sb.String())
			continue
		}

		if i < len(line) && !isSpace(line[i]) {
			return nil, ErrUnbalancedQuotes
		}
		args = append(args, sb.String())
	}
}

// unescape decodes the escape starting after a backslash and reports how
// many bytes of s it used.
func unescape(s string) (byte, int) {
	switch s[0] {
	case 'n':
		return '\n', 1
	case 'r':
		return '\r', 1
	case 't':
		return '\t', 1
	case 'b':
		return '\b', 1
	case 'a':
		return '\a', 1
	case 'x':
		if len(s) >= 3 {
			if v, err := strconv.ParseUint(s[1:3], 16, 8); err == nil {
				return byte(v), 3
			}
		}
	}
	return s[0], 1
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
