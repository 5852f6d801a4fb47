package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yndnr/blazar-go/pkg/resp"
)

// FormatReply writes f the way redis-cli prints replies:
//
//	OK
//	"value"
//	(integer) 3
//	(nil)
//	(error) ERR unknown command
//	1) "a"
//	2) (nil)
func FormatReply(w io.Writer, f resp.Frame) error {
	var sb strings.Builder
	writeReply(&sb, f, 0)
	sb.WriteByte('\n')
	_, err := io.WriteString(w, sb.String())
	return err
}

// writeReply renders f without a trailing newline. indent is the column
// nested array elements line up at.
func writeReply(sb *strings.Builder, f resp.Frame, indent int) {
	switch f.Kind {
	case resp.KindSimple:
		sb.WriteString(f.Str)
	case resp.KindError:
		sb.WriteString("(error) ")
		sb.WriteString(f.Str)
	case resp.KindInteger:
		sb.WriteString("(integer) ")
		sb.WriteString(strconv.FormatInt(f.Int, 10))
	case resp.KindBulk:
		sb.WriteString(strconv.Quote(string(f.Bulk)))
	case resp.KindNull:
		sb.WriteString("(nil)")
	case resp.KindArray:
		if len(f.Array) == 0 {
			sb.WriteString("(empty array)")
			return
		}
		width := len(strconv.Itoa(len(f.Array)))
		for i, e := range f.Array {
			if i > 0 {
				sb.WriteByte('\n')
				sb.WriteString(strings.Repeat(" ", indent))
			}
			label := fmt.Sprintf("%*d) ", width, i+1)
			sb.WriteString(label)
			writeReply(sb, e, indent+len(label))
		}
	default:
		sb.WriteString("(invalid)")
	}
}
