package repl

import (
	"strings"

	"github.com/yndnr/blazar-go/internal/proxy"
)

// Completer matches command names the proxy accepts.
type Completer struct {
	commands []string
}

func NewCompleter() *Completer {
	return &Completer{commands: proxy.Commands()}
}

// Complete returns the commands starting with prefix, ignoring case. A
// lowercase prefix gets lowercase names back, as redis-cli does.
func (c *Completer) Complete(prefix string) []string {
	upper := strings.ToUpper(prefix)
	lower := prefix != "" && prefix == strings.ToLower(prefix) && prefix != upper

	var out []string
	for _, cmd := range c.commands {
		if !strings.HasPrefix(cmd, upper) {
			continue
		}
		if lower {
			cmd = strings.ToLower(cmd)
		}
		out = append(out, cmd)
	}
	return out
}
