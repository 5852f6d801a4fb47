// Package repl provides the interactive mode of blazar-cli: a redis-cli
// style prompt that sends each line through the proxy.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/yndnr/blazar-go/internal/cli/output"
	"github.com/yndnr/blazar-go/pkg/resp"
)

// historyShown is how many entries the history command prints.
const historyShown = 20

// Executor sends one command and returns its reply.
type Executor interface {
	Do(args ...string) (resp.Frame, error)
}

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	input     io.Reader
	output    io.Writer
	exec      Executor
	prompt    string
	completer *Completer
	history   *History
}

// New creates a REPL reading stdin and writing stdout. The prompt names
// the proxy address.
func New(exec Executor, addr string) *REPL {
	return &REPL{
		input:     os.Stdin,
		output:    os.Stdout,
		exec:      exec,
		prompt:    addr + "> ",
		completer: NewCompleter(),
		history:   NewHistory(),
	}
}

// Run starts the REPL loop. It returns nil on exit, quit or end of input.
func (r *REPL) Run() error {
	_ = r.history.Load()
	defer func() { _ = r.history.Save() }()

	reader := bufio.NewReader(r.input)

	for {
		fmt.Fprint(r.output, r.prompt)

		line, err := reader.ReadString('\n')
		if err == io.EOF && line == "" {
			fmt.Fprintln(r.output)
			return nil
		}
		if err != nil && err != io.EOF {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.history.Add(line)

		word, rest, _ := strings.Cut(line, " ")
		switch strings.ToLower(word) {
		case "exit", "quit":
			return nil
		case "help":
			r.help(strings.TrimSpace(rest))
			continue
		case "history":
			for i, e := range r.history.Recent(historyShown) {
				fmt.Fprintf(r.output, "%4d  %s\n", i+1, e)
			}
			continue
		}

		if err := r.execute(line); err != nil {
			fmt.Fprintf(r.output, "Error: %v\n", err)
		}
	}
}

func (r *REPL) execute(line string) error {
	args, err := SplitArgs(line)
	if err != nil {
		return err
	}
	reply, err := r.exec.Do(args...)
	if err != nil {
		return err
	}
	return output.FormatReply(r.output, reply)
}

// help lists the supported commands, or those starting with prefix.
func (r *REPL) help(prefix string) {
	matches := r.completer.Complete(prefix)
	if len(matches) == 0 {
		fmt.Fprintf(r.output, "No supported command starts with %q\n", prefix)
		return
	}
	if prefix == "" {
		fmt.Fprintln(r.output, "Type a Redis command, \"history\" to list past input, \"exit\" to leave.")
		fmt.Fprintln(r.output, "Supported commands:")
	}
	fmt.Fprintln(r.output, "  "+strings.Join(matches, " "))
}
