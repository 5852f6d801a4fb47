package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/blazar-go/internal/cli/output"
)

// PingCommand returns the ping command.
func PingCommand() *cli.Command {
	return &cli.Command{
		Name:      "ping",
		Usage:     "Check the proxy answers",
		ArgsUsage: "[MESSAGE]",
		Action: func(c *cli.Context) error {
			return runCommand(c, append([]string{"PING"}, c.Args().Slice()...))
		},
	}
}

// GetCommand returns the get command.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Read a key",
		ArgsUsage: "KEY",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("usage: get KEY")
			}
			return runCommand(c, []string{"GET", c.Args().First()})
		},
	}
}

// SetCommand returns the set command.
func SetCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Write a key",
		ArgsUsage: "KEY VALUE",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "ttl",
				Usage: "Expire the key after this duration",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return fmt.Errorf("usage: set KEY VALUE")
			}
			args := []string{"SET", c.Args().Get(0), c.Args().Get(1)}
			if ttl := c.Duration("ttl"); ttl > 0 {
				args = append(args, "PX", fmt.Sprint(ttl.Milliseconds()))
			}
			return runCommand(c, args)
		},
	}
}

// ExecCommand returns the exec command, which sends any command verbatim.
func ExecCommand() *cli.Command {
	return &cli.Command{
		Name:      "exec",
		Usage:     "Send an arbitrary command",
		ArgsUsage: "COMMAND [ARG...]",
		Action: func(c *cli.Context) error {
			if !c.Args().Present() {
				return fmt.Errorf("usage: exec COMMAND [ARG...]")
			}
			return runCommand(c, c.Args().Slice())
		},
	}
}

// runCommand sends args over a fresh connection and prints the reply.
func runCommand(c *cli.Context, args []string) error {
	client, err := dialProxy(c)
	if err != nil {
		return err
	}
	defer client.Close()

	reply, err := client.Do(args...)
	if err != nil {
		return err
	}
	if err := output.FormatReply(c.App.Writer, reply); err != nil {
		return err
	}
	if reply.IsError() {
		return ErrErrorReply
	}
	return nil
}
