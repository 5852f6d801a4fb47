package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v2"

	clicfg "github.com/yndnr/blazar-go/internal/cli/config"
	"github.com/yndnr/blazar-go/internal/cli/connection"
	"github.com/yndnr/blazar-go/internal/cli/output"
	"github.com/yndnr/blazar-go/internal/cli/repl"
	"github.com/yndnr/blazar-go/internal/infra/buildinfo"
)

// ErrErrorReply is returned when the proxy answered with a RESP error.
// The reply itself has already been printed.
var ErrErrorReply = errors.New("command returned an error reply")

const profileKey = "profile"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:      "blazar-cli",
		Usage:     "Command-line client for the blazar proxy",
		UsageText: "blazar-cli [global options] [command [args...]]",
		Version:   buildinfo.String(),
		Flags:     globalFlags(),
		Metadata:  map[string]any{},
		Before:    loadProfile,
		Action:    rootAction,
		Commands: []*cli.Command{
			PingCommand(),
			GetCommand(),
			SetCommand(),
			ExecCommand(),
			RouteCommand(),
			ConfigCommand(),
			TokenCommand(),
			SystemCommand(),
		},
	}
}

// globalFlags returns the global CLI flags. They carry no defaults so the
// profile can fill whatever is not set.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "Proxy address (default from profile, 127.0.0.1:6380)",
			EnvVars: []string{"BLAZAR_CLI_SERVER"},
		},
		&cli.StringFlag{
			Name:    "auth",
			Aliases: []string{"a"},
			Usage:   "Password sent with AUTH after connecting",
			EnvVars: []string{"BLAZAR_CLI_AUTH"},
		},
		&cli.StringFlag{
			Name:    "admin",
			Usage:   "Proxy admin HTTP address (default from profile, 127.0.0.1:6390)",
			EnvVars: []string{"BLAZAR_CLI_ADMIN"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Dial and request timeout",
		},
		&cli.StringFlag{
			Name:    "profile",
			Usage:   "CLI profile file",
			EnvVars: []string{"BLAZAR_CLI_PROFILE"},
			Value:   clicfg.DefaultConfigPath(),
		},
	}
}

func loadProfile(c *cli.Context) error {
	profile, err := clicfg.Load(c.String("profile"))
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	c.App.Metadata[profileKey] = profile

	if _, err := output.ParseFormat(ParseGlobalFlags(c).Output); err != nil {
		return err
	}
	return nil
}

// GlobalFlags holds the resolved connection and output settings.
type GlobalFlags struct {
	Server  string
	Auth    string
	Admin   string
	Output  string
	Timeout time.Duration
}

// ParseGlobalFlags merges explicitly set flags over the loaded profile.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	profile, ok := c.App.Metadata[profileKey].(*clicfg.CLIConfig)
	if !ok {
		profile = clicfg.Default()
	}

	g := &GlobalFlags{
		Server:  profile.Server,
		Auth:    profile.Auth,
		Admin:   profile.Admin,
		Output:  profile.Output,
		Timeout: profile.Timeout,
	}
	if c.IsSet("server") {
		g.Server = c.String("server")
	}
	if c.IsSet("auth") {
		g.Auth = c.String("auth")
	}
	if c.IsSet("admin") {
		g.Admin = c.String("admin")
	}
	if c.IsSet("output") {
		g.Output = c.String("output")
	}
	if c.IsSet("timeout") {
		g.Timeout = c.Duration("timeout")
	}
	if f, err := output.ParseFormat(g.Output); err == nil {
		g.Output = string(f)
	}
	return g
}

// Formatter returns the formatter for the selected output format.
func (g *GlobalFlags) Formatter() output.Formatter {
	return output.NewFormatter(output.Format(g.Output))
}

func dialProxy(c *cli.Context) (*connection.Client, error) {
	flags := ParseGlobalFlags(c)

	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	return connection.Dial(ctx, flags.Server, flags.Auth, flags.Timeout)
}

func adminClient(c *cli.Context) *connection.HTTPClient {
	flags := ParseGlobalFlags(c)
	return connection.NewHTTPClient(flags.Admin, flags.Timeout)
}

// rootAction runs the arguments as one command, redis-cli style, or
// starts the REPL when there are none.
func rootAction(c *cli.Context) error {
	if c.Args().Present() {
		return runCommand(c, c.Args().Slice())
	}

	client, err := dialProxy(c)
	if err != nil {
		return err
	}
	defer client.Close()

	return repl.New(client, client.Addr()).Run()
}

// PrintError prints an error message to w.
func PrintError(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "error: "+format+"\n", args...)
}
