package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/blazar-go/internal/cli/output"
	"github.com/yndnr/blazar-go/pkg/token"
)

// TokenCommand returns the token subcommand group.
func TokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Proxy password helpers",
		Subcommands: []*cli.Command{
			{
				Name:  "gen",
				Usage: "Generate a random password for proxy.redis_auth",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "length",
						Usage: "Number of random bytes",
						Value: token.DefaultLength,
					},
				},
				Action: tokenGen,
			},
			{
				Name:      "hash",
				Usage:     "Print the SHA-256 fingerprint of a password",
				ArgsUsage: "TOKEN",
				Action:    tokenHash,
			},
		},
	}
}

type tokenView struct {
	Token  string `json:"token,omitempty"`
	SHA256 string `json:"sha256"`
}

func tokenGen(c *cli.Context) error {
	length := c.Int("length")
	if length < 16 {
		return fmt.Errorf("length must be at least 16, got %d", length)
	}

	tok, err := token.GenerateWithLength(length)
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}
	return printToken(c, tokenView{Token: tok, SHA256: token.Hash(tok)})
}

func tokenHash(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: token hash TOKEN")
	}
	return printToken(c, tokenView{SHA256: token.Hash(c.Args().First())})
}

func printToken(c *cli.Context, v tokenView) error {
	flags := ParseGlobalFlags(c)
	switch output.Format(flags.Output) {
	case output.FormatJSON, output.FormatYAML:
		return flags.Formatter().Format(c.App.Writer, v)
	default:
		if v.Token != "" {
			fmt.Fprintln(c.App.Writer, v.Token)
			return nil
		}
		fmt.Fprintln(c.App.Writer, v.SHA256)
		return nil
	}
}
