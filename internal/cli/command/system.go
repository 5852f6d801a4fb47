package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/blazar-go/internal/cli/connection"
	"github.com/yndnr/blazar-go/internal/cli/output"
	"github.com/yndnr/blazar-go/internal/server/httpserver/handler"
)

// SystemCommand returns the system subcommand group.
func SystemCommand() *cli.Command {
	return &cli.Command{
		Name:    "system",
		Aliases: []string{"sys"},
		Usage:   "Query the proxy admin endpoint",
		Subcommands: []*cli.Command{
			{
				Name:   "health",
				Usage:  "Check the proxy process is up",
				Action: systemHealth,
			},
			{
				Name:    "shards",
				Aliases: []string{"ready"},
				Usage:   "Show backend shard sessions",
				Action:  systemShards,
			},
			{
				Name:      "route",
				Usage:     "Ask the running proxy which shard owns each key",
				ArgsUsage: "KEY [KEY...]",
				Action:    systemRoute,
			},
		},
	}
}

func adminGet(c *cli.Context, path string) (*http.Response, error) {
	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	client := adminClient(c)
	resp, err := client.Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("request %s%s: %w", client.BaseURL(), path, err)
	}
	return resp, nil
}

func systemHealth(c *cli.Context) error {
	resp, err := adminGet(c, "/health")
	if err != nil {
		return err
	}

	var result handler.HealthResponse
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	switch output.Format(flags.Output) {
	case output.FormatJSON, output.FormatYAML:
		return flags.Formatter().Format(c.App.Writer, result)
	default:
		w := c.App.Writer
		fmt.Fprintf(w, "Status:     %s\n", result.Status)
		fmt.Fprintf(w, "Version:    %s (%s)\n", result.Version, result.Commit)
		fmt.Fprintf(w, "Go:         %s\n", result.GoVersion)
		fmt.Fprintf(w, "Time:       %s\n", result.Time)
		return nil
	}
}

// systemShards prints shard sessions. A not-ready proxy still reports its
// shards, then the command fails.
func systemShards(c *cli.Context) error {
	resp, err := adminGet(c, "/ready")
	if err != nil {
		return err
	}

	var result handler.ReadyResponse
	err = connection.ParseResponse(resp, &result)

	var apiErr *connection.APIError
	if errors.As(err, &apiErr) && len(apiErr.Details) > 0 {
		if jerr := json.Unmarshal(apiErr.Details, &result); jerr != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	switch output.Format(flags.Output) {
	case output.FormatJSON, output.FormatYAML:
		if ferr := flags.Formatter().Format(c.App.Writer, result); ferr != nil {
			return ferr
		}
	default:
		if ferr := flags.Formatter().Format(c.App.Writer, result.Shards); ferr != nil {
			return ferr
		}
	}
	return err
}

func systemRoute(c *cli.Context) error {
	if !c.Args().Present() {
		return fmt.Errorf("usage: system route KEY [KEY...]")
	}
	q := url.Values{"key": c.Args().Slice()}
	resp, err := adminGet(c, "/route?"+q.Encode())
	if err != nil {
		return err
	}

	var result handler.RouteResponse
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}
	return ParseGlobalFlags(c).Formatter().Format(c.App.Writer, result.Placements)
}
