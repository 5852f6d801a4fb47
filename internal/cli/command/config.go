package command

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	clicfg "github.com/yndnr/blazar-go/internal/cli/config"
	"github.com/yndnr/blazar-go/internal/cli/output"
	"github.com/yndnr/blazar-go/internal/infra/confloader"
	"github.com/yndnr/blazar-go/internal/server/config"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management",
		Subcommands: []*cli.Command{
			{
				Name:      "check",
				Usage:     "Validate a proxy configuration file",
				ArgsUsage: "FILE",
				Action:    configCheck,
			},
			{
				Name:  "cli",
				Usage: "CLI profile",
				Subcommands: []*cli.Command{
					{
						Name:   "show",
						Usage:  "Show the effective CLI settings",
						Action: configCLIShow,
					},
					{
						Name:  "init",
						Usage: "Write the effective settings to the profile file",
						Flags: []cli.Flag{
							&cli.BoolFlag{
								Name:  "force",
								Usage: "Overwrite an existing profile",
							},
						},
						Action: configCLIInit,
					},
				},
			},
		},
	}
}

// loadProxyConfig reads path the way blazar-proxy does, minus flags.
func loadProxyConfig(path string) (*config.ProxyConfig, error) {
	cfg := config.Default()
	if err := confloader.NewLoader(confloader.WithConfigFile(path), confloader.WithStrict()).Load(cfg); err != nil {
		return nil, err
	}
	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func configCheck(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: config check FILE")
	}

	cfg, err := loadProxyConfig(c.Args().First())
	if err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	switch output.Format(flags.Output) {
	case output.FormatJSON, output.FormatYAML:
		return flags.Formatter().Format(c.App.Writer, config.Sanitize(cfg))
	default:
		w := c.App.Writer
		fmt.Fprintf(w, "configuration OK\n\n")
		fmt.Fprintf(w, "Listen:   %s\n", cfg.Proxy.ListenAddr())
		if cfg.Admin.Enabled {
			fmt.Fprintf(w, "Admin:    %s\n", cfg.Admin.Addr)
		} else {
			fmt.Fprintf(w, "Admin:    disabled\n")
		}
		fmt.Fprintf(w, "Auth:     %t\n\n", cfg.Proxy.RedisAuth != "")

		table := &output.Table{}
		table.SetHeaders("SHARD", "MASTER", "PASSWORD")
		for i, s := range config.Sanitize(cfg).Slices {
			pw := s.Password
			if pw == "" {
				pw = "-"
			}
			table.AddRow(fmt.Sprint(i), s.Master, pw)
		}
		return table.Render(w)
	}
}

// profileView is the CLI profile with the password masked.
type profileView struct {
	Profile string `json:"profile"`
	Server  string `json:"server"`
	Auth    string `json:"auth"`
	Admin   string `json:"admin"`
	Output  string `json:"output"`
	Timeout string `json:"timeout"`
}

func configCLIShow(c *cli.Context) error {
	flags := ParseGlobalFlags(c)
	view := profileView{
		Profile: c.String("profile"),
		Server:  flags.Server,
		Auth:    "-",
		Admin:   flags.Admin,
		Output:  flags.Output,
		Timeout: flags.Timeout.String(),
	}
	if flags.Auth != "" {
		view.Auth = "****"
	}
	return flags.Formatter().Format(c.App.Writer, view)
}

func configCLIInit(c *cli.Context) error {
	path := c.String("profile")
	if _, err := os.Stat(path); err == nil && !c.Bool("force") {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	flags := ParseGlobalFlags(c)
	profile := &clicfg.CLIConfig{
		Server:  flags.Server,
		Auth:    flags.Auth,
		Admin:   flags.Admin,
		Output:  flags.Output,
		Timeout: flags.Timeout,
	}
	if err := clicfg.Save(profile, path); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "wrote %s\n", path)
	return nil
}
