package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/blazar-go/internal/topology"
)

// RouteCommand returns the route command. It computes placement from a
// proxy config file without contacting any server.
func RouteCommand() *cli.Command {
	return &cli.Command{
		Name:      "route",
		Usage:     "Show which shard owns each key",
		ArgsUsage: "KEY [KEY...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "Proxy configuration file",
				Required: true,
			},
		},
		Action: routeAction,
	}
}

func routeAction(c *cli.Context) error {
	if !c.Args().Present() {
		return fmt.Errorf("usage: route --config FILE KEY [KEY...]")
	}

	cfg, err := loadProxyConfig(c.String("config"))
	if err != nil {
		return err
	}
	topo, err := topology.New(cfg.Slices)
	if err != nil {
		return err
	}

	return ParseGlobalFlags(c).Formatter().Format(c.App.Writer, topo.PlaceAll(c.Args().Slice()))
}
