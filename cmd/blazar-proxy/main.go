package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/blazar-go/internal/backend"
	"github.com/yndnr/blazar-go/internal/infra/buildinfo"
	"github.com/yndnr/blazar-go/internal/infra/confloader"
	"github.com/yndnr/blazar-go/internal/infra/shutdown"
	"github.com/yndnr/blazar-go/internal/proxy"
	"github.com/yndnr/blazar-go/internal/server/config"
	"github.com/yndnr/blazar-go/internal/server/httpserver"
	"github.com/yndnr/blazar-go/internal/telemetry/logger"
	"github.com/yndnr/blazar-go/internal/telemetry/metric"
	"github.com/yndnr/blazar-go/internal/topology"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "blazar-proxy",
		Usage:   "Sharding RESP proxy for Redis masters",
		Version: buildinfo.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				EnvVars: []string{"BLAZAR_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "proxy-ip",
				Usage: "Address to accept clients on (overrides proxy.proxy_ip)",
			},
			&cli.StringFlag{
				Name:  "proxy-port",
				Usage: "Port to accept clients on (overrides proxy.proxy_port)",
			},
			&cli.StringFlag{
				Name:  "admin-addr",
				Usage: "Admin HTTP address (overrides admin.addr)",
			},
			&cli.BoolFlag{
				Name:  "no-admin",
				Usage: "Disable the admin HTTP server",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn, error",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Log format: json, text",
			},
			&cli.BoolFlag{
				Name:  "check",
				Usage: "Validate the configuration and exit",
			},
		},
		Action: serveAction,
	}
}

// overrides maps explicitly set flags to configuration keys.
func overrides(c *cli.Context) map[string]any {
	out := make(map[string]any)
	for flag, key := range map[string]string{
		"proxy-ip":   "proxy.proxy_ip",
		"proxy-port": "proxy.proxy_port",
		"admin-addr": "admin.addr",
		"log-level":  "log.level",
		"log-format": "log.format",
	} {
		if c.IsSet(flag) {
			out[key] = c.String(flag)
		}
	}
	if c.Bool("no-admin") {
		out["admin.enabled"] = false
	}
	return out
}

// loadConfig loads defaults, file, environment and overrides, then verifies.
func loadConfig(path string, flags map[string]any) (*config.ProxyConfig, error) {
	cfg := config.Default()

	opts := []confloader.Option{confloader.WithOverrides(flags), confloader.WithStrict()}
	if path != "" {
		opts = append(opts, confloader.WithConfigFile(path))
	}

	if err := confloader.NewLoader(opts...).Load(cfg); err != nil {
		return nil, err
	}
	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func serveAction(c *cli.Context) error {
	path := c.String("config")
	flags := overrides(c)

	cfg, err := loadConfig(path, flags)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.Bool("check") {
		fmt.Fprintf(c.App.Writer, "configuration OK: %d shard(s), listening on %s\n",
			len(cfg.Slices), cfg.Proxy.ListenAddr())
		return nil
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	log.Info("starting blazar-proxy",
		"version", buildinfo.Version,
		"commit", buildinfo.Commit,
		"config", path,
		"shards", len(cfg.Slices))

	return run(c.Context, cfg, path, flags, log)
}

func run(ctx context.Context, cfg *config.ProxyConfig, path string, flags map[string]any, log logger.Logger) error {
	topo, err := topology.New(cfg.Slices)
	if err != nil {
		return fmt.Errorf("build topology: %w", err)
	}
	for _, shard := range topo.Shards() {
		log.Info("shard configured", "shard", shard.Index, "master", shard.Master)
	}

	metrics := metric.NewRegistry()

	opts := backend.OptionsFromConfig(cfg.Backend, cfg.Protocol)
	opts.Logger = log
	opts.Metrics = metrics
	pool := backend.NewPool(topo, opts)
	if err := metrics.Register(metric.NewCollector(pool.ShardStates)); err != nil {
		return fmt.Errorf("register shard collector: %w", err)
	}

	shutdownHandler := shutdown.NewHandler(shutdownTimeout, log)

	// Hooks run in reverse: proxy first, then admin, then the pool, so
	// in-flight client commands can still reach their shards.
	pool.Start(ctx)
	shutdownHandler.OnShutdown("backend pool", func(context.Context) error {
		return pool.Close()
	})

	var admin *httpserver.Server
	if cfg.Admin.Enabled {
		admin = httpserver.New(cfg.Admin.Addr, httpserver.NewRouter(&httpserver.RouterConfig{
			Status:  pool,
			Placer:  topo,
			Metrics: metrics.Handler(),
			Logger:  log.With("component", "admin"),
		}))
		if err := admin.Start(); err != nil {
			_ = pool.Close()
			return fmt.Errorf("start admin server: %w", err)
		}
		log.Info("admin server listening", "addr", admin.Addr())
		shutdownHandler.OnShutdown("admin server", admin.Shutdown)
		go func() {
			if err := <-admin.Err(); err != nil {
				log.Error("admin server error", "error", err)
				shutdownHandler.Trigger()
			}
		}()
	}

	srv := proxy.New(proxy.ConfigFrom(cfg), topo, pool,
		proxy.WithLogger(log.With("component", "proxy")),
		proxy.WithMetrics(metrics),
	)
	if err := srv.Start(ctx); err != nil {
		if admin != nil {
			_ = admin.Shutdown(context.Background())
		}
		_ = pool.Close()
		return fmt.Errorf("start proxy: %w", err)
	}
	shutdownHandler.OnShutdown("proxy server", srv.Shutdown)

	if path != "" {
		stop, err := watchConfig(path, flags, cfg, log)
		if err != nil {
			log.Warn("config watcher disabled", "error", err)
		} else {
			shutdownHandler.OnShutdown("config watcher", func(context.Context) error {
				return stop()
			})
		}
	}

	log.Info("proxy started, press Ctrl+C to stop")
	if err := shutdownHandler.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("proxy stopped gracefully")
	return nil
}

// watchConfig re-reads the configuration file when it changes. Only
// log.level is applied live; other changes are reported as needing a
// restart.
func watchConfig(path string, flags map[string]any, current *config.ProxyConfig, log logger.Logger) (func() error, error) {
	var mu sync.Mutex
	reload := func() {
		next, err := loadConfig(path, flags)
		if err != nil {
			log.Warn("ignoring invalid configuration change", "error", err)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if pending := applyReload(current, next, log); len(pending) > 0 {
			log.Warn("configuration changes require a restart", "sections", pending)
		}
		current.Log.Level = next.Log.Level
	}

	w, err := confloader.NewWatcher(path, reload, confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	w.Start()
	return w.Stop, nil
}

// applyReload applies the live-reloadable part of next and returns the
// sections whose changes need a restart.
func applyReload(current, next *config.ProxyConfig, log logger.Logger) []string {
	if next.Log.Level != current.Log.Level {
		logger.SetLevel(next.Log.Level)
		log.Info("log level changed", "from", current.Log.Level, "to", next.Log.Level)
	}

	var pending []string
	if next.Proxy != current.Proxy {
		pending = append(pending, "proxy")
	}
	if !slices.Equal(next.Slices, current.Slices) {
		pending = append(pending, "slice")
	}
	if next.Backend != current.Backend {
		pending = append(pending, "backend")
	}
	if next.Protocol != current.Protocol {
		pending = append(pending, "protocol")
	}
	if next.Admin != current.Admin {
		pending = append(pending, "admin")
	}
	if next.Log.Format != current.Log.Format {
		pending = append(pending, "log.format")
	}
	return pending
}
