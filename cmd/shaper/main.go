// Command shaper serves and generates parametric rim and tire meshes.
//
// Usage:
//
//	shaper serve --config shaper.yaml
//	shaper generate --params rim.json --out rim.stl [--png rim.png]
//	shaper version
package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"runtime"

	"github.com/megashaper/shaper/api"
	"github.com/megashaper/shaper/config"
	"github.com/megashaper/shaper/internal/cache"
	"github.com/megashaper/shaper/internal/metrics"
	"github.com/megashaper/shaper/internal/pipeline"
	"github.com/megashaper/shaper/internal/pool"
	"github.com/megashaper/shaper/internal/preview"
	"github.com/megashaper/shaper/internal/server"
	"github.com/megashaper/shaper/rim"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// Set with -ldflags "-X main.version=...".
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	app := &cli.App{
		Name:    "shaper",
		Usage:   "parametric rim and tire geometry service",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML config file",
				EnvVars: []string{"SHAPER_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			generateCommand(),
			versionCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func buildInfo() api.BuildInfo {
	return api.BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
		GoVersion: runtime.Version(),
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP service",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			logger, err := config.NewLogger(cfg.Log)
			if err != nil {
				return err
			}
			defer logger.Sync()

			store, err := newStore(cfg.Cache, logger)
			if err != nil {
				return err
			}
			mc := metrics.NewCollector(cfg.Metrics.Namespace, logger)
			wp := pool.New(cfg.Pool)
			mesh := cache.New(store, logger)
			defer mesh.Close()
			pl := pipeline.New(cfg.Generation, mesh, wp,
				pipeline.WithMetrics(mc),
				pipeline.WithLogger(logger),
			)

			ctx, cancel := context.WithCancel(c.Context)
			defer cancel()
			h := api.NewHandler(pl, mc, wp, buildInfo(), logger)
			m := server.NewManager(api.Router(ctx, h, cfg.API, logger), cfg.Server, logger)
			if err := m.Start(); err != nil {
				return err
			}
			logger.Info("shaper started",
				zap.String("addr", m.Addr()),
				zap.String("version", version),
				zap.String("cache", cfg.Cache.Backend),
				zap.Int("workers", cfg.Pool.MaxWorkers),
			)
			m.WaitForShutdown()
			wp.Close()
			return nil
		},
	}
}

func newStore(cfg config.CacheConfig, logger *zap.Logger) (cache.Store, error) {
	switch cfg.Backend {
	case "redis":
		s, err := cache.NewRedisStore(cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "none":
		return nil, nil
	default:
		return cache.NewMemoryStore(cfg.MaxItems, cfg.MaxBytes), nil
	}
}

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "generate one mesh from a JSON parameter record",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "params",
				Aliases:  []string{"p"},
				Usage:    "path to the parameter record (JSON or JSON5)",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Value:   "rim.stl",
				Usage:   "output binary STL path",
			},
			&cli.StringFlag{
				Name:  "png",
				Usage: "also render a preview PNG to this path",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log pipeline progress to stderr",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			logger := zap.NewNop()
			if c.Bool("verbose") {
				cfg.Log.Format = "console"
				cfg.Log.Level = "debug"
				cfg.Log.OutputPaths = []string{"stderr"}
				if logger, err = config.NewLogger(cfg.Log); err != nil {
					return err
				}
				defer logger.Sync()
			}

			data, err := os.ReadFile(c.String("params"))
			if err != nil {
				return err
			}
			rec, err := rim.DecodeRecordFile(data)
			if err != nil {
				return err
			}
			pl := pipeline.New(cfg.Generation, nil, pool.New(pool.Config{MaxWorkers: 1}), pipeline.WithLogger(logger))
			pl.OnTransition = func(t pipeline.Transition) {
				logger.Debug("state", zap.Stringer("from", t.From), zap.Stringer("to", t.To))
			}
			res, err := pl.Generate(c.Context, "cli", rec)
			if err != nil {
				return err
			}
			stl, err := base64.StdEncoding.DecodeString(res.RimGeo)
			if err != nil {
				return err
			}
			out := c.String("out")
			if err := os.WriteFile(out, stl, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "%s\nwrote %s (%d bytes)\n", res.Message, out, len(stl))
			if png := c.String("png"); png != "" {
				if err := preview.RenderSTLFile(out, png, preview.DefaultOptions()); err != nil {
					return fmt.Errorf("preview: %w", err)
				}
				fmt.Fprintf(c.App.Writer, "wrote %s\n", png)
			}
			return nil
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "print build information",
		Action: func(c *cli.Context) error {
			b := buildInfo()
			fmt.Fprintf(c.App.Writer, "shaper %s\ncommit: %s\nbuilt: %s\ngo: %s\n", b.Version, b.Commit, b.BuildTime, b.GoVersion)
			return nil
		},
	}
}
