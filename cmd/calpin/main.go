package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"

	"calpin/internal/config"
	"calpin/internal/event"
	"calpin/internal/ics"
	"calpin/internal/location"
	appLog "calpin/internal/log"
	"calpin/internal/web"
)

const version = "0.1.0"

func main() {
	// A missing .env is fine.
	_ = godotenv.Load()

	app := &cli.App{
		Name:    "calpin",
		Usage:   "Calendar events and map pins over HTTP, with iCalendar import and export.",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   "calpin.yaml",
				Usage:   "path to the YAML config file (created on first run)",
				EnvVars: []string{"CALPIN_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			exportCommand(),
			importCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		appLog.Error("calpin failed", err)
		os.Exit(1)
	}
}

// loadConfig reads the file, applies CALPIN_* overrides and sets the log
// level.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))
	return cfg, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			appLog.Info("signal received, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Usage: "HTTP listen address (overrides config)"},
			&cli.BoolFlag{Name: "migrate", Usage: "apply database migrations before serving"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if l := c.String("listen"); l != "" {
				cfg.Listen = l
			}

			ctx, cancel := signalContext(c.Context)
			defer cancel()

			b, err := openBackend(ctx, cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			if c.Bool("migrate") && b.pg != nil {
				if err := b.pg.Migrate(ctx); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
			}

			events := event.NewService(b.events)
			locations := location.NewService(b.locations)

			if cfg.Export.Path != "" {
				snap := ics.NewSnapshot(events, cfg.Export.Path, ics.ExportOptions{Name: cfg.Export.Name})
				sched := cron.New()
				if _, err := snap.Schedule(sched, cfg.Export.Cron); err != nil {
					return fmt.Errorf("schedule feed snapshot %q: %w", cfg.Export.Cron, err)
				}
				sched.Start()
				defer func() { <-sched.Stop().Done() }()
				appLog.Info("feed snapshot scheduled", "path", cfg.Export.Path, "cron", cfg.Export.Cron)
			}

			appLog.Info("calpin starting",
				"version", version,
				"listen", cfg.Listen,
				"driver", cfg.Database.Driver,
				"cache", cfg.Redis.Addr != "",
				"basic_auth", cfg.BasicAuth.Enabled(),
				"url_import", cfg.AllowURLImport,
			)

			srv := web.NewServer(cfg, events, locations, ics.NewFetcher(cfg.ICSCacheDir))
			if err := srv.Run(ctx); err != nil {
				return err
			}
			appLog.Info("calpin exiting")
			return nil
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending database migrations.",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if cfg.Database.Driver != config.DriverPostgres {
				return errors.New("migrate needs database.driver: postgres")
			}
			b, err := openBackend(c.Context, cfg)
			if err != nil {
				return err
			}
			defer b.Close()
			return b.pg.Migrate(c.Context)
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write every stored event as an iCalendar feed.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Usage: "output file; standard output when empty"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			b, err := openBackend(c.Context, cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			events := event.NewService(b.events)
			opts := ics.ExportOptions{Name: cfg.Export.Name}
			if out := c.String("out"); out != "" {
				return ics.NewSnapshot(events, out, opts).Write(c.Context)
			}
			list, err := events.List(c.Context)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(c.App.Writer, ics.Export(list, opts))
			return err
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Create events from an iCalendar file or URL.",
		ArgsUsage: "SOURCE",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return errors.New("import takes exactly one SOURCE (file path or http(s) URL)")
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			b, err := openBackend(c.Context, cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			src := ics.SourceFor(c.Args().First())
			res, err := ics.NewFetcher(cfg.ICSCacheDir).Fetch(c.Context, src)
			if err != nil {
				return err
			}
			parsed, err := ics.ParseICS(src, res.Body)
			if err != nil {
				return fmt.Errorf("parse %s: %w", src.Name(), err)
			}

			created := 0
			for _, r := range ics.Import(c.Context, event.NewService(b.events), parsed) {
				if r.Err != nil {
					fmt.Fprintf(c.App.Writer, "skipped %s: %v\n", r.UID, r.Err)
					continue
				}
				created++
				fmt.Fprintf(c.App.Writer, "created %s as event %d\n", r.UID, r.Event.ID)
			}
			fmt.Fprintf(c.App.Writer, "%d of %d events imported\n", created, len(parsed))
			return nil
		},
	}
}
