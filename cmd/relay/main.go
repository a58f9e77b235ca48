package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/urfave/cli/v3"

	"news_relay/internal/config"
	"news_relay/internal/storage/sqlstore"
)

func main() {
	app := &cli.Command{
		Name:  "relay",
		Usage: "Poll news sources, store new items and push them to websocket clients",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: "config.yaml", Usage: "path to config file"},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Run the scheduler, the websocket gateway and the management API",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withConfig(ctx, c, runServe)
				},
			},
			{
				Name:  "sync",
				Usage: "Run sync jobs once and exit",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "job", Usage: "job id to run (default: all enabled jobs)"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					job := c.String("job")
					return withConfig(ctx, c, func(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
						return runSync(ctx, cfg, job, logger)
					})
				},
			},
			{
				Name:  "migrate",
				Usage: "Create the database schema and exit",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withConfig(ctx, c, runMigrate)
				},
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return withConfig(ctx, c, runServe)
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if err := app.Run(ctx, os.Args); err != nil {
		slog.Error("relay failed", "error", err)
		os.Exit(1)
	}
}

func withConfig(ctx context.Context, c *cli.Command, run func(context.Context, *config.Config, *slog.Logger) error) error {
	logger := setupLogger("info")

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger = setupLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	return run(ctx, cfg, logger)
}

func runMigrate(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	db, err := sqlstore.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := sqlstore.Migrate(ctx, db); err != nil {
		return err
	}
	logger.Info("schema is up to date", "driver", cfg.Database.Driver)
	return nil
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
