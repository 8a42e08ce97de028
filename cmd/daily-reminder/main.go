package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/illufoxKusanagi/daily-reminder/internal/config"
	"github.com/illufoxKusanagi/daily-reminder/internal/database"
	"github.com/illufoxKusanagi/daily-reminder/internal/notify"
	"github.com/illufoxKusanagi/daily-reminder/internal/repository"
	"github.com/illufoxKusanagi/daily-reminder/internal/scheduler"
	"github.com/illufoxKusanagi/daily-reminder/internal/server"
)

func main() {
	app := &cli.App{
		Name:  "daily-reminder",
		Usage: "Personal daily-reminder service: calendar events with desktop notifications.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "headless", Usage: "Run without opening the browser UI."},
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP port on loopback."},
			&cli.DurationFlag{Name: "tick", Value: scheduler.DefaultTick, Usage: "Reminder scan period (10s-60s)."},
			&cli.StringFlag{Name: "db", Usage: "Override the database file path."},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "Log level: debug, info, warn, error."},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg := config.Default()
	cfg.Server.Port = c.Int("port")
	cfg.Scheduler.Tick = scheduler.ClampTick(c.Duration("tick"))
	cfg.Database.Path = c.String("db")
	cfg.Headless = c.Bool("headless")
	cfg.LogLevel = c.String("log-level")

	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	logger := zerolog.New(output).With().
		Timestamp().
		Logger()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.DefaultContextLogger = &logger

	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath, err = database.DefaultPath()
		if err != nil {
			logger.Error().Err(err).Msg("Failed to resolve database location")
			return cli.Exit("storage unavailable", 1)
		}
	}

	db, err := database.New(dbPath)
	if err != nil {
		logger.Error().Err(err).Str("path", dbPath).Msg("Failed to initialize database")
		return cli.Exit("storage unavailable", 1)
	}
	defer db.Close()
	logger.Info().Str("path", dbPath).Msg("Database opened")

	repo := repository.NewEventRepository(db.DB(), logger.With().Str("component", "repository").Logger())
	notifier := notify.NewDesktop(logger.With().Str("component", "notify").Logger())

	sched := scheduler.New(
		repo,
		notifier,
		logger.With().Str("component", "scheduler").Logger(),
		cfg.Scheduler.Tick,
		prometheus.DefaultRegisterer,
	)
	repo.Subscribe(sched.HandleChange)

	if err := sched.Start(); err != nil {
		logger.Error().Err(err).Msg("Failed to start scheduler")
		return cli.Exit("scheduler unavailable", 1)
	}
	defer sched.Stop()

	srv := server.New(cfg, repo, sched, &logger)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	if !cfg.Headless {
		logger.Info().Msgf("Open http://%s in your browser", srv.Server.Addr)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("Server error")
			return cli.Exit("server failed to start", 1)
		}
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("Shutting down server...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Stop(ctx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server stopped")
	return nil
}
