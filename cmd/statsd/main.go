package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/smart-student/stats-engine/internal/app"
	corecfg "github.com/smart-student/stats-engine/internal/core/config"
	"github.com/smart-student/stats-engine/internal/server"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (optional)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err == nil {
		slog.Info("Loaded environment from .env")
	}

	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded config",
		"records_backend", cfg.Records.Backend,
		"cache_backend", cfg.Cache.Backend,
		"schedule", cfg.Schedule.Cron,
		"timezone", cfg.Schedule.Timezone,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Error("Failed to close stores", "error", err)
		}
	}()

	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), cfg.Server.Mode, a.HealthChecks())
	a.RegisterRoutes(srv.Engine)

	background := make(chan struct{})
	go func() {
		defer close(background)
		if err := a.RunBackground(ctx); err != nil {
			slog.Error("Background components stopped with error", "error", err)
		}
	}()

	// Blocks until a signal cancels ctx.
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
		cancel()
	}
	<-background

	slog.Info("Shutdown complete")
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
