package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/joho/godotenv"
	"github.com/vadimbarashkov/shortlink/internal/app"
	"github.com/vadimbarashkov/shortlink/internal/config"
)

func main() {
	// A missing .env is fine, CONFIG_PATH may come from the environment.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	logger := httplog.NewLogger("shortlink", httplog.Options{
		LogLevel:        cfg.Log.SlogLevel(),
		JSON:            cfg.Log.JSON,
		Concise:         cfg.Log.Concise,
		RequestHeaders:  !cfg.Log.Concise,
		Tags:            map[string]string{"env": cfg.Env},
		QuietDownRoutes: []string{"/ping"},
		QuietDownPeriod: 10 * time.Second,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.Run(ctx, cfg, logger); err != nil {
		logger.Error("application stopped with error", slog.Any("err", err))
		os.Exit(1)
	}
}
