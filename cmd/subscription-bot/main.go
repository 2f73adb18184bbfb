// Package main Subscription Bot API
//
// @title           Subscription Bot API
// @version         1.0
// @description     Вебхук платёжного провайдера и административный API бота закрытого канала

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:9443
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	subscriptionbot "github.com/ar2em/subscription-bot/internal/app/subscription-bot"
	"github.com/ar2em/subscription-bot/internal/config"
)

func main() {
	// .env удобен при локальном запуске; в продакшене файла нет.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logger.Info("starting subscription-bot", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := subscriptionbot.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize app", slog.Any("err", err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("app stopped with error", slog.Any("err", err))
		os.Exit(1)
	}

	logger.Info("subscription-bot stopped gracefully")
}
