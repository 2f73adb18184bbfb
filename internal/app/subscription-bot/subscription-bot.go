package subscriptionbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/ar2em/subscription-bot/internal/bot"
	"github.com/ar2em/subscription-bot/internal/cache"
	"github.com/ar2em/subscription-bot/internal/config"
	"github.com/ar2em/subscription-bot/internal/lib/jwt"
	"github.com/ar2em/subscription-bot/internal/lib/sl"
	"github.com/ar2em/subscription-bot/internal/lib/tasks"
	"github.com/ar2em/subscription-bot/internal/migrations"
	"github.com/ar2em/subscription-bot/internal/paymentgateway/tribute"
	broadcastservice "github.com/ar2em/subscription-bot/internal/services/broadcast"
	enforcerservice "github.com/ar2em/subscription-bot/internal/services/enforcer"
	paymentservice "github.com/ar2em/subscription-bot/internal/services/payment"
	subscriptionservice "github.com/ar2em/subscription-bot/internal/services/subscription"
	"github.com/ar2em/subscription-bot/internal/storage/repository"
	"github.com/ar2em/subscription-bot/internal/telegram"
)

const shutdownTimeout = 15 * time.Second

// App держит собранные компоненты бота и управляет их жизненным циклом.
type App struct {
	server     *http.Server
	logger     *slog.Logger
	db         *repository.Storage
	dispatcher *bot.Bot
	enforcer   *enforcerservice.Service
	supervisor *tasks.Supervisor
}

// New подключает хранилище и кеш, проверяет токен бота, собирает сервисы
// и HTTP-сервер. Ошибка любого шага фатальна для запуска.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.New"

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.CheckDatabaseReady(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	tg := telegram.NewClient(cfg.BotToken)
	me, err := tg.GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	logger.Info("telegram bot authorized", slog.String("username", me.Username))

	gateway := tribute.New(cfg.Tribute)
	supervisor := tasks.NewSupervisor(logger)

	subscriptionService := subscriptionservice.New(db, cacheRedis, logger, cfg.Subscription)
	paymentService := paymentservice.New(subscriptionService, gateway, tg, supervisor,
		logger, cfg.ChannelID, cfg.Subscription)
	enforcerService := enforcerservice.New(db, tg, subscriptionService, logger,
		cfg.ChannelID, cfg.Subscription)
	broadcastService := broadcastservice.New(db, tg, logger, cfg.Subscription)

	maker := jwt.NewMaker(cfg.Admin.JWTSecretKey, cfg.Admin.TokenTTL)
	dispatcher := bot.New(tg, subscriptionService, paymentService, logger, cfg)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg, maker, gateway,
		paymentService, subscriptionService, enforcerService, broadcastService)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:     srv,
		logger:     logger,
		db:         db,
		dispatcher: dispatcher,
		enforcer:   enforcerService,
		supervisor: supervisor,
	}, nil
}

// Run запускает HTTP-сервер, long poll Telegram и планировщик проверки
// подписок, затем ждёт отмены контекста либо ошибки сервера.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	go func() {
		if err := a.dispatcher.Run(ctx); err != nil {
			a.logger.Error("bot dispatcher exited", sl.Err(err))
		}
	}()

	go func() {
		if err := a.enforcer.Run(ctx); err != nil {
			a.logger.Error("subscription checker exited", sl.Err(err))
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)

		// Даём доехать фоновым задачам выдачи доступа.
		if err := a.supervisor.Shutdown(timeoutCtx); err != nil {
			a.logger.Error("failed to drain background tasks", sl.Err(err))
		}

		if closeErr := a.db.DB.Close(); closeErr != nil {
			a.logger.Error("failed to close storage", sl.Err(closeErr))
		}
		return err
	}
}
