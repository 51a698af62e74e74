package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"resolveflow/backend/internal/api"
	"resolveflow/backend/internal/api/handler"
	"resolveflow/backend/internal/auth"
	"resolveflow/backend/internal/chathub"
	"resolveflow/backend/internal/complaint"
	"resolveflow/backend/internal/config"
	"resolveflow/backend/internal/keylock"
	"resolveflow/backend/internal/localization"
	"resolveflow/backend/internal/notify"
	"resolveflow/backend/internal/storage"
	"resolveflow/backend/internal/telegram"
	"resolveflow/backend/internal/users"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.IsDevelopment() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// setupStorage returns the PostgreSQL + Redis store, or an in-memory store
// when no database is configured.
func setupStorage(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (storage.Storage, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Warn().Msg("DATABASE_URL not set, using in-memory storage")
		return storage.NewMemoryStore(), func() {}, nil
	}
	s, closeFn, err := storage.Connect(ctx, cfg.DatabaseURL, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	logger.Info().Bool("redis", cfg.RedisURL != "").Msg("database connections established, migrations complete")
	return s, closeFn, nil
}

func main() {
	cfg := config.Load()
	logger := newLogger(cfg)
	logger.Info().Str("env", cfg.Env).Msg("starting ResolveFlow backend")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Ініціалізація залежностей
	s, closeStore, err := setupStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up storage")
	}
	defer closeStore()

	localizer, err := localization.NewLocalizer()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load locales")
	}

	// 2. Сповіщення: email та Telegram вмикаються лише за наявності налаштувань
	var mailer notify.Mailer
	if cfg.SMTP.Enabled() {
		mailer = notify.NewSMTPMailer(cfg.SMTP)
	}
	var alerter *telegram.Alerter
	var dispatcherAlerter notify.Alerter
	if cfg.Telegram.Enabled() {
		alerter, err = telegram.NewAlerter(cfg.Telegram.BotToken, cfg.Telegram.AdminChatID, cfg.DefaultLang, localizer, logger)
		if err != nil {
			logger.Error().Err(err).Msg("telegram alerts disabled")
		} else {
			dispatcherAlerter = alerter
		}
	}
	dispatcher := notify.NewDispatcher(mailer, dispatcherAlerter, localizer, cfg.DefaultLang, logger)

	// 3. Chat Hub та сервіси
	locks := keylock.New()
	hub := chathub.NewManagerService(logger)
	router := chathub.NewRouter(hub, logger)
	complaints := complaint.NewService(s, locks,
		complaint.WithPublisher(router),
		complaint.WithNotifier(dispatcher),
		complaint.WithLogger(logger),
		complaint.WithStoreTimeout(cfg.StoreTimeout),
	)
	chat := chathub.NewChatService(s, hub, router, locks, logger)
	chat.SetStoreTimeout(cfg.StoreTimeout)
	userSvc := users.NewService(s, logger)
	userSvc.SetSessionRevoker(hub)
	authn := auth.NewAuthenticator(auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL), s)

	// 4. Налаштування Gin та роутингу
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	h := handler.NewHandler(hub, chat, complaints, userSvc, authn, cfg, logger)
	h.BaseContext = ctx

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(h, logger),
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info().Msg("shutting down")
		return server.Shutdown(shutdownCtx)
	})
	if alerter != nil {
		g.Go(func() error {
			alerter.Run(gctx, s)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
	}
	dispatcher.Wait()
	logger.Info().Msg("bye")
}
