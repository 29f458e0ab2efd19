package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"handoff_service/internal/config"
	"handoff_service/internal/handoff"
	"handoff_service/internal/http_server/handlers/download"
	"handoff_service/internal/http_server/handlers/health"
	"handoff_service/internal/http_server/handlers/verify"
	"handoff_service/internal/intake"
	sl "handoff_service/internal/lib/logger"
	rateLimit "handoff_service/internal/middleware/ratelimit"
	"handoff_service/internal/rabbitmq"
	"handoff_service/internal/reaper"
	"handoff_service/internal/storage/memory"
	"handoff_service/internal/storage/postgres"
	redisstore "handoff_service/internal/storage/redis"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad("./config/config.yaml")

	log := setupLogger(cfg.Env)

	log.Info("starting handoff service", slog.String("env", cfg.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("Shutdown signal received")
		cancel()
	}()

	storage, err := postgres.New(ctx, cfg)
	if err != nil {
		log.Error("failed to connect postgres", sl.Err(err))
		os.Exit(1)
	}
	defer storage.Close()

	tokens, err := setupTokenStore(ctx, cfg)
	if err != nil {
		log.Error("failed to set up token store", sl.Err(err))
		os.Exit(1)
	}
	defer tokens.Close()

	msgBroker, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.IntakeQueue, cfg.RabbitMQ.NotifyQueue)
	if err != nil {
		log.Error("failed to connect rabbitmq", sl.Err(err))
		os.Exit(1)
	}
	defer msgBroker.Close()

	handoffService := handoff.New(
		log,
		storage,
		storage,
		tokens,
		cfg.Handoff.CodeLength,
		cfg.Handoff.CodeTTL,
		cfg.Handoff.TokenTTL,
		cfg.Handoff.RevokeOnVerify,
	)

	intakeConsumer := intake.New(log, handoffService, msgBroker, cfg.RabbitMQ.NotifyQueue, cfg.HTTPServer.BaseURL)

	go func() {
		err := msgBroker.StartReading(ctx, cfg.RabbitMQ.IntakeQueue, func(msg []byte) {
			intakeConsumer.HandleMessage(ctx, msg)
		})
		if err != nil {
			log.Error("intake consumer stopped", sl.Err(err))
			cancel()
		}
	}()

	sweep := reaper.New(log, storage, cfg.Handoff.SweepInterval)
	if err := sweep.Start(ctx); err != nil {
		log.Error("failed to start reaper", sl.Err(err))
		os.Exit(1)
	}

	router := setupRouter(log, handoffService, cfg.HTTPServer.BaseURL)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server is running", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed", sl.Err(err))
			cancel()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", sl.Err(err))
	} else {
		log.Info("Server stopped gracefully")
	}

	log.Info("Handoff service stopped")
}

func setupRouter(
	log *slog.Logger,
	handoffService *handoff.Handoff,
	baseURL string,
) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	validate := validator.New()

	r.Get("/healthz", health.New())

	r.Group(func(r chi.Router) {
		r.Use(rateLimit.Verify())
		r.Get("/verify", verify.Page())
		r.Post("/verify", verify.New(log, validate, handoffService, baseURL))
	})

	r.Group(func(r chi.Router) {
		r.Use(rateLimit.Download())
		r.Get("/download/{token}", download.New(log, handoffService))
	})

	return r
}

// tokenStore is what main needs from either backend; handoff.TokenStore
// plus Close for shutdown.
type tokenStore interface {
	handoff.TokenStore
	Close()
}

func setupTokenStore(ctx context.Context, cfg *config.Config) (tokenStore, error) {
	if cfg.Handoff.TokenStore == "redis" {
		store, err := redisstore.New(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}

		return store, nil
	}

	return memory.NewTokenStore(), nil
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
