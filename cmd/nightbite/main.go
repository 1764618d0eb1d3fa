// Package main запускает HTTP-сервер сервиса nightbite.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/nightbite/internal/board"
	"github.com/mmeshcher/nightbite/internal/cart"
	"github.com/mmeshcher/nightbite/internal/catalog"
	"github.com/mmeshcher/nightbite/internal/config"
	"github.com/mmeshcher/nightbite/internal/handler"
	"github.com/mmeshcher/nightbite/internal/metrics"
	"github.com/mmeshcher/nightbite/internal/middleware"
	"github.com/mmeshcher/nightbite/internal/ordering"
	"github.com/mmeshcher/nightbite/internal/profile"
	"github.com/mmeshcher/nightbite/internal/repository"
)

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}

	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}

func main() {
	cfg, err := config.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger initialization error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	sugar := logger.Sugar()

	if cfg.AuthSecret == "" {
		sugar.Warn("AUTH_SECRET is not set, tokens will not survive a restart")
	}

	metrics.Init()

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	carts := cart.NewStore()
	hub := board.NewHub(repo, logger)
	sessions := board.NewSessions(repo, hub, logger, cfg.BoardIdleTTL)

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret)
	h := handler.NewHandler(handler.Services{
		Catalog:  catalog.NewService(repo),
		Carts:    carts,
		Orders:   ordering.NewService(repo, carts, logger),
		Profiles: profile.NewResolver(repo, validator.New(validator.WithRequiredStructEnabled()), logger),
		Boards:   sessions,
		Feed:     hub,
	}, logger, authMiddleware)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Приём новых заказов из хранилища для панелей администраторов
	g.Go(func() error {
		return hub.Run(ctx)
	})

	// Закрытие неактивных панелей
	g.Go(func() error {
		sessions.Run(ctx)
		return nil
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting nightbite server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
