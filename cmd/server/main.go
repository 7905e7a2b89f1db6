package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mealmate/server/internal/api"
	"github.com/mealmate/server/internal/api/middleware"
	"github.com/mealmate/server/internal/config"
	"github.com/mealmate/server/internal/kakao"
	"github.com/mealmate/server/internal/logger"
	"github.com/mealmate/server/internal/repository"
	"github.com/mealmate/server/internal/repository/gormdb"
	"github.com/mealmate/server/internal/repository/memory"
	"github.com/mealmate/server/internal/service"
)

func main() {
	logger.SetupDefault(os.Stdout, os.Getenv("LOG_LEVEL"))

	cfg, err := config.Load()
	if err != nil {
		var cfgErr *config.ConfigurationError
		if errors.As(err, &cfgErr) {
			slog.Error("refusing to start", "missing", cfgErr.Missing, "invalid", cfgErr.Invalid)
		} else {
			slog.Error("failed to load config", "error", err)
		}
		os.Exit(1)
	}
	logger.SetupDefault(os.Stdout, cfg.LogLevel)

	repos, closeDB, err := openRepositories(cfg)
	if err != nil {
		slog.Error("failed to connect to database", "driver", cfg.DBDriver, "error", err)
		os.Exit(1)
	}
	defer closeDB()

	if !cfg.KakaoConfigured() {
		slog.Warn("KAKAO_REST_API_KEY or KAKAO_REDIRECT_URI is not set; kakao logins will fail")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kakaoCfg := kakao.Config{
		ClientID:     cfg.KakaoClientID,
		ClientSecret: cfg.KakaoClientSecret,
		RedirectURI:  cfg.KakaoRedirectURI,
		AuthHost:     cfg.KakaoAuthHost,
		APIHost:      cfg.KakaoAPIHost,
		Timeout:      cfg.ProviderTimeout,
	}
	if cfg.KakaoOIDCEnabled {
		kakaoCfg.IDTokenVerifier = kakao.NewIDTokenVerifier(ctx, cfg.KakaoAuthHost, cfg.KakaoClientID)
	}
	kakaoClient := kakao.NewClient(kakaoCfg)

	services, err := service.NewServices(repos, kakaoClient, cfg)
	if err != nil {
		slog.Error("failed to initialize services", "error", err)
		os.Exit(1)
	}

	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{PerMinute: cfg.RateLimitPerMinute})
	defer limiter.Stop()

	router := api.NewRouter(services, repos, limiter, cfg)

	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Port, "environment", cfg.Environment, "db_driver", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		slog.Error("failed to start server", "error", err)
		return
	case <-ctx.Done():
	}

	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		return
	}

	slog.Info("server stopped")
}

func openRepositories(cfg *config.Config) (*repository.Repositories, func(), error) {
	if cfg.DBDriver == config.DriverMemory {
		slog.Warn("using in-memory user store; data is lost on restart")
		return memory.NewRepositories(memory.New()), func() {}, nil
	}

	db, err := gormdb.NewConnection(cfg)
	if err != nil {
		return nil, nil, err
	}

	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	return gormdb.NewRepositories(db), closeDB, nil
}
