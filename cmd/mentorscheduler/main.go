package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/mentor-scheduler/internal/application"
	"github.com/example/mentor-scheduler/internal/config"
	httptransport "github.com/example/mentor-scheduler/internal/http"
	"github.com/example/mentor-scheduler/internal/persistence/sqlite"
	"github.com/example/mentor-scheduler/internal/persistence/sqlite/migration"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.NewConnectionPool(migration.DefaultSQLiteConfig(cfg.SQLiteDSN))
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := pool.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	now := time.Now

	ruleRepo := sqlite.NewRuleRepository(pool)
	blockedRepo := sqlite.NewBlockedTimeRepository(pool)
	sessionRepo := sqlite.NewSessionRepository(pool)

	schedulingService := application.NewSchedulingServiceWithLogger(
		ruleRepo, blockedRepo, sessionRepo,
		idGenerator, now,
		cfg.SlotGranularity, cfg.SlotCacheTTL,
		logger,
	)
	availabilityService := application.NewAvailabilityServiceWithLogger(
		ruleRepo, blockedRepo, schedulingService,
		idGenerator, now,
		logger,
	)

	slotHandler := httptransport.NewSlotHandler(schedulingService, logger)
	sessionHandler := httptransport.NewSessionHandler(schedulingService, logger)
	availabilityHandler := httptransport.NewAvailabilityHandler(availabilityService, logger)

	handler := httptransport.NewRouter(httptransport.RouterConfig{
		Slots:        slotHandler,
		Sessions:     sessionHandler,
		Availability: availabilityHandler,
		Middleware:   []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("mentor scheduler API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}
