package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/F0laf0lu/Chat-API/internal/broadcast"
	"github.com/F0laf0lu/Chat-API/internal/config"
	"github.com/F0laf0lu/Chat-API/internal/database"
	"github.com/F0laf0lu/Chat-API/internal/logging"
	"github.com/F0laf0lu/Chat-API/internal/redis"
	"github.com/F0laf0lu/Chat-API/internal/server"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.RunMigrations(ctx, db); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return db
}

func setupRedis(ctx context.Context, cfg *config.Config) *goredis.Client {
	client, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func runGracefulShutdown(srv *server.Server, registry *broadcast.Registry) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		// Stop the registry after the HTTP listener so no new connections
		// arrive while it closes the remaining ones.
		registry.Stop()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	pool := setupDB(cfg)
	defer pool.Close()

	// Redis is optional; without it message posting is not rate limited.
	var redisClient *goredis.Client
	var rateLimiter server.MessageRateLimiter
	if cfg.RedisURL != "" {
		redisClient = setupRedis(context.Background(), cfg)
		defer func() { _ = redisClient.Close() }()
		rateLimiter = redis.NewMessageRateLimiter(redisClient, clock, cfg.MessageRateCapacity, cfg.MessageRatePerMinute)
	} else {
		slog.Warn("REDIS_URL not set, message rate limiting disabled")
	}

	userRepo := database.NewUserRepo(pool)
	roomRepo := database.NewRoomRepo(pool)
	messageRepo := database.NewMessageRepo(pool)

	registry := broadcast.NewRegistry(clock, cfg.MaxClientsPerRoom)
	dispatcher := broadcast.NewDispatcher(registry)

	srv := server.NewServer(cfg, server.Dependencies{
		Users:       userRepo,
		Rooms:       roomRepo,
		Messages:    messageRepo,
		Registry:    registry,
		Dispatcher:  dispatcher,
		RateLimiter: rateLimiter,
		DB:          pool,
		Redis:       redisClient,
		Clock:       clock,
	})

	done := runGracefulShutdown(srv, registry)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
