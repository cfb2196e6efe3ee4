package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" default:"development"`
	Port        string `env:"PORT" default:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`
	LogLevel    string `env:"LOG_LEVEL" default:"info"`
	LogFormat   string `env:"LOG_FORMAT" default:"text"`

	JWTSecret     string        `env:"JWT_SECRET"`
	JWTIssuer     string        `env:"JWT_ISSUER" default:"chat-api"`
	JWTExpiration time.Duration `env:"JWT_EXPIRATION" default:"24h"`

	MaxClientsPerRoom       int `env:"MAX_CLIENTS_PER_ROOM" default:"100"`
	MaxWebSocketConnections int `env:"MAX_WEBSOCKET_CONNECTIONS" default:"10000"`
	MaxConnectionsPerIP     int `env:"MAX_CONNECTIONS_PER_IP" default:"20"`

	HTTPRatePerSecond float64 `env:"HTTP_RATE_PER_SECOND" default:"20"`
	HTTPRateBurst     int     `env:"HTTP_RATE_BURST" default:"40"`

	// Message posting rate limit, enforced in Redis when REDIS_URL is set.
	MessageRateCapacity  int `env:"MESSAGE_RATE_CAPACITY" default:"10"`
	MessageRatePerMinute int `env:"MESSAGE_RATE_PER_MINUTE" default:"60"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	required := map[string]string{
		"DATABASE_URL": cfg.DatabaseURL,
		"JWT_SECRET":   cfg.JWTSecret,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	if len(cfg.JWTSecret) < 16 {
		return errors.New("JWT_SECRET must be at least 16 characters")
	}

	if cfg.MaxClientsPerRoom <= 0 {
		return errors.New("MAX_CLIENTS_PER_ROOM must be positive")
	}

	// REDIS_URL is optional: without it the message rate limiter is disabled.
	return nil
}
