package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		AppEnv:                  "test",
		Port:                    "8080",
		DatabaseURL:             "postgres://localhost/chatapi",
		JWTSecret:               "0123456789abcdef",
		JWTIssuer:               "chat-api",
		JWTExpiration:           24 * time.Hour,
		MaxClientsPerRoom:       100,
		MaxWebSocketConnections: 10000,
		MaxConnectionsPerIP:     20,
	}
}

func TestValidate_Valid(t *testing.T) {
	assert.NoError(t, validate(validConfig()))
}

func TestValidate_MissingDatabaseURL(t *testing.T) {
	cfg := validConfig()
	cfg.DatabaseURL = ""
	err := validate(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestValidate_MissingJWTSecret(t *testing.T) {
	cfg := validConfig()
	cfg.JWTSecret = ""
	err := validate(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestValidate_ShortJWTSecret(t *testing.T) {
	cfg := validConfig()
	cfg.JWTSecret = "short"
	err := validate(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "at least 16 characters")
}

func TestValidate_RedisOptional(t *testing.T) {
	cfg := validConfig()
	cfg.RedisURL = ""
	assert.NoError(t, validate(cfg))
}

func TestValidate_NonPositiveRoomLimit(t *testing.T) {
	cfg := validConfig()
	cfg.MaxClientsPerRoom = 0
	assert.Error(t, validate(cfg))
}
