package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		Secret:     "test-secret-0123456789",
		Issuer:     "chat-api",
		Expiration: time.Hour,
	}
}

func TestToken_RoundTrip(t *testing.T) {
	cfg := testConfig()
	userID := uuid.New()

	token, err := NewToken(cfg, userID, "alice", false)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ParseToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.False(t, claims.Admin)
	assert.Equal(t, "chat-api", claims.Issuer)
}

func TestToken_AdminClaim(t *testing.T) {
	cfg := testConfig()
	token, err := NewToken(cfg, uuid.New(), "root", true)
	require.NoError(t, err)

	claims, err := ParseToken(cfg, token)
	require.NoError(t, err)
	assert.True(t, claims.Admin)
}

func TestParseToken_WrongSecret(t *testing.T) {
	cfg := testConfig()
	token, err := NewToken(cfg, uuid.New(), "alice", false)
	require.NoError(t, err)

	other := cfg
	other.Secret = "another-secret-9876543210"
	_, err = ParseToken(other, token)
	assert.Error(t, err)
}

func TestParseToken_Expired(t *testing.T) {
	cfg := testConfig()
	cfg.Expiration = -time.Minute

	token, err := NewToken(cfg, uuid.New(), "alice", false)
	require.NoError(t, err)

	_, err = ParseToken(cfg, token)
	assert.Error(t, err)
}

func TestParseToken_Garbage(t *testing.T) {
	_, err := ParseToken(testConfig(), "not-a-token")
	assert.Error(t, err)
}

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret-pw")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pw", hash)

	assert.NoError(t, ComparePassword(hash, "s3cret-pw"))
	assert.Error(t, ComparePassword(hash, "wrong-pw"))
}

func TestHashPassword_Empty(t *testing.T) {
	_, err := HashPassword("")
	assert.Error(t, err)
}
