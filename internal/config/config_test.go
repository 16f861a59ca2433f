package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "")

	cfg, err := Load()

	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_DefaultsAndDurations(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "test-secret")
	t.Setenv("PROPOSAL_TTL_DAYS", "7")
	t.Setenv("JWT_ACCESS_TOKEN_EXPIRY_MINUTES", "15")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "local", cfg.StorageDriver)
	assert.Equal(t, 7*24*time.Hour, cfg.ProposalTTL)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessTokenExpiryMinutes)
	assert.Equal(t, "bontroc://auth-callback", cfg.OAuthRedirectURI)
	assert.True(t, cfg.FeatureChatEnabled)
}

func TestValidate_RejectsUnknownStorageDriver(t *testing.T) {
	cfg := &Config{JWTSecretKey: "x", StorageDriver: "ftp"}
	assert.Error(t, cfg.Validate())
}

func TestLoad_IntegerDurationsFromEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "test-secret")
	t.Setenv("SERVER_TIMEOUT_SECONDS", "15")
	t.Setenv("DB_CONN_MAX_LIFETIME_MINUTES", "5")
	t.Setenv("JWT_REFRESH_TOKEN_EXPIRY_DAYS", "2")
	t.Setenv("CONTRACT_RECOVERY_GRACE_MINUTES", "3")
	t.Setenv("CONTRACT_GENERATION_TIMEOUT_SECONDS", "10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.ServerTimeout)
	assert.Equal(t, 5*time.Minute, cfg.DBConnMaxLifetime)
	assert.Equal(t, 48*time.Hour, cfg.JWTRefreshTokenExpiryDays)
	assert.Equal(t, 3*time.Minute, cfg.ContractRecoveryGrace)
	assert.Equal(t, 10*time.Second, cfg.ContractGenerationTimeout)
	assert.Equal(t, 30*24*time.Hour, cfg.ProposalTTL)
}
