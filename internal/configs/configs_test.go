package configs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{"ENVIRONMENT", "PORT", "ALLOWED_ORIGINS", "JWT_SECRET", "ALLOW_ANONYMOUS", "DATABASE_URL"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDevelopmentDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 5004, cfg.Port)
	assert.Empty(t, cfg.AllowedOrigins)
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.True(t, cfg.AllowAnonymous, "anonymous access defaults on in development")
	assert.Empty(t, cfg.DatabaseDSN)
}

func TestLoadConfigInvalidPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "not-a-number")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigPrivilegedPortRejected(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "80")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigAllowedOriginsParsing(t *testing.T) {
	clearEnv(t)
	t.Setenv("ALLOWED_ORIGINS", " https://app.taskforge.io , https://staging.taskforge.io ,")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://app.taskforge.io", "https://staging.taskforge.io"}, cfg.AllowedOrigins)
}

func TestLoadConfigProductionRequiresSecrets(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "production")

	_, err := LoadConfig()
	require.Error(t, err, "JWT_SECRET is mandatory outside development")

	t.Setenv("JWT_SECRET", "prod_secret")
	_, err = LoadConfig()
	require.Error(t, err, "DATABASE_URL is mandatory outside development")

	t.Setenv("DATABASE_URL", "postgres://relay@db:5432/taskforge")
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.False(t, cfg.AllowAnonymous, "anonymous access defaults off outside development")
}

func TestLoadConfigAnonymousOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("ALLOW_ANONYMOUS", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.False(t, cfg.AllowAnonymous)

	t.Setenv("ALLOW_ANONYMOUS", "maybe")
	_, err = LoadConfig()
	assert.Error(t, err)
}
