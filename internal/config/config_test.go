package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Setenv("RESERVATION_BACKEND", "")
	t.Setenv("REDIS_URL", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, ReservationBackendPostgres, cfg.Reservation.Backend)
	assert.Equal(t, 6, cfg.Password.MinLength)
	assert.EqualValues(t, 900, cfg.JWT.AccessExpiry)
	assert.Equal(t, 5, cfg.Lockout.MaxAttempts)
	assert.Equal(t, 24*time.Hour, cfg.Sweep.Grace)
	assert.Equal(t, "@every 1h", cfg.Sweep.Interval)
	assert.Equal(t, 5*time.Minute, cfg.ProfileCache.TTL)
}

func TestLoadFromEnv(t *testing.T) {
	viper.Reset()
	t.Setenv("RESERVATION_BACKEND", "Redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("PASSWORD_MIN_LENGTH", "10")
	t.Setenv("SWEEP_GRACE", "2h")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.test, https://b.test,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ReservationBackendRedis, cfg.Reservation.Backend)
	assert.Equal(t, 10, cfg.Password.MinLength)
	assert.Equal(t, 2*time.Hour, cfg.Sweep.Grace)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.CORS.AllowedOrigins)
}

func TestLoadRejectsBadBackend(t *testing.T) {
	viper.Reset()
	t.Setenv("REDIS_URL", "")

	t.Setenv("RESERVATION_BACKEND", "redis")
	_, err := Load()
	assert.ErrorContains(t, err, "REDIS_URL")

	t.Setenv("RESERVATION_BACKEND", "etcd")
	_, err = Load()
	assert.ErrorContains(t, err, "etcd")
}
