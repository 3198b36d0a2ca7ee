package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REQUEST_TTL", "")
	t.Setenv("DEFAULT_RADIUS_KM", "")

	cfg := Load()

	assert.Equal(t, 24*time.Hour, cfg.RequestTTL)
	assert.Equal(t, 5.0, cfg.DefaultRadiusKm)
	assert.Equal(t, "postgres", cfg.Store)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE", "memory")
	t.Setenv("DEFAULT_RADIUS_KM", "2.5")
	t.Setenv("PUSH_TIMEOUT", "3s")
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("RATE_LIMIT_REQUESTS", "not-a-number")

	cfg := Load()

	assert.Equal(t, "memory", cfg.Store)
	assert.Equal(t, 2.5, cfg.DefaultRadiusKm)
	assert.Equal(t, 3*time.Second, cfg.PushTimeout)
	assert.True(t, cfg.TracingEnabled)
	assert.Equal(t, 120, cfg.RateLimitRequests)
}
