package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "APP_ENV", "USER_AGE", "STORAGE_BACKEND", "DATABASE_DRIVER", "DATABASE_URL",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "CACHE_TTL", "EVENT_CONSUMER_GROUP",
		"EVENT_STREAM_MAXLEN",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8082", cfg.Port)
	assert.Equal(t, 18, cfg.MinimumAge)
	assert.Equal(t, StoragePostgres, cfg.Storage.Backend)
	assert.Equal(t, DriverPQ, cfg.Storage.Driver)
	assert.Equal(t, 10*time.Minute, cfg.Redis.CacheTTL)
	assert.Equal(t, int64(10000), cfg.Redis.StreamMaxLen)
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("USER_AGE", " 21 ")
	t.Setenv("STORAGE_BACKEND", "Memory")
	t.Setenv("DATABASE_DRIVER", "pgx")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("EVENT_STREAM_MAXLEN", "500")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 21, cfg.MinimumAge)
	assert.Equal(t, StorageMemory, cfg.Storage.Backend)
	assert.Equal(t, DriverPGX, cfg.Storage.Driver)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 30*time.Second, cfg.Redis.CacheTTL)
	assert.Equal(t, int64(500), cfg.Redis.StreamMaxLen)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non numeric age", "USER_AGE", "eighteen"},
		{"negative age", "USER_AGE", "-1"},
		{"fractional age", "USER_AGE", "18.5"},
		{"unknown backend", "STORAGE_BACKEND", "mongo"},
		{"unknown driver", "DATABASE_DRIVER", "mysql"},
		{"bad redis db", "REDIS_DB", "one"},
		{"bad ttl", "CACHE_TTL", "ten minutes"},
		{"bad stream max len", "EVENT_STREAM_MAXLEN", "lots"},
		{"negative stream max len", "EVENT_STREAM_MAXLEN", "-5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestParseMinimumAge(t *testing.T) {
	age, err := ParseMinimumAge("0")
	require.NoError(t, err)
	assert.Equal(t, 0, age)

	_, err = ParseMinimumAge("")
	assert.ErrorContains(t, err, "invalid USER_AGE")
}
