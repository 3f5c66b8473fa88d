package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnvs(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "test")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("DB_USER", "theatre")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_NAME", "theatre")
}

func TestLoadSuccess(t *testing.T) {
	setRequiredEnvs(t)
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "15")
	t.Setenv("ENFORCE_HALL_CAPACITY", "false")
	t.Setenv("PUBLIC_BASE_URL", "https://api.example.com/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Equal(t, 15, cfg.AccessTTLMin)
	assert.Equal(t, 7, cfg.RefreshTTLDays)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.False(t, cfg.EnforceHallCapacity)
	assert.Equal(t, "https://api.example.com", cfg.PublicBaseURL)
}

func TestLoadSQLite(t *testing.T) {
	setRequiredEnvs(t)
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_USER", "")
	t.Setenv("DB_PATH", "file:theatre.db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite3", cfg.DBDriver)
	assert.Equal(t, "file:theatre.db", cfg.DBPath)
	assert.True(t, cfg.EnforceHallCapacity)
}

func TestLoadValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T)
		wantErr string
	}{
		{
			name: "missing jwt secret",
			setup: func(t *testing.T) {
				setRequiredEnvs(t)
				t.Setenv("JWT_SECRET", "")
			},
			wantErr: "JWT_SECRET",
		},
		{
			name: "missing mysql host and name reported together",
			setup: func(t *testing.T) {
				setRequiredEnvs(t)
				t.Setenv("DB_HOST", "")
				t.Setenv("DB_NAME", "")
			},
			wantErr: "DB_HOST, DB_NAME",
		},
		{
			name: "sqlite without path",
			setup: func(t *testing.T) {
				setRequiredEnvs(t)
				t.Setenv("DB_DRIVER", "sqlite3")
				t.Setenv("DB_PATH", "")
			},
			wantErr: "DB_PATH",
		},
		{
			name: "unknown driver",
			setup: func(t *testing.T) {
				setRequiredEnvs(t)
				t.Setenv("DB_DRIVER", "oracle")
			},
			wantErr: "DB_DRIVER",
		},
		{
			name: "malformed ttl",
			setup: func(t *testing.T) {
				setRequiredEnvs(t)
				t.Setenv("ACCESS_TOKEN_TTL_MIN", "soon")
			},
			wantErr: "ACCESS_TOKEN_TTL_MIN",
		},
		{
			name: "bcrypt cost out of range",
			setup: func(t *testing.T) {
				setRequiredEnvs(t)
				t.Setenv("BCRYPT_COST", "2")
			},
			wantErr: "BCRYPT_COST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup(t)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 2*time.Second, cfg.RefillInterval)
	assert.Equal(t, 10*time.Second, cfg.TTL)
}

func TestLoadCacheConfigMethods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	cfg := LoadCacheConfig()
	assert.True(t, cfg.Methods["GET"])
	assert.True(t, cfg.Methods["HEAD"])
	assert.False(t, cfg.Methods["POST"])
	assert.Equal(t, 30*time.Second, cfg.TTL)
}

func TestLoadCacheConfigKeepsOnlyReads(t *testing.T) {
	t.Setenv("CACHE_METHODS", "POST,delete")
	t.Setenv("CACHE_KEY_STRATEGY", "by_cookie")
	t.Setenv("CACHE_TTL", "-5s")
	t.Setenv("CACHE_MAX_BODY_BYTES", "0")
	t.Setenv("CACHE_PREFIX", "shows:")

	cfg := LoadCacheConfig()
	assert.Equal(t, map[string]bool{"GET": true}, cfg.Methods)
	assert.Equal(t, CacheKeyRouteQuery, cfg.KeyStrategy)
	assert.Equal(t, 30*time.Second, cfg.TTL)
	assert.Equal(t, 1<<20, cfg.MaxBodyBytes)
	assert.Equal(t, "shows", cfg.Prefix)

	t.Setenv("CACHE_KEY_STRATEGY", "Method_Route")
	assert.Equal(t, CacheKeyMethodRoute, LoadCacheConfig().KeyStrategy)
}
