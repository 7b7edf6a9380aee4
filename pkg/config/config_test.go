package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORAGE", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.True(t, cfg.App.Development())
	assert.Equal(t, StorageMemory, cfg.App.Storage)
	assert.Equal(t, int32(25), cfg.DB.MaxConns)
	assert.Equal(t, 10*time.Second, cfg.Lock.TTL)
	assert.Equal(t, 50, cfg.Lock.RetryCount)
	assert.Equal(t, "strict", cfg.Numbering.Strategy)
	assert.Equal(t, int64(50), cfg.Numbering.RangeSize)
	assert.Equal(t, time.Hour, cfg.UnitCache.TTL)
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("STORAGE", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://ledger@localhost:5432/ledger")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("LOCK_TTL", "3s")
	t.Setenv("NUMBERING_STRATEGY", "cached")
	t.Setenv("NUMBERING_RANGE_SIZE", "20")
	t.Setenv("DB_MAX_CONNS", "8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoragePostgres, cfg.App.Storage)
	assert.Equal(t, "postgres://ledger@localhost:5432/ledger", cfg.DB.URL)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 3*time.Second, cfg.Lock.TTL)
	assert.Equal(t, "cached", cfg.Numbering.Strategy)
	assert.Equal(t, int64(20), cfg.Numbering.RangeSize)
	assert.Equal(t, int32(8), cfg.DB.MaxConns)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "postgres without url",
			env:  map[string]string{"STORAGE": "postgres", "DATABASE_URL": ""},
			want: "DATABASE_URL",
		},
		{
			name: "unknown storage",
			env:  map[string]string{"STORAGE": "sqlite"},
			want: "unknown STORAGE",
		},
		{
			name: "unknown strategy",
			env:  map[string]string{"STORAGE": "memory", "NUMBERING_STRATEGY": "random"},
			want: "NUMBERING_STRATEGY",
		},
		{
			name: "min above max",
			env:  map[string]string{"STORAGE": "memory", "DB_MIN_CONNS": "30"},
			want: "DB_MIN_CONNS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_OverrideBeatsEnv(t *testing.T) {
	t.Setenv("STORAGE", "postgres")
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load(WithOverride("STORAGE", StorageMemory))
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.App.Storage)
}
