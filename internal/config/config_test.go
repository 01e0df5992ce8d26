package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestParseRequiresDatabaseAndSecret(t *testing.T) {
	_, err := Parse(envFrom(map[string]string{"JWT_SECRET": "x"}))
	require.EqualError(t, err, "DATABASE_URL is not set")

	_, err = Parse(envFrom(map[string]string{"DATABASE_URL": "postgres://"}))
	require.EqualError(t, err, "JWT_SECRET is not set")
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(envFrom(map[string]string{
		"DATABASE_URL": "postgres://localhost/photoquest",
		"JWT_SECRET":   "secret",
	}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, int64(5<<20), cfg.MaxUploadBytes)
	assert.Equal(t, "./uploads", cfg.UploadDir)
	assert.Equal(t, 300, cfg.APIRateLimit)
	assert.Equal(t, time.Minute, cfg.APIRateWindow)
	assert.Equal(t, 10, cfg.AuthRateLimit)
	assert.False(t, cfg.MigrateOnStart)
	assert.Empty(t, cfg.AdminChatIDs)
}

func TestParseOverrides(t *testing.T) {
	cfg, err := Parse(envFrom(map[string]string{
		"DATABASE_URL":     "postgres://localhost/photoquest",
		"JWT_SECRET":       "secret",
		"APP_PORT":         "9000",
		"JWT_TTL_HOURS":    "2",
		"MAX_UPLOAD_MB":    "1",
		"ADMIN_CHAT_IDS":   "12, 34,bad",
		"ALLOWED_ORIGINS":  "http://a.test, http://b.test",
		"API_RATE_LIMIT":   "-5",
		"REDIS_DB":         "0",
		"MIGRATE_ON_START": "true",
	}))
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.AppPort)
	assert.Equal(t, 2*time.Hour, cfg.JWTTTL)
	assert.Equal(t, int64(1<<20), cfg.MaxUploadBytes)
	assert.Equal(t, []int64{12, 34}, cfg.AdminChatIDs)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	assert.Equal(t, 300, cfg.APIRateLimit)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.True(t, cfg.MigrateOnStart)
}
