package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults_Validate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "bogus"
	cfg.Matcher.NameWeight = 0.9 // weights now sum to 1.5
	cfg.Server.Port = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown mode "bogus"`)
	assert.Contains(t, err.Error(), "weights must sum to 1.0")
	assert.Contains(t, err.Error(), "port must be 1-65535")
}

func TestValidate_CrossSourceNeedsTwoVenues(t *testing.T) {
	cfg := Defaults()
	cfg.Polymarket.Enabled = false
	cfg.PredictIt.Enabled = false
	cfg.Mode = "match"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least two enabled venues")

	// Scan-only mode works against already-stored pairs.
	cfg.Mode = "scan"
	require.NoError(t, cfg.Validate())
}

func TestValidate_DSNSkipsHostChecks(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.DSN = "postgres://u:p@db:5432/crossarb"
	cfg.Postgres.Host = ""
	cfg.Postgres.Port = 0
	require.NoError(t, cfg.Validate())
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
mode = "scan"

[kalshi]
rate_limit_rps = 2.5
timeout = "30s"

[scan]
interval = "1m"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	t.Setenv("CROSSARB_MODE", "serve")
	t.Setenv("CROSSARB_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("CROSSARB_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(path)
	require.NoError(t, err)

	// Env beats file beats defaults.
	assert.Equal(t, "serve", cfg.Mode)
	assert.Equal(t, 2.5, cfg.Kalshi.RateLimitRPS)
	assert.Equal(t, 30*time.Second, cfg.Kalshi.Timeout.Duration)
	assert.Equal(t, time.Minute, cfg.Scan.Interval.Duration)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)

	// Untouched defaults survive.
	assert.Equal(t, "https://gamma-api.polymarket.com", cfg.Polymarket.GammaHost)
	assert.Equal(t, 500, cfg.Sync.Limit)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Kalshi.ApiKeyID = "key-id"
	cfg.Kalshi.KeyPassword = "hunter2"
	cfg.Postgres.Password = "dbpass"
	cfg.S3.SecretKey = "s3secret"
	cfg.Notify.TelegramToken = "123:abc"

	red := RedactedConfig(&cfg)

	assert.Equal(t, "***", red.Kalshi.ApiKeyID)
	assert.Equal(t, "***", red.Kalshi.KeyPassword)
	assert.Equal(t, "***", red.Postgres.Password)
	assert.Equal(t, "***", red.S3.SecretKey)
	assert.Equal(t, "***", red.Notify.TelegramToken)

	// Empty secrets stay empty rather than advertising a masked value.
	assert.Empty(t, red.Server.ApiKey)

	// The copy must not alias the original's slices.
	red.Server.CORSOrigins[0] = "mutated"
	assert.Equal(t, "http://localhost:3000", cfg.Server.CORSOrigins[0])
}
