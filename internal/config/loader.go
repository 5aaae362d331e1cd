package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies CROSSARB_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known CROSSARB_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Kalshi ──
	setBool(&cfg.Kalshi.Enabled, "CROSSARB_KALSHI_ENABLED")
	setStr(&cfg.Kalshi.BaseURL, "CROSSARB_KALSHI_BASE_URL")
	setStr(&cfg.Kalshi.ApiKeyID, "CROSSARB_KALSHI_API_KEY_ID")
	setStr(&cfg.Kalshi.RsaPrivateKeyPath, "CROSSARB_KALSHI_RSA_PRIVATE_KEY_PATH")
	setStr(&cfg.Kalshi.EncryptedKeyPath, "CROSSARB_KALSHI_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Kalshi.KeyPassword, "CROSSARB_KALSHI_KEY_PASSWORD")
	setFloat64(&cfg.Kalshi.RateLimitRPS, "CROSSARB_KALSHI_RATE_LIMIT_RPS")
	setDuration(&cfg.Kalshi.Timeout, "CROSSARB_KALSHI_TIMEOUT")

	// ── Polymarket ──
	setBool(&cfg.Polymarket.Enabled, "CROSSARB_POLYMARKET_ENABLED")
	setStr(&cfg.Polymarket.GammaHost, "CROSSARB_POLYMARKET_GAMMA_HOST")
	setFloat64(&cfg.Polymarket.RateLimitRPS, "CROSSARB_POLYMARKET_RATE_LIMIT_RPS")
	setDuration(&cfg.Polymarket.Timeout, "CROSSARB_POLYMARKET_TIMEOUT")

	// ── PredictIt ──
	setBool(&cfg.PredictIt.Enabled, "CROSSARB_PREDICTIT_ENABLED")
	setStr(&cfg.PredictIt.BaseURL, "CROSSARB_PREDICTIT_BASE_URL")
	setFloat64(&cfg.PredictIt.RateLimitRPS, "CROSSARB_PREDICTIT_RATE_LIMIT_RPS")
	setDuration(&cfg.PredictIt.Timeout, "CROSSARB_PREDICTIT_TIMEOUT")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "CROSSARB_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "CROSSARB_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "CROSSARB_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "CROSSARB_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "CROSSARB_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "CROSSARB_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "CROSSARB_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "CROSSARB_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "CROSSARB_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "CROSSARB_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "CROSSARB_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "CROSSARB_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "CROSSARB_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "CROSSARB_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "CROSSARB_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "CROSSARB_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "CROSSARB_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "CROSSARB_S3_REGION")
	setStr(&cfg.S3.Bucket, "CROSSARB_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "CROSSARB_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "CROSSARB_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "CROSSARB_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "CROSSARB_S3_FORCE_PATH_STYLE")

	// ── Matcher ──
	setFloat64(&cfg.Matcher.NameWeight, "CROSSARB_MATCHER_NAME_WEIGHT")
	setFloat64(&cfg.Matcher.CategoryWeight, "CROSSARB_MATCHER_CATEGORY_WEIGHT")
	setFloat64(&cfg.Matcher.StructureWeight, "CROSSARB_MATCHER_STRUCTURE_WEIGHT")
	setFloat64(&cfg.Matcher.TemporalWeight, "CROSSARB_MATCHER_TEMPORAL_WEIGHT")
	setFloat64(&cfg.Matcher.MinScore, "CROSSARB_MATCHER_MIN_SCORE")
	setInt(&cfg.Matcher.TemporalWindowDays, "CROSSARB_MATCHER_TEMPORAL_WINDOW_DAYS")
	setBool(&cfg.Matcher.CrossSourceOnly, "CROSSARB_MATCHER_CROSS_SOURCE_ONLY")

	// ── Detector ──
	setFloat64(&cfg.Detector.MinSimilarity, "CROSSARB_DETECTOR_MIN_SIMILARITY")
	setFloat64(&cfg.Detector.MinProfit, "CROSSARB_DETECTOR_MIN_PROFIT")

	// ── Classifier ──
	setStr(&cfg.Classifier.ModelPath, "CROSSARB_CLASSIFIER_MODEL_PATH")
	setBool(&cfg.Classifier.UseInMatch, "CROSSARB_CLASSIFIER_USE_IN_MATCH")
	setInt(&cfg.Classifier.NegativeRatio, "CROSSARB_CLASSIFIER_NEGATIVE_RATIO")
	setInt64(&cfg.Classifier.Seed, "CROSSARB_CLASSIFIER_SEED")

	// ── Sync / scan ──
	setInt(&cfg.Sync.Limit, "CROSSARB_SYNC_LIMIT")
	setDuration(&cfg.Sync.Interval, "CROSSARB_SYNC_INTERVAL")
	setDuration(&cfg.Scan.Interval, "CROSSARB_SCAN_INTERVAL")
	setDuration(&cfg.Scan.LockTTL, "CROSSARB_SCAN_LOCK_TTL")
	setFloat64(&cfg.Scan.NotifyMinROI, "CROSSARB_SCAN_NOTIFY_MIN_ROI")
	setBool(&cfg.Scan.ArchiveReports, "CROSSARB_SCAN_ARCHIVE_REPORTS")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "CROSSARB_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "CROSSARB_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "CROSSARB_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.ApiKey, "CROSSARB_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimitPerMin, "CROSSARB_SERVER_RATE_LIMIT_PER_MIN")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "CROSSARB_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "CROSSARB_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "CROSSARB_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "CROSSARB_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "CROSSARB_MODE")
	setStr(&cfg.LogLevel, "CROSSARB_LOG_LEVEL")
	setStr(&cfg.LogFormat, "CROSSARB_LOG_FORMAT")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
