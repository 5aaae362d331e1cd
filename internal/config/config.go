// Package config defines the top-level configuration for the cross-venue
// arbitrage scanner and provides validation helpers.
package config

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by CROSSARB_* environment variables.
type Config struct {
	Kalshi     KalshiConfig     `toml:"kalshi"`
	Polymarket PolymarketConfig `toml:"polymarket"`
	PredictIt  PredictItConfig  `toml:"predictit"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Matcher    MatcherConfig    `toml:"matcher"`
	Detector   DetectorConfig   `toml:"detector"`
	Classifier ClassifierConfig `toml:"classifier"`
	Sync       SyncConfig       `toml:"sync"`
	Scan       ScanConfig       `toml:"scan"`
	Server     ServerConfig     `toml:"server"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
	LogFormat  string           `toml:"log_format"`
}

// KalshiConfig holds Kalshi exchange API parameters. Market data endpoints
// work unauthenticated; the RSA credential is only needed for elevated rate
// limits.
type KalshiConfig struct {
	Enabled           bool     `toml:"enabled"`
	BaseURL           string   `toml:"base_url"`
	ApiKeyID          string   `toml:"api_key_id"`
	RsaPrivateKeyPath string   `toml:"rsa_private_key_path"`
	EncryptedKeyPath  string   `toml:"encrypted_key_path"`
	KeyPassword       string   `toml:"key_password"`
	RateLimitRPS      float64  `toml:"rate_limit_rps"`
	Timeout           duration `toml:"timeout"`
}

// PolymarketConfig holds Polymarket Gamma API parameters.
type PolymarketConfig struct {
	Enabled      bool     `toml:"enabled"`
	GammaHost    string   `toml:"gamma_host"`
	RateLimitRPS float64  `toml:"rate_limit_rps"`
	Timeout      duration `toml:"timeout"`
}

// PredictItConfig holds PredictIt market-data API parameters.
type PredictItConfig struct {
	Enabled      bool     `toml:"enabled"`
	BaseURL      string   `toml:"base_url"`
	RateLimitRPS float64  `toml:"rate_limit_rps"`
	Timeout      duration `toml:"timeout"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for report and
// model archiving.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// MatcherConfig holds the similarity weights and thresholds for pairing
// markets across venues. Weights must sum to 1.0.
type MatcherConfig struct {
	NameWeight         float64 `toml:"name_weight"`
	CategoryWeight     float64 `toml:"category_weight"`
	StructureWeight    float64 `toml:"structure_weight"`
	TemporalWeight     float64 `toml:"temporal_weight"`
	MinScore           float64 `toml:"min_score"`
	TemporalWindowDays int     `toml:"temporal_window_days"`
	CrossSourceOnly    bool    `toml:"cross_source_only"`
}

// DetectorConfig holds arbitrage detection thresholds.
type DetectorConfig struct {
	MinSimilarity float64 `toml:"min_similarity"`
	MinProfit     float64 `toml:"min_profit"`
}

// ClassifierConfig holds match classifier paths and training parameters.
type ClassifierConfig struct {
	ModelPath string `toml:"model_path"`
	// UseInMatch annotates new matches with a probability when a trained
	// model is available.
	UseInMatch bool `toml:"use_in_match"`
	// NegativeRatio is the number of sampled negative pairs per confirmed
	// positive when building a training set.
	NegativeRatio int   `toml:"negative_ratio"`
	Seed          int64 `toml:"seed"`
}

// SyncConfig holds market ingestion parameters.
type SyncConfig struct {
	// Limit caps how many markets are fetched per venue in one sync.
	Limit    int      `toml:"limit"`
	Interval duration `toml:"interval"`
}

// ScanConfig holds the scheduled opportunity scan parameters.
type ScanConfig struct {
	Interval duration `toml:"interval"`
	// LockTTL bounds how long a crashed scanner can hold the scan lock.
	LockTTL duration `toml:"lock_ttl"`
	// NotifyMinROI suppresses alerts for opportunities below this ROI
	// percentage.
	NotifyMinROI   float64 `toml:"notify_min_roi"`
	ArchiveReports bool    `toml:"archive_reports"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// ApiKey protects mutating endpoints; empty disables auth.
	ApiKey string `toml:"api_key"`
	// RateLimitPerMin caps requests per client IP per minute; 0 disables.
	RateLimitPerMin int `toml:"rate_limit_per_min"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Kalshi: KalshiConfig{
			Enabled:      true,
			BaseURL:      "https://api.elections.kalshi.com/trade-api/v2",
			RateLimitRPS: 5,
			Timeout:      duration{15 * time.Second},
		},
		Polymarket: PolymarketConfig{
			Enabled:      true,
			GammaHost:    "https://gamma-api.polymarket.com",
			RateLimitRPS: 5,
			Timeout:      duration{15 * time.Second},
		},
		PredictIt: PredictItConfig{
			Enabled:      true,
			BaseURL:      "https://www.predictit.org/api",
			RateLimitRPS: 1,
			Timeout:      duration{15 * time.Second},
		},
		Postgres: PostgresConfig{
			DSN:           "",
			Host:          "localhost",
			Port:          5432,
			Database:      "crossarb",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "crossarb-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Matcher: MatcherConfig{
			NameWeight:         0.4,
			CategoryWeight:     0.2,
			StructureWeight:    0.3,
			TemporalWeight:     0.1,
			MinScore:           0.5,
			TemporalWindowDays: 7,
			CrossSourceOnly:    true,
		},
		Detector: DetectorConfig{
			MinSimilarity: 0.70,
			MinProfit:     0.01,
		},
		Classifier: ClassifierConfig{
			ModelPath:     "models/classifier.json",
			UseInMatch:    true,
			NegativeRatio: 1,
			Seed:          42,
		},
		Sync: SyncConfig{
			Limit:    500,
			Interval: duration{15 * time.Minute},
		},
		Scan: ScanConfig{
			Interval:       duration{5 * time.Minute},
			LockTTL:        duration{4 * time.Minute},
			NotifyMinROI:   5.0,
			ArchiveReports: true,
		},
		Server: ServerConfig{
			Enabled:         true,
			Port:            8000,
			CORSOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimitPerMin: 120,
		},
		Notify: NotifyConfig{
			Events: []string{"opportunity_found", "scan_failed", "model_trained"},
		},
		Mode:      "full",
		LogLevel:  "info",
		LogFormat: "json",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"sync":  true,
	"match": true,
	"scan":  true,
	"train": true,
	"serve": true,
	"full":  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validLogFormats enumerates the accepted values for Config.LogFormat.
var validLogFormats = map[string]bool{
	"json": true,
	"text": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: sync, match, scan, train, serve, full)", c.Mode))
	}

	// Logging
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}
	if !validLogFormats[strings.ToLower(c.LogFormat)] {
		errs = append(errs, fmt.Sprintf("unknown log_format %q (valid: json, text)", c.LogFormat))
	}

	// Venues — market ingestion needs at least one enabled source, and
	// matching needs two to produce a cross-venue pair.
	enabled := 0
	if c.Kalshi.Enabled {
		enabled++
		if c.Kalshi.BaseURL == "" {
			errs = append(errs, "kalshi: base_url must not be empty when enabled")
		}
	}
	if c.Polymarket.Enabled {
		enabled++
		if c.Polymarket.GammaHost == "" {
			errs = append(errs, "polymarket: gamma_host must not be empty when enabled")
		}
	}
	if c.PredictIt.Enabled {
		enabled++
		if c.PredictIt.BaseURL == "" {
			errs = append(errs, "predictit: base_url must not be empty when enabled")
		}
	}
	if enabled == 0 {
		errs = append(errs, "venues: at least one of kalshi, polymarket, predictit must be enabled")
	}
	if enabled < 2 && c.Matcher.CrossSourceOnly && (c.Mode == "match" || c.Mode == "full") {
		errs = append(errs, "venues: cross-source matching needs at least two enabled venues")
	}
	if c.Kalshi.EncryptedKeyPath != "" && c.Kalshi.KeyPassword == "" {
		errs = append(errs, "kalshi: key_password is required when encrypted_key_path is set")
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3 — only required when scan reports are archived.
	if c.Scan.ArchiveReports {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when scan.archive_reports is enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when scan.archive_reports is enabled")
		}
	}

	// Matcher
	sum := c.Matcher.NameWeight + c.Matcher.CategoryWeight + c.Matcher.StructureWeight + c.Matcher.TemporalWeight
	if math.Abs(sum-1.0) > 0.01 {
		errs = append(errs, fmt.Sprintf("matcher: weights must sum to 1.0, got %.3f", sum))
	}
	for _, w := range []struct {
		name string
		v    float64
	}{
		{"name_weight", c.Matcher.NameWeight},
		{"category_weight", c.Matcher.CategoryWeight},
		{"structure_weight", c.Matcher.StructureWeight},
		{"temporal_weight", c.Matcher.TemporalWeight},
	} {
		if w.v < 0 || w.v > 1 {
			errs = append(errs, fmt.Sprintf("matcher: %s must be in [0,1], got %g", w.name, w.v))
		}
	}
	if c.Matcher.MinScore < 0 || c.Matcher.MinScore > 1 {
		errs = append(errs, fmt.Sprintf("matcher: min_score must be in [0,1], got %g", c.Matcher.MinScore))
	}
	if c.Matcher.TemporalWindowDays < 1 {
		errs = append(errs, "matcher: temporal_window_days must be >= 1")
	}

	// Detector
	if c.Detector.MinSimilarity < 0 || c.Detector.MinSimilarity > 1 {
		errs = append(errs, fmt.Sprintf("detector: min_similarity must be in [0,1], got %g", c.Detector.MinSimilarity))
	}

	// Classifier
	if c.Classifier.ModelPath == "" {
		errs = append(errs, "classifier: model_path must not be empty")
	}
	if c.Classifier.NegativeRatio < 1 {
		errs = append(errs, "classifier: negative_ratio must be >= 1")
	}

	// Sync / scan
	if c.Sync.Limit < 1 {
		errs = append(errs, "sync: limit must be >= 1")
	}
	if c.Sync.Interval.Duration <= 0 {
		errs = append(errs, "sync: interval must be positive")
	}
	if c.Scan.Interval.Duration <= 0 {
		errs = append(errs, "scan: interval must be positive")
	}
	if c.Scan.LockTTL.Duration <= 0 {
		errs = append(errs, "scan: lock_ttl must be positive")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimitPerMin < 0 {
			errs = append(errs, "server: rate_limit_per_min must be >= 0")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
