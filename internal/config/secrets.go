package config

const redacted = "***"

// RedactedConfig returns a copy of cfg safe for logging: credentials and
// webhook URLs are masked and mutable slices are deep-copied so the caller
// cannot accidentally alias live config state.
func RedactedConfig(cfg *Config) Config {
	out := *cfg

	out.Kalshi.ApiKeyID = redact(cfg.Kalshi.ApiKeyID)
	out.Kalshi.KeyPassword = redact(cfg.Kalshi.KeyPassword)

	out.Postgres.DSN = redact(cfg.Postgres.DSN)
	out.Postgres.Password = redact(cfg.Postgres.Password)

	out.Redis.Password = redact(cfg.Redis.Password)

	out.S3.AccessKey = redact(cfg.S3.AccessKey)
	out.S3.SecretKey = redact(cfg.S3.SecretKey)

	out.Server.ApiKey = redact(cfg.Server.ApiKey)
	out.Server.CORSOrigins = append([]string(nil), cfg.Server.CORSOrigins...)

	out.Notify.TelegramToken = redact(cfg.Notify.TelegramToken)
	out.Notify.TelegramChatID = redact(cfg.Notify.TelegramChatID)
	out.Notify.DiscordWebhookURL = redact(cfg.Notify.DiscordWebhookURL)
	out.Notify.Events = append([]string(nil), cfg.Notify.Events...)

	return out
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return redacted
}
