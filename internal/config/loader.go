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
// built-in defaults, applies RESOLVERD_* environment variable overrides, and
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

// applyEnvOverrides reads well-known RESOLVERD_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Supabase ──
	setStr(&cfg.Supabase.DSN, "RESOLVERD_SUPABASE_DSN")
	setStr(&cfg.Supabase.DSN, "RESOLVERD_SUPABASE_URL") // compatibility alias
	setStr(&cfg.Supabase.Host, "RESOLVERD_SUPABASE_HOST")
	setInt(&cfg.Supabase.Port, "RESOLVERD_SUPABASE_PORT")
	setStr(&cfg.Supabase.Database, "RESOLVERD_SUPABASE_DATABASE")
	setStr(&cfg.Supabase.User, "RESOLVERD_SUPABASE_USER")
	setStr(&cfg.Supabase.Password, "RESOLVERD_SUPABASE_PASSWORD")
	setStr(&cfg.Supabase.SSLMode, "RESOLVERD_SUPABASE_SSL_MODE")
	setInt(&cfg.Supabase.PoolMaxConns, "RESOLVERD_SUPABASE_POOL_MAX_CONNS")
	setInt(&cfg.Supabase.PoolMinConns, "RESOLVERD_SUPABASE_POOL_MIN_CONNS")
	setBool(&cfg.Supabase.RunMigrations, "RESOLVERD_SUPABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "RESOLVERD_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "RESOLVERD_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "RESOLVERD_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "RESOLVERD_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "RESOLVERD_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "RESOLVERD_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.QuoteTTL, "RESOLVERD_REDIS_QUOTE_TTL")

	// ── Provider ──
	setStr(&cfg.Provider.BaseURL, "RESOLVERD_PROVIDER_BASE_URL")
	setStr(&cfg.Provider.ApiKey, "RESOLVERD_PROVIDER_API_KEY")
	setDuration(&cfg.Provider.RequestTimeout, "RESOLVERD_PROVIDER_REQUEST_TIMEOUT")
	setDuration(&cfg.Provider.HistoryWindow, "RESOLVERD_PROVIDER_HISTORY_WINDOW")
	setDuration(&cfg.Provider.SampleInterval, "RESOLVERD_PROVIDER_SAMPLE_INTERVAL")

	// ── Resolver ──
	setDuration(&cfg.Resolver.ConfirmationWindow, "RESOLVERD_RESOLVER_CONFIRMATION_WINDOW")
	setInt(&cfg.Resolver.AdequateSamples, "RESOLVERD_RESOLVER_ADEQUATE_SAMPLES")

	// ── Scheduler ──
	setDuration(&cfg.Scheduler.PollInterval, "RESOLVERD_SCHEDULER_POLL_INTERVAL")
	setInt(&cfg.Scheduler.BatchLimit, "RESOLVERD_SCHEDULER_BATCH_LIMIT")
	setInt(&cfg.Scheduler.Workers, "RESOLVERD_SCHEDULER_WORKERS")
	setDuration(&cfg.Scheduler.LockTTL, "RESOLVERD_SCHEDULER_LOCK_TTL")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "RESOLVERD_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "RESOLVERD_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "RESOLVERD_S3_REGION")
	setStr(&cfg.S3.Bucket, "RESOLVERD_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "RESOLVERD_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "RESOLVERD_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "RESOLVERD_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "RESOLVERD_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "RESOLVERD_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "RESOLVERD_SERVER_PORT")
	setStr(&cfg.Server.ApiKey, "RESOLVERD_SERVER_API_KEY")
	setStringSlice(&cfg.Server.CORSOrigins, "RESOLVERD_SERVER_CORS_ORIGINS")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "RESOLVERD_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "RESOLVERD_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "RESOLVERD_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "RESOLVERD_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "RESOLVERD_MODE")
	setStr(&cfg.LogLevel, "RESOLVERD_LOG_LEVEL")
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
