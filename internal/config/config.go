package config

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ModeAll    = "ALL"
	ModeWeb    = "WEB"
	ModeWorker = "WORKER"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

var (
	ErrInvalidAppMode     = errors.New("APP_MODE must be ALL, WEB or WORKER")
	ErrInvalidDBDriver    = errors.New("DB_DRIVER must be postgres, sqlite or memory")
	ErrMissingDatabaseDSN = errors.New("DB_DSN is required")
	ErrInvalidReplyDelay  = errors.New("REPLY_DELAY_MIN must not exceed REPLY_DELAY_MAX")
	ErrMissingBotToken    = errors.New("BOT_TOKEN is required when BOT_NOTIFY_CHAT_ID or BOT_POLLING is set")
	ErrWorkerNeedsRedis   = errors.New("REDIS_ADDR is required in WORKER mode")
)

type Config struct {
	AppMode string

	HTTP     HTTPConfig
	DB       DBConfig
	Redis    RedisConfig
	Worker   WorkerConfig
	Chat     ChatConfig
	Webhook  WebhookConfig
	Telegram TelegramConfig
	Crypto   CryptoConfig
	Log      LogConfig
}

type HTTPConfig struct {
	ListenAddr  string
	HealthPath  string
	MetricsPath string
	ReadTimeout time.Duration
	AdminToken  string
}

type DBConfig struct {
	Driver      string
	DSN         string
	AutoMigrate bool
}

// RedisConfig is disabled when Addr is empty.
type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	DeliveryStream string
	DeliveryGroup  string
	QueueBlock     time.Duration
	DraftTTL       time.Duration
	DedupeTTL      time.Duration
}

type WorkerConfig struct {
	Concurrency  int
	ConsumerName string
	MaxRetries   int
}

// ChatConfig limits are per hour. RatePerHour counts one session and
// ClientRatePerHour one remote address across sessions.
type ChatConfig struct {
	ReplyDelayMin     time.Duration
	ReplyDelayMax     time.Duration
	RatePerHour       int64
	ClientRatePerHour int64
}

// WebhookConfig configures the outbound lead webhook. Disabled when URL is empty.
type WebhookConfig struct {
	URL           string
	BodyTemplate  string
	Headers       map[string]string
	ClientTimeout time.Duration
	MaxRetries    int
	BackoffBase   time.Duration
}

type TelegramConfig struct {
	BotToken     string
	NotifyChatID int64
	AdminUserID  int64
	Polling      bool
}

// CryptoConfig is empty when no master key is configured.
type CryptoConfig struct {
	CurrentKeyID string
	Keys         map[string][]byte
}

type LogConfig struct {
	Level string
}

func (c *Config) Runs(mode string) bool {
	return c.AppMode == ModeAll || c.AppMode == mode
}

func Load() (*Config, error) {
	cfg := &Config{
		AppMode: strings.ToUpper(mustEnv("APP_MODE", ModeAll)),
		HTTP: HTTPConfig{
			ListenAddr:  mustEnv("HTTP_LISTEN_ADDR", ":8080"),
			HealthPath:  mustEnv("HEALTH_PATH", "/healthz"),
			MetricsPath: mustEnv("METRICS_PATH", "/metrics"),
			ReadTimeout: mustDuration("HTTP_READ_TIMEOUT", 10*time.Second),
			AdminToken:  mustEnv("ADMIN_TOKEN", ""),
		},
		DB: DBConfig{
			Driver:      strings.ToLower(mustEnv("DB_DRIVER", DriverSQLite)),
			DSN:         mustEnv("DB_DSN", "file:empire.db?_pragma=foreign_keys(1)"),
			AutoMigrate: mustBool("AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Addr:           mustEnv("REDIS_ADDR", ""),
			Password:       mustEnv("REDIS_PASSWORD", ""),
			DB:             mustInt("REDIS_DB", 0),
			DeliveryStream: mustEnv("DELIVERY_STREAM", "empire:deliveries"),
			DeliveryGroup:  mustEnv("DELIVERY_GROUP", "empire-workers"),
			QueueBlock:     mustDuration("QUEUE_BLOCK", 5*time.Second),
			DraftTTL:       mustDuration("DRAFT_TTL", 24*time.Hour),
			DedupeTTL:      mustDuration("DEDUPE_TTL", 6*time.Hour),
		},
		Worker: WorkerConfig{
			Concurrency:  mustInt("WORKER_CONCURRENCY", 2),
			ConsumerName: mustEnv("WORKER_CONSUMER_NAME", hostnameOr("worker")),
			MaxRetries:   mustInt("WORKER_MAX_RETRIES", 3),
		},
		Chat: ChatConfig{
			ReplyDelayMin:     mustDuration("REPLY_DELAY_MIN", 500*time.Millisecond),
			ReplyDelayMax:     mustDuration("REPLY_DELAY_MAX", 1500*time.Millisecond),
			RatePerHour:       int64(mustInt("RATE_LIMIT_PER_HOUR", 120)),
			ClientRatePerHour: int64(mustInt("CLIENT_RATE_LIMIT_PER_HOUR", 600)),
		},
		Webhook: WebhookConfig{
			URL:           mustEnv("WEBHOOK_URL", ""),
			BodyTemplate:  os.Getenv("WEBHOOK_BODY_TEMPLATE"),
			ClientTimeout: mustDuration("HTTP_TIMEOUT", 30*time.Second),
			MaxRetries:    mustInt("HTTP_MAX_RETRIES", 2),
			BackoffBase:   mustDuration("HTTP_BACKOFF_BASE", 400*time.Millisecond),
		},
		Telegram: TelegramConfig{
			BotToken:     mustEnv("BOT_TOKEN", ""),
			NotifyChatID: mustInt64("BOT_NOTIFY_CHAT_ID", 0),
			AdminUserID:  mustInt64("BOT_ADMIN_USER_ID", 0),
			Polling:      mustBool("BOT_POLLING", false),
		},
		Log: LogConfig{
			Level: strings.ToLower(mustEnv("LOG_LEVEL", "info")),
		},
	}

	if cfg.AppMode != ModeAll && cfg.AppMode != ModeWeb && cfg.AppMode != ModeWorker {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidAppMode, cfg.AppMode)
	}
	switch cfg.DB.Driver {
	case DriverPostgres, DriverSQLite:
		if cfg.DB.DSN == "" {
			return nil, ErrMissingDatabaseDSN
		}
	case DriverMemory:
	default:
		return nil, fmt.Errorf("%w: got %q", ErrInvalidDBDriver, cfg.DB.Driver)
	}
	if cfg.Chat.ReplyDelayMin > cfg.Chat.ReplyDelayMax {
		return nil, ErrInvalidReplyDelay
	}
	if cfg.Telegram.BotToken == "" && (cfg.Telegram.NotifyChatID != 0 || cfg.Telegram.Polling) {
		return nil, ErrMissingBotToken
	}
	if cfg.AppMode == ModeWorker && cfg.Redis.Addr == "" {
		return nil, ErrWorkerNeedsRedis
	}

	if raw := mustEnv("WEBHOOK_HEADERS_JSON", ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &cfg.Webhook.Headers); err != nil {
			return nil, fmt.Errorf("parse WEBHOOK_HEADERS_JSON: %w", err)
		}
	}

	cc, err := loadCryptoConfig()
	if err != nil {
		return nil, err
	}
	cfg.Crypto = cc

	return cfg, nil
}

func loadCryptoConfig() (CryptoConfig, error) {
	keysB64 := map[string]string{}

	if raw := mustEnv("MASTER_KEYS_JSON", ""); raw != "" {
		var parsed map[string]string
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			return CryptoConfig{}, fmt.Errorf("parse MASTER_KEYS_JSON: %w", err)
		}
		for id, val := range parsed {
			if strings.TrimSpace(id) == "" || strings.TrimSpace(val) == "" {
				continue
			}
			keysB64[id] = val
		}
	}

	for _, e := range os.Environ() {
		k, v, ok := strings.Cut(e, "=")
		if !ok || k == "MASTER_KEY_B64" {
			continue
		}
		if !strings.HasPrefix(k, "MASTER_KEY_") || !strings.HasSuffix(k, "_B64") {
			continue
		}
		id := strings.TrimSuffix(strings.TrimPrefix(k, "MASTER_KEY_"), "_B64")
		if id == "" || v == "" {
			continue
		}
		keysB64[id] = v
	}

	current := mustEnv("MASTER_KEY_CURRENT_ID", "")
	if singleton := mustEnv("MASTER_KEY_B64", ""); singleton != "" {
		if current == "" {
			current = "default"
		}
		keysB64[current] = singleton
	}

	// PII sealing is optional.
	if len(keysB64) == 0 {
		return CryptoConfig{}, nil
	}

	keys := make(map[string][]byte, len(keysB64))
	for id, b64 := range keysB64 {
		raw, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return CryptoConfig{}, fmt.Errorf("decode master key %q: %w", id, err)
		}
		if len(raw) != 32 {
			return CryptoConfig{}, fmt.Errorf("master key %q must be 32 bytes after base64 decode", id)
		}
		keys[id] = raw
	}

	if current == "" {
		if len(keys) > 1 {
			return CryptoConfig{}, fmt.Errorf("MASTER_KEY_CURRENT_ID is required with %d keys", len(keys))
		}
		for id := range keys {
			current = id
		}
	}
	if _, ok := keys[current]; !ok {
		return CryptoConfig{}, fmt.Errorf("MASTER_KEY_CURRENT_ID=%q does not exist in provided keys", current)
	}

	return CryptoConfig{
		CurrentKeyID: current,
		Keys:         keys,
	}, nil
}

func mustEnv(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func mustInt(key string, def int) int {
	v := mustEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func mustInt64(key string, def int64) int64 {
	v := mustEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func mustBool(key string, def bool) bool {
	v := mustEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func mustDuration(key string, def time.Duration) time.Duration {
	v := mustEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func hostnameOr(def string) string {
	h, err := os.Hostname()
	if err != nil || strings.TrimSpace(h) == "" {
		return def
	}
	return h
}
