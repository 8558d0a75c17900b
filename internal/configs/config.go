package configs

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はサーバー起動に必要な設定値の集合です。
// 値はすべて環境変数から読み込み、未設定の項目はデフォルト値で埋めます。
type Config struct {
	Port            string
	AllowedOrigins  []string
	Headless        bool
	InstallBrowsers bool

	CredentialPath  string
	LedgerPath      string
	SearchCachePath string

	BatchConcurrency int
	BatchPacing      time.Duration
	UpdatePacing     time.Duration

	LogLevel slog.Level
}

// Load は.env（存在すれば）と環境変数からConfigを構築します
func Load() *Config {
	// .envが無いのは通常の運用なのでエラーにしない
	_ = godotenv.Load()

	return &Config{
		Port:             envString("PORT", "10000"),
		AllowedOrigins:   splitOrigins(envString("ALLOWED_ORIGINS", "http://localhost:5173")),
		Headless:         envBool("HEADLESS", true),
		InstallBrowsers:  envBool("INSTALL_BROWSERS", false),
		CredentialPath:   envString("CREDENTIAL_PATH", "login.json"),
		LedgerPath:       envString("LEDGER_PATH", "bids.json"),
		SearchCachePath:  envString("SEARCH_CACHE_PATH", "search.json"),
		BatchConcurrency: envInt("BATCH_CONCURRENCY", 4),
		BatchPacing:      envDurationMs("BATCH_PACING_MS", 2000),
		UpdatePacing:     envDurationMs("UPDATE_PACING_MS", 2000),
		LogLevel:         envLogLevel("LOG_LEVEL", slog.LevelInfo),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed < 1 {
		return fallback
	}
	return parsed
}

func envDurationMs(key string, fallbackMs int) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return time.Duration(fallbackMs) * time.Millisecond
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed < 0 {
		return time.Duration(fallbackMs) * time.Millisecond
	}
	return time.Duration(parsed) * time.Millisecond
}

func envLogLevel(key string, fallback slog.Level) slog.Level {
	switch strings.ToLower(os.Getenv(key)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return fallback
	}
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
