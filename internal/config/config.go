package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
)

type Config struct {
	RulesPath string
	OutputDir string

	DBPath         string
	JournalEnabled bool

	LookupURL          string
	LookupTimeoutMs    int
	LookupConcurrency  int
	LookupRateLimitRPS float64

	ColumnMatcher          string
	ColumnMatchMaxDistance int

	LogLevel  string
	LogFormat string
	LogFile   string

	WatchInboxDir string
	WatchSchedule string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, eris.Wrap(err, "resolve working directory")
	}

	cfg := Config{
		RulesPath: getEnv("RULES_PATH", ""),
		OutputDir: getEnv("OUTPUT_DIR", ""),

		DBPath:         getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),
		JournalEnabled: getEnvBool("JOURNAL_ENABLED", true),

		LookupURL:          getEnv("LOOKUP_URL", ""),
		LookupTimeoutMs:    getEnvInt("LOOKUP_TIMEOUT_MS", 0),
		LookupConcurrency:  getEnvInt("LOOKUP_CONCURRENCY", 1),
		LookupRateLimitRPS: getEnvFloat("LOOKUP_RATE_LIMIT_RPS", 0),

		ColumnMatcher:          strings.ToLower(getEnv("COLUMN_MATCHER", "substring")),
		ColumnMatchMaxDistance: getEnvInt("COLUMN_MATCH_MAX_DISTANCE", 1),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
		LogFile:   getEnv("LOG_FILE", ""),

		WatchInboxDir: getEnv("WATCH_INBOX_DIR", filepath.Join(cwd, "data", "inbox")),
		WatchSchedule: getEnv("WATCH_SCHEDULE", "@every 1m"),
	}

	if cfg.LookupConcurrency < 1 {
		cfg.LookupConcurrency = 1
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return eris.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
