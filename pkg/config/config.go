package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the signal relay.
type Config struct {
	Port    string
	BotName string

	// Secrets
	WebhookSecret string
	AdminSecret   string
	JWTSecret     string

	// Telegram
	TelegramToken  string
	TelegramChatID int64

	// Event gateway
	AllowedAssets []string
	MinConfidence int

	// Persistence
	StatePath     string
	JournalDBPath string
	HistoryLimit  int
	DedupeLimit   int

	// Risk governor
	RiskRulesPath string

	// Ingress mode: "webhook" (default) or "scanner"
	IngressMode string

	// Scanner
	ScanIntervalSec int
	SignalGapMin    int

	// Reporting
	ReportEveryMin int
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	return &Config{
		Port:            getEnv("PORT", "8080"),
		BotName:         getEnv("BOT_NAME", "OBSIDIAN GOLD PRIME"),
		WebhookSecret:   strings.TrimSpace(os.Getenv("WEBHOOK_SECRET")),
		AdminSecret:     strings.TrimSpace(os.Getenv("ADMIN_SECRET")),
		JWTSecret:       getEnv("JWT_SECRET", "dev-secret"),
		TelegramToken:   strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		TelegramChatID:  getEnvInt64("TELEGRAM_CHAT_ID", 0),
		AllowedAssets:   splitAndTrim(getEnv("ALLOWED_ASSETS", "XAUUSD,XAGUSD,BTCUSD,BTCUSDT")),
		MinConfidence:   getEnvInt("MIN_CONFIDENCE", 55),
		StatePath:       getEnv("STATE_PATH", "./data/state.json"),
		JournalDBPath:   getEnv("JOURNAL_DB_PATH", "./data/journal.db"),
		HistoryLimit:    getEnvInt("HISTORY_LIMIT", 600),
		DedupeLimit:     getEnvInt("DEDUPE_LIMIT", 400),
		RiskRulesPath:   getEnv("RISK_RULES_PATH", ""),
		IngressMode:     strings.ToLower(getEnv("INGRESS_MODE", "webhook")),
		ScanIntervalSec: getEnvInt("SCAN_INTERVAL_SEC", 45),
		SignalGapMin:    getEnvInt("SIGNAL_GAP_MIN", 30),
		ReportEveryMin:  getEnvInt("REPORT_EVERY_MIN", 180),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitAndTrim(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.ToUpper(strings.TrimSpace(p)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}
