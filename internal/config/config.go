package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	AppName     = "ciftci-pazari-bot"
	EnvFileName = "config.env"

	DefaultBaseURL  = "http://localhost:5000"
	DefaultDBPath   = "marketplace.db"
	DefaultHTTPAddr = ":8080"
)

// DefaultCategories are offered to producers when PRODUCT_CATEGORIES is unset.
var DefaultCategories = []string{
	"Sebze",
	"Meyve",
	"Tahıl ve Bakliyat",
	"Süt Ürünleri",
	"Et ve Tavuk",
	"Yumurta",
	"Bal ve Arı Ürünleri",
	"Zeytin ve Zeytinyağı",
	"Kuruyemiş",
}

// Config is the process configuration, read once at startup.
type Config struct {
	GeminiAPIKey     string
	GeminiModel      string
	StructuredOutput bool
	ServerBaseURL    string
	ImageTimeout     time.Duration

	BotToken string
	AdminID  int64

	DBPath     string
	HTTPAddr   string
	Categories []string
}

// BotEnabled reports whether the Telegram bot has what it needs to run.
func (c *Config) BotEnabled() bool {
	return c.BotToken != "" && c.AdminID != 0
}

// APIEnabled reports whether the REST API should be served.
func (c *Config) APIEnabled() bool {
	return c.HTTPAddr != ""
}

// LoadEnvFile loads environment variables from the config file in the user's
// config directory and from a .env file in the working directory. Errors are
// ignored since the files may not exist. Variables already set in the
// environment take precedence.
func LoadEnvFile() {
	_ = godotenv.Load(".env")
	configBase, err := os.UserConfigDir()
	if err != nil {
		return
	}
	configPath := filepath.Join(configBase, AppName, EnvFileName)
	_ = godotenv.Load(configPath)
}

// FromEnv builds a Config from environment variables. A missing
// GEMINI_API_KEY is not an error; verification then rejects every product.
func FromEnv() (*Config, error) {
	cfg := &Config{
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModel:      os.Getenv("GEMINI_MODEL"),
		StructuredOutput: true,
		ServerBaseURL:    EnvOr("SERVER_BASE_URL", DefaultBaseURL),
		BotToken:         os.Getenv("BOT_TOKEN"),
		DBPath:           EnvOr("DB_PATH", DefaultDBPath),
		HTTPAddr:         EnvOr("HTTP_ADDR", DefaultHTTPAddr),
		Categories:       DefaultCategories,
	}

	if v := os.Getenv("GEMINI_STRUCTURED_OUTPUT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("GEMINI_STRUCTURED_OUTPUT must be a boolean: %w", err)
		}
		cfg.StructuredOutput = b
	}

	if v := os.Getenv("IMAGE_FETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("IMAGE_FETCH_TIMEOUT must be a duration: %w", err)
		}
		cfg.ImageTimeout = d
	}

	if v := os.Getenv("ADMIN_TELEGRAM_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ADMIN_TELEGRAM_ID must be a valid integer: %w", err)
		}
		cfg.AdminID = id
	}

	if v := os.Getenv("PRODUCT_CATEGORIES"); v != "" {
		cfg.Categories = parseList(v)
	}

	// "-" disables the HTTP API
	if cfg.HTTPAddr == "-" {
		cfg.HTTPAddr = ""
	}

	if !cfg.BotEnabled() && !cfg.APIEnabled() {
		return nil, fmt.Errorf("nothing to run: set BOT_TOKEN and ADMIN_TELEGRAM_ID, or HTTP_ADDR")
	}

	return cfg, nil
}

// EnvOr returns the value of the environment variable key, or fallback when
// it is unset or empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
