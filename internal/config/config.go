package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	ListenAddr       string
	APIBaseURL       string
	APITimeout       time.Duration
	DBPath           string
	CacheBackend     string
	CacheTTL         time.Duration
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	StoreLimit       int
	CookieSecure     bool
	CSRFKey          string
	LogLevel         string
	LogFormat        string
	LogFile          string
	TraceSampleRatio float64
}

var defaults = map[string]any{
	"LISTEN_ADDR":        ":8080",
	"API_BASE_URL":       "http://localhost:8000/",
	"API_TIMEOUT":        "10s",
	"DB_PATH":            "/data/hondadog.db",
	"CACHE_BACKEND":      "memory",
	"CACHE_TTL":          "5m",
	"REDIS_ADDR":         "localhost:6379",
	"REDIS_PASSWORD":     "",
	"REDIS_DB":           0,
	"STORE_LIMIT":        2,
	"COOKIE_SECURE":      false,
	"CSRF_KEY":           "",
	"LOG_LEVEL":          "info",
	"LOG_FORMAT":         "json",
	"LOG_FILE":           "",
	"TRACE_SAMPLE_RATIO": 1.0,
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first without overriding variables that are already
// set, and CONFIG_FILE may name a YAML file whose keys (e.g. listen_addr)
// sit underneath the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		ListenAddr:       v.GetString("LISTEN_ADDR"),
		APIBaseURL:       v.GetString("API_BASE_URL"),
		APITimeout:       v.GetDuration("API_TIMEOUT"),
		DBPath:           v.GetString("DB_PATH"),
		CacheBackend:     v.GetString("CACHE_BACKEND"),
		CacheTTL:         v.GetDuration("CACHE_TTL"),
		RedisAddr:        v.GetString("REDIS_ADDR"),
		RedisPassword:    v.GetString("REDIS_PASSWORD"),
		RedisDB:          v.GetInt("REDIS_DB"),
		StoreLimit:       v.GetInt("STORE_LIMIT"),
		CookieSecure:     v.GetBool("COOKIE_SECURE"),
		CSRFKey:          v.GetString("CSRF_KEY"),
		LogLevel:         v.GetString("LOG_LEVEL"),
		LogFormat:        v.GetString("LOG_FORMAT"),
		LogFile:          v.GetString("LOG_FILE"),
		TraceSampleRatio: v.GetFloat64("TRACE_SAMPLE_RATIO"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("API_BASE_URL is required")
	}
	switch c.CacheBackend {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.CacheBackend)
	}
	if c.StoreLimit <= 0 {
		return fmt.Errorf("STORE_LIMIT must be positive, got %d", c.StoreLimit)
	}
	if c.TraceSampleRatio < 0 || c.TraceSampleRatio > 1 {
		return fmt.Errorf("TRACE_SAMPLE_RATIO must be within [0, 1], got %v", c.TraceSampleRatio)
	}
	return nil
}
