// Package config loads the service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/maltedev/price-monitor/internal/browser"
	"github.com/maltedev/price-monitor/internal/database"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	Server   ServerConfig
	Scraper  ScraperConfig
	Browser  BrowserConfig
	Monitor  MonitorConfig
	Storage  string
	Database DatabaseConfig
	Redis    RedisConfig
	Relay    RelayConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

type ScraperConfig struct {
	Delay          time.Duration
	MaxDelay       time.Duration
	StaticTimeout  time.Duration
	UserAgents     []string
	AcceptLanguage string
}

type BrowserConfig struct {
	Engine         string
	Headless       bool
	PoolSize       int
	Timeout        time.Duration
	SettleDelay    time.Duration
	ViewportWidth  int
	ViewportHeight int
	TimezoneID     string
	Locale         string
	ProxyServer    string
}

type MonitorConfig struct {
	ThresholdPercent float64
	Workers          int
	Interval         time.Duration
	AlertBuffer      int
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int32
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type RelayConfig struct {
	PollInterval time.Duration
	BatchSize    int
	StreamMaxLen int64
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads a .env file when one exists and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 10*time.Minute),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			AllowedOrigins:  getStringSliceOrDefault("SERVER_ALLOWED_ORIGINS", []string{"*"}),
		},
		Scraper: ScraperConfig{
			Delay:          getSecondsOrDefault("SCRAPE_DELAY_SECONDS", 3*time.Second),
			MaxDelay:       getSecondsOrDefault("SCRAPE_MAX_DELAY_SECONDS", 0),
			StaticTimeout:  getSecondsOrDefault("STATIC_FETCH_TIMEOUT_SECONDS", 10*time.Second),
			UserAgents:     getStringSliceOrDefault("SCRAPER_USER_AGENTS", defaultUserAgents()),
			AcceptLanguage: getEnvOrDefault("SCRAPER_ACCEPT_LANGUAGE", "es-AR,es;q=0.9,en;q=0.8"),
		},
		Browser: BrowserConfig{
			Engine:         getEnvOrDefault("BROWSER_ENGINE", browser.EnginePlaywright),
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			PoolSize:       getIntOrDefault("BROWSER_POOL_SIZE", 2),
			Timeout:        getSecondsOrDefault("DYNAMIC_FETCH_TIMEOUT_SECONDS", 15*time.Second),
			SettleDelay:    getDurationOrDefault("BROWSER_SETTLE_DELAY", 2*time.Second),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", "America/Argentina/Buenos_Aires"),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "es-AR"),
			ProxyServer:    getEnvOrDefault("BROWSER_PROXY", ""),
		},
		Monitor: MonitorConfig{
			ThresholdPercent: getFloatOrDefault("PRICE_DROP_THRESHOLD_PERCENT", 5),
			Workers:          getIntOrDefault("CHECK_WORKERS", 4),
			Interval:         getDurationOrDefault("CHECK_INTERVAL", time.Hour),
			AlertBuffer:      getIntOrDefault("ALERT_BUFFER", 64),
		},
		Storage: getEnvOrDefault("STORAGE", StoragePostgres),
		Database: DatabaseConfig{
			URL:      getEnvOrDefault("DATABASE_URL", ""),
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "price_monitor"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
			MaxConns: int32(getIntOrDefault("DB_MAX_CONNS", 10)),
		},
		Redis: RedisConfig{
			Enabled:  getBoolOrDefault("REDIS_ENABLED", true),
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
		},
		Relay: RelayConfig{
			PollInterval: getDurationOrDefault("RELAY_POLL_INTERVAL", 5*time.Second),
			BatchSize:    getIntOrDefault("RELAY_BATCH_SIZE", 50),
			StreamMaxLen: int64(getIntOrDefault("RELAY_STREAM_MAX_LEN", 10000)),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Monitor.ThresholdPercent <= 0 || c.Monitor.ThresholdPercent >= 100 {
		return fmt.Errorf("PRICE_DROP_THRESHOLD_PERCENT must be between 0 and 100, got %v", c.Monitor.ThresholdPercent)
	}

	if c.Scraper.Delay < 0 {
		return fmt.Errorf("SCRAPE_DELAY_SECONDS cannot be negative")
	}

	if c.Scraper.MaxDelay != 0 && c.Scraper.MaxDelay < c.Scraper.Delay {
		return fmt.Errorf("SCRAPE_MAX_DELAY_SECONDS cannot be less than SCRAPE_DELAY_SECONDS")
	}

	if c.Scraper.StaticTimeout <= 0 || c.Browser.Timeout <= 0 {
		return fmt.Errorf("fetch timeouts must be positive")
	}

	if c.Browser.PoolSize < 1 {
		return fmt.Errorf("BROWSER_POOL_SIZE must be at least 1")
	}

	switch c.Browser.Engine {
	case browser.EnginePlaywright, browser.EngineChromedp:
	default:
		return fmt.Errorf("unknown BROWSER_ENGINE %q", c.Browser.Engine)
	}

	if c.Monitor.Workers < 1 {
		return fmt.Errorf("CHECK_WORKERS must be at least 1")
	}

	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("CHECK_INTERVAL must be positive")
	}

	switch c.Storage {
	case StoragePostgres:
		if c.Database.URL == "" && c.Database.Host == "" {
			return fmt.Errorf("DATABASE_URL or DB_HOST is required")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown STORAGE %q", c.Storage)
	}

	if c.Relay.BatchSize < 1 {
		return fmt.Errorf("RELAY_BATCH_SIZE must be at least 1")
	}

	return nil
}

// DatabaseConfig converts to the connection pool settings.
func (d DatabaseConfig) PoolConfig() database.Config {
	return database.Config{
		URL:      d.URL,
		Host:     d.Host,
		Port:     d.Port,
		User:     d.User,
		Password: d.Password,
		Database: d.DBName,
		SSLMode:  d.SSLMode,
		MaxConns: d.MaxConns,
	}
}

// BrowserOptions converts to renderer options, keeping the defaults for
// anything not configurable.
func (c *Config) BrowserOptions() *browser.Options {
	opts := browser.DefaultOptions()
	opts.Engine = c.Browser.Engine
	opts.Headless = c.Browser.Headless
	opts.PoolSize = c.Browser.PoolSize
	opts.Timeout = c.Browser.Timeout
	opts.SettleDelay = c.Browser.SettleDelay
	opts.ViewportWidth = c.Browser.ViewportWidth
	opts.ViewportHeight = c.Browser.ViewportHeight
	opts.TimezoneID = c.Browser.TimezoneID
	opts.Locale = c.Browser.Locale
	opts.ProxyServer = c.Browser.ProxyServer
	opts.AcceptLanguage = c.Scraper.AcceptLanguage
	if len(c.Scraper.UserAgents) > 0 {
		opts.UserAgent = c.Scraper.UserAgents[0]
	}
	return opts
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getSecondsOrDefault accepts plain seconds ("2.5") or a duration ("2500ms").
func getSecondsOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(f * float64(time.Second))
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

func defaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	}
}
