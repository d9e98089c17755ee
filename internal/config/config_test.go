package config

import (
	"testing"
	"time"

	"github.com/maltedev/price-monitor/internal/browser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5.0, cfg.Monitor.ThresholdPercent)
	assert.Equal(t, 3*time.Second, cfg.Scraper.Delay)
	assert.Equal(t, 10*time.Second, cfg.Scraper.StaticTimeout)
	assert.Equal(t, 15*time.Second, cfg.Browser.Timeout)
	assert.Equal(t, 2, cfg.Browser.PoolSize)
	assert.Equal(t, browser.EnginePlaywright, cfg.Browser.Engine)
	assert.Equal(t, time.Hour, cfg.Monitor.Interval)
	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.NotEmpty(t, cfg.Scraper.UserAgents)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PRICE_DROP_THRESHOLD_PERCENT", "7.5")
	t.Setenv("SCRAPE_DELAY_SECONDS", "1.5")
	t.Setenv("DYNAMIC_FETCH_TIMEOUT_SECONDS", "20s")
	t.Setenv("BROWSER_ENGINE", "chromedp")
	t.Setenv("CHECK_INTERVAL", "30m")
	t.Setenv("STORAGE", "memory")
	t.Setenv("SCRAPER_USER_AGENTS", "ua-one, ua-two ,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7.5, cfg.Monitor.ThresholdPercent)
	assert.Equal(t, 1500*time.Millisecond, cfg.Scraper.Delay)
	assert.Equal(t, 20*time.Second, cfg.Browser.Timeout)
	assert.Equal(t, browser.EngineChromedp, cfg.Browser.Engine)
	assert.Equal(t, 30*time.Minute, cfg.Monitor.Interval)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, []string{"ua-one", "ua-two"}, cfg.Scraper.UserAgents)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("BROWSER_POOL_SIZE", "lots")
	t.Setenv("CHECK_INTERVAL", "hourly")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Browser.PoolSize)
	assert.Equal(t, time.Hour, cfg.Monitor.Interval)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero threshold", func(c *Config) { c.Monitor.ThresholdPercent = 0 }, "PRICE_DROP_THRESHOLD_PERCENT"},
		{"negative delay", func(c *Config) { c.Scraper.Delay = -time.Second }, "SCRAPE_DELAY_SECONDS"},
		{"max below min delay", func(c *Config) { c.Scraper.MaxDelay = time.Second }, "SCRAPE_MAX_DELAY_SECONDS"},
		{"empty pool", func(c *Config) { c.Browser.PoolSize = 0 }, "BROWSER_POOL_SIZE"},
		{"unknown engine", func(c *Config) { c.Browser.Engine = "webkit" }, "BROWSER_ENGINE"},
		{"no workers", func(c *Config) { c.Monitor.Workers = 0 }, "CHECK_WORKERS"},
		{"unknown storage", func(c *Config) { c.Storage = "sqlite" }, "STORAGE"},
		{"postgres without host", func(c *Config) { c.Database.Host = "" }, "DB_HOST"},
		{"zero static timeout", func(c *Config) { c.Scraper.StaticTimeout = 0 }, "timeouts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBrowserOptions(t *testing.T) {
	t.Setenv("SCRAPER_USER_AGENTS", "custom-agent")
	t.Setenv("BROWSER_POOL_SIZE", "3")

	cfg, err := Load()
	require.NoError(t, err)

	opts := cfg.BrowserOptions()
	assert.Equal(t, 3, opts.PoolSize)
	assert.Equal(t, "custom-agent", opts.UserAgent)
	assert.Equal(t, cfg.Browser.Timeout, opts.Timeout)
	assert.NotEmpty(t, opts.ExtraHeaders)
}

func TestPoolConfig(t *testing.T) {
	t.Setenv("DB_NAME", "prices")
	t.Setenv("DB_PORT", "6543")

	cfg, err := Load()
	require.NoError(t, err)

	pc := cfg.Database.PoolConfig()
	assert.Equal(t, "prices", pc.Database)
	assert.Equal(t, 6543, pc.Port)
}
