// Package config handles configuration loading for the index movers
// dashboard. It supports YAML config files with environment variable
// overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	API       APIConfig       `mapstructure:"api"       yaml:"api"`
	Dashboard DashboardConfig `mapstructure:"dashboard" yaml:"dashboard"`
	Sources   SourcesConfig   `mapstructure:"sources"   yaml:"sources"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// DashboardConfig holds the user-facing control defaults and bounds.
type DashboardConfig struct {
	Window               int `mapstructure:"window"                 yaml:"window"`                 // trading days
	MinWindow            int `mapstructure:"min_window"             yaml:"min_window"`
	MaxWindow            int `mapstructure:"max_window"             yaml:"max_window"`
	TopN                 int `mapstructure:"top_n"                  yaml:"top_n"`
	MinTopN              int `mapstructure:"min_top_n"              yaml:"min_top_n"`
	MaxTopN              int `mapstructure:"max_top_n"              yaml:"max_top_n"`
	CalendarLookbackDays int `mapstructure:"calendar_lookback_days" yaml:"calendar_lookback_days"`
}

// IndexSourceConfig describes one scrapeable index constituent page.
type IndexSourceConfig struct {
	Name          string `mapstructure:"name"           yaml:"name"`
	URL           string `mapstructure:"url"            yaml:"url"`
	TickerColumn  string `mapstructure:"ticker_column"  yaml:"ticker_column"`
	CompanyColumn string `mapstructure:"company_column" yaml:"company_column"`
}

// SourcesConfig holds external data source settings.
type SourcesConfig struct {
	Indices           []IndexSourceConfig `mapstructure:"indices"            yaml:"indices"`
	YFinanceBaseURL   string              `mapstructure:"yfinance_base_url"  yaml:"yfinance_base_url"`
	NewsFeedURL       string              `mapstructure:"news_feed_url"      yaml:"news_feed_url"`
	ChunkSize         int                 `mapstructure:"chunk_size"         yaml:"chunk_size"`
	ConcurrentFetches int                 `mapstructure:"concurrent_fetches" yaml:"concurrent_fetches"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.stockanalysis/config.yaml (home directory)
//  3. /etc/stockanalysis/config.yaml (system)
//
// Environment variables override config file values.
// Format: STOCKANALYSIS_<SECTION>_<KEY>, e.g., STOCKANALYSIS_API_PORT
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".stockanalysis"))
	v.AddConfigPath("/etc/stockanalysis")

	v.SetEnvPrefix("STOCKANALYSIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found — that's fine, use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("STOCKANALYSIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// ValidateWindow clamps-or-rejects a requested window against the
// configured bounds. Zero means "use the default".
func (c *Config) ValidateWindow(window int) (int, error) {
	if window == 0 {
		return c.Dashboard.Window, nil
	}
	if window < c.Dashboard.MinWindow || window > c.Dashboard.MaxWindow {
		return 0, fmt.Errorf("window must be between %d and %d trading days",
			c.Dashboard.MinWindow, c.Dashboard.MaxWindow)
	}
	return window, nil
}

// ValidateTopN clamps-or-rejects a requested top-N against the configured
// bounds. Zero means "use the default".
func (c *Config) ValidateTopN(topN int) (int, error) {
	if topN == 0 {
		return c.Dashboard.TopN, nil
	}
	if topN < c.Dashboard.MinTopN || topN > c.Dashboard.MaxTopN {
		return 0, fmt.Errorf("top-N must be between %d and %d",
			c.Dashboard.MinTopN, c.Dashboard.MaxTopN)
	}
	return topN, nil
}

// setDefaults sets sensible defaults for all config values. Dashboard
// controls: window 5-60 (default 30), top-N 5-20 (default 10),
// 90-calendar-day price lookback.
func setDefaults(v *viper.Viper) {
	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"*"})

	// Dashboard defaults
	v.SetDefault("dashboard.window", 30)
	v.SetDefault("dashboard.min_window", 5)
	v.SetDefault("dashboard.max_window", 60)
	v.SetDefault("dashboard.top_n", 10)
	v.SetDefault("dashboard.min_top_n", 5)
	v.SetDefault("dashboard.max_top_n", 20)
	v.SetDefault("dashboard.calendar_lookback_days", 90)

	// Source defaults
	v.SetDefault("sources.yfinance_base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("sources.news_feed_url", "https://feeds.finance.yahoo.com/rss/2.0/headline?s=%s&region=US&lang=en-US")
	v.SetDefault("sources.chunk_size", 30)
	v.SetDefault("sources.concurrent_fetches", 5)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
