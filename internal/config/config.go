// Package config loads the YAML configuration shared by the collect,
// scan, and archive commands.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"tradecycle/internal/domain"
)

// ExchangeConfig describes one exchange backend.
type ExchangeConfig struct {
	Name    string   `yaml:"name"`
	BaseURL string   `yaml:"base_url"`
	FeedURL string   `yaml:"feed_url"` // optional websocket endpoint
	Pairs   []string `yaml:"pairs"`
}

// StorageConfig holds database connection strings.
type StorageConfig struct {
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
}

// CollectConfig tunes the trade collector.
type CollectConfig struct {
	PollInterval  time.Duration `yaml:"poll_interval"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// ScanConfig tunes the arbitrage scanner.
type ScanConfig struct {
	MaxCycleLength int      `yaml:"max_cycle_length"`
	MinProfit      float64  `yaml:"min_profit"`
	Forbidden      []string `yaml:"forbidden"` // currencies a cycle must avoid
	Required       []string `yaml:"required"`  // currencies a cycle must touch
}

// ArchiveConfig tunes the bucket archive.
type ArchiveConfig struct {
	BucketWidth float64       `yaml:"bucket_width"` // seconds
	Interval    time.Duration `yaml:"interval"`
}

// Config is the root configuration document.
type Config struct {
	Exchanges   []ExchangeConfig `yaml:"exchanges"`
	Storage     StorageConfig    `yaml:"storage"`
	Collect     CollectConfig    `yaml:"collect"`
	Scan        ScanConfig       `yaml:"scan"`
	Archive     ArchiveConfig    `yaml:"archive"`
	MetricsAddr string           `yaml:"metrics_addr"`
}

// Load reads and validates a configuration file. Missing optional
// fields are filled with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Collect.PollInterval == 0 {
		c.Collect.PollInterval = time.Minute
	}
	if c.Collect.FlushInterval == 0 {
		c.Collect.FlushInterval = 5 * time.Second
	}
	if c.Scan.MaxCycleLength == 0 {
		c.Scan.MaxCycleLength = 4
	}
	if c.Scan.MinProfit == 0 {
		c.Scan.MinProfit = 0.05
	}
	if c.Archive.BucketWidth == 0 {
		c.Archive.BucketWidth = domain.DefaultBucketWidth
	}
	if c.Archive.Interval == 0 {
		c.Archive.Interval = 10 * time.Minute
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = ":9100"
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if len(c.Exchanges) == 0 {
		return fmt.Errorf("config: at least one exchange is required")
	}
	for i, ex := range c.Exchanges {
		if ex.Name == "" {
			return fmt.Errorf("config: exchange %d has no name", i)
		}
		if ex.BaseURL == "" {
			return fmt.Errorf("config: exchange %q has no base_url", ex.Name)
		}
	}
	if c.Scan.MaxCycleLength < 0 {
		return fmt.Errorf("config: max_cycle_length must not be negative")
	}
	if c.Scan.MinProfit < 0 {
		return fmt.Errorf("config: min_profit must not be negative")
	}
	if c.Archive.BucketWidth < 0 {
		return fmt.Errorf("config: bucket_width must not be negative")
	}
	return nil
}

// Exchange returns the configuration for a named exchange.
func (c *Config) Exchange(name string) (ExchangeConfig, bool) {
	for _, ex := range c.Exchanges {
		if ex.Name == name {
			return ex, true
		}
	}
	return ExchangeConfig{}, false
}
