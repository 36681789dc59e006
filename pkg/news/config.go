package news

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"gopkg.in/yaml.v3"

	"tickerlens-api/pkg/confkit"
)

// Config selects the news source and the lookback policy.
type Config struct {
	Source    string `yaml:"source"`
	BaseURL   string `yaml:"base_url"`
	UserAgent string `yaml:"user_agent"`
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`

	HTTPTimeoutRaw string        `yaml:"http_timeout"`
	HTTPTimeout    time.Duration `yaml:"-"`

	LookbackDays []int `yaml:"lookback_days"`
	Limit        int   `yaml:"limit"`
}

// LoadConfig reads news configuration from disk.
func LoadConfig(path string) (*Config, error) {
	confkit.LoadDotenvOnce()
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open news config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// LoadConfigFromReader constructs a Config from an io.Reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	confkit.LoadDotenvOnce()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read news config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal news config: %w", err)
	}
	cfg.Source = strings.ToLower(confkit.Expand(cfg.Source))
	cfg.BaseURL = confkit.Expand(cfg.BaseURL)
	cfg.UserAgent = confkit.Expand(cfg.UserAgent)
	cfg.APIKey = confkit.Expand(cfg.APIKey)
	cfg.APISecret = confkit.Expand(cfg.APISecret)
	if cfg.HTTPTimeout, err = confkit.ParseDuration("news config", "http_timeout", confkit.Expand(cfg.HTTPTimeoutRaw)); err != nil {
		return nil, err
	}
	if cfg.Source == "" {
		cfg.Source = "google"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate ensures the configuration is structurally sound.
func (c *Config) Validate() error {
	switch c.Source {
	case "google":
	case "alpaca":
		if c.APIKey == "" || c.APISecret == "" {
			return fmt.Errorf("news config: alpaca source requires api_key and api_secret")
		}
	default:
		return fmt.Errorf("news config: unsupported source %q", c.Source)
	}
	if c.Limit < 0 {
		return fmt.Errorf("news config: limit must be >= 0")
	}
	if !sort.IntsAreSorted(c.LookbackDays) {
		return fmt.Errorf("news config: lookback_days must be ascending")
	}
	for _, d := range c.LookbackDays {
		if d <= 0 {
			return fmt.Errorf("news config: lookback_days must be positive, got %d", d)
		}
	}
	return nil
}

// Build constructs the configured Fetcher.
func (c *Config) Build() *Fetcher {
	var source Source
	switch c.Source {
	case "alpaca":
		opts := marketdata.ClientOpts{APIKey: c.APIKey, APISecret: c.APISecret}
		if c.BaseURL != "" {
			opts.BaseURL = c.BaseURL
		}
		source = NewAlpacaSource(opts)
	default:
		gopts := []GoogleOption{WithGoogleURL(c.BaseURL), WithGoogleUserAgent(c.UserAgent)}
		if c.HTTPTimeout > 0 {
			gopts = append(gopts, WithGoogleHTTPClient(&http.Client{Timeout: c.HTTPTimeout}))
		}
		source = NewGoogleSource(gopts...)
	}
	return NewFetcher(source, WithWindows(c.LookbackDays), WithLimit(c.Limit))
}
