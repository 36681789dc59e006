package market

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"tickerlens-api/pkg/confkit"
)

// Config describes the equity data providers available to the application.
type Config struct {
	Default string `yaml:"default"`
	// Fallback serves calls the default provider reports as unsupported.
	Fallback  string                     `yaml:"fallback"`
	Providers map[string]*ProviderConfig `yaml:"providers"`
}

// ProviderConfig represents configuration for a single market provider.
type ProviderConfig struct {
	Type string `yaml:"type"`

	BaseURL    string `yaml:"base_url"`
	SummaryURL string `yaml:"summary_url"`
	UserAgent  string `yaml:"user_agent"`

	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	Feed      string `yaml:"feed"`
	Timezone  string `yaml:"timezone"`

	TimeoutRaw     string        `yaml:"timeout"`
	Timeout        time.Duration `yaml:"-"`
	HTTPTimeoutRaw string        `yaml:"http_timeout"`
	HTTPTimeout    time.Duration `yaml:"-"`
	MaxRetries     int           `yaml:"max_retries"`
}

// ProviderBuilder constructs a Provider from configuration.
type ProviderBuilder func(name string, cfg *ProviderConfig) (Provider, error)

var (
	providerRegistry   = make(map[string]ProviderBuilder)
	providerRegistryMu sync.RWMutex
)

// RegisterProvider registers a market provider constructor.
func RegisterProvider(typeName string, builder ProviderBuilder) {
	providerRegistryMu.Lock()
	defer providerRegistryMu.Unlock()
	providerRegistry[strings.ToLower(strings.TrimSpace(typeName))] = builder
}

func lookupProviderBuilder(typeName string) (ProviderBuilder, bool) {
	providerRegistryMu.RLock()
	defer providerRegistryMu.RUnlock()
	builder, ok := providerRegistry[strings.ToLower(strings.TrimSpace(typeName))]
	return builder, ok
}

// LoadConfig reads configuration from disk.
func LoadConfig(path string) (*Config, error) {
	confkit.LoadDotenvOnce()
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open market config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// MustLoad reads market configuration from the default project location and panics on error.
func MustLoad() *Config {
	path := confkit.MustProjectPath("etc/market.yaml")
	cfg, err := LoadConfig(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadConfigFromReader constructs a Config from an io.Reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	confkit.LoadDotenvOnce()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read market config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal market config: %w", err)
	}
	if err := cfg.normalise(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalise() error {
	if c.Providers == nil {
		c.Providers = make(map[string]*ProviderConfig)
	}
	for name, provider := range c.Providers {
		if provider == nil {
			provider = &ProviderConfig{}
			c.Providers[name] = provider
		}
		provider.expandEnv()
		if err := provider.parseDurations(name); err != nil {
			return err
		}
	}
	return nil
}

func (p *ProviderConfig) expandEnv() {
	p.Type = confkit.Expand(p.Type)
	p.BaseURL = confkit.Expand(p.BaseURL)
	p.SummaryURL = confkit.Expand(p.SummaryURL)
	p.UserAgent = confkit.Expand(p.UserAgent)
	p.APIKey = confkit.Expand(p.APIKey)
	p.APISecret = confkit.Expand(p.APISecret)
	p.Feed = confkit.Expand(p.Feed)
	p.Timezone = confkit.Expand(p.Timezone)
	p.TimeoutRaw = confkit.Expand(p.TimeoutRaw)
	p.HTTPTimeoutRaw = confkit.Expand(p.HTTPTimeoutRaw)
}

func (p *ProviderConfig) parseDurations(name string) error {
	owner := "market provider " + name
	var err error
	if p.Timeout, err = confkit.ParseDuration(owner, "timeout", p.TimeoutRaw); err != nil {
		return err
	}
	if p.HTTPTimeout, err = confkit.ParseDuration(owner, "http_timeout", p.HTTPTimeoutRaw); err != nil {
		return err
	}
	return nil
}

// Validate ensures the configuration is structurally sound.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("market config: providers cannot be empty")
	}
	if c.Default != "" {
		if _, ok := c.Providers[c.Default]; !ok {
			return fmt.Errorf("market config: default provider %q not defined", c.Default)
		}
	}
	if c.Fallback != "" {
		if _, ok := c.Providers[c.Fallback]; !ok {
			return fmt.Errorf("market config: fallback provider %q not defined", c.Fallback)
		}
		if c.Fallback == c.Default {
			return fmt.Errorf("market config: fallback provider must differ from default")
		}
	}
	for name, provider := range c.Providers {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("market config: provider name cannot be empty")
		}
		if err := provider.validate(name); err != nil {
			return err
		}
	}
	return nil
}

func (p *ProviderConfig) validate(name string) error {
	if p == nil {
		return fmt.Errorf("market config: provider %s is nil", name)
	}
	if strings.TrimSpace(p.Type) == "" {
		return fmt.Errorf("market config: provider %s must specify type", name)
	}
	if _, ok := lookupProviderBuilder(p.Type); !ok {
		return fmt.Errorf("market config: provider %s has unsupported type %q", name, p.Type)
	}
	if p.MaxRetries < 0 {
		return fmt.Errorf("market config: provider %s max_retries must be >= 0", name)
	}
	return nil
}

// DefaultProvider resolves the provider named by Default, or the only one
// configured when Default is empty.
func (c *Config) DefaultProvider(providers map[string]Provider) (Provider, error) {
	if c.Default != "" {
		p, ok := providers[c.Default]
		if !ok {
			return nil, fmt.Errorf("market config: default provider %q not built", c.Default)
		}
		return p, nil
	}
	if len(providers) == 1 {
		for _, p := range providers {
			return p, nil
		}
	}
	return nil, fmt.Errorf("market config: default provider required when %d providers are configured", len(providers))
}

// FallbackProvider resolves the provider named by Fallback, or nil when unset.
func (c *Config) FallbackProvider(providers map[string]Provider) (Provider, error) {
	if c.Fallback == "" {
		return nil, nil
	}
	p, ok := providers[c.Fallback]
	if !ok {
		return nil, fmt.Errorf("market config: fallback provider %q not built", c.Fallback)
	}
	return p, nil
}

// BuildProviders instantiates market data providers according to configuration.
func (c *Config) BuildProviders() (map[string]Provider, error) {
	result := make(map[string]Provider, len(c.Providers))
	for name, providerCfg := range c.Providers {
		builder, ok := lookupProviderBuilder(providerCfg.Type)
		if !ok {
			return nil, fmt.Errorf("market provider %s: unsupported type %q", name, providerCfg.Type)
		}
		provider, err := builder(name, providerCfg)
		if err != nil {
			return nil, fmt.Errorf("market provider %s: %w", name, err)
		}
		result[name] = provider
	}
	return result, nil
}
