package infra

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds every application setting. Sensitive values are overridden
// from the environment after loading.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Simulator struct {
		Symbols           []string `yaml:"symbols"`
		TickIntervalMS    int      `yaml:"tick_interval_ms"`
		InitialCondition  string   `yaml:"initial_condition"`
		InitialVolatility float64  `yaml:"initial_volatility"`
		RegimeChangeProb  float64  `yaml:"regime_change_prob"`
		TradeProbability  float64  `yaml:"trade_probability"`
		DepthProbability  float64  `yaml:"depth_probability"`
		NewsProbability   float64  `yaml:"news_probability"`
		EnableNews        bool     `yaml:"enable_news"`
		EnableOrderBook   bool     `yaml:"enable_order_book"`
		EnableTechnicals  bool     `yaml:"enable_technicals"`
		FanOut            bool     `yaml:"fan_out"`
		Seed              int64    `yaml:"seed"`
	} `yaml:"simulator"`

	Cache struct {
		MaxEntries int `yaml:"max_entries"`
		TTLSec     int `yaml:"ttl_sec"`
	} `yaml:"cache"`

	News struct {
		URL        string `yaml:"url"`
		APIKey     string `yaml:"api_key"`
		TimeoutSec int    `yaml:"timeout_sec"`
	} `yaml:"news"`

	Storage struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"storage"`

	API struct {
		Enabled bool `yaml:"enabled"`
		Port    int  `yaml:"port"`
	} `yaml:"api"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if len(c.Simulator.Symbols) == 0 {
		return fmt.Errorf("at least one symbol is required")
	}
	if c.Simulator.TickIntervalMS <= 0 {
		return fmt.Errorf("tick interval must be positive")
	}
	for _, p := range []struct {
		name  string
		value float64
	}{
		{"initial_volatility", c.Simulator.InitialVolatility},
		{"regime_change_prob", c.Simulator.RegimeChangeProb},
		{"trade_probability", c.Simulator.TradeProbability},
		{"depth_probability", c.Simulator.DepthProbability},
		{"news_probability", c.Simulator.NewsProbability},
	} {
		if p.value < 0 || p.value > 1 {
			return fmt.Errorf("%s must be within [0, 1], got %v", p.name, p.value)
		}
	}
	if c.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache max_entries must not be negative")
	}
	if c.Cache.TTLSec < 0 {
		return fmt.Errorf("cache ttl_sec must not be negative")
	}
	if c.API.Enabled && (c.API.Port <= 0 || c.API.Port > 65535) {
		return fmt.Errorf("invalid API port: %d", c.API.Port)
	}
	return nil
}

// overrideWithEnv applies environment overrides for sensitive values.
func overrideWithEnv(cfg *Config) {
	if url := os.Getenv("MARKETSIM_NEWS_URL"); url != "" {
		cfg.News.URL = url
	}
	if key := os.Getenv("MARKETSIM_NEWS_KEY"); key != "" {
		cfg.News.APIKey = key
	}
}
