package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full engine configuration. Values come from an optional YAML
// file, overridden by PULSE_* environment variables; a .env file is loaded
// first when present.
type Config struct {
	Debug bool `mapstructure:"debug"`

	SourcesFile    string `mapstructure:"sources_file"`
	PublishersFile string `mapstructure:"publishers_file"`

	Browser BrowserConfig `mapstructure:"browser"`

	Classifier ClassifierConfig `mapstructure:"classifier"`

	CachePath string        `mapstructure:"cache_path"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
	StorePath string        `mapstructure:"store_path"`

	DefaultLimit int    `mapstructure:"default_limit"`
	Dedupe       string `mapstructure:"dedupe"`
}

// BrowserConfig tunes the session pool and page navigation.
type BrowserConfig struct {
	PoolSize          int           `mapstructure:"pool_size"`
	OpTimeout         time.Duration `mapstructure:"op_timeout"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	BackoffBase       time.Duration `mapstructure:"backoff_base"`
	BackoffMultiplier float64       `mapstructure:"backoff_multiplier"`
}

// ClassifierConfig points at the hosted sentiment model. An empty endpoint
// selects the keyword fallback.
type ClassifierConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Spacing  time.Duration `mapstructure:"spacing"`
	Cooldown time.Duration `mapstructure:"cooldown"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Load reads configuration from the given file (optional; empty path skips
// the file entirely) and the environment.
func Load(path string) (Config, error) {
	// Missing .env is the normal case outside local development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("sources_file", "configs/sources.yaml")
	v.SetDefault("publishers_file", "")

	v.SetDefault("browser.pool_size", 3)
	v.SetDefault("browser.op_timeout", 30*time.Second)
	v.SetDefault("browser.max_attempts", 3)
	v.SetDefault("browser.backoff_base", 2*time.Second)
	v.SetDefault("browser.backoff_multiplier", 2.0)

	v.SetDefault("classifier.endpoint", "")
	v.SetDefault("classifier.api_key", "")
	v.SetDefault("classifier.spacing", time.Second)
	v.SetDefault("classifier.cooldown", 30*time.Second)
	v.SetDefault("classifier.timeout", 20*time.Second)

	v.SetDefault("cache_path", "data/cache.db")
	v.SetDefault("cache_ttl", time.Hour)
	v.SetDefault("store_path", "data/history.db")

	v.SetDefault("default_limit", 20)
	v.SetDefault("dedupe", "none")
}

func (c Config) validate() error {
	if c.SourcesFile == "" {
		return fmt.Errorf("config: sources_file is required")
	}
	if c.Browser.PoolSize <= 0 {
		return fmt.Errorf("config: browser.pool_size must be positive, got %d", c.Browser.PoolSize)
	}
	if c.DefaultLimit <= 0 {
		return fmt.Errorf("config: default_limit must be positive, got %d", c.DefaultLimit)
	}
	switch c.Dedupe {
	case "none", "url", "title":
	default:
		return fmt.Errorf("config: dedupe must be one of none, url, title; got %q", c.Dedupe)
	}
	return nil
}
