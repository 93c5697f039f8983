package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"github.com/s0up4200/yfscreener/cache"
	"github.com/s0up4200/yfscreener/screener"
	"github.com/s0up4200/yfscreener/session"
	"github.com/s0up4200/yfscreener/upstream"
)

// EnvPrefix prefixes environment overrides, e.g. YFSCREENER_CACHE_TTL
const EnvPrefix = "YFSCREENER"

// MaxPageSize is the largest page the upstream serves
const MaxPageSize = 250

// Load loads the configuration from file. Without an explicit path a
// missing config file is not an error and defaults apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in standard locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// Check current directory first
		v.AddConfigPath(".")

		// Check home directory
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".yfscreener"))
		}

		// Check /etc
		v.AddConfigPath("/etc/yfscreener/")
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Upstream defaults
	v.SetDefault("upstream.base_url", upstream.DefaultBaseURL)
	v.SetDefault("upstream.consent_url", session.DefaultConsentURL)
	v.SetDefault("upstream.crumb_url", session.DefaultCrumbURL)
	v.SetDefault("upstream.page_url", session.DefaultPageURL)
	v.SetDefault("upstream.user_agent", upstream.DefaultUserAgent)
	v.SetDefault("upstream.timeout", "30s")

	// Session defaults
	v.SetDefault("session.max_age", "30m")
	v.SetDefault("session.attempts", session.DefaultAttempts)
	v.SetDefault("session.invalid_after", session.DefaultInvalidAfter)
	v.SetDefault("session.initial_interval", "500ms")
	v.SetDefault("session.max_interval", "10s")

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("cache.max_entries", cache.DefaultMaxEntries)

	// Engine defaults
	v.SetDefault("engine.page_size", screener.DefaultPageSize)
	v.SetDefault("engine.attempts", screener.DefaultAttempts)
	v.SetDefault("engine.initial_interval", "1s")
	v.SetDefault("engine.max_interval", "30s")
	v.SetDefault("engine.max_retry_after", "1m")
	v.SetDefault("engine.concurrency", screener.DefaultConcurrency)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if cfg.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream.base_url is required")
	}
	if cfg.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream.timeout must be positive")
	}

	if cfg.Session.Attempts < 1 {
		return fmt.Errorf("session.attempts must be at least 1")
	}
	if cfg.Session.InvalidAfter < 1 {
		return fmt.Errorf("session.invalid_after must be at least 1")
	}
	if cfg.Session.MaxAge <= 0 {
		return fmt.Errorf("session.max_age must be positive")
	}

	if cfg.Cache.Enabled && cfg.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive when the cache is enabled")
	}

	if cfg.Engine.PageSize < 1 || cfg.Engine.PageSize > MaxPageSize {
		return fmt.Errorf("engine.page_size must be between 1 and %d", MaxPageSize)
	}
	if cfg.Engine.Attempts < 1 {
		return fmt.Errorf("engine.attempts must be at least 1")
	}
	if cfg.Engine.Concurrency < 1 {
		return fmt.Errorf("engine.concurrency must be at least 1")
	}

	// Validate logging level
	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, cfg.Logging.Level) {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	// Validate logging format
	validFormats := []string{"console", "json"}
	if !slices.Contains(validFormats, cfg.Logging.Format) {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	// Presets are validated up front so a typo fails at startup
	for name, criteria := range cfg.Presets {
		if _, err := criteria.Build(); err != nil {
			return fmt.Errorf("invalid preset %q: %w", name, err)
		}
	}

	return nil
}

// ScreenerOptions maps the configuration onto screener options
func (c *Config) ScreenerOptions() screener.Options {
	return screener.Options{
		BaseURL:    c.Upstream.BaseURL,
		UserAgent:  c.Upstream.UserAgent,
		Timeout:    c.Upstream.Timeout,
		ConsentURL: c.Upstream.ConsentURL,
		CrumbURL:   c.Upstream.CrumbURL,
		PageURL:    c.Upstream.PageURL,
		Cache: cache.Options{
			Enabled:    c.Cache.Enabled,
			TTL:        c.Cache.TTL,
			MaxEntries: c.Cache.MaxEntries,
		},
		Session: session.Options{
			MaxAge:          c.Session.MaxAge,
			Attempts:        c.Session.Attempts,
			InvalidAfter:    c.Session.InvalidAfter,
			InitialInterval: c.Session.InitialInterval,
			MaxInterval:     c.Session.MaxInterval,
		},
		Engine: screener.EngineOptions{
			PageSize:        c.Engine.PageSize,
			Attempts:        c.Engine.Attempts,
			InitialInterval: c.Engine.InitialInterval,
			MaxInterval:     c.Engine.MaxInterval,
			MaxRetryAfter:   c.Engine.MaxRetryAfter,
			CacheTTL:        c.Cache.TTL,
		},
		Concurrency: c.Engine.Concurrency,
	}
}

// PresetNames returns the configured preset names, sorted
func (c *Config) PresetNames() []string {
	names := make([]string, 0, len(c.Presets))
	for name := range c.Presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
