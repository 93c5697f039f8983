package config

import (
	"time"

	"github.com/s0up4200/yfscreener/filter"
)

// Config represents the complete configuration structure
type Config struct {
	Upstream UpstreamConfig             `mapstructure:"upstream"`
	Session  SessionConfig              `mapstructure:"session"`
	Cache    CacheConfig                `mapstructure:"cache"`
	Engine   EngineConfig               `mapstructure:"engine"`
	Logging  LoggingConfig              `mapstructure:"logging"`
	Presets  map[string]filter.Criteria `mapstructure:"presets"`
}

// UpstreamConfig holds the screener endpoint and handshake URLs
type UpstreamConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	ConsentURL string        `mapstructure:"consent_url"`
	CrumbURL   string        `mapstructure:"crumb_url"`
	PageURL    string        `mapstructure:"page_url"`
	UserAgent  string        `mapstructure:"user_agent"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// SessionConfig contains session lifetime and acquisition retry settings
type SessionConfig struct {
	MaxAge          time.Duration `mapstructure:"max_age"`
	Attempts        int           `mapstructure:"attempts"`
	InvalidAfter    int           `mapstructure:"invalid_after"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
}

// CacheConfig contains result cache settings
type CacheConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	TTL        time.Duration `mapstructure:"ttl"`
	MaxEntries int           `mapstructure:"max_entries"`
}

// EngineConfig contains pagination, retry and batch settings
type EngineConfig struct {
	PageSize        int           `mapstructure:"page_size"`
	Attempts        int           `mapstructure:"attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	MaxRetryAfter   time.Duration `mapstructure:"max_retry_after"`
	Concurrency     int           `mapstructure:"concurrency"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}
