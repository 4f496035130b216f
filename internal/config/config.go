// Package config provides configuration management for mcxdesk.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "mcxdesk/internal/errors"
	"mcxdesk/internal/logging"
	"mcxdesk/internal/models"
)

// Config holds all application configuration.
type Config struct {
	Upstream      UpstreamConfig       `mapstructure:"upstream"`
	Proxy         ProxyConfig          `mapstructure:"proxy"`
	Session       SessionConfig        `mapstructure:"session"`
	Alerts        models.AlertSettings `mapstructure:"alerts"`
	Export        ExportConfig         `mapstructure:"export"`
	Store         StoreConfig          `mapstructure:"store"`
	Notifications NotificationConfig   `mapstructure:"notifications"`
	Log           logging.LogConfig    `mapstructure:"log"`
}

// UpstreamConfig describes the exchange endpoint the proxy forwards to.
type UpstreamConfig struct {
	URL       string        `mapstructure:"url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
	Referer   string        `mapstructure:"referer"`
	Origin    string        `mapstructure:"origin"`
}

// ProxyConfig holds the HTTP listener and the URL clients use to reach it.
type ProxyConfig struct {
	Addr        string        `mapstructure:"addr"`
	URL         string        `mapstructure:"url"` // option-chain endpoint the fetcher calls
	Timeout     time.Duration `mapstructure:"timeout"`
	CORSOrigins []string      `mapstructure:"cors_origins"`
}

// SessionConfig holds polling and history settings.
type SessionConfig struct {
	Instrument          string        `mapstructure:"instrument"`
	Expiry              string        `mapstructure:"expiry"`
	CatalogFile         string        `mapstructure:"catalog_file"`
	LiveInterval        time.Duration `mapstructure:"live_interval"`
	AutoRefreshInterval time.Duration `mapstructure:"auto_refresh_interval"`
	HistoryCapacity     int           `mapstructure:"history_capacity"` // 0 = unbounded
}

// ExportConfig holds CSV export settings.
type ExportConfig struct {
	Dir           string                `mapstructure:"dir"`
	ManualMaxRows int                   `mapstructure:"manual_max_rows"`
	Auto          models.ExportSettings `mapstructure:",squash"`
}

// StoreConfig holds the SQLite session journal settings.
type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// NotificationConfig holds notification configuration.
type NotificationConfig struct {
	Level    string        `mapstructure:"level"` // all, alerts_only, errors_only
	Terminal bool          `mapstructure:"terminal"`
	Webhook  WebhookConfig `mapstructure:"webhook"`
	Redis    RedisConfig   `mapstructure:"redis"`
}

// WebhookConfig holds webhook notification configuration.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// RedisConfig holds the Redis pub/sub notification configuration.
type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Channel string `mapstructure:"channel"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/mcxdesk"
	}
	return filepath.Join(home, ".config", "mcxdesk")
}

// LoadEnv loads a .env file from the working directory if one exists.
func LoadEnv() {
	_ = godotenv.Load()
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A missing
// config.toml is replaced by the template and defaults are used.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := newViper(configDir)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
		if err := writeTemplate(configDir); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration produced by the built-in defaults only.
func Default() *Config {
	v := viper.New()
	setDefaults(v, DefaultConfigDir())
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

func newViper(configDir string) *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	v.SetEnvPrefix("MCXDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, configDir)
	return v
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("upstream.url", "https://www.mcxindia.com/backpage.aspx/GetOptionChain")
	v.SetDefault("upstream.timeout", 15*time.Second)
	v.SetDefault("upstream.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	v.SetDefault("upstream.referer", "https://www.mcxindia.com/")
	v.SetDefault("upstream.origin", "https://www.mcxindia.com")

	v.SetDefault("proxy.addr", ":8080")
	v.SetDefault("proxy.url", "http://localhost:8080/api/option-chain")
	v.SetDefault("proxy.timeout", 20*time.Second)
	v.SetDefault("proxy.cors_origins", []string{"*"})

	v.SetDefault("session.instrument", "CRUDEOIL")
	v.SetDefault("session.expiry", "17JUL2025")
	v.SetDefault("session.catalog_file", filepath.Join(configDir, "catalog.yaml"))
	v.SetDefault("session.live_interval", 10*time.Second)
	v.SetDefault("session.auto_refresh_interval", 5*time.Minute)
	v.SetDefault("session.history_capacity", 5000)

	alerts := models.DefaultAlertSettings()
	v.SetDefault("alerts.enabled", alerts.Enabled)
	v.SetDefault("alerts.threshold_percent", alerts.ThresholdPercent)
	v.SetDefault("alerts.critical_percent", alerts.CriticalPercent)
	v.SetDefault("alerts.sound_enabled", alerts.SoundEnabled)

	export := models.DefaultExportSettings()
	v.SetDefault("export.dir", filepath.Join(configDir, "exports"))
	v.SetDefault("export.manual_max_rows", 1000)
	v.SetDefault("export.auto_enabled", export.Enabled)
	v.SetDefault("export.record_threshold", export.RecordThreshold)
	v.SetDefault("export.delay", export.Delay)

	v.SetDefault("store.enabled", false)
	v.SetDefault("store.path", filepath.Join(configDir, "mcxdesk.db"))

	v.SetDefault("notifications.level", "all")
	v.SetDefault("notifications.terminal", true)
	v.SetDefault("notifications.webhook.enabled", false)
	v.SetDefault("notifications.webhook.url", "")
	v.SetDefault("notifications.redis.enabled", false)
	v.SetDefault("notifications.redis.url", "redis://localhost:6379/0")
	v.SetDefault("notifications.redis.channel", "mcxdesk:alerts")

	logCfg := logging.DefaultLogConfig()
	logCfg.FilePath = filepath.Join(configDir, "logs", "mcxdesk.log")
	v.SetDefault("log.level", logCfg.Level)
	v.SetDefault("log.console", logCfg.Console)
	v.SetDefault("log.file", logCfg.File)
	v.SetDefault("log.file_path", logCfg.FilePath)
	v.SetDefault("log.max_size", logCfg.MaxSize)
	v.SetDefault("log.max_backups", logCfg.MaxBackups)
	v.SetDefault("log.max_age", logCfg.MaxAge)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Notifications.Redis.URL = v
	}
	if v := os.Getenv("WEBHOOK_URL"); v != "" {
		cfg.Notifications.Webhook.URL = v
	}
	if v := os.Getenv("MCX_URL"); v != "" {
		cfg.Upstream.URL = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Upstream.URL == "" {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "upstream.url is required")
	}
	if c.Proxy.URL == "" {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "proxy.url is required")
	}
	if c.Session.LiveInterval <= 0 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "session.live_interval must be positive")
	}
	if c.Session.AutoRefreshInterval < time.Second {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "session.auto_refresh_interval must be at least 1s")
	}
	if c.Session.HistoryCapacity < 0 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "session.history_capacity must be non-negative")
	}
	if c.Alerts.ThresholdPercent <= 0 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "alerts.threshold_percent must be positive")
	}
	if c.Alerts.CriticalPercent < c.Alerts.ThresholdPercent {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "alerts.critical_percent must be >= threshold_percent")
	}
	if c.Export.Auto.RecordThreshold <= 0 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "export.record_threshold must be positive")
	}
	if c.Export.Auto.Delay < 0 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "export.delay must be non-negative")
	}
	switch c.Notifications.Level {
	case "", "all", "alerts_only", "errors_only":
	default:
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "unknown notifications.level %q", c.Notifications.Level)
	}
	if c.Notifications.Redis.Enabled && c.Notifications.Redis.URL == "" {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "notifications.redis.url is required when redis is enabled")
	}
	return nil
}
