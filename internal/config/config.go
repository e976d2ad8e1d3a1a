// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	Headless  HeadlessConfig  `mapstructure:"headless"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Export    ExportConfig    `mapstructure:"export"`
	Plan      PlanConfig      `mapstructure:"plan"`
	DB        DBConfig        `mapstructure:"db"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// CrawlerConfig governs per-site crawl behavior.
type CrawlerConfig struct {
	UserAgent           string `mapstructure:"user_agent"`
	MaxPagesDefault     int    `mapstructure:"max_pages_default"`
	MaxDepthDefault     int    `mapstructure:"max_depth_default"`
	TimeoutSeconds      int    `mapstructure:"timeout_seconds"`
	MaxBodyBytes        int    `mapstructure:"max_body_bytes"`
	InterRequestDelayMs int    `mapstructure:"inter_request_delay_ms"`
	RespectRobots       bool   `mapstructure:"respect_robots"`
}

// HeadlessConfig configures the rendering fallback.
type HeadlessConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	NavTimeoutSec int  `mapstructure:"nav_timeout_seconds"`
	MinBodyBytes  int  `mapstructure:"min_body_bytes"`
}

// SchedulerConfig governs the dataset worker pool.
type SchedulerConfig struct {
	Workers           int `mapstructure:"workers"`
	JobFreshnessHours int `mapstructure:"job_freshness_hours"`
}

// ExportConfig sets artifact destinations.
type ExportConfig struct {
	Dir       string `mapstructure:"dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// PlanConfig sets the process-wide plan when no billing backend is wired.
type PlanConfig struct {
	DefaultTier   string `mapstructure:"default_tier"`
	InternalUsers bool   `mapstructure:"internal_users"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// PubSubConfig holds metadata for the action event topic.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LEADHARVEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("crawler.user_agent", "leadharvest-bot/0.1")
	v.SetDefault("crawler.max_pages_default", 15)
	v.SetDefault("crawler.max_depth_default", 2)
	v.SetDefault("crawler.timeout_seconds", 12)
	v.SetDefault("crawler.max_body_bytes", 1536*1024)
	v.SetDefault("crawler.inter_request_delay_ms", 500)
	v.SetDefault("crawler.respect_robots", true)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("headless.min_body_bytes", 512)
	v.SetDefault("scheduler.workers", 4)
	v.SetDefault("scheduler.job_freshness_hours", 24)
	v.SetDefault("export.dir", "exports")
	v.SetDefault("plan.default_tier", "free")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Crawler.TimeoutSeconds <= 0 {
		return fmt.Errorf("crawler.timeout_seconds must be > 0")
	}
	if c.Crawler.MaxPagesDefault <= 0 {
		return fmt.Errorf("crawler.max_pages_default must be > 0")
	}
	if c.Scheduler.Workers <= 0 {
		return fmt.Errorf("scheduler.workers must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.Export.Dir == "" && c.Export.GCSBucket == "" {
		return fmt.Errorf("export.dir or export.gcs_bucket must be set")
	}
	return nil
}

// CrawlTimeout converts the fetch timeout into a duration.
func (c Config) CrawlTimeout() time.Duration {
	return time.Duration(c.Crawler.TimeoutSeconds) * time.Second
}

// InterRequestDelay converts the per-site politeness delay.
func (c Config) InterRequestDelay() time.Duration {
	return time.Duration(c.Crawler.InterRequestDelayMs) * time.Millisecond
}

// JobFreshness converts the scheduler idempotency window.
func (c Config) JobFreshness() time.Duration {
	return time.Duration(c.Scheduler.JobFreshnessHours) * time.Hour
}
