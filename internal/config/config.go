package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/restockwatch/internal/privacy"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFile     = "config.yaml"
	DefaultEventFile      = "event.json"
	DefaultFeedProvider   = "twitter"
	DefaultFeedTimeout    = 30 * time.Second
	DefaultPageSize       = 20
	DefaultNotifyProvider = "sns"
	DefaultTopicEnv       = "sns_topic_arn"
	FallbackTopicEnv      = "SNS_TOPIC_ARN"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "json"
	DefaultMatchWorkers   = 1
	HandlePlaceholder     = "{handle}"
)

// Environment overrides applied after the file is read.
const (
	EnvFeedProvider   = "RESTOCKWATCH_FEED_PROVIDER"
	EnvNotifyProvider = "RESTOCKWATCH_NOTIFY_PROVIDER"
	EnvLogLevel       = "RESTOCKWATCH_LOG_LEVEL"
	EnvLogFormat      = "RESTOCKWATCH_LOG_FORMAT"
	EnvAWSRegion      = "AWS_REGION"
	EnvOTLPEndpoint   = "OTEL_EXPORTER_OTLP_ENDPOINT"
)

// Duration wraps time.Duration for YAML unmarshaling from strings like "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

type Config struct {
	Feed    FeedConfig    `yaml:"feed"`
	Notify  NotifyConfig  `yaml:"notify"`
	Match   MatchConfig   `yaml:"match"`
	Log     LogConfig     `yaml:"log"`
	Privacy PrivacyConfig `yaml:"privacy"`
	Tracing TracingConfig `yaml:"tracing"`
}

type FeedConfig struct {
	Provider    string   `yaml:"provider"`
	BaseURL     string   `yaml:"base_url"`
	URLTemplate string   `yaml:"url_template"`
	PageSize    int      `yaml:"page_size"`
	Timeout     Duration `yaml:"timeout"`
}

type NotifyConfig struct {
	Provider string         `yaml:"provider"`
	Topic    string         `yaml:"topic"`
	TopicEnv string         `yaml:"topic_env"`
	Region   string         `yaml:"region"`
	Telegram TelegramConfig `yaml:"telegram"`
}

type TelegramConfig struct {
	TokenEnv string `yaml:"token_env"`
	Endpoint string `yaml:"endpoint"`

	// Resolved from env var at load time.
	Token string `yaml:"-"`
}

type MatchConfig struct {
	Workers int `yaml:"workers"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type PrivacyConfig struct {
	Redact RedactConfig `yaml:"redact"`
}

type RedactConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Patterns []string `yaml:"patterns"`
}

type TracingConfig struct {
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// MissingError reports a required configuration value that is not set.
type MissingError struct {
	Key string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("missing required configuration value %s", e.Key)
}

// Load reads config.yaml from dir, applies defaults, resolves env vars, and validates.
func Load(dir string) (*Config, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("config dir is required")
	}

	path := filepath.Join(dir, DefaultConfigFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return finish(&cfg)
}

// FromEnv builds a Config from defaults and environment variables only.
// This is the path taken inside the Lambda runtime, where no config file ships.
func FromEnv() (*Config, error) {
	return finish(&Config{})
}

func finish(cfg *Config) (*Config, error) {
	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	resolveEnv(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Topic returns the notification destination. A missing topic is only an
// error once something needs to be published.
func (c *Config) Topic() (string, error) {
	if c.Notify.Topic != "" {
		return c.Notify.Topic, nil
	}
	return "", &MissingError{Key: c.Notify.TopicEnv}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvFeedProvider); v != "" {
		cfg.Feed.Provider = v
	}
	if v := os.Getenv(EnvNotifyProvider); v != "" {
		cfg.Notify.Provider = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv(EnvAWSRegion); v != "" && cfg.Notify.Region == "" {
		cfg.Notify.Region = v
	}
	if v := os.Getenv(EnvOTLPEndpoint); v != "" && cfg.Tracing.Endpoint == "" {
		cfg.Tracing.Endpoint = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Feed.Provider == "" {
		cfg.Feed.Provider = DefaultFeedProvider
	}
	if cfg.Feed.Timeout.Duration == 0 {
		cfg.Feed.Timeout.Duration = DefaultFeedTimeout
	}
	if cfg.Feed.PageSize == 0 {
		cfg.Feed.PageSize = DefaultPageSize
	}
	if cfg.Notify.Provider == "" {
		cfg.Notify.Provider = DefaultNotifyProvider
	}
	if cfg.Notify.TopicEnv == "" {
		cfg.Notify.TopicEnv = DefaultTopicEnv
	}
	if cfg.Match.Workers == 0 {
		cfg.Match.Workers = DefaultMatchWorkers
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

func resolveEnv(cfg *Config) {
	if cfg.Notify.Topic == "" {
		cfg.Notify.Topic = os.Getenv(cfg.Notify.TopicEnv)
	}
	if cfg.Notify.Topic == "" {
		cfg.Notify.Topic = os.Getenv(FallbackTopicEnv)
	}
	if cfg.Notify.Telegram.TokenEnv != "" {
		cfg.Notify.Telegram.Token = os.Getenv(cfg.Notify.Telegram.TokenEnv)
	}
}

func validate(cfg *Config) error {
	switch cfg.Feed.Provider {
	case "twitter", "reddit", "hn":
		// valid
	case "rss":
		if !strings.Contains(cfg.Feed.URLTemplate, HandlePlaceholder) {
			return fmt.Errorf("feed.url_template: must contain %s for the rss provider", HandlePlaceholder)
		}
	default:
		return fmt.Errorf("feed.provider: unknown provider %q (want twitter, rss, reddit or hn)", cfg.Feed.Provider)
	}

	if cfg.Feed.Timeout.Duration < 0 {
		return fmt.Errorf("feed.timeout: must not be negative, got %v", cfg.Feed.Timeout.Duration)
	}
	if cfg.Feed.PageSize < 1 {
		return fmt.Errorf("feed.page_size: must be at least 1, got %d", cfg.Feed.PageSize)
	}

	switch cfg.Notify.Provider {
	case "sns":
		// valid
	case "telegram":
		if cfg.Notify.Telegram.Token == "" {
			return errors.New("notify.telegram: bot token is required (set token_env)")
		}
	default:
		return fmt.Errorf("notify.provider: unknown provider %q (want sns or telegram)", cfg.Notify.Provider)
	}

	if cfg.Match.Workers < 1 {
		return fmt.Errorf("match.workers: must be at least 1, got %d", cfg.Match.Workers)
	}

	if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch cfg.Log.Format {
	case "json", "console":
		// valid
	default:
		return fmt.Errorf("log.format: unknown format %q (want json or console)", cfg.Log.Format)
	}

	if cfg.Privacy.Redact.Enabled {
		if _, err := privacy.Compile(cfg.Privacy.Redact.Patterns); err != nil {
			return fmt.Errorf("privacy.redact: %w", err)
		}
	}

	return nil
}
