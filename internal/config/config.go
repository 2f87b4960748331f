package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config wraps the viper instance backing the application configuration.
type Config struct {
	v *viper.Viper
}

// New creates a configuration from the usual search path, environment and
// defaults, and validates it. Invalid weights or thresholds are rejected
// here, at load time, so analyses never see a broken config.
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/mailtriage/")
	v.AddConfigPath("$HOME/.mailtriage")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("MAILTRIAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	cfg := &Config{v: v}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewFromViper wraps an existing viper instance without re-validating it;
// callers assembling config programmatically run Validate themselves.
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a viper instance preloaded with the defaults.
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	// Orchestration defaults
	v.SetDefault("orchestrator.total_deadline", "10s")
	v.SetDefault("orchestrator.flag_at", 0.4)
	v.SetDefault("orchestrator.quarantine_at", 0.7)
	v.SetDefault("orchestrator.weights.content", 0.30)
	v.SetDefault("orchestrator.weights.link", 0.25)
	v.SetDefault("orchestrator.weights.behavior", 0.20)
	v.SetDefault("orchestrator.weights.header", 0.15)
	v.SetDefault("orchestrator.weights.qr", 0.10)

	// Per-agent sub-deadlines: network/image agents get more headroom
	v.SetDefault("agents.content.timeout", "5s")
	v.SetDefault("agents.link.timeout", "6s")
	v.SetDefault("agents.behavior.timeout", "2s")
	v.SetDefault("agents.header.timeout", "1s")
	v.SetDefault("agents.qr.timeout", "6s")

	// Link agent defaults
	v.SetDefault("link.whois_enabled", true)
	v.SetDefault("link.whois_timeout", "3s")
	v.SetDefault("link.trusted_domains", []string{})
	v.SetDefault("link.shortener_hosts", []string{})
	v.SetDefault("link.suspicious_tlds", []string{})
	v.SetDefault("link.suspicious_params", []string{})

	// Header agent defaults
	v.SetDefault("header.max_hops", 6)

	// Reputation store defaults
	v.SetDefault("store.type", "memory")
	v.SetDefault("store.sqlite_path", "/data/mailtriage_reputation.db")
	v.SetDefault("store.mysql_dsn", "user:password@tcp(localhost:3306)/mailtriage")
	v.SetDefault("store.postgres_dsn", "postgres://localhost:5432/mailtriage?sslmode=disable")
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.redis_password", "")
	v.SetDefault("store.redis_db", 0)

	// Content scorer defaults
	v.SetDefault("scorer.provider", "keyword")

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model_name", "gpt-4")
	v.SetDefault("openai.max_tokens", 1000)
	v.SetDefault("openai.temperature", 0.1)
	v.SetDefault("openai.top_p", 0.9)
	v.SetDefault("openai.max_body_size", 4096)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-pro")
	v.SetDefault("gemini.max_tokens", 1000)
	v.SetDefault("gemini.temperature", 0.1)
	v.SetDefault("gemini.top_p", 0.9)
	v.SetDefault("gemini.max_body_size", 4096)

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-v2")
	v.SetDefault("bedrock.max_tokens", 1000)
	v.SetDefault("bedrock.temperature", 0.1)
	v.SetDefault("bedrock.top_p", 0.9)
	v.SetDefault("bedrock.max_body_size", 4096)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file_path", "")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 30)
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) time.Duration {
	return c.v.GetDuration(key)
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
