package config

import (
	"fmt"
	"time"

	"github.com/mailtriage/mailtriage/internal/core"
)

// LinkConfig represents the configuration for the link agent
type LinkConfig struct {
	WhoisEnabled     bool
	WhoisTimeout     time.Duration
	TrustedDomains   []string
	ShortenerHosts   []string
	SuspiciousTLDs   []string
	SuspiciousParams []string
}

// HeaderConfig represents the configuration for the header agent
type HeaderConfig struct {
	MaxHops int
}

// StoreConfig represents the configuration for the reputation store
type StoreConfig struct {
	Type          string
	SQLitePath    string
	MySQLDSN      string
	PostgresDSN   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// ScorerConfig represents the configuration for the content scorer
type ScorerConfig struct {
	Provider string
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// LoggingConfig represents the logging configuration
type LoggingConfig struct {
	Level      string
	Format     string
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// GetOrchestration assembles the orchestration config consumed per request.
func (c *Config) GetOrchestration() *core.OrchestrationConfig {
	return &core.OrchestrationConfig{
		Weights: map[string]float64{
			core.AgentContent:  c.GetFloat64("orchestrator.weights.content"),
			core.AgentLink:     c.GetFloat64("orchestrator.weights.link"),
			core.AgentBehavior: c.GetFloat64("orchestrator.weights.behavior"),
			core.AgentHeader:   c.GetFloat64("orchestrator.weights.header"),
			core.AgentQR:       c.GetFloat64("orchestrator.weights.qr"),
		},
		FlagAt:        c.GetFloat64("orchestrator.flag_at"),
		QuarantineAt:  c.GetFloat64("orchestrator.quarantine_at"),
		TotalDeadline: c.GetDuration("orchestrator.total_deadline"),
		AgentTimeouts: map[string]time.Duration{
			core.AgentContent:  c.GetDuration("agents.content.timeout"),
			core.AgentLink:     c.GetDuration("agents.link.timeout"),
			core.AgentBehavior: c.GetDuration("agents.behavior.timeout"),
			core.AgentHeader:   c.GetDuration("agents.header.timeout"),
			core.AgentQR:       c.GetDuration("agents.qr.timeout"),
		},
	}
}

// GetLink returns the link agent configuration
func (c *Config) GetLink() LinkConfig {
	return LinkConfig{
		WhoisEnabled:     c.GetBool("link.whois_enabled"),
		WhoisTimeout:     c.GetDuration("link.whois_timeout"),
		TrustedDomains:   c.GetStringSlice("link.trusted_domains"),
		ShortenerHosts:   c.GetStringSlice("link.shortener_hosts"),
		SuspiciousTLDs:   c.GetStringSlice("link.suspicious_tlds"),
		SuspiciousParams: c.GetStringSlice("link.suspicious_params"),
	}
}

// GetHeader returns the header agent configuration
func (c *Config) GetHeader() HeaderConfig {
	return HeaderConfig{
		MaxHops: c.GetInt("header.max_hops"),
	}
}

// GetStore returns the reputation store configuration
func (c *Config) GetStore() StoreConfig {
	return StoreConfig{
		Type:          c.GetString("store.type"),
		SQLitePath:    c.GetString("store.sqlite_path"),
		MySQLDSN:      c.GetString("store.mysql_dsn"),
		PostgresDSN:   c.GetString("store.postgres_dsn"),
		RedisAddr:     c.GetString("store.redis_addr"),
		RedisPassword: c.GetString("store.redis_password"),
		RedisDB:       c.GetInt("store.redis_db"),
	}
}

// GetScorer returns the content scorer configuration
func (c *Config) GetScorer() ScorerConfig {
	return ScorerConfig{
		Provider: c.GetString("scorer.provider"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		MaxBodySize: c.GetInt("openai.max_body_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
		MaxBodySize: c.GetInt("gemini.max_body_size"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
		MaxBodySize: c.GetInt("bedrock.max_body_size"),
	}
}

// GetLogging returns the logging configuration
func (c *Config) GetLogging() LoggingConfig {
	return LoggingConfig{
		Level:      c.GetString("logging.level"),
		Format:     c.GetString("logging.format"),
		FilePath:   c.GetString("logging.file_path"),
		MaxSizeMB:  c.GetInt("logging.max_size_mb"),
		MaxBackups: c.GetInt("logging.max_backups"),
		MaxAgeDays: c.GetInt("logging.max_age_days"),
	}
}

// Validate rejects configurations the orchestrator must never run with.
func (c *Config) Validate() error {
	if err := c.GetOrchestration().Validate(); err != nil {
		return err
	}
	switch t := c.GetString("store.type"); t {
	case "memory", "sqlite", "mysql", "postgres", "redis":
	default:
		return fmt.Errorf("%w: unknown store type %q", core.ErrConfigInvalid, t)
	}
	switch p := c.GetString("scorer.provider"); p {
	case "keyword", "openai", "gemini", "bedrock":
	default:
		return fmt.Errorf("%w: unknown scorer provider %q", core.ErrConfigInvalid, p)
	}
	return nil
}
