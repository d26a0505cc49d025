package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds ieltsmeta configuration.
type Config struct {
	Server    ServerCfg                 `mapstructure:"server" yaml:"server"`
	Model     ModelCfg                  `mapstructure:"model" yaml:"model"`
	Providers map[string]LLMProviderCfg `mapstructure:"providers" yaml:"providers"`
	Images    ImagesCfg                 `mapstructure:"images" yaml:"images"`
	Batch     BatchCfg                  `mapstructure:"batch" yaml:"batch"`
	LLMCalls  LLMCallsCfg               `mapstructure:"llmcalls" yaml:"llmcalls"`
	Log       LogCfg                    `mapstructure:"log" yaml:"log"`
}

// ServerCfg is where the HTTP server listens. HOST and PORT are honored
// when the prefixed variables are unset.
type ServerCfg struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// Addr returns host:port.
func (s ServerCfg) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// ModelCfg selects the vision model and bounds its use.
type ModelCfg struct {
	Provider       string  `mapstructure:"provider" yaml:"provider"`     // Key into Providers
	Name           string  `mapstructure:"name" yaml:"name"`             // Overrides the provider's model when set
	Replicas       int     `mapstructure:"replicas" yaml:"replicas"`     // Inferences in flight
	RateLimit      float64 `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per second; 0 uses the provider's
	Temperature    float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens      int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"` // Per image; 0 disables
}

// Timeout returns the per-image timeout.
func (m ModelCfg) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// LLMProviderCfg configures a vision LLM provider.
type LLMProviderCfg struct {
	Type      string  `mapstructure:"type" yaml:"type"`             // "openrouter", "openai", "mock"
	Model     string  `mapstructure:"model" yaml:"model"`           // Model name
	APIKey    string  `mapstructure:"api_key" yaml:"api_key"`       // API key (supports ${ENV_VAR} syntax)
	BaseURL   string  `mapstructure:"base_url" yaml:"base_url"`     // Optional endpoint override
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per second
	Enabled   bool    `mapstructure:"enabled" yaml:"enabled"`
}

// ImagesCfg controls image intake.
type ImagesCfg struct {
	InlineRemote        bool `mapstructure:"inline_remote" yaml:"inline_remote"` // Download URLs and send data URIs
	MaxBytes            int  `mapstructure:"max_bytes" yaml:"max_bytes"`
	MaxPixels           int  `mapstructure:"max_pixels" yaml:"max_pixels"` // Declared width*height; checked before decoding
	FetchTimeoutSeconds int  `mapstructure:"fetch_timeout_seconds" yaml:"fetch_timeout_seconds"`
	FetchAttempts       int  `mapstructure:"fetch_attempts" yaml:"fetch_attempts"`
}

// BatchCfg bounds batch requests.
type BatchCfg struct {
	MaxItems    int `mapstructure:"max_items" yaml:"max_items"`
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
}

// LLMCallsCfg sizes the in-memory inference call log.
type LLMCallsCfg struct {
	Capacity int `mapstructure:"capacity" yaml:"capacity"`
}

// LogCfg configures logging.
type LogCfg struct {
	Level string `mapstructure:"level" yaml:"level"` // debug, info, warn, error
}

// GetProvider returns a provider config by name.
func (c *Config) GetProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.Providers[name]
	return cfg, ok
}

// EnabledProviders returns all enabled providers.
func (c *Config) EnabledProviders() map[string]LLMProviderCfg {
	result := make(map[string]LLMProviderCfg)
	for name, cfg := range c.Providers {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}
