package config

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// ErrInvalidKey is returned when a config key contains invalid characters.
var ErrInvalidKey = fmt.Errorf("invalid config key")

// ValidateKey checks if a config key contains only allowed characters.
// Valid keys contain: letters, digits, dots, underscores, and hyphens.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}
	for i, r := range key {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '_' && r != '-' {
			return fmt.Errorf("%w: invalid character %q at position %d", ErrInvalidKey, r, i)
		}
	}
	if key[0] == '.' || key[len(key)-1] == '.' {
		return fmt.Errorf("%w: key cannot start or end with a dot", ErrInvalidKey)
	}
	return nil
}

// Entry is one documented configuration key and its default.
type Entry struct {
	Key         string `json:"key" yaml:"key"`
	Value       any    `json:"value" yaml:"value"`
	Description string `json:"description" yaml:"description"`
}

// EnvVar returns the prefixed environment variable that overrides the key.
func (e Entry) EnvVar() string {
	return envPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(e.Key))
}

// DefaultEntries returns the default configuration entries. They are
// registered as viper defaults, so every key here can be overridden from the
// config file or the environment.
func DefaultEntries() []Entry {
	return []Entry{
		// ===================
		// Server
		// ===================
		{
			Key:         "server.host",
			Value:       "0.0.0.0",
			Description: "Interface the HTTP server binds (HOST is honored as a fallback)",
		},
		{
			Key:         "server.port",
			Value:       8000,
			Description: "Port the HTTP server listens on (PORT is honored as a fallback)",
		},

		// ===================
		// Model
		// ===================
		{
			Key:         "model.provider",
			Value:       "openrouter",
			Description: "Provider used for extraction (a key under providers)",
		},
		{
			Key:         "model.name",
			Value:       "",
			Description: "Model name sent to the provider (empty uses the provider's model)",
		},
		{
			Key:         "model.replicas",
			Value:       1,
			Description: "Number of inferences allowed in flight at once",
		},
		{
			Key:         "model.rate_limit",
			Value:       0.0,
			Description: "Requests per second against the model (0 uses the provider's limit)",
		},
		{
			Key:         "model.temperature",
			Value:       0.0,
			Description: "Sampling temperature",
		},
		{
			Key:         "model.max_tokens",
			Value:       2048,
			Description: "Maximum tokens in the model's answer",
		},
		{
			Key:         "model.timeout_seconds",
			Value:       180,
			Description: "Per-image extraction timeout (0 disables)",
		},

		// ===================
		// Providers
		// ===================

		// Providers - OpenRouter
		{
			Key:         "providers.openrouter.type",
			Value:       "openrouter",
			Description: "Provider type for OpenRouter",
		},
		{
			Key:         "providers.openrouter.model",
			Value:       "qwen/qwen2.5-vl-72b-instruct",
			Description: "Vision model served through OpenRouter",
		},
		{
			Key:         "providers.openrouter.api_key",
			Value:       "${OPENROUTER_API_KEY}",
			Description: "OpenRouter API key (uses environment variable)",
		},
		{
			Key:         "providers.openrouter.rate_limit",
			Value:       5.0,
			Description: "Rate limit in requests per second for OpenRouter",
		},
		{
			Key:         "providers.openrouter.enabled",
			Value:       true,
			Description: "Whether the OpenRouter provider is enabled",
		},

		// Providers - OpenAI
		{
			Key:         "providers.openai.type",
			Value:       "openai",
			Description: "Provider type for OpenAI",
		},
		{
			Key:         "providers.openai.model",
			Value:       "gpt-4o",
			Description: "OpenAI vision model",
		},
		{
			Key:         "providers.openai.api_key",
			Value:       "${OPENAI_API_KEY}",
			Description: "OpenAI API key (uses environment variable)",
		},
		{
			Key:         "providers.openai.rate_limit",
			Value:       5.0,
			Description: "Rate limit in requests per second for OpenAI",
		},
		{
			Key:         "providers.openai.enabled",
			Value:       true,
			Description: "Whether the OpenAI provider is enabled",
		},

		// ===================
		// Images
		// ===================
		{
			Key:         "images.inline_remote",
			Value:       false,
			Description: "Download URL images and send them inline instead of passing the URL to the provider",
		},
		{
			Key:         "images.max_bytes",
			Value:       20 << 20,
			Description: "Largest accepted image in bytes",
		},
		{
			Key:         "images.max_pixels",
			Value:       89478485,
			Description: "Largest accepted width*height, checked from the image header before decoding",
		},
		{
			Key:         "images.fetch_timeout_seconds",
			Value:       30,
			Description: "HTTP timeout per image download attempt",
		},
		{
			Key:         "images.fetch_attempts",
			Value:       3,
			Description: "Download attempts before giving up",
		},

		// ===================
		// Batch
		// ===================
		{
			Key:         "batch.max_items",
			Value:       20,
			Description: "Largest accepted batch",
		},
		{
			Key:         "batch.concurrency",
			Value:       4,
			Description: "Batch items dispatched at once (inference is still bounded by model.replicas)",
		},

		// ===================
		// Observability
		// ===================
		{
			Key:         "llmcalls.capacity",
			Value:       500,
			Description: "Inference calls kept in memory for /api/llmcalls",
		},
		{
			Key:         "log.level",
			Value:       "info",
			Description: "Log level (debug, info, warn, error)",
		},
	}
}

// GetDefault returns the default entry for a config key.
// Returns nil if no default exists for the key.
func GetDefault(key string) *Entry {
	for _, entry := range DefaultEntries() {
		if entry.Key == key {
			return &entry
		}
	}
	return nil
}

// DefaultConfig returns configuration built from DefaultEntries, ignoring
// the environment.
func DefaultConfig() *Config {
	v := defaultsViper()
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("default config does not decode: %v", err))
	}
	return &cfg
}

// SortedKeys returns every default key in lexical order.
func SortedKeys() []string {
	entries := DefaultEntries()
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	sort.Strings(keys)
	return keys
}
