// Package config loads ieltsmeta configuration from defaults, an optional
// YAML file and the environment, and reloads it when the file changes.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/jackzampolin/ieltsmeta/internal/providers"
)

const envPrefix = "IELTSMETA"

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	mu        sync.RWMutex
	v         *viper.Viper
	config    *Config
	callbacks []func(*Config)
	logger    *slog.Logger
}

// NewManager creates a new config manager and loads initial config.
// An empty cfgFile searches ./config.yaml and $HOME/.ieltsmeta/config.yaml;
// a missing file is not an error.
func NewManager(cfgFile string) (*Manager, error) {
	cm := &Manager{
		v:         newViper(),
		callbacks: make([]func(*Config), 0),
		logger:    slog.Default(),
	}

	if err := cm.readConfigFile(cfgFile); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// defaultsViper returns a viper instance with every default registered.
func defaultsViper() *viper.Viper {
	v := viper.New()
	for _, e := range DefaultEntries() {
		v.SetDefault(e.Key, e.Value)
	}
	return v
}

// newViper returns a viper instance with defaults and the environment bound.
func newViper() *viper.Viper {
	v := defaultsViper()

	// Environment variables with IELTSMETA_ prefix, e.g. IELTSMETA_MODEL_PROVIDER
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Plain HOST/PORT as used by container platforms
	_ = v.BindEnv("server.host", envPrefix+"_SERVER_HOST", "HOST")
	_ = v.BindEnv("server.port", envPrefix+"_SERVER_PORT", "PORT")

	return v
}

func (cm *Manager) readConfigFile(cfgFile string) error {
	if cfgFile != "" {
		cm.v.SetConfigFile(cfgFile)
	} else {
		cm.v.SetConfigName("config")
		cm.v.SetConfigType("yaml")
		cm.v.AddConfigPath(".")
		cm.v.AddConfigPath("$HOME/.ieltsmeta")
	}

	if err := cm.v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// load parses the current viper state into a Config struct.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetLogger sets the logger used for reload messages.
func (cm *Manager) SetLogger(logger *slog.Logger) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if logger != nil {
		cm.logger = logger
	}
}

// ConfigFileUsed returns the path of the loaded config file, if any.
func (cm *Manager) ConfigFileUsed() string {
	return cm.v.ConfigFileUsed()
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// Value returns the effective value of a single key.
func (cm *Manager) Value(key string) (any, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	if !cm.v.IsSet(key) {
		return nil, fmt.Errorf("unknown config key %q", key)
	}
	return cm.v.Get(key), nil
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration. It does nothing when
// no config file was loaded. A reload that fails validation keeps the
// previous configuration.
func (cm *Manager) WatchConfig() {
	if cm.v.ConfigFileUsed() == "" {
		return
	}

	cm.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()

		cm.mu.Lock()
		logger := cm.logger
		if err != nil {
			cm.mu.Unlock()
			logger.Warn("ignoring invalid config change", "file", e.Name, "error", err)
			return
		}
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()

		logger.Info("config reloaded", "file", e.Name, "op", e.Op.String())
		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	cm.v.WatchConfig()
}

// Validate checks values that have no usable fallback.
func (c *Config) Validate() error {
	if c.Model.Provider == "" {
		return fmt.Errorf("model.provider is required")
	}
	if c.Model.Replicas < 1 {
		return fmt.Errorf("model.replicas must be at least 1, got %d", c.Model.Replicas)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Batch.MaxItems < 1 {
		return fmt.Errorf("batch.max_items must be at least 1, got %d", c.Batch.MaxItems)
	}
	return nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envVarPattern.ReplaceAllStringFunc(value, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// ToProviderRegistryConfig converts the config to a format suitable for providers.Registry.
// It resolves all ${ENV_VAR} references in API keys.
func (c *Config) ToProviderRegistryConfig() providers.RegistryConfig {
	cfg := providers.RegistryConfig{
		LLMProviders: make(map[string]providers.LLMProviderConfig),
	}

	for name, llm := range c.Providers {
		cfg.LLMProviders[name] = providers.LLMProviderConfig{
			Type:      llm.Type,
			Model:     llm.Model,
			APIKey:    ResolveEnvVars(llm.APIKey),
			BaseURL:   llm.BaseURL,
			RateLimit: llm.RateLimit,
			Enabled:   llm.Enabled,
		}
	}

	return cfg
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# ieltsmeta configuration
# API keys use ${ENV_VAR} syntax to reference environment variables
# Set these in your shell: export OPENROUTER_API_KEY=xxx OPENAI_API_KEY=xxx
# Any key can be overridden with IELTSMETA_<SECTION>_<KEY>, e.g. IELTSMETA_MODEL_PROVIDER=openai

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
