package config

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// LibraryOverride tunes a single library without editing the built-in
// adapter table.
type LibraryOverride struct {
	// TimeoutSeconds replaces the per-request timeout for the library.
	TimeoutSeconds int `mapstructure:"timeout_seconds" yaml:"timeout_seconds,omitempty"`
}

// Config is the full downloader configuration.
type Config struct {
	// UserAgent is sent on every request to a library.
	UserAgent string `mapstructure:"user_agent" yaml:"user_agent,omitempty"`

	// Concurrency bounds parallel page downloads per manuscript.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`

	// OutputDir is where assembled PDFs are written.
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`

	// Libraries maps adapter identifiers (or aliases) to overrides.
	Libraries map[string]LibraryOverride `mapstructure:"libraries" yaml:"libraries,omitempty"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Concurrency: 5,
		OutputDir:   ".",
		Libraries:   map[string]LibraryOverride{},
	}
}

// Timeouts flattens the library overrides into a map of adapter id to
// timeout seconds, in the form the resolution service consumes.
func (c *Config) Timeouts() map[string]int {
	out := make(map[string]int, len(c.Libraries))
	for id, override := range c.Libraries {
		if override.TimeoutSeconds > 0 {
			out[id] = override.TimeoutSeconds
		}
	}
	return out
}

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewManager creates a new config manager and loads initial config.
func NewManager(cfgFile string) (*Manager, error) {
	cm := &Manager{
		callbacks: make([]func(*Config), 0),
	}

	if err := cm.initViper(cfgFile); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// initViper sets up viper with defaults and config file.
func (cm *Manager) initViper(cfgFile string) error {
	defaults := DefaultConfig()
	viper.SetDefault("user_agent", defaults.UserAgent)
	viper.SetDefault("concurrency", defaults.Concurrency)
	viper.SetDefault("output_dir", defaults.OutputDir)
	viper.SetDefault("libraries", defaults.Libraries)

	// Environment variables with MSSDL_ prefix
	viper.SetEnvPrefix("MSSDL")
	viper.AutomaticEnv()

	// Config file
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.mssdl")
	}

	// Try to read config file (not required)
	if err := viper.ReadInConfig(); err != nil {
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
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration.
func (cm *Manager) WatchConfig() {
	viper.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			return
		}

		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	viper.WatchConfig()
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Manuscript downloader configuration
# Per-library overrides live under "libraries", keyed by library id,
# e.g.
#   libraries:
#     graz:
#       timeout_seconds: 120

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
