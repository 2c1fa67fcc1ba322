package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/raaihank/stt-pii-datagen/internal/dataset"
)

// EnvPrefix prefixes environment overrides, e.g. DATAGEN_GENERATION_TRAIN_COUNT.
const EnvPrefix = "DATAGEN"

// Loader reads configuration with its own viper instance.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a Loader.
func NewLoader() *Loader {
	return &Loader{v: viper.New()}
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	return NewLoader().Load(configPath)
}

// Load loads configuration from file and environment variables. Defaults
// are registered key by key so every key can be overridden from the
// environment and survives a reload of the file.
func (l *Loader) Load(configPath string) (*Config, error) {
	v := l.v

	if err := setDefaults(v, GetDefaults()); err != nil {
		return nil, err
	}

	v.SetConfigType("yaml")
	v.SetConfigName("datagen")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("$HOME/.datagen/")

	// Environment variable overrides
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Use specific config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is not an error - we'll use defaults
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return l.decode()
}

// ConfigFile returns the file the configuration was read from, if any.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

// setDefaults registers every leaf of defaults under its dotted key.
func setDefaults(v *viper.Viper, defaults *Config) error {
	data, err := yaml.Marshal(defaults)
	if err != nil {
		return fmt.Errorf("failed to encode defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("failed to decode defaults: %w", err)
	}

	var walk func(prefix string, node map[string]any)
	walk = func(prefix string, node map[string]any) {
		for key, value := range node {
			if child, ok := value.(map[string]any); ok {
				walk(prefix+key+".", child)
				continue
			}
			v.SetDefault(prefix+key, value)
		}
	}
	walk("", tree)
	return nil
}

func (l *Loader) decode() (*Config, error) {
	config := &Config{}
	if err := l.v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// validateConfig validates the loaded configuration
func validateConfig(config *Config) error {
	g := config.Generation
	if g.Train.Count < 0 || g.Dev.Count < 0 {
		return fmt.Errorf("invalid split count: train=%d dev=%d (must be >= 0)", g.Train.Count, g.Dev.Count)
	}
	if g.Train.File == "" || g.Dev.File == "" {
		return fmt.Errorf("split file names must not be empty")
	}
	if g.MaxAttemptFactor < 1 {
		return fmt.Errorf("invalid max attempt factor: %d (must be >= 1)", g.MaxAttemptFactor)
	}
	if _, err := dataset.ParseFormat(g.Format); err != nil {
		return err
	}

	n := config.Noise
	probabilities := []struct {
		name  string
		value float64
	}{
		{"digit_spell_prob", n.DigitSpellProb},
		{"email_spell_prob", n.EmailSpellProb},
		{"place_distort_prob", n.PlaceDistortProb},
	}
	for _, p := range probabilities {
		if p.value < 0 || p.value > 1 {
			return fmt.Errorf("invalid noise probability %s: %v (must be within [0, 1])", p.name, p.value)
		}
	}
	if n.EmailSpellMinLen < 0 {
		return fmt.Errorf("invalid email spell min length: %d", n.EmailSpellMinLen)
	}

	if !slices.Contains([]string{"memory", "redis"}, config.Dedupe.Backend) {
		return fmt.Errorf("invalid dedupe backend: %s (must be memory or redis)", config.Dedupe.Backend)
	}

	if !slices.Contains([]string{"file", "postgres", "none"}, config.Manifest.Backend) {
		return fmt.Errorf("invalid manifest backend: %s (must be file, postgres, or none)", config.Manifest.Backend)
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if config.Server.MaxPreviewCount < 1 {
		return fmt.Errorf("invalid max preview count: %d (must be >= 1)", config.Server.MaxPreviewCount)
	}
	if config.Server.StreamInterval <= 0 {
		return fmt.Errorf("invalid stream interval: %v (must be positive)", config.Server.StreamInterval)
	}

	if config.Logging.Level != "debug" && config.Logging.Level != "info" && config.Logging.Level != "warn" && config.Logging.Level != "error" {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.Logging.Level)
	}

	if config.Logging.Format != "json" && config.Logging.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", config.Logging.Format)
	}

	return nil
}

// Watch starts watching the configuration file for changes. Invalid
// revisions are passed to onError and the previous configuration stays in
// effect.
func (l *Loader) Watch(callback func(*Config), onError func(error)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		newConfig, err := l.decode()
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("reload %s: %w", e.Name, err))
			}
			return
		}
		callback(newConfig)
	})
	l.v.WatchConfig()
}
