// Package config loads phrasecast configuration: a YAML file
// discovered on the usual search path, plus credentials taken from the
// environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the full phrasecast configuration.
type Config struct {
	// Engine selects the default TTS backend: openai, elevenlabs or
	// system.
	Engine string `yaml:"engine" mapstructure:"engine"`

	Synthesis SynthesisConfig `yaml:"synthesis" mapstructure:"synthesis"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
	Mix       MixConfig       `yaml:"mix" mapstructure:"mix"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	EQ        EQConfig        `yaml:"eq" mapstructure:"eq"`

	Debug bool `yaml:"debug" mapstructure:"debug"`
}

// SynthesisConfig holds engine-facing synthesis options.
type SynthesisConfig struct {
	Voice string  `yaml:"voice" mapstructure:"voice"`
	Model string  `yaml:"model" mapstructure:"model"`
	Speed float64 `yaml:"speed" mapstructure:"speed"`
	Pitch float64 `yaml:"pitch" mapstructure:"pitch"`
}

// OutputConfig holds export settings.
type OutputConfig struct {
	Format      string `yaml:"format" mapstructure:"format"`
	BitrateKbps int    `yaml:"bitrate_kbps" mapstructure:"bitrate_kbps"`
}

// MixConfig holds assembly settings.
type MixConfig struct {
	FadeInMs                int     `yaml:"fade_in_ms" mapstructure:"fade_in_ms"`
	FadeOutMs               int     `yaml:"fade_out_ms" mapstructure:"fade_out_ms"`
	BackgroundAttenuationDB float64 `yaml:"background_attenuation_db" mapstructure:"background_attenuation_db"`
}

// CacheConfig holds speech cache settings.
type CacheConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	Path      string `yaml:"path" mapstructure:"path"`
	MaxSizeMB int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
}

// EQConfig holds playback EQ gains in decibels.
type EQConfig struct {
	LowDB  float64 `yaml:"low_db" mapstructure:"low_db"`
	MidDB  float64 `yaml:"mid_db" mapstructure:"mid_db"`
	HighDB float64 `yaml:"high_db" mapstructure:"high_db"`
}

// Credentials are remote-engine API keys, read from the environment
// once per adapter activation.
type Credentials struct {
	OpenAIKey     string `env:"OPENAI_API_KEY"`
	ElevenLabsKey string `env:"ELEVENLABS_API_KEY"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Engine: "openai",
		Synthesis: SynthesisConfig{
			Speed: 1.0,
		},
		Output: OutputConfig{
			Format:      "wav",
			BitrateKbps: 192,
		},
		Mix: MixConfig{
			FadeInMs:                0,
			FadeOutMs:               0,
			BackgroundAttenuationDB: -12,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Path:      "",
			MaxSizeMB: 100,
		},
	}
}

// configPaths returns the config file locations, most specific first.
func configPaths() []string {
	var paths []string
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".phrasecast", "config.yml"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "phrasecast", "config.yml"))
	}
	return paths
}

// DefaultUserPath returns the user-wide config file location.
func DefaultUserPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, ".config", "phrasecast", "config.yml"), nil
}

// Load reads configuration from the first config file found, over the
// defaults.
func Load() (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	for _, path := range configPaths() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			log.Warn("failed to read config", "path", path, "error", err)
			continue
		}
		if err := v.Unmarshal(cfg); err != nil {
			log.Warn("failed to parse config", "path", path, "error", err)
			continue
		}
		log.Debug("loaded configuration", "path", path)
		break
	}

	if cfg.Cache.Path == "" {
		if dir, err := os.UserCacheDir(); err == nil {
			cfg.Cache.Path = filepath.Join(dir, "phrasecast", "speech.db")
		} else {
			cfg.Cache.Path = filepath.Join(os.TempDir(), "phrasecast", "speech.db")
		}
	}

	return cfg, nil
}

// LoadCredentials reads remote-engine keys from the environment.
func LoadCredentials() (Credentials, error) {
	var creds Credentials
	if err := env.Parse(&creds); err != nil {
		return Credentials{}, fmt.Errorf("parse credential environment: %w", err)
	}
	return creds, nil
}

// Save writes the configuration as YAML.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	log.Info("saved configuration", "path", path)
	return nil
}

// Example renders a commented example config file.
func Example() string {
	data, _ := yaml.Marshal(Default())
	header := `# phrasecast configuration
#
# Place this file at:
#   - ./.phrasecast/config.yml (project-specific)
#   - ~/.config/phrasecast/config.yml (user-wide)
#
# API keys are read from the environment:
#   OPENAI_API_KEY, ELEVENLABS_API_KEY

`
	return header + string(data)
}
