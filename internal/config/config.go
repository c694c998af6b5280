// Package config loads the msbtool options file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/robert-malhotra/go-msbt/internal/tag"
)

// Config represents the msbtool configuration
type Config struct {
	// Project is the path of the MSBP file used to name tags and attributes.
	Project string     `yaml:"project"`
	Text    TextConfig `yaml:"text"`
	Logging Logging    `yaml:"logging"`
}

// TextConfig controls how control tags are rendered
type TextConfig struct {
	ShortenTags                bool   `yaml:"shorten_tags"`
	ShortenPageBreak           bool   `yaml:"shorten_pagebreak"`
	AddLinebreakAfterPageBreak bool   `yaml:"add_linebreak_after_pagebreak"`
	SkipRuby                   bool   `yaml:"skip_ruby"`
	ColorMode                  string `yaml:"color_mode"`
}

// Logging contains logging configuration
type Logging struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Text: TextConfig{
			ColorMode: tag.ByRGBA.String(),
		},
		Logging: Logging{
			Level: "warn",
		},
	}
}

// LoadConfig loads configuration from the specified path. Keys missing from
// the file keep their default values.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if _, err := config.TextOptions(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}

	// A relative project path is taken from the config file's directory.
	if config.Project != "" && !filepath.IsAbs(config.Project) {
		config.Project = filepath.Join(filepath.Dir(configPath), config.Project)
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// TextOptions converts the text section into transcoder options.
func (c *Config) TextOptions() (tag.Options, error) {
	mode, err := tag.ParseColorMode(c.Text.ColorMode)
	if err != nil {
		return tag.Options{}, err
	}
	return tag.Options{
		ShortenTags:                c.Text.ShortenTags,
		ShortenPageBreak:           c.Text.ShortenPageBreak,
		AddLinebreakAfterPageBreak: c.Text.AddLinebreakAfterPageBreak,
		SkipRuby:                   c.Text.SkipRuby,
		Colors:                     mode,
	}, nil
}
