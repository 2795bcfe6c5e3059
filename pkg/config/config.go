// Package config loads Mashd settings from YAML files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// EnvVar names a configuration file that overrides every other location.
const EnvVar = "MASHD_CONFIG"

// ProjectFile is the per-project configuration file name.
const ProjectFile = ".mashd.yaml"

// Config holds the effective settings.
type Config struct {
	Adapters AdaptersConfig `yaml:"adapters"`
	Join     JoinConfig     `yaml:"join"`
	CSV      CSVConfig      `yaml:"csv"`
	Output   OutputConfig   `yaml:"output"`
	Log      LogConfig      `yaml:"log"`

	// Source is the file the settings were read from, empty for defaults.
	Source string `yaml:"-"`
}

type AdaptersConfig struct {
	// Allow lists the adapters datasets may use. Empty allows all.
	Allow []string `yaml:"allow"`
}

type JoinConfig struct {
	CartesianWarningRows int `yaml:"cartesian_warning_rows"`
}

type CSVConfig struct {
	Delimiter string `yaml:"delimiter"`
}

type OutputConfig struct {
	Format string `yaml:"format"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Defaults returns the built-in settings.
func Defaults() *Config {
	return &Config{
		Join:   JoinConfig{CartesianWarningRows: 20},
		CSV:    CSVConfig{Delimiter: ","},
		Output: OutputConfig{Format: "table"},
		Log:    LogConfig{Level: "info"},
	}
}

// Load returns the settings for a project.
// Precedence: $MASHD_CONFIG → <projectDir>/.mashd.yaml →
// $XDG_CONFIG_HOME/mashd/config.yaml (or ~/.config/mashd/config.yaml) → defaults.
// The first file found wins; keys it leaves out keep their defaults.
func Load(projectDir string) (*Config, error) {
	if path := os.Getenv(EnvVar); path != "" {
		return LoadFile(path)
	}

	candidates := []string{filepath.Join(projectDir, ProjectFile)}
	if dir := userConfigDir(); dir != "" {
		candidates = append(candidates, filepath.Join(dir, "config.yaml"))
	}
	for _, path := range candidates {
		cfg, err := LoadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return cfg, err
	}
	return Defaults(), nil
}

// userConfigDir resolves $XDG_CONFIG_HOME/mashd, falling back to
// ~/.config/mashd. It returns "" when neither can be determined.
func userConfigDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "mashd")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "mashd")
}

// LoadFile reads one configuration file over the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Source = path
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if c.Join.CartesianWarningRows < 0 {
		return fmt.Errorf("join.cartesian_warning_rows must not be negative, got %d", c.Join.CartesianWarningRows)
	}
	if d := c.CSV.Delimiter; d != `\t` && utf8.RuneCountInString(d) != 1 {
		return fmt.Errorf("csv.delimiter must be a single character, got %q", d)
	}
	switch c.Output.Format {
	case "table", "json":
	default:
		return fmt.Errorf("output.format must be table or json, got %q", c.Output.Format)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	for _, a := range c.Adapters.Allow {
		if strings.TrimSpace(a) == "" {
			return errors.New("adapters.allow must not contain empty names")
		}
	}
	return nil
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	l, err := parseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return l, fmt.Errorf("log.level must be debug, info, warn or error, got %q", s)
	}
	return l, nil
}

// YAML renders the settings as a configuration file.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
