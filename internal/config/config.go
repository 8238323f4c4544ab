// Package config provides Viper-based configuration loading for the save encoder.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// TablesConfig points at the static lookup tables. An empty path selects the
// built-in table.
type TablesConfig struct {
	// Properties is the path of the magical property width/bias table.
	Properties string `mapstructure:"properties"`
	// ItemTypes is the path of the item type classification table.
	ItemTypes string `mapstructure:"item_types"`
}

// OutputConfig controls where encoded files are written.
type OutputConfig struct {
	// Dir is the directory encoded files are written to.
	Dir string `mapstructure:"dir"`
	// Extension is the file extension, without the leading dot.
	Extension string `mapstructure:"extension"`
}

// Path returns the output path for a file named name.
//
// Precondition: name must be non-empty.
// Postcondition: Returns <dir>/<name>.<extension>, cleaned.
func (o OutputConfig) Path(name string) string {
	return filepath.Join(o.Dir, name+"."+o.Extension)
}

// Config is the top-level application configuration.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Tables  TablesConfig  `mapstructure:"tables"`
	Output  OutputConfig  `mapstructure:"output"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateOutput(c.Output); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateOutput(o OutputConfig) error {
	var errs []string
	if o.Dir == "" {
		errs = append(errs, "output.dir must not be empty")
	}
	if o.Extension == "" || strings.ContainsAny(o.Extension, "./") {
		errs = append(errs, fmt.Sprintf("output.extension must be a bare extension, got %q", o.Extension))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path uses defaults and the
// environment only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()

	// Environment variable overrides with D2S_ prefix
	v.SetEnvPrefix("D2S")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("tables.properties", "")
	v.SetDefault("tables.item_types", "")

	v.SetDefault("output.dir", ".")
	v.SetDefault("output.extension", "d2i")
}
