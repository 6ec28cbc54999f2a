// Package config loads server settings from the environment, an optional
// .env file and an optional config file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the server configuration.
type Config struct {
	// Port is the TCP port the HTTP server listens on.
	Port int `mapstructure:"port"`
	// CORSOrigin is the single origin allowed to open websocket connections.
	CORSOrigin string `mapstructure:"cors_origin"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`
	// LogFormat is text or json.
	LogFormat string `mapstructure:"log_format"`
	// SendBuffer is the per-connection outbound frame buffer.
	SendBuffer int `mapstructure:"send_buffer"`
	// RedisURL enables the cluster bus when non-empty.
	RedisURL string `mapstructure:"redis_url"`
	// RedisChannel is the pub/sub channel used by the cluster bus.
	RedisChannel string `mapstructure:"redis_channel"`
}

// Addr returns the ":port" listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// BusEnabled reports whether a Redis URL was configured.
func (c Config) BusEnabled() bool {
	return c.RedisURL != ""
}

// Validate reports every configuration problem at once.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Sprintf("port must be 1-65535, got %d", c.Port))
	}
	if c.CORSOrigin == "" {
		errs = append(errs, "cors_origin must not be empty")
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.LogLevel] {
		errs = append(errs, fmt.Sprintf("log_level must be one of [debug, info, warn, error], got %q", c.LogLevel))
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.LogFormat] {
		errs = append(errs, fmt.Sprintf("log_format must be one of [text, json], got %q", c.LogFormat))
	}
	if c.SendBuffer < 1 {
		errs = append(errs, fmt.Sprintf("send_buffer must be >= 1, got %d", c.SendBuffer))
	}
	if c.BusEnabled() && c.RedisChannel == "" {
		errs = append(errs, "redis_channel must not be empty when redis_url is set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads a .env file from the working directory if present, then builds
// the configuration from defaults, the optional config file at path and
// environment overrides, and validates the result.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
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
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("cors_origin", "http://localhost:5173")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("send_buffer", 256)
	v.SetDefault("redis_url", "")
	v.SetDefault("redis_channel", "tictactoe:events")
}
