// Package config loads the application configuration from, in order of
// precedence: command-line flags, INGRAIN_* environment variables, and an
// optional YAML config file. Flag defaults apply last.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const envPrefix = "INGRAIN_"

// Config is the application configuration.
type Config struct {
	DB       string   `koanf:"db" validate:"required"`
	Listen   string   `koanf:"listen" validate:"required,hostname_port"`
	ReposDir string   `koanf:"repos_dir" validate:"required"`
	Sources  []string `koanf:"sources"`
	LogLevel string   `koanf:"log_level" validate:"oneof=debug info warn error"`
}

// Flags returns the command-line flag set, which also carries the defaults.
func Flags() *pflag.FlagSet {
	f := pflag.NewFlagSet("ingrain", pflag.ExitOnError)
	f.String("config", "", "Path to a YAML config file")
	f.String("db", "ingrain.db", "Path to the SQLite database file")
	f.String("listen", "127.0.0.1:8484", "Address for the web UI to listen on")
	f.String("repos_dir", "repos", "Directory for git deck-source checkouts")
	f.StringSlice("sources", nil, "Deck sources: local directories or git URLs")
	f.String("log_level", "info", "Log level: debug, info, warn or error")
	return f
}

// Load builds the configuration from the parsed flag set.
func Load(flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path, _ := flags.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment config: %w", err)
	}

	// Changed flags override everything; unset flags contribute their
	// defaults only for keys nothing else provided.
	if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
		return nil, fmt.Errorf("failed to load flag config: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
