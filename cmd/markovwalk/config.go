package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/CTAG07/markovwalk/pkg/markov"
	"github.com/natefinch/atomic"
)

// ServerConfig holds the settings for the HTTP API and the database.
type ServerConfig struct {
	ApiAddr      string `json:"api_addr"`
	LogLevel     string `json:"log_level"`
	DatabasePath string `json:"database_path"`
}

// MarkovConfig holds the defaults used when training and generating.
type MarkovConfig struct {
	Strategy  string `json:"strategy"`   // Strategy for newly created models
	MaxLength int    `json:"max_length"` // Upper bound on tokens per generate request
	Separator string `json:"separator"`  // Joins generated tokens
	EOC       string `json:"eoc"`        // Appended to generated text
}

// Config is the top-level configuration struct that aggregates all other configs.
type Config struct {
	Server *ServerConfig `json:"server_config"`
	Markov *MarkovConfig `json:"markov_config"`
}

// DefaultConfig creates a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: &ServerConfig{
			ApiAddr:      ":7278",
			LogLevel:     "info",
			DatabasePath: "./markovwalk.db?_journal_mode=WAL&_busy_timeout=5000",
		},
		Markov: &MarkovConfig{
			Strategy:  string(markov.StrategyAlias),
			MaxLength: 1000,
			Separator: " ",
			EOC:       ".",
		},
	}
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			var data []byte
			data, err = json.MarshalIndent(config, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// Defaults are still usable without the file.
				fmt.Fprintf(os.Stderr, "warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if config.Server == nil {
		config.Server = DefaultConfig().Server
	}
	if config.Markov == nil {
		config.Markov = DefaultConfig().Markov
	}
	if _, err = markov.ParseStrategy(config.Markov.Strategy); err != nil {
		return nil, fmt.Errorf("invalid markov_config: %w", err)
	}
	return config, nil
}

// logLevel maps the configured level name to a slog.Level, defaulting to info.
func (c *Config) logLevel() slog.Level {
	switch strings.ToLower(c.Server.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// tokenizer returns the DefaultTokenizer configured by the markov section.
func (c *Config) tokenizer() *markov.DefaultTokenizer {
	return markov.NewDefaultTokenizer(
		markov.WithSeparator(c.Markov.Separator),
		markov.WithEOC(c.Markov.EOC),
	)
}
