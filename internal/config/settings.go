// Package config loads edgelog's optional settings file.
//
// The file is YAML at <config dir>/config.yaml. Every key is optional; a
// missing file yields Defaults. Command-line flags and environment variables
// override whatever the file sets.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings are the defaults the file may provide.
type Settings struct {
	// HubAddress is "ipv4[:port]".
	HubAddress     string        `yaml:"hub_address"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Token          string        `yaml:"token"`
	// Output is "text" or "json".
	Output   string `yaml:"output"`
	LogLevel string `yaml:"log_level"`
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		ConnectTimeout: 30 * time.Second,
		RequestTimeout: 5 * time.Second,
		Output:         "text",
		LogLevel:       "warn",
	}
}

// Load reads path over Defaults. A missing or empty file is not an error.
// Unknown keys are rejected so typos do not silently fall back to defaults.
func Load(path string) (Settings, error) {
	s := Defaults()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read settings: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return Defaults(), fmt.Errorf("parse settings %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return Defaults(), fmt.Errorf("settings %s: %w", path, err)
	}
	return s, nil
}

// Validate checks values a flag would otherwise reject.
func (s Settings) Validate() error {
	if s.ConnectTimeout < 0 {
		return fmt.Errorf("connect_timeout must not be negative, got %s", s.ConnectTimeout)
	}
	if s.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", s.RequestTimeout)
	}
	switch s.Output {
	case "text", "json":
	default:
		return fmt.Errorf("unknown output %q (want text or json)", s.Output)
	}
	return nil
}
