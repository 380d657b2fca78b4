// Package config loads process configuration from WT_* environment variables,
// optionally layered over a file named by WT_CONFIG_FILE.
package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// FileEnvVar names an optional YAML, JSON, TOML or .env file read before the
// environment. Environment variables override values from the file.
const FileEnvVar = "WT_CONFIG_FILE"

// validator is implemented by config sections that check themselves.
type validator interface {
	Validate() error
}

// read fills cfg from the optional config file and the environment.
func read(cfg any) error {
	if path := os.Getenv(FileEnvVar); path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return fmt.Errorf("read config file %s: %w", path, err)
		}
		return nil
	}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return fmt.Errorf("read env: %w", err)
	}
	return nil
}

// validateAll runs each section's Validate and returns the first failure.
func validateAll(sections ...validator) error {
	for _, s := range sections {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Usage returns a description of every variable cfg reads, for --help output.
func Usage(cfg any) string {
	text, err := cleanenv.GetDescription(cfg, nil)
	if err != nil {
		return ""
	}
	return text
}
