package config

import "fmt"

// CLIConfig holds configuration for the todoctl admin binary.
type CLIConfig struct {
	Storage StorageConfig `yaml:"storage" json:"storage"`
}

// LoadCLIConfig loads and validates admin CLI configuration.
func LoadCLIConfig() (*CLIConfig, error) {
	cfg := &CLIConfig{}

	if err := read(cfg); err != nil {
		return nil, fmt.Errorf("failed to load cli config: %w", err)
	}
	if err := cfg.Storage.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cli config: %w", err)
	}

	return cfg, nil
}
