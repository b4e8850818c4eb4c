// Package config ties together all other package configuration types.
package config

import (
	"fmt"
	"os"

	"code.emberchain.io/ember/logging"
	"code.emberchain.io/ember/metrics"
	"code.emberchain.io/ember/snapshot"
	"code.emberchain.io/ember/storage"
	"code.emberchain.io/ember/walletsync"

	"github.com/BurntSushi/toml"
)

// Config ties together all other application configuration types.
type Config struct {
	Logging    logging.Config    `group:"Logging" namespace:"logging"`
	Snapshot   snapshot.Config   `group:"Snapshot" namespace:"snapshot"`
	WalletSync walletsync.Config `group:"WalletSync" namespace:"walletsync"`
	Storage    storage.Config    `group:"Storage" namespace:"storage"`
	Metrics    metrics.Config    `group:"Metrics" namespace:"metrics"`
}

// NewDefaultConfig returns a set of default configs for all packages, as
// specified at the per package config level.
func NewDefaultConfig() Config {
	return Config{
		Logging:    logging.NewDefaultConfig(),
		Snapshot:   snapshot.NewDefaultConfig(),
		WalletSync: walletsync.NewDefaultConfig(),
		Storage:    storage.NewDefaultConfig(),
		Metrics:    metrics.NewDefaultConfig(),
	}
}

// Read loads a TOML configuration file, with defaults for anything the file
// doesn't set.
func Read(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("could not read configuration at %s: %w", path, err)
	}
	return &cfg, nil
}

// Write saves the configuration as a TOML file.
func Write(path string, cfg Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create configuration at %s: %w", path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("could not write configuration: %w", err)
	}
	return nil
}
