package config

import (
	"bytes"
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. SPLICER_WORKERS or
// SPLICER_CANONICAL_WIDTH.
const EnvPrefix = "SPLICER"

// LoadConfig loads configuration with priority:
// CLI flags > environment > config file > defaults.
//
// The config file is the --config flag when given, otherwise the first file
// found by FindConfigFile. fs may be nil. The returned path is the file that
// was read, or "" when only defaults were used.
func LoadConfig(fs *pflag.FlagSet) (*Config, string, error) {
	v, err := newViper()
	if err != nil {
		return nil, "", err
	}

	// Config file: explicit path must exist, searched ones are optional
	configPath := ConfigFlag(fs)
	if configPath == "" {
		configPath = FindConfigFile()
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, "", fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := BindFlags(v, fs); err != nil {
		return nil, "", err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, "", fmt.Errorf("failed to decode config: %w", err)
	}

	// Auto-detect workers if set to 0
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	return cfg, configPath, nil
}

// newViper returns a viper instance seeded with DefaultConfig, so every key
// is known for environment lookups.
func newViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	defaults, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal defaults: %w", err)
	}
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, fmt.Errorf("failed to seed defaults: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v, nil
}
