// Copyright 2025 Certen Protocol

package ledgerconfig

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// fileOverlay mirrors Config's fields in their YAML form; zero values
// mean "not set in the file" and leave the environment-derived default
// in place.
type fileOverlay struct {
	Backend               string `yaml:"backend"`
	DatabaseURL           string `yaml:"database_url"`
	KVDriver              string `yaml:"kv_driver"`
	DataDir               string `yaml:"data_dir"`
	HashAlgorithm         string `yaml:"hash_algorithm"`
	EventsPerEpoch        uint64 `yaml:"events_per_epoch"`
	EpochAlgorithm        string `yaml:"epoch_algorithm"`
	EpochPublisher        string `yaml:"epoch_publisher"`
	OrphanTimeout         string `yaml:"orphan_timeout"`
	OrphanScanFrequency   string `yaml:"orphan_scan_frequency"`
	StrictEventTypes      *bool  `yaml:"strict_event_types"`
	StrictStateTransition *bool  `yaml:"strict_state_transition"`
	ListenAddr            string `yaml:"listen_addr"`
	MetricsAddr           string `yaml:"metrics_addr"`
}

// envVarPattern matches ${VAR_NAME} or ${VAR_NAME:-default} inside a
// config file, substituted before YAML parsing.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

func substituteEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName, defaultValue := groups[1], ""
		if len(groups) >= 4 {
			defaultValue = groups[3]
		}
		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// LoadFile reads path as a YAML overlay and merges it onto cfg. Fields
// left unset in the file keep cfg's existing value. ${VAR_NAME} tokens
// in the file are substituted from the environment before parsing.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("ledgerconfig: reading %s: %w", path, err)
	}

	var overlay fileOverlay
	if err := yaml.Unmarshal([]byte(substituteEnvVars(string(data))), &overlay); err != nil {
		return fmt.Errorf("ledgerconfig: parsing %s: %w", path, err)
	}

	if overlay.Backend != "" {
		cfg.Backend = overlay.Backend
	}
	if overlay.DatabaseURL != "" {
		cfg.DatabaseURL = overlay.DatabaseURL
	}
	if overlay.KVDriver != "" {
		cfg.KVDriver = overlay.KVDriver
	}
	if overlay.DataDir != "" {
		cfg.DataDir = overlay.DataDir
	}
	if overlay.HashAlgorithm != "" {
		cfg.HashAlgorithm = overlay.HashAlgorithm
	}
	if overlay.EventsPerEpoch != 0 {
		cfg.EventsPerEpoch = overlay.EventsPerEpoch
	}
	if overlay.EpochAlgorithm != "" {
		cfg.EpochAlgorithm = overlay.EpochAlgorithm
	}
	if overlay.EpochPublisher != "" {
		cfg.EpochPublisher = overlay.EpochPublisher
	}
	if overlay.OrphanTimeout != "" {
		d, err := time.ParseDuration(overlay.OrphanTimeout)
		if err != nil {
			return fmt.Errorf("ledgerconfig: orphan_timeout: %w", err)
		}
		cfg.OrphanTimeout = d
	}
	if overlay.OrphanScanFrequency != "" {
		d, err := time.ParseDuration(overlay.OrphanScanFrequency)
		if err != nil {
			return fmt.Errorf("ledgerconfig: orphan_scan_frequency: %w", err)
		}
		cfg.OrphanScanFreq = d
	}
	if overlay.StrictEventTypes != nil {
		cfg.StrictEventTypes = *overlay.StrictEventTypes
	}
	if overlay.StrictStateTransition != nil {
		cfg.StrictStateTransition = *overlay.StrictStateTransition
	}
	if overlay.ListenAddr != "" {
		cfg.ListenAddr = overlay.ListenAddr
	}
	if overlay.MetricsAddr != "" {
		cfg.MetricsAddr = overlay.MetricsAddr
	}

	return cfg.Validate()
}

// LoadWithFile loads env defaults via Load and, if path is non-empty,
// merges a YAML overlay onto them via LoadFile.
func LoadWithFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return cfg, nil
	}
	if err := LoadFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
