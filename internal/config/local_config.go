package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// BootstrapConfig is the subset of config.yaml needed before the project
// database is open: read directly with yaml.v3 rather than through
// viper, since it must be readable before Load's viper instance exists.
type BootstrapConfig struct {
	DBPath        string `yaml:"dbPath"`
	Provider      string `yaml:"provider"`
	DaemonEnabled bool   `yaml:"daemonEnabled"`
	LogLevel      string `yaml:"logLevel"`
}

// LoadBootstrapConfig reads config.yaml directly from projectRoot/.open-mem.
// Returns an empty, non-nil BootstrapConfig if the file is absent or
// malformed, since bootstrap must never fail a cold start over a missing
// optional file.
func LoadBootstrapConfig(projectRoot string) *BootstrapConfig {
	data, err := os.ReadFile(yamlConfigPath(projectRoot)) // #nosec G304 - path derived from projectRoot
	if err != nil {
		return &BootstrapConfig{}
	}
	var cfg BootstrapConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return &BootstrapConfig{}
	}
	return &cfg
}
