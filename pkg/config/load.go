package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Load reads the YAML file at path (optional when missing and allowMissing is set),
// then applies SURFVIEW_* environment overrides
// Defaults are not applied here; call Validate
func Load(path string, allowMissing bool) (AppConfig, error) {
	var cfg AppConfig

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return AppConfig{}, fmt.Errorf("parse config: %w", err)
			}
		case allowMissing && errors.Is(err, os.ErrNotExist):
			// Run on defaults and environment alone
		default:
			return AppConfig{}, fmt.Errorf("read config: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("env config: %w", err)
	}
	return cfg, nil
}
