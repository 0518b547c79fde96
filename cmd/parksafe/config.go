package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// cliConfig is the CLI's YAML config file
type cliConfig struct {
	Server          string `mapstructure:"server" yaml:"server"`
	Email           string `mapstructure:"email" yaml:"email"`
	MessagePageSize int    `mapstructure:"message_page_size" yaml:"message_page_size"`
	AlertLimit      int    `mapstructure:"alert_limit" yaml:"alert_limit"`
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "parksafe.yaml"
	}
	return filepath.Join(dir, "parksafe", "config.yaml")
}

// loadConfig reads path, falling back to defaults when it does not exist.
// PARKSAFE_SERVER overrides the server URL.
func loadConfig(path string) (*cliConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("server", "http://localhost:8080")
	v.SetDefault("message_page_size", 50)
	v.SetDefault("alert_limit", 5)
	v.SetEnvPrefix("parksafe")
	v.BindEnv("server")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); !ok {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	cfg := &cliConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// saveConfig writes cfg to path, creating parent directories if needed
func saveConfig(path string, cfg *cliConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.Set("server", cfg.Server)
	v.Set("email", cfg.Email)
	v.Set("message_page_size", cfg.MessagePageSize)
	v.Set("alert_limit", cfg.AlertLimit)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}
