package app

import (
	"fmt"
	"os"
	"path/filepath"

	"sc-go/internal/config"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - SC_CONFIG_PATH: config file location (default: $XDG_CONFIG_HOME/sc/config.toml)
//   - SC_HOME: base directory for sc data (default: $XDG_DATA_HOME/sc)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

func getConfigPath() (string, error) {
	if path := os.Getenv("SC_CONFIG_PATH"); path != "" {
		return path, nil
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "sc", "config.toml"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "sc", "config.toml"), nil
}

func getBaseDir() (string, error) {
	if path := os.Getenv("SC_HOME"); path != "" {
		return path, nil
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "sc"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "sc"), nil
}

// LoadConfig reads the config file, or falls back to defaults under the base
// directory when none has been written yet. SC_DB_PATH overrides the
// database path either way.
func LoadConfig() (*config.Config, error) {
	defaults, err := GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	var cfg *config.Config
	if _, err := os.Stat(defaults["config_path"]); os.IsNotExist(err) {
		cfg = config.NewConfig(defaults["base_dir"])
	} else {
		cfg, err = config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if path := os.Getenv("SC_DB_PATH"); path != "" {
		cfg.Database.Type = "sqlite"
		cfg.Database.Path = path
	}
	return cfg, nil
}
