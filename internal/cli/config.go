package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Environment overrides for the config file.
const (
	EnvURL     = "MIBODA_URL"
	EnvAnonKey = "MIBODA_ANON_KEY"
	EnvHome    = "MIBODA_HOME"
)

const (
	configFile  = "config.yaml"
	sessionFile = "session.json"
)

// Config is the client configuration stored in config.yaml.
type Config struct {
	URL      string `yaml:"url"`
	AnonKey  string `yaml:"anon_key"`
	LogLevel string `yaml:"log_level,omitempty"`
}

// HomeDir is $MIBODA_HOME or <user config dir>/miboda.
func HomeDir() (string, error) {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(base, "miboda"), nil
}

// LoadConfig reads path, tolerating a missing file, then applies the
// environment overrides.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if v := os.Getenv(EnvURL); v != "" {
		cfg.URL = v
	}
	if v := os.Getenv(EnvAnonKey); v != "" {
		cfg.AnonKey = v
	}
	return cfg, nil
}

// Save writes cfg to path, creating the directory.
func (c Config) Save(path string) error {
	raw, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, raw, 0o600)
}

func (c Config) check() error {
	if c.URL == "" || c.AnonKey == "" {
		return NewExitError(ExitCommandError,
			"falta configurar el servidor: ejecuta `miboda config --url URL --anon-key KEY` o define "+EnvURL+" y "+EnvAnonKey)
	}
	return nil
}
