package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

const envPrefix = "ASV_"

type Config struct {
	HistoryPath  string `toml:"history_path" env:"HISTORY_PATH"`
	LogPath      string `toml:"log_path" env:"LOG_PATH"`
	LogLevel     string `toml:"log_level" env:"LOG_LEVEL"`
	Timezone     string `toml:"timezone" env:"TIMEZONE"`
	SessionsRoot string `toml:"sessions_root" env:"SESSIONS_ROOT"`
	Drive        Drive  `toml:"drive" envPrefix:"DRIVE_"`
}

// Drive holds the cloud credentials. All but the client secret are
// required for remote loading.
type Drive struct {
	APIKey       string `toml:"api_key" env:"API_KEY"`
	ClientID     string `toml:"client_id" env:"CLIENT_ID"`
	ClientSecret string `toml:"client_secret" env:"CLIENT_SECRET"`
	AppID        string `toml:"app_id" env:"APP_ID"`
}

// Missing names the required credentials that are not set.
func (d Drive) Missing() []string {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{envPrefix + "DRIVE_API_KEY", d.APIKey},
		{envPrefix + "DRIVE_CLIENT_ID", d.ClientID},
		{envPrefix + "DRIVE_APP_ID", d.AppID},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

func Dir(home string) string {
	return filepath.Join(home, ".config", "asv")
}

// Load reads ~/.config/asv/config.toml when present and then applies
// ASV_* environment variables on top.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return load(filepath.Join(Dir(home), "config.toml"), home)
}

func load(cfgPath, home string) (*Config, error) {
	cfg := &Config{
		HistoryPath:  filepath.Join(Dir(home), "history.db"),
		LogPath:      filepath.Join(Dir(home), "asv.log"),
		LogLevel:     "info",
		Timezone:     "Local",
		SessionsRoot: ".",
	}

	if _, err := os.Stat(cfgPath); err == nil {
		if _, err := toml.DecodeFile(cfgPath, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", cfgPath, err)
		}
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, fmt.Errorf("environment variables are invalid: %w", err)
	}

	// expand ~ in paths
	cfg.HistoryPath = expandHome(cfg.HistoryPath, home)
	cfg.LogPath = expandHome(cfg.LogPath, home)
	cfg.SessionsRoot = expandHome(cfg.SessionsRoot, home)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.HistoryPath == "" {
		return fmt.Errorf("history_path is required")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone %q is invalid: %w", c.Timezone, err)
	}
	return nil
}

// Location is the zone event times are shown in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		return filepath.Join(home, path[2:])
	}
	return path
}
