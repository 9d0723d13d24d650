package config

import (
	"os"
	"strconv"
)

const defaultSettingsPath = "settings.json"

type Config struct {
	Port         int
	DatabaseURL  string
	SettingsPath string
}

func Load() Config {
	cfg := Config{
		Port:         8080,
		DatabaseURL:  os.Getenv("AUTHD_DATABASE_URL"),
		SettingsPath: defaultSettingsPath,
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	if v := os.Getenv("AUTHD_SETTINGS_PATH"); v != "" {
		cfg.SettingsPath = v
	}

	if v := os.Getenv("AUTHD_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 && p < 65536 {
			cfg.Port = p
		}
	}

	return cfg
}

func (c Config) ListenAddr() string {
	return ":" + strconv.Itoa(c.Port)
}
