package commands

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"nstools/lib/configutil"
	"nstools/lib/notify"
)

const envPrefix = "NSTOOLS"

type APIConfig struct {
	BaseURL string `json:"base_url"`
	// Timeout in seconds.
	Timeout int `json:"timeout"`
}

type Config struct {
	UserAgent string             `json:"user_agent"`
	DumpDir   string             `json:"dump_dir"`
	MarkerDB  string             `json:"marker_db"`
	API       APIConfig          `json:"api"`
	Smtp      notify.EmailConfig `json:"smtp"`
	// HomeRegion labels residents in status reports.
	HomeRegion string `json:"home_region"`
}

func (c APIConfig) timeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// loadConfig reads the config file (missing files are fine), then applies
// .env and NSTOOLS_* environment overrides.
func loadConfig(path string) (Config, error) {
	err := configutil.LoadDotenv(".env")
	if err != nil {
		return Config{}, err
	}

	cfg, err := configutil.ReadConfig[Config](path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	cfg.UserAgent = configutil.Env(envPrefix, "USER_AGENT", cfg.UserAgent)
	cfg.DumpDir = configutil.Env(envPrefix, "DUMP_DIR", cfg.DumpDir)
	cfg.MarkerDB = configutil.Env(envPrefix, "MARKER_DB", cfg.MarkerDB)
	cfg.API.BaseURL = configutil.Env(envPrefix, "API_BASE_URL", cfg.API.BaseURL)
	cfg.HomeRegion = configutil.Env(envPrefix, "HOME_REGION", cfg.HomeRegion)
	cfg.Smtp.Server = configutil.Env(envPrefix, "SMTP_SERVER", cfg.Smtp.Server)
	cfg.Smtp.Address = configutil.Env(envPrefix, "SMTP_ADDRESS", cfg.Smtp.Address)
	cfg.Smtp.Password = configutil.Env(envPrefix, "SMTP_PASSWORD", cfg.Smtp.Password)

	if raw := configutil.Env(envPrefix, "API_TIMEOUT", ""); raw != "" {
		cfg.API.Timeout, err = strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%s_API_TIMEOUT: %w", envPrefix, err)
		}
	}
	if raw := configutil.Env(envPrefix, "SMTP_PORT", ""); raw != "" {
		cfg.Smtp.Port, err = strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%s_SMTP_PORT: %w", envPrefix, err)
		}
	}

	if cfg.DumpDir == "" {
		cfg.DumpDir = "dumps"
	}
	if cfg.MarkerDB == "" {
		cfg.MarkerDB = "dumps/markers.db"
	}
	return cfg, nil
}
