package config

import (
	"fmt"
	"net/url"

	"github.com/matscrape/icsdgrab/internal/types"
)

// Validate checks the configuration for invalid values. All coercion and
// rejection happens here, before any browser is launched; the config is not
// mutated afterwards.
func Validate(cfg *Config) error {
	u, err := url.Parse(cfg.Search.URL)
	if err != nil {
		return fmt.Errorf("invalid search.url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("search.url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("search.url must have a host")
	}

	if _, err := types.ParseSources(cfg.Search.Sources); err != nil {
		return fmt.Errorf("invalid search.sources: %w", err)
	}

	if cfg.Login.Enabled {
		creds := types.Credentials{UserID: cfg.Login.UserID, Password: cfg.Login.Password}
		if !creds.Complete() {
			return fmt.Errorf("login.enabled requires user_id and password (or ICSD_USERID / ICSD_PASSWORD)")
		}
	}

	if cfg.Output.Root == "" {
		return fmt.Errorf("output.root must not be empty")
	}
	if cfg.Output.WindowWidth < 0 || cfg.Output.WindowHeight < 0 {
		return fmt.Errorf("output window size must be >= 0")
	}

	if cfg.Browser.ProfileDir == "" {
		return fmt.Errorf("browser.profile_dir must not be empty")
	}
	if cfg.Browser.NavigateTimeout <= 0 {
		return fmt.Errorf("browser.navigate_timeout must be > 0")
	}

	if cfg.Waits.ElementTimeout <= 0 {
		return fmt.Errorf("waits.element_timeout must be > 0")
	}
	if cfg.Waits.SettleInterval <= 0 {
		return fmt.Errorf("waits.settle_interval must be > 0")
	}
	if cfg.Waits.SettleTimeout <= 0 {
		return fmt.Errorf("waits.settle_timeout must be > 0")
	}
	if cfg.Waits.DownloadPollInterval <= 0 {
		return fmt.Errorf("waits.download_poll_interval must be > 0")
	}
	if cfg.Waits.DownloadTimeout <= 0 {
		return fmt.Errorf("waits.download_timeout must be > 0")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	return nil
}
