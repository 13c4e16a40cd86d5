package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file and environment.
// Priority (highest to lowest): CLI flags (applied by the caller) > env vars
// > config file > defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("ICSDGRAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Credentials keep the environment names the account holders already
	// have exported.
	_ = v.BindEnv("login.user_id", "ICSDGRAB_LOGIN_USER_ID", "ICSD_USERID")
	_ = v.BindEnv("login.password", "ICSDGRAB_LOGIN_PASSWORD", "ICSD_PASSWORD")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("icsdgrab")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".icsdgrab"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay if not explicitly specified
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("search.url", cfg.Search.URL)
	v.SetDefault("search.sources", cfg.Search.Sources)
	v.SetDefault("search.tags_file", cfg.Search.TagsFile)

	v.SetDefault("login.enabled", cfg.Login.Enabled)

	v.SetDefault("output.root", cfg.Output.Root)
	v.SetDefault("output.save_screenshot", cfg.Output.SaveScreenshot)
	v.SetDefault("output.download_cifs", cfg.Output.DownloadCIFs)
	v.SetDefault("output.window_width", cfg.Output.WindowWidth)
	v.SetDefault("output.window_height", cfg.Output.WindowHeight)

	v.SetDefault("browser.headless", cfg.Browser.Headless)
	v.SetDefault("browser.stealth", cfg.Browser.Stealth)
	v.SetDefault("browser.profile_dir", cfg.Browser.ProfileDir)
	v.SetDefault("browser.navigate_timeout", cfg.Browser.NavigateTimeout)

	v.SetDefault("waits.element_timeout", cfg.Waits.ElementTimeout)
	v.SetDefault("waits.settle_interval", cfg.Waits.SettleInterval)
	v.SetDefault("waits.settle_timeout", cfg.Waits.SettleTimeout)
	v.SetDefault("waits.download_poll_interval", cfg.Waits.DownloadPollInterval)
	v.SetDefault("waits.download_timeout", cfg.Waits.DownloadTimeout)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.output", cfg.Logging.Output)
}
