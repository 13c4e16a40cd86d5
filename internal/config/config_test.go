package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Search.URL != "https://icsd.fiz-karlsruhe.de/search/basic.xhtml" {
		t.Errorf("url = %q", cfg.Search.URL)
	}
	if len(cfg.Search.Sources) != 1 || cfg.Search.Sources[0] != "expt" {
		t.Errorf("sources = %v", cfg.Search.Sources)
	}
	if !cfg.Browser.Headless || !cfg.Browser.Stealth {
		t.Error("browser defaults changed")
	}
	if cfg.Waits.DownloadTimeout != 2*time.Minute {
		t.Errorf("download timeout = %s", cfg.Waits.DownloadTimeout)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "icsdgrab.yaml")
	content := `
search:
  sources: ["expt", "theo"]
output:
  root: /data/icsd
  download_cifs: true
waits:
  download_timeout: 5m
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Search.Sources) != 2 {
		t.Errorf("sources = %v", cfg.Search.Sources)
	}
	if cfg.Output.Root != "/data/icsd" || !cfg.Output.DownloadCIFs {
		t.Errorf("output = %+v", cfg.Output)
	}
	if cfg.Waits.DownloadTimeout != 5*time.Minute {
		t.Errorf("download timeout = %s", cfg.Waits.DownloadTimeout)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %q", cfg.Logging.Level)
	}
	// Untouched sections keep their defaults.
	if cfg.Waits.ElementTimeout != 10*time.Second {
		t.Errorf("element timeout = %s", cfg.Waits.ElementTimeout)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadCredentialsFromEnv(t *testing.T) {
	t.Setenv("ICSD_USERID", "someuser")
	t.Setenv("ICSD_PASSWORD", "somepass")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Login.UserID != "someuser" {
		t.Errorf("user_id = %q", cfg.Login.UserID)
	}
	if cfg.Login.Password != "somepass" {
		t.Errorf("password = %q", cfg.Login.Password)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad url scheme", func(c *Config) { c.Search.URL = "ftp://example.com/search" }},
		{"no host", func(c *Config) { c.Search.URL = "https://" }},
		{"unknown source", func(c *Config) { c.Search.Sources = []string{"weird"} }},
		{"login without credentials", func(c *Config) { c.Login.Enabled = true }},
		{"empty output root", func(c *Config) { c.Output.Root = "" }},
		{"negative window", func(c *Config) { c.Output.WindowWidth = -1 }},
		{"empty profile dir", func(c *Config) { c.Browser.ProfileDir = "" }},
		{"zero navigate timeout", func(c *Config) { c.Browser.NavigateTimeout = 0 }},
		{"zero element timeout", func(c *Config) { c.Waits.ElementTimeout = 0 }},
		{"zero settle interval", func(c *Config) { c.Waits.SettleInterval = 0 }},
		{"zero download timeout", func(c *Config) { c.Waits.DownloadTimeout = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Errorf("%s: expected validation error", tc.name)
			}
		})
	}
}

func TestValidateLoginWithCredentials(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Login.Enabled = true
	cfg.Login.UserID = "u"
	cfg.Login.Password = "p"
	if err := Validate(cfg); err != nil {
		t.Fatalf("login with credentials rejected: %v", err)
	}
}
