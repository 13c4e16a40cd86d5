package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration. It is built once by Load, checked by
// Validate, and treated as immutable afterwards.
type Config struct {
	Search  SearchConfig  `mapstructure:"search"  yaml:"search"`
	Login   LoginConfig   `mapstructure:"login"   yaml:"login"`
	Output  OutputConfig  `mapstructure:"output"  yaml:"output"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Waits   WaitConfig    `mapstructure:"waits"   yaml:"waits"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// SearchConfig points at the search interface.
type SearchConfig struct {
	// URL of the Basic Search & Retrieve page.
	URL string `mapstructure:"url" yaml:"url"`

	// Sources scopes the search to structure-source categories
	// (expt, mofs, theo).
	Sources []string `mapstructure:"sources" yaml:"sources"`

	// TagsFile overrides the built-in locator tables.
	TagsFile string `mapstructure:"tags_file" yaml:"tags_file"`
}

// LoginConfig holds the optional personal-account login. When Enabled and a
// value is blank, the ICSD_USERID / ICSD_PASSWORD environment variables are
// used. IP-based authentication needs no login at all.
type LoginConfig struct {
	Enabled  bool   `mapstructure:"enabled"  yaml:"enabled"`
	UserID   string `mapstructure:"user_id"  yaml:"user_id"`
	Password string `mapstructure:"password" yaml:"password"`
}

// OutputConfig controls what is written per matched entry.
type OutputConfig struct {
	Root           string `mapstructure:"root"            yaml:"root"`
	SaveScreenshot bool   `mapstructure:"save_screenshot" yaml:"save_screenshot"`
	DownloadCIFs   bool   `mapstructure:"download_cifs"   yaml:"download_cifs"`
	WindowWidth    int    `mapstructure:"window_width"    yaml:"window_width"`
	WindowHeight   int    `mapstructure:"window_height"   yaml:"window_height"`
}

// BrowserConfig controls the Chromium instance.
type BrowserConfig struct {
	Headless        bool          `mapstructure:"headless"         yaml:"headless"`
	Stealth         bool          `mapstructure:"stealth"          yaml:"stealth"`
	ProfileDir      string        `mapstructure:"profile_dir"      yaml:"profile_dir"`
	NavigateTimeout time.Duration `mapstructure:"navigate_timeout" yaml:"navigate_timeout"`
}

// WaitConfig bounds every wait in the run. There are no unbounded waits.
type WaitConfig struct {
	// ElementTimeout bounds the wait for an expected element or view.
	ElementTimeout time.Duration `mapstructure:"element_timeout" yaml:"element_timeout"`

	// SettleInterval and SettleTimeout drive the poll loop that waits for
	// the UI to re-render after a state-changing click.
	SettleInterval time.Duration `mapstructure:"settle_interval" yaml:"settle_interval"`
	SettleTimeout  time.Duration `mapstructure:"settle_timeout"  yaml:"settle_timeout"`

	// DownloadPollInterval and DownloadTimeout bound the wait for an
	// exported CIF to appear on disk.
	DownloadPollInterval time.Duration `mapstructure:"download_poll_interval" yaml:"download_poll_interval"`
	DownloadTimeout      time.Duration `mapstructure:"download_timeout"       yaml:"download_timeout"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Search: SearchConfig{
			URL:     "https://icsd.fiz-karlsruhe.de/search/basic.xhtml",
			Sources: []string{"expt"},
		},
		Output: OutputConfig{
			Root:         "./output",
			WindowWidth:  1600,
			WindowHeight: 900,
		},
		Browser: BrowserConfig{
			Headless:        true,
			Stealth:         true,
			ProfileDir:      "./browser_data",
			NavigateTimeout: 60 * time.Second,
		},
		Waits: WaitConfig{
			ElementTimeout:       10 * time.Second,
			SettleInterval:       500 * time.Millisecond,
			SettleTimeout:        30 * time.Second,
			DownloadPollInterval: 1 * time.Second,
			DownloadTimeout:      2 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}
