package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matscrape/icsdgrab/internal/browser"
	"github.com/matscrape/icsdgrab/internal/config"
	"github.com/matscrape/icsdgrab/internal/locator"
	"github.com/matscrape/icsdgrab/internal/session"
	"github.com/matscrape/icsdgrab/internal/types"
)

var (
	cfgFile string
	verbose bool

	composition    string
	numElements    int
	collectionCode int
	sources        []string
	outputRoot     string
	saveScreenshot bool
	downloadCIFs   bool
	useLogin       bool
	userID         string
	password       string
	searchURL      string
	tagsFile       string
	headful        bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "icsdgrab",
		Short: "icsdgrab — query the ICSD web search and export entry data",
		Long: `icsdgrab drives the ICSD "Basic Search & Retrieve" web interface in a
headless browser, submits a query, and exports every matching entry into a
directory named by its collection code: metadata.json with all recognized
fields, an optional page screenshot, and the entry's CIF.`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(queryCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// queryCmd creates the "query" subcommand.
func queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run a search and export all matching entries",
		Long: `Run a search against the Basic Search & Retrieve form. At least one of
--composition, --elements, or --collection-code must be given.

Example:
  icsdgrab query --composition "Ni:1:1 Ti:1:1" --elements 2 --download-cifs`,
		RunE: runQuery,
	}

	cmd.Flags().StringVar(&composition, "composition", "", `composition search string, e.g. "Ni:1:1 Ti:1:1"`)
	cmd.Flags().IntVar(&numElements, "elements", 0, "exact number of elements")
	cmd.Flags().IntVar(&collectionCode, "collection-code", 0, "look up a known ICSD collection code")
	cmd.Flags().StringSliceVar(&sources, "sources", nil, "structure sources: expt, mofs, theo (default expt)")
	cmd.Flags().StringVarP(&outputRoot, "output", "o", "", "output root directory")
	cmd.Flags().BoolVar(&saveScreenshot, "screenshot", false, "save a page screenshot per entry")
	cmd.Flags().BoolVar(&downloadCIFs, "download-cifs", false, "export and collect the CIF per entry")
	cmd.Flags().BoolVar(&useLogin, "login", false, "log in with a personal account instead of IP-based auth")
	cmd.Flags().StringVar(&userID, "userid", "", "account user ID (default $ICSD_USERID)")
	cmd.Flags().StringVar(&password, "password", "", "account password (default $ICSD_PASSWORD)")
	cmd.Flags().StringVar(&searchURL, "url", "", "search page URL")
	cmd.Flags().StringVar(&tagsFile, "tags", "", "locator table YAML (default: built-in)")
	cmd.Flags().BoolVar(&headful, "headful", false, "run the browser with a visible window")

	return cmd
}

// runQuery executes the query command.
func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyCLIOverrides(cfg)

	logger := setupLogger(cfg)

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// The locator tables must load before a browser starts; a broken
	// table fails the process here.
	table, err := locator.Load(cfg.Search.TagsFile)
	if err != nil {
		return err
	}

	query := buildQuery()

	drv, err := browser.NewRodDriver(browser.Options{
		ProfileDir:      cfg.Browser.ProfileDir,
		Headless:        cfg.Browser.Headless,
		Stealth:         cfg.Browser.Stealth,
		NavigateTimeout: cfg.Browser.NavigateTimeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("start browser: %w", err)
	}

	sess, err := session.New(drv, cfg, query, table, logger)
	if err != nil {
		_ = drv.Close()
		return err
	}

	codes, err := sess.Run()
	if err != nil {
		logger.Error("query failed", "error", err, "entries_exported", len(codes))
		return err
	}

	if len(codes) == 0 {
		logger.Info("no results found")
		return nil
	}
	logger.Info("done", "entries_exported", len(codes), "output", cfg.Output.Root)
	return nil
}

// buildQuery assembles the query from the search flags.
func buildQuery() types.Query {
	q := types.Query{}
	if composition != "" {
		q[types.FieldComposition] = composition
	}
	if numElements > 0 {
		q[types.FieldNumberOfElements] = strconv.Itoa(numElements)
	}
	if collectionCode > 0 {
		q[types.FieldCollectionCode] = strconv.Itoa(collectionCode)
	}
	return q
}

// applyCLIOverrides applies command-line flags over the loaded config.
func applyCLIOverrides(cfg *config.Config) {
	if len(sources) > 0 {
		cfg.Search.Sources = sources
	}
	if outputRoot != "" {
		cfg.Output.Root = outputRoot
	}
	if saveScreenshot {
		cfg.Output.SaveScreenshot = true
	}
	if downloadCIFs {
		cfg.Output.DownloadCIFs = true
	}
	if useLogin {
		cfg.Login.Enabled = true
	}
	if userID != "" {
		cfg.Login.UserID = userID
	}
	if password != "" {
		cfg.Login.Password = password
	}
	if searchURL != "" {
		cfg.Search.URL = searchURL
	}
	if tagsFile != "" {
		cfg.Search.TagsFile = tagsFile
	}
	if headful {
		cfg.Browser.Headless = false
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
}

// setupLogger builds the slog logger from the logging config.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	out := os.Stderr
	switch cfg.Logging.Output {
	case "", "stderr":
	case "stdout":
		out = os.Stdout
	default:
		f, err := os.OpenFile(cfg.Logging.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			out = f
		}
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(handler)
}

// versionCmd prints the build version.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("icsdgrab %s\n", config.Version)
		},
	}
}

// configCmd prints the effective configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			applyCLIOverrides(cfg)
			fmt.Printf("search url:       %s\n", cfg.Search.URL)
			fmt.Printf("sources:          %v\n", cfg.Search.Sources)
			fmt.Printf("tags file:        %s\n", orDefault(cfg.Search.TagsFile, "(built-in)"))
			fmt.Printf("login enabled:    %v\n", cfg.Login.Enabled)
			fmt.Printf("output root:      %s\n", cfg.Output.Root)
			fmt.Printf("save screenshot:  %v\n", cfg.Output.SaveScreenshot)
			fmt.Printf("download cifs:    %v\n", cfg.Output.DownloadCIFs)
			fmt.Printf("headless:         %v\n", cfg.Browser.Headless)
			fmt.Printf("profile dir:      %s\n", cfg.Browser.ProfileDir)
			fmt.Printf("download timeout: %s\n", cfg.Waits.DownloadTimeout)
			return nil
		},
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
