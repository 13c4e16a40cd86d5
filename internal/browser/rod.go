package browser

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Options configures the Chromium driver.
type Options struct {
	// ProfileDir is the browser user-data directory. It is wiped and
	// recreated on every launch; downloads land in its "driver_downloads"
	// subdirectory.
	ProfileDir string

	// Headless runs Chromium without a visible window.
	Headless bool

	// Stealth applies the anti-automation-detection patches to the page.
	Stealth bool

	// NavigateTimeout bounds a single page navigation.
	NavigateTimeout time.Duration
}

// RodDriver drives a Chromium instance through the DevTools protocol.
type RodDriver struct {
	browser     *rod.Browser
	page        *rod.Page
	downloadDir string
	navTimeout  time.Duration
	logger      *slog.Logger
}

// NewRodDriver launches Chromium with a fresh profile and an attached page,
// and points the browser's default download location at the profile's
// download subdirectory.
func NewRodDriver(opts Options, logger *slog.Logger) (*RodDriver, error) {
	profileDir, err := filepath.Abs(opts.ProfileDir)
	if err != nil {
		return nil, fmt.Errorf("resolve profile dir: %w", err)
	}
	downloadDir := filepath.Join(profileDir, "driver_downloads")

	// Stale profiles from crashed runs hold lock files that block launch.
	if err := os.RemoveAll(profileDir); err != nil {
		return nil, fmt.Errorf("clear profile dir: %w", err)
	}
	if err := os.MkdirAll(downloadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}

	l := launcher.New().
		Headless(opts.Headless).
		UserDataDir(profileDir).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-blink-features", "AutomationControlled")

	launchURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(launchURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	var page *rod.Page
	if opts.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}

	err = proto.BrowserSetDownloadBehavior{
		Behavior:     proto.BrowserSetDownloadBehaviorBehaviorAllow,
		DownloadPath: downloadDir,
	}.Call(b)
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("set download dir: %w", err)
	}

	navTimeout := opts.NavigateTimeout
	if navTimeout <= 0 {
		navTimeout = 60 * time.Second
	}

	d := &RodDriver{
		browser:     b,
		page:        page,
		downloadDir: downloadDir,
		navTimeout:  navTimeout,
		logger:      logger.With("component", "rod_driver"),
	}

	d.logger.Info("browser ready",
		"profile_dir", profileDir,
		"download_dir", downloadDir,
		"headless", opts.Headless,
		"stealth", opts.Stealth,
	)
	return d, nil
}

// Navigate implements Driver.
func (d *RodDriver) Navigate(url string) error {
	page := d.page.Timeout(d.navTimeout)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, err)
	}
	return nil
}

// Find implements Driver. It does not wait for the element to appear.
func (d *RodDriver) Find(by By, sel string) (Element, error) {
	var (
		has bool
		el  *rod.Element
		err error
	)
	if by == ByXPath {
		has, el, err = d.page.HasX(sel)
	} else {
		has, el, err = d.page.Has(cssSelector(by, sel))
	}
	if err != nil {
		return nil, fmt.Errorf("find %s=%q: %w", by, sel, err)
	}
	if !has {
		return nil, fmt.Errorf("find %s=%q: %w", by, sel, ErrNotFound)
	}
	return &rodElement{el: el}, nil
}

// FindAll implements Driver.
func (d *RodDriver) FindAll(by By, sel string) ([]Element, error) {
	var (
		els rod.Elements
		err error
	)
	if by == ByXPath {
		els, err = d.page.ElementsX(sel)
	} else {
		els, err = d.page.Elements(cssSelector(by, sel))
	}
	if err != nil {
		return nil, fmt.Errorf("find all %s=%q: %w", by, sel, err)
	}
	out := make([]Element, len(els))
	for i, el := range els {
		out[i] = &rodElement{el: el}
	}
	return out, nil
}

// HTML implements Driver.
func (d *RodDriver) HTML() (string, error) {
	return d.page.HTML()
}

// Screenshot implements Driver.
func (d *RodDriver) Screenshot(fullPage bool) ([]byte, error) {
	return d.page.Screenshot(fullPage, nil)
}

// SetWindowSize implements Driver.
func (d *RodDriver) SetWindowSize(width, height int) error {
	return d.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
	})
}

// DownloadDir implements Driver.
func (d *RodDriver) DownloadDir() string { return d.downloadDir }

// Close implements Driver.
func (d *RodDriver) Close() error {
	d.logger.Info("closing browser")
	if err := d.page.Close(); err != nil {
		d.logger.Warn("page close failed", "error", err)
	}
	return d.browser.Close()
}

// cssSelector builds an attribute-based CSS selector. The JSF frontend uses
// colons in element IDs, which a bare #id selector cannot express.
func cssSelector(by By, sel string) string {
	switch by {
	case ByID:
		return fmt.Sprintf("[id=%q]", sel)
	case ByName:
		return fmt.Sprintf("[name=%q]", sel)
	case ByClass:
		return "." + sel
	}
	return sel
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Text() (string, error) {
	txt, err := e.el.Text()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(txt), nil
}

func (e *rodElement) Input(value string) error {
	if err := e.el.SelectAllText(); err != nil {
		return err
	}
	return e.el.Input(value)
}

func (e *rodElement) Click() error {
	return e.el.Click(proto.InputMouseButtonLeft, 1)
}

func (e *rodElement) Selected() (bool, error) {
	v, err := e.el.Property("checked")
	if err != nil {
		return false, err
	}
	return v.Bool(), nil
}
