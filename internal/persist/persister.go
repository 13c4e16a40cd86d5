// Package persist writes one extracted entry to the output tree: a
// directory named by the collection code holding metadata.json, an optional
// page screenshot, and the exported CIF relocated from the browser's
// download directory.
package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/matscrape/icsdgrab/internal/browser"
	"github.com/matscrape/icsdgrab/internal/types"
)

// Persister writes extracted records under the output root. Each persisted
// entry replaces any prior directory of the same collection code.
type Persister struct {
	outputRoot   string
	downloadDir  string
	pollInterval time.Duration
	timeout      time.Duration
	logger       *slog.Logger
}

// New creates a Persister. downloadDir is where the browser drops exported
// CIFs; pollInterval and timeout bound the wait for a download to appear.
func New(outputRoot, downloadDir string, pollInterval, timeout time.Duration, logger *slog.Logger) *Persister {
	return &Persister{
		outputRoot:   outputRoot,
		downloadDir:  downloadDir,
		pollInterval: pollInterval,
		timeout:      timeout,
		logger:       logger.With("component", "persister"),
	}
}

// EntryDir returns the output directory for a collection code.
func (p *Persister) EntryDir(code int) string {
	return filepath.Join(p.outputRoot, strconv.Itoa(code))
}

// Persist creates the entry directory (replacing any previous one), writes
// metadata.json, and saves the screenshot when one was captured. It returns
// the directory path.
func (p *Persister) Persist(rec *types.Record, screenshot []byte) (string, error) {
	dir := p.EntryDir(rec.CollectionCode)

	// Last write wins: a re-run must not merge with stale output.
	if err := os.RemoveAll(dir); err != nil {
		return "", &types.PersistError{Code: rec.CollectionCode, Step: "create_dir", Err: err}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &types.PersistError{Code: rec.CollectionCode, Step: "create_dir", Err: err}
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", &types.PersistError{Code: rec.CollectionCode, Step: "metadata", Err: err}
	}
	metaPath := filepath.Join(dir, "metadata.json")
	if err := os.WriteFile(metaPath, append(data, '\n'), 0o644); err != nil {
		return "", &types.PersistError{Code: rec.CollectionCode, Step: "metadata", Err: err}
	}

	if len(screenshot) > 0 {
		shotPath := filepath.Join(dir, "screenshot.png")
		if err := os.WriteFile(shotPath, screenshot, 0o644); err != nil {
			return "", &types.PersistError{Code: rec.CollectionCode, Step: "screenshot", Err: err}
		}
	}

	p.logger.Debug("entry persisted", "code", rec.CollectionCode, "dir", dir)
	return dir, nil
}

// CollectCIF waits for the exported CIF to land in the download directory
// and relocates it into the entry directory as <code>.cif. The wait is
// bounded; a download that never materializes surfaces as
// ErrDownloadTimeout.
func (p *Persister) CollectCIF(code int) error {
	name := fmt.Sprintf("ICSD_CollCode%d.cif", code)
	src := filepath.Join(p.downloadDir, name)

	if err := browser.WaitForFile(src, p.pollInterval, p.timeout); err != nil {
		step := &types.PersistError{Code: code, Step: "download", Err: err}
		if errors.Is(err, browser.ErrWaitTimeout) {
			step.Err = fmt.Errorf("%s after %s: %w", name, p.timeout, types.ErrDownloadTimeout)
		}
		return step
	}

	dst := filepath.Join(p.EntryDir(code), fmt.Sprintf("%d.cif", code))
	if err := moveFile(src, dst); err != nil {
		return &types.PersistError{Code: code, Step: "download", Err: err}
	}

	p.logger.Debug("cif collected", "code", code, "path", dst)
	return nil
}

// moveFile renames src to dst, falling back to copy-and-delete when the
// download directory and the output root sit on different filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
