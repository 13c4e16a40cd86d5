package persist

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matscrape/icsdgrab/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func testPersister(t *testing.T) (*Persister, string, string) {
	t.Helper()
	outRoot := t.TempDir()
	dlDir := t.TempDir()
	p := New(outRoot, dlDir, 5*time.Millisecond, 2*time.Second, testLogger)
	return p, outRoot, dlDir
}

func testRecord() *types.Record {
	rec := types.NewRecord(261042)
	rec.Set("sum_formula", "Ni1 Ti1")
	rec.Set("cell_volume", 145.37)
	rec.Set("theoretical_calculation", false)
	return rec
}

func TestPersistWritesMetadata(t *testing.T) {
	p, outRoot, _ := testPersister(t)

	dir, err := p.Persist(testRecord(), nil)
	if err != nil {
		t.Fatalf("persist error: %v", err)
	}
	if dir != filepath.Join(outRoot, "261042") {
		t.Errorf("dir = %q", dir)
	}

	data, err := os.ReadFile(filepath.Join(dir, "metadata.json"))
	if err != nil {
		t.Fatalf("read metadata: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("metadata is not valid JSON: %v", err)
	}
	if got["collection_code"] != float64(261042) {
		t.Errorf("collection_code = %v", got["collection_code"])
	}
	if got["sum_formula"] != "Ni1 Ti1" {
		t.Errorf("sum_formula = %v", got["sum_formula"])
	}
	if got["theoretical_calculation"] != false {
		t.Errorf("theoretical_calculation = %v", got["theoretical_calculation"])
	}
}

func TestPersistWritesScreenshot(t *testing.T) {
	p, _, _ := testPersister(t)

	shot := []byte{0x89, 'P', 'N', 'G'}
	dir, err := p.Persist(testRecord(), shot)
	if err != nil {
		t.Fatalf("persist error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "screenshot.png"))
	if err != nil {
		t.Fatalf("read screenshot: %v", err)
	}
	if string(data) != string(shot) {
		t.Error("screenshot bytes differ")
	}
}

func TestPersistSkipsScreenshotWhenEmpty(t *testing.T) {
	p, _, _ := testPersister(t)

	dir, err := p.Persist(testRecord(), nil)
	if err != nil {
		t.Fatalf("persist error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "screenshot.png")); !os.IsNotExist(err) {
		t.Error("screenshot.png written without capture")
	}
}

func TestPersistReplacesExistingDir(t *testing.T) {
	p, _, _ := testPersister(t)

	dir, err := p.Persist(testRecord(), nil)
	if err != nil {
		t.Fatalf("persist error: %v", err)
	}
	stale := filepath.Join(dir, "stale.cif")
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := p.Persist(testRecord(), nil); err != nil {
		t.Fatalf("second persist error: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale file survived re-persist")
	}
}

func TestCollectCIF(t *testing.T) {
	p, _, dlDir := testPersister(t)

	dir, err := p.Persist(testRecord(), nil)
	if err != nil {
		t.Fatalf("persist error: %v", err)
	}

	// The export lands in the download directory shortly after the click.
	go func() {
		time.Sleep(20 * time.Millisecond)
		os.WriteFile(filepath.Join(dlDir, "ICSD_CollCode261042.cif"), []byte("data_261042\n"), 0o644)
	}()

	if err := p.CollectCIF(261042); err != nil {
		t.Fatalf("collect error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "261042.cif"))
	if err != nil {
		t.Fatalf("read cif: %v", err)
	}
	if string(data) != "data_261042\n" {
		t.Errorf("cif content = %q", data)
	}
	if _, err := os.Stat(filepath.Join(dlDir, "ICSD_CollCode261042.cif")); !os.IsNotExist(err) {
		t.Error("cif left behind in download directory")
	}
}

func TestCollectCIFTimeout(t *testing.T) {
	outRoot := t.TempDir()
	p := New(outRoot, t.TempDir(), time.Millisecond, 15*time.Millisecond, testLogger)

	err := p.CollectCIF(12345)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, types.ErrDownloadTimeout) {
		t.Errorf("error = %v, want ErrDownloadTimeout in chain", err)
	}
	var perr *types.PersistError
	if !errors.As(err, &perr) {
		t.Fatalf("error is %T, want PersistError", err)
	}
	if perr.Step != "download" || perr.Code != 12345 {
		t.Errorf("step = %q code = %d", perr.Step, perr.Code)
	}
}
