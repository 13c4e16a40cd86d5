package browser

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWaitForImmediate(t *testing.T) {
	calls := 0
	err := WaitFor(time.Millisecond, time.Second, func() (bool, error) {
		calls++
		return true, nil
	})
	if err != nil {
		t.Fatalf("wait error: %v", err)
	}
	if calls != 1 {
		t.Errorf("cond called %d times, want 1", calls)
	}
}

func TestWaitForEventually(t *testing.T) {
	calls := 0
	err := WaitFor(time.Millisecond, time.Second, func() (bool, error) {
		calls++
		return calls >= 3, nil
	})
	if err != nil {
		t.Fatalf("wait error: %v", err)
	}
	if calls != 3 {
		t.Errorf("cond called %d times, want 3", calls)
	}
}

func TestWaitForTimeout(t *testing.T) {
	err := WaitFor(time.Millisecond, 10*time.Millisecond, func() (bool, error) {
		return false, nil
	})
	if !errors.Is(err, ErrWaitTimeout) {
		t.Fatalf("error = %v, want ErrWaitTimeout", err)
	}
}

func TestWaitForCondError(t *testing.T) {
	boom := errors.New("boom")
	err := WaitFor(time.Millisecond, time.Second, func() (bool, error) {
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want boom", err)
	}
}

func TestWaitForFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ICSD_CollCode261042.cif")

	// Written after a short delay, then left at a stable size.
	go func() {
		time.Sleep(20 * time.Millisecond)
		os.WriteFile(path, []byte("data_261042\n"), 0o644)
	}()

	if err := WaitForFile(path, 5*time.Millisecond, 2*time.Second); err != nil {
		t.Fatalf("wait error: %v", err)
	}
}

func TestWaitForFileIgnoresEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.cif")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	err := WaitForFile(path, time.Millisecond, 20*time.Millisecond)
	if !errors.Is(err, ErrWaitTimeout) {
		t.Fatalf("error = %v, want ErrWaitTimeout for empty file", err)
	}
}

func TestWaitForFileTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "never.cif")

	err := WaitForFile(path, time.Millisecond, 10*time.Millisecond)
	if !errors.Is(err, ErrWaitTimeout) {
		t.Fatalf("error = %v, want ErrWaitTimeout", err)
	}
}
