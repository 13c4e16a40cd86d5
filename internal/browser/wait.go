package browser

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrWaitTimeout is returned when a condition does not hold before the
// deadline.
var ErrWaitTimeout = errors.New("condition not met before timeout")

// WaitFor polls cond at the given interval until it returns true, it
// returns an error, or the timeout elapses. The remote UI re-renders
// asynchronously after most clicks, so state checks must poll rather than
// read immediately.
func WaitFor(interval, timeout time.Duration, cond func() (bool, error)) error {
	deadline := time.Now().Add(timeout)
	for {
		ok, err := cond()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrWaitTimeout
		}
		time.Sleep(interval)
	}
}

// WaitForFile polls the filesystem until the file at path exists and has a
// stable nonzero size, or the timeout elapses. Used to detect that a
// browser-initiated download has completed.
func WaitForFile(path string, interval, timeout time.Duration) error {
	var lastSize int64 = -1
	err := WaitFor(interval, timeout, func() (bool, error) {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				return false, nil
			}
			return false, err
		}
		if info.Size() == 0 || info.Size() != lastSize {
			lastSize = info.Size()
			return false, nil
		}
		return true, nil
	})
	if errors.Is(err, ErrWaitTimeout) {
		return fmt.Errorf("waiting for %s: %w", path, err)
	}
	return err
}
