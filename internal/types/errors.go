package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrDownloadTimeout = errors.New("download timed out")
	ErrSessionClosed   = errors.New("session already closed")
)

// NavigationError reports that an expected page or view did not load.
type NavigationError struct {
	View string // which view was expected, e.g. "Basic Search", "List View"
	Err  error
}

func (e *NavigationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to load %q: %v", e.View, e.Err)
	}
	return fmt.Sprintf("failed to load %q", e.View)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// QueryError reports an invalid query or a malformed query result label.
type QueryError struct {
	Reason string
	Err    error
}

func (e *QueryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("query error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("query error: %s", e.Reason)
}

func (e *QueryError) Unwrap() error { return e.Err }

// ConsistencyError reports a mismatch between the hit count announced on the
// list view and the number of entries actually rendered in the detailed
// view. It indicates a partial page load; the session state is unreliable
// once this happens.
type ConsistencyError struct {
	Hits   int
	Loaded int
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("hit count %d does not match %d entries loaded in detailed view", e.Hits, e.Loaded)
}

// FieldNotFoundError reports that a mandatory field or control is absent
// from a record's detail page.
type FieldNotFoundError struct {
	Field string
	Err   error
}

func (e *FieldNotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("field %q not found: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("field %q not found", e.Field)
}

func (e *FieldNotFoundError) Unwrap() error { return e.Err }

// PersistError wraps errors that occur while writing an entry's output
// directory, metadata, screenshot, or downloaded CIF.
type PersistError struct {
	Code int    // ICSD collection code of the entry being persisted
	Step string // create_dir, metadata, screenshot, download
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist error for entry %d at step %q: %v", e.Code, e.Step, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }
