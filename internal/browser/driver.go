// Package browser defines the automation contract the session drives the
// remote search interface through, plus its Chromium implementation via Rod.
// The interface is the black-box boundary of the system: element lookup,
// text input, clicks, attribute/text reads, snapshots, and shutdown.
package browser

import "errors"

// ErrNotFound is returned by lookups when no element matches.
var ErrNotFound = errors.New("element not found")

// By selects the lookup strategy for an element.
type By string

const (
	ByID    By = "id"
	ByName  By = "name"
	ByClass By = "class"
	ByXPath By = "xpath"
)

// Element is one located DOM element.
type Element interface {
	// Text returns the trimmed visible text of the element.
	Text() (string, error)

	// Input clears the element and types the given value into it.
	Input(value string) error

	// Click performs a single left click.
	Click() error

	// Selected reports whether a checkbox or radio element is checked.
	Selected() (bool, error)
}

// Driver is a handle on one live browser page. Lookups do not wait: an
// element that is not currently in the DOM yields ErrNotFound. Callers that
// need to wait for an asynchronous re-render poll through WaitFor.
type Driver interface {
	// Navigate loads the given URL and blocks until the load event fires.
	Navigate(url string) error

	// Find returns the first element matching the selector.
	Find(by By, sel string) (Element, error)

	// FindAll returns every element matching the selector. An empty result
	// is not an error.
	FindAll(by By, sel string) ([]Element, error)

	// HTML returns the full serialized DOM of the current page.
	HTML() (string, error)

	// Screenshot captures a snapshot of the current page as PNG bytes.
	Screenshot(fullPage bool) ([]byte, error)

	// SetWindowSize resizes the browser viewport.
	SetWindowSize(width, height int) error

	// DownloadDir returns the directory the browser saves downloads into.
	DownloadDir() string

	// Close releases the page and the underlying browser process. It must
	// be safe to call exactly once on every exit path.
	Close() error
}
