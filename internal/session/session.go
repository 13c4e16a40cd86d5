// Package session drives the ICSD "Basic Search & Retrieve" interface
// through its page states: load the search form, optionally log in, scope
// the structure sources, submit the query, open the detailed view, and walk
// every matching entry. Each transition is verified before the next step;
// the remote page state is unreliable the moment a verification fails, so
// every failure aborts the run.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/matscrape/icsdgrab/internal/browser"
	"github.com/matscrape/icsdgrab/internal/config"
	"github.com/matscrape/icsdgrab/internal/extract"
	"github.com/matscrape/icsdgrab/internal/locator"
	"github.com/matscrape/icsdgrab/internal/persist"
	"github.com/matscrape/icsdgrab/internal/types"
)

// Element locations on the search and display forms. These are part of the
// JSF frontend's markup contract, not of any particular query.
const (
	searchHeaderID   = "content_form:mainSearchPanel_header"
	loginUserFieldID = "content_form:loginId"
	loginPassFieldID = "content_form:password"
	loginButtonID    = "content_form:loginButtonPersonal"
	runQueryName     = "content_form:btnRunQuery"
	messagesID       = "content_form:messages_container"

	selectAllRowsID  = "display_form:listViewTable:uiSelectAllRows"
	detailedButtonID = "display_form:btnEntryViewDetailed"
	expandAllID      = "display_form:expandAllButton"
	nextButtonID     = "display_form:buttonNext"
	exportCIFID      = "display_form:btnEntryDownloadCif"

	panelTitleClass = "ui-panel-title"

	contentCheckboxIDFmt = "content_form:uiSelectContent:%d"
	contentLabelXPathFmt = "//tbody/tr/td/label[text()[contains(., '%s')]]"
)

// sourceControls maps each structure source to its Content Selection
// checkbox index and the label text that toggles it.
var sourceControls = []struct {
	source types.StructureSource
	index  int
	label  string
}{
	{types.SourceExperimentalInorganic, 0, "Experim. inorganic"},
	{types.SourceExperimentalMetalOrganic, 1, "Experim. metal-organic"},
	{types.SourceTheoretical, 2, "Theoretical"},
}

// Session owns one browser handle and walks it through a single query.
// Query and sources are fixed at construction; Close must run exactly once
// on every exit path, which Run guarantees.
type Session struct {
	drv       browser.Driver
	cfg       *config.Config
	query     types.Query
	sources   types.SourceSet
	table     *locator.Table
	extractor *extract.Extractor
	persister *persist.Persister
	logger    *slog.Logger

	state  State
	hits   int
	closed bool
}

// New builds a Session for one query. The query's field names are checked
// against the locator table here; an unrecognized field never reaches the
// browser.
func New(drv browser.Driver, cfg *config.Config, query types.Query, table *locator.Table, logger *slog.Logger) (*Session, error) {
	if err := table.ValidateQuery(query); err != nil {
		return nil, &types.QueryError{Reason: err.Error()}
	}
	sources, err := types.ParseSources(cfg.Search.Sources)
	if err != nil {
		return nil, err
	}

	logger = logger.With("component", "session")
	return &Session{
		drv:       drv,
		cfg:       cfg,
		query:     query,
		sources:   sources,
		table:     table,
		extractor: extract.New(table, logger),
		persister: persist.New(
			cfg.Output.Root,
			drv.DownloadDir(),
			cfg.Waits.DownloadPollInterval,
			cfg.Waits.DownloadTimeout,
			logger,
		),
		logger: logger,
		state:  StateInitialized,
	}, nil
}

// State returns the session's current position in the navigation flow.
func (s *Session) State() State { return s.state }

// Hits returns the hit count reported by the last submitted query.
func (s *Session) Hits() int { return s.hits }

// Run drives the complete flow and returns the collection codes persisted.
// The browser is released on every exit path, success or not. Output
// already written for earlier entries is kept when a later entry fails.
func (s *Session) Run() (codes []int, err error) {
	defer func() {
		if cerr := s.Close(); cerr != nil && !errors.Is(cerr, types.ErrSessionClosed) && err == nil {
			err = cerr
		}
	}()

	if err = s.Open(); err != nil {
		return nil, err
	}
	if err = s.Authenticate(); err != nil {
		return nil, err
	}
	if err = s.SelectStructureSources(); err != nil {
		return nil, err
	}

	hits, err := s.SubmitQuery()
	if err != nil {
		return nil, err
	}
	s.logger.Info("query submitted", "fields", s.query.Fields(), "hits", hits)
	if hits == 0 {
		s.state = StateExhausted
		return nil, nil
	}

	if err = s.OpenDetailView(); err != nil {
		return nil, err
	}
	loaded, err := s.EntryCount()
	if err != nil {
		return nil, err
	}
	if loaded != hits {
		return nil, &types.ConsistencyError{Hits: hits, Loaded: loaded}
	}

	for i := 0; i < hits; i++ {
		code, perr := s.persistCurrent()
		if perr != nil {
			return codes, perr
		}
		codes = append(codes, code)
		s.logger.Info("entry exported", "entry", i+1, "of", hits, "code", code)

		if i < hits-1 {
			if err = s.Advance(code); err != nil {
				return codes, err
			}
		}
	}

	s.state = StateExhausted
	s.logger.Info("all entries parsed", "count", len(codes))
	return codes, nil
}

// Open loads the search page and verifies the Basic Search & Retrieve
// panel is present.
func (s *Session) Open() error {
	if err := s.requireState("open", StateInitialized); err != nil {
		return err
	}

	s.logger.Info("loading search page", "url", s.cfg.Search.URL)
	if err := s.drv.Navigate(s.cfg.Search.URL); err != nil {
		return &types.NavigationError{View: "Basic Search & Retrieve", Err: err}
	}
	if err := s.waitTextAt(browser.ByID, searchHeaderID, "Basic Search"); err != nil {
		return &types.NavigationError{View: "Basic Search & Retrieve", Err: err}
	}

	if s.cfg.Output.SaveScreenshot && s.cfg.Output.WindowWidth > 0 && s.cfg.Output.WindowHeight > 0 {
		if err := s.drv.SetWindowSize(s.cfg.Output.WindowWidth, s.cfg.Output.WindowHeight); err != nil {
			return fmt.Errorf("set window size: %w", err)
		}
	}

	s.state = StateSearchPageLoaded
	return nil
}

// Authenticate submits the personal-account login when one is configured
// and verifies it took: the login form must disappear and the search panel
// must still be present. Without login enabled it is a no-op (IP-based
// authentication).
func (s *Session) Authenticate() error {
	if err := s.requireState("authenticate", StateSearchPageLoaded); err != nil {
		return err
	}
	if !s.cfg.Login.Enabled {
		return nil
	}

	s.logger.Info("logging in", "user", s.cfg.Login.UserID)
	userField, err := s.findWait(browser.ByID, loginUserFieldID)
	if err != nil {
		return &types.NavigationError{View: "login form", Err: err}
	}
	if err := userField.Input(s.cfg.Login.UserID); err != nil {
		return &types.NavigationError{View: "login form", Err: err}
	}
	passField, err := s.findWait(browser.ByID, loginPassFieldID)
	if err != nil {
		return &types.NavigationError{View: "login form", Err: err}
	}
	if err := passField.Input(s.cfg.Login.Password); err != nil {
		return &types.NavigationError{View: "login form", Err: err}
	}
	loginButton, err := s.findWait(browser.ByID, loginButtonID)
	if err != nil {
		return &types.NavigationError{View: "login form", Err: err}
	}
	if err := loginButton.Click(); err != nil {
		return &types.NavigationError{View: "login form", Err: err}
	}

	// A rejected login re-renders the form; a successful one removes it
	// and keeps the search panel.
	err = browser.WaitFor(s.cfg.Waits.SettleInterval, s.cfg.Waits.SettleTimeout, func() (bool, error) {
		if _, err := s.drv.Find(browser.ByID, loginUserFieldID); !errors.Is(err, browser.ErrNotFound) {
			return false, err
		}
		return s.textAt(browser.ByID, searchHeaderID, "Basic Search")
	})
	if err != nil {
		return &types.NavigationError{View: "authenticated search page", Err: err}
	}

	s.state = StateAuthenticated
	return nil
}

// SelectStructureSources reconciles the three Content Selection checkboxes
// with the configured source set. The panel re-renders asynchronously after
// each click, so every toggle waits for the observed state to match before
// moving on.
func (s *Session) SelectStructureSources() error {
	if err := s.requireState("select structure sources", StateSearchPageLoaded, StateAuthenticated); err != nil {
		return err
	}

	for _, ctl := range sourceControls {
		checkboxID := fmt.Sprintf(contentCheckboxIDFmt, ctl.index)
		checkbox, err := s.findWait(browser.ByID, checkboxID)
		if err != nil {
			return &types.NavigationError{View: "Content Selection", Err: err}
		}
		selected, err := checkbox.Selected()
		if err != nil {
			return &types.NavigationError{View: "Content Selection", Err: err}
		}
		want := s.sources.Has(ctl.source)
		if selected == want {
			continue
		}

		label, err := s.findWait(browser.ByXPath, fmt.Sprintf(contentLabelXPathFmt, ctl.label))
		if err != nil {
			return &types.NavigationError{View: "Content Selection", Err: err}
		}
		if err := label.Click(); err != nil {
			return &types.NavigationError{View: "Content Selection", Err: err}
		}
		s.logger.Debug("toggled structure source", "source", ctl.source, "selected", want)

		err = browser.WaitFor(s.cfg.Waits.SettleInterval, s.cfg.Waits.SettleTimeout, func() (bool, error) {
			cb, err := s.drv.Find(browser.ByID, checkboxID)
			if errors.Is(err, browser.ErrNotFound) {
				return false, nil
			}
			if err != nil {
				return false, err
			}
			got, err := cb.Selected()
			if err != nil {
				return false, err
			}
			return got == want, nil
		})
		if err != nil {
			return &types.NavigationError{View: "Content Selection", Err: fmt.Errorf("checkbox %q did not settle: %w", ctl.label, err)}
		}
	}
	return nil
}

// SubmitQuery types every query field into its form input, runs the query,
// and verifies the list view loaded. It returns the reported hit count;
// zero hits is a valid terminal outcome, not an error.
func (s *Session) SubmitQuery() (int, error) {
	// An empty query is rejected before any state check: it can never be
	// submitted, whatever the page looks like.
	if s.query.IsEmpty() {
		return 0, &types.QueryError{Reason: "empty query"}
	}
	if err := s.requireState("submit query", StateSearchPageLoaded, StateAuthenticated); err != nil {
		return 0, err
	}

	for _, field := range s.query.Fields() {
		id, ok := s.table.QueryLocator(field)
		if !ok {
			return 0, &types.QueryError{Reason: fmt.Sprintf("unrecognized query field %q", field)}
		}
		input, err := s.findWait(browser.ByID, id)
		if err != nil {
			return 0, &types.NavigationError{View: "search form", Err: err}
		}
		if err := input.Input(s.query[field]); err != nil {
			return 0, &types.NavigationError{View: "search form", Err: err}
		}
		s.logger.Debug("query field set", "field", field, "value", s.query[field])
	}

	runButton, err := s.findWait(browser.ByName, runQueryName)
	if err != nil {
		return 0, &types.NavigationError{View: "search form", Err: err}
	}
	if err := runButton.Click(); err != nil {
		return 0, &types.NavigationError{View: "search form", Err: err}
	}

	hits, err := s.checkListView()
	if err != nil {
		return 0, err
	}
	s.hits = hits
	s.state = StateResultsListed
	return hits, nil
}

// checkListView waits for either the "no results" popup or the List View
// panel, then parses the hit count from the panel title's last token.
func (s *Session) checkListView() (int, error) {
	var (
		noResults bool
		listTitle string
	)
	err := browser.WaitFor(s.cfg.Waits.SettleInterval, s.cfg.Waits.SettleTimeout, func() (bool, error) {
		popup, err := s.drv.Find(browser.ByID, messagesID)
		if err == nil {
			text, terr := popup.Text()
			if terr != nil {
				return false, terr
			}
			if strings.Contains(text, "No results found") {
				noResults = true
				return true, nil
			}
		} else if !errors.Is(err, browser.ErrNotFound) {
			return false, err
		}

		titles, err := s.drv.FindAll(browser.ByClass, panelTitleClass)
		if err != nil {
			return false, err
		}
		for _, t := range titles {
			text, terr := t.Text()
			if terr != nil {
				return false, terr
			}
			if strings.Contains(text, "List View") {
				listTitle = text
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil {
		return 0, &types.NavigationError{View: "List View", Err: err}
	}
	if noResults {
		return 0, nil
	}

	tokens := strings.Fields(listTitle)
	hits, err := strconv.Atoi(tokens[len(tokens)-1])
	if err != nil {
		return 0, &types.QueryError{Reason: fmt.Sprintf("malformed hit-count label %q", listTitle), Err: err}
	}
	return hits, nil
}

// OpenDetailView selects all result rows, switches to the detailed view,
// verifies it loaded, and expands every panel.
func (s *Session) OpenDetailView() error {
	if err := s.requireState("open detail view", StateResultsListed); err != nil {
		return err
	}

	selectAll, err := s.findWait(browser.ByID, selectAllRowsID)
	if err != nil {
		return &types.NavigationError{View: "List View", Err: err}
	}
	if err := selectAll.Click(); err != nil {
		return &types.NavigationError{View: "List View", Err: err}
	}

	detailed, err := s.findWait(browser.ByID, detailedButtonID)
	if err != nil {
		return &types.NavigationError{View: "List View", Err: err}
	}
	if err := detailed.Click(); err != nil {
		return &types.NavigationError{View: "List View", Err: err}
	}

	if err := s.waitPanelTitle("Detailed View"); err != nil {
		return &types.NavigationError{View: "Detailed View", Err: err}
	}

	expand, err := s.findWait(browser.ByID, expandAllID)
	if err != nil {
		return &types.NavigationError{View: "Detailed View", Err: err}
	}
	if err := expand.Click(); err != nil {
		return &types.NavigationError{View: "Detailed View", Err: err}
	}

	s.state = StateDetailViewOpen
	return nil
}

// EntryCount reads the number of entries actually rendered into the
// detailed view, from the last token of its panel title.
func (s *Session) EntryCount() (int, error) {
	if err := s.requireState("count entries", StateDetailViewOpen); err != nil {
		return 0, err
	}

	titles, err := s.drv.FindAll(browser.ByClass, panelTitleClass)
	if err != nil {
		return 0, &types.NavigationError{View: "Detailed View", Err: err}
	}
	for _, t := range titles {
		text, terr := t.Text()
		if terr != nil {
			return 0, &types.NavigationError{View: "Detailed View", Err: terr}
		}
		if !strings.Contains(text, "Detailed View") {
			continue
		}
		tokens := strings.Fields(text)
		n, aerr := strconv.Atoi(tokens[len(tokens)-1])
		if aerr != nil {
			return 0, &types.NavigationError{View: "Detailed View", Err: fmt.Errorf("malformed entry-count label %q: %w", text, aerr)}
		}
		return n, nil
	}
	return 0, &types.NavigationError{View: "Detailed View", Err: fmt.Errorf("entry-count title not found")}
}

// Advance clicks through to the next entry and waits until the summary
// shows a collection code different from the entry just parsed. It is only
// called while more entries remain.
func (s *Session) Advance(prevCode int) error {
	if err := s.requireState("advance", StateDetailViewOpen); err != nil {
		return err
	}

	next, err := s.findWait(browser.ByID, nextButtonID)
	if err != nil {
		return &types.NavigationError{View: "Detailed View", Err: err}
	}
	if err := next.Click(); err != nil {
		return &types.NavigationError{View: "Detailed View", Err: err}
	}

	err = browser.WaitFor(s.cfg.Waits.SettleInterval, s.cfg.Waits.SettleTimeout, func() (bool, error) {
		pageHTML, herr := s.drv.HTML()
		if herr != nil {
			return false, herr
		}
		code, cerr := extract.CollectionCode(pageHTML)
		if cerr != nil {
			// The summary panel may be mid-render; keep polling.
			return false, nil
		}
		return code != prevCode, nil
	})
	if err != nil {
		return &types.NavigationError{View: "Detailed View", Err: fmt.Errorf("next entry after %d did not load: %w", prevCode, err)}
	}
	return nil
}

// persistCurrent extracts and persists the entry currently displayed.
func (s *Session) persistCurrent() (int, error) {
	pageHTML, err := s.drv.HTML()
	if err != nil {
		return 0, &types.NavigationError{View: "Detailed View", Err: err}
	}
	rec, err := s.extractor.Extract(pageHTML)
	if err != nil {
		return 0, err
	}

	var screenshot []byte
	if s.cfg.Output.SaveScreenshot {
		screenshot, err = s.drv.Screenshot(true)
		if err != nil {
			return 0, &types.PersistError{Code: rec.CollectionCode, Step: "screenshot", Err: err}
		}
	}

	if _, err := s.persister.Persist(rec, screenshot); err != nil {
		return 0, err
	}

	if s.cfg.Output.DownloadCIFs {
		export, err := s.findWait(browser.ByID, exportCIFID)
		if err != nil {
			return 0, &types.NavigationError{View: "Detailed View", Err: err}
		}
		if err := export.Click(); err != nil {
			return 0, &types.NavigationError{View: "Detailed View", Err: err}
		}
		if err := s.persister.CollectCIF(rec.CollectionCode); err != nil {
			return 0, err
		}
	}

	return rec.CollectionCode, nil
}

// Close releases the browser. It is safe to call on every exit path but
// must run exactly once; a second call reports ErrSessionClosed.
func (s *Session) Close() error {
	if s.closed {
		return types.ErrSessionClosed
	}
	s.closed = true
	s.state = StateTerminated
	return s.drv.Close()
}

// requireState guards against out-of-order operations.
func (s *Session) requireState(op string, allowed ...State) error {
	for _, st := range allowed {
		if s.state == st {
			return nil
		}
	}
	return fmt.Errorf("%s: invalid session state %q", op, s.state)
}

// findWait polls for an element that is expected to appear, bounded by the
// element timeout.
func (s *Session) findWait(by browser.By, sel string) (browser.Element, error) {
	var el browser.Element
	err := browser.WaitFor(s.cfg.Waits.SettleInterval, s.cfg.Waits.ElementTimeout, func() (bool, error) {
		found, ferr := s.drv.Find(by, sel)
		if errors.Is(ferr, browser.ErrNotFound) {
			return false, nil
		}
		if ferr != nil {
			return false, ferr
		}
		el = found
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("element %s=%q: %w", by, sel, err)
	}
	return el, nil
}

// textAt reports whether the element currently contains the given text.
// An absent element is false, not an error.
func (s *Session) textAt(by browser.By, sel, contains string) (bool, error) {
	el, err := s.drv.Find(by, sel)
	if errors.Is(err, browser.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	text, err := el.Text()
	if err != nil {
		return false, err
	}
	return strings.Contains(text, contains), nil
}

// waitTextAt waits until the element exists and contains the given text.
func (s *Session) waitTextAt(by browser.By, sel, contains string) error {
	return browser.WaitFor(s.cfg.Waits.SettleInterval, s.cfg.Waits.ElementTimeout, func() (bool, error) {
		return s.textAt(by, sel, contains)
	})
}

// waitPanelTitle waits until some panel title contains the given text.
func (s *Session) waitPanelTitle(contains string) error {
	return browser.WaitFor(s.cfg.Waits.SettleInterval, s.cfg.Waits.ElementTimeout, func() (bool, error) {
		titles, err := s.drv.FindAll(browser.ByClass, panelTitleClass)
		if err != nil {
			return false, err
		}
		for _, t := range titles {
			text, terr := t.Text()
			if terr != nil {
				return false, terr
			}
			if strings.Contains(text, contains) {
				return true, nil
			}
		}
		return false, nil
	})
}
