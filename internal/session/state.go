package session

// State is the session's position in the navigation flow. Transitions are
// strictly forward, except for the per-entry loop which stays in
// StateDetailViewOpen while advancing through results.
type State int

const (
	StateInitialized State = iota
	StateSearchPageLoaded
	StateAuthenticated
	StateResultsListed
	StateDetailViewOpen
	StateExhausted
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateSearchPageLoaded:
		return "search_page_loaded"
	case StateAuthenticated:
		return "authenticated"
	case StateResultsListed:
		return "results_listed"
	case StateDetailViewOpen:
		return "detail_view_open"
	case StateExhausted:
		return "exhausted"
	case StateTerminated:
		return "terminated"
	}
	return "unknown"
}
