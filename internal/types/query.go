package types

import (
	"fmt"
	"sort"
	"strings"
)

// Query field names accepted by the Basic Search & Retrieve form.
const (
	FieldComposition      = "composition"
	FieldNumberOfElements = "number_of_elements"
	FieldCollectionCode   = "icsd_collection_code"
)

// Query maps a search form field name to the value typed into it.
// At least one entry must be present before submission.
type Query map[string]string

// IsEmpty reports whether the query has no populated fields.
func (q Query) IsEmpty() bool {
	for _, v := range q {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Fields returns the populated field names in sorted order.
func (q Query) Fields() []string {
	fields := make([]string, 0, len(q))
	for k, v := range q {
		if strings.TrimSpace(v) != "" {
			fields = append(fields, k)
		}
	}
	sort.Strings(fields)
	return fields
}

// StructureSource identifies one of the three "Content Selection" categories
// a search can be scoped to.
type StructureSource string

const (
	SourceExperimentalInorganic    StructureSource = "expt"
	SourceExperimentalMetalOrganic StructureSource = "mofs"
	SourceTheoretical              StructureSource = "theo"
)

// ParseStructureSource accepts either the short form ("expt", "mofs",
// "theo") or the descriptive form used in documentation.
func ParseStructureSource(s string) (StructureSource, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "expt", "experimental-inorganic", "experimental_inorganic":
		return SourceExperimentalInorganic, nil
	case "mofs", "experimental-metal-organic", "experimental_metal_organic":
		return SourceExperimentalMetalOrganic, nil
	case "theo", "theoretical":
		return SourceTheoretical, nil
	}
	return "", fmt.Errorf("unknown structure source %q (valid: expt, mofs, theo)", s)
}

// SourceSet is the set of structure sources a query is scoped to.
type SourceSet map[StructureSource]bool

// DefaultSources limits the search to experimental inorganic structures,
// matching the default state of the Content Selection panel.
func DefaultSources() SourceSet {
	return SourceSet{SourceExperimentalInorganic: true}
}

// ParseSources builds a SourceSet from a list of source names.
// An empty list yields the default selection.
func ParseSources(names []string) (SourceSet, error) {
	if len(names) == 0 {
		return DefaultSources(), nil
	}
	set := make(SourceSet, len(names))
	for _, n := range names {
		src, err := ParseStructureSource(n)
		if err != nil {
			return nil, err
		}
		set[src] = true
	}
	return set, nil
}

// Has reports whether the set contains the given source.
func (s SourceSet) Has(src StructureSource) bool { return s[src] }

func (s SourceSet) String() string {
	names := make([]string, 0, len(s))
	for src, ok := range s {
		if ok {
			names = append(names, string(src))
		}
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

// Credentials holds the login of a personal ICSD account. When login is
// requested and either value is blank, the ICSD_USERID / ICSD_PASSWORD
// environment variables are consulted at configuration time.
type Credentials struct {
	UserID   string
	Password string
}

// Complete reports whether both values are populated.
func (c Credentials) Complete() bool {
	return c.UserID != "" && c.Password != ""
}
