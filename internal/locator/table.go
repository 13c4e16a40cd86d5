// Package locator holds the declarative mapping from logical field names to
// locations on the ICSD web pages. Two tables exist: query fields map to the
// element IDs of the search form inputs, and parse fields map to the labels
// of the detail-view output table. Both are loaded once at startup and are
// immutable afterwards.
package locator

import (
	"fmt"

	"github.com/matscrape/icsdgrab/internal/types"
)

// Kind selects the extraction rule applied to a parse field.
type Kind string

const (
	// KindText extracts the trimmed text of the value cell next to the
	// field's label. An absent label yields an empty string.
	KindText Kind = "single-text"

	// KindAttribute extracts an attribute value from the first element
	// inside the value cell that carries it.
	KindAttribute Kind = "attribute-text"

	// KindCheckbox extracts the checked state of the checkbox control next
	// to the field's label. The control itself must exist on every entry.
	KindCheckbox Kind = "checkbox-boolean"

	// KindList collects the distinct non-empty values of every cell that
	// shares the field's label.
	KindList Kind = "text-list"
)

// Parse rules applied to extracted text before it is stored.
const (
	ParseNone  = ""
	ParseInt   = "int"
	ParseFloat = "float"
	ParseCell  = "cell" // six floats: a b c alpha beta gamma
)

// ParseField describes where one detail-view field lives and how to read it.
type ParseField struct {
	Name      string `mapstructure:"name"`
	Label     string `mapstructure:"label"`
	Kind      Kind   `mapstructure:"kind"`
	Attribute string `mapstructure:"attribute"`
	Parse     string `mapstructure:"parse"`
}

// Table is the full locator configuration.
type Table struct {
	QueryFields map[string]string `mapstructure:"query_fields"`
	ParseFields []ParseField      `mapstructure:"parse_fields"`
}

// QueryLocator returns the form input element ID for a query field name.
func (t *Table) QueryLocator(field string) (string, bool) {
	id, ok := t.QueryFields[field]
	return id, ok
}

// Validate checks the table for structural problems. It is called once at
// load time so a broken table fails the process before a browser launches.
func (t *Table) Validate() error {
	if len(t.QueryFields) == 0 {
		return fmt.Errorf("locator table has no query fields")
	}
	for name, id := range t.QueryFields {
		if name == "" || id == "" {
			return fmt.Errorf("query field %q has an empty name or element id", name)
		}
	}
	if len(t.ParseFields) == 0 {
		return fmt.Errorf("locator table has no parse fields")
	}
	seen := make(map[string]bool, len(t.ParseFields))
	for _, f := range t.ParseFields {
		if f.Name == "" {
			return fmt.Errorf("parse field with label %q has no name", f.Label)
		}
		if seen[f.Name] {
			return fmt.Errorf("duplicate parse field %q", f.Name)
		}
		seen[f.Name] = true
		if f.Label == "" {
			return fmt.Errorf("parse field %q has no label", f.Name)
		}
		switch f.Kind {
		case KindText, KindCheckbox, KindList:
			if f.Attribute != "" {
				return fmt.Errorf("parse field %q: attribute is only valid for kind %q", f.Name, KindAttribute)
			}
		case KindAttribute:
			if f.Attribute == "" {
				return fmt.Errorf("parse field %q: kind %q requires an attribute", f.Name, KindAttribute)
			}
		default:
			return fmt.Errorf("parse field %q has unknown kind %q", f.Name, f.Kind)
		}
		switch f.Parse {
		case ParseNone, ParseInt, ParseFloat, ParseCell:
		default:
			return fmt.Errorf("parse field %q has unknown parse rule %q", f.Name, f.Parse)
		}
		if f.Parse != ParseNone && f.Kind != KindText {
			return fmt.Errorf("parse field %q: numeric parsing requires kind %q", f.Name, KindText)
		}
	}
	return nil
}

// ValidateQuery checks that every populated query field is known to the
// table. Emptiness is not checked here; an empty query is rejected at
// submission time.
func (t *Table) ValidateQuery(q types.Query) error {
	for field := range q {
		if _, ok := t.QueryFields[field]; !ok {
			return fmt.Errorf("unrecognized query field %q", field)
		}
	}
	return nil
}
