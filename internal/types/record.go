package types

import (
	"encoding/json"
	"sort"
)

// CellParameters holds the six lattice parameters of a published crystal
// structure. Lengths are in angstroms, angles in degrees.
type CellParameters struct {
	A     float64 `json:"a"`
	B     float64 `json:"b"`
	C     float64 `json:"c"`
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
	Gamma float64 `json:"gamma"`
}

// Record is the full set of fields extracted from one entry's detail view.
// Every record carries its ICSD collection code; all other fields are keyed
// by the parse-field name from the locator table. Fields the page does not
// show are stored with an explicit empty value, never omitted.
type Record struct {
	CollectionCode int
	Fields         map[string]any
}

// NewRecord creates an empty record for the given collection code.
func NewRecord(code int) *Record {
	return &Record{
		CollectionCode: code,
		Fields:         make(map[string]any),
	}
}

// Set stores a field value.
func (r *Record) Set(name string, value any) {
	r.Fields[name] = value
}

// GetString returns a field value as a string, or "" if it is absent or of
// another kind.
func (r *Record) GetString(name string) string {
	s, _ := r.Fields[name].(string)
	return s
}

// GetBool returns a checkbox field value.
func (r *Record) GetBool(name string) bool {
	b, _ := r.Fields[name].(bool)
	return b
}

// GetStrings returns a list field value.
func (r *Record) GetStrings(name string) []string {
	l, _ := r.Fields[name].([]string)
	return l
}

// Keys returns all field names in sorted order.
func (r *Record) Keys() []string {
	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MarshalJSON flattens the record into a single object with the collection
// code alongside the extracted fields.
func (r *Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+1)
	out["collection_code"] = r.CollectionCode
	for k, v := range r.Fields {
		out[k] = v
	}
	return json.Marshal(out)
}
