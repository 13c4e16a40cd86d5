package types

import (
	"encoding/json"
	"testing"
)

func TestRecordAccessors(t *testing.T) {
	rec := NewRecord(261042)
	rec.Set("sum_formula", "Ni1 Ti1")
	rec.Set("theoretical_calculation", true)
	rec.Set("remarks", []string{"a", "b"})

	if got := rec.GetString("sum_formula"); got != "Ni1 Ti1" {
		t.Errorf("GetString = %q", got)
	}
	if !rec.GetBool("theoretical_calculation") {
		t.Error("GetBool = false")
	}
	if got := rec.GetStrings("remarks"); len(got) != 2 {
		t.Errorf("GetStrings = %v", got)
	}

	// Wrong-kind and absent lookups degrade to zero values.
	if rec.GetString("theoretical_calculation") != "" {
		t.Error("GetString on bool should be empty")
	}
	if rec.GetBool("absent") {
		t.Error("GetBool on absent field should be false")
	}
}

func TestRecordMarshalFlattens(t *testing.T) {
	rec := NewRecord(261042)
	rec.Set("sum_formula", "Ni1 Ti1")
	rec.Set("cell_parameter", CellParameters{A: 4.123, B: 4.123, C: 9.876, Alpha: 90, Beta: 90, Gamma: 120})

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["collection_code"] != float64(261042) {
		t.Errorf("collection_code = %v", got["collection_code"])
	}
	if got["sum_formula"] != "Ni1 Ti1" {
		t.Errorf("sum_formula = %v", got["sum_formula"])
	}
	cell, ok := got["cell_parameter"].(map[string]any)
	if !ok {
		t.Fatalf("cell_parameter = %T", got["cell_parameter"])
	}
	if cell["gamma"] != float64(120) {
		t.Errorf("gamma = %v", cell["gamma"])
	}
}
