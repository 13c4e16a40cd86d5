package locator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matscrape/icsdgrab/internal/types"
)

func TestLoadBuiltinTable(t *testing.T) {
	table, err := Load("")
	if err != nil {
		t.Fatalf("load built-in table: %v", err)
	}

	for _, field := range []string{"composition", "number_of_elements", "icsd_collection_code"} {
		if _, ok := table.QueryLocator(field); !ok {
			t.Errorf("query field %q missing from built-in table", field)
		}
	}
	if len(table.ParseFields) == 0 {
		t.Fatal("built-in table has no parse fields")
	}

	names := make(map[string]bool)
	for _, f := range table.ParseFields {
		names[f.Name] = true
	}
	for _, want := range []string{"cell_parameter", "sum_formula", "theoretical_calculation", "remarks"} {
		if !names[want] {
			t.Errorf("parse field %q missing from built-in table", want)
		}
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tags.yaml")
	content := `
query_fields:
  composition: "form:comp"
parse_fields:
  - name: sum_formula
    label: "Sum Formula"
    kind: single-text
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	table, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	id, ok := table.QueryLocator("composition")
	if !ok || id != "form:comp" {
		t.Errorf("composition locator = %q, %v", id, ok)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidateRejectsUnknownKind(t *testing.T) {
	table := &Table{
		QueryFields: map[string]string{"composition": "x"},
		ParseFields: []ParseField{{Name: "f", Label: "F", Kind: "regex"}},
	}
	if err := table.Validate(); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestValidateRejectsDuplicateField(t *testing.T) {
	table := &Table{
		QueryFields: map[string]string{"composition": "x"},
		ParseFields: []ParseField{
			{Name: "f", Label: "F", Kind: KindText},
			{Name: "f", Label: "G", Kind: KindText},
		},
	}
	if err := table.Validate(); err == nil {
		t.Fatal("expected error for duplicate field name")
	}
}

func TestValidateRejectsAttributeKindWithoutAttribute(t *testing.T) {
	table := &Table{
		QueryFields: map[string]string{"composition": "x"},
		ParseFields: []ParseField{{Name: "f", Label: "F", Kind: KindAttribute}},
	}
	if err := table.Validate(); err == nil {
		t.Fatal("expected error for attribute-text without attribute")
	}
}

func TestValidateRejectsParseOnNonText(t *testing.T) {
	table := &Table{
		QueryFields: map[string]string{"composition": "x"},
		ParseFields: []ParseField{{Name: "f", Label: "F", Kind: KindList, Parse: ParseFloat}},
	}
	if err := table.Validate(); err == nil {
		t.Fatal("expected error for numeric parse on a list field")
	}
}

func TestValidateQuery(t *testing.T) {
	table := Default()

	ok := types.Query{"composition": "Ni:1:1 Ti:1:1", "number_of_elements": "2"}
	if err := table.ValidateQuery(ok); err != nil {
		t.Errorf("valid query rejected: %v", err)
	}

	bad := types.Query{"space_group": "P 63/m m c"}
	if err := table.ValidateQuery(bad); err == nil {
		t.Error("expected error for unrecognized query field")
	}
}
