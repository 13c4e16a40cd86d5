package locator

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

//go:embed tags.yaml
var defaultTags []byte

// Load reads a locator table from the given YAML file, or falls back to the
// built-in table when path is empty. The table is validated before it is
// returned; a broken table must stop the process before any browser starts.
func Load(path string) (*Table, error) {
	data := defaultTags
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read locator table: %w", err)
		}
		data = b
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("parse locator table: %w", err)
	}

	table := &Table{}
	if err := v.Unmarshal(table); err != nil {
		return nil, fmt.Errorf("unmarshal locator table: %w", err)
	}

	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("invalid locator table: %w", err)
	}
	return table, nil
}

// Default returns the built-in locator table. It panics on error since the
// embedded table is validated by the package tests.
func Default() *Table {
	t, err := Load("")
	if err != nil {
		panic(err)
	}
	return t
}
