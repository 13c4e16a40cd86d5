package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/matscrape/icsdgrab/internal/types"
)

// Lattice parameters are published with their standard uncertainty in
// parentheses, e.g. "4.123(5)". The annotation must go before numeric
// parsing.
var uncertaintyRe = regexp.MustCompile(`\(\d+\)`)

// StripUncertainty removes parenthetical uncertainty annotations from a
// numeric string.
func StripUncertainty(s string) string {
	return strings.TrimSpace(uncertaintyRe.ReplaceAllString(s, ""))
}

// ParseCellParameters parses the six whitespace-separated lattice parameters
// "a b c alpha beta gamma", stripping uncertainty annotations from each.
func ParseCellParameters(s string) (types.CellParameters, error) {
	var cell types.CellParameters
	fields := strings.Fields(s)
	if len(fields) != 6 {
		return cell, fmt.Errorf("expected 6 cell parameters, got %d in %q", len(fields), s)
	}
	vals := make([]float64, 6)
	for i, f := range fields {
		v, err := strconv.ParseFloat(StripUncertainty(f), 64)
		if err != nil {
			return cell, fmt.Errorf("cell parameter %q: %w", f, err)
		}
		vals[i] = v
	}
	cell.A, cell.B, cell.C = vals[0], vals[1], vals[2]
	cell.Alpha, cell.Beta, cell.Gamma = vals[3], vals[4], vals[5]
	return cell, nil
}

// parseFloat converts a field value to float64 after uncertainty stripping.
func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(StripUncertainty(s), 64)
}

// parseInt converts a field value to int.
func parseInt(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}
