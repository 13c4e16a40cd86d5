// Package extract turns the detail view of a single ICSD entry into a flat
// record, driven by the parse-field locator table. It operates on a
// serialized snapshot of the page rather than the live DOM, so one snapshot
// per entry is the only browser round-trip extraction needs.
package extract

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/matscrape/icsdgrab/internal/locator"
	"github.com/matscrape/icsdgrab/internal/types"
)

// panelTitleClass marks the collapsible panel headers of the detail view.
// The "Summary" panel title carries the collection code.
const panelTitleClass = "ui-panel-title"

// Extractor applies the locator table to one detail page.
type Extractor struct {
	table  *locator.Table
	logger *slog.Logger
}

// New creates an Extractor for the given locator table.
func New(table *locator.Table, logger *slog.Logger) *Extractor {
	return &Extractor{
		table:  table,
		logger: logger.With("component", "extractor"),
	}
}

// Extract parses every recognized field out of the detail-view snapshot.
// Optional fields that the page omits come back as explicit empty values;
// a missing collection code or checkbox control is fatal.
func (e *Extractor) Extract(pageHTML string) (*types.Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("parse detail page: %w", err)
	}
	root, err := html.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("parse detail page: %w", err)
	}

	code, err := collectionCode(doc)
	if err != nil {
		return nil, err
	}

	rec := types.NewRecord(code)
	for _, f := range e.table.ParseFields {
		switch f.Kind {
		case locator.KindText:
			e.setScalar(rec, f, labelValue(root, f.Label))
		case locator.KindAttribute:
			rec.Set(f.Name, attributeValue(root, f.Label, f.Attribute))
		case locator.KindCheckbox:
			checked, err := checkboxValue(root, f.Label)
			if err != nil {
				return nil, &types.FieldNotFoundError{Field: f.Name, Err: err}
			}
			rec.Set(f.Name, checked)
		case locator.KindList:
			rec.Set(f.Name, labelValues(root, f.Label))
		}
	}
	return rec, nil
}

// setScalar stores a single-text value, applying the field's numeric parse
// rule. An empty value stays an empty string: the remote UI legitimately
// omits optional fields, and skipping conversion there is required.
func (e *Extractor) setScalar(rec *types.Record, f locator.ParseField, value string) {
	if value == "" || f.Parse == locator.ParseNone {
		rec.Set(f.Name, value)
		return
	}
	switch f.Parse {
	case locator.ParseInt:
		n, err := parseInt(value)
		if err != nil {
			e.logger.Warn("field not an integer, keeping raw text", "field", f.Name, "value", value)
			rec.Set(f.Name, value)
			return
		}
		rec.Set(f.Name, n)
	case locator.ParseFloat:
		v, err := parseFloat(value)
		if err != nil {
			e.logger.Warn("field not a number, keeping raw text", "field", f.Name, "value", value)
			rec.Set(f.Name, value)
			return
		}
		rec.Set(f.Name, v)
	case locator.ParseCell:
		cell, err := ParseCellParameters(value)
		if err != nil {
			e.logger.Warn("unparseable cell parameters, keeping raw text", "field", f.Name, "value", value)
			rec.Set(f.Name, value)
			return
		}
		rec.Set(f.Name, cell)
	}
}

// CollectionCode reads the ICSD collection code of the entry currently
// shown in a detail-view snapshot. The session uses it to confirm the page
// advanced to a new entry.
func CollectionCode(pageHTML string) (int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return 0, fmt.Errorf("parse detail page: %w", err)
	}
	return collectionCode(doc)
}

// collectionCode reads the ICSD collection code from the Summary panel
// title, where it is the last whitespace-delimited token.
func collectionCode(doc *goquery.Document) (int, error) {
	var (
		code  int
		found bool
		perr  error
	)
	doc.Find("." + panelTitleClass).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.TrimSpace(sel.Text())
		if !strings.Contains(text, "Summary") {
			return true
		}
		tokens := strings.Fields(text)
		n, err := strconv.Atoi(tokens[len(tokens)-1])
		if err != nil {
			perr = fmt.Errorf("summary title %q has no trailing code: %w", text, err)
			return false
		}
		code, found = n, true
		return false
	})
	if perr != nil {
		return 0, &types.FieldNotFoundError{Field: "collection_code", Err: perr}
	}
	if !found {
		return 0, &types.FieldNotFoundError{Field: "collection_code"}
	}
	return code, nil
}

// labelCells returns every table cell in rows that contain the given output
// label, in document order. The label cell and its value cell are adjacent
// entries of this list.
func labelCells(root *html.Node, label string) []*html.Node {
	expr := fmt.Sprintf("//td[text()[contains(., %s)]]/../td", xpathLiteral(label))
	nodes, err := htmlquery.QueryAll(root, expr)
	if err != nil {
		return nil
	}
	return nodes
}

// labelValue returns the text of the cell following the label cell, or ""
// when the page does not show the field.
func labelValue(root *html.Node, label string) string {
	cells := labelCells(root, label)
	for i := len(cells) - 1; i >= 0; i-- {
		if !strings.Contains(htmlquery.SelectAttr(cells[i], "class"), "outputlabel") {
			continue
		}
		if strings.TrimSpace(htmlquery.InnerText(cells[i])) != label {
			continue
		}
		if i+1 < len(cells) {
			return strings.TrimSpace(htmlquery.InnerText(cells[i+1]))
		}
	}
	return ""
}

// attributeValue returns the given attribute of the first element inside
// the label's value cell that carries it, or "" if the field is absent.
func attributeValue(root *html.Node, label, attr string) string {
	cells := labelCells(root, label)
	for i := len(cells) - 1; i >= 0; i-- {
		if !strings.Contains(htmlquery.SelectAttr(cells[i], "class"), "outputlabel") {
			continue
		}
		if strings.TrimSpace(htmlquery.InnerText(cells[i])) != label {
			continue
		}
		if i+1 >= len(cells) {
			return ""
		}
		if v := htmlquery.SelectAttr(cells[i+1], attr); v != "" {
			return v
		}
		node := htmlquery.FindOne(cells[i+1], fmt.Sprintf(".//*[@%s]", attr))
		if node != nil {
			return htmlquery.SelectAttr(node, attr)
		}
		return ""
	}
	return ""
}

// labelValues collects the distinct non-empty values of every cell sharing
// the label. Order is not significant on the page, so the result is sorted
// for stable output.
func labelValues(root *html.Node, label string) []string {
	seen := make(map[string]bool)
	cells := labelCells(root, label)
	for i, cell := range cells {
		if strings.TrimSpace(htmlquery.InnerText(cell)) != label {
			continue
		}
		if i+1 >= len(cells) {
			continue
		}
		value := strings.TrimSpace(htmlquery.InnerText(cells[i+1]))
		if value != "" {
			seen[value] = true
		}
	}
	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

// checkboxValue reads the checked marker of the checkbox rendered next to
// the label. Every entry renders every checkbox control, so a missing
// control is an error rather than a false.
func checkboxValue(root *html.Node, label string) (bool, error) {
	expr := fmt.Sprintf("//td[text()[contains(., %s)]]", xpathLiteral(label))
	cells, err := htmlquery.QueryAll(root, expr)
	if err != nil {
		return false, err
	}
	labelFound := false
	for _, cell := range cells {
		if strings.TrimSpace(htmlquery.InnerText(cell)) != label {
			continue
		}
		labelFound = true
		input := htmlquery.FindOne(cell, "..//input")
		if input == nil {
			continue
		}
		return hasAttr(input, "checked"), nil
	}
	if labelFound {
		return false, fmt.Errorf("no checkbox control next to label %q", label)
	}
	return false, fmt.Errorf("label %q not on page", label)
}

func hasAttr(n *html.Node, name string) bool {
	for _, a := range n.Attr {
		if a.Key == name {
			return true
		}
	}
	return false
}

// xpathLiteral quotes a string for embedding in an XPath expression,
// falling back to concat() when the text itself contains quotes.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		quoted = append(quoted, "'"+p+"'")
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
