package status

import (
	"bytes"
	"strings"

	"github.com/robalyx/apachemgr/pkg/utils"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Row maps normalized column headings to raw cell text.
type Row map[string]string

// Table is one candidate table from the status page.
type Table struct {
	Headings []string // Normalized headings in column order
	Rows     []Row
}

// HasColumns reports whether every key in columns is one of the table headings.
func (t *Table) HasColumns(columns []string) bool {
	for _, column := range columns {
		found := false
		for _, heading := range t.Headings {
			if heading == column {
				found = true
				break
			}
		}

		if !found {
			return false
		}
	}

	return true
}

// Filter returns the rows that have a cell for every key in columns.
func (t *Table) Filter(columns []string) []Row {
	rows := make([]Row, 0, len(t.Rows))

	for _, row := range t.Rows {
		if rowHasColumns(row, columns) {
			rows = append(rows, row)
		}
	}

	return rows
}

// FindTable returns the first table in raw that has all required columns and at
// least one row with a cell for each of them. The returned table only holds those rows.
func FindTable(raw []byte, required []string) (*Table, error) {
	var found *Table

	err := scanTables(raw, required, func(table *Table) bool {
		found = table
		return true
	})
	if err != nil {
		return nil, err
	}

	return found, nil
}

// scanTables offers each qualifying table to accept in document order, stopping at the
// first one accepted. Offered tables only hold rows with all required columns.
func scanTables(raw []byte, required []string, accept func(*Table) bool) error {
	keys := normalizeHeadings(required)
	tables := ExtractTables(raw)

	for _, table := range tables {
		if !table.HasColumns(keys) {
			continue
		}

		rows := table.Filter(keys)
		if len(rows) == 0 {
			continue
		}

		if accept(&Table{Headings: table.Headings, Rows: rows}) {
			return nil
		}
	}

	return &ParseError{Required: required, Tables: len(tables)}
}

// ExtractTables returns every table of the document in document order.
// HTML documents are read from their table elements. Anything else is treated as
// preformatted text with one table per blank-line separated block.
func ExtractTables(raw []byte) []*Table {
	if isHTML(raw) {
		return htmlTables(raw)
	}

	return textTables(string(raw))
}

func isHTML(raw []byte) bool {
	return bytes.Contains(bytes.ToLower(raw), []byte("<table"))
}

// htmlTables parses the document and collects its table elements.
func htmlTables(raw []byte) []*Table {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil
	}

	var tables []*Table

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Table {
			tables = append(tables, parseHTMLTable(n))
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return tables
}

// parseHTMLTable reads headings from th cells and rows from tr elements with td cells.
// Cell text wrapped over several lines is joined with single spaces.
// Nested tables are left to their own pass.
func parseHTMLTable(table *html.Node) *Table {
	var (
		headings []string
		cells    [][]string
	)

	for _, tr := range ownRows(table) {
		var values []string

		for c := tr.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}

			switch c.DataAtom {
			case atom.Th:
				headings = append(headings, utils.NormalizeKey(nodeText(c)))
			case atom.Td:
				values = append(values, utils.CompressAllWhitespace(nodeText(c)))
			default:
			}
		}

		if len(values) > 0 {
			cells = append(cells, values)
		}
	}

	return newTable(headings, cells)
}

// ownRows returns the tr elements that belong to table and not to a nested table.
func ownRows(table *html.Node) []*html.Node {
	var rows []*html.Node

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}

			switch c.DataAtom {
			case atom.Table:
				continue
			case atom.Tr:
				rows = append(rows, c)
			default:
				walk(c)
			}
		}
	}
	walk(table)

	return rows
}

// nodeText concatenates all text below n.
func nodeText(n *html.Node) string {
	var b strings.Builder

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	return b.String()
}

// textTables treats each block of the text as a table whose first line holds the headings.
func textTables(text string) []*Table {
	blocks := utils.SplitBlocks(text)
	tables := make([]*Table, 0, len(blocks))

	for _, block := range blocks {
		headings := normalizeHeadings(utils.SplitColumns(block[0]))

		cells := make([][]string, 0, len(block)-1)
		for _, line := range block[1:] {
			if values := utils.SplitColumns(line); len(values) > 0 {
				cells = append(cells, values)
			}
		}

		tables = append(tables, newTable(headings, cells))
	}

	return tables
}

// newTable binds cells to headings by position. Cells past the last heading are ignored
// and missing trailing cells leave their columns absent.
func newTable(headings []string, cells [][]string) *Table {
	table := &Table{Headings: headings, Rows: make([]Row, 0, len(cells))}

	for _, values := range cells {
		row := make(Row, len(values))
		for i, value := range values {
			if i >= len(headings) {
				break
			}

			row[headings[i]] = value
		}

		table.Rows = append(table.Rows, row)
	}

	return table
}

func normalizeHeadings(headings []string) []string {
	normalizer := utils.NewTextNormalizer()
	keys := make([]string, len(headings))

	for i, heading := range headings {
		keys[i] = normalizer.Key(heading)
	}

	return keys
}

func rowHasColumns(row Row, columns []string) bool {
	for _, column := range columns {
		if _, ok := row[column]; !ok {
			return false
		}
	}

	return true
}
