/*
Copyright © 2020 A. Jensen <jensen.aaro@gmail.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/


package extract

import (
	"fmt"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"io"
	"strconv"
	"strings"
)

const symbolColumn = "Symbol"

// ParseSymbolTable returns the Symbol column of the first table in the document.
// Rows without a Symbol cell are skipped; cell text is returned as found.
func ParseSymbolTable(r io.Reader) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse document: %v", ErrSourceFormatInvalid, err)
	}

	table := findFirst(doc, atom.Table)
	if table == nil {
		return nil, fmt.Errorf("%w: no tables found", ErrSourceFormatInvalid)
	}

	rows := tableRows(table)
	header := -1
	for i, row := range rows {
		if row.header {
			header = i
			break
		}
	}
	if header < 0 {
		header = 0
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: first table is empty", ErrSourceFormatInvalid)
	}

	col := -1
	for i, name := range rows[header].cells {
		if name == symbolColumn {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("%w: %s column not found in %v", ErrSourceFormatInvalid, symbolColumn, rows[header].cells)
	}

	var ret []string
	for _, row := range rows[header+1:] {
		if row.header || col >= len(row.cells) {
			continue
		}
		ret = append(ret, row.cells[col])
	}
	return ret, nil
}

type tableRow struct {
	cells  []string
	header bool // every cell is a th
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

// tableRows collects the rows of table, leaving out rows of nested tables.
// Cells spanning several columns are repeated so positions line up with the header.
func tableRows(table *html.Node) []tableRow {
	var ret []tableRow
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
				if row, ok := parseRow(c); ok {
					ret = append(ret, row)
				}
			default:
				walk(c)
			}
		}
	}
	walk(table)
	return ret
}

func parseRow(tr *html.Node) (tableRow, bool) {
	row := tableRow{header: true}
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || (c.DataAtom != atom.Td && c.DataAtom != atom.Th) {
			continue
		}
		if c.DataAtom == atom.Td {
			row.header = false
		}
		text := strings.TrimSpace(textOf(c))
		for i := 0; i < colspan(c); i++ {
			row.cells = append(row.cells, text)
		}
	}
	return row, len(row.cells) > 0
}

func colspan(n *html.Node) int {
	for _, a := range n.Attr {
		if a.Key == "colspan" {
			if v, err := strconv.Atoi(strings.TrimSpace(a.Val)); err == nil && v > 0 {
				return v
			}
		}
	}
	return 1
}

func textOf(n *html.Node) string {
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
