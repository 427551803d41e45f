// Package table renders the plain text tables printed by the devnet CLI: the bootstrap summary and the smoke check
// results.
package table

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Alignment of a column.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
)

func (a Alignment) text() text.Align {
	if a == AlignRight {
		return text.AlignRight
	}

	return text.AlignLeft
}

// Render returns headers and rows as a rounded table. Headers keep their case, short rows are padded with empty
// cells and extra cells are dropped. Columns without an alignment are left aligned.
func Render(headers []string, rows [][]string, aligns []Alignment) string {
	if len(headers) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Header = text.FormatDefault

	tw.AppendHeader(row(headers, len(headers)))

	for _, r := range rows {
		tw.AppendRow(row(r, len(headers)))
	}

	configs := make([]table.ColumnConfig, len(headers))
	for i := range configs {
		configs[i] = table.ColumnConfig{Number: i + 1, AlignHeader: text.AlignLeft}

		if i < len(aligns) {
			configs[i].Align = aligns[i].text()
		}
	}

	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func row(cells []string, n int) table.Row {
	r := make(table.Row, n)
	for i := range r {
		r[i] = ""

		if i < len(cells) {
			r[i] = cells[i]
		}
	}

	return r
}
