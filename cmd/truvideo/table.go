package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// tableView is a rendered listing. Rows shorter than the header are padded;
// a non-empty footer is printed below a separator.
type tableView struct {
	headers []string
	aligns  []columnAlignment
	rows    [][]string
	footer  []string
}

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	return tableView{headers: headers, aligns: aligns, rows: rows}.render()
}

func (v tableView) render() string {
	if len(v.headers) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(v.row(v.headers))
	for _, cells := range v.rows {
		tw.AppendRow(v.row(cells))
	}
	if len(v.footer) > 0 {
		tw.AppendFooter(v.row(v.footer))
		tw.Style().Format.Footer = text.FormatDefault
	}

	configs := make([]table.ColumnConfig, len(v.headers))
	for i := range v.headers {
		configs[i] = table.ColumnConfig{
			Number:      i + 1,
			Align:       v.align(i),
			AlignFooter: v.align(i),
			AlignHeader: text.AlignLeft,
		}
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func (v tableView) row(cells []string) table.Row {
	r := make(table.Row, len(v.headers))
	for i := range r {
		if i < len(cells) {
			r[i] = cells[i]
		} else {
			r[i] = ""
		}
	}
	return r
}

func (v tableView) align(col int) text.Align {
	if col < len(v.aligns) && v.aligns[col] == alignRight {
		return text.AlignRight
	}
	return text.AlignLeft
}
