package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// renderTable draws rows under headers. Columns listed in rightAligned
// (1-based) are right aligned; headers always stay left.
func renderTable(headers table.Row, rows []table.Row, rightAligned ...int) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(headers)
	tw.AppendRows(rows)

	configs := make([]table.ColumnConfig, 0, len(rightAligned))
	for _, n := range rightAligned {
		configs = append(configs, table.ColumnConfig{Number: n, Align: text.AlignRight, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}
