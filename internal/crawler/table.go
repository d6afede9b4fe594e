package crawler

import (
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"sjsage522/keypriceworker/helpers"
)

// Table is a finalized, column-ordered set of rows
type Table struct {
	Name       string
	CapturedOn time.Time
	Columns    []string
	Rows       [][]string
}

// Finalize stamps the capture date on every record and projects the
// records onto columns. Keys not listed in columns are dropped.
func Finalize(name string, records []Record, columns []string, capturedOn time.Time) *Table {
	stamp := helpers.DateStamp(capturedOn)

	rows := make([][]string, 0, len(records))
	for _, record := range records {
		row := make([]string, len(columns))
		for i, column := range columns {
			if column == DateColumn {
				row[i] = stamp
				continue
			}
			row[i] = record[column]
		}
		rows = append(rows, row)
	}

	return &Table{
		Name:       name,
		CapturedOn: capturedOn,
		Columns:    append([]string(nil), columns...),
		Rows:       rows,
	}
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// Column returns every value of the named column, or nil if the table has
// no such column
func (t *Table) Column(name string) []string {
	idx := -1
	for i, column := range t.Columns {
		if column == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	values := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row[idx]
	}
	return values
}

// RowMap returns row i keyed by column name
func (t *Table) RowMap(i int) map[string]string {
	m := make(map[string]string, len(t.Columns))
	for j, column := range t.Columns {
		m[column] = t.Rows[i][j]
	}
	return m
}

// String renders the table for debug logs
func (t *Table) String() string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)

	header := make(table.Row, len(t.Columns))
	for i, column := range t.Columns {
		header[i] = column
	}
	tw.AppendHeader(header)

	for _, row := range t.Rows {
		r := make(table.Row, len(row))
		for i, v := range row {
			r[i] = v
		}
		tw.AppendRow(r)
	}

	return tw.Render()
}
