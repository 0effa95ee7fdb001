package extract

import (
	"strings"

	"github.com/JonMunkholm/journalimport/internal/journal"
)

// Table is a decoded CSV or spreadsheet: a header plus data rows in file
// order. Data rows may be shorter than the header.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// Row returns data row i (0-based) paired with the header.
func (t *Table) Row(i int) Row {
	return Row{Columns: t.Columns, Values: t.Rows[i]}
}

// ParseRow maps and coerces one tabular row. index is the 1-based data row
// number used in the warning text. Every failure is a *RowError.
func ParseRow(row Row, index int, d Defaults) (journal.Entry, error) {
	e, err := Coerce(MapFields(row), d)
	if err != nil {
		return journal.Entry{}, &RowError{Row: index, Err: err}
	}
	return e, nil
}

func blankRow(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func cleanHeader(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = strings.TrimSpace(c)
	}
	return out
}

// newTable builds a Table from raw records whose first record is the header.
// Blank data rows are dropped.
func newTable(records [][]string) *Table {
	t := &Table{}
	if len(records) == 0 {
		return t
	}
	t.Columns = cleanHeader(records[0])
	for _, rec := range records[1:] {
		if blankRow(rec) {
			continue
		}
		t.Rows = append(t.Rows, rec)
	}
	return t
}
