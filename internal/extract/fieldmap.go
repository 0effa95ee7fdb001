package extract

import "strings"

// Field is a canonical target that arbitrary source columns resolve onto.
type Field string

const (
	FieldTitle     Field = "title"
	FieldAmount    Field = "amount"
	FieldDate      Field = "date"
	FieldAccount   Field = "account"
	FieldType      Field = "type"
	FieldReference Field = "reference"
)

// FieldCandidates pairs a canonical field with the column-name substrings
// that identify it, in priority order.
type FieldCandidates struct {
	Field      Field
	Candidates []string
}

// FieldMap is the ordered candidate table used by MapFields. The order of
// fields and of candidates within a field is part of the import contract:
// reordering changes which column wins when several match.
var FieldMap = []FieldCandidates{
	{FieldTitle, []string{"title", "description", "memo", "reference", "desc"}},
	{FieldAmount, []string{"amount", "value", "total", "sum", "amt"}},
	{FieldDate, []string{"date", "transaction_date", "entry_date"}},
	{FieldAccount, []string{"account", "account_name", "account_number"}},
	{FieldType, []string{"type", "entry_type", "debit_credit", "dr_cr"}},
	{FieldReference, []string{"reference", "ref", "ref_number", "transaction_id"}},
}

// Row is one decoded tabular record. Columns and Values are index-aligned;
// a short Values slice reads as empty cells.
type Row struct {
	Columns []string
	Values  []string
}

// Get returns the value of the first column named exactly col.
func (r Row) Get(col string) (string, bool) {
	for i, c := range r.Columns {
		if c == col {
			return r.value(i), true
		}
	}
	return "", false
}

func (r Row) value(i int) string {
	if i < len(r.Values) {
		return r.Values[i]
	}
	return ""
}

// Fields holds the raw values resolved for each canonical field.
type Fields map[Field]string

// Lookup returns the resolved value for f. Blank values count as unresolved.
func (f Fields) Lookup(field Field) (string, bool) {
	v, ok := f[field]
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// MapFields resolves the row's columns onto canonical fields using FieldMap.
// For each field the first candidate that is a case-insensitive substring of
// some column name wins, and among columns matching that candidate the
// first in row order wins.
func MapFields(row Row) Fields {
	lowered := make([]string, len(row.Columns))
	for i, c := range row.Columns {
		lowered[i] = strings.ToLower(c)
	}

	out := make(Fields, len(FieldMap))
	for _, fc := range FieldMap {
	candidates:
		for _, cand := range fc.Candidates {
			for i, col := range lowered {
				if strings.Contains(col, cand) {
					out[fc.Field] = row.value(i)
					break candidates
				}
			}
		}
	}
	return out
}
