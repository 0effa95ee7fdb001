package extract

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func TestDecodeText(t *testing.T) {
	got, err := DecodeText([]byte("\xEF\xBB\xBFhello"))
	if err != nil {
		t.Fatalf("DecodeText() error = %v", err)
	}
	if got != "hello" {
		t.Errorf("DecodeText() = %q, want %q", got, "hello")
	}

	if _, err := DecodeText([]byte{0xff, 0xfe, 'a'}); !errors.Is(err, ErrInvalidEncoding) {
		t.Errorf("DecodeText(invalid) error = %v, want ErrInvalidEncoding", err)
	}
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{input: "", want: nil},
		{input: "a", want: []string{"a"}},
		{input: "a\nb\n", want: []string{"a", "b"}},
		{input: "a\r\n\r\nb", want: []string{"a", "", "b"}},
	}
	for _, tt := range tests {
		if got := SplitLines(tt.input); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitLines(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestDecodeCSV(t *testing.T) {
	data := []byte("\xEF\xBB\xBFTxn Date,Amt,Desc\n" +
		"2024-01-05,250,Office supplies\n" +
		"\n" +
		"2024-01-06,12\n" +
		"2024-01-07,3,\"Lunch, team\",extra\n")

	tbl, err := DecodeCSV(data)
	if err != nil {
		t.Fatalf("DecodeCSV() error = %v", err)
	}
	if want := []string{"Txn Date", "Amt", "Desc"}; !reflect.DeepEqual(tbl.Columns, want) {
		t.Errorf("Columns = %q, want %q", tbl.Columns, want)
	}
	if tbl.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", tbl.Len())
	}
	if v, _ := tbl.Row(2).Get("Desc"); v != "Lunch, team" {
		t.Errorf("quoted cell = %q, want %q", v, "Lunch, team")
	}
}

func TestDecodeCSV_Errors(t *testing.T) {
	if _, err := DecodeCSV(nil); err == nil {
		t.Error("DecodeCSV(empty) error = nil, want error")
	}
	if _, err := DecodeCSV([]byte{'a', 0xff, '\n'}); !errors.Is(err, ErrInvalidEncoding) {
		t.Errorf("DecodeCSV(invalid utf-8) error = %v, want ErrInvalidEncoding", err)
	}
}

func TestDecodeSpreadsheet_XLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	cells := map[string]string{
		"A1": "Date", "B1": "Amount", "C1": "Memo", "D1": "Type",
		"A2": "2024-01-05", "B2": "250", "C2": "Office supplies", "D2": "debit",
		"A4": "2024-01-06", "B4": "10", "C4": "Parking",
	}
	for cell, v := range cells {
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			t.Fatalf("SetCellValue(%s) error = %v", cell, err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer() error = %v", err)
	}

	tbl, err := DecodeSpreadsheet(buf.Bytes())
	if err != nil {
		t.Fatalf("DecodeSpreadsheet() error = %v", err)
	}
	if want := []string{"Date", "Amount", "Memo", "Type"}; !reflect.DeepEqual(tbl.Columns, want) {
		t.Errorf("Columns = %q, want %q", tbl.Columns, want)
	}
	if tbl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (blank row skipped)", tbl.Len())
	}
	if v, _ := tbl.Row(1).Get("Memo"); v != "Parking" {
		t.Errorf("row 2 Memo = %q, want Parking", v)
	}
}

func TestDecodeSpreadsheet_TypedCells(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		t.Fatalf("NewStyle() error = %v", err)
	}
	values := []struct {
		cell  string
		value any
	}{
		{"A1", "Date"}, {"B1", "Amount"}, {"C1", "Memo"},
		{"A2", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)}, {"B2", 1234.5}, {"C2", "Rent"},
		{"A3", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)}, {"B3", 99.95}, {"C3", "Parking"},
		{"A4", "2024-03-09"}, {"B4", 12}, {"C4", "Taxi"},
	}
	for _, v := range values {
		if err := f.SetCellValue(sheet, v.cell, v.value); err != nil {
			t.Fatalf("SetCellValue(%s) error = %v", v.cell, err)
		}
	}
	if err := f.SetCellStyle(sheet, "B2", "B2", amountStyle); err != nil {
		t.Fatalf("SetCellStyle() error = %v", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer() error = %v", err)
	}

	tbl, err := DecodeSpreadsheet(buf.Bytes())
	if err != nil {
		t.Fatalf("DecodeSpreadsheet() error = %v", err)
	}
	want := []struct{ date, amount string }{
		{"2024-01-05", "1234.5"},
		{"2024-02-01", "99.95"},
		{"2024-03-09", "12"},
	}
	if tbl.Len() != len(want) {
		t.Fatalf("Len() = %d, want %d", tbl.Len(), len(want))
	}
	for i, w := range want {
		row := tbl.Row(i)
		if got, _ := row.Get("Date"); got != w.date {
			t.Errorf("row %d Date = %q, want %q", i+1, got, w.date)
		}
		if got, _ := row.Get("Amount"); got != w.amount {
			t.Errorf("row %d Amount = %q, want %q", i+1, got, w.amount)
		}
		if _, err := ParseRow(row, i+1, Defaults{}); err != nil {
			t.Errorf("ParseRow(row %d) error = %v", i+1, err)
		}
	}
}

func TestIsDateFormatCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"yyyy-mm-dd", true},
		{"d/m/yy h:mm", true},
		{"[$-409]mmm-yy", true},
		{"h:mm:ss", false},
		{"#,##0.00", false},
		{`0.00" days"`, false},
		{"[Red]0.00", false},
	}
	for _, tt := range tests {
		if got := isDateFormatCode(tt.code); got != tt.want {
			t.Errorf("isDateFormatCode(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestDecodeSpreadsheet_Unrecognized(t *testing.T) {
	if _, err := DecodeSpreadsheet([]byte("Date,Amount\n")); err == nil {
		t.Error("DecodeSpreadsheet(csv bytes) error = nil, want error")
	}
}

func TestExtractPDFText(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "journal.pdf"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	text, err := ExtractPDFText(data)
	if err != nil {
		t.Fatalf("ExtractPDFText() error = %v", err)
	}

	var entries int
	for _, line := range SplitLines(text) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if _, err := ParseLine(line, Defaults{Filename: "journal.pdf"}); err == nil {
			entries++
		}
	}
	if entries != 2 {
		t.Errorf("parsed %d entries from %q, want 2", entries, text)
	}
}

func TestExtractPDFText_Invalid(t *testing.T) {
	if _, err := ExtractPDFText([]byte("%PDF-1.4 truncated")); err == nil {
		t.Error("ExtractPDFText(truncated) error = nil, want error")
	}
}
