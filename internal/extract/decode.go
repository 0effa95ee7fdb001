package extract

// decode.go turns raw upload bytes into the shapes the parsers consume:
// lines of text for the pipe-delimited format and Tables for CSV and
// spreadsheet files. Decoding failures are fatal for the upload.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/extrame/xls"
	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var (
	xlsxSignature = []byte("PK\x03\x04")
	xlsSignature  = []byte{0xD0, 0xCF, 0x11, 0xE0}
)

// ErrNoSheets is returned for workbooks without a readable first sheet.
var ErrNoSheets = errors.New("workbook has no sheets")

// DecodeText validates data as UTF-8 and strips a leading byte order mark.
func DecodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", ErrInvalidEncoding
	}
	return string(data), nil
}

// SplitLines splits text on LF or CRLF line endings.
func SplitLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// DecodeCSV reads a CSV file whose first record is the header row.
func DecodeCSV(data []byte) (*Table, error) {
	text, err := DecodeText(data)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("csv file has no header row")
	}
	return newTable(records), nil
}

// DecodeSpreadsheet reads the first sheet of an xlsx or legacy xls
// workbook, chosen by file signature. The first row is the header.
func DecodeSpreadsheet(data []byte) (*Table, error) {
	switch {
	case bytes.HasPrefix(data, xlsxSignature):
		return decodeXLSX(data)
	case bytes.HasPrefix(data, xlsSignature):
		return decodeXLS(data)
	default:
		return nil, errors.New("unrecognized spreadsheet format")
	}
}

func decodeXLSX(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}
	sheet := sheets[0]

	// Displayed values carry number formats ("1,234.50", "Feb-24") that the
	// coercer cannot read back, so cells are read raw and date-styled serial
	// numbers are turned into ISO dates.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}
	dateStyles := make(map[int]bool)
	for r := 1; r < len(rows); r++ {
		for c, raw := range rows[r] {
			if raw == "" {
				continue
			}
			serial, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				continue
			}
			styleID, err := f.GetCellStyle(sheet, cell)
			if err != nil {
				continue
			}
			isDate, seen := dateStyles[styleID]
			if !seen {
				isDate = isDateStyle(f, styleID)
				dateStyles[styleID] = isDate
			}
			if !isDate {
				continue
			}
			if t, err := excelize.ExcelDateToTime(serial, date1904); err == nil {
				rows[r][c] = t.Format("2006-01-02")
			}
		}
	}
	return newTable(rows), nil
}

// isDateStyle reports whether the cell style formats numbers as a calendar
// date. Time-only formats are not dates.
func isDateStyle(f *excelize.File, styleID int) bool {
	style, err := f.GetStyle(styleID)
	if err != nil || style == nil {
		return false
	}
	if style.CustomNumFmt != nil {
		return isDateFormatCode(*style.CustomNumFmt)
	}
	switch n := style.NumFmt; {
	case n >= 14 && n <= 17, n == 22:
		return true
	case n >= 27 && n <= 36, n >= 50 && n <= 58:
		return true
	}
	return false
}

// isDateFormatCode looks for day or year tokens outside quoted literals and
// bracketed sections. Month and minute share "m", so "m" alone is not enough.
func isDateFormatCode(code string) bool {
	var inQuote, inBracket bool
	for _, r := range strings.ToLower(code) {
		switch {
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '[':
			inBracket = true
		case r == ']':
			inBracket = false
		case inBracket:
		case r == 'y', r == 'd':
			return true
		}
	}
	return false
}

func decodeXLS(data []byte) (table *Table, err error) {
	// The xls reader panics on some malformed compound documents.
	defer func() {
		if r := recover(); r != nil {
			table, err = nil, fmt.Errorf("open xls: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, ErrNoSheets
	}

	var records [][]string
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			records = append(records, nil)
			continue
		}
		rec := make([]string, 0, row.LastCol())
		for c := 0; c < row.LastCol(); c++ {
			rec = append(rec, row.Col(c))
		}
		records = append(records, rec)
	}
	if len(records) == 0 || blankRow(records[0]) {
		return nil, fmt.Errorf("sheet %q is empty", sheet.Name)
	}
	return newTable(records), nil
}

// ExtractPDFText flattens the text of every page into one blob, pages
// joined by newlines. Layout is not preserved.
func ExtractPDFText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("read pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		pageText, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("read pdf page %d: %w", i, err)
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(pageText)
	}
	return b.String(), nil
}
