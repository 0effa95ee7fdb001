package extract

// coerce.go turns resolved raw field values into typed journal entries.
//
// Tabular inputs arrive with whatever date layout the exporting system
// preferred, so dates go through ParseFlexibleDate. The pipe-delimited line
// format is stricter and uses its own parser in line.go.

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/journalimport/internal/journal"
)

// Defaults carries the attribution and fallbacks applied to every entry
// produced from one upload.
type Defaults struct {
	ProjectID uuid.NullUUID
	UserID    string
	Filename  string
}

// DefaultTitle is the title used when no title column resolves.
func (d Defaults) DefaultTitle() string {
	return "Entry from " + d.Filename
}

func (d Defaults) entry() journal.Entry {
	return journal.Entry{
		ProjectID:   d.ProjectID,
		UserID:      d.UserID,
		AccountName: journal.DefaultAccount,
		EntryType:   journal.Credit,
	}
}

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would land more than this many years in the future are moved
// to the previous century.
var TwoDigitYearPivot = 20

// Date layouts split by year width so the pivot only applies to short years.
var (
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02", "20060102",
		"2006-1-2", "2006/1/2", "2006.1.2",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006",
		"2/1/2006", "02/01/2006", "2-1-2006", "02-01-2006",
		"2.1.2006", "02.01.2006",
		"Jan 2, 2006", "Jan 2 2006", "January 2, 2006", "January 2 2006",
		"2 Jan 2006", "02-Jan-2006", "2-Jan-2006", "2 January 2006",
		time.RFC3339, time.RFC3339Nano,
		"2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02 15:04",
		"1/2/2006 15:04:05", "1/2/2006 15:04",
	}
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "01-02-06",
		"2.1.06", "02.01.06", "02-Jan-06", "2-Jan-06",
	}
)

// now is swapped in tests that pin the two-digit year pivot.
var now = time.Now

// ParseFlexibleDate interprets s using the common date layouts found in
// spreadsheet and CSV exports. Ambiguous numeric dates are read month first.
// The result is a calendar date at midnight UTC.
func ParseFlexibleDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return calendarDate(t), nil
		}
	}

	pivotYear := now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return calendarDate(t), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date format %q", s)
}

func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var amountLimit = decimal.New(1, journal.AmountIntegerDigits)

// ParseAmount parses s as a decimal, discards the sign and rounds to cents.
// Values with more integer digits than the amount column holds are rejected.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q", s)
	}
	d = d.Abs().Round(journal.AmountScale)
	if d.GreaterThanOrEqual(amountLimit) {
		return decimal.Decimal{}, fmt.Errorf("amount %s exceeds %d integer digits", d.StringFixed(journal.AmountScale), journal.AmountIntegerDigits)
	}
	return d, nil
}

func checkLength(name, v string, max int) error {
	if n := utf8.RuneCountInString(v); n > max {
		return fmt.Errorf("%s is %d characters, limit is %d", name, n, max)
	}
	return nil
}

// Coerce builds an entry from resolved fields. A missing amount or date
// yields ErrMissingRequired; unparseable values yield a descriptive error.
func Coerce(f Fields, d Defaults) (journal.Entry, error) {
	rawAmount, ok := f.Lookup(FieldAmount)
	if !ok {
		return journal.Entry{}, fmt.Errorf("%w: amount", ErrMissingRequired)
	}
	rawDate, ok := f.Lookup(FieldDate)
	if !ok {
		return journal.Entry{}, fmt.Errorf("%w: date", ErrMissingRequired)
	}

	e := d.entry()

	amount, err := ParseAmount(rawAmount)
	if err != nil {
		return journal.Entry{}, err
	}
	e.Amount = amount

	date, err := ParseFlexibleDate(rawDate)
	if err != nil {
		return journal.Entry{}, err
	}
	e.Date = date

	e.Title = d.DefaultTitle()
	if v, ok := f.Lookup(FieldTitle); ok {
		e.Title = strings.TrimSpace(v)
	}
	if v, ok := f.Lookup(FieldAccount); ok {
		e.AccountName = strings.TrimSpace(v)
	}
	if v, ok := f.Lookup(FieldType); ok {
		e.EntryType = journal.ClassifyEntryType(strings.TrimSpace(v))
	}
	if v, ok := f.Lookup(FieldReference); ok {
		e.ReferenceNumber = strings.TrimSpace(v)
	}

	if err := validateLengths(e); err != nil {
		return journal.Entry{}, err
	}
	return e, nil
}

func validateLengths(e journal.Entry) error {
	if err := checkLength("title", e.Title, journal.MaxTitleLength); err != nil {
		return err
	}
	if err := checkLength("account", e.AccountName, journal.MaxAccountLength); err != nil {
		return err
	}
	return checkLength("reference", e.ReferenceNumber, journal.MaxReferenceLength)
}
