package extract

import (
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/journalimport/internal/journal"
)

// LineDateLayout is the only date layout accepted by ParseLine.
const LineDateLayout = "2006-01-02"

// ParseLine parses one line of the pipe-delimited journal format:
//
//	<YYYY-MM-DD> | <title> | <amount> | <entry type>
//
// Fields are trimmed and segments past the fourth are ignored. The account
// is always journal.DefaultAccount since the format carries none.
func ParseLine(line string, d Defaults) (journal.Entry, error) {
	if !strings.Contains(line, "|") {
		return journal.Entry{}, ErrNotDelimited
	}

	parts := strings.Split(line, "|")
	if len(parts) < 4 {
		return journal.Entry{}, fmt.Errorf("%w: got %d", ErrTooFewFields, len(parts))
	}
	for i := range parts[:4] {
		parts[i] = strings.TrimSpace(parts[i])
	}
	rawDate, title, rawAmount, rawType := parts[0], parts[1], parts[2], parts[3]

	date, err := time.Parse(LineDateLayout, rawDate)
	if err != nil {
		return journal.Entry{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", rawDate)
	}

	amount, err := ParseAmount(rawAmount)
	if err != nil {
		return journal.Entry{}, err
	}

	e := d.entry()
	e.Title = title
	e.Amount = amount
	e.Date = date
	e.EntryType = journal.ClassifyEntryType(rawType)

	if err := validateLengths(e); err != nil {
		return journal.Entry{}, err
	}
	return e, nil
}
