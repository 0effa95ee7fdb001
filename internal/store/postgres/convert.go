package postgres

// convert.go maps domain values to pgtype values and back. Optional domain
// values map to pgtype values with Valid=false so the column stores NULL.

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/journalimport/internal/journal"
)

func toPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

func toPgUUID(u uuid.NullUUID) pgtype.UUID {
	if !u.Valid {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: u.UUID, Valid: true}
}

func fromPgUUID(u pgtype.UUID) uuid.NullUUID {
	if !u.Valid {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: u.Bytes, Valid: true}
}

func toPgTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func fromPgTimestamptz(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func toPgDate(t time.Time) pgtype.Date {
	return pgtype.Date{Time: t, Valid: !t.IsZero()}
}

// toPgNumeric converts an amount to the column scale.
func toPgNumeric(d decimal.Decimal) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	if err := n.Scan(d.StringFixed(journal.AmountScale)); err != nil {
		return pgtype.Numeric{}, fmt.Errorf("convert amount %s: %w", d, err)
	}
	return n, nil
}

// fromPgNumeric returns zero for NULL, which is what SUM yields over no rows.
func fromPgNumeric(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}
