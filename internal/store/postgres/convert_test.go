package postgres

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

func TestNumericRoundTrip(t *testing.T) {
	tests := []string{"0", "1000", "500.5", "0.01", "9999999999.99"}

	for _, in := range tests {
		d := decimal.RequireFromString(in)
		n, err := toPgNumeric(d)
		if err != nil {
			t.Fatalf("toPgNumeric(%s) error = %v", in, err)
		}
		if !n.Valid {
			t.Fatalf("toPgNumeric(%s) Valid = false", in)
		}
		if got := fromPgNumeric(n); !got.Equal(d) {
			t.Errorf("round trip %s = %s", in, got)
		}
	}
}

func TestFromPgNumeric_Null(t *testing.T) {
	if got := fromPgNumeric(pgtype.Numeric{}); !got.Equal(decimal.Zero) {
		t.Errorf("fromPgNumeric(NULL) = %s, want 0", got)
	}
}

func TestNullableConversions(t *testing.T) {
	if toPgText("").Valid {
		t.Error("toPgText(\"\").Valid = true, want false")
	}
	if got := toPgText("u1"); !got.Valid || got.String != "u1" {
		t.Errorf("toPgText(u1) = %+v", got)
	}

	id := uuid.New()
	if got := fromPgUUID(toPgUUID(uuid.NullUUID{UUID: id, Valid: true})); !got.Valid || got.UUID != id {
		t.Errorf("uuid round trip = %+v, want %s", got, id)
	}
	if toPgUUID(uuid.NullUUID{}).Valid {
		t.Error("toPgUUID(null).Valid = true, want false")
	}

	if fromPgTimestamptz(toPgTimestamptz(nil)) != nil {
		t.Error("nil timestamp did not round trip to nil")
	}
	now := time.Now()
	if got := fromPgTimestamptz(toPgTimestamptz(&now)); got == nil || !got.Equal(now) {
		t.Errorf("timestamp round trip = %v, want %v", got, now)
	}
}

func TestLimitArg(t *testing.T) {
	if limitArg(0).Valid || limitArg(-1).Valid {
		t.Error("non-positive limit should be NULL")
	}
	if got := limitArg(10); !got.Valid || got.Int64 != 10 {
		t.Errorf("limitArg(10) = %+v", got)
	}
}

func TestSchemaEmbedded(t *testing.T) {
	for _, table := range []string{"uploads", "journal_entries", "processing_logs"} {
		if !strings.Contains(schemaSQL, "CREATE TABLE IF NOT EXISTS "+table) {
			t.Errorf("schema missing table %s", table)
		}
	}
}
