// Package journal defines the domain records shared by the extraction
// pipeline, the processing session, and the persistence layer.
package journal

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned by stores when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotPending is returned when claiming an upload that is no longer pending.
	ErrNotPending = errors.New("upload is not pending")
)

// Column limits mirrored by the database schema.
const (
	MaxTitleLength     = 200
	MaxAccountLength   = 100
	MaxReferenceLength = 50

	// AmountIntegerDigits is the number of digits allowed before the decimal
	// point (numeric(12,2)).
	AmountIntegerDigits = 10
	AmountScale         = 2
)

// DefaultAccount is used when no account column resolves.
const DefaultAccount = "General"

// FileType is the declared format of an uploaded file.
type FileType string

const (
	FilePDF         FileType = "pdf"
	FileText        FileType = "text"
	FileCSV         FileType = "csv"
	FileSpreadsheet FileType = "spreadsheet"
)

// Valid reports whether t is one of the known file types.
func (t FileType) Valid() bool {
	switch t {
	case FilePDF, FileText, FileCSV, FileSpreadsheet:
		return true
	}
	return false
}

// Status is the processing state of an upload.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// EntryType classifies a journal entry as debit or credit.
type EntryType string

const (
	Debit  EntryType = "debit"
	Credit EntryType = "credit"
)

// ClassifyEntryType returns Debit when s starts with "d" (any case) and
// Credit otherwise, including for the empty string.
func ClassifyEntryType(s string) EntryType {
	if strings.HasPrefix(strings.ToLower(s), "d") {
		return Debit
	}
	return Credit
}

// Level is the severity of an anomaly log entry.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Upload is one submitted file and its processing lifecycle.
type Upload struct {
	ID                    uuid.UUID     `json:"id"`
	UserID                string        `json:"user_id,omitempty"`
	ProjectID             uuid.NullUUID `json:"project_id"`
	OriginalFilename      string        `json:"original_filename"`
	StorageKey            string        `json:"-"`
	FileType              FileType      `json:"file_type"`
	FileSize              int64         `json:"file_size"`
	Status                Status        `json:"status"`
	ErrorMessage          string        `json:"error_message"`
	ProcessedEntriesCount int           `json:"processed_entries_count"`
	UploadedAt            time.Time     `json:"uploaded_at"`
	ProcessedAt           *time.Time    `json:"processed_at,omitempty"`
}

// Entry is a single normalized financial record.
type Entry struct {
	ID              uuid.UUID       `json:"id"`
	ProjectID       uuid.NullUUID   `json:"project_id"`
	UserID          string          `json:"user_id,omitempty"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	EntryType       EntryType       `json:"entry_type"`
	Amount          decimal.Decimal `json:"amount"`
	Date            time.Time       `json:"date"`
	AccountName     string          `json:"account_name"`
	ReferenceNumber string          `json:"reference_number"`
	CreatedAt       time.Time       `json:"created_at"`
}

// LogEntry is one diagnostic event scoped to an upload.
type LogEntry struct {
	ID        uuid.UUID `json:"id"`
	UploadID  uuid.UUID `json:"upload_id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ProjectSummary aggregates the entries attached to a project.
type ProjectSummary struct {
	ProjectID    uuid.UUID       `json:"project_id"`
	EntryCount   int64           `json:"entry_count"`
	TotalDebits  decimal.Decimal `json:"total_debits"`
	TotalCredits decimal.Decimal `json:"total_credits"`
	Net          decimal.Decimal `json:"net_amount"`
}
