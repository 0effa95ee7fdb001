package core

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/JonMunkholm/journalimport/internal/journal"
)

// Store persists uploads, journal entries and the per-upload anomaly log.
// Implementations live under internal/store.
type Store interface {
	CreateUpload(ctx context.Context, u journal.Upload) error
	GetUpload(ctx context.Context, id uuid.UUID) (journal.Upload, error)

	// ListUploads returns the most recently uploaded first.
	ListUploads(ctx context.Context, limit int) ([]journal.Upload, error)

	// ListPendingUploads returns pending uploads, oldest first.
	ListPendingUploads(ctx context.Context, limit int) ([]journal.Upload, error)

	// ClaimUpload atomically moves a pending upload to processing and
	// returns it. Any other current status yields journal.ErrNotPending.
	ClaimUpload(ctx context.Context, id uuid.UUID) (journal.Upload, error)

	SaveUpload(ctx context.Context, u journal.Upload) error
	CreateEntry(ctx context.Context, e journal.Entry) error
	AppendLog(ctx context.Context, l journal.LogEntry) error

	// RecentLogs returns an upload's log entries, most recent first.
	RecentLogs(ctx context.Context, uploadID uuid.UUID, limit int) ([]journal.LogEntry, error)

	ProjectSummary(ctx context.Context, projectID uuid.UUID) (journal.ProjectSummary, error)
}

// BlobStore holds the raw bytes of uploaded files.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
