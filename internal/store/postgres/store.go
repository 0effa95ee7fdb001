// Package postgres implements the upload store on PostgreSQL using pgx.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/journalimport/internal/journal"
)

//go:embed schema.sql
var schemaSQL string

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Store persists uploads, entries and processing logs.
type Store struct {
	db DBTX
}

// New wraps db. The schema must already exist; see Migrate.
func New(db DBTX) *Store {
	return &Store{db: db}
}

// Migrate creates the tables and indexes if they are missing.
func Migrate(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

const uploadColumns = `id, user_id, project_id, original_filename, storage_key, file_type,
	file_size, status, error_message, processed_entries_count, uploaded_at, processed_at`

func scanUpload(row pgx.Row) (journal.Upload, error) {
	var (
		u           journal.Upload
		userID      pgtype.Text
		projectID   pgtype.UUID
		uploadedAt  pgtype.Timestamptz
		processedAt pgtype.Timestamptz
		count       int32
	)
	err := row.Scan(
		&u.ID, &userID, &projectID, &u.OriginalFilename, &u.StorageKey, &u.FileType,
		&u.FileSize, &u.Status, &u.ErrorMessage, &count, &uploadedAt, &processedAt,
	)
	if err != nil {
		return journal.Upload{}, err
	}
	u.UserID = userID.String
	u.ProjectID = fromPgUUID(projectID)
	u.ProcessedEntriesCount = int(count)
	u.UploadedAt = uploadedAt.Time
	u.ProcessedAt = fromPgTimestamptz(processedAt)
	return u, nil
}

func collectUploads(rows pgx.Rows) ([]journal.Upload, error) {
	defer rows.Close()

	var out []journal.Upload
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) CreateUpload(ctx context.Context, u journal.Upload) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO uploads (`+uploadColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		u.ID, toPgText(u.UserID), toPgUUID(u.ProjectID), u.OriginalFilename, u.StorageKey,
		string(u.FileType), u.FileSize, string(u.Status), u.ErrorMessage,
		int32(u.ProcessedEntriesCount), pgtype.Timestamptz{Time: u.UploadedAt, Valid: true},
		toPgTimestamptz(u.ProcessedAt),
	)
	if err != nil {
		return fmt.Errorf("insert upload %s: %w", u.ID, err)
	}
	return nil
}

func (s *Store) GetUpload(ctx context.Context, id uuid.UUID) (journal.Upload, error) {
	u, err := scanUpload(s.db.QueryRow(ctx, `SELECT `+uploadColumns+` FROM uploads WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return journal.Upload{}, fmt.Errorf("upload %s: %w", id, journal.ErrNotFound)
	}
	if err != nil {
		return journal.Upload{}, fmt.Errorf("get upload %s: %w", id, err)
	}
	return u, nil
}

func (s *Store) ListUploads(ctx context.Context, limit int) ([]journal.Upload, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+uploadColumns+` FROM uploads
		ORDER BY uploaded_at DESC
		LIMIT $1`, limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	return collectUploads(rows)
}

func (s *Store) ListPendingUploads(ctx context.Context, limit int) ([]journal.Upload, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+uploadColumns+` FROM uploads
		WHERE status = 'pending'
		ORDER BY uploaded_at
		LIMIT $1`, limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("list pending uploads: %w", err)
	}
	return collectUploads(rows)
}

// ClaimUpload flips pending to processing in one statement, so two
// processes racing for the same upload cannot both win.
func (s *Store) ClaimUpload(ctx context.Context, id uuid.UUID) (journal.Upload, error) {
	u, err := scanUpload(s.db.QueryRow(ctx, `
		UPDATE uploads SET status = 'processing'
		WHERE id = $1 AND status = 'pending'
		RETURNING `+uploadColumns, id))
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return journal.Upload{}, fmt.Errorf("claim upload %s: %w", id, err)
	}

	var status string
	err = s.db.QueryRow(ctx, `SELECT status FROM uploads WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return journal.Upload{}, fmt.Errorf("upload %s: %w", id, journal.ErrNotFound)
	}
	if err != nil {
		return journal.Upload{}, fmt.Errorf("claim upload %s: %w", id, err)
	}
	return journal.Upload{}, fmt.Errorf("upload %s is %s: %w", id, status, journal.ErrNotPending)
}

func (s *Store) SaveUpload(ctx context.Context, u journal.Upload) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE uploads
		SET status = $2, error_message = $3, processed_entries_count = $4, processed_at = $5
		WHERE id = $1`,
		u.ID, string(u.Status), u.ErrorMessage, int32(u.ProcessedEntriesCount),
		toPgTimestamptz(u.ProcessedAt),
	)
	if err != nil {
		return fmt.Errorf("save upload %s: %w", u.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("upload %s: %w", u.ID, journal.ErrNotFound)
	}
	return nil
}

func (s *Store) CreateEntry(ctx context.Context, e journal.Entry) error {
	amount, err := toPgNumeric(e.Amount)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO journal_entries (id, project_id, user_id, title, description, entry_type,
			amount, entry_date, account_name, reference_number, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.ID, toPgUUID(e.ProjectID), toPgText(e.UserID), e.Title, e.Description,
		string(e.EntryType), amount, toPgDate(e.Date), e.AccountName, e.ReferenceNumber,
		pgtype.Timestamptz{Time: e.CreatedAt, Valid: true},
	)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

func (s *Store) AppendLog(ctx context.Context, l journal.LogEntry) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO processing_logs (id, upload_id, level, message, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		l.ID, l.UploadID, string(l.Level), l.Message,
		pgtype.Timestamptz{Time: l.Timestamp, Valid: true},
	)
	if err != nil {
		return fmt.Errorf("insert log for upload %s: %w", l.UploadID, err)
	}
	return nil
}

// RecentLogs orders by insertion sequence; timestamps can tie within a
// single session.
func (s *Store) RecentLogs(ctx context.Context, uploadID uuid.UUID, limit int) ([]journal.LogEntry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, upload_id, level, message, created_at
		FROM processing_logs
		WHERE upload_id = $1
		ORDER BY seq DESC
		LIMIT $2`, uploadID, limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("list logs for upload %s: %w", uploadID, err)
	}
	defer rows.Close()

	var out []journal.LogEntry
	for rows.Next() {
		var l journal.LogEntry
		if err := rows.Scan(&l.ID, &l.UploadID, &l.Level, &l.Message, &l.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) ProjectSummary(ctx context.Context, projectID uuid.UUID) (journal.ProjectSummary, error) {
	var debits, credits pgtype.Numeric
	sum := journal.ProjectSummary{ProjectID: projectID}

	err := s.db.QueryRow(ctx, `
		SELECT count(*),
			sum(amount) FILTER (WHERE entry_type = 'debit'),
			sum(amount) FILTER (WHERE entry_type = 'credit')
		FROM journal_entries
		WHERE project_id = $1`, projectID).Scan(&sum.EntryCount, &debits, &credits)
	if err != nil {
		return journal.ProjectSummary{}, fmt.Errorf("summarize project %s: %w", projectID, err)
	}

	sum.TotalDebits = fromPgNumeric(debits)
	sum.TotalCredits = fromPgNumeric(credits)
	sum.Net = sum.TotalCredits.Sub(sum.TotalDebits)
	return sum, nil
}

// limitArg maps a non-positive limit to NULL, which LIMIT treats as no limit.
func limitArg(limit int) pgtype.Int8 {
	if limit <= 0 {
		return pgtype.Int8{Valid: false}
	}
	return pgtype.Int8{Int64: int64(limit), Valid: true}
}
