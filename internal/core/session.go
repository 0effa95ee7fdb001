package core

// session.go runs the processing session for one upload.
//
// A session claims a pending upload, reads its bytes once, and feeds every
// row or line through the extraction parsers. Failures scoped to one row or
// line (*extract.RowError) become warning log entries and processing moves
// on. Anything else ends the session as failed. Either way the upload is
// saved exactly once more when the session ends.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/journalimport/internal/extract"
	"github.com/JonMunkholm/journalimport/internal/journal"
	"github.com/JonMunkholm/journalimport/internal/logging"
)

// Processor executes processing sessions. It holds no per-session state and
// is safe for concurrent use across different uploads.
type Processor struct {
	store Store
	blobs BlobStore
	now   func() time.Time
}

// NewProcessor creates a Processor.
func NewProcessor(store Store, blobs BlobStore) *Processor {
	return &Processor{store: store, blobs: blobs, now: time.Now}
}

// session is the mutable state of one run.
type session struct {
	*Processor
	upload   journal.Upload
	defaults extract.Defaults
	log      *anomalyLog
	created  int
}

// Process claims the upload and runs it to a terminal status. The returned
// upload reflects the final saved state. The error is non-nil only when the
// upload could not be claimed (journal.ErrNotPending, journal.ErrNotFound)
// or the final save failed; extraction failures are recorded on the upload.
func (p *Processor) Process(ctx context.Context, uploadID uuid.UUID) (journal.Upload, error) {
	u, err := p.store.ClaimUpload(ctx, uploadID)
	if err != nil {
		return journal.Upload{}, err
	}

	logger := logging.ForUpload(ctx, u.ID).With("file_type", u.FileType)
	s := &session{
		Processor: p,
		upload:    u,
		defaults:  defaultsFor(u),
		log: &anomalyLog{store: p.store, uploadID: u.ID, logger: logger, now: p.now},
	}

	start := p.now()
	runErr := s.run(ctx)
	return s.finalize(ctx, runErr, start)
}

func defaultsFor(u journal.Upload) extract.Defaults {
	return extract.Defaults{
		ProjectID: u.ProjectID,
		UserID:    u.UserID,
		Filename:  u.OriginalFilename,
	}
}

// run recovers panics from the decoders so a malformed file fails only its
// own session.
func (s *session) run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected panic: %v", r)
		}
	}()

	if !s.upload.FileType.Valid() {
		return unsupportedType(s.upload.FileType)
	}
	data, err := s.readFile(ctx)
	if err != nil {
		return err
	}

	switch s.upload.FileType {
	case journal.FilePDF:
		text, err := extract.ExtractPDFText(data)
		if err != nil {
			return err
		}
		lines := extract.SplitLines(text)
		s.log.Infof(ctx, "Extracted %d lines from PDF", len(lines))
		return s.processLines(ctx, lines)

	case journal.FileText:
		text, err := extract.DecodeText(data)
		if err != nil {
			return err
		}
		lines := extract.SplitLines(text)
		s.log.Infof(ctx, "Processing %d lines from text file", len(lines))
		return s.processLines(ctx, lines)

	case journal.FileCSV:
		table, err := extract.DecodeCSV(data)
		if err != nil {
			return err
		}
		s.log.Infof(ctx, "Processing CSV with %d rows", table.Len())
		return s.processTable(ctx, table)

	case journal.FileSpreadsheet:
		table, err := extract.DecodeSpreadsheet(data)
		if err != nil {
			return err
		}
		s.log.Infof(ctx, "Processing spreadsheet with %d rows", table.Len())
		return s.processTable(ctx, table)

	default:
		return unsupportedType(s.upload.FileType)
	}
}

func unsupportedType(t journal.FileType) error {
	return fmt.Errorf("unsupported file type %q", t)
}

func (s *session) readFile(ctx context.Context) ([]byte, error) {
	rc, err := s.blobs.Open(ctx, s.upload.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("open uploaded file: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read uploaded file: %w", err)
	}
	return data, nil
}

func (s *session) processLines(ctx context.Context, lines []string) error {
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		e, err := extract.ParseLine(line, s.defaults)
		if err == nil {
			err = s.persist(ctx, e)
		}
		if err != nil {
			if err := s.skip(ctx, &extract.RowError{Line: strings.TrimSpace(line), Err: err}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *session) processTable(ctx context.Context, t *extract.Table) error {
	for i := 0; i < t.Len(); i++ {
		e, err := extract.ParseRow(t.Row(i), i+1, s.defaults)
		if err == nil {
			if perr := s.persist(ctx, e); perr != nil {
				err = &extract.RowError{Row: i + 1, Err: perr}
			}
		}
		if err != nil {
			if err := s.skip(ctx, err); err != nil {
				return err
			}
		}
	}
	return nil
}

// skip records a row-level failure. Context cancellation surfacing through
// the store is not a row problem, so it is returned as fatal, as is any
// error not scoped to a row or line.
func (s *session) skip(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if !extract.IsRowError(err) {
		return err
	}
	s.log.Warn(ctx, err)
	return nil
}

func (s *session) persist(ctx context.Context, e journal.Entry) error {
	e.ID = uuid.New()
	e.CreatedAt = s.now().UTC()
	if err := s.store.CreateEntry(ctx, e); err != nil {
		return err
	}
	s.created++
	return nil
}

// finalize applies the terminal status and performs the closing save. The
// save runs on a context detached from cancellation so a failed or
// interrupted session still leaves a terminal record behind.
func (s *session) finalize(ctx context.Context, runErr error, start time.Time) (journal.Upload, error) {
	ctx = context.WithoutCancel(ctx)
	u := s.upload
	u.ProcessedEntriesCount = s.created

	if runErr != nil {
		u.Status = journal.StatusFailed
		u.ErrorMessage = runErr.Error()
		s.log.Errorf(ctx, "Processing failed: %s", u.ErrorMessage)
	} else {
		done := s.now().UTC()
		u.Status = journal.StatusCompleted
		u.ErrorMessage = ""
		u.ProcessedAt = &done
		s.log.Infof(ctx, "Processing completed. Created %d journal entries.", s.created)
	}

	s.log.logger.Info("processing session finished",
		"status", u.Status,
		"entries", s.created,
		"duration_ms", s.now().Sub(start).Milliseconds(),
	)

	if err := s.store.SaveUpload(ctx, u); err != nil {
		return u, fmt.Errorf("save upload %s: %w", u.ID, err)
	}
	return u, nil
}
