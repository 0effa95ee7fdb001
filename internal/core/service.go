package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/journalimport/internal/blob"
	"github.com/JonMunkholm/journalimport/internal/config"
	"github.com/JonMunkholm/journalimport/internal/intake"
	"github.com/JonMunkholm/journalimport/internal/journal"
	"github.com/JonMunkholm/journalimport/internal/logging"
)

// DefaultStatusLogLimit is how many log entries a status response carries.
const DefaultStatusLogLimit = 10

// Options tunes a Service. Zero values select the package defaults.
type Options struct {
	MaxFileSize    int64
	Workers        int
	QueueSize      int
	MaxWait        time.Duration
	StatusLogLimit int
}

// OptionsFromConfig maps the upload settings onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxFileSize:    cfg.Upload.MaxFileSize,
		Workers:        cfg.Upload.MaxConcurrent,
		QueueSize:      cfg.Upload.QueueSize,
		MaxWait:        cfg.Upload.MaxWaitTime,
		StatusLogLimit: cfg.Upload.StatusLogLimit,
	}
}

// Service is the entry point for the HTTP layer and the commands: it accepts
// uploads, schedules their processing and answers status queries.
type Service struct {
	store          Store
	blobs          BlobStore
	intake         *intake.Validator
	processor      *Processor
	dispatcher     *Dispatcher
	statusLogLimit int
	now            func() time.Time
}

// NewService wires a Service. Call Start before submitting uploads that
// should be processed in the background.
func NewService(store Store, blobs BlobStore, opts Options) *Service {
	if opts.StatusLogLimit <= 0 {
		opts.StatusLogLimit = DefaultStatusLogLimit
	}

	s := &Service{
		store:          store,
		blobs:          blobs,
		intake:         intake.New(opts.MaxFileSize),
		processor:      NewProcessor(store, blobs),
		statusLogLimit: opts.StatusLogLimit,
		now:            time.Now,
	}
	s.dispatcher = NewDispatcher(s.processInBackground, opts.Workers, opts.QueueSize, opts.MaxWait)
	return s
}

// Start launches the background workers.
func (s *Service) Start() {
	s.dispatcher.Start()
}

// SubmitRequest is one file handed in for import.
type SubmitRequest struct {
	Filename  string
	UserID    string
	ProjectID uuid.NullUUID
	Data      []byte
}

// Submit validates the file, stores it, records a pending upload and
// schedules processing. It returns as soon as the upload is recorded. When
// the queue is full the upload stays pending and the sweeper dispatches it
// later.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (journal.Upload, error) {
	checked, err := s.intake.Check(req.Filename, req.Data)
	if err != nil {
		return journal.Upload{}, err
	}

	id := uuid.New()
	u := journal.Upload{
		ID:               id,
		UserID:           req.UserID,
		ProjectID:        req.ProjectID,
		OriginalFilename: req.Filename,
		StorageKey:       blob.Key(id, req.Filename),
		FileType:         checked.FileType,
		FileSize:         checked.Size,
		Status:           journal.StatusPending,
		UploadedAt:       s.now().UTC(),
	}

	if err := s.blobs.Put(ctx, u.StorageKey, req.Data); err != nil {
		return journal.Upload{}, fmt.Errorf("store file: %w", err)
	}
	if err := s.store.CreateUpload(ctx, u); err != nil {
		if derr := s.blobs.Delete(context.WithoutCancel(ctx), u.StorageKey); derr != nil {
			logging.FromContext(ctx).Warn("orphaned upload blob", "key", u.StorageKey, "error", derr)
		}
		return journal.Upload{}, fmt.Errorf("create upload: %w", err)
	}

	logger := logging.ForUpload(ctx, id)
	logger.Info("upload accepted",
		"filename", u.OriginalFilename,
		"file_type", u.FileType,
		"mime", checked.MIME,
		"size", u.FileSize,
	)

	if err := s.dispatcher.Submit(ctx, id); err != nil {
		logger.Warn("upload left pending for the sweeper", "reason", err)
	}
	return u, nil
}

// processInBackground is the dispatcher's session function.
func (s *Service) processInBackground(ctx context.Context, id uuid.UUID) {
	_, err := s.processor.Process(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, journal.ErrNotPending), errors.Is(err, journal.ErrNotFound):
		slog.Debug("upload skipped", "upload_id", id.String(), "reason", err)
	default:
		slog.Error("processing session error", "upload_id", id.String(), "error", err)
	}
}

// Upload returns one upload.
func (s *Service) Upload(ctx context.Context, id uuid.UUID) (journal.Upload, error) {
	return s.store.GetUpload(ctx, id)
}

// RecentUploads returns the newest uploads first.
func (s *Service) RecentUploads(ctx context.Context, limit int) ([]journal.Upload, error) {
	return s.store.ListUploads(ctx, limit)
}

// StatusLog is one log line in a status response.
type StatusLog struct {
	Message   string        `json:"message"`
	Level     journal.Level `json:"level"`
	Timestamp time.Time     `json:"timestamp"`
}

// UploadStatus is the shape returned to pollers.
type UploadStatus struct {
	Status                journal.Status `json:"status"`
	ProcessedEntriesCount int            `json:"processed_entries_count"`
	ErrorMessage          string         `json:"error_message"`
	Logs                  []StatusLog    `json:"logs"`
}

// Status returns the upload's state with its most recent log entries.
func (s *Service) Status(ctx context.Context, id uuid.UUID) (UploadStatus, error) {
	u, err := s.store.GetUpload(ctx, id)
	if err != nil {
		return UploadStatus{}, err
	}
	logs, err := s.store.RecentLogs(ctx, id, s.statusLogLimit)
	if err != nil {
		return UploadStatus{}, fmt.Errorf("load logs: %w", err)
	}

	st := UploadStatus{
		Status:                u.Status,
		ProcessedEntriesCount: u.ProcessedEntriesCount,
		ErrorMessage:          u.ErrorMessage,
		Logs:                  make([]StatusLog, 0, len(logs)),
	}
	for _, l := range logs {
		st.Logs = append(st.Logs, StatusLog{Message: l.Message, Level: l.Level, Timestamp: l.Timestamp})
	}
	return st, nil
}

// Logs returns an upload's anomaly log, most recent first. A non-positive
// limit returns everything.
func (s *Service) Logs(ctx context.Context, id uuid.UUID, limit int) ([]journal.LogEntry, error) {
	if _, err := s.store.GetUpload(ctx, id); err != nil {
		return nil, err
	}
	return s.store.RecentLogs(ctx, id, limit)
}

// ProjectSummary totals a project's entries.
func (s *Service) ProjectSummary(ctx context.Context, projectID uuid.UUID) (journal.ProjectSummary, error) {
	return s.store.ProjectSummary(ctx, projectID)
}

// ProcessReport summarizes a ProcessPending run.
type ProcessReport struct {
	Completed int
	Failed    int
	Skipped   int
}

// ProcessPending processes every pending upload synchronously, oldest
// first. Uploads claimed elsewhere in the meantime are counted as skipped.
func (s *Service) ProcessPending(ctx context.Context) (ProcessReport, error) {
	var report ProcessReport

	pending, err := s.store.ListPendingUploads(ctx, 0)
	if err != nil {
		return report, fmt.Errorf("list pending uploads: %w", err)
	}

	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		u, err := s.processor.Process(ctx, p.ID)
		switch {
		case errors.Is(err, journal.ErrNotPending), errors.Is(err, journal.ErrNotFound):
			report.Skipped++
			continue
		case err != nil:
			return report, err
		}
		if u.Status == journal.StatusFailed {
			report.Failed++
		} else {
			report.Completed++
		}
	}
	return report, nil
}

// NewSweeper returns a sweeper bound to this service.
func (s *Service) NewSweeper(schedule string) (*Sweeper, error) {
	return NewSweeper(s, schedule)
}

// DispatcherStatus reports worker and queue usage.
func (s *Service) DispatcherStatus() DispatcherStatus {
	return s.dispatcher.Status()
}

// WaitForUploads blocks until no upload is queued or processing, or ctx ends.
func (s *Service) WaitForUploads(ctx context.Context) error {
	return s.dispatcher.WaitForDrain(ctx)
}

// Shutdown stops accepting background work and waits for running sessions.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.dispatcher.Stop(ctx)
}
