// Package memory is an in-process implementation of the upload store.
// It is safe for concurrent use. Data is lost on restart, so it backs
// development mode and tests only; production runs use the postgres store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/journalimport/internal/journal"
)

// Store keeps records in maps guarded by one mutex. Values are copied on the
// way in and out so callers cannot mutate stored state.
type Store struct {
	mu      sync.RWMutex
	uploads map[uuid.UUID]journal.Upload
	entries []journal.Entry
	logs    map[uuid.UUID][]journal.LogEntry
}

// New creates an empty store.
func New() *Store {
	return &Store{
		uploads: make(map[uuid.UUID]journal.Upload),
		logs:    make(map[uuid.UUID][]journal.LogEntry),
	}
}

func (s *Store) CreateUpload(ctx context.Context, u journal.Upload) error {
	if u.ID == uuid.Nil {
		return fmt.Errorf("upload ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.uploads[u.ID]; exists {
		return fmt.Errorf("upload %s already exists", u.ID)
	}
	s.uploads[u.ID] = copyUpload(u)
	return nil
}

func (s *Store) GetUpload(ctx context.Context, id uuid.UUID) (journal.Upload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.uploads[id]
	if !ok {
		return journal.Upload{}, fmt.Errorf("upload %s: %w", id, journal.ErrNotFound)
	}
	return copyUpload(u), nil
}

func (s *Store) ListUploads(ctx context.Context, limit int) ([]journal.Upload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.filter(func(journal.Upload) bool { return true })
	sort.SliceStable(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	return truncate(out, limit), nil
}

func (s *Store) ListPendingUploads(ctx context.Context, limit int) ([]journal.Upload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.filter(func(u journal.Upload) bool { return u.Status == journal.StatusPending })
	sort.SliceStable(out, func(i, j int) bool { return out[i].UploadedAt.Before(out[j].UploadedAt) })
	return truncate(out, limit), nil
}

func (s *Store) ClaimUpload(ctx context.Context, id uuid.UUID) (journal.Upload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.uploads[id]
	if !ok {
		return journal.Upload{}, fmt.Errorf("upload %s: %w", id, journal.ErrNotFound)
	}
	if u.Status != journal.StatusPending {
		return journal.Upload{}, fmt.Errorf("upload %s is %s: %w", id, u.Status, journal.ErrNotPending)
	}
	u.Status = journal.StatusProcessing
	s.uploads[id] = u
	return copyUpload(u), nil
}

func (s *Store) SaveUpload(ctx context.Context, u journal.Upload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.uploads[u.ID]; !ok {
		return fmt.Errorf("upload %s: %w", u.ID, journal.ErrNotFound)
	}
	s.uploads[u.ID] = copyUpload(u)
	return nil
}

func (s *Store) CreateEntry(ctx context.Context, e journal.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, e)
	return nil
}

func (s *Store) AppendLog(ctx context.Context, l journal.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logs[l.UploadID] = append(s.logs[l.UploadID], l)
	return nil
}

func (s *Store) RecentLogs(ctx context.Context, uploadID uuid.UUID, limit int) ([]journal.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := s.logs[uploadID]
	out := make([]journal.LogEntry, 0, len(logs))
	for i := len(logs) - 1; i >= 0; i-- {
		out = append(out, logs[i])
	}
	return truncate(out, limit), nil
}

func (s *Store) ProjectSummary(ctx context.Context, projectID uuid.UUID) (journal.ProjectSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := journal.ProjectSummary{
		ProjectID:    projectID,
		TotalDebits:  decimal.Zero,
		TotalCredits: decimal.Zero,
	}
	for _, e := range s.entries {
		if !e.ProjectID.Valid || e.ProjectID.UUID != projectID {
			continue
		}
		sum.EntryCount++
		if e.EntryType == journal.Debit {
			sum.TotalDebits = sum.TotalDebits.Add(e.Amount)
		} else {
			sum.TotalCredits = sum.TotalCredits.Add(e.Amount)
		}
	}
	sum.Net = sum.TotalCredits.Sub(sum.TotalDebits)
	return sum, nil
}

// Entries returns a snapshot of every stored entry in insertion order.
func (s *Store) Entries() []journal.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]journal.Entry(nil), s.entries...)
}

func (s *Store) filter(keep func(journal.Upload) bool) []journal.Upload {
	var out []journal.Upload
	for _, u := range s.uploads {
		if keep(u) {
			out = append(out, copyUpload(u))
		}
	}
	return out
}

func copyUpload(u journal.Upload) journal.Upload {
	if u.ProcessedAt != nil {
		t := *u.ProcessedAt
		u.ProcessedAt = &t
	}
	return u
}

func truncate[T any](s []T, limit int) []T {
	if limit > 0 && limit < len(s) {
		return s[:limit]
	}
	return s
}
