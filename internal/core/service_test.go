package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/journalimport/internal/blob"
	"github.com/JonMunkholm/journalimport/internal/config"
	"github.com/JonMunkholm/journalimport/internal/intake"
	"github.com/JonMunkholm/journalimport/internal/journal"
	"github.com/JonMunkholm/journalimport/internal/store/memory"
)

func newTestService(t *testing.T, opts Options) (*Service, *memory.Store) {
	t.Helper()
	blobs, err := blob.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}
	st := memory.New()
	return NewService(st, blobs, opts), st
}

func waitForUploads(t *testing.T, svc *Service) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := svc.WaitForUploads(ctx); err != nil {
		t.Fatalf("WaitForUploads() error = %v", err)
	}
}

func TestService_SubmitProcessesInBackground(t *testing.T) {
	svc, _ := newTestService(t, Options{Workers: 1})
	svc.Start()
	defer svc.Shutdown(context.Background())

	ctx := context.Background()
	project := uuid.NullUUID{UUID: uuid.New(), Valid: true}
	u, err := svc.Submit(ctx, SubmitRequest{
		Filename:  "ledger.txt",
		UserID:    "alice",
		ProjectID: project,
		Data:      []byte("2024-01-15 | Office supplies | 125.50 | debit\n2024-01-16 | Refund | 25 | credit\n"),
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if u.Status != journal.StatusPending {
		t.Errorf("returned Status = %q, want pending", u.Status)
	}
	if u.FileType != journal.FileText {
		t.Errorf("FileType = %q, want text", u.FileType)
	}

	waitForUploads(t, svc)

	st, err := svc.Status(ctx, u.ID)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if st.Status != journal.StatusCompleted {
		t.Fatalf("Status = %q, want completed (error %q)", st.Status, st.ErrorMessage)
	}
	if st.ProcessedEntriesCount != 2 {
		t.Errorf("ProcessedEntriesCount = %d, want 2", st.ProcessedEntriesCount)
	}
	if st.ErrorMessage != "" {
		t.Errorf("ErrorMessage = %q, want empty", st.ErrorMessage)
	}
	if len(st.Logs) != 2 {
		t.Fatalf("len(Logs) = %d, want 2", len(st.Logs))
	}
	if st.Logs[0].Message != "Processing completed. Created 2 journal entries." {
		t.Errorf("most recent log = %q", st.Logs[0].Message)
	}

	sum, err := svc.ProjectSummary(ctx, project.UUID)
	if err != nil {
		t.Fatalf("ProjectSummary() error = %v", err)
	}
	if sum.EntryCount != 2 || sum.TotalDebits.StringFixed(2) != "125.50" || sum.TotalCredits.StringFixed(2) != "25.00" {
		t.Errorf("ProjectSummary() = %+v", sum)
	}
	if sum.Net.StringFixed(2) != "-100.50" {
		t.Errorf("Net = %s, want -100.50", sum.Net.StringFixed(2))
	}
}

func TestService_SubmitCSVByExtension(t *testing.T) {
	svc, _ := newTestService(t, Options{Workers: 1})
	svc.Start()
	defer svc.Shutdown(context.Background())

	u, err := svc.Submit(context.Background(), SubmitRequest{
		Filename: "rows.csv",
		Data:     []byte("date,amount,title\n2024-01-01,10,first\n2024-01-02,20,second\n"),
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if u.FileType != journal.FileCSV {
		t.Errorf("FileType = %q, want csv", u.FileType)
	}

	waitForUploads(t, svc)

	got, err := svc.Upload(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if got.Status != journal.StatusCompleted || got.ProcessedEntriesCount != 2 {
		t.Errorf("upload = %s with %d entries, want completed with 2", got.Status, got.ProcessedEntriesCount)
	}
}

func TestService_SubmitRejectsInvalidFiles(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{name: "empty", data: nil, wantErr: intake.ErrEmptyFile},
		{name: "image", data: []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), wantErr: intake.ErrUnsupportedType},
		{name: "too large", data: make([]byte, 2048), wantErr: intake.ErrFileTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, st := newTestService(t, Options{MaxFileSize: 1024})

			_, err := svc.Submit(context.Background(), SubmitRequest{Filename: "f.bin", Data: tt.data})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Submit() error = %v, want %v", err, tt.wantErr)
			}

			uploads, err := st.ListUploads(context.Background(), 0)
			if err != nil {
				t.Fatalf("ListUploads() error = %v", err)
			}
			if len(uploads) != 0 {
				t.Errorf("rejected file created %d uploads", len(uploads))
			}
		})
	}
}

func TestService_StatusLogLimit(t *testing.T) {
	svc, _ := newTestService(t, Options{Workers: 1, StatusLogLimit: 1})
	svc.Start()
	defer svc.Shutdown(context.Background())

	u, err := svc.Submit(context.Background(), SubmitRequest{
		Filename: "ledger.txt",
		Data:     []byte("bad line one\nbad line two\n2024-01-01 | ok | 1 | d\n"),
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	waitForUploads(t, svc)

	st, err := svc.Status(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if len(st.Logs) != 1 {
		t.Errorf("len(Logs) = %d, want 1", len(st.Logs))
	}

	all, err := svc.Logs(context.Background(), u.ID, 0)
	if err != nil {
		t.Fatalf("Logs() error = %v", err)
	}
	// info, two warnings, completion
	if len(all) != 4 {
		t.Errorf("len(Logs(0)) = %d, want 4", len(all))
	}
}

func TestService_UnknownUpload(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()
	id := uuid.New()

	if _, err := svc.Status(ctx, id); !errors.Is(err, journal.ErrNotFound) {
		t.Errorf("Status() error = %v, want ErrNotFound", err)
	}
	if _, err := svc.Logs(ctx, id, 10); !errors.Is(err, journal.ErrNotFound) {
		t.Errorf("Logs() error = %v, want ErrNotFound", err)
	}
	if _, err := svc.Upload(ctx, id); !errors.Is(err, journal.ErrNotFound) {
		t.Errorf("Upload() error = %v, want ErrNotFound", err)
	}
}

func TestService_ProcessPending(t *testing.T) {
	// Not started: submitted uploads stay pending until processed here.
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()

	good, err := svc.Submit(ctx, SubmitRequest{Filename: "a.txt", Data: []byte("2024-01-01 | a | 1 | d\n")})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	partial, err := svc.Submit(ctx, SubmitRequest{Filename: "b.txt", Data: []byte("garbage\n2024-01-02 | b | 2 | c\n")})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	report, err := svc.ProcessPending(ctx)
	if err != nil {
		t.Fatalf("ProcessPending() error = %v", err)
	}
	if report != (ProcessReport{Completed: 2}) {
		t.Errorf("ProcessPending() = %+v, want 2 completed", report)
	}

	for _, id := range []uuid.UUID{good.ID, partial.ID} {
		got, _ := svc.Upload(ctx, id)
		if got.Status != journal.StatusCompleted || got.ProcessedEntriesCount != 1 {
			t.Errorf("upload %s = %s with %d entries, want completed with 1", id, got.Status, got.ProcessedEntriesCount)
		}
	}

	report, err = svc.ProcessPending(ctx)
	if err != nil {
		t.Fatalf("second ProcessPending() error = %v", err)
	}
	if report != (ProcessReport{}) {
		t.Errorf("second ProcessPending() = %+v, want nothing to do", report)
	}
}

func TestService_RecentUploads(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		svc.now = func() time.Time { return base.Add(time.Duration(i) * time.Minute) }
		u, err := svc.Submit(ctx, SubmitRequest{Filename: "a.txt", Data: []byte("2024-01-01 | a | 1 | d\n")})
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		ids = append(ids, u.ID)
	}

	got, err := svc.RecentUploads(ctx, 2)
	if err != nil {
		t.Fatalf("RecentUploads() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != ids[2] || got[1].ID != ids[1] {
		t.Errorf("RecentUploads() returned %d uploads in the wrong order", len(got))
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Upload.MaxFileSize = 5 << 20
	cfg.Upload.MaxConcurrent = 3
	cfg.Upload.QueueSize = 9
	cfg.Upload.MaxWaitTime = 2 * time.Second
	cfg.Upload.StatusLogLimit = 25

	got := OptionsFromConfig(cfg)
	want := Options{MaxFileSize: 5 << 20, Workers: 3, QueueSize: 9, MaxWait: 2 * time.Second, StatusLogLimit: 25}
	if got != want {
		t.Errorf("OptionsFromConfig() = %+v, want %+v", got, want)
	}
}
