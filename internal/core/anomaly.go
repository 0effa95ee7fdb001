package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/journalimport/internal/journal"
)

// anomalyLog appends diagnostic events for one upload to the store and
// mirrors them to the process log. A failed append is reported to slog
// only; losing a diagnostic line must not change the session outcome.
type anomalyLog struct {
	store    Store
	uploadID uuid.UUID
	logger   *slog.Logger
	now      func() time.Time
}

func (a *anomalyLog) append(ctx context.Context, level journal.Level, msg string) {
	entry := journal.LogEntry{
		ID:        uuid.New(),
		UploadID:  a.uploadID,
		Level:     level,
		Message:   msg,
		Timestamp: a.now().UTC(),
	}
	if err := a.store.AppendLog(ctx, entry); err != nil {
		a.logger.Error("append processing log failed", "level", level, "message", msg, "error", err)
	}

	switch level {
	case journal.LevelError:
		a.logger.Error(msg)
	case journal.LevelWarning:
		a.logger.Warn(msg)
	default:
		a.logger.Info(msg)
	}
}

func (a *anomalyLog) Infof(ctx context.Context, format string, args ...any) {
	a.append(ctx, journal.LevelInfo, fmt.Sprintf(format, args...))
}

func (a *anomalyLog) Warn(ctx context.Context, err error) {
	a.append(ctx, journal.LevelWarning, err.Error())
}

func (a *anomalyLog) Errorf(ctx context.Context, format string, args ...any) {
	a.append(ctx, journal.LevelError, fmt.Sprintf(format, args...))
}
