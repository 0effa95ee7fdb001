package core

// scheduler.go re-dispatches uploads that were left pending.
//
// An upload stays pending when the dispatcher queue was full at submit time
// or when the process stopped before a worker reached it. The sweeper runs
// on a cron schedule, lists pending uploads oldest first and submits them.
// Uploads already queued in this process are skipped quietly.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSweepBatch is the most pending uploads submitted per sweep.
const DefaultSweepBatch = 100

// Sweeper periodically submits pending uploads to the service.
type Sweeper struct {
	svc      *Service
	schedule string
	batch    int
	cron     *cron.Cron
}

// NewSweeper validates schedule (standard cron syntax or a descriptor such
// as "@every 1m") without starting anything.
func NewSweeper(svc *Service, schedule string) (*Sweeper, error) {
	c := cron.New()
	s := &Sweeper{svc: svc, schedule: schedule, batch: DefaultSweepBatch, cron: c}

	if _, err := c.AddFunc(schedule, s.runOnce); err != nil {
		return nil, fmt.Errorf("unable to schedule pending-upload sweep %q: %w", schedule, err)
	}
	return s, nil
}

// Start runs one sweep immediately, then follows the schedule.
func (s *Sweeper) Start() {
	slog.Info("pending-upload sweeper started", "schedule", s.schedule)
	go s.runOnce()
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to return.
func (s *Sweeper) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
		slog.Info("pending-upload sweeper stopped")
	case <-ctx.Done():
	}
}

func (s *Sweeper) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := s.Sweep(ctx)
	if err != nil {
		slog.Error("pending-upload sweep failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("pending uploads dispatched", "count", n)
	}
}

// Sweep submits up to one batch of pending uploads and reports how many
// were accepted. A full queue ends the sweep early; the rest wait for the
// next run.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	pending, err := s.svc.store.ListPendingUploads(ctx, s.batch)
	if err != nil {
		return 0, fmt.Errorf("list pending uploads: %w", err)
	}

	submitted := 0
	for _, u := range pending {
		err := s.svc.dispatcher.Submit(ctx, u.ID)
		switch {
		case err == nil:
			submitted++
		case errors.Is(err, ErrAlreadyScheduled):
		case errors.Is(err, ErrTooManyUploads), errors.Is(err, ErrDispatcherClosed):
			return submitted, nil
		default:
			return submitted, err
		}
	}
	return submitted, nil
}
