package core

// dispatcher.go runs processing sessions in the background.
//
// A fixed pool of workers drains a buffered queue of upload ids, which
// bounds both concurrency and memory. Submit never waits for extraction;
// it waits at most maxWait for queue space and then fails with
// ErrTooManyUploads. The dispatcher also refuses an upload that is already
// queued or running, so one process never runs two sessions for the same
// upload. Across processes the store's atomic claim gives the same
// guarantee.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrTooManyUploads is returned when the queue stays full for the whole
	// wait period. Clients should retry after a short delay.
	ErrTooManyUploads = errors.New("too many uploads in progress, please try again later")

	// ErrAlreadyScheduled is returned when the upload is already queued or running.
	ErrAlreadyScheduled = errors.New("upload is already scheduled for processing")

	// ErrDispatcherClosed is returned by Submit after Stop.
	ErrDispatcherClosed = errors.New("dispatcher is shutting down")
)

const (
	DefaultWorkers     = 4
	DefaultQueueSize   = 64
	DefaultMaxWaitTime = 5 * time.Second
)

// SessionFunc processes one upload. It runs on a worker goroutine with a
// context that is never cancelled.
type SessionFunc func(ctx context.Context, uploadID uuid.UUID)

// Dispatcher is a bounded worker pool for processing sessions.
type Dispatcher struct {
	run     SessionFunc
	queue   chan uuid.UUID
	workers int
	maxWait time.Duration

	closeCh chan struct{}
	wg      sync.WaitGroup

	mu        sync.Mutex
	scheduled map[uuid.UUID]struct{}
	active    int
	started   bool
	closed    bool
}

// NewDispatcher creates a dispatcher; call Start to launch the workers.
// Non-positive settings fall back to the package defaults.
func NewDispatcher(run SessionFunc, workers, queueSize int, maxWait time.Duration) *Dispatcher {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &Dispatcher{
		run:       run,
		queue:     make(chan uuid.UUID, queueSize),
		workers:   workers,
		maxWait:   maxWait,
		closeCh:   make(chan struct{}),
		scheduled: make(map[uuid.UUID]struct{}),
	}
}

// Start launches the workers. Calling it more than once has no effect.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started || d.closed {
		return
	}
	d.started = true

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

// Submit enqueues an upload for processing.
func (d *Dispatcher) Submit(ctx context.Context, uploadID uuid.UUID) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDispatcherClosed
	}
	if _, ok := d.scheduled[uploadID]; ok {
		d.mu.Unlock()
		return ErrAlreadyScheduled
	}
	d.scheduled[uploadID] = struct{}{}
	d.mu.Unlock()

	timer := time.NewTimer(d.maxWait)
	defer timer.Stop()

	select {
	case d.queue <- uploadID:
		return nil
	case <-timer.C:
		d.unschedule(uploadID)
		return ErrTooManyUploads
	case <-ctx.Done():
		d.unschedule(uploadID)
		return ctx.Err()
	case <-d.closeCh:
		d.unschedule(uploadID)
		return ErrDispatcherClosed
	}
}

func (d *Dispatcher) unschedule(id uuid.UUID) {
	d.mu.Lock()
	delete(d.scheduled, id)
	d.mu.Unlock()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for {
		// Prefer shutdown over picking up more queued work.
		select {
		case <-d.closeCh:
			return
		default:
		}

		select {
		case <-d.closeCh:
			return
		case id := <-d.queue:
			d.execute(id)
		}
	}
}

func (d *Dispatcher) execute(id uuid.UUID) {
	d.mu.Lock()
	d.active++
	d.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("processing session panicked", "upload_id", id.String(), "panic", fmt.Sprint(r))
		}
		d.mu.Lock()
		d.active--
		delete(d.scheduled, id)
		d.mu.Unlock()
	}()

	d.run(context.Background(), id)
}

// Stop stops accepting work and waits for running sessions to finish, or
// for ctx to expire. Uploads still queued stay pending in the store and are
// picked up by the sweeper on the next start.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.closeCh)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitForDrain blocks until nothing is queued or running, or ctx ends.
func (d *Dispatcher) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if d.idle() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (d *Dispatcher) idle() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.scheduled) == 0
}

// DispatcherStatus is a snapshot of the dispatcher's state.
type DispatcherStatus struct {
	Workers   int  `json:"workers"`
	Active    int  `json:"active"`
	Queued    int  `json:"queued"`
	QueueSize int  `json:"queue_size"`
	Closed    bool `json:"closed"`
}

// Status returns the current dispatcher state for monitoring.
func (d *Dispatcher) Status() DispatcherStatus {
	d.mu.Lock()
	defer d.mu.Unlock()

	return DispatcherStatus{
		Workers:   d.workers,
		Active:    d.active,
		Queued:    len(d.queue),
		QueueSize: cap(d.queue),
		Closed:    d.closed,
	}
}
