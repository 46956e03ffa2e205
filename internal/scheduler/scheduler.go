// Package scheduler implements the ETL Task Scheduler from spec.md §4.9: one
// periodic task per active Configuration, firing immediately on
// registration and then every repeatIntervalMillis, skipping overlapping
// runs, dropping ticks under backpressure rather than queuing them, and
// stopping cleanly on cancellation or process shutdown. Grounded on the
// teacher's RefreshManager
// (internal/infrastructure/publishing/refresh.go): a ticker-driven
// background loop started/stopped under a mutex-guarded running flag,
// generalized here from one global refresh loop to one loop per
// Configuration plus a bounded worker pool shared across all of them.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MihaiBojin/pyplyn/internal/clock"
	"github.com/MihaiBojin/pyplyn/internal/model"
	"github.com/MihaiBojin/pyplyn/internal/sysstatus"
)

const meterName = "scheduler"

// RunFunc executes one tick's worth of work for a Configuration. Scheduler
// does not interpret errors; run the ETL engine here and let it own its own
// metering (spec.md §7: "the Scheduler never sees errors from individual
// pipeline runs; it sees only 'run completed'").
type RunFunc func(ctx context.Context, c model.Configuration)

// Scheduler holds one task per currently-scheduled Configuration, keyed by
// structural hash, and runs them against a bounded worker pool.
type Scheduler struct {
	shutdown *clock.ShutdownSignal
	status   *sysstatus.Status
	logger   *slog.Logger
	run      RunFunc

	// pool bounds concurrent ticks across all Configurations: a buffered
	// channel used as a non-blocking semaphore. Backpressure (spec.md §4.9)
	// means a tick that can't acquire a slot is dropped, not queued.
	pool chan struct{}

	mu    sync.Mutex
	tasks map[string]*task
}

type task struct {
	cfg       model.Configuration
	cancel    context.CancelFunc
	cancelled atomic.Bool
	running   atomic.Bool
	done      chan struct{}
}

// Config controls Scheduler construction.
type Config struct {
	// PoolSize bounds the number of concurrent ticks across all scheduled
	// Configurations. Defaults to 16.
	PoolSize int
	Shutdown *clock.ShutdownSignal
	Status   *sysstatus.Status
	Logger   *slog.Logger
}

// New constructs a Scheduler. run is invoked once per fired tick, one at a
// time per Configuration (overlap policy: an in-flight run skips the next
// tick).
func New(run RunFunc, cfg Config) *Scheduler {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 16
	}
	if cfg.Shutdown == nil {
		cfg.Shutdown = clock.NewShutdownSignal()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Scheduler{
		shutdown: cfg.Shutdown,
		status:   cfg.Status,
		logger:   cfg.Logger,
		run:      run,
		pool:     make(chan struct{}, cfg.PoolSize),
		tasks:    make(map[string]*task),
	}
}

// Add schedules c, keyed by its structural hash. A Configuration identical
// (by Hash()) to one already scheduled is a no-op: the invariant from
// spec.md §8 is that UpdateManager "never schedules a Configuration
// identical ... to one already scheduled", and Scheduler enforces it too so
// any caller gets the guarantee for free.
func (s *Scheduler) Add(c model.Configuration) {
	hash := c.Hash()

	s.mu.Lock()
	if _, exists := s.tasks[hash]; exists {
		s.mu.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &task{cfg: c, cancel: cancel, done: make(chan struct{})}
	s.tasks[hash] = t
	s.mu.Unlock()

	if c.Disabled || c.RepeatIntervalMillis <= 0 {
		// Policy: do not fire at all (spec.md §4.9).
		close(t.done)
		return
	}

	go s.loop(ctx, t)
}

// Remove cancels the task scheduled for c, if any: the next tick does not
// fire. Any in-flight run is asked to stop at its next checkpoint but is not
// waited on here (spec.md §4.8 step 5: "best effort ... by setting a
// per-task cancelled flag"); callers that need to wait use Drain.
func (s *Scheduler) Remove(c model.Configuration) {
	hash := c.Hash()

	s.mu.Lock()
	t, ok := s.tasks[hash]
	if ok {
		delete(s.tasks, hash)
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	t.cancelled.Store(true)
	t.cancel()
}

// Has reports whether a Configuration with c's structural hash is currently
// scheduled.
func (s *Scheduler) Has(c model.Configuration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[c.Hash()]
	return ok
}

// Len reports the number of currently-scheduled Configurations.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Drain cancels every scheduled task and waits up to timeout for their loops
// to exit. Intended for orderly process shutdown, after ShutdownSignal.Drain
// has already been called so in-flight runs stop at their next checkpoint.
func (s *Scheduler) Drain(timeout time.Duration) {
	s.mu.Lock()
	tasks := make([]*task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	s.tasks = make(map[string]*task)
	s.mu.Unlock()

	for _, t := range tasks {
		t.cancelled.Store(true)
		t.cancel()
	}

	deadline := time.After(timeout)
	for _, t := range tasks {
		select {
		case <-t.done:
		case <-deadline:
			return
		}
	}
}

func (s *Scheduler) loop(ctx context.Context, t *task) {
	defer close(t.done)

	interval := time.Duration(t.cfg.RepeatIntervalMillis) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.fire(ctx, t)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fire(ctx, t)
		}
	}
}

// fire runs one tick, respecting the overlap policy (skip if running) and
// backpressure (drop if the worker pool is saturated).
func (s *Scheduler) fire(ctx context.Context, t *task) {
	if ctx.Err() != nil || t.cancelled.Load() || s.shutdown.IsDraining() {
		return
	}

	if !t.running.CompareAndSwap(false, true) {
		s.meter("overlap_skipped")
		return
	}

	select {
	case s.pool <- struct{}{}:
	default:
		t.running.Store(false)
		s.meter("dropped")
		return
	}

	go func() {
		defer func() {
			<-s.pool
			t.running.Store(false)
		}()
		stop := s.timer("run")
		s.run(ctx, t.cfg)
		stop()
	}()
}

func (s *Scheduler) meter(kind string) {
	if s.status == nil {
		return
	}
	s.status.Meter(meterName+"."+kind, sysstatus.Success)
}

func (s *Scheduler) timer(op string) func() time.Duration {
	if s.status == nil {
		return func() time.Duration { return 0 }
	}
	return s.status.Timer(meterName, op)
}
