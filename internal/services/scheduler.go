package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Evaluator runs one recurrence cycle at the current time.
type Evaluator interface {
	EvaluateNow(ctx context.Context) (int, error)
}

// SchedulerConfig holds configuration for the scheduler
type SchedulerConfig struct {
	// Interval is how often due rules are evaluated (default: 15m)
	Interval time.Duration

	// RunOnStart evaluates once immediately when the loop starts (default: true)
	RunOnStart bool
}

// DefaultSchedulerConfig returns sensible defaults
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:   15 * time.Minute,
		RunOnStart: true,
	}
}

// RunStatus describes the most recent completed evaluation.
type RunStatus struct {
	At        time.Time
	Generated int
	Err       error
}

// Scheduler drives an Evaluator periodically and on demand. Periodic ticks
// and manual triggers go through one singleflight group, so a trigger that
// arrives while a cycle is running waits for that cycle and shares its result
// instead of starting a second one.
type Scheduler struct {
	eval   Evaluator
	config SchedulerConfig
	flight singleflight.Group

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	last    RunStatus
}

func NewScheduler(eval Evaluator, config SchedulerConfig) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultSchedulerConfig().Interval
	}
	return &Scheduler{eval: eval, config: config}
}

// Start begins the periodic loop. Returns an error if already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler is already running")
	}
	if s.eval == nil {
		s.mu.Unlock()
		return fmt.Errorf("scheduler has no evaluator")
	}
	if s.doneCh != nil {
		select {
		case <-s.doneCh:
		default:
			s.mu.Unlock()
			return fmt.Errorf("scheduler is still stopping")
		}
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	go s.runLoop(ctx, stopCh, doneCh)

	slog.InfoContext(ctx, "Recurring scheduler started",
		"interval", s.config.Interval,
		"run_on_start", s.config.RunOnStart)

	return nil
}

// Stop signals the loop and waits for an in-flight cycle to finish. If ctx
// ends first the loop keeps draining in the background; calling Stop again
// waits for it. Safe for concurrent use.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	doneCh := s.doneCh
	if s.running {
		s.running = false
		close(s.stopCh)
	}
	s.mu.Unlock()

	if doneCh == nil {
		return nil
	}

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Recurring scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Recurring scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the periodic loop is active. It is false as soon
// as Stop has been called, even while a cycle is still draining.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// TriggerNow runs a cycle immediately, or joins the one already in flight.
// It works whether or not the periodic loop is running.
func (s *Scheduler) TriggerNow(ctx context.Context) (int, error) {
	if s.eval == nil {
		return 0, fmt.Errorf("scheduler has no evaluator")
	}
	v, err, shared := s.flight.Do("evaluate", func() (interface{}, error) {
		n, err := s.eval.EvaluateNow(ctx)
		s.record(n, err)
		return n, err
	})
	if shared {
		schedulerCollapsed.Inc()
	}
	n, _ := v.(int)
	return n, err
}

// LastRun returns the status of the most recent completed cycle.
func (s *Scheduler) LastRun() RunStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Scheduler) record(n int, err error) {
	s.mu.Lock()
	s.last = RunStatus{At: time.Now(), Generated: n, Err: err}
	s.mu.Unlock()
}

// runLoop is the main scheduling loop
func (s *Scheduler) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if s.config.RunOnStart {
		s.tick(ctx)
	}

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick logs failures and leaves the retry to the next tick.
func (s *Scheduler) tick(ctx context.Context) {
	n, err := s.TriggerNow(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Scheduled recurring evaluation failed, retrying next tick",
			"error", err,
			"next_in", s.config.Interval)
		return
	}
	slog.DebugContext(ctx, "Scheduled recurring evaluation done", "generated", n)
}
