package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"

	"github.com/i474232898/weather-refresh/internal/weather"
)

const (
	// PeriodicJob tags the recurring refresh job.
	PeriodicJob = "weather_periodic_refresh"
	// ManualRefresh is the trigger name used by the widget refresh action.
	ManualRefresh = "weather_widget_manual_refresh"

	defaultInterval   = 30 * time.Minute
	defaultRunTimeout = 2 * time.Minute
)

var errReplaced = errors.New("replaced by a newer run")

// Refresher runs one full refresh cycle from stored preferences.
type Refresher interface {
	Refresh(ctx context.Context) (weather.Snapshot, error)
}

// Painter receives the result of every completed run.
type Painter interface {
	Repaint(s weather.Snapshot, err error)
}

// Prober reports whether the weather provider is reachable.
type Prober interface {
	Online(ctx context.Context) bool
}

// RunRecorder counts runs by trigger and outcome.
type RunRecorder interface {
	ObserveRun(trigger, outcome string)
}

type nopRunRecorder struct{}

func (nopRunRecorder) ObserveRun(string, string) {}

type run struct {
	cancel context.CancelCauseFunc
	done   chan struct{}
}

// Scheduler drives background refreshes: a periodic job gated on connectivity
// and named on-demand runs. Every run goes through the same Refresher.
type Scheduler struct {
	cron      *gocron.Scheduler
	refresher Refresher
	painter   Painter
	probe     Prober
	recorder  RunRecorder
	logger    *slog.Logger

	interval   time.Duration
	runTimeout time.Duration

	mu      sync.Mutex
	base    context.Context
	running map[string]*run
}

// Option customises a Scheduler.
type Option func(*Scheduler)

func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithRunTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.runTimeout = d
		}
	}
}

func WithRecorder(r RunRecorder) Option {
	return func(s *Scheduler) { s.recorder = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l.With("component", "scheduler") }
}

// New creates a new Scheduler. probe may be nil, in which case the periodic job
// always runs.
func New(refresher Refresher, painter Painter, probe Prober, opts ...Option) *Scheduler {
	s := &Scheduler{
		cron:       gocron.NewScheduler(time.UTC),
		refresher:  refresher,
		painter:    painter,
		probe:      probe,
		recorder:   nopRunRecorder{},
		logger:     slog.Default().With("component", "scheduler"),
		interval:   defaultInterval,
		runTimeout: defaultRunTimeout,
		base:       context.Background(),
		running:    make(map[string]*run),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start schedules the periodic job and starts the underlying scheduler. Runs
// derive their context from ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.base = ctx
	s.mu.Unlock()

	_, err := s.cron.Every(s.interval).
		Tag(PeriodicJob).
		SingletonMode().
		WaitForSchedule().
		Do(func() { s.periodic(ctx) })
	if err != nil {
		return err
	}

	s.cron.StartAsync()
	s.logger.Info("scheduler started", "interval", s.interval)
	return nil
}

// Stop stops the periodic job, cancels in-flight runs and waits for them.
func (s *Scheduler) Stop() {
	s.cron.Stop()

	s.mu.Lock()
	runs := make([]*run, 0, len(s.running))
	for _, r := range s.running {
		r.cancel(context.Canceled)
		runs = append(runs, r)
	}
	s.mu.Unlock()

	for _, r := range runs {
		<-r.done
	}
}

func (s *Scheduler) periodic(ctx context.Context) {
	if s.probe != nil && !s.probe.Online(ctx) {
		s.logger.Info("offline, skipping periodic refresh")
		s.recorder.ObserveRun(PeriodicJob, "skipped")
		return
	}
	s.runOnce(ctx, PeriodicJob)
}

// TriggerNow starts an immediate run under name. A run already in flight under
// the same name is cancelled and awaited first. The returned channel closes
// when the new run has finished.
func (s *Scheduler) TriggerNow(name string) <-chan struct{} {
	s.mu.Lock()
	prev := s.running[name]
	if prev != nil {
		prev.cancel(errReplaced)
	}
	ctx, cancel := context.WithCancelCause(s.base)
	r := &run{cancel: cancel, done: make(chan struct{})}
	s.running[name] = r
	s.mu.Unlock()

	go func() {
		defer close(r.done)
		defer cancel(nil)

		if prev != nil {
			<-prev.done
		}
		s.runOnce(ctx, name)

		s.mu.Lock()
		if s.running[name] == r {
			delete(s.running, name)
		}
		s.mu.Unlock()
	}()

	return r.done
}

func (s *Scheduler) runOnce(ctx context.Context, trigger string) {
	logger := s.logger.With("run_id", uuid.NewString(), "trigger", trigger)

	if ctx.Err() != nil {
		logger.Info("run cancelled before start", "cause", context.Cause(ctx))
		s.recorder.ObserveRun(trigger, "cancelled")
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	logger.Info("running weather refresh")
	start := time.Now()
	snap, err := s.refresher.Refresh(runCtx)

	if ctx.Err() != nil {
		logger.Info("run cancelled, result discarded", "cause", context.Cause(ctx))
		s.recorder.ObserveRun(trigger, "cancelled")
		return
	}

	s.painter.Repaint(snap, err)
	if err != nil {
		logger.Warn("weather refresh failed", "error", err, "elapsed", time.Since(start))
		s.recorder.ObserveRun(trigger, "error")
		return
	}
	logger.Info("weather refresh completed", "location", snap.Location, "elapsed", time.Since(start))
	s.recorder.ObserveRun(trigger, "success")
}
