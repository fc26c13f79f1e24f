// Package live keeps a dashboard in sync with the backend: it polls the state
// document on a timer, follows the server-advertised refresh interval and
// pushes each good snapshot to the render targets.
package live

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"signaldash/internal/dashboard"
	"signaldash/internal/metrics"
	"signaldash/pkg/signalapi"
)

// DefaultInterval is the polling interval used until the backend advertises one.
const DefaultInterval = 300 * time.Second

// Fetcher retrieves one state snapshot.
type Fetcher interface {
	FetchState(ctx context.Context) (*signalapi.Snapshot, error)
}

// Config tunes a Syncer. Zero values fall back to defaults.
type Config struct {
	DefaultInterval time.Duration
	Clock           Clock
	Options         dashboard.Options
	Metrics         *metrics.Recorder
	Logger          *slog.Logger

	// OnRender is called on the loop after each successful render.
	OnRender func(vm dashboard.ViewModel)
}

// SyncStats are cumulative loop counters. They may be read at any time.
type SyncStats struct {
	Fetches      int64
	Renders      int64
	Failures     int64
	DroppedTicks int64
	StaleResults int64
	Rearms       int64
}

var errAlreadyRunning = errors.New("syncer already running")

type event any

type tickEvent struct{ gen uint64 }

type refreshEvent struct{}

type fetchDoneEvent struct {
	epoch uint64
	snap  *signalapi.Snapshot
	err   error
	took  time.Duration
}

// Syncer is the single owner of the dashboard's live state. All state changes
// and all rendering happen on the goroutine running Sync; timers and fetches
// only post events to it.
type Syncer struct {
	fetcher  Fetcher
	target   dashboard.RenderTarget
	reporter *dashboard.Reporter
	cfg      Config
	log      *slog.Logger

	events   chan event
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	running  atomic.Bool

	fetches, renders, failures, dropped, stale, rearms atomic.Int64

	// Owned by the loop.
	sched       *Scheduler
	epoch       uint64
	inFlight    bool
	cancelFetch context.CancelFunc
	stopped     bool
}

// NewSyncer wires a fetcher to a render target and a status target.
func NewSyncer(f Fetcher, target dashboard.RenderTarget, status dashboard.StatusTarget, cfg Config) *Syncer {
	if cfg.DefaultInterval <= 0 {
		cfg.DefaultInterval = DefaultInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = System
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Syncer{
		fetcher:  f,
		target:   target,
		reporter: dashboard.NewReporter(status, cfg.Options.Locale),
		cfg:      cfg,
		log:      cfg.Logger,
		events:   make(chan event, 16),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	s.sched = NewScheduler(cfg.Clock, func(gen uint64) {
		s.tryPost(tickEvent{gen: gen})
	})
	return s
}

// Sync runs the event loop until ctx is cancelled or Stop is called. It
// fetches once immediately and then on every timer tick. Sync may only be
// called once.
func (s *Syncer) Sync(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errAlreadyRunning
	}
	defer close(s.done)

	select {
	case <-s.stopCh:
		return nil
	default:
	}

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.reporter.Loading()
	s.sched.Start(s.cfg.DefaultInterval)
	s.cfg.Metrics.SetInterval(s.sched.Interval())
	s.startFetch(loopCtx)
	s.log.Info("live sync started", "interval", s.sched.Interval())

	for {
		select {
		case <-ctx.Done():
			s.teardown()
			return nil
		case <-s.stopCh:
			s.teardown()
			return nil
		case ev := <-s.events:
			s.handle(loopCtx, ev)
		}
	}
}

// Refresh requests an immediate fetch. It is dropped if a fetch is already in
// flight.
func (s *Syncer) Refresh() {
	s.tryPost(refreshEvent{})
}

// Stop tears the loop down. Results of a fetch still in flight are discarded.
func (s *Syncer) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Done is closed once Sync has returned.
func (s *Syncer) Done() <-chan struct{} { return s.done }

// Stats returns the loop counters.
func (s *Syncer) Stats() SyncStats {
	return SyncStats{
		Fetches:      s.fetches.Load(),
		Renders:      s.renders.Load(),
		Failures:     s.failures.Load(),
		DroppedTicks: s.dropped.Load(),
		StaleResults: s.stale.Load(),
		Rearms:       s.rearms.Load(),
	}
}

func (s *Syncer) handle(ctx context.Context, ev event) {
	switch ev := ev.(type) {
	case tickEvent:
		if s.stopped || !s.sched.Current(ev.gen) {
			s.log.Debug("ignoring tick from cancelled timer", "gen", ev.gen)
			return
		}
		s.trigger(ctx, "tick")
	case refreshEvent:
		if s.stopped {
			return
		}
		s.trigger(ctx, "refresh")
	case fetchDoneEvent:
		s.finish(ev)
	}
}

func (s *Syncer) trigger(ctx context.Context, cause string) {
	if s.inFlight {
		s.dropped.Add(1)
		s.cfg.Metrics.DroppedTick()
		s.log.Debug("fetch in flight, dropping trigger", "cause", cause)
		return
	}
	s.startFetch(ctx)
}

func (s *Syncer) startFetch(ctx context.Context) {
	s.epoch++
	epoch := s.epoch
	fctx, cancel := context.WithCancel(ctx)
	s.cancelFetch = cancel
	s.inFlight = true
	s.fetches.Add(1)

	go func() {
		start := time.Now()
		snap, err := s.fetcher.FetchState(fctx)
		s.post(fetchDoneEvent{epoch: epoch, snap: snap, err: err, took: time.Since(start)})
	}()
}

func (s *Syncer) finish(ev fetchDoneEvent) {
	s.inFlight = false
	if s.cancelFetch != nil {
		s.cancelFetch()
		s.cancelFetch = nil
	}

	if s.stopped || ev.epoch != s.epoch {
		s.stale.Add(1)
		s.cfg.Metrics.StaleResult()
		s.log.Debug("discarding stale fetch result", "epoch", ev.epoch, "current", s.epoch)
		return
	}

	if ev.err != nil {
		s.failures.Add(1)
		s.log.Warn("state fetch failed", "error", ev.err, "took", ev.took)
		c := s.reporter.Report(dashboard.Outcome{Err: ev.err})
		s.cfg.Metrics.ObservePoll(string(c), ev.took)
		return
	}

	if s.sched.Reconcile(ev.snap.RefreshSeconds()) {
		s.rearms.Add(1)
		s.cfg.Metrics.Rescheduled(s.sched.Interval())
		s.log.Info("refresh interval changed", "interval", s.sched.Interval())
	}

	// The refresh field shows the interval in effect, not the advertised one.
	vm := dashboard.Normalize(ev.snap, s.cfg.Options)
	vm.Refresh = dashboard.FormatInterval(s.sched.Interval())
	dashboard.Render(s.target, vm)
	s.renders.Add(1)

	if s.cfg.OnRender != nil {
		s.cfg.OnRender(vm)
	}

	c := s.reporter.Report(dashboard.Outcome{BackendError: ev.snap.BackendError()})
	s.cfg.Metrics.ObservePoll(string(c), ev.took)
	if c != dashboard.StatusOK {
		s.log.Warn("backend reported degraded state", "note", ev.snap.BackendError())
	}
}

// teardown stops the timer, invalidates the in-flight fetch and waits for it
// to report so its result is discarded here rather than leaked.
func (s *Syncer) teardown() {
	s.stopped = true
	s.sched.Stop()
	s.epoch++
	if s.cancelFetch != nil {
		s.cancelFetch()
	}
	for s.inFlight {
		if ev, ok := (<-s.events).(fetchDoneEvent); ok {
			s.finish(ev)
		}
	}
	s.log.Info("live sync stopped", "fetches", s.fetches.Load(), "renders", s.renders.Load())
}

// post delivers ev to the loop, giving up once the loop has exited.
func (s *Syncer) post(ev event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

// tryPost is post for triggers, which may be dropped when the queue is full.
func (s *Syncer) tryPost(ev event) {
	select {
	case s.events <- ev:
	case <-s.done:
	default:
		s.dropped.Add(1)
		s.cfg.Metrics.DroppedTick()
	}
}
