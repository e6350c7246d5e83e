package summary

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

const (
	// DefaultInterval is the minimum gap between summary attempts for a
	// single pane. Failures count as attempts so a broken provider is not
	// hammered every tick.
	DefaultInterval = 60 * time.Second

	defaultMaxConcurrent = 3

	// Global request budget across all panes.
	defaultRatePerMinute = 20
)

// Result carries a finished summarization back to the poll loop.
type Result struct {
	PaneID  string
	Summary Summary
	Err     error
}

type entry struct {
	cached      Summary
	hasCached   bool
	lastAttempt time.Time
	inFlight    bool
	forced      bool
	// gen guards against stale deliveries after Forget: a result produced
	// by an older generation is dropped.
	gen uint64
}

// Scheduler runs summarization off the poll loop's critical path. Each pane
// gets at most one in-flight request, attempts are throttled per pane, and
// total concurrency and request rate are bounded globally.
type Scheduler struct {
	client   Client
	interval time.Duration
	sem      *semaphore.Weighted
	limiter  *rate.Limiter
	results  chan Result
	log      *slog.Logger

	mu      sync.Mutex
	entries map[string]*entry
	nextGen uint64
}

// newEntry must be called with mu held.
func (s *Scheduler) newEntry(paneID string) *entry {
	s.nextGen++
	e := &entry{gen: s.nextGen}
	s.entries[paneID] = e
	return e
}

type SchedulerOption func(*Scheduler)

func WithInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithMaxConcurrent(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

func WithRatePerMinute(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
		}
	}
}

func NewScheduler(client Client, log *slog.Logger, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		client:   client,
		interval: DefaultInterval,
		sem:      semaphore.NewWeighted(defaultMaxConcurrent),
		limiter:  rate.NewLimiter(rate.Every(time.Minute/defaultRatePerMinute), defaultRatePerMinute),
		results:  make(chan Result, 64),
		log:      log,
		entries:  make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Results is drained by the poll loop each tick.
func (s *Scheduler) Results() <-chan Result {
	return s.results
}

// Cached returns the last successful summary for a pane, if any.
func (s *Scheduler) Cached(paneID string) (Summary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[paneID]
	if !ok || !e.hasCached {
		return Summary{}, false
	}
	return e.cached, true
}

// RequestRefresh marks a pane so the next MaybeSchedule call bypasses the
// per-pane throttle. An already in-flight request is left alone.
func (s *Scheduler) RequestRefresh(paneID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[paneID]
	if !ok {
		e = s.newEntry(paneID)
	}
	e.forced = true
}

// Forget drops all state for a pane. An in-flight request for it keeps
// running but its result is silently discarded.
func (s *Scheduler) Forget(paneID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, paneID)
}

// MaybeSchedule kicks off a summarization for the pane if one is due:
// never scheduled before, explicitly refreshed, or interval elapsed since
// the last attempt. Returns true when a request was launched.
func (s *Scheduler) MaybeSchedule(ctx context.Context, paneID, agentName, content string) bool {
	if s.client == nil {
		return false
	}
	now := time.Now()

	s.mu.Lock()
	e, ok := s.entries[paneID]
	if !ok {
		e = s.newEntry(paneID)
	}
	if e.inFlight {
		s.mu.Unlock()
		return false
	}
	due := e.lastAttempt.IsZero() || e.forced || now.Sub(e.lastAttempt) >= s.interval
	if !due {
		s.mu.Unlock()
		return false
	}
	e.inFlight = true
	e.forced = false
	e.lastAttempt = now
	gen := e.gen
	s.mu.Unlock()

	prompt := BuildPrompt(agentName, content)
	go s.run(ctx, paneID, gen, prompt)
	return true
}

func (s *Scheduler) run(ctx context.Context, paneID string, gen uint64, prompt string) {
	defer s.finish(paneID, gen)

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return
	}
	defer s.sem.Release(1)

	if err := s.limiter.Wait(ctx); err != nil {
		return
	}

	text, err := s.client.Complete(ctx, prompt)
	if err != nil {
		s.log.Warn("summarization failed", "pane", paneID, "error", err)
		s.deliver(paneID, gen, Result{PaneID: paneID, Err: err})
		return
	}
	s.deliver(paneID, gen, Result{PaneID: paneID, Summary: ParseResponse(text, time.Now())})
}

func (s *Scheduler) finish(paneID string, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[paneID]; ok && e.gen == gen {
		e.inFlight = false
	}
}

func (s *Scheduler) deliver(paneID string, gen uint64, r Result) {
	s.mu.Lock()
	e, ok := s.entries[paneID]
	if !ok || e.gen != gen {
		s.mu.Unlock()
		return
	}
	if r.Err == nil {
		e.cached = r.Summary
		e.hasCached = true
	}
	s.mu.Unlock()

	select {
	case s.results <- r:
	default:
		// Poll loop is behind; the cache already holds the summary.
	}
}
