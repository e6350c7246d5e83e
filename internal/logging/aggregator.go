package logging

import (
	"log/slog"
	"sync"
	"time"
)

// eventKey identifies a batched event stream (component + event name).
type eventKey struct {
	component string
	event     string
}

// eventStats accumulates occurrences of one event between flushes.
type eventStats struct {
	count int64
	attrs []slog.Attr // most recent call wins, kept for context
}

// Aggregator batches high-frequency events (per-tick classification results,
// capture cache hits) and emits one summary line per event type per window.
type Aggregator struct {
	logger *slog.Logger
	window time.Duration

	mu      sync.Mutex
	pending map[eventKey]*eventStats

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewAggregator creates an aggregator flushing every intervalSecs seconds.
// A nil logger drops recorded events.
func NewAggregator(logger *slog.Logger, intervalSecs int) *Aggregator {
	if intervalSecs <= 0 {
		intervalSecs = 30
	}
	return &Aggregator{
		logger:  logger,
		window:  time.Duration(intervalSecs) * time.Second,
		pending: make(map[eventKey]*eventStats),
		stop:    make(chan struct{}),
	}
}

// Start begins the background flush loop.
func (a *Aggregator) Start() {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ticker := time.NewTicker(a.window)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				a.flush()
			case <-a.stop:
				return
			}
		}
	}()
}

// Stop halts the flush loop and emits any remaining entries.
func (a *Aggregator) Stop() {
	close(a.stop)
	a.wg.Wait()
	a.flush()
}

// Record counts one occurrence of an event.
func (a *Aggregator) Record(component, event string, attrs ...slog.Attr) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := eventKey{component: component, event: event}
	stats := a.pending[key]
	if stats == nil {
		stats = &eventStats{}
		a.pending[key] = stats
	}
	stats.count++
	if len(attrs) > 0 {
		stats.attrs = attrs
	}
}

func (a *Aggregator) flush() {
	a.mu.Lock()
	batch := a.pending
	a.pending = make(map[eventKey]*eventStats)
	a.mu.Unlock()

	if a.logger == nil || len(batch) == 0 {
		return
	}

	for key, stats := range batch {
		args := []any{
			slog.String("component", key.component),
			slog.String("event", key.event),
			slog.Int64("count", stats.count),
			slog.Int("window_seconds", int(a.window.Seconds())),
		}
		for _, attr := range stats.attrs {
			args = append(args, attr)
		}
		a.logger.Info("event_summary", args...)
	}
}
