package session

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/tchow-twistedxcom/agent-watch/internal/agent"
	"github.com/tchow-twistedxcom/agent-watch/internal/config"
	"github.com/tchow-twistedxcom/agent-watch/internal/links"
	"github.com/tchow-twistedxcom/agent-watch/internal/logging"
	"github.com/tchow-twistedxcom/agent-watch/internal/proc"
	"github.com/tchow-twistedxcom/agent-watch/internal/status"
	"github.com/tchow-twistedxcom/agent-watch/internal/summary"
	"github.com/tchow-twistedxcom/agent-watch/internal/tmux"
)

// degradedAfter is how many consecutive pane-listing failures it takes
// before the monitor reports itself degraded. A single failed tick is
// usually a transient tmux hiccup.
const degradedAfter = 3

// TmuxClient is the slice of the tmux client the poll loop needs.
type TmuxClient interface {
	ListPanes(ctx context.Context) ([]tmux.Pane, error)
	CapturePane(ctx context.Context, paneID string, lines int) (string, error)
}

// Orchestrator owns the poll loop: it discovers agent panes, captures
// their content, classifies status, and fans results out to notifications,
// the summarizer, and snapshot consumers. All session state is confined
// to the loop goroutine; consumers see copies.
type Orchestrator struct {
	tmux       TmuxClient
	walker     *proc.Walker
	registry   *agent.Registry
	classifier *status.Classifier
	scheduler  *summary.Scheduler
	dispatcher *Dispatcher
	linkRules  []links.Rule
	log        *slog.Logger

	cfgMu   sync.RWMutex
	cfg     *config.Config
	pending *config.Config

	// refresh wakes the poll loop for an immediate tick.
	refresh chan struct{}

	sessions map[string]*Session

	snapMu        sync.RWMutex
	snapshots     []Snapshot
	degraded      bool
	degradedTicks int

	subMu sync.Mutex
	subs  []chan Event
}

type Deps struct {
	Tmux       TmuxClient
	Walker     *proc.Walker
	Registry   *agent.Registry
	Scheduler  *summary.Scheduler
	Dispatcher *Dispatcher
	Config     *config.Config
}

func NewOrchestrator(deps Deps) *Orchestrator {
	cfg := deps.Config
	if cfg == nil {
		cfg = &config.Config{}
	}
	classifier := status.NewClassifier()
	classifier.IdleAfter = cfg.IdleAfter()

	dispatcher := deps.Dispatcher
	if dispatcher == nil {
		dispatcher = NewDispatcher(nil, cfg.Notifications.GetBell())
	}

	return &Orchestrator{
		tmux:       deps.Tmux,
		walker:     deps.Walker,
		registry:   deps.Registry,
		classifier: classifier,
		scheduler:  deps.Scheduler,
		dispatcher: dispatcher,
		linkRules:  links.NewRules(cfg.Links),
		log:        logging.ForComponent(logging.CompDiscovery),
		cfg:        cfg,
		refresh:    make(chan struct{}, 1),
		sessions:   make(map[string]*Session),
	}
}

// Run executes the poll loop until ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) {
	ticker := time.NewTicker(o.config().RefreshInterval())
	defer ticker.Stop()

	o.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.Tick(ctx)
			// Interval may have been changed by a config reload.
			ticker.Reset(o.config().RefreshInterval())
		case <-o.refresh:
			o.Tick(ctx)
		}
	}
}

// Tick runs one full poll cycle. It must only be called from the goroutine
// running Run (or a test standing in for it): session state is unguarded by
// design. Other goroutines use Refresh.
func (o *Orchestrator) Tick(ctx context.Context) {
	o.applyPending()
	now := time.Now()

	panes, err := o.tmux.ListPanes(ctx)
	if err != nil {
		o.recordDiscoveryFailure(err)
		return
	}
	o.clearDiscoveryFailure()

	o.reconcile(ctx, panes, now)

	cfg := o.config()
	for _, s := range o.ordered() {
		o.observe(ctx, s, cfg, now)
	}
	if o.scheduler != nil {
		o.drainSummaries(now)
	}
	o.publish()
}

// reconcile matches the session map against the live pane list: removes
// sessions whose pane disappeared and promotes panes newly hosting an
// agent process.
func (o *Orchestrator) reconcile(ctx context.Context, panes []tmux.Pane, now time.Time) {
	live := make(map[string]tmux.Pane, len(panes))
	for _, p := range panes {
		live[p.ID] = p
	}

	for id := range o.sessions {
		if _, ok := live[id]; ok {
			continue
		}
		delete(o.sessions, id)
		o.dispatcher.Forget(id)
		if o.scheduler != nil {
			o.scheduler.Forget(id)
		}
		o.log.Info("session removed", "pane", id)
		o.emit(Event{Type: EventSessionRemoved, PaneID: id, At: now})
	}

	for _, p := range panes {
		if s, ok := o.sessions[p.ID]; ok {
			s.Pane = p
			continue
		}
		match, ok := o.walker.FindAgent(p.PID, o.registry)
		if !ok {
			continue
		}
		o.sessions[p.ID] = &Session{
			Pane:      p,
			Agent:     match.Definition,
			AgentPID:  match.PID,
			Machine:   status.NewMachine(),
			FirstSeen: now,
		}
		o.sessions[p.ID].Machine.SetDebounce(o.config().GetDebounceTicks())
		o.log.Info("session added", "pane", p.ID, "agent", match.Definition.Name, "pid", match.PID)
		o.emit(Event{Type: EventSessionAdded, PaneID: p.ID, At: now})
	}
}

// observe runs capture, classification, and fan-out for one session.
func (o *Orchestrator) observe(ctx context.Context, s *Session, cfg *config.Config, now time.Time) {
	alive := o.walker.Alive(s.AgentPID)
	if !alive {
		// The agent may have been restarted inside the same pane. A new
		// process under the pane means a new conversation: start the
		// status machine over.
		if match, ok := o.walker.FindAgent(s.Pane.PID, o.registry); ok && match.PID != s.AgentPID {
			o.log.Info("agent restarted", "pane", s.Pane.ID, "agent", match.Definition.Name,
				"old_pid", s.AgentPID, "new_pid", match.PID)
			s.Agent = match.Definition
			s.AgentPID = match.PID
			s.Machine.Reset()
			s.HasSummary = false
			alive = true
		}
	}

	text, err := o.tmux.CapturePane(ctx, s.Pane.ID, cfg.GetCaptureLines())
	switch {
	case err == nil:
		text = tmux.StripANSI(text)
		h := hashText(text)
		if h != s.lastHash {
			s.lastHash = h
			s.lastChange = now
			s.lastText = text
			s.Links = links.Extract(text, o.linkRules)
		}
	case errors.Is(err, tmux.ErrCaptureTimeout):
		// Classify against the last good capture rather than skipping the
		// tick: liveness changes must not wait for tmux to recover.
		o.log.Warn("capture timed out, using stale content", "pane", s.Pane.ID)
		text = s.lastText
	default:
		o.log.Warn("capture failed", "pane", s.Pane.ID, "error", err)
		text = s.lastText
	}

	verdict := o.classifier.Classify(s.Agent, status.Input{
		Text:       text,
		Alive:      alive,
		LastChange: s.lastChange,
	}, now)

	if tr, changed := s.Machine.Observe(verdict, now); changed {
		o.log.Info("status changed", "pane", s.Pane.ID, "from", tr.From, "to", tr.To)
		logging.Aggregate("discovery", "status_"+string(tr.To))
		o.dispatcher.Observe(s.Pane.ID, tr)
		o.emit(Event{Type: EventStatusChanged, PaneID: s.Pane.ID, From: tr.From, To: tr.To, At: tr.At})
	}

	if o.scheduler != nil && alive && text != "" {
		agentName := ""
		if s.Agent != nil {
			agentName = s.Agent.Name
		}
		o.scheduler.MaybeSchedule(ctx, s.Pane.ID, agentName, text)
	}
}

func (o *Orchestrator) drainSummaries(now time.Time) {
	for {
		select {
		case res := <-o.scheduler.Results():
			s, ok := o.sessions[res.PaneID]
			if !ok || res.Err != nil {
				continue
			}
			s.Summary = res.Summary
			s.HasSummary = true
			o.emit(Event{Type: EventSummaryUpdated, PaneID: res.PaneID, At: now})
		default:
			return
		}
	}
}

func (o *Orchestrator) recordDiscoveryFailure(err error) {
	o.snapMu.Lock()
	o.degradedTicks++
	degraded := o.degradedTicks >= degradedAfter
	was := o.degraded
	o.degraded = degraded
	o.snapMu.Unlock()

	if degraded && !was {
		o.log.Error("pane discovery failing, monitor degraded", "error", err)
	} else {
		o.log.Warn("pane discovery failed", "error", err)
	}
}

func (o *Orchestrator) clearDiscoveryFailure() {
	o.snapMu.Lock()
	if o.degraded {
		o.log.Info("pane discovery recovered")
	}
	o.degradedTicks = 0
	o.degraded = false
	o.snapMu.Unlock()
}

// Degraded reports whether pane discovery has failed several ticks in a
// row; the UI shows a warning banner while this holds.
func (o *Orchestrator) Degraded() bool {
	o.snapMu.RLock()
	defer o.snapMu.RUnlock()
	return o.degraded
}

func (o *Orchestrator) publish() {
	snaps := make([]Snapshot, 0, len(o.sessions))
	for _, s := range o.ordered() {
		snap := s.snapshot()
		if !snap.HasSummary && o.scheduler != nil {
			if cached, ok := o.scheduler.Cached(snap.PaneID); ok {
				snap.Summary = cached
				snap.HasSummary = true
			}
		}
		snaps = append(snaps, snap)
	}
	o.snapMu.Lock()
	o.snapshots = snaps
	o.snapMu.Unlock()
}

// Snapshots returns the latest published session views, ordered by pane id.
func (o *Orchestrator) Snapshots() []Snapshot {
	o.snapMu.RLock()
	defer o.snapMu.RUnlock()
	return append([]Snapshot(nil), o.snapshots...)
}

// Badge is the number of unacknowledged attention sessions.
func (o *Orchestrator) Badge() int {
	return o.dispatcher.Badge()
}

// Acknowledge marks a session's attention state as seen by the user.
func (o *Orchestrator) Acknowledge(paneID string) {
	o.dispatcher.Acknowledge(paneID)
}

// RequestSummary forces a summary refresh for a session on the next tick.
func (o *Orchestrator) RequestSummary(paneID string) {
	if o.scheduler != nil {
		o.scheduler.RequestRefresh(paneID)
	}
}

// SetConfig stages a reloaded config. The poll loop applies it at the top
// of its next tick so classifier settings, link rules, and per-session
// debounce are only ever touched from the loop goroutine.
func (o *Orchestrator) SetConfig(cfg *config.Config) {
	o.cfgMu.Lock()
	o.pending = cfg
	o.cfgMu.Unlock()
	o.Refresh()
}

// Refresh wakes the poll loop for an immediate tick. Safe from any
// goroutine; coalesces with an already-pending wakeup.
func (o *Orchestrator) Refresh() {
	select {
	case o.refresh <- struct{}{}:
	default:
	}
}

// applyPending adopts a staged config inside the loop goroutine. Existing
// machines keep their current debounce progress but adopt the new depth.
func (o *Orchestrator) applyPending() {
	o.cfgMu.Lock()
	cfg := o.pending
	o.pending = nil
	if cfg != nil {
		o.cfg = cfg
	}
	o.cfgMu.Unlock()
	if cfg == nil {
		return
	}

	o.classifier.IdleAfter = cfg.IdleAfter()
	o.linkRules = links.NewRules(cfg.Links)
	o.dispatcher.SetEnabled(cfg.Notifications.GetBell())
	for _, s := range o.sessions {
		s.Machine.SetDebounce(cfg.GetDebounceTicks())
	}
	o.log.Info("configuration reloaded")
}

func (o *Orchestrator) config() *config.Config {
	o.cfgMu.RLock()
	defer o.cfgMu.RUnlock()
	return o.cfg
}

// Subscribe returns a channel of orchestrator events. Slow subscribers
// drop events rather than stalling the poll loop.
func (o *Orchestrator) Subscribe() chan Event {
	ch := make(chan Event, 32)
	o.subMu.Lock()
	o.subs = append(o.subs, ch)
	o.subMu.Unlock()
	return ch
}

// Unsubscribe removes and closes a subscriber channel.
func (o *Orchestrator) Unsubscribe(ch chan Event) {
	o.subMu.Lock()
	defer o.subMu.Unlock()
	for i, sub := range o.subs {
		if sub == ch {
			o.subs = append(o.subs[:i], o.subs[i+1:]...)
			close(ch)
			return
		}
	}
}

func (o *Orchestrator) emit(ev Event) {
	o.subMu.Lock()
	defer o.subMu.Unlock()
	for _, ch := range o.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (o *Orchestrator) ordered() []*Session {
	out := make([]*Session, 0, len(o.sessions))
	for _, s := range o.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pane.ID < out[j].Pane.ID })
	return out
}

func hashText(text string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(text))
	return h.Sum64()
}
