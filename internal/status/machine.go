package status

import (
	"time"
)

// DefaultDebounceTicks is how many consecutive identical verdicts a
// pattern-derived status needs before becoming effective. Two ticks
// suppresses one-tick flicker from partial screen redraws.
const DefaultDebounceTicks = 2

// verdictRingSize bounds the raw-verdict history kept per session.
const verdictRingSize = 8

// Transition is emitted when the effective status changes.
type Transition struct {
	From Status
	To   Status
	At   time.Time
}

// Machine holds one session's debounced status. Verdicts flow in once per
// tick; the effective status only moves when a verdict is high-confidence
// (liveness-derived) or has persisted across consecutive ticks.
type Machine struct {
	debounceTicks int

	effective     Status
	changedAt     time.Time
	candidate     Status
	candidateRuns int

	recent [verdictRingSize]Status
	next   int
	count  int
}

// NewMachine returns a machine in the Unknown state.
func NewMachine() *Machine {
	return &Machine{
		debounceTicks: DefaultDebounceTicks,
		effective:     Unknown,
	}
}

// SetDebounce overrides the consecutive-verdict requirement (minimum 1).
func (m *Machine) SetDebounce(ticks int) {
	if ticks < 1 {
		ticks = 1
	}
	m.debounceTicks = ticks
}

// Effective returns the current debounced status.
func (m *Machine) Effective() Status {
	return m.effective
}

// ChangedAt returns when the effective status last changed.
func (m *Machine) ChangedAt() time.Time {
	return m.changedAt
}

// RecentVerdicts returns the raw verdict history, oldest first.
func (m *Machine) RecentVerdicts() []Status {
	out := make([]Status, 0, m.count)
	start := m.next - m.count
	for i := 0; i < m.count; i++ {
		out = append(out, m.recent[(start+i+verdictRingSize)%verdictRingSize])
	}
	return out
}

// Observe feeds one raw verdict into the machine. Returns the transition and
// true when the effective status changed.
//
// Crashed and Done apply immediately: they derive from process liveness, not
// from pattern matching, so flicker is not a concern and latency is. The
// first verdict after Unknown also applies immediately so Unknown is never
// shown past the first tick. Everything else must persist for debounceTicks
// consecutive polls.
func (m *Machine) Observe(v Status, now time.Time) (Transition, bool) {
	m.recent[m.next] = v
	m.next = (m.next + 1) % verdictRingSize
	if m.count < verdictRingSize {
		m.count++
	}

	if v == m.effective {
		m.candidate = ""
		m.candidateRuns = 0
		return Transition{}, false
	}

	immediate := v.livenessDerived() || m.effective == Unknown
	if !immediate {
		if v == m.candidate {
			m.candidateRuns++
		} else {
			m.candidate = v
			m.candidateRuns = 1
		}
		if m.candidateRuns < m.debounceTicks {
			return Transition{}, false
		}
	}

	tr := Transition{From: m.effective, To: v, At: now}
	m.effective = v
	m.changedAt = now
	m.candidate = ""
	m.candidateRuns = 0
	return tr, true
}

// Reset returns the machine to Unknown. Called when a pane is reoccupied by
// a new process, so the new occupant starts with a clean history.
func (m *Machine) Reset() {
	m.effective = Unknown
	m.changedAt = time.Time{}
	m.candidate = ""
	m.candidateRuns = 0
	m.next = 0
	m.count = 0
}
