// Package status turns captured terminal text and process liveness into a
// small set of reliable activity states, and debounces them into the
// user-visible effective status.
package status

// Status is a session activity state.
type Status string

const (
	// Unknown is the initial state before the first classification. It is
	// never shown past the first tick.
	Unknown Status = "unknown"

	// Working means the agent is actively processing.
	Working Status = "working"

	// Idle means the agent is alive with no recognizable activity signal.
	Idle Status = "idle"

	// NeedsInput means the agent printed a prompt and is blocked on the user.
	NeedsInput Status = "needs_input"

	// Done means the agent process exited with a completion indicator in the
	// trailing output.
	Done Status = "done"

	// Crashed means the agent process is gone without a completion indicator.
	Crashed Status = "crashed"
)

// Icon returns the display glyph for a status.
func (s Status) Icon() string {
	switch s {
	case Working:
		return "🟢"
	case Idle:
		return "🟡"
	case NeedsInput:
		return "🔴"
	case Done:
		return "✅"
	case Crashed:
		return "💀"
	default:
		return "⚪"
	}
}

// Label returns the short display name for a status.
func (s Status) Label() string {
	switch s {
	case Working:
		return "Working"
	case Idle:
		return "Idle"
	case NeedsInput:
		return "Input"
	case Done:
		return "Done"
	case Crashed:
		return "Crashed"
	default:
		return "…"
	}
}

// AttentionWorthy reports whether entering this status warrants a
// notification.
func (s Status) AttentionWorthy() bool {
	return s == NeedsInput || s == Done || s == Crashed
}

// livenessDerived reports whether this status comes from process liveness
// rather than pattern matching. Liveness signals are high-confidence and
// bypass debouncing.
func (s Status) livenessDerived() bool {
	return s == Done || s == Crashed
}
