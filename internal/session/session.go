package session

import (
	"time"

	"github.com/tchow-twistedxcom/agent-watch/internal/agent"
	"github.com/tchow-twistedxcom/agent-watch/internal/links"
	"github.com/tchow-twistedxcom/agent-watch/internal/status"
	"github.com/tchow-twistedxcom/agent-watch/internal/summary"
	"github.com/tchow-twistedxcom/agent-watch/internal/tmux"
)

// Session is the live monitoring state for one tmux pane hosting an agent.
// Owned by the orchestrator; everything else sees read-only Snapshots.
type Session struct {
	Pane       tmux.Pane
	Agent      *agent.Definition
	AgentPID   int
	Machine    *status.Machine
	Links      []links.Link
	Summary    summary.Summary
	HasSummary bool
	FirstSeen  time.Time

	// lastText is the most recent successful capture, reused when a
	// capture times out so classification sees stale-but-real content.
	lastText   string
	lastHash   uint64
	lastChange time.Time
}

// Snapshot is an immutable view of a session for the UI and web layers.
type Snapshot struct {
	PaneID     string          `json:"pane_id"`
	AgentName  string          `json:"agent"`
	PID        int             `json:"pid"`
	Status     status.Status   `json:"status"`
	ChangedAt  time.Time       `json:"changed_at"`
	FirstSeen  time.Time       `json:"first_seen"`
	Links      []links.Link    `json:"links,omitempty"`
	Summary    summary.Summary `json:"summary"`
	HasSummary bool            `json:"has_summary"`
	Attention  bool            `json:"attention"`
}

func (s *Session) snapshot() Snapshot {
	st := s.Machine.Effective()
	snap := Snapshot{
		PaneID:     s.Pane.ID,
		PID:        s.AgentPID,
		Status:     st,
		ChangedAt:  s.Machine.ChangedAt(),
		FirstSeen:  s.FirstSeen,
		Summary:    s.Summary,
		HasSummary: s.HasSummary,
		Attention:  st.AttentionWorthy(),
	}
	if s.Agent != nil {
		snap.AgentName = s.Agent.Name
	}
	if len(s.Links) > 0 {
		snap.Links = append([]links.Link(nil), s.Links...)
	}
	return snap
}

// EventType distinguishes entries on the orchestrator's event stream.
type EventType string

const (
	EventStatusChanged  EventType = "status_changed"
	EventSessionAdded   EventType = "session_added"
	EventSessionRemoved EventType = "session_removed"
	EventSummaryUpdated EventType = "summary_updated"
)

// Event is a single change on the orchestrator's event stream.
type Event struct {
	Type   EventType     `json:"type"`
	PaneID string        `json:"pane_id"`
	From   status.Status `json:"from,omitempty"`
	To     status.Status `json:"to,omitempty"`
	At     time.Time     `json:"at"`
}
