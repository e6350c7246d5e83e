package session

import (
	"fmt"
	"os"
	"sync"

	"github.com/tchow-twistedxcom/agent-watch/internal/status"
)

// BellFunc rings the user's terminal. Swappable for tests.
type BellFunc func()

func terminalBell() {
	fmt.Fprint(os.Stderr, "\a")
}

// Dispatcher fires at most one notification per distinct entry into the
// attention set. A session that leaves attention and re-enters it later
// notifies again; one that flaps between two attention statuses does not.
type Dispatcher struct {
	bell    BellFunc
	enabled bool

	mu        sync.Mutex
	attention map[string]bool
	unseen    map[string]bool
}

func NewDispatcher(bell BellFunc, enabled bool) *Dispatcher {
	if bell == nil {
		bell = terminalBell
	}
	return &Dispatcher{
		bell:      bell,
		enabled:   enabled,
		attention: make(map[string]bool),
		unseen:    make(map[string]bool),
	}
}

// Observe records a committed transition and rings the bell when the
// session newly needs attention. Returns true when a notification fired.
func (d *Dispatcher) Observe(paneID string, tr status.Transition) bool {
	d.mu.Lock()
	was := d.attention[paneID]
	now := tr.To.AttentionWorthy()
	d.attention[paneID] = now
	fire := now && !was
	if fire {
		d.unseen[paneID] = true
	}
	if !now {
		delete(d.unseen, paneID)
	}
	d.mu.Unlock()

	if fire && d.enabled {
		d.bell()
	}
	return fire
}

// Badge is the number of sessions needing attention the user has not
// acknowledged yet.
func (d *Dispatcher) Badge() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.unseen)
}

// Acknowledge clears the unseen mark for a session, typically when the
// user focuses it. The session stays in the attention set until its
// status actually changes.
func (d *Dispatcher) Acknowledge(paneID string) {
	d.mu.Lock()
	delete(d.unseen, paneID)
	d.mu.Unlock()
}

// Forget drops all state for a removed session.
func (d *Dispatcher) Forget(paneID string) {
	d.mu.Lock()
	delete(d.attention, paneID)
	delete(d.unseen, paneID)
	d.mu.Unlock()
}

// SetEnabled toggles the bell at runtime (config reload).
func (d *Dispatcher) SetEnabled(enabled bool) {
	d.mu.Lock()
	d.enabled = enabled
	d.mu.Unlock()
}
