package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tchow-twistedxcom/agent-watch/internal/status"
)

func transition(from, to status.Status) status.Transition {
	return status.Transition{From: from, To: to, At: time.Now()}
}

func countingBell() (BellFunc, *int) {
	n := 0
	return func() { n++ }, &n
}

func TestDispatcher_FiresOncePerAttentionEntry(t *testing.T) {
	bell, rings := countingBell()
	d := NewDispatcher(bell, true)

	assert.True(t, d.Observe("w:0.0", transition(status.Working, status.NeedsInput)))
	assert.Equal(t, 1, *rings)

	// Still in attention, different attention status: no re-fire.
	assert.False(t, d.Observe("w:0.0", transition(status.NeedsInput, status.Done)))
	assert.Equal(t, 1, *rings)
}

func TestDispatcher_ReentryFiresAgain(t *testing.T) {
	bell, rings := countingBell()
	d := NewDispatcher(bell, true)

	d.Observe("w:0.0", transition(status.Working, status.NeedsInput))
	d.Observe("w:0.0", transition(status.NeedsInput, status.Working))
	assert.True(t, d.Observe("w:0.0", transition(status.Working, status.Done)))
	assert.Equal(t, 2, *rings)
}

func TestDispatcher_NonAttentionNeverFires(t *testing.T) {
	bell, rings := countingBell()
	d := NewDispatcher(bell, true)

	assert.False(t, d.Observe("w:0.0", transition(status.Unknown, status.Working)))
	assert.False(t, d.Observe("w:0.0", transition(status.Working, status.Idle)))
	assert.Equal(t, 0, *rings)
}

func TestDispatcher_BadgeAndAcknowledge(t *testing.T) {
	d := NewDispatcher(func() {}, true)

	d.Observe("w:0.0", transition(status.Working, status.NeedsInput))
	d.Observe("w:0.1", transition(status.Working, status.Crashed))
	assert.Equal(t, 2, d.Badge())

	d.Acknowledge("w:0.0")
	assert.Equal(t, 1, d.Badge())

	// Acknowledged but still in attention: no new notification.
	assert.False(t, d.Observe("w:0.0", transition(status.NeedsInput, status.NeedsInput)))
	assert.Equal(t, 1, d.Badge())
}

func TestDispatcher_LeavingAttentionClearsBadge(t *testing.T) {
	d := NewDispatcher(func() {}, true)

	d.Observe("w:0.0", transition(status.Working, status.NeedsInput))
	assert.Equal(t, 1, d.Badge())

	d.Observe("w:0.0", transition(status.NeedsInput, status.Working))
	assert.Equal(t, 0, d.Badge())
}

func TestDispatcher_Forget(t *testing.T) {
	bell, rings := countingBell()
	d := NewDispatcher(bell, true)

	d.Observe("w:0.0", transition(status.Working, status.Done))
	d.Forget("w:0.0")
	assert.Equal(t, 0, d.Badge())

	// Fresh state: the same pane id entering attention fires again.
	assert.True(t, d.Observe("w:0.0", transition(status.Working, status.Done)))
	assert.Equal(t, 2, *rings)
}

func TestDispatcher_DisabledBellStillTracksBadge(t *testing.T) {
	bell, rings := countingBell()
	d := NewDispatcher(bell, false)

	assert.True(t, d.Observe("w:0.0", transition(status.Working, status.NeedsInput)))
	assert.Equal(t, 0, *rings)
	assert.Equal(t, 1, d.Badge())

	d.SetEnabled(true)
	d.Observe("w:0.1", transition(status.Working, status.Done))
	assert.Equal(t, 1, *rings)
}
