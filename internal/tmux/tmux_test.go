package tmux

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePaneLine(t *testing.T) {
	pane, ok := parsePaneLine("work:2.1 12345")
	require.True(t, ok)
	assert.Equal(t, "work:2.1", pane.ID)
	assert.Equal(t, 12345, pane.PID)
	assert.Equal(t, "work", pane.SessionName)
	assert.Equal(t, 2, pane.WindowIndex)
	assert.Equal(t, 1, pane.PaneIndex)
}

func TestParsePaneLine_SessionNameWithDots(t *testing.T) {
	pane, ok := parsePaneLine("my.project.v2:0.3 999")
	require.True(t, ok)
	assert.Equal(t, "my.project.v2", pane.SessionName)
	assert.Equal(t, 0, pane.WindowIndex)
	assert.Equal(t, 3, pane.PaneIndex)
}

func TestParsePaneLine_Malformed(t *testing.T) {
	cases := []string{
		"",
		"work:2.1",          // no pid
		"work:2.1 notapid",  // bad pid
		"work 123",          // no window.pane
		"work:x.1 123",      // bad window index
		"work:2.y 123",      // bad pane index
		"noseparator.1 123", // no colon
	}
	for _, line := range cases {
		_, ok := parsePaneLine(line)
		assert.False(t, ok, "line %q should not parse", line)
	}
}

func TestCutLast(t *testing.T) {
	before, after, found := cutLast("a.b.c", ".")
	require.True(t, found)
	assert.Equal(t, "a.b", before)
	assert.Equal(t, "c", after)

	_, _, found = cutLast("abc", ".")
	assert.False(t, found)
}

func TestAttachCommand(t *testing.T) {
	assert.Equal(t, []string{"tmux", "attach-session", "-t", "agents"}, AttachCommand("agents"))
}
