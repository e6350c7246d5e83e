package proc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tchow-twistedxcom/agent-watch/internal/agent"
)

// fakeTable is a static process tree for walker tests.
type fakeTable struct {
	procs    map[int]Process
	children map[int][]int
	dead     map[int]bool
}

func newFakeTable() *fakeTable {
	return &fakeTable{
		procs:    make(map[int]Process),
		children: make(map[int][]int),
		dead:     make(map[int]bool),
	}
}

func (f *fakeTable) add(pid, ppid int, name, cmdline string) {
	f.procs[pid] = Process{PID: pid, Name: name, Cmdline: cmdline}
	if ppid > 0 {
		f.children[ppid] = append(f.children[ppid], pid)
	}
}

func (f *fakeTable) Children(pid int) []Process {
	var out []Process
	for _, c := range f.children[pid] {
		out = append(out, f.procs[c])
	}
	return out
}

func (f *fakeTable) Lookup(pid int) (Process, bool) {
	p, ok := f.procs[pid]
	return p, ok
}

func (f *fakeTable) Alive(pid int) bool {
	_, ok := f.procs[pid]
	return ok && !f.dead[pid]
}

func TestWalker_FindAgentInSubtree(t *testing.T) {
	table := newFakeTable()
	table.add(100, 0, "bash", "bash")
	table.add(101, 100, "node", "node server.js")
	table.add(102, 100, "claude", "claude --resume")

	w := NewWalker(table)
	reg := agent.NewRegistry(nil)

	match, ok := w.FindAgent(100, reg)
	require.True(t, ok)
	assert.Equal(t, 102, match.PID)
	assert.Equal(t, "Claude", match.Definition.Name)
}

func TestWalker_MatchAtRoot(t *testing.T) {
	table := newFakeTable()
	table.add(200, 0, "aider", "aider --model gpt-4o")

	w := NewWalker(table)
	match, ok := w.FindAgent(200, agent.NewRegistry(nil))
	require.True(t, ok)
	assert.Equal(t, 200, match.PID)
	assert.Equal(t, "Aider", match.Definition.Name)
}

func TestWalker_ShallowMatchWinsOverDeep(t *testing.T) {
	table := newFakeTable()
	table.add(300, 0, "bash", "bash")
	table.add(301, 300, "claude", "claude")
	table.add(302, 301, "gemini", "gemini") // deeper, must not win

	w := NewWalker(table)
	match, ok := w.FindAgent(300, agent.NewRegistry(nil))
	require.True(t, ok)
	assert.Equal(t, 301, match.PID)
	assert.Equal(t, "Claude", match.Definition.Name)
}

func TestWalker_VanishedRootIsNoMatch(t *testing.T) {
	w := NewWalker(newFakeTable())
	_, ok := w.FindAgent(999, agent.NewRegistry(nil))
	assert.False(t, ok)
}

func TestWalker_NoAgentInTree(t *testing.T) {
	table := newFakeTable()
	table.add(400, 0, "bash", "bash")
	table.add(401, 400, "vim", "vim main.go")

	w := NewWalker(table)
	_, ok := w.FindAgent(400, agent.NewRegistry(nil))
	assert.False(t, ok)
}

func TestWalker_MatchByCmdline(t *testing.T) {
	// Interpreters show up as "node" or "python"; the agent name is only
	// visible on the command line.
	table := newFakeTable()
	table.add(500, 0, "bash", "bash")
	table.add(501, 500, "node", "/usr/bin/node /usr/local/bin/opencode")

	w := NewWalker(table)
	match, ok := w.FindAgent(500, agent.NewRegistry(nil))
	require.True(t, ok)
	assert.Equal(t, "OpenCode", match.Definition.Name)
}

func TestWalker_Alive(t *testing.T) {
	table := newFakeTable()
	table.add(600, 0, "claude", "claude")
	table.dead[601] = true

	w := NewWalker(table)
	assert.True(t, w.Alive(600))
	assert.False(t, w.Alive(601))
	assert.False(t, w.Alive(0))
	assert.False(t, w.Alive(-5))
}
