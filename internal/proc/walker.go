// Package proc walks live OS process trees to find tracked agent processes
// underneath terminal multiplexer panes.
package proc

import (
	"github.com/tchow-twistedxcom/agent-watch/internal/agent"
)

// Process is a point-in-time view of one OS process. Fields may be empty when
// the process exited between enumeration and inspection.
type Process struct {
	PID     int
	Name    string // executable name (comm)
	Cmdline string // full command line, space-joined
}

// Table enumerates processes. The live process table mutates underneath every
// call, so all lookups are best-effort: a vanished process yields an empty
// result, never an error.
type Table interface {
	// Children returns the direct children of pid, empty if pid is gone.
	Children(pid int) []Process

	// Lookup returns the process for pid, false if it no longer exists.
	Lookup(pid int) (Process, bool)

	// Alive reports whether pid still refers to a running, non-zombie process.
	Alive(pid int) bool
}

// Match pairs a discovered agent process with its matching definition.
type Match struct {
	Definition *agent.Definition
	PID        int
}

// Walker finds agent processes by breadth-first search over pane subtrees.
type Walker struct {
	table Table
}

// NewWalker creates a walker over the given process table. A nil table uses
// the platform default (procfs on Linux, pgrep/ps elsewhere).
func NewWalker(table Table) *Walker {
	if table == nil {
		table = systemTable()
	}
	return &Walker{table: table}
}

// FindAgent walks the subtree rooted at rootPID (root included) shallow to
// deep and returns the first process matching any registry definition.
// A root that no longer exists is not an error: it returns no match for this
// poll, and the next poll re-walks from scratch.
func (w *Walker) FindAgent(rootPID int, reg *agent.Registry) (Match, bool) {
	root, ok := w.table.Lookup(rootPID)
	if !ok {
		return Match{}, false
	}

	queue := []Process{root}
	visited := map[int]bool{rootPID: true}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]

		if def := reg.Match(p.Name, p.Cmdline); def != nil {
			return Match{Definition: def, PID: p.PID}, true
		}

		for _, child := range w.table.Children(p.PID) {
			if visited[child.PID] {
				continue
			}
			visited[child.PID] = true
			queue = append(queue, child)
		}
	}
	return Match{}, false
}

// Alive reports whether pid is still running.
func (w *Walker) Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return w.table.Alive(pid)
}
