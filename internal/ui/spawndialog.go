package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// SpawnDialog collects a goal and working directory for a new agent
// session. The directory field starts on the recent-dirs list; typing
// switches to free entry.
type SpawnDialog struct {
	goal       textinput.Model
	dir        textinput.Model
	recentDirs []string
	dirCursor  int
	onGoal     bool
}

func NewSpawnDialog(recentDirs []string) *SpawnDialog {
	goal := textinput.New()
	goal.Placeholder = "What should the agent do?"
	goal.CharLimit = 200
	goal.Width = 60
	goal.Focus()

	dir := textinput.New()
	dir.Placeholder = "Working directory (empty = current)"
	dir.CharLimit = 200
	dir.Width = 60

	return &SpawnDialog{
		goal:       goal,
		dir:        dir,
		recentDirs: recentDirs,
		dirCursor:  -1,
		onGoal:     true,
	}
}

func (d *SpawnDialog) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles a key press. done reports that the user confirmed the
// dialog; cancelled that they dismissed it.
func (d *SpawnDialog) Update(msg tea.KeyMsg) (done, cancelled bool, cmd tea.Cmd) {
	switch msg.String() {
	case "esc":
		return false, true, nil

	case "enter":
		if d.onGoal {
			d.onGoal = false
			d.goal.Blur()
			d.dir.Focus()
			return false, false, textinput.Blink
		}
		return true, false, nil

	case "tab":
		d.onGoal = !d.onGoal
		if d.onGoal {
			d.dir.Blur()
			d.goal.Focus()
		} else {
			d.goal.Blur()
			d.dir.Focus()
		}
		return false, false, textinput.Blink

	case "up", "ctrl+p":
		if !d.onGoal && len(d.recentDirs) > 0 {
			if d.dirCursor > 0 {
				d.dirCursor--
			} else {
				d.dirCursor = len(d.recentDirs) - 1
			}
			d.dir.SetValue(d.recentDirs[d.dirCursor])
			return false, false, nil
		}

	case "down", "ctrl+n":
		if !d.onGoal && len(d.recentDirs) > 0 {
			d.dirCursor = (d.dirCursor + 1) % len(d.recentDirs)
			d.dir.SetValue(d.recentDirs[d.dirCursor])
			return false, false, nil
		}
	}

	if d.onGoal {
		d.goal, cmd = d.goal.Update(msg)
	} else {
		d.dir, cmd = d.dir.Update(msg)
		d.dirCursor = -1
	}
	return false, false, cmd
}

// Values returns the entered goal and directory.
func (d *SpawnDialog) Values() (goal, dir string) {
	return strings.TrimSpace(d.goal.Value()), strings.TrimSpace(d.dir.Value())
}

func (d *SpawnDialog) View(width int) string {
	var b strings.Builder
	b.WriteString(panelTitle.Render("New agent session"))
	b.WriteString("\n\n")
	b.WriteString("Goal\n")
	b.WriteString(d.goal.View())
	b.WriteString("\n\nDirectory")
	if len(d.recentDirs) > 0 && !d.onGoal {
		b.WriteString(dimStyle.Render("  (↑/↓ recent)"))
	}
	b.WriteString("\n")
	b.WriteString(d.dir.View())
	if len(d.recentDirs) > 0 {
		b.WriteString("\n")
		for i, dir := range d.recentDirs {
			if i >= 5 {
				break
			}
			marker := "  "
			if i == d.dirCursor {
				marker = "▶ "
			}
			b.WriteString(dimStyle.Render(fmt.Sprintf("%s%s", marker, dir)))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter next/confirm · tab switch · esc cancel"))

	box := filterStyle.Render(b.String())
	if width > 0 {
		return box
	}
	return box
}
