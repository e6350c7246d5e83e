package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/sahilm/fuzzy"

	"github.com/tchow-twistedxcom/agent-watch/internal/config"
	"github.com/tchow-twistedxcom/agent-watch/internal/platform"
	"github.com/tchow-twistedxcom/agent-watch/internal/session"
	"github.com/tchow-twistedxcom/agent-watch/internal/tmux"
)

const uiRefreshInterval = time.Second

type tickMsg time.Time

type spawnDoneMsg struct {
	paneID string
	err    error
}

// Home is the root bubbletea model: a session table with a detail panel,
// a fuzzy filter, and a spawn dialog.
type Home struct {
	orch    *session.Orchestrator
	spawner *session.Spawner
	cfg     *config.Config

	sessions []session.Snapshot
	filtered []session.Snapshot
	cursor   int

	filter    textinput.Model
	filtering bool

	spawn *SpawnDialog

	width  int
	height int
	errMsg string

	// attachArgv is set when the user jumps to a session; main execs it
	// after the UI tears down.
	attachArgv []string
}

func NewHome(orch *session.Orchestrator, spawner *session.Spawner, cfg *config.Config) *Home {
	ti := textinput.New()
	ti.Placeholder = "Filter sessions..."
	ti.CharLimit = 100
	ti.Width = 40

	return &Home{
		orch:    orch,
		spawner: spawner,
		cfg:     cfg,
		filter:  ti,
	}
}

// AttachArgv returns the tmux attach command to exec after the program
// exits, or nil when the user just quit.
func (h *Home) AttachArgv() []string {
	return h.attachArgv
}

func (h *Home) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(uiRefreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (h *Home) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h.width = msg.Width
		h.height = msg.Height
		return h, nil

	case tickMsg:
		h.refresh()
		return h, tickCmd()

	case spawnDoneMsg:
		if msg.err != nil {
			h.errMsg = fmt.Sprintf("spawn failed: %v", msg.err)
		} else {
			h.errMsg = ""
		}
		return h, nil

	case tea.KeyMsg:
		if h.spawn != nil {
			return h.updateSpawn(msg)
		}
		if h.filtering {
			return h.updateFilter(msg)
		}
		return h.updateKeys(msg)
	}
	return h, nil
}

func (h *Home) refresh() {
	h.sessions = h.orch.Snapshots()
	h.applyFilter()
	if h.cursor >= len(h.filtered) {
		h.cursor = len(h.filtered) - 1
	}
	if h.cursor < 0 {
		h.cursor = 0
	}
}

func (h *Home) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return h, tea.Quit

	case "j", "down":
		if h.cursor < len(h.filtered)-1 {
			h.cursor++
		}

	case "k", "up":
		if h.cursor > 0 {
			h.cursor--
		}

	case "enter":
		if snap, ok := h.selected(); ok {
			h.orch.Acknowledge(snap.PaneID)
			h.attachArgv = tmux.AttachCommand(sessionNameOf(snap.PaneID))
			client := tmux.NewClient()
			_ = client.SelectPane(context.Background(), snap.PaneID)
			return h, tea.Quit
		}

	case "o":
		if snap, ok := h.selected(); ok && len(snap.Links) > 0 {
			if err := platform.OpenURL(snap.Links[0].URL); err != nil {
				h.errMsg = err.Error()
			}
		}

	case "s":
		if snap, ok := h.selected(); ok {
			h.orch.RequestSummary(snap.PaneID)
		}

	case "r":
		h.orch.Refresh()
		return h, func() tea.Msg {
			return tickMsg(time.Now())
		}

	case "n":
		h.spawn = NewSpawnDialog(h.cfg.RecentDirs)
		return h, h.spawn.Init()

	case "/":
		h.filtering = true
		h.filter.SetValue("")
		h.filter.Focus()
		return h, textinput.Blink
	}
	return h, nil
}

func (h *Home) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		h.filtering = false
		h.filter.Blur()
		h.filter.SetValue("")
		h.applyFilter()
		return h, nil
	case "enter":
		h.filtering = false
		h.filter.Blur()
		return h, nil
	}
	var cmd tea.Cmd
	h.filter, cmd = h.filter.Update(msg)
	h.applyFilter()
	h.cursor = 0
	return h, cmd
}

func (h *Home) updateSpawn(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	done, cancelled, cmd := h.spawn.Update(msg)
	if cancelled {
		h.spawn = nil
		return h, nil
	}
	if done {
		goal, dir := h.spawn.Values()
		h.spawn = nil
		return h, func() tea.Msg {
			paneID, err := h.spawner.Spawn(context.Background(), goal, dir)
			return spawnDoneMsg{paneID: paneID, err: err}
		}
	}
	return h, cmd
}

func (h *Home) applyFilter() {
	query := strings.TrimSpace(h.filter.Value())
	if query == "" {
		h.filtered = h.sessions
		return
	}
	haystack := make([]string, len(h.sessions))
	for i, s := range h.sessions {
		haystack[i] = s.AgentName + " " + s.PaneID + " " + s.Summary.Goal
	}
	matches := fuzzy.Find(query, haystack)
	out := make([]session.Snapshot, 0, len(matches))
	for _, m := range matches {
		out = append(out, h.sessions[m.Index])
	}
	h.filtered = out
}

func (h *Home) selected() (session.Snapshot, bool) {
	if h.cursor < 0 || h.cursor >= len(h.filtered) {
		return session.Snapshot{}, false
	}
	return h.filtered[h.cursor], true
}

// sessionNameOf extracts the tmux session from a "session:window.pane" id.
func sessionNameOf(paneID string) string {
	if i := strings.LastIndex(paneID, ":"); i > 0 {
		return paneID[:i]
	}
	return paneID
}

func (h *Home) View() string {
	if h.spawn != nil {
		return h.spawn.View(h.width)
	}

	var b strings.Builder
	b.WriteString(h.viewHeader())
	b.WriteString("\n")

	if h.filtering || h.filter.Value() != "" {
		b.WriteString(filterStyle.Render(h.filter.View()))
		b.WriteString("\n")
	}

	if len(h.filtered) == 0 {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("  No agent sessions found. Press n to spawn one."))
		b.WriteString("\n")
	} else {
		b.WriteString(h.viewTable())
		if snap, ok := h.selected(); ok {
			b.WriteString("\n")
			b.WriteString(h.viewDetail(snap))
		}
	}

	if h.errMsg != "" {
		b.WriteString("\n")
		b.WriteString(warnStyle.Render("  " + h.errMsg))
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("  j/k move · enter jump · o open link · s summarize · n new · / filter · q quit"))
	return b.String()
}

func (h *Home) viewHeader() string {
	title := headerStyle.Render(" Agent Watch ")
	parts := []string{title}
	if badge := h.orch.Badge(); badge > 0 {
		parts = append(parts, badgeStyle.Render(fmt.Sprintf("%d", badge)))
	}
	if h.orch.Degraded() {
		parts = append(parts, warnStyle.Render("⚠ tmux unreachable"))
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, strings.Join(parts, " "))
}

func (h *Home) viewTable() string {
	width := h.width
	if width <= 0 {
		width = 80
	}

	var b strings.Builder
	for i, snap := range h.filtered {
		line := h.renderRow(snap, width-4)
		if i == h.cursor {
			b.WriteString(selectedStyle.Render("▶ " + line))
		} else {
			b.WriteString(rowStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (h *Home) renderRow(snap session.Snapshot, width int) string {
	name := snap.AgentName
	if name == "" {
		name = "agent"
	}
	goal := snap.Summary.Goal
	if !snap.HasSummary {
		goal = ""
	}
	line := fmt.Sprintf("%s %-8s %-10s %-18s %s",
		snap.Status.Icon(), snap.Status.Label(), name, snap.PaneID, goal)
	return runewidth.Truncate(line, width, "…")
}

func (h *Home) viewDetail(snap session.Snapshot) string {
	width := h.width - 4
	if width < 20 {
		width = 76
	}

	var b strings.Builder
	b.WriteString(panelTitle.Render(fmt.Sprintf("%s · %s · %s since %s",
		snap.AgentName, snap.PaneID, snap.Status.Label(),
		snap.ChangedAt.Format("15:04:05"))))
	b.WriteString("\n")

	if snap.HasSummary {
		b.WriteString("Goal:     " + runewidth.Truncate(snap.Summary.Goal, width-10, "…") + "\n")
		b.WriteString("Progress: " + runewidth.Truncate(snap.Summary.Progress, width-10, "…") + "\n")
		if snap.Summary.NeedsUser {
			b.WriteString(warnStyle.Render("Needs:    waiting on you") + "\n")
		}
	} else {
		b.WriteString(dimStyle.Render("No summary yet (press s to request one)") + "\n")
	}

	if len(snap.Links) > 0 {
		b.WriteString(dimStyle.Render("Links:") + "\n")
		for i, link := range snap.Links {
			if i >= 5 {
				b.WriteString(dimStyle.Render(fmt.Sprintf("  … %d more", len(snap.Links)-i)) + "\n")
				break
			}
			b.WriteString(fmt.Sprintf("  %s %s\n", link.Icon,
				runewidth.Truncate(link.Label, width-6, "…")))
		}
	}
	return panelStyle.Width(width).Render(strings.TrimRight(b.String(), "\n"))
}
