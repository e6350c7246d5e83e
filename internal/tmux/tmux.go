// Package tmux wraps the three multiplexer primitives the monitor needs:
// enumerating panes with their root process ids, capturing trailing pane
// text, and sending keys.
package tmux

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tchow-twistedxcom/agent-watch/internal/logging"
)

var log = logging.ForComponent(logging.CompTmux)

// ErrCaptureTimeout is returned when capture-pane exceeds its deadline. The
// caller keeps its previous buffer for the tick; the next tick retries.
var ErrCaptureTimeout = errors.New("capture-pane timed out")

// captureDeadline bounds every capture-pane subprocess. Captures are on the
// poll loop's critical path, so they must not hang on a wedged server.
const captureDeadline = 3 * time.Second

// captureCacheTTL deduplicates captures of the same pane within one tick
// (status classification and link extraction share the same text).
const captureCacheTTL = 500 * time.Millisecond

// Pane is one terminal surface inside the multiplexer.
type Pane struct {
	ID          string // "session:window.pane", the stable key
	PID         int    // root process id of the pane's shell
	SessionName string
	WindowIndex int
	PaneIndex   int
}

// Client talks to the tmux server via subprocess. Safe for concurrent use.
type Client struct {
	mu    sync.Mutex
	cache map[string]captureEntry
	sf    singleflight.Group
}

type captureEntry struct {
	content string
	at      time.Time
}

// NewClient creates a tmux client.
func NewClient() *Client {
	return &Client{cache: make(map[string]captureEntry)}
}

// IsAvailable reports whether a tmux server is reachable.
func (c *Client) IsAvailable(ctx context.Context) error {
	if err := exec.CommandContext(ctx, "tmux", "list-sessions").Run(); err != nil {
		return fmt.Errorf("tmux server not reachable: %w", err)
	}
	return nil
}

// ListPanes enumerates every pane across all sessions with its root PID.
func (c *Client) ListPanes(ctx context.Context) ([]Pane, error) {
	out, err := exec.CommandContext(ctx, "tmux", "list-panes", "-a",
		"-F", "#{session_name}:#{window_index}.#{pane_index} #{pane_pid}").Output()
	if err != nil {
		return nil, fmt.Errorf("list-panes: %w", err)
	}

	var panes []Pane
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		pane, ok := parsePaneLine(line)
		if !ok {
			log.Debug("unparseable_pane_line", slog.String("line", line))
			continue
		}
		panes = append(panes, pane)
	}
	return panes, nil
}

func parsePaneLine(line string) (Pane, bool) {
	id, pidStr, ok := strings.Cut(line, " ")
	if !ok {
		return Pane{}, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(pidStr))
	if err != nil {
		return Pane{}, false
	}

	// id is "session:window.pane"; session names may themselves contain dots,
	// so split the pane index off the right first.
	head, paneStr, ok := cutLast(id, ".")
	if !ok {
		return Pane{}, false
	}
	session, windowStr, ok := strings.Cut(head, ":")
	if !ok {
		return Pane{}, false
	}
	window, err := strconv.Atoi(windowStr)
	if err != nil {
		return Pane{}, false
	}
	paneIdx, err := strconv.Atoi(paneStr)
	if err != nil {
		return Pane{}, false
	}

	return Pane{
		ID:          id,
		PID:         pid,
		SessionName: session,
		WindowIndex: window,
		PaneIndex:   paneIdx,
	}, true
}

func cutLast(s, sep string) (before, after string, found bool) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}

// CapturePane captures the last `lines` visible lines of a pane. Recent
// captures are cached briefly and concurrent captures of the same pane are
// collapsed via singleflight, since several consumers read the same text
// each tick.
func (c *Client) CapturePane(ctx context.Context, paneID string, lines int) (string, error) {
	c.mu.Lock()
	if entry, ok := c.cache[paneID]; ok && time.Since(entry.at) < captureCacheTTL {
		c.mu.Unlock()
		return entry.content, nil
	}
	c.mu.Unlock()

	v, err, _ := c.sf.Do(paneID, func() (interface{}, error) {
		cctx, cancel := context.WithTimeout(ctx, captureDeadline)
		defer cancel()

		// -p prints to stdout, -J joins wrapped lines, -S sets the start line
		// relative to the visible bottom.
		out, err := exec.CommandContext(cctx, "tmux", "capture-pane",
			"-t", paneID, "-p", "-J", "-S", strconv.Itoa(-lines)).Output()
		if err != nil {
			if cctx.Err() == context.DeadlineExceeded {
				return "", ErrCaptureTimeout
			}
			return "", fmt.Errorf("capture-pane %s: %w", paneID, err)
		}

		content := string(out)
		c.mu.Lock()
		c.cache[paneID] = captureEntry{content: content, at: time.Now()}
		c.mu.Unlock()
		return content, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// SendKeys sends literal keys to a pane (used by the spawner and jump flow,
// never by the classifier).
func (c *Client) SendKeys(ctx context.Context, paneID string, keys string) error {
	if err := exec.CommandContext(ctx, "tmux", "send-keys", "-t", paneID, keys, "Enter").Run(); err != nil {
		return fmt.Errorf("send-keys %s: %w", paneID, err)
	}
	return nil
}

// HasSession reports whether a named tmux session exists.
func (c *Client) HasSession(ctx context.Context, name string) bool {
	return exec.CommandContext(ctx, "tmux", "has-session", "-t", name).Run() == nil
}

// EnsureSession creates a detached session if it does not already exist.
func (c *Client) EnsureSession(ctx context.Context, name string) error {
	if c.HasSession(ctx, name) {
		return nil
	}
	if err := exec.CommandContext(ctx, "tmux", "new-session", "-d", "-s", name).Run(); err != nil {
		return fmt.Errorf("new-session %s: %w", name, err)
	}
	return nil
}

// NewWindow creates a window running command inside session and returns the
// new pane's id. dir sets the window's working directory when non-empty.
func (c *Client) NewWindow(ctx context.Context, session, windowName, dir, command string) (string, error) {
	args := []string{"new-window",
		"-t", session, "-n", windowName,
		"-P", "-F", "#{session_name}:#{window_index}.#{pane_index}"}
	if dir != "" {
		args = append(args, "-c", dir)
	}
	args = append(args, command)
	out, err := exec.CommandContext(ctx, "tmux", args...).Output()
	if err != nil {
		return "", fmt.Errorf("new-window in %s: %w", session, err)
	}
	paneID := strings.TrimSpace(string(out))
	if paneID == "" {
		return "", fmt.Errorf("new-window in %s: empty pane id", session)
	}
	return paneID, nil
}

// SelectPane focuses a pane (used when jumping to a session from the UI).
func (c *Client) SelectPane(ctx context.Context, paneID string) error {
	if err := exec.CommandContext(ctx, "tmux", "select-window", "-t", paneID).Run(); err != nil {
		return fmt.Errorf("select-window %s: %w", paneID, err)
	}
	if err := exec.CommandContext(ctx, "tmux", "select-pane", "-t", paneID).Run(); err != nil {
		return fmt.Errorf("select-pane %s: %w", paneID, err)
	}
	return nil
}

// AttachCommand returns the argv for attaching to a session, for the caller
// to exec after tearing down its own UI.
func AttachCommand(sessionName string) []string {
	return []string{"tmux", "attach-session", "-t", sessionName}
}
