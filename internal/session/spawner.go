package session

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/tchow-twistedxcom/agent-watch/internal/config"
	"github.com/tchow-twistedxcom/agent-watch/internal/tmux"
)

const maxWindowNameLen = 30

// Spawner launches new agent windows into the configured tmux session.
type Spawner struct {
	tmux *tmux.Client
	cfg  *config.Config
}

func NewSpawner(client *tmux.Client, cfg *config.Config) *Spawner {
	return &Spawner{tmux: client, cfg: cfg}
}

// Spawn creates a new agent window named after the goal, seeds the agent
// with the goal as its first prompt, and returns the new pane id.
func (s *Spawner) Spawn(ctx context.Context, goal, dir string) (string, error) {
	session := s.cfg.GetTmuxSession()
	if err := s.tmux.EnsureSession(ctx, session); err != nil {
		return "", err
	}

	command := s.cfg.GetAgentCommand()
	if len(s.cfg.DefaultArgs) > 0 {
		command = command + " " + strings.Join(s.cfg.DefaultArgs, " ")
	}

	paneID, err := s.tmux.NewWindow(ctx, session, Slugify(goal), dir, command)
	if err != nil {
		return "", fmt.Errorf("spawn agent: %w", err)
	}

	if goal != "" {
		// Best effort: the agent may not be ready for input yet.
		_ = s.tmux.SendKeys(ctx, paneID, goal)
	}
	if dir != "" {
		s.cfg.RememberDir(dir)
		_ = config.Save(s.cfg)
	}
	return paneID, nil
}

// Slugify turns a free-form goal into a tmux window name: lowercase,
// alphanumerics kept, runs of anything else collapsed to single dashes.
func Slugify(goal string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(goal) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	name := strings.TrimRight(b.String(), "-")
	if name == "" {
		name = "agent"
	}
	if len(name) > maxWindowNameLen {
		name = strings.TrimRight(name[:maxWindowNameLen], "-")
	}
	return name
}
