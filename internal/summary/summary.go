// Package summary produces short goal/progress descriptions of sessions by
// calling an external LLM, throttled so status polling never waits on the
// network.
package summary

import (
	"fmt"
	"strings"
	"time"
)

// Summary is the parsed goal/progress description of one session.
type Summary struct {
	Goal      string
	Progress  string
	NeedsUser bool
	At        time.Time
}

// Error wraps a failed summarization attempt with its provider for logging.
// Non-fatal everywhere: the previous summary stays in place.
type Error struct {
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("summarization via %s failed: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// promptTailBytes bounds how much captured text goes into the prompt.
const promptTailBytes = 3000

const promptTemplate = `You are summarizing a terminal session running %s (an AI coding assistant).
Given the terminal output below, extract:
1. **Goal**: The original task or goal (one short line)
2. **Progress**: Current progress or state (one short line)
3. **Needs user**: Is the agent waiting for user input? (yes/no)

Respond in exactly this format:
Goal: <goal>
Progress: <progress>
Needs user: <yes or no>

Terminal output:
%s`

// BuildPrompt assembles the summarization prompt from the agent name and the
// tail of the captured text.
func BuildPrompt(agentName, content string) string {
	if agentName == "" {
		agentName = "a coding agent"
	}
	if len(content) > promptTailBytes {
		content = content[len(content)-promptTailBytes:]
	}
	return fmt.Sprintf(promptTemplate, agentName, content)
}

// ParseResponse reads the structured Goal/Progress/Needs-user reply.
// Lenient: missing fields become "Unknown" rather than an error, since a
// sloppy completion is still better than nothing.
func ParseResponse(text string, now time.Time) Summary {
	s := Summary{At: now}
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "goal:"):
			s.Goal = strings.TrimSpace(line[len("goal:"):])
		case strings.HasPrefix(lower, "progress:"):
			s.Progress = strings.TrimSpace(line[len("progress:"):])
		case strings.HasPrefix(lower, "needs user:"):
			val := strings.ToLower(strings.TrimSpace(line[len("needs user:"):]))
			s.NeedsUser = val == "yes" || val == "true" || val == "y"
		}
	}
	if s.Goal == "" {
		s.Goal = "Unknown"
	}
	if s.Progress == "" {
		s.Progress = "Unknown"
	}
	return s
}
