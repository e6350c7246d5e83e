package status

import (
	"regexp"
	"time"

	"github.com/tchow-twistedxcom/agent-watch/internal/agent"
)

// DefaultIdleAfter is how long a pane's content must stay unchanged, with no
// pattern match, before an alive session reads as Idle instead of Working.
const DefaultIdleAfter = 30 * time.Second

// tailLines bounds how much trailing text the classifier inspects. Prompts
// and spinners live at the bottom of the screen; older scrollback only adds
// false positives.
const tailLines = 10

// doneIndicators recognize a clean finish in the trailing text of an exited
// process, so a completed run does not read as a crash.
var doneIndicators = []*regexp.Regexp{
	regexp.MustCompile(`(?im)^.*(?:task completed|all done|done!|finished)\s*\W*$`),
	regexp.MustCompile(`(?i)exited (?:cleanly|with code 0)`),
	regexp.MustCompile(`(?i)session ended`),
	regexp.MustCompile(`(?i)goodbye`),
}

// Input is everything the classifier looks at for one pane on one tick.
type Input struct {
	// Text is the captured trailing pane text, ANSI-stripped.
	Text string

	// Alive reports whether the tracked agent process still runs.
	Alive bool

	// LastChange is when the pane content last changed. Used for the
	// Working/Idle call when no pattern matches.
	LastChange time.Time
}

// Classifier produces one raw verdict per tick by ordered rule evaluation.
// The order is the contract: liveness first, then attention, then working,
// then the idle-timeout default. Attention outranks working because an agent
// that printed a prompt is blocked regardless of older "processing" text
// still visible above it.
type Classifier struct {
	IdleAfter time.Duration
}

// NewClassifier returns a classifier with default timing constants.
func NewClassifier() *Classifier {
	return &Classifier{IdleAfter: DefaultIdleAfter}
}

// Classify returns exactly one verdict for the tick.
func (c *Classifier) Classify(def *agent.Definition, in Input, now time.Time) Status {
	tail := lastLines(in.Text, tailLines)

	if !in.Alive {
		if hasDoneIndicator(tail) {
			return Done
		}
		return Crashed
	}

	attention, working := patternsFor(def)
	for _, re := range attention {
		if re.MatchString(tail) {
			return NeedsInput
		}
	}
	for _, re := range working {
		if re.MatchString(tail) {
			return Working
		}
	}

	idleAfter := c.IdleAfter
	if idleAfter <= 0 {
		idleAfter = DefaultIdleAfter
	}
	if !in.LastChange.IsZero() && now.Sub(in.LastChange) < idleAfter {
		// Output changed recently: the agent is producing text we just don't
		// have a pattern for.
		return Working
	}
	return Idle
}

func hasDoneIndicator(tail string) bool {
	for _, re := range doneIndicators {
		if re.MatchString(tail) {
			return true
		}
	}
	return false
}

// patternsFor returns the rule sets for a definition, falling back to the
// generic sets for panes tracked before their agent type is known.
func patternsFor(def *agent.Definition) (attention, working []*regexp.Regexp) {
	if def != nil {
		return def.AttentionPatterns, def.WorkingPatterns
	}
	return genericAttention, genericWorking
}

var genericAttention = []*regexp.Regexp{
	regexp.MustCompile(`(?m)\?\s*$`),
	regexp.MustCompile(`(?i)(?:Y/n|y/N|yes/no)`),
	regexp.MustCompile(`(?m)^[❯>›$]\s*$`),
}

var genericWorking = []*regexp.Regexp{
	regexp.MustCompile(`[⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏]`),
	regexp.MustCompile(`\.{3,}`),
	regexp.MustCompile(`[█▓▒░]`),
}

func lastLines(text string, n int) string {
	end := len(text)
	// Trim trailing newlines so they don't count as lines.
	for end > 0 && (text[end-1] == '\n' || text[end-1] == '\r') {
		end--
	}
	seen := 0
	for i := end - 1; i >= 0; i-- {
		if text[i] == '\n' {
			seen++
			if seen == n {
				return text[i+1 : end]
			}
		}
	}
	return text[:end]
}
