package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tchow-twistedxcom/agent-watch/internal/agent"
)

func claudeDef(t *testing.T) *agent.Definition {
	t.Helper()
	for _, d := range agent.Builtins() {
		if d.Name == "Claude" {
			def := d
			return &def
		}
	}
	t.Fatal("Claude builtin missing")
	return nil
}

func TestClassify_DeadProcessIsCrashed(t *testing.T) {
	c := NewClassifier()
	now := time.Now()

	got := c.Classify(claudeDef(t), Input{
		Text:  "panic: runtime error\ngoroutine 1 [running]:",
		Alive: false,
	}, now)
	assert.Equal(t, Crashed, got)
}

func TestClassify_DeadProcessWithDoneIndicatorIsDone(t *testing.T) {
	c := NewClassifier()
	now := time.Now()

	for _, tail := range []string{
		"All changes applied.\nTask completed ✔",
		"wrapping up\nall done!",
		"process exited cleanly",
		"agent exited with code 0",
		"Session ended.",
		"Goodbye!",
	} {
		got := c.Classify(claudeDef(t), Input{Text: tail, Alive: false}, now)
		assert.Equal(t, Done, got, "tail %q", tail)
	}
}

func TestClassify_AttentionPattern(t *testing.T) {
	c := NewClassifier()
	now := time.Now()

	got := c.Classify(claudeDef(t), Input{
		Text:       "Do you want to proceed? (y/n)",
		Alive:      true,
		LastChange: now,
	}, now)
	assert.Equal(t, NeedsInput, got)
}

func TestClassify_AttentionOutranksWorking(t *testing.T) {
	// Old spinner output above, fresh prompt below: the agent is blocked.
	c := NewClassifier()
	now := time.Now()

	text := "⠋ Processing files\nEdit complete\nApply this change? (y/N)"
	got := c.Classify(claudeDef(t), Input{Text: text, Alive: true, LastChange: now}, now)
	assert.Equal(t, NeedsInput, got)
}

func TestClassify_WorkingPattern(t *testing.T) {
	c := NewClassifier()
	now := time.Now()

	got := c.Classify(claudeDef(t), Input{
		Text:  "✳ Cogitating… (esc to interrupt)",
		Alive: true,
	}, now)
	assert.Equal(t, Working, got)
}

func TestClassify_NoPatternRecentChangeIsWorking(t *testing.T) {
	c := NewClassifier()
	now := time.Now()

	got := c.Classify(claudeDef(t), Input{
		Text:       "writing src/main.go",
		Alive:      true,
		LastChange: now.Add(-5 * time.Second),
	}, now)
	assert.Equal(t, Working, got)
}

func TestClassify_NoPatternStaleContentIsIdle(t *testing.T) {
	c := NewClassifier()
	now := time.Now()

	got := c.Classify(claudeDef(t), Input{
		Text:       "writing src/main.go",
		Alive:      true,
		LastChange: now.Add(-2 * time.Minute),
	}, now)
	assert.Equal(t, Idle, got)
}

func TestClassify_NeverSeenChangeIsIdle(t *testing.T) {
	c := NewClassifier()
	got := c.Classify(claudeDef(t), Input{Text: "static text", Alive: true}, time.Now())
	assert.Equal(t, Idle, got)
}

func TestClassify_OnlyTrailingLinesConsidered(t *testing.T) {
	// A prompt buried deep in scrollback must not trigger attention.
	c := NewClassifier()
	now := time.Now()

	var text string
	text += "Continue? (y/n)\n"
	for i := 0; i < 20; i++ {
		text += "later output line\n"
	}
	got := c.Classify(claudeDef(t), Input{Text: text, Alive: true, LastChange: now}, now)
	assert.Equal(t, Working, got)
}

func TestClassify_NilDefinitionUsesGenericPatterns(t *testing.T) {
	c := NewClassifier()
	now := time.Now()

	assert.Equal(t, NeedsInput, c.Classify(nil, Input{Text: "Proceed with merge?", Alive: true}, now))
	assert.Equal(t, Working, c.Classify(nil, Input{Text: "⠙ fetching", Alive: true}, now))
}

func TestClassify_CustomIdleAfter(t *testing.T) {
	c := &Classifier{IdleAfter: 5 * time.Second}
	now := time.Now()
	in := Input{Text: "plain", Alive: true, LastChange: now.Add(-10 * time.Second)}
	assert.Equal(t, Idle, c.Classify(nil, in, now))

	c.IdleAfter = time.Minute
	assert.Equal(t, Working, c.Classify(nil, in, now))
}
