package agent

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_MatchBuiltins(t *testing.T) {
	r := NewRegistry(nil)

	def := r.Match("claude", "claude --dangerously-skip-permissions")
	require.NotNil(t, def)
	assert.Equal(t, "Claude", def.Name)

	def = r.Match("node", "/usr/bin/node /usr/local/bin/aider --model gpt-4o")
	require.NotNil(t, def)
	assert.Equal(t, "Aider", def.Name)

	assert.Nil(t, r.Match("bash", "bash"))
	assert.Nil(t, r.Match("vim", "vim main.go"))
}

func TestRegistry_MatchIsCaseInsensitive(t *testing.T) {
	r := NewRegistry(nil)

	def := r.Match("CLAUDE", "")
	require.NotNil(t, def)
	assert.Equal(t, "Claude", def.Name)
}

func TestRegistry_FirstDefinitionWins(t *testing.T) {
	r := NewRegistry([]RawDefinition{
		{Name: "First", ProcessNames: []string{"sharedproc"}},
		{Name: "Second", ProcessNames: []string{"sharedproc"}},
	})

	def := r.Match("sharedproc", "")
	require.NotNil(t, def)
	assert.Equal(t, "First", def.Name)
}

func TestRegistry_UserOverrideReplacesBuiltin(t *testing.T) {
	r := NewRegistry([]RawDefinition{{
		Name:              "claude",
		ProcessNames:      []string{"my-claude-wrapper"},
		AttentionPatterns: []string{`WAITING$`},
	}})

	// The override keeps the built-in's position but fully replaces its
	// contents, so plain "claude" no longer matches.
	assert.Nil(t, r.Match("claude", "claude"))

	def := r.Match("my-claude-wrapper", "")
	require.NotNil(t, def)
	assert.Equal(t, "claude", def.Name)
	require.Len(t, def.AttentionPatterns, 1)
	assert.True(t, def.AttentionPatterns[0].MatchString("WAITING"))

	// Built-in count unchanged: replaced, not appended.
	assert.Len(t, r.Definitions(), len(Builtins()))
}

func TestRegistry_UserDefinitionAppended(t *testing.T) {
	r := NewRegistry([]RawDefinition{{
		Name:         "Goose",
		ProcessNames: []string{"goose"},
	}})

	assert.Len(t, r.Definitions(), len(Builtins())+1)
	def := r.Match("goose", "")
	require.NotNil(t, def)
	assert.Equal(t, "Goose", def.Name)
}

func TestRawDefinition_CompileSkipsInvalidRegex(t *testing.T) {
	def := RawDefinition{
		Name:              "Broken",
		AttentionPatterns: []string{`[unclosed`, `valid\?`},
		WorkingPatterns:   []string{`(also|fine)`},
	}.Compile()

	assert.Len(t, def.AttentionPatterns, 1)
	assert.Len(t, def.WorkingPatterns, 1)
}

func TestRegistry_ByName(t *testing.T) {
	r := NewRegistry(nil)

	require.NotNil(t, r.ByName("gemini"))
	assert.Equal(t, "Gemini", r.ByName("gemini").Name)
	assert.Nil(t, r.ByName("nope"))
}

func TestBuiltins_ClaudePatterns(t *testing.T) {
	r := NewRegistry(nil)
	claude := r.ByName("Claude")
	require.NotNil(t, claude)

	matchAny := func(patterns []*regexp.Regexp, text string) bool {
		for _, re := range patterns {
			if re.MatchString(text) {
				return true
			}
		}
		return false
	}

	assert.True(t, matchAny(claude.AttentionPatterns, "Do you want to proceed? (y/n)"))
	assert.True(t, matchAny(claude.AttentionPatterns, "❯ "))
	assert.True(t, matchAny(claude.WorkingPatterns, "✳ Pondering… (esc to interrupt)"))
	assert.False(t, matchAny(claude.WorkingPatterns, "plain shell output"))
}
