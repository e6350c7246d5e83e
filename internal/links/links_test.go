package links

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_GitHubPR(t *testing.T) {
	text := "Opened https://github.com/acme/widgets/pull/421 for review"
	got := Extract(text, Builtins())

	require.Len(t, got, 1)
	assert.Equal(t, "github-pr", got[0].Rule)
	assert.Equal(t, "PR #421", got[0].Label)
	assert.Equal(t, "https://github.com/acme/widgets/pull/421", got[0].URL)
}

func TestExtract_MultipleRuleKinds(t *testing.T) {
	text := `Fixed PROJ-1234 in https://github.com/acme/widgets/pull/7.
See https://github.com/acme/widgets/issues/99 for background.
Dev server: http://localhost:3000/app`

	got := Extract(text, Builtins())
	require.Len(t, got, 4)

	// Rule priority order, not text order.
	assert.Equal(t, "github-pr", got[0].Rule)
	assert.Equal(t, "github-issue", got[1].Rule)
	assert.Equal(t, "Issue #99", got[1].Label)
	assert.Equal(t, "ticket", got[2].Rule)
	assert.Equal(t, "PROJ-1234", got[2].Label)
	assert.Equal(t, "localhost", got[3].Rule)
	assert.Equal(t, "localhost:3000", got[3].Label)
}

func TestExtract_DeduplicatesRepeats(t *testing.T) {
	text := `PROJ-12 then PROJ-12 again and PROJ-12 once more, plus PROJ-13`

	got := Extract(text, Builtins())
	require.Len(t, got, 2)
	assert.Equal(t, "PROJ-12", got[0].URL)
	assert.Equal(t, "PROJ-13", got[1].URL)
}

func TestExtract_Idempotent(t *testing.T) {
	text := "PROJ-1 and https://github.com/a/b/pull/2 and http://localhost:8080"
	first := Extract(text, Builtins())
	second := Extract(text, Builtins())
	assert.Equal(t, first, second)
}

func TestExtract_NoMatches(t *testing.T) {
	assert.Empty(t, Extract("nothing interesting here", Builtins()))
	assert.Empty(t, Extract("", Builtins()))
}

func TestExtract_TicketNotMatchedInsideWords(t *testing.T) {
	// Word boundaries keep the ticket rule from firing on fragments like
	// UUID chunks.
	got := Extract("id xPROJ-12x should not match", Builtins())
	assert.Empty(t, got)
}

func TestNewRules_UserRulesFirst(t *testing.T) {
	rules := NewRules([]RawRule{{
		Name:    "staging",
		Pattern: `https://staging\.example\.com[^\s]*`,
		Label:   "staging",
	}})

	require.Len(t, rules, len(Builtins())+1)
	assert.Equal(t, "staging", rules[0].Name)
	assert.Equal(t, "🔗", rules[0].Icon) // default icon applied

	got := Extract("deploy to https://staging.example.com/v2 done", rules)
	require.Len(t, got, 1)
	assert.Equal(t, "staging", got[0].Label)
}

func TestNewRules_InvalidUserRuleSkipped(t *testing.T) {
	rules := NewRules([]RawRule{{Name: "bad", Pattern: `[unclosed`}})
	assert.Len(t, rules, len(Builtins()))
}

func TestRawRuleCompile(t *testing.T) {
	_, err := RawRule{Name: "bad", Pattern: `(`}.Compile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")

	rule, err := RawRule{Name: "ok", Pattern: `ok`, Icon: "⭐"}.Compile()
	require.NoError(t, err)
	assert.Equal(t, "⭐", rule.Icon)
}
