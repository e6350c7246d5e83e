package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		goal string
		want string
	}{
		{"Fix the login bug", "fix-the-login-bug"},
		{"Refactor auth!! (v2)", "refactor-auth-v2"},
		{"  spaces   everywhere  ", "spaces-everywhere"},
		{"UPPER case Goal", "upper-case-goal"},
		{"already-slugged", "already-slugged"},
		{"", "agent"},
		{"!!!", "agent"},
		{"42 things", "42-things"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.goal), "goal %q", tt.goal)
	}
}

func TestSlugify_CapsLength(t *testing.T) {
	got := Slugify(strings.Repeat("verylonggoal ", 10))
	assert.LessOrEqual(t, len(got), maxWindowNameLen)
	assert.False(t, strings.HasSuffix(got, "-"))
}
