package tmux

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripANSI(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello world", "hello world"},
		{"color", "\x1b[31mred\x1b[0m text", "red text"},
		{"cursor movement", "\x1b[2J\x1b[Hcleared", "cleared"},
		{"osc title bel", "\x1b]0;window title\x07content", "content"},
		{"osc title st", "\x1b]0;title\x1b\\content", "content"},
		{"eight bit csi", "\x9b31mred", "red"},
		{"two byte escape", "\x1b(Btext", "text"},
		{"charset designation", "\x1b)0line", "line"},
		{"trailing lone esc", "text\x1b", "text"},
		{"unterminated csi", "text\x1b[31", "text"},
		{"mixed", "\x1b[1m\x1b[32m✓\x1b[0m done", "✓ done"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StripANSI(tc.in))
		})
	}
}

func TestStripANSI_FastPathReturnsSameString(t *testing.T) {
	in := "no escapes here"
	assert.Equal(t, in, StripANSI(in))
}

func TestTail(t *testing.T) {
	content := "one\n\ntwo\nthree\n\n\nfour\n"

	assert.Equal(t, "three\nfour", Tail(content, 2))
	assert.Equal(t, "one\ntwo\nthree\nfour", Tail(content, 10))
	assert.Equal(t, "", Tail("", 5))
	assert.Equal(t, "", Tail("\n\n\n", 5))
}
