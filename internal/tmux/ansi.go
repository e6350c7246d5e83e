package tmux

import "strings"

// StripANSI removes ANSI escape sequences in a single pass. Regex-based
// stripping can backtrack catastrophically on malformed sequences, so this
// walks the bytes directly.
func StripANSI(content string) string {
	// Fast path: no ESC and no 8-bit CSI.
	if strings.IndexByte(content, '\x1b') < 0 && strings.IndexByte(content, '\x9b') < 0 {
		return content
	}

	var b strings.Builder
	b.Grow(len(content))

	i := 0
	for i < len(content) {
		switch content[i] {
		case '\x1b':
			if i+1 < len(content) && content[i+1] == '[' {
				// CSI: ESC [ params letter
				j := i + 2
				for j < len(content) && !isCSITerminator(content[j]) {
					j++
				}
				if j < len(content) {
					j++
				}
				i = j
				continue
			}
			if i+1 < len(content) && content[i+1] == ']' {
				// OSC: ESC ] ... BEL or ESC \
				if bell := strings.IndexByte(content[i:], '\x07'); bell >= 0 {
					i += bell + 1
					continue
				}
				if st := strings.Index(content[i:], "\x1b\\"); st >= 0 {
					i += st + 2
					continue
				}
			}
			// nF escape (ESC, intermediates 0x20-0x2F, one final byte),
			// which covers charset designations like ESC ( B. Otherwise a
			// plain two-byte escape, or a lone trailing ESC.
			j := i + 1
			for j < len(content) && content[j] >= 0x20 && content[j] <= 0x2f {
				j++
			}
			if j < len(content) {
				j++
			}
			i = j
		case '\x9b':
			j := i + 1
			for j < len(content) && !isCSITerminator(content[j]) {
				j++
			}
			if j < len(content) {
				j++
			}
			i = j
		default:
			b.WriteByte(content[i])
			i++
		}
	}
	return b.String()
}

func isCSITerminator(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

// Tail returns the last n non-empty lines of content, joined by newlines.
// Classification only looks at the trailing screen, not the full buffer.
func Tail(content string, n int) string {
	lines := strings.Split(content, "\n")
	var kept []string
	for i := len(lines) - 1; i >= 0 && len(kept) < n; i-- {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		kept = append([]string{lines[i]}, kept...)
	}
	return strings.Join(kept, "\n")
}
