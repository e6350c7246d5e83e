// Package links scans captured pane text for URLs and ticket references
// worth surfacing next to a session (open PRs, dev servers, tracker IDs).
package links

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/tchow-twistedxcom/agent-watch/internal/logging"
)

var log = logging.ForComponent(logging.CompStatus)

// Link is one detected reference, reduced to what the display needs.
type Link struct {
	Rule  string // rule name that matched
	Icon  string
	Label string
	URL   string // the matched substring; also the dedup key
}

// Rule describes one link pattern. Immutable after construction.
type Rule struct {
	Name    string
	Icon    string
	Pattern *regexp.Regexp
	// Label is a format string applied to the first capture group, e.g.
	// "PR #%s". With no capture group or empty label, the match itself is
	// used as the label.
	Label string
}

// RawRule is the uncompiled, config-facing form of a Rule.
type RawRule struct {
	Name    string `toml:"name"`
	Icon    string `toml:"icon"`
	Pattern string `toml:"pattern"`
	Label   string `toml:"label"`
}

// Compile validates and compiles a RawRule. Invalid patterns are reported so
// user config mistakes surface in the log instead of failing startup.
func (r RawRule) Compile() (Rule, error) {
	re, err := regexp.Compile(r.Pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("link rule %q: %w", r.Name, err)
	}
	icon := r.Icon
	if icon == "" {
		icon = "🔗"
	}
	return Rule{Name: r.Name, Icon: icon, Pattern: re, Label: r.Label}, nil
}

// Builtins returns the built-in rules in priority order.
func Builtins() []Rule {
	return []Rule{
		{
			Name:    "github-pr",
			Icon:    "🔗",
			Pattern: regexp.MustCompile(`https://github\.com/[^\s]+/pull/(\d+)`),
			Label:   "PR #%s",
		},
		{
			Name:    "github-issue",
			Icon:    "🔗",
			Pattern: regexp.MustCompile(`https://github\.com/[^\s]+/issues/(\d+)`),
			Label:   "Issue #%s",
		},
		{
			Name:    "ticket",
			Icon:    "🎫",
			Pattern: regexp.MustCompile(`\b([A-Z]{2,}-\d+)\b`),
			Label:   "%s",
		},
		{
			Name:    "localhost",
			Icon:    "🌐",
			Pattern: regexp.MustCompile(`https?://localhost:\d+[^\s]*`),
		},
	}
}

// NewRules builds the evaluation list: user rules first (they outrank
// built-ins for display dedup), then built-ins. Invalid user rules are
// logged and skipped.
func NewRules(user []RawRule) []Rule {
	var rules []Rule
	for _, raw := range user {
		rule, err := raw.Compile()
		if err != nil {
			log.Warn("invalid_link_rule", slog.String("error", err.Error()))
			continue
		}
		rules = append(rules, rule)
	}
	return append(rules, Builtins()...)
}

// Extract scans text against rules in order and returns deduplicated links.
// Scan order is rule priority first, then position in text; the first
// occurrence of a given matched substring wins. Pure and idempotent: the
// same text always yields the same ordered list.
func Extract(text string, rules []Rule) []Link {
	var out []Link
	seen := make(map[string]bool)
	for _, rule := range rules {
		for _, match := range rule.Pattern.FindAllStringSubmatch(text, -1) {
			url := match[0]
			if seen[url] {
				continue
			}
			seen[url] = true
			out = append(out, Link{
				Rule:  rule.Name,
				Icon:  rule.Icon,
				Label: makeLabel(rule, match),
				URL:   url,
			})
		}
	}
	return out
}

func makeLabel(rule Rule, match []string) string {
	if rule.Label == "" {
		return shortenURL(match[0])
	}
	if strings.Contains(rule.Label, "%s") && len(match) > 1 {
		return fmt.Sprintf(rule.Label, match[1])
	}
	return rule.Label
}

// shortenURL trims a URL to host:port for compact display.
func shortenURL(url string) string {
	rest := url
	if _, after, ok := strings.Cut(url, "//"); ok {
		rest = after
	}
	if host, _, ok := strings.Cut(rest, "/"); ok {
		return host
	}
	return rest
}
