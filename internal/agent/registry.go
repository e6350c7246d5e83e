// Package agent holds the registry of known coding agents and the pattern
// rule sets used to classify their terminal activity.
package agent

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/tchow-twistedxcom/agent-watch/internal/logging"
)

var log = logging.ForComponent(logging.CompStatus)

// Definition describes one tracked coding agent: how to recognize its process
// in a pane's process tree and how to read its terminal output. Immutable
// after registry construction.
type Definition struct {
	// Name is the display name, e.g. "Claude". Also the merge key for user
	// overrides.
	Name string

	// ProcessNames are substrings matched (case-insensitively) against the
	// executable name or command line of processes under a pane.
	ProcessNames []string

	// AttentionPatterns signal the agent is blocked waiting for user input.
	// Checked before WorkingPatterns: a visible prompt means blocked even if
	// older "processing" output is still on screen.
	AttentionPatterns []*regexp.Regexp

	// WorkingPatterns signal active processing (spinners, progress text).
	WorkingPatterns []*regexp.Regexp
}

// RawDefinition is the uncompiled, config-facing form of a Definition.
type RawDefinition struct {
	Name              string   `toml:"name"`
	ProcessNames      []string `toml:"process_names"`
	AttentionPatterns []string `toml:"attention_patterns"`
	WorkingPatterns   []string `toml:"working_patterns"`
}

// Compile turns a RawDefinition into a Definition. Invalid regexes are logged
// and skipped rather than failing the whole registry.
func (r RawDefinition) Compile() Definition {
	return Definition{
		Name:              r.Name,
		ProcessNames:      append([]string(nil), r.ProcessNames...),
		AttentionPatterns: compilePatterns(r.Name, "attention", r.AttentionPatterns),
		WorkingPatterns:   compilePatterns(r.Name, "working", r.WorkingPatterns),
	}
}

func compilePatterns(agent, kind string, patterns []string) []*regexp.Regexp {
	var compiled []*regexp.Regexp
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			log.Warn("invalid_pattern",
				slog.String("agent", agent),
				slog.String("kind", kind),
				slog.String("pattern", p),
				slog.String("error", err.Error()))
			continue
		}
		compiled = append(compiled, re)
	}
	return compiled
}

// Registry is the read-only set of agent definitions, built once at startup
// and shared by reference across the poll loop.
type Registry struct {
	defs []Definition
}

// NewRegistry merges built-in definitions with user-supplied ones. A user
// definition with the same name as a built-in replaces it in place (keeping
// built-in evaluation order); new names are appended after the built-ins.
func NewRegistry(user []RawDefinition) *Registry {
	defs := Builtins()
	byName := make(map[string]int, len(defs))
	for i, d := range defs {
		byName[strings.ToLower(d.Name)] = i
	}
	for _, raw := range user {
		if raw.Name == "" {
			log.Warn("agent_definition_missing_name")
			continue
		}
		def := raw.Compile()
		if i, ok := byName[strings.ToLower(def.Name)]; ok {
			defs[i] = def
			continue
		}
		byName[strings.ToLower(def.Name)] = len(defs)
		defs = append(defs, def)
	}
	return &Registry{defs: defs}
}

// Definitions returns the full definition list in evaluation order.
func (r *Registry) Definitions() []Definition {
	return r.defs
}

// Match returns the first definition whose process names match the given
// executable name or command line. Returns nil when nothing matches.
func (r *Registry) Match(procName, cmdline string) *Definition {
	procName = strings.ToLower(procName)
	cmdline = strings.ToLower(cmdline)
	for i := range r.defs {
		for _, name := range r.defs[i].ProcessNames {
			name = strings.ToLower(name)
			if strings.Contains(procName, name) || strings.Contains(cmdline, name) {
				return &r.defs[i]
			}
		}
	}
	return nil
}

// ByName returns the definition with the given name, or nil.
func (r *Registry) ByName(name string) *Definition {
	for i := range r.defs {
		if strings.EqualFold(r.defs[i].Name, name) {
			return &r.defs[i]
		}
	}
	return nil
}
