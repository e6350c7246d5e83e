package agent

import "regexp"

// Spinner and progress characters shared by most TUI agents: braille dots
// (cli-spinners "dots") and block pulse characters.
var (
	brailleSpinner = regexp.MustCompile(`[⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏]`)
	pulseBlocks    = regexp.MustCompile(`[█▓▒░]`)
	ellipsisRun    = regexp.MustCompile(`\.{3,}`)
)

// Prompt shapes shared across agents: a trailing question, an explicit
// yes/no choice, or a bare input prompt on its own line.
var (
	trailingQuestion = regexp.MustCompile(`(?m)\?\s*$`)
	yesNoChoice      = regexp.MustCompile(`(?i)(?:Y/n|y/N|yes/no)`)
	yesNoSpelled     = regexp.MustCompile(`(?i)\(Y\)es.*\(N\)o`)
	barePrompt       = regexp.MustCompile(`(?m)^[❯>›]\s*$`)
	barePromptShell  = regexp.MustCompile(`(?m)^[❯>›$]\s*$`)
)

// Builtins returns fresh copies of the built-in agent definitions, in
// evaluation order. Callers may replace entries when merging user config.
func Builtins() []Definition {
	return []Definition{
		{
			Name:         "Claude",
			ProcessNames: []string{"claude"},
			AttentionPatterns: []*regexp.Regexp{
				trailingQuestion,
				yesNoChoice,
				yesNoSpelled,
				barePrompt,
				regexp.MustCompile(`(?i)Do you want to proceed`),
			},
			WorkingPatterns: []*regexp.Regexp{
				brailleSpinner,
				regexp.MustCompile(`[✳✽✶✢]\s*\S+…`), // asterisk spinner + whimsical word
				ellipsisRun,
				pulseBlocks,
				regexp.MustCompile(`(?i)(?:ctrl\+c|esc) to interrupt`),
			},
		},
		{
			Name:         "OpenCode",
			ProcessNames: []string{"opencode"},
			AttentionPatterns: []*regexp.Regexp{
				trailingQuestion,
				yesNoChoice,
				barePromptShell,
				regexp.MustCompile(`(?i)Enter.*to continue`),
				regexp.MustCompile(`(?i)waiting for input`),
			},
			WorkingPatterns: []*regexp.Regexp{
				brailleSpinner,
				regexp.MustCompile(`(?i)thinking|generating|processing`),
				pulseBlocks,
			},
		},
		{
			Name:         "Codex",
			ProcessNames: []string{"codex"},
			AttentionPatterns: []*regexp.Regexp{
				trailingQuestion,
				yesNoChoice,
				barePromptShell,
				regexp.MustCompile(`(?i)approve|reject|deny`),
			},
			WorkingPatterns: []*regexp.Regexp{
				brailleSpinner,
				regexp.MustCompile(`(?i)running|executing|reading`),
				pulseBlocks,
			},
		},
		{
			Name:         "Aider",
			ProcessNames: []string{"aider"},
			AttentionPatterns: []*regexp.Regexp{
				trailingQuestion,
				yesNoChoice,
				barePromptShell,
				regexp.MustCompile(`(?m)^aider>`),
			},
			WorkingPatterns: []*regexp.Regexp{
				brailleSpinner,
				regexp.MustCompile(`(?i)Tokens:|Model:`),
			},
		},
		{
			Name:         "Gemini",
			ProcessNames: []string{"gemini", "antigravity"},
			AttentionPatterns: []*regexp.Regexp{
				trailingQuestion,
				yesNoChoice,
				barePromptShell,
				regexp.MustCompile(`(?i)Do you want to proceed`),
				regexp.MustCompile(`(?i)waiting for approval`),
			},
			WorkingPatterns: []*regexp.Regexp{
				brailleSpinner,
				ellipsisRun,
				pulseBlocks,
				regexp.MustCompile(`(?i)Generating|Thinking|Planning`),
			},
		},
	}
}
