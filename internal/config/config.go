package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/tchow-twistedxcom/agent-watch/internal/agent"
	"github.com/tchow-twistedxcom/agent-watch/internal/links"
)

// FileName is the TOML config file for user preferences
const FileName = "config.toml"

// Config represents user-facing configuration in TOML format
type Config struct {
	// RefreshIntervalMS is the poll loop tick interval in milliseconds
	// Default: 1000
	RefreshIntervalMS int `toml:"refresh_interval_ms"`

	// CaptureLines is how many trailing pane lines to capture per tick
	// Default: 50
	CaptureLines int `toml:"capture_lines"`

	// IdleAfterSecs is how long pane content must stay unchanged before a
	// working agent is considered idle
	// Default: 30
	IdleAfterSecs int `toml:"idle_after_secs"`

	// DebounceTicks is how many consecutive identical classifications are
	// required before a status change takes effect
	// Default: 2
	DebounceTicks int `toml:"debounce_ticks"`

	// TmuxSession is the tmux session new agent windows are spawned into
	// Default: "agents"
	TmuxSession string `toml:"tmux_session"`

	// AgentCommand is the command used when spawning a new agent window
	// Default: "claude"
	AgentCommand string `toml:"agent_command"`

	// DefaultArgs are extra arguments appended to AgentCommand on spawn
	DefaultArgs []string `toml:"default_args"`

	// RecentDirs are working directories offered in the spawn dialog
	RecentDirs []string `toml:"recent_dirs"`

	// Theme sets the color scheme: "dark" (default), "light", or "system"
	Theme string `toml:"theme"`

	// LLM defines the summarization provider settings
	LLM LLMSettings `toml:"llm"`

	// Summary defines summarization scheduling settings
	Summary SummarySettings `toml:"summary"`

	// Web defines the optional HTTP/WebSocket status server
	Web WebSettings `toml:"web"`

	// Logs defines debug log settings
	Logs LogSettings `toml:"logs"`

	// Notifications defines terminal bell settings
	Notifications NotificationSettings `toml:"notifications"`

	// Agents defines custom agent detection rules. A rule whose name
	// matches a built-in agent replaces it; others are appended.
	Agents []agent.RawDefinition `toml:"agents"`

	// Links defines custom link extraction rules, checked before built-ins
	Links []links.RawRule `toml:"links"`
}

// LLMSettings defines summarization provider configuration
type LLMSettings struct {
	// Provider selects the backend: "auto" (default), "anthropic",
	// "openai", "ollama", or "off"
	Provider string `toml:"provider"`

	// Model overrides the provider's default model
	Model string `toml:"model"`

	// APIKey is the provider API key; env vars take priority
	APIKey string `toml:"api_key"`

	// BaseURL overrides the provider endpoint (e.g. a local proxy)
	BaseURL string `toml:"base_url"`
}

// SummarySettings defines summarization scheduling configuration
type SummarySettings struct {
	// IntervalSecs is the minimum gap between summary attempts per session
	// Default: 60
	IntervalSecs int `toml:"interval_secs"`

	// MaxConcurrent bounds simultaneous in-flight LLM requests
	// Default: 3
	MaxConcurrent int `toml:"max_concurrent"`

	// RatePerMinute caps total LLM requests per minute across all sessions
	// Default: 20
	RatePerMinute int `toml:"rate_per_minute"`
}

// WebSettings defines the optional status server
type WebSettings struct {
	// Enabled starts the HTTP/WebSocket server (default: false)
	Enabled bool `toml:"enabled"`

	// Addr is the listen address
	// Default: "127.0.0.1:7337"
	Addr string `toml:"addr"`
}

// LogSettings defines debug log configuration
type LogSettings struct {
	// Level sets the minimum log level: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `toml:"level"`

	// MaxMB is the max size in MB for the debug log before rotation
	// Default: 10
	MaxMB int `toml:"max_mb"`

	// Backups is the number of rotated log files to keep
	// Default: 5
	Backups int `toml:"backups"`

	// RetentionDays is the number of days to keep rotated logs
	// Default: 10
	RetentionDays int `toml:"retention_days"`
}

// NotificationSettings defines terminal bell configuration
type NotificationSettings struct {
	// Bell rings the terminal bell when a session needs attention
	// Default: true (pointer to distinguish "not set" from "explicitly false")
	Bell *bool `toml:"bell"`
}

// GetBell returns whether the bell is enabled, defaulting to true
func (n *NotificationSettings) GetBell() bool {
	if n.Bell == nil {
		return true
	}
	return *n.Bell
}

// RefreshInterval returns the poll tick interval with the default applied
func (c *Config) RefreshInterval() time.Duration {
	if c.RefreshIntervalMS <= 0 {
		return time.Second
	}
	return time.Duration(c.RefreshIntervalMS) * time.Millisecond
}

// GetCaptureLines returns the capture depth with the default applied
func (c *Config) GetCaptureLines() int {
	if c.CaptureLines <= 0 {
		return 50
	}
	return c.CaptureLines
}

// IdleAfter returns the idle threshold with the default applied
func (c *Config) IdleAfter() time.Duration {
	if c.IdleAfterSecs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.IdleAfterSecs) * time.Second
}

// GetDebounceTicks returns the debounce depth with the default applied
func (c *Config) GetDebounceTicks() int {
	if c.DebounceTicks <= 0 {
		return 2
	}
	return c.DebounceTicks
}

// GetTmuxSession returns the spawn target session with the default applied
func (c *Config) GetTmuxSession() string {
	if c.TmuxSession == "" {
		return "agents"
	}
	return c.TmuxSession
}

// GetAgentCommand returns the spawn command with the default applied
func (c *Config) GetAgentCommand() string {
	if c.AgentCommand == "" {
		return "claude"
	}
	return c.AgentCommand
}

// GetTheme returns the theme, defaulting to "dark"
func (c *Config) GetTheme() string {
	switch c.Theme {
	case "dark", "light", "system":
		return c.Theme
	default:
		return "dark"
	}
}

// SummaryInterval returns the per-session summary gap with the default applied
func (s *SummarySettings) SummaryInterval() time.Duration {
	if s.IntervalSecs <= 0 {
		return 60 * time.Second
	}
	return time.Duration(s.IntervalSecs) * time.Second
}

// GetMaxConcurrent returns the concurrency bound with the default applied
func (s *SummarySettings) GetMaxConcurrent() int {
	if s.MaxConcurrent <= 0 {
		return 3
	}
	return s.MaxConcurrent
}

// GetRatePerMinute returns the request budget with the default applied
func (s *SummarySettings) GetRatePerMinute() int {
	if s.RatePerMinute <= 0 {
		return 20
	}
	return s.RatePerMinute
}

// GetAddr returns the web listen address with the default applied
func (w *WebSettings) GetAddr() string {
	if w.Addr == "" {
		return "127.0.0.1:7337"
	}
	return w.Addr
}

// GetLevel returns the log level with the default applied
func (l *LogSettings) GetLevel() string {
	switch l.Level {
	case "debug", "info", "warn", "error":
		return l.Level
	default:
		return "info"
	}
}

// Dir returns the agent-watch config directory, creating it if needed
func Dir() (string, error) {
	if override := os.Getenv("AGENT_WATCH_DIR"); override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".agent-watch"), nil
}

// Path returns the path to the user config file
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Load reads config.toml, applies environment overrides, and returns the
// result. A missing file yields the defaults; a parse error yields the
// defaults plus the error so callers can surface it without dying.
func Load() (*Config, error) {
	var cfg Config

	path, err := Path()
	if err != nil {
		applyEnvOverrides(&cfg)
		return &cfg, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		applyEnvOverrides(&cfg)
		return &cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		fresh := Config{}
		applyEnvOverrides(&fresh)
		return &fresh, fmt.Errorf("%s parse error: %w", FileName, err)
	}

	for i, dir := range cfg.RecentDirs {
		cfg.RecentDirs[i] = expandTilde(dir)
	}
	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// applyEnvOverrides lets AGENT_WATCH_* environment variables win over the
// file. Only the knobs useful for scripting are exposed this way.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AGENT_WATCH_REFRESH_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RefreshIntervalMS = n
		}
	}
	if v := os.Getenv("AGENT_WATCH_CAPTURE_LINES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CaptureLines = n
		}
	}
	if v := os.Getenv("AGENT_WATCH_LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("AGENT_WATCH_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("AGENT_WATCH_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("AGENT_WATCH_TMUX_SESSION"); v != "" {
		cfg.TmuxSession = v
	}
}

// Save writes the config using an atomic write: temp file, fsync, rename.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# Agent Watch Configuration\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if f, err := os.Open(tmpPath); err == nil {
		_ = f.Sync()
		f.Close()
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to finalize config save: %w", err)
	}
	return nil
}

// RememberDir records a spawn working directory at the front of RecentDirs,
// keeping at most ten entries.
func (c *Config) RememberDir(dir string) {
	dir = expandTilde(dir)
	out := []string{dir}
	for _, d := range c.RecentDirs {
		if d != dir {
			out = append(out, d)
		}
	}
	if len(out) > 10 {
		out = out[:10]
	}
	c.RecentDirs = out
}

func expandTilde(path string) string {
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}
