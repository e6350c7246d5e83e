package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/tchow-twistedxcom/agent-watch/internal/agent"
	"github.com/tchow-twistedxcom/agent-watch/internal/config"
	"github.com/tchow-twistedxcom/agent-watch/internal/logging"
	"github.com/tchow-twistedxcom/agent-watch/internal/proc"
	"github.com/tchow-twistedxcom/agent-watch/internal/session"
	"github.com/tchow-twistedxcom/agent-watch/internal/summary"
	"github.com/tchow-twistedxcom/agent-watch/internal/tmux"
	"github.com/tchow-twistedxcom/agent-watch/internal/ui"
	"github.com/tchow-twistedxcom/agent-watch/internal/web"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

func main() {
	var (
		debugMode = flag.Bool("debug", false, "enable debug logging to the config dir")
		webAddr   = flag.String("web", "", "serve session state over HTTP/WS on this address")
		jsonOut   = flag.Bool("json", false, "print one snapshot as JSON and exit")
		showVer   = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVer {
		fmt.Printf("agent-watch v%s\n", Version)
		return
	}

	cfg, cfgErr := config.Load()

	initLogging(cfg, *debugMode)
	defer logging.Shutdown()

	if cfgErr != nil {
		logging.ForComponent(logging.CompConfig).Warn("config load failed, using defaults",
			slog.String("error", cfgErr.Error()))
	}

	tmuxClient := tmux.NewClient()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := tmuxClient.IsAvailable(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "agent-watch needs tmux: %v\n", err)
		os.Exit(1)
	}

	registry := agent.NewRegistry(cfg.Agents)
	walker := proc.NewWalker(nil)
	scheduler := buildScheduler(cfg)

	orch := session.NewOrchestrator(session.Deps{
		Tmux:      tmuxClient,
		Walker:    walker,
		Registry:  registry,
		Scheduler: scheduler,
		Config:    cfg,
	})
	spawner := session.NewSpawner(tmuxClient, cfg)

	// Reload config.toml edits without a restart.
	if watcher, err := config.NewWatcher(func(fresh *config.Config) {
		orch.SetConfig(fresh)
		logging.ForComponent(logging.CompConfig).Info("config reloaded")
	}); err == nil {
		if err := watcher.Start(); err == nil {
			defer watcher.Stop()
		}
	}

	go orch.Run(ctx)

	if *jsonOut {
		runOnce(ctx, orch)
		return
	}

	var webServer *web.Server
	if *webAddr != "" || cfg.Web.Enabled {
		addr := *webAddr
		if addr == "" {
			addr = cfg.Web.GetAddr()
		}
		webServer = web.NewServer(web.Config{ListenAddr: addr}, orch)
		go func() {
			if err := webServer.Start(); err != nil {
				logging.ForComponent(logging.CompWeb).Error("web server failed",
					slog.String("error", err.Error()))
			}
		}()
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		// Headless: keep monitoring (and serving, if enabled) until signalled.
		waitForSignal()
		shutdownWeb(webServer)
		return
	}

	initColorProfile()
	ui.InitTheme(ui.ResolveTheme(cfg.GetTheme()))

	home := ui.NewHome(orch, spawner, cfg)
	p := tea.NewProgram(home, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cancel()
	shutdownWeb(webServer)

	// Jump-to-session: exec tmux attach after the UI is gone.
	if argv := home.AttachArgv(); len(argv) > 0 {
		path, err := exec.LookPath(argv[0])
		if err == nil {
			_ = syscall.Exec(path, argv, os.Environ())
		}
	}
}

// runOnce waits for the first couple of poll ticks, then dumps the session
// list as JSON for scripting.
func runOnce(ctx context.Context, orch *session.Orchestrator) {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if len(orch.Snapshots()) > 0 {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(200 * time.Millisecond):
		}
	}
	out := struct {
		Sessions any `json:"sessions"`
		Badge    int `json:"badge"`
	}{Sessions: orch.Snapshots(), Badge: orch.Badge()}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}

func buildScheduler(cfg *config.Config) *summary.Scheduler {
	if strings.EqualFold(cfg.LLM.Provider, "off") {
		return nil
	}
	client := summary.NewClient(summary.ClientConfig{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
	})
	return summary.NewScheduler(client, logging.ForComponent(logging.CompSummary),
		summary.WithInterval(cfg.Summary.SummaryInterval()),
		summary.WithMaxConcurrent(cfg.Summary.GetMaxConcurrent()),
		summary.WithRatePerMinute(cfg.Summary.GetRatePerMinute()))
}

func initLogging(cfg *config.Config, debug bool) {
	logCfg := logging.Config{
		Level:      cfg.Logs.GetLevel(),
		MaxSizeMB:  cfg.Logs.MaxMB,
		MaxBackups: cfg.Logs.Backups,
		MaxAgeDays: cfg.Logs.RetentionDays,
		Compress:   true,
		Debug:      debug,
	}
	if debug {
		if dir, err := config.Dir(); err == nil {
			logCfg.LogDir = filepath.Join(dir, "logs")
		}
		logCfg.Level = "debug"
	}
	logging.Init(logCfg)

	// SIGUSR1 dumps the ring buffer for post-mortem debugging.
	usr1 := make(chan os.Signal, 1)
	signal.Notify(usr1, syscall.SIGUSR1)
	go func() {
		for range usr1 {
			dir, err := config.Dir()
			if err != nil {
				continue
			}
			path := filepath.Join(dir, fmt.Sprintf("crash-dump-%d.jsonl", time.Now().Unix()))
			if err := logging.DumpRingBuffer(path); err != nil {
				logging.ForComponent(logging.CompUI).Error("crash_dump_failed",
					slog.String("error", err.Error()))
			}
		}
	}()
}

func waitForSignal() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
}

func shutdownWeb(s *web.Server) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = s.Shutdown(ctx)
}

// initColorProfile configures lipgloss based on terminal capabilities,
// preferring TrueColor with an ANSI256 fallback.
func initColorProfile() {
	if colorEnv := os.Getenv("AGENT_WATCH_COLOR"); colorEnv != "" {
		switch strings.ToLower(colorEnv) {
		case "truecolor", "true", "24bit":
			lipgloss.SetColorProfile(termenv.TrueColor)
			return
		case "256", "ansi256":
			lipgloss.SetColorProfile(termenv.ANSI256)
			return
		case "16", "ansi", "basic":
			lipgloss.SetColorProfile(termenv.ANSI)
			return
		case "none", "off", "ascii":
			lipgloss.SetColorProfile(termenv.Ascii)
			return
		}
	}

	if ct := os.Getenv("COLORTERM"); ct == "truecolor" || ct == "24bit" {
		lipgloss.SetColorProfile(termenv.TrueColor)
		return
	}

	termName := os.Getenv("TERM")
	for _, t := range []string{"xterm-256color", "screen-256color", "tmux-256color", "alacritty", "kitty", "wezterm"} {
		if strings.Contains(termName, t) {
			lipgloss.SetColorProfile(termenv.TrueColor)
			return
		}
	}

	lipgloss.SetColorProfile(termenv.ANSI256)
}
