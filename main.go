// relay TUI - a terminal chat client for Bot Framework style channels.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/jeranaias/relay-tui/internal/activity"
	"github.com/jeranaias/relay-tui/internal/citation"
	"github.com/jeranaias/relay-tui/internal/config"
	"github.com/jeranaias/relay-tui/internal/dispatch"
	"github.com/jeranaias/relay-tui/internal/export"
	"github.com/jeranaias/relay-tui/internal/pipeline"
	"github.com/jeranaias/relay-tui/internal/render"
	"github.com/jeranaias/relay-tui/internal/storage"
	"github.com/jeranaias/relay-tui/internal/stream"
	"github.com/jeranaias/relay-tui/internal/transport"
	"github.com/jeranaias/relay-tui/internal/ui/chat"
	"github.com/jeranaias/relay-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (TOML)")
	showVersion := flag.Bool("version", false, "print version and exit")
	saveOnExit := flag.Bool("save", false, "save the transcript on exit")
	exportFormat := flag.String("export", "", "export transcript on exit (md or json)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("relay %s (%s, built %s)\n", Version, GitCommit, BuildDate)
		return
	}

	if err := run(*configPath, *saveOnExit, *exportFormat); err != nil {
		fmt.Fprintf(os.Stderr, "relay: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, saveOnExit bool, exportFormat string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	config.SetGlobal(cfg)

	log, closeLog, err := openLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	log.Info().Str("version", Version).Msg("starting relay")

	// Ingestion: one queue, one drain goroutine, all render state behind it.
	queue := dispatch.New(cfg.Pipeline.DrainDelay(), log)
	defer queue.Close()

	md := render.NewMarkdown(cfg.UI.WordWrap, log)
	extractor := citation.NewExtractor(log)

	primaryTarget := render.NewTarget("primary", cfg.Pipeline.TieBreakWindow(), log)
	primary := stream.NewController(primaryTarget, md, extractor, cfg.Streaming, log)

	var companionTarget *render.Target
	var companion *stream.Controller
	if cfg.UI.ShowCompanion {
		companionTarget = render.NewTarget("companion", cfg.Pipeline.TieBreakWindow(), log)
		companion = stream.NewController(companionTarget, md, extractor, cfg.Streaming, log)
	}

	pipe := pipeline.New(queue, primary, companion, cfg, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pipe.Start(ctx)
	defer pipe.Stop()

	// Transport: the scripted demo channel until a live connector lands.
	adapter := transport.NewAdapter(queue, log)
	script := transport.NewScripted(demoScript())
	adapter.Connect(script)

	// UI
	theme := styles.NewTheme()
	model := chat.New(theme, queue, primaryTarget, companionTarget)
	program := tea.NewProgram(model, tea.WithAltScreen())

	bridge := chat.NewBridge(queue, program.Send)
	defer bridge.Detach()

	// Mid-stream repaints: completed nodes arrive via the bridge, streaming
	// progress goes straight to the program.
	pipe.OnProgress(func(n *render.Node) {
		program.Send(chat.RefreshMsg{MessageID: n.MessageID})
	})

	go script.Run()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("ui: %w", err)
	}

	if saveOnExit || exportFormat != "" {
		if err := saveTranscript(primaryTarget, exportFormat, log); err != nil {
			log.Warn().Err(err).Msg("transcript save failed")
		}
	}

	log.Info().Msg("relay exiting")
	return nil
}

// loadConfig reads the TOML config, falling back to defaults when no file is
// given or the default path does not exist.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return config.DefaultConfig(), nil
	}
	defaultPath := filepath.Join(home, ".relay", "config.toml")
	if _, err := os.Stat(defaultPath); err != nil {
		return config.DefaultConfig(), nil
	}
	return config.LoadFrom(defaultPath)
}

// openLogger writes structured logs to ~/.relay/relay.log. Logging to the
// terminal would fight the TUI for the screen.
func openLogger() (zerolog.Logger, func(), error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return zerolog.Nop(), func() {}, nil
	}
	dir := filepath.Join(home, ".relay")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return zerolog.Nop(), nil, err
	}

	f, err := os.OpenFile(filepath.Join(dir, "relay.log"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return zerolog.Nop(), nil, err
	}

	level := zerolog.InfoLevel
	if os.Getenv("RELAY_DEBUG") != "" {
		level = zerolog.DebugLevel
	}

	log := zerolog.New(f).Level(level).With().Timestamp().Logger()
	return log, func() { _ = f.Close() }, nil
}

// saveTranscript persists the primary surface under ~/.relay/transcripts/
// and, when a format is given, exports a shareable copy to the working
// directory.
func saveTranscript(tgt *render.Target, exportFormat string, log zerolog.Logger) error {
	store, err := storage.NewStore()
	if err != nil {
		return err
	}
	id, err := store.SaveTarget(tgt, "")
	if err != nil {
		return err
	}
	log.Info().Str("transcript", id).Msg("transcript saved")

	if exportFormat == "" {
		return nil
	}
	tr, err := store.Load(id)
	if err != nil {
		return err
	}

	var path string
	switch exportFormat {
	case "md", "markdown":
		path, err = export.ExportMarkdown(tr, nil)
	case "json":
		path, err = export.ExportJSON(tr, nil)
	default:
		return fmt.Errorf("unknown export format %q", exportFormat)
	}
	if err != nil {
		return err
	}
	log.Info().Str("path", path).Msg("transcript exported")
	return nil
}

// demoScript is the canned conversation the scripted transport replays. It
// exercises connection status, chronological insertion, citations, and the
// streaming lifecycle.
func demoScript() []transport.Step {
	online := transport.StatusOnline

	greeting := activity.New("assistant", "Hello! Ask me anything about the handbook.")

	cited := activity.New("assistant",
		"Remote work is covered in the employee handbook [1].")
	cited.Entities = []json.RawMessage{json.RawMessage(`{
		"type": "Message",
		"citation": [{
			"appearance": {
				"name": "Employee Handbook",
				"abstract": "Source: handbook.pdf, page 12",
				"url": "https://docs.example.com/handbook"
			}
		}]
	}`)}

	streamID := "demo-stream-1"
	part1 := activity.Activity{
		ID: activity.GenerateID(), From: "assistant", Type: activity.TypeMessage,
		Text: "Let me look", StreamID: streamID, RealtimeIncrement: true,
	}
	part2 := activity.Activity{
		ID: activity.GenerateID(), From: "assistant", Type: activity.TypeMessage,
		Text: " that up for you", StreamID: streamID, RealtimeIncrement: true,
	}
	final := activity.Activity{
		ID: activity.GenerateID(), From: "assistant", Type: activity.TypeMessage,
		Text:        "Let me look that up for you. The policy allows three remote days per week.",
		StreamID:    streamID,
		StreamFinal: true,
		Timestamp:   time.Now().UTC().Format(time.RFC3339Nano),
	}

	companionNote := activity.New("assistant", "Analysis: the cited policy was last revised in March.")
	companionNote.Companion = true

	return []transport.Step{
		{Delay: 200 * time.Millisecond, Status: &online},
		{Delay: 300 * time.Millisecond, Activity: &greeting},
		{Delay: 1500 * time.Millisecond, Activity: &cited},
		{Delay: 1200 * time.Millisecond, Activity: &part1},
		{Delay: 250 * time.Millisecond, Activity: &part2},
		{Delay: 400 * time.Millisecond, Activity: &final},
		{Delay: 800 * time.Millisecond, Activity: &companionNote},
	}
}
