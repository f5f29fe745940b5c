// Command session-stop-hook is invoked by the coding assistant on its
// session-stop event. It reads one JSON object from stdin,
// appends a session_stop record to the durable queue, and always writes
// {"decision":"continue"} to stdout, regardless of internal failure.
package main

import (
	"encoding/json"
	"log/slog"
	"os"

	"github.com/HibikiTatsuno/claude-sync-daemon/internal/config"
	"github.com/HibikiTatsuno/claude-sync-daemon/internal/hooks"
	"github.com/HibikiTatsuno/claude-sync-daemon/internal/queue"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	var in hooks.SessionStopInput
	if err := json.NewDecoder(os.Stdin).Decode(&in); err != nil {
		slog.Error("session-stop-hook: failed to decode stdin", "error", err)
		writeOutput(hooks.Output{Decision: "continue"})
		return
	}

	cfgPath := os.Getenv("CLAUDE_SYNC_CONFIG")
	if cfgPath == "" {
		cfgPath = "config.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("session-stop-hook: failed to load config", "error", err)
		writeOutput(hooks.Output{Decision: "continue"})
		return
	}

	q := queue.New(cfg.QueuePath())
	out := hooks.HandleSessionStop(q, slog.Default(), in)
	writeOutput(out)
}

func writeOutput(out hooks.Output) {
	if err := json.NewEncoder(os.Stdout).Encode(out); err != nil {
		slog.Error("session-stop-hook: failed to encode output", "error", err)
	}
}
