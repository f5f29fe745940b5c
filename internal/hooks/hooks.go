// Package hooks implements the Event Hooks: short-lived functions that
// convert a boundary event into at most one queue record (session-stop
// always appends one; post-tool-use appends one only for a detected PR
// creation) and always acknowledge the caller, even on internal failure.
package hooks

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/HibikiTatsuno/claude-sync-daemon/internal/queue"
)

// shellToolName is the tool whose invocations are inspected for a
// `gh pr create` command.
const shellToolName = "Bash"

var prURLPattern = regexp.MustCompile(`https://github\.com/[^/\s]+/[^/\s]+/pull/\d+`)

// Appender is the one queue capability hooks need.
type Appender interface {
	Append(rec queue.Record) (queue.Record, error)
}

// Output is the hook stream protocol's response shape.
type Output struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason,omitempty"`
}

func continueOutput() Output { return Output{Decision: "continue"} }

// SessionStopInput is the session-stop hook's input.
type SessionStopInput struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
	Cwd            string `json:"cwd"`
	HookEventName  string `json:"hook_event_name"`
}

// HandleSessionStop appends one session_stop record. It never returns an
// error to the caller: failures are logged and swallowed, and `continue`
// is always emitted.
func HandleSessionStop(appender Appender, log *slog.Logger, in SessionStopInput) Output {
	if log == nil {
		log = slog.Default()
	}
	rec := queue.NewSessionStopRecord(in.SessionID, in.TranscriptPath, in.Cwd)
	if _, err := appender.Append(rec); err != nil {
		log.Error("session-stop hook: failed to append queue record", "error", err, "session_id", in.SessionID)
	}
	return continueOutput()
}

// PostToolUseInput is the post-tool-use hook's input.
type PostToolUseInput struct {
	SessionID    string                 `json:"session_id"`
	Cwd          string                 `json:"cwd"`
	ToolName     string                 `json:"tool_name"`
	ToolInput    map[string]interface{} `json:"tool_input"`
	ToolResponse string                 `json:"tool_response"`
}

// HandlePostToolUse appends one pr_created record when the tool call was a
// `gh pr create` invocation whose response contains a GitHub pull-request
// URL; otherwise it is a no-op. Always emits `continue`.
func HandlePostToolUse(appender Appender, log *slog.Logger, in PostToolUseInput) Output {
	if log == nil {
		log = slog.Default()
	}

	prURL, ok := extractPRCreation(in)
	if !ok {
		return continueOutput()
	}

	rec := queue.NewPRCreatedRecord(in.SessionID, prURL, in.Cwd)
	if _, err := appender.Append(rec); err != nil {
		log.Error("post-tool-use hook: failed to append queue record", "error", err, "session_id", in.SessionID)
	}
	return continueOutput()
}

func extractPRCreation(in PostToolUseInput) (string, bool) {
	if in.ToolName != shellToolName {
		return "", false
	}
	command, _ := in.ToolInput["command"].(string)
	if !strings.Contains(command, "gh pr create") {
		return "", false
	}
	url := prURLPattern.FindString(in.ToolResponse)
	if url == "" {
		return "", false
	}
	return url, true
}
