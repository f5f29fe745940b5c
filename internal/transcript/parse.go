package transcript

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// noiseMarkers are substrings that, if found in an entry's text, mark the
// entry as host-injected noise rather than genuine conversation content.
var noiseMarkers = []string{
	"<system-reminder>",
	"<local-command>",
	"<user-prompt-submit-hook>",
}

// ParseFile reads path as newline-delimited JSON and returns the user and
// assistant entries, with noise filtered out. Blank and invalid lines are
// skipped, matching the queue's malformed-input tolerance.
func ParseFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("transcript: open %s: %w", path, err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(trimSpace(line)) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			slog.Warn("transcript: skipping invalid line", "path", path, "error", err)
			continue
		}
		if e.Type != EntryUser && e.Type != EntryAssistant {
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("transcript: scan %s: %w", path, err)
	}

	return FilterNoise(entries), nil
}

// FilterNoise drops entries whose text matches a noise marker, or whose
// referenced file path (for tool-use entries) carries a "subagents/"
// segment. Idempotent: filtering an already-filtered list is a no-op.
func FilterNoise(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if isNoise(e) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func isNoise(e Entry) bool {
	text := e.Text()
	for _, marker := range noiseMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	for _, b := range e.Blocks() {
		if b.Type == BlockToolUse {
			for _, key := range []string{"file_path", "path", "filePath", "file"} {
				if v, ok := b.Input[key].(string); ok && strings.Contains(v, "subagents/") {
					return true
				}
			}
		}
	}
	return false
}

func trimSpace(b []byte) []byte {
	return []byte(strings.TrimSpace(string(b)))
}
