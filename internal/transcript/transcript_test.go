package transcript

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTranscript(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.jsonl")
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseFileFiltersUnknownTypesAndNoise(t *testing.T) {
	path := writeTranscript(t,
		`{"type":"user","session_id":"s1","timestamp":"2025-01-01T00:00:00Z","cwd":"/home/u/proj","message":{"role":"user","content":"fix the login bug"}}`,
		`{"type":"file-history-snapshot","session_id":"s1"}`,
		`{"type":"user","session_id":"s1","timestamp":"2025-01-01T00:01:00Z","cwd":"/home/u/proj","message":{"role":"user","content":"<system-reminder>ignore me</system-reminder>"}}`,
		`not json at all`,
		``,
	)

	entries, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "fix the login bug", entries[0].Text())
}

func TestFilterNoiseIdempotent(t *testing.T) {
	entries := []Entry{
		{Type: EntryUser, Message: Message{Role: "user", Content: "hello world"}},
	}
	once := FilterNoise(entries)
	twice := FilterNoise(once)
	assert.Equal(t, once, twice)
}

func TestFilterNoiseDropsSubagentToolPaths(t *testing.T) {
	e := Entry{
		Type: EntryAssistant,
		Message: Message{
			Role: "assistant",
			Content: []interface{}{
				map[string]interface{}{
					"type": "tool_use",
					"name": "Read",
					"input": map[string]interface{}{
						"file_path": "/tmp/subagents/worker/out.txt",
					},
				},
			},
		},
	}
	out := FilterNoise([]Entry{e})
	assert.Empty(t, out)
}

func TestExtractBuildsKeywordsAndProjectName(t *testing.T) {
	entries := []Entry{
		{
			Type: EntryUser, SessionID: "s1", Cwd: "/home/u/mobile-app", GitBranch: "main",
			Message: Message{Role: "user", Content: "fix login crash on startup"},
		},
		{
			Type: EntryAssistant, SessionID: "s1",
			Message: Message{Role: "assistant", Content: []interface{}{
				map[string]interface{}{
					"type": "tool_use", "name": "Edit",
					"input": map[string]interface{}{"file_path": "/home/u/mobile-app/auth/login.go"},
				},
			}},
		},
		{
			Type: EntryUser, SessionID: "s1", Cwd: "/home/u/mobile-app",
			Message: Message{Role: "user", Content: "also check the session timeout"},
		},
	}

	c := Extract("s1", entries)
	assert.Equal(t, "fix login crash on startup", c.PrimaryRequest)
	assert.Equal(t, []string{"also check the session timeout"}, c.AdditionalContext)
	assert.Equal(t, "mobile-app", c.ProjectName)
	assert.Contains(t, c.Keywords, "login")
	assert.Contains(t, c.Keywords, "crash")
	assert.Contains(t, c.Keywords, "mobile-app")
	assert.Contains(t, c.Keywords, "login") // from file base name too
	assert.Contains(t, c.ToolPatterns, "edit")
	assert.Contains(t, c.FilePaths, "/home/u/mobile-app/auth/login.go")
}
