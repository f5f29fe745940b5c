package hooks

import (
	"fmt"
	"testing"

	"github.com/HibikiTatsuno/claude-sync-daemon/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAppender struct {
	records []queue.Record
	err     error
}

func (f *fakeAppender) Append(rec queue.Record) (queue.Record, error) {
	if f.err != nil {
		return queue.Record{}, f.err
	}
	f.records = append(f.records, rec)
	return rec, nil
}

func TestHandleSessionStopAppendsRecordAndContinues(t *testing.T) {
	app := &fakeAppender{}
	out := HandleSessionStop(app, nil, SessionStopInput{
		SessionID: "s1", TranscriptPath: "/tmp/s1.jsonl", Cwd: "/tmp",
	})

	assert.Equal(t, "continue", out.Decision)
	require.Len(t, app.records, 1)
	assert.Equal(t, queue.KindSessionStop, app.records[0].Kind)
	assert.Equal(t, "s1", app.records[0].SessionID)
}

func TestHandleSessionStopSwallowsAppendError(t *testing.T) {
	app := &fakeAppender{err: fmt.Errorf("disk full")}
	out := HandleSessionStop(app, nil, SessionStopInput{SessionID: "s1"})
	assert.Equal(t, "continue", out.Decision)
}

func TestHandlePostToolUseAppendsPRCreatedRecord(t *testing.T) {
	app := &fakeAppender{}
	out := HandlePostToolUse(app, nil, PostToolUseInput{
		SessionID:    "s1",
		ToolName:     "Bash",
		ToolInput:    map[string]interface{}{"command": "gh pr create --title foo"},
		ToolResponse: "opened: https://github.com/acme/w/pull/7 done",
	})

	assert.Equal(t, "continue", out.Decision)
	require.Len(t, app.records, 1)
	assert.Equal(t, queue.KindPRCreated, app.records[0].Kind)
	assert.Equal(t, "https://github.com/acme/w/pull/7", app.records[0].PRURL)
}

func TestHandlePostToolUseNoOpForUnrelatedTool(t *testing.T) {
	app := &fakeAppender{}
	out := HandlePostToolUse(app, nil, PostToolUseInput{
		ToolName:     "Read",
		ToolResponse: "https://github.com/acme/w/pull/7",
	})
	assert.Equal(t, "continue", out.Decision)
	assert.Empty(t, app.records)
}

func TestHandlePostToolUseNoOpWithoutPRURL(t *testing.T) {
	app := &fakeAppender{}
	out := HandlePostToolUse(app, nil, PostToolUseInput{
		ToolName:  "Bash",
		ToolInput: map[string]interface{}{"command": "gh pr create"},
	})
	assert.Equal(t, "continue", out.Decision)
	assert.Empty(t, app.records)
}

func TestHandlePostToolUseNoOpWithoutGhPrCreateCommand(t *testing.T) {
	app := &fakeAppender{}
	out := HandlePostToolUse(app, nil, PostToolUseInput{
		ToolName:     "Bash",
		ToolInput:    map[string]interface{}{"command": "ls -la"},
		ToolResponse: "https://github.com/acme/w/pull/7",
	})
	assert.Equal(t, "continue", out.Decision)
	assert.Empty(t, app.records)
}
