package processor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/HibikiTatsuno/claude-sync-daemon/internal/matcher"
	"github.com/HibikiTatsuno/claude-sync-daemon/internal/queue"
	"github.com/HibikiTatsuno/claude-sync-daemon/internal/session"
	"github.com/HibikiTatsuno/claude-sync-daemon/internal/tracker"
	trackermem "github.com/HibikiTatsuno/claude-sync-daemon/internal/tracker/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProcessor(t *testing.T) (*Processor, *queue.Queue, *trackermem.Tracker) {
	t.Helper()
	tr := trackermem.New()
	tr.Teams = []tracker.Team{{ID: "team-1", Key: "ENG"}}
	tr.Viewer = tracker.User{ID: "u-1", Name: "Bot"}
	tr.States[tr.Teams[0].ID] = []tracker.WorkflowState{
		{ID: "st-progress", Name: "In Progress", Type: tracker.StateStarted},
	}

	q := queue.New(filepath.Join(t.TempDir(), "queue.jsonl"))
	m := matcher.New(tr, nil, matcher.Config{}, nil)
	caches := session.Caches{Team: &tr.Teams[0], Assignee: &tr.Viewer, States: tr.States[tr.Teams[0].ID]}
	sp := session.New(tr, m, nil, caches, nil, nil)

	w, err := queue.NewWatcher(q.Path)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	return New(q, w, sp, 3, nil), q, tr
}

func TestDrainProcessesPendingSessionStopRecord(t *testing.T) {
	p, q, tr := newTestProcessor(t)

	transcriptPath := filepath.Join(t.TempDir(), "s1.jsonl")
	require.NoError(t, os.WriteFile(transcriptPath, []byte(
		`{"type":"user","session_id":"s1","timestamp":"2025-01-01T00:00:00Z","cwd":"/p","git_branch":"feature/ENG-1-x","message":{"role":"user","content":"anything"}}`+"\n",
	), 0o644))
	tr.Issues = append(tr.Issues, tracker.Issue{ID: "id-ENG-1", Identifier: "ENG-1"})

	_, err := q.Append(queue.NewSessionStopRecord("s1", transcriptPath, "/p"))
	require.NoError(t, err)

	p.drain(context.Background())

	all, err := q.ReadAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, queue.StatusProcessed, all[0].Status)
	assert.Len(t, tr.Comments, 1)
}

func TestDrainMarksUnknownKindFailed(t *testing.T) {
	p, q, _ := newTestProcessor(t)

	_, err := q.Append(queue.Record{Kind: "unknown_kind"})
	require.NoError(t, err)

	p.drain(context.Background())

	all, err := q.ReadAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, queue.StatusFailed, all[0].Status)
	// One drain attempts the record twice: once from the pending pass, and
	// again from the retryable pass that follows it.
	assert.Equal(t, 2, all[0].RetryCount)
	assert.NotEmpty(t, all[0].Error)
}

func TestDrainRetriesFailedRecordsUpToMaxRetries(t *testing.T) {
	p, q, _ := newTestProcessor(t)

	_, err := q.Append(queue.Record{Kind: "unknown_kind"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		p.drain(context.Background())
	}

	all, err := q.ReadAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, queue.StatusFailed, all[0].Status)
	assert.Equal(t, 3, all[0].RetryCount)

	// A further drain must not retry again: retry_count has reached max.
	p.drain(context.Background())
	all, err = q.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, 3, all[0].RetryCount)
}

func TestDrainIsNonReentrant(t *testing.T) {
	p, _, _ := newTestProcessor(t)
	p.draining.Store(true)
	defer p.draining.Store(false)

	// drain should return immediately without touching the queue file
	// since the processor is already marked as draining.
	done := make(chan struct{})
	go func() {
		p.drain(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("drain did not return promptly when already in flight")
	}
}
