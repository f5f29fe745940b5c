package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/HibikiTatsuno/claude-sync-daemon/internal/matcher"
	"github.com/HibikiTatsuno/claude-sync-daemon/internal/tracker"
	trackermem "github.com/HibikiTatsuno/claude-sync-daemon/internal/tracker/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTranscript(t *testing.T, lines ...string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "session.jsonl")
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func newCaches(tr *trackermem.Tracker) Caches {
	return Caches{
		Team:     &tr.Teams[0],
		Assignee: &tr.Viewer,
		Labels:   tr.Labels[tr.Teams[0].ID],
		States:   tr.States[tr.Teams[0].ID],
	}
}

func setupTrackerWithIssue(t *testing.T, identifier string) *trackermem.Tracker {
	t.Helper()
	tr := trackermem.New()
	tr.Teams = []tracker.Team{{ID: "team-1", Key: "ENG"}}
	tr.Viewer = tracker.User{ID: "u-1", Name: "Bot"}
	tr.States[tr.Teams[0].ID] = []tracker.WorkflowState{
		{ID: "st-progress", Name: "In Progress", Type: tracker.StateStarted},
		{ID: "st-review", Name: "In Review", Type: tracker.StateStarted},
	}
	tr.Labels[tr.Teams[0].ID] = []tracker.Label{
		{ID: "l-mobile", Name: "Mobile"},
		{ID: "l-bug", Name: "Bug"},
	}
	if identifier != "" {
		tr.Issues = append(tr.Issues, tracker.Issue{
			ID: "id-" + identifier, Identifier: identifier, Title: "Existing issue",
		})
	}
	return tr
}

func TestHandleSessionStopBranchHitPostsCommentAndSetsState(t *testing.T) {
	tr := setupTrackerWithIssue(t, "ENG-123")
	m := matcher.New(tr, nil, matcher.Config{}, nil)
	p := New(tr, m, nil, newCaches(tr), nil, nil)

	path := writeTranscript(t,
		`{"type":"user","session_id":"s1","timestamp":"2025-01-01T00:00:00Z","cwd":"/home/u/proj","git_branch":"feature/ENG-123-add-login","message":{"role":"user","content":"anything"}}`,
	)

	require.NoError(t, p.HandleSessionStop(context.Background(), "s1", path))

	require.Len(t, tr.Comments, 1)
	assert.Equal(t, "id-ENG-123", tr.Comments[0].IssueID)
	require.Len(t, tr.AssigneeCalls, 1)
	assert.Equal(t, "u-1", tr.AssigneeCalls[0].UserID)
	require.Len(t, tr.StateHistory, 1)
	assert.Equal(t, "st-progress", tr.StateHistory[0].StateID)
}

func TestHandleSessionStopCreatesIssueWhenNoMatch(t *testing.T) {
	tr := setupTrackerWithIssue(t, "")
	m := matcher.New(tr, nil, matcher.Config{}, nil) // default threshold 0.7, no candidates ever match
	p := New(tr, m, nil, newCaches(tr), nil, nil)

	path := writeTranscript(t,
		`{"type":"user","session_id":"s1","timestamp":"2025-01-01T00:00:00Z","cwd":"/home/u/mobile-app","message":{"role":"user","content":"fix login crash on startup please"}}`,
		`{"type":"user","session_id":"s1","timestamp":"2025-01-01T00:01:00Z","cwd":"/home/u/mobile-app","message":{"role":"user","content":"also double check the timeout handling"}}`,
	)

	require.NoError(t, p.HandleSessionStop(context.Background(), "s1", path))

	require.Len(t, tr.Issues, 1)
	assert.Equal(t, "[mobile-app] fix login crash on startup please", tr.Issues[0].Title)
	require.Len(t, tr.LabelCalls, 1)
	assert.ElementsMatch(t, []string{"l-mobile", "l-bug"}, tr.LabelCalls[0].LabelIDs)
	require.Len(t, tr.Comments, 1)
}

func TestHandleSessionStopSkipsWhenTranscriptEmptyAfterFiltering(t *testing.T) {
	tr := setupTrackerWithIssue(t, "")
	m := matcher.New(tr, nil, matcher.Config{}, nil)
	p := New(tr, m, nil, newCaches(tr), nil, nil)

	path := writeTranscript(t,
		`{"type":"user","session_id":"s1","timestamp":"2025-01-01T00:00:00Z","cwd":"/p","message":{"role":"user","content":"<system-reminder>noise</system-reminder>"}}`,
	)

	require.NoError(t, p.HandleSessionStop(context.Background(), "s1", path))
	assert.Empty(t, tr.Comments)
	assert.Empty(t, tr.Issues)
}

func TestHandlePRCreatedAttachesLinkAndSetsReviewState(t *testing.T) {
	tr := setupTrackerWithIssue(t, "ENG-123")
	m := matcher.New(tr, nil, matcher.Config{}, nil)
	p := New(tr, m, nil, newCaches(tr), nil, nil)

	err := p.HandlePRCreated(context.Background(), "s1", "feature/ENG-123-add-login", "https://github.com/acme/w/pull/7")
	require.NoError(t, err)

	require.Len(t, tr.Links, 1)
	assert.Equal(t, "id-ENG-123", tr.Links[0].IssueID)
	assert.Equal(t, "Pull Request", tr.Links[0].Title)
	require.Len(t, tr.StateHistory, 1)
	assert.Equal(t, "st-review", tr.StateHistory[0].StateID)
}

func TestRenderCommentLayout(t *testing.T) {
	comment := renderComment("Did a thing.", []string{"first message", "second message"})
	assert.Contains(t, comment, "## Claude Code Session Summary")
	assert.Contains(t, comment, "Did a thing.")
	assert.Contains(t, comment, "### User Requests")
	assert.Contains(t, comment, "- first message")
}
