package subprocess

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/HibikiTatsuno/claude-sync-daemon/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a posix shell")
	}
}

func TestCompleteReturnsStdout(t *testing.T) {
	skipOnWindows(t)
	tr := New("/bin/echo")
	out, err := tr.Complete(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)
}

func TestCompleteSurfacesStderrOnFailure(t *testing.T) {
	skipOnWindows(t)
	tr := New("/bin/sh", WithArgs("-c", "echo boom 1>&2; exit 1"))
	_, err := tr.Complete(context.Background(), "ignored")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestCompleteTimesOut(t *testing.T) {
	skipOnWindows(t)
	tr := New("/bin/sleep", WithTimeout(10*time.Millisecond))
	_, err := tr.Complete(context.Background(), "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestCompleteJSONExtractsObject(t *testing.T) {
	skipOnWindows(t)
	tr := New("/bin/echo")
	var dst struct {
		Matches []llm.Match `json:"matches"`
	}
	err := tr.CompleteJSON(context.Background(), `noise before {"matches":[{"issue_id":"ENG-1","relevance_score":0.9}]} trailing`, &dst)
	require.NoError(t, err)
	require.Len(t, dst.Matches, 1)
	assert.Equal(t, "ENG-1", dst.Matches[0].IssueID)
}

func TestMatchIssuesParsesResponse(t *testing.T) {
	skipOnWindows(t)
	tr := New("/bin/echo")
	resp, err := tr.MatchIssues(context.Background(), `{"matches":[{"issue_id":"ENG-2","relevance_score":0.5,"reasoning":"r","matched_aspects":["a"]}]}`)
	require.NoError(t, err)
	require.Len(t, resp.Matches, 1)
	assert.Equal(t, 0.5, resp.Matches[0].RelevanceScore)
}
