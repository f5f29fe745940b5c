package matcher

import (
	"context"
	"testing"

	llmmem "github.com/HibikiTatsuno/claude-sync-daemon/internal/llm/memory"
	"github.com/HibikiTatsuno/claude-sync-daemon/internal/tracker"
	trackermem "github.com/HibikiTatsuno/claude-sync-daemon/internal/tracker/memory"
	"github.com/HibikiTatsuno/claude-sync-daemon/internal/transcript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveBranchHitShortCircuits(t *testing.T) {
	tr := trackermem.New()
	m := New(tr, nil, Config{}, nil)

	result, err := m.Resolve(context.Background(), transcript.Content{}, "feature/ENG-123-add-login", 0)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "ENG-123", result.Issue.Identifier)
	assert.Equal(t, MatchExact, result.MatchType)
	assert.Equal(t, 1.0, result.Confidence)
}

func TestResolveEarlyRejectsShortPrimaryRequest(t *testing.T) {
	tr := trackermem.New()
	m := New(tr, nil, Config{}, nil)

	content := transcript.Content{PrimaryRequest: "too short", Keywords: map[string]struct{}{}}
	result, err := m.Resolve(context.Background(), content, "main", 5)
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestResolveEarlyRejectsTooFewEntries(t *testing.T) {
	tr := trackermem.New()
	m := New(tr, nil, Config{}, nil)

	content := transcript.Content{PrimaryRequest: "fix the login page redirect bug", Keywords: map[string]struct{}{}}
	result, err := m.Resolve(context.Background(), content, "main", 1)
	require.NoError(t, err)
	assert.Nil(t, result)
}

func newLoginContent() transcript.Content {
	return transcript.Content{
		SessionID:      "sess-1",
		PrimaryRequest: "fix the login page redirect bug on mobile",
		ProjectName:    "web",
		Keywords: map[string]struct{}{
			"login": {}, "redirect": {}, "bug": {}, "mobile": {}, "web": {},
		},
	}
}

func TestResolveKeywordMatchAcceptedBelowLowThreshold(t *testing.T) {
	tr := trackermem.New()
	tr.Issues = []tracker.Issue{{
		ID:         "id-42",
		Identifier: "ENG-42",
		Title:      "Login redirect bug",
		State:      tracker.WorkflowState{Name: "In Progress", Type: tracker.StateStarted},
	}}

	m := New(tr, nil, Config{ConfidenceThreshold: 0.5}, nil)
	result, err := m.Resolve(context.Background(), newLoginContent(), "main", 3)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "ENG-42", result.Issue.Identifier)
	assert.Equal(t, MatchKeyword, result.MatchType)
	assert.GreaterOrEqual(t, result.Confidence, 0.6)
}

func TestResolveKeywordMatchRejectedAtDefaultThreshold(t *testing.T) {
	tr := trackermem.New()
	tr.Issues = []tracker.Issue{{
		ID:         "id-42",
		Identifier: "ENG-42",
		Title:      "Login redirect bug",
		State:      tracker.WorkflowState{Name: "In Progress", Type: tracker.StateStarted},
	}}

	m := New(tr, nil, Config{}, nil) // default threshold 0.7
	result, err := m.Resolve(context.Background(), newLoginContent(), "main", 3)
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestResolveSemanticTiebreak(t *testing.T) {
	tr := trackermem.New()
	tr.Issues = []tracker.Issue{
		{ID: "a", Identifier: "ENG-A", Title: "candidate a topic keyword overlap", State: tracker.WorkflowState{Name: "Todo"}},
		{ID: "b", Identifier: "ENG-B", Title: "candidate b topic keyword overlap", State: tracker.WorkflowState{Name: "Todo"}},
	}

	fake := llmmem.New()
	fake.Stub("candidates", `{"matches":[{"issue_id":"a","relevance_score":0.9},{"issue_id":"b","relevance_score":0.2}]}`)

	content := transcript.Content{
		PrimaryRequest: "investigate the shared topic keyword overlap issue",
		Keywords:       map[string]struct{}{"topic": {}, "keyword": {}, "overlap": {}},
	}

	m := New(tr, fake, Config{
		EnableSemantic:      true,
		KeywordWeight:       0.6,
		SemanticWeight:      0.4,
		ConfidenceThreshold: 0.65,
	}, nil)

	result, err := m.Resolve(context.Background(), content, "main", 3)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "ENG-A", result.Issue.Identifier)
	assert.Equal(t, MatchHybrid, result.MatchType)
}

func TestResolveSemanticTiebreakRejectedAtHighThreshold(t *testing.T) {
	tr := trackermem.New()
	tr.Issues = []tracker.Issue{
		{ID: "a", Identifier: "ENG-A", Title: "candidate a topic keyword overlap", State: tracker.WorkflowState{Name: "Todo"}},
	}

	fake := llmmem.New()
	fake.Stub("candidates", `{"matches":[{"issue_id":"a","relevance_score":0.9}]}`)

	content := transcript.Content{
		PrimaryRequest: "investigate the shared topic keyword overlap issue",
		Keywords:       map[string]struct{}{"topic": {}, "keyword": {}, "overlap": {}},
	}

	m := New(tr, fake, Config{
		EnableSemantic:      true,
		KeywordWeight:       0.6,
		SemanticWeight:      0.4,
		ConfidenceThreshold: 0.95,
	}, nil)

	result, err := m.Resolve(context.Background(), content, "main", 3)
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestKeywordScoreCapsAtOne(t *testing.T) {
	content := transcript.Content{
		PrimaryRequest: "login redirect bug mobile web app crash fix test",
		ProjectName:    "web",
		Keywords: map[string]struct{}{
			"login": {}, "redirect": {}, "bug": {}, "mobile": {}, "web": {}, "app": {}, "crash": {}, "fix": {}, "test": {},
		},
	}
	issue := tracker.Issue{
		Title:       "login redirect bug mobile web app crash fix test",
		Description: "login redirect bug mobile web app crash fix test",
	}
	score := keywordScore(content, issue)
	assert.LessOrEqual(t, score, 1.0)
}

func TestResolveResultIsCachedPerSession(t *testing.T) {
	tr := trackermem.New()
	tr.Issues = []tracker.Issue{{
		ID:         "id-42",
		Identifier: "ENG-42",
		Title:      "Login redirect bug",
		State:      tracker.WorkflowState{Name: "In Progress"},
	}}

	m := New(tr, nil, Config{ConfidenceThreshold: 0.5}, nil)
	content := newLoginContent()

	first, err := m.Resolve(context.Background(), content, "main", 3)
	require.NoError(t, err)
	require.NotNil(t, first)

	tr.Issues = nil // remove the issue; cached result must still surface
	second, err := m.Resolve(context.Background(), content, "main", 3)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, "ENG-42", second.Issue.Identifier)
}
