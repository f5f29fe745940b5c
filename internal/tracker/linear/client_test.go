package linear

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetIssue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ENG-123", req.Variables["id"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"issue":{
			"id":"uuid-1","identifier":"ENG-123","title":"Fix login","description":"",
			"url":"https://linear.app/x/issue/ENG-123","updatedAt":"2025-01-01T00:00:00Z",
			"state":{"id":"st-1","name":"In Progress","type":"started"},
			"assignee":{"id":"u-1","name":"Ada","email":"ada@example.com"},
			"labels":{"nodes":[{"id":"l-1","name":"Bug"}]}
		}}}`))
	}))
	defer srv.Close()

	c := New("token", WithBaseURL(srv.URL))
	iss, err := c.GetIssue(t.Context(), "ENG-123")
	require.NoError(t, err)
	assert.Equal(t, "ENG-123", iss.Identifier)
	assert.Equal(t, "Ada", iss.Assignee.Name)
	require.Len(t, iss.Labels, 1)
	assert.Equal(t, "Bug", iss.Labels[0].Name)
}

func TestGraphQLErrorsSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"errors":[{"message":"not authorized"}]}`))
	}))
	defer srv.Close()

	c := New("bad-token", WithBaseURL(srv.URL))
	_, err := c.GetIssue(t.Context(), "ENG-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not authorized")
}
