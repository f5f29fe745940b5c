// Package llm defines the capability-set interface for the summarization
// and semantic-ranking transport: a single synchronous
// complete(prompt) -> text operation and two derived, typed operations.
package llm

import "context"

// Match is one ranked candidate returned by MatchIssues.
type Match struct {
	IssueID         string   `json:"issue_id"`
	RelevanceScore  float64  `json:"relevance_score"`
	Reasoning       string   `json:"reasoning"`
	MatchedAspects  []string `json:"matched_aspects"`
}

// MatchResponse is the structured reply to a match_issues prompt.
type MatchResponse struct {
	Matches []Match `json:"matches"`
}

// LLM is the transport the matcher and the session processor depend on.
type LLM interface {
	// Complete sends prompt and returns the raw text response.
	Complete(ctx context.Context, prompt string) (string, error)

	// CompleteJSON sends prompt and parses the first "{...}" substring of
	// the response as JSON into dst.
	CompleteJSON(ctx context.Context, prompt string, dst interface{}) error

	// MatchIssues sends prompt and parses the reply as a MatchResponse.
	MatchIssues(ctx context.Context, prompt string) (*MatchResponse, error)
}
