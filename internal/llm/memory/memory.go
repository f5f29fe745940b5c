// Package memory provides an in-memory llm.LLM fake for tests: callers
// preload canned responses keyed by a substring of the prompt.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/HibikiTatsuno/claude-sync-daemon/internal/llm"
)

// LLM is a scripted fake: Complete scans Responses for the first entry
// whose Contains substring appears in the prompt and returns its Text.
type LLM struct {
	mu sync.Mutex

	Responses []Response
	Prompts   []string

	// Err, when set, is returned by Complete for every call.
	Err error
}

// Response is one scripted canned reply.
type Response struct {
	Contains string
	Text     string
}

// New returns an empty LLM ready for tests to script.
func New() *LLM {
	return &LLM{}
}

// Stub registers a canned response for prompts containing substr.
func (f *LLM) Stub(substr, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Responses = append(f.Responses, Response{Contains: substr, Text: text})
}

func (f *LLM) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Prompts = append(f.Prompts, prompt)
	if f.Err != nil {
		return "", f.Err
	}
	for _, r := range f.Responses {
		if strings.Contains(prompt, r.Contains) {
			return r.Text, nil
		}
	}
	return "", fmt.Errorf("memory llm: no stubbed response matches prompt")
}

func (f *LLM) CompleteJSON(ctx context.Context, prompt string, dst interface{}) error {
	text, err := f.Complete(ctx, prompt)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(text), dst)
}

func (f *LLM) MatchIssues(ctx context.Context, prompt string) (*llm.MatchResponse, error) {
	var resp llm.MatchResponse
	if err := f.CompleteJSON(ctx, prompt, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

var _ llm.LLM = (*LLM)(nil)
