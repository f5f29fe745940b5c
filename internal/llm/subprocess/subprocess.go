// Package subprocess implements llm.LLM by spawning an external command
// with the prompt as a single argument and reading its standard output,
// grounded directly on internal/tools/shell.go's executeOnHost: a
// context-scoped timeout, stdout/stderr capture, and
// ctx.Err() == context.DeadlineExceeded detection.
package subprocess

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/HibikiTatsuno/claude-sync-daemon/internal/llm"
)

const defaultTimeout = 60 * time.Second

// Transport runs an external LLM command synchronously.
type Transport struct {
	command string
	args    []string
	timeout time.Duration
}

// Option configures a Transport.
type Option func(*Transport)

// WithTimeout overrides the default 60s wall-clock timeout.
func WithTimeout(d time.Duration) Option {
	return func(t *Transport) { t.timeout = d }
}

// WithArgs supplies fixed leading arguments before the prompt (e.g. a
// subcommand name).
func WithArgs(args ...string) Option {
	return func(t *Transport) { t.args = args }
}

// New creates a Transport that invokes command with the prompt as its
// final argument.
func New(command string, opts ...Option) *Transport {
	t := &Transport{command: command, timeout: defaultTimeout}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *Transport) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	args := append(append([]string{}, t.args...), prompt)
	cmd := exec.CommandContext(ctx, t.command, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("llm: command timed out after %s", t.timeout)
	}
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("llm: command failed: %s", msg)
	}

	return stdout.String(), nil
}

func (t *Transport) CompleteJSON(ctx context.Context, prompt string, dst interface{}) error {
	text, err := t.Complete(ctx, prompt)
	if err != nil {
		return err
	}
	obj, err := extractJSONObject(text)
	if err != nil {
		return fmt.Errorf("llm: no JSON object in response: %w", err)
	}
	if err := json.Unmarshal([]byte(obj), dst); err != nil {
		return fmt.Errorf("llm: parse JSON response: %w", err)
	}
	return nil
}

func (t *Transport) MatchIssues(ctx context.Context, prompt string) (*llm.MatchResponse, error) {
	var resp llm.MatchResponse
	if err := t.CompleteJSON(ctx, prompt, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// extractJSONObject returns the first balanced {...} substring in s.
func extractJSONObject(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", fmt.Errorf("no '{' found")
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("no balanced '}' found")
}

var _ llm.LLM = (*Transport)(nil)
