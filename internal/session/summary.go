package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/HibikiTatsuno/claude-sync-daemon/internal/llm"
)

const (
	summaryMaxUserMessages  = 10
	fallbackMaxUserMessages = 5
)

// summarize delegates to the LLM transport with up to the first 10 user
// messages, falling back to joining the
// first five with newlines when the transport fails or the session is too
// short to be worth summarizing (<= 2 user messages).
func summarize(ctx context.Context, transport llm.LLM, userMessages []string) string {
	if len(userMessages) <= 2 || transport == nil {
		return fallbackSummary(userMessages)
	}

	n := len(userMessages)
	if n > summaryMaxUserMessages {
		n = summaryMaxUserMessages
	}
	prompt := summarizePrompt(userMessages[:n])

	text, err := transport.Complete(ctx, prompt)
	if err != nil || strings.TrimSpace(text) == "" {
		return fallbackSummary(userMessages)
	}
	return strings.TrimSpace(text)
}

func fallbackSummary(userMessages []string) string {
	n := len(userMessages)
	if n > fallbackMaxUserMessages {
		n = fallbackMaxUserMessages
	}
	return strings.Join(userMessages[:n], "\n")
}

func summarizePrompt(messages []string) string {
	var b strings.Builder
	b.WriteString("Summarize in 2-3 sentences what this coding session accomplished, given these user requests in order:\n\n")
	for i, m := range messages {
		fmt.Fprintf(&b, "%d. %s\n", i+1, m)
	}
	return b.String()
}
