// Package transcript parses the newline-delimited JSON session transcripts
// written by the coding-assistant host and extracts the
// structured content the matcher and session processor need.
package transcript

import "time"

// EntryType is the recognized transcript entry kind. Any other value (e.g.
// "file-history-snapshot") is ignored at parse time.
type EntryType string

const (
	EntryUser      EntryType = "user"
	EntryAssistant EntryType = "assistant"
)

// BlockType is the kind of an assistant content block.
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockThinking   BlockType = "thinking"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
)

// ContentBlock is one element of an assistant message's content array.
// Unrecognized types are kept (so callers can still inspect them) but are
// skipped by every extraction helper.
type ContentBlock struct {
	Type BlockType `json:"type"`

	// text / thinking
	Text string `json:"text,omitempty"`

	// tool_use
	Name  string                 `json:"name,omitempty"`
	Input map[string]interface{} `json:"input,omitempty"`

	// tool_result
	Content interface{} `json:"content,omitempty"`
}

// Message is the shared envelope for user and assistant entries.
type Message struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // string for user, []ContentBlock for assistant
}

// Entry is one line of a session transcript.
type Entry struct {
	Type      EntryType `json:"type"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`

	// user-only
	Cwd       string `json:"cwd,omitempty"`
	GitBranch string `json:"git_branch,omitempty"`

	Message Message `json:"message"`
}

// Text returns the entry's textual content: the raw string for a user
// entry, or the concatenation of text blocks for an assistant entry.
func (e *Entry) Text() string {
	switch e.Type {
	case EntryUser:
		if s, ok := e.Message.Content.(string); ok {
			return s
		}
		return ""
	case EntryAssistant:
		blocks := e.Blocks()
		out := ""
		for _, b := range blocks {
			if b.Type == BlockText {
				out += b.Text
			}
		}
		return out
	default:
		return ""
	}
}

// Blocks decodes the assistant message's content array into ContentBlocks.
// Returns nil for user entries or malformed content.
func (e *Entry) Blocks() []ContentBlock {
	raw, ok := e.Message.Content.([]interface{})
	if !ok {
		return nil
	}
	blocks := make([]ContentBlock, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		var b ContentBlock
		if t, ok := m["type"].(string); ok {
			b.Type = BlockType(t)
		}
		if t, ok := m["text"].(string); ok {
			b.Text = t
		}
		if n, ok := m["name"].(string); ok {
			b.Name = n
		}
		if in, ok := m["input"].(map[string]interface{}); ok {
			b.Input = in
		}
		if c, ok := m["content"]; ok {
			b.Content = c
		}
		blocks = append(blocks, b)
	}
	return blocks
}
