package transcript

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// TimeRange is the [start, end] timestamp span covered by a session.
type TimeRange struct {
	Start, End time.Time
}

// Content is a normalized, matcher- and summarizer-ready view over a
// transcript's filtered entries.
type Content struct {
	PrimaryRequest     string
	AdditionalContext  []string
	Keywords           map[string]struct{}
	Cwd                string
	ProjectName        string
	ToolPatterns       map[string]struct{}
	FilePaths          map[string]struct{}
	SessionID          string
	TimeRange          TimeRange
	GitBranch          string

	// UserMessages preserves the ordering of every user message text,
	// convenient for callers that need "the first N" or "the first 3".
	UserMessages []string
}

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {},
	"at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "is": {}, "are": {}, "was": {},
	"were": {}, "be": {}, "been": {}, "being": {}, "have": {}, "has": {}, "had": {},
	"do": {}, "does": {}, "did": {}, "will": {}, "would": {}, "could": {}, "should": {},
	"this": {}, "that": {}, "these": {}, "those": {}, "it": {}, "its": {}, "i": {}, "you": {},
	"we": {}, "they": {}, "my": {}, "your": {}, "me": {}, "can": {}, "so": {}, "if": {},
	"please": {}, "just": {}, "also": {}, "from": {}, "as": {}, "by": {}, "not": {},
}

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// Extract derives Content from a transcript's filtered entries. Caller is
// expected to have already run FilterNoise.
func Extract(sessionID string, entries []Entry) Content {
	c := Content{
		SessionID:    sessionID,
		Keywords:     map[string]struct{}{},
		ToolPatterns: map[string]struct{}{},
		FilePaths:    map[string]struct{}{},
	}

	for i, e := range entries {
		if i == 0 {
			c.TimeRange.Start = e.Timestamp
		}
		c.TimeRange.End = e.Timestamp

		switch e.Type {
		case EntryUser:
			if e.Cwd != "" {
				c.Cwd = e.Cwd
			}
			if e.GitBranch != "" {
				c.GitBranch = e.GitBranch
			}
			text := e.Text()
			if text == "" {
				continue
			}
			c.UserMessages = append(c.UserMessages, text)
			if c.PrimaryRequest == "" {
				c.PrimaryRequest = text
			} else {
				c.AdditionalContext = append(c.AdditionalContext, text)
			}
			addKeywords(c.Keywords, text)
		case EntryAssistant:
			for _, b := range e.Blocks() {
				if b.Type != BlockToolUse {
					continue
				}
				c.ToolPatterns[strings.ToLower(b.Name)] = struct{}{}
				for _, key := range []string{"file_path", "path", "filePath", "file"} {
					if v, ok := b.Input[key].(string); ok && v != "" {
						c.FilePaths[v] = struct{}{}
					}
				}
			}
		}
	}

	if c.Cwd != "" {
		c.ProjectName = filepath.Base(strings.TrimRight(c.Cwd, "/"))
		c.Keywords[strings.ToLower(c.ProjectName)] = struct{}{}
	}
	for fp := range c.FilePaths {
		base := filepath.Base(fp)
		ext := filepath.Ext(base)
		base = strings.TrimSuffix(base, ext)
		if base != "" {
			c.Keywords[strings.ToLower(base)] = struct{}{}
		}
	}

	return c
}

func addKeywords(dst map[string]struct{}, text string) {
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if len(tok) < 2 {
			continue
		}
		dst[tok] = struct{}{}
	}
}

// KeywordList returns up to n keywords in a deterministic (sorted) order —
// used by the matcher when building a "project + top N keywords" query.
func (c Content) KeywordList(n int) []string {
	all := make([]string, 0, len(c.Keywords))
	for k := range c.Keywords {
		all = append(all, k)
	}
	sort.Strings(all)
	if n > 0 && len(all) > n {
		all = all[:n]
	}
	return all
}
