package matcher

import (
	"regexp"
	"strings"

	"github.com/HibikiTatsuno/claude-sync-daemon/internal/tracker"
	"github.com/HibikiTatsuno/claude-sync-daemon/internal/transcript"
)

var wordPattern = regexp.MustCompile(`[a-z0-9]+`)

// keywordScore scores one candidate issue against the extracted content.
func keywordScore(content transcript.Content, issue tracker.Issue) float64 {
	haystack := strings.ToLower(issue.Title + " " + issue.Description)
	title := strings.ToLower(issue.Title)

	var score float64
	for kw := range content.Keywords {
		if !strings.Contains(haystack, kw) {
			continue
		}
		if strings.Contains(title, kw) {
			score += 0.15
		} else {
			score += 0.05
		}
	}

	if content.ProjectName != "" && strings.Contains(haystack, strings.ToLower(content.ProjectName)) {
		score += 0.20
	}

	primaryTokens := tokensOverLen(content.PrimaryRequest, 2)
	if len(primaryTokens) > 0 {
		issueWords := map[string]struct{}{}
		for _, w := range wordPattern.FindAllString(haystack, -1) {
			issueWords[w] = struct{}{}
		}
		overlap := 0
		for _, t := range primaryTokens {
			if _, ok := issueWords[t]; ok {
				overlap++
			}
		}
		score += 0.30 * (float64(overlap) / float64(len(primaryTokens)))
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// tokensOverLen returns the lowercase word tokens in s longer than minLen.
func tokensOverLen(s string, minLen int) []string {
	var out []string
	for _, t := range wordPattern.FindAllString(strings.ToLower(s), -1) {
		if len(t) > minLen {
			out = append(out, t)
		}
	}
	return out
}

// stateBonus weights a candidate by its workflow state name.
func stateBonus(state tracker.WorkflowState) float64 {
	name := strings.ToLower(state.Name)
	switch {
	case strings.Contains(name, "progress") || strings.Contains(name, "started"):
		return 1.0
	case strings.Contains(name, "todo") || strings.Contains(name, "backlog") || strings.Contains(name, "unstarted"):
		return 0.5
	case strings.Contains(name, "done") || strings.Contains(name, "complete") || strings.Contains(name, "cancel"):
		return 0.0
	default:
		return 0.3
	}
}
