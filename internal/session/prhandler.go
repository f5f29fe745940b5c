package session

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/HibikiTatsuno/claude-sync-daemon/internal/transcript"
	"github.com/HibikiTatsuno/claude-sync-daemon/internal/tracker"
)

// HandlePRCreated attaches a pull-request URL to the resolved (or newly
// created placeholder) issue and advances it to review.
func (p *Processor) HandlePRCreated(ctx context.Context, sessionID, gitBranch, prURL string) error {
	issue, err := p.resolveForPR(ctx, sessionID, gitBranch)
	if err != nil {
		return fmt.Errorf("session: resolve issue for pr: %w", err)
	}
	if issue == nil {
		if p.Caches.Team == nil {
			p.Log.Warn("pr_created: no issue resolved and no cached team, dropping", "pr_url", prURL)
			return nil
		}
		issue, err = p.Tracker.CreateIssue(ctx, tracker.CreateIssueInput{
			Title:       fmt.Sprintf("PR created: %s", lastURLSegment(prURL)),
			Description: prURL,
			TeamID:      p.Caches.Team.ID,
		})
		if err != nil {
			return fmt.Errorf("session: create placeholder issue: %w", err)
		}
	}

	if err := p.Tracker.AttachLink(ctx, issue.ID, prURL, "Pull Request"); err != nil {
		return fmt.Errorf("session: attach pr link: %w", err)
	}

	if stateID := p.reviewStateID(); stateID != "" {
		if err := p.Tracker.UpdateState(ctx, issue.ID, stateID); err != nil {
			p.Log.Warn("pr_created: failed to set review state", "error", err)
		}
	}
	return nil
}

func (p *Processor) resolveForPR(ctx context.Context, sessionID, gitBranch string) (*tracker.Issue, error) {
	content := transcript.Content{SessionID: sessionID}
	result, err := p.Matcher.Resolve(ctx, content, gitBranch, 0)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	issue := result.Issue
	if issue.ID == "" {
		full, err := p.Tracker.GetIssue(ctx, issue.Identifier)
		if err != nil {
			return nil, fmt.Errorf("fetch resolved issue %s: %w", issue.Identifier, err)
		}
		issue = *full
	}
	return &issue, nil
}

// reviewStateID returns the cached workflow state whose name contains "in
// review", else one containing "review".
func (p *Processor) reviewStateID() string {
	var review string
	for _, s := range p.Caches.States {
		name := strings.ToLower(s.Name)
		if strings.Contains(name, "in review") {
			return s.ID
		}
		if review == "" && strings.Contains(name, "review") {
			review = s.ID
		}
	}
	return review
}

func lastURLSegment(url string) string {
	return path.Base(strings.TrimRight(url, "/"))
}
