// Package session implements the handler for session_stop queue records:
// it loads a transcript, extracts its content, resolves a target issue via
// the matcher, enforces assignee/state/labels, and posts a summarized
// comment.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/HibikiTatsuno/claude-sync-daemon/internal/config"
	"github.com/HibikiTatsuno/claude-sync-daemon/internal/llm"
	"github.com/HibikiTatsuno/claude-sync-daemon/internal/matcher"
	"github.com/HibikiTatsuno/claude-sync-daemon/internal/tracker"
	"github.com/HibikiTatsuno/claude-sync-daemon/internal/transcript"
)

// Caches holds the processor-lifetime tracker metadata fetched once at
// startup.
type Caches struct {
	Team     *tracker.Team
	Assignee *tracker.User
	Labels   []tracker.Label
	States   []tracker.WorkflowState
}

// inProgressStateID returns the cached workflow state whose name contains
// "in progress", else one containing "started".
func (c Caches) inProgressStateID() string {
	var started string
	for _, s := range c.States {
		name := strings.ToLower(s.Name)
		if strings.Contains(name, "in progress") {
			return s.ID
		}
		if started == "" && strings.Contains(name, "started") {
			started = s.ID
		}
	}
	return started
}

// Processor handles session_stop records end to end.
type Processor struct {
	Tracker     tracker.Tracker
	Matcher     *matcher.HybridMatcher
	LLM         llm.LLM
	Caches      Caches
	Log         *slog.Logger
	customRules []labelRule
}

// New builds a session Processor. customLabels extends the built-in
// cwd/message pattern->label table; each is tried before the built-in
// rules, which still apply in full.
func New(t tracker.Tracker, m *matcher.HybridMatcher, l llm.LLM, caches Caches, log *slog.Logger, customLabels []config.LabelRule) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{
		Tracker:     t,
		Matcher:     m,
		LLM:         l,
		Caches:      caches,
		Log:         log,
		customRules: compileCustomLabelRules(customLabels, log),
	}
}

// HandleSessionStop runs the six-step session-stop algorithm for one parsed
// transcript at transcriptPath.
func (p *Processor) HandleSessionStop(ctx context.Context, sessionID, transcriptPath string) error {
	// Step 1: load & filter.
	entries, err := transcript.ParseFile(transcriptPath)
	if err != nil {
		return fmt.Errorf("session: load transcript: %w", err)
	}
	if len(entries) == 0 {
		p.Log.Info("session has no content after noise filtering, skipping", "session_id", sessionID)
		return nil
	}

	// Step 2: extract.
	content := transcript.Extract(sessionID, entries)

	// Step 3: resolve or create.
	issue, err := p.resolveOrCreateIssue(ctx, content, len(entries))
	if err != nil {
		return fmt.Errorf("session: resolve issue: %w", err)
	}

	// Step 4: enforce setup.
	if err := p.enforceSetup(ctx, issue, content); err != nil {
		return fmt.Errorf("session: enforce issue setup: %w", err)
	}

	// Step 5: summarize.
	summaryText := summarize(ctx, p.LLM, content.UserMessages)

	// Step 6: post comment.
	comment := renderComment(summaryText, content.UserMessages)
	if err := p.Tracker.AddComment(ctx, issue.ID, comment); err != nil {
		return fmt.Errorf("session: post comment: %w", err)
	}
	return nil
}

func (p *Processor) resolveOrCreateIssue(ctx context.Context, content transcript.Content, entryCount int) (*tracker.Issue, error) {
	result, err := p.Matcher.Resolve(ctx, content, content.GitBranch, entryCount)
	if err != nil {
		return nil, err
	}
	if result != nil {
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
	return p.createIssue(ctx, content)
}

func (p *Processor) createIssue(ctx context.Context, content transcript.Content) (*tracker.Issue, error) {
	if p.Caches.Team == nil {
		return nil, fmt.Errorf("no cached team available to create an issue")
	}

	in := tracker.CreateIssueInput{
		Title:       issueTitle(content),
		Description: issueDescription(content),
		TeamID:      p.Caches.Team.ID,
		StateID:     p.Caches.inProgressStateID(),
		LabelIDs:    resolveLabelIDs(deriveLabelNames(content.Cwd, strings.Join(content.UserMessages, " "), p.customRules...), p.Caches.Labels),
	}
	if p.Caches.Assignee != nil {
		in.AssigneeID = p.Caches.Assignee.ID
	}

	return p.Tracker.CreateIssue(ctx, in)
}

func (p *Processor) enforceSetup(ctx context.Context, issue *tracker.Issue, content transcript.Content) error {
	if p.Caches.Assignee != nil {
		if err := p.Tracker.UpdateAssignee(ctx, issue.ID, p.Caches.Assignee.ID); err != nil {
			return fmt.Errorf("assign: %w", err)
		}
	}
	if stateID := p.Caches.inProgressStateID(); stateID != "" {
		if err := p.Tracker.UpdateState(ctx, issue.ID, stateID); err != nil {
			return fmt.Errorf("set state: %w", err)
		}
	}

	names := deriveLabelNames(content.Cwd, strings.Join(content.UserMessages, " "), p.customRules...)
	if len(names) > 0 {
		add := resolveLabelIDs(names, p.Caches.Labels)
		if len(add) > 0 {
			union := unionLabelIDs(issue.Labels, add)
			if err := p.Tracker.UpdateLabels(ctx, issue.ID, union); err != nil {
				return fmt.Errorf("set labels: %w", err)
			}
		}
	}
	return nil
}

// issueTitle renders the issue title template.
func issueTitle(content transcript.Content) string {
	normalized := normalizeTitle(content.PrimaryRequest)
	if content.ProjectName == "" {
		return normalized
	}
	return fmt.Sprintf("[%s] %s", content.ProjectName, normalized)
}

const (
	descriptionPreamble    = "This issue was auto-created from a coding-assistant session."
	descriptionMaxMessages = 3
	descriptionMaxChars    = 300
)

// issueDescription renders the issue description template.
func issueDescription(content transcript.Content) string {
	var b strings.Builder
	b.WriteString(descriptionPreamble)
	b.WriteString("\n\n## User Requests\n")

	n := len(content.UserMessages)
	if n > descriptionMaxMessages {
		n = descriptionMaxMessages
	}
	for _, msg := range content.UserMessages[:n] {
		fmt.Fprintf(&b, "- %s\n", truncateWithEllipsis(msg, descriptionMaxChars))
	}
	return b.String()
}

const (
	commentMaxMessages = 5
	commentMaxChars    = 200
)

// renderComment builds the fixed Markdown comment layout.
func renderComment(summaryText string, userMessages []string) string {
	var b strings.Builder
	b.WriteString("## Claude Code Session Summary\n\n")
	b.WriteString(summaryText)
	b.WriteString("\n\n---\n\n### User Requests\n")

	n := len(userMessages)
	if n > commentMaxMessages {
		n = commentMaxMessages
	}
	for _, msg := range userMessages[:n] {
		fmt.Fprintf(&b, "- %s\n", truncateWithEllipsis(msg, commentMaxChars))
	}
	return b.String()
}
