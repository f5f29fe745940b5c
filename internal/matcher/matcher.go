// Package matcher implements the Hybrid Issue Matcher: a pure
// resolution engine combining branch-pattern extraction, keyword search
// against the tracker, and LLM-scored semantic ranking under a confidence
// threshold.
package matcher

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/HibikiTatsuno/claude-sync-daemon/internal/llm"
	"github.com/HibikiTatsuno/claude-sync-daemon/internal/telemetry"
	"github.com/HibikiTatsuno/claude-sync-daemon/internal/tracker"
	"github.com/HibikiTatsuno/claude-sync-daemon/internal/transcript"
)

// MatchType categorizes how a Result was produced.
type MatchType string

const (
	MatchExact    MatchType = "exact"
	MatchKeyword  MatchType = "keyword"
	MatchSemantic MatchType = "semantic"
	MatchHybrid   MatchType = "hybrid"
)

// Result is a resolved issue plus the scoring detail that produced it.
type Result struct {
	Issue           tracker.Issue
	Confidence      float64
	MatchType       MatchType
	KeywordScore    float64
	SemanticScore   *float64
	MatchedKeywords []string
	Reasoning       string
}

// Config carries the matcher's tunables.
type Config struct {
	// BranchPattern must have at least one capturing group; group 1 yields
	// the issue identifier. Defaults to `([A-Z]+-\d+)` when nil.
	BranchPattern *regexp.Regexp

	KeywordWeight       float64
	SemanticWeight      float64
	ConfidenceThreshold float64
	MaxCandidates       int
	EnableSemantic      bool

	// CallsPerMinute bounds matcher-originated tracker/LLM calls.
	CallsPerMinute int
}

// DefaultBranchPattern is the default branch-name regex.
var DefaultBranchPattern = regexp.MustCompile(`([A-Z]+-\d+)`)

func (c Config) withDefaults() Config {
	if c.BranchPattern == nil {
		c.BranchPattern = DefaultBranchPattern
	}
	if c.MaxCandidates <= 0 {
		c.MaxCandidates = 10
	}
	if c.ConfidenceThreshold <= 0 {
		c.ConfidenceThreshold = 0.7
	}
	if c.KeywordWeight == 0 && c.SemanticWeight == 0 {
		c.KeywordWeight, c.SemanticWeight = 0.6, 0.4
	}
	return c
}

// HybridMatcher resolves extracted session content (and, independently, a
// bare branch name) to a tracked issue identifier.
type HybridMatcher struct {
	tracker tracker.Tracker
	llm     llm.LLM
	cfg     Config
	bucket  *tokenBucket
	cache   *resultCache
	log     *slog.Logger
}

// New constructs a HybridMatcher over the given tracker and LLM
// transports.
func New(t tracker.Tracker, l llm.LLM, cfg Config, logger *slog.Logger) *HybridMatcher {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &HybridMatcher{
		tracker: t,
		llm:     l,
		cfg:     cfg,
		bucket:  newTokenBucket(cfg.CallsPerMinute),
		cache:   newResultCache(),
		log:     logger,
	}
}

// Resolve runs the hybrid matching algorithm end to end: exact branch
// match, early reject on too little content, keyword search and scoring,
// then optional semantic ranking. entryCount is the number of filtered
// transcript entries accumulated for the session, used for the
// too-few-entries early reject; callers resolving from a bare branch name
// with no transcript pass 0 and an empty/zero-value content.
func (m *HybridMatcher) Resolve(ctx context.Context, content transcript.Content, gitBranch string, entryCount int) (*Result, error) {
	ctx, span := telemetry.StartSpan(ctx, "matcher.resolve")
	defer span.End()

	// Step 1: exact branch match, no further work, not cached or rate
	// limited.
	if gitBranch != "" {
		if groups := m.cfg.BranchPattern.FindStringSubmatch(gitBranch); len(groups) >= 2 {
			return &Result{
				Issue:      tracker.Issue{Identifier: groups[1]},
				Confidence: 1.0,
				MatchType:  MatchExact,
			}, nil
		}
	}

	if content.SessionID != "" {
		if cached, ok := m.cache.get(content.SessionID); ok {
			return cached, nil
		}
	}

	// Step 2: early reject.
	if len(content.PrimaryRequest) < 20 || entryCount < 2 {
		m.remember(content.SessionID, nil)
		return nil, nil
	}

	candidates, err := m.searchCandidates(ctx, content)
	if err != nil {
		m.log.Warn("matcher keyword search degraded", "error", err)
		candidates = nil
	}
	if len(candidates) == 0 {
		candidates, err = m.recentActiveFallback(ctx)
		if err != nil {
			m.log.Warn("matcher recent-issues fallback failed", "error", err)
			m.remember(content.SessionID, nil)
			return nil, nil
		}
	}
	if len(candidates) == 0 {
		m.remember(content.SessionID, nil)
		return nil, nil
	}

	// Step 4-5: score and take the top MaxCandidates.
	type scored struct {
		issue tracker.Issue
		score float64
	}
	ranked := make([]scored, 0, len(candidates))
	for _, iss := range candidates {
		ranked = append(ranked, scored{issue: iss, score: keywordScore(content, iss)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > m.cfg.MaxCandidates {
		ranked = ranked[:m.cfg.MaxCandidates]
	}

	// Step 6: semantic ranking.
	semanticByID := map[string]llm.Match{}
	if m.cfg.EnableSemantic && m.llm != nil && len(ranked) > 0 {
		issues := make([]tracker.Issue, 0, len(ranked))
		for _, r := range ranked {
			issues = append(issues, r.issue)
		}
		if err := m.bucket.acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("matcher: rate limit wait: %w", err)
		}
		resp, err := m.llm.MatchIssues(ctx, semanticPrompt(content, issues))
		if err != nil {
			m.log.Warn("matcher semantic ranking degraded to keyword-only", "error", err)
		} else {
			for _, match := range resp.Matches {
				if match.RelevanceScore >= 0.3 {
					semanticByID[match.IssueID] = match
				}
			}
		}
	}

	// Step 7: combine.
	var best *Result
	for _, r := range ranked {
		bonus := stateBonus(r.issue.State)
		adjusted := r.score + 0.1*bonus
		if adjusted > 1.0 {
			adjusted = 1.0
		}

		result := Result{
			Issue:        r.issue,
			KeywordScore: r.score,
		}

		if sem, ok := semanticByID[r.issue.ID]; ok {
			semScore := sem.RelevanceScore
			result.SemanticScore = &semScore
			result.Reasoning = sem.Reasoning
			result.MatchedKeywords = sem.MatchedAspects
			total := m.cfg.KeywordWeight + m.cfg.SemanticWeight
			result.Confidence = adjusted*(m.cfg.KeywordWeight/total) + semScore*(m.cfg.SemanticWeight/total)
			if r.score > 0.3 {
				result.MatchType = MatchHybrid
			} else {
				result.MatchType = MatchSemantic
			}
		} else {
			result.Confidence = adjusted
			result.MatchType = MatchKeyword
		}

		if best == nil || result.Confidence > best.Confidence {
			cp := result
			best = &cp
		}
	}

	// Step 8: accept iff above threshold.
	if best == nil || best.Confidence < m.cfg.ConfidenceThreshold {
		m.remember(content.SessionID, nil)
		return nil, nil
	}
	m.remember(content.SessionID, best)
	return best, nil
}

func (m *HybridMatcher) remember(sessionID string, result *Result) {
	if sessionID != "" {
		m.cache.set(sessionID, result)
	}
}

// searchCandidates issues up to three queries one after another (not
// concurrently) and merges results by identifier.
func (m *HybridMatcher) searchCandidates(ctx context.Context, content transcript.Content) ([]tracker.Issue, error) {
	ctx, span := telemetry.StartSpan(ctx, "matcher.keyword_search")
	defer span.End()

	if err := m.bucket.acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("matcher: rate limit wait: %w", err)
	}

	queries := []string{}
	if kws := content.KeywordList(5); len(kws) > 0 || content.ProjectName != "" {
		queries = append(queries, strings.TrimSpace(content.ProjectName+" "+strings.Join(kws, " ")))
	}
	queries = append(queries, truncate(content.PrimaryRequest, 100))
	if content.ProjectName != "" {
		queries = append(queries, content.ProjectName)
	}

	merged := map[string]tracker.Issue{}
	for _, q := range queries {
		if strings.TrimSpace(q) == "" {
			continue
		}
		results, err := m.tracker.SearchIssues(ctx, q, m.cfg.MaxCandidates)
		if err != nil {
			return nil, err
		}
		for _, iss := range results {
			if _, ok := merged[iss.Identifier]; !ok {
				merged[iss.Identifier] = iss
			}
		}
	}

	out := make([]tracker.Issue, 0, len(merged))
	for _, iss := range merged {
		out = append(out, iss)
	}
	return out, nil
}

func (m *HybridMatcher) recentActiveFallback(ctx context.Context) ([]tracker.Issue, error) {
	return m.tracker.RecentActiveIssues(ctx, m.cfg.MaxCandidates)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// semanticPrompt builds the structured prompt sent to the LLM: primary
// request, project, cwd, file paths, keywords, and the candidate issues.
func semanticPrompt(content transcript.Content, candidates []tracker.Issue) string {
	var b strings.Builder
	b.WriteString("primary_request: ")
	b.WriteString(content.PrimaryRequest)
	b.WriteString("\nproject: ")
	b.WriteString(content.ProjectName)
	b.WriteString("\ncwd: ")
	b.WriteString(content.Cwd)
	b.WriteString("\nfile_paths: ")
	b.WriteString(strings.Join(sortedKeys(content.FilePaths), ", "))
	b.WriteString("\nkeywords: ")
	b.WriteString(strings.Join(content.KeywordList(20), ", "))
	b.WriteString("\ncandidates:\n")
	for _, c := range candidates {
		fmt.Fprintf(&b, "- id=%s identifier=%s title=%q state=%s\n", c.ID, c.Identifier, c.Title, c.State.Name)
	}
	b.WriteString("\nReturn JSON: {\"matches\":[{\"issue_id\":...,\"relevance_score\":...,\"reasoning\":...,\"matched_aspects\":[...]}]}")
	return b.String()
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
