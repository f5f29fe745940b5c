package session

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/HibikiTatsuno/claude-sync-daemon/internal/config"
	"github.com/HibikiTatsuno/claude-sync-daemon/internal/tracker"
)

// labelRule is one row of the fixed, ordered pattern table.
type labelRule struct {
	pattern *regexp.Regexp
	labels  []string
}

var labelRules = []labelRule{
	{regexp.MustCompile(`(?i)frontend|web|react|vue|next`), []string{"Frontend"}},
	{regexp.MustCompile(`(?i)backend|api|server|node`), []string{"Backend"}},
	{regexp.MustCompile(`(?i)mobile|ios|android|react-native`), []string{"Mobile"}},
	{regexp.MustCompile(`(?i)infra|devops|terraform|k8s|kubernetes`), []string{"Infrastructure"}},
	{regexp.MustCompile(`(?i)test|spec|e2e`), []string{"Testing"}},
	{regexp.MustCompile(`(?i)doc|readme|wiki`), []string{"Documentation"}},
	{regexp.MustCompile(`(?i)design|figma|ui|ux`), []string{"Design"}},
	{regexp.MustCompile(`(?i)bug|fix|hotfix`), []string{"Bug"}},
	{regexp.MustCompile(`(?i)feature|feat`), []string{"Feature"}},
	{regexp.MustCompile(`(?i)refactor|cleanup`), []string{"Refactor"}},
}

// deriveLabelNames evaluates extra (operator-supplied rules, tried first)
// followed by the built-in table against cwd and the joined user message
// text, returning the union of matched label names in rule order.
func deriveLabelNames(cwd string, userText string, extra ...labelRule) []string {
	var names []string
	seen := map[string]struct{}{}
	for _, rule := range append(append([]labelRule{}, extra...), labelRules...) {
		if rule.pattern.MatchString(cwd) || rule.pattern.MatchString(userText) {
			for _, name := range rule.labels {
				if _, ok := seen[name]; ok {
					continue
				}
				seen[name] = struct{}{}
				names = append(names, name)
			}
		}
	}
	return names
}

// compileCustomLabelRules compiles operator-supplied label rules from
// config, skipping (and logging) any with an invalid pattern.
func compileCustomLabelRules(rules []config.LabelRule, log *slog.Logger) []labelRule {
	var out []labelRule
	for _, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			log.Warn("session: skipping invalid label rule pattern", "pattern", r.Pattern, "error", err)
			continue
		}
		out = append(out, labelRule{pattern: re, labels: r.Labels})
	}
	return out
}

// resolveLabelIDs maps label names to ids by case-insensitive equality
// against the cached label set; unknown names are silently dropped.
func resolveLabelIDs(names []string, cached []tracker.Label) []string {
	byName := map[string]string{}
	for _, l := range cached {
		byName[strings.ToLower(l.Name)] = l.ID
	}
	var ids []string
	for _, name := range names {
		if id, ok := byName[strings.ToLower(name)]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// unionLabelIDs merges derived label ids into an issue's existing label ids
// without removing any.
func unionLabelIDs(existing []tracker.Label, add []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, l := range existing {
		if _, ok := seen[l.ID]; !ok {
			seen[l.ID] = struct{}{}
			out = append(out, l.ID)
		}
	}
	for _, id := range add {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
