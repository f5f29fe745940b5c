package processor

import (
	"context"
	"fmt"

	"github.com/HibikiTatsuno/claude-sync-daemon/internal/session"
	"github.com/HibikiTatsuno/claude-sync-daemon/internal/tracker"
)

// Prefetch builds the processor-lifetime tracker caches in a fixed,
// deterministic order: viewer -> team -> labels -> states.
// teamKey, when set, selects the team whose Key matches it; otherwise the
// first team returned by ListTeams is used. defaultAssigneeEmail, when set,
// overrides the viewer as the default assignee once resolved via FindUser.
func Prefetch(ctx context.Context, t tracker.Tracker, teamKey, defaultAssigneeEmail string) (session.Caches, error) {
	viewer, err := t.GetViewer(ctx)
	if err != nil {
		return session.Caches{}, fmt.Errorf("processor: fetch viewer: %w", err)
	}

	teams, err := t.ListTeams(ctx)
	if err != nil {
		return session.Caches{}, fmt.Errorf("processor: list teams: %w", err)
	}

	caches := session.Caches{Assignee: viewer}
	if team := selectTeam(teams, teamKey); team != nil {
		caches.Team = team

		labels, err := t.ListLabels(ctx, team.ID)
		if err != nil {
			return session.Caches{}, fmt.Errorf("processor: list labels: %w", err)
		}
		caches.Labels = labels

		states, err := t.ListWorkflowStates(ctx, team.ID)
		if err != nil {
			return session.Caches{}, fmt.Errorf("processor: list workflow states: %w", err)
		}
		caches.States = states
	}

	if defaultAssigneeEmail != "" {
		if user, err := t.FindUser(ctx, defaultAssigneeEmail); err == nil {
			caches.Assignee = user
		}
	}

	return caches, nil
}

// selectTeam returns the team matching key, falling back to the first team
// when key is empty or no team matches.
func selectTeam(teams []tracker.Team, key string) *tracker.Team {
	if len(teams) == 0 {
		return nil
	}
	if key != "" {
		for i := range teams {
			if teams[i].Key == key {
				return &teams[i]
			}
		}
	}
	return &teams[0]
}
