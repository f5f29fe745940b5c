// Package memory provides an in-memory tracker.Tracker fake for tests: a
// test double implementing the same capability set in memory.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/HibikiTatsuno/claude-sync-daemon/internal/tracker"
)

// Tracker is an in-memory implementation of tracker.Tracker.
type Tracker struct {
	mu sync.Mutex

	Issues []tracker.Issue
	Teams  []tracker.Team
	Labels map[string][]tracker.Label
	States map[string][]tracker.WorkflowState
	Users  []tracker.User
	Viewer tracker.User

	nextID int

	// Comments, Links, and StateHistory record mutations for assertions.
	Comments      []CommentCall
	Links         []LinkCall
	StateHistory  []StateCall
	AssigneeCalls []AssigneeCall
	LabelCalls    []LabelsCall
}

type CommentCall struct{ IssueID, Body string }
type LinkCall struct{ IssueID, URL, Title string }
type StateCall struct{ IssueID, StateID string }
type AssigneeCall struct{ IssueID, UserID string }
type LabelsCall struct {
	IssueID  string
	LabelIDs []string
}

// New returns an empty Tracker ready for tests to populate.
func New() *Tracker {
	return &Tracker{
		Labels: map[string][]tracker.Label{},
		States: map[string][]tracker.WorkflowState{},
	}
}

func (m *Tracker) GetIssue(_ context.Context, identifier string) (*tracker.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Issues {
		if m.Issues[i].Identifier == identifier {
			cp := m.Issues[i]
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("memory tracker: issue %s not found", identifier)
}

func (m *Tracker) SearchIssues(_ context.Context, query string, limit int) ([]tracker.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	query = strings.ToLower(query)
	var out []tracker.Issue
	for _, iss := range m.Issues {
		haystack := strings.ToLower(iss.Title + " " + iss.Description)
		matched := query == ""
		for _, term := range strings.Fields(query) {
			if strings.Contains(haystack, term) {
				matched = true
				break
			}
		}
		if matched {
			out = append(out, iss)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *Tracker) RecentActiveIssues(_ context.Context, limit int) ([]tracker.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []tracker.Issue
	for _, iss := range m.Issues {
		if iss.State.Type == tracker.StateStarted || iss.State.Type == tracker.StateUnstarted {
			out = append(out, iss)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *Tracker) CreateIssue(_ context.Context, in tracker.CreateIssueInput) (*tracker.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	iss := tracker.Issue{
		ID:          fmt.Sprintf("id-%d", m.nextID),
		Identifier:  fmt.Sprintf("MEM-%d", m.nextID),
		Title:       in.Title,
		Description: in.Description,
		URL:         "https://example.test/issue/MEM-" + strconv.Itoa(m.nextID),
	}
	for _, labels := range m.Labels {
		for _, l := range labels {
			for _, id := range in.LabelIDs {
				if l.ID == id {
					iss.Labels = append(iss.Labels, l)
				}
			}
		}
	}
	if in.AssigneeID != "" {
		for _, u := range m.Users {
			if u.ID == in.AssigneeID {
				cp := u
				iss.Assignee = &cp
			}
		}
		if iss.Assignee == nil && m.Viewer.ID == in.AssigneeID {
			cp := m.Viewer
			iss.Assignee = &cp
		}
	}
	if in.StateID != "" {
		for _, states := range m.States {
			for _, s := range states {
				if s.ID == in.StateID {
					iss.State = s
				}
			}
		}
	}
	m.Issues = append(m.Issues, iss)
	cp := iss
	return &cp, nil
}

func (m *Tracker) AddComment(_ context.Context, issueID, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Comments = append(m.Comments, CommentCall{IssueID: issueID, Body: body})
	return nil
}

func (m *Tracker) AttachLink(_ context.Context, issueID, url, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Links = append(m.Links, LinkCall{IssueID: issueID, URL: url, Title: title})
	return nil
}

func (m *Tracker) UpdateState(_ context.Context, issueID, stateID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StateHistory = append(m.StateHistory, StateCall{IssueID: issueID, StateID: stateID})
	for i := range m.Issues {
		if m.Issues[i].ID == issueID {
			for _, states := range m.States {
				for _, s := range states {
					if s.ID == stateID {
						m.Issues[i].State = s
					}
				}
			}
		}
	}
	return nil
}

func (m *Tracker) UpdateAssignee(_ context.Context, issueID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AssigneeCalls = append(m.AssigneeCalls, AssigneeCall{IssueID: issueID, UserID: userID})
	for i := range m.Issues {
		if m.Issues[i].ID == issueID {
			for _, u := range m.Users {
				if u.ID == userID {
					cp := u
					m.Issues[i].Assignee = &cp
				}
			}
			if m.Viewer.ID == userID {
				cp := m.Viewer
				m.Issues[i].Assignee = &cp
			}
		}
	}
	return nil
}

func (m *Tracker) UpdateLabels(_ context.Context, issueID string, labelIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LabelCalls = append(m.LabelCalls, LabelsCall{IssueID: issueID, LabelIDs: labelIDs})
	for i := range m.Issues {
		if m.Issues[i].ID != issueID {
			continue
		}
		existing := map[string]tracker.Label{}
		for _, l := range m.Issues[i].Labels {
			existing[l.ID] = l
		}
		for _, labels := range m.Labels {
			for _, l := range labels {
				for _, id := range labelIDs {
					if l.ID == id {
						existing[l.ID] = l
					}
				}
			}
		}
		m.Issues[i].Labels = m.Issues[i].Labels[:0]
		for _, l := range existing {
			m.Issues[i].Labels = append(m.Issues[i].Labels, l)
		}
	}
	return nil
}

func (m *Tracker) ListTeams(_ context.Context) ([]tracker.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]tracker.Team(nil), m.Teams...), nil
}

func (m *Tracker) ListLabels(_ context.Context, teamID string) ([]tracker.Label, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]tracker.Label(nil), m.Labels[teamID]...), nil
}

func (m *Tracker) ListWorkflowStates(_ context.Context, teamID string) ([]tracker.WorkflowState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]tracker.WorkflowState(nil), m.States[teamID]...), nil
}

func (m *Tracker) FindUser(_ context.Context, email string) (*tracker.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.Users {
		if u.Email == email {
			cp := u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("memory tracker: no user with email %s", email)
}

func (m *Tracker) GetViewer(_ context.Context) (*tracker.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &m.Viewer, nil
}

var _ tracker.Tracker = (*Tracker)(nil)
