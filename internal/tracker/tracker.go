// Package tracker defines the capability-set interface the rest of the
// system uses to talk to the external issue tracker. The
// concrete GraphQL-over-HTTP implementation lives in the linear
// subpackage; tests use the in-memory fake in the memory subpackage.
package tracker

import "context"

// WorkflowStateType categorizes a workflow state.
type WorkflowStateType string

const (
	StateStarted   WorkflowStateType = "started"
	StateUnstarted WorkflowStateType = "unstarted"
	StateCompleted WorkflowStateType = "completed"
	StateCanceled  WorkflowStateType = "canceled"
	StateBacklog   WorkflowStateType = "backlog"
)

// WorkflowState is a named phase of an issue.
type WorkflowState struct {
	ID   string
	Name string
	Type WorkflowStateType
}

// Label is a tracker label.
type Label struct {
	ID   string
	Name string
}

// User is a tracker user/assignee.
type User struct {
	ID    string
	Name  string
	Email string
}

// Team is a tracker team; issues are created under a team.
type Team struct {
	ID  string
	Key string
}

// Issue mirrors the tracker's issue entity.
type Issue struct {
	ID          string
	Identifier  string
	Title       string
	Description string
	URL         string
	State       WorkflowState
	Assignee    *User
	Labels      []Label
	UpdatedAt   string
}

// CreateIssueInput carries the fields needed to create a new issue (spec
// §4.4 step 3).
type CreateIssueInput struct {
	Title       string
	Description string
	TeamID      string
	AssigneeID  string
	LabelIDs    []string
	StateID     string
}

// Tracker is the full capability set the daemon requires: search and recent
// listing for the matcher, mutation operations for the session and
// pr-created handlers, and metadata listing for the processor's startup
// cache.
type Tracker interface {
	GetIssue(ctx context.Context, identifier string) (*Issue, error)
	SearchIssues(ctx context.Context, query string, limit int) ([]Issue, error)
	RecentActiveIssues(ctx context.Context, limit int) ([]Issue, error)

	CreateIssue(ctx context.Context, in CreateIssueInput) (*Issue, error)
	AddComment(ctx context.Context, issueID, body string) error
	AttachLink(ctx context.Context, issueID, url, title string) error
	UpdateState(ctx context.Context, issueID, stateID string) error
	UpdateAssignee(ctx context.Context, issueID, userID string) error
	UpdateLabels(ctx context.Context, issueID string, labelIDs []string) error

	ListTeams(ctx context.Context) ([]Team, error)
	ListLabels(ctx context.Context, teamID string) ([]Label, error)
	ListWorkflowStates(ctx context.Context, teamID string) ([]WorkflowState, error)
	FindUser(ctx context.Context, email string) (*User, error)
	GetViewer(ctx context.Context) (*User, error)
}
