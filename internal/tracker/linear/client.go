// Package linear implements tracker.Tracker against a Linear-shaped
// GraphQL API over plain net/http, in the style of the hand-rolled HTTP+JSON
// provider clients in internal/providers (e.g. AnthropicProvider): a small
// struct holding an API key, base URL, and *http.Client, with every call
// going through a shared do helper.
//
// This adapter issues generically-shaped {query, variables} POSTs and
// decodes a minimal {data, errors} envelope, enough to implement every
// tracker.Tracker capability.
package linear

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/HibikiTatsuno/claude-sync-daemon/internal/tracker"
)

const defaultAPIBase = "https://api.linear.app/graphql"

// Client implements tracker.Tracker.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the GraphQL endpoint (used by tests).
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient overrides the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// New creates a Linear tracker client authenticated with apiKey (read from
// the environment by the caller — never from the config file).
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultAPIBase,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors,omitempty"`
}

// do executes a GraphQL request and decodes its data into dst.
func (c *Client) do(ctx context.Context, query string, vars map[string]interface{}, dst interface{}) error {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("linear: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("linear: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("linear: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("linear: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("linear: http %d: %s", resp.StatusCode, string(respBody))
	}

	var gr graphQLResponse
	if err := json.Unmarshal(respBody, &gr); err != nil {
		return fmt.Errorf("linear: decode response: %w", err)
	}
	if len(gr.Errors) > 0 {
		return fmt.Errorf("linear: %s", gr.Errors[0].Message)
	}
	if dst == nil {
		return nil
	}
	if err := json.Unmarshal(gr.Data, dst); err != nil {
		return fmt.Errorf("linear: decode data: %w", err)
	}
	return nil
}

type issueNode struct {
	ID          string `json:"id"`
	Identifier  string `json:"identifier"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	UpdatedAt   string `json:"updatedAt"`
	State       struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"state"`
	Assignee *struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"assignee"`
	Labels struct {
		Nodes []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"nodes"`
	} `json:"labels"`
}

func (n issueNode) toIssue() tracker.Issue {
	iss := tracker.Issue{
		ID:          n.ID,
		Identifier:  n.Identifier,
		Title:       n.Title,
		Description: n.Description,
		URL:         n.URL,
		UpdatedAt:   n.UpdatedAt,
		State: tracker.WorkflowState{
			ID:   n.State.ID,
			Name: n.State.Name,
			Type: tracker.WorkflowStateType(n.State.Type),
		},
	}
	if n.Assignee != nil {
		iss.Assignee = &tracker.User{ID: n.Assignee.ID, Name: n.Assignee.Name, Email: n.Assignee.Email}
	}
	for _, l := range n.Labels.Nodes {
		iss.Labels = append(iss.Labels, tracker.Label{ID: l.ID, Name: l.Name})
	}
	return iss
}

const issueFields = `
	id identifier title description url updatedAt
	state { id name type }
	assignee { id name email }
	labels { nodes { id name } }
`

func (c *Client) GetIssue(ctx context.Context, identifier string) (*tracker.Issue, error) {
	query := `query($id: String!) { issue(id: $id) { ` + issueFields + ` } }`
	var resp struct {
		Issue *issueNode `json:"issue"`
	}
	if err := c.do(ctx, query, map[string]interface{}{"id": identifier}, &resp); err != nil {
		return nil, err
	}
	if resp.Issue == nil {
		return nil, fmt.Errorf("linear: issue %s not found", identifier)
	}
	iss := resp.Issue.toIssue()
	return &iss, nil
}

func (c *Client) SearchIssues(ctx context.Context, query string, limit int) ([]tracker.Issue, error) {
	gql := `query($term: String!, $first: Int!) {
		issueSearch(term: $term, first: $first) { nodes { ` + issueFields + ` } }
	}`
	var resp struct {
		IssueSearch struct {
			Nodes []issueNode `json:"nodes"`
		} `json:"issueSearch"`
	}
	if err := c.do(ctx, gql, map[string]interface{}{"term": query, "first": limit}, &resp); err != nil {
		return nil, err
	}
	return toIssues(resp.IssueSearch.Nodes), nil
}

func (c *Client) RecentActiveIssues(ctx context.Context, limit int) ([]tracker.Issue, error) {
	gql := `query($first: Int!) {
		issues(first: $first, orderBy: updatedAt, filter: { state: { type: { in: ["started", "unstarted"] } } }) {
			nodes { ` + issueFields + ` }
		}
	}`
	var resp struct {
		Issues struct {
			Nodes []issueNode `json:"nodes"`
		} `json:"issues"`
	}
	if err := c.do(ctx, gql, map[string]interface{}{"first": limit}, &resp); err != nil {
		return nil, err
	}
	return toIssues(resp.Issues.Nodes), nil
}

func toIssues(nodes []issueNode) []tracker.Issue {
	out := make([]tracker.Issue, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.toIssue())
	}
	return out
}

func (c *Client) CreateIssue(ctx context.Context, in tracker.CreateIssueInput) (*tracker.Issue, error) {
	gql := `mutation($input: IssueCreateInput!) {
		issueCreate(input: $input) { success issue { ` + issueFields + ` } }
	}`
	input := map[string]interface{}{
		"title":       in.Title,
		"description": in.Description,
		"teamId":      in.TeamID,
	}
	if in.AssigneeID != "" {
		input["assigneeId"] = in.AssigneeID
	}
	if in.StateID != "" {
		input["stateId"] = in.StateID
	}
	if len(in.LabelIDs) > 0 {
		input["labelIds"] = in.LabelIDs
	}

	var resp struct {
		IssueCreate struct {
			Success bool      `json:"success"`
			Issue   issueNode `json:"issue"`
		} `json:"issueCreate"`
	}
	if err := c.do(ctx, gql, map[string]interface{}{"input": input}, &resp); err != nil {
		return nil, err
	}
	if !resp.IssueCreate.Success {
		return nil, fmt.Errorf("linear: issue create reported failure")
	}
	iss := resp.IssueCreate.Issue.toIssue()
	return &iss, nil
}

func (c *Client) AddComment(ctx context.Context, issueID, body string) error {
	gql := `mutation($input: CommentCreateInput!) { commentCreate(input: $input) { success } }`
	input := map[string]interface{}{"issueId": issueID, "body": body}
	var resp struct {
		CommentCreate struct {
			Success bool `json:"success"`
		} `json:"commentCreate"`
	}
	if err := c.do(ctx, gql, map[string]interface{}{"input": input}, &resp); err != nil {
		return err
	}
	if !resp.CommentCreate.Success {
		return fmt.Errorf("linear: comment create reported failure")
	}
	return nil
}

func (c *Client) AttachLink(ctx context.Context, issueID, url, title string) error {
	gql := `mutation($input: AttachmentCreateInput!) { attachmentCreate(input: $input) { success } }`
	input := map[string]interface{}{"issueId": issueID, "url": url, "title": title}
	var resp struct {
		AttachmentCreate struct {
			Success bool `json:"success"`
		} `json:"attachmentCreate"`
	}
	if err := c.do(ctx, gql, map[string]interface{}{"input": input}, &resp); err != nil {
		return err
	}
	if !resp.AttachmentCreate.Success {
		return fmt.Errorf("linear: attachment create reported failure")
	}
	return nil
}

func (c *Client) updateIssue(ctx context.Context, issueID string, fields map[string]interface{}) error {
	gql := `mutation($id: String!, $input: IssueUpdateInput!) { issueUpdate(id: $id, input: $input) { success } }`
	var resp struct {
		IssueUpdate struct {
			Success bool `json:"success"`
		} `json:"issueUpdate"`
	}
	if err := c.do(ctx, gql, map[string]interface{}{"id": issueID, "input": fields}, &resp); err != nil {
		return err
	}
	if !resp.IssueUpdate.Success {
		return fmt.Errorf("linear: issue update reported failure")
	}
	return nil
}

func (c *Client) UpdateState(ctx context.Context, issueID, stateID string) error {
	return c.updateIssue(ctx, issueID, map[string]interface{}{"stateId": stateID})
}

func (c *Client) UpdateAssignee(ctx context.Context, issueID, userID string) error {
	return c.updateIssue(ctx, issueID, map[string]interface{}{"assigneeId": userID})
}

func (c *Client) UpdateLabels(ctx context.Context, issueID string, labelIDs []string) error {
	return c.updateIssue(ctx, issueID, map[string]interface{}{"labelIds": labelIDs})
}

func (c *Client) ListTeams(ctx context.Context) ([]tracker.Team, error) {
	gql := `query { teams(first: 50) { nodes { id key } } }`
	var resp struct {
		Teams struct {
			Nodes []struct {
				ID  string `json:"id"`
				Key string `json:"key"`
			} `json:"nodes"`
		} `json:"teams"`
	}
	if err := c.do(ctx, gql, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]tracker.Team, 0, len(resp.Teams.Nodes))
	for _, n := range resp.Teams.Nodes {
		out = append(out, tracker.Team{ID: n.ID, Key: n.Key})
	}
	return out, nil
}

func (c *Client) ListLabels(ctx context.Context, teamID string) ([]tracker.Label, error) {
	gql := `query($teamId: String!) { team(id: $teamId) { labels(first: 200) { nodes { id name } } } }`
	var resp struct {
		Team struct {
			Labels struct {
				Nodes []struct {
					ID   string `json:"id"`
					Name string `json:"name"`
				} `json:"nodes"`
			} `json:"labels"`
		} `json:"team"`
	}
	if err := c.do(ctx, gql, map[string]interface{}{"teamId": teamID}, &resp); err != nil {
		return nil, err
	}
	out := make([]tracker.Label, 0, len(resp.Team.Labels.Nodes))
	for _, n := range resp.Team.Labels.Nodes {
		out = append(out, tracker.Label{ID: n.ID, Name: n.Name})
	}
	return out, nil
}

func (c *Client) ListWorkflowStates(ctx context.Context, teamID string) ([]tracker.WorkflowState, error) {
	gql := `query($teamId: String!) { team(id: $teamId) { states(first: 50) { nodes { id name type } } } }`
	var resp struct {
		Team struct {
			States struct {
				Nodes []struct {
					ID   string `json:"id"`
					Name string `json:"name"`
					Type string `json:"type"`
				} `json:"nodes"`
			} `json:"states"`
		} `json:"team"`
	}
	if err := c.do(ctx, gql, map[string]interface{}{"teamId": teamID}, &resp); err != nil {
		return nil, err
	}
	out := make([]tracker.WorkflowState, 0, len(resp.Team.States.Nodes))
	for _, n := range resp.Team.States.Nodes {
		out = append(out, tracker.WorkflowState{ID: n.ID, Name: n.Name, Type: tracker.WorkflowStateType(n.Type)})
	}
	return out, nil
}

func (c *Client) FindUser(ctx context.Context, email string) (*tracker.User, error) {
	gql := `query($email: String!) { users(filter: { email: { eq: $email } }, first: 1) { nodes { id name email } } }`
	var resp struct {
		Users struct {
			Nodes []struct {
				ID    string `json:"id"`
				Name  string `json:"name"`
				Email string `json:"email"`
			} `json:"nodes"`
		} `json:"users"`
	}
	if err := c.do(ctx, gql, map[string]interface{}{"email": email}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Users.Nodes) == 0 {
		return nil, fmt.Errorf("linear: no user with email %s", email)
	}
	n := resp.Users.Nodes[0]
	return &tracker.User{ID: n.ID, Name: n.Name, Email: n.Email}, nil
}

func (c *Client) GetViewer(ctx context.Context) (*tracker.User, error) {
	gql := `query { viewer { id name email } }`
	var resp struct {
		Viewer struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"viewer"`
	}
	if err := c.do(ctx, gql, nil, &resp); err != nil {
		return nil, err
	}
	return &tracker.User{ID: resp.Viewer.ID, Name: resp.Viewer.Name, Email: resp.Viewer.Email}, nil
}

var _ tracker.Tracker = (*Client)(nil)
