package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/opensdd/osdd-todosync/core/annotations"
)

const issuesPerPage = 100

// Issue is the subset of a GitHub issue the sync reads and writes.
type Issue struct {
	Number int     `json:"number"`
	Title  string  `json:"title"`
	Body   string  `json:"body"`
	NodeID string  `json:"node_id"`
	URL    string  `json:"html_url"`
	Labels []Label `json:"labels"`
}

// Label is a label attached to an issue.
type Label struct {
	Name string `json:"name"`
}

// IssueInput is the payload of a create-issue call.
type IssueInput struct {
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	Labels []string `json:"labels,omitempty"`
}

// ListOpenIssues returns every open issue carrying label, following pagination until exhausted.
func (c *Client) ListOpenIssues(ctx context.Context, label string) ([]Issue, error) {
	slog.Debug("Fetching open GitHub issues", "owner", c.Owner, "repo", c.Repo, "label", label)

	var all []Issue
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("state", "open")
		q.Set("per_page", fmt.Sprint(issuesPerPage))
		q.Set("page", fmt.Sprint(page))
		if label != "" {
			q.Set("labels", label)
		}
		u := c.restURL(fmt.Sprintf("/repos/%s/%s/issues?%s", url.PathEscape(c.Owner), url.PathEscape(c.Repo), q.Encode()))

		var batch []Issue
		if err := c.doJSON(ctx, http.MethodGet, u, nil, &batch); err != nil {
			return nil, fmt.Errorf("failed to list issues (page %d): %w", page, err)
		}
		all = append(all, batch...)
		slog.Debug("GitHub pagination", "page", page, "issuesSoFar", len(all))

		if len(batch) < issuesPerPage {
			break
		}
	}
	slog.Debug("GitHub issues fetched", "count", len(all))
	return all, nil
}

// ListTrackedIdentities rebuilds the set of identities already tracked by open issues
// carrying label. Issues without a fingerprint marker are ignored.
func (c *Client) ListTrackedIdentities(ctx context.Context, label string) (annotations.IdentitySet, error) {
	issues, err := c.ListOpenIssues(ctx, label)
	if err != nil {
		return nil, err
	}
	set := annotations.NewIdentitySet()
	for _, issue := range issues {
		id, ok := annotations.ExtractIdentity(issue.Body)
		if !ok {
			slog.Debug("Ignoring labeled issue without fingerprint", "number", issue.Number)
			continue
		}
		set.Add(id)
	}
	return set, nil
}

// CreateIssue creates an issue in the client's repository.
func (c *Client) CreateIssue(ctx context.Context, input IssueInput) (*Issue, error) {
	if input.Title == "" {
		return nil, fmt.Errorf("issue title cannot be empty")
	}
	u := c.restURL(fmt.Sprintf("/repos/%s/%s/issues", url.PathEscape(c.Owner), url.PathEscape(c.Repo)))
	var issue Issue
	if err := c.doJSON(ctx, http.MethodPost, u, input, &issue); err != nil {
		return nil, fmt.Errorf("failed to create issue: %w", err)
	}
	slog.Debug("GitHub issue created", "number", issue.Number, "nodeID", issue.NodeID)
	return &issue, nil
}
