package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/opensdd/osdd-todosync/core/linker"
)

// Projects (v2) are only reachable through GraphQL, and the root field depends on
// whether the owner is a user or an organization.
var findProjectQueries = map[linker.OwnerKind]string{
	linker.OwnerUser: `query($login: String!, $number: Int!) {
  user(login: $login) {
    projectV2(number: $number) { id title }
  }
}`,
	linker.OwnerOrganization: `query($login: String!, $number: Int!) {
  organization(login: $login) {
    projectV2(number: $number) { id title }
  }
}`,
}

const addProjectItemMutation = `mutation($projectId: ID!, $contentId: ID!) {
  addProjectV2ItemById(input: {projectId: $projectId, contentId: $contentId}) {
    item { id }
  }
}`

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

type graphQLError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type projectOwner struct {
	ProjectV2 *struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"projectV2"`
}

type addProjectItemData struct {
	AddProjectV2ItemByID *struct {
		Item *struct {
			ID string `json:"id"`
		} `json:"item"`
	} `json:"addProjectV2ItemById"`
}

// graphQL posts a query and returns the raw data and any GraphQL errors.
func (c *Client) graphQL(ctx context.Context, query string, variables map[string]any) (*graphQLResponse, error) {
	var resp graphQLResponse
	if err := c.doJSON(ctx, http.MethodPost, c.graphQLEndpoint(), graphQLRequest{Query: query, Variables: variables}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func joinGraphQLErrors(errs []graphQLError) string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

func allNotFound(errs []graphQLError) bool {
	for _, e := range errs {
		if e.Type != "NOT_FOUND" {
			return false
		}
	}
	return len(errs) > 0
}

// FindProject resolves the node id of project number owned by login under kind.
// It returns linker.ErrProjectNotFound when the owner or project does not exist.
func (c *Client) FindProject(ctx context.Context, kind linker.OwnerKind, login string, number int) (string, error) {
	query, ok := findProjectQueries[kind]
	if !ok {
		return "", fmt.Errorf("unsupported owner kind: %s", kind)
	}
	slog.Debug("Looking up GitHub project", "kind", kind, "login", login, "number", number)

	resp, err := c.graphQL(ctx, query, map[string]any{"login": login, "number": number})
	if err != nil {
		return "", fmt.Errorf("failed to query project: %w", err)
	}
	if len(resp.Errors) > 0 {
		if allNotFound(resp.Errors) {
			return "", linker.ErrProjectNotFound
		}
		return "", fmt.Errorf("github GraphQL API returned errors: %s", joinGraphQLErrors(resp.Errors))
	}

	var data map[string]*projectOwner
	if len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, &data); err != nil {
			return "", fmt.Errorf("failed to parse project response: %w", err)
		}
	}
	owner := data[string(kind)]
	if owner == nil || owner.ProjectV2 == nil || owner.ProjectV2.ID == "" {
		return "", linker.ErrProjectNotFound
	}
	return owner.ProjectV2.ID, nil
}

// AddProjectItem attaches the issue or pull request with node id contentID to projectID.
func (c *Client) AddProjectItem(ctx context.Context, projectID, contentID string) error {
	resp, err := c.graphQL(ctx, addProjectItemMutation, map[string]any{"projectId": projectID, "contentId": contentID})
	if err != nil {
		return fmt.Errorf("failed to add project item: %w", err)
	}
	if len(resp.Errors) > 0 {
		return fmt.Errorf("github GraphQL API returned errors: %s", joinGraphQLErrors(resp.Errors))
	}
	var data addProjectItemData
	if len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, &data); err != nil {
			return fmt.Errorf("failed to parse add item response: %w", err)
		}
	}
	if data.AddProjectV2ItemByID == nil || data.AddProjectV2ItemByID.Item == nil {
		return fmt.Errorf("github did not return the added project item")
	}
	slog.Debug("Added project item", "projectID", projectID, "itemID", data.AddProjectV2ItemByID.Item.ID)
	return nil
}
