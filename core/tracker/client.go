// Package tracker talks to GitHub: the REST API for issues and the GraphQL API
// for Projects (v2), which addresses owners differently from the REST side.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/opensdd/osdd-api/clients/go/osdd"
	"github.com/opensdd/osdd-todosync/core/utils"
)

// restBaseURL and graphQLURL can be overridden in tests to point at a httptest server.
var (
	restBaseURL = "https://api.github.com"
	graphQLURL  = "https://api.github.com/graphql"
)

const apiVersion = "2022-11-28"

// Client is a GitHub client scoped to one repository.
type Client struct {
	Owner string
	Repo  string
	Token string

	// BaseURL and GraphQLURL override the package defaults, e.g. for GitHub Enterprise.
	BaseURL    string
	GraphQLURL string
	HTTPClient *http.Client
}

// NewClient returns a client for repo authenticating with token.
func NewClient(repo *osdd.GitRepository, token string) (*Client, error) {
	owner, name, err := utils.SplitFullName(repo)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("github API requires authentication: set the auth token env var")
	}
	return &Client{Owner: owner, Repo: name, Token: token}, nil
}

func (c *Client) restURL(path string) string {
	base := c.BaseURL
	if base == "" {
		base = restBaseURL
	}
	return strings.TrimRight(base, "/") + path
}

func (c *Client) graphQLEndpoint() string {
	if c.GraphQLURL != "" {
		return c.GraphQLURL
	}
	return graphQLURL
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// doJSON sends payload (if any) as JSON and decodes a 2xx response into out (if any).
func (c *Client) doJSON(ctx context.Context, method, url string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal github request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create github request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("failed to call github: %w", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read github response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("github API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse github response: %w", err)
	}
	return nil
}
