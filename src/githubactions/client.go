package githubactions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

var workflowRunURLPattern = regexp.MustCompile(`^https://github\.com/([^/]+)/([^/]+)/actions/runs/(\d+)`)

// Client is a GitHub Actions API client
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new GitHub Actions client
func NewClient(token string) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: "https://api.github.com",
	}
}

// ParseWorkflowRunURL extracts owner, repo, and run ID from URL
func ParseWorkflowRunURL(url string) (owner, repo, runID string, err error) {
	matches := workflowRunURLPattern.FindStringSubmatch(url)
	if matches == nil {
		return "", "", "", fmt.Errorf("%w: %s", ErrInvalidURL, url)
	}
	return matches[1], matches[2], matches[3], nil
}

// Invoke issues a GET against /repos/{repo}{path} with the given query
// parameters and returns the raw response body. JSON endpoints and binary
// downloads (artifact zips) both go through here; redirects are followed.
func (c *Client) Invoke(ctx context.Context, repo, path string, query url.Values) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s", c.baseURL, repo, strings.TrimPrefix(path, "/"))
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &APIError{
			StatusCode:         resp.StatusCode,
			Body:               string(body),
			RateLimitRemaining: resp.Header.Get("X-RateLimit-Remaining"),
		}
	}

	return io.ReadAll(resp.Body)
}

// InvokeJSON is Invoke followed by decoding the body into v.
func (c *Client) InvokeJSON(ctx context.Context, repo, path string, query url.Values, v interface{}) error {
	body, err := c.Invoke(ctx, repo, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// GetWorkflowRun fetches workflow run metadata
func (c *Client) GetWorkflowRun(ctx context.Context, repo, runID string) (*WorkflowRun, error) {
	var run WorkflowRun
	if err := c.InvokeJSON(ctx, repo, "/actions/runs/"+runID, nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}
