package github

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v45/github"
	"github.com/hellausefulsoftware/cleaner/internal/common/vcs"
	"github.com/hellausefulsoftware/cleaner/internal/logging"
	"golang.org/x/oauth2"
)

// Client handles GitHub API interactions for one set of credentials
type Client struct {
	client *github.Client
}

// NewClient creates a new GitHub client authenticated with a static token.
// An empty baseURL targets github.com.
func NewClient(token, baseURL string) (*Client, error) {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(context.Background(), ts)

	return NewClientWithHTTP(tc, baseURL)
}

// NewClientWithHTTP wraps an authenticated http.Client. A non-empty baseURL
// points the client at a GitHub Enterprise API root.
func NewClientWithHTTP(httpClient *http.Client, baseURL string) (*Client, error) {
	gh, err := newGitHubClient(httpClient, baseURL)
	if err != nil {
		return nil, err
	}
	return &Client{client: gh}, nil
}

func newGitHubClient(httpClient *http.Client, baseURL string) (*github.Client, error) {
	gh := github.NewClient(httpClient)
	if baseURL == "" {
		return gh, nil
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid GitHub API url %q: %w", baseURL, err)
	}
	gh.BaseURL = parsed
	gh.UploadURL = parsed
	return gh, nil
}

// AddLabels adds labels to an issue; GitHub ignores labels already present
func (c *Client) AddLabels(ctx context.Context, owner, repo string, number int, labels []string) error {
	_, _, err := c.client.Issues.AddLabelsToIssue(ctx, owner, repo, number, labels)
	if err != nil {
		return fmt.Errorf("failed to add labels: %w", classify(err))
	}
	return nil
}

// CreateComment posts a comment on a GitHub issue
func (c *Client) CreateComment(ctx context.Context, owner, repo string, number int, body string) error {
	_, _, err := c.client.Issues.CreateComment(
		ctx,
		owner,
		repo,
		number,
		&github.IssueComment{
			Body: github.String(body),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to create issue comment: %w", classify(err))
	}
	return nil
}

// closeRequest carries state_reason, which the pinned go-github IssueRequest
// does not expose
type closeRequest struct {
	State       string `json:"state"`
	StateReason string `json:"state_reason"`
}

// CloseIssue closes an issue as not planned
func (c *Client) CloseIssue(ctx context.Context, owner, repo string, number int) error {
	u := fmt.Sprintf("repos/%v/%v/issues/%d", owner, repo, number)
	req, err := c.client.NewRequest(http.MethodPatch, u, &closeRequest{
		State:       "closed",
		StateReason: "not_planned",
	})
	if err != nil {
		return fmt.Errorf("failed to build close request: %w", err)
	}
	if _, err := c.client.Do(ctx, req, nil); err != nil {
		return fmt.Errorf("failed to close issue: %w", classify(err))
	}
	return nil
}

// GetIssueState returns the current state of an issue
func (c *Client) GetIssueState(ctx context.Context, owner, repo string, number int) (string, error) {
	issue, _, err := c.client.Issues.Get(ctx, owner, repo, number)
	if err != nil {
		return "", fmt.Errorf("failed to get issue: %w", classify(err))
	}
	return issue.GetState(), nil
}

// classify wraps go-github errors with the vcs error kinds
func classify(err error) error {
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return fmt.Errorf("%w: %w", vcs.ErrRateLimited, err)
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		status := respErr.Response.StatusCode
		switch {
		case status == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %w", vcs.ErrRateLimited, err)
		case status == http.StatusNotFound:
			return fmt.Errorf("%w: %w", vcs.ErrNotFound, err)
		case status >= 500:
			return fmt.Errorf("%w: %w", vcs.ErrTransient, err)
		}
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(err.Error(), "connection reset") {
		logging.Debug("Transient GitHub API error", "error", err)
		return fmt.Errorf("%w: %w", vcs.ErrTransient, err)
	}
	return err
}
