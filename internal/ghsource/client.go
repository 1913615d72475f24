// Package ghsource fetches pull-request diffs from GitHub so a split can
// run against a PR instead of a local repository.
package ghsource

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/google/go-github/v57/github"
	"golang.org/x/time/rate"
)

// Client wraps the GitHub API client with client-side rate limiting
type Client struct {
	client      *github.Client
	rateLimiter *rate.Limiter
}

// NewClient creates a GitHub client. An empty token works for public
// repositories at a reduced API quota.
func NewClient(token string, rateLimit int) *Client {
	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return &Client{
		client:      client,
		rateLimiter: rate.NewLimiter(rate.Limit(rateLimit), 1),
	}
}

// FetchPRDiff returns the raw unified diff of a pull request.
func (c *Client) FetchPRDiff(ctx context.Context, owner, repo string, number int) (string, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	diff, _, err := c.client.PullRequests.GetRaw(ctx, owner, repo, number, github.RawOptions{Type: github.Diff})
	if err != nil {
		return "", fmt.Errorf("fetch PR diff %s/%s#%d: %w", owner, repo, number, err)
	}
	return diff, nil
}

// FetchPRTitle returns the PR title, used to seed patch naming.
func (c *Client) FetchPRTitle(ctx context.Context, owner, repo string, number int) (string, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	pr, _, err := c.client.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return "", fmt.Errorf("fetch PR %s/%s#%d: %w", owner, repo, number, err)
	}
	return pr.GetTitle(), nil
}

var (
	prURLPattern   = regexp.MustCompile(`(?:https?://github\.com/)?([\w.-]+)/([\w.-]+)/pull/(\d+)`)
	prShortPattern = regexp.MustCompile(`^([\w.-]+)/([\w.-]+)#(\d+)$`)
)

// ParsePRRef accepts "owner/repo#123" or a full PR URL.
func ParsePRRef(ref string) (owner, repo string, number int, err error) {
	m := prShortPattern.FindStringSubmatch(ref)
	if m == nil {
		m = prURLPattern.FindStringSubmatch(ref)
	}
	if m == nil {
		return "", "", 0, fmt.Errorf("unrecognized pull request reference %q (want owner/repo#number or a PR URL)", ref)
	}
	number, _ = strconv.Atoi(m[3])
	return m[1], m[2], number, nil
}
