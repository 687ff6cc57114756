// Package github implements the GitHubClient port using the go-github library.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/ericfisherdev/prsync/internal/domain/model"
	"github.com/ericfisherdev/prsync/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.GitHubClient = (*Client)(nil)

// Client implements the driven.GitHubClient port using the go-github
// library. It is stateless apart from the quota gate, which caches the
// rate-limit counters observed on responses.
type Client struct {
	gh      *gh.Client
	gate    *quotaGate
	retry   retryPolicy
	perPage int
}

// Options tune the client's paging, pacing and retry behavior. The zero
// value selects the defaults.
type Options struct {
	// PerPage is the page size requested from list endpoints (default 100).
	PerPage int
	// RequestDelay is the minimum interval between consecutive requests.
	RequestDelay time.Duration
	// MaxAttempts bounds retries of transient network failures (default 3).
	MaxAttempts int
}

func (o Options) withDefaults() Options {
	if o.PerPage <= 0 {
		o.PerPage = 100
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	return o
}

// NewClient creates a GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with bearer token auth)
//
// Primary rate limits are handled by the client's own quota gate, which
// blocks before a request whenever the previously observed remaining budget
// is zero and its reset time has not yet elapsed.
func NewClient(token string, opts Options) *Client {
	opts = opts.withDefaults()

	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient).WithAuthToken(token)

	retry := defaultRetryPolicy()
	retry.maxAttempts = uint64(opts.MaxAttempts)

	return &Client{
		gh:      client,
		gate:    newQuotaGate(opts.RequestDelay),
		retry:   retry,
		perPage: opts.PerPage,
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and
// base URL. This constructor is intended for testing, allowing injection of
// an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string, opts Options) (*Client, error) {
	opts = opts.withDefaults()

	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	retry := defaultRetryPolicy()
	retry.maxAttempts = uint64(opts.MaxAttempts)
	retry.initialInterval = 10 * time.Millisecond

	return &Client{
		gh:      client,
		gate:    newQuotaGate(opts.RequestDelay),
		retry:   retry,
		perPage: opts.PerPage,
	}, nil
}

// FetchRepository retrieves the repository record for owner/repo.
func (c *Client) FetchRepository(ctx context.Context, repoFullName string) (*model.Repository, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	var out model.Repository
	err = c.retry.do(ctx, func() error {
		if err := c.gate.Wait(ctx); err != nil {
			return err
		}

		r, resp, err := c.gh.Repositories.Get(ctx, owner, repo)
		c.observe(resp, repoFullName, 0, 1)
		if err != nil {
			return classify(err)
		}

		out, err = mapRepository(r)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetching repository %s: %w", repoFullName, err)
	}

	return &out, nil
}

// FetchPullRequests retrieves every pull request of the repository updated
// at or after since, in any state. The REST pulls endpoint has no since
// parameter, so results are requested sorted by updated_at descending and
// pagination stops once a page crosses the since boundary. A zero since
// fetches the full history.
func (c *Client) FetchPullRequests(ctx context.Context, repoFullName string, since time.Time) ([]model.PullRequest, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	opts := &gh.PullRequestListOptions{
		State:     "all",
		Sort:      "updated",
		Direction: "desc",
		ListOptions: gh.ListOptions{
			PerPage: c.perPage,
		},
	}

	all := []model.PullRequest{}

	for {
		var prs []*gh.PullRequest
		var resp *gh.Response

		err := c.retry.do(ctx, func() error {
			if err := c.gate.Wait(ctx); err != nil {
				return err
			}

			var err error
			prs, resp, err = c.gh.PullRequests.List(ctx, owner, repo, opts)
			c.observe(resp, repoFullName, opts.Page, len(prs))
			return classify(err)
		})
		if err != nil {
			return nil, fmt.Errorf("listing pull requests for %s (page %d): %w", repoFullName, opts.Page, err)
		}

		crossed := false
		for _, pr := range prs {
			if !since.IsZero() && pr.GetUpdatedAt().Time.Before(since) {
				// Ordered by updated_at descending, so everything from here
				// on predates the watermark.
				crossed = true
				break
			}

			mapped, err := mapPullRequest(pr, 0)
			if err != nil {
				slog.Warn("skipping pull request", "repo", repoFullName, "error", err)
				continue
			}
			all = append(all, mapped)
		}

		if crossed || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// FetchIssueComments retrieves the PR-level discussion comments (from the
// Issues API) for one pull request, updated at or after since.
func (c *Client) FetchIssueComments(ctx context.Context, repoFullName string, prNumber int, since time.Time) ([]model.IssueComment, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	opts := &gh.IssueListCommentsOptions{
		ListOptions: gh.ListOptions{PerPage: c.perPage},
	}
	if !since.IsZero() {
		s := since
		opts.Since = &s
	}

	all := []model.IssueComment{}

	for {
		var comments []*gh.IssueComment
		var resp *gh.Response

		err := c.retry.do(ctx, func() error {
			if err := c.gate.Wait(ctx); err != nil {
				return err
			}

			var err error
			comments, resp, err = c.gh.Issues.ListComments(ctx, owner, repo, prNumber, opts)
			c.observe(resp, repoFullName, opts.Page, len(comments))
			return classify(err)
		})
		if err != nil {
			return nil, fmt.Errorf("listing issue comments for %s#%d (page %d): %w", repoFullName, prNumber, opts.Page, err)
		}

		for _, comment := range comments {
			mapped, err := mapIssueComment(comment, 0)
			if err != nil {
				slog.Warn("skipping issue comment", "repo", repoFullName, "pr", prNumber, "error", err)
				continue
			}
			all = append(all, mapped)
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// FetchReviewComments retrieves the inline review comments for one pull
// request, updated at or after since.
func (c *Client) FetchReviewComments(ctx context.Context, repoFullName string, prNumber int, since time.Time) ([]model.ReviewComment, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	opts := &gh.PullRequestListCommentsOptions{
		Sort:        "updated",
		Direction:   "asc",
		Since:       since,
		ListOptions: gh.ListOptions{PerPage: c.perPage},
	}

	all := []model.ReviewComment{}

	for {
		var comments []*gh.PullRequestComment
		var resp *gh.Response

		err := c.retry.do(ctx, func() error {
			if err := c.gate.Wait(ctx); err != nil {
				return err
			}

			var err error
			comments, resp, err = c.gh.PullRequests.ListComments(ctx, owner, repo, prNumber, opts)
			c.observe(resp, repoFullName, opts.Page, len(comments))
			return classify(err)
		})
		if err != nil {
			return nil, fmt.Errorf("listing review comments for %s#%d (page %d): %w", repoFullName, prNumber, opts.Page, err)
		}

		for _, comment := range comments {
			mapped, err := mapReviewComment(comment, 0)
			if err != nil {
				slog.Warn("skipping review comment", "repo", repoFullName, "pr", prNumber, "error", err)
				continue
			}
			all = append(all, mapped)
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// observe feeds the response's rate metadata to the quota gate and logs the
// remaining budget.
func (c *Client) observe(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	c.gate.Update(resp.Rate)

	slog.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Limit > 0 && resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

// splitRepo splits a "owner/repo" string into its two components.
func splitRepo(fullName string) (string, string, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo name %q: expected owner/repo", fullName)
	}
	return parts[0], parts[1], nil
}
