// Package githost adapts the GitHub API to the analysis engine's PRHost
// contract. All errors are wrapped as upstream failures so callers never
// leak raw API detail to users.
package githost

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/go-github/v68/github"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/julianshen/codearmor/internal/analysis"
)

const (
	defaultTimeout = 30 * time.Second
	filesPerPage   = 100

	// Outbound call budget. Regression detection can fan out to dozens of
	// file listings per analysis; this keeps one analysis from burning the
	// whole API quota in a burst.
	callsPerSecond = 5
	callBurst      = 10
)

// Options configures the GitHub client.
type Options struct {
	// Token authenticates requests; empty means anonymous (public repos,
	// low quota).
	Token string
	// BaseURL overrides the API endpoint, mainly for tests and GitHub
	// Enterprise. Must end with a slash.
	BaseURL string
	// Timeout bounds each HTTP request. Zero means defaultTimeout.
	Timeout time.Duration
}

// Client wraps the GitHub REST API with retries, per-request timeouts, and a
// process-wide outbound rate budget.
type Client struct {
	gh      *github.Client
	limiter *rate.Limiter
}

// NewClient creates a GitHub host client.
func NewClient(opts Options) (*Client, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.Logger = nil
	httpClient := rc.StandardClient()
	httpClient.Timeout = timeout

	gh := github.NewClient(httpClient)
	if opts.Token != "" {
		gh = gh.WithAuthToken(opts.Token)
	}
	if opts.BaseURL != "" {
		base, err := url.Parse(opts.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("parse base URL: %w", err)
		}
		gh.BaseURL = base
	}

	return &Client{
		gh:      gh,
		limiter: rate.NewLimiter(rate.Limit(callsPerSecond), callBurst),
	}, nil
}

// PullRequest fetches metadata for one pull request.
func (c *Client) PullRequest(ctx context.Context, owner, repo string, number int) (analysis.PullRequest, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return analysis.PullRequest{}, fmt.Errorf("%w: %v", analysis.ErrUpstream, err)
	}

	pr, _, err := c.gh.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return analysis.PullRequest{}, fmt.Errorf("%w: get pull request %s/%s#%d: %v", analysis.ErrUpstream, owner, repo, number, err)
	}
	return mapPull(pr), nil
}

// ChangedFiles fetches the full change set of a pull request, following
// pagination.
func (c *Client) ChangedFiles(ctx context.Context, owner, repo string, number int) ([]analysis.ChangedFile, error) {
	var files []analysis.ChangedFile
	opts := &github.ListOptions{PerPage: filesPerPage}

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", analysis.ErrUpstream, err)
		}

		page, resp, err := c.gh.PullRequests.ListFiles(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("%w: list files %s/%s#%d: %v", analysis.ErrUpstream, owner, repo, number, err)
		}
		for _, f := range page {
			files = append(files, analysis.ChangedFile{
				Filename:  f.GetFilename(),
				Status:    f.GetStatus(),
				Additions: f.GetAdditions(),
				Deletions: f.GetDeletions(),
				Changes:   f.GetChanges(),
				Patch:     f.GetPatch(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return files, nil
}

// ClosedPulls lists up to limit most-recently-updated closed pull requests.
func (c *Client) ClosedPulls(ctx context.Context, owner, repo string, limit int) ([]analysis.PullRequest, error) {
	var pulls []analysis.PullRequest
	opts := &github.PullRequestListOptions{
		State:     "closed",
		Sort:      "updated",
		Direction: "desc",
		ListOptions: github.ListOptions{
			PerPage: min(limit, filesPerPage),
		},
	}

	for len(pulls) < limit {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", analysis.ErrUpstream, err)
		}

		page, resp, err := c.gh.PullRequests.List(ctx, owner, repo, opts)
		if err != nil {
			return nil, fmt.Errorf("%w: list closed pulls %s/%s: %v", analysis.ErrUpstream, owner, repo, err)
		}
		for _, pr := range page {
			pulls = append(pulls, mapPull(pr))
			if len(pulls) == limit {
				break
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return pulls, nil
}

func mapPull(pr *github.PullRequest) analysis.PullRequest {
	return analysis.PullRequest{
		Number:   pr.GetNumber(),
		Title:    pr.GetTitle(),
		Body:     pr.GetBody(),
		MergedAt: pr.GetMergedAt().Time,
		ClosedAt: pr.GetClosedAt().Time,
	}
}

// ensure the adapter satisfies the engine contract.
var _ analysis.PRHost = (*Client)(nil)
