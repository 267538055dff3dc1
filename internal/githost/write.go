package githost

import (
	"context"
	"fmt"

	"github.com/google/go-github/v68/github"

	"github.com/julianshen/codearmor/internal/analysis"
	"github.com/julianshen/codearmor/internal/remediation"
)

// ensure the adapter satisfies the fixer's contract.
var _ remediation.HostWriter = (*Client)(nil)

// BranchHead resolves the commit SHA a branch currently points at.
func (c *Client) BranchHead(ctx context.Context, owner, repo, branch string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", analysis.ErrUpstream, err)
	}

	ref, _, err := c.gh.Git.GetRef(ctx, owner, repo, "heads/"+branch)
	if err != nil {
		return "", fmt.Errorf("%w: get ref %s/%s heads/%s: %v", analysis.ErrUpstream, owner, repo, branch, err)
	}
	return ref.GetObject().GetSHA(), nil
}

// CreateBranch creates a new branch pointing at the given commit SHA.
func (c *Client) CreateBranch(ctx context.Context, owner, repo, name, sha string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", analysis.ErrUpstream, err)
	}

	ref := &github.Reference{
		Ref:    github.Ptr("refs/heads/" + name),
		Object: &github.GitObject{SHA: github.Ptr(sha)},
	}
	if _, _, err := c.gh.Git.CreateRef(ctx, owner, repo, ref); err != nil {
		return fmt.Errorf("%w: create branch %s/%s %s: %v", analysis.ErrUpstream, owner, repo, name, err)
	}
	return nil
}

// FileContent fetches one file's decoded content and blob SHA at a ref.
func (c *Client) FileContent(ctx context.Context, owner, repo, path, ref string) (content, sha string, err error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", "", fmt.Errorf("%w: %v", analysis.ErrUpstream, err)
	}

	fc, _, _, err := c.gh.Repositories.GetContents(ctx, owner, repo, path, &github.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		return "", "", fmt.Errorf("%w: get contents %s/%s:%s: %v", analysis.ErrUpstream, owner, repo, path, err)
	}
	if fc == nil {
		return "", "", fmt.Errorf("path %s is not a file", path)
	}
	content, err = fc.GetContent()
	if err != nil {
		return "", "", fmt.Errorf("decode contents %s: %w", path, err)
	}
	return content, fc.GetSHA(), nil
}

// UpdateFile commits new content for one file on a branch.
func (c *Client) UpdateFile(ctx context.Context, owner, repo, path, branch, sha, message, content string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", analysis.ErrUpstream, err)
	}

	opts := &github.RepositoryContentFileOptions{
		Message: github.Ptr(message),
		Content: []byte(content),
		Branch:  github.Ptr(branch),
		SHA:     github.Ptr(sha),
	}
	if _, _, err := c.gh.Repositories.UpdateFile(ctx, owner, repo, path, opts); err != nil {
		return fmt.Errorf("%w: update file %s/%s:%s: %v", analysis.ErrUpstream, owner, repo, path, err)
	}
	return nil
}

// CreatePull opens a pull request and returns its HTML URL.
func (c *Client) CreatePull(ctx context.Context, owner, repo, head, base, title, body string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", analysis.ErrUpstream, err)
	}

	pr, _, err := c.gh.PullRequests.Create(ctx, owner, repo, &github.NewPullRequest{
		Title: github.Ptr(title),
		Head:  github.Ptr(head),
		Base:  github.Ptr(base),
		Body:  github.Ptr(body),
	})
	if err != nil {
		return "", fmt.Errorf("%w: create pull %s/%s %s->%s: %v", analysis.ErrUpstream, owner, repo, head, base, err)
	}
	return pr.GetHTMLURL(), nil
}
