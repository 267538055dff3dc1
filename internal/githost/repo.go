package githost

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v68/github"

	"github.com/julianshen/codearmor/internal/analysis"
)

// maxTreeFiles bounds how many repository files one scan downloads, keeping
// the API cost of a scan predictable even on permissive selectors.
const maxTreeFiles = 30

// skipPrefixes are tree paths never worth downloading.
var skipPrefixes = []string{"node_modules/", "vendor/", "dist/", ".git/"}

// RepoFiles walks the repository tree at the given branch and downloads the
// files the selector accepts, up to maxTreeFiles. Files that disappear
// between the tree listing and the content fetch, directories, and
// undecodable blobs are skipped.
func (c *Client) RepoFiles(ctx context.Context, owner, repo, branch string, relevant func(path string) bool) ([]analysis.RepoFile, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", analysis.ErrUpstream, err)
	}

	tree, _, err := c.gh.Git.GetTree(ctx, owner, repo, branch, true)
	if err != nil {
		return nil, fmt.Errorf("%w: get tree %s/%s@%s: %v", analysis.ErrUpstream, owner, repo, branch, err)
	}

	var paths []string
	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" {
			continue
		}
		path := entry.GetPath()
		if path == "" || skippedPath(path) || !relevant(path) {
			continue
		}
		paths = append(paths, path)
		if len(paths) == maxTreeFiles {
			break
		}
	}

	var files []analysis.RepoFile
	for _, path := range paths {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", analysis.ErrUpstream, err)
		}

		fc, _, _, err := c.gh.Repositories.GetContents(ctx, owner, repo, path, &github.RepositoryContentGetOptions{Ref: branch})
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("%w: get contents %s/%s:%s: %v", analysis.ErrUpstream, owner, repo, path, err)
		}
		if fc == nil {
			continue
		}
		content, err := fc.GetContent()
		if err != nil {
			continue
		}
		files = append(files, analysis.RepoFile{Path: path, Content: content})
	}

	return files, nil
}

func skippedPath(path string) bool {
	for _, prefix := range skipPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func isNotFound(err error) bool {
	var ghErr *github.ErrorResponse
	return errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound
}
