// Package validate checks user-supplied analysis inputs before they reach
// the engine or any outbound API call.
package validate

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	maxOwnerLength   = 39
	maxRepoLength    = 100
	maxPRNumber      = 1000000
	maxSnippetLength = 50000
)

var (
	ownerPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	repoPattern  = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
)

// OwnerRepo validates a GitHub owner and repository name pair.
func OwnerRepo(owner, repo string) error {
	if owner == "" || len(owner) > maxOwnerLength || !ownerPattern.MatchString(owner) {
		return fmt.Errorf("invalid owner name %q", owner)
	}
	if repo == "" || len(repo) > maxRepoLength || !repoPattern.MatchString(repo) {
		return fmt.Errorf("invalid repository name %q", repo)
	}
	return nil
}

// PRNumber validates a pull request number.
func PRNumber(number int) error {
	if number <= 0 || number >= maxPRNumber {
		return fmt.Errorf("invalid pull request number %d", number)
	}
	return nil
}

// ParseRepo splits an "owner/repo" argument and validates both parts.
func ParseRepo(arg string) (owner, repo string, err error) {
	parts := strings.Split(arg, "/")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("expected owner/repo, got %q", arg)
	}
	owner, repo = parts[0], strings.TrimSuffix(parts[1], ".git")
	if err := OwnerRepo(owner, repo); err != nil {
		return "", "", err
	}
	return owner, repo, nil
}

// SanitizeSnippet caps a code snippet at the maximum analyzable size.
// Returns the (possibly truncated) snippet.
func SanitizeSnippet(code string) string {
	if len(code) > maxSnippetLength {
		return code[:maxSnippetLength]
	}
	return code
}
