// Package remediation opens automated security-fix pull requests. Definite
// findings are grouped by file, the model rewrites each file with minimal
// fixes, the results are committed to a fresh branch, and a pull request is
// opened against the base branch for human review.
package remediation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/julianshen/codearmor/internal/analysis"
)

// ErrNoDefiniteFindings means nothing qualifies for an automated fix:
// Potential findings require human judgment first.
var ErrNoDefiniteFindings = errors.New("no definite vulnerabilities to fix")

// HostWriter provides the repository write operations a fix PR needs.
// The GitHub adapter in internal/githost is the production implementation.
type HostWriter interface {
	BranchHead(ctx context.Context, owner, repo, branch string) (string, error)
	CreateBranch(ctx context.Context, owner, repo, name, sha string) error
	FileContent(ctx context.Context, owner, repo, path, ref string) (content, sha string, err error)
	UpdateFile(ctx context.Context, owner, repo, path, branch, sha, message, content string) error
	CreatePull(ctx context.Context, owner, repo, head, base, title, body string) (string, error)
}

// Completer produces one free-form completion. Implemented by
// provider.Client's CompleteText.
type Completer interface {
	CompleteText(ctx context.Context, system, user string) (string, error)
}

const fixSystemPrompt = `You are a Senior Security Engineer.
Your task is to FIX the following security vulnerabilities in the provided code file.

VULNERABILITIES TO FIX:
%s

RULES:
1. Apply minimal, production-safe fixes.
2. Do NOT change unrelated code.
3. Do NOT break existing logic.
4. Return ONLY the full content of the fixed file. No Markdown fences.`

// Result summarizes one applied fix run.
type Result struct {
	Branch         string   `json:"branch"`
	PullRequestURL string   `json:"prUrl"`
	FixedFiles     []string `json:"fixedFiles"`
	FindingCount   int      `json:"fixedCount"`
}

// Fixer applies model-generated fixes through a host writer.
type Fixer struct {
	host      HostWriter
	completer Completer
	now       func() time.Time
}

// NewFixer creates a Fixer. The clock is overridable for tests via SetClock.
func NewFixer(host HostWriter, completer Completer) *Fixer {
	return &Fixer{host: host, completer: completer, now: time.Now}
}

// SetClock replaces the branch-name clock.
func (f *Fixer) SetClock(now func() time.Time) {
	f.now = now
}

// Apply fixes all Definite findings and opens a pull request against base.
// Findings without a file path cannot be fixed and are skipped; any host or
// model failure aborts the run, leaving the branch for manual inspection.
func (f *Fixer) Apply(ctx context.Context, owner, repo, base string, findings []analysis.Finding) (*Result, error) {
	paths, byFile := groupDefinite(findings)
	if len(paths) == 0 {
		return nil, ErrNoDefiniteFindings
	}

	baseSHA, err := f.host.BranchHead(ctx, owner, repo, base)
	if err != nil {
		return nil, fmt.Errorf("resolve base branch %s: %w", base, err)
	}

	branch := fmt.Sprintf("codearmor/security-fixes-%d", f.now().Unix())
	if err := f.host.CreateBranch(ctx, owner, repo, branch, baseSHA); err != nil {
		return nil, fmt.Errorf("create fix branch: %w", err)
	}

	total := 0
	for _, path := range paths {
		fileFindings := byFile[path]

		content, sha, err := f.host.FileContent(ctx, owner, repo, path, base)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", path, err)
		}

		fixed, err := f.generateFix(ctx, content, fileFindings)
		if err != nil {
			return nil, fmt.Errorf("generate fix for %s: %w", path, err)
		}

		message := fmt.Sprintf("Security Fix: Resolved %d vulnerabilities", len(fileFindings))
		if err := f.host.UpdateFile(ctx, owner, repo, path, branch, sha, message, fixed); err != nil {
			return nil, fmt.Errorf("commit %s: %w", path, err)
		}
		total += len(fileFindings)
	}

	url, err := f.host.CreatePull(ctx, owner, repo, branch, base, "CodeArmor Security Fixes", pullBody(total, paths))
	if err != nil {
		return nil, fmt.Errorf("open pull request: %w", err)
	}

	return &Result{
		Branch:         branch,
		PullRequestURL: url,
		FixedFiles:     paths,
		FindingCount:   total,
	}, nil
}

// generateFix asks the model for the full fixed file body.
func (f *Fixer) generateFix(ctx context.Context, code string, findings []analysis.Finding) (string, error) {
	var lines []string
	for _, fd := range findings {
		lines = append(lines, fmt.Sprintf("- %s: %s", fd.Title, fd.Description))
	}
	system := fmt.Sprintf(fixSystemPrompt, strings.Join(lines, "\n"))

	raw, err := f.completer.CompleteText(ctx, system, code)
	if err != nil {
		return "", err
	}

	fixed := stripFences(raw)
	if strings.TrimSpace(fixed) == "" {
		return "", errors.New("model returned an empty file")
	}
	return fixed, nil
}

// groupDefinite keeps Definite findings that name a file, grouped by file in
// first-seen order.
func groupDefinite(findings []analysis.Finding) ([]string, map[string][]analysis.Finding) {
	var paths []string
	byFile := make(map[string][]analysis.Finding)
	for _, fd := range findings {
		if fd.Certainty != analysis.CertaintyDefinite || fd.File == "" {
			continue
		}
		if _, ok := byFile[fd.File]; !ok {
			paths = append(paths, fd.File)
		}
		byFile[fd.File] = append(byFile[fd.File], fd)
	}
	return paths, byFile
}

func pullBody(count int, files []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Security Improvements\n\n%d definite vulnerabilities were identified and fixed in the following files:\n\n", count)
	for _, f := range files {
		fmt.Fprintf(&b, "- `%s`\n", f)
	}
	b.WriteString("\n### Please review carefully before merging.\n")
	return b.String()
}

// stripFences removes a surrounding markdown code fence if the model wrapped
// the file in one despite instructions.
func stripFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return trimmed
	}
	end := len(lines)
	if strings.TrimSpace(lines[end-1]) == "```" {
		end--
	}
	return strings.Join(lines[1:end], "\n")
}
