// Package classifier adapts the external LLM reviewer to the analysis
// engine: it builds bounded diff context, enforces the certainty rubric via
// the system prompt, and parses the model's JSON output into findings.
// Empty or unparsable output is a hard failure, never an empty success.
package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/julianshen/codearmor/internal/analysis"
	"github.com/julianshen/codearmor/internal/provider"
)

// Context budget applied to the concatenated diff context. Truncation is
// deterministic: first maxContextFiles files with patches, each patch cut to
// maxPatchLength, then a hard cut of the concatenation.
const (
	maxContextLength = 8000
	maxContextFiles  = 10
	maxPatchLength   = 500

	// Repository snapshots carry whole files instead of diff hunks, so the
	// reduced form allows a longer per-file slice under the same total budget.
	maxRepoFileLength = 1500

	fileSeparator     = "\n\n---\n\n"
	repoFileSeparator = "\n\n"
	truncatedMarker   = "\n... (truncated)"
)

// Completer produces one chat completion. Implemented by provider.Client.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Classifier sends code context to the external model and parses findings.
type Classifier struct {
	completer Completer
}

// New creates a Classifier over the given completer.
func New(completer Completer) *Classifier {
	return &Classifier{completer: completer}
}

// ClassifyChanges reviews a pull request's change set.
func (c *Classifier) ClassifyChanges(ctx context.Context, files []analysis.ChangedFile) (*analysis.Classification, error) {
	diffContext, truncated := buildChangeContext(files)
	user := "Analyze this Pull Request for security issues:\n\n" + diffContext

	raw, err := c.completer.Complete(ctx, prSystemPrompt, user)
	if err != nil {
		return nil, wrapCompleteErr(err)
	}

	result, err := parseClassification(raw)
	if err != nil {
		return nil, err
	}
	result.Truncated = truncated
	return result, nil
}

// ClassifyRepo reviews a snapshot of security-relevant repository files.
func (c *Classifier) ClassifyRepo(ctx context.Context, files []analysis.RepoFile) (*analysis.Classification, error) {
	snapshot, truncated := buildRepoContext(files)
	user := "CODEBASE SNAPSHOT:\n" + snapshot

	raw, err := c.completer.Complete(ctx, repoSystemPrompt, user)
	if err != nil {
		return nil, wrapCompleteErr(err)
	}

	result, err := parseClassification(raw)
	if err != nil {
		return nil, err
	}
	result.Truncated = truncated
	return result, nil
}

// ClassifySnippet reviews a standalone code snippet.
func (c *Classifier) ClassifySnippet(ctx context.Context, code string) (*analysis.Classification, error) {
	user := fmt.Sprintf("CODE SNIPPET:\n```\n%s\n```", code)

	raw, err := c.completer.Complete(ctx, snippetSystemPrompt, user)
	if err != nil {
		return nil, wrapCompleteErr(err)
	}

	return parseClassification(raw)
}

// wrapCompleteErr classifies a completer failure. An empty completion means
// the model answered with nothing, which is a contract violation, not a
// transport problem.
func wrapCompleteErr(err error) error {
	if errors.Is(err, provider.ErrEmptyCompletion) {
		return fmt.Errorf("%w: %v", analysis.ErrClassifierContract, err)
	}
	return fmt.Errorf("%w: %v", analysis.ErrUpstream, err)
}

// buildChangeContext concatenates per-file diff blocks and reports whether
// the result was truncated to fit the context budget.
func buildChangeContext(files []analysis.ChangedFile) (string, bool) {
	full := joinBlocks(files, len(files), 0)
	if len(full) <= maxContextLength {
		return full, false
	}

	reduced := joinBlocks(files, maxContextFiles, maxPatchLength)
	if len(reduced) > maxContextLength {
		reduced = reduced[:maxContextLength]
	}
	return reduced, true
}

// buildRepoContext renders repository files as snapshot blocks under the same
// budget and truncation scheme as PR context.
func buildRepoContext(files []analysis.RepoFile) (string, bool) {
	full := joinFileBlocks(files, len(files), 0)
	if len(full) <= maxContextLength {
		return full, false
	}

	reduced := joinFileBlocks(files, maxContextFiles, maxRepoFileLength)
	if len(reduced) > maxContextLength {
		reduced = reduced[:maxContextLength]
	}
	return reduced, true
}

// joinFileBlocks renders up to maxFiles non-empty repository files. A maxLen
// of 0 means contents are included whole.
func joinFileBlocks(files []analysis.RepoFile, maxFiles, maxLen int) string {
	var blocks []string
	for _, f := range files {
		content := strings.TrimSpace(f.Content)
		if content == "" {
			continue
		}
		if len(blocks) >= maxFiles {
			break
		}
		if maxLen > 0 && len(content) > maxLen {
			content = content[:maxLen] + truncatedMarker
		}
		blocks = append(blocks, fmt.Sprintf("FILE: %s\n----------------\n%s", f.Path, content))
	}
	return strings.Join(blocks, repoFileSeparator)
}

// joinBlocks renders up to maxFiles patched files as context blocks. A
// maxPatch of 0 means patches are included whole.
func joinBlocks(files []analysis.ChangedFile, maxFiles, maxPatch int) string {
	var blocks []string
	for _, f := range files {
		if f.Patch == "" {
			continue
		}
		if len(blocks) >= maxFiles {
			break
		}
		patch := f.Patch
		if maxPatch > 0 && len(patch) > maxPatch {
			patch = patch[:maxPatch] + truncatedMarker
		}
		blocks = append(blocks, fmt.Sprintf("File: %s\nChanges:\n%s", f.Filename, patch))
	}
	return strings.Join(blocks, fileSeparator)
}

// wireFinding is the JSON shape the prompts instruct the model to return.
type wireFinding struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Severity       string `json:"severity"`
	Certainty      string `json:"certainty"`
	Category       string `json:"category"`
	Description    string `json:"description"`
	File           string `json:"file"`
	VulnerableCode string `json:"vulnerableCode"`
	FixedCode      string `json:"fixedCode"`
}

type wireClassification struct {
	Findings    []wireFinding `json:"findings"`
	Assumptions []string      `json:"assumptions"`
}

// parseClassification decodes the model response. Any deviation from the
// contract (empty body, fence-wrapped garbage, non-object JSON) is an
// ErrClassifierContract failure.
func parseClassification(raw string) (*analysis.Classification, error) {
	trimmed := stripCodeFences(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty response", analysis.ErrClassifierContract)
	}
	// A bare "null", array, or prose would unmarshal into a zero value and
	// masquerade as a clean result; only an object is acceptable.
	if !strings.HasPrefix(trimmed, "{") {
		return nil, fmt.Errorf("%w: expected a JSON object", analysis.ErrClassifierContract)
	}

	var wire wireClassification
	if err := json.Unmarshal([]byte(trimmed), &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", analysis.ErrClassifierContract, err)
	}

	result := &analysis.Classification{
		Findings:    make([]analysis.Finding, 0, len(wire.Findings)),
		Assumptions: wire.Assumptions,
	}
	if result.Assumptions == nil {
		result.Assumptions = []string{}
	}
	for _, w := range wire.Findings {
		result.Findings = append(result.Findings, mapFinding(w))
	}
	return result, nil
}

// stripCodeFences removes a surrounding markdown code fence if the model
// wrapped its JSON in one.
func stripCodeFences(raw string) string {
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
	return strings.TrimSpace(strings.Join(lines[1:end], "\n"))
}

func mapFinding(w wireFinding) analysis.Finding {
	f := analysis.Finding{
		ID:             w.ID,
		Title:          w.Title,
		Severity:       mapSeverity(w.Severity),
		Certainty:      mapCertainty(w.Certainty),
		Category:       mapCategory(w.Category, w.Title),
		Description:    w.Description,
		File:           w.File,
		VulnerableCode: w.VulnerableCode,
		FixedCode:      w.FixedCode,
	}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return f
}

func mapSeverity(s string) analysis.Severity {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "HIGH":
		return analysis.SeverityHigh
	case "MEDIUM":
		return analysis.SeverityMedium
	default:
		return analysis.SeverityLow
	}
}

// mapCertainty defaults to Potential: under the rubric, anything the model
// did not explicitly mark Definite requires assumptions.
func mapCertainty(c string) analysis.Certainty {
	if strings.EqualFold(strings.TrimSpace(c), "definite") {
		return analysis.CertaintyDefinite
	}
	return analysis.CertaintyPotential
}

// mapCategory prefers the explicit tag and falls back to title keywords for
// models that omit the field.
func mapCategory(category, title string) analysis.Category {
	switch strings.ToLower(strings.TrimSpace(category)) {
	case "secret", "secrets", "hardcoded-secret":
		return analysis.CategorySecret
	case "access-control", "auth", "authorization", "authentication", "idor":
		return analysis.CategoryAccessControl
	case "injection", "sqli", "xss":
		return analysis.CategoryInjection
	case "other":
		return analysis.CategoryOther
	}

	lower := strings.ToLower(title)
	switch {
	case strings.Contains(lower, "secret") || strings.Contains(lower, "key") || strings.Contains(lower, "credential"):
		return analysis.CategorySecret
	case strings.Contains(lower, "injection") || strings.Contains(lower, "xss"):
		return analysis.CategoryInjection
	case strings.Contains(lower, "auth") || strings.Contains(lower, "access control") || strings.Contains(lower, "idor"):
		return analysis.CategoryAccessControl
	default:
		return analysis.CategoryOther
	}
}
