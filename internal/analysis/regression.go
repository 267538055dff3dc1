package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"
)

// minMatchLength is the minimum trimmed length for a line to count as a
// regression match. Shorter lines (braces, blank lines, bare returns) produce
// far too many coincidental matches across unrelated diffs.
const minMatchLength = 10

// securityTitleKeywords qualify a closed PR as security-relevant when found
// in its title; securityBodyKeywords apply to the body. Matching is a
// case-insensitive substring test, deliberately permissive: false positives
// surface downstream as HIGH-severity regressions for a human to dismiss
// rather than being silently dropped.
var (
	securityTitleKeywords = []string{"security", "fix", "vulnerability", "cve"}
	securityBodyKeywords  = []string{"security fix", "vulnerability"}
)

// HistoricalSource provides read access to a repository's closed pull
// requests and their change sets.
type HistoricalSource interface {
	ClosedPulls(ctx context.Context, owner, repo string, limit int) ([]PullRequest, error)
	ChangedFiles(ctx context.Context, owner, repo string, number int) ([]ChangedFile, error)
}

// RegressionConfig bounds the regression detector's historical window and
// fan-out.
type RegressionConfig struct {
	HistoryLimit   int // closed PRs fetched from the host
	MaxSecurityPRs int // qualifying PRs actually analyzed
	Concurrency    int // concurrent per-PR file fetches
}

// DefaultRegressionConfig returns the standard detector bounds.
func DefaultRegressionConfig() RegressionConfig {
	return RegressionConfig{
		HistoryLimit:   50,
		MaxSecurityPRs: 20,
		Concurrency:    4,
	}
}

// RegressionDetector flags pull requests that remove lines added by an
// earlier security-fix PR in the same file.
type RegressionDetector struct {
	source HistoricalSource
	config RegressionConfig
}

// NewRegressionDetector creates a detector over the given historical source.
// Zero config fields fall back to defaults.
func NewRegressionDetector(source HistoricalSource, config RegressionConfig) *RegressionDetector {
	def := DefaultRegressionConfig()
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = def.HistoryLimit
	}
	if config.MaxSecurityPRs <= 0 {
		config.MaxSecurityPRs = def.MaxSecurityPRs
	}
	if config.Concurrency <= 0 {
		config.Concurrency = def.Concurrency
	}
	return &RegressionDetector{source: source, config: config}
}

// Detect compares the current change set against recent security-fix PRs and
// returns any regressions found. Detection degrades instead of failing: a
// failed historical lookup excludes that PR and nothing else, and a failure
// to list closed PRs at all yields an empty result.
func (d *RegressionDetector) Detect(ctx context.Context, owner, repo string, current []ChangedFile) []SecurityRegression {
	if len(current) == 0 {
		return nil
	}

	closed, err := d.source.ClosedPulls(ctx, owner, repo, d.config.HistoryLimit)
	if err != nil {
		return nil
	}

	securityPRs := filterSecurityPRs(closed)
	if len(securityPRs) > d.config.MaxSecurityPRs {
		securityPRs = securityPRs[:d.config.MaxSecurityPRs]
	}

	// Per-PR file fetches are independent; run them concurrently with each
	// goroutine writing its own result slot so output order stays stable.
	perPR := make([][]SecurityRegression, len(securityPRs))
	p := pool.New().WithMaxGoroutines(d.config.Concurrency)
	for i, fixPR := range securityPRs {
		i, fixPR := i, fixPR
		p.Go(func() {
			files, err := d.source.ChangedFiles(ctx, owner, repo, fixPR.Number)
			if err != nil {
				return // skip this PR, keep the rest
			}
			perPR[i] = matchAgainstFix(fixPR, files, current)
		})
	}
	p.Wait()

	var regressions []SecurityRegression
	for _, r := range perPR {
		regressions = append(regressions, r...)
	}
	return regressions
}

// filterSecurityPRs keeps closed PRs whose title or body suggests a security
// fix, preserving input order (most recently updated first).
func filterSecurityPRs(prs []PullRequest) []PullRequest {
	var out []PullRequest
	for _, pr := range prs {
		if isSecurityPR(pr) {
			out = append(out, pr)
		}
	}
	return out
}

func isSecurityPR(pr PullRequest) bool {
	title := strings.ToLower(pr.Title)
	for _, kw := range securityTitleKeywords {
		if strings.Contains(title, kw) {
			return true
		}
	}
	body := strings.ToLower(pr.Body)
	for _, kw := range securityBodyKeywords {
		if strings.Contains(body, kw) {
			return true
		}
	}
	return false
}

// matchAgainstFix emits at most one regression per file that appears in both
// the historical fix and the current PR where a fix-added line is being
// removed again.
func matchAgainstFix(fixPR PullRequest, fixFiles, current []ChangedFile) []SecurityRegression {
	fixByPath := make(map[string]ChangedFile, len(fixFiles))
	for _, f := range fixFiles {
		fixByPath[f.Filename] = f
	}

	var regressions []SecurityRegression
	for _, cur := range current {
		fix, ok := fixByPath[cur.Filename]
		if !ok || cur.Patch == "" || fix.Patch == "" {
			continue
		}
		if !revertsFix(fix.Patch, cur.Patch) {
			continue
		}
		regressions = append(regressions, SecurityRegression{
			ID:    regressionID(fixPR.Number, cur.Filename),
			Title: fmt.Sprintf("Potential regression of security fix from PR #%d", fixPR.Number),
			Description: fmt.Sprintf(
				"This PR modifies %s, which was previously fixed in PR #%d (%s). "+
					"Review carefully to ensure the security fix is not being reverted.",
				cur.Filename, fixPR.Number, fixPR.Title,
			),
			OriginalFixPR:   fixPR.Number,
			OriginalFixDate: formatFixDate(fixPR.FixedAt()),
			ReintroducedIn:  cur.Filename,
			// Reverting a security fix is inherently high severity, whatever
			// the original fix's severity was.
			Severity: SeverityHigh,
		})
	}
	return regressions
}

// revertsFix reports whether the current patch removes any line the fix patch
// added. Lines are compared byte-identical after stripping the diff prefix
// and trimming whitespace; matches at or below the minimum length are ignored.
func revertsFix(fixPatch, currentPatch string) bool {
	added := diffLines(fixPatch, "+", "+++")
	if len(added) == 0 {
		return false
	}
	for removed := range diffLines(currentPatch, "-", "---") {
		if added[removed] {
			return true
		}
	}
	return false
}

// diffLines collects the trimmed content of diff lines carrying the given
// prefix, excluding the file-header marker and lines too short to be
// meaningful matches.
func diffLines(patch, prefix, headerPrefix string) map[string]bool {
	lines := make(map[string]bool)
	for _, line := range strings.Split(patch, "\n") {
		if !strings.HasPrefix(line, prefix) || strings.HasPrefix(line, headerPrefix) {
			continue
		}
		trimmed := strings.TrimSpace(line[1:])
		if len(trimmed) > minMatchLength {
			lines[trimmed] = true
		}
	}
	return lines
}

func formatFixDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
