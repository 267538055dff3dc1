// Package analysis implements the pull-request risk and regression analysis
// engine: pattern matching over changed files, risk delta scoring, detection
// of reverted security fixes, and aggregation of classifier findings into a
// single security score.
package analysis

import (
	"errors"
	"fmt"
	"time"
)

// Severity represents the severity level of a finding or regression.
type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
)

// Certainty is the binary confidence tag on a finding. Definite means the
// issue is directly exploitable with zero assumptions; Potential is the
// default whenever any assumption or ambiguity remains.
type Certainty string

const (
	CertaintyDefinite  Certainty = "Definite"
	CertaintyPotential Certainty = "Potential"
)

// Category classifies a finding by vulnerability class. It exists so that
// scoring never has to sniff natural-language titles; classifier output that
// lacks a category is mapped from its title as a fallback.
type Category string

const (
	CategorySecret        Category = "secret"
	CategoryAccessControl Category = "access-control"
	CategoryInjection     Category = "injection"
	CategoryOther         Category = "other"
)

// RiskLevel is the discrete risk classification derived from a risk score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// ChangedFile is one file entry from a pull request's change set. Patch is a
// unified-diff fragment and may be empty for binary or oversized files.
type ChangedFile struct {
	Filename  string `json:"filename"`
	Status    string `json:"status"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Changes   int    `json:"changes"`
	Patch     string `json:"patch,omitempty"`
}

// RepoFile is one downloaded repository file submitted to full-repository
// classification.
type RepoFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// ChangedFileCounts tallies how many changed files matched each category
// family. A file matching several families is counted once per family.
type ChangedFileCounts struct {
	Auth     int `json:"auth"`
	Database int `json:"database"`
	API      int `json:"api"`
	Config   int `json:"config"`
}

// RiskDelta is the incremental security risk attributable to a single pull
// request's changes, distinct from the absolute security score of a codebase.
type RiskDelta struct {
	Score        int               `json:"score"`
	Level        RiskLevel         `json:"level"`
	Reasons      []string          `json:"reasons"`
	ChangedFiles ChangedFileCounts `json:"changedFiles"`
}

// SecurityRegression records that a pull request removes lines which a past
// security-fix PR added. One instance is produced per (historical PR, file)
// pair that matches, regardless of how many lines matched.
type SecurityRegression struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	OriginalFixPR   int      `json:"originalFixPR"`
	OriginalFixDate string   `json:"originalFixDate"`
	ReintroducedIn  string   `json:"reintroducedIn"`
	Severity        Severity `json:"severity"`
}

// Finding is a single vulnerability reported by the external classifier. The
// engine never mutates findings; it only scores them.
type Finding struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Severity       Severity  `json:"severity"`
	Certainty      Certainty `json:"certainty"`
	Category       Category  `json:"category,omitempty"`
	Description    string    `json:"description"`
	File           string    `json:"file,omitempty"`
	VulnerableCode string    `json:"vulnerableCode,omitempty"`
	FixedCode      string    `json:"fixedCode,omitempty"`
}

// SecurityStatus is the discrete classification of a security score.
type SecurityStatus string

const (
	StatusSecure         SecurityStatus = "Secure"
	StatusNeedsAttention SecurityStatus = "Needs Attention"
	StatusCritical       SecurityStatus = "Critical"
)

// SecurityScoreResult is the aggregate security score derived from a findings
// list. Recomputing it from the same findings always yields the same value.
type SecurityScoreResult struct {
	Score  int            `json:"score"`
	Status SecurityStatus `json:"status"`
}

// PullRequest is the subset of pull request metadata the engine consumes,
// both for the PR under analysis and for historical closed PRs.
type PullRequest struct {
	Number   int       `json:"number"`
	Title    string    `json:"title"`
	Body     string    `json:"body"`
	MergedAt time.Time `json:"merged_at,omitempty"`
	ClosedAt time.Time `json:"closed_at,omitempty"`
}

// FixedAt returns the merge time if the PR was merged, otherwise the close
// time. Zero when neither is known.
func (p PullRequest) FixedAt() time.Time {
	if !p.MergedAt.IsZero() {
		return p.MergedAt
	}
	return p.ClosedAt
}

// Classification is the structured output of the external finding classifier.
type Classification struct {
	Findings    []Finding `json:"findings"`
	Assumptions []string  `json:"assumptions"`
	Truncated   bool      `json:"truncated,omitempty"`
}

// PRAnalysisResult is the complete result of analyzing one pull request.
type PRAnalysisResult struct {
	RiskDelta   RiskDelta            `json:"riskDelta"`
	Regressions []SecurityRegression `json:"regressions"`
	Findings    []Finding            `json:"findings"`
	Assumptions []string             `json:"assumptions"`
	Score       SecurityScoreResult  `json:"score"`
	Truncated   bool                 `json:"truncated,omitempty"`
}

// ErrUpstream marks failures of an external collaborator (source-code host or
// classifier transport). Callers present these as a generic message and keep
// the wrapped detail out of user-facing output.
var ErrUpstream = errors.New("upstream service unavailable")

// ErrClassifierContract marks empty or unparsable classifier output. It is a
// hard failure: an analysis must never silently report zero findings when the
// classifier did not actually answer.
var ErrClassifierContract = errors.New("classifier returned malformed output")

// SeverityRank returns a numeric rank for ordering severities.
// High=3, Medium=2, Low=1. Unknown severities return 0.
func SeverityRank(s Severity) int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// RiskLevelFor maps a clamped risk score to its discrete level.
func RiskLevelFor(score int) RiskLevel {
	switch {
	case score >= 60:
		return RiskHigh
	case score >= 30:
		return RiskMedium
	default:
		return RiskLow
	}
}

// StatusFor maps an aggregate security score to its discrete status.
func StatusFor(score int) SecurityStatus {
	switch {
	case score >= 80:
		return StatusSecure
	case score >= 50:
		return StatusNeedsAttention
	default:
		return StatusCritical
	}
}

// regressionID builds the deterministic identifier for a regression produced
// by a (historical fix PR, file) pair.
func regressionID(fixPR int, filename string) string {
	return fmt.Sprintf("regression-%d-%s", fixPR, filename)
}
