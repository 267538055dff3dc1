// Package output renders analysis results for the CLI.
package output

import (
	"github.com/julianshen/codearmor/internal/analysis"
)

// Report holds the collected output from one analysis run. PR-only sections
// are omitted for snippet scans.
type Report struct {
	Target      string                        `json:"target"`
	ScanType    string                        `json:"scan_type"`
	RiskDelta   *analysis.RiskDelta           `json:"riskDelta,omitempty"`
	Regressions []analysis.SecurityRegression `json:"regressions,omitempty"`
	Files       []string                      `json:"files,omitempty"`
	Findings    []analysis.Finding            `json:"findings"`
	Assumptions []string                      `json:"assumptions,omitempty"`
	Score       analysis.SecurityScoreResult  `json:"score"`
	Truncated   bool                          `json:"truncated,omitempty"`
	DurationMs  int64                         `json:"duration_ms"`
}

// Formatter formats a Report into output bytes.
type Formatter interface {
	Format(report *Report) ([]byte, error)
}

// ForFormat returns the formatter for a format name, defaulting to Markdown.
func ForFormat(name string) Formatter {
	if name == "json" {
		return NewJSONFormatter()
	}
	return NewMarkdownFormatter()
}

// StatusEmoji returns the traffic-light marker for a security status.
func StatusEmoji(status analysis.SecurityStatus) string {
	switch status {
	case analysis.StatusSecure:
		return "🟢"
	case analysis.StatusNeedsAttention:
		return "🟡"
	default:
		return "🔴"
	}
}
