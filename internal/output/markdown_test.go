package output

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianshen/codearmor/internal/analysis"
)

func TestMarkdownFormatter(t *testing.T) {
	report := &Report{
		Target:   "octocat/hello-world#42",
		ScanType: "pr",
		RiskDelta: &analysis.RiskDelta{
			Score:   45,
			Level:   analysis.RiskMedium,
			Reasons: []string{"Authentication logic modified", "Potential secret or credential exposure"},
			ChangedFiles: analysis.ChangedFileCounts{
				Auth: 1,
			},
		},
		Regressions: []analysis.SecurityRegression{
			{
				Title:       "Potential regression of security fix #12",
				Severity:    analysis.SeverityHigh,
				Description: "This PR modifies src/auth.ts, which was previously fixed in PR #12.",
			},
		},
		Findings: []analysis.Finding{
			{
				Title:          "Hardcoded API Key",
				Severity:       analysis.SeverityHigh,
				Certainty:      analysis.CertaintyDefinite,
				Description:    "A credential is committed in source.",
				File:           "src/config.ts",
				VulnerableCode: `const key = "sk-123"`,
				FixedCode:      `const key = process.env.API_KEY`,
			},
		},
		Assumptions: []string{"Assumed the endpoint is internet-facing."},
		Score:       analysis.SecurityScoreResult{Score: 45, Status: analysis.StatusCritical},
		Truncated:   true,
		DurationMs:  980,
	}

	data, err := NewMarkdownFormatter().Format(report)
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, "# Security Analysis: octocat/hello-world#42")
	assert.Contains(t, text, "🔴 **Critical** — score 45/100")
	assert.Contains(t, text, "truncated before classification")
	assert.Contains(t, text, "## Risk Delta")
	assert.Contains(t, text, "- Authentication logic modified")
	assert.Contains(t, text, "auth 1, database 0, api 0, config 0")
	assert.Contains(t, text, "## Security Regressions")
	assert.Contains(t, text, "### Hardcoded API Key [HIGH, Definite]")
	assert.Contains(t, text, "File: `src/config.ts`")
	assert.Contains(t, text, "Suggested fix:")
	assert.Contains(t, text, "## Assumptions")
	assert.Contains(t, text, "*Completed in 980ms*")
}

func TestMarkdownFormatterRepoScan(t *testing.T) {
	report := &Report{
		Target:   "octocat/hello-world@main",
		ScanType: "repo",
		Files:    []string{"middleware.ts", "app/api/login/route.ts"},
		Findings: []analysis.Finding{
			{Title: "Missing auth check", Severity: analysis.SeverityHigh, Certainty: analysis.CertaintyPotential},
		},
		Score: analysis.SecurityScoreResult{Score: 62, Status: analysis.StatusNeedsAttention},
	}

	data, err := NewMarkdownFormatter().Format(report)
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, "# Security Analysis: octocat/hello-world@main")
	assert.Contains(t, text, "## Files Analyzed")
	assert.Contains(t, text, "- `middleware.ts`")
	assert.Contains(t, text, "- `app/api/login/route.ts`")
	assert.NotContains(t, text, "## Risk Delta")
}

func TestMarkdownFormatterNoFindings(t *testing.T) {
	report := &Report{
		Target:   "snippet",
		ScanType: "snippet",
		Score:    analysis.SecurityScoreResult{Score: 100, Status: analysis.StatusSecure},
	}

	data, err := NewMarkdownFormatter().Format(report)
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, "🟢 **Secure** — score 100/100")
	assert.Contains(t, text, "No findings.")
	assert.NotContains(t, text, "## Risk Delta")
	assert.NotContains(t, text, "## Security Regressions")
}
