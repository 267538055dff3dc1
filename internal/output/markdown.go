package output

import (
	"fmt"
	"strings"
)

// MarkdownFormatter outputs a Report as human-readable Markdown.
type MarkdownFormatter struct{}

// NewMarkdownFormatter creates a new MarkdownFormatter.
func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Format renders the Report as Markdown.
func (f *MarkdownFormatter) Format(report *Report) ([]byte, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "# Security Analysis: %s\n\n", report.Target)
	fmt.Fprintf(&b, "%s **%s** — score %d/100\n", StatusEmoji(report.Score.Status), report.Score.Status, report.Score.Score)
	if report.Truncated {
		b.WriteString("\n> Note: the change set exceeded the context budget and was truncated before classification.\n")
	}

	if report.RiskDelta != nil {
		d := report.RiskDelta
		fmt.Fprintf(&b, "\n## Risk Delta\n\n**%s** (%d/100)\n\n", d.Level, d.Score)
		for _, r := range d.Reasons {
			fmt.Fprintf(&b, "- %s\n", r)
		}
		fmt.Fprintf(&b, "\nChanged files by category: auth %d, database %d, api %d, config %d\n",
			d.ChangedFiles.Auth, d.ChangedFiles.Database, d.ChangedFiles.API, d.ChangedFiles.Config)
	}

	if len(report.Files) > 0 {
		b.WriteString("\n## Files Analyzed\n\n")
		for _, path := range report.Files {
			fmt.Fprintf(&b, "- `%s`\n", path)
		}
	}

	if len(report.Regressions) > 0 {
		b.WriteString("\n## Security Regressions\n\n")
		for _, r := range report.Regressions {
			fmt.Fprintf(&b, "- **%s** (%s): %s\n", r.Title, r.Severity, r.Description)
		}
	}

	b.WriteString("\n## Findings\n\n")
	if len(report.Findings) == 0 {
		b.WriteString("No findings.\n")
	}
	for _, fd := range report.Findings {
		fmt.Fprintf(&b, "### %s [%s, %s]\n\n%s\n", fd.Title, fd.Severity, fd.Certainty, fd.Description)
		if fd.File != "" {
			fmt.Fprintf(&b, "\nFile: `%s`\n", fd.File)
		}
		if fd.VulnerableCode != "" {
			fmt.Fprintf(&b, "\n```\n%s\n```\n", fd.VulnerableCode)
		}
		if fd.FixedCode != "" {
			fmt.Fprintf(&b, "\nSuggested fix:\n\n```\n%s\n```\n", fd.FixedCode)
		}
		b.WriteString("\n")
	}

	if len(report.Assumptions) > 0 {
		b.WriteString("## Assumptions\n\n")
		for _, a := range report.Assumptions {
			fmt.Fprintf(&b, "- %s\n", a)
		}
	}

	fmt.Fprintf(&b, "\n---\n*Completed in %dms*\n", report.DurationMs)

	return []byte(b.String()), nil
}
