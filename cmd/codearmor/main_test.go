package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianshen/codearmor/internal/analysis"
	"github.com/julianshen/codearmor/internal/history"
	"github.com/julianshen/codearmor/internal/ratelimit"
)

func TestVersionString(t *testing.T) {
	s := versionString()
	assert.Contains(t, s, "codearmor")
	assert.Contains(t, s, version)
	assert.Contains(t, s, commit)
	assert.Contains(t, s, date)
}

func TestUserMessageUpstream(t *testing.T) {
	err := fmt.Errorf("fetch pull request #4: %w", analysis.ErrUpstream)
	assert.Equal(t, "an upstream service is unavailable, try again later", userMessage(err))
}

func TestUserMessageRateLimit(t *testing.T) {
	reset := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	err := fmt.Errorf("wrapped: %w", &ratelimit.Error{Operation: ratelimit.OpPR, ResetAt: reset})
	assert.Contains(t, userMessage(err), "rate limit exceeded for pr")
	assert.Contains(t, userMessage(err), "2026-01-02T03:04:05Z")
}

func TestUserMessagePassthrough(t *testing.T) {
	err := errors.New("invalid owner name \"!\"")
	assert.Equal(t, "invalid owner name \"!\"", userMessage(err))
}

func TestHistoryCommandRepoRegressions(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "history.db")

	store, err := history.NewStore(dbPath)
	require.NoError(t, err)
	_, err = store.SaveRegression(history.RegressionRecord{
		Owner:         "octocat",
		Repo:          "hello-world",
		PRNumber:      9,
		OriginalFixPR: 4,
		FileAffected:  "src/auth.ts",
		Severity:      "HIGH",
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	cfgFile := filepath.Join(dir, "config.toml")
	cfgBody := fmt.Sprintf("[history]\nenabled = true\npath = %q\n", dbPath)
	require.NoError(t, os.WriteFile(cfgFile, []byte(cfgBody), 0o644))

	configPath = cfgFile
	defer func() { configPath = "" }()

	cmd := historyCmd()
	require.NoError(t, cmd.Flags().Set("repo", "octocat/hello-world"))
	require.NoError(t, cmd.RunE(cmd, nil))
}

func TestRiskLevelFromScore(t *testing.T) {
	assert.Equal(t, analysis.RiskLow, riskLevelFromScore(100))
	assert.Equal(t, analysis.RiskLow, riskLevelFromScore(80))
	assert.Equal(t, analysis.RiskMedium, riskLevelFromScore(79))
	assert.Equal(t, analysis.RiskMedium, riskLevelFromScore(50))
	assert.Equal(t, analysis.RiskHigh, riskLevelFromScore(49))
	assert.Equal(t, analysis.RiskHigh, riskLevelFromScore(0))
}

func TestLoadFindingsFromReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	report := `{"target": "o/r#1", "findings": [{"id": "f-1", "title": "SQLi", "severity": "HIGH", "certainty": "Definite", "file": "db.ts"}], "score": {"score": 40}}`
	require.NoError(t, os.WriteFile(path, []byte(report), 0o644))

	findings, err := loadFindings(path)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "f-1", findings[0].ID)
	assert.Equal(t, analysis.CertaintyDefinite, findings[0].Certainty)
}

func TestLoadFindingsBareArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "findings.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id": "f-2", "title": "XSS"}]`), 0o644))

	findings, err := loadFindings(path)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "f-2", findings[0].ID)
}

func TestLoadFindingsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := loadFindings(path)
	assert.Error(t, err)
}

func TestReadSnippetFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snippet.js")
	require.NoError(t, os.WriteFile(path, []byte("eval(input)"), 0o644))

	fileFlag = path
	defer func() { fileFlag = "" }()

	code, err := readSnippet()
	require.NoError(t, err)
	assert.Equal(t, "eval(input)", code)
}

func TestReadSnippetMissingFile(t *testing.T) {
	fileFlag = filepath.Join(t.TempDir(), "missing.js")
	defer func() { fileFlag = "" }()

	_, err := readSnippet()
	assert.Error(t, err)
}
