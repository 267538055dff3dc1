package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndListScans(t *testing.T) {
	s := newTestStore(t)

	id, err := s.SaveScan(ScanRecord{
		ScanType:         "pr",
		Target:           "octocat/hello-world#42",
		Owner:            "octocat",
		Repo:             "hello-world",
		PRNumber:         42,
		SecurityScore:    45,
		RiskLevel:        "MEDIUM",
		FindingsCount:    2,
		DefiniteCount:    1,
		PotentialCount:   1,
		RegressionsCount: 1,
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	_, err = s.SaveScan(ScanRecord{ScanType: "snippet", Target: "snippet", SecurityScore: 100})
	require.NoError(t, err)

	scans, err := s.RecentScans(10)
	require.NoError(t, err)
	require.Len(t, scans, 2)

	// Newest first.
	assert.Equal(t, "snippet", scans[0].ScanType)
	assert.Equal(t, "pr", scans[1].ScanType)
	assert.Equal(t, 42, scans[1].PRNumber)
	assert.Equal(t, 45, scans[1].SecurityScore)
	assert.Equal(t, "MEDIUM", scans[1].RiskLevel)
	assert.False(t, scans[1].CreatedAt.IsZero())
}

func TestRecentScansLimit(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		_, err := s.SaveScan(ScanRecord{ScanType: "snippet", Target: "snippet", SecurityScore: 100})
		require.NoError(t, err)
	}

	scans, err := s.RecentScans(3)
	require.NoError(t, err)
	assert.Len(t, scans, 3)
}

func TestRecentScansEmpty(t *testing.T) {
	s := newTestStore(t)

	scans, err := s.RecentScans(10)
	require.NoError(t, err)
	assert.Empty(t, scans)
}

func TestSaveAndListRegressions(t *testing.T) {
	s := newTestStore(t)

	_, err := s.SaveRegression(RegressionRecord{
		Owner:         "octocat",
		Repo:          "hello-world",
		PRNumber:      42,
		OriginalFixPR: 12,
		FileAffected:  "src/auth.ts",
		Severity:      "HIGH",
	})
	require.NoError(t, err)

	_, err = s.SaveRegression(RegressionRecord{
		Owner:         "other",
		Repo:          "repo",
		PRNumber:      7,
		OriginalFixPR: 3,
		FileAffected:  "src/db.ts",
		Severity:      "HIGH",
	})
	require.NoError(t, err)

	records, err := s.RegressionsForRepo("octocat", "hello-world", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 42, records[0].PRNumber)
	assert.Equal(t, 12, records[0].OriginalFixPR)
	assert.Equal(t, "src/auth.ts", records[0].FileAffected)
	assert.False(t, records[0].CreatedAt.IsZero())
}

func TestRegressionsForRepoEmpty(t *testing.T) {
	s := newTestStore(t)

	records, err := s.RegressionsForRepo("nobody", "nothing", 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}
