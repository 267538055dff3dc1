package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRiskDeltaEmptyChangeSet(t *testing.T) {
	delta := CalculateRiskDelta(nil)

	assert.Equal(t, 0, delta.Score)
	assert.Equal(t, RiskLow, delta.Level)
	assert.Equal(t, []string{reasonBaseline}, delta.Reasons)
	assert.Equal(t, ChangedFileCounts{}, delta.ChangedFiles)
}

func TestRiskDeltaSingleAuthFile(t *testing.T) {
	delta := CalculateRiskDelta([]ChangedFile{
		{Filename: "src/auth/login.ts", Patch: "+  return verify(user)"},
	})

	assert.Equal(t, 15, delta.Score)
	assert.Equal(t, RiskLow, delta.Level)
	assert.Equal(t, []string{reasonAuth}, delta.Reasons)
	assert.Equal(t, 1, delta.ChangedFiles.Auth)
}

func TestRiskDeltaAuthFileWithSecretExposure(t *testing.T) {
	delta := CalculateRiskDelta([]ChangedFile{
		{
			Filename: "src/auth/login.ts",
			Patch:    `+  fetch(base + process.env["TOKEN"])`,
		},
	})

	assert.Equal(t, 45, delta.Score)
	assert.Equal(t, RiskMedium, delta.Level)
	assert.Equal(t, []string{reasonAuth, reasonSecretExposure}, delta.Reasons)
}

func TestRiskDeltaReasonsDeduplicated(t *testing.T) {
	delta := CalculateRiskDelta([]ChangedFile{
		{Filename: "src/auth/login.ts"},
		{Filename: "src/auth/session.ts"},
	})

	assert.Equal(t, 30, delta.Score)
	assert.Equal(t, RiskMedium, delta.Level)
	assert.Equal(t, []string{reasonAuth}, delta.Reasons)
	assert.Equal(t, 2, delta.ChangedFiles.Auth)
}

func TestRiskDeltaDangerousPatternsCountOnce(t *testing.T) {
	delta := CalculateRiskDelta([]ChangedFile{
		{Filename: "src/a.ts", Patch: "+  eval(first)"},
		{Filename: "src/b.ts", Patch: "+  eval(second)"},
	})

	assert.Equal(t, 25, delta.Score)
	assert.Equal(t, []string{reasonUnsafeExec}, delta.Reasons)
}

func TestRiskDeltaClampedAt100(t *testing.T) {
	files := []ChangedFile{
		{Filename: "app/api/auth/config.ts"},
		{Filename: "app/api/auth/session-config.ts"},
		{Filename: "app/api/auth/token-config.ts"},
	}
	delta := CalculateRiskDelta(files)

	assert.Equal(t, 100, delta.Score)
	assert.Equal(t, RiskHigh, delta.Level)
}

func TestRiskDeltaLevelThresholds(t *testing.T) {
	// 15+12 = 27 -> LOW
	low := CalculateRiskDelta([]ChangedFile{
		{Filename: "src/auth.ts"},
		{Filename: "db/query.sql"},
	})
	require.Equal(t, 27, low.Score)
	assert.Equal(t, RiskLow, low.Level)

	// 15+15 = 30 -> MEDIUM boundary
	medium := CalculateRiskDelta([]ChangedFile{
		{Filename: "src/auth.ts"},
		{Filename: "src/login.ts"},
	})
	require.Equal(t, 30, medium.Score)
	assert.Equal(t, RiskMedium, medium.Level)

	// 15+15+30 = 60 -> HIGH boundary
	high := CalculateRiskDelta([]ChangedFile{
		{Filename: "src/auth.ts"},
		{Filename: "src/login.ts", Patch: `+  const api_key = "sk-1"`},
	})
	require.Equal(t, 60, high.Score)
	assert.Equal(t, RiskHigh, high.Level)
}

func TestRiskDeltaFileCountedPerFamily(t *testing.T) {
	delta := CalculateRiskDelta([]ChangedFile{
		{Filename: "app/api/auth/config.ts"},
	})

	// auth 15 + api 10 + config 20
	assert.Equal(t, 45, delta.Score)
	assert.Equal(t, 1, delta.ChangedFiles.Auth)
	assert.Equal(t, 1, delta.ChangedFiles.API)
	assert.Equal(t, 1, delta.ChangedFiles.Config)
	assert.Equal(t, 0, delta.ChangedFiles.Database)
}
