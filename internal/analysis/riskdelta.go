package analysis

// Category weights are applied once per file per matched family. Dangerous
// pattern weights are applied once per class across the whole PR.
const (
	weightAuth     = 15
	weightDatabase = 12
	weightAPI      = 10
	weightConfig   = 20

	weightUnsafeExec     = 25
	weightSecretExposure = 30
)

// Fixed reason strings attached to the risk delta. Each appears at most once
// regardless of how many files triggered it.
const (
	reasonAuth           = "Authentication logic modified"
	reasonDatabase       = "Database access patterns changed"
	reasonAPI            = "Public API endpoints modified"
	reasonConfig         = "Configuration or secrets updated"
	reasonUnsafeExec     = "Potentially unsafe code patterns introduced"
	reasonSecretExposure = "Potential secrets exposure detected"
	reasonBaseline       = "Standard code changes with no high-risk patterns detected"
)

// RiskDelta aggregates pattern-matcher signals over a PR's full change set
// into a bounded risk score, a discrete level, and deduplicated reasons. It
// is total: any file list, including an empty one, produces a valid result.
func (m *Matcher) RiskDelta(files []ChangedFile) RiskDelta {
	var counts ChangedFileCounts
	var reasons []string
	seen := make(map[string]bool)
	score := 0

	addReason := func(r string) {
		if !seen[r] {
			seen[r] = true
			reasons = append(reasons, r)
		}
	}

	var unsafeExec, secretExposure bool

	for _, f := range files {
		match := m.Match(f)

		if match.Auth {
			counts.Auth++
			score += weightAuth
			addReason(reasonAuth)
		}
		if match.Database {
			counts.Database++
			score += weightDatabase
			addReason(reasonDatabase)
		}
		if match.API {
			counts.API++
			score += weightAPI
			addReason(reasonAPI)
		}
		if match.Config {
			counts.Config++
			score += weightConfig
			addReason(reasonConfig)
		}

		unsafeExec = unsafeExec || match.UnsafeExec
		secretExposure = secretExposure || match.SecretExposure
	}

	// Dangerous patterns contribute once per class for the whole PR, however
	// many files triggered them.
	if unsafeExec {
		score += weightUnsafeExec
		addReason(reasonUnsafeExec)
	}
	if secretExposure {
		score += weightSecretExposure
		addReason(reasonSecretExposure)
	}

	if len(reasons) == 0 {
		reasons = append(reasons, reasonBaseline)
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	return RiskDelta{
		Score:        score,
		Level:        RiskLevelFor(score),
		Reasons:      reasons,
		ChangedFiles: counts,
	}
}

// CalculateRiskDelta computes the risk delta for a change set using the
// standard rule set.
func CalculateRiskDelta(files []ChangedFile) RiskDelta {
	return NewMatcher().RiskDelta(files)
}
