package analysis

import (
	"math"
	"strings"
)

// Base penalties by severity. A finding that is not Definite costs half.
const (
	penaltyHigh   = 30.0
	penaltyMedium = 15.0
	penaltyLow    = 5.0
)

// clampedScore is the ceiling applied when a critical signal class is
// present: any Definite HIGH finding, or any secret-related finding,
// guarantees the score lands below the Needs Attention threshold.
const clampedScore = 45

// Score folds a findings list into a single security score and status.
//
// The fold is commutative: penalties are summed and the critical-signal clamp
// is applied after the sum, so any permutation of the same findings yields
// the same result. It holds no state; scoring the same list twice is
// idempotent.
func Score(findings []Finding) SecurityScoreResult {
	score := 100.0
	clamp := false

	for _, f := range findings {
		var penalty float64
		switch f.Severity {
		case SeverityHigh:
			penalty = penaltyHigh
		case SeverityMedium:
			penalty = penaltyMedium
		case SeverityLow:
			penalty = penaltyLow
		}
		if f.Certainty != CertaintyDefinite {
			penalty /= 2
		}
		score -= penalty

		if f.Severity == SeverityHigh && f.Certainty == CertaintyDefinite {
			clamp = true
		}
		if isSecretSignal(f) {
			clamp = true
		}
	}

	if clamp && score > clampedScore {
		score = clampedScore
	}
	if score < 0 {
		score = 0
	}

	rounded := int(math.Round(score))
	return SecurityScoreResult{
		Score:  rounded,
		Status: StatusFor(rounded),
	}
}

// isSecretSignal reports whether a finding indicates exposed secret material.
// The explicit category tag is authoritative; the title substring check
// remains for classifier outputs that omit the tag.
func isSecretSignal(f Finding) bool {
	if f.Category == CategorySecret {
		return true
	}
	title := strings.ToLower(f.Title)
	return strings.Contains(title, "secret") || strings.Contains(title, "key")
}
