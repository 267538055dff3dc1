package analysis

import (
	"regexp"
	"strings"
)

// Family identifies one of the four changed-file category families tracked by
// the risk delta.
type Family string

const (
	FamilyAuth     Family = "auth"
	FamilyDatabase Family = "database"
	FamilyAPI      Family = "api"
	FamilyConfig   Family = "config"
)

// categoryRule matches a changed file against one category family. Filename
// matching is always performed on the lowercased path; patch matching is only
// performed for families where file content is a meaningful signal.
type categoryRule struct {
	family     Family
	pattern    *regexp.Regexp
	matchPatch bool
}

// dangerousClass identifies one of the two PR-wide dangerous-pattern classes.
type dangerousClass string

const (
	dangerUnsafeExec     dangerousClass = "unsafe-exec"
	dangerSecretExposure dangerousClass = "secret-exposure"
)

// dangerousRule scans patch text for one dangerous-pattern class.
type dangerousRule struct {
	class   dangerousClass
	pattern *regexp.Regexp
}

// FileMatch is the set of signals the pattern matcher found in one changed
// file. Category flags and dangerous flags trigger independently.
type FileMatch struct {
	Auth     bool
	Database bool
	API      bool
	Config   bool

	UnsafeExec     bool
	SecretExposure bool
}

// Matcher classifies changed files against category and dangerous-pattern
// rules. It is stateless after construction; Match is a pure function of the
// file's filename and patch text.
type Matcher struct {
	categories []categoryRule
	dangerous  []dangerousRule
}

// NewMatcher creates a Matcher with the standard rule set.
//
// Auth and database families match on filename or patch body; api and config
// families match on filename only, since terms like "key" and "endpoint" are
// too common inside patch text to be a useful signal there.
func NewMatcher() *Matcher {
	return &Matcher{
		categories: []categoryRule{
			{
				family:     FamilyAuth,
				pattern:    regexp.MustCompile(`(?i)auth|login|session|jwt|token|password|credential`),
				matchPatch: true,
			},
			{
				family:     FamilyDatabase,
				pattern:    regexp.MustCompile(`(?i)database|query|sql|prisma|mongoose|sequelize|knex`),
				matchPatch: true,
			},
			{
				family:  FamilyAPI,
				pattern: regexp.MustCompile(`(?i)/api/|route\.ts|endpoint|controller`),
			},
			{
				family:  FamilyConfig,
				pattern: regexp.MustCompile(`(?i)\.env|config|secret|key`),
			},
		},
		dangerous: []dangerousRule{
			{
				class:   dangerUnsafeExec,
				pattern: regexp.MustCompile(`(?i)eval\(|exec\(|innerHTML|dangerouslySetInnerHTML`),
			},
			{
				class:   dangerSecretExposure,
				pattern: regexp.MustCompile(`(?i)\+.*process\.env\[|hardcoded.*password|api.*key.*=.*"`),
			},
		},
	}
}

// AddCategoryRule registers an extra pattern for a category family. Used for
// project-specific rules loaded from .codearmor.yaml.
func (m *Matcher) AddCategoryRule(family Family, pattern *regexp.Regexp, matchPatch bool) {
	m.categories = append(m.categories, categoryRule{
		family:     family,
		pattern:    pattern,
		matchPatch: matchPatch,
	})
}

// SecurityRelevant reports whether a repository path matches any category
// family by name. Full-repository scans use it to pick which files to
// download, so project rules from .codearmor.yaml widen the selection too.
func (m *Matcher) SecurityRelevant(path string) bool {
	match := m.Match(ChangedFile{Filename: path})
	return match.Auth || match.Database || match.API || match.Config
}

// Match classifies a single changed file. A file may match any number of
// category families; dangerous-pattern classes are scanned in the patch text
// only.
func (m *Matcher) Match(f ChangedFile) FileMatch {
	var match FileMatch
	filename := strings.ToLower(f.Filename)

	for _, rule := range m.categories {
		hit := rule.pattern.MatchString(filename)
		if !hit && rule.matchPatch && f.Patch != "" {
			hit = rule.pattern.MatchString(f.Patch)
		}
		if !hit {
			continue
		}
		switch rule.family {
		case FamilyAuth:
			match.Auth = true
		case FamilyDatabase:
			match.Database = true
		case FamilyAPI:
			match.API = true
		case FamilyConfig:
			match.Config = true
		}
	}

	if f.Patch != "" {
		for _, rule := range m.dangerous {
			if !rule.pattern.MatchString(f.Patch) {
				continue
			}
			switch rule.class {
			case dangerUnsafeExec:
				match.UnsafeExec = true
			case dangerSecretExposure:
				match.SecretExposure = true
			}
		}
	}

	return match
}
