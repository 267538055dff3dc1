package analysis

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProjectConfigName is the per-repository pattern rules file.
const ProjectConfigName = ".codearmor.yaml"

// ProjectConfig represents a project-level .codearmor.yaml file carrying
// extra category patterns for the matcher.
type ProjectConfig struct {
	Rules []ProjectRule `yaml:"rules"`
}

// ProjectRule adds a regex pattern to one of the four category families.
type ProjectRule struct {
	ID         string `yaml:"id"`
	Family     string `yaml:"family"`
	Pattern    string `yaml:"pattern"`
	MatchPatch bool   `yaml:"match_patch"`
}

// LoadProjectConfig reads and parses .codearmor.yaml from the given
// directory. Returns nil if the file does not exist or is empty.
func LoadProjectConfig(dir string) (*ProjectConfig, error) {
	data, err := os.ReadFile(filepath.Join(dir, ProjectConfigName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", ProjectConfigName, err)
	}

	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ProjectConfigName, err)
	}

	for i, r := range cfg.Rules {
		if r.ID == "" {
			return nil, fmt.Errorf("%s: rule at index %d is missing required id field", ProjectConfigName, i)
		}
		if !validFamily(Family(r.Family)) {
			return nil, fmt.Errorf("%s: rule %q has invalid family %q (must be auth, database, api, or config)", ProjectConfigName, r.ID, r.Family)
		}
		if _, err := regexp.Compile(r.Pattern); err != nil {
			return nil, fmt.Errorf("%s: rule %q has invalid pattern: %w", ProjectConfigName, r.ID, err)
		}
	}

	return &cfg, nil
}

// Apply registers all project rules on the matcher. Patterns were validated
// at load time.
func (c *ProjectConfig) Apply(m *Matcher) {
	if c == nil {
		return
	}
	for _, r := range c.Rules {
		m.AddCategoryRule(Family(r.Family), regexp.MustCompile(r.Pattern), r.MatchPatch)
	}
}

func validFamily(f Family) bool {
	switch f {
	case FamilyAuth, FamilyDatabase, FamilyAPI, FamilyConfig:
		return true
	}
	return false
}
