// Package config loads the codearmor TOML configuration and resolves API
// credentials.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config represents the top-level application configuration.
type Config struct {
	GitHub     GitHubConfig     `toml:"github"`
	Classifier ClassifierConfig `toml:"classifier"`
	Analysis   AnalysisConfig   `toml:"analysis"`
	History    HistoryConfig    `toml:"history"`
}

// GitHubConfig holds settings for the source-code host.
type GitHubConfig struct {
	TokenSource    string `toml:"token_source"`
	Token          string `toml:"token"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// ClassifierConfig holds settings for the external LLM reviewer endpoint.
type ClassifierConfig struct {
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	APIKeySource   string `toml:"api_key_source"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// AnalysisConfig bounds the regression detector's historical window.
type AnalysisConfig struct {
	HistoryLimit   int `toml:"history_limit"`
	MaxSecurityPRs int `toml:"max_security_prs"`
	Concurrency    int `toml:"concurrency"`
}

// HistoryConfig holds settings for local scan history persistence.
type HistoryConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// DefaultConfig returns a Config populated with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		GitHub: GitHubConfig{
			TokenSource:    "env",
			TimeoutSeconds: 30,
		},
		Classifier: ClassifierConfig{
			BaseURL:        "https://api.groq.com/openai/v1",
			Model:          "llama-3.3-70b-versatile",
			APIKeySource:   "env",
			TimeoutSeconds: 60,
		},
		Analysis: AnalysisConfig{
			HistoryLimit:   50,
			MaxSecurityPRs: 20,
			Concurrency:    4,
		},
		History: HistoryConfig{
			Enabled: true,
		},
	}
}

// Load reads a TOML config file over the defaults. A missing file is not an
// error: defaults are returned unchanged.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}
