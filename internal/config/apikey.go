package config

import (
	"fmt"
	"os"
)

// Environment variables consulted for credentials when the source is "env".
const (
	ClassifierKeyEnv = "GROQ_API_KEY"
	GitHubTokenEnv   = "GITHUB_TOKEN"
)

// ResolveAPIKey resolves a credential based on the given source.
// Supported sources: "env" (from environment variable), "config" (from the
// config file value).
func ResolveAPIKey(source, configValue, envVar string) (string, error) {
	switch source {
	case "env", "":
		return resolveFromEnv(envVar)
	case "config":
		if configValue == "" {
			return "", fmt.Errorf("api_key_source is 'config' but no api_key value provided")
		}
		return configValue, nil
	default:
		return "", fmt.Errorf("unknown api_key_source: %q", source)
	}
}

// ClassifierKey resolves the LLM classifier API key from the config.
func (c *Config) ClassifierKey() (string, error) {
	return ResolveAPIKey(c.Classifier.APIKeySource, c.Classifier.APIKey, ClassifierKeyEnv)
}

// GitHubToken resolves the GitHub token from the config. A missing token is
// not an error: anonymous access works for public repositories.
func (c *Config) GitHubToken() string {
	token, err := ResolveAPIKey(c.GitHub.TokenSource, c.GitHub.Token, GitHubTokenEnv)
	if err != nil {
		return ""
	}
	return token
}

func resolveFromEnv(envVar string) (string, error) {
	if envVar == "" {
		return "", fmt.Errorf("no environment variable name specified")
	}
	val := os.Getenv(envVar)
	if val == "" {
		return "", fmt.Errorf("environment variable %s is not set", envVar)
	}
	return val, nil
}
