package config

import (
	"fmt"
	"os"
	"time"

	"github.com/holon-run/prgen/pkg/github"
	"github.com/holon-run/prgen/pkg/llm"
	"github.com/holon-run/prgen/pkg/logs/redact"
)

// Source names where a resolved value came from
type Source string

const (
	SourceCLI     Source = "cli"
	SourceEnv     Source = "env"
	SourceConfig  Source = "config"
	SourceDefault Source = "default"
)

// Defaults
const (
	DefaultLogLevel   = "progress"
	DefaultServerAddr = "127.0.0.1:8080"
)

// envKeys lists the environment variables consulted per key, first match wins
var envKeys = map[string][]string{
	"log_level":      {"PRGEN_LOG_LEVEL"},
	"github.token":   {github.TokenEnv, github.AltTokenEnv},
	"github.api_url": {"PRGEN_GITHUB_API_URL"},
	"ai.api_url":     {"PRGEN_AI_API_URL", "AI_API_URL"},
	"ai.api_key":     {"PRGEN_AI_API_KEY", "AI_API_KEY"},
	"ai.model":       {"PRGEN_AI_MODEL", "AI_MODEL"},
	"ai.timeout":     {"PRGEN_AI_TIMEOUT"},
	"ai.language":    {"PRGEN_AI_LANGUAGE"},
	"server.addr":    {"PRGEN_SERVER_ADDR"},
}

var defaults = map[string]string{
	"log_level":      DefaultLogLevel,
	"github.api_url": github.DefaultBaseURL,
	"ai.api_url":     llm.DefaultBaseURL,
	"ai.model":       llm.DefaultModel,
	"ai.timeout":     llm.DefaultTimeout.String(),
	"server.addr":    DefaultServerAddr,
}

// Settings are the effective values after resolution
type Settings struct {
	LogLevel     string
	GitHubToken  string
	GitHubAPIURL string
	AIAPIURL     string
	AIAPIKey     string
	AIModel      string
	AITimeout    time.Duration
	AILanguage   string
	ServerAddr   string

	// Sources records where each key's value came from
	Sources map[string]Source
}

// ResolveString returns the effective value for a string configuration field.
// Precedence: cliValue > envValue > configValue > defaultValue.
func ResolveString(cliValue, envValue, configValue, defaultValue string) (string, Source) {
	if cliValue != "" {
		return cliValue, SourceCLI
	}
	if envValue != "" {
		return envValue, SourceEnv
	}
	if configValue != "" {
		return configValue, SourceConfig
	}
	return defaultValue, SourceDefault
}

// Resolve merges CLI overrides (keyed like Keys), the environment and the
// file into Settings. getenv defaults to os.Getenv.
func (c *ProjectConfig) Resolve(overrides map[string]string, getenv func(string) string) (*Settings, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	values := make(map[string]string, len(fields))
	sources := make(map[string]Source, len(fields))
	for key, field := range fields {
		var envValue string
		for _, name := range envKeys[key] {
			if v := getenv(name); v != "" {
				envValue = v
				break
			}
		}
		values[key], sources[key] = ResolveString(overrides[key], envValue, *field(c), defaults[key])
	}

	timeout, err := time.ParseDuration(values["ai.timeout"])
	if err != nil || timeout <= 0 {
		return nil, fmt.Errorf("invalid ai.timeout %q (from %s): must be a positive duration", values["ai.timeout"], sources["ai.timeout"])
	}

	return &Settings{
		LogLevel:     values["log_level"],
		GitHubToken:  values["github.token"],
		GitHubAPIURL: values["github.api_url"],
		AIAPIURL:     values["ai.api_url"],
		AIAPIKey:     values["ai.api_key"],
		AIModel:      values["ai.model"],
		AITimeout:    timeout,
		AILanguage:   values["ai.language"],
		ServerAddr:   values["server.addr"],
		Sources:      sources,
	}, nil
}

// Value returns the effective value of key, masking credentials
func (s *Settings) Value(key string) string {
	var v string
	switch key {
	case "log_level":
		v = s.LogLevel
	case "github.token":
		v = s.GitHubToken
	case "github.api_url":
		v = s.GitHubAPIURL
	case "ai.api_url":
		v = s.AIAPIURL
	case "ai.api_key":
		v = s.AIAPIKey
	case "ai.model":
		v = s.AIModel
	case "ai.timeout":
		v = s.AITimeout.String()
	case "ai.language":
		v = s.AILanguage
	case "server.addr":
		v = s.ServerAddr
	}
	if IsSecret(key) {
		return redact.Mask(v)
	}
	return v
}

// Redactor returns a redactor for the resolved credentials
func (s *Settings) Redactor() *redact.Redactor {
	return redact.New(s.GitHubToken, s.AIAPIKey)
}
