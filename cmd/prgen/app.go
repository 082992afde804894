package main

import (
	"fmt"
	"os"

	"github.com/holon-run/prgen/pkg/config"
	"github.com/holon-run/prgen/pkg/draft"
	"github.com/holon-run/prgen/pkg/github"
	"github.com/holon-run/prgen/pkg/llm"
	"github.com/holon-run/prgen/pkg/log"
	"github.com/holon-run/prgen/pkg/workflow"
)

// app holds the resolved settings and the clients built from them
type app struct {
	project  *config.ProjectConfig
	settings *config.Settings
	host     *github.Client
}

// current is populated by setup before any subcommand runs
var current *app

// setup loads .env and the project config, resolves settings and
// initializes logging. Invalid settings are reported by the commands
// that need them so `config set` can still repair a broken file.
func setup() error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to resolve working directory: %w", err)
	}
	if err := config.LoadDotEnv(wd); err != nil {
		return err
	}

	project, err := loadProjectConfig()
	if err != nil {
		return err
	}

	current = &app{project: project}
	settings, resolveErr := project.Resolve(overrides(), nil)
	if resolveErr == nil {
		current.settings = settings
	}

	level, _ := config.ResolveString(logLevel, os.Getenv("PRGEN_LOG_LEVEL"), project.LogLevel, config.DefaultLogLevel)
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	logCfg := log.Config{Level: parsed, Format: logFormat}
	if settings != nil {
		logCfg.Redact = settings.Redactor().String
	}
	if err := log.Init(logCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if resolveErr != nil {
		log.Debug("settings unresolved", "error", resolveErr)
	}
	return nil
}

// resolved returns the settings or the resolution error
func (a *app) resolved() (*config.Settings, error) {
	if a.settings != nil {
		return a.settings, nil
	}
	_, err := a.project.Resolve(overrides(), nil)
	return nil, err
}

// githubClient returns the repository host client, requiring a token
func (a *app) githubClient() (*github.Client, error) {
	if a.host != nil {
		return a.host, nil
	}
	s, err := a.resolved()
	if err != nil {
		return nil, err
	}
	if s.GitHubToken == "" {
		return nil, fmt.Errorf("a GitHub token is required: set %s, %s, --github-token or github.token", github.TokenEnv, github.AltTokenEnv)
	}
	a.host = github.NewClient(s.GitHubToken,
		github.WithBaseURL(s.GitHubAPIURL),
		github.WithRateLimitTracking(true),
	)
	log.Debug("github client ready", "api_url", s.GitHubAPIURL, "token_source", s.Sources["github.token"])
	return a.host, nil
}

// generator returns the draft generator bound to the chat backend
func (a *app) generator() (*draft.Generator, error) {
	s, err := a.resolved()
	if err != nil {
		return nil, err
	}
	provider := llm.NewChatClient(s.AIAPIURL, s.AIAPIKey, s.AIModel, llm.WithTimeout(s.AITimeout))
	log.Debug("chat backend ready", "api_url", s.AIAPIURL, "model", s.AIModel, "timeout", s.AITimeout)

	var opts []draft.Option
	if s.AILanguage != "" {
		opts = append(opts, draft.WithLanguage(s.AILanguage))
	}
	return draft.NewGenerator(provider, opts...)
}

// session builds a workflow session over the configured clients
func (a *app) session() (*workflow.Session, error) {
	host, err := a.githubClient()
	if err != nil {
		return nil, err
	}
	gen, err := a.generator()
	if err != nil {
		return nil, err
	}
	return workflow.NewSession(host, gen), nil
}

// linkBase is the default base for resume links
func (a *app) linkBase() string {
	if a.settings == nil || a.settings.ServerAddr == "" {
		return "http://" + config.DefaultServerAddr + "/"
	}
	return "http://" + a.settings.ServerAddr + "/"
}
