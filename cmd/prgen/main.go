package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/holon-run/prgen/pkg/config"
	"github.com/holon-run/prgen/pkg/log"
)

var (
	configPath   string
	logLevel     string
	logFormat    string
	githubToken  string
	githubAPIURL string
	aiURL        string
	aiKey        string
	aiModel      string
	aiTimeout    string
	aiLanguage   string
)

var rootCmd = &cobra.Command{
	Use:   "prgen",
	Short: "Draft and open pull requests from branch divergence",
	Long: `prgen lists the commits a head branch adds over a base branch, asks a
chat-completion backend to summarize them as a pull request title and
description, and opens the pull request on GitHub.

Settings are resolved from flags, then environment variables, then
.prgen/config.yaml, then built-in defaults. A .env file in the working
directory is loaded without overriding variables that are already set.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = log.Sync()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to config file (default: search for .prgen/config.yaml)")
	flags.StringVar(&logLevel, "log-level", "", "Log level: debug, info, progress, minimal, error")
	flags.StringVar(&logFormat, "log-format", log.FormatConsole, "Log format: console or json")
	flags.StringVar(&githubToken, "github-token", "", "GitHub token (default: $GITHUB_TOKEN or $GH_TOKEN)")
	flags.StringVar(&githubAPIURL, "github-api-url", "", "GitHub API base URL")
	flags.StringVar(&aiURL, "ai-url", "", "Chat completion API base URL")
	flags.StringVar(&aiKey, "ai-key", "", "Chat completion API key")
	flags.StringVar(&aiModel, "ai-model", "", "Chat completion model")
	flags.StringVar(&aiTimeout, "ai-timeout", "", "Chat completion request timeout, e.g. 45s")
	flags.StringVar(&aiLanguage, "ai-language", "", "Language for generated descriptions")
}

func main() {
	os.Exit(run())
}

// run executes the root command and returns the process exit code
func run() int {
	if err := rootCmd.Execute(); err != nil {
		msg := err.Error()
		if current != nil && current.settings != nil {
			msg = current.settings.Redactor().String(msg)
		}
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
		return 1
	}
	return 0
}

// overrides returns the flag values keyed like config.Keys
func overrides() map[string]string {
	return map[string]string{
		"log_level":      logLevel,
		"github.token":   githubToken,
		"github.api_url": githubAPIURL,
		"ai.api_url":     aiURL,
		"ai.api_key":     aiKey,
		"ai.model":       aiModel,
		"ai.timeout":     aiTimeout,
		"ai.language":    aiLanguage,
	}
}

// loadProjectConfig reads --config or searches upward from the working directory
func loadProjectConfig() (*config.ProjectConfig, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.LoadFromCurrentDir()
}
