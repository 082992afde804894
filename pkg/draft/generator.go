package draft

import (
	"context"
	"errors"
	"fmt"

	"github.com/holon-run/prgen/pkg/github"
	"github.com/holon-run/prgen/pkg/llm"
	"github.com/holon-run/prgen/pkg/log"
	"github.com/holon-run/prgen/pkg/prompt"
)

// ErrNoCommits is returned when there is nothing to summarize
var ErrNoCommits = errors.New("no commits to summarize")

// Generator drafts a pull request title and description from commit messages
type Generator struct {
	provider llm.Provider
	compiler *prompt.Compiler
	config   prompt.Config
}

// Option configures a Generator
type Option func(*Generator)

// WithStyle selects the title style layer
func WithStyle(style string) Option {
	return func(g *Generator) {
		g.config.Style = style
	}
}

// WithLanguage requests a description language
func WithLanguage(language string) Option {
	return func(g *Generator) {
		g.config.Language = language
	}
}

// WithCompiler replaces the embedded prompt compiler
func WithCompiler(compiler *prompt.Compiler) Option {
	return func(g *Generator) {
		g.compiler = compiler
	}
}

// NewGenerator creates a generator backed by provider
func NewGenerator(provider llm.Provider, opts ...Option) (*Generator, error) {
	g := &Generator{provider: provider}
	for _, opt := range opts {
		opt(g)
	}
	if g.compiler == nil {
		compiler, err := prompt.NewCompiler()
		if err != nil {
			return nil, err
		}
		g.compiler = compiler
	}
	return g, nil
}

// Prompt renders the prompt for commits without calling the backend
func (g *Generator) Prompt(commits []github.Commit) (string, error) {
	cfg := g.config
	cfg.Messages = make([]string, 0, len(commits))
	for _, c := range commits {
		cfg.Messages = append(cfg.Messages, c.Message)
	}
	return g.compiler.CompileDraftPrompt(cfg)
}

// Generate asks the backend for a draft. It calls the backend exactly once
// and never modifies commits. Transport failures are returned wrapped;
// unusable replies are returned as *MalformedResponseError.
func (g *Generator) Generate(ctx context.Context, commits []github.Commit) (Draft, error) {
	if len(commits) == 0 {
		return Draft{}, ErrNoCommits
	}

	text, err := g.Prompt(commits)
	if err != nil {
		return Draft{}, fmt.Errorf("failed to build prompt: %w", err)
	}

	log.Debug("requesting draft", "commits", len(commits), "prompt_bytes", len(text))

	resp, err := g.provider.CreateChatCompletion(ctx, llm.Request{
		Messages: []llm.Message{{Role: "user", Content: text}},
	})
	if err != nil {
		return Draft{}, fmt.Errorf("chat completion: %w", err)
	}

	d, err := Extract(resp.Text())
	if err != nil {
		return Draft{}, err
	}
	return d, nil
}
