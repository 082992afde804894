package prompt

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Config represents the draft prompt configuration
type Config struct {
	// Messages are the commit messages, in the order they are listed
	Messages []string
	// Style selects styles/<style>.md; empty uses the manifest default
	Style string
	// Language requests a description language; empty leaves it to the model
	Language string
	// MaxTitleLength overrides the manifest default when positive
	MaxTitleLength int
}

// Manifest represents the structure of manifest.yaml
type Manifest struct {
	Version  string `yaml:"version"`
	Defaults struct {
		Style          string `yaml:"style"`
		MaxTitleLength int    `yaml:"max_title_length"`
	} `yaml:"defaults"`
}

// templateData is what the prompt templates are executed with
type templateData struct {
	Config
	CommitLog string
}

// Compiler assembles the change-summary prompt from layered assets
type Compiler struct {
	assets fs.FS
}

// NewCompiler creates a compiler over the embedded assets
func NewCompiler() (*Compiler, error) {
	sub, err := AssetsFS()
	if err != nil {
		return nil, fmt.Errorf("failed to open prompt assets: %w", err)
	}
	return &Compiler{assets: sub}, nil
}

// NewCompilerFromFS creates a compiler from a given FS (useful for testing or external loading)
func NewCompilerFromFS(assets fs.FS) *Compiler {
	return &Compiler{assets: assets}
}

// CompileDraftPrompt renders the prompt for the given commit messages.
// The output is a pure function of cfg and the assets.
func (c *Compiler) CompileDraftPrompt(cfg Config) (string, error) {
	resolved, err := c.resolveDefaults(cfg)
	if err != nil {
		return "", err
	}

	// 1. Instructions and commit log (required)
	draftData, err := fs.ReadFile(c.assets, "draft.md")
	if err != nil {
		return "", fmt.Errorf("failed to read draft template: %w", err)
	}

	// 2. Title style (optional layer)
	styleData, err := readOptionalFile(c.assets, fmt.Sprintf("styles/%s.md", resolved.Style))
	if err != nil {
		return "", err
	}

	// 3. Output contract (required, always last)
	contractData, err := fs.ReadFile(c.assets, "contracts/output.md")
	if err != nil {
		return "", fmt.Errorf("failed to read output contract: %w", err)
	}

	fullTemplate := string(draftData)
	if styleData != nil {
		fullTemplate += "\n" + string(styleData)
	}
	fullTemplate += "\n" + string(contractData)

	tmpl, err := template.New("draft").Parse(fullTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, templateData{
		Config:    resolved,
		CommitLog: strings.Join(resolved.Messages, "\n"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

func (c *Compiler) resolveDefaults(cfg Config) (Config, error) {
	manifestData, err := fs.ReadFile(c.assets, "manifest.yaml")
	if err != nil {
		return Config{}, fmt.Errorf("failed to read manifest: %w", err)
	}
	var manifest Manifest
	if err := yaml.Unmarshal(manifestData, &manifest); err != nil {
		return Config{}, fmt.Errorf("failed to parse manifest: %w", err)
	}

	resolved := cfg
	if resolved.Style == "" {
		resolved.Style = manifest.Defaults.Style
	}
	if resolved.MaxTitleLength <= 0 {
		resolved.MaxTitleLength = manifest.Defaults.MaxTitleLength
	}
	if resolved.MaxTitleLength <= 0 {
		resolved.MaxTitleLength = 72
	}

	return resolved, nil
}

func readOptionalFile(assets fs.FS, path string) ([]byte, error) {
	data, err := fs.ReadFile(assets, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read optional file %s: %w", path, err)
	}
	return data, nil
}
