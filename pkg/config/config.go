// Package config provides project-level configuration for prgen.
// It loads .prgen/config.yaml and .env files and resolves settings with
// precedence: CLI flags > environment > project config > defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigDir is the directory name for prgen configuration
	ConfigDir = ".prgen"
	// ConfigFile is the name of the configuration file
	ConfigFile = "config.yaml"
	// ConfigPath is the full path to the config file relative to project root
	ConfigPath = ConfigDir + "/" + ConfigFile
	// DotEnvFile is loaded from the working directory when present
	DotEnvFile = ".env"
)

// ProjectConfig represents the .prgen/config.yaml file
type ProjectConfig struct {
	// LogLevel is the default log level (debug, info, progress, minimal, error)
	LogLevel string `yaml:"log_level,omitempty"`

	GitHub GitHubConfig `yaml:"github,omitempty"`
	AI     AIConfig     `yaml:"ai,omitempty"`
	Server ServerConfig `yaml:"server,omitempty"`

	// path is the file the config was loaded from, empty if none was found
	path string
}

// GitHubConfig configures the repository host client
type GitHubConfig struct {
	Token  string `yaml:"token,omitempty"`
	APIURL string `yaml:"api_url,omitempty"`
}

// AIConfig configures the generative backend
type AIConfig struct {
	APIURL string `yaml:"api_url,omitempty"`
	APIKey string `yaml:"api_key,omitempty"`
	Model  string `yaml:"model,omitempty"`
	// Timeout is a Go duration string such as "45s"
	Timeout string `yaml:"timeout,omitempty"`
	// Language requests a description language
	Language string `yaml:"language,omitempty"`
}

// ServerConfig configures `prgen serve`
type ServerConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// Load loads the project configuration from the given directory.
// It searches for .prgen/config.yaml in the directory and its parents.
//
// If no config file is found, it returns a zero config and nil error.
// If a config file is found but cannot be parsed, it returns an error.
func Load(dir string) (*ProjectConfig, error) {
	configPath, err := findConfigPath(dir)
	if err != nil {
		return nil, err
	}
	if configPath == "" {
		return &ProjectConfig{}, nil
	}
	return LoadFile(configPath)
}

// LoadFile loads an explicit config file. A missing file yields a zero
// config remembering path, so Save can create it.
func LoadFile(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &ProjectConfig{path: path}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	cfg.path = path
	return &cfg, nil
}

// LoadFromCurrentDir loads the project configuration from the current working directory.
func LoadFromCurrentDir() (*ProjectConfig, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	return Load(dir)
}

// Path returns the file the config was loaded from, or "" if none was found
func (c *ProjectConfig) Path() string {
	return c.path
}

// Save writes the config to path, or to the path it was loaded from when
// path is empty. The file may hold credentials and is written owner-only.
func (c *ProjectConfig) Save(path string) error {
	if path == "" {
		path = c.path
	}
	if path == "" {
		return errors.New("no config path to save to")
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	c.path = path
	return nil
}

// LoadDotEnv loads dir/.env into the process environment. Variables that
// are already set are not overridden. A missing file is not an error.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, DotEnvFile)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// findConfigPath searches for .prgen/config.yaml in dir and its parent directories.
// It returns the full path to the config file, or empty string if not found.
func findConfigPath(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	for {
		configPath := filepath.Join(absDir, ConfigPath)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		parentDir := filepath.Dir(absDir)
		if parentDir == absDir {
			return "", nil
		}
		absDir = parentDir
	}
}

// Keys lists the settable keys in sorted order
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// fields maps dotted keys to config fields
var fields = map[string]func(*ProjectConfig) *string{
	"log_level":      func(c *ProjectConfig) *string { return &c.LogLevel },
	"github.token":   func(c *ProjectConfig) *string { return &c.GitHub.Token },
	"github.api_url": func(c *ProjectConfig) *string { return &c.GitHub.APIURL },
	"ai.api_url":     func(c *ProjectConfig) *string { return &c.AI.APIURL },
	"ai.api_key":     func(c *ProjectConfig) *string { return &c.AI.APIKey },
	"ai.model":       func(c *ProjectConfig) *string { return &c.AI.Model },
	"ai.timeout":     func(c *ProjectConfig) *string { return &c.AI.Timeout },
	"ai.language":    func(c *ProjectConfig) *string { return &c.AI.Language },
	"server.addr":    func(c *ProjectConfig) *string { return &c.Server.Addr },
}

// Get returns the file value of key
func (c *ProjectConfig) Get(key string) (string, error) {
	field, ok := fields[strings.ToLower(key)]
	if !ok {
		return "", fmt.Errorf("unknown config key %q (valid keys: %s)", key, strings.Join(Keys(), ", "))
	}
	return *field(c), nil
}

// Set updates the file value of key. An empty value clears it.
func (c *ProjectConfig) Set(key, value string) error {
	field, ok := fields[strings.ToLower(key)]
	if !ok {
		return fmt.Errorf("unknown config key %q (valid keys: %s)", key, strings.Join(Keys(), ", "))
	}
	*field(c) = strings.TrimSpace(value)
	return nil
}

// IsSecret reports whether key holds a credential
func IsSecret(key string) bool {
	switch strings.ToLower(key) {
	case "github.token", "ai.api_key":
		return true
	}
	return false
}
