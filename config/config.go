package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	logger "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Defaults applied before any file or flag values are merged in.
const (
	// DefaultBranch is the dedicated branch the pinned changes are pushed to.
	DefaultBranch = "automated-ratchet-dispatcher-pin"
	// DefaultCommitMessage is used when no override is configured.
	DefaultCommitMessage = "ci: pin versions of workflow actions"
	// DefaultPullRequestTitle is used when no override is configured.
	DefaultPullRequestTitle = "ci: pin versions of actions"
	// DefaultPinnerBinary is the pinning tool looked up on PATH.
	DefaultPinnerBinary = "ratchet"
	// DefaultProvider is the hosting service assumed when none is configured.
	DefaultProvider = "github"
)

// Config is the top-level configuration for actionpin.
type Config struct {
	Provider      ProviderConfig    `yaml:"provider"`
	Repositories  []string          `yaml:"repositories"` // "owner/name" entries
	Branch        string            `yaml:"branch"`
	BaseBranch    string            `yaml:"base_branch"` // Empty means the remote default branch
	CloneDir      string            `yaml:"clone_dir"`   // Empty means a run-scoped temp dir
	CloneDepth    int               `yaml:"clone_depth"` // 0 clones full history
	CleanComment  bool              `yaml:"clean_comment"`
	CommitMessage string            `yaml:"commit_message"`
	PullRequest   PullRequestConfig `yaml:"pull_request"`
	Pinner        PinnerConfig      `yaml:"pinner"`
}

// ProviderConfig describes the Git hosting provider instance used for the run.
type ProviderConfig struct {
	Type  string `yaml:"type"`  // "github", "gitlab"
	Token string `yaml:"token"` // Inline, ${ENV_VAR}, or file path
}

// PullRequestConfig holds the pull request content settings.
type PullRequestConfig struct {
	Title    string `yaml:"title"`
	BodyPath string `yaml:"body_path"` // File whose contents become the PR body
}

// PinnerConfig holds settings for the external pinning tool.
type PinnerConfig struct {
	Binary string `yaml:"binary"`
}

// envVarPattern matches ${VAR_NAME} placeholders.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)}`)

// Default returns a configuration populated with the built-in defaults.
func Default() *Config {
	return &Config{
		Provider:      ProviderConfig{Type: DefaultProvider},
		Branch:        DefaultBranch,
		CommitMessage: DefaultCommitMessage,
		PullRequest:   PullRequestConfig{Title: DefaultPullRequestTitle},
		Pinner:        PinnerConfig{Binary: DefaultPinnerBinary},
	}
}

// Load reads and parses a configuration file on top of the defaults,
// expanding environment variables and resolving token file paths.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	cfg := Default()
	if unmarshalErr := yaml.Unmarshal(data, cfg); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", unmarshalErr)
	}

	cfg.Provider.Token = resolveToken(cfg.Provider.Token)

	if validateErr := validate(cfg); validateErr != nil {
		return nil, validateErr
	}

	return cfg, nil
}

// FindConfigFile looks for a configuration file in the standard locations
// and returns the first match.
func FindConfigFile() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = ""
	}

	locations := []string{
		".",
		".config",
		"configs",
	}
	if homeDir != "" {
		locations = append(
			locations,
			homeDir,
			filepath.Join(homeDir, ".config"),
		)
	}

	patterns := []string{
		".actionpin.yaml",
		".actionpin.yml",
		"actionpin.yaml",
		"actionpin.yml",
	}

	for _, loc := range locations {
		for _, pat := range patterns {
			p := filepath.Join(loc, pat)
			if _, statErr := os.Stat(p); statErr == nil {
				return p, nil
			}
		}
	}

	return "", errors.New("config file not found in default locations")
}

// resolveToken expands ${VAR} references from the environment and then reads
// the token from disk when the expanded value is a path to an existing file.
func resolveToken(raw string) string {
	if raw == "" {
		return raw
	}

	resolved := envVarPattern.ReplaceAllStringFunc(raw, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		logger.Warnf("Environment variable %q is not set", varName)
		return ""
	})

	// A value naming an existing file means the token lives in that file.
	if _, statErr := os.Stat(resolved); statErr == nil {
		data, readErr := os.ReadFile(resolved)
		if readErr != nil {
			logger.Warnf("Failed to read token file %q: %v", resolved, readErr)
			return resolved
		}
		logger.Infof("Read token from file %q", resolved)
		return strings.TrimSpace(string(data))
	}

	return resolved
}

// validate checks for required configuration values. The token and the
// repository list may still arrive from flags or the environment, so they
// are checked later, right before the batch starts.
func validate(cfg *Config) error {
	if cfg.Provider.Type == "" {
		return errors.New("provider.type is required")
	}
	if cfg.CloneDepth < 0 {
		return fmt.Errorf("clone_depth must not be negative, got %d", cfg.CloneDepth)
	}
	if cfg.Branch == "" {
		return errors.New("branch must not be empty")
	}

	return nil
}
