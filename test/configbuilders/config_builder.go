// Package configbuilders provides fluent builders for run configurations
// used across the test suites.
package configbuilders

import (
	testkit "github.com/rios0rios0/testkit/pkg/test"

	"github.com/pinforge/actionpin/config"
)

// ConfigBuilder helps create run configurations with a fluent interface.
type ConfigBuilder struct {
	*testkit.BaseBuilder
	providerType string
	token        string
	repositories []string
	branch       string
	baseBranch   string
	cloneDir     string
	cloneDepth   int
	cleanComment bool
	commitMsg    string
	prTitle      string
	prBodyPath   string
	pinnerBinary string
}

// NewConfigBuilder creates a new config builder with sensible defaults.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		BaseBuilder:  testkit.NewBaseBuilder(),
		providerType: config.DefaultProvider,
		token:        "test-token",
		repositories: []string{"acme/service"},
		branch:       config.DefaultBranch,
		commitMsg:    config.DefaultCommitMessage,
		prTitle:      config.DefaultPullRequestTitle,
		pinnerBinary: config.DefaultPinnerBinary,
	}
}

// WithProvider sets the provider type.
func (b *ConfigBuilder) WithProvider(providerType string) *ConfigBuilder {
	b.providerType = providerType
	return b
}

// WithToken sets the auth token.
func (b *ConfigBuilder) WithToken(token string) *ConfigBuilder {
	b.token = token
	return b
}

// WithRepositories sets the repository list.
func (b *ConfigBuilder) WithRepositories(repos ...string) *ConfigBuilder {
	b.repositories = repos
	return b
}

// WithBranch sets the dedicated branch.
func (b *ConfigBuilder) WithBranch(branch string) *ConfigBuilder {
	b.branch = branch
	return b
}

// WithBaseBranch sets an explicit pull request base branch.
func (b *ConfigBuilder) WithBaseBranch(branch string) *ConfigBuilder {
	b.baseBranch = branch
	return b
}

// WithCloneDir sets the clone directory.
func (b *ConfigBuilder) WithCloneDir(dir string) *ConfigBuilder {
	b.cloneDir = dir
	return b
}

// WithCloneDepth sets the shallow clone depth.
func (b *ConfigBuilder) WithCloneDepth(depth int) *ConfigBuilder {
	b.cloneDepth = depth
	return b
}

// WithCleanComment enables pin comment cleaning.
func (b *ConfigBuilder) WithCleanComment(clean bool) *ConfigBuilder {
	b.cleanComment = clean
	return b
}

// WithCommitMessage sets the commit message.
func (b *ConfigBuilder) WithCommitMessage(message string) *ConfigBuilder {
	b.commitMsg = message
	return b
}

// WithPullRequestTitle sets the pull request title.
func (b *ConfigBuilder) WithPullRequestTitle(title string) *ConfigBuilder {
	b.prTitle = title
	return b
}

// WithPullRequestBodyPath sets the pull request body template file.
func (b *ConfigBuilder) WithPullRequestBodyPath(path string) *ConfigBuilder {
	b.prBodyPath = path
	return b
}

// WithPinnerBinary sets the pinning tool binary name.
func (b *ConfigBuilder) WithPinnerBinary(binary string) *ConfigBuilder {
	b.pinnerBinary = binary
	return b
}

// Build creates the config (satisfies testkit.Builder interface).
func (b *ConfigBuilder) Build() interface{} {
	return b.BuildConfig()
}

// BuildConfig creates the config with a concrete return type.
func (b *ConfigBuilder) BuildConfig() *config.Config {
	return &config.Config{
		Provider: config.ProviderConfig{
			Type:  b.providerType,
			Token: b.token,
		},
		Repositories:  b.repositories,
		Branch:        b.branch,
		BaseBranch:    b.baseBranch,
		CloneDir:      b.cloneDir,
		CloneDepth:    b.cloneDepth,
		CleanComment:  b.cleanComment,
		CommitMessage: b.commitMsg,
		PullRequest: config.PullRequestConfig{
			Title:    b.prTitle,
			BodyPath: b.prBodyPath,
		},
		Pinner: config.PinnerConfig{Binary: b.pinnerBinary},
	}
}

// Reset clears the builder state, allowing it to be reused.
func (b *ConfigBuilder) Reset() testkit.Builder {
	b.BaseBuilder.Reset()
	b.providerType = config.DefaultProvider
	b.token = "test-token"
	b.repositories = []string{"acme/service"}
	b.branch = config.DefaultBranch
	b.baseBranch = ""
	b.cloneDir = ""
	b.cloneDepth = 0
	b.cleanComment = false
	b.commitMsg = config.DefaultCommitMessage
	b.prTitle = config.DefaultPullRequestTitle
	b.prBodyPath = ""
	b.pinnerBinary = config.DefaultPinnerBinary
	return b
}

// Clone creates a deep copy of the ConfigBuilder.
func (b *ConfigBuilder) Clone() testkit.Builder {
	repos := make([]string, len(b.repositories))
	copy(repos, b.repositories)

	return &ConfigBuilder{
		BaseBuilder:  b.BaseBuilder.Clone().(*testkit.BaseBuilder),
		providerType: b.providerType,
		token:        b.token,
		repositories: repos,
		branch:       b.branch,
		baseBranch:   b.baseBranch,
		cloneDir:     b.cloneDir,
		cloneDepth:   b.cloneDepth,
		cleanComment: b.cleanComment,
		commitMsg:    b.commitMsg,
		prTitle:      b.prTitle,
		prBodyPath:   b.prBodyPath,
		pinnerBinary: b.pinnerBinary,
	}
}
