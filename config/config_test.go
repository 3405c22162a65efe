package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinforge/actionpin/config"
)

//nolint:tparallel // some subtests use t.Setenv which is incompatible with t.Parallel on parent
func TestResolveToken(t *testing.T) {
	t.Run("should pass through an empty value", func(t *testing.T) {
		t.Parallel()

		// given
		raw := ""

		// when
		result := config.ResolveToken(raw)

		// then
		assert.Empty(t, result)
	})

	t.Run("should keep a literal token as is", func(t *testing.T) {
		t.Parallel()

		// given
		raw := "ghp_inline0token1"

		// when
		result := config.ResolveToken(raw)

		// then
		assert.Equal(t, "ghp_inline0token1", result)
	})

	t.Run("should expand a ${VAR} reference", func(t *testing.T) {
		// NOTE: cannot use t.Parallel() with t.Setenv()

		// given
		t.Setenv("ACTIONPIN_TEST_TOKEN", "pin-secret-token")
		raw := "${ACTIONPIN_TEST_TOKEN}"

		// when
		result := config.ResolveToken(raw)

		// then
		assert.Equal(t, "pin-secret-token", result)
	})

	t.Run("should expand a reference inside a larger value", func(t *testing.T) {
		// NOTE: cannot use t.Parallel() with t.Setenv()

		// given
		t.Setenv("ACTIONPIN_PARTIAL_TOKEN", "secret")
		raw := "prefix-${ACTIONPIN_PARTIAL_TOKEN}-suffix"

		// when
		result := config.ResolveToken(raw)

		// then
		assert.Equal(t, "prefix-secret-suffix", result)
	})

	t.Run("should drop an unset variable reference", func(t *testing.T) {
		t.Parallel()

		// given
		raw := "${ACTIONPIN_UNSET_VAR_72913}"

		// when
		result := config.ResolveToken(raw)

		// then
		assert.Empty(t, result)
	})

	t.Run("should load the token from a file path", func(t *testing.T) {
		t.Parallel()

		// given
		tmpDir := t.TempDir()
		tokenFile := filepath.Join(tmpDir, "provider.token")
		err := os.WriteFile(tokenFile, []byte("  token-from-file  \n"), 0o600)
		require.NoError(t, err)

		// when
		result := config.ResolveToken(tokenFile)

		// then
		assert.Equal(t, "token-from-file", result)
	})
}

func TestValidate(t *testing.T) {
	t.Parallel()

	t.Run("should reject an empty provider type", func(t *testing.T) {
		t.Parallel()

		// given
		cfg := config.Default()
		cfg.Provider.Type = ""

		// when
		err := config.Validate(cfg)

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "provider.type is required")
	})

	t.Run("should fail when clone depth is negative", func(t *testing.T) {
		t.Parallel()

		// given
		cfg := config.Default()
		cfg.CloneDepth = -1

		// when
		err := config.Validate(cfg)

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "clone_depth must not be negative")
	})

	t.Run("should fail when the branch is empty", func(t *testing.T) {
		t.Parallel()

		// given
		cfg := config.Default()
		cfg.Branch = ""

		// when
		err := config.Validate(cfg)

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "branch must not be empty")
	})

	t.Run("should pass with the defaults", func(t *testing.T) {
		t.Parallel()

		// given
		cfg := config.Default()

		// when
		err := config.Validate(cfg)

		// then
		require.NoError(t, err)
	})

	t.Run("should pass with a full configuration", func(t *testing.T) {
		t.Parallel()

		// given
		cfg := config.Default()
		cfg.Provider = config.ProviderConfig{Type: "gitlab", Token: "glpat_token"}
		cfg.Repositories = []string{"acme/api", "acme/web"}
		cfg.BaseBranch = "main"
		cfg.CloneDepth = 1

		// when
		err := config.Validate(cfg)

		// then
		require.NoError(t, err)
	})
}

//nolint:tparallel // some subtests use t.Setenv which is incompatible with t.Parallel on parent
func TestLoad(t *testing.T) {
	t.Run("should parse a full config file", func(t *testing.T) {
		t.Parallel()

		// given
		tmpDir := t.TempDir()
		cfgFile := filepath.Join(tmpDir, "actionpin.yaml")
		content := `
provider:
  type: github
  token: "ghp_test_token"
repositories:
  - "acme/api"
  - "acme/web"
branch: "pin-actions"
base_branch: "main"
clone_depth: 1
clean_comment: true
commit_message: "ci: pin actions"
pull_request:
  title: "ci: pin actions"
pinner:
  binary: "ratchet"
`
		err := os.WriteFile(cfgFile, []byte(content), 0o600)
		require.NoError(t, err)

		// when
		cfg, err := config.Load(cfgFile)

		// then
		require.NoError(t, err)
		assert.Equal(t, "github", cfg.Provider.Type)
		assert.Equal(t, "ghp_test_token", cfg.Provider.Token)
		assert.Equal(t, []string{"acme/api", "acme/web"}, cfg.Repositories)
		assert.Equal(t, "pin-actions", cfg.Branch)
		assert.Equal(t, "main", cfg.BaseBranch)
		assert.Equal(t, 1, cfg.CloneDepth)
		assert.True(t, cfg.CleanComment)
		assert.Equal(t, "ci: pin actions", cfg.CommitMessage)
		assert.Equal(t, "ci: pin actions", cfg.PullRequest.Title)
		assert.Equal(t, "ratchet", cfg.Pinner.Binary)
	})

	t.Run("should keep defaults for fields the file does not set", func(t *testing.T) {
		t.Parallel()

		// given
		tmpDir := t.TempDir()
		cfgFile := filepath.Join(tmpDir, "actionpin.yaml")
		content := `
repositories:
  - "acme/api"
`
		err := os.WriteFile(cfgFile, []byte(content), 0o600)
		require.NoError(t, err)

		// when
		cfg, err := config.Load(cfgFile)

		// then
		require.NoError(t, err)
		assert.Equal(t, config.DefaultProvider, cfg.Provider.Type)
		assert.Equal(t, config.DefaultBranch, cfg.Branch)
		assert.Equal(t, config.DefaultCommitMessage, cfg.CommitMessage)
		assert.Equal(t, config.DefaultPullRequestTitle, cfg.PullRequest.Title)
		assert.Equal(t, config.DefaultPinnerBinary, cfg.Pinner.Binary)
	})

	t.Run("should resolve the token while loading", func(t *testing.T) {
		// NOTE: cannot use t.Parallel() with t.Setenv()

		// given
		t.Setenv("ACTIONPIN_LOAD_TOKEN", "expanded-token-value")
		tmpDir := t.TempDir()
		cfgFile := filepath.Join(tmpDir, "actionpin.yaml")
		content := `
provider:
  type: github
  token: "${ACTIONPIN_LOAD_TOKEN}"
repositories:
  - "acme/api"
`
		err := os.WriteFile(cfgFile, []byte(content), 0o600)
		require.NoError(t, err)

		// when
		cfg, err := config.Load(cfgFile)

		// then
		require.NoError(t, err)
		assert.Equal(t, "expanded-token-value", cfg.Provider.Token)
	})

	t.Run("should fail when the file does not exist", func(t *testing.T) {
		t.Parallel()

		// given
		path := "/tmp/nonexistent_actionpin_config_xyz.yaml"

		// when
		cfg, err := config.Load(path)

		// then
		require.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "failed to read config file")
	})

	t.Run("should reject malformed YAML", func(t *testing.T) {
		t.Parallel()

		// given
		tmpDir := t.TempDir()
		cfgFile := filepath.Join(tmpDir, "broken.yaml")
		err := os.WriteFile(cfgFile, []byte("provider: [unterminated"), 0o600)
		require.NoError(t, err)

		// when
		cfg, err := config.Load(cfgFile)

		// then
		require.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "failed to parse config file")
	})

	t.Run("should fail validation when the file blanks the branch", func(t *testing.T) {
		t.Parallel()

		// given
		tmpDir := t.TempDir()
		cfgFile := filepath.Join(tmpDir, "empty-branch.yaml")
		err := os.WriteFile(cfgFile, []byte(`branch: ""`), 0o600)
		require.NoError(t, err)

		// when
		cfg, err := config.Load(cfgFile)

		// then
		require.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "branch must not be empty")
	})
}

func TestFindConfigFile(t *testing.T) {
	t.Run("should report when no file is found anywhere", func(t *testing.T) {
		// given
		tmpDir := t.TempDir()
		t.Chdir(tmpDir)
		t.Setenv("HOME", tmpDir)

		// when
		path, err := config.FindConfigFile()

		// then
		require.Error(t, err)
		assert.Empty(t, path)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("should find actionpin.yaml in current directory", func(t *testing.T) {
		// given
		tmpDir := t.TempDir()
		t.Chdir(tmpDir)
		t.Setenv("HOME", tmpDir)

		cfgFile := filepath.Join(tmpDir, "actionpin.yaml")
		require.NoError(t, os.WriteFile(cfgFile, []byte("repositories: []"), 0o600))

		// when
		path, err := config.FindConfigFile()

		// then
		require.NoError(t, err)
		assert.Equal(t, "actionpin.yaml", path)
	})

	t.Run("should find .actionpin.yaml in current directory", func(t *testing.T) {
		// given
		tmpDir := t.TempDir()
		t.Chdir(tmpDir)
		t.Setenv("HOME", tmpDir)

		cfgFile := filepath.Join(tmpDir, ".actionpin.yaml")
		require.NoError(t, os.WriteFile(cfgFile, []byte("repositories: []"), 0o600))

		// when
		path, err := config.FindConfigFile()

		// then
		require.NoError(t, err)
		assert.Equal(t, ".actionpin.yaml", path)
	})

	t.Run("should prefer the hidden file over the plain one", func(t *testing.T) {
		// given
		tmpDir := t.TempDir()
		t.Chdir(tmpDir)
		t.Setenv("HOME", tmpDir)

		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".actionpin.yaml"), []byte("branch: hidden"), 0o600))
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "actionpin.yaml"), []byte("branch: plain"), 0o600))

		// when
		path, err := config.FindConfigFile()

		// then
		require.NoError(t, err)
		assert.Equal(t, ".actionpin.yaml", path)
	})
}
