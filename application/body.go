package application

import (
	"fmt"
	"os"
	"strings"

	"github.com/valyala/fasttemplate"

	"github.com/pinforge/actionpin/config"
	"github.com/pinforge/actionpin/domain"
)

// DefaultPullRequestBody is used when no body file is configured.
const DefaultPullRequestBody = "This automatically generated pull request upgrades the workflows " +
	"using ratchet. It pins the versions of the actions used in the workflows to prevent bad " +
	"actors from overwriting tags/versions. Please review the changes and merge if everything " +
	"looks good."

const (
	templateStartTag = "{{"
	templateEndTag   = "}}"
)

// ResolveBodyTemplate returns the body template for the run, reading the
// configured file when one is set. The same template serves every
// repository in the batch.
func ResolveBodyTemplate(cfg *config.Config) (string, error) {
	if cfg.PullRequest.BodyPath == "" {
		return DefaultPullRequestBody, nil
	}

	data, err := os.ReadFile(cfg.PullRequest.BodyPath)
	if err != nil {
		return "", fmt.Errorf(
			"failed to read pull request body file %q: %w",
			cfg.PullRequest.BodyPath, err,
		)
	}

	return strings.TrimRight(string(data), "\n"), nil
}

// RenderBody expands the {{repository}}, {{branch}}, and {{base}}
// placeholders in a body template. Unknown placeholders are kept verbatim.
func RenderBody(template string, repo domain.TargetRepo, branch, base string) string {
	if !strings.Contains(template, templateStartTag) {
		return template
	}

	return fasttemplate.ExecuteStringStd(template, templateStartTag, templateEndTag,
		map[string]interface{}{
			"repository": repo.String(),
			"branch":     branch,
			"base":       base,
		})
}
