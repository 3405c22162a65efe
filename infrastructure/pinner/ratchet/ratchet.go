// Package ratchet shells out to the ratchet binary to pin workflow actions.
package ratchet

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/pinforge/actionpin/domain"
)

// versionPattern matches the version token in "ratchet 0.9.2 (...)" output.
var versionPattern = regexp.MustCompile(`^v?\d+\.\d+`)

// Runner invokes the pinning binary over a working tree, one workflow file
// at a time.
type Runner struct {
	binary        string
	cleanComments bool
}

// New returns a Pinner that shells out to the given binary. An empty binary
// name falls back to "ratchet".
func New(binary string, cleanComments bool) domain.Pinner {
	if binary == "" {
		binary = "ratchet"
	}
	return &Runner{binary: binary, cleanComments: cleanComments}
}

// Version runs "<binary> --version" and returns the parsed version token.
func (r *Runner) Version(ctx context.Context) (string, error) {
	path, err := exec.LookPath(r.binary)
	if err != nil {
		return "", fmt.Errorf("%w: %q is not on PATH", domain.ErrToolNotFound, r.binary)
	}

	out, err := exec.CommandContext(ctx, path, "--version").CombinedOutput()
	if err != nil {
		return "", fmt.Errorf(
			"failed to run %q --version: %w (output: %s)",
			r.binary, err, strings.TrimSpace(string(out)),
		)
	}

	return parseVersion(string(out)), nil
}

// Run pins every workflow file under dir. It stops at the first file the
// tool fails on, returning the outcome gathered so far alongside the error.
func (r *Runner) Run(ctx context.Context, dir string) (*domain.TransformOutcome, error) {
	path, err := exec.LookPath(r.binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not on PATH", domain.ErrToolNotFound, r.binary)
	}

	files, err := workflowFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		logger.Debugf("No workflow files found under %q", dir)
		return &domain.TransformOutcome{}, nil
	}

	outcome := &domain.TransformOutcome{PinnedFiles: make([]string, 0, len(files))}
	var combined strings.Builder

	for _, rel := range files {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		abs := filepath.Join(dir, rel)
		before, readErr := os.ReadFile(abs)
		if readErr != nil {
			return nil, fmt.Errorf("failed to read workflow %q: %w", rel, readErr)
		}

		cmd := exec.CommandContext(ctx, path, "pin", rel)
		cmd.Dir = dir
		out, runErr := cmd.CombinedOutput()
		combined.Write(out)

		if runErr != nil {
			outcome.ExitStatus = exitStatus(runErr)
			outcome.Output = combined.String()
			return outcome, fmt.Errorf(
				"%s pin %q exited with status %d: %s",
				r.binary, rel, outcome.ExitStatus, strings.TrimSpace(string(out)),
			)
		}

		outcome.PinnedFiles = append(outcome.PinnedFiles, rel)
		if postErr := r.postProcess(abs, string(before)); postErr != nil {
			return nil, postErr
		}
	}

	outcome.Output = combined.String()
	return outcome, nil
}

// postProcess undoes whitespace-only rewrites against the pre-pin snapshot
// and optionally strips the pin trailers down to the original references.
func (r *Runner) postProcess(path, before string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %q after pinning: %w", path, err)
	}
	after := string(data)

	final := domain.RevertWhitespaceOnlyChanges(before, after)
	if r.cleanComments {
		final = domain.CleanPinComments(final)
	}
	if final == after {
		return nil
	}

	if writeErr := os.WriteFile(path, []byte(final), 0o644); writeErr != nil {
		return fmt.Errorf("failed to write %q: %w", path, writeErr)
	}
	return nil
}

// --- helpers ---

// workflowFiles lists the GitHub Actions workflow files under dir, relative
// to dir. A missing workflows directory is not an error.
func workflowFiles(dir string) ([]string, error) {
	workflowDir := filepath.Join(dir, ".github", "workflows")

	entries, err := os.ReadDir(workflowDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list workflows in %q: %w", workflowDir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".yml") || strings.HasSuffix(name, ".yaml") {
			files = append(files, filepath.Join(".github", "workflows", name))
		}
	}

	return files, nil
}

func exitStatus(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// parseVersion pulls the version token out of "ratchet 0.9.2 (...)" style
// output. Unrecognized output is returned trimmed so it still shows in logs.
func parseVersion(output string) string {
	trimmed := strings.TrimSpace(output)
	for _, field := range strings.Fields(trimmed) {
		clean := strings.Trim(field, "(),")
		if versionPattern.MatchString(clean) {
			return clean
		}
	}
	return trimmed
}
