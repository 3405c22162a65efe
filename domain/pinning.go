package domain

import (
	"regexp"
	"strings"
)

// pinCommentPattern matches the "# ratchet:owner/repo@ref" trailer the
// pinning tool appends after a pinned action reference. Exclusion markers
// such as "# ratchet:exclude" carry no "@" and are left alone.
var pinCommentPattern = regexp.MustCompile(`#\s*ratchet:\S+@(\S+)`)

// CleanPinComments rewrites pin trailers to keep only the original
// reference, turning "# ratchet:actions/checkout@v4" into "# v4".
// The function is idempotent.
func CleanPinComments(content string) string {
	return pinCommentPattern.ReplaceAllString(content, "# $1")
}

// RevertWhitespaceOnlyChanges returns the original content when updated
// differs from it only in whitespace noise (blank lines, trailing spaces,
// or a trailing-newline change), and updated otherwise. The pinning tool
// rewrites files it does not materially change, and those rewrites must not
// end up in a commit.
func RevertWhitespaceOnlyChanges(original, updated string) string {
	if original == updated {
		return original
	}
	if stripWhitespaceNoise(original) == stripWhitespaceNoise(updated) {
		return original
	}
	return updated
}

func stripWhitespaceNoise(content string) string {
	lines := strings.Split(content, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t")
		if trimmed == "" {
			continue
		}
		kept = append(kept, trimmed)
	}
	return strings.Join(kept, "\n")
}
