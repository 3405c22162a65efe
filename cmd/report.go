package cmd

import (
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/pinforge/actionpin/domain"
)

const maxDetailWidth = 60

// renderReport writes the batch outcome report in the requested format.
func renderReport(w io.Writer, report *domain.BatchReport, format string) error {
	switch format {
	case "json":
		return renderJSON(w, report)
	case "", "table":
		renderTable(w, report)
		return nil
	default:
		return fmt.Errorf("unknown output format %q (expected table or json)", format)
	}
}

type outcomeRow struct {
	Repository  string `json:"repository"`
	Status      string `json:"status"`
	Detail      string `json:"detail,omitempty"`
	PullRequest string `json:"pull_request,omitempty"`
}

func reportRows(report *domain.BatchReport) []outcomeRow {
	rows := make([]outcomeRow, 0, len(report.Outcomes))
	for _, outcome := range report.Outcomes {
		row := outcomeRow{
			Repository: outcome.Repo.String(),
			Status:     string(outcome.Status),
			Detail:     outcome.Detail(),
		}
		if outcome.PullRequest != nil {
			row.PullRequest = outcome.PullRequest.URL
		}
		rows = append(rows, row)
	}
	return rows
}

func renderJSON(w io.Writer, report *domain.BatchReport) error {
	data, err := json.MarshalIndent(reportRows(report), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	_, err = fmt.Fprintln(w, string(data))
	return err
}

func renderTable(w io.Writer, report *domain.BatchReport) {
	rows := reportRows(report)

	repoW := len("Repository")
	detailW := len("Detail")
	urlW := len("Pull Request")

	for _, row := range rows {
		if len(row.Repository) > repoW {
			repoW = len(row.Repository)
		}
		if len(row.Detail) > detailW {
			detailW = len(row.Detail)
		}
		if len(row.PullRequest) > urlW {
			urlW = len(row.PullRequest)
		}
	}

	if detailW > maxDetailWidth {
		detailW = maxDetailWidth
	}

	fmt.Fprintf(w, "%-*s  %-*s  %-*s  %s\n",
		repoW, "Repository",
		detailW, "Detail",
		urlW, "Pull Request",
		"Status")

	fmt.Fprintln(w, strings.Repeat("-", repoW+detailW+urlW+len("Status")+6))

	for _, row := range rows {
		fmt.Fprintf(w, "%-*s  %-*s  %-*s  %s\n",
			repoW, row.Repository,
			detailW, truncate(row.Detail, detailW),
			urlW, row.PullRequest,
			statusLabel(row.Status))
	}

	ok, skipped, failed := report.Counts()
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total: %d repositories, %d updated, %d skipped, %d failed\n",
		len(rows), ok, skipped, failed)
}

func statusLabel(status string) string {
	switch status {
	case string(domain.StatusOK):
		return "✅ ok"
	case string(domain.StatusSkipped):
		return "🟡 skipped"
	case string(domain.StatusFailed):
		return "🔴 failed"
	default:
		return status
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
