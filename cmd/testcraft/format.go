package main

import (
	"encoding/json"
	"fmt"
	"strings"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

// FormatResponse formats a response according to the specified format
func FormatResponse(resp any, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func formatJSON(resp any) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

func formatHuman(resp any) (string, error) {
	switch v := resp.(type) {
	case *SummaryResponseCLI:
		return formatSummaryHuman(v), nil
	case *importResult:
		return formatImportHuman(v), nil
	default:
		// For unknown types, fall back to JSON
		return formatJSON(resp)
	}
}

func formatSummaryHuman(resp *SummaryResponseCLI) string {
	var b strings.Builder
	s := resp.Summary

	fmt.Fprintf(&b, "Coverage: %.1f%% (%d of %d methods annotated)\n",
		s.OverallCoverageRate, s.TotalAnnotatedMethods, s.TotalMethods)
	fmt.Fprintf(&b, "Teams: %d  Classes: %d\n", s.TotalTeams, s.TotalClasses)
	if !resp.Filter.IsZero() {
		fmt.Fprintf(&b, "Filter: search=%q annotation=%s\n", resp.Filter.Search, resp.Filter.Mode)
	}

	if len(resp.Teams) > 0 {
		b.WriteString("\n")
		width := 0
		for _, t := range resp.Teams {
			width = max(width, len(t.TeamName))
		}
		for _, t := range resp.Teams {
			fmt.Fprintf(&b, "  %-*s  %6.1f%%  %d/%d methods  %d classes\n",
				width, t.TeamName, t.Summary.CoverageRate,
				t.Summary.AnnotatedMethods, t.Summary.TotalMethods, t.Summary.TotalClasses)
		}
	}
	if s.TotalMethods == 0 {
		b.WriteString("\nNo test methods match the filters.\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatImportHuman(r *importResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Imported %d test methods (%d annotated) from %s\n",
		r.Ingest.Accepted, r.Ingest.Annotated, r.Path)
	if len(r.Ingest.Repositories) > 0 {
		fmt.Fprintf(&b, "Repositories: %s\n", strings.Join(r.Ingest.Repositories, ", "))
	}
	if r.Replaced > 0 {
		fmt.Fprintf(&b, "Replaced %d previously stored methods\n", r.Replaced)
	}
	return strings.TrimRight(b.String(), "\n")
}
