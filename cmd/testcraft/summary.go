package main

import (
	"context"
	"fmt"

	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/coverage"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/snapshot"
	"github.com/spf13/cobra"
)

var (
	summarySearch     string
	summaryAnnotation string
	summaryLimit      int
	summaryFormat     string
	summaryTeams      bool
	summaryOut        string
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print coverage summaries",
	Long: `Print the coverage summary of the stored test methods, optionally filtered.

Examples:
  testcraft summary
  testcraft summary --annotation not-annotated --teams
  testcraft summary --search login --format json
  testcraft summary --annotation not-annotated --out gaps.json`,
	Args: cobra.NoArgs,
	RunE: runSummary,
}

func init() {
	summaryCmd.Flags().StringVar(&summarySearch, "search", "", "Case-insensitive search term")
	summaryCmd.Flags().StringVar(&summaryAnnotation, "annotation", "all", "Annotation filter (all, annotated, not-annotated)")
	summaryCmd.Flags().IntVar(&summaryLimit, "limit", 0, "Read at most this many methods (0 reads all)")
	summaryCmd.Flags().StringVar(&summaryFormat, "format", string(FormatHuman), "Output format (json, human)")
	summaryCmd.Flags().BoolVar(&summaryTeams, "teams", false, "Include per-team summaries")
	summaryCmd.Flags().StringVar(&summaryOut, "out", "", "Also write the filtered tree to this file as an importable snapshot")
	rootCmd.AddCommand(summaryCmd)
}

// SummaryResponseCLI is the output of the summary command.
type SummaryResponseCLI struct {
	Filter  coverage.Filter      `json:"filter"`
	Summary coverage.RootSummary `json:"summary"`
	Teams   []TeamSummaryCLI     `json:"teams,omitempty"`
}

// TeamSummaryCLI is one team line of the summary command.
type TeamSummaryCLI struct {
	TeamName string               `json:"teamName"`
	Summary  coverage.TeamSummary `json:"summary"`
}

func runSummary(cmd *cobra.Command, args []string) error {
	mode, err := coverage.ParseAnnotationMode(summaryAnnotation)
	if err != nil {
		return err
	}
	filter := coverage.Filter{Search: summarySearch, Mode: mode}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog := newLogger(cfg.Log.Level)
	defer closeLog()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	tree, err := loadSummary(cmd.Context(), a, filter, summaryLimit)
	if err != nil {
		return err
	}
	if summaryOut != "" {
		if err := snapshot.WriteFile(summaryOut, tree); err != nil {
			return err
		}
		logger.Info("snapshot written", "path", summaryOut, "methods", tree.Summary.TotalMethods)
	}

	output, err := FormatResponse(buildSummaryResponse(filter, tree, summaryTeams), OutputFormat(summaryFormat))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), output)
	return nil
}

func loadSummary(ctx context.Context, a *app, f coverage.Filter, limit int) (*coverage.Tree, error) {
	if limit == 0 {
		if _, err := a.dataset.Refresh(ctx); err != nil {
			return nil, err
		}
	}
	return a.dataset.Query(ctx, f, limit)
}

func buildSummaryResponse(f coverage.Filter, tree *coverage.Tree, withTeams bool) *SummaryResponseCLI {
	resp := &SummaryResponseCLI{Filter: f.Normalize(), Summary: tree.Summary}
	if withTeams {
		for _, team := range tree.Teams {
			resp.Teams = append(resp.Teams, TeamSummaryCLI{TeamName: team.TeamName, Summary: team.Summary})
		}
	}
	return resp
}
