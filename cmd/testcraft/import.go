package main

import (
	"context"
	"fmt"

	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/activity"
	"github.com/spf13/cobra"
)

var (
	importReplace bool
	importFormat  string
)

var importCmd = &cobra.Command{
	Use:   "import <snapshot.json>",
	Short: "Import test methods from a snapshot file",
	Long: `Import test methods from a snapshot file into the store.

The file is either a grouped {teams, summary} document as served by the
dashboard, or a flat JSON array of test methods. Methods are upserted by
(repository, testClass, testMethod).

Examples:
  testcraft import coverage.json
  testcraft import --replace scan-auth.json   # drop the repository's old methods first`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVar(&importReplace, "replace", false, "Replace the stored methods of every repository in the snapshot")
	importCmd.Flags().StringVar(&importFormat, "format", string(FormatHuman), "Output format (json, human)")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
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

	ctx := activity.WithActor(cmd.Context(), "cli")
	result, err := a.importSnapshot(ctx, args[0], importReplace)
	if err != nil {
		return err
	}

	output, err := FormatResponse(result, OutputFormat(importFormat))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), output)
	return nil
}
