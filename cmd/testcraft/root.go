package main

import (
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/config"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	// configPath is the CLI --config flag value
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "testcraft",
	Short: "testcraft - test annotation coverage dashboard",
	Long: `testcraft collects the test methods reported by repository scans and serves
their annotation coverage as a Team → Class → Method tree, with live search
and annotation filters whose summaries are recomputed over what survives.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("testcraft version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to a YAML config file (default: $TESTCRAFT_CONFIG_PATH)")
}

func loadConfig() (config.Config, error) {
	return config.Load(configPath)
}
