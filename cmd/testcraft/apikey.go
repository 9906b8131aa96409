package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	apikeyClient      string
	apikeyToken       string
	apikeyDescription string
)

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage API keys",
}

var apikeyAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an API key for a client",
	Long: `Add an API key for a client. Only the key's hash is stored; the key is
printed once.

Examples:
  testcraft apikey add --client ci-scanner
  testcraft apikey add --client dashboard --token "$DASHBOARD_TOKEN"`,
	Args: cobra.NoArgs,
	RunE: runAPIKeyAdd,
}

func init() {
	apikeyAddCmd.Flags().StringVar(&apikeyClient, "client", "", "Client name recorded as the actor of its activity")
	apikeyAddCmd.Flags().StringVar(&apikeyToken, "token", "", "Key to store (generated when empty)")
	apikeyAddCmd.Flags().StringVar(&apikeyDescription, "description", "", "Free-form description")
	_ = apikeyAddCmd.MarkFlagRequired("client")
	apikeyCmd.AddCommand(apikeyAddCmd)
	rootCmd.AddCommand(apikeyCmd)
}

func runAPIKeyAdd(cmd *cobra.Command, args []string) error {
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

	token := apikeyToken
	if token == "" {
		if token, err = generateToken(); err != nil {
			return err
		}
	}
	if err := a.apiKeys.Add(cmd.Context(), token, apikeyClient, apikeyDescription); err != nil {
		return fmt.Errorf("adding api key: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

func generateToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	return "tc_" + hex.EncodeToString(buf), nil
}
