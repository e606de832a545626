package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// newTokenCmd creates the token command group for managing the cached access token.
func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the cached Spotify access token",
	}

	fetchCmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch a new access token and cache it",
		Args:  cobra.ExactArgs(0),
		RunE:  runTokenFetch,
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop the cached access token",
		Args:  cobra.ExactArgs(0),
		RunE:  runTokenClear,
	}

	cmd.AddCommand(fetchCmd, clearCmd)
	return cmd
}

func runTokenFetch(cmd *cobra.Command, args []string) error {
	svc, err := initializeServices()
	if err != nil {
		return err
	}
	defer svc.Close()

	token, err := svc.exporter.Token(commandContext(cmd), fallbackCredentials("", ""), true)
	if err != nil {
		printErrorHint(cmd.ErrOrStderr(), err)
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✅ Access token cached, %s\n", tokenStatus(token, time.Now()))
	return nil
}

func runTokenClear(cmd *cobra.Command, args []string) error {
	svc, err := initializeServices()
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.exporter.ClearToken(commandContext(cmd)); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "🗑️  Cached access token cleared")
	return nil
}
