package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/toozej/playlist2csv/internal/types"
)

// newCredentialsCmd creates the credentials command group.
func newCredentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage stored Spotify client credentials",
	}

	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Save the Spotify client ID and secret",
		Long: `Save the Spotify client ID and secret to the credential store.
Saving new credentials also drops any cached access token.`,
		Args: cobra.ExactArgs(0),
		RunE: runCredentialsSet,
	}
	setCmd.Flags().String("client-id", "", "Spotify client ID")
	setCmd.Flags().String("client-secret", "", "Spotify client secret")
	_ = setCmd.MarkFlagRequired("client-id")
	_ = setCmd.MarkFlagRequired("client-secret")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the stored client ID and cached token status",
		Args:  cobra.ExactArgs(0),
		RunE:  runCredentialsShow,
	}

	cmd.AddCommand(setCmd, showCmd)
	return cmd
}

func runCredentialsSet(cmd *cobra.Command, args []string) error {
	clientID, _ := cmd.Flags().GetString("client-id")
	clientSecret, _ := cmd.Flags().GetString("client-secret")

	svc, err := initializeServices()
	if err != nil {
		return err
	}
	defer svc.Close()

	creds := types.Credentials{ClientID: clientID, ClientSecret: clientSecret}
	if err := svc.exporter.SaveCredentials(commandContext(cmd), creds); err != nil {
		printErrorHint(cmd.ErrOrStderr(), err)
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "✅ Credentials saved")
	return nil
}

// runCredentialsShow prints the stored client ID. The secret itself is never printed.
func runCredentialsShow(cmd *cobra.Command, args []string) error {
	svc, err := initializeServices()
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	creds, err := svc.store.GetCredentials(ctx)
	switch {
	case errors.Is(err, types.ErrNotFound):
		fmt.Fprintln(out, "Client ID:     (not set)")
		fmt.Fprintln(out, "Client secret: (not set)")
	case err != nil:
		return fmt.Errorf("failed to load credentials: %w", err)
	default:
		fmt.Fprintf(out, "Client ID:     %s\n", valueOrUnset(creds.ClientID))
		fmt.Fprintf(out, "Client secret: %s\n", setOrUnset(creds.ClientSecret))
	}

	token, err := svc.store.GetCachedToken(ctx)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return fmt.Errorf("failed to load cached token: %w", err)
	}
	fmt.Fprintf(out, "Access token:  %s\n", tokenStatus(token, time.Now()))

	return nil
}

func valueOrUnset(v string) string {
	if v == "" {
		return "(not set)"
	}
	return v
}

func setOrUnset(v string) string {
	if v == "" {
		return "(not set)"
	}
	return "(set)"
}

// tokenStatus describes a cached token; token may be nil
func tokenStatus(token *types.AccessToken, now time.Time) string {
	switch {
	case token == nil:
		return "none cached"
	case !token.Valid(now):
		return "expired"
	case token.ExpiresAt.IsZero():
		return "valid (no expiry)"
	default:
		return fmt.Sprintf("valid until %s", token.ExpiresAt.Local().Format(time.RFC3339))
	}
}
