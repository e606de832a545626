// Package cmd provides command-line interface functionality for the playlist2csv application.
//
// This package implements the root command and manages the command-line interface
// using the cobra library. It handles configuration, logging setup, and command
// execution for the playlist2csv application.
//
// The package integrates with several components:
//   - Configuration management through pkg/config
//   - The export pipeline through internal/export
//   - Manual pages through pkg/man
//   - Version information through pkg/version
//
// Example usage:
//
//	import cmd "github.com/toozej/playlist2csv/cmd/playlist2csv"
//
//	func main() {
//		cmd.Execute()
//	}
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/toozej/playlist2csv/pkg/config"
	"github.com/toozej/playlist2csv/pkg/man"
	"github.com/toozej/playlist2csv/pkg/version"
)

// conf holds the application configuration loaded from environment variables.
// It is populated before every command runs and can be overridden by command-line flags.
var (
	conf config.Config
	// debug controls the logging level for the application.
	debug bool
)

// rootCmd defines the base command for the playlist2csv CLI application.
// The command accepts no positional arguments; all work happens in subcommands.
var rootCmd = &cobra.Command{
	Use:   "playlist2csv",
	Short: "Export a Spotify playlist to CSV",
	Long: `playlist2csv is a command-line application that exports the tracks of a public
Spotify playlist to a CSV file. It authenticates with the client credentials grant,
caches the access token locally, and writes one row per track with its title,
artists, album, cover art URL and release date.`,
	Args:             cobra.ExactArgs(0),
	PersistentPreRun: rootCmdPreRun,
	Run:              rootCmdRun,
	SilenceUsage:     true,
	SilenceErrors:    true,
}

// rootCmdRun is the main execution function for the root command.
// It logs usage hints for the subcommands.
func rootCmdRun(cmd *cobra.Command, args []string) {
	log.Info("Use 'playlist2csv credentials set --client-id <id> --client-secret <secret>' to store Spotify credentials")
	log.Info("Use 'playlist2csv export <playlist-url>' to export a playlist to CSV")
}

// rootCmdPreRun performs setup operations before executing the root command
// or any subcommand: it loads configuration and applies the debug flag.
func rootCmdPreRun(cmd *cobra.Command, args []string) {
	conf = config.GetEnvVars()
	if debug {
		log.SetLevel(log.DebugLevel)
	}
}

// Execute starts the command-line interface execution.
// This is the main entry point called from main.go to begin command processing.
//
// The context is cancelled on SIGINT or SIGTERM so in-flight requests stop.
// If command execution fails, it prints the error message and exits with status 1.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println(err.Error())
		stop()
		os.Exit(1)
	}
}

// commandContext returns the command's context, or a background context
// when the command was not started through Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// init defines persistent flags and registers subcommands.
func init() {
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug-level logging")

	rootCmd.AddCommand(
		newExportCmd(),
		newCredentialsCmd(),
		newTokenCmd(),
		newSearchCmd(),
		man.NewManCmd(),
		version.Command(),
	)
}
