package cmd

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/toozej/playlist2csv/internal/export"
)

// newExportCmd creates the export command for writing a playlist to CSV.
func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <playlist-url>",
		Short: "Export a Spotify playlist to CSV",
		Long: `Export the tracks of a public Spotify playlist to <playlist name>_playlist.csv.
Each row holds the track title, its artists, the album, the album cover URL and
the album release date. Stored credentials are used when present; otherwise the
--client-id/--client-secret flags or SPOTIFY_CLIENT_ID/SPOTIFY_CLIENT_SECRET are
saved to the credential store and used.`,
		Args: cobra.ExactArgs(1),
		RunE: runExport,
	}

	cmd.Flags().StringP("output-dir", "o", "", "Directory to write the CSV file to (default from EXPORT_OUTPUT_DIR)")
	cmd.Flags().Bool("stdout", false, "Write the CSV to stdout instead of a file")
	cmd.Flags().Bool("escape", false, "Double embedded quotes in values")
	cmd.Flags().Bool("all-pages", false, "Follow pagination and export every track")
	cmd.Flags().Bool("dedupe", false, "Drop repeated tracks, keeping the first occurrence")
	cmd.Flags().String("client-id", "", "Spotify client ID, saved when the store has none")
	cmd.Flags().String("client-secret", "", "Spotify client secret, saved when the store has none")

	return cmd
}

// runExport executes the export command.
func runExport(cmd *cobra.Command, args []string) error {
	outputDir, _ := cmd.Flags().GetString("output-dir")
	toStdout, _ := cmd.Flags().GetBool("stdout")
	escape, _ := cmd.Flags().GetBool("escape")
	allPages, _ := cmd.Flags().GetBool("all-pages")
	dedupe, _ := cmd.Flags().GetBool("dedupe")
	clientID, _ := cmd.Flags().GetString("client-id")
	clientSecret, _ := cmd.Flags().GetString("client-secret")

	if !cmd.Flags().Changed("output-dir") {
		outputDir = conf.Export.OutputDir
	}

	svc, err := initializeServices()
	if err != nil {
		return err
	}
	defer svc.Close()

	req := export.Request{
		PlaylistURL:  args[0],
		OutputDir:    outputDir,
		EscapeQuotes: escape || conf.Export.EscapeQuotes,
		AllPages:     allPages || conf.Export.AllPages,
		Dedupe:       dedupe || conf.Export.Dedupe,
		Credentials:  fallbackCredentials(clientID, clientSecret),
	}
	if toStdout {
		req.Output = cmd.OutOrStdout()
	}

	result, err := svc.exporter.Export(commandContext(cmd), req)
	if err != nil {
		printErrorHint(cmd.ErrOrStderr(), err)
		return fmt.Errorf("export failed: %w", err)
	}

	log.WithFields(log.Fields{
		"run_id":   result.RunID,
		"playlist": result.PlaylistName,
		"tracks":   result.TrackCount,
	}).Debug("Export command finished")

	if toStdout {
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✅ Exported %d track(s) from '%s' to %s\n",
		result.TrackCount, result.PlaylistName, result.Path)
	if result.Duplicates > 0 && !req.Dedupe {
		fmt.Fprintf(cmd.OutOrStdout(), "   ⚠️  %d duplicate track(s) kept, use --dedupe to drop them\n", result.Duplicates)
	}
	return nil
}
