package cmd

import (
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/toozej/playlist2csv/internal/search"
)

// newSearchCmd creates the search command for finding tracks in a playlist.
func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <playlist-url> <query>",
		Short: "Search for tracks in a Spotify playlist",
		Long: `Search for tracks in a Spotify playlist using fuzzy matching.
This command fetches the playlist and matches the query against
"artist - title (album)" for every track.`,
		Args: cobra.ExactArgs(2),
		RunE: runSearch,
	}

	cmd.Flags().IntP("limit", "n", 10, "Maximum number of results (0 for all)")
	cmd.Flags().Bool("all-pages", false, "Follow pagination and search every track")

	return cmd
}

// runSearch executes the search command.
func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.TrimSpace(args[1])
	if query == "" {
		return fmt.Errorf("search query cannot be empty")
	}
	limit, _ := cmd.Flags().GetInt("limit")
	allPages, _ := cmd.Flags().GetBool("all-pages")

	svc, err := initializeServices()
	if err != nil {
		return err
	}
	defer svc.Close()

	playlist, err := svc.exporter.Fetch(commandContext(cmd), args[0], allPages || conf.Export.AllPages, fallbackCredentials("", ""))
	if err != nil {
		printErrorHint(cmd.ErrOrStderr(), err)
		return err
	}

	matches, err := search.NewTrackSearcher(log.StandardLogger()).Search(playlist.Tracks, query, limit)
	if err != nil {
		return err
	}

	if len(matches) == 0 {
		log.WithField("query", query).Warn("No matching tracks found")
		return nil
	}

	displaySearchResults(cmd.OutOrStdout(), playlist.PlaylistName, query, matches)
	return nil
}

// displaySearchResults displays the search results in a formatted way
func displaySearchResults(w io.Writer, playlistName, query string, matches []search.TrackMatch) {
	fmt.Fprintf(w, "\n🔍 Search Results for '%s' in '%s':\n", query, playlistName)
	fmt.Fprintf(w, "Found %d matching track(s):\n\n", len(matches))

	for i, match := range matches {
		fmt.Fprintf(w, "%d. 🎵 %s\n", i+1, match.Track.String())
		fmt.Fprintf(w, "   #%d in playlist, confidence %.2f\n", match.Position, match.Confidence)
		if match.Track.ReleaseDate != "" {
			fmt.Fprintf(w, "   📅 Released: %s\n", match.Track.ReleaseDate)
		}
		fmt.Fprintln(w)
	}
}
