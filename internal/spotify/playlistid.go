package spotify

import (
	"fmt"
	"regexp"

	"github.com/toozej/playlist2csv/internal/types"
)

// playlistIDPattern captures the word characters following the first "playlist/" segment
var playlistIDPattern = regexp.MustCompile(`playlist/(\w+)`)

// ExtractPlaylistID returns the playlist identifier embedded in a Spotify
// playlist URL such as https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M?si=abc.
func ExtractPlaylistID(rawURL string) (string, error) {
	match := playlistIDPattern.FindStringSubmatch(rawURL)
	if match == nil {
		return "", fmt.Errorf("%w: %q has no playlist/<id> segment", types.ErrInvalidPlaylistURL, rawURL)
	}
	return match[1], nil
}
