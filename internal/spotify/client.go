package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"

	"github.com/toozej/playlist2csv/internal/types"
	"github.com/toozej/playlist2csv/pkg/config"
)

const defaultAPIBaseURL = "https://api.spotify.com/v1/"

// Client reads playlists from the Spotify Web API
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

var _ types.PlaylistFetcher = (*Client)(nil)

// NewClient creates a playlist client for the configured API base URL
func NewClient(cfg config.SpotifyConfig, httpClient *http.Client, logger *logrus.Logger) *Client {
	baseURL := cfg.APIBaseURL
	if baseURL == "" {
		baseURL = defaultAPIBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if httpClient == nil {
		httpClient = NewHTTPClient(cfg.Timeout())
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// api returns a Spotify client that sends the given token as a Bearer header
func (c *Client) api(ctx context.Context, token types.AccessToken) *spotify.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token.Value,
		TokenType:   "Bearer",
	}))
	httpClient.Timeout = c.httpClient.Timeout
	return spotify.New(httpClient, spotify.WithBaseURL(c.baseURL))
}

// FetchPlaylist fetches a playlist and flattens its items into track records
// in API order.
//
// Only the first page of items is read unless allPages is set. Any failure is
// logged and returned wrapped in types.ErrPlaylistFetch; a 401 additionally
// wraps types.ErrUnauthorized so callers can drop the cached token.
func (c *Client) FetchPlaylist(ctx context.Context, token types.AccessToken, playlistID string, allPages bool) (*types.PlaylistExport, error) {
	c.logger.WithFields(logrus.Fields{
		"playlist_id": playlistID,
		"all_pages":   allPages,
	}).Debug("Fetching playlist")

	api := c.api(ctx, token)

	playlist, err := api.GetPlaylist(ctx, spotify.ID(playlistID))
	if err != nil {
		return nil, c.fetchError(playlistID, err)
	}

	tracks := FlattenTracks(playlist.Tracks.Tracks)

	if allPages {
		page := playlist.Tracks
		for {
			err := api.NextPage(ctx, &page)
			if errors.Is(err, spotify.ErrNoMorePages) {
				break
			}
			if err != nil {
				return nil, c.fetchError(playlistID, err)
			}
			tracks = append(tracks, FlattenTracks(page.Tracks)...)
		}
	} else if playlist.Tracks.Next != "" {
		c.logger.WithFields(logrus.Fields{
			"playlist_id":  playlistID,
			"total_tracks": int(playlist.Tracks.Total),
			"exported":     len(tracks),
		}).Warn("Playlist has more tracks than the first page; only the first page is exported")
	}

	c.logger.WithFields(logrus.Fields{
		"playlist_id":   playlistID,
		"playlist_name": playlist.Name,
		"track_count":   len(tracks),
	}).Info("Fetched playlist")

	return &types.PlaylistExport{
		PlaylistID:   playlistID,
		PlaylistName: playlist.Name,
		Tracks:       tracks,
	}, nil
}

// fetchError logs a playlist request failure and classifies it
func (c *Client) fetchError(playlistID string, err error) error {
	fields := logrus.Fields{"playlist_id": playlistID}

	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		fields["status"] = apiErr.Status
		if apiErr.Status == http.StatusUnauthorized {
			c.logger.WithError(err).WithFields(fields).Error("Spotify rejected the access token")
			return fmt.Errorf("%w: %w: %w", types.ErrPlaylistFetch, types.ErrUnauthorized, err)
		}
	}

	c.logger.WithError(err).WithFields(fields).Error("Failed to fetch playlist")
	return fmt.Errorf("%w: %w", types.ErrPlaylistFetch, err)
}

// FlattenTracks converts playlist items into flat track records, preserving order
func FlattenTracks(items []spotify.PlaylistTrack) []types.TrackRecord {
	records := make([]types.TrackRecord, 0, len(items))
	for _, item := range items {
		records = append(records, FlattenTrack(item.Track))
	}
	return records
}

// FlattenTrack converts a single track. Artist names are joined with ", " in
// API order and the cover art is the album's first image.
func FlattenTrack(track spotify.FullTrack) types.TrackRecord {
	artists := make([]string, len(track.Artists))
	for i, artist := range track.Artists {
		artists[i] = artist.Name
	}

	record := types.TrackRecord{
		Title:       track.Name,
		Artist:      strings.Join(artists, ", "),
		Album:       track.Album.Name,
		ReleaseDate: track.Album.ReleaseDate,
	}
	if len(track.Album.Images) > 0 {
		record.CoverArtURL = track.Album.Images[0].URL
	}

	return record
}
