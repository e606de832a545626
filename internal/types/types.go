package types

import (
	"context"
	"fmt"
	"time"
)

// CredentialStore persists the client credentials and the cached access token.
//
// Getters return ErrNotFound when nothing has been stored yet.
type CredentialStore interface {
	GetCredentials(ctx context.Context) (*Credentials, error)
	SaveCredentials(ctx context.Context, creds Credentials) error
	GetCachedToken(ctx context.Context) (*AccessToken, error)
	SaveToken(ctx context.Context, token AccessToken) error
	ClearToken(ctx context.Context) error
	Close() error
}

// TokenFetcher exchanges client credentials for a bearer access token
type TokenFetcher interface {
	FetchToken(ctx context.Context, creds Credentials) (*AccessToken, error)
}

// PlaylistFetcher retrieves a playlist by ID and flattens it into track records
type PlaylistFetcher interface {
	FetchPlaylist(ctx context.Context, token AccessToken, playlistID string, allPages bool) (*PlaylistExport, error)
}

// Core data models

// Credentials identify the Spotify application used for the client credentials grant
type Credentials struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"` // #nosec G117 -- stored with 0600 permissions
}

// IsComplete reports whether both the client ID and secret are set
func (c Credentials) IsComplete() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// TokenExpirySkew is subtracted from a token's expiry when deciding whether
// a cached token can still be used.
const TokenExpirySkew = time.Minute

// AccessToken is a bearer token for the Spotify Web API
type AccessToken struct {
	Value     string    `json:"accessToken"`
	ExpiresAt time.Time `json:"accessTokenExpiry"`
}

// Valid reports whether the token can be used at the given time. A token
// without an expiry stays valid until the API rejects it.
func (t AccessToken) Valid(now time.Time) bool {
	if t.Value == "" {
		return false
	}
	if t.ExpiresAt.IsZero() {
		return true
	}
	return now.Before(t.ExpiresAt.Add(-TokenExpirySkew))
}

// TrackRecord is one flattened playlist item. Field order is the CSV column order.
type TrackRecord struct {
	Title       string `json:"title" csv:"title"`
	Artist      string `json:"artist" csv:"artist"`
	Album       string `json:"album" csv:"album"`
	CoverArtURL string `json:"coverArtUrl" csv:"coverArtUrl"`
	ReleaseDate string `json:"releaseDate" csv:"releaseDate"`
}

// String returns a string representation of the track
func (r TrackRecord) String() string {
	if r.Album != "" {
		return fmt.Sprintf("%s - %s (%s)", r.Artist, r.Title, r.Album)
	}
	return fmt.Sprintf("%s - %s", r.Artist, r.Title)
}

// PlaylistExport is a playlist name plus its tracks in API order
type PlaylistExport struct {
	PlaylistID   string        `json:"playlistId"`
	PlaylistName string        `json:"playlistName"`
	Tracks       []TrackRecord `json:"tracks"`
}

// TrackCount returns the number of tracks in the export
func (p *PlaylistExport) TrackCount() int {
	if p == nil {
		return 0
	}
	return len(p.Tracks)
}
