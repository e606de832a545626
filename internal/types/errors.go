package types

import "errors"

// Export pipeline errors. Each step wraps one of these so callers can tell
// the failure causes apart with errors.Is.
var (
	// ErrNotFound is returned by a CredentialStore when a value has not been stored
	ErrNotFound = errors.New("not found")

	// ErrMissingCredentials is returned when no client ID or secret is available
	ErrMissingCredentials = errors.New("missing spotify client credentials")

	// ErrTokenExchange is returned when the client credentials grant fails
	ErrTokenExchange = errors.New("access token exchange failed")

	// ErrInvalidPlaylistURL is returned when a URL has no playlist/<id> segment
	ErrInvalidPlaylistURL = errors.New("invalid playlist URL")

	// ErrPlaylistFetch is returned when the playlist request fails
	ErrPlaylistFetch = errors.New("playlist fetch failed")

	// ErrUnauthorized is returned alongside ErrPlaylistFetch when the API rejects the token
	ErrUnauthorized = errors.New("access token rejected")

	// ErrEmptyExport is returned when there are no tracks to serialize
	ErrEmptyExport = errors.New("no tracks to export")
)
