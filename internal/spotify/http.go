// Package spotify talks to the Spotify accounts service and Web API.
//
// TokenClient performs the OAuth client credentials grant and Client reads
// playlists through github.com/zmb3/spotify/v2, flattening them into
// types.TrackRecord values.
package spotify

import (
	"net/http"
	"time"

	"github.com/toozej/playlist2csv/pkg/useragent"
)

// NewHTTPClient returns an HTTP client with the given timeout that stamps the
// playlist2csv User-Agent on every request.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: useragent.NewTransport(nil),
	}
}
