package cmd

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/toozej/playlist2csv/pkg/config"
)

const (
	testPlaylistURL = "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M"
	testClientID    = "cmd-test-id"
	testSecret      = "cmd-test-secret"
)

const testPlaylistJSON = `{
	"id": "37i9dQZF1DXcBWIGoYBM5M",
	"name": "Late Night Jazz",
	"tracks": {
		"href": "", "limit": 100, "offset": 0, "total": 2, "next": "",
		"items": [
			{"track": {"name": "So What", "artists": [{"name": "Miles Davis"}],
				"album": {"name": "Kind of Blue", "release_date": "1959-08-17", "images": [{"url": "http://img/kob"}]}}},
			{"track": {"name": "My Favorite Things", "artists": [{"name": "John Coltrane"}],
				"album": {"name": "My Favorite Things", "release_date": "1961", "images": []}}}
		]
	}
}`

// spotifyStub serves the token endpoint and the playlist endpoint
type spotifyStub struct {
	server        *httptest.Server
	tokenRequests atomic.Int32
}

func newSpotifyStub(t *testing.T) *spotifyStub {
	t.Helper()
	stub := &spotifyStub{}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		stub.tokenRequests.Add(1)
		id, secret, ok := r.BasicAuth()
		if !ok || id != testClientID || secret != testSecret {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":"invalid_client"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"cmd-token","token_type":"Bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/v1/playlists/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer cmd-token" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":{"status":401,"message":"Invalid access token"}}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, testPlaylistJSON)
	})

	stub.server = httptest.NewServer(mux)
	t.Cleanup(stub.server.Close)
	return stub
}

// useTestConfig points conf at the stub and a temporary credential store
func useTestConfig(t *testing.T, stub *spotifyStub, backend string) {
	t.Helper()
	orig := conf
	t.Cleanup(func() { conf = orig })

	dir := t.TempDir()
	storePath := filepath.Join(dir, "credentials.json")
	if backend == config.BackendSQLite {
		storePath = filepath.Join(dir, "playlist2csv.db")
	}

	conf = config.Config{
		Spotify: config.SpotifyConfig{
			TokenURL:    stub.server.URL + "/api/token",
			APIBaseURL:  stub.server.URL + "/v1/",
			HTTPTimeout: 5,
		},
		Store:  config.StoreConfig{Backend: backend, Path: storePath},
		Export: config.ExportConfig{OutputDir: dir},
	}
}

// runCommand executes cmd with args and returns stdout and stderr
func runCommand(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireNoErr(t *testing.T, err error, stderr string) {
	t.Helper()
	require.NoError(t, err, "stderr: %s", stderr)
}
