package export

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toozej/playlist2csv/internal/spotify"
	"github.com/toozej/playlist2csv/internal/store"
	"github.com/toozej/playlist2csv/internal/types"
	"github.com/toozej/playlist2csv/pkg/config"
)

const examplePlaylistURL = "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M"

// memoryStore is an in-memory CredentialStore
type memoryStore struct {
	mu          sync.Mutex
	creds       *types.Credentials
	token       *types.AccessToken
	clearCalled int
}

func (m *memoryStore) GetCredentials(_ context.Context) (*types.Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.creds == nil {
		return nil, types.ErrNotFound
	}
	c := *m.creds
	return &c, nil
}

func (m *memoryStore) SaveCredentials(_ context.Context, creds types.Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = &creds
	return nil
}

func (m *memoryStore) GetCachedToken(_ context.Context) (*types.AccessToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == nil {
		return nil, types.ErrNotFound
	}
	tok := *m.token
	return &tok, nil
}

func (m *memoryStore) SaveToken(_ context.Context, token types.AccessToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = &token
	return nil
}

func (m *memoryStore) ClearToken(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = nil
	m.clearCalled++
	return nil
}

func (m *memoryStore) Close() error { return nil }

type fakeTokenFetcher struct {
	token *types.AccessToken
	err   error
	calls int
	seen  types.Credentials
}

func (f *fakeTokenFetcher) FetchToken(_ context.Context, creds types.Credentials) (*types.AccessToken, error) {
	f.calls++
	f.seen = creds
	if f.err != nil {
		return nil, f.err
	}
	tok := *f.token
	return &tok, nil
}

type fakePlaylistFetcher struct {
	playlist  *types.PlaylistExport
	err       error
	gotToken  string
	gotID     string
	gotPaging bool
}

func (f *fakePlaylistFetcher) FetchPlaylist(_ context.Context, token types.AccessToken, playlistID string, allPages bool) (*types.PlaylistExport, error) {
	f.gotToken = token.Value
	f.gotID = playlistID
	f.gotPaging = allPages
	if f.err != nil {
		return nil, f.err
	}
	return f.playlist, nil
}

func newTestLogger() (*logrus.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetLevel(logrus.DebugLevel)
	return logger, &buf
}

var fixedNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func sampleExport() *types.PlaylistExport {
	return &types.PlaylistExport{
		PlaylistID:   "37i9dQZF1DXcBWIGoYBM5M",
		PlaylistName: "Today's Top Hits",
		Tracks: []types.TrackRecord{
			{Title: "A", Artist: "X, Y", Album: "B", CoverArtURL: "http://x", ReleaseDate: "2020-01-01"},
		},
	}
}

func newTestExporter(s *memoryStore, tf *fakeTokenFetcher, pf *fakePlaylistFetcher) (*Exporter, *bytes.Buffer) {
	logger, logs := newTestLogger()
	e := NewExporter(s, tf, pf, logger)
	e.now = func() time.Time { return fixedNow }
	return e, logs
}

func TestExporter_Export_WritesFile(t *testing.T) {
	s := &memoryStore{creds: &types.Credentials{ClientID: "id", ClientSecret: "secret"}}
	tf := &fakeTokenFetcher{token: &types.AccessToken{Value: "fresh", ExpiresAt: fixedNow.Add(time.Hour)}}
	pf := &fakePlaylistFetcher{playlist: sampleExport()}
	e, logs := newTestExporter(s, tf, pf)

	dir := t.TempDir()
	result, err := e.Export(context.Background(), Request{PlaylistURL: examplePlaylistURL, OutputDir: dir})
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "37i9dQZF1DXcBWIGoYBM5M", result.PlaylistID)
	assert.Equal(t, 1, result.TrackCount)
	assert.Equal(t, filepath.Join(dir, "Today's Top Hits_playlist.csv"), result.Path)

	content, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	assert.Equal(t, "title,artist,album,coverArtUrl,releaseDate\n\"A\",\"X, Y\",\"B\",\"http://x\",\"2020-01-01\"", string(content))

	assert.Equal(t, 1, tf.calls)
	assert.Equal(t, "fresh", pf.gotToken)
	assert.Equal(t, "37i9dQZF1DXcBWIGoYBM5M", pf.gotID)
	require.NotNil(t, s.token)
	assert.Equal(t, "fresh", s.token.Value, "new token should be cached")
	assert.Contains(t, logs.String(), "run_id="+result.RunID)
}

func TestExporter_Export_WritesToOutput(t *testing.T) {
	s := &memoryStore{creds: &types.Credentials{ClientID: "id", ClientSecret: "secret"}}
	tf := &fakeTokenFetcher{token: &types.AccessToken{Value: "tok"}}
	pf := &fakePlaylistFetcher{playlist: sampleExport()}
	e, _ := newTestExporter(s, tf, pf)

	var out bytes.Buffer
	result, err := e.Export(context.Background(), Request{PlaylistURL: examplePlaylistURL, Output: &out, AllPages: true})
	require.NoError(t, err)

	assert.Empty(t, result.Path)
	assert.True(t, pf.gotPaging)
	assert.Contains(t, out.String(), `"A","X, Y","B","http://x","2020-01-01"`)
}

func TestExporter_TokenCache(t *testing.T) {
	tests := []struct {
		name          string
		cached        *types.AccessToken
		expectFetches int
		expectToken   string
	}{
		{
			name:          "valid cached token is reused",
			cached:        &types.AccessToken{Value: "cached", ExpiresAt: fixedNow.Add(time.Hour)},
			expectFetches: 0,
			expectToken:   "cached",
		},
		{
			name:          "cached token without expiry is reused",
			cached:        &types.AccessToken{Value: "cached"},
			expectFetches: 0,
			expectToken:   "cached",
		},
		{
			name:          "token inside the skew window is refreshed",
			cached:        &types.AccessToken{Value: "cached", ExpiresAt: fixedNow.Add(30 * time.Second)},
			expectFetches: 1,
			expectToken:   "fresh",
		},
		{
			name:          "expired token is refreshed",
			cached:        &types.AccessToken{Value: "cached", ExpiresAt: fixedNow.Add(-time.Hour)},
			expectFetches: 1,
			expectToken:   "fresh",
		},
		{
			name:          "missing token is fetched",
			expectFetches: 1,
			expectToken:   "fresh",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &memoryStore{creds: &types.Credentials{ClientID: "id", ClientSecret: "secret"}, token: tt.cached}
			tf := &fakeTokenFetcher{token: &types.AccessToken{Value: "fresh", ExpiresAt: fixedNow.Add(time.Hour)}}
			pf := &fakePlaylistFetcher{playlist: sampleExport()}
			e, _ := newTestExporter(s, tf, pf)

			_, err := e.Fetch(context.Background(), examplePlaylistURL, false, types.Credentials{})
			require.NoError(t, err)
			assert.Equal(t, tt.expectFetches, tf.calls)
			assert.Equal(t, tt.expectToken, pf.gotToken)
		})
	}
}

func TestExporter_Token_Force(t *testing.T) {
	s := &memoryStore{
		creds: &types.Credentials{ClientID: "id", ClientSecret: "secret"},
		token: &types.AccessToken{Value: "cached", ExpiresAt: fixedNow.Add(time.Hour)},
	}
	tf := &fakeTokenFetcher{token: &types.AccessToken{Value: "forced"}}
	e, _ := newTestExporter(s, tf, &fakePlaylistFetcher{})

	token, err := e.Token(context.Background(), types.Credentials{}, true)
	require.NoError(t, err)
	assert.Equal(t, "forced", token.Value)
	assert.Equal(t, 1, tf.calls)
	assert.Equal(t, "forced", s.token.Value)
}

func TestExporter_Credentials(t *testing.T) {
	t.Run("missing everywhere", func(t *testing.T) {
		tf := &fakeTokenFetcher{token: &types.AccessToken{Value: "tok"}}
		e, _ := newTestExporter(&memoryStore{}, tf, &fakePlaylistFetcher{playlist: sampleExport()})

		_, err := e.Export(context.Background(), Request{PlaylistURL: examplePlaylistURL, OutputDir: t.TempDir()})
		assert.ErrorIs(t, err, types.ErrMissingCredentials)
		assert.Zero(t, tf.calls)
	})

	t.Run("fallback seeds the store", func(t *testing.T) {
		s := &memoryStore{}
		tf := &fakeTokenFetcher{token: &types.AccessToken{Value: "tok"}}
		e, _ := newTestExporter(s, tf, &fakePlaylistFetcher{playlist: sampleExport()})

		fallback := types.Credentials{ClientID: "flag-id", ClientSecret: "flag-secret"}
		_, err := e.Export(context.Background(), Request{
			PlaylistURL: examplePlaylistURL,
			OutputDir:   t.TempDir(),
			Credentials: fallback,
		})
		require.NoError(t, err)
		require.NotNil(t, s.creds)
		assert.Equal(t, fallback, *s.creds)
		assert.Equal(t, fallback, tf.seen)
	})

	t.Run("stored credentials win over fallback", func(t *testing.T) {
		stored := types.Credentials{ClientID: "stored-id", ClientSecret: "stored-secret"}
		s := &memoryStore{creds: &stored}
		tf := &fakeTokenFetcher{token: &types.AccessToken{Value: "tok"}}
		e, _ := newTestExporter(s, tf, &fakePlaylistFetcher{playlist: sampleExport()})

		_, err := e.Fetch(context.Background(), examplePlaylistURL, false, types.Credentials{ClientID: "x", ClientSecret: "y"})
		require.NoError(t, err)
		assert.Equal(t, stored, tf.seen)
	})
}

func TestExporter_Errors(t *testing.T) {
	creds := &types.Credentials{ClientID: "id", ClientSecret: "secret"}

	t.Run("token exchange failure", func(t *testing.T) {
		tf := &fakeTokenFetcher{err: fmt.Errorf("%w: boom", types.ErrTokenExchange)}
		pf := &fakePlaylistFetcher{playlist: sampleExport()}
		e, _ := newTestExporter(&memoryStore{creds: creds}, tf, pf)

		_, err := e.Export(context.Background(), Request{PlaylistURL: examplePlaylistURL, OutputDir: t.TempDir()})
		assert.ErrorIs(t, err, types.ErrTokenExchange)
		assert.Empty(t, pf.gotID, "playlist must not be fetched")
	})

	t.Run("invalid playlist URL", func(t *testing.T) {
		tf := &fakeTokenFetcher{token: &types.AccessToken{Value: "tok"}}
		pf := &fakePlaylistFetcher{playlist: sampleExport()}
		e, _ := newTestExporter(&memoryStore{creds: creds}, tf, pf)

		_, err := e.Export(context.Background(), Request{PlaylistURL: "https://open.spotify.com/album/abc", OutputDir: t.TempDir()})
		assert.ErrorIs(t, err, types.ErrInvalidPlaylistURL)
		assert.Empty(t, pf.gotID)
	})

	t.Run("unauthorized clears cached token", func(t *testing.T) {
		s := &memoryStore{creds: creds, token: &types.AccessToken{Value: "stale"}}
		tf := &fakeTokenFetcher{token: &types.AccessToken{Value: "fresh"}}
		pf := &fakePlaylistFetcher{err: fmt.Errorf("%w: %w", types.ErrPlaylistFetch, types.ErrUnauthorized)}
		e, logs := newTestExporter(s, tf, pf)

		_, err := e.Export(context.Background(), Request{PlaylistURL: examplePlaylistURL, OutputDir: t.TempDir()})
		assert.ErrorIs(t, err, types.ErrPlaylistFetch)
		assert.ErrorIs(t, err, types.ErrUnauthorized)
		assert.Nil(t, s.token)
		assert.Equal(t, 1, s.clearCalled)
		assert.Zero(t, tf.calls, "no retry with a new token")
		assert.Contains(t, logs.String(), "Access token rejected")
	})

	t.Run("other fetch failures keep the token", func(t *testing.T) {
		s := &memoryStore{creds: creds, token: &types.AccessToken{Value: "tok"}}
		pf := &fakePlaylistFetcher{err: fmt.Errorf("%w: not found", types.ErrPlaylistFetch)}
		e, _ := newTestExporter(s, &fakeTokenFetcher{}, pf)

		_, err := e.Export(context.Background(), Request{PlaylistURL: examplePlaylistURL, OutputDir: t.TempDir()})
		assert.ErrorIs(t, err, types.ErrPlaylistFetch)
		assert.NotNil(t, s.token)
		assert.Zero(t, s.clearCalled)
	})

	t.Run("empty playlist writes no file", func(t *testing.T) {
		dir := t.TempDir()
		pf := &fakePlaylistFetcher{playlist: &types.PlaylistExport{PlaylistID: "x", PlaylistName: "Empty"}}
		e, logs := newTestExporter(&memoryStore{creds: creds, token: &types.AccessToken{Value: "tok"}}, &fakeTokenFetcher{}, pf)

		_, err := e.Export(context.Background(), Request{PlaylistURL: examplePlaylistURL, OutputDir: dir})
		assert.ErrorIs(t, err, types.ErrEmptyExport)
		assert.NoFileExists(t, filepath.Join(dir, "Empty_playlist.csv"))
		assert.Contains(t, logs.String(), "No tracks to export")
	})
}

func TestExporter_SaveCredentials(t *testing.T) {
	s := &memoryStore{token: &types.AccessToken{Value: "old"}}
	e, _ := newTestExporter(s, &fakeTokenFetcher{}, &fakePlaylistFetcher{})

	err := e.SaveCredentials(context.Background(), types.Credentials{ClientID: "id"})
	assert.ErrorIs(t, err, types.ErrMissingCredentials)
	assert.Nil(t, s.creds)

	require.NoError(t, e.SaveCredentials(context.Background(), types.Credentials{ClientID: "id", ClientSecret: "secret"}))
	assert.Equal(t, "id", s.creds.ClientID)
	assert.Nil(t, s.token, "saving credentials drops the cached token")

	s.token = &types.AccessToken{Value: "again"}
	require.NoError(t, e.ClearToken(context.Background()))
	assert.Nil(t, s.token)
}

// TestExporter_EndToEnd wires the real Spotify clients and SQLite store
// against stub HTTP servers.
func TestExporter_EndToEnd(t *testing.T) {
	var tokenRequests atomic.Int32
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenRequests.Add(1)
		id, secret, ok := r.BasicAuth()
		if !ok || id != "e2e-id" || secret != "e2e-secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"e2e-token","token_type":"Bearer","expires_in":3600}`)
	}))
	defer tokenServer.Close()

	apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer e2e-token" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":{"status":401,"message":"Invalid access token"}}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "37i9dQZF1DXcBWIGoYBM5M",
			"name": "E2E Mix",
			"tracks": {
				"href": "", "limit": 100, "offset": 0, "total": 2, "next": "",
				"items": [
					{"track": {"name": "One", "artists": [{"name": "Solo"}],
						"album": {"name": "First", "release_date": "1999", "images": [{"url": "http://img/1"}]}}},
					{"track": {"name": "Two", "artists": [{"name": "Duo A"}, {"name": "Duo B"}],
						"album": {"name": "Second", "release_date": "2001-02-03", "images": []}}}
				]
			}
		}`)
	}))
	defer apiServer.Close()

	logger, _ := newTestLogger()
	spotifyCfg := config.SpotifyConfig{TokenURL: tokenServer.URL, APIBaseURL: apiServer.URL, HTTPTimeout: 5}
	httpClient := spotify.NewHTTPClient(spotifyCfg.Timeout())

	credStore, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "e2e.db"), logger)
	require.NoError(t, err)
	defer credStore.Close()

	e := NewExporter(
		credStore,
		spotify.NewTokenClient(spotifyCfg, httpClient, logger),
		spotify.NewClient(spotifyCfg, httpClient, logger),
		logger,
	)

	var out bytes.Buffer
	req := Request{
		PlaylistURL: examplePlaylistURL,
		Output:      &out,
		Credentials: types.Credentials{ClientID: "e2e-id", ClientSecret: "e2e-secret"},
	}
	result, err := e.Export(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "E2E Mix", result.PlaylistName)
	assert.Equal(t, 2, result.TrackCount)
	assert.Equal(t,
		"title,artist,album,coverArtUrl,releaseDate\n"+
			`"One","Solo","First","http://img/1","1999"`+"\n"+
			`"Two","Duo A, Duo B","Second","","2001-02-03"`,
		out.String(),
	)

	// second run reuses the cached token
	out.Reset()
	_, err = e.Export(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int32(1), tokenRequests.Load())
}

func TestExporter_Export_Dedupe(t *testing.T) {
	repeated := &types.PlaylistExport{
		PlaylistID:   "x",
		PlaylistName: "Repeats",
		Tracks: []types.TrackRecord{
			{Title: "One", Artist: "A"},
			{Title: "Two", Artist: "B"},
			{Title: "One", Artist: "A"},
		},
	}
	creds := &types.Credentials{ClientID: "id", ClientSecret: "secret"}

	tests := []struct {
		name         string
		dedupe       bool
		expectTracks int
		expectCSV    string
	}{
		{
			name:         "duplicates kept by default",
			expectTracks: 3,
			expectCSV:    "title,artist,album,coverArtUrl,releaseDate\n\"One\",\"A\",\"\",\"\",\"\"\n\"Two\",\"B\",\"\",\"\",\"\"\n\"One\",\"A\",\"\",\"\",\"\"",
		},
		{
			name:         "duplicates dropped on request",
			dedupe:       true,
			expectTracks: 2,
			expectCSV:    "title,artist,album,coverArtUrl,releaseDate\n\"One\",\"A\",\"\",\"\",\"\"\n\"Two\",\"B\",\"\",\"\",\"\"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &memoryStore{creds: creds, token: &types.AccessToken{Value: "tok"}}
			e, _ := newTestExporter(s, &fakeTokenFetcher{}, &fakePlaylistFetcher{playlist: repeated})

			var out bytes.Buffer
			result, err := e.Export(context.Background(), Request{PlaylistURL: examplePlaylistURL, Output: &out, Dedupe: tt.dedupe})
			require.NoError(t, err)
			assert.Equal(t, tt.expectTracks, result.TrackCount)
			assert.Equal(t, 1, result.Duplicates)
			assert.Equal(t, tt.expectCSV, out.String())
		})
	}
}
