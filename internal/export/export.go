// Package export runs the playlist export pipeline: credential lookup, token
// acquisition, playlist fetch and CSV output.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/toozej/playlist2csv/internal/csvexport"
	"github.com/toozej/playlist2csv/internal/duplicate"
	"github.com/toozej/playlist2csv/internal/spotify"
	"github.com/toozej/playlist2csv/internal/types"
)

// Exporter runs exports against a credential store, a token fetcher and a
// playlist fetcher. Export calls on one Exporter are serialized.
type Exporter struct {
	store     types.CredentialStore
	tokens    types.TokenFetcher
	playlists types.PlaylistFetcher
	logger    *logrus.Logger

	mu  sync.Mutex
	now func() time.Time
}

// Request describes one export
type Request struct {
	PlaylistURL string
	// OutputDir is where the CSV file is written when Output is nil
	OutputDir string
	// Output, when set, receives the CSV instead of a file
	Output       io.Writer
	EscapeQuotes bool
	AllPages     bool
	// Dedupe drops repeated tracks, keeping the first occurrence
	Dedupe bool
	// Credentials seed the store when it holds none yet
	Credentials types.Credentials
}

// Result summarizes a finished export
type Result struct {
	RunID        string `json:"runId"`
	PlaylistID   string `json:"playlistId"`
	PlaylistName string `json:"playlistName"`
	TrackCount   int    `json:"trackCount"`
	// Duplicates counts repeated tracks found in the playlist
	Duplicates int `json:"duplicates"`
	// Path is empty when the CSV went to Request.Output
	Path string `json:"path,omitempty"`
}

// NewExporter creates an Exporter
func NewExporter(store types.CredentialStore, tokens types.TokenFetcher, playlists types.PlaylistFetcher, logger *logrus.Logger) *Exporter {
	return &Exporter{
		store:     store,
		tokens:    tokens,
		playlists: playlists,
		logger:    logger,
		now:       time.Now,
	}
}

// Export fetches the playlist behind req.PlaylistURL and writes it as CSV
func (e *Exporter) Export(ctx context.Context, req Request) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	runID := uuid.NewString()
	logger := e.logger.WithFields(logrus.Fields{
		"run_id": runID,
		"url":    req.PlaylistURL,
	})
	logger.Info("Starting playlist export")

	playlist, err := e.fetch(ctx, logger, req.PlaylistURL, req.AllPages, req.Credentials)
	if err != nil {
		return nil, err
	}

	tracks := playlist.Tracks
	detector := duplicate.NewDetector(e.logger)
	duplicates := detector.Check(playlist.PlaylistName, tracks)
	if req.Dedupe && duplicates.HasDuplicates {
		tracks = detector.Remove(playlist.PlaylistName, tracks)
	}

	result := &Result{
		RunID:        runID,
		PlaylistID:   playlist.PlaylistID,
		PlaylistName: playlist.PlaylistName,
		TrackCount:   len(tracks),
		Duplicates:   len(duplicates.Duplicates),
	}

	writer := csvexport.NewWriter(csvexport.Options{EscapeQuotes: req.EscapeQuotes}, e.logger)
	if req.Output != nil {
		err = writer.WriteTo(req.Output, playlist.PlaylistName, tracks)
	} else {
		result.Path, err = writer.WriteFile(req.OutputDir, playlist.PlaylistName, tracks)
	}
	if err != nil {
		logger.WithError(err).Error("Export failed")
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"playlist": result.PlaylistName,
		"tracks":   result.TrackCount,
		"path":     result.Path,
	}).Info("Playlist export complete")

	return result, nil
}

// Fetch resolves credentials and a token, then returns the flattened playlist
// without writing anything.
func (e *Exporter) Fetch(ctx context.Context, playlistURL string, allPages bool, fallback types.Credentials) (*types.PlaylistExport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	logger := e.logger.WithFields(logrus.Fields{
		"run_id": uuid.NewString(),
		"url":    playlistURL,
	})
	return e.fetch(ctx, logger, playlistURL, allPages, fallback)
}

func (e *Exporter) fetch(ctx context.Context, logger *logrus.Entry, playlistURL string, allPages bool, fallback types.Credentials) (*types.PlaylistExport, error) {
	creds, err := e.credentials(ctx, fallback)
	if err != nil {
		logger.WithError(err).Error("No usable credentials")
		return nil, err
	}

	token, err := e.token(ctx, *creds, false)
	if err != nil {
		return nil, err
	}

	playlistID, err := spotify.ExtractPlaylistID(playlistURL)
	if err != nil {
		logger.WithError(err).Error("Could not resolve playlist ID")
		return nil, err
	}

	playlist, err := e.playlists.FetchPlaylist(ctx, *token, playlistID, allPages)
	if err != nil {
		if errors.Is(err, types.ErrUnauthorized) {
			logger.Warn("Access token rejected, clearing cached token")
			if clearErr := e.store.ClearToken(ctx); clearErr != nil {
				logger.WithError(clearErr).Error("Failed to clear cached token")
			}
		}
		return nil, err
	}

	return playlist, nil
}

// Token returns a usable access token, fetching and caching a new one when
// the cached token is missing or expired. With force set the cache is bypassed.
func (e *Exporter) Token(ctx context.Context, fallback types.Credentials, force bool) (*types.AccessToken, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	creds, err := e.credentials(ctx, fallback)
	if err != nil {
		return nil, err
	}
	return e.token(ctx, *creds, force)
}

// credentials loads the stored credentials. When the store is empty and the
// fallback is complete, the fallback is saved and used.
func (e *Exporter) credentials(ctx context.Context, fallback types.Credentials) (*types.Credentials, error) {
	creds, err := e.store.GetCredentials(ctx)
	switch {
	case err == nil && creds.IsComplete():
		return creds, nil
	case err != nil && !errors.Is(err, types.ErrNotFound):
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	if !fallback.IsComplete() {
		return nil, types.ErrMissingCredentials
	}

	if err := e.store.SaveCredentials(ctx, fallback); err != nil {
		return nil, fmt.Errorf("failed to save credentials: %w", err)
	}
	e.logger.WithField("client_id", fallback.ClientID).Info("Saved client credentials")

	return &fallback, nil
}

func (e *Exporter) token(ctx context.Context, creds types.Credentials, force bool) (*types.AccessToken, error) {
	if !force {
		cached, err := e.store.GetCachedToken(ctx)
		switch {
		case err == nil && cached.Valid(e.now()):
			e.logger.Debug("Using cached access token")
			return cached, nil
		case err == nil:
			e.logger.WithField("expires_at", cached.ExpiresAt).Debug("Cached access token expired")
		case !errors.Is(err, types.ErrNotFound):
			e.logger.WithError(err).Warn("Failed to read cached token, fetching a new one")
		}
	}

	token, err := e.tokens.FetchToken(ctx, creds)
	if err != nil {
		return nil, err
	}

	if err := e.store.SaveToken(ctx, *token); err != nil {
		return nil, fmt.Errorf("failed to cache access token: %w", err)
	}
	e.logger.WithField("expires_at", token.ExpiresAt).Debug("Cached new access token")

	return token, nil
}

// SaveCredentials replaces the stored credentials and drops the cached token,
// which belongs to the previous client.
func (e *Exporter) SaveCredentials(ctx context.Context, creds types.Credentials) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !creds.IsComplete() {
		return types.ErrMissingCredentials
	}
	if err := e.store.SaveCredentials(ctx, creds); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	if err := e.store.ClearToken(ctx); err != nil {
		return fmt.Errorf("failed to clear cached token: %w", err)
	}

	e.logger.WithField("client_id", creds.ClientID).Info("Saved client credentials")
	return nil
}

// ClearToken drops the cached access token
func (e *Exporter) ClearToken(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.store.ClearToken(ctx); err != nil {
		return fmt.Errorf("failed to clear cached token: %w", err)
	}
	e.logger.Info("Cleared cached access token")
	return nil
}
