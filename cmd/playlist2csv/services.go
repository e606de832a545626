package cmd

import (
	"errors"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/toozej/playlist2csv/internal/export"
	"github.com/toozej/playlist2csv/internal/spotify"
	"github.com/toozej/playlist2csv/internal/store"
	"github.com/toozej/playlist2csv/internal/types"
)

// services bundles what the commands need, built from conf
type services struct {
	store    types.CredentialStore
	exporter *export.Exporter
}

// initializeServices creates the credential store, the Spotify clients and the exporter.
// This function is shared between all commands that talk to Spotify or the store.
func initializeServices() (*services, error) {
	logger := log.StandardLogger()

	credStore, err := store.Open(conf.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}

	httpClient := spotify.NewHTTPClient(conf.Spotify.Timeout())
	tokenClient := spotify.NewTokenClient(conf.Spotify, httpClient, logger)
	playlistClient := spotify.NewClient(conf.Spotify, httpClient, logger)

	return &services{
		store:    credStore,
		exporter: export.NewExporter(credStore, tokenClient, playlistClient, logger),
	}, nil
}

// Close releases the credential store
func (s *services) Close() {
	if err := s.store.Close(); err != nil {
		log.WithError(err).Warn("Failed to close credential store")
	}
}

// fallbackCredentials returns credentials from flags, falling back to the environment
func fallbackCredentials(clientID, clientSecret string) types.Credentials {
	if clientID == "" {
		clientID = conf.Spotify.ClientID
	}
	if clientSecret == "" {
		clientSecret = conf.Spotify.ClientSecret
	}
	return types.Credentials{ClientID: clientID, ClientSecret: clientSecret}
}

// printErrorHint prints a remediation hint for errors the user can fix
func printErrorHint(w io.Writer, err error) {
	switch {
	case errors.Is(err, types.ErrMissingCredentials):
		fmt.Fprintln(w, "🔐 Spotify client credentials are required. Provide them with one of:")
		fmt.Fprintln(w, "   playlist2csv credentials set --client-id <id> --client-secret <secret>")
		fmt.Fprintln(w, "   --client-id/--client-secret flags")
		fmt.Fprintln(w, "   SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET environment variables")
	case errors.Is(err, types.ErrInvalidPlaylistURL):
		fmt.Fprintln(w, "🔗 Expected a playlist URL like https://open.spotify.com/playlist/<id>")
	case errors.Is(err, types.ErrUnauthorized):
		fmt.Fprintln(w, "🔑 The access token was rejected and has been cleared. Run the command again.")
	}
}
