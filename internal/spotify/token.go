package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/toozej/playlist2csv/internal/types"
	"github.com/toozej/playlist2csv/pkg/config"
)

// TokenClient obtains access tokens with the OAuth client credentials grant
type TokenClient struct {
	tokenURL   string
	httpClient *http.Client
	logger     *logrus.Logger
}

var _ types.TokenFetcher = (*TokenClient)(nil)

// NewTokenClient creates a token client for the configured token endpoint
func NewTokenClient(cfg config.SpotifyConfig, httpClient *http.Client, logger *logrus.Logger) *TokenClient {
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = spotifyauth.TokenURL
	}
	if httpClient == nil {
		httpClient = NewHTTPClient(cfg.Timeout())
	}

	return &TokenClient{
		tokenURL:   tokenURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// FetchToken exchanges the client ID and secret for a bearer token.
//
// The request is a POST with HTTP Basic authorization and the form body
// grant_type=client_credentials. Transport errors, non-2xx responses and
// malformed bodies are logged and returned wrapped in types.ErrTokenExchange.
func (c *TokenClient) FetchToken(ctx context.Context, creds types.Credentials) (*types.AccessToken, error) {
	if !creds.IsComplete() {
		c.logger.WithField("token_url", c.tokenURL).Error("Cannot fetch access token without client ID and secret")
		return nil, fmt.Errorf("%w: client ID and secret are required", types.ErrMissingCredentials)
	}

	conf := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     c.tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	c.logger.WithFields(logrus.Fields{
		"token_url": c.tokenURL,
		"client_id": creds.ClientID,
	}).Debug("Requesting access token with client credentials grant")

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	token, err := conf.Token(ctx)
	if err != nil {
		fields := logrus.Fields{"token_url": c.tokenURL}
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			fields["status"] = retrieveErr.Response.StatusCode
		}
		c.logger.WithError(err).WithFields(fields).Error("Failed to fetch Spotify access token")
		return nil, fmt.Errorf("%w: %w", types.ErrTokenExchange, err)
	}

	c.logger.WithField("expires_at", token.Expiry).Debug("Access token obtained")

	return &types.AccessToken{
		Value:     token.AccessToken,
		ExpiresAt: token.Expiry,
	}, nil
}
