package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/toozej/playlist2csv/internal/types"
)

// FileStore keeps credentials and the cached token in a single JSON file
type FileStore struct {
	path   string
	logger *logrus.Logger
	mu     sync.Mutex
}

// fileData is the on-disk layout of the credential file
type fileData struct {
	ClientID          string    `json:"clientId,omitempty"`
	ClientSecret      string    `json:"clientSecret,omitempty"` // #nosec G117 -- stored locally with 0600 permissions
	AccessToken       string    `json:"accessToken,omitempty"`
	AccessTokenExpiry time.Time `json:"accessTokenExpiry,omitzero"`
}

var _ types.CredentialStore = (*FileStore)(nil)

// NewFileStore creates a store backed by the JSON file at path. The file is
// created on the first write.
func NewFileStore(path string, logger *logrus.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

// GetCredentials returns the stored client credentials
func (s *FileStore) GetCredentials(_ context.Context) (*types.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read()
	if err != nil {
		return nil, err
	}
	if data.ClientID == "" && data.ClientSecret == "" {
		return nil, types.ErrNotFound
	}

	return &types.Credentials{ClientID: data.ClientID, ClientSecret: data.ClientSecret}, nil
}

// SaveCredentials overwrites the stored client credentials
func (s *FileStore) SaveCredentials(_ context.Context, creds types.Credentials) error {
	return s.update(func(d *fileData) {
		d.ClientID = creds.ClientID
		d.ClientSecret = creds.ClientSecret
	})
}

// GetCachedToken returns the cached access token
func (s *FileStore) GetCachedToken(_ context.Context) (*types.AccessToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read()
	if err != nil {
		return nil, err
	}
	if data.AccessToken == "" {
		return nil, types.ErrNotFound
	}

	return &types.AccessToken{Value: data.AccessToken, ExpiresAt: data.AccessTokenExpiry}, nil
}

// SaveToken caches an access token
func (s *FileStore) SaveToken(_ context.Context, token types.AccessToken) error {
	return s.update(func(d *fileData) {
		d.AccessToken = token.Value
		d.AccessTokenExpiry = token.ExpiresAt
	})
}

// ClearToken removes the cached access token
func (s *FileStore) ClearToken(_ context.Context) error {
	return s.update(func(d *fileData) {
		d.AccessToken = ""
		d.AccessTokenExpiry = time.Time{}
	})
}

// Close is a no-op for the file store
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) update(mutate func(*fileData)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read()
	if err != nil {
		return err
	}
	mutate(&data)
	return s.write(data)
}

// read loads the file; a missing file is an empty store
func (s *FileStore) read() (fileData, error) {
	var data fileData

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return data, nil
		}
		return data, fmt.Errorf("failed to read credential file: %w", err)
	}

	if err := json.Unmarshal(raw, &data); err != nil {
		s.logger.WithError(err).WithField("path", s.path).Debug("Failed to parse credential file")
		return data, fmt.Errorf("failed to parse credential file %s: %w", s.path, err)
	}

	return data, nil
}

// write replaces the file atomically via a temporary file and rename
func (s *FileStore) write(data fileData) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credential data: %w", err)
	}

	tempFile := s.path + ".tmp"
	if err := os.WriteFile(tempFile, raw, 0600); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}

	if err := os.Rename(tempFile, s.path); err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to rename credential file: %w", err)
	}

	s.logger.WithField("path", s.path).Debug("Saved credential file")
	return nil
}
