// Package store implements types.CredentialStore on top of local storage.
//
// Two backends are available: a JSON file written atomically with 0600
// permissions, and a SQLite key/value table. Both persist the same four keys
// the export pipeline needs: clientId, clientSecret, accessToken and
// accessTokenExpiry.
package store

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/toozej/playlist2csv/internal/types"
	"github.com/toozej/playlist2csv/pkg/config"
)

// Persisted keys
const (
	KeyClientID          = "clientId"
	KeyClientSecret      = "clientSecret"
	KeyAccessToken       = "accessToken"
	KeyAccessTokenExpiry = "accessTokenExpiry"
)

// Open returns the credential store selected by cfg.Backend
func Open(cfg config.StoreConfig, logger *logrus.Logger) (types.CredentialStore, error) {
	path, err := cfg.ResolvePath()
	if err != nil {
		return nil, fmt.Errorf("resolving store path: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"backend": cfg.Backend,
		"path":    path,
	}).Debug("Opening credential store")

	switch cfg.Backend {
	case config.BackendSQLite:
		return NewSQLiteStore(path, logger)
	case config.BackendFile, "":
		return NewFileStore(path, logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidStoreBackend, cfg.Backend)
	}
}
