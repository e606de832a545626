package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
	"github.com/sirupsen/logrus"

	"github.com/toozej/playlist2csv/internal/types"
)

const createSettingsTable = `
CREATE TABLE IF NOT EXISTS settings (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL DEFAULT (datetime('now'))
)`

const upsertSetting = `
INSERT INTO settings (key, value, updated_at) VALUES (?, ?, datetime('now'))
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

// SQLiteStore keeps credentials and the cached token in a SQLite key/value table
type SQLiteStore struct {
	db     *sql.DB
	logger *logrus.Logger
}

var _ types.CredentialStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at path and runs the schema migration.
// The path can be ":memory:" for an in-memory database.
func NewSQLiteStore(path string, logger *logrus.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	// a single connection keeps ":memory:" databases shared across calls
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	if _, err := db.Exec(createSettingsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	logger.WithField("path", path).Debug("SQLite credential store ready")

	return &SQLiteStore{db: db, logger: logger}, nil
}

// GetCredentials returns the stored client credentials
func (s *SQLiteStore) GetCredentials(ctx context.Context) (*types.Credentials, error) {
	values, err := s.get(ctx, KeyClientID, KeyClientSecret)
	if err != nil {
		return nil, err
	}
	if values[KeyClientID] == "" && values[KeyClientSecret] == "" {
		return nil, types.ErrNotFound
	}

	return &types.Credentials{
		ClientID:     values[KeyClientID],
		ClientSecret: values[KeyClientSecret],
	}, nil
}

// SaveCredentials overwrites the stored client credentials
func (s *SQLiteStore) SaveCredentials(ctx context.Context, creds types.Credentials) error {
	return s.set(ctx, map[string]string{
		KeyClientID:     creds.ClientID,
		KeyClientSecret: creds.ClientSecret,
	})
}

// GetCachedToken returns the cached access token
func (s *SQLiteStore) GetCachedToken(ctx context.Context) (*types.AccessToken, error) {
	values, err := s.get(ctx, KeyAccessToken, KeyAccessTokenExpiry)
	if err != nil {
		return nil, err
	}
	if values[KeyAccessToken] == "" {
		return nil, types.ErrNotFound
	}

	token := &types.AccessToken{Value: values[KeyAccessToken]}
	if raw := values[KeyAccessTokenExpiry]; raw != "" {
		expiry, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			s.logger.WithError(err).WithField("value", raw).Warn("Ignoring unparsable token expiry")
		} else {
			token.ExpiresAt = expiry
		}
	}

	return token, nil
}

// SaveToken caches an access token
func (s *SQLiteStore) SaveToken(ctx context.Context, token types.AccessToken) error {
	expiry := ""
	if !token.ExpiresAt.IsZero() {
		expiry = token.ExpiresAt.UTC().Format(time.RFC3339Nano)
	}

	return s.set(ctx, map[string]string{
		KeyAccessToken:       token.Value,
		KeyAccessTokenExpiry: expiry,
	})
}

// ClearToken removes the cached access token
func (s *SQLiteStore) ClearToken(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM settings WHERE key IN (?, ?)", KeyAccessToken, KeyAccessTokenExpiry)
	if err != nil {
		return fmt.Errorf("failed to clear cached token: %w", err)
	}
	return nil
}

// Close ensures the DB connection is closed gracefully
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) get(ctx context.Context, keys ...string) (map[string]string, error) {
	values := make(map[string]string, len(keys))
	for _, key := range keys {
		var value string
		err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", key, err)
		}
		values[key] = value
	}
	return values, nil
}

func (s *SQLiteStore) set(ctx context.Context, values map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for key, value := range values {
		if _, err := tx.ExecContext(ctx, upsertSetting, key, value); err != nil {
			return fmt.Errorf("failed to save %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
