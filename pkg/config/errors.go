// Package config provides error definitions for configuration-related errors.
package config

import "errors"

// Configuration validation errors
var (
	// ErrEnvPathTraversal is returned when the .env path escapes the working directory
	ErrEnvPathTraversal = errors.New(".env file path traversal detected")

	// ErrInvalidStoreBackend is returned when STORE_BACKEND is neither "file" nor "sqlite"
	ErrInvalidStoreBackend = errors.New("store backend must be \"file\" or \"sqlite\"")

	// ErrInvalidHTTPTimeout is returned when SPOTIFY_HTTP_TIMEOUT is not positive
	ErrInvalidHTTPTimeout = errors.New("spotify HTTP timeout must be greater than 0")

	// ErrMissingTokenURL is returned when the OAuth token endpoint is empty
	ErrMissingTokenURL = errors.New("spotify token URL is required")

	// ErrMissingAPIBaseURL is returned when the Web API base URL is empty
	ErrMissingAPIBaseURL = errors.New("spotify API base URL is required")
)
