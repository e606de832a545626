// Package config provides secure configuration management for the playlist2csv application.
//
// This package handles loading configuration from environment variables and .env files
// with built-in security measures to prevent path traversal attacks. It uses the
// github.com/caarlos0/env library for environment variable parsing and
// github.com/joho/godotenv for .env file loading.
//
// The configuration loading follows a priority order:
//  1. Environment variables (highest priority)
//  2. .env file in current working directory
//  3. Default values (if any)
//
// Example usage:
//
//	import "github.com/toozej/playlist2csv/pkg/config"
//
//	func main() {
//		conf := config.GetEnvVars()
//		fmt.Printf("Store backend: %s\n", conf.Store.Backend)
//	}
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	// BackendFile stores credentials in a JSON file.
	BackendFile = "file"
	// BackendSQLite stores credentials in a SQLite database.
	BackendSQLite = "sqlite"

	defaultFileStorePath   = "~/.config/playlist2csv/credentials.json"
	defaultSQLiteStorePath = "~/.config/playlist2csv/playlist2csv.db"
)

// Config represents the main application configuration with nested service configurations.
type Config struct {
	Spotify SpotifyConfig `envPrefix:"SPOTIFY_"`
	Store   StoreConfig   `envPrefix:"STORE_"`
	Export  ExportConfig  `envPrefix:"EXPORT_"`
}

// SpotifyConfig represents the configuration for Spotify API integration.
//
// ClientID and ClientSecret are optional here. When set they seed the
// credential store the first time an export runs without stored credentials.
type SpotifyConfig struct {
	// ClientID is the Spotify application client ID.
	ClientID string `env:"CLIENT_ID"`

	// ClientSecret is the Spotify application client secret.
	ClientSecret string `env:"CLIENT_SECRET"` // #nosec G117 -- OAuth client secret, expected in config

	// TokenURL is the OAuth token endpoint used for the client credentials grant.
	TokenURL string `env:"TOKEN_URL" envDefault:"https://accounts.spotify.com/api/token"`

	// APIBaseURL is the Spotify Web API base URL. It must end with a slash.
	APIBaseURL string `env:"API_BASE_URL" envDefault:"https://api.spotify.com/v1/"`

	// HTTPTimeout is the timeout for HTTP requests in seconds.
	HTTPTimeout int `env:"HTTP_TIMEOUT" envDefault:"30"`
}

// StoreConfig selects and locates the credential store.
type StoreConfig struct {
	// Backend is either "file" or "sqlite".
	Backend string `env:"BACKEND" envDefault:"file"`

	// Path is the location of the store. When empty a per-backend default
	// under ~/.config/playlist2csv is used.
	Path string `env:"PATH"`
}

// ExportConfig holds defaults for the export command.
type ExportConfig struct {
	OutputDir    string `env:"OUTPUT_DIR" envDefault:"."`
	EscapeQuotes bool   `env:"ESCAPE_QUOTES" envDefault:"false"`
	AllPages     bool   `env:"ALL_PAGES" envDefault:"false"`
	Dedupe       bool   `env:"DEDUPE" envDefault:"false"`
}

// GetEnvVars loads and returns the application configuration from environment
// variables and .env files with comprehensive security validation.
//
// The function will terminate the program with os.Exit(1) if any critical
// errors occur during configuration loading, such as:
//   - Current directory access failures
//   - Path traversal attempts detected
//   - .env file parsing errors
//   - Environment variable parsing failures
//   - Configuration validation errors
//
// Use Load when the caller wants to handle the error itself.
func GetEnvVars() Config {
	conf, err := Load()
	if err != nil {
		fmt.Printf("Configuration error: %s\n", err)
		fmt.Println("Please check your configuration and try again.")
		os.Exit(1)
	}
	return conf
}

// Load reads the .env file in the current directory (if any), parses the
// environment into a Config and validates it.
func Load() (Config, error) {
	// Get current working directory for secure file operations
	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, fmt.Errorf("getting current working directory: %w", err)
	}

	// Construct secure path for .env file within current directory
	envPath := filepath.Join(cwd, ".env")

	// Ensure the path is within our expected directory (prevent traversal)
	cleanEnvPath, err := filepath.Abs(envPath)
	if err != nil {
		return Config{}, fmt.Errorf("resolving .env file path: %w", err)
	}
	cleanCwd, err := filepath.Abs(cwd)
	if err != nil {
		return Config{}, fmt.Errorf("resolving current directory: %w", err)
	}
	relPath, err := filepath.Rel(cleanCwd, cleanEnvPath)
	if err != nil || strings.Contains(relPath, "..") {
		return Config{}, ErrEnvPathTraversal
	}

	// Load .env file if it exists
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return Config{}, fmt.Errorf("loading .env file: %w", err)
		}
	}

	var conf Config
	if err := env.Parse(&conf); err != nil {
		return Config{}, fmt.Errorf("parsing configuration from environment: %w", err)
	}

	if err := validateConfig(&conf); err != nil {
		return Config{}, err
	}

	return conf, nil
}

// Timeout returns the HTTP timeout as a time.Duration.
func (s SpotifyConfig) Timeout() time.Duration {
	if s.HTTPTimeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.HTTPTimeout) * time.Second
}

// ResolvePath returns the absolute store path, handling tilde expansion and
// per-backend defaults, and ensures the parent directory exists.
func (s StoreConfig) ResolvePath() (string, error) {
	storePath := s.Path
	if storePath == "" {
		storePath = defaultFileStorePath
		if s.Backend == BackendSQLite {
			storePath = defaultSQLiteStorePath
		}
	}

	// Handle tilde expansion
	if strings.HasPrefix(storePath, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		storePath = filepath.Join(homeDir, storePath[2:])
	}

	absPath, err := filepath.Abs(storePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	storeDir := filepath.Dir(absPath)
	if err := os.MkdirAll(storeDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create store directory %s: %w", storeDir, err)
	}

	return absPath, nil
}

// validateConfig validates the configuration
func validateConfig(conf *Config) error {
	var errs []string

	switch conf.Store.Backend {
	case BackendFile, BackendSQLite:
	default:
		errs = append(errs, fmt.Sprintf("%s: %q", ErrInvalidStoreBackend, conf.Store.Backend))
	}

	if conf.Spotify.HTTPTimeout <= 0 {
		errs = append(errs, ErrInvalidHTTPTimeout.Error())
	}
	if conf.Spotify.TokenURL == "" {
		errs = append(errs, ErrMissingTokenURL.Error())
	}
	if conf.Spotify.APIBaseURL == "" {
		errs = append(errs, ErrMissingAPIBaseURL.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(errs, "\n- "))
	}

	return nil
}
