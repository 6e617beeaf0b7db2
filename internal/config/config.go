// Package config loads the run configuration from the environment, after
// merging an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

var (
	// ErrMissingToken means the OAuth token file does not exist.
	ErrMissingToken = errors.New("oauth token file not found")
	// ErrMissingFolder means DRIVE_FOLDER_ID is not set.
	ErrMissingFolder = errors.New("DRIVE_FOLDER_ID is not set")
)

// Default values used when the environment does not override them.
const (
	DefaultTokenPath = "token.json"
	DefaultQuery     = "GRUPAMENTO APOIO DIST FEDERAL"
	DefaultUser      = "me"
	DefaultLabel     = "INBOX"
	DefaultDataset   = "invoices"
)

// Config holds everything a fetch run needs. It is built once in main and
// passed down explicitly.
type Config struct {
	TokenPath     string
	DriveFolderID string
	Query         string
	User          string
	LabelIDs      []string
	DebugFiles    bool
	OutputDir     string
	DebugDir      string
	LogLevel      string

	UploadToDrive bool
	GCSBucket     string
	BQProject     string
	BQDataset     string
}

// LoadDotEnv merges the given .env files (default ".env") into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("LoadDotEnv: %s: %w", f, err)
		}
	}
	return nil
}

// Load reads the configuration from the process environment.
func Load() *Config {
	return LoadFrom(os.Getenv)
}

// LoadFrom reads the configuration using getenv for lookups.
func LoadFrom(getenv func(string) string) *Config {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	return &Config{
		TokenPath:     get("GOOGLE_TOKEN_PATH", DefaultTokenPath),
		DriveFolderID: get("DRIVE_FOLDER_ID", ""),
		Query:         get("GMAIL_QUERY", DefaultQuery),
		User:          get("GMAIL_USER", DefaultUser),
		LabelIDs:      splitList(get("GMAIL_LABEL", DefaultLabel)),
		DebugFiles:    ParseBool(getenv("ENABLE_DEBUG_FILES")),
		OutputDir:     get("OUTPUT_DIR", "."),
		DebugDir:      get("DEBUG_DIR", "."),
		LogLevel:      get("LOG_LEVEL", "info"),
		UploadToDrive: ParseBool(getenv("UPLOAD_TO_DRIVE")),
		GCSBucket:     get("GCS_BUCKET", ""),
		BQProject:     get("BQ_PROJECT", ""),
		BQDataset:     get("BQ_DATASET", DefaultDataset),
	}
}

// Validate checks the settings that must be present before contacting Gmail.
func (c *Config) Validate() error {
	if _, err := os.Stat(c.TokenPath); err != nil {
		return fmt.Errorf("%w: %s", ErrMissingToken, c.TokenPath)
	}
	if c.DriveFolderID == "" {
		return ErrMissingFolder
	}
	return nil
}

// ParseBool accepts "1", "true" and "yes" in any case; everything else is false.
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
