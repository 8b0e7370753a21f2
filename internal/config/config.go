// Package config reads the game's settings from the environment, optionally
// seeded from a .env file.
package config

import (
	stderrors "errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/tatianab/ravi-adventure/internal/db"
	"github.com/tatianab/ravi-adventure/internal/dialogue"
	gerrors "github.com/tatianab/ravi-adventure/internal/errors"
	"github.com/tatianab/ravi-adventure/internal/models"
)

// Save backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// DefaultSlot is the save slot used when RAVI_SLOT is unset.
const DefaultSlot = "current"

// Config holds the application configuration.
type Config struct {
	SaveDir     string
	SaveBackend string
	// DBPath is only used by the sqlite backend.
	DBPath     string
	Slot       string
	LogFile    string
	ContentDir string
	// GeminiAPIKey is optional. Without it Ravi sticks to canned replies.
	GeminiAPIKey string
	Model        string
}

// LoadConfig loads the configuration from environment variables. A .env
// file in the working directory is read first if there is one; variables
// already set in the environment win.
func LoadConfig() (*Config, error) {
	return Load(".env")
}

// Load reads the given env files, skipping missing ones, then builds and
// validates the configuration from the environment.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
			return nil, gerrors.NewGameError(gerrors.ErrCodeConfigInvalid, "cannot read "+f, err)
		}
	}

	cfg := &Config{
		SaveDir:      getenv("RAVI_SAVE_DIR", models.DefaultSaveDir),
		SaveBackend:  strings.ToLower(getenv("RAVI_SAVE_BACKEND", BackendFile)),
		DBPath:       os.Getenv("RAVI_DB_PATH"),
		Slot:         getenv("RAVI_SLOT", DefaultSlot),
		LogFile:      os.Getenv("RAVI_LOG_FILE"),
		ContentDir:   os.Getenv("RAVI_CONTENT_DIR"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		Model:        getenv("RAVI_MODEL", dialogue.DefaultModel),
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.SaveDir, "ravi.db")
	}
	if cfg.LogFile == "" {
		cfg.LogFile = filepath.Join(cfg.SaveDir, "ravi.log")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// Validate checks the configuration for values the game cannot run with.
func (c *Config) Validate() error {
	switch c.SaveBackend {
	case BackendFile, BackendSQLite:
	default:
		return gerrors.ErrConfigInvalid("RAVI_SAVE_BACKEND must be file or sqlite, got " + c.SaveBackend)
	}
	if err := ValidateSlot(c.Slot); err != nil {
		return err
	}
	if c.ContentDir != "" {
		info, err := os.Stat(c.ContentDir)
		if err != nil || !info.IsDir() {
			return gerrors.ErrConfigInvalid("RAVI_CONTENT_DIR is not a directory: " + c.ContentDir)
		}
	}
	return nil
}

// ValidateSlot rejects slot names that would escape the save directory.
func ValidateSlot(slot string) error {
	if slot == "" || slot == "." || slot == ".." || strings.ContainsAny(slot, `/\`) {
		return gerrors.ErrConfigInvalid("invalid save slot " + `"` + slot + `"`)
	}
	return nil
}

// HasGemini reports whether free-form replies can go to Gemini.
func (c *Config) HasGemini() bool {
	return c.GeminiAPIKey != ""
}

// OpenStore opens the configured save backend. The returned closer must be
// closed when the game ends.
func (c *Config) OpenStore() (models.SaveStore, io.Closer, error) {
	if c.SaveBackend == BackendSQLite {
		if err := os.MkdirAll(filepath.Dir(c.DBPath), 0755); err != nil {
			return nil, nil, gerrors.ErrPersistence("open", err)
		}
		s, err := db.NewSQLiteStore(c.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	}
	return models.NewFileStore(c.SaveDir), nopCloser{}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
