package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatianab/ravi-adventure/internal/db"
	"github.com/tatianab/ravi-adventure/internal/dialogue"
	gerrors "github.com/tatianab/ravi-adventure/internal/errors"
	"github.com/tatianab/ravi-adventure/internal/models"
)

var envKeys = []string{
	"RAVI_SAVE_DIR", "RAVI_SAVE_BACKEND", "RAVI_DB_PATH", "RAVI_SLOT",
	"RAVI_LOG_FILE", "RAVI_CONTENT_DIR", "GEMINI_API_KEY", "RAVI_MODEL",
}

// clearEnv unsets every variable the loader reads and restores them when
// the test ends.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSaveDir, cfg.SaveDir)
	assert.Equal(t, BackendFile, cfg.SaveBackend)
	assert.Equal(t, filepath.Join(models.DefaultSaveDir, "ravi.db"), cfg.DBPath)
	assert.Equal(t, DefaultSlot, cfg.Slot)
	assert.Equal(t, filepath.Join(models.DefaultSaveDir, "ravi.log"), cfg.LogFile)
	assert.Empty(t, cfg.ContentDir)
	assert.Equal(t, dialogue.DefaultModel, cfg.Model)
	assert.False(t, cfg.HasGemini())
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	content := t.TempDir()
	t.Setenv("RAVI_SAVE_DIR", "/tmp/ravi")
	t.Setenv("RAVI_SAVE_BACKEND", "SQLite")
	t.Setenv("RAVI_SLOT", "second")
	t.Setenv("RAVI_CONTENT_DIR", content)
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("RAVI_MODEL", "gemini-test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/ravi", cfg.SaveDir)
	assert.Equal(t, BackendSQLite, cfg.SaveBackend)
	assert.Equal(t, "/tmp/ravi/ravi.db", cfg.DBPath)
	assert.Equal(t, "second", cfg.Slot)
	assert.Equal(t, content, cfg.ContentDir)
	assert.Equal(t, "gemini-test", cfg.Model)
	assert.True(t, cfg.HasGemini())
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("GEMINI_API_KEY=from-file\nRAVI_SLOT=file-slot\n"), 0o644))
	t.Setenv("RAVI_SLOT", "from-env")

	cfg, err := Load(envFile, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.GeminiAPIKey)
	assert.Equal(t, "from-env", cfg.Slot, "the environment wins over the file")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown backend", "RAVI_SAVE_BACKEND", "postgres"},
		{"slot with separator", "RAVI_SLOT", "../escape"},
		{"dot slot", "RAVI_SLOT", ".."},
		{"missing content dir", "RAVI_CONTENT_DIR", "/definitely/not/here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			require.Error(t, err)
			assert.True(t, gerrors.HasCode(err, gerrors.ErrCodeConfigInvalid))
		})
	}
}

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()

	t.Run("file", func(t *testing.T) {
		cfg := &Config{SaveDir: dir, SaveBackend: BackendFile}
		store, closer, err := cfg.OpenStore()
		require.NoError(t, err)
		defer closer.Close()
		assert.IsType(t, &models.FileStore{}, store)
	})

	t.Run("sqlite", func(t *testing.T) {
		cfg := &Config{SaveBackend: BackendSQLite, DBPath: filepath.Join(dir, "nested", "ravi.db")}
		store, closer, err := cfg.OpenStore()
		require.NoError(t, err)
		defer closer.Close()
		assert.IsType(t, &db.SQLiteStore{}, store)

		saves, err := store.List()
		require.NoError(t, err)
		assert.Empty(t, saves)
	})
}
