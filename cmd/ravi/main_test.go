package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T, backend string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("RAVI_SAVE_DIR", dir)
	t.Setenv("RAVI_SAVE_BACKEND", backend)
	t.Setenv("RAVI_SLOT", "")
	t.Setenv("RAVI_DB_PATH", "")
	t.Setenv("RAVI_LOG_FILE", "")
	t.Setenv("RAVI_CONTENT_DIR", "")
	t.Setenv("GEMINI_API_KEY", "")
	return dir
}

func runCLI(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), args, strings.NewReader(input), &out)
	return out.String(), err
}

func TestRun_Usage(t *testing.T) {
	out, err := runCLI(t, "")
	require.NoError(t, err)
	assert.Contains(t, out, "Usage: ravi")

	setupEnv(t, "file")
	_, err = runCLI(t, "", "dance")
	assert.ErrorContains(t, err, `unknown command "dance"`)
}

func TestRun_GameLifecycle(t *testing.T) {
	for _, backend := range []string{"file", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			dir := setupEnv(t, backend)

			out, err := runCLI(t, "take key\ngo home\nquit\n", "start", "--plain", "--name", "Ada")
			require.NoError(t, err)
			assert.Contains(t, out, "Welcome, Ada.")
			assert.Contains(t, out, "You take the mysterious key.")
			assert.Contains(t, out, `Saved to slot "current"`)

			out, err = runCLI(t, "inventory\nquit\n", "continue", "--plain")
			require.NoError(t, err)
			assert.Contains(t, out, "Welcome back, Ada.")
			assert.Contains(t, out, "Home Directory")
			assert.Contains(t, out, "You are carrying: mysterious key")

			out, err = runCLI(t, "", "saves")
			require.NoError(t, err)
			assert.Contains(t, out, "current")
			assert.Contains(t, out, "home")

			pdf := filepath.Join(dir, "journal.pdf")
			out, err = runCLI(t, "", "journal", "--out", pdf)
			require.NoError(t, err)
			assert.Contains(t, out, "Journal written")
			data, err := os.ReadFile(pdf)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))

			out, err = runCLI(t, "", "reset")
			require.NoError(t, err)
			assert.Contains(t, out, `Deleted save "current"`)

			out, err = runCLI(t, "", "saves")
			require.NoError(t, err)
			assert.Contains(t, out, "No saved games.")

			_, err = os.Stat(filepath.Join(dir, "ravi.log"))
			assert.NoError(t, err)
		})
	}
}

func TestRun_ContinueWithoutSave(t *testing.T) {
	setupEnv(t, "file")

	out, err := runCLI(t, "quit\n", "continue", "--plain")
	require.NoError(t, err)
	assert.Contains(t, out, "No saved game found.")
	assert.Contains(t, out, "Welcome, Player.")
}

func TestRun_ContinueWithCorruptSave(t *testing.T) {
	dir := setupEnv(t, "file")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "current.json"), []byte("{"), 0o644))

	out, err := runCLI(t, "quit\n", "continue", "--plain")
	require.NoError(t, err)
	assert.Contains(t, out, "couldn't be read")
	assert.Contains(t, out, "Welcome, Player.")
}

func TestRun_JournalWithoutSave(t *testing.T) {
	dir := setupEnv(t, "file")

	_, err := runCLI(t, "", "journal", "--out", filepath.Join(dir, "j.pdf"))
	assert.ErrorContains(t, err, "no saved game")
}

func TestRun_ResetRejectsBadSlot(t *testing.T) {
	setupEnv(t, "file")

	_, err := runCLI(t, "", "reset", "--slot", "../etc")
	assert.Error(t, err)
}
