package journal

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatianab/ravi-adventure/internal/engine"
)

func playedGame(t *testing.T) *engine.Engine {
	t.Helper()
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	eng, err := engine.New(context.Background(), engine.Options{
		PlayerName: "Ada",
		Clock:      func() time.Time { return now },
	})
	require.NoError(t, err)
	for _, line := range []string{
		"talk",
		"take key",
		"go home",
		"puzzle recursion_fix",
		"hint",
		"solve add a base case and a depth limit",
	} {
		eng.ProcessCommand(context.Background(), line)
	}
	return eng
}

func TestBuild(t *testing.T) {
	eng := playedGame(t)
	at := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)

	j := Build(eng, at)
	assert.Equal(t, "Ada", j.Player)
	assert.Equal(t, "Home Directory", j.Location)
	assert.Equal(t, 6, j.Turns)
	assert.Equal(t, []string{"mysterious key"}, j.Inventory)
	assert.Equal(t, at, j.GeneratedAt)

	require.NotEmpty(t, j.Achievements)
	assert.Equal(t, "First Contact (common)", j.Achievements[0].Title)
	assert.Len(t, j.Achievements, j.Unlocked.Unlocked)

	require.Len(t, j.Puzzles, 1)
	assert.Equal(t, "Runaway Recursion", j.Puzzles[0].Title)
	assert.Equal(t, "debugging, difficulty 2, 1 hint(s)", j.Puzzles[0].Detail)

	// Awakening plus the two stories it opened; the Swarm stays hidden.
	require.Len(t, j.Stories, 3)
	assert.Equal(t, "Awakening", j.Stories[0].Title)
	assert.Equal(t, "Complete. 3 of 3 chapters", j.Stories[0].Detail)
}

func TestBuild_FreshGame(t *testing.T) {
	eng, err := engine.New(context.Background(), engine.Options{})
	require.NoError(t, err)

	j := Build(eng, time.Now())
	assert.Equal(t, engine.DefaultPlayerName, j.Player)
	assert.Empty(t, j.Achievements)
	assert.Empty(t, j.Puzzles)
	require.Len(t, j.Stories, 1)
	assert.Equal(t, "0 of 3 chapters", j.Stories[0].Detail)
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Build(playedGame(t), time.Now())))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.pdf")
	require.NoError(t, Export(playedGame(t), path, time.Now()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))

	err = Export(playedGame(t), filepath.Join(t.TempDir(), "missing", "journal.pdf"), time.Now())
	assert.Error(t, err)
}
