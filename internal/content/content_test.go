package content

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatianab/ravi-adventure/internal/condition"
	gerrors "github.com/tatianab/ravi-adventure/internal/errors"
	"github.com/tatianab/ravi-adventure/internal/models"
	"github.com/tatianab/ravi-adventure/internal/puzzle"
)

func TestLoadDefault(t *testing.T) {
	p, err := LoadDefault()
	require.NoError(t, err)

	assert.Equal(t, "start", p.World.Start)
	assert.Equal(t, "home", p.Location("start").Exits["home"])
	assert.Contains(t, p.Location("start").Items, "mysterious key")
	assert.Equal(t, models.UnknownLocationKey, p.Location("nowhere").Key)
	assert.Equal(t, 50.0, p.World.Variables["relationship"])

	key, ok := p.Item("mysterious key")
	require.True(t, ok)
	assert.Contains(t, key.Uses, "home")

	assert.NotEmpty(t, p.Achievements)
	require.NotEmpty(t, p.Stories)
	assert.Equal(t, "awakening", p.Stories[0].ID)
	assert.Zero(t, p.Stories[0].UnlockAfter)
}

func TestDefaultStoryGating(t *testing.T) {
	p, err := LoadDefault()
	require.NoError(t, err)

	after := make(map[string]int)
	for _, s := range p.Stories {
		after[s.ID] = s.UnlockAfter
	}
	assert.Equal(t, map[string]int{"awakening": 0, "the_bug_hunt": 1, "memory_palace": 1, "the_swarm": 2}, after)
}

func TestDefaultPuzzlesCoverEveryCategory(t *testing.T) {
	p, err := LoadDefault()
	require.NoError(t, err)

	seen := make(map[puzzle.Category]bool)
	for _, pz := range p.Puzzles {
		seen[pz.Category] = true
		assert.True(t, puzzle.Validate(pz.Solution, pz.Solution), "%s should accept its own solution", pz.ID)
		assert.NotEmpty(t, puzzle.KeyTerms(pz.Solution), "%s has nothing to paraphrase", pz.ID)
	}
	for _, c := range puzzle.Categories {
		assert.True(t, seen[c], "no puzzle in %s", c)
	}
}

func TestRecursionFixAcceptsConcepts(t *testing.T) {
	p, err := LoadDefault()
	require.NoError(t, err)

	var canonical string
	for _, pz := range p.Puzzles {
		if pz.ID == "recursion_fix" {
			canonical = pz.Solution
		}
	}
	require.NotEmpty(t, canonical)
	assert.ElementsMatch(t, []string{"depth", "base case"}, puzzle.KeyTerms(canonical))

	accepted := []string{
		"Depth limit plus a BASE CASE",
		"add a base case that checks depth",
		"i'd pass depth along and stop at the base case, obviously",
	}
	for _, s := range accepted {
		assert.True(t, puzzle.Validate(canonical, s), s)
	}

	rejected := []string{
		"use memoization",
		"add a base case",
		"increase the stack size",
		"",
	}
	for _, s := range rejected {
		assert.False(t, puzzle.Validate(canonical, s), s)
	}
}

func TestDefaultConditionsAreWellFormed(t *testing.T) {
	p, err := LoadDefault()
	require.NoError(t, err)

	for _, a := range p.Achievements {
		assert.NoError(t, condition.Check(a.Condition), a.ID)
	}
}

func validPack() fstest.MapFS {
	return fstest.MapFS{
		WorldFile: {Data: []byte(`
start: a
locations:
  - key: a
    exits: {east: b}
    items: [lamp]
  - key: b
items:
  - name: lamp
`)},
		PuzzlesFile: {Data: []byte(`
- id: p1
  category: debugging
  difficulty: 1
  solution: add a lock
  rewards: [a1]
`)},
		AchievementsFile: {Data: []byte(`
- id: a1
  name: One
  rarity: common
  condition: {flag: x}
`)},
		StoriesFile: {Data: []byte(`
- id: s1
  chapters:
    - id: c1
      trigger: {flag: x}
`)},
	}
}

func TestLoaderFS(t *testing.T) {
	p, err := NewFSLoader(validPack(), nil).Load()
	require.NoError(t, err)
	assert.Len(t, p.Puzzles, 1)
	assert.Equal(t, "b", p.Location("a").Exits["east"])
}

func TestLoaderRejectsBrokenPacks(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
	}{
		{"bad yaml", WorldFile, "start: [unclosed"},
		{"missing start", WorldFile, "start: nowhere\nlocations: [{key: a}]"},
		{"dangling exit", WorldFile, "start: a\nlocations: [{key: a, exits: {up: sky}}]"},
		{"unknown item in room", WorldFile, "start: a\nlocations: [{key: a, items: [ghost]}]"},
		{"reserved key", WorldFile, "start: unknown\nlocations: [{key: unknown}]"},
		{"unknown reward", PuzzlesFile, "- {id: p1, category: debugging, difficulty: 1, solution: x, rewards: [nope]}"},
		{"bad category", PuzzlesFile, "- {id: p1, category: cooking, difficulty: 1, solution: x}"},
		{"bad difficulty", PuzzlesFile, "- {id: p1, category: debugging, difficulty: 9, solution: x}"},
		{"shapeless condition", AchievementsFile, "- {id: a1, name: One, rarity: common, condition: {}}"},
		{"bad expr", AchievementsFile, "- {id: a1, name: One, rarity: common, condition: {expr: 'turns >'}}"},
		{"bad rarity", AchievementsFile, "- {id: a1, name: One, rarity: mythic, condition: {flag: x}}"},
		{"bad condition category", AchievementsFile, "- {id: a1, name: One, rarity: common, condition: {puzzle_category: cooking}}"},
		{"no opening story", StoriesFile, "- {id: s1, unlock_after: 1, chapters: [{id: c1}]}"},
		{"event-only trigger", StoriesFile, "- {id: s1, chapters: [{id: c1, trigger: {puzzle_solved: p1}}]}"},
		{"duplicate chapter", StoriesFile, "- {id: s1, chapters: [{id: c1}, {id: c1}]}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := validPack()
			fsys[tt.file] = &fstest.MapFile{Data: []byte(tt.data)}

			_, err := NewFSLoader(fsys, nil).Load()
			require.Error(t, err)
			assert.True(t, gerrors.HasCode(err, gerrors.ErrCodeContentInvalid), err.Error())
		})
	}
}

func TestLoaderMissingFile(t *testing.T) {
	fsys := validPack()
	delete(fsys, StoriesFile)

	_, err := NewFSLoader(fsys, nil).Load()
	assert.True(t, gerrors.HasCode(err, gerrors.ErrCodeContentInvalid))
}
