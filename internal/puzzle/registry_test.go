package puzzle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gerrors "github.com/tatianab/ravi-adventure/internal/errors"
	"github.com/tatianab/ravi-adventure/internal/events"
	"github.com/tatianab/ravi-adventure/internal/models"
)

const recursionSolution = `The walk never stops because nothing limits how deep it goes.
Pass the current depth down with every call and add a base case:
when depth reaches the maximum, return the partial result instead of recursing again.`

type fakeAchievements struct {
	unlocked []string
	counters map[string]int
}

func (f *fakeAchievements) Unlock(id string) bool {
	for _, u := range f.unlocked {
		if u == id {
			return false
		}
	}
	f.unlocked = append(f.unlocked, id)
	return true
}

func (f *fakeAchievements) Record(tag string, delta int) int {
	if f.counters == nil {
		f.counters = make(map[string]int)
	}
	f.counters[tag] += delta
	return f.counters[tag]
}

func newTestRegistry(t *testing.T) (*Registry, *fakeAchievements, *[]events.Event) {
	t.Helper()
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	session := models.NewGameSession(models.NewPlayerState("Player", "start"), func() time.Time { return now })

	var published []events.Event
	session.Bus.Subscribe(events.KindPuzzle, func(ev events.Event) {
		published = append(published, ev)
	})

	ach := &fakeAchievements{}
	r := NewRegistry(session, ach, nil)
	defs := []*Definition{
		{ID: "recursion_fix", Title: "Recursion Fix", Category: Debugging, Difficulty: 2, Hint: "What stops it?", Solution: recursionSolution, Rewards: []string{"bug_squasher"}},
		{ID: "race_condition", Title: "Race Condition", Category: Debugging, Difficulty: 4, Hint: "Two writers.", Solution: "Guard the shared counter with a lock and release it on every path."},
		{ID: "memory_decay", Title: "Memory Decay", Category: Algorithms, Difficulty: 3, Hint: "Half-life.", Solution: "Apply exponential decay to each memory weight every tick."},
		{ID: "quine", Title: "Quine", Category: MetaProgramming, Difficulty: 5, Hint: "Print yourself.", Solution: "function quine prints its own source by formatting a template with itself."},
	}
	for _, d := range defs {
		require.NoError(t, r.Register(d))
	}
	return r, ach, &published
}

func solve(t *testing.T, r *Registry, id, answer string) *SubmitResult {
	t.Helper()
	_, err := r.Start(id, "p1")
	require.NoError(t, err)
	res, err := r.Submit(id, answer, "p1")
	require.NoError(t, err)
	require.True(t, res.Success, "expected %s to be solved", id)
	return res
}

func TestRegisterRejectsBadDefinitions(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	err := r.Register(&Definition{ID: "recursion_fix", Category: Debugging, Difficulty: 1})
	assert.True(t, gerrors.HasCode(err, gerrors.ErrCodeContentInvalid))

	err = r.Register(&Definition{ID: "x", Category: "cooking", Difficulty: 1})
	assert.Error(t, err)

	err = r.Register(&Definition{ID: "y", Category: Algorithms, Difficulty: 6})
	assert.Error(t, err)
}

func TestStartUnknownPuzzle(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	_, err := r.Start("nope", "p1")
	assert.True(t, gerrors.IsNotFound(err))
}

func TestStartPublishesEventAndReplacesSession(t *testing.T) {
	r, _, published := newTestRegistry(t)

	s1, err := r.Start("recursion_fix", "p1")
	require.NoError(t, err)
	_, err = r.Submit("recursion_fix", "no idea", "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, s1.Attempts)

	s2, err := r.Start("recursion_fix", "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, s2.Attempts)
	assert.Equal(t, StatusActive, s2.Status)

	active, ok := r.ActiveSession("recursion_fix", "p1")
	require.True(t, ok)
	assert.Same(t, s2, active)

	require.Len(t, *published, 2)
	assert.Equal(t, events.TypePuzzleStart, (*published)[0].Type)
	assert.Equal(t, "recursion_fix", (*published)[0].Subject)
}

func TestHint(t *testing.T) {
	r, ach, _ := newTestRegistry(t)

	_, err := r.Hint("recursion_fix", "p1")
	assert.True(t, gerrors.IsNoActiveSession(err))

	_, err = r.Start("recursion_fix", "p1")
	require.NoError(t, err)

	h, err := r.Hint("recursion_fix", "p1")
	require.NoError(t, err)
	assert.Equal(t, "What stops it?", h.Hint)
	assert.Equal(t, 1, h.HintsUsed)
	assert.InDelta(t, 0.1, h.Penalty, 1e-9)

	h, err = r.Hint("recursion_fix", "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, h.HintsUsed)
	assert.InDelta(t, 0.2, h.Penalty, 1e-9)

	assert.Equal(t, 2, r.TotalHints())
	assert.Equal(t, 2, ach.counters[CounterHintsUsed])
}

func TestSubmitWithoutSession(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	_, err := r.Submit("recursion_fix", "depth and base case", "p1")
	assert.True(t, gerrors.IsNoActiveSession(err))
}

func TestSubmitAcceptsConceptParaphrase(t *testing.T) {
	answers := []string{
		"add a DEPTH parameter and a Base Case",
		"base   case when depth hits the limit",
		"I'd track depth.\nThen a base\tcase returns early.",
	}
	for _, answer := range answers {
		t.Run(answer, func(t *testing.T) {
			r, _, _ := newTestRegistry(t)
			_, err := r.Start("recursion_fix", "p1")
			require.NoError(t, err)

			res, err := r.Submit("recursion_fix", answer, "p1")
			require.NoError(t, err)
			assert.True(t, res.Success)
		})
	}
}

func TestSubmitRejectionCountsDown(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	_, err := r.Start("recursion_fix", "p1")
	require.NoError(t, err)

	var remaining []int
	for i := 0; i < 7; i++ {
		res, err := r.Submit("recursion_fix", "turn it off and on again", "p1")
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.NotEmpty(t, res.Message)
		remaining = append(remaining, res.AttemptsRemaining)
	}
	assert.Equal(t, []int{4, 3, 2, 1, 0, 0, 0}, remaining)

	// The budget is advisory: a correct answer after it runs out still counts.
	res, err := r.Submit("recursion_fix", "depth plus a base case", "p1")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 8, res.Attempts)
}

func TestSubmitFeedbackRotates(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	_, err := r.Start("recursion_fix", "p1")
	require.NoError(t, err)

	var messages []string
	for i := 0; i < len(feedback)+1; i++ {
		res, err := r.Submit("recursion_fix", "wrong", "p1")
		require.NoError(t, err)
		messages = append(messages, res.Message)
	}
	assert.Equal(t, feedback[1], messages[0])
	assert.Equal(t, messages[0], messages[len(feedback)])
}

func TestSubmitSuccessIsIdempotent(t *testing.T) {
	r, ach, published := newTestRegistry(t)

	var callbacks int
	r.OnComplete(func(def *Definition) { callbacks++ })

	res := solve(t, r, "recursion_fix", "depth and a base case")
	assert.Equal(t, []string{"bug_squasher"}, res.Rewards)
	require.NotNil(t, res.Stats)
	assert.Equal(t, 1, res.Stats.TotalSolved)

	_, open := r.ActiveSession("recursion_fix", "p1")
	assert.False(t, open, "session should be deleted on success")
	assert.True(t, r.IsCompleted("recursion_fix"))

	again := solve(t, r, "recursion_fix", "depth and a base case")
	assert.Empty(t, again.Rewards)

	assert.Equal(t, 1, callbacks)
	assert.Equal(t, []string{"bug_squasher"}, ach.unlocked)
	assert.Equal(t, 1, ach.counters[CounterSolved])
	assert.Equal(t, 1, ach.counters[CounterNoHints])

	var solved int
	for _, ev := range *published {
		if ev.Type == events.TypePuzzleSolved {
			solved++
		}
	}
	assert.Equal(t, 1, solved)
}

func TestHintedSolveIsNotHintFree(t *testing.T) {
	r, ach, _ := newTestRegistry(t)
	_, err := r.Start("race_condition", "p1")
	require.NoError(t, err)
	_, err = r.Hint("race_condition", "p1")
	require.NoError(t, err)

	res, err := r.Submit("race_condition", "use a lock", "p1")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 0, ach.counters[CounterNoHints])
	assert.Equal(t, 1, res.Stats.Hints.Few)
}

func TestProgressDerivesFromCompletedSet(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	solve(t, r, "recursion_fix", "depth, base case")
	solve(t, r, "race_condition", "a lock around it")
	solve(t, r, "memory_decay", "exponential decay")

	p := r.Progress()
	assert.Equal(t, 3, p.TotalSolved)
	assert.Equal(t, CategoryProgress{Total: 2, Completed: 2}, p.PerCategory[Debugging])
	assert.Equal(t, CategoryProgress{Total: 1, Completed: 1}, p.PerCategory[Algorithms])
	assert.Equal(t, CategoryProgress{Total: 0, Completed: 0}, p.PerCategory[SystemDesign])
	assert.Equal(t, Debugging, p.FavoriteCategory)
	assert.InDelta(t, 3.0, p.AverageDifficulty, 1e-9)
	assert.Equal(t, HintUsage{None: 3}, p.Hints)

	assert.Equal(t, map[string]int{"debugging": 2, "algorithms": 1}, r.CompletedByCategory())
}

func TestProgressFavoriteTieGoesToEarlierCategory(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	solve(t, r, "quine", "function quine")
	solve(t, r, "memory_decay", "decay")

	assert.Equal(t, Algorithms, r.Progress().FavoriteCategory)
}

func TestProgressEmpty(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	p := r.Progress()
	assert.Zero(t, p.TotalSolved)
	assert.Zero(t, p.AverageDifficulty)
	assert.Equal(t, Category(""), p.FavoriteCategory)
	assert.Len(t, p.PerCategory, len(Categories))
}

func TestSnapshotRestore(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	_, err := r.Start("race_condition", "p1")
	require.NoError(t, err)
	_, err = r.Hint("race_condition", "p1")
	require.NoError(t, err)
	_, err = r.Submit("race_condition", "lock", "p1")
	require.NoError(t, err)
	solve(t, r, "recursion_fix", "depth base case")

	save := r.Snapshot()
	assert.Equal(t, []string{"race_condition", "recursion_fix"}, save.Completed)
	assert.Equal(t, 1, save.TotalHints)

	fresh, ach, published := newTestRegistry(t)
	save.Completed = append(save.Completed, "deleted_puzzle")
	fresh.Restore(save)

	assert.Equal(t, []string{"race_condition", "recursion_fix"}, fresh.Completed())
	assert.Equal(t, 1, fresh.TotalHints())
	assert.Equal(t, r.Progress(), fresh.Progress())
	assert.Empty(t, ach.unlocked)
	assert.Empty(t, *published)
}
