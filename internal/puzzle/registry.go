package puzzle

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	gerrors "github.com/tatianab/ravi-adventure/internal/errors"
	"github.com/tatianab/ravi-adventure/internal/events"
	"github.com/tatianab/ravi-adventure/internal/models"
)

// MaxAttempts is the advisory attempt budget reported back to the player.
// Submissions past it are still accepted for checking.
const MaxAttempts = 5

// HintPenalty is the per-hint score modifier reported by Hint.
const HintPenalty = 0.1

// Counter tags recorded on the achievement registry.
const (
	CounterSolved      = "puzzles_solved"
	CounterNoHints     = "puzzles_no_hints"
	CounterHintsUsed   = "hints_used"
	CounterDifficulty5 = "hard_puzzles_solved"
)

var feedback = []string{
	"Not quite. Ravi squints at your answer: something important is missing.",
	"Close, maybe. Try naming the idea that actually fixes it.",
	"The logs disagree with you. Read the problem again, slowly.",
	"Ravi hums thoughtfully. \"I'd expect a fix to mention what stops it.\"",
}

// Achievements is the slice of the achievement registry puzzles need.
type Achievements interface {
	Unlock(id string) bool
	Record(tag string, delta int) int
}

// CompletionFunc runs once when a puzzle is solved for the first time.
type CompletionFunc func(def *Definition)

type sessionKey struct {
	player string
	puzzle string
}

// Registry stores puzzle definitions and the sessions played against them.
type Registry struct {
	session      *models.GameSession
	achievements Achievements
	logger       *slog.Logger
	onComplete   CompletionFunc

	defs       map[string]*Definition
	order      []string
	sessions   map[sessionKey]*Session
	completed  map[string]bool
	hintsUsed  map[string]int // hints taken on each solved puzzle
	totalHints int
}

// NewRegistry creates an empty registry bound to a game session.
func NewRegistry(session *models.GameSession, achievements Achievements, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		session:      session,
		achievements: achievements,
		logger:       logger,
		defs:         make(map[string]*Definition),
		sessions:     make(map[sessionKey]*Session),
		completed:    make(map[string]bool),
		hintsUsed:    make(map[string]int),
	}
}

// OnComplete sets the callback run after a first-time solve.
func (r *Registry) OnComplete(fn CompletionFunc) {
	r.onComplete = fn
}

// Register adds a definition. Ids must be unique.
func (r *Registry) Register(def *Definition) error {
	if def.ID == "" {
		return gerrors.ErrContentInvalid("puzzle without id")
	}
	if _, dup := r.defs[def.ID]; dup {
		return gerrors.ErrContentInvalid(fmt.Sprintf("duplicate puzzle %q", def.ID))
	}
	if !def.Category.Valid() {
		return gerrors.ErrContentInvalid(fmt.Sprintf("puzzle %q: unknown category %q", def.ID, def.Category))
	}
	if def.Difficulty < 1 || def.Difficulty > 5 {
		return gerrors.ErrContentInvalid(fmt.Sprintf("puzzle %q: difficulty %d outside 1..5", def.ID, def.Difficulty))
	}
	r.defs[def.ID] = def
	r.order = append(r.order, def.ID)
	return nil
}

// Get returns a definition by id.
func (r *Registry) Get(id string) (*Definition, error) {
	def, ok := r.defs[id]
	if !ok {
		return nil, gerrors.ErrNotFound("puzzle", id)
	}
	return def, nil
}

// List returns all definitions in registration order.
func (r *Registry) List() []*Definition {
	out := make([]*Definition, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.defs[id])
	}
	return out
}

// ActiveSession returns the player's open session for a puzzle, if any.
func (r *Registry) ActiveSession(puzzleID, playerID string) (*Session, bool) {
	s, ok := r.sessions[sessionKey{playerID, puzzleID}]
	return s, ok
}

// Start opens a fresh session, replacing any existing one for the same
// player and puzzle. Solved puzzles may be started again for review.
func (r *Registry) Start(puzzleID, playerID string) (*Session, error) {
	def, err := r.Get(puzzleID)
	if err != nil {
		return nil, err
	}

	s := &Session{
		PuzzleID:  puzzleID,
		PlayerID:  playerID,
		StartTime: r.session.Now(),
		Status:    StatusActive,
	}
	r.sessions[sessionKey{playerID, puzzleID}] = s

	r.logger.Debug("puzzle started", "puzzle", puzzleID, "player", playerID)
	r.session.Publish(events.New(events.KindPuzzle, events.TypePuzzleStart, puzzleID).
		WithText(def.Title).
		WithPayload(*s))
	return s, nil
}

// Hint reveals the puzzle hint and charges it to the session.
func (r *Registry) Hint(puzzleID, playerID string) (HintResult, error) {
	s, ok := r.sessions[sessionKey{playerID, puzzleID}]
	if !ok {
		return HintResult{}, gerrors.ErrNoActiveSession(puzzleID)
	}
	def := r.defs[puzzleID]

	s.HintsUsed++
	r.totalHints++
	if r.achievements != nil {
		r.achievements.Record(CounterHintsUsed, 1)
	}

	return HintResult{
		Hint:      def.Hint,
		HintsUsed: s.HintsUsed,
		Penalty:   float64(s.HintsUsed) * HintPenalty,
	}, nil
}

// Submit checks an answer against the active session.
func (r *Registry) Submit(puzzleID, solution, playerID string) (*SubmitResult, error) {
	key := sessionKey{playerID, puzzleID}
	s, ok := r.sessions[key]
	if !ok {
		return nil, gerrors.ErrNoActiveSession(puzzleID)
	}
	def := r.defs[puzzleID]
	s.Attempts++

	if !Validate(def.Solution, solution) {
		r.logger.Debug("puzzle answer rejected", "puzzle", puzzleID, "attempts", s.Attempts)
		return &SubmitResult{
			Message:           feedback[s.Attempts%len(feedback)],
			Attempts:          s.Attempts,
			AttemptsRemaining: max(0, MaxAttempts-s.Attempts),
		}, nil
	}

	delete(r.sessions, key)
	s.Status = StatusCompleted

	if r.completed[puzzleID] {
		stats := r.Progress()
		return &SubmitResult{
			Success:           true,
			Message:           fmt.Sprintf("Still correct. You already solved %s.", def.Title),
			Stats:             &stats,
			Attempts:          s.Attempts,
			AttemptsRemaining: max(0, MaxAttempts-s.Attempts),
		}, nil
	}

	r.completed[puzzleID] = true
	r.hintsUsed[puzzleID] = s.HintsUsed
	r.logger.Info("puzzle solved", "puzzle", puzzleID, "attempts", s.Attempts, "hints", s.HintsUsed)

	if r.achievements != nil {
		r.achievements.Record(CounterSolved, 1)
		if s.HintsUsed == 0 {
			r.achievements.Record(CounterNoHints, 1)
		}
		if def.Difficulty == 5 {
			r.achievements.Record(CounterDifficulty5, 1)
		}
		for _, id := range def.Rewards {
			r.achievements.Unlock(id)
		}
	}
	if r.onComplete != nil {
		r.onComplete(def)
	}
	r.session.Publish(events.New(events.KindPuzzle, events.TypePuzzleSolved, puzzleID).
		WithText(def.Title).
		WithPayload(*s))

	stats := r.Progress()
	return &SubmitResult{
		Success:           true,
		Message:           fmt.Sprintf("Solved %s in %d attempt(s).", def.Title, s.Attempts),
		Rewards:           append([]string(nil), def.Rewards...),
		Stats:             &stats,
		Attempts:          s.Attempts,
		AttemptsRemaining: max(0, MaxAttempts-s.Attempts),
	}, nil
}

// IsCompleted reports whether a puzzle has been solved.
func (r *Registry) IsCompleted(id string) bool {
	return r.completed[id]
}

// Completed returns the solved puzzle ids, sorted.
func (r *Registry) Completed() []string {
	ids := make([]string, 0, len(r.completed))
	for id := range r.completed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CompletedByCategory counts solved puzzles per category.
func (r *Registry) CompletedByCategory() map[string]int {
	counts := make(map[string]int, len(Categories))
	for id := range r.completed {
		if def, ok := r.defs[id]; ok {
			counts[string(def.Category)]++
		}
	}
	return counts
}

// TotalHints returns the number of hints taken across all sessions.
func (r *Registry) TotalHints() int {
	return r.totalHints
}

// Progress recomputes the player's statistics from the completed set.
func (r *Registry) Progress() Progress {
	p := Progress{PerCategory: make(map[Category]CategoryProgress, len(Categories))}
	for _, c := range Categories {
		p.PerCategory[c] = CategoryProgress{}
	}
	for _, def := range r.defs {
		cp := p.PerCategory[def.Category]
		cp.Total++
		p.PerCategory[def.Category] = cp
	}

	difficulty := 0
	for id := range r.completed {
		def, ok := r.defs[id]
		if !ok {
			continue
		}
		p.TotalSolved++
		difficulty += def.Difficulty

		cp := p.PerCategory[def.Category]
		cp.Completed++
		p.PerCategory[def.Category] = cp

		switch h := r.hintsUsed[id]; {
		case h == 0:
			p.Hints.None++
		case h <= 2:
			p.Hints.Few++
		default:
			p.Hints.Many++
		}
	}

	if p.TotalSolved > 0 {
		p.AverageDifficulty = math.Round(float64(difficulty)/float64(p.TotalSolved)*100) / 100
		best := 0
		for _, c := range Categories {
			if n := p.PerCategory[c].Completed; n > best {
				best = n
				p.FavoriteCategory = c
			}
		}
	}
	return p
}

// Snapshot returns the persisted form of the registry.
func (r *Registry) Snapshot() models.PuzzleSave {
	hints := make(map[string]int, len(r.hintsUsed))
	for id, n := range r.hintsUsed {
		hints[id] = n
	}
	return models.PuzzleSave{
		Completed:  r.Completed(),
		HintsUsed:  hints,
		TotalHints: r.totalHints,
	}
}

// Restore marks saved puzzles solved. Unknown ids are skipped and no
// rewards or events fire. Open sessions are discarded.
func (r *Registry) Restore(save models.PuzzleSave) {
	r.sessions = make(map[sessionKey]*Session)
	r.completed = make(map[string]bool)
	r.hintsUsed = make(map[string]int)
	for _, id := range save.Completed {
		if _, ok := r.defs[id]; !ok {
			r.logger.Warn("ignoring unknown puzzle in save", "puzzle", id)
			continue
		}
		r.completed[id] = true
		r.hintsUsed[id] = max(0, save.HintsUsed[id])
	}
	r.totalHints = max(0, save.TotalHints)
}
