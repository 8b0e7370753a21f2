// Package puzzle holds the programming puzzles Ravi poses, the player's
// attempts at them and the statistics derived from what has been solved.
package puzzle

import (
	"time"

	"github.com/tatianab/ravi-adventure/internal/models"
)

// Category groups puzzles for progress reporting.
type Category string

const (
	Debugging       Category = "debugging"
	Algorithms      Category = "algorithms"
	SystemDesign    Category = "system_design"
	MetaProgramming Category = "meta_programming"
)

// Categories lists every category in reporting order. Favorite-category
// ties go to the earlier entry.
var Categories = []Category{Debugging, Algorithms, SystemDesign, MetaProgramming}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Definition is an immutable puzzle.
type Definition struct {
	ID         string   `yaml:"id"`
	Title      string   `yaml:"title"`
	Category   Category `yaml:"category"`
	Difficulty int      `yaml:"difficulty"` // 1..5
	Problem    string   `yaml:"problem"`
	Hint       string   `yaml:"hint"`
	// Solution is the canonical answer submissions are checked against.
	Solution   string        `yaml:"solution"`
	Rewards    []string      `yaml:"rewards"` // achievement ids
	OnComplete models.Effect `yaml:"on_complete"`
}

// Status is the state of a puzzle session.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Session is one player's in-progress attempt at a puzzle.
type Session struct {
	PuzzleID  string
	PlayerID  string
	StartTime time.Time
	Attempts  int
	HintsUsed int
	Status    Status
}

// HintResult is returned by Registry.Hint.
type HintResult struct {
	Hint      string
	HintsUsed int
	// Penalty is informational; nothing deducts it.
	Penalty float64
}

// SubmitResult is returned by Registry.Submit. A rejected answer is a
// normal result, not an error.
type SubmitResult struct {
	Success           bool
	Message           string
	Rewards           []string
	Stats             *Progress
	Attempts          int
	AttemptsRemaining int
}

// CategoryProgress counts puzzles in one category.
type CategoryProgress struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
}

// HintUsage buckets solved puzzles by how many hints they took.
type HintUsage struct {
	None int `json:"none"` // 0 hints
	Few  int `json:"few"`  // 1-2 hints
	Many int `json:"many"` // 3 or more
}

// Progress is a snapshot recomputed from the completed set.
type Progress struct {
	TotalSolved       int                           `json:"totalSolved"`
	AverageDifficulty float64                       `json:"averageDifficulty"`
	FavoriteCategory  Category                      `json:"favoriteCategory"`
	PerCategory       map[Category]CategoryProgress `json:"perCategory"`
	Hints             HintUsage                     `json:"hints"`
}
