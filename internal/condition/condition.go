// Package condition evaluates the declarative predicates that gate
// achievements, chapters and stories.
package condition

import (
	"fmt"
	"time"

	"github.com/tatianab/ravi-adventure/internal/events"
)

// Facts is the read-only view of player state a condition can query.
type Facts interface {
	HasFlag(flag string) bool
	Variable(name string) float64
}

// Condition is a tagged union: the first populated shape decides how it is
// evaluated. A condition with no recognizable shape is never satisfied.
type Condition struct {
	Flag     string   `yaml:"flag,omitempty" json:"flag,omitempty"`
	AllFlags []string `yaml:"all_flags,omitempty" json:"allFlags,omitempty"`

	// Variable and Counter compare against Threshold with >=.
	Variable  string  `yaml:"variable,omitempty" json:"variable,omitempty"`
	Counter   string  `yaml:"counter,omitempty" json:"counter,omitempty"`
	Threshold float64 `yaml:"threshold,omitempty" json:"threshold,omitempty"`

	PuzzleSolved              string   `yaml:"puzzle_solved,omitempty" json:"puzzleSolved,omitempty"`
	PuzzleCategory            string   `yaml:"puzzle_category,omitempty" json:"puzzleCategory,omitempty"`
	Count                     int      `yaml:"count,omitempty" json:"count,omitempty"`
	PuzzleCategoriesCompleted []string `yaml:"puzzle_categories_completed,omitempty" json:"puzzleCategoriesCompleted,omitempty"`

	// Durations use time.ParseDuration syntax, e.g. "20m".
	StoryCompletionTime  string `yaml:"story_completion_time,omitempty" json:"storyCompletionTime,omitempty"`
	StoryExplorationTime string `yaml:"story_exploration_time,omitempty" json:"storyExplorationTime,omitempty"`

	Expr string `yaml:"expr,omitempty" json:"expr,omitempty"`
}

// Shape names the variant a condition resolves to.
type Shape string

const (
	ShapeNone                      Shape = ""
	ShapeFlag                      Shape = "flag"
	ShapeAllFlags                  Shape = "all_flags"
	ShapeVariable                  Shape = "variable"
	ShapeCounter                   Shape = "counter"
	ShapePuzzleSolved              Shape = "puzzle_solved"
	ShapePuzzleCategory            Shape = "puzzle_category"
	ShapePuzzleCategoriesCompleted Shape = "puzzle_categories_completed"
	ShapeStoryCompletionTime       Shape = "story_completion_time"
	ShapeStoryExplorationTime      Shape = "story_exploration_time"
	ShapeExpr                      Shape = "expr"
)

// Shape reports which variant c holds.
func (c *Condition) Shape() Shape {
	switch {
	case c == nil:
		return ShapeNone
	case c.Flag != "":
		return ShapeFlag
	case c.AllFlags != nil:
		return ShapeAllFlags
	case c.Variable != "":
		return ShapeVariable
	case c.Counter != "":
		return ShapeCounter
	case c.PuzzleSolved != "":
		return ShapePuzzleSolved
	case c.PuzzleCategory != "":
		return ShapePuzzleCategory
	case c.PuzzleCategoriesCompleted != nil:
		return ShapePuzzleCategoriesCompleted
	case c.StoryCompletionTime != "":
		return ShapeStoryCompletionTime
	case c.StoryExplorationTime != "":
		return ShapeStoryExplorationTime
	case c.Expr != "":
		return ShapeExpr
	}
	return ShapeNone
}

// Context is everything a condition may look at besides the player.
type Context struct {
	State Facts

	// Event is the event that caused this check. puzzle_solved conditions
	// only ever match against it.
	Event *events.Event

	CategoryCounts map[string]int
	Counters       map[string]int

	// Elapsed is the story duration being judged. When nil the triggering
	// event's Elapsed is used.
	Elapsed *time.Duration

	// Env is merged into the expression environment.
	Env map[string]any
}

// Source supplies a fresh context for each round of evaluation.
type Source func() Context

// Evaluate reports whether c holds. It has no side effects and never panics
// on malformed input: anything it cannot interpret is false.
func Evaluate(c *Condition, ctx Context) bool {
	switch c.Shape() {
	case ShapeFlag:
		return ctx.State != nil && ctx.State.HasFlag(c.Flag)

	case ShapeAllFlags:
		if ctx.State == nil {
			return false
		}
		for _, f := range c.AllFlags {
			if !ctx.State.HasFlag(f) {
				return false
			}
		}
		return true

	case ShapeVariable:
		return ctx.State != nil && ctx.State.Variable(c.Variable) >= c.Threshold

	case ShapeCounter:
		return float64(ctx.Counters[c.Counter]) >= c.Threshold

	case ShapePuzzleSolved:
		ev := ctx.Event
		return ev != nil && ev.Kind == events.KindPuzzle &&
			ev.Type == events.TypePuzzleSolved && ev.Subject == c.PuzzleSolved

	case ShapePuzzleCategory:
		need := c.Count
		if need < 1 {
			need = 1
		}
		return ctx.CategoryCounts[c.PuzzleCategory] >= need

	case ShapePuzzleCategoriesCompleted:
		for _, cat := range c.PuzzleCategoriesCompleted {
			if ctx.CategoryCounts[cat] < 1 {
				return false
			}
		}
		return true

	case ShapeStoryCompletionTime:
		limit, elapsed, ok := durations(c.StoryCompletionTime, ctx)
		return ok && elapsed <= limit

	case ShapeStoryExplorationTime:
		limit, elapsed, ok := durations(c.StoryExplorationTime, ctx)
		return ok && elapsed >= limit

	case ShapeExpr:
		return evalExpr(c.Expr, ctx)
	}
	return false
}

func durations(threshold string, ctx Context) (limit, elapsed time.Duration, ok bool) {
	src := ctx.Elapsed
	if src == nil && ctx.Event != nil {
		src = ctx.Event.Elapsed
	}
	if src == nil {
		return 0, 0, false
	}
	limit, err := time.ParseDuration(threshold)
	if err != nil {
		return 0, 0, false
	}
	return limit, *src, true
}

// Check reports content errors in c: a missing shape, an unparsable
// duration or an expression that does not compile.
func Check(c *Condition) error {
	switch c.Shape() {
	case ShapeNone:
		return fmt.Errorf("condition has no recognizable shape")
	case ShapeStoryCompletionTime:
		if _, err := time.ParseDuration(c.StoryCompletionTime); err != nil {
			return fmt.Errorf("story_completion_time: %w", err)
		}
	case ShapeStoryExplorationTime:
		if _, err := time.ParseDuration(c.StoryExplorationTime); err != nil {
			return fmt.Errorf("story_exploration_time: %w", err)
		}
	case ShapeExpr:
		if _, err := compile(c.Expr); err != nil {
			return fmt.Errorf("expr %q: %w", c.Expr, err)
		}
	}
	return nil
}
