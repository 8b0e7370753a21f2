package content

import (
	"fmt"

	"github.com/tatianab/ravi-adventure/internal/condition"
	"github.com/tatianab/ravi-adventure/internal/models"
	"github.com/tatianab/ravi-adventure/internal/puzzle"
)

// Validate checks a pack for dangling references and malformed conditions.
// It returns the first problem found.
func Validate(p *Pack) error {
	if err := validateWorld(&p.World); err != nil {
		return err
	}

	achievementIDs := make(map[string]bool, len(p.Achievements))
	for _, a := range p.Achievements {
		if a.ID == "" || a.Name == "" {
			return invalid("achievement %q needs an id and a name", a.ID)
		}
		if achievementIDs[a.ID] {
			return invalid("duplicate achievement %q", a.ID)
		}
		achievementIDs[a.ID] = true
		if !a.Rarity.Valid() {
			return invalid("achievement %q: unknown rarity %q", a.ID, a.Rarity)
		}
		if err := condition.Check(a.Condition); err != nil {
			return invalid("achievement %q: %v", a.ID, err)
		}
		if err := checkCategories(a.Condition); err != nil {
			return invalid("achievement %q: %v", a.ID, err)
		}
	}

	puzzleIDs := make(map[string]bool, len(p.Puzzles))
	for _, pz := range p.Puzzles {
		if pz.ID == "" || pz.Solution == "" {
			return invalid("puzzle %q needs an id and a solution", pz.ID)
		}
		if puzzleIDs[pz.ID] {
			return invalid("duplicate puzzle %q", pz.ID)
		}
		puzzleIDs[pz.ID] = true
		if !pz.Category.Valid() {
			return invalid("puzzle %q: unknown category %q", pz.ID, pz.Category)
		}
		if pz.Difficulty < 1 || pz.Difficulty > 5 {
			return invalid("puzzle %q: difficulty %d outside 1..5", pz.ID, pz.Difficulty)
		}
		for _, r := range pz.Rewards {
			if !achievementIDs[r] {
				return invalid("puzzle %q rewards unknown achievement %q", pz.ID, r)
			}
		}
	}

	storyIDs := make(map[string]bool, len(p.Stories))
	hasOpening := false
	for _, s := range p.Stories {
		if s.ID == "" || len(s.Chapters) == 0 {
			return invalid("story %q needs an id and at least one chapter", s.ID)
		}
		if storyIDs[s.ID] {
			return invalid("duplicate story %q", s.ID)
		}
		storyIDs[s.ID] = true
		if s.UnlockAfter == 0 {
			hasOpening = true
		}
		chapterIDs := make(map[string]bool, len(s.Chapters))
		for _, ch := range s.Chapters {
			if ch.ID == "" || chapterIDs[ch.ID] {
				return invalid("story %q: missing or duplicate chapter id %q", s.ID, ch.ID)
			}
			chapterIDs[ch.ID] = true
			if ch.Trigger == nil {
				continue
			}
			if err := condition.Check(ch.Trigger); err != nil {
				return invalid("chapter %s/%s: %v", s.ID, ch.ID, err)
			}
			if ch.Trigger.Shape() == condition.ShapePuzzleSolved {
				return invalid("chapter %s/%s: puzzle_solved only matches events; use a flag set by the puzzle", s.ID, ch.ID)
			}
		}
	}
	if len(p.Stories) > 0 && !hasOpening {
		return invalid("no story is unlocked from the start")
	}
	return nil
}

func validateWorld(w *models.World) error {
	if len(w.Locations) == 0 {
		return invalid("world has no locations")
	}

	items := make(map[string]bool, len(w.Items))
	for _, it := range w.Items {
		if it.Name == "" {
			return invalid("item without a name")
		}
		if items[it.Name] {
			return invalid("duplicate item %q", it.Name)
		}
		items[it.Name] = true
	}

	locations := make(map[string]bool, len(w.Locations))
	for _, loc := range w.Locations {
		if loc.Key == "" || loc.Key == models.UnknownLocationKey {
			return invalid("location key %q is reserved or empty", loc.Key)
		}
		if locations[loc.Key] {
			return invalid("duplicate location %q", loc.Key)
		}
		locations[loc.Key] = true
	}

	if !locations[w.Start] {
		return invalid("start location %q does not exist", w.Start)
	}
	for _, loc := range w.Locations {
		for dir, to := range loc.Exits {
			if !locations[to] {
				return invalid("location %q: exit %q leads to unknown location %q", loc.Key, dir, to)
			}
		}
		for _, it := range loc.Items {
			if !items[it] {
				return invalid("location %q holds unknown item %q", loc.Key, it)
			}
		}
	}
	for _, it := range w.Items {
		for where := range it.Uses {
			if where != "*" && !locations[where] {
				return invalid("item %q: use at unknown location %q", it.Name, where)
			}
		}
	}
	return nil
}

func checkCategories(c *condition.Condition) error {
	cats := append([]string(nil), c.PuzzleCategoriesCompleted...)
	if c.PuzzleCategory != "" {
		cats = append(cats, c.PuzzleCategory)
	}
	for _, cat := range cats {
		if !puzzle.Category(cat).Valid() {
			return fmt.Errorf("unknown puzzle category %q", cat)
		}
	}
	return nil
}
