// Package events implements the synchronous publish/subscribe hub the game
// components attach to.
package events

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Kind identifies the family an event belongs to.
type Kind int

const (
	KindStateChange Kind = iota
	KindStory
	KindPuzzle
	KindAchievementUnlocked
	KindMetaCommentary
	KindSwarmCommentary
)

func (k Kind) String() string {
	switch k {
	case KindStateChange:
		return "stateChange"
	case KindStory:
		return "storyEvent"
	case KindPuzzle:
		return "puzzleEvent"
	case KindAchievementUnlocked:
		return "achievementUnlocked"
	case KindMetaCommentary:
		return "metaCommentary"
	case KindSwarmCommentary:
		return "swarmCommentary"
	default:
		return "unknown"
	}
}

// Event sub-types.
const (
	TypeTurn         = "turn"
	TypeFlagSet      = "flag_set"
	TypeVariable     = "variable_changed"
	TypeInventory    = "inventory_changed"
	TypeMoved        = "moved"
	TypeEasterEgg    = "easter_egg"
	TypePuzzleStart  = "puzzle_started"
	TypePuzzleSolved = "puzzle_solved"
	TypeChapterDone  = "chapter_complete"
	TypeStoryDone    = "story_complete"
	TypeStoryUnlock  = "story_unlocked"
	TypeStorySwitch  = "story_switched"
)

// Event is a single notification delivered through the Bus.
type Event struct {
	ID      string
	Kind    Kind
	Type    string
	Subject string // puzzle, chapter, story, flag or achievement id
	Text    string
	// Elapsed carries the story duration for story_complete events.
	Elapsed *time.Duration
	Payload any
	At      time.Time
}

// New creates an event of the given kind and type.
func New(kind Kind, typ, subject string) Event {
	return Event{
		ID:      ulid.Make().String(),
		Kind:    kind,
		Type:    typ,
		Subject: subject,
		At:      time.Now(),
	}
}

// WithText sets the text and returns the event for chaining.
func (e Event) WithText(text string) Event {
	e.Text = text
	return e
}

// WithPayload sets the payload and returns the event for chaining.
func (e Event) WithPayload(payload any) Event {
	e.Payload = payload
	return e
}

// WithElapsed sets the elapsed duration and returns the event for chaining.
func (e Event) WithElapsed(d time.Duration) Event {
	e.Elapsed = &d
	return e
}
