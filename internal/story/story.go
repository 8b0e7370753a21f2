// Package story tracks the player's progress through Ravi's stories and the
// chapters inside them.
package story

import (
	"time"

	"github.com/tatianab/ravi-adventure/internal/condition"
	"github.com/tatianab/ravi-adventure/internal/models"
)

// Voice decides which commentary channel a story speaks through.
type Voice string

const (
	VoiceRavi  Voice = "ravi"
	VoiceSwarm Voice = "swarm"
)

// Chapter is one objective within a story.
type Chapter struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Objective string `yaml:"objective"`
	// Trigger completes the chapter the first time it holds. A chapter
	// without one never completes on its own.
	Trigger    *condition.Condition `yaml:"trigger"`
	OnComplete models.Effect        `yaml:"on_complete"`
	Commentary string               `yaml:"commentary"`

	Completed bool `yaml:"-"`
}

// Story is an ordered list of chapters.
type Story struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Voice       Voice  `yaml:"voice"`
	// UnlockAfter is the number of completed stories that unlocks this one.
	// Zero means it is available from the start.
	UnlockAfter int           `yaml:"unlock_after"`
	OnComplete  models.Effect `yaml:"on_complete"`
	Chapters    []*Chapter    `yaml:"chapters"`

	Unlocked  bool       `yaml:"-"`
	StartedAt *time.Time `yaml:"-"`
}

// CompletionFlag is the flag set when the story is finished.
func (s *Story) CompletionFlag() string {
	return "completed_" + s.ID
}

// Objective is an incomplete chapter as shown to the player.
type Objective struct {
	StoryID   string
	ChapterID string
	Name      string
	Objective string
}
