// Package achievement keeps the achievement catalog and decides, event by
// event, which achievements the player has earned.
package achievement

import (
	"time"

	"github.com/tatianab/ravi-adventure/internal/condition"
)

// Rarity classifies an achievement for reporting.
type Rarity string

const (
	Common   Rarity = "common"
	Uncommon Rarity = "uncommon"
	Rare     Rarity = "rare"
	Epic     Rarity = "epic"
)

// Rarities lists every rarity from most to least common.
var Rarities = []Rarity{Common, Uncommon, Rare, Epic}

// Valid reports whether r is a known rarity.
func (r Rarity) Valid() bool {
	for _, known := range Rarities {
		if r == known {
			return true
		}
	}
	return false
}

// Definition is an immutable achievement.
type Definition struct {
	ID          string               `yaml:"id"`
	Name        string               `yaml:"name"`
	Description string               `yaml:"description"`
	Category    string               `yaml:"category"`
	Rarity      Rarity               `yaml:"rarity"`
	Condition   *condition.Condition `yaml:"condition"`
	Commentary  []string             `yaml:"commentary"`
}

// Unlocked is the payload of an achievementUnlocked event.
type Unlocked struct {
	Achievement       *Definition
	TotalUnlocked     int
	TotalAchievements int
}

// Record is one entry of the unlock history.
type Record struct {
	Achievement *Definition
	UnlockedAt  time.Time
}

// Stats counts unlocks within some group of achievements.
type Stats struct {
	Total      int `json:"total"`
	Unlocked   int `json:"unlocked"`
	Percentage int `json:"percentage"`
	Remaining  int `json:"remaining"`
}

func newStats(total, unlocked int) Stats {
	s := Stats{Total: total, Unlocked: unlocked, Remaining: total - unlocked}
	if total > 0 {
		s.Percentage = percent(unlocked, total)
	}
	return s
}
