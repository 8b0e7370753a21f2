package models

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/tatianab/ravi-adventure/internal/events"
)

// Variables are clamped to this range on every mutation.
const (
	VariableMin = 0.0
	VariableMax = 100.0
)

// UnknownLocationKey is the key of the fallback location used whenever the
// player's location does not resolve.
const UnknownLocationKey = "unknown"

// PlayerState is the single mutable aggregate describing the player.
type PlayerState struct {
	Name      string             `json:"name"`
	Flags     map[string]bool    `json:"-"`
	Variables map[string]float64 `json:"variables"`
	Inventory []string           `json:"inventory"`
	Location  string             `json:"location"`
	TurnCount int                `json:"turnCount"`
}

// NewPlayerState creates a fresh player standing at location.
func NewPlayerState(name, location string) *PlayerState {
	return &PlayerState{
		Name:      name,
		Flags:     make(map[string]bool),
		Variables: make(map[string]float64),
		Inventory: make([]string, 0),
		Location:  location,
	}
}

// HasFlag reports whether the flag is set.
func (p *PlayerState) HasFlag(flag string) bool {
	return p.Flags[flag]
}

// SetFlag sets a flag and reports whether it was newly set.
func (p *PlayerState) SetFlag(flag string) bool {
	if p.Flags == nil {
		p.Flags = make(map[string]bool)
	}
	if p.Flags[flag] {
		return false
	}
	p.Flags[flag] = true
	return true
}

// SortedFlags returns the set flags in lexical order.
func (p *PlayerState) SortedFlags() []string {
	flags := make([]string, 0, len(p.Flags))
	for f, on := range p.Flags {
		if on {
			flags = append(flags, f)
		}
	}
	sort.Strings(flags)
	return flags
}

// Variable returns a variable value, 0 when unset.
func (p *PlayerState) Variable(name string) float64 {
	return p.Variables[name]
}

// SetVariable sets a variable, clamped to [VariableMin, VariableMax].
func (p *PlayerState) SetVariable(name string, value float64) {
	if p.Variables == nil {
		p.Variables = make(map[string]float64)
	}
	p.Variables[name] = clamp(value)
}

// AdjustVariable applies delta to a variable and returns the clamped result.
func (p *PlayerState) AdjustVariable(name string, delta float64) float64 {
	p.SetVariable(name, p.Variable(name)+delta)
	return p.Variables[name]
}

func clamp(v float64) float64 {
	if v < VariableMin {
		return VariableMin
	}
	if v > VariableMax {
		return VariableMax
	}
	return v
}

// HasItem reports whether the item is in the inventory.
func (p *PlayerState) HasItem(item string) bool {
	for _, it := range p.Inventory {
		if it == item {
			return true
		}
	}
	return false
}

// AddItem appends an item and reports false if it was already held.
func (p *PlayerState) AddItem(item string) bool {
	if p.HasItem(item) {
		return false
	}
	p.Inventory = append(p.Inventory, item)
	return true
}

// RemoveItem removes an item, preserving the order of the rest.
func (p *PlayerState) RemoveItem(item string) bool {
	for i, it := range p.Inventory {
		if it == item {
			p.Inventory = append(p.Inventory[:i], p.Inventory[i+1:]...)
			return true
		}
	}
	return false
}

// Apply applies an effect and returns the flags that were newly set.
func (p *PlayerState) Apply(e Effect) []string {
	var newFlags []string
	for _, f := range e.SetFlags {
		if p.SetFlag(f) {
			newFlags = append(newFlags, f)
		}
	}
	for name, delta := range e.Variables {
		p.AdjustVariable(name, delta)
	}
	for _, item := range e.Give {
		p.AddItem(item)
	}
	return newFlags
}

// MarshalJSON serializes flags as a sorted array.
func (p *PlayerState) MarshalJSON() ([]byte, error) {
	type Alias PlayerState
	return json.Marshal(&struct {
		*Alias
		Flags []string `json:"flags"`
	}{
		Alias: (*Alias)(p),
		Flags: p.SortedFlags(),
	})
}

// UnmarshalJSON rebuilds the flag set from an array. Missing fields keep
// whatever p already holds, so a fresh state can be used as defaults.
func (p *PlayerState) UnmarshalJSON(data []byte) error {
	type Alias PlayerState
	aux := &struct {
		*Alias
		Flags []string `json:"flags"`
	}{
		Alias: (*Alias)(p),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if aux.Flags != nil {
		p.Flags = make(map[string]bool, len(aux.Flags))
		for _, f := range aux.Flags {
			p.Flags[f] = true
		}
	}
	if p.Flags == nil {
		p.Flags = make(map[string]bool)
	}
	if p.Variables == nil {
		p.Variables = make(map[string]float64)
	}
	for name, v := range p.Variables {
		p.Variables[name] = clamp(v)
	}

	// Drop duplicate inventory entries a hand-edited save may carry.
	seen := make(map[string]bool, len(p.Inventory))
	inv := make([]string, 0, len(p.Inventory))
	for _, it := range p.Inventory {
		if !seen[it] {
			seen[it] = true
			inv = append(inv, it)
		}
	}
	p.Inventory = inv
	if p.TurnCount < 0 {
		p.TurnCount = 0
	}
	return nil
}

// Effect is a data-driven state change attached to puzzles, chapters,
// stories and item uses.
type Effect struct {
	SetFlags  []string           `yaml:"set_flags" json:"set_flags,omitempty"`
	Variables map[string]float64 `yaml:"variables" json:"variables,omitempty"`
	Give      []string           `yaml:"give" json:"give,omitempty"`
	Message   string             `yaml:"message" json:"message,omitempty"`
}

// IsZero reports whether the effect does nothing.
func (e Effect) IsZero() bool {
	return len(e.SetFlags) == 0 && len(e.Variables) == 0 && len(e.Give) == 0 && e.Message == ""
}

// Location represents a specific place in the world.
type Location struct {
	Key         string            `yaml:"key"`
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Exits       map[string]string `yaml:"exits"` // direction -> location key
	Items       []string          `yaml:"items"`
}

// UnknownLocation is substituted whenever a location key does not resolve.
var UnknownLocation = Location{
	Key:         UnknownLocationKey,
	Name:        "Unknown Location",
	Description: "Static hums at the edge of everything. Ravi can't quite render this place.",
}

// Item describes an object the player can find.
type Item struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	EasterEgg   bool              `yaml:"easter_egg"`
	Fixed       bool              `yaml:"fixed"` // cannot be taken
	Uses        map[string]Effect `yaml:"uses"`  // location key ("*" for anywhere) -> effect
}

// World is the static map the player moves through.
type World struct {
	Title     string             `yaml:"title"`
	Start     string             `yaml:"start"`
	Variables map[string]float64 `yaml:"variables"` // initial values
	Locations []Location         `yaml:"locations"`
	Items     []Item             `yaml:"items"`
}

// GameSession aggregates the per-game state every component is built on.
type GameSession struct {
	ID        string
	PlayerID  string
	Player    *PlayerState
	Bus       *events.Bus
	Scheduler *events.Scheduler
	StartedAt time.Time
	Clock     func() time.Time
}

// NewGameSession creates a session around player. A nil clock means time.Now.
func NewGameSession(player *PlayerState, clock func() time.Time) *GameSession {
	if clock == nil {
		clock = time.Now
	}
	return &GameSession{
		ID:        uuid.NewString(),
		PlayerID:  uuid.NewString(),
		Player:    player,
		Bus:       events.NewBus(),
		Scheduler: events.NewScheduler(clock),
		StartedAt: clock(),
		Clock:     clock,
	}
}

// Now returns the session's current time.
func (s *GameSession) Now() time.Time {
	return s.Clock()
}

// Publish stamps ev with the session clock and publishes it.
func (s *GameSession) Publish(ev events.Event) {
	ev.At = s.Clock()
	s.Bus.Publish(ev)
}
