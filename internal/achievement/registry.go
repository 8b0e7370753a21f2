package achievement

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/tatianab/ravi-adventure/internal/condition"
	gerrors "github.com/tatianab/ravi-adventure/internal/errors"
	"github.com/tatianab/ravi-adventure/internal/events"
	"github.com/tatianab/ravi-adventure/internal/models"
)

// CounterEasterEggs counts unique easter eggs found.
const CounterEasterEggs = "easter_eggs"

// maxRecommendations caps Recommendations.
const maxRecommendations = 3

// Registry is the achievement catalog plus the player's unlock records.
type Registry struct {
	session *models.GameSession
	logger  *slog.Logger
	context condition.Source

	defs       map[string]*Definition
	order      []string
	categories []string
	byCategory map[string][]string

	unlockedAt map[string]time.Time
	history    []string // unlock order, oldest first
	counters   map[string]int
	easterEggs []string
}

// NewRegistry creates an empty registry bound to a game session.
func NewRegistry(session *models.GameSession, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		session:    session,
		logger:     logger,
		defs:       make(map[string]*Definition),
		byCategory: make(map[string][]string),
		unlockedAt: make(map[string]time.Time),
		counters:   make(map[string]int),
	}
}

// SetContext installs the source of the context parts the registry does not
// own: player facts, puzzle category counts and expression env.
func (r *Registry) SetContext(fn condition.Source) {
	r.context = fn
}

// Register adds a definition to the catalog and indexes it by category.
func (r *Registry) Register(def *Definition) error {
	if def.ID == "" {
		return gerrors.ErrContentInvalid("achievement without id")
	}
	if _, dup := r.defs[def.ID]; dup {
		return gerrors.ErrContentInvalid(fmt.Sprintf("duplicate achievement %q", def.ID))
	}
	if !def.Rarity.Valid() {
		return gerrors.ErrContentInvalid(fmt.Sprintf("achievement %q: unknown rarity %q", def.ID, def.Rarity))
	}
	r.defs[def.ID] = def
	r.order = append(r.order, def.ID)
	if _, seen := r.byCategory[def.Category]; !seen {
		r.categories = append(r.categories, def.Category)
	}
	r.byCategory[def.Category] = append(r.byCategory[def.Category], def.ID)
	return nil
}

// Get returns a definition by id.
func (r *Registry) Get(id string) (*Definition, error) {
	def, ok := r.defs[id]
	if !ok {
		return nil, gerrors.ErrNotFound("achievement", id)
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

// Attach subscribes the registry to the events that can satisfy an
// achievement. The returned func detaches it.
func (r *Registry) Attach(bus *events.Bus) func() {
	var unsubs []func()
	for _, kind := range []events.Kind{events.KindStory, events.KindPuzzle, events.KindStateChange} {
		unsubs = append(unsubs, bus.Subscribe(kind, func(ev events.Event) { r.HandleEvent(ev) }))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// HandleEvent evaluates every locked achievement against ev and unlocks
// those whose condition holds. It returns the ids unlocked.
func (r *Registry) HandleEvent(ev events.Event) []string {
	return r.evaluate(&ev)
}

// Check evaluates locked achievements without a triggering event.
func (r *Registry) Check() []string {
	return r.evaluate(nil)
}

func (r *Registry) evaluate(ev *events.Event) []string {
	ctx := r.buildContext(ev)
	var unlocked []string
	for _, id := range r.order {
		if _, done := r.unlockedAt[id]; done {
			continue
		}
		if condition.Evaluate(r.defs[id].Condition, ctx) && r.Unlock(id) {
			unlocked = append(unlocked, id)
		}
	}
	return unlocked
}

func (r *Registry) buildContext(ev *events.Event) condition.Context {
	var ctx condition.Context
	if r.context != nil {
		ctx = r.context()
	}
	if ctx.State == nil && r.session != nil {
		ctx.State = r.session.Player
	}
	ctx.Event = ev
	ctx.Counters = r.counters
	return ctx
}

// Unlock marks an achievement earned. It returns false, doing nothing, if
// the id is unknown or already unlocked.
func (r *Registry) Unlock(id string) bool {
	def, ok := r.defs[id]
	if !ok {
		r.logger.Warn("unlock of unknown achievement", "achievement", id)
		return false
	}
	if _, done := r.unlockedAt[id]; done {
		return false
	}

	r.unlockedAt[id] = r.session.Now()
	r.history = append(r.history, id)
	ev := events.New(events.KindAchievementUnlocked, "", id).
		WithText(r.commentary(def)).
		WithPayload(Unlocked{
			Achievement:       def,
			TotalUnlocked:     len(r.history),
			TotalAchievements: len(r.defs),
		})
	r.logger.Info("achievement unlocked", "achievement", id, "event", ev.ID, "unlocked", len(r.history), "total", len(r.defs))
	r.session.Publish(ev)
	return true
}

func (r *Registry) commentary(def *Definition) string {
	if len(def.Commentary) == 0 {
		return ""
	}
	return def.Commentary[(len(r.history)-1)%len(def.Commentary)]
}

// IsUnlocked reports whether an achievement has been earned.
func (r *Registry) IsUnlocked(id string) bool {
	_, ok := r.unlockedAt[id]
	return ok
}

// UnlockedAt returns when an achievement was earned.
func (r *Registry) UnlockedAt(id string) (time.Time, bool) {
	t, ok := r.unlockedAt[id]
	return t, ok
}

// Record adds delta to an accumulation counter and re-checks locked
// achievements. Counters only grow: non-positive deltas are ignored.
func (r *Registry) Record(tag string, delta int) int {
	if delta <= 0 {
		return r.counters[tag]
	}
	r.counters[tag] += delta
	r.Check()
	return r.counters[tag]
}

// Counter returns the current value of an accumulation counter.
func (r *Registry) Counter(tag string) int {
	return r.counters[tag]
}

// RecordEasterEgg notes that an easter egg was found. Finding the same egg
// again does not count twice.
func (r *Registry) RecordEasterEgg(id string) bool {
	if slices.Contains(r.easterEggs, id) {
		return false
	}
	r.easterEggs = append(r.easterEggs, id)
	r.Record(CounterEasterEggs, 1)
	return true
}

// EasterEggs returns the eggs found so far, in discovery order.
func (r *Registry) EasterEggs() []string {
	return append([]string(nil), r.easterEggs...)
}

// Overall summarizes the whole catalog.
func (r *Registry) Overall() Stats {
	return newStats(len(r.defs), len(r.unlockedAt))
}

// ByCategory summarizes each category.
func (r *Registry) ByCategory() map[string]Stats {
	out := make(map[string]Stats, len(r.byCategory))
	for cat, ids := range r.byCategory {
		out[cat] = newStats(len(ids), r.countUnlocked(ids))
	}
	return out
}

// Categories returns the category names in first-registered order.
func (r *Registry) Categories() []string {
	return append([]string(nil), r.categories...)
}

// RarityDistribution summarizes each rarity bucket. Every bucket is
// present even when empty.
func (r *Registry) RarityDistribution() map[Rarity]Stats {
	ids := make(map[Rarity][]string, len(Rarities))
	for _, id := range r.order {
		rarity := r.defs[id].Rarity
		ids[rarity] = append(ids[rarity], id)
	}
	out := make(map[Rarity]Stats, len(Rarities))
	for _, rarity := range Rarities {
		out[rarity] = newStats(len(ids[rarity]), r.countUnlocked(ids[rarity]))
	}
	return out
}

func (r *Registry) countUnlocked(ids []string) int {
	n := 0
	for _, id := range ids {
		if _, ok := r.unlockedAt[id]; ok {
			n++
		}
	}
	return n
}

// Recent returns up to n unlocks, most recent first.
func (r *Registry) Recent(n int) []Record {
	if n > len(r.history) {
		n = len(r.history)
	}
	out := make([]Record, 0, max(n, 0))
	for i := len(r.history) - 1; i >= 0 && len(out) < n; i-- {
		id := r.history[i]
		out = append(out, Record{Achievement: r.defs[id], UnlockedAt: r.unlockedAt[id]})
	}
	return out
}

// Recommendations suggests what to chase next: one line chosen by overall
// completion, then one per category with nothing unlocked, at most three.
func (r *Registry) Recommendations() []string {
	// Bands use the exact ratio, not the rounded percentage.
	var ratio float64
	if len(r.defs) > 0 {
		ratio = float64(len(r.unlockedAt)) / float64(len(r.defs))
	}
	var recs []string
	switch {
	case len(r.unlockedAt) == 0:
		recs = append(recs, "Start your first story. Type 'objectives' to see where Ravi wants you to begin.")
	case ratio < 0.25:
		recs = append(recs, "Explore more paths. Talk to Ravi, examine things, wander somewhere new.")
	case ratio < 0.50:
		recs = append(recs, "Try harder puzzles. Type 'puzzles' to see what is still unsolved.")
	case ratio < 0.75:
		recs = append(recs, "Go for the epics. The rarest achievements are still out there.")
	default:
		recs = append(recs, "You are close to mastering Ravi's world. Finish what's left.")
	}

	for _, cat := range r.categories {
		if len(recs) >= maxRecommendations {
			break
		}
		if r.countUnlocked(r.byCategory[cat]) == 0 {
			recs = append(recs, fmt.Sprintf("Nothing unlocked in %s yet.", cat))
		}
	}
	return recs
}

// Snapshot copies the unlock records into save.
func (r *Registry) Snapshot(save *models.SaveFile) {
	save.Achievements = make(map[string]time.Time, len(r.unlockedAt))
	for id, at := range r.unlockedAt {
		save.Achievements[id] = at
	}
	save.AchievementHistory = append([]string(nil), r.history...)
	save.Counters = make(map[string]int, len(r.counters))
	for tag, n := range r.counters {
		save.Counters[tag] = n
	}
	save.EasterEggs = r.EasterEggs()
}

// Restore replaces the unlock records with those in save. Unknown ids are
// dropped and nothing is published. A missing history is rebuilt from the
// unlock times.
func (r *Registry) Restore(save *models.SaveFile) {
	r.unlockedAt = make(map[string]time.Time)
	r.history = nil
	r.counters = make(map[string]int)
	r.easterEggs = nil

	for id, at := range save.Achievements {
		if _, ok := r.defs[id]; !ok {
			r.logger.Warn("ignoring unknown achievement in save", "achievement", id)
			continue
		}
		r.unlockedAt[id] = at
	}

	seen := make(map[string]bool)
	for _, id := range save.AchievementHistory {
		if _, ok := r.unlockedAt[id]; ok && !seen[id] {
			seen[id] = true
			r.history = append(r.history, id)
		}
	}
	var missing []string
	for id := range r.unlockedAt {
		if !seen[id] {
			missing = append(missing, id)
		}
	}
	sort.Slice(missing, func(i, j int) bool {
		ti, tj := r.unlockedAt[missing[i]], r.unlockedAt[missing[j]]
		if ti.Equal(tj) {
			return missing[i] < missing[j]
		}
		return ti.Before(tj)
	})
	r.history = append(r.history, missing...)

	for tag, n := range save.Counters {
		if n > 0 {
			r.counters[tag] = n
		}
	}
	for _, egg := range save.EasterEggs {
		if !slices.Contains(r.easterEggs, egg) {
			r.easterEggs = append(r.easterEggs, egg)
		}
	}
}

func percent(part, total int) int {
	return int(math.Round(float64(part) / float64(total) * 100))
}
