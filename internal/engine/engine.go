// Package engine runs a game: it builds the session from the content pack,
// wires puzzles, achievements, stories and Ravi to the event bus, and turns
// player commands into state changes and text.
package engine

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/tatianab/ravi-adventure/internal/achievement"
	"github.com/tatianab/ravi-adventure/internal/condition"
	"github.com/tatianab/ravi-adventure/internal/content"
	"github.com/tatianab/ravi-adventure/internal/dialogue"
	gerrors "github.com/tatianab/ravi-adventure/internal/errors"
	"github.com/tatianab/ravi-adventure/internal/events"
	"github.com/tatianab/ravi-adventure/internal/models"
	"github.com/tatianab/ravi-adventure/internal/puzzle"
	"github.com/tatianab/ravi-adventure/internal/story"
)

// DefaultPlayerName is used when no name is given.
const DefaultPlayerName = "Player"

// DefaultSlot is the save slot used when none is configured.
const DefaultSlot = "current"

// Options configure a new Engine.
type Options struct {
	PlayerName string
	Store      models.SaveStore
	Slot       string
	// ContentDir overrides the embedded content pack.
	ContentDir string
	Fallback   dialogue.Fallback
	Logger     *slog.Logger
	Clock      func() time.Time
}

// Notification is something the renderer should show besides the direct
// answer to a command: unlocks, chapter completions, commentary.
type Notification struct {
	Kind events.Kind
	Text string
	// EventID is the id of the bus event behind the notification. Engine
	// and component logs carry the same id.
	EventID string
}

// Result is the outcome of one command.
type Result struct {
	Output        string
	Notifications []Notification
	Quit          bool
}

// Engine owns one game.
type Engine struct {
	opts   Options
	logger *slog.Logger

	pack         *content.Pack
	session      *models.GameSession
	achievements *achievement.Registry
	puzzles      *puzzle.Registry
	stories      *story.Manager
	ravi         *dialogue.Ravi

	activePuzzle string
	pending      []Notification
}

// New creates an engine with a fresh game.
func New(ctx context.Context, opts Options) (*Engine, error) {
	if opts.PlayerName == "" {
		opts.PlayerName = DefaultPlayerName
	}
	if opts.Slot == "" {
		opts.Slot = DefaultSlot
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	e := &Engine{opts: opts, logger: opts.Logger}
	if err := e.newGame(opts.PlayerName); err != nil {
		return nil, err
	}
	return e, nil
}

// newGame replaces all game state with a fresh game for name.
func (e *Engine) newGame(name string) error {
	pack, err := content.NewLoader(e.opts.ContentDir, e.logger).Load()
	if err != nil {
		return err
	}

	player := models.NewPlayerState(name, pack.World.Start)
	for v, val := range pack.World.Variables {
		player.SetVariable(v, val)
	}
	session := models.NewGameSession(player, e.opts.Clock)

	ach := achievement.NewRegistry(session, e.logger.With("component", "achievement"))
	for _, def := range pack.Achievements {
		if err := ach.Register(def); err != nil {
			return err
		}
	}
	puzzles := puzzle.NewRegistry(session, ach, e.logger.With("component", "puzzle"))
	for _, def := range pack.Puzzles {
		if err := puzzles.Register(def); err != nil {
			return err
		}
	}
	stories := story.NewManager(session, e.logger.With("component", "story"))
	for _, s := range pack.Stories {
		if err := stories.Register(s); err != nil {
			return err
		}
	}

	e.pack = pack
	e.session = session
	e.achievements = ach
	e.puzzles = puzzles
	e.stories = stories
	e.ravi = dialogue.NewRavi(session, e.opts.Fallback, e.logger.With("component", "ravi"))
	e.activePuzzle = ""
	e.pending = nil

	ach.SetContext(e.conditionContext)
	stories.SetContext(e.conditionContext)
	puzzles.OnComplete(e.puzzleCompleted)

	// The collector subscribes first so a notification precedes whatever
	// its event triggers, e.g. an unlock before Ravi's celebration of it.
	session.Bus.SubscribeAll(e.collect)
	ach.Attach(session.Bus)
	e.ravi.Attach(session.Bus)

	e.logger.Info("new game", "session", session.ID, "player", name)
	return nil
}

// conditionContext is the evaluation context shared by achievements and
// chapter triggers.
func (e *Engine) conditionContext() condition.Context {
	p := e.session.Player
	return condition.Context{
		State:          p,
		CategoryCounts: e.puzzles.CompletedByCategory(),
		Env: map[string]any{
			"flags":     p.Flags,
			"vars":      p.Variables,
			"inventory": p.Inventory,
			"location":  p.Location,
			"turns":     p.TurnCount,
		},
	}
}

func (e *Engine) puzzleCompleted(def *puzzle.Definition) {
	e.applyEffect(def.OnComplete)
}

// applyEffect changes player state and reports each new flag and every
// touched variable on the bus.
func (e *Engine) applyEffect(eff models.Effect) {
	p := e.session.Player
	for _, f := range p.Apply(eff) {
		e.session.Publish(events.New(events.KindStateChange, events.TypeFlagSet, f))
	}
	for _, v := range slices.Sorted(maps.Keys(eff.Variables)) {
		e.session.Publish(events.New(events.KindStateChange, events.TypeVariable, v).WithPayload(p.Variable(v)))
	}
	if eff.Message != "" {
		e.notify(events.KindMetaCommentary, eff.Message)
	}
}

func (e *Engine) setFlag(flag string) {
	if e.session.Player.SetFlag(flag) {
		e.session.Publish(events.New(events.KindStateChange, events.TypeFlagSet, flag))
	}
}

// collect turns bus events into notifications for the renderer.
func (e *Engine) collect(ev events.Event) {
	switch ev.Kind {
	case events.KindAchievementUnlocked:
		text := "Achievement unlocked: " + ev.Subject
		if u, ok := ev.Payload.(achievement.Unlocked); ok {
			text = fmt.Sprintf("Achievement unlocked: %s (%d/%d)", u.Achievement.Name, u.TotalUnlocked, u.TotalAchievements)
		}
		e.notifyFor(ev, ev.Kind, text)
		if ev.Text != "" {
			e.notifyFor(ev, events.KindMetaCommentary, ev.Text)
		}
	case events.KindStory:
		switch ev.Type {
		case events.TypeChapterDone:
			e.notifyFor(ev, ev.Kind, "Chapter complete: "+ev.Text)
		case events.TypeStoryDone:
			e.notifyFor(ev, ev.Kind, "Story complete: "+ev.Text)
			if s, err := e.stories.Get(ev.Subject); err == nil && s.OnComplete.Message != "" {
				e.notifyFor(ev, events.KindMetaCommentary, s.OnComplete.Message)
			}
		case events.TypeStoryUnlock:
			e.notifyFor(ev, ev.Kind, fmt.Sprintf("New story unlocked: %s (type 'story %s')", ev.Text, ev.Subject))
		}
	case events.KindMetaCommentary, events.KindSwarmCommentary:
		if ev.Text != "" {
			e.notifyFor(ev, ev.Kind, ev.Text)
		}
	}
}

func (e *Engine) notify(kind events.Kind, text string) {
	e.pending = append(e.pending, Notification{Kind: kind, Text: text})
}

func (e *Engine) notifyFor(ev events.Event, kind events.Kind, text string) {
	e.logger.Debug("notify", "event", ev.ID, "kind", ev.Kind, "type", ev.Type, "subject", ev.Subject)
	e.pending = append(e.pending, Notification{Kind: kind, Text: text, EventID: ev.ID})
}

func (e *Engine) drain() []Notification {
	out := e.pending
	e.pending = nil
	return out
}

// Tick runs due scheduled tasks. Front ends call it between commands so
// cosmetic timers fire while the player is idle.
func (e *Engine) Tick() []Notification {
	e.session.Scheduler.RunDue()
	return e.drain()
}

// Save writes the game to the configured store.
func (e *Engine) Save(ctx context.Context) error {
	if e.opts.Store == nil {
		return gerrors.ErrPersistence("save", stderrors.New("no save store configured"))
	}
	save := e.Snapshot()
	if err := e.opts.Store.Save(e.opts.Slot, save); err != nil {
		e.logger.Error("save failed", "slot", e.opts.Slot, "error", err)
		return err
	}
	e.logger.Info("game saved", "slot", e.opts.Slot, "turn", save.Player.TurnCount)
	return nil
}

// Snapshot returns the persisted form of the current game.
func (e *Engine) Snapshot() *models.SaveFile {
	save := &models.SaveFile{
		Player:    e.session.Player,
		Puzzles:   e.puzzles.Snapshot(),
		Story:     e.stories.Snapshot(),
		LastSaved: e.session.Now().UTC(),
	}
	e.achievements.Snapshot(save)
	return save
}

// Load replaces the game with the saved one. A missing save leaves the
// current game in place and returns false with no error. An unreadable save
// resets to a fresh game and returns the persistence error so the caller can
// report it.
func (e *Engine) Load(ctx context.Context) (bool, error) {
	if e.opts.Store == nil {
		return false, nil
	}
	save, err := e.opts.Store.Load(e.opts.Slot)
	if stderrors.Is(err, models.ErrNoSave) {
		e.logger.Info("no save to continue", "slot", e.opts.Slot)
		return false, nil
	}
	if err != nil {
		e.logger.Warn("save unreadable, starting fresh", "slot", e.opts.Slot, "error", err)
		if ferr := e.newGame(e.opts.PlayerName); ferr != nil {
			return false, ferr
		}
		return false, err
	}
	if err := e.Restore(save); err != nil {
		return false, err
	}
	return true, nil
}

// Restore rebuilds the game from save. Fields the save lacks keep their
// fresh-game defaults.
func (e *Engine) Restore(save *models.SaveFile) error {
	name := e.opts.PlayerName
	if save.Player != nil && save.Player.Name != "" {
		name = save.Player.Name
	}
	if err := e.newGame(name); err != nil {
		return err
	}

	mergePlayer(e.session.Player, save.Player)
	if e.pack.Location(e.session.Player.Location).Key == models.UnknownLocationKey {
		e.logger.Warn("saved location unknown", "location", e.session.Player.Location)
	}
	e.achievements.Restore(save)
	e.puzzles.Restore(save.Puzzles)
	e.stories.Restore(save.Story)
	e.logger.Info("game restored", "slot", e.opts.Slot, "turn", e.session.Player.TurnCount, "saved", save.LastSaved)
	return nil
}

// mergePlayer copies the fields saved holds onto defaults.
func mergePlayer(defaults, saved *models.PlayerState) {
	if saved == nil {
		return
	}
	if saved.Name != "" {
		defaults.Name = saved.Name
	}
	for f, on := range saved.Flags {
		if on {
			defaults.SetFlag(f)
		}
	}
	for v, val := range saved.Variables {
		defaults.SetVariable(v, val)
	}
	for _, it := range saved.Inventory {
		defaults.AddItem(it)
	}
	if saved.Location != "" {
		defaults.Location = saved.Location
	}
	if saved.TurnCount > 0 {
		defaults.TurnCount = saved.TurnCount
	}
}

// Player returns the live player state.
func (e *Engine) Player() *models.PlayerState { return e.session.Player }

// Session returns the game session.
func (e *Engine) Session() *models.GameSession { return e.session }

// Mood returns Ravi's current mood.
func (e *Engine) Mood() dialogue.Mood { return e.ravi.Mood() }

// Location returns where the player stands.
func (e *Engine) Location() models.Location {
	return e.pack.Location(e.session.Player.Location)
}

// CurrentStory returns the active story's name.
func (e *Engine) CurrentStory() string {
	if s := e.stories.Current(); s != nil {
		return s.Name
	}
	return ""
}

// Achievements exposes the achievement registry for reporting.
func (e *Engine) Achievements() *achievement.Registry { return e.achievements }

// Puzzles exposes the puzzle registry for reporting.
func (e *Engine) Puzzles() *puzzle.Registry { return e.puzzles }

// Stories exposes the story manager for reporting.
func (e *Engine) Stories() *story.Manager { return e.stories }

func slug(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
}
