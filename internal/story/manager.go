package story

import (
	"fmt"
	"log/slog"

	"github.com/tatianab/ravi-adventure/internal/condition"
	gerrors "github.com/tatianab/ravi-adventure/internal/errors"
	"github.com/tatianab/ravi-adventure/internal/events"
	"github.com/tatianab/ravi-adventure/internal/models"
)

// Manager advances chapters of the current story and unlocks follow-on
// stories as earlier ones complete.
type Manager struct {
	session *models.GameSession
	logger  *slog.Logger
	context condition.Source

	stories map[string]*Story
	order   []string
	current string
}

// NewManager creates an empty manager bound to a game session.
func NewManager(session *models.GameSession, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		session: session,
		logger:  logger,
		stories: make(map[string]*Story),
	}
}

// SetContext installs the source of chapter trigger context.
func (m *Manager) SetContext(fn condition.Source) {
	m.context = fn
}

// Register adds a story. The first story registered with no unlock
// requirement becomes current.
func (m *Manager) Register(s *Story) error {
	if s.ID == "" {
		return gerrors.ErrContentInvalid("story without id")
	}
	if _, dup := m.stories[s.ID]; dup {
		return gerrors.ErrContentInvalid(fmt.Sprintf("duplicate story %q", s.ID))
	}
	if len(s.Chapters) == 0 {
		return gerrors.ErrContentInvalid(fmt.Sprintf("story %q has no chapters", s.ID))
	}
	seen := make(map[string]bool, len(s.Chapters))
	for _, ch := range s.Chapters {
		if ch.ID == "" || seen[ch.ID] {
			return gerrors.ErrContentInvalid(fmt.Sprintf("story %q: missing or duplicate chapter id %q", s.ID, ch.ID))
		}
		seen[ch.ID] = true
	}
	if s.UnlockAfter < 0 {
		s.UnlockAfter = 0
	}

	s.Unlocked = s.UnlockAfter == 0
	m.stories[s.ID] = s
	m.order = append(m.order, s.ID)
	if m.current == "" && s.Unlocked {
		m.current = s.ID
	}
	return nil
}

// Get returns a story by id.
func (m *Manager) Get(id string) (*Story, error) {
	s, ok := m.stories[id]
	if !ok {
		return nil, gerrors.ErrNotFound("story", id)
	}
	return s, nil
}

// Stories returns every story in registration order.
func (m *Manager) Stories() []*Story {
	out := make([]*Story, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.stories[id])
	}
	return out
}

// Current returns the active story, or nil when none is registered.
func (m *Manager) Current() *Story {
	return m.stories[m.current]
}

// UpdateProgress checks the triggers of the current story's incomplete
// chapters, completing each one whose trigger holds. It returns the ids of
// chapters completed by this call.
func (m *Manager) UpdateProgress() []string {
	s := m.Current()
	if s == nil {
		return nil
	}
	m.markStarted(s)

	var done []string
	for _, ch := range s.Chapters {
		if ch.Completed || ch.Trigger == nil {
			continue
		}
		// Earlier chapters' effects may satisfy later triggers, so the
		// context is rebuilt for each check.
		if !condition.Evaluate(ch.Trigger, m.buildContext()) {
			continue
		}
		ch.Completed = true
		done = append(done, ch.ID)
		m.completeChapter(s, ch)
	}

	if len(done) > 0 && m.IsStoryComplete(s.ID) {
		m.completeStory(s)
	}
	return done
}

func (m *Manager) buildContext() condition.Context {
	var ctx condition.Context
	if m.context != nil {
		ctx = m.context()
	}
	if ctx.State == nil {
		ctx.State = m.session.Player
	}
	return ctx
}

func (m *Manager) markStarted(s *Story) {
	if s.StartedAt == nil {
		now := m.session.Now()
		s.StartedAt = &now
	}
}

func (m *Manager) completeChapter(s *Story, ch *Chapter) {
	m.session.Player.Apply(ch.OnComplete)
	m.logger.Info("chapter complete", "story", s.ID, "chapter", ch.ID)

	m.session.Publish(events.New(events.KindStory, events.TypeChapterDone, ch.ID).
		WithText(ch.Name).
		WithPayload(Objective{StoryID: s.ID, ChapterID: ch.ID, Name: ch.Name, Objective: ch.Objective}))
	if ch.Commentary != "" {
		m.session.Publish(events.New(s.commentaryKind(), events.TypeChapterDone, ch.ID).WithText(ch.Commentary))
	}
}

func (s *Story) commentaryKind() events.Kind {
	if s.Voice == VoiceSwarm {
		return events.KindSwarmCommentary
	}
	return events.KindMetaCommentary
}

func (m *Manager) completeStory(s *Story) {
	m.session.Player.Apply(s.OnComplete)
	m.session.Player.SetFlag(s.CompletionFlag())

	elapsed := m.session.Now().Sub(*s.StartedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	m.logger.Info("story complete", "story", s.ID, "elapsed", elapsed)
	m.session.Publish(events.New(events.KindStory, events.TypeStoryDone, s.ID).
		WithText(s.Name).
		WithElapsed(elapsed))

	m.unlockGated()
}

// unlockGated opens every locked story whose completed-story requirement
// is now met.
func (m *Manager) unlockGated() {
	completed := len(m.CompletedStories())
	for _, id := range m.order {
		s := m.stories[id]
		if s.Unlocked || completed < s.UnlockAfter {
			continue
		}
		s.Unlocked = true
		m.logger.Info("story unlocked", "story", id, "completed", completed)
		m.session.Publish(events.New(events.KindStory, events.TypeStoryUnlock, id).WithText(s.Name))
	}
}

// SwitchStory makes an unlocked story current and returns its open
// objectives.
func (m *Manager) SwitchStory(id string) ([]Objective, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	if !s.Unlocked {
		return nil, gerrors.ErrStoryLocked(id)
	}
	if m.current != id {
		m.current = id
		m.session.Publish(events.New(events.KindStory, events.TypeStorySwitch, id).WithText(s.Name))
	}
	m.markStarted(s)
	return m.CurrentObjectives(), nil
}

// CurrentObjectives lists the current story's incomplete chapters in order.
func (m *Manager) CurrentObjectives() []Objective {
	s := m.Current()
	if s == nil {
		return nil
	}
	var out []Objective
	for _, ch := range s.Chapters {
		if !ch.Completed {
			out = append(out, Objective{StoryID: s.ID, ChapterID: ch.ID, Name: ch.Name, Objective: ch.Objective})
		}
	}
	return out
}

// IsStoryComplete reports whether every chapter of the story is complete.
// It scans the chapters on every call.
func (m *Manager) IsStoryComplete(id string) bool {
	s, ok := m.stories[id]
	if !ok || len(s.Chapters) == 0 {
		return false
	}
	for _, ch := range s.Chapters {
		if !ch.Completed {
			return false
		}
	}
	return true
}

// CompletedStories returns the ids of finished stories in registration
// order.
func (m *Manager) CompletedStories() []string {
	var out []string
	for _, id := range m.order {
		if m.IsStoryComplete(id) {
			out = append(out, id)
		}
	}
	return out
}

// Snapshot returns the persisted form of story progress.
func (m *Manager) Snapshot() models.StorySave {
	save := models.StorySave{
		CurrentStoryID: m.current,
		Stories:        make(map[string]models.StoryProgress, len(m.stories)),
	}
	for _, id := range m.order {
		s := m.stories[id]
		p := models.StoryProgress{Unlocked: s.Unlocked, StartedAt: s.StartedAt}
		for _, ch := range s.Chapters {
			p.Chapters = append(p.Chapters, models.ChapterProgress{ID: ch.ID, Completed: ch.Completed})
		}
		save.Stories[id] = p
	}
	return save
}

// Restore resets progress and applies save on top of it by id. Stories and
// chapters the save names but the content lacks are ignored, and content
// the save does not mention keeps its defaults. No events are published.
func (m *Manager) Restore(save models.StorySave) {
	for _, s := range m.stories {
		s.Unlocked = s.UnlockAfter == 0
		s.StartedAt = nil
		for _, ch := range s.Chapters {
			ch.Completed = false
		}
	}

	for id, p := range save.Stories {
		s, ok := m.stories[id]
		if !ok {
			m.logger.Warn("ignoring unknown story in save", "story", id)
			continue
		}
		s.Unlocked = s.Unlocked || p.Unlocked
		if p.StartedAt != nil {
			t := *p.StartedAt
			s.StartedAt = &t
		}
		for _, cp := range p.Chapters {
			for _, ch := range s.Chapters {
				if ch.ID == cp.ID {
					ch.Completed = cp.Completed
				}
			}
		}
	}

	// Older saves may predate an unlock their completions already earned.
	completed := len(m.CompletedStories())
	for _, s := range m.stories {
		if completed >= s.UnlockAfter {
			s.Unlocked = true
		}
	}

	if s, ok := m.stories[save.CurrentStoryID]; ok && s.Unlocked {
		m.current = s.ID
		return
	}
	if cur, ok := m.stories[m.current]; ok && cur.Unlocked {
		return
	}
	for _, id := range m.order {
		if m.stories[id].Unlocked {
			m.current = id
			return
		}
	}
}
