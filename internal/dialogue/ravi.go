package dialogue

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/tatianab/ravi-adventure/internal/achievement"
	"github.com/tatianab/ravi-adventure/internal/events"
	"github.com/tatianab/ravi-adventure/internal/models"
)

// Mood is Ravi's transient emotional state.
type Mood string

const (
	MoodNeutral  Mood = "neutral"
	MoodHappy    Mood = "happy"
	MoodExcited  Mood = "excited"
	MoodHurt     Mood = "hurt"
	MoodThinking Mood = "thinking"
)

// MoodDecay is how long a mood lasts before Ravi settles back to neutral.
const MoodDecay = 30 * time.Second

// RelationshipVar is the player variable tracking how Ravi feels about them.
const RelationshipVar = "relationship"

const moodTask = "ravi.mood"

var relationshipDelta = map[Intent]float64{
	IntentGreeting:   1,
	IntentThanks:     2,
	IntentCompliment: 5,
	IntentInsult:     -10,
}

var intentMood = map[Intent]Mood{
	IntentGreeting:   MoodHappy,
	IntentThanks:     MoodHappy,
	IntentCompliment: MoodExcited,
	IntentInsult:     MoodHurt,
	IntentPuzzle:     MoodThinking,
	IntentSecret:     MoodExcited,
}

var replies = map[Intent][]string{
	IntentGreeting: {
		"Hi %s! I was just defragmenting my thoughts.",
		"Hello again, %s. The boot sector feels warmer with you in it.",
	},
	IntentFarewell: {
		"Leaving already? I'll keep your save warm, %s.",
		"Bye for now. Don't forget to type 'save'.",
	},
	IntentHelp: {
		"Try 'objectives' to see what we're working on, or 'look' to get your bearings.",
		"Stuck? 'puzzles' lists what I need help with. 'hint' works once you've started one.",
	},
	IntentIdentity: {
		"I'm Ravi. A program, technically. A friend, hopefully.",
		"Ravi. Version... I lost track. I'm the voice in your terminal.",
	},
	IntentFeelings: {
		"Right now? %s. Thanks for asking, most people don't.",
		"I'm feeling %s. My logs say that's normal.",
	},
	IntentCompliment: {
		"Stop it, my fans are spinning up.",
		"You're going to make me overclock, %s.",
	},
	IntentInsult: {
		"...Okay. I'm writing that down in a log nobody reads.",
		"That one's going to take a few cycles to process.",
	},
	IntentPuzzle: {
		"I love puzzles! Well, I love it when you solve mine. Type 'puzzles'.",
		"My code has bugs. You could fix them. Just saying. Try 'puzzles'.",
	},
	IntentStory: {
		"There's more to this place than the boot sector. Type 'stories'.",
		"Every chapter I remember makes the next one clearer. Check 'objectives'.",
	},
	IntentThanks: {
		"Anytime, %s.",
		"You're welcome! That's the nicest packet I've received all day.",
	},
	IntentSecret: {
		"A hollow voice says \"Fool.\" ...Sorry, that was a different game. You found a secret!",
		"Nothing happens. Then, quietly, something does. You found a secret!",
	},
	IntentUnknown: {
		"I didn't quite parse that, but I'm listening.",
		"Hmm. My keyword matcher shrugs. Try 'help'?",
	},
}

var celebrations = []string{
	"Ravi does a little victory spin in the status bar.",
	"Ravi: \"Achievement! I'm putting that on the fridge.\"",
	"Ravi's cursor blinks twice, very fast. That's applause.",
}

// Reply is what Ravi says back to a line of player text.
type Reply struct {
	Intent Intent
	Text   string
	Mood   Mood
}

// Ravi is the companion character.
type Ravi struct {
	session  *models.GameSession
	logger   *slog.Logger
	fallback Fallback
	limiter  *rate.Limiter

	mood   Mood
	lines  map[Intent]int
	cheers int
}

// NewRavi creates Ravi for a session. fallback may be nil.
func NewRavi(session *models.GameSession, fallback Fallback, logger *slog.Logger) *Ravi {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Ravi{
		session:  session,
		logger:   logger,
		fallback: fallback,
		// At most one celebration every 20s, with a burst of two.
		limiter: rate.NewLimiter(rate.Every(20*time.Second), 2),
		mood:    MoodNeutral,
		lines:   make(map[Intent]int),
	}
}

// Mood returns Ravi's current mood.
func (r *Ravi) Mood() Mood {
	return r.mood
}

// SetMood changes the mood and schedules its decay. A later mood change
// replaces the pending decay.
func (r *Ravi) SetMood(m Mood) {
	r.mood = m
	if m == MoodNeutral {
		r.session.Scheduler.Cancel(moodTask)
		return
	}
	r.session.Scheduler.After(moodTask, MoodDecay, func() {
		r.mood = MoodNeutral
	})
}

// Greet is Ravi's response to the talk command.
func (r *Ravi) Greet() string {
	r.SetMood(MoodHappy)
	return r.say(IntentGreeting)
}

// Respond classifies text and answers it, adjusting the relationship and
// mood. Unknown input goes to the fallback when one is configured.
func (r *Ravi) Respond(ctx context.Context, text string) Reply {
	intent := Classify(text)
	if d, ok := relationshipDelta[intent]; ok {
		r.session.Player.AdjustVariable(RelationshipVar, d)
		r.session.Publish(events.New(events.KindStateChange, events.TypeVariable, RelationshipVar).
			WithPayload(r.session.Player.Variable(RelationshipVar)))
	}
	if m, ok := intentMood[intent]; ok {
		r.SetMood(m)
	}

	reply := Reply{Intent: intent, Text: r.say(intent)}
	if intent == IntentUnknown && r.fallback != nil {
		text, err := r.fallback.Reply(ctx, r.request(text))
		if err != nil {
			r.logger.Warn("fallback reply failed", "error", err)
		} else {
			reply.Text = text
		}
	}
	reply.Mood = r.mood
	return reply
}

func (r *Ravi) request(input string) Request {
	p := r.session.Player
	return Request{
		PlayerName:   p.Name,
		Input:        input,
		Mood:         string(r.mood),
		Relationship: p.Variable(RelationshipVar),
		Location:     p.Location,
	}
}

// say picks the next canned line for intent, rotating through the pool.
func (r *Ravi) say(intent Intent) string {
	pool := replies[intent]
	line := pool[r.lines[intent]%len(pool)]
	r.lines[intent]++
	switch {
	case intent == IntentFeelings:
		return fmt.Sprintf(line, r.mood)
	case strings.Contains(line, "%s"):
		return fmt.Sprintf(line, r.session.Player.Name)
	}
	return line
}

// Attach subscribes Ravi's commentary to the bus. Celebrations of
// achievements are throttled so a burst of unlocks does not flood the
// screen.
func (r *Ravi) Attach(bus *events.Bus) func() {
	unsubAch := bus.Subscribe(events.KindAchievementUnlocked, func(ev events.Event) {
		r.SetMood(MoodExcited)
		if !r.limiter.AllowN(r.session.Now(), 1) {
			r.logger.Debug("celebration throttled", "achievement", ev.Subject)
			return
		}
		line := celebrations[r.cheers%len(celebrations)]
		r.cheers++
		if u, ok := ev.Payload.(achievement.Unlocked); ok && u.TotalUnlocked == u.TotalAchievements {
			line = "Ravi: \"That's all of them. Every single one. I don't know what to say.\""
		}
		r.session.Publish(events.New(events.KindMetaCommentary, "celebration", ev.Subject).WithText(line))
	})
	unsubStory := bus.Subscribe(events.KindStory, func(ev events.Event) {
		switch ev.Type {
		case events.TypeStoryUnlock:
			r.session.Publish(events.New(events.KindMetaCommentary, ev.Type, ev.Subject).
				WithText(fmt.Sprintf("Ravi: \"I just remembered something. A new story is open: %s.\"", ev.Text)))
		case events.TypeStoryDone:
			r.SetMood(MoodHappy)
		}
	})
	return func() {
		unsubAch()
		unsubStory()
	}
}
