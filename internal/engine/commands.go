package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tatianab/ravi-adventure/internal/achievement"
	"github.com/tatianab/ravi-adventure/internal/dialogue"
	gerrors "github.com/tatianab/ravi-adventure/internal/errors"
	"github.com/tatianab/ravi-adventure/internal/events"
	"github.com/tatianab/ravi-adventure/internal/models"
	"github.com/tatianab/ravi-adventure/internal/puzzle"
)

const helpText = `Commands:
  look                 describe where you are
  go/move <direction>  walk through an exit
  take <item>          pick something up
  use <item>           use something you carry (or something here)
  examine [item]       look closely at an item
  inventory            list what you carry
  talk                 say hi to Ravi
  ask <question>       ask Ravi something
  tell <message>       tell Ravi something
  puzzles              list Ravi's puzzles
  puzzle <id>          start a puzzle
  hint                 get a hint for the current puzzle
  solve <answer>       submit an answer for the current puzzle
  objectives           what the current story needs from you
  stories              list stories
  story <id>           switch to another story
  achievements         achievements and suggestions
  stats                progress statistics
  status               a quick summary
  time                 how long you've been here
  save                 save the game
  about                about this game
  quit/exit            leave`

const aboutText = `Ravi: a small terminal adventure about a program that would like a friend.
Solve Ravi's puzzles, walk its memories and see what waits below the archive.`

// ProcessCommand runs one line of player input. Every non-empty line is a
// turn: due timers run, the turn counter advances, the command is handled
// and chapter triggers are re-checked.
func (e *Engine) ProcessCommand(ctx context.Context, line string) Result {
	line = strings.TrimSpace(line)
	if line == "" {
		return Result{Notifications: e.drain()}
	}

	e.session.Scheduler.RunDue()
	p := e.session.Player
	p.TurnCount++
	e.session.Publish(events.New(events.KindStateChange, events.TypeTurn, "").WithPayload(p.TurnCount))

	verb, arg, _ := strings.Cut(line, " ")
	verb = strings.ToLower(verb)
	arg = strings.TrimSpace(arg)
	e.logger.Debug("command", "turn", p.TurnCount, "verb", verb, "arg", arg)

	var res Result
	switch verb {
	case "help", "?":
		res.Output = helpText
	case "status":
		res.Output = e.status()
	case "inventory", "inv", "i":
		res.Output = e.inventory()
	case "stats":
		res.Output = e.stats()
	case "save":
		if err := e.Save(ctx); err != nil {
			res.Output = "Ravi frowns. The save didn't stick: " + err.Error()
		} else {
			res.Output = "Game saved."
		}
	case "look", "l":
		res.Output = e.look()
	case "go", "move", "walk":
		res.Output = e.move(arg)
	case "talk":
		e.setFlag("met_ravi")
		res.Output = "Ravi: " + e.ravi.Greet()
	case "ask", "tell", "say":
		res.Output = e.converse(ctx, arg)
	case "take", "get":
		res.Output = e.take(arg)
	case "use":
		res.Output = e.use(arg)
	case "examine", "x", "inspect":
		res.Output = e.examine(arg)
	case "about":
		res.Output = aboutText
	case "time":
		res.Output = e.elapsed()
	case "quit", "exit":
		res.Output = "Ravi waves. \"Come back soon.\""
		res.Quit = true
	case "puzzles":
		res.Output = e.listPuzzles()
	case "puzzle":
		res.Output = e.startPuzzle(arg)
	case "hint":
		res.Output = e.hint()
	case "solve", "answer":
		res.Output = e.solve(arg)
	case "achievements":
		res.Output = e.listAchievements()
	case "objectives":
		res.Output = e.objectives()
	case "stories":
		res.Output = e.listStories()
	case "story":
		res.Output = e.switchStory(arg)
	default:
		res.Output = e.converse(ctx, line)
	}

	e.stories.UpdateProgress()
	res.Notifications = e.drain()
	return res
}

func (e *Engine) converse(ctx context.Context, text string) string {
	if text == "" {
		return "Ravi tilts its cursor. \"Say what?\""
	}
	e.setFlag("met_ravi")
	reply := e.ravi.Respond(ctx, text)
	if reply.Intent == dialogue.IntentSecret {
		e.foundEasterEgg("secret_phrase")
	}
	return "Ravi: " + reply.Text
}

func (e *Engine) status() string {
	p := e.session.Player
	return fmt.Sprintf("%s | %s | turn %d | relationship %.0f | Ravi feels %s | story: %s | items: %d",
		p.Name, e.Location().Name, p.TurnCount, p.Variable(dialogue.RelationshipVar),
		e.ravi.Mood(), e.CurrentStory(), len(p.Inventory))
}

func (e *Engine) inventory() string {
	inv := e.session.Player.Inventory
	if len(inv) == 0 {
		return "You aren't carrying anything."
	}
	return "You are carrying: " + strings.Join(inv, ", ")
}

func (e *Engine) look() string {
	loc := e.Location()
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s", loc.Name, loc.Description)

	if items := e.roomItems(loc); len(items) > 0 {
		fmt.Fprintf(&b, "\nYou see: %s", strings.Join(items, ", "))
	}
	if len(loc.Exits) > 0 {
		dirs := make([]string, 0, len(loc.Exits))
		for d := range loc.Exits {
			dirs = append(dirs, d)
		}
		sort.Strings(dirs)
		fmt.Fprintf(&b, "\nExits: %s", strings.Join(dirs, ", "))
	}
	return b.String()
}

// roomItems lists the items still lying at loc. An item once taken never
// reappears, which keeps rooms consistent across save and load.
func (e *Engine) roomItems(loc models.Location) []string {
	var out []string
	for _, it := range loc.Items {
		if !e.session.Player.HasFlag(foundFlag(it)) {
			out = append(out, it)
		}
	}
	return out
}

func foundFlag(item string) string {
	return "found_" + slug(item)
}

func (e *Engine) move(dir string) string {
	if dir == "" {
		return "Go where?"
	}
	loc := e.Location()
	if loc.Key == models.UnknownLocationKey {
		return e.enter(e.pack.World.Start, "You feel around the static until the boot sector snaps back into focus.")
	}

	to, ok := loc.Exits[strings.ToLower(dir)]
	if !ok {
		return "You can't go that way."
	}
	return e.enter(to, "")
}

func (e *Engine) enter(key, prefix string) string {
	p := e.session.Player
	from := p.Location
	p.Location = key
	e.session.Publish(events.New(events.KindStateChange, events.TypeMoved, key).WithPayload(from))
	e.setFlag("visited_" + key)

	out := e.look()
	if prefix != "" {
		out = prefix + "\n" + out
	}
	return out
}

func (e *Engine) take(name string) string {
	if name == "" {
		return "Take what?"
	}
	loc := e.Location()
	item, ok := matchItem(e.roomItems(loc), name)
	if !ok {
		if _, held := matchItem(e.session.Player.Inventory, name); held {
			return "You already have that."
		}
		return "There's no " + name + " here."
	}
	if def, _ := e.pack.Item(item); def.Fixed {
		return "The " + item + " won't budge."
	}

	e.session.Player.AddItem(item)
	e.session.Publish(events.New(events.KindStateChange, events.TypeInventory, item))
	e.setFlag(foundFlag(item))
	return "You take the " + item + "."
}

func (e *Engine) use(name string) string {
	if name == "" {
		return "Use what?"
	}
	loc := e.Location()
	item, ok := matchItem(e.session.Player.Inventory, name)
	if !ok {
		item, ok = matchItem(e.roomItems(loc), name)
		if ok {
			if def, _ := e.pack.Item(item); !def.Fixed {
				return "You'd need to pick up the " + item + " first."
			}
		}
	}
	if !ok {
		return "You don't have a " + name + "."
	}

	def, _ := e.pack.Item(item)
	eff, ok := def.Uses[loc.Key]
	if !ok {
		eff, ok = def.Uses["*"]
	}
	if !ok {
		return "Nothing happens. Maybe somewhere else?"
	}

	msg := eff.Message
	eff.Message = ""
	e.applyEffect(eff)
	e.setFlag("used_" + slug(item))
	if msg == "" {
		msg = "You use the " + item + "."
	}
	return msg
}

func (e *Engine) examine(name string) string {
	if name == "" {
		return e.look()
	}
	candidates := append(append([]string(nil), e.session.Player.Inventory...), e.roomItems(e.Location())...)
	item, ok := matchItem(candidates, name)
	if !ok {
		return "You don't see a " + name + " here."
	}
	def, _ := e.pack.Item(item)
	out := def.Description
	if out == "" {
		out = "It's a " + item + "."
	}
	if def.EasterEgg {
		e.foundEasterEgg(slug(item))
	}
	return out
}

func (e *Engine) foundEasterEgg(id string) {
	if !e.achievements.RecordEasterEgg(id) {
		return
	}
	e.session.Publish(events.New(events.KindStateChange, events.TypeEasterEgg, id))
	e.notify(events.KindMetaCommentary, "You found an easter egg!")
}

// matchItem finds name among items: an exact match, else the only item
// containing name.
func matchItem(items []string, name string) (string, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	var partial []string
	for _, it := range items {
		lower := strings.ToLower(it)
		if lower == name {
			return it, true
		}
		if strings.Contains(lower, name) {
			partial = append(partial, it)
		}
	}
	if len(partial) == 1 {
		return partial[0], true
	}
	return "", false
}

func (e *Engine) elapsed() string {
	now := e.session.Now()
	d := now.Sub(e.session.StartedAt).Round(time.Second)
	return fmt.Sprintf("You've been here %s this session. Ravi's clock says %s.", d, now.Format("15:04"))
}

func (e *Engine) listPuzzles() string {
	var b strings.Builder
	b.WriteString("Puzzles:")
	for _, def := range e.puzzles.List() {
		mark := " "
		if e.puzzles.IsCompleted(def.ID) {
			mark = "x"
		}
		fmt.Fprintf(&b, "\n  [%s] %-22s %-16s difficulty %d", mark, def.ID, def.Category, def.Difficulty)
	}
	b.WriteString("\nType 'puzzle <id>' to start one.")
	return b.String()
}

func (e *Engine) startPuzzle(id string) string {
	if id == "" {
		return "Which puzzle? Type 'puzzles' for the list."
	}
	if _, err := e.puzzles.Start(id, e.session.PlayerID); err != nil {
		if gerrors.IsNotFound(err) {
			return "Ravi doesn't have a puzzle called " + id + "."
		}
		return err.Error()
	}
	e.activePuzzle = id
	def, _ := e.puzzles.Get(id)

	out := fmt.Sprintf("%s (%s, difficulty %d)\n%s\nType 'solve <answer>' when you're ready, or 'hint'.",
		def.Title, def.Category, def.Difficulty, strings.TrimSpace(def.Problem))
	if e.puzzles.IsCompleted(id) {
		out = "(Already solved. Reviewing it won't earn anything new.)\n" + out
	}
	return out
}

func (e *Engine) hint() string {
	if e.activePuzzle == "" {
		return "You're not working on a puzzle. Type 'puzzles' to pick one."
	}
	h, err := e.puzzles.Hint(e.activePuzzle, e.session.PlayerID)
	if err != nil {
		if gerrors.IsNoActiveSession(err) {
			return "Start the puzzle again first: puzzle " + e.activePuzzle
		}
		return err.Error()
	}
	return fmt.Sprintf("Hint: %s\n(hints used: %d, penalty %.1f)", h.Hint, h.HintsUsed, h.Penalty)
}

func (e *Engine) solve(answer string) string {
	if e.activePuzzle == "" {
		return "You're not working on a puzzle. Type 'puzzles' to pick one."
	}
	if answer == "" {
		return "Solve it with what? Type 'solve <your answer>'."
	}
	res, err := e.puzzles.Submit(e.activePuzzle, answer, e.session.PlayerID)
	if err != nil {
		if gerrors.IsNoActiveSession(err) {
			return "Start the puzzle again first: puzzle " + e.activePuzzle
		}
		return err.Error()
	}
	if !res.Success {
		return fmt.Sprintf("%s\n(attempts remaining: %d)", res.Message, res.AttemptsRemaining)
	}
	e.activePuzzle = ""
	return res.Message
}

func (e *Engine) listAchievements() string {
	overall := e.achievements.Overall()
	var b strings.Builder
	fmt.Fprintf(&b, "Achievements: %d/%d (%d%%)", overall.Unlocked, overall.Total, overall.Percentage)
	for _, def := range e.achievements.List() {
		mark := " "
		if e.achievements.IsUnlocked(def.ID) {
			mark = "x"
		}
		fmt.Fprintf(&b, "\n  [%s] %-26s %-9s %s", mark, def.Name, def.Rarity, def.Description)
	}
	if recent := e.achievements.Recent(3); len(recent) > 0 {
		names := make([]string, 0, len(recent))
		for _, r := range recent {
			names = append(names, r.Achievement.Name)
		}
		fmt.Fprintf(&b, "\nRecent: %s", strings.Join(names, ", "))
	}
	for _, rec := range e.achievements.Recommendations() {
		fmt.Fprintf(&b, "\n* %s", rec)
	}
	return b.String()
}

func (e *Engine) stats() string {
	prog := e.puzzles.Progress()
	var b strings.Builder
	fmt.Fprintf(&b, "Puzzles solved: %d (average difficulty %.2f)", prog.TotalSolved, prog.AverageDifficulty)
	if prog.FavoriteCategory != "" {
		fmt.Fprintf(&b, ", favorite: %s", prog.FavoriteCategory)
	}
	for _, c := range puzzle.Categories {
		cp := prog.PerCategory[c]
		fmt.Fprintf(&b, "\n  %-17s %d/%d", c, cp.Completed, cp.Total)
	}
	fmt.Fprintf(&b, "\nHints: %d taken; solves with 0 hints %d, 1-2 hints %d, 3+ hints %d",
		e.puzzles.TotalHints(), prog.Hints.None, prog.Hints.Few, prog.Hints.Many)

	overall := e.achievements.Overall()
	fmt.Fprintf(&b, "\nAchievements: %d/%d (%d%%)", overall.Unlocked, overall.Total, overall.Percentage)
	dist := e.achievements.RarityDistribution()
	for _, r := range achievement.Rarities {
		s := dist[r]
		fmt.Fprintf(&b, "\n  %-9s %d/%d", r, s.Unlocked, s.Total)
	}
	fmt.Fprintf(&b, "\nStories completed: %d", len(e.stories.CompletedStories()))
	return b.String()
}

func (e *Engine) objectives() string {
	s := e.stories.Current()
	if s == nil {
		return "There's no story to follow."
	}
	objs := e.stories.CurrentObjectives()
	if len(objs) == 0 {
		return s.Name + " is complete. Type 'stories' to see what else is open."
	}
	var b strings.Builder
	b.WriteString(s.Name + ":")
	for _, o := range objs {
		fmt.Fprintf(&b, "\n  - %s: %s", o.Name, o.Objective)
	}
	return b.String()
}

func (e *Engine) listStories() string {
	var b strings.Builder
	b.WriteString("Stories:")
	current := e.stories.Current()
	for _, s := range e.stories.Stories() {
		state := "locked"
		switch {
		case e.stories.IsStoryComplete(s.ID):
			state = "complete"
		case s.Unlocked:
			state = "open"
		}
		marker := " "
		if current != nil && current.ID == s.ID {
			marker = ">"
		}
		fmt.Fprintf(&b, "\n %s %-15s %-9s %s", marker, s.ID, state, s.Description)
	}
	return b.String()
}

func (e *Engine) switchStory(id string) string {
	if id == "" {
		return "Which story? Type 'stories' for the list."
	}
	_, err := e.stories.SwitchStory(id)
	switch {
	case gerrors.IsNotFound(err):
		return "There's no story called " + id + "."
	case gerrors.IsStoryLocked(err):
		return "That story is still locked. Finish another one first."
	case err != nil:
		return err.Error()
	}
	return "Now following: " + e.stories.Current().Name + "\n" + e.objectives()
}

// Intro is the text shown before the first command of a session.
func (e *Engine) Intro(resumed bool) string {
	name := e.session.Player.Name
	greeting := fmt.Sprintf("Welcome, %s. Somewhere in the static, a small program named Ravi is waiting for you.", name)
	if resumed {
		greeting = fmt.Sprintf("Welcome back, %s. Ravi kept your place.", name)
	}
	return greeting + "\n\n" + e.look() + "\n\nType 'help' for commands."
}
