package tui

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatianab/ravi-adventure/internal/dialogue"
	"github.com/tatianab/ravi-adventure/internal/engine"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newTestEngine(t *testing.T) (*engine.Engine, *clock) {
	t.Helper()
	c := &clock{now: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)}
	eng, err := engine.New(context.Background(), engine.Options{PlayerName: "Ada", Clock: c.Now})
	require.NoError(t, err)
	return eng, c
}

// submit types line and runs the resulting command to completion.
func submit(t *testing.T, m model, line string) (model, tea.Cmd) {
	t.Helper()
	m.textInput.SetValue(line)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(model)
	require.True(t, m.busy)
	require.NotNil(t, cmd)

	next, cmd = m.Update(cmd())
	m = next.(model)
	assert.False(t, m.busy)
	return m, cmd
}

func TestModel_Command(t *testing.T) {
	eng, _ := newTestEngine(t)
	next, _ := NewModel(eng, "Welcome.").Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m := next.(model)

	assert.Equal(t, "The Boot Sector", m.status.location)
	assert.Contains(t, m.gameLog, "Welcome.")

	m, cmd := submit(t, m, "take key")
	assert.Nil(t, cmd)
	assert.Contains(t, m.gameLog, "> take key")
	assert.Contains(t, m.gameLog, "You take the mysterious key.")
	assert.Contains(t, m.gameLog, "Keeper of Keys")
	assert.Equal(t, []string{"mysterious key"}, m.status.inventory)
	assert.Equal(t, 1, m.status.turn)
	assert.Empty(t, m.textInput.Value())

	view := m.View()
	assert.Contains(t, view, "INVENTORY")
	assert.Contains(t, view, "mysterious key")
}

func TestModel_IgnoresInputWhileBusy(t *testing.T) {
	eng, _ := newTestEngine(t)
	m := NewModel(eng, "")
	m.busy = true
	m.textInput.SetValue("look")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, "look", next.(model).textInput.Value())
	assert.Contains(t, m.View(), "Ravi is thinking")
}

func TestModel_QuitCommand(t *testing.T) {
	eng, _ := newTestEngine(t)
	m := NewModel(eng, "")

	_, cmd := submit(t, m, "quit")
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_TickRunsTimers(t *testing.T) {
	eng, c := newTestEngine(t)
	m := NewModel(eng, "")
	m, _ = submit(t, m, "talk")
	require.Equal(t, string(dialogue.MoodHappy), m.status.mood)

	c.now = c.now.Add(dialogue.MoodDecay)
	next, cmd := m.Update(tickMsg(c.now))
	assert.NotNil(t, cmd)
	assert.Equal(t, string(dialogue.MoodNeutral), next.(model).status.mood)
}

func TestModel_TickWaitsForCommand(t *testing.T) {
	eng, c := newTestEngine(t)
	m := NewModel(eng, "")
	m, _ = submit(t, m, "talk")

	c.now = c.now.Add(dialogue.MoodDecay)
	m.busy = true
	next, _ := m.Update(tickMsg(c.now))
	assert.Equal(t, string(dialogue.MoodHappy), next.(model).status.mood)
	assert.Equal(t, dialogue.MoodHappy, eng.Mood())
}

func TestRunPlain(t *testing.T) {
	eng, _ := newTestEngine(t)
	in := strings.NewReader("look\ntake key\ninventory\nquit\nlook\n")
	var out bytes.Buffer

	require.NoError(t, RunPlain(context.Background(), eng, in, &out, "Hello."))

	s := out.String()
	assert.True(t, strings.HasPrefix(s, "Hello.\n\n> "))
	assert.Contains(t, s, "The Boot Sector")
	assert.Contains(t, s, "  * Achievement unlocked: Keeper of Keys")
	assert.Contains(t, s, "You are carrying: mysterious key")
	assert.Contains(t, s, "Come back soon")
	assert.Equal(t, 4, eng.Player().TurnCount, "input after quit is not read")
}

func TestRunPlain_EndOfInput(t *testing.T) {
	eng, _ := newTestEngine(t)
	var out bytes.Buffer

	require.NoError(t, RunPlain(context.Background(), eng, strings.NewReader("go north\n"), &out, ""))
	assert.Equal(t, "archive", eng.Player().Location)
}
