// Package tui is the terminal front end: a bubbletea program for normal
// play and a line-based REPL for plain terminals and scripts.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tatianab/ravi-adventure/internal/engine"
	"github.com/tatianab/ravi-adventure/internal/events"
)

// tickInterval is how often idle timers are given a chance to fire.
const tickInterval = time.Second

// status is what the side panel shows. It is copied out of the engine
// whenever the engine is idle so View never touches live game state.
type status struct {
	name         string
	location     string
	mood         string
	story        string
	relationship float64
	turn         int
	inventory    []string
	objectives   []string
	achievements string
}

type model struct {
	engine    *engine.Engine
	textInput textinput.Model
	viewport  viewport.Model
	gameLog   string
	width     int
	height    int
	busy      bool
	status    status
}

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#5F5F87")).
			Bold(true).
			PaddingLeft(1)

	gameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	stateStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2).
			Foreground(lipgloss.Color("#AAAAAA"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)

	achievementStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFD700")).
				Bold(true)

	storyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500"))

	commentaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87D7D7")).
			Italic(true)

	swarmStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D75FD7")).
			Bold(true)
)

func notificationStyle(kind events.Kind) lipgloss.Style {
	switch kind {
	case events.KindAchievementUnlocked:
		return achievementStyle
	case events.KindStory:
		return storyStyle
	case events.KindSwarmCommentary:
		return swarmStyle
	default:
		return commentaryStyle
	}
}

// NewModel creates the bubbletea model. intro is shown before the first
// prompt.
func NewModel(eng *engine.Engine, intro string) model {
	ti := textinput.New()
	ti.Placeholder = "What do you do? (try 'help')"
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 60

	m := model{
		engine:    eng,
		textInput: ti,
		gameLog:   intro + "\n\n",
	}
	m.refreshStatus()
	return m
}

type tickMsg time.Time

type commandDoneMsg struct {
	result engine.Result
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, tick())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyEnter:
			if m.busy {
				return m, nil
			}
			line := strings.TrimSpace(m.textInput.Value())
			if line == "" {
				return m, nil
			}
			m.textInput.Reset()

			m.appendLog(userStyle.Width(m.logWidth()).Render("> " + line))
			m.busy = true
			return m, m.processCommand(line)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.viewport.Width == 0 {
			m.viewport = viewport.New(m.logWidth(), msg.Height-6)
		} else {
			m.viewport.Width = m.logWidth()
			m.viewport.Height = msg.Height - 6
		}
		m.viewport.SetContent(m.gameLog)
		m.viewport.GotoBottom()

	case commandDoneMsg:
		m.busy = false
		m.showResult(msg.result)
		if msg.result.Quit {
			return m, tea.Quit
		}
		return m, nil

	case tickMsg:
		// The engine is not safe for concurrent use; a command in flight
		// owns it until commandDoneMsg arrives.
		if !m.busy {
			m.showNotifications(m.engine.Tick())
			m.refreshStatus()
		}
		return m, tick()
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m *model) logWidth() int {
	if m.width == 0 {
		return 80
	}
	return int(float64(m.width) * 0.70)
}

func (m *model) appendLog(s string) {
	m.gameLog += s + "\n\n"
	m.viewport.SetContent(m.gameLog)
	m.viewport.GotoBottom()
}

func (m *model) showResult(res engine.Result) {
	if res.Output != "" {
		m.appendLog(gameStyle.Width(m.logWidth()).Render(res.Output))
	}
	m.showNotifications(res.Notifications)
	m.refreshStatus()
}

func (m *model) showNotifications(ns []engine.Notification) {
	for _, n := range ns {
		m.appendLog(notificationStyle(n.Kind).Width(m.logWidth()).Render(n.Text))
	}
}

func (m *model) refreshStatus() {
	eng := m.engine
	p := eng.Player()
	overall := eng.Achievements().Overall()

	s := status{
		name:         p.Name,
		location:     eng.Location().Name,
		mood:         string(eng.Mood()),
		story:        eng.CurrentStory(),
		relationship: p.Variable("relationship"),
		turn:         p.TurnCount,
		inventory:    append([]string(nil), p.Inventory...),
		achievements: fmt.Sprintf("%d/%d (%d%%)", overall.Unlocked, overall.Total, overall.Percentage),
	}
	for _, o := range eng.Stories().CurrentObjectives() {
		s.objectives = append(s.objectives, o.Objective)
	}
	m.status = s
}

func (m model) View() string {
	mainView := lipgloss.JoinHorizontal(lipgloss.Top,
		m.viewport.View(),
		m.renderStatus(),
	)

	help := "Type 'help' for commands, 'quit' to leave."
	if m.busy {
		help = "Ravi is thinking..."
	}
	s := lipgloss.JoinVertical(lipgloss.Left,
		mainView,
		"\n"+m.textInput.View(),
		"\n"+helpStyle.Render(help),
	)
	return "\n" + s + "\n"
}

func (m model) renderStatus() string {
	st := m.status
	var b strings.Builder

	b.WriteString(titleStyle.Render("LOCATION") + "\n" + st.location + "\n\n")

	b.WriteString(titleStyle.Render("RAVI") + "\n")
	fmt.Fprintf(&b, "Mood: %s\nTrust: %.0f/100\n\n", st.mood, st.relationship)

	b.WriteString(titleStyle.Render("STORY") + "\n" + st.story + "\n")
	for _, o := range st.objectives {
		b.WriteString("- " + o + "\n")
	}
	b.WriteString("\n")

	b.WriteString(titleStyle.Render("INVENTORY") + "\n")
	if len(st.inventory) == 0 {
		b.WriteString("(empty)\n")
	}
	for _, item := range st.inventory {
		b.WriteString("- " + item + "\n")
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "%s  turn %d\nAchievements %s", st.name, st.turn, st.achievements)

	stateWidth := int(float64(m.width) * 0.27)
	return stateStyle.Width(stateWidth).Height(m.viewport.Height).Render(b.String())
}

func (m model) processCommand(line string) tea.Cmd {
	eng := m.engine
	return func() tea.Msg {
		return commandDoneMsg{eng.ProcessCommand(context.Background(), line)}
	}
}

// Run starts the full-screen interface and blocks until the player quits.
func Run(eng *engine.Engine, intro string) error {
	p := tea.NewProgram(NewModel(eng, intro), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
