package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/rehab/internal/models"
	"github.com/julianstephens/rehab/internal/recovery"
)

const (
	tickInterval = time.Second
	maxBarWidth  = 60
)

type KeyMap struct {
	Quit key.Binding
	Help key.Binding
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Help, k.Quit}}
}

var DefaultKeyMap = KeyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "toggle help"),
	),
}

type tickMsg time.Time

// TimerModel is a live sobriety clock with a progress bar toward the next milestone
type TimerModel struct {
	quitDate    time.Time
	milestones  []models.Milestone
	affirmation string
	now         func() time.Time
	current     time.Time

	keys     KeyMap
	help     help.Model
	bar      progress.Model
	quitting bool
}

func NewTimer(quitDate time.Time, milestones []models.Milestone, affirmation string, now func() time.Time) TimerModel {
	if now == nil {
		now = time.Now
	}
	return TimerModel{
		quitDate:    quitDate,
		milestones:  milestones,
		affirmation: affirmation,
		now:         now,
		current:     now(),
		keys:        DefaultKeyMap,
		help:        help.New(),
		bar:         progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m TimerModel) Init() tea.Cmd {
	return tick()
}

func (m TimerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		m.bar.Width = msg.Width - 8
		if m.bar.Width > maxBarWidth {
			m.bar.Width = maxBarWidth
		}
		return m, nil

	case tickMsg:
		m.current = m.now()
		return m, tick()

	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		if b, ok := bar.(progress.Model); ok {
			m.bar = b
		}
		return m, cmd
	}
	return m, nil
}

func (m TimerModel) View() string {
	if m.quitting {
		return ""
	}
	elapsed := recovery.SoberDuration(m.quitDate, m.current)
	days := recovery.SoberDays(m.quitDate, m.current)
	next := recovery.EvaluateMilestones(days, m.milestones)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Sober for"))
	b.WriteString("\n\n")
	b.WriteString(valueStyle.Render(FormatDuration(elapsed)))
	b.WriteString("\n\n")

	if next.Next != nil {
		b.WriteString(m.bar.ViewAs(next.Percent / 100))
		b.WriteString("\n")
		b.WriteString(labelStyle.Render(fmt.Sprintf("%d days to %s", next.DaysToNext, next.Next.Name)))
	} else {
		b.WriteString(successStyle.Render("Every milestone reached"))
	}
	b.WriteString("\n")

	if m.affirmation != "" {
		b.WriteString("\n")
		b.WriteString(warningStyle.Render("“" + m.affirmation + "”"))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return docStyle.Render(b.String())
}
