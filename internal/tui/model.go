// Package tui is the interactive tab view over the planner modules.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/loveeagles/planner/internal/app"
	"github.com/loveeagles/planner/internal/modules"
	"github.com/loveeagles/planner/internal/records"
)

type openedMsg struct {
	mod modules.Module
	err error
}

type changedMsg struct{}

type tickMsg time.Time

type statusMsg string

type Model struct {
	ctx      context.Context
	app      *app.Context
	switcher *app.Switcher
	keys     KeyMap
	help     help.Model

	changes chan struct{}
	unsub   func()
	detach  func()

	cursor   int
	status   string
	err      error
	width    int
	height   int
	quitting bool
}

func NewModel(ctx context.Context, c *app.Context) Model {
	return Model{
		ctx:      ctx,
		app:      c,
		switcher: app.NewSwitcher(c),
		keys:     DefaultKeyMap(),
		help:     help.New(),
		changes:  make(chan struct{}, 1),
		unsub:    func() {},
		detach:   func() {},
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.selectTab(0), m.listen(), tick())
}

// Close releases the open module.
func (m Model) Close() {
	m.unsub()
	m.detach()
	m.switcher.Close()
}

func (m Model) selectTab(i int) tea.Cmd {
	return func() tea.Msg {
		mod, err := m.switcher.Select(m.ctx, i)
		return openedMsg{mod: mod, err: err}
	}
}

func (m Model) step(move func(context.Context) (modules.Module, error)) tea.Cmd {
	return func() tea.Msg {
		mod, err := move(m.ctx)
		return openedMsg{mod: mod, err: err}
	}
}

func (m Model) listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.changes:
			return changedMsg{}
		case <-m.ctx.Done():
			return nil
		}
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) current() modules.Module {
	return m.switcher.Current()
}

func (m Model) notifyChange() {
	select {
	case m.changes <- struct{}{}:
	default:
	}
}

// opened attaches to a freshly opened module.
func (m Model) opened(mod modules.Module) (Model, tea.Cmd) {
	m.unsub()
	m.detach()
	m.cursor = 0
	m.unsub = mod.OnChange(m.notifyChange)
	m.detach = func() {}

	env := m.app.Env()
	switch mod := mod.(type) {
	case *modules.Planner:
		m.detach = m.app.TrackActivity(m.ctx, mod, nil, modules.OpenStreak(m.ctx, env))
	case *modules.Timer:
		m.detach = m.app.TrackActivity(m.ctx, nil, mod, modules.OpenStreak(m.ctx, env))
	}

	ctx := m.ctx
	return m, func() tea.Msg {
		if err := mod.WaitLoaded(ctx); err != nil {
			return statusMsg("still loading: " + err.Error())
		}
		if s, ok := mod.(*modules.Streak); ok {
			if _, _, err := s.CheckIn(ctx); err != nil {
				return statusMsg(err.Error())
			}
		}
		return changedMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case openedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		return m.opened(msg.mod)

	case changedMsg:
		return m, m.listen()

	case statusMsg:
		m.status = string(msg)

	case tickMsg:
		m.onTick()
		return m, tick()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			m.Close()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Tab):
			return m, m.step(m.switcher.Next)
		case key.Matches(msg, m.keys.ShiftTab):
			return m, m.step(m.switcher.Prev)
		default:
			m.handleKey(msg)
		}
	}
	return m, nil
}

func (m *Model) onTick() {
	switch mod := m.current().(type) {
	case *modules.Timer:
		if mod.Tick(time.Second) {
			m.status = "Time for a break! You've been studying for a while."
		}
	case *modules.Suggestions:
		mod.Pomodoro(func(p *modules.Pomodoro) {
			if finished, done := p.Tick(time.Second); done {
				m.status = fmt.Sprintf("%s phase finished", finished)
			}
		})
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) {
	switch mod := m.current().(type) {
	case *modules.Planner:
		as := mod.Assignments()
		switch {
		case key.Matches(msg, m.keys.Up) && m.cursor > 0:
			m.cursor--
		case key.Matches(msg, m.keys.Down) && m.cursor < len(as)-1:
			m.cursor++
		case key.Matches(msg, m.keys.Toggle) && m.cursor < len(as):
			if _, err := mod.ToggleAssignment(as[m.cursor].ID); err != nil {
				m.status = err.Error()
			}
		}

	case *modules.Timer:
		switch {
		case key.Matches(msg, m.keys.Start):
			a, ok := mod.Active()
			switch {
			case !ok:
				if err := mod.Start("General", ""); err != nil {
					m.status = err.Error()
				}
			case a.Running:
				mod.Pause()
			default:
				mod.Resume()
			}
		case key.Matches(msg, m.keys.End):
			s, recorded, err := mod.End()
			switch {
			case err != nil:
				m.status = err.Error()
			case recorded:
				m.status = fmt.Sprintf("Recorded %s of %s", modules.FormatClock(s.Duration), s.Subject)
			}
		}

	case *modules.Mood:
		if key.Matches(msg, m.keys.Mood) {
			i, _ := strconv.Atoi(msg.String())
			if i >= 1 && i <= len(records.Moods) {
				if e, err := mod.Log(records.Moods[i-1], modules.DefaultEnergy); err != nil {
					m.status = err.Error()
				} else {
					m.status = "Logged " + e.Mood
				}
			}
		}

	case *modules.Suggestions:
		switch {
		case key.Matches(msg, m.keys.Start):
			mod.Pomodoro(func(p *modules.Pomodoro) {
				if p.Running() {
					p.Pause()
				} else {
					p.Start()
				}
			})
		case key.Matches(msg, m.keys.Reset):
			mod.Pomodoro(func(p *modules.Pomodoro) { p.Reset() })
		}
	}
}

// Run starts the full-screen interface and blocks until it exits.
func Run(ctx context.Context, c *app.Context) error {
	m := NewModel(ctx, c)
	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		m.Close()
		return fmt.Errorf("failed to run interface: %w", err)
	}
	return nil
}
