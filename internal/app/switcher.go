package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/loveeagles/planner/internal/modules"
)

// Tabs is the default tab order.
var Tabs = []string{
	modules.NamePlanner,
	modules.NameNotes,
	modules.NameTimer,
	modules.NameMood,
	modules.NameJournal,
	modules.NameQuiz,
	modules.NameCoach,
	modules.NameSuggest,
	modules.NameVoice,
	modules.NameStreak,
}

// Switcher keeps exactly one module open. Switching closes the previous
// module, which cancels its subscriptions and pending draft saves, before
// the next one is opened.
type Switcher struct {
	app  *Context
	tabs []string

	mu      sync.Mutex
	index   int
	current modules.Module
}

// NewSwitcher returns a switcher over tabs (Tabs when empty). Nothing is
// opened until Open or Select.
func NewSwitcher(c *Context, tabs ...string) *Switcher {
	if len(tabs) == 0 {
		tabs = Tabs
	}
	return &Switcher{app: c, tabs: append([]string(nil), tabs...), index: -1}
}

// Tabs returns the tab names in order.
func (s *Switcher) Tabs() []string {
	return append([]string(nil), s.tabs...)
}

// Index returns the selected tab, or -1.
func (s *Switcher) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Current returns the open module, or nil.
func (s *Switcher) Current() modules.Module {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Select opens tab i.
func (s *Switcher) Select(ctx context.Context, i int) (modules.Module, error) {
	if i < 0 || i >= len(s.tabs) {
		return nil, fmt.Errorf("tab %d out of range", i)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.Close()
		s.current = nil
	}
	m, err := s.app.Open(ctx, s.tabs[i])
	if err != nil {
		s.index = -1
		return nil, err
	}
	s.index, s.current = i, m
	return m, nil
}

// Open opens the tab called name.
func (s *Switcher) Open(ctx context.Context, name string) (modules.Module, error) {
	for i, t := range s.tabs {
		if t == name {
			return s.Select(ctx, i)
		}
	}
	return nil, fmt.Errorf("%w: %q", modules.ErrNotFound, name)
}

// Next opens the tab after the current one, wrapping around.
func (s *Switcher) Next(ctx context.Context) (modules.Module, error) {
	return s.Select(ctx, (s.Index()+1)%len(s.tabs))
}

// Prev opens the tab before the current one, wrapping around.
func (s *Switcher) Prev(ctx context.Context) (modules.Module, error) {
	i := s.Index() - 1
	if i < 0 {
		i = len(s.tabs) - 1
	}
	return s.Select(ctx, i)
}

// Reload reopens the current tab, picking up an identity change.
func (s *Switcher) Reload(ctx context.Context) (modules.Module, error) {
	i := s.Index()
	if i < 0 {
		return nil, nil
	}
	return s.Select(ctx, i)
}

// Close closes the open module.
func (s *Switcher) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.Close()
		s.current = nil
	}
	s.index = -1
}
