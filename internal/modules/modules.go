// Package modules implements the planner's feature modules.
//
// Every module follows the same lifecycle. It hydrates its collections from
// the mirror, subscribes through the binder when a user is signed in, and
// writes each state change to the mirror as a whole collection before
// persisting the changed record in the background. A non-empty remote
// emission replaces local state; an empty one is ignored so a fresh account
// does not wipe a visitor's local data.
package modules

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/loveeagles/planner/internal/ai"
	"github.com/loveeagles/planner/internal/autosave"
	"github.com/loveeagles/planner/internal/binder"
	"github.com/loveeagles/planner/internal/docstore"
	"github.com/loveeagles/planner/internal/logger"
	"github.com/loveeagles/planner/internal/mirror"
	"github.com/loveeagles/planner/internal/records"
)

// ErrNotFound is returned when an id is not in the module's collection.
var ErrNotFound = errors.New("not found")

// ErrSignedOut is returned by operations that need a signed-in user.
var ErrSignedOut = errors.New("sign in required")

// Env carries the shared services a module is opened with.
type Env struct {
	Binder   *binder.Binder
	Mirror   *mirror.Store
	Saver    *autosave.Saver
	AI       ai.Completer
	Logger   *log.Logger
	UserID   string
	UserName string

	// AutosaveDelay is the draft debounce; zero uses autosave.DefaultDelay.
	AutosaveDelay time.Duration

	// Clock defaults to time.Now.
	Clock func() time.Time
}

func (e Env) now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now()
}

func (e Env) completer() ai.Completer {
	if e.AI == nil {
		return ai.Disabled{}
	}
	return e.AI
}

// Module is an open feature module.
type Module interface {
	Name() string
	// WaitLoaded blocks until the module's remote collections have been
	// fetched once. It returns at once when no user is signed in.
	WaitLoaded(ctx context.Context) error
	// OnChange registers fn to run after any state change.
	OnChange(fn func()) (unsubscribe func())
	Close()
}

// Module names accepted by Open.
const (
	NamePlanner = "planner"
	NameNotes   = "notes"
	NameMood    = "mood"
	NameTimer   = "timer"
	NameJournal = "journal"
	NameQuiz    = "quiz"
	NameCoach   = "coach"
	NameStreak  = "streak"
	NameVoice   = "voice"
	NameSuggest = "suggest"
)

var openers = map[string]func(context.Context, Env) Module{
	NamePlanner: func(ctx context.Context, e Env) Module { return OpenPlanner(ctx, e) },
	NameNotes:   func(ctx context.Context, e Env) Module { return OpenNotes(ctx, e) },
	NameMood:    func(ctx context.Context, e Env) Module { return OpenMood(ctx, e) },
	NameTimer:   func(ctx context.Context, e Env) Module { return OpenTimer(ctx, e) },
	NameJournal: func(ctx context.Context, e Env) Module { return OpenJournal(ctx, e) },
	NameQuiz:    func(ctx context.Context, e Env) Module { return OpenQuiz(ctx, e) },
	NameCoach:   func(ctx context.Context, e Env) Module { return OpenCoach(ctx, e) },
	NameStreak:  func(ctx context.Context, e Env) Module { return OpenStreak(ctx, e) },
	NameVoice:   func(ctx context.Context, e Env) Module { return OpenVoice(ctx, e) },
	NameSuggest: func(ctx context.Context, e Env) Module { return OpenSuggestions(ctx, e) },
}

// Names returns the module names in display order.
func Names() []string {
	return []string{NamePlanner, NameNotes, NameMood, NameTimer, NameJournal, NameQuiz, NameCoach, NameStreak, NameVoice, NameSuggest}
}

// Open opens the module called name.
func Open(ctx context.Context, name string, env Env) (Module, error) {
	open, ok := openers[name]
	if !ok {
		known := Names()
		sort.Strings(known)
		return nil, fmt.Errorf("unknown module %q (known: %v)", name, known)
	}
	return open(ctx, env), nil
}

// listeners is a set of change callbacks.
type listeners struct {
	mu     sync.Mutex
	fns    map[int]func()
	nextID int
}

func (ls *listeners) add(fn func()) func() {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ls.fns == nil {
		ls.fns = make(map[int]func())
	}
	id := ls.nextID
	ls.nextID++
	ls.fns[id] = fn
	return func() {
		ls.mu.Lock()
		delete(ls.fns, id)
		ls.mu.Unlock()
	}
}

func (ls *listeners) notify() {
	ls.mu.Lock()
	fns := make([]func(), 0, len(ls.fns))
	for _, fn := range ls.fns {
		fns = append(fns, fn)
	}
	ls.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// list is one synced collection: mirror key, binder subscription and the
// decoded local state.
type list[T any] struct {
	env        Env
	key        string
	collection string
	idOf       func(T) string
	logger     *log.Logger

	mu    sync.Mutex
	items []T

	changed listeners
	sub     *binder.Subscription
	unsub   func()
}

func openList[T any](ctx context.Context, env Env, collection, key string, idOf func(T) string) *list[T] {
	l := &list[T]{
		env:        env,
		key:        key,
		collection: collection,
		idOf:       idOf,
		logger:     logger.Named(env.Logger, "modules."+collection),
		items:      mirror.Read[[]T](env.Mirror, key, nil),
	}
	if env.UserID == "" || env.Binder == nil {
		return l
	}
	l.sub = env.Binder.Subscribe(ctx, env.UserID, collection)
	l.unsub = l.sub.OnChange(l.apply)
	// The first fetch may have finished before the listener was attached.
	if !l.sub.Loading() {
		l.apply(l.sub.Records())
	}
	return l
}

func (l *list[T]) apply(recs []docstore.Record) {
	if len(recs) == 0 {
		return
	}
	items, skipped := records.Decode[T](recs)
	if skipped > 0 {
		l.logger.Warn("skipping undecodable records", "collection", l.collection, "count", skipped)
	}
	l.mu.Lock()
	l.items = items
	l.env.Mirror.Write(l.key, l.items)
	l.mu.Unlock()
	l.changed.notify()
}

// Items returns a copy of the current state.
func (l *list[T]) Items() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]T(nil), l.items...)
}

func (l *list[T]) find(id string) (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, it := range l.items {
		if l.idOf(it) == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// put inserts item, or replaces the item with the same id in place.
func (l *list[T]) put(item T) {
	id := l.idOf(item)
	l.mu.Lock()
	replaced := false
	for i := range l.items {
		if l.idOf(l.items[i]) == id {
			l.items[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		l.items = append(l.items, item)
	}
	l.env.Mirror.Write(l.key, l.items)
	l.mu.Unlock()

	l.persist(id, item)
	l.changed.notify()
}

// update applies fn to a copy of the item with id and stores the result.
// An error from fn leaves the collection untouched.
func (l *list[T]) update(id string, fn func(*T) error) (T, error) {
	item, ok := l.find(id)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s %s: %w", l.collection, id, ErrNotFound)
	}
	if err := fn(&item); err != nil {
		var zero T
		return zero, err
	}
	l.put(item)
	return item, nil
}

func (l *list[T]) remove(id string) error {
	l.mu.Lock()
	idx := -1
	for i := range l.items {
		if l.idOf(l.items[i]) == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		l.mu.Unlock()
		return fmt.Errorf("%s %s: %w", l.collection, id, ErrNotFound)
	}
	l.items = append(l.items[:idx:idx], l.items[idx+1:]...)
	l.env.Mirror.Write(l.key, l.items)
	l.mu.Unlock()

	if l.env.Binder != nil {
		l.env.Binder.Remove(l.env.UserID, l.collection, id)
	}
	l.changed.notify()
	return nil
}

func (l *list[T]) persist(id string, item T) {
	if l.env.Binder == nil || l.env.UserID == "" {
		return
	}
	rec, err := records.ToRecord(item)
	if err != nil {
		l.logger.Error("failed to encode record", "collection", l.collection, "id", id, "err", err)
		return
	}
	l.env.Binder.Persist(l.env.UserID, l.collection, id, rec)
}

func (l *list[T]) WaitLoaded(ctx context.Context) error {
	if l.sub == nil {
		return nil
	}
	return l.sub.WaitLoaded(ctx)
}

func (l *list[T]) OnChange(fn func()) func() {
	return l.changed.add(fn)
}

func (l *list[T]) Close() {
	if l.sub == nil {
		return
	}
	l.unsub()
	l.sub.Close()
}

// group fans WaitLoaded, OnChange and Close out to several lists.
type group []interface {
	WaitLoaded(context.Context) error
	OnChange(func()) func()
	Close()
}

func (g group) WaitLoaded(ctx context.Context) error {
	for _, l := range g {
		if err := l.WaitLoaded(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (g group) OnChange(fn func()) func() {
	unsubs := make([]func(), len(g))
	for i, l := range g {
		unsubs[i] = l.OnChange(fn)
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func (g group) Close() {
	for _, l := range g {
		l.Close()
	}
}

// draftEnvelope wraps a draft payload so its own "id" field survives the
// store, which reserves "id" for the draft's document id.
type draftEnvelope[T any] struct {
	Value T `json:"value"`
}

// scheduleDraft queues value as the user's draft of kind.
func scheduleDraft[T any](env Env, kind string, value T) {
	if env.Saver == nil || env.UserID == "" {
		return
	}
	rec, err := records.ToRecord(draftEnvelope[T]{Value: value})
	if err != nil {
		logger.Named(env.Logger, "modules").Error("failed to encode draft", "kind", kind, "err", err)
		return
	}
	env.Saver.Schedule(env.UserID, kind, rec, env.AutosaveDelay)
}

// loadDraft decodes the user's stored draft of kind.
func loadDraft[T any](ctx context.Context, env Env, kind string) (T, bool, error) {
	var zero T
	if env.Saver == nil || env.UserID == "" {
		return zero, false, nil
	}
	rec, err := env.Saver.LoadLatest(ctx, env.UserID, kind)
	if err != nil || rec == nil {
		return zero, false, err
	}
	d, err := records.FromRecord[draftEnvelope[T]](autosave.StripMeta(rec))
	if err != nil {
		return zero, false, err
	}
	return d.Value, true, nil
}

// discardDraft removes the user's draft of kind after it was finalized.
func discardDraft(ctx context.Context, env Env, kind string) {
	if env.Saver == nil || env.UserID == "" {
		return
	}
	if err := env.Saver.Discard(ctx, env.UserID, kind); err != nil {
		logger.Named(env.Logger, "modules").Warn("failed to discard draft", "kind", kind, "err", err)
	}
}

func cancelDraft(env Env, kind string) {
	if env.Saver == nil || env.UserID == "" {
		return
	}
	env.Saver.Cancel(env.UserID, kind)
}
