// Package binder binds per-user document-store collections to local state.
//
// A Subscription mirrors one collection: it starts empty and loading, then
// replaces its whole record list every time the store announces a change
// under its path. Notifications that arrive while a fetch is running are
// coalesced into at most one follow-up fetch.
//
// Writes go straight to the store. Persist is the fire-and-forget form used
// by UI code that has already updated its local state and only wants the
// failure logged.
package binder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/loveeagles/planner/internal/docstore"
	"github.com/loveeagles/planner/internal/logger"
)

// DefaultTimeout bounds each fetch and each fire-and-forget write.
const DefaultTimeout = 30 * time.Second

// Binder creates subscriptions and performs writes against one store.
type Binder struct {
	store   docstore.Store
	logger  *log.Logger
	timeout time.Duration

	// pending tracks fire-and-forget writes.
	pending sync.WaitGroup
}

// New creates a binder for store. If logger is nil a default one is used.
func New(store docstore.Store, l *log.Logger) *Binder {
	return &Binder{
		store:   store,
		logger:  logger.Named(l, "binder"),
		timeout: DefaultTimeout,
	}
}

// Store returns the underlying store.
func (b *Binder) Store() docstore.Store {
	return b.store
}

// Subscribe binds users/<userID>/<collection>. With an empty userID the
// subscription is inert: it stays empty and loading and holds no store
// subscription.
func (b *Binder) Subscribe(ctx context.Context, userID, collection string) *Subscription {
	if userID == "" {
		return inert(docstore.UserCollection("", collection))
	}
	return b.SubscribePath(ctx, docstore.UserCollection(userID, collection))
}

// SubscribePath binds any collection path, including top-level ones.
// The subscription is released by Close or when ctx is cancelled.
func (b *Binder) SubscribePath(ctx context.Context, path docstore.Path) *Subscription {
	if err := path.Validate(); err != nil {
		b.logger.Warn("refusing to subscribe", "path", path, "err", err)
		return inert(path)
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		path:      path,
		binder:    b,
		loading:   true,
		listeners: make(map[int]func([]docstore.Record)),
		kick:      make(chan struct{}, 1),
		loaded:    make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	// Exactly one store subscription per Subscription.
	s.release = b.store.Subscribe(path, func(docstore.Change) { s.Refresh() })

	go s.run()
	return s
}

// Write upserts value at users/<userID>/<collection>/<id>. It is a no-op
// when userID is empty.
func (b *Binder) Write(ctx context.Context, userID, collection, id string, value docstore.Record) error {
	if userID == "" {
		return nil
	}
	return b.WritePath(ctx, docstore.UserCollection(userID, collection), id, value)
}

// WritePath upserts value at (path, id).
func (b *Binder) WritePath(ctx context.Context, path docstore.Path, id string, value docstore.Record) error {
	if err := b.store.Set(ctx, path, id, value); err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", path, id, err)
	}
	return nil
}

// Delete removes users/<userID>/<collection>/<id>. No-op when userID is empty.
func (b *Binder) Delete(ctx context.Context, userID, collection, id string) error {
	if userID == "" {
		return nil
	}
	return b.DeletePath(ctx, docstore.UserCollection(userID, collection), id)
}

// DeletePath removes (path, id).
func (b *Binder) DeletePath(ctx context.Context, path docstore.Path, id string) error {
	if err := b.store.Delete(ctx, path, id); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", path, id, err)
	}
	return nil
}

// Persist writes in the background and logs failures.
func (b *Binder) Persist(userID, collection, id string, value docstore.Record) {
	if userID == "" {
		return
	}
	b.PersistPath(docstore.UserCollection(userID, collection), id, value)
}

// PersistPath is Persist for any path.
func (b *Binder) PersistPath(path docstore.Path, id string, value docstore.Record) {
	value = value.Clone()
	b.background("write", path, id, func(ctx context.Context) error {
		return b.WritePath(ctx, path, id, value)
	})
}

// Remove deletes in the background and logs failures.
func (b *Binder) Remove(userID, collection, id string) {
	if userID == "" {
		return
	}
	path := docstore.UserCollection(userID, collection)
	b.background("delete", path, id, func(ctx context.Context) error {
		return b.DeletePath(ctx, path, id)
	})
}

func (b *Binder) background(op string, path docstore.Path, id string, fn func(context.Context) error) {
	b.pending.Add(1)
	go func() {
		defer b.pending.Done()
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("background "+op+" panicked", "path", path, "id", id, "panic", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			b.logger.Warn("remote "+op+" failed, keeping local state", "path", path, "id", id, "err", err)
		}
	}()
}

// Wait blocks until every Persist and Remove started so far has finished.
func (b *Binder) Wait() {
	b.pending.Wait()
}
