package binder

import (
	"context"
	"sync"

	"github.com/loveeagles/planner/internal/docstore"
)

// Subscription is a live view of one collection.
type Subscription struct {
	path   docstore.Path
	binder *Binder

	mu        sync.Mutex
	records   []docstore.Record
	loading   bool
	closed    bool
	listeners map[int]func([]docstore.Record)
	nextID    int

	kick    chan struct{}
	loaded  chan struct{}
	release func()
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

func inert(path docstore.Path) *Subscription {
	return &Subscription{
		path:      path,
		loading:   true,
		listeners: make(map[int]func([]docstore.Record)),
	}
}

// Path returns the bound collection.
func (s *Subscription) Path() docstore.Path {
	return s.path
}

// Records returns a copy of the current record list in store order.
func (s *Subscription) Records() []docstore.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRecords(s.records)
}

// Loading reports whether no fetch has succeeded yet.
func (s *Subscription) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// OnChange registers fn to receive every new record list.
func (s *Subscription) OnChange(fn func([]docstore.Record)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Refresh requests a re-fetch. Requests made while one is queued collapse
// into it.
func (s *Subscription) Refresh() {
	if s.kick == nil {
		return
	}
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// WaitLoaded blocks until the first fetch succeeds or ctx is done.
func (s *Subscription) WaitLoaded(ctx context.Context) error {
	if s.loaded == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	select {
	case <-s.loaded:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases the store subscription and waits for the fetch goroutine,
// so listeners are not called after Close returns. Close must not be called
// from a listener.
func (s *Subscription) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *Subscription) run() {
	defer close(s.done)
	defer s.release()

	s.fetch()
	for {
		select {
		case <-s.ctx.Done():
			s.mu.Lock()
			s.closed = true
			s.mu.Unlock()
			return
		case <-s.kick:
			s.fetch()
		}
	}
}

func (s *Subscription) fetch() {
	b := s.binder
	ctx, cancel := context.WithTimeout(s.ctx, b.timeout)
	records, err := b.store.List(ctx, s.path)
	cancel()
	if err != nil {
		if s.ctx.Err() == nil {
			b.logger.Warn("fetch failed, keeping last state", "path", s.path, "err", err)
		}
		return
	}
	if records == nil {
		records = []docstore.Record{}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	first := s.loading
	s.records = records
	s.loading = false
	fns := make([]func([]docstore.Record), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	if first {
		close(s.loaded)
	}

	for _, fn := range fns {
		if s.ctx.Err() != nil {
			return
		}
		fn(cloneRecords(records))
	}
}

func cloneRecords(in []docstore.Record) []docstore.Record {
	out := make([]docstore.Record, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}
