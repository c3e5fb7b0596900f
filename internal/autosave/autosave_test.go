package autosave

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/loveeagles/planner/internal/docstore"
	"github.com/loveeagles/planner/internal/logger"
)

// recordingStore is an in-memory docstore.Store that records every Set.
// When gateTitle is set, a Set of a record with that title signals entered
// and blocks until gate is closed.
type recordingStore struct {
	mu   sync.Mutex
	docs map[string]docstore.Record
	sets []docstore.Record
	err  error

	gateTitle string
	entered   chan struct{}
	gate      chan struct{}
}

func newRecordingStore() *recordingStore {
	return &recordingStore{docs: make(map[string]docstore.Record)}
}

func newGatedStore(title string) *recordingStore {
	r := newRecordingStore()
	r.gateTitle = title
	r.entered = make(chan struct{}, 1)
	r.gate = make(chan struct{})
	return r
}

// waitEntered blocks until the gated Set has started.
func (r *recordingStore) waitEntered(t *testing.T) {
	t.Helper()
	select {
	case <-r.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("gated Set never started")
	}
}

func (r *recordingStore) key(p docstore.Path, id string) string { return p.String() + "/" + id }

func (r *recordingStore) Set(_ context.Context, p docstore.Path, id string, v docstore.Record) error {
	if r.gate != nil && v["title"] == r.gateTitle {
		r.entered <- struct{}{}
		<-r.gate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	rec := v.Clone()
	rec["id"] = id
	r.docs[r.key(p, id)] = rec
	r.sets = append(r.sets, rec)
	return nil
}

func (r *recordingStore) Get(_ context.Context, p docstore.Path, id string) (docstore.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.docs[r.key(p, id)]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return rec.Clone(), nil
}

func (r *recordingStore) Delete(_ context.Context, p docstore.Path, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, r.key(p, id))
	return nil
}

func (r *recordingStore) List(context.Context, docstore.Path) ([]docstore.Record, error) {
	return nil, nil
}

func (r *recordingStore) Subscribe(docstore.Path, func(docstore.Change)) func() { return func() {} }
func (r *recordingStore) Close() error                                           { return nil }

func (r *recordingStore) setCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sets)
}

func (r *recordingStore) lastSet() docstore.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sets) == 0 {
		return nil
	}
	return r.sets[len(r.sets)-1]
}

func waitState(t *testing.T, s *Saver, uid, kind string, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.State(uid, kind) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("State() = %s, want %s", s.State(uid, kind), want)
}

func TestSchedule_OnlyLatestValuePersists(t *testing.T) {
	store := newRecordingStore()
	s := New(store, logger.Discard())
	defer s.Close()

	s.Schedule("u1", "note", docstore.Record{"title": "v1"}, 50*time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	s.Schedule("u1", "note", docstore.Record{"title": "v2"}, 50*time.Millisecond)

	if s.State("u1", "note") != Pending {
		t.Errorf("State() = %s, want pending", s.State("u1", "note"))
	}
	waitState(t, s, "u1", "note", Idle)
	s.Wait()

	if got := store.setCount(); got != 1 {
		t.Fatalf("writes = %d, want 1", got)
	}
	rec := store.lastSet()
	if rec["title"] != "v2" {
		t.Errorf("title = %v, want v2", rec["title"])
	}
	if rec["id"] != "u1_note" {
		t.Errorf("id = %v, want u1_note", rec["id"])
	}
	if rec[FieldUserID] != "u1" {
		t.Errorf("userId = %v, want u1", rec[FieldUserID])
	}
	if _, ok := rec[FieldUpdatedAt].(string); !ok {
		t.Errorf("updatedAt missing: %v", rec)
	}
}

func TestSchedule_NoOps(t *testing.T) {
	store := newRecordingStore()
	s := New(store, logger.Discard())
	defer s.Close()

	s.Schedule("", "note", docstore.Record{"title": "x"}, time.Millisecond)
	s.Schedule("u1", "note", nil, time.Millisecond)

	if s.State("", "note") != Idle || s.State("u1", "note") != Idle {
		t.Error("no-op schedules created pending state")
	}
	time.Sleep(30 * time.Millisecond)
	if store.setCount() != 0 {
		t.Errorf("writes = %d, want 0", store.setCount())
	}
}

func TestSchedule_SnapshotsValue(t *testing.T) {
	store := newRecordingStore()
	s := New(store, logger.Discard())
	defer s.Close()

	v := docstore.Record{"title": "before"}
	s.Schedule("u1", "journal", v, 20*time.Millisecond)
	v["title"] = "after"

	waitState(t, s, "u1", "journal", Idle)
	s.Wait()
	if got := store.lastSet()["title"]; got != "before" {
		t.Errorf("title = %v, want before", got)
	}
}

func TestSchedule_KindsAreIndependent(t *testing.T) {
	store := newRecordingStore()
	s := New(store, logger.Discard())
	defer s.Close()

	s.Schedule("u1", "note", docstore.Record{"a": 1.0}, 20*time.Millisecond)
	s.Schedule("u1", "journal", docstore.Record{"b": 2.0}, 20*time.Millisecond)

	waitState(t, s, "u1", "note", Idle)
	waitState(t, s, "u1", "journal", Idle)
	s.Wait()
	if store.setCount() != 2 {
		t.Errorf("writes = %d, want 2", store.setCount())
	}
}

func TestCancel_DropsPending(t *testing.T) {
	store := newRecordingStore()
	s := New(store, logger.Discard())
	defer s.Close()

	s.Schedule("u1", "note", docstore.Record{"title": "x"}, 30*time.Millisecond)
	s.Cancel("u1", "note")
	if s.State("u1", "note") != Idle {
		t.Errorf("State() = %s after Cancel, want idle", s.State("u1", "note"))
	}
	time.Sleep(60 * time.Millisecond)
	if store.setCount() != 0 {
		t.Errorf("writes = %d after Cancel, want 0", store.setCount())
	}
}

func TestClose_NoFlush(t *testing.T) {
	store := newRecordingStore()
	s := New(store, logger.Discard())

	s.Schedule("u1", "note", docstore.Record{"title": "x"}, 30*time.Millisecond)
	s.Close()
	s.Schedule("u1", "note", docstore.Record{"title": "y"}, time.Millisecond)

	time.Sleep(60 * time.Millisecond)
	if store.setCount() != 0 {
		t.Errorf("writes = %d after Close, want 0", store.setCount())
	}
}

func TestFlush_WritesImmediately(t *testing.T) {
	store := newRecordingStore()
	s := New(store, logger.Discard())
	defer s.Close()

	if err := s.Flush("u1", "note"); err != nil {
		t.Errorf("Flush() with nothing pending error = %v", err)
	}

	s.Schedule("u1", "note", docstore.Record{"title": "x"}, time.Hour)
	if _, ok := s.Deadline("u1", "note"); !ok {
		t.Error("Deadline() reported nothing pending")
	}
	if err := s.Flush("u1", "note"); err != nil {
		t.Fatalf("Flush() failed: %v", err)
	}
	if store.setCount() != 1 {
		t.Errorf("writes = %d, want 1", store.setCount())
	}
	if s.State("u1", "note") != Idle {
		t.Errorf("State() = %s after Flush, want idle", s.State("u1", "note"))
	}
}

func TestFlushFailure_ReturnsToIdle(t *testing.T) {
	store := newRecordingStore()
	store.err = errors.New("offline")
	s := New(store, logger.Discard())
	defer s.Close()

	s.Schedule("u1", "note", docstore.Record{"title": "x"}, 10*time.Millisecond)
	waitState(t, s, "u1", "note", Idle)
	s.Wait()
	if store.setCount() != 0 {
		t.Errorf("writes = %d, want 0", store.setCount())
	}
}

func TestLoadLatestAndDiscard(t *testing.T) {
	store := newRecordingStore()
	s := New(store, logger.Discard())
	defer s.Close()
	ctx := context.Background()

	if rec, err := s.LoadLatest(ctx, "", "note"); rec != nil || err != nil {
		t.Errorf("LoadLatest() with no user = %v, %v; want nil, nil", rec, err)
	}
	if rec, err := s.LoadLatest(ctx, "u1", "note"); rec != nil || err != nil {
		t.Errorf("LoadLatest() with no draft = %v, %v; want nil, nil", rec, err)
	}

	s.Schedule("u1", "note", docstore.Record{"title": "draft"}, time.Hour)
	if err := s.Flush("u1", "note"); err != nil {
		t.Fatalf("Flush() failed: %v", err)
	}

	rec, err := s.LoadLatest(ctx, "u1", "note")
	if err != nil {
		t.Fatalf("LoadLatest() failed: %v", err)
	}
	payload := StripMeta(rec)
	if len(payload) != 1 || payload["title"] != "draft" {
		t.Errorf("StripMeta(LoadLatest()) = %v, want {title: draft}", payload)
	}

	if err := s.Discard(ctx, "u1", "note"); err != nil {
		t.Fatalf("Discard() failed: %v", err)
	}
	if rec, _ := s.LoadLatest(ctx, "u1", "note"); rec != nil {
		t.Errorf("LoadLatest() after Discard = %v, want nil", rec)
	}
}

func TestSchedule_WhileFlushingKeepsLatest(t *testing.T) {
	store := newGatedStore("v1")
	s := New(store, logger.Discard())
	defer s.Close()
	ctx := context.Background()

	s.Schedule("u1", "note", docstore.Record{"title": "v1"}, 10*time.Millisecond)
	store.waitEntered(t)
	if got := s.State("u1", "note"); got != Flushing {
		t.Fatalf("State() = %s, want flushing", got)
	}

	// v2's timer fires while v1 is still being written.
	s.Schedule("u1", "note", docstore.Record{"title": "v2"}, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	if got := store.setCount(); got != 0 {
		t.Fatalf("writes = %d while v1 is in flight, want 0", got)
	}

	close(store.gate)
	waitState(t, s, "u1", "note", Idle)
	s.Wait()

	rec, err := s.LoadLatest(ctx, "u1", "note")
	if err != nil {
		t.Fatalf("LoadLatest() failed: %v", err)
	}
	if rec["title"] != "v2" {
		t.Errorf("stored title = %v, want v2", rec["title"])
	}
	if got := store.setCount(); got != 2 {
		t.Errorf("writes = %d, want 2", got)
	}
}

func TestFlush_SkipsOlderGeneration(t *testing.T) {
	store := newRecordingStore()
	s := New(store, logger.Discard())
	defer s.Close()

	s.Schedule("u1", "note", docstore.Record{"title": "v2"}, time.Hour)
	if err := s.Flush("u1", "note"); err != nil {
		t.Fatalf("Flush() failed: %v", err)
	}

	// An older generation arriving late must not overwrite v2.
	wrote, err := s.flush(DraftID("u1", "note"), "u1", 0, docstore.Record{"title": "v1"})
	if err != nil {
		t.Fatalf("flush() failed: %v", err)
	}
	if wrote {
		t.Error("flush() wrote an older generation")
	}
	if got := store.lastSet()["title"]; got != "v2" {
		t.Errorf("last written title = %v, want v2", got)
	}
}

func TestDiscard_WhileFlushing(t *testing.T) {
	store := newGatedStore("v1")
	s := New(store, logger.Discard())
	defer s.Close()
	ctx := context.Background()

	s.Schedule("u1", "note", docstore.Record{"title": "v1"}, 10*time.Millisecond)
	store.waitEntered(t)

	done := make(chan error, 1)
	go func() { done <- s.Discard(ctx, "u1", "note") }()

	select {
	case err := <-done:
		t.Fatalf("Discard() returned before the write finished: %v", err)
	case <-time.After(30 * time.Millisecond):
	}

	close(store.gate)
	if err := <-done; err != nil {
		t.Fatalf("Discard() failed: %v", err)
	}
	s.Wait()

	if rec, err := s.LoadLatest(ctx, "u1", "note"); rec != nil || err != nil {
		t.Errorf("LoadLatest() after Discard = %v, %v; want nil, nil", rec, err)
	}
	if got := s.State("u1", "note"); got != Idle {
		t.Errorf("State() = %s after Discard, want idle", got)
	}
}

func TestDiscard_SkipsQueuedWrite(t *testing.T) {
	store := newGatedStore("v1")
	s := New(store, logger.Discard())
	defer s.Close()
	ctx := context.Background()

	s.Schedule("u1", "note", docstore.Record{"title": "v1"}, 10*time.Millisecond)
	store.waitEntered(t)
	// v2 queues behind v1, then the draft is discarded.
	s.Schedule("u1", "note", docstore.Record{"title": "v2"}, 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- s.Discard(ctx, "u1", "note") }()
	time.Sleep(10 * time.Millisecond)
	close(store.gate)
	if err := <-done; err != nil {
		t.Fatalf("Discard() failed: %v", err)
	}
	s.Wait()

	if rec, _ := s.LoadLatest(ctx, "u1", "note"); rec != nil {
		t.Errorf("LoadLatest() after Discard = %v, want nil", rec)
	}
}

func TestDraftID(t *testing.T) {
	if got := DraftID("abc", "journal"); got != "abc_journal" {
		t.Errorf("DraftID() = %q, want abc_journal", got)
	}
}
