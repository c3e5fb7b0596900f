// Package autosave debounces draft writes to the document store.
//
// Each (user, kind) pair has at most one pending timer. Scheduling again
// before the timer fires replaces both the value and the deadline, so only
// the latest value is persisted. Drafts are stored in the top-level drafts
// collection under id "<userID>_<kind>" with updatedAt and userId fields
// added to the payload.
//
// Writes of one draft are serialized, and a write is skipped when a newer
// value of the same draft has already been written or the draft was
// discarded. Cancel and Close drop pending drafts without writing them, and
// a failed write is logged and not retried.
package autosave

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/loveeagles/planner/internal/docstore"
	"github.com/loveeagles/planner/internal/logger"
)

// DefaultDelay is the debounce delay used when Schedule is given zero.
const DefaultDelay = time.Second

// WriteTimeout bounds each draft write.
const WriteTimeout = 30 * time.Second

// State is the autosave state of one (user, kind) pair.
type State int

const (
	Idle State = iota
	Pending
	Flushing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Flushing:
		return "flushing"
	default:
		return "unknown"
	}
}

// Draft metadata keys added on flush.
const (
	FieldUpdatedAt = "updatedAt"
	FieldUserID    = "userId"
)

var draftsPath = docstore.TopLevel(docstore.CollectionDrafts)

// DraftID returns the document id of a draft.
func DraftID(userID, kind string) string {
	return userID + "_" + kind
}

type draft struct {
	gen      uint64
	state    State
	value    docstore.Record
	userID   string
	timer    *time.Timer
	deadline time.Time
}

// Saver is the debounced draft autosaver.
type Saver struct {
	store  docstore.Store
	logger *log.Logger
	now    func() time.Time

	mu      sync.Mutex
	drafts  map[string]*draft
	nextGen uint64
	closed  bool

	// locks serializes store writes per draft id; written is the newest
	// generation written (or discarded) per draft id.
	locks   map[string]*sync.Mutex
	written map[string]uint64

	inflight sync.WaitGroup
}

// New creates a saver writing to store.
func New(store docstore.Store, l *log.Logger) *Saver {
	return &Saver{
		store:   store,
		logger:  logger.Named(l, "autosave"),
		now:     time.Now,
		drafts:  make(map[string]*draft),
		locks:   make(map[string]*sync.Mutex),
		written: make(map[string]uint64),
	}
}

// Schedule arranges for value to be saved as the (userID, kind) draft after
// delay, replacing any pending value. A zero or negative delay uses
// DefaultDelay. No-op when userID is empty or value is nil.
func (s *Saver) Schedule(userID, kind string, value docstore.Record, delay time.Duration) {
	if userID == "" || value == nil {
		return
	}
	if delay <= 0 {
		delay = DefaultDelay
	}
	key := DraftID(userID, kind)
	snapshot := value.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	d, ok := s.drafts[key]
	if !ok {
		d = &draft{userID: userID}
		s.drafts[key] = d
	}
	if d.timer != nil {
		d.timer.Stop()
	}

	s.nextGen++
	gen := s.nextGen
	d.gen = gen
	d.state = Pending
	d.value = snapshot
	d.deadline = s.now().Add(delay)
	d.timer = time.AfterFunc(delay, func() { s.fire(key, gen) })
}

// fire runs on the timer goroutine.
func (s *Saver) fire(key string, gen uint64) {
	s.mu.Lock()
	d, ok := s.drafts[key]
	if !ok || d.gen != gen || s.closed {
		s.mu.Unlock()
		return
	}
	d.state = Flushing
	d.timer = nil
	value, userID := d.value, d.userID
	s.inflight.Add(1)
	s.mu.Unlock()

	defer s.inflight.Done()
	wrote, err := s.flush(key, userID, gen, value)
	switch {
	case err != nil:
		s.logger.Warn("draft save failed", "draft", key, "err", err)
	case wrote:
		s.logger.Debug("draft saved", "draft", key)
	default:
		s.logger.Debug("stale draft skipped", "draft", key)
	}
}

// writeLock returns the write mutex of a draft id.
func (s *Saver) writeLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// flush writes generation gen of a draft unless a newer generation was
// already written or the draft was discarded. It reports whether it wrote.
func (s *Saver) flush(key, userID string, gen uint64, value docstore.Record) (bool, error) {
	l := s.writeLock(key)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	stale := gen <= s.written[key]
	if !stale {
		s.written[key] = gen
	}
	s.mu.Unlock()

	var err error
	if !stale {
		err = s.write(userID, key, value)
	}

	s.mu.Lock()
	// A newer Schedule owns the entry if the generation moved on.
	if cur, ok := s.drafts[key]; ok && cur.gen == gen {
		delete(s.drafts, key)
	}
	s.mu.Unlock()
	return !stale, err
}

func (s *Saver) write(userID, id string, value docstore.Record) error {
	rec := value.Clone()
	rec[FieldUpdatedAt] = s.now().UTC().Format(time.RFC3339Nano)
	rec[FieldUserID] = userID

	ctx, cancel := context.WithTimeout(context.Background(), WriteTimeout)
	defer cancel()
	if err := s.store.Set(ctx, draftsPath, id, rec); err != nil {
		return fmt.Errorf("failed to save draft %s: %w", id, err)
	}
	return nil
}

// Flush writes the pending (userID, kind) draft immediately. It returns nil
// when nothing is pending.
func (s *Saver) Flush(userID, kind string) error {
	key := DraftID(userID, kind)

	s.mu.Lock()
	d, ok := s.drafts[key]
	if !ok || d.state != Pending {
		s.mu.Unlock()
		return nil
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	gen := d.gen
	d.state = Flushing
	value := d.value
	s.inflight.Add(1)
	s.mu.Unlock()

	defer s.inflight.Done()
	_, err := s.flush(key, userID, gen, value)
	return err
}

// State returns the state of the (userID, kind) pair.
func (s *Saver) State(userID, kind string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.drafts[DraftID(userID, kind)]; ok {
		return d.state
	}
	return Idle
}

// Deadline returns when the pending draft will be written, if any.
func (s *Saver) Deadline(userID, kind string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[DraftID(userID, kind)]
	if !ok || d.state != Pending {
		return time.Time{}, false
	}
	return d.deadline, true
}

// Cancel drops the pending (userID, kind) draft without writing it.
func (s *Saver) Cancel(userID, kind string) {
	key := DraftID(userID, kind)
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[key]
	if !ok || d.state != Pending {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	delete(s.drafts, key)
}

// Close cancels every pending timer without flushing. Writes already in
// progress finish in the background.
func (s *Saver) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for key, d := range s.drafts {
		if d.state == Pending {
			if d.timer != nil {
				d.timer.Stop()
			}
			delete(s.drafts, key)
		}
	}
}

// Wait blocks until in-progress writes finish.
func (s *Saver) Wait() {
	s.inflight.Wait()
}

// LoadLatest returns the stored (userID, kind) draft, or nil when there is
// no user or no draft.
func (s *Saver) LoadLatest(ctx context.Context, userID, kind string) (docstore.Record, error) {
	if userID == "" {
		return nil, nil
	}
	rec, err := s.store.Get(ctx, draftsPath, DraftID(userID, kind))
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	return rec, nil
}

// Discard cancels any pending write, waits for a write in progress and
// deletes the stored draft. Writes of values scheduled before Discard are
// skipped.
func (s *Saver) Discard(ctx context.Context, userID, kind string) error {
	if userID == "" {
		return nil
	}
	key := DraftID(userID, kind)
	s.Cancel(userID, kind)

	l := s.writeLock(key)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	s.written[key] = s.nextGen
	s.mu.Unlock()

	if err := s.store.Delete(ctx, draftsPath, key); err != nil {
		return fmt.Errorf("failed to discard draft: %w", err)
	}
	return nil
}

// StripMeta returns a copy of a loaded draft without store metadata.
func StripMeta(rec docstore.Record) docstore.Record {
	if rec == nil {
		return nil
	}
	out := rec.Clone()
	delete(out, "id")
	delete(out, FieldUpdatedAt)
	delete(out, FieldUserID)
	return out
}
