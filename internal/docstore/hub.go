package docstore

import (
	"sync"

	"github.com/charmbracelet/log"
)

// hub fans changes out to subscribers on a single goroutine, so every
// subscriber observes changes in publish order.
type hub struct {
	logger *log.Logger

	mu      sync.Mutex
	subs    map[int]*subscriber
	nextID  int
	pending []Change
	closed  bool

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

type subscriber struct {
	path Path
	fn   func(Change)

	// mu is held while fn runs; cancel takes it so fn never runs after
	// cancel returns.
	mu     sync.Mutex
	active bool
}

func newHub(l *log.Logger) *hub {
	h := &hub{
		logger: l,
		subs:   make(map[int]*subscriber),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	h.wg.Add(1)
	go h.run()
	return h
}

func (h *hub) subscribe(path Path, fn func(Change)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &subscriber{path: path, fn: fn, active: !h.closed}
	if h.closed {
		return func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = sub

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()

			sub.mu.Lock()
			sub.active = false
			sub.mu.Unlock()
		})
	}
}

// publish never blocks on subscribers.
func (h *hub) publish(c Change) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.pending = append(h.pending, c)
	h.mu.Unlock()

	select {
	case h.wake <- struct{}{}:
	default:
	}
}

func (h *hub) run() {
	defer h.wg.Done()
	for {
		select {
		case <-h.done:
			return
		case <-h.wake:
		}

		for {
			h.mu.Lock()
			if len(h.pending) == 0 || h.closed {
				h.mu.Unlock()
				break
			}
			c := h.pending[0]
			h.pending = h.pending[1:]
			targets := make([]*subscriber, 0, len(h.subs))
			for _, sub := range h.subs {
				if c.Matches(sub.path) {
					targets = append(targets, sub)
				}
			}
			h.mu.Unlock()

			for _, sub := range targets {
				h.deliver(sub, c)
			}
		}
	}
}

func (h *hub) deliver(sub *subscriber, c Change) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if !sub.active {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("subscriber panicked", "path", sub.path, "panic", r)
		}
	}()
	sub.fn(c)
}

// close stops dispatch. Pending changes are dropped.
func (h *hub) close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.pending = nil
	h.mu.Unlock()

	close(h.done)
	h.wg.Wait()
}
