package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/google/go-cmp/cmp"

	"github.com/loveeagles/planner/internal/docstore"
	"github.com/loveeagles/planner/internal/logger"
)

// testServer serves a fresh SQLite store through httptest.
func testServer(t *testing.T) (*Server, *httptest.Server, *docstore.SQLStore) {
	t.Helper()
	store, err := docstore.Open(filepath.Join(t.TempDir(), "remote.db"), logger.Discard())
	if err != nil {
		t.Fatalf("docstore.Open() failed: %v", err)
	}
	srv, err := NewServer(&Config{Store: store, Logger: logger.Discard()})
	if err != nil {
		t.Fatalf("NewServer() failed: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		_ = srv.Stop()
		ts.Close()
		store.Close()
	})
	return srv, ts, store
}

func testClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := NewClient(url, 5*time.Second, logger.Discard())
	if err != nil {
		t.Fatalf("NewClient() failed: %v", err)
	}
	c.minBackoff = 10 * time.Millisecond
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNewServer_RequiresStore(t *testing.T) {
	if _, err := NewServer(&Config{}); err == nil {
		t.Error("NewServer() without a store should fail")
	}
}

func TestServerStartStop(t *testing.T) {
	store, err := docstore.Open(filepath.Join(t.TempDir(), "remote.db"), logger.Discard())
	if err != nil {
		t.Fatalf("docstore.Open() failed: %v", err)
	}
	defer store.Close()

	srv, err := NewServer(&Config{Port: 0, Store: store, Logger: logger.Discard()})
	if err != nil {
		t.Fatalf("NewServer() failed: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	if err := srv.Stop(); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
}

func TestClient_CRUD(t *testing.T) {
	_, ts, _ := testServer(t)
	c := testClient(t, ts.URL)
	ctx := context.Background()
	goals := docstore.UserCollection("u1", "goals")

	if err := c.Set(ctx, goals, "g1", docstore.Record{"text": "Read", "progress": 10.0}); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if err := c.Set(ctx, goals, "g2", docstore.Record{"text": "Write"}); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	got, err := c.Get(ctx, goals, "g1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	want := docstore.Record{"id": "g1", "text": "Read", "progress": 10.0}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Get() mismatch (-want +got):\n%s", diff)
	}

	list, err := c.List(ctx, goals)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(list) != 2 || list[0].ID() != "g1" || list[1].ID() != "g2" {
		t.Errorf("List() = %v, want [g1 g2]", list)
	}

	if err := c.Delete(ctx, goals, "g1"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if err := c.Delete(ctx, goals, "g1"); err != nil {
		t.Errorf("second Delete() failed: %v", err)
	}
	if _, err := c.Get(ctx, goals, "g1"); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
}

func TestClient_TopLevelAndEscapedIDs(t *testing.T) {
	_, ts, store := testServer(t)
	c := testClient(t, ts.URL)
	ctx := context.Background()
	drafts := docstore.TopLevel(docstore.CollectionDrafts)

	if err := c.Set(ctx, drafts, "u 1_note", docstore.Record{"title": "x"}); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	rec, err := store.Get(ctx, drafts, "u 1_note")
	if err != nil {
		t.Fatalf("store.Get() failed: %v", err)
	}
	if rec["title"] != "x" {
		t.Errorf("title = %v, want x", rec["title"])
	}
}

func TestServer_BadPath(t *testing.T) {
	_, ts, _ := testServer(t)

	resp, err := http.Get(ts.URL + "/v1/docs?path=users//goals")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	var body errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if body.Error == "" {
		t.Error("error body is empty")
	}
}

func TestServer_WatchPushesChanges(t *testing.T) {
	srv, ts, store := testServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + ts.URL[len("http"):] + "/v1/watch?path=users/u1/goals"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() failed: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Wait until the server has registered the watcher.
	deadline := time.Now().Add(2 * time.Second)
	for srv.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if srv.ClientCount() != 1 {
		t.Fatalf("ClientCount() = %d, want 1", srv.ClientCount())
	}
	// The subscription is registered right after the client is added.
	time.Sleep(50 * time.Millisecond)

	if err := store.Set(ctx, docstore.UserCollection("u2", "goals"), "other", docstore.Record{}); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if err := store.Set(ctx, docstore.UserCollection("u1", "goals"), "g1", docstore.Record{}); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	var msg WatchMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}
	want := WatchMessage{Op: docstore.OpSet, Path: "users/u1/goals", ID: "g1"}
	if msg != want {
		t.Errorf("message = %+v, want %+v", msg, want)
	}
}

func TestClient_Subscribe(t *testing.T) {
	_, ts, store := testServer(t)
	c := testClient(t, ts.URL)
	ctx := context.Background()
	goals := docstore.UserCollection("u1", "goals")

	var (
		mu      sync.Mutex
		changes []docstore.Change
	)
	signal := make(chan struct{}, 16)
	cancel := c.Subscribe(goals, func(ch docstore.Change) {
		mu.Lock()
		changes = append(changes, ch)
		mu.Unlock()
		signal <- struct{}{}
	})
	defer cancel()

	waitFor := func(pred func([]docstore.Change) bool) {
		t.Helper()
		timeout := time.After(3 * time.Second)
		for {
			mu.Lock()
			ok := pred(changes)
			mu.Unlock()
			if ok {
				return
			}
			select {
			case <-signal:
			case <-timeout:
				t.Fatalf("timed out; changes = %+v", changes)
			}
		}
	}

	// The connect announcement arrives first.
	waitFor(func(cs []docstore.Change) bool { return len(cs) >= 1 })
	mu.Lock()
	first := changes[0]
	mu.Unlock()
	if first.Op != docstore.OpExternal {
		t.Errorf("first change = %+v, want external", first)
	}
	// Give the server a moment to register its store subscription.
	time.Sleep(50 * time.Millisecond)

	if err := store.Set(ctx, goals, "g1", docstore.Record{}); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	waitFor(func(cs []docstore.Change) bool {
		for _, c := range cs {
			if c.Op == docstore.OpSet && c.ID == "g1" && c.Path == goals {
				return true
			}
		}
		return false
	})
}

func TestNewClient_InvalidURL(t *testing.T) {
	for _, u := range []string{"ftp://example.com", "::bad"} {
		if _, err := NewClient(u, 0, nil); err == nil {
			t.Errorf("NewClient(%q) succeeded, want error", u)
		}
	}
}
