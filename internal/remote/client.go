package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/websocket"

	"github.com/loveeagles/planner/internal/docstore"
	"github.com/loveeagles/planner/internal/logger"
)

// Client is a docstore.Store backed by a remote Server.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger *log.Logger

	// Reconnect backoff bounds for watch connections.
	minBackoff time.Duration
	maxBackoff time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool
}

var _ docstore.Store = (*Client)(nil)

// NewClient creates a client for the server at baseURL (http or https).
func NewClient(baseURL string, timeout time.Duration, l *log.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid remote url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("remote url must be http or https (got %q)", baseURL)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		base:       u,
		http:       &http.Client{Timeout: timeout},
		logger:     logger.Named(l, "remote-client"),
		minBackoff: 250 * time.Millisecond,
		maxBackoff: 10 * time.Second,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

func (c *Client) endpoint(p string, path docstore.Path) string {
	u := *c.base
	u.Path = c.base.Path + p
	if !path.IsZero() {
		u.RawQuery = url.Values{"path": {path.String()}}.Encode()
	}
	return u.String()
}

func docEndpoint(id string) string {
	return "/v1/docs/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, method, target string, body any) (*http.Response, error) {
	if c.closed.Load() {
		return nil, docstore.ErrClosed
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", method, target, err)
	}
	return resp, nil
}

func decodeError(resp *http.Response) error {
	var e errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error == "" {
		return fmt.Errorf("remote returned %s", resp.Status)
	}
	return fmt.Errorf("remote returned %s: %s", resp.Status, e.Error)
}

// Set upserts value at (path, id).
func (c *Client) Set(ctx context.Context, path docstore.Path, id string, value docstore.Record) error {
	if err := path.Validate(); err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	if id == "" {
		return errors.New("document id is required")
	}
	if value == nil {
		value = docstore.Record{}
	}
	resp, err := c.do(ctx, http.MethodPut, c.endpoint(docEndpoint(id), path), value)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to set %s/%s: %w", path, id, decodeError(resp))
	}
	return nil
}

// Get returns the document at (path, id) or docstore.ErrNotFound.
func (c *Client) Get(ctx context.Context, path docstore.Path, id string) (docstore.Record, error) {
	if err := path.Validate(); err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	resp, err := c.do(ctx, http.MethodGet, c.endpoint(docEndpoint(id), path), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, docstore.ErrNotFound
	default:
		return nil, fmt.Errorf("failed to get %s/%s: %w", path, id, decodeError(resp))
	}

	var rec docstore.Record
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode %s/%s: %w", path, id, err)
	}
	return rec, nil
}

// Delete removes the document at (path, id). Idempotent.
func (c *Client) Delete(ctx context.Context, path docstore.Path, id string) error {
	if err := path.Validate(); err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	resp, err := c.do(ctx, http.MethodDelete, c.endpoint(docEndpoint(id), path), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to delete %s/%s: %w", path, id, decodeError(resp))
	}
	return nil
}

// List returns every document under path in arrival order.
func (c *Client) List(ctx context.Context, path docstore.Path) ([]docstore.Record, error) {
	if err := path.Validate(); err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	resp, err := c.do(ctx, http.MethodGet, c.endpoint("/v1/docs", path), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to list %s: %w", path, decodeError(resp))
	}

	var body ListResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return body.Records, nil
}

// Health pings the server.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, c.endpoint("/health", docstore.Path{}), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	return nil
}

func (c *Client) watchURL(path docstore.Path) string {
	u := *c.base
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = c.base.Path + "/v1/watch"
	if !path.IsZero() {
		u.RawQuery = url.Values{"path": {path.String()}}.Encode()
	}
	return u.String()
}

// Subscribe opens a watch connection for path and calls fn for every
// change, in the order the server sent them. The connection is re-dialled
// with backoff after failures. Every successful dial is announced as an
// OpExternal change since notifications may have been missed before it.
//
// fn must not call the returned cancel func.
func (c *Client) Subscribe(path docstore.Path, fn func(docstore.Change)) (cancel func()) {
	if c.closed.Load() {
		return func() {}
	}

	ctx, stop := context.WithCancel(c.ctx)
	w := &watch{client: c, path: path, fn: fn, active: true}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		w.run(ctx)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			w.active = false
			w.mu.Unlock()
			stop()
		})
	}
}

type watch struct {
	client *Client
	path   docstore.Path
	fn     func(docstore.Change)

	mu     sync.Mutex
	active bool
}

func (w *watch) deliver(ch docstore.Change) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.active {
		w.fn(ch)
	}
}

func (w *watch) run(ctx context.Context) {
	backoff := w.client.minBackoff
	for {
		err := w.session(ctx)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			backoff = w.client.minBackoff
		} else {
			w.client.logger.Warn("watch disconnected", "path", w.path, "err", err, "retry_in", backoff)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > w.client.maxBackoff {
			backoff = w.client.maxBackoff
		}
	}
}

// session runs one watch connection until it fails. It returns nil if the
// connection was established at least once before failing.
func (w *watch) session(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, w.client.watchURL(w.path), nil)
	if err != nil {
		return fmt.Errorf("failed to dial watch: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	w.deliver(docstore.Change{Op: docstore.OpExternal})

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return nil
		}
		var msg WatchMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			w.client.logger.Warn("ignoring malformed watch message", "err", err)
			continue
		}
		ch := docstore.Change{Op: msg.Op, ID: msg.ID}
		if msg.Path != "" {
			p, err := docstore.ParsePath(msg.Path)
			if err != nil {
				w.client.logger.Warn("ignoring watch message with bad path", "path", msg.Path)
				continue
			}
			ch.Path = p
		}
		w.deliver(ch)
	}
}

// Close stops every watch connection.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.cancel()
	c.wg.Wait()
	c.http.CloseIdleConnections()
	return nil
}
