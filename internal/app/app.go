// Package app assembles the planner's long-lived services from the resolved
// configuration: logger, identity, document store, binder, mirror,
// autosaver and AI completer. Everything a command or the TUI needs hangs off
// one Context built at startup.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/loveeagles/planner/internal/ai"
	"github.com/loveeagles/planner/internal/autosave"
	"github.com/loveeagles/planner/internal/binder"
	"github.com/loveeagles/planner/internal/config"
	"github.com/loveeagles/planner/internal/docstore"
	"github.com/loveeagles/planner/internal/logger"
	"github.com/loveeagles/planner/internal/mirror"
	"github.com/loveeagles/planner/internal/modules"
	"github.com/loveeagles/planner/internal/records"
	"github.com/loveeagles/planner/internal/remote"
	"github.com/loveeagles/planner/internal/session"
)

// CredentialService is the keyring service name for stored identities.
const CredentialService = "planner"

// externalDebounce batches writes made by other processes.
const externalDebounce = 200 * time.Millisecond

// Context owns the application services.
type Context struct {
	Config  *config.Config
	Logger  *log.Logger
	Session *session.Provider
	Store   docstore.Store
	Binder  *binder.Binder
	Mirror  *mirror.Store
	Saver   *autosave.Saver
	AI      ai.Completer

	// Local is the SQL store when no remote URL is configured.
	Local *docstore.SQLStore

	watcher   *docstore.ExternalWatcher
	logCloser io.Closer
	clock     func() time.Time
}

type options struct {
	logger *log.Logger
	creds  session.CredentialStore
	clock  func() time.Time
}

// Option customizes NewContext.
type Option func(*options)

// WithLogger uses l instead of building a logger from the config.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithCredentials overrides the identity store.
func WithCredentials(c session.CredentialStore) Option {
	return func(o *options) { o.creds = c }
}

// WithClock overrides the clock handed to modules.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// NewContext builds every service and restores the persisted identity.
// On error, whatever was already opened is closed again.
func NewContext(ctx context.Context, cfg *config.Config, opts ...Option) (_ *Context, err error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	c := &Context{Config: cfg, clock: o.clock}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	if o.logger != nil {
		c.Logger = o.logger
	} else {
		l, closer, err := logger.New(logger.Config{Debug: cfg.Log.Debug, File: cfg.LogFile()})
		if err != nil {
			return nil, fmt.Errorf("failed to open log: %w", err)
		}
		c.Logger, c.logCloser = l, closer
	}

	if c.Store, err = c.openStore(ctx); err != nil {
		return nil, err
	}
	c.Binder = binder.New(c.Store, c.Logger)
	c.Saver = autosave.New(c.Store, c.Logger)

	if c.Mirror, err = mirror.Open(cfg.MirrorDir(), cfg.Mirror.MaxBytes, c.Logger); err != nil {
		return nil, fmt.Errorf("failed to open mirror: %w", err)
	}

	if c.AI, err = ai.New(ai.Config{
		Provider: cfg.AI.Provider,
		Model:    cfg.AI.Model,
		APIKey:   cfg.AI.APIKey,
		BaseURL:  cfg.AI.BaseURL,
		Timeout:  cfg.AI.Timeout,
	}, c.Logger); err != nil {
		c.Logger.Warn("ai disabled", "err", err)
		c.AI = ai.Disabled{}
	}

	creds := o.creds
	if creds == nil {
		creds = session.DefaultCredentialStore(CredentialService, cfg.DataDir)
	}
	c.Session = session.NewProvider(creds, c.Logger)
	if err := c.Session.Restore(ctx); err != nil {
		c.Logger.Warn("starting signed out", "err", err)
	}
	return c, nil
}

// openStore connects to the configured remote server or opens the local
// SQL store.
func (c *Context) openStore(ctx context.Context) (docstore.Store, error) {
	cfg := c.Config
	if cfg.Remote.URL != "" {
		client, err := remote.NewClient(cfg.Remote.URL, cfg.Remote.Timeout, c.Logger)
		if err != nil {
			return nil, err
		}
		if err := client.Health(ctx); err != nil {
			c.Logger.Warn("remote store unreachable, working from the mirror", "url", cfg.Remote.URL, "err", err)
		}
		return client, nil
	}

	local, err := docstore.OpenContext(ctx, cfg.DBPath(), c.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	c.Local = local
	if cfg.Store.WatchExternal && local.Dialect() == docstore.DialectSQLite {
		w, err := docstore.NewExternalWatcher(local, externalDebounce, c.Logger)
		if err != nil {
			c.Logger.Warn("external change watching disabled", "err", err)
		} else if err := w.Start(); err != nil {
			c.Logger.Warn("external change watching disabled", "err", err)
		} else {
			c.watcher = w
		}
	}
	return local, nil
}

// Env returns the module environment for the current identity.
func (c *Context) Env() modules.Env {
	env := modules.Env{
		Binder:        c.Binder,
		Mirror:        c.Mirror,
		Saver:         c.Saver,
		AI:            c.AI,
		Logger:        c.Logger,
		AutosaveDelay: c.Config.Autosave.Delay,
		Clock:         c.clock,
	}
	if u := c.Session.CurrentUser(); u != nil {
		env.UserID = u.ID
		env.UserName = u.DisplayName
		if env.UserName == "" {
			env.UserName = "Guest"
		}
	}
	return env
}

// Open opens the named module for the current identity.
func (c *Context) Open(ctx context.Context, name string) (modules.Module, error) {
	return modules.Open(ctx, name, c.Env())
}

// TrackActivity feeds planner completions and finished study sessions into
// the streak counters. Failures are logged; the returned func detaches.
func (c *Context) TrackActivity(ctx context.Context, p *modules.Planner, t *modules.Timer, s *modules.Streak) (detach func()) {
	l := logger.Named(c.Logger, "activity")
	var unsubs []func()
	if p != nil {
		unsubs = append(unsubs, p.OnAssignmentCompleted(func() {
			if _, err := s.TaskCompleted(ctx); err != nil && !errors.Is(err, modules.ErrSignedOut) {
				l.Warn("failed to count completed task", "err", err)
			}
		}))
	}
	if t != nil {
		unsubs = append(unsubs, t.OnSessionEnded(func(sess records.StudySession) {
			if _, err := s.AddTime(ctx, sess.Duration/60); err != nil && !errors.Is(err, modules.ErrSignedOut) {
				l.Warn("failed to add study time", "err", err)
			}
		}))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// Close waits for in-flight writes, then releases every service. Pending
// autosave timers are cancelled without flushing.
func (c *Context) Close() error {
	if c.Binder != nil {
		c.Binder.Wait()
	}
	if c.Saver != nil {
		c.Saver.Close()
		c.Saver.Wait()
	}
	var errs []error
	if c.watcher != nil {
		errs = append(errs, c.watcher.Stop())
	}
	if c.Store != nil {
		errs = append(errs, c.Store.Close())
	}
	if c.logCloser != nil {
		errs = append(errs, c.logCloser.Close())
	}
	return errors.Join(errs...)
}
