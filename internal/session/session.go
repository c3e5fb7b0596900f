// Package session tracks the signed-in identity.
//
// A Provider starts in StatusLoading until Restore resolves the persisted
// identity. Components read CurrentUser and register OnChange listeners;
// there is no package-level state.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/loveeagles/planner/internal/logger"
)

// ErrSignInInProgress is returned when a sign-in starts while another is
// still running.
var ErrSignInInProgress = errors.New("sign-in already in progress")

// Status is the provider's auth state.
type Status int

const (
	StatusLoading Status = iota
	StatusSignedIn
	StatusSignedOut
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusSignedIn:
		return "signed-in"
	case StatusSignedOut:
		return "signed-out"
	default:
		return "unknown"
	}
}

// User is a signed-in identity.
type User struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName,omitempty"`
	Anonymous   bool      `json:"anonymous"`
	SignedInAt  time.Time `json:"signedInAt"`
}

// Provider owns the current identity.
type Provider struct {
	creds  CredentialStore
	logger *log.Logger
	now    func() time.Time

	mu        sync.Mutex
	user      *User
	status    Status
	signingIn bool
	listeners map[int]func(*User)
	nextID    int
}

// NewProvider creates a provider backed by creds. Call Restore before
// reading the user.
func NewProvider(creds CredentialStore, l *log.Logger) *Provider {
	return &Provider{
		creds:     creds,
		logger:    logger.Named(l, "session"),
		now:       time.Now,
		status:    StatusLoading,
		listeners: make(map[int]func(*User)),
	}
}

// CurrentUser returns a copy of the signed-in user, or nil.
func (p *Provider) CurrentUser() *User {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.user == nil {
		return nil
	}
	u := *p.user
	return &u
}

// UserID returns the signed-in user's id, or "".
func (p *Provider) UserID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.user == nil {
		return ""
	}
	return p.user.ID
}

// Status returns the current auth state.
func (p *Provider) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// OnChange registers fn to run after every identity change with the new
// user (nil when signed out).
func (p *Provider) OnChange(fn func(*User)) (unsubscribe func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

// set updates state and notifies listeners outside the lock.
func (p *Provider) set(u *User, status Status) {
	p.mu.Lock()
	p.user = u
	p.status = status
	fns := make([]func(*User), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		var cp *User
		if u != nil {
			c := *u
			cp = &c
		}
		fn(cp)
	}
}

// Restore resolves the persisted identity. A missing or corrupt payload
// leaves the provider signed out.
func (p *Provider) Restore(ctx context.Context) error {
	payload, err := p.creds.Load()
	if errors.Is(err, ErrNoCredentials) {
		p.set(nil, StatusSignedOut)
		return nil
	}
	if err != nil {
		p.set(nil, StatusSignedOut)
		return fmt.Errorf("failed to restore session: %w", err)
	}

	var u User
	if err := json.Unmarshal([]byte(payload), &u); err != nil || u.ID == "" {
		p.logger.Warn("discarding unreadable stored identity", "err", err)
		_ = p.creds.Clear()
		p.set(nil, StatusSignedOut)
		return nil
	}
	p.logger.Debug("session restored", "user", u.ID, "anonymous", u.Anonymous)
	p.set(&u, StatusSignedIn)
	return nil
}

// SignIn signs in as the named user. The user id is derived from the name
// so the same name maps to the same collections on every device.
func (p *Provider) SignIn(ctx context.Context, name string) (*User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("name is required")
	}
	return p.signIn(ctx, &User{ID: UserIDForName(name), DisplayName: name})
}

// SignInAnonymously signs in with a fresh random id.
func (p *Provider) SignInAnonymously(ctx context.Context) (*User, error) {
	return p.signIn(ctx, &User{ID: uuid.NewString(), Anonymous: true})
}

func (p *Provider) signIn(ctx context.Context, u *User) (*User, error) {
	p.mu.Lock()
	if p.signingIn {
		p.mu.Unlock()
		return nil, ErrSignInInProgress
	}
	p.signingIn = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.signingIn = false
		p.mu.Unlock()
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	u.SignedInAt = p.now().UTC()
	payload, err := json.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("failed to encode identity: %w", err)
	}
	if err := p.creds.Save(string(payload)); err != nil {
		return nil, fmt.Errorf("failed to persist identity: %w", err)
	}

	p.logger.Info("signed in", "user", u.ID, "anonymous", u.Anonymous)
	p.set(u, StatusSignedIn)
	c := *u
	return &c, nil
}

// SignOut clears the persisted identity.
func (p *Provider) SignOut(ctx context.Context) error {
	if err := p.creds.Clear(); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	p.set(nil, StatusSignedOut)
	return nil
}

// UserIDForName returns the stable user id for a display name.
func UserIDForName(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("planner:"+strings.ToLower(strings.TrimSpace(name)))).String()
}
