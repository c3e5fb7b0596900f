// Package ai wraps the text-completion services used for quiz generation
// and study coaching.
//
// Callers never depend on a completion succeeding: every helper in this
// package degrades to deterministic output when the service is missing,
// fails, or answers in an unexpected shape.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a completion request.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Defaults applied by the completers when a Request leaves them zero.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 500
	DefaultTimeout     = 30 * time.Second
)

// Completer produces a completion for a request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ErrNotConfigured is returned by the disabled completer.
var ErrNotConfigured = errors.New("ai provider not configured")

// Config selects and configures a completer.
type Config struct {
	Provider string // anthropic, openai, none
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
}

// New builds the completer for cfg. Provider "none" (or empty) yields a
// completer that always returns ErrNotConfigured.
func New(cfg Config, l *log.Logger) (Completer, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	switch cfg.Provider {
	case "", "none":
		return Disabled{}, nil
	case "anthropic":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic provider requires an api key")
		}
		return NewAnthropicCompleter(cfg, l), nil
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an api key")
		}
		return NewOpenAICompleter(cfg, l), nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}

// Disabled is the completer used when no provider is configured.
type Disabled struct{}

// Complete always fails with ErrNotConfigured.
func (Disabled) Complete(context.Context, Request) (string, error) {
	return "", ErrNotConfigured
}

func withDefaults(req Request, model string) Request {
	if req.Model == "" {
		req.Model = model
	}
	if req.Temperature == 0 {
		req.Temperature = DefaultTemperature
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = DefaultMaxTokens
	}
	return req
}
