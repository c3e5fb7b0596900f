package ai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/loveeagles/planner/internal/logger"
)

// OpenAI-compatible defaults (Groq).
const (
	DefaultOpenAIBaseURL = "https://api.groq.com/openai/v1"
	DefaultOpenAIModel   = "llama-3.1-8b-instant"
)

// OpenAICompleter calls an OpenAI-compatible chat completions endpoint.
type OpenAICompleter struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
	logger  *log.Logger
}

// NewOpenAICompleter creates a completer from cfg.
func NewOpenAICompleter(cfg Config, l *log.Logger) *OpenAICompleter {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultOpenAIBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAICompleter{
		baseURL: base,
		apiKey:  cfg.APIKey,
		model:   model,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logger.Named(l, "ai.openai"),
	}
}

func buildChatBody(req Request) ([]byte, error) {
	body := []byte(`{}`)
	var err error
	set := func(path string, v any) {
		if err == nil {
			body, err = sjson.SetBytes(body, path, v)
		}
	}
	set("model", req.Model)
	for i, m := range req.Messages {
		set(fmt.Sprintf("messages.%d.role", i), m.Role)
		set(fmt.Sprintf("messages.%d.content", i), m.Content)
	}
	set("temperature", req.Temperature)
	set("max_tokens", req.MaxTokens)
	return body, err
}

// Complete posts req to <base>/chat/completions.
func (o *OpenAICompleter) Complete(ctx context.Context, req Request) (string, error) {
	req = withDefaults(req, o.model)
	body, err := buildChatBody(req)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to complete: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(data, "error.message").String()
		if msg == "" {
			msg = "API error"
		}
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, msg)
	}

	content := gjson.GetBytes(data, "choices.0.message.content")
	if !content.Exists() || content.String() == "" {
		return "", fmt.Errorf("response has no content")
	}
	o.logger.Debug("completion", "model", req.Model, "chars", len(content.String()))
	return content.String(), nil
}
