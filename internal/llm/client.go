// Package llm is the gateway analysts use to get structured JSON out of a chat model.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

var ErrMalformedJSON = errors.New("llm: response is not a JSON object")

// ServiceError is returned once every attempt against the model has failed.
type ServiceError struct {
	Model    string
	Attempts int
	Cause    error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("llm %s failed after %d attempt(s): %v", e.Model, e.Attempts, e.Cause)
}

func (e *ServiceError) Unwrap() error { return e.Cause }

// Generator is the subset of an eino chat model the gateway needs.
type Generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

type Gateway struct {
	gen         Generator
	model       string
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	logger      *zap.Logger
	sleep       func(ctx context.Context, d time.Duration) error
}

type Option func(*Gateway)

func WithModelName(name string) Option {
	return func(g *Gateway) { g.model = name }
}

func WithMaxAttempts(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

func WithBackoff(base, max time.Duration) Option {
	return func(g *Gateway) {
		g.baseDelay, g.maxDelay = base, max
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

func NewGateway(gen Generator, opts ...Option) *Gateway {
	g := &Gateway{
		gen:         gen,
		model:       "chat",
		maxAttempts: 3,
		baseDelay:   500 * time.Millisecond,
		maxDelay:    3 * time.Second,
		logger:      zap.NewNop(),
		sleep:       sleepCtx,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.Named("llm")
	return g
}

func (g *Gateway) Model() string { return g.model }

// StructuredJSON sends system/user prompts and returns the JSON object in the reply.
// Transport errors and malformed JSON are both retried with exponential backoff.
func (g *Gateway) StructuredJSON(ctx context.Context, system, user string, temperature float32) (map[string]any, error) {
	var out map[string]any
	err := g.do(ctx, Messages(system, user), temperature, func(raw string) error {
		return decodeObject(raw, &out)
	})
	return out, err
}

// Decode is StructuredJSON into a typed value.
func Decode[T any](ctx context.Context, g *Gateway, system, user string, temperature float32) (T, error) {
	var out T
	err := g.do(ctx, Messages(system, user), temperature, func(raw string) error {
		var v T
		if err := decodeObject(raw, &v); err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func (g *Gateway) do(ctx context.Context, msgs []*schema.Message, temperature float32, parse func(string) error) error {
	if g == nil || g.gen == nil {
		return &ServiceError{Model: "none", Cause: errors.New("no chat model configured")}
	}
	var lastErr error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := g.sleep(ctx, g.backoff(attempt-1)); err != nil {
				return &ServiceError{Model: g.model, Attempts: attempt - 1, Cause: err}
			}
		}
		lastErr = g.once(ctx, msgs, temperature, parse)
		if lastErr == nil {
			return nil
		}
		g.logger.Debug("attempt failed",
			zap.String("model", g.model),
			zap.Int("attempt", attempt),
			zap.Error(lastErr))
		if ctx.Err() != nil {
			return &ServiceError{Model: g.model, Attempts: attempt, Cause: ctx.Err()}
		}
	}
	return &ServiceError{Model: g.model, Attempts: g.maxAttempts, Cause: lastErr}
}

func (g *Gateway) once(ctx context.Context, msgs []*schema.Message, temperature float32, parse func(string) error) error {
	resp, err := g.gen.Generate(ctx, msgs, model.WithTemperature(temperature))
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	if resp == nil {
		return fmt.Errorf("generate: empty response")
	}
	return parse(resp.Content)
}

func (g *Gateway) backoff(retry int) time.Duration {
	d := g.baseDelay << (retry - 1)
	if d <= 0 || d > g.maxDelay {
		return g.maxDelay
	}
	return d
}

// ExtractJSON returns the text between the first '{' and the last '}' of s.
func ExtractJSON(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", ErrMalformedJSON
	}
	return s[start : end+1], nil
}

func decodeObject(raw string, v any) error {
	body, err := ExtractJSON(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return nil
}

// Messages builds the two-message conversation every analyst sends.
func Messages(system, user string) []*schema.Message {
	return []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	}
}

// Render formats an FString user template such as "Topic: {topic}" with vars.
func Render(ctx context.Context, userTemplate string, vars map[string]any) (string, error) {
	tpl := prompt.FromMessages(schema.FString, schema.UserMessage(userTemplate))
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	if len(msgs) == 0 {
		return "", fmt.Errorf("render prompt: no output")
	}
	return msgs[0].Content, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
