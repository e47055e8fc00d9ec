package generate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"gentabs/internal/schema"
)

// Generator turns (context, intent) into a validated app schema by calling
// the completion provider and parsing its output. It holds no session state;
// both operations are pure apart from the outbound network call.
type Generator struct {
	client Client
	locale string
	now    func() time.Time
	log    *zap.Logger
}

// Option customizes a Generator.
type Option func(*Generator)

// WithLocale sets the output locale embedded in the system directive.
func WithLocale(locale string) Option {
	return func(g *Generator) { g.locale = locale }
}

// WithClock overrides the createdAt clock. Tests use this.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(g *Generator) { g.log = log }
}

// New creates a Generator around the given provider client.
func New(client Client, opts ...Option) *Generator {
	g := &Generator{
		client: client,
		locale: DefaultLocale,
		now:    time.Now,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Create generates a fresh app schema from the context items and the user
// instruction. The model's own createdAt, if any, is discarded and replaced
// with the local clock.
func (g *Generator) Create(ctx context.Context, items []schema.ContextItem, instruction string) (*schema.AppSchema, error) {
	if g.client == nil {
		return nil, ErrConfigMissing
	}

	g.log.Info("generating app schema",
		zap.Int("context_items", len(items)),
		zap.Int("instruction_len", len(instruction)))

	text, err := g.client.CompleteWithSystem(ctx, systemDirective(g.locale), createPrompt(items, instruction))
	if err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}

	return g.parse(text)
}

// Refine produces a complete replacement schema from the current schema, the
// full chat history, and a new instruction. The provider is expected to keep
// the same type unless the instruction implies otherwise; that expectation is
// not enforced here.
func (g *Generator) Refine(ctx context.Context, current *schema.AppSchema, history []schema.Message, instruction string) (*schema.AppSchema, error) {
	if g.client == nil {
		return nil, ErrConfigMissing
	}

	prompt, err := refinePrompt(current, history, instruction)
	if err != nil {
		return nil, err
	}

	g.log.Info("refining app schema",
		zap.String("type", string(current.Type)),
		zap.Int("history_len", len(history)),
		zap.Int("instruction_len", len(instruction)))

	text, err := g.client.CompleteWithSystem(ctx, systemDirective(g.locale), prompt)
	if err != nil {
		return nil, fmt.Errorf("refine: %w", err)
	}

	return g.parse(text)
}

// parse applies the shared output handling: empty check, strict JSON parse,
// createdAt restamp. A refreshed createdAt forces downstream consumers to
// treat the result as new.
func (g *Generator) parse(text string) (*schema.AppSchema, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrEmptyResponse
	}

	s, err := schema.Parse([]byte(trimmed))
	if err != nil {
		g.log.Warn("provider output did not parse", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	s.CreatedAt = g.now()
	return s, nil
}
