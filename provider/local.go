package provider

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/rs/zerolog"

	"tandem/engine"
	"tandem/model"
	"tandem/stream"
)

// Local drives an on-device inference engine. The engine guarantees no
// cross-turn memory, so every turn opens a fresh session and replays the
// system prompt, each prior message, and the current prompt as ordered
// context chunks, each exactly once.
type Local struct {
	engine engine.Engine
	model  string
	log    zerolog.Logger
}

func NewLocal(baseURL, modelName string, log zerolog.Logger) (*Local, error) {
	eng, err := engine.NewOllamaEngine(baseURL, modelName)
	if err != nil {
		return nil, fmt.Errorf("failed to create local engine: %w", err)
	}
	return &Local{engine: eng, model: eng.Model(), log: log}, nil
}

// NewLocalWithEngine wires an explicit engine implementation; used by tests
// and by callers embedding their own runtime.
func NewLocalWithEngine(eng engine.Engine, modelName string, log zerolog.Logger) *Local {
	return &Local{engine: eng, model: modelName, log: log}
}

func (p *Local) Name() string {
	return "local"
}

func (p *Local) Model() string {
	return p.model
}

func (p *Local) SetModel(model string) {
	p.model = model
}

// OpenStream implements Provider.
func (p *Local) OpenStream(ctx context.Context, req *model.Request) (stream.Events, error) {
	cfg := engine.SessionConfig{
		Model:       p.model,
		Temperature: req.Sampling.Temperature,
		TopK:        req.Sampling.TopK,
		TokenBuffer: req.Sampling.TokenBuffer,
		Seed:        req.Sampling.Seed,
		Tools:       req.Tools,
	}
	if cfg.Seed == 0 {
		// Fresh seed per turn: replaying the same context with the same
		// seed would regenerate identical continuations.
		cfg.Seed = rand.Int()
	}

	sess, err := p.engine.NewSession(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open engine session: %w", err)
	}

	if err := p.replay(ctx, sess, req); err != nil {
		p.release(sess)
		return nil, err
	}

	tokens := sess.Generate(ctx)
	return func(yield func(stream.Event) bool) {
		defer p.release(sess)
		for ev := range stream.DecodeTokens(tokens, p.log) {
			if !yield(ev) {
				return
			}
		}
	}, nil
}

func (p *Local) replay(ctx context.Context, sess engine.Session, req *model.Request) error {
	if req.SystemPrompt != "" {
		if err := sess.AddChunk(ctx, model.RoleSystem, req.SystemPrompt); err != nil {
			return fmt.Errorf("failed to replay system prompt: %w", err)
		}
	}
	for _, m := range req.History {
		if err := sess.AddChunk(ctx, m.Role, m.Content); err != nil {
			return fmt.Errorf("failed to replay history: %w", err)
		}
	}
	if err := sess.AddChunk(ctx, model.RoleUser, promptContent(req)); err != nil {
		return fmt.Errorf("failed to submit prompt: %w", err)
	}
	return nil
}

// release closes the engine session without blocking the teardown path.
// Release may complete after the caller returns.
func (p *Local) release(sess engine.Session) {
	go func() {
		if err := sess.Close(); err != nil {
			p.log.Debug().Err(err).Msg("engine session release failed")
		}
	}()
}

// Ping implements Provider when the engine exposes a health probe.
func (p *Local) Ping(ctx context.Context) error {
	type pinger interface {
		Ping(ctx context.Context) error
	}
	if e, ok := p.engine.(pinger); ok {
		return e.Ping(ctx)
	}
	return nil
}
