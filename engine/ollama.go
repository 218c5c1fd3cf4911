package engine

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"

	"tandem/tools"
)

// OllamaEngine implements Engine over a local Ollama server. The server
// keeps no per-conversation state between requests, so every session
// replays its full context before generating.
type OllamaEngine struct {
	client  *api.Client
	model   string
	baseURL string
}

func NewOllamaEngine(baseURL, model string) (*OllamaEngine, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.1:latest"
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}

	return &OllamaEngine{
		client:  api.NewClient(parsedURL, http.DefaultClient),
		model:   model,
		baseURL: baseURL,
	}, nil
}

func (e *OllamaEngine) Model() string {
	return e.model
}

func (e *OllamaEngine) SetModel(model string) {
	e.model = model
}

// NewSession implements Engine. Tools are attached only when the model is
// known to support tool calling; sending tool definitions to other models
// produces degenerate output.
func (e *OllamaEngine) NewSession(ctx context.Context, cfg SessionConfig) (Session, error) {
	model := cfg.Model
	if model == "" {
		model = e.model
	}

	s := &ollamaSession{client: e.client, model: model, cfg: cfg}
	if len(cfg.Tools) > 0 && ModelSupportsToolCalling(model) {
		s.tools = tools.ConvertToolsToOllama(cfg.Tools)
	}
	return s, nil
}

// ModelInfo describes one locally available model.
type ModelInfo struct {
	Name string
	Size int64
}

func (e *OllamaEngine) ListModels(ctx context.Context) ([]ModelInfo, error) {
	resp, err := e.client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	models := make([]ModelInfo, len(resp.Models))
	for i, m := range resp.Models {
		models[i] = ModelInfo{Name: m.Name, Size: m.Size}
	}
	return models, nil
}

func (e *OllamaEngine) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := e.client.List(ctx)
	return err
}

type ollamaSession struct {
	client    *api.Client
	model     string
	cfg       SessionConfig
	tools     []api.Tool
	messages  []api.Message
	generated bool
}

func (s *ollamaSession) AddChunk(ctx context.Context, role, content string) error {
	if s.generated {
		return errors.New("session already generated")
	}
	s.messages = append(s.messages, api.Message{Role: role, Content: content})
	return nil
}

var errStopped = errors.New("consumer stopped iteration")

func (s *ollamaSession) Generate(ctx context.Context) iter.Seq2[Token, error] {
	return func(yield func(Token, error) bool) {
		if s.generated {
			yield(Token{}, errors.New("session already generated"))
			return
		}
		s.generated = true

		req := &api.ChatRequest{
			Model:    s.model,
			Messages: s.messages,
			Tools:    s.tools,
			Stream:   func(b bool) *bool { return &b }(true),
			Options:  s.options(),
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		err := s.client.Chat(ctx, req, func(resp api.ChatResponse) error {
			if resp.Message.Thinking != "" {
				if !yield(Token{Kind: TokenThinking, Text: resp.Message.Thinking}, nil) {
					return errStopped
				}
			}
			if resp.Message.Content != "" {
				if !yield(Token{Kind: TokenText, Text: resp.Message.Content}, nil) {
					return errStopped
				}
			}
			for _, call := range resp.Message.ToolCalls {
				tok := Token{
					Kind:     TokenToolCall,
					ToolName: call.Function.Name,
					ToolArgs: call.Function.Arguments,
				}
				if !yield(tok, nil) {
					return errStopped
				}
			}
			return nil
		})

		if err != nil && !errors.Is(err, errStopped) {
			yield(Token{}, err)
		}
	}
}

func (s *ollamaSession) options() map[string]any {
	opts := make(map[string]any)
	if s.cfg.Temperature > 0 {
		opts["temperature"] = s.cfg.Temperature
	}
	if s.cfg.TopK > 0 {
		opts["top_k"] = s.cfg.TopK
	}
	if s.cfg.TokenBuffer > 0 {
		opts["num_predict"] = s.cfg.TokenBuffer
	}
	if s.cfg.Seed != 0 {
		opts["seed"] = s.cfg.Seed
	}
	return opts
}

// Close implements Session. The server owns the model memory; there is
// nothing to release client-side beyond the replay buffer.
func (s *ollamaSession) Close() error {
	s.messages = nil
	return nil
}
