package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/rs/zerolog"

	"tandem/model"
	"tandem/stream"
	"tandem/tools"
)

// Remote talks to an OpenAI-compatible chat completions endpoint, issuing
// one streamed request per turn carrying the full replayed message list.
// The wire stream is decoded by stream.DecodeLines rather than an SDK
// stream so a single corrupt chunk never aborts the turn.
type Remote struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	log        zerolog.Logger
}

// chatMessage and chatRequest mirror the chat completions request body.
// Tool descriptors reuse the OpenAI SDK's param types so the schema
// serialization matches what the service expects.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	// Always sent: an explicit temperature of 0 is a valid greedy-sampling
	// request and must survive the wire.
	Temperature float64                               `json:"temperature"`
	MaxTokens   int                                   `json:"max_tokens,omitempty"`
	Tools       []openai.ChatCompletionToolUnionParam `json:"tools,omitempty"`
}

func NewRemote(baseURL, apiKey, model string, log zerolog.Logger) (*Remote, error) {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if apiKey == "" {
		return nil, fmt.Errorf("remote API key is required")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &Remote{
		httpClient: http.DefaultClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		log:        log,
	}, nil
}

func (p *Remote) Name() string {
	return "remote"
}

func (p *Remote) Model() string {
	return p.model
}

func (p *Remote) SetModel(model string) {
	p.model = model
}

// OpenStream implements Provider. The request carries the system prompt,
// the replayed history, and the current prompt exactly once each. The
// response body is closed when the event sequence is exhausted or
// abandoned.
func (p *Remote) OpenStream(ctx context.Context, req *model.Request) (stream.Events, error) {
	body := chatRequest{
		Model:       p.model,
		Messages:    wireMessages(req),
		Stream:      true,
		Temperature: req.Sampling.Temperature,
		MaxTokens:   req.Sampling.TokenBuffer,
	}
	if len(req.Tools) > 0 {
		body.Tools = tools.ConvertToolsToOpenAI(req.Tools)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("backend returned %s: %s", resp.Status, strings.TrimSpace(string(excerpt)))
	}

	return func(yield func(stream.Event) bool) {
		defer resp.Body.Close()
		for ev := range stream.DecodeLines(resp.Body, p.log) {
			if !yield(ev) {
				return
			}
		}
	}, nil
}

// Ping implements Provider by listing models.
func (p *Remote) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("remote ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("remote ping failed: %s", resp.Status)
	}
	return nil
}

// wireMessages flattens the request context into chat messages: system
// prompt first, prior turns in original order, then the current prompt.
// Tool-role entries replay as user messages, matching how their content was
// produced for the model.
func wireMessages(req *model.Request) []chatMessage {
	msgs := make([]chatMessage, 0, len(req.History)+2)

	if req.SystemPrompt != "" {
		msgs = append(msgs, chatMessage{Role: model.RoleSystem, Content: req.SystemPrompt})
	}
	for _, m := range req.History {
		role := m.Role
		if role != model.RoleSystem && role != model.RoleUser && role != model.RoleAssistant {
			role = model.RoleUser
		}
		msgs = append(msgs, chatMessage{Role: role, Content: m.Content})
	}
	msgs = append(msgs, chatMessage{Role: model.RoleUser, Content: promptContent(req)})

	return msgs
}

// promptContent renders the current prompt with attachment references
// appended. Attachments are opaque at this layer.
func promptContent(req *model.Request) string {
	if len(req.Attachments) == 0 {
		return req.Prompt
	}

	var b strings.Builder
	b.WriteString(req.Prompt)
	for _, a := range req.Attachments {
		fmt.Fprintf(&b, "\n[attachment: %s]", a.Name)
	}
	return b.String()
}
