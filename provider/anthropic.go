package provider

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"

	"tandem/model"
	"tandem/stream"
	"tandem/tools"
)

const anthropicDefaultMaxTokens = 4096

// Anthropic adapts Claude's native structured streaming API. Native event
// variants map 1:1 onto protocol events; tool-use input arrives as partial
// JSON deltas keyed by content-block index, which feed the assembler the
// same way wire fragments do.
type Anthropic struct {
	client *anthropic.Client
	model  anthropic.Model
	log    zerolog.Logger
}

func NewAnthropic(baseURL, apiKey, modelName string, log zerolog.Logger) (*Anthropic, error) {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	if apiKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}

	anthropicModel := anthropic.ModelClaudeSonnet4_5_20250929
	if modelName != "" {
		anthropicModel = anthropic.Model(modelName)
	}

	client := anthropic.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)

	return &Anthropic{client: &client, model: anthropicModel, log: log}, nil
}

func (p *Anthropic) Name() string {
	return "anthropic"
}

func (p *Anthropic) Model() string {
	return string(p.model)
}

func (p *Anthropic) SetModel(model string) {
	p.model = anthropic.Model(model)
}

// OpenStream implements Provider. The first stream read happens here so an
// establish failure surfaces as a transport error rather than an in-stream
// event.
func (p *Anthropic) OpenStream(ctx context.Context, req *model.Request) (stream.Events, error) {
	params := p.buildParams(req)

	s := p.client.Messages.NewStreaming(ctx, params)
	if !s.Next() {
		err := s.Err()
		s.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to open stream: %w", err)
		}
		return func(yield func(stream.Event) bool) {
			yield(stream.Done())
		}, nil
	}
	first := s.Current()

	return func(yield func(stream.Event) bool) {
		defer s.Close()

		if !emitAnthropicEvent(first, yield) {
			return
		}
		for s.Next() {
			if !emitAnthropicEvent(s.Current(), yield) {
				return
			}
		}

		if err := s.Err(); err != nil {
			yield(stream.Errorf("anthropic stream failed: %v", err))
			return
		}
		yield(stream.Done())
	}, nil
}

func (p *Anthropic) buildParams(req *model.Request) anthropic.MessageNewParams {
	maxTokens := int64(req.Sampling.TokenBuffer)
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     p.model,
		Messages:  anthropicMessages(req),
		MaxTokens: maxTokens,
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}
	if req.Sampling.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Sampling.Temperature)
	}
	if req.Sampling.TopK > 0 {
		params.TopK = anthropic.Int(int64(req.Sampling.TopK))
	}
	if len(req.Tools) > 0 {
		params.Tools = tools.ConvertToolsToAnthropic(req.Tools)
	}

	return params
}

// emitAnthropicEvent maps one native stream event onto protocol events.
// Returns false when the consumer stopped iterating.
func emitAnthropicEvent(event anthropic.MessageStreamEventUnion, yield func(stream.Event) bool) bool {
	switch eventVariant := event.AsAny().(type) {
	case anthropic.ContentBlockStartEvent:
		if eventVariant.ContentBlock.Type == "tool_use" {
			return yield(stream.Tool(stream.ToolCallFragment{
				Index: int(eventVariant.Index),
				ID:    eventVariant.ContentBlock.ID,
				Name:  eventVariant.ContentBlock.Name,
			}))
		}
	case anthropic.ContentBlockDeltaEvent:
		switch deltaVariant := eventVariant.Delta.AsAny().(type) {
		case anthropic.TextDelta:
			return yield(stream.Text(deltaVariant.Text))
		case anthropic.ThinkingDelta:
			return yield(stream.Thinking(deltaVariant.Thinking))
		case anthropic.InputJSONDelta:
			return yield(stream.Tool(stream.ToolCallFragment{
				Index:     int(eventVariant.Index),
				Arguments: deltaVariant.PartialJSON,
			}))
		}
	}
	return true
}

// anthropicMessages converts the request context to Anthropic's message
// format. The system prompt travels in a separate parameter, so only user
// and assistant turns appear here.
func anthropicMessages(req *model.Request) []anthropic.MessageParam {
	msgs := make([]anthropic.MessageParam, 0, len(req.History)+1)

	for _, m := range req.History {
		switch m.Role {
		case model.RoleAssistant:
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(promptContent(req))))

	return msgs
}

// Ping implements Provider with a minimal one-token request; Anthropic has
// no dedicated health endpoint.
func (p *Anthropic) Ping(ctx context.Context) error {
	_, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: 1,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("ping")),
		},
	})
	if err != nil {
		return fmt.Errorf("Anthropic ping failed: %w", err)
	}
	return nil
}
