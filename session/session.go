// Package session implements the chat-session orchestrator. A Session owns
// the conversation history, builds the per-turn request context, drives the
// active provider's event stream, and reconciles tool calls through the
// tool registry — yielding the turn's output to the caller as a lazy
// fragment sequence.
package session

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync/atomic"
	"unicode/utf8"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"tandem/model"
	"tandem/provider"
	"tandem/stream"
	"tandem/tools"
)

// ErrTurnInProgress is returned when Generate or SendMessage is called
// while a prior turn's sequence is still open. Turns never run concurrently
// against one Session; callers retry after the open sequence completes.
var ErrTurnInProgress = errors.New("session: a turn is already in progress")

const (
	thinkingPrefix     = "[thinking] "
	resultPreviewLimit = 200
)

// Session orchestrates turns against one provider. Not safe for concurrent
// turns; overlapping calls are rejected rather than queued so history
// ordering stays deterministic.
type Session struct {
	provider provider.Provider
	registry tools.Registry
	history  *model.History
	system   string
	sampling model.SamplingConfig
	busy     atomic.Bool
	log      zerolog.Logger
}

// Option configures a Session at construction.
type Option func(*Session)

func WithRegistry(r tools.Registry) Option {
	return func(s *Session) { s.registry = r }
}

func WithSystemPrompt(prompt string) Option {
	return func(s *Session) { s.system = prompt }
}

func WithSampling(cfg model.SamplingConfig) Option {
	return func(s *Session) { s.sampling = cfg }
}

func WithLogger(log zerolog.Logger) Option {
	return func(s *Session) { s.log = log }
}

func New(p provider.Provider, opts ...Option) *Session {
	s := &Session{
		provider: p,
		history:  model.NewHistory(),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Provider returns the active provider.
func (s *Session) Provider() provider.Provider {
	return s.provider
}

// History returns a read-only snapshot of the conversation.
func (s *Session) History() []model.Message {
	return s.history.Snapshot()
}

// SetHistory replaces the conversation, e.g. when restoring a saved
// session.
func (s *Session) SetHistory(msgs []model.Message) {
	s.history.Replace(msgs)
}

// ClearHistory drops all turns. Any backend-held session state derived from
// the old history is moot: context is replayed from history on every turn.
func (s *Session) ClearHistory() {
	s.history.Clear()
}

// Generate runs one turn without touching history; used for preview or
// non-committal generation. The returned sequence must be consumed — it
// performs the turn and releases the backend stream when it ends.
func (s *Session) Generate(ctx context.Context, prompt string, attachments []model.Attachment) (iter.Seq[string], error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, ErrTurnInProgress
	}

	replay := s.history.Snapshot()
	return s.turn(ctx, prompt, attachments, replay, nil), nil
}

// SendMessage runs one turn with history side effects: exactly one user
// message is appended before this call returns, and exactly one frozen
// assistant message exists after the sequence completes — even when the
// turn ends in an error fragment, whose text becomes the assistant message.
// The returned sequence must be consumed.
func (s *Session) SendMessage(ctx context.Context, prompt string, attachments []model.Attachment) (iter.Seq[string], error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, ErrTurnInProgress
	}

	// Snapshot before appending so the replay set excludes the current
	// prompt; it travels separately and is sent exactly once.
	replay := s.history.Snapshot()
	s.history.AppendUser(prompt, attachments)
	draft := s.history.BeginAssistant()

	return s.turn(ctx, prompt, attachments, replay, draft), nil
}

func (s *Session) turn(ctx context.Context, prompt string, attachments []model.Attachment, replay []model.Message, draft *model.AssistantDraft) iter.Seq[string] {
	return func(yield func(string) bool) {
		defer s.busy.Store(false)
		if draft != nil {
			defer draft.Freeze()
		}

		// forward emits one user-visible fragment; recorded fragments also
		// become part of the stored assistant text.
		forward := func(frag string, record bool) bool {
			if record && draft != nil {
				draft.Append(frag)
			}
			return yield(frag)
		}

		req := &model.Request{
			SystemPrompt: s.system,
			History:      replay,
			Prompt:       prompt,
			Attachments:  attachments,
			Sampling:     s.sampling,
			Tools:        s.availableTools(ctx),
		}

		events, err := s.provider.OpenStream(ctx, req)
		if err != nil {
			s.log.Debug().Err(err).Msg("stream open failed")
			forward(fmt.Sprintf("error: %v", err), true)
			return
		}

		asm := stream.NewAssembler(s.log)

	drain:
		for ev := range events {
			switch ev.Kind {
			case stream.KindText:
				if !forward(ev.Text, true) {
					return
				}
			case stream.KindThinking:
				// Shown to the caller, kept out of the stored answer:
				// replaying reasoning as answer content would corrupt
				// later turns.
				if !forward(thinkingPrefix+ev.Text, false) {
					return
				}
			case stream.KindToolCall:
				asm.Add(ev.Tool)
			case stream.KindError:
				forward("error: "+ev.Text, true)
				return
			case stream.KindDone:
				break drain
			}
		}

		// Tool calls run sequentially in assembler order; one failure is
		// reported inline and never stops the remaining calls.
		for _, call := range asm.Finalize() {
			res := s.executeTool(ctx, call)
			if !forward(formatToolResult(res), true) {
				return
			}
		}
	}
}

// availableTools lists registry tools for this turn. A missing registry or
// a listing failure means the turn simply runs without tools.
func (s *Session) availableTools(ctx context.Context) []mcptypes.Tool {
	if s.registry == nil {
		return nil
	}

	list, err := s.registry.ListTools(ctx)
	if err != nil {
		s.log.Debug().Err(err).Msg("tool listing failed; continuing without tools")
		return nil
	}
	return list
}

// executeTool runs one tool call, converting any failure — a registry
// error, an error-flagged result, or a panicking handler — into a failed
// result so remaining calls still run.
func (s *Session) executeTool(ctx context.Context, call model.ToolCall) (res model.ToolResult) {
	res = model.ToolResult{ToolName: call.Name}

	defer func() {
		if r := recover(); r != nil {
			res.Success = false
			res.Err = fmt.Sprintf("tool panicked: %v", r)
		}
	}()

	if s.registry == nil {
		res.Err = "no tool registry configured"
		return res
	}

	s.log.Debug().Str("tool", call.Name).Msg("executing tool call")

	out, err := s.registry.Execute(ctx, call.Name, call.Arguments)
	if err != nil {
		res.Err = err.Error()
		return res
	}
	if out != nil && out.IsError {
		res.Err = tools.ResultText(out)
		return res
	}

	res.Success = true
	res.Content = tools.ResultText(out)
	return res
}

// formatToolResult renders the per-tool summary fragment shown in-band with
// the answer stream.
func formatToolResult(res model.ToolResult) string {
	if !res.Success {
		return fmt.Sprintf("\n[tool %s failed: %s]\n", res.ToolName, truncate(res.Err, resultPreviewLimit))
	}
	return fmt.Sprintf("\n[tool %s: %s]\n", res.ToolName, truncate(res.Content, resultPreviewLimit))
}

// truncate cuts on a rune boundary so multibyte content never yields an
// invalid UTF-8 fragment.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
