package stream

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

const (
	dataPrefix   = "data: "
	doneSentinel = "[DONE]"
)

// Wire shapes for the chat-completions streaming chunk; only the fields the
// decoder routes on. Reasoning deltas show up under either key depending on
// the upstream service.
type chunkDelta struct {
	Content          string          `json:"content"`
	Reasoning        string          `json:"reasoning"`
	ReasoningContent string          `json:"reasoning_content"`
	ToolCalls        []chunkToolCall `json:"tool_calls"`
}

type chunkToolCall struct {
	Index    int    `json:"index"`
	ID       string `json:"id"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type chunkPayload struct {
	Choices []struct {
		Delta chunkDelta `json:"delta"`
	} `json:"choices"`
}

// DecodeLines converts a newline-delimited wire stream into protocol events.
// Blank and non-data lines are skipped, the [DONE] sentinel terminates the
// stream, and a malformed or unexpectedly shaped data line is logged and
// skipped without aborting: the decoder recovers from any single corrupt
// line mid-stream, not just truncation at EOF. A read failure yields one
// StreamError; a clean end without the sentinel yields Done.
func DecodeLines(r io.Reader, log zerolog.Logger) Events {
	return func(yield func(Event) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || !strings.HasPrefix(line, dataPrefix) {
				continue
			}

			payload := strings.TrimPrefix(line, dataPrefix)
			if payload == doneSentinel {
				yield(Done())
				return
			}

			var chunk chunkPayload
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				log.Debug().Err(err).Str("line", preview(payload, 120)).Msg("skipping malformed stream line")
				continue
			}
			if len(chunk.Choices) == 0 {
				continue
			}

			for _, ev := range deltaEvents(chunk.Choices[0].Delta) {
				if !yield(ev) {
					return
				}
			}
		}

		if err := scanner.Err(); err != nil {
			yield(Errorf("stream read failed: %v", err))
			return
		}
		yield(Done())
	}
}

func deltaEvents(d chunkDelta) []Event {
	var events []Event

	if d.Content != "" {
		events = append(events, Text(d.Content))
	}

	thinking := d.Reasoning
	if thinking == "" {
		thinking = d.ReasoningContent
	}
	if thinking != "" {
		events = append(events, Thinking(thinking))
	}

	for _, tc := range d.ToolCalls {
		events = append(events, Tool(ToolCallFragment{
			Index:     tc.Index,
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		}))
	}

	return events
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
