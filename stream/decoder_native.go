package stream

import (
	"encoding/json"
	"iter"

	"github.com/rs/zerolog"

	"tandem/engine"
)

// DecodeTokens maps native engine tokens 1:1 onto protocol events, adding a
// synthetic Done when the engine stream completes and a StreamError if it
// fails. Structured tool arguments are re-serialized to JSON so tool calls
// from every backend flow through the same assembler path; a tool token
// whose arguments cannot be serialized is logged and skipped.
func DecodeTokens(tokens iter.Seq2[engine.Token, error], log zerolog.Logger) Events {
	return func(yield func(Event) bool) {
		index := 0
		for tok, err := range tokens {
			if err != nil {
				yield(Errorf("engine stream failed: %v", err))
				return
			}

			var ev Event
			switch tok.Kind {
			case engine.TokenThinking:
				ev = Thinking(tok.Text)
			case engine.TokenToolCall:
				args, err := json.Marshal(tok.ToolArgs)
				if err != nil {
					log.Debug().Err(err).Str("tool", tok.ToolName).Msg("dropping tool call with unserializable arguments")
					continue
				}
				ev = Tool(ToolCallFragment{Index: index, Name: tok.ToolName, Arguments: string(args)})
				index++
			default:
				ev = Text(tok.Text)
			}

			if !yield(ev) {
				return
			}
		}
		yield(Done())
	}
}
