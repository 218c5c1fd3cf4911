package stream

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"tandem/model"
)

// Assembler accumulates tool-call fragments keyed by stream index until the
// turn's stream completes. Argument JSON arrives in pieces and is only
// parsed at finalization, never per fragment.
type Assembler struct {
	parts map[int]*partialCall
	order []int
	log   zerolog.Logger
}

type partialCall struct {
	id   string
	name string
	args string
}

func NewAssembler(log zerolog.Logger) *Assembler {
	return &Assembler{parts: make(map[int]*partialCall), log: log}
}

// Add merges one fragment into the partial record for its index, creating
// the record on first sight. Name and argument pieces concatenate onto any
// prior value.
func (a *Assembler) Add(f ToolCallFragment) {
	p, ok := a.parts[f.Index]
	if !ok {
		p = &partialCall{}
		a.parts[f.Index] = p
		a.order = append(a.order, f.Index)
	}

	if f.ID != "" {
		p.id = f.ID
	}
	p.name += f.Name
	p.args += f.Arguments
}

// Len reports how many distinct calls have been seen so far.
func (a *Assembler) Len() int {
	return len(a.order)
}

// Finalize parses the accumulated records and returns them in
// first-fragment-seen order. A record with an empty name or unparseable
// arguments is dropped with a log note; a bad call never fails the turn.
// An empty arguments string finalizes as an empty map.
func (a *Assembler) Finalize() []model.ToolCall {
	calls := make([]model.ToolCall, 0, len(a.order))

	for _, idx := range a.order {
		p := a.parts[idx]
		if p.name == "" {
			a.log.Debug().Int("index", idx).Msg("dropping tool call with empty name")
			continue
		}

		args := make(map[string]any)
		if p.args != "" {
			if err := json.Unmarshal([]byte(p.args), &args); err != nil {
				a.log.Debug().Err(err).Str("tool", p.name).Msg("dropping tool call with unparseable arguments")
				continue
			}
		}

		calls = append(calls, model.ToolCall{ID: p.id, Name: p.name, Arguments: args})
	}

	return calls
}
