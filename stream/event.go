// Package stream converts raw backend response streams into a single tagged
// protocol event sequence, and reassembles tool-call fragments arriving
// across that sequence.
//
// Two decode modes cover both backend families: DecodeLines for
// line-oriented wire streams (blank lines, a terminal sentinel, or
// prefix-tagged JSON payloads), and DecodeTokens for engines that produce
// native structured response variants. Both yield a lazy, finite,
// non-restartable sequence terminating in exactly one Done or StreamError
// event.
package stream

import (
	"fmt"
	"iter"
)

// EventKind tags the protocol event variants.
type EventKind int

const (
	KindText EventKind = iota
	KindThinking
	KindToolCall
	KindDone
	KindError
)

// ToolCallFragment is a partial tool invocation piece. Name and Arguments
// may each be empty or incomplete on any given fragment; fragments sharing
// an Index belong to the same call and are merged by the Assembler.
type ToolCallFragment struct {
	Index     int
	ID        string
	Name      string
	Arguments string
}

// Event is one decoded protocol event. Text carries the delta for KindText
// and KindThinking, and the failure message for KindError.
type Event struct {
	Kind EventKind
	Text string
	Tool ToolCallFragment
}

// Events is a lazy sequence of protocol events. It is single-use: callers
// may stop iterating early, but must not restart it.
type Events = iter.Seq[Event]

func Text(delta string) Event {
	return Event{Kind: KindText, Text: delta}
}

func Thinking(delta string) Event {
	return Event{Kind: KindThinking, Text: delta}
}

func Tool(frag ToolCallFragment) Event {
	return Event{Kind: KindToolCall, Tool: frag}
}

func Done() Event {
	return Event{Kind: KindDone}
}

func Errorf(format string, args ...any) Event {
	return Event{Kind: KindError, Text: fmt.Sprintf(format, args...)}
}
