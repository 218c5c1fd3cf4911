package model

import (
	"sync"
	"time"
)

// History is the ordered, append-only log of conversation turns. It is owned
// by the session orchestrator; everything else works with snapshots. No
// operation reorders existing entries.
type History struct {
	mu   sync.Mutex
	gen  int
	msgs []Message
}

func NewHistory() *History {
	return &History{}
}

// AppendUser appends a user message with the given attachments.
func (h *History) AppendUser(content string, attachments []Attachment) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.msgs = append(h.msgs, Message{
		Role:        RoleUser,
		Content:     content,
		Attachments: append([]Attachment(nil), attachments...),
		Timestamp:   time.Now(),
	})
}

// BeginAssistant appends an empty in-progress assistant message and returns
// a handle for streaming appends. The message is mutable only through the
// handle and only until Freeze is called.
func (h *History) BeginAssistant() *AssistantDraft {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.msgs = append(h.msgs, Message{Role: RoleAssistant, Timestamp: time.Now()})
	return &AssistantDraft{h: h, idx: len(h.msgs) - 1, gen: h.gen}
}

// Snapshot returns a defensive copy of the conversation in order.
func (h *History) Snapshot() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Message, len(h.msgs))
	copy(out, h.msgs)
	for i := range out {
		out[i].Attachments = append([]Attachment(nil), out[i].Attachments...)
	}
	return out
}

// Replace swaps the entire conversation, e.g. when restoring a saved
// session. Any outstanding draft is invalidated: its message no longer
// exists in the new conversation.
func (h *History) Replace(msgs []Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.gen++
	h.msgs = make([]Message, len(msgs))
	copy(h.msgs, msgs)
}

// Clear drops all turns and invalidates any outstanding draft.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.gen++
	h.msgs = nil
}

// Len reports the number of messages, including any in-progress draft.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.msgs)
}

// AssistantDraft is a handle to an in-progress assistant message. Appends
// after Freeze are ignored; the frozen message is immutable. A draft whose
// message was removed by Clear or Replace mid-stream behaves as frozen.
type AssistantDraft struct {
	h      *History
	idx    int
	gen    int
	frozen bool
}

// valid reports whether the draft's message still exists. Callers hold h.mu.
func (d *AssistantDraft) valid() bool {
	return !d.frozen && d.gen == d.h.gen
}

// Append adds a streamed delta to the draft's text.
func (d *AssistantDraft) Append(delta string) {
	d.h.mu.Lock()
	defer d.h.mu.Unlock()

	if !d.valid() {
		return
	}
	d.h.msgs[d.idx].Content += delta
}

// Freeze ends the draft's streaming phase. Safe to call more than once.
func (d *AssistantDraft) Freeze() {
	d.h.mu.Lock()
	defer d.h.mu.Unlock()

	d.frozen = true
}

// Text returns the draft's accumulated content, or empty when the draft
// was invalidated.
func (d *AssistantDraft) Text() string {
	d.h.mu.Lock()
	defer d.h.mu.Unlock()

	if d.gen != d.h.gen {
		return ""
	}
	return d.h.msgs[d.idx].Content
}
