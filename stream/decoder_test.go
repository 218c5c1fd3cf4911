package stream

import (
	"errors"
	"io"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

func collect(t *testing.T, events Events) []Event {
	t.Helper()
	var got []Event
	for ev := range events {
		got = append(got, ev)
	}
	return got
}

func TestDecodeLines(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Event
	}{
		{
			name: "text deltas with sentinel",
			input: "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n" +
				"data: [DONE]\n",
			expected: []Event{Text("Hel"), Text("lo"), Done()},
		},
		{
			name: "reasoning delta",
			input: "data: {\"choices\":[{\"delta\":{\"reasoning\":\"hmm\"}}]}\n" +
				"data: [DONE]\n",
			expected: []Event{Thinking("hmm"), Done()},
		},
		{
			name: "reasoning_content delta",
			input: "data: {\"choices\":[{\"delta\":{\"reasoning_content\":\"hmm\"}}]}\n" +
				"data: [DONE]\n",
			expected: []Event{Thinking("hmm"), Done()},
		},
		{
			name: "tool call fragments",
			input: "data: {\"choices\":[{\"delta\":{\"tool_calls\":[{\"index\":0,\"id\":\"c1\",\"function\":{\"name\":\"get_weather\",\"arguments\":\"\"}}]}}]}\n" +
				"data: {\"choices\":[{\"delta\":{\"tool_calls\":[{\"index\":0,\"function\":{\"arguments\":\"{\\\"city\\\":\\\"Oslo\\\"}\"}}]}}]}\n" +
				"data: [DONE]\n",
			expected: []Event{
				Tool(ToolCallFragment{Index: 0, ID: "c1", Name: "get_weather"}),
				Tool(ToolCallFragment{Index: 0, Arguments: "{\"city\":\"Oslo\"}"}),
				Done(),
			},
		},
		{
			name: "malformed line mid-stream is skipped",
			input: "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n" +
				"data: {not json at all\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"b\"}}]}\n" +
				"data: [DONE]\n",
			expected: []Event{Text("a"), Text("b"), Done()},
		},
		{
			name: "shape mismatch is skipped",
			input: "data: {\"choices\":\"oops\"}\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n" +
				"data: [DONE]\n",
			expected: []Event{Text("ok"), Done()},
		},
		{
			name: "blank and comment lines are ignored",
			input: "\n: keepalive\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n" +
				"\ndata: [DONE]\n",
			expected: []Event{Text("x"), Done()},
		},
		{
			name: "empty choices chunk is ignored",
			input: "data: {\"choices\":[]}\n" +
				"data: [DONE]\n",
			expected: []Event{Done()},
		},
		{
			name:     "clean EOF without sentinel yields Done",
			input:    "data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n",
			expected: []Event{Text("partial"), Done()},
		},
		{
			name:     "empty stream yields Done",
			input:    "",
			expected: []Event{Done()},
		},
		{
			name: "mixed delta in one chunk",
			input: "data: {\"choices\":[{\"delta\":{\"content\":\"hi\",\"reasoning\":\"why\"}}]}\n" +
				"data: [DONE]\n",
			expected: []Event{Text("hi"), Thinking("why"), Done()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := collect(t, DecodeLines(strings.NewReader(tt.input), zerolog.Nop()))

			if len(got) != len(tt.expected) {
				t.Fatalf("event count: got %d (%v), want %d", len(got), got, len(tt.expected))
			}
			for i, ev := range got {
				if ev != tt.expected[i] {
					t.Errorf("event %d: got %+v, want %+v", i, ev, tt.expected[i])
				}
			}
		})
	}
}

type failingReader struct {
	data string
	read bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.read {
		r.read = true
		return copy(p, r.data), nil
	}
	return 0, errors.New("connection reset")
}

func TestDecodeLinesReadFailure(t *testing.T) {
	r := &failingReader{data: "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n"}
	got := collect(t, DecodeLines(r, zerolog.Nop()))

	if len(got) != 2 {
		t.Fatalf("event count: got %d (%v), want 2", len(got), got)
	}
	if got[0] != Text("a") {
		t.Errorf("first event: got %+v, want text delta", got[0])
	}
	if got[1].Kind != KindError {
		t.Fatalf("last event kind: got %v, want KindError", got[1].Kind)
	}
	if !strings.Contains(got[1].Text, "connection reset") {
		t.Errorf("error text %q should mention the read failure", got[1].Text)
	}
}

func TestDecodeLinesStopsAtSentinel(t *testing.T) {
	// Nothing after the sentinel is decoded.
	input := "data: [DONE]\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"late\"}}]}\n"
	got := collect(t, DecodeLines(strings.NewReader(input), zerolog.Nop()))

	if len(got) != 1 || got[0] != Done() {
		t.Fatalf("got %v, want single Done", got)
	}
}

func TestPreviewRuneBoundary(t *testing.T) {
	long := strings.Repeat("ø", 100)
	got := preview(long, 15)
	if !utf8.ValidString(got) {
		t.Errorf("preview produced invalid UTF-8: %q", got)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("preview should be truncated: %q", got)
	}

	if got := preview("short", 15); got != "short" {
		t.Errorf("under-limit input should pass through, got %q", got)
	}
}

func TestDecodeLinesEarlyStop(t *testing.T) {
	input := "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"b\"}}]}\n"
	var got []Event
	for ev := range DecodeLines(io.Reader(strings.NewReader(input)), zerolog.Nop()) {
		got = append(got, ev)
		break
	}
	if len(got) != 1 || got[0] != Text("a") {
		t.Fatalf("got %v, want single text event", got)
	}
}
