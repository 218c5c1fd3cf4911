package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"tandem/model"
	"tandem/stream"
)

// capturedRequest mirrors the wire fields the tests assert on.
type capturedRequest struct {
	Model       string  `json:"model"`
	Stream      bool    `json:"stream"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	Tools []json.RawMessage `json:"tools"`
}

func sseServer(t *testing.T, captured *capturedRequest, chunks ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path: got %q, want /chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization: got %q", got)
		}
		if captured != nil {
			if err := json.NewDecoder(r.Body).Decode(captured); err != nil {
				t.Errorf("decode request body: %v", err)
			}
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, chunk := range chunks {
			fmt.Fprintf(w, "data: %s\n\n", chunk)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func TestRemoteOpenStream(t *testing.T) {
	var captured capturedRequest
	srv := sseServer(t, &captured,
		`{"choices":[{"delta":{"content":"Hel"}}]}`,
		`{"choices":[{"delta":{"content":"lo"}}]}`,
	)
	defer srv.Close()

	p, err := NewRemote(srv.URL, "test-key", "gpt-4o-mini", zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRemote: %v", err)
	}

	req := &model.Request{
		SystemPrompt: "be brief",
		History: []model.Message{
			{Role: model.RoleUser, Content: "earlier q"},
			{Role: model.RoleAssistant, Content: "earlier a"},
		},
		Prompt:   "hi",
		Sampling: model.SamplingConfig{Temperature: 0.5, TokenBuffer: 256},
	}

	events, err := p.OpenStream(context.Background(), req)
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}

	var text strings.Builder
	var last stream.Event
	for ev := range events {
		if ev.Kind == stream.KindText {
			text.WriteString(ev.Text)
		}
		last = ev
	}
	if text.String() != "Hello" {
		t.Errorf("text: got %q, want %q", text.String(), "Hello")
	}
	if last.Kind != stream.KindDone {
		t.Errorf("last event: got %v, want Done", last.Kind)
	}

	if !captured.Stream {
		t.Error("request should set stream: true")
	}
	if captured.Model != "gpt-4o-mini" {
		t.Errorf("model: got %q", captured.Model)
	}
	if captured.Temperature != 0.5 || captured.MaxTokens != 256 {
		t.Errorf("sampling: got temp=%v max=%d", captured.Temperature, captured.MaxTokens)
	}

	wantRoles := []string{"system", "user", "assistant", "user"}
	if len(captured.Messages) != len(wantRoles) {
		t.Fatalf("message count: got %d, want %d", len(captured.Messages), len(wantRoles))
	}
	for i, want := range wantRoles {
		if captured.Messages[i].Role != want {
			t.Errorf("message %d role: got %q, want %q", i, captured.Messages[i].Role, want)
		}
	}
	if got := captured.Messages[3].Content; got != "hi" {
		t.Errorf("final message: got %q, want the current prompt", got)
	}
	if len(captured.Tools) != 0 {
		t.Errorf("tools should be omitted when none are advertised, got %d", len(captured.Tools))
	}
}

func TestRemoteOpenStreamSendsTools(t *testing.T) {
	var captured capturedRequest
	srv := sseServer(t, &captured, `{"choices":[{"delta":{"content":"ok"}}]}`)
	defer srv.Close()

	p, _ := NewRemote(srv.URL, "test-key", "gpt-4o-mini", zerolog.Nop())
	req := &model.Request{
		Prompt: "hi",
		Tools: []mcptypes.Tool{
			mcptypes.NewTool("get_weather", mcptypes.WithDescription("weather lookup")),
		},
	}

	events, err := p.OpenStream(context.Background(), req)
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	for range events {
	}

	if len(captured.Tools) != 1 {
		t.Fatalf("tool count: got %d, want 1", len(captured.Tools))
	}
	if !strings.Contains(string(captured.Tools[0]), "get_weather") {
		t.Errorf("tool payload %s should name the tool", captured.Tools[0])
	}
}

func TestRemoteZeroTemperatureOnWire(t *testing.T) {
	var rawBody map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&rawBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	p, _ := NewRemote(srv.URL, "test-key", "gpt-4o-mini", zerolog.Nop())
	req := &model.Request{Prompt: "hi", Sampling: model.SamplingConfig{Temperature: 0}}

	events, err := p.OpenStream(context.Background(), req)
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	for range events {
	}

	raw, ok := rawBody["temperature"]
	if !ok {
		t.Fatal("temperature missing from request body")
	}
	if string(raw) != "0" {
		t.Errorf("temperature: got %s, want 0", raw)
	}
}

func TestRemoteOpenStreamHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	p, _ := NewRemote(srv.URL, "test-key", "gpt-4o-mini", zerolog.Nop())
	_, err := p.OpenStream(context.Background(), &model.Request{Prompt: "hi"})
	if err == nil {
		t.Fatal("expected transport error for non-2xx response")
	}
	if !strings.Contains(err.Error(), "invalid api key") {
		t.Errorf("error %q should carry the response excerpt", err)
	}
}

func TestRemoteAttachmentsAppendedToPrompt(t *testing.T) {
	var captured capturedRequest
	srv := sseServer(t, &captured, `{"choices":[{"delta":{"content":"ok"}}]}`)
	defer srv.Close()

	p, _ := NewRemote(srv.URL, "test-key", "gpt-4o-mini", zerolog.Nop())
	req := &model.Request{
		Prompt:      "summarize",
		Attachments: []model.Attachment{{Name: "report.pdf"}, {Name: "notes.txt"}},
	}

	events, err := p.OpenStream(context.Background(), req)
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	for range events {
	}

	got := captured.Messages[len(captured.Messages)-1].Content
	want := "summarize\n[attachment: report.pdf]\n[attachment: notes.txt]"
	if got != want {
		t.Errorf("prompt content: got %q, want %q", got, want)
	}
}

func TestRemoteNonStandardRolesReplayAsUser(t *testing.T) {
	var captured capturedRequest
	srv := sseServer(t, &captured, `{"choices":[{"delta":{"content":"ok"}}]}`)
	defer srv.Close()

	p, _ := NewRemote(srv.URL, "test-key", "gpt-4o-mini", zerolog.Nop())
	req := &model.Request{
		History: []model.Message{{Role: model.RoleTool, Content: "tool output"}},
		Prompt:  "hi",
	}

	events, err := p.OpenStream(context.Background(), req)
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	for range events {
	}

	if captured.Messages[0].Role != model.RoleUser {
		t.Errorf("tool-role history: got role %q, want %q", captured.Messages[0].Role, model.RoleUser)
	}
}

func TestNewRemoteValidation(t *testing.T) {
	if _, err := NewRemote("", "", "", zerolog.Nop()); err == nil {
		t.Error("missing API key should fail")
	}

	p, err := NewRemote("", "key", "", zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRemote: %v", err)
	}
	if p.Model() != "gpt-4o-mini" {
		t.Errorf("default model: got %q", p.Model())
	}
}

func TestRemotePing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("path: got %q, want /models", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p, _ := NewRemote(srv.URL, "test-key", "gpt-4o-mini", zerolog.Nop())
	if err := p.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}
