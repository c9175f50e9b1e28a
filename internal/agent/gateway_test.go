package agent

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

type stubCompleter struct {
	reply string
	err   error
	delay time.Duration
	// captured request for assertions
	got openai.ChatCompletionRequest
}

func (s *stubCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.got = req
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return openai.ChatCompletionResponse{}, ctx.Err()
		}
	}
	if s.err != nil {
		return openai.ChatCompletionResponse{}, s.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: s.reply}},
		},
	}, nil
}

func testGateway(c completer, timeout time.Duration) *Gateway {
	return &Gateway{client: c, model: "test-model", timeout: timeout, log: slog.Default()}
}

func TestRespond_PrependsSystemPromptAndMapsRoles(t *testing.T) {
	stub := &stubCompleter{reply: "  Hello there.  "}
	g := testGateway(stub, time.Second)

	got := g.Respond(context.Background(), []Message{
		{Role: RoleAssistant, Content: "Hello! How can I help?"},
		{Role: RoleUser, Content: "What are your hours?"},
	})
	if got != "Hello there." {
		t.Fatalf("expected trimmed reply, got %q", got)
	}
	if len(stub.got.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(stub.got.Messages))
	}
	if stub.got.Messages[0].Role != openai.ChatMessageRoleSystem {
		t.Fatalf("first message must be the system prompt")
	}
	if !strings.Contains(stub.got.Messages[0].Content, "[TRANSFER_SALES]") ||
		!strings.Contains(stub.got.Messages[0].Content, "[TRANSFER_SUPPORT]") {
		t.Fatalf("system prompt must instruct both transfer markers")
	}
	if stub.got.Messages[2].Role != openai.ChatMessageRoleUser {
		t.Fatalf("caller turn must map to the user role, got %q", stub.got.Messages[2].Role)
	}
}

func TestRespond_TimeoutYieldsScriptedFallback(t *testing.T) {
	stub := &stubCompleter{reply: "too late", delay: 200 * time.Millisecond}
	g := testGateway(stub, 20*time.Millisecond)

	got := g.Respond(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if got != TimeoutFallback {
		t.Fatalf("expected timeout fallback, got %q", got)
	}
	if !strings.HasPrefix(got, "I apologize, but I'm having a little trouble right now.") {
		t.Fatalf("timeout fallback wording drifted: %q", got)
	}
}

func TestRespond_ProviderErrorYieldsScriptedFallback(t *testing.T) {
	stub := &stubCompleter{err: errors.New("401 invalid api key")}
	g := testGateway(stub, time.Second)

	got := g.Respond(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if got != FailureFallback {
		t.Fatalf("expected failure fallback, got %q", got)
	}
}

func TestRespond_EmptyChoicesYieldsScriptedFallback(t *testing.T) {
	g := testGateway(&emptyCompleter{}, time.Second)
	if got := g.Respond(context.Background(), nil); got != FailureFallback {
		t.Fatalf("expected failure fallback, got %q", got)
	}
}

type emptyCompleter struct{}

func (emptyCompleter) CreateChatCompletion(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return openai.ChatCompletionResponse{}, nil
}

func TestNewGateway_DefaultTimeout(t *testing.T) {
	g := NewGateway(GatewayConfig{APIKey: "k", Model: "m"}, slog.Default())
	if g.timeout != 8*time.Second {
		t.Fatalf("expected 8s request timeout, got %v", g.timeout)
	}
}
