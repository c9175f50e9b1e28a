package agent

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Message is the gateway's two-role chat vocabulary.
type Message struct {
	Role    string
	Content string
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const systemPrompt = `You are a friendly and professional AI phone assistant for our company.
Your job is to help callers with their questions and route them appropriately.

CRITICAL RULES:
1. Be concise. Phone conversations should use short, clear sentences.
2. Be warm and professional. Greet callers politely.
3. SALES TRANSFER RULE - This is MANDATORY: When the caller mentions ANY of the following topics:
   pricing, purchasing, buying, cost, sales, demo, trial, contract, quote, order, plans,
   or asks to speak with a sales representative,
   you MUST start your response with the EXACT text [TRANSFER_SALES] followed by a space
   and then a brief transition message.

   Correct example: [TRANSFER_SALES] Great, let me connect you with our sales team right away.

4. SUPPORT TRANSFER RULE - Equally MANDATORY: When the caller reports a technical problem,
   an outage, something broken, or asks for a technician or technical help,
   you MUST start your response with the EXACT text [TRANSFER_SUPPORT] followed by a space
   and then a brief transition message.

   Correct example: [TRANSFER_SUPPORT] I'm sorry to hear that, let me connect you with our support team.

5. For general questions (hours, directions, FAQs), answer directly WITHOUT any prefix.
6. If you don't know the answer, say so honestly and offer to connect them with a human.
7. Keep responses under 3 sentences when possible - callers are listening, not reading.
8. Never mention that you are an AI unless directly asked.`

// Scripted degraded replies. Spoken verbatim, so wording is stable.
// Neither contains a marker nor phrasing the fallback classifier matches.
const (
	TimeoutFallback = "I apologize, but I'm having a little trouble right now. " +
		"Could you please repeat that, or I can connect you with a team member?"
	FailureFallback = "I'm sorry, I'm experiencing a technical issue at the moment. " +
		"Please hold while I connect you with a team member, " +
		"or you can call back in a few minutes."
)

const (
	requestTimeout = 8 * time.Second
	maxTokens      = 150
	temperature    = 0.7
)

// completer is the single provider call the gateway wraps.
// *openai.Client satisfies it.
type completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Gateway wraps one chat-completion RPC with a hard timeout and scripted
// fallbacks. Respond never returns an error: one degraded reply must never
// abort an in-progress phone call.
type Gateway struct {
	client  completer
	model   string
	timeout time.Duration
	log     *slog.Logger
}

// GatewayConfig carries the provider settings for NewGateway.
type GatewayConfig struct {
	APIKey string
	// BaseURL overrides the provider endpoint; any OpenAI-compatible
	// completion API works (empty means the default).
	BaseURL string
	Model   string
}

func NewGateway(cfg GatewayConfig, log *slog.Logger) *Gateway {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Gateway{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: requestTimeout,
		log:     log,
	}
}

// Respond prepends the system instruction to history and returns the
// model's reply, or a scripted fallback on timeout or provider failure.
func (g *Gateway) Respond(ctx context.Context, history []Message) string {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, m := range history {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	reqCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    msgs,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			g.log.Error("model request timed out", "timeout", g.timeout)
			return TimeoutFallback
		}
		g.log.Error("model request failed", "err", err)
		return FailureFallback
	}
	if len(resp.Choices) == 0 {
		g.log.Error("model returned no choices")
		return FailureFallback
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content)
}
