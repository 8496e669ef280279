package llmtransport

import (
	"context"
	"strings"
)

// MockProvider is a deterministic Provider used by tests and by
// cmd/server when no real provider is configured. Responders are
// consulted in order; the first whose Match returns true answers the
// call. A provider with no matching responder falls back to echoing the
// last user message, so every call always completes.
type MockProvider struct {
	Responders []Responder
}

// Responder maps a predicate over the request to a canned text response.
type Responder struct {
	Match func(req CompletionRequest) bool
	Reply string
}

// NewMockProvider builds a MockProvider with the given responders,
// consulted in order.
func NewMockProvider(responders ...Responder) *MockProvider {
	return &MockProvider{Responders: responders}
}

func (m *MockProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	text := m.reply(req)
	return CompletionResponse{
		Text:         text,
		InputTokens:  approxTokens(req.SystemPrompt) + approxTokens(lastUserContent(req)),
		OutputTokens: approxTokens(text),
	}, nil
}

func (m *MockProvider) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	text := m.reply(req)
	ch := make(chan StreamChunk, 4)
	go func() {
		defer close(ch)
		words := strings.Fields(text)
		for _, w := range words {
			select {
			case <-ctx.Done():
				ch <- StreamChunk{Err: ctx.Err()}
				return
			case ch <- StreamChunk{TextDelta: w + " "}:
			}
		}
		ch <- StreamChunk{
			Done: true,
			Usage: &CompletionResponse{
				Text:         text,
				InputTokens:  approxTokens(req.SystemPrompt) + approxTokens(lastUserContent(req)),
				OutputTokens: approxTokens(text),
			},
		}
	}()
	return ch, nil
}

func (m *MockProvider) reply(req CompletionRequest) string {
	for _, r := range m.Responders {
		if r.Match(req) {
			return r.Reply
		}
	}
	return lastUserContent(req)
}

func lastUserContent(req CompletionRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			return req.Messages[i].Content
		}
	}
	return ""
}

// approxTokens is a rough word-count proxy; real token accounting is a
// provider-side concern, out of this module's scope.
func approxTokens(s string) int {
	if s == "" {
		return 0
	}
	return len(strings.Fields(s))
}
