// Package llmtransport defines the chat-completion transport the
// runtime talks to, split into a light helper tier and the main
// persona tier, plus the credential exchange hook transports use for
// bearer tokens. Endpoint discovery and provider SDKs live with the
// deployment, not here.
package llmtransport

import (
	"context"
	"time"
)

// Tier distinguishes the "light tier" LLM used for pre/post-processing
// helper calls from the "main" persona-agent tier.
type Tier string

const (
	TierLight Tier = "light"
	TierMain  Tier = "main"
)

// Message is one turn of conversation history passed to a Provider.
type Message struct {
	Role    string `json:"role"` // "user" | "assistant" | "system"
	Content string `json:"content"`
}

// CompletionRequest is a single non-streaming or streaming completion
// call.
type CompletionRequest struct {
	Tier         Tier
	SystemPrompt string
	Messages     []Message
	Timeout      time.Duration
}

// CompletionResponse is the result of a non-streaming call.
type CompletionResponse struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// StreamChunk is one piece of a streaming completion: a text delta, a
// tool invocation, or the terminal usage-bearing chunk.
type StreamChunk struct {
	TextDelta string
	ToolCall  *ToolCallChunk
	Done      bool
	Err       error
	Usage     *CompletionResponse // populated only on the final chunk
}

// ToolCallChunk is a model-requested tool invocation surfaced mid-stream.
type ToolCallChunk struct {
	ID   string
	Name string
	Args map[string]any
}

// Provider is the external LLM transport collaborator.
// Implementations must be safe for concurrent use across threads.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
	Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error)
}

// Credential is the opaque bearer credential CredentialProvider hands
// back; acquisition mechanics (Vault, managed
// identity) are out of this module's scope.
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

// CredentialProvider is the external secret-acquisition collaborator.
type CredentialProvider interface {
	GetCredential(ctx context.Context, scope string) (Credential, error)
}
