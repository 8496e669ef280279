package llmtransport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPProvider is a minimal adapter that POSTs completion requests to a
// configured endpoint, assuming a bearer token either set directly or
// resolved through a CredentialProvider. Cloud-endpoint discovery is
// left to the deployment; when Credentials is set, Complete refreshes
// Token from it
// whenever the cached token is empty or past its expiry, instead of
// requiring callers to refresh Token themselves.
type HTTPProvider struct {
	Endpoint    string
	Token       string
	Scope       string
	Credentials CredentialProvider
	Client      *http.Client

	tokenExpiry time.Time
}

// NewHTTPProvider builds an HTTPProvider with a static bearer token and
// a sane default client timeout; callers should still set a per-call
// timeout via context.
func NewHTTPProvider(endpoint, token string) *HTTPProvider {
	return &HTTPProvider{
		Endpoint: endpoint,
		Token:    token,
		Client:   &http.Client{Timeout: 60 * time.Second},
	}
}

// NewHTTPProviderWithCredentials builds an HTTPProvider that exchanges
// scope for a bearer token through credentials (e.g. an
// AzureCredentialProvider wrapping an azcore.TokenCredential) before
// each request whose cached token has expired.
func NewHTTPProviderWithCredentials(endpoint, scope string, credentials CredentialProvider) *HTTPProvider {
	return &HTTPProvider{
		Endpoint:    endpoint,
		Scope:       scope,
		Credentials: credentials,
		Client:      &http.Client{Timeout: 60 * time.Second},
	}
}

// refreshToken exchanges Scope for a fresh bearer token when Credentials
// is configured and the cached one is missing or expired.
func (p *HTTPProvider) refreshToken(ctx context.Context) error {
	if p.Credentials == nil {
		return nil
	}
	if p.Token != "" && time.Now().Before(p.tokenExpiry) {
		return nil
	}
	cred, err := p.Credentials.GetCredential(ctx, p.Scope)
	if err != nil {
		return fmt.Errorf("refresh credential: %w", err)
	}
	p.Token = cred.Token
	p.tokenExpiry = cred.ExpiresAt
	return nil
}

type httpCompletionBody struct {
	Tier         Tier      `json:"tier"`
	SystemPrompt string    `json:"system_prompt"`
	Messages     []Message `json:"messages"`
	Stream       bool      `json:"stream"`
}

type httpCompletionResult struct {
	Text         string `json:"text"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

func (p *HTTPProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	if err := p.refreshToken(ctx); err != nil {
		return CompletionResponse{}, err
	}

	body := httpCompletionBody{Tier: req.Tier, SystemPrompt: req.SystemPrompt, Messages: req.Messages}
	payload, err := json.Marshal(body)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("marshal completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("build completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.Token)

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return CompletionResponse{}, fmt.Errorf("completion request returned %d: %s", resp.StatusCode, string(data))
	}

	var result httpCompletionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return CompletionResponse{}, fmt.Errorf("decode completion response: %w", err)
	}
	return CompletionResponse{Text: result.Text, InputTokens: result.InputTokens, OutputTokens: result.OutputTokens}, nil
}

// Stream degrades to a two-chunk replay of Complete: the streaming
// wire contract depends on a concrete provider's chunked-response
// framing, which this generic adapter does not assume.
func (p *HTTPProvider) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	resp, err := p.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	ch := make(chan StreamChunk, 2)
	ch <- StreamChunk{TextDelta: resp.Text}
	ch <- StreamChunk{Done: true, Usage: &resp}
	close(ch)
	return ch, nil
}
