// Package agentrunner drives a persona agent and produces the lazy,
// single-producer event stream of StateSnapshot/TextDelta/ToolCall/
// ToolResult/RevealMarker/Done/Error events the transport layer relays
// to the client: initial snapshot, model/tool events, reveal markers,
// terminal snapshot.
package agentrunner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/migrationcopilot/architecture-agent/core"
	"github.com/migrationcopilot/architecture-agent/internal/llmtransport"
	"github.com/migrationcopilot/architecture-agent/internal/postprocess"
	"github.com/migrationcopilot/architecture-agent/internal/prompts"
	"github.com/migrationcopilot/architecture-agent/internal/templates"
	"github.com/migrationcopilot/architecture-agent/internal/threadstate"
	"github.com/migrationcopilot/architecture-agent/internal/toolsurface"
)

// Turn bundles everything the runner needs to drive one turn's stream.
type Turn struct {
	Deps         *threadstate.AgentDeps
	Persona      string
	Template     *templates.Template
	Messages     []llmtransport.Message
	Provider     llmtransport.Provider
	Tools        *toolsurface.Registry
	PostProcess  postprocess.Options
	Variables    prompts.Variables
	SystemPrompt string // pre-resolved persona instructions (internal/prompts)
}

const maxToolHops = 8

// Run drives a turn and returns a channel of StreamEvent in a fixed
// order: one initial snapshot, model/tool events, reveal markers, one
// terminal snapshot. The channel is closed when the turn (including
// post-processing) completes or ctx is canceled.
func Run(ctx context.Context, turn Turn) <-chan core.StreamEvent {
	out := make(chan core.StreamEvent, 16)

	go func() {
		defer close(out)

		out <- core.NewStreamEvent(core.EventStateSnapshot, turn.Deps.State)

		systemPrompt := turn.SystemPrompt
		messages := turn.Messages
		if turn.Template != nil {
			messages = append(append([]llmtransport.Message{}, messages...),
				llmtransport.Message{Role: "system", Content: turn.Template.SystemMessage(func(s string) string {
					return substituteVariables(s, turn.Variables)
				})})
		}

		revealed := make(map[string]bool)
		var fullText strings.Builder
		var lastUsage *llmtransport.CompletionResponse

		for hop := 0; hop < maxToolHops; hop++ {
			select {
			case <-ctx.Done():
				out <- core.NewStreamEvent(core.EventError, core.ErrorPayload{ErrorType: "canceled", Message: ctx.Err().Error()})
				out <- core.NewStreamEvent(core.EventDone, core.DonePayload{})
				return
			default:
			}

			req := llmtransport.CompletionRequest{Tier: llmtransport.TierMain, SystemPrompt: systemPrompt, Messages: messages}
			chunks, err := turn.Provider.Stream(ctx, req)
			if err != nil {
				out <- core.NewStreamEvent(core.EventError, core.ErrorPayload{ErrorType: "transport_failure", Message: err.Error()})
				out <- core.NewStreamEvent(core.EventDone, core.DonePayload{})
				return
			}

			toolCall, usage, streamErr := relayStream(ctx, out, chunks, &fullText, revealed)
			if streamErr != nil {
				out <- core.NewStreamEvent(core.EventError, core.ErrorPayload{ErrorType: "transport_failure", Message: streamErr.Error()})
				out <- core.NewStreamEvent(core.EventDone, core.DonePayload{})
				return
			}
			lastUsage = usage

			if toolCall == nil {
				break
			}

			result, toolErr := turn.Tools.Call(ctx, turn.Deps, toolCall.Name, toolCall.Args)
			payload := core.ToolResultPayload{ID: toolCall.ID}
			if toolErr != nil {
				payload.Error = toolErr.Error()
			} else {
				payload.Result = result
				emitRevealMarkers(out, result, revealed)
			}
			out <- core.NewStreamEvent(core.EventToolResult, payload)

			messages = append(messages,
				llmtransport.Message{Role: "assistant", Content: fmt.Sprintf("[tool_call:%s]", toolCall.Name)},
				llmtransport.Message{Role: "user", Content: toolResultAsMessage(payload)},
			)
		}

		result := postprocess.Run(ctx, turn.Deps, postprocess.TurnResult{
			Persona:  turn.Persona,
			Query:    lastUserContent(turn.Messages),
			Response: fullText.String(),
			Usage:    lastUsage,
		}, turn.PostProcess)

		turn.Deps.State.SetSuggestions(result.Suggestions)
		out <- core.NewStreamEvent(core.EventStateSnapshot, turn.Deps.State)
		out <- core.NewStreamEvent(core.EventDone, core.DonePayload{})
	}()

	return out
}

// relayStream drains one Provider.Stream call, emitting TextDelta events
// and returning the first tool call chunk seen, if any.
func relayStream(
	ctx context.Context,
	out chan<- core.StreamEvent,
	chunks <-chan llmtransport.StreamChunk,
	fullText *strings.Builder,
	revealed map[string]bool,
) (*llmtransport.ToolCallChunk, *llmtransport.CompletionResponse, error) {
	for chunk := range chunks {
		if chunk.Err != nil {
			return nil, nil, chunk.Err
		}
		if chunk.TextDelta != "" {
			fullText.WriteString(chunk.TextDelta)
			scanForRevealSentinels(out, chunk.TextDelta, revealed)
			out <- core.NewStreamEvent(core.EventTextDelta, core.TextDeltaPayload{Text: chunk.TextDelta})
		}
		if chunk.ToolCall != nil {
			out <- core.NewStreamEvent(core.EventToolCall, core.ToolCallPayload{
				ID: chunk.ToolCall.ID, Name: chunk.ToolCall.Name, Args: chunk.ToolCall.Args,
			})
			return chunk.ToolCall, chunk.Usage, nil
		}
		if chunk.Done {
			return nil, chunk.Usage, nil
		}
	}
	return nil, nil, nil
}

// scanForRevealSentinels looks for "[VISUALIZATION:id]" sentinels the
// reveal_visualization tool's return value might have caused the model
// to echo back in its own text, and emits exactly one RevealMarker per
// id per turn, so repeated reveals of the same id stay idempotent.
func scanForRevealSentinels(out chan<- core.StreamEvent, text string, revealed map[string]bool) {
	for {
		start := strings.Index(text, "[VISUALIZATION:")
		if start < 0 {
			return
		}
		end := strings.Index(text[start:], "]")
		if end < 0 {
			return
		}
		id := text[start+len("[VISUALIZATION:") : start+end]
		text = text[start+end+1:]
		if revealed[id] {
			continue
		}
		revealed[id] = true
		out <- core.NewStreamEvent(core.EventRevealMarker, core.RevealMarkerPayload{ToolCallID: id})
	}
}

// emitRevealMarkers handles the case where a reveal happens as a direct
// tool result rather than via sentinel text (e.g. the model calls
// reveal_visualization and nothing else that turn).
func emitRevealMarkers(out chan<- core.StreamEvent, result map[string]any, revealed map[string]bool) {
	marker, ok := result["marker"].(string)
	if !ok || !strings.HasPrefix(marker, "[VISUALIZATION:") {
		return
	}
	id := strings.TrimSuffix(strings.TrimPrefix(marker, "[VISUALIZATION:"), "]")
	if revealed[id] {
		return
	}
	revealed[id] = true
	out <- core.NewStreamEvent(core.EventRevealMarker, core.RevealMarkerPayload{ToolCallID: id})
}

func toolResultAsMessage(payload core.ToolResultPayload) string {
	if payload.Error != "" {
		return "tool error: " + payload.Error
	}
	data, err := json.Marshal(payload.Result)
	if err != nil {
		return "tool result unavailable"
	}
	return string(data)
}

func lastUserContent(messages []llmtransport.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}

func substituteVariables(text string, vars prompts.Variables) string {
	text = strings.ReplaceAll(text, "{{MIGRATION_TARGET}}", vars.MigrationTarget)
	text = strings.ReplaceAll(text, "{{DATA_SCHEMA}}", vars.DataSchema)
	return text
}
