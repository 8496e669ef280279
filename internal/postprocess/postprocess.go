// Package postprocess runs once a turn's agent stream completes:
// usage recording and follow-up suggestion generation, in parallel.
package postprocess

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/migrationcopilot/architecture-agent/core"
	"github.com/migrationcopilot/architecture-agent/internal/llmtransport"
	"github.com/migrationcopilot/architecture-agent/internal/telemetry"
	"github.com/migrationcopilot/architecture-agent/internal/templates"
	"github.com/migrationcopilot/architecture-agent/internal/threadstate"
	"github.com/migrationcopilot/architecture-agent/internal/usage"
)

// TurnResult carries what the runner learned about the just-completed
// turn: the model's final usage figures and the full exchanged text.
type TurnResult struct {
	Persona  string
	Query    string
	Response string
	Usage    *llmtransport.CompletionResponse
}

// Options configures a post-processing pass.
type Options struct {
	Aggregator  *usage.Aggregator
	Sink        *telemetry.UsageSink
	Provider    llmtransport.Provider
	Templates   *templates.Catalog
	ProviderTag string // provider tag recorded on the UsageRecord
	Model       string
	Span        trace.Span // turn span, ended here with final usage attributes
}

// Outcome is what the caller applies back to AgentState: the generated
// suggestion list, possibly empty on failure.
type Outcome struct {
	Suggestions []core.SuggestionItem
}

// Run executes usage recording and suggestion generation in parallel.
// Usage recording takes no context: it runs detached from the turn's
// cancellation so a client disconnect cannot lose the tokens the turn
// already consumed.
func Run(ctx context.Context, deps *threadstate.AgentDeps, result TurnResult, opts Options) Outcome {
	var suggestions []core.SuggestionItem

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		recordUsage(deps, result, opts)
		return nil
	})

	g.Go(func() error {
		suggestions = generateSuggestions(gctx, deps, result, opts)
		return nil
	})

	// Errors from either task are swallowed: usage-sink failures are
	// core.TelemetryFailure (never fatal to the turn) and suggestion
	// failures already degrade to an empty list internally.
	_ = g.Wait()

	if opts.Span != nil {
		var in, out int64
		if result.Usage != nil {
			in, out = int64(result.Usage.InputTokens), int64(result.Usage.OutputTokens)
		}
		telemetry.EndTurnSpan(opts.Span, opts.ProviderTag, opts.Model, in, out)
	}

	return Outcome{Suggestions: suggestions}
}

func recordUsage(deps *threadstate.AgentDeps, result TurnResult, opts Options) {
	if result.Usage == nil || opts.Aggregator == nil {
		return
	}

	record := usage.Record{
		UserID:       deps.State.Snapshot().UserID,
		ThreadID:     deps.ThreadID,
		Timestamp:    time.Now().UTC(),
		Query:        result.Query,
		Response:     result.Response,
		InputTokens:  int64(result.Usage.InputTokens),
		OutputTokens: int64(result.Usage.OutputTokens),
		Provider:     opts.ProviderTag,
		Model:        opts.Model,
		Persona:      result.Persona,
	}

	opts.Aggregator.AddUsageItem(record)

	if opts.Sink != nil {
		if err := opts.Sink.Write(record); err != nil {
			core.Logger().Warn().Err(err).Str("thread_id", deps.ThreadID).Msg("usage sink write failed")
		}
	}
}

func generateSuggestions(ctx context.Context, deps *threadstate.AgentDeps, result TurnResult, opts Options) []core.SuggestionItem {
	if opts.Provider == nil {
		return nil
	}

	systemPrompt := "Suggest exactly three short follow-up questions the user might ask next, " +
		"written from the user's own perspective. Respond as a JSON array of " +
		"{\"pill_text\": ..., \"suggestion\": ...} objects."
	if opts.Templates != nil {
		systemPrompt += "\n\n" + opts.Templates.BuildSelectionPrompt()
	}

	req := llmtransport.CompletionRequest{
		Tier:         llmtransport.TierLight,
		SystemPrompt: systemPrompt,
		Messages: []llmtransport.Message{
			{Role: "user", Content: result.Query},
			{Role: "assistant", Content: result.Response},
		},
	}

	resp, err := opts.Provider.Complete(ctx, req)
	if err != nil {
		core.Logger().Warn().Err(err).Str("thread_id", deps.ThreadID).Msg("suggestion generation failed")
		return nil
	}

	items, err := parseSuggestions(resp.Text)
	if err != nil {
		core.Logger().Warn().Err(err).Str("thread_id", deps.ThreadID).Msg("suggestion response could not be parsed")
		return nil
	}
	if len(items) != 3 {
		core.Logger().Warn().Int("count", len(items)).Str("thread_id", deps.ThreadID).Msg("suggestion response did not contain exactly three items")
		if len(items) > 3 {
			return items[:3]
		}
		return nil
	}
	return items
}

func parseSuggestions(text string) ([]core.SuggestionItem, error) {
	type wire struct {
		PillText   string `json:"pill_text"`
		Suggestion string `json:"suggestion"`
	}
	var raw []wire
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("parse suggestions: %w", err)
	}
	items := make([]core.SuggestionItem, 0, len(raw))
	for _, r := range raw {
		items = append(items, core.SuggestionItem{PillText: r.PillText, Suggestion: r.Suggestion})
	}
	return items, nil
}
