package postprocess

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/migrationcopilot/architecture-agent/internal/analyticalstore"
	"github.com/migrationcopilot/architecture-agent/internal/llmtransport"
	"github.com/migrationcopilot/architecture-agent/internal/telemetry"
	"github.com/migrationcopilot/architecture-agent/internal/threadstate"
	"github.com/migrationcopilot/architecture-agent/internal/usage"
)

func newDeps(t *testing.T) *threadstate.AgentDeps {
	t.Helper()
	registry := threadstate.NewRegistry(analyticalstore.NewInMemoryFactory())
	return registry.GetOrCreate("t1", "core", false, "u1")
}

func TestRun_RecordsUsageAndGeneratesSuggestions(t *testing.T) {
	deps := newDeps(t)
	agg := usage.NewAggregator(usage.Limits{WindowHours: 24})
	sink, err := telemetry.OpenUsageSink(filepath.Join(t.TempDir(), "usage.log"))
	require.NoError(t, err)
	defer sink.Close()

	provider := llmtransport.NewMockProvider(llmtransport.Responder{
		Match: func(req llmtransport.CompletionRequest) bool { return true },
		Reply: `[{"pill_text":"Costs?","suggestion":"What would this cost?"},` +
			`{"pill_text":"Risks?","suggestion":"What are the risks?"},` +
			`{"pill_text":"Next?","suggestion":"What should we do next?"}]`,
	})

	outcome := Run(context.Background(), deps, TurnResult{
		Persona:  "core",
		Query:    "what should I do",
		Response: "you should rehost",
		Usage:    &llmtransport.CompletionResponse{InputTokens: 10, OutputTokens: 20},
	}, Options{Aggregator: agg, Sink: sink, Provider: provider, ProviderTag: "mock", Model: "mock-light"})

	require.Len(t, outcome.Suggestions, 3)
	require.Equal(t, int64(30), agg.CurrentUsage("u1", "t1"))
}

func TestRun_SuggestionFailureYieldsEmptyList(t *testing.T) {
	deps := newDeps(t)
	agg := usage.NewAggregator(usage.Limits{WindowHours: 24})

	provider := llmtransport.NewMockProvider(llmtransport.Responder{
		Match: func(req llmtransport.CompletionRequest) bool { return true },
		Reply: "not json",
	})

	outcome := Run(context.Background(), deps, TurnResult{
		Persona: "core",
		Query:   "hello",
		Usage:   &llmtransport.CompletionResponse{InputTokens: 1, OutputTokens: 1},
	}, Options{Aggregator: agg, Provider: provider})

	require.Empty(t, outcome.Suggestions)
}

func TestRun_NilUsageSkipsRecording(t *testing.T) {
	deps := newDeps(t)
	agg := usage.NewAggregator(usage.Limits{WindowHours: 24})

	Run(context.Background(), deps, TurnResult{Persona: "core"}, Options{Aggregator: agg})
	require.Equal(t, int64(0), agg.CurrentUsage("u1", "t1"))
}
