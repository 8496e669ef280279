package agentrunner

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/migrationcopilot/architecture-agent/core"
	"github.com/migrationcopilot/architecture-agent/internal/analyticalstore"
	"github.com/migrationcopilot/architecture-agent/internal/llmtransport"
	"github.com/migrationcopilot/architecture-agent/internal/postprocess"
	"github.com/migrationcopilot/architecture-agent/internal/threadstate"
	"github.com/migrationcopilot/architecture-agent/internal/toolsurface"
)

func newDeps(t *testing.T) *threadstate.AgentDeps {
	t.Helper()
	factory := analyticalstore.NewInMemoryFactory()
	factory.RegisterView("application_overview", []map[string]any{{"name": "app1", "score": 10}}, "name: text\nscore: int")
	registry := threadstate.NewRegistry(factory)
	return registry.GetOrCreate("t1", "core", false, "u1")
}

func drain(ch <-chan core.StreamEvent) []core.StreamEvent {
	var events []core.StreamEvent
	for e := range ch {
		events = append(events, e)
	}
	return events
}

func TestRun_EmitsInitialAndTerminalStateSnapshots(t *testing.T) {
	deps := newDeps(t)
	provider := llmtransport.NewMockProvider(llmtransport.Responder{
		Match: func(req llmtransport.CompletionRequest) bool { return true },
		Reply: "hello there",
	})

	ch := Run(context.Background(), Turn{
		Deps:     deps,
		Persona:  "core",
		Messages: []llmtransport.Message{{Role: "user", Content: "hi"}},
		Provider: provider,
		Tools:    toolsurface.NewRegistry(nil),
	})

	events := drain(ch)
	require.NotEmpty(t, events)
	assert.Equal(t, core.EventStateSnapshot, events[0].Type)
	assert.Equal(t, core.EventDone, events[len(events)-1].Type)
	assert.Equal(t, core.EventStateSnapshot, events[len(events)-2].Type)

	var textDeltas int
	for _, e := range events {
		if e.Type == core.EventTextDelta {
			textDeltas++
		}
	}
	assert.Positive(t, textDeltas)
}

func TestRun_SetsSuggestionsOnTerminalSnapshot(t *testing.T) {
	deps := newDeps(t)
	provider := llmtransport.NewMockProvider(llmtransport.Responder{
		Match: func(req llmtransport.CompletionRequest) bool { return true },
		Reply: `[{"pill_text":"a","suggestion":"b"},{"pill_text":"c","suggestion":"d"},{"pill_text":"e","suggestion":"f"}]`,
	})

	ch := Run(context.Background(), Turn{
		Deps:        deps,
		Persona:     "core",
		Messages:    []llmtransport.Message{{Role: "user", Content: "hi"}},
		Provider:    provider,
		Tools:       toolsurface.NewRegistry(nil),
		PostProcess: postprocess.Options{Provider: provider},
	})

	events := drain(ch)
	require.Equal(t, core.EventDone, events[len(events)-1].Type)
	last := events[len(events)-2]
	require.Equal(t, core.EventStateSnapshot, last.Type)

	var snapshot core.AgentState
	require.NoError(t, json.Unmarshal(last.Payload, &snapshot))
	assert.Len(t, snapshot.Suggestions, 3)
}

func TestRun_CancellationEmitsErrorEvent(t *testing.T) {
	deps := newDeps(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider := llmtransport.NewMockProvider()
	ch := Run(ctx, Turn{
		Deps:     deps,
		Persona:  "core",
		Messages: []llmtransport.Message{{Role: "user", Content: "hi"}},
		Provider: provider,
		Tools:    toolsurface.NewRegistry(nil),
	})

	events := drain(ch)
	require.GreaterOrEqual(t, len(events), 3)
	assert.Equal(t, core.EventDone, events[len(events)-1].Type)
	assert.Equal(t, core.EventError, events[len(events)-2].Type)
}

func TestRun_DoesNotHangOnMissingProvider(t *testing.T) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		deps := newDeps(t)
		ch := Run(context.Background(), Turn{
			Deps:     deps,
			Persona:  "core",
			Messages: []llmtransport.Message{{Role: "user", Content: "hi"}},
			Provider: llmtransport.NewMockProvider(),
			Tools:    toolsurface.NewRegistry(nil),
		})
		drain(ch)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not complete in time")
	}
}
