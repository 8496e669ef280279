package toolsurface

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/migrationcopilot/architecture-agent/core"
	"github.com/migrationcopilot/architecture-agent/internal/analyticalstore"
	"github.com/migrationcopilot/architecture-agent/internal/threadstate"
)

func newTestDeps(t *testing.T) *threadstate.AgentDeps {
	t.Helper()
	factory := analyticalstore.NewInMemoryFactory()
	factory.RegisterView("application_overview", []map[string]any{
		{"name": "app1", "score": 10},
		{"name": "app2", "score": 20},
	}, "name: text\nscore: int")

	registry := threadstate.NewRegistry(factory)
	return registry.GetOrCreate("thread-1", "core", false, "")
}

func TestViewSchema_ReturnsSchemaText(t *testing.T) {
	deps := newTestDeps(t)
	tool := viewSchemaTool{}
	result, err := tool.Call(context.Background(), deps, map[string]any{"view_name": "application_overview"})
	require.NoError(t, err)
	require.Contains(t, result["schema"], "score")
}

func TestViewSchema_UnknownViewIsRetryable(t *testing.T) {
	deps := newTestDeps(t)
	tool := viewSchemaTool{}
	_, err := tool.Call(context.Background(), deps, map[string]any{"view_name": "missing"})
	require.Error(t, err)
	var rte *core.RetryableToolError
	require.True(t, errors.As(err, &rte))
}

func TestQueryView_StoresResultAndReturnsPreview(t *testing.T) {
	deps := newTestDeps(t)
	tool := queryViewTool{}
	result, err := tool.Call(context.Background(), deps, map[string]any{
		"view_name":   "application_overview",
		"sql":         "SELECT * FROM application_overview",
		"description": "list apps",
	})
	require.NoError(t, err)
	ref := result["ref"].(string)
	require.Equal(t, "output_1", ref)
	require.Equal(t, 2, result["rows"])
}

func TestQueryOutput_MissingRefIsRetryableAndWrapsErrOutputNotFound(t *testing.T) {
	deps := newTestDeps(t)
	tool := queryOutputTool{}
	_, err := tool.Call(context.Background(), deps, map[string]any{
		"ref":         "output_99",
		"sql":         "SELECT * FROM output_99",
		"description": "missing",
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, core.ErrOutputNotFound))
	var rte *core.RetryableToolError
	require.True(t, errors.As(err, &rte))
}

func TestQueryOutput_QueriesPreviouslyStoredScratchTable(t *testing.T) {
	deps := newTestDeps(t)
	queryView := queryViewTool{}
	first, err := queryView.Call(context.Background(), deps, map[string]any{
		"view_name":   "application_overview",
		"sql":         "SELECT * FROM application_overview",
		"description": "list apps",
	})
	require.NoError(t, err)
	ref := first["ref"].(string)

	queryOutput := queryOutputTool{}
	second, err := queryOutput.Call(context.Background(), deps, map[string]any{
		"ref":         ref,
		"sql":         "SELECT * FROM " + ref + " LIMIT 1",
		"description": "narrow",
	})
	require.NoError(t, err)
	require.Equal(t, 1, second["rows"])
}

func TestHiddenVisualization_RevealIsIdempotent(t *testing.T) {
	// generate_chart(hidden=true) then two reveal_visualization calls
	// for the same id must not produce two distinct reveal outcomes.
	deps := newTestDeps(t)
	chartTool := generateChartTool{}
	result, err := chartTool.Call(context.Background(), deps, map[string]any{
		"chart_type": "bar",
		"ref":        "output_1",
		"title":      "Scores",
		"x":          "name",
		"ys":         []any{"score"},
		"hidden":     true,
	})
	require.NoError(t, err)
	id := result["tool_call_id"].(string)
	require.Equal(t, "chart_output_1_Scores", id)

	reveal := revealVisualizationTool{}
	first, err := reveal.Call(context.Background(), deps, map[string]any{"tool_call_id": id})
	require.NoError(t, err)
	require.Equal(t, "[VISUALIZATION:"+id+"]", first["marker"])

	second, err := reveal.Call(context.Background(), deps, map[string]any{"tool_call_id": id})
	require.NoError(t, err)
	require.Equal(t, first["marker"], second["marker"])

	call, ok := deps.GetHiddenToolCall(id)
	require.True(t, ok)
	require.False(t, call.Hidden)
}

func TestRegistry_UnknownToolIsRetryable(t *testing.T) {
	deps := newTestDeps(t)
	registry := NewRegistry(nil)
	_, err := registry.Call(context.Background(), deps, "does_not_exist", nil)
	require.Error(t, err)
	var rte *core.RetryableToolError
	require.True(t, errors.As(err, &rte))
}

func TestRegistry_NamesIncludesAllToolSurfaceTools(t *testing.T) {
	registry := NewRegistry(nil)
	names := registry.Names()
	for _, want := range []string{
		"view_schema", "query_view", "query_output",
		"render_table", "generate_chart", "display_kpi_tiles", "reveal_visualization",
		"score_architecture",
	} {
		require.Contains(t, names, want)
	}
}
