// Package toolsurface holds the typed tools a persona agent invokes
// to query the analytical store and to stage (or immediately show)
// visualizations.
package toolsurface

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/migrationcopilot/architecture-agent/core"
	"github.com/migrationcopilot/architecture-agent/internal/analyticalstore"
	"github.com/migrationcopilot/architecture-agent/internal/scoring"
	"github.com/migrationcopilot/architecture-agent/internal/threadstate"
)

// Tool is the callable surface a persona agent invokes, taking the
// calling turn's AgentDeps explicitly rather than through an ambient
// context object.
type Tool interface {
	Name() string
	Call(ctx context.Context, deps *threadstate.AgentDeps, args map[string]any) (map[string]any, error)
}

// Registry holds the fixed set of tools available to persona agents.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry builds a registry pre-populated with the full tool set.
// engine may be nil: threads that never invoke score_architecture
// (e.g. a non-architecture persona) don't need one; the tool returns an
// error if called without one, which Registry.Call wraps as retryable.
func NewRegistry(engine *scoring.Engine) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range []Tool{
		viewSchemaTool{},
		queryViewTool{},
		queryOutputTool{},
		renderTableTool{},
		generateChartTool{},
		displayKPITilesTool{},
		revealVisualizationTool{},
		scoreArchitectureTool{engine: engine},
	} {
		r.tools[t.Name()] = t
	}
	return r
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns every registered tool name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Call looks up and invokes a tool by name, wrapping an unknown-tool
// lookup failure the same way a tool-level failure would be wrapped:
// as a core.RetryableToolError, never a terminal error, so the model
// can correct itself instead of killing the stream.
func (r *Registry) Call(ctx context.Context, deps *threadstate.AgentDeps, name string, args map[string]any) (map[string]any, error) {
	tool, ok := r.Get(name)
	if !ok {
		return nil, &core.RetryableToolError{ToolName: name, Cause: fmt.Errorf("tool %q not found", name)}
	}
	result, err := tool.Call(ctx, deps, args)
	if err != nil {
		var rte *core.RetryableToolError
		if isRetryable(err, &rte) {
			return nil, err
		}
		return nil, &core.RetryableToolError{ToolName: name, Cause: err}
	}
	return result, nil
}

func isRetryable(err error, target **core.RetryableToolError) bool {
	rte, ok := err.(*core.RetryableToolError)
	if ok {
		*target = rte
	}
	return ok
}

func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string", key)
	}
	return s, nil
}

func boolArg(args map[string]any, key string, def bool) bool {
	v, ok := args[key]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

// preview caps a query result to a small number of rows so it is safe
// to inline in a tool response.
func preview(result analyticalstore.Result, maxRows int) []map[string]any {
	rows := result.AsMaps()
	if len(rows) > maxRows {
		rows = rows[:maxRows]
	}
	return rows
}

// --- view_schema -----------------------------------------------------

type viewSchemaTool struct{}

func (viewSchemaTool) Name() string { return "view_schema" }

func (viewSchemaTool) Call(ctx context.Context, deps *threadstate.AgentDeps, args map[string]any) (map[string]any, error) {
	viewName, err := stringArg(args, "view_name")
	if err != nil {
		return nil, err
	}
	schema, err := deps.Store.Schema(ctx, viewName)
	if err != nil {
		return nil, &core.RetryableToolError{ToolName: "view_schema", Cause: err}
	}
	return map[string]any{"schema": schema}, nil
}

// --- query_view --------------------------------------------------------

type queryViewTool struct{}

func (queryViewTool) Name() string { return "query_view" }

func (queryViewTool) Call(ctx context.Context, deps *threadstate.AgentDeps, args map[string]any) (map[string]any, error) {
	viewName, err := stringArg(args, "view_name")
	if err != nil {
		return nil, err
	}
	sql, err := stringArg(args, "sql")
	if err != nil {
		return nil, err
	}
	// description is user-facing only; accepted but not validated.
	_, _ = stringArg(args, "description")

	result, err := deps.Store.ExecuteView(ctx, viewName, sql)
	if err != nil {
		return nil, &core.RetryableToolError{ToolName: "query_view", Cause: err}
	}

	ref := deps.NextOutputRef()
	if err := deps.Store.CreateTable(ctx, deps.Namespace, ref, result.AsMaps()); err != nil {
		return nil, &core.RetryableToolError{ToolName: "query_view", Cause: err}
	}
	return map[string]any{
		"ref":     ref,
		"rows":    len(result.Rows),
		"columns": result.Columns,
		"preview": preview(result, 5),
	}, nil
}

// --- query_output --------------------------------------------------------

type queryOutputTool struct{}

func (queryOutputTool) Name() string { return "query_output" }

func (queryOutputTool) Call(ctx context.Context, deps *threadstate.AgentDeps, args map[string]any) (map[string]any, error) {
	ref, err := stringArg(args, "ref")
	if err != nil {
		return nil, err
	}
	sql, err := stringArg(args, "sql")
	if err != nil {
		return nil, err
	}
	_, _ = stringArg(args, "description")

	// The narrow SQL subset names its source table in the query
	// itself, so the referenced output must already be the table named
	// by sql's FROM clause inside this thread's namespace.
	result, err := deps.Store.Execute(ctx, deps.Namespace, sql)
	if err != nil {
		return nil, &core.RetryableToolError{ToolName: "query_output", Cause: fmt.Errorf("%s: %w", ref, core.ErrOutputNotFound)}
	}

	newRef := deps.NextOutputRef()
	if err := deps.Store.CreateTable(ctx, deps.Namespace, newRef, result.AsMaps()); err != nil {
		return nil, &core.RetryableToolError{ToolName: "query_output", Cause: err}
	}
	return map[string]any{
		"ref":     newRef,
		"rows":    len(result.Rows),
		"columns": result.Columns,
		"preview": preview(result, 5),
	}, nil
}

// --- render_table --------------------------------------------------------

type renderTableTool struct{}

func (renderTableTool) Name() string { return "render_table" }

func (renderTableTool) Call(ctx context.Context, deps *threadstate.AgentDeps, args map[string]any) (map[string]any, error) {
	ref, err := stringArg(args, "ref")
	if err != nil {
		return nil, err
	}
	title, err := stringArg(args, "title")
	if err != nil {
		return nil, err
	}
	hidden := boolArg(args, "hidden", true)

	callArgs := map[string]any{"ref": ref, "title": title}
	if !hidden {
		return map[string]any{"message": fmt.Sprintf("Rendered table %q with data from %s.", title, ref)}, nil
	}

	id := visualizationID("table", ref, title)
	deps.RegisterHiddenToolCall(&core.HiddenToolCall{
		ID:     id,
		Type:   core.HiddenToolCallTable,
		Args:   callArgs,
		Hidden: true,
	})
	return map[string]any{
		"hidden":       true,
		"tool_call_id": id,
		"message":      fmt.Sprintf("Prepared table %q with data from %s (hidden). Use reveal_visualization(%q) to display it.", title, ref, id),
	}, nil
}

// --- generate_chart --------------------------------------------------------

type generateChartTool struct{}

func (generateChartTool) Name() string { return "generate_chart" }

func (generateChartTool) Call(ctx context.Context, deps *threadstate.AgentDeps, args map[string]any) (map[string]any, error) {
	chartType, err := stringArg(args, "chart_type")
	if err != nil {
		return nil, err
	}
	ref, err := stringArg(args, "ref")
	if err != nil {
		return nil, err
	}
	title, err := stringArg(args, "title")
	if err != nil {
		return nil, err
	}
	x, err := stringArg(args, "x")
	if err != nil {
		return nil, err
	}
	ysRaw, ok := args["ys"].([]any)
	if !ok {
		return nil, fmt.Errorf("argument %q must be a list of strings", "ys")
	}
	ys := make([]string, 0, len(ysRaw))
	for _, y := range ysRaw {
		s, ok := y.(string)
		if !ok {
			return nil, fmt.Errorf("argument %q must be a list of strings", "ys")
		}
		ys = append(ys, s)
	}
	hidden := boolArg(args, "hidden", true)

	callArgs := map[string]any{"chart_type": chartType, "ref": ref, "title": title, "x": x, "ys": ys}
	spec := map[string]any{"chart_type": chartType, "ref": ref, "title": title, "x": x, "ys": ys}

	if !hidden {
		return map[string]any{"chart_spec": spec}, nil
	}

	id := visualizationID("chart", ref, title)
	deps.RegisterHiddenToolCall(&core.HiddenToolCall{
		ID:      id,
		Type:    core.HiddenToolCallChart,
		Args:    callArgs,
		Payload: spec,
		Hidden:  true,
	})
	return map[string]any{
		"hidden":       true,
		"tool_call_id": id,
		"message":      fmt.Sprintf("Prepared %s chart %q (hidden). Use reveal_visualization(%q) to display it.", chartType, title, id),
		"chart_spec":   spec,
	}, nil
}

// --- display_kpi_tiles --------------------------------------------------------

type displayKPITilesTool struct{}

func (displayKPITilesTool) Name() string { return "display_kpi_tiles" }

func (displayKPITilesTool) Call(ctx context.Context, deps *threadstate.AgentDeps, args map[string]any) (map[string]any, error) {
	kpisRaw, ok := args["kpis"].([]any)
	if !ok {
		return nil, fmt.Errorf("argument %q must be a list", "kpis")
	}
	hidden := boolArg(args, "hidden", true)

	if !hidden {
		return map[string]any{"message": fmt.Sprintf("Displaying %d KPI tiles to the user.", len(kpisRaw))}, nil
	}

	id := kpiID(kpisRaw)
	deps.RegisterHiddenToolCall(&core.HiddenToolCall{
		ID:      id,
		Type:    core.HiddenToolCallKPI,
		Args:    map[string]any{"kpis": kpisRaw},
		Payload: map[string]any{"kpis": kpisRaw},
		Hidden:  true,
	})
	return map[string]any{
		"hidden":       true,
		"tool_call_id": id,
		"message":      fmt.Sprintf("Prepared %d KPI tiles (hidden). Use reveal_visualization(%q) to display them.", len(kpisRaw), id),
		"kpis":         kpisRaw,
	}, nil
}

// --- reveal_visualization --------------------------------------------------------

type revealVisualizationTool struct{}

func (revealVisualizationTool) Name() string { return "reveal_visualization" }

func (revealVisualizationTool) Call(ctx context.Context, deps *threadstate.AgentDeps, args map[string]any) (map[string]any, error) {
	id, err := stringArg(args, "tool_call_id")
	if err != nil {
		return nil, err
	}
	if _, ok := deps.RevealHiddenToolCall(id); !ok {
		return nil, &core.RetryableToolError{ToolName: "reveal_visualization", Cause: fmt.Errorf("no hidden visualization with id %q", id)}
	}
	// The sentinel format the stream adapter (internal/agentrunner)
	// scans for and replaces with the actual visualization payload.
	return map[string]any{"marker": fmt.Sprintf("[VISUALIZATION:%s]", id)}, nil
}

// --- score_architecture --------------------------------------------------------

// scoreArchitectureTool is the connection point between the chat runtime
// and the deterministic scoring engine: the system_architect/
// migration_engineer personas call it once they have gathered enough
// application context, and it runs the full normalize-through-explain
// pipeline synchronously and returns the ScoringResult as the tool
// result, rather than as a stream of separate sub-calls.
type scoreArchitectureTool struct {
	engine *scoring.Engine
}

func (scoreArchitectureTool) Name() string { return "score_architecture" }

func (t scoreArchitectureTool) Call(ctx context.Context, deps *threadstate.AgentDeps, args map[string]any) (map[string]any, error) {
	if t.engine == nil {
		return nil, fmt.Errorf("scoring engine not configured for this deployment")
	}
	appName, err := stringArg(args, "application_name")
	if err != nil {
		return nil, err
	}
	contextJSON, err := stringArg(args, "application_context")
	if err != nil {
		return nil, err
	}

	result, err := t.engine.ScoreRawContext(appName, []byte(contextJSON), scoring.DefaultOptions())
	if err != nil {
		return nil, &core.RetryableToolError{ToolName: "score_architecture", Cause: err}
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return nil, &core.RetryableToolError{ToolName: "score_architecture", Cause: err}
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &core.RetryableToolError{ToolName: "score_architecture", Cause: err}
	}
	return out, nil
}

// visualizationID builds the stable table/chart id: derived
// deterministically from kind, ref, and title, with spaces and dashes
// folded to underscores.
func visualizationID(kind, ref, title string) string {
	raw := fmt.Sprintf("%s_%s_%s", kind, ref, title)
	raw = strings.ReplaceAll(raw, " ", "_")
	raw = strings.ReplaceAll(raw, "-", "_")
	return raw
}

// kpiID hashes the KPI payload so repeated identical calls within a
// turn collapse onto the same hidden-call id.
func kpiID(kpis []any) string {
	data, _ := json.Marshal(kpis)
	sum := md5.Sum(data)
	return fmt.Sprintf("kpi_%x", sum[:4])
}
