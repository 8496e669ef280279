package transport

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/migrationcopilot/architecture-agent/core"
	"github.com/migrationcopilot/architecture-agent/internal/analyticalstore"
	"github.com/migrationcopilot/architecture-agent/internal/llmtransport"
	"github.com/migrationcopilot/architecture-agent/internal/threadstate"
	"github.com/migrationcopilot/architecture-agent/internal/toolsurface"
	"github.com/migrationcopilot/architecture-agent/internal/usage"
)

func newTestServer(t *testing.T, provider llmtransport.Provider) *Server {
	t.Helper()
	factory := analyticalstore.NewInMemoryFactory()
	factory.RegisterView("application_overview", []map[string]any{{"name": "app1", "score": 10}}, "name: text\nscore: int")
	registry := threadstate.NewRegistry(factory)
	agg := usage.NewAggregator(usage.Limits{WindowHours: 24})

	return NewServer(&Server{
		Registry: registry,
		Provider: provider,
		Tools:    toolsurface.NewRegistry(nil),
		Usage:    agg,
	})
}

func TestHandleHealth_ReturnsOK(t *testing.T) {
	srv := newTestServer(t, llmtransport.NewMockProvider())
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	srv.ServeMux().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestHandleAPI_MalformedBodyReturns422(t *testing.T) {
	srv := newTestServer(t, llmtransport.NewMockProvider())
	req := httptest.NewRequest(http.MethodPost, "/api", bytes.NewBufferString("not json"))
	rec := httptest.NewRecorder()

	srv.ServeMux().ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandleAPI_QuotaBreachReturns429(t *testing.T) {
	srv := newTestServer(t, llmtransport.NewMockProvider())
	srv.UsageEnforced = true
	limit := int64(1000)
	srv.Usage = usage.NewAggregator(usage.Limits{DailyTokenLimit: &limit, WindowHours: 24, Enforce: true})
	srv.Usage.AddUsageItem(usage.Record{UserID: "u1", ThreadID: "t1", InputTokens: 950, OutputTokens: 0})

	body := `{"thread_id":"t1","user_id":"u1","messages":[{"role":"user","content":"hi"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api", strings.NewReader(body))
	rec := httptest.NewRecorder()

	srv.ServeMux().ServeHTTP(rec, req)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "quota_exceeded", payload["error_type"])
	assert.EqualValues(t, 950, payload["current_usage"])
}

func TestHandleAPI_StreamsNDJSONEvents(t *testing.T) {
	provider := llmtransport.NewMockProvider(llmtransport.Responder{
		Match: func(req llmtransport.CompletionRequest) bool { return true },
		Reply: "hello world",
	})
	srv := newTestServer(t, provider)

	body := `{"thread_id":"t1","messages":[{"role":"user","content":"hi"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api", strings.NewReader(body))
	rec := httptest.NewRecorder()

	srv.ServeMux().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	scanner := bufio.NewScanner(rec.Body)
	var events []core.StreamEvent
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		var e core.StreamEvent
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		events = append(events, e)
	}
	require.NotEmpty(t, events)
	assert.Equal(t, core.EventStateSnapshot, events[0].Type)
	assert.Equal(t, core.EventDone, events[len(events)-1].Type)
	assert.Equal(t, core.EventStateSnapshot, events[len(events)-2].Type)
}

func TestHandleAPI_ConcurrentTurnRejected(t *testing.T) {
	srv := newTestServer(t, llmtransport.NewMockProvider())
	deps := srv.Registry.GetOrCreate("t1", "core", false, "")
	require.True(t, deps.TryBeginTurn())
	defer deps.EndTurn()

	body := `{"thread_id":"t1","messages":[{"role":"user","content":"hi"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api", strings.NewReader(body))
	rec := httptest.NewRecorder()

	srv.ServeMux().ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleData_MissingRefReturns400(t *testing.T) {
	srv := newTestServer(t, llmtransport.NewMockProvider())
	req := httptest.NewRequest(http.MethodGet, "/data?thread_id=t1", nil)
	rec := httptest.NewRecorder()

	srv.ServeMux().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleData_UnknownThreadReturns404(t *testing.T) {
	srv := newTestServer(t, llmtransport.NewMockProvider())
	req := httptest.NewRequest(http.MethodGet, "/data?ref=output_1&thread_id=nope", nil)
	rec := httptest.NewRecorder()

	srv.ServeMux().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleData_UnknownRefInExistingThreadReturns404(t *testing.T) {
	srv := newTestServer(t, llmtransport.NewMockProvider())
	srv.Registry.GetOrCreate("t1", "core", false, "")

	req := httptest.NewRequest(http.MethodGet, "/data?ref=does_not_exist&thread_id=t1", nil)
	rec := httptest.NewRecorder()

	srv.ServeMux().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleData_KnownViewReturnsRows(t *testing.T) {
	srv := newTestServer(t, llmtransport.NewMockProvider())
	srv.Registry.GetOrCreate("t1", "core", false, "")

	req := httptest.NewRequest(http.MethodGet, "/data?ref=application_overview&thread_id=t1", nil)
	rec := httptest.NewRecorder()

	srv.ServeMux().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var payload struct {
		Columns []string        `json:"columns"`
		Rows    [][]interface{} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.NotEmpty(t, payload.Rows)
}
