// Package transport implements the HTTP surface: POST /api (streaming
// turn execution), GET /data (scratch/view lookup), and GET /health.
// Streaming is http.Flusher-driven, one newline-delimited JSON event
// per write.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/migrationcopilot/architecture-agent/core"
	"github.com/migrationcopilot/architecture-agent/internal/agentrunner"
	"github.com/migrationcopilot/architecture-agent/internal/llmtransport"
	"github.com/migrationcopilot/architecture-agent/internal/personas"
	"github.com/migrationcopilot/architecture-agent/internal/postprocess"
	"github.com/migrationcopilot/architecture-agent/internal/preprocess"
	"github.com/migrationcopilot/architecture-agent/internal/prompts"
	"github.com/migrationcopilot/architecture-agent/internal/telemetry"
	"github.com/migrationcopilot/architecture-agent/internal/templates"
	"github.com/migrationcopilot/architecture-agent/internal/threadstate"
	"github.com/migrationcopilot/architecture-agent/internal/toolsurface"
	"github.com/migrationcopilot/architecture-agent/internal/usage"
)

// Server bundles every collaborator a turn needs to run, and exposes
// them over the three HTTP endpoints.
type Server struct {
	Registry       *threadstate.Registry
	Provider       llmtransport.Provider
	LightProvider  llmtransport.Provider // defaults to Provider when nil
	Templates      *templates.Catalog
	Tools          *toolsurface.Registry
	Usage          *usage.Aggregator
	UsageEnforced  bool
	Sink           *telemetry.UsageSink
	ProviderTag    string
	Model          string
	AutoDelegate   bool
	DefaultPersona personas.ID

	mux *http.ServeMux
}

// NewServer wires the HTTP routes. Call ServeMux to get the handler to
// pass to http.Server.
func NewServer(s *Server) *Server {
	s.mux = http.NewServeMux()
	s.mux.HandleFunc("/api", s.handleAPI)
	s.mux.HandleFunc("/data", s.handleData)
	s.mux.HandleFunc("/health", s.handleHealth)
	return s
}

// ServeMux returns the routed handler.
func (s *Server) ServeMux() *http.ServeMux { return s.mux }

// runInput is the wire shape of a POST /api request body.
type runInput struct {
	ThreadID string `json:"thread_id"`
	UserID   string `json:"user_id,omitempty"`
	Persona  string `json:"persona,omitempty"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "only POST is supported")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 4<<20)
	defer r.Body.Close()

	var body runInput
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_request", "malformed JSON body: "+err.Error())
		return
	}
	if body.ThreadID == "" {
		body.ThreadID = uuid.NewString()
	}

	messages := make([]llmtransport.Message, 0, len(body.Messages))
	for _, m := range body.Messages {
		messages = append(messages, llmtransport.Message{Role: m.Role, Content: m.Content})
	}

	forced := personas.ID(body.Persona)
	if !personas.Valid(forced) {
		forced = ""
	}

	deps := s.Registry.GetOrCreate(body.ThreadID, string(s.defaultPersona()), s.AutoDelegate, body.UserID)
	if !deps.TryBeginTurn() {
		writeError(w, http.StatusConflict, "concurrent_turn", fmt.Sprintf("a turn is already in flight for thread %q", body.ThreadID))
		return
	}
	defer deps.EndTurn()

	lightProvider := s.LightProvider
	if lightProvider == nil {
		lightProvider = s.Provider
	}

	result, err := preprocess.Run(r.Context(), deps, preprocess.RunInput{
		ThreadID: body.ThreadID,
		UserID:   body.UserID,
		Messages: messages,
	}, preprocess.Options{
		ForcedPersona:   forced,
		QuotaAggregator: s.Usage,
		QuotaEnforced:   s.UsageEnforced,
		Provider:        lightProvider,
		Templates:       s.Templates,
	})
	if err != nil {
		writeTurnError(w, err)
		return
	}

	systemPrompt := prompts.Resolve(string(result.Persona), s.ProviderTag, prompts.Variables{
		MigrationTarget: deps.MigrationTarget,
	})

	tracer := otel.Tracer("architecture-agent/transport")
	ctx, span := telemetry.StartTurnSpan(r.Context(), tracer, body.ThreadID, string(result.Persona))
	// The post-processor ends the span with final usage attributes;
	// this End is the backstop for turns that fail before reaching it.
	defer span.End()

	stream := agentrunner.Run(ctx, agentrunner.Turn{
		Deps:         deps,
		Persona:      string(result.Persona),
		Template:     result.Template,
		Messages:     messages,
		Provider:     s.Provider,
		Tools:        s.Tools,
		SystemPrompt: systemPrompt,
		Variables:    prompts.Variables{MigrationTarget: deps.MigrationTarget},
		PostProcess: postprocess.Options{
			Aggregator:  s.Usage,
			Sink:        s.Sink,
			Provider:    lightProvider,
			Templates:   s.Templates,
			ProviderTag: s.ProviderTag,
			Model:       s.Model,
			Span:        span,
		},
	})

	writeStream(w, stream)
}

func (s *Server) defaultPersona() personas.ID {
	if s.DefaultPersona != "" {
		return s.DefaultPersona
	}
	return personas.Core
}

// writeStream relays a StreamEvent channel to the client as
// newline-delimited JSON, flushing after every event.
func writeStream(w http.ResponseWriter, events <-chan core.StreamEvent) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)
	for event := range events {
		if err := enc.Encode(event); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// writeTurnError maps a pre-processing failure to its HTTP status:
// 422 for a malformed request, 429 (with the usage fields) for a quota
// breach, 502 for an exhausted transport.
func writeTurnError(w http.ResponseWriter, err error) {
	var invalid *core.InvalidRequest
	if errors.As(err, &invalid) {
		writeError(w, http.StatusUnprocessableEntity, "invalid_request", invalid.Error())
		return
	}

	var quota *core.QuotaExceeded
	if errors.As(err, &quota) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error_type":    "quota_exceeded",
			"current_usage": quota.CurrentUsage,
			"limit":         quota.Limit,
			"window_hours":  quota.WindowHours,
		})
		return
	}

	var transportFailure *core.TransportFailure
	if errors.As(err, &transportFailure) {
		writeError(w, http.StatusBadGateway, "transport_failure", transportFailure.Error())
		return
	}

	core.Logger().Error().Err(err).Msg("unhandled pre-processing error")
	writeError(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
}

// handleData answers GET /data?ref=&thread_id=&limit=:
// {columns[], rows[]} for a stored scratch reference or configured view.
func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "only GET is supported")
		return
	}

	ref := r.URL.Query().Get("ref")
	threadID := r.URL.Query().Get("thread_id")
	if ref == "" {
		writeError(w, http.StatusBadRequest, "missing_ref", "ref is required")
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	deps, ok := s.Registry.Get(threadID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_thread", fmt.Sprintf("no thread %q", threadID))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	result, err := deps.Store.Execute(ctx, deps.Namespace, fmt.Sprintf("SELECT * FROM %s LIMIT %d", ref, limit))
	if err != nil {
		// Fall back to treating ref as a configured view name; the
		// endpoint serves stored scratch references and configured
		// views alike.
		viewResult, viewErr := deps.Store.ExecuteView(ctx, ref, fmt.Sprintf("SELECT * FROM %s LIMIT %d", ref, limit))
		if viewErr != nil {
			writeError(w, http.StatusNotFound, "unknown_ref", fmt.Sprintf("no scratch table or view named %q in thread %q", ref, threadID))
			return
		}
		result = viewResult
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"columns": result.Columns,
		"rows":    result.Rows,
	}); err != nil {
		core.Logger().Error().Err(err).Msg("failed to encode /data response")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "only GET is supported")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func writeError(w http.ResponseWriter, status int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error_type": errorType,
		"message":    message,
	})
}
