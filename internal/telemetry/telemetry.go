// Package telemetry provides the OTEL span attribute helpers for chat
// turns and the append-only, line-delimited JSON usage log sink.
// Exporter configuration is a deployment concern; only the attribute
// and record contracts live here.
package telemetry

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/migrationcopilot/architecture-agent/core"
	"github.com/migrationcopilot/architecture-agent/internal/usage"
)

// TurnAttributes builds the span attribute set for a single chat turn.
func TurnAttributes(threadID, persona, provider, model string, inputTokens, outputTokens int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("thread_id", threadID),
		attribute.String("persona", persona),
		attribute.String("provider", provider),
		attribute.String("model", model),
		attribute.Int64("input_tokens", inputTokens),
		attribute.Int64("output_tokens", outputTokens),
	}
}

// StartTurnSpan starts a span for a chat turn and annotates it with the
// thread_id and persona attributes known at start time (provider, model
// and tokens are filled in later via EndTurnSpan once the run result is
// known).
func StartTurnSpan(ctx context.Context, tracer trace.Tracer, threadID, persona string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "chat.turn", trace.WithAttributes(
		attribute.String("thread_id", threadID),
		attribute.String("persona", persona),
	))
}

// EndTurnSpan records final usage attributes on a span and ends it.
func EndTurnSpan(span trace.Span, provider, model string, inputTokens, outputTokens int64) {
	span.SetAttributes(
		attribute.String("provider", provider),
		attribute.String("model", model),
		attribute.Int64("input_tokens", inputTokens),
		attribute.Int64("output_tokens", outputTokens),
	)
	span.End()
}

// UsageSink is the append-only, line-delimited JSON usage log writer:
// one record per line, flushed after every write.
type UsageSink struct {
	mu   sync.Mutex
	file *os.File
	w    *bufio.Writer
}

// OpenUsageSink opens (creating if needed) the usage log file in
// append mode.
func OpenUsageSink(path string) (*UsageSink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open usage sink %s: %w", path, err)
	}
	return &UsageSink{file: f, w: bufio.NewWriter(f)}, nil
}

// Write appends one record and flushes immediately. A write failure is
// a core.TelemetryFailure: logged by callers, never fatal to the
// calling turn.
func (s *UsageSink) Write(record usage.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(record)
	if err != nil {
		return &core.TelemetryFailure{Component: "usage_sink", Cause: err}
	}
	if _, err := s.w.Write(append(data, '\n')); err != nil {
		return &core.TelemetryFailure{Component: "usage_sink", Cause: err}
	}
	if err := s.w.Flush(); err != nil {
		return &core.TelemetryFailure{Component: "usage_sink", Cause: err}
	}
	return nil
}

// Close flushes and closes the underlying file.
func (s *UsageSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.w.Flush(); err != nil {
		return err
	}
	return s.file.Close()
}

// ReplayUsageLog reads every record from an existing usage log file for
// aggregator startup replay. A missing file is not an
// error: it just means no prior history exists yet.
func ReplayUsageLog(path string) ([]usage.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open usage log for replay %s: %w", path, err)
	}
	defer f.Close()

	var records []usage.Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var r usage.Record
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("replay usage log %s: %w", path, err)
		}
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan usage log %s: %w", path, err)
	}
	return records, nil
}
