package telemetry

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/migrationcopilot/architecture-agent/internal/usage"
)

func TestUsageSink_WriteAndReplayRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.log")

	sink, err := OpenUsageSink(path)
	require.NoError(t, err)

	want := usage.Record{
		UserID:       "u1",
		ThreadID:     "t1",
		Timestamp:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Query:        "hello",
		Response:     "hi",
		InputTokens:  10,
		OutputTokens: 20,
		Provider:     "mock",
		Model:        "mock-main",
		Persona:      "core",
	}
	require.NoError(t, sink.Write(want))
	require.NoError(t, sink.Close())

	records, err := ReplayUsageLog(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, want.UserID, records[0].UserID)
	require.Equal(t, want.TotalTokens(), records[0].TotalTokens())
}

func TestTurnAttributes_CarriesFullUsageContract(t *testing.T) {
	attrs := TurnAttributes("t1", "core", "azure-openai", "gpt-4o", 10, 20)
	require.Len(t, attrs, 6)

	byKey := map[string]any{}
	for _, a := range attrs {
		byKey[string(a.Key)] = a.Value.AsInterface()
	}
	require.Equal(t, "t1", byKey["thread_id"])
	require.Equal(t, "core", byKey["persona"])
	require.Equal(t, int64(10), byKey["input_tokens"])
	require.Equal(t, int64(20), byKey["output_tokens"])
}

func TestReplayUsageLog_MissingFileIsNotAnError(t *testing.T) {
	records, err := ReplayUsageLog(filepath.Join(t.TempDir(), "missing.log"))
	require.NoError(t, err)
	require.Nil(t, records)
}
