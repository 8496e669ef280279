package appctx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRawContextFile_AcceptsListOfOne(t *testing.T) {
	data := []byte(`[{"overview":{"name":"billing-app"}}]`)
	raw, err := ParseRawContextFile(data)
	require.NoError(t, err)
	assert.Equal(t, "billing-app", raw.Overview.Name)
}

func TestParseRawContextFile_AcceptsSingleObject(t *testing.T) {
	data := []byte(`{"overview":{"name":"billing-app"}}`)
	raw, err := ParseRawContextFile(data)
	require.NoError(t, err)
	assert.Equal(t, "billing-app", raw.Overview.Name)
}

func TestSummarizeServers_UtilizationProfile(t *testing.T) {
	low := summarizeServers([]RawServer{{CPUPercent: 10, MemPercent: 20}})
	assert.Equal(t, UtilizationLow, low.UtilizationProfile)

	medium := summarizeServers([]RawServer{{CPUPercent: 50, MemPercent: 20}})
	assert.Equal(t, UtilizationMedium, medium.UtilizationProfile)

	high := summarizeServers([]RawServer{{CPUPercent: 90, MemPercent: 20}})
	assert.Equal(t, UtilizationHigh, high.UtilizationProfile)
}

func TestDependencyComplexity(t *testing.T) {
	cases := []struct {
		servers  []RawServer
		expected string
	}{
		{[]RawServer{{OS: "linux"}}, "simple"},
		{[]RawServer{{OS: "linux"}, {OS: "linux"}, {OS: "linux"}}, "simple"},
		{[]RawServer{{OS: "linux"}, {OS: "windows"}}, "moderate"},
		{[]RawServer{{OS: "linux"}, {OS: "linux"}, {OS: "linux"}, {OS: "linux"}}, "moderate"},
		{[]RawServer{{OS: "linux"}, {OS: "linux"}, {OS: "linux"}, {OS: "linux"}, {OS: "linux"}, {OS: "linux"}}, "complex"},
	}
	for _, c := range cases {
		summary := summarizeServers(c.servers)
		assert.Equal(t, c.expected, summary.DependencyComplexity, "servers=%+v", c.servers)
	}
}

func TestDetectTechnology_KeywordAndVersion(t *testing.T) {
	raw := &RawContextFile{
		RawTechnology: RawTechnology{RawText: "Running Java 11.0.2 with PostgreSQL and Kafka"},
	}
	tech := detectTechnology(raw)
	assert.Equal(t, "java", tech.PrimaryRuntime)
	assert.Equal(t, "11.0.2", tech.RuntimeVersion)
	assert.True(t, tech.DatabasePresent)
	assert.True(t, tech.MessagingPresent)
}

func TestNormalize_MergesApprovedServicesLastWriteWins(t *testing.T) {
	ctx := Normalize(&RawContextFile{ApprovedServices: map[string]string{"sql server": "azure_sql"}})
	ctx.MergeApprovedServices(map[string]string{"sql server": "azure_sql_managed_instance"})
	assert.Equal(t, "azure_sql_managed_instance", ctx.ApprovedServices.Mappings["sql server"])
}

func TestNormalizeAppMod_MapsPlatformNames(t *testing.T) {
	raw := &AppModResults{PlatformCompatibility: []PlatformCompatibility{
		{Platform: "Azure Kubernetes Service", Status: PlatformFullySupported},
	}}
	normalized := normalizeAppMod(raw)
	require.Len(t, normalized.PlatformCompatibility, 1)
	assert.Equal(t, "aks", normalized.PlatformCompatibility[0].Platform)
}
