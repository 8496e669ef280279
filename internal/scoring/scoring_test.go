package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/migrationcopilot/architecture-agent/internal/appctx"
	"github.com/migrationcopilot/architecture-agent/internal/catalog"
)

// TestScoreContext_RehostOnlyMultiServer runs the full pipeline end to
// end: a multi-server Windows application with a declared rehost
// treatment, scored against a curated rehost entry, a refactor-only
// entry, and an example_only rehost/retain entry that excludes
// single-VM workloads.
func TestScoreContext_RehostOnlyMultiServer(t *testing.T) {
	rehost := catalog.Treatment("rehost")
	entries := []catalog.ArchitectureEntry{
		{
			ID:                  "vm-rehost-curated",
			Name:                "Curated VM Rehost",
			CatalogQuality:      catalog.QualityCurated,
			SupportedTreatments: []catalog.Treatment{catalog.Treatment("rehost")},
			SecurityLevel:       catalog.SecurityBasic,
		},
		{
			ID:                  "refactor-only",
			Name:                "Refactor Only Pattern",
			CatalogQuality:      catalog.QualityCurated,
			SupportedTreatments: []catalog.Treatment{catalog.Treatment("refactor")},
			SecurityLevel:       catalog.SecurityBasic,
		},
		{
			ID:                  "vm-rehost-example",
			Name:                "Example VM Rehost",
			CatalogQuality:      catalog.QualityExampleOnly,
			SupportedTreatments: []catalog.Treatment{catalog.Treatment("rehost"), catalog.Treatment("retain")},
			SecurityLevel:       catalog.SecurityBasic,
			NotSuitableFor:      []catalog.NotSuitableReason{catalog.NotSuitableSingleVMWorkloads},
		},
	}
	cat := &catalog.ArchitectureCatalog{Version: "test", Architectures: entries}
	engine := NewEngine(cat)

	ctx := appctx.ApplicationContext{
		Overview: appctx.AppOverview{DeclaredTreatment: &rehost},
		Servers: appctx.ServerSummary{
			ServerCount: 4,
			OSMix:       map[string]int{"windows": 4},
		},
		UserAnswers: map[string]string{},
	}

	opts := DefaultOptions()
	opts.AllowedQualities = map[catalog.CatalogQuality]bool{
		catalog.QualityCurated:     true,
		catalog.QualityExampleOnly: true,
	}
	result := engine.ScoreContext("rehost-app", ctx, opts)

	require.Len(t, result.Excluded, 1)
	assert.Equal(t, "refactor-only", result.Excluded[0].ArchitectureID)

	require.Len(t, result.Recommendations, 2)
	assert.Equal(t, "vm-rehost-curated", result.Recommendations[0].ArchitectureID)
	assert.Equal(t, "vm-rehost-example", result.Recommendations[1].ArchitectureID)

	// Every catalog entry appears in exactly one of recommendations or
	// excluded, never both and never neither.
	seen := map[string]int{}
	for _, r := range result.Recommendations {
		seen[r.ArchitectureID]++
	}
	for _, e := range result.Excluded {
		seen[e.ArchitectureID]++
	}
	for _, entry := range entries {
		assert.Equal(t, 1, seen[entry.ID], "entry %s must appear exactly once", entry.ID)
	}
}

func TestScoreContext_CatalogQualityFilterExcludesDisallowedQuality(t *testing.T) {
	entries := []catalog.ArchitectureEntry{
		{ID: "a1", CatalogQuality: catalog.QualityExampleOnly},
	}
	cat := &catalog.ArchitectureCatalog{Version: "test", Architectures: entries}
	engine := NewEngine(cat)

	opts := DefaultOptions()
	opts.AllowedQualities = map[catalog.CatalogQuality]bool{catalog.QualityCurated: true}
	result := engine.ScoreContext("app", appctx.ApplicationContext{}, opts)

	assert.Empty(t, result.Recommendations)
	require.Len(t, result.Excluded, 1)
	assert.Equal(t, "catalog_quality", result.Excluded[0].Reasons[0].ReasonType)
}

func TestScoreContext_MaxRecommendationsTruncates(t *testing.T) {
	entries := []catalog.ArchitectureEntry{
		{ID: "a1", CatalogQuality: catalog.QualityCurated},
		{ID: "a2", CatalogQuality: catalog.QualityCurated},
		{ID: "a3", CatalogQuality: catalog.QualityCurated},
	}
	cat := &catalog.ArchitectureCatalog{Version: "test", Architectures: entries}
	engine := NewEngine(cat)

	opts := DefaultOptions()
	opts.MaxRecommendations = 2
	result := engine.ScoreContext("app", appctx.ApplicationContext{}, opts)

	assert.Len(t, result.Recommendations, 2)
}

func TestScoreRawContext_ParsesSingleObjectAndScores(t *testing.T) {
	entries := []catalog.ArchitectureEntry{{ID: "a1", CatalogQuality: catalog.QualityCurated}}
	cat := &catalog.ArchitectureCatalog{Version: "test", Architectures: entries}
	engine := NewEngine(cat)

	data := []byte(`{"overview":{"name":"app1"},"servers":[]}`)
	result, err := engine.ScoreRawContext("app1", data, DefaultOptions())

	require.NoError(t, err)
	assert.Equal(t, "app1", result.ApplicationName)
	assert.Len(t, result.Recommendations, 1)
}

func TestScoreRawContext_InvalidJSONReturnsError(t *testing.T) {
	cat := &catalog.ArchitectureCatalog{Version: "test"}
	engine := NewEngine(cat)

	_, err := engine.ScoreRawContext("app1", []byte("not json"), DefaultOptions())
	assert.Error(t, err)
}
