package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_AcceptsBareListAndWrappedObject(t *testing.T) {
	wrapped := []byte(`{"version":"1.0","architectures":[{"id":"a1","catalog_quality":"curated"}]}`)
	cat, err := Parse(wrapped)
	require.NoError(t, err)
	assert.Len(t, cat.Architectures, 1)

	bare := []byte(`[{"id":"a1","catalog_quality":"curated"}]`)
	cat2, err := Parse(bare)
	require.NoError(t, err)
	assert.Len(t, cat2.Architectures, 1)
}

func TestValidate_RejectsDuplicateIDs(t *testing.T) {
	cat := &ArchitectureCatalog{Architectures: []ArchitectureEntry{
		{ID: "dup", CatalogQuality: QualityCurated},
		{ID: "dup", CatalogQuality: QualityCurated},
	}}
	err := Validate(cat)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate entry id")
}

func TestValidate_RejectsUnknownCatalogQuality(t *testing.T) {
	cat := &ArchitectureCatalog{Architectures: []ArchitectureEntry{
		{ID: "a1", CatalogQuality: "bogus"},
	}}
	err := Validate(cat)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog_quality")
}

func TestValidate_RejectsUnknownTreatment(t *testing.T) {
	cat := &ArchitectureCatalog{Architectures: []ArchitectureEntry{
		{ID: "a1", CatalogQuality: QualityCurated, SupportedTreatments: []Treatment{"bogus"}},
	}}
	err := Validate(cat)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid treatment")
}

func TestSecurityLevelRank_OrdersHierarchy(t *testing.T) {
	assert.Less(t, SecurityBasic.Rank(), SecurityEnterprise.Rank())
	assert.Less(t, SecurityEnterprise.Rank(), SecurityRegulated.Rank())
	assert.Less(t, SecurityRegulated.Rank(), SecurityHighlyRegulated.Rank())
}
