package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/migrationcopilot/architecture-agent/internal/appctx"
	"github.com/migrationcopilot/architecture-agent/internal/catalog"
)

func TestDerive_DeclaredTreatmentIsAuthoritative(t *testing.T) {
	declared := catalog.TreatmentReplatform
	ctx := appctx.ApplicationContext{Overview: appctx.AppOverview{DeclaredTreatment: &declared}}
	got := Derive(ctx)
	assert.Equal(t, catalog.TreatmentReplatform, got.Treatment.Value)
	assert.Equal(t, ConfidenceHigh, got.Treatment.Confidence)
	assert.Equal(t, "declared_treatment", got.Treatment.Source)
}

func TestDerive_TreatmentFallsBackToRehost(t *testing.T) {
	got := Derive(appctx.ApplicationContext{})
	assert.Equal(t, catalog.TreatmentRehost, got.Treatment.Value)
	assert.Equal(t, ConfidenceLow, got.Treatment.Confidence)
}

func TestDerive_AppModBlocksModernizationImpliesTolerate(t *testing.T) {
	infeasible := false
	ctx := appctx.ApplicationContext{AppMod: &appctx.AppModResults{ModernizationFeasible: &infeasible}}
	got := Derive(ctx)
	assert.Equal(t, catalog.TreatmentTolerate, got.Treatment.Value)
	assert.Equal(t, ConfidenceHigh, got.Treatment.Confidence)
	assert.False(t, got.ModernizationDepthFeasible.Value)
	assert.Equal(t, ConfidenceHigh, got.ModernizationDepthFeasible.Confidence)
}

func TestDerive_ContainerReadyWithAKSImpliesRefactor(t *testing.T) {
	ready := true
	ctx := appctx.ApplicationContext{AppMod: &appctx.AppModResults{
		ContainerReady:     &ready,
		RecommendedTargets: []string{"Azure Kubernetes Service"},
	}}
	got := Derive(ctx)
	assert.Equal(t, catalog.TreatmentRefactor, got.Treatment.Value)
	assert.Equal(t, ConfidenceMedium, got.Treatment.Confidence)
	assert.True(t, got.ModernizationDepthFeasible.Value)
}

func TestDerive_TimeCategoryFollowsTreatment(t *testing.T) {
	declared := catalog.TreatmentRefactor
	ctx := appctx.ApplicationContext{Overview: appctx.AppOverview{DeclaredTreatment: &declared}}
	got := Derive(ctx)
	assert.Equal(t, catalog.TimeCategoryLongTerm, got.TimeCategory.Value)
	assert.Equal(t, "treatment_inference", got.TimeCategory.Source)
}

func TestDerive_RuntimeModelFromMessagingAndDistributed(t *testing.T) {
	ctx := appctx.ApplicationContext{
		Overview:   appctx.AppOverview{AppType: "distributed order processor"},
		Technology: appctx.DetectedTechnology{MessagingPresent: true},
	}
	got := Derive(ctx)
	assert.Equal(t, "microservices", got.LikelyRuntimeModel.Value)
}

func TestDerive_RuntimeModelSingleServerMonolith(t *testing.T) {
	ctx := appctx.ApplicationContext{Servers: appctx.ServerSummary{ServerCount: 1}}
	got := Derive(ctx)
	assert.Equal(t, "monolith", got.LikelyRuntimeModel.Value)
	assert.Equal(t, ConfidenceLow, got.LikelyRuntimeModel.Confidence)
}

func TestDerive_AvailabilityRequirementFromCriticality(t *testing.T) {
	ctx := appctx.ApplicationContext{Overview: appctx.AppOverview{BusinessCriticality: appctx.CriticalityMissionCritical}}
	got := Derive(ctx)
	assert.Equal(t, "multi_region_active_passive", got.AvailabilityRequirement.Value)
	assert.Equal(t, ConfidenceMedium, got.AvailabilityRequirement.Confidence)
}

func TestDerive_SecurityRequirementFromCompliance(t *testing.T) {
	ctx := appctx.ApplicationContext{Overview: appctx.AppOverview{ComplianceRequirements: []string{"HIPAA"}}}
	got := Derive(ctx)
	assert.Equal(t, catalog.SecurityHighlyRegulated, got.SecurityRequirement.Value)
	assert.Equal(t, ConfidenceHigh, got.SecurityRequirement.Confidence)
}

func TestDerive_CostPostureLowUtilization(t *testing.T) {
	ctx := appctx.ApplicationContext{
		Overview: appctx.AppOverview{BusinessCriticality: appctx.CriticalityMedium},
		Servers:  appctx.ServerSummary{UtilizationProfile: appctx.UtilizationLow},
	}
	got := Derive(ctx)
	assert.Equal(t, "cost_minimized", got.CostPosture.Value)
	assert.Equal(t, ConfidenceLow, got.CostPosture.Confidence)
}

func TestDerive_NetworkExposureExternalFromAppType(t *testing.T) {
	ctx := appctx.ApplicationContext{Overview: appctx.AppOverview{AppType: "Customer Web Portal"}}
	got := Derive(ctx)
	assert.Equal(t, "external", got.NetworkExposure.Value)
}

func TestDerive_NetworkExposureDefaultsInternalUnknown(t *testing.T) {
	got := Derive(appctx.ApplicationContext{})
	assert.Equal(t, "internal", got.NetworkExposure.Value)
	assert.Equal(t, ConfidenceUnknown, got.NetworkExposure.Confidence)
}

func TestDerive_OperationalMaturityFromCICD(t *testing.T) {
	ctx := appctx.ApplicationContext{Technology: appctx.DetectedTechnology{HasCICD: true}}
	got := Derive(ctx)
	assert.Equal(t, catalog.OperatingDevOps, got.OperationalMaturityEstimate.Value)
	assert.Equal(t, ConfidenceHigh, got.OperationalMaturityEstimate.Confidence)
}

func TestDerive_AllTenSignalsPopulated(t *testing.T) {
	got := Derive(appctx.ApplicationContext{})
	assert.NotEmpty(t, got.Treatment.Source)
	assert.NotEmpty(t, got.TimeCategory.Source)
	assert.NotEmpty(t, got.LikelyRuntimeModel.Source)
	assert.NotEmpty(t, got.ModernizationDepthFeasible.Source)
	assert.NotEmpty(t, got.CloudNativeFeasibility.Source)
	assert.NotEmpty(t, got.OperationalMaturityEstimate.Source)
	assert.NotEmpty(t, got.AvailabilityRequirement.Source)
	assert.NotEmpty(t, got.SecurityRequirement.Source)
	assert.NotEmpty(t, got.CostPosture.Source)
	assert.NotEmpty(t, got.NetworkExposure.Source)
}
