// Package eligibility evaluates every catalog entry against a
// fixed-order rule set, collecting all failing rules per entry rather
// than stopping at the first.
package eligibility

import (
	"fmt"
	"strings"

	"github.com/migrationcopilot/architecture-agent/internal/appctx"
	"github.com/migrationcopilot/architecture-agent/internal/catalog"
	"github.com/migrationcopilot/architecture-agent/internal/intent"
)

// ExclusionReasonDetail records a single failed eligibility rule.
type ExclusionReasonDetail struct {
	ReasonType    string `json:"reason_type"`
	Description   string `json:"description"`
	BlockingValue string `json:"blocking_value"`
	RequiredValue string `json:"required_value,omitempty"`
}

// ExcludedArchitecture is a catalog entry that failed at least one rule.
type ExcludedArchitecture struct {
	ArchitectureID string                  `json:"architecture_id"`
	Name           string                  `json:"name"`
	Reasons        []ExclusionReasonDetail `json:"reasons"`
}

// Filter evaluates every catalog entry's eligibility against context and
// the derived intent, returning eligible entries and detailed exclusions.
func Filter(entries []catalog.ArchitectureEntry, ctx appctx.ApplicationContext, di intent.DerivedIntent, allowedQualities map[catalog.CatalogQuality]bool) ([]catalog.ArchitectureEntry, []ExcludedArchitecture) {
	var eligible []catalog.ArchitectureEntry
	var excluded []ExcludedArchitecture

	for _, arch := range entries {
		reasons := checkEligibility(arch, ctx, di, allowedQualities)
		if len(reasons) > 0 {
			excluded = append(excluded, ExcludedArchitecture{ArchitectureID: arch.ID, Name: arch.Name, Reasons: reasons})
			continue
		}
		eligible = append(eligible, arch)
	}

	return eligible, excluded
}

func checkEligibility(arch catalog.ArchitectureEntry, ctx appctx.ApplicationContext, di intent.DerivedIntent, allowedQualities map[catalog.CatalogQuality]bool) []ExclusionReasonDetail {
	// Rule 1: catalog quality gate short-circuits all other rules.
	if allowedQualities != nil && !allowedQualities[arch.CatalogQuality] {
		return []ExclusionReasonDetail{{
			ReasonType:    "catalog_quality",
			Description:   fmt.Sprintf("Catalog quality %s is not permitted by configuration", arch.CatalogQuality),
			BlockingValue: string(arch.CatalogQuality),
		}}
	}

	var reasons []ExclusionReasonDetail

	if r := checkTreatment(arch, di); r != nil {
		reasons = append(reasons, *r)
	}
	if r := checkTimeCategory(arch, di); r != nil {
		reasons = append(reasons, *r)
	}
	if r := checkSecurity(arch, di); r != nil {
		reasons = append(reasons, *r)
	}
	if r := checkOperatingModel(arch, di); r != nil {
		reasons = append(reasons, *r)
	}
	reasons = append(reasons, checkAppModBlockers(arch, ctx)...)
	reasons = append(reasons, checkNotSuitableFor(arch, ctx, di)...)

	return reasons
}

func checkTreatment(arch catalog.ArchitectureEntry, di intent.DerivedIntent) *ExclusionReasonDetail {
	if len(arch.SupportedTreatments) == 0 {
		return nil
	}
	required := di.Treatment.Value
	for _, t := range arch.SupportedTreatments {
		if t == required {
			return nil
		}
	}
	return &ExclusionReasonDetail{
		ReasonType:    "treatment_mismatch",
		Description:   fmt.Sprintf("Architecture does not support %s treatment", required),
		BlockingValue: string(required),
		RequiredValue: joinTreatments(arch.SupportedTreatments),
	}
}

func checkTimeCategory(arch catalog.ArchitectureEntry, di intent.DerivedIntent) *ExclusionReasonDetail {
	if len(arch.SupportedTimeCategories) == 0 {
		return nil
	}
	required := di.TimeCategory.Value
	for _, tc := range arch.SupportedTimeCategories {
		if tc == required {
			return nil
		}
	}
	values := make([]string, len(arch.SupportedTimeCategories))
	for i, tc := range arch.SupportedTimeCategories {
		values[i] = string(tc)
	}
	return &ExclusionReasonDetail{
		ReasonType:    "time_category_mismatch",
		Description:   fmt.Sprintf("Architecture does not support %s TIME category", required),
		BlockingValue: string(required),
		RequiredValue: strings.Join(values, ", "),
	}
}

func checkSecurity(arch catalog.ArchitectureEntry, di intent.DerivedIntent) *ExclusionReasonDetail {
	if arch.SecurityLevel == "" {
		return nil
	}
	required := di.SecurityRequirement.Value
	if arch.SecurityLevel.Rank() < required.Rank() {
		return &ExclusionReasonDetail{
			ReasonType:    "security_level_insufficient",
			Description:   fmt.Sprintf("Architecture security level (%s) below requirement (%s)", arch.SecurityLevel, required),
			BlockingValue: string(arch.SecurityLevel),
			RequiredValue: string(required),
		}
	}
	return nil
}

func checkOperatingModel(arch catalog.ArchitectureEntry, di intent.DerivedIntent) *ExclusionReasonDetail {
	appLevel := di.OperationalMaturityEstimate.Value.Rank()
	archLevel := arch.RequiredOperatingModel.Rank()
	if gap := archLevel - appLevel; gap > 1 {
		return &ExclusionReasonDetail{
			ReasonType:    "operating_model_gap",
			Description:   fmt.Sprintf("App maturity (%s) significantly below architecture requirement (%s)", di.OperationalMaturityEstimate.Value, arch.RequiredOperatingModel),
			BlockingValue: string(di.OperationalMaturityEstimate.Value),
			RequiredValue: string(arch.RequiredOperatingModel),
		}
	}
	return nil
}

func checkAppModBlockers(arch catalog.ArchitectureEntry, ctx appctx.ApplicationContext) []ExclusionReasonDetail {
	var reasons []ExclusionReasonDetail
	mod := ctx.AppMod
	if mod == nil {
		return reasons
	}

	archServices := strings.ToLower(strings.Join(append(append([]string{}, arch.CoreServices...), arch.SupportingServices...), " "))

	for _, pc := range mod.PlatformCompatibility {
		if pc.Status != appctx.PlatformNotSupported {
			continue
		}
		// The platform names here are the canonical tokens Normalize
		// emits; PlatformServiceKeywords resolves either form to the
		// keyword set the architecture's service list is matched on.
		if containsAnySubstr(archServices, appctx.PlatformServiceKeywords(pc.Platform)) {
			reasons = append(reasons, ExclusionReasonDetail{
				ReasonType:    "app_mod_blocker",
				Description:   fmt.Sprintf("App Mod: %s not supported", pc.Platform),
				BlockingValue: "NotSupported",
				RequiredValue: pc.Platform,
			})
		}
	}

	for _, blocker := range mod.ExplicitBlockers {
		if strings.Contains(strings.ToLower(blocker), "container") && containsAnySubstr(archServices, []string{"kubernetes", "container", "aks", "aca"}) {
			reasons = append(reasons, ExclusionReasonDetail{
				ReasonType:    "app_mod_blocker",
				Description:   "App Mod blocker: " + blocker,
				BlockingValue: blocker,
			})
		}
	}

	return reasons
}

// checkNotSuitableFor maps each of the closed NotSuitableReason values to
// a context predicate.
func checkNotSuitableFor(arch catalog.ArchitectureEntry, ctx appctx.ApplicationContext, di intent.DerivedIntent) []ExclusionReasonDetail {
	var reasons []ExclusionReasonDetail
	for _, reason := range arch.NotSuitableFor {
		if notSuitablePredicates[reason] == nil {
			continue
		}
		if notSuitablePredicates[reason](ctx, di) {
			reasons = append(reasons, ExclusionReasonDetail{
				ReasonType:    "not_suitable_for",
				Description:   "Architecture not suitable for: " + string(reason),
				BlockingValue: string(reason),
			})
		}
	}
	return reasons
}

// Each predicate reports whether the application IS the workload the
// reason names; a true result excludes the entry.
var notSuitablePredicates = map[catalog.NotSuitableReason]func(appctx.ApplicationContext, intent.DerivedIntent) bool{
	catalog.NotSuitableSingleVMWorkloads: func(ctx appctx.ApplicationContext, _ intent.DerivedIntent) bool {
		return ctx.Servers.ServerCount <= 1
	},
	catalog.NotSuitableLegacyWindows: func(ctx appctx.ApplicationContext, _ intent.DerivedIntent) bool {
		// a Windows-only inventory is the legacy-Windows workload
		return ctx.Technology.IsWindows && !ctx.Technology.IsLinux
	},
	catalog.NotSuitableNoContainerSupport: func(ctx appctx.ApplicationContext, di intent.DerivedIntent) bool {
		// a container-bound workload cannot land on an architecture
		// without container support
		return ctx.Technology.Containerized || di.ModernizationDepthFeasible.Value
	},
	catalog.NotSuitableHighComplianceOnly: func(_ appctx.ApplicationContext, di intent.DerivedIntent) bool {
		// the entry serves only highly compliant workloads; anything
		// below regulated is out of its audience
		return di.SecurityRequirement.Value.Rank() < catalog.SecurityRegulated.Rank()
	},
	catalog.NotSuitableLowBudget: func(_ appctx.ApplicationContext, di intent.DerivedIntent) bool {
		// a cost_minimized posture is the low-budget workload
		return di.CostPosture.Value == "cost_minimized"
	},
}

func joinTreatments(ts []catalog.Treatment) string {
	values := make([]string, len(ts))
	for i, t := range ts {
		values[i] = string(t)
	}
	return strings.Join(values, ", ")
}

func containsAnySubstr(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
