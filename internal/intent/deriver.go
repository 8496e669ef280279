package intent

import (
	"fmt"
	"sort"
	"strings"

	"github.com/migrationcopilot/architecture-agent/internal/appctx"
	"github.com/migrationcopilot/architecture-agent/internal/catalog"
)

// treatmentToTimeCategory: treatments that close out an application
// quickly map to short_term, partial replatforming to medium_term, and
// deep rework to long_term.
var treatmentToTimeCategory = map[catalog.Treatment]catalog.TimeCategory{
	catalog.TreatmentRetire:     catalog.TimeCategoryShortTerm,
	catalog.TreatmentReplace:    catalog.TimeCategoryShortTerm,
	catalog.TreatmentRehost:     catalog.TimeCategoryShortTerm,
	catalog.TreatmentRetain:     catalog.TimeCategoryShortTerm,
	catalog.TreatmentTolerate:   catalog.TimeCategoryShortTerm,
	catalog.TreatmentReplatform: catalog.TimeCategoryMediumTerm,
	catalog.TreatmentRefactor:   catalog.TimeCategoryLongTerm,
	catalog.TreatmentRebuild:    catalog.TimeCategoryLongTerm,
}

var modernStacks = map[string]bool{"java": true, "python": true, "nodejs": true, "php": true}

// Derive produces all ten signals. App Mod results, when present, take
// priority over inference from raw technology for most signals;
// operational maturity checks CI/CD and containerization before App Mod.
func Derive(ctx appctx.ApplicationContext) DerivedIntent {
	treatment := deriveTreatment(ctx)
	return DerivedIntent{
		Treatment:                   treatment,
		TimeCategory:                deriveTimeCategory(ctx, treatment),
		LikelyRuntimeModel:          deriveRuntimeModel(ctx),
		ModernizationDepthFeasible:  deriveModernizationDepthFeasible(ctx),
		CloudNativeFeasibility:      deriveCloudNativeFeasibility(ctx),
		OperationalMaturityEstimate: deriveOperationalMaturity(ctx, treatment),
		AvailabilityRequirement:     deriveAvailabilityRequirement(ctx),
		SecurityRequirement:         deriveSecurityRequirement(ctx),
		CostPosture:                 deriveCostPosture(ctx),
		NetworkExposure:             deriveNetworkExposure(ctx),
	}
}

func deriveTreatment(ctx appctx.ApplicationContext) DerivedSignal[catalog.Treatment] {
	if ctx.Overview.DeclaredTreatment != nil {
		t := *ctx.Overview.DeclaredTreatment
		return signal(t, ConfidenceHigh, "declared_treatment",
			fmt.Sprintf("Explicitly declared treatment: %s", t))
	}

	if mod := ctx.AppMod; mod != nil {
		if mod.ModernizationFeasible != nil && !*mod.ModernizationFeasible {
			return signal(catalog.TreatmentTolerate, ConfidenceHigh, "app_mod_results",
				"App Mod indicates modernization is not feasible")
		}
		if mod.ContainerReady != nil && *mod.ContainerReady && containsFold(mod.RecommendedTargets, "kubernetes", "aks") {
			return signal(catalog.TreatmentRefactor, ConfidenceMedium, "app_mod_results",
				"Container-ready with a Kubernetes target recommended")
		}
		if containsFold(mod.RecommendedTargets, "app service") {
			return signal(catalog.TreatmentReplatform, ConfidenceMedium, "app_mod_results",
				fmt.Sprintf("App Mod recommends: %s", strings.Join(mod.RecommendedTargets, ", ")))
		}
	}

	if strategy, ok := mostCommonStrategy(ctx.Servers.Servers); ok {
		t := catalog.Treatment(strings.ToLower(strategy))
		if t == catalog.TreatmentRehost || t == catalog.TreatmentReplatform || t == catalog.TreatmentRefactor {
			return signal(t, ConfidenceMedium, "server_migration_strategy",
				fmt.Sprintf("Server migration strategy: %s", strategy))
		}
	}

	return signal(catalog.TreatmentRehost, ConfidenceLow, "default",
		"No explicit treatment signal; defaulting to rehost")
}

func mostCommonStrategy(servers []appctx.RawServer) (string, bool) {
	counts := map[string]int{}
	for _, s := range servers {
		if s.MigrationStrategy != "" {
			counts[s.MigrationStrategy]++
		}
	}
	if len(counts) == 0 {
		return "", false
	}
	var best string
	var bestCount int
	var keys []string
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys) // deterministic tie-break
	for _, k := range keys {
		if counts[k] > bestCount {
			best, bestCount = k, counts[k]
		}
	}
	return best, true
}

func deriveTimeCategory(ctx appctx.ApplicationContext, treatment DerivedSignal[catalog.Treatment]) DerivedSignal[catalog.TimeCategory] {
	if ctx.Overview.DeclaredTimeCategory != nil {
		tc := *ctx.Overview.DeclaredTimeCategory
		return signal(tc, ConfidenceHigh, "declared_time_category",
			fmt.Sprintf("Explicitly declared TIME category: %s", tc))
	}

	tc, ok := treatmentToTimeCategory[treatment.Value]
	if !ok {
		tc = catalog.TimeCategoryMediumTerm
	}
	return signal(tc, ConfidenceMedium, "treatment_inference",
		fmt.Sprintf("Inferred from treatment %s -> %s", treatment.Value, tc))
}

func deriveRuntimeModel(ctx appctx.ApplicationContext) DerivedSignal[string] {
	tech := ctx.Technology
	appType := strings.ToLower(ctx.Overview.AppType)

	if tech.MessagingPresent {
		if strings.Contains(appType, "distributed") {
			return signal("microservices", ConfidenceMedium, "technology_detection",
				"Distributed application with messaging")
		}
		return signal("event_driven", ConfidenceMedium, "technology_detection",
			"Message queue detected suggests event-driven")
	}

	n := ctx.Servers.ServerCount
	switch {
	case n == 1 && tech.DatabasePresent:
		return signal("n_tier", ConfidenceMedium, "server_structure",
			"Single server with database suggests n-tier")
	case n == 1:
		return signal("monolith", ConfidenceLow, "server_structure",
			"Single server suggests monolith")
	case n <= 3:
		return signal("n_tier", ConfidenceMedium, "server_structure",
			fmt.Sprintf("%d servers suggests n-tier architecture", n))
	case strings.Contains(appType, "api"):
		return signal("api", ConfidenceMedium, "app_type",
			"API application type detected")
	}

	return signal("n_tier", ConfidenceLow, "default", "Multiple servers with unknown structure")
}

func deriveModernizationDepthFeasible(ctx appctx.ApplicationContext) DerivedSignal[bool] {
	if mod := ctx.AppMod; mod != nil {
		if (mod.ModernizationFeasible != nil && !*mod.ModernizationFeasible) || len(mod.ExplicitBlockers) > 0 {
			reason := "modernization not feasible"
			if len(mod.ExplicitBlockers) > 0 {
				reason = strings.Join(mod.ExplicitBlockers, ", ")
			}
			return signal(false, ConfidenceHigh, "app_mod_results", "Blocked: "+reason)
		}
		if mod.ContainerReady != nil && *mod.ContainerReady {
			return signal(true, ConfidenceHigh, "app_mod_results", "Container-ready application supports deep modernization")
		}
		for _, pc := range mod.PlatformCompatibility {
			if containsFold([]string{pc.Platform}, "kubernetes", "container") && isSupported(pc.Status) {
				return signal(true, ConfidenceMedium, "app_mod_results", "Platform compatibility supports container-based modernization")
			}
		}
		return signal(false, ConfidenceMedium, "app_mod_results", "No platform compatibility evidence for deep modernization")
	}

	tech := ctx.Technology
	if modernStacks[strings.ToLower(tech.PrimaryRuntime)] {
		return signal(true, ConfidenceLow, "technology_detection",
			fmt.Sprintf("%s typically supports containerization", tech.PrimaryRuntime))
	}
	if strings.EqualFold(tech.PrimaryRuntime, "dotnet") {
		return signal(true, ConfidenceLow, "technology_detection", ".NET typically supports modernization")
	}
	return signal(false, ConfidenceLow, "default", "Unknown technology stack; conservative estimate")
}

func isSupported(status appctx.PlatformStatus) bool {
	switch status {
	case appctx.PlatformFullySupported, appctx.PlatformSupported, appctx.PlatformSupportedWithChanges, appctx.PlatformSupportedWithRefactor:
		return true
	default:
		return false
	}
}

func deriveCloudNativeFeasibility(ctx appctx.ApplicationContext) DerivedSignal[string] {
	if mod := ctx.AppMod; mod != nil {
		if mod.ContainerReady != nil {
			if *mod.ContainerReady {
				if len(mod.ExplicitBlockers) > 0 {
					return signal("medium", ConfidenceHigh, "app_mod_results",
						fmt.Sprintf("Container-ready but with %d blockers", len(mod.ExplicitBlockers)))
				}
				return signal("high", ConfidenceHigh, "app_mod_results", "App Mod confirms container-ready")
			}
			return signal("low", ConfidenceHigh, "app_mod_results", "App Mod indicates not container-ready")
		}
	}

	tech := ctx.Technology
	runtime := strings.ToLower(tech.PrimaryRuntime)
	if modernStacks[runtime] {
		if tech.MessagingPresent {
			return signal("high", ConfidenceMedium, "technology_detection",
				fmt.Sprintf("%s with messaging is cloud-native friendly", tech.PrimaryRuntime))
		}
		return signal("medium", ConfidenceMedium, "technology_detection",
			fmt.Sprintf("%s typically supports cloud-native", tech.PrimaryRuntime))
	}
	if runtime == "dotnet" {
		return signal("medium", ConfidenceMedium, "technology_detection", ".NET Core/.NET 5+ supports containers")
	}

	return signal("low", ConfidenceLow, "default", "Unknown stack; conservative cloud-native estimate")
}

func deriveOperationalMaturity(ctx appctx.ApplicationContext, treatment DerivedSignal[catalog.Treatment]) DerivedSignal[catalog.OperatingModel] {
	tech := ctx.Technology

	if tech.HasCICD {
		return signal(catalog.OperatingDevOps, ConfidenceHigh, "technology_detection", "CI/CD detected indicates DevOps maturity")
	}
	if tech.Containerized {
		return signal(catalog.OperatingDevOps, ConfidenceMedium, "technology_detection", "Containerized workload suggests DevOps practices")
	}
	if mod := ctx.AppMod; mod != nil {
		if mod.ContainerReady != nil && *mod.ContainerReady {
			return signal(catalog.OperatingDevOps, ConfidenceMedium, "app_mod_results", "Container-ready application indicates DevOps maturity")
		}
		for _, pc := range mod.PlatformCompatibility {
			if containsFold([]string{pc.Platform}, "kubernetes", "aks") && pc.Status == appctx.PlatformFullySupported {
				return signal(catalog.OperatingDevOps, ConfidenceMedium, "app_mod_results", "Full Kubernetes support indicates DevOps readiness")
			}
		}
	}

	switch treatment.Value {
	case catalog.TreatmentReplatform, catalog.TreatmentRefactor, catalog.TreatmentRebuild:
		return signal(catalog.OperatingTransitional, ConfidenceLow, "treatment_inference",
			fmt.Sprintf("%s treatment implies modernization and operational maturity growth", treatment.Value))
	}

	if ctx.Overview.BusinessCriticality == "mission_critical" {
		return signal(catalog.OperatingTransitional, ConfidenceLow, "business_criticality", "Mission-critical apps often have better operations")
	}

	return signal(catalog.OperatingTraditionalIT, ConfidenceLow, "default", "No DevOps indicators detected")
}

func deriveAvailabilityRequirement(ctx appctx.ApplicationContext) DerivedSignal[string] {
	if ctx.Overview.AvailabilityRequirement != "" {
		return signal(ctx.Overview.AvailabilityRequirement, ConfidenceHigh, "explicit_requirement",
			"Explicitly specified availability requirement")
	}

	var availability string
	switch ctx.Overview.BusinessCriticality {
	case "low":
		availability = "single_region"
	case "mission_critical":
		availability = "multi_region_active_passive"
	default:
		availability = "zone_redundant"
	}
	return signal(availability, ConfidenceMedium, "business_criticality",
		fmt.Sprintf("Inferred from %s criticality", ctx.Overview.BusinessCriticality))
}

func deriveSecurityRequirement(ctx appctx.ApplicationContext) DerivedSignal[catalog.SecurityLevel] {
	compliance := make([]string, len(ctx.Overview.ComplianceRequirements))
	for i, c := range ctx.Overview.ComplianceRequirements {
		compliance[i] = strings.ToLower(c)
	}
	if containsAny(compliance, "hipaa", "pci-dss", "pci dss", "fedramp", "itar") {
		return signal(catalog.SecurityHighlyRegulated, ConfidenceHigh, "compliance_requirements",
			"Compliance: "+strings.Join(ctx.Overview.ComplianceRequirements, ", "))
	}
	if containsAny(compliance, "soc2", "soc 2", "iso27001", "iso 27001", "gdpr") {
		return signal(catalog.SecurityRegulated, ConfidenceHigh, "compliance_requirements",
			"Compliance: "+strings.Join(ctx.Overview.ComplianceRequirements, ", "))
	}

	switch ctx.Overview.BusinessCriticality {
	case "mission_critical":
		return signal(catalog.SecurityEnterprise, ConfidenceMedium, "business_criticality", "Mission-critical apps typically need enterprise security")
	case "high":
		return signal(catalog.SecurityEnterprise, ConfidenceLow, "business_criticality", "High criticality suggests enterprise security")
	}

	return signal(catalog.SecurityBasic, ConfidenceLow, "default", "No specific security requirements detected")
}

func deriveCostPosture(ctx appctx.ApplicationContext) DerivedSignal[string] {
	switch ctx.Overview.BusinessCriticality {
	case "mission_critical":
		return signal("scale_optimized", ConfidenceMedium, "business_criticality", "Mission-critical apps prioritize scale over cost")
	case "low":
		return signal("cost_minimized", ConfidenceMedium, "business_criticality", "Low criticality suggests cost sensitivity")
	}

	if ctx.Servers.UtilizationProfile == appctx.UtilizationLow {
		return signal("cost_minimized", ConfidenceLow, "utilization_profile", "Low utilization suggests cost optimization opportunity")
	}

	return signal("balanced", ConfidenceLow, "default", "Default balanced cost profile")
}

var externalIndicators = []string{"web", "portal", "customer", "public", "e-commerce", "ecommerce", "mobile backend", "api", "b2c", "consumer"}
var internalIndicators = []string{"internal", "intranet", "back-office", "backoffice", "admin", "management", "employee", "corporate", "batch", "etl"}
var webTechnologies = []string{"iis", "apache", "nginx", "asp.net", "react", "angular", "vue"}

func deriveNetworkExposure(ctx appctx.ApplicationContext) DerivedSignal[string] {
	appType := strings.ToLower(ctx.Overview.AppType)

	if containsFold([]string{appType}, externalIndicators...) {
		return signal("external", ConfidenceLow, "app_type", fmt.Sprintf("App type %q suggests external-facing", ctx.Overview.AppType))
	}
	if containsFold([]string{appType}, internalIndicators...) {
		return signal("internal", ConfidenceLow, "app_type", fmt.Sprintf("App type %q suggests internal-only", ctx.Overview.AppType))
	}

	if ctx.Technology.MiddlewarePresent || containsFold(ctx.Technology.Frameworks, webTechnologies...) {
		return signal("external", ConfidenceLow, "technology_detection", "Web server technology detected, possibly external-facing")
	}

	return signal("internal", ConfidenceUnknown, "default", "No clear external indicators; defaulting to internal")
}

// containsFold reports whether needle (as a substring, case-insensitive)
// appears in any haystack entry, or any needle appears in the single
// haystack-as-text value when haystack has exactly one entry meant as text.
func containsFold(haystack []string, needles ...string) bool {
	for _, h := range haystack {
		hl := strings.ToLower(h)
		for _, n := range needles {
			if strings.Contains(hl, strings.ToLower(n)) {
				return true
			}
		}
	}
	return false
}

func containsAny(haystack []string, needles ...string) bool {
	set := make(map[string]bool, len(needles))
	for _, n := range needles {
		set[n] = true
	}
	for _, h := range haystack {
		if set[h] {
			return true
		}
	}
	return false
}
