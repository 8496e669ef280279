package scorer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/migrationcopilot/architecture-agent/internal/appctx"
	"github.com/migrationcopilot/architecture-agent/internal/catalog"
	"github.com/migrationcopilot/architecture-agent/internal/intent"
)

// runtimeTagHints feeds inferRelevantTags: detected runtimes imply
// browse tags worth matching against an architecture's tag set.
var runtimeTagHints = map[string][]string{
	"java": {"java"},
	".net": {"dotnet", ".net"},
}

// Score scores every eligible entry across ten dimensions, summarizes
// matched/mismatched lists, and computes the final likelihood_score
// after the quality and confidence-penalty adjustments.
func Score(entries []catalog.ArchitectureEntry, ctx appctx.ApplicationContext, di intent.DerivedIntent) []ArchitectureRecommendation {
	recs := make([]ArchitectureRecommendation, 0, len(entries))
	for _, arch := range entries {
		recs = append(recs, scoreOne(arch, ctx, di))
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].LikelihoodScore > recs[j].LikelihoodScore
	})

	return recs
}

func scoreOne(arch catalog.ArchitectureEntry, ctx appctx.ApplicationContext, di intent.DerivedIntent) ArchitectureRecommendation {
	var assumptions []AssumptionMade

	dims := []ScoringDimension{
		scoreTreatmentAlignment(arch, di),
		scoreRuntimeModelCompatibility(arch, di, &assumptions),
		scorePlatformCompatibility(arch, ctx),
		scoreAppModRecommended(arch, ctx),
		scoreServiceOverlap(arch, ctx),
		scoreBrowseTagOverlap(arch, ctx),
		scoreAvailabilityAlignment(arch, di, &assumptions),
		scoreOperatingModelFit(arch, di, &assumptions),
		scoreComplexityTolerance(arch, ctx),
		scoreCostPostureAlignment(arch, di),
	}

	var sumWeighted, sumWeight float64
	var matched []MatchedDimension
	var mismatched []MismatchedDimension
	for _, d := range dims {
		sumWeighted += d.WeightedScore
		sumWeight += d.Weight
		switch {
		case d.RawScore >= matchedThreshold:
			matched = append(matched, MatchedDimension{Dimension: d.Dimension, Reason: d.Reasoning})
		case d.RawScore <= mismatchedThreshold:
			mismatched = append(mismatched, MismatchedDimension{Dimension: d.Dimension, Reason: d.Reasoning})
		}
	}

	base := 0.0
	if sumWeight > 0 {
		base = (sumWeighted / sumWeight) * 100
	}
	qualityAdj := base * catalog.QualityWeight[arch.CatalogQuality]

	penalty := confidencePenaltySum(di) + 0.02*float64(len(assumptions))
	if penalty > 0.25 {
		penalty = 0.25
	}

	final := qualityAdj - penalty*100
	if final < 0 {
		final = 0
	}

	return ArchitectureRecommendation{
		ArchitectureID:       arch.ID,
		Name:                 arch.Name,
		Description:          arch.Description,
		CatalogURL:           arch.CatalogURL,
		DiagramRefs:          arch.DiagramRefs,
		CatalogQuality:       arch.CatalogQuality,
		LikelihoodScore:      final,
		ConfidencePenalty:    penalty,
		Dimensions:           dims,
		MatchedDimensions:    matched,
		MismatchedDimensions: mismatched,
		Assumptions:          assumptions,
		CoreServices:         arch.CoreServices,
		SupportingServices:   arch.SupportingServices,
	}
}

// confidencePenaltySum sums the per-signal confidence penalty across
// every DerivedSignal the intent carries.
func confidencePenaltySum(di intent.DerivedIntent) float64 {
	return intent.ConfidencePenalty[di.Treatment.Confidence] +
		intent.ConfidencePenalty[di.TimeCategory.Confidence] +
		intent.ConfidencePenalty[di.LikelyRuntimeModel.Confidence] +
		intent.ConfidencePenalty[di.ModernizationDepthFeasible.Confidence] +
		intent.ConfidencePenalty[di.CloudNativeFeasibility.Confidence] +
		intent.ConfidencePenalty[di.OperationalMaturityEstimate.Confidence] +
		intent.ConfidencePenalty[di.AvailabilityRequirement.Confidence] +
		intent.ConfidencePenalty[di.SecurityRequirement.Confidence] +
		intent.ConfidencePenalty[di.CostPosture.Confidence] +
		intent.ConfidencePenalty[di.NetworkExposure.Confidence]
}

func dim(name string, raw float64, reasoning string, isHardGate, passedGate bool) ScoringDimension {
	w := dimensionWeight[name]
	return ScoringDimension{
		Dimension:     name,
		Weight:        w,
		RawScore:      raw,
		WeightedScore: raw * w,
		Reasoning:     reasoning,
		IsHardGate:    isHardGate,
		PassedGate:    passedGate,
	}
}

// scoreTreatmentAlignment is the hard gate: a mismatch here means
// eligibility should already have excluded the entry, so reaching this
// function with a mismatch is a bug, not a normal outcome.
func scoreTreatmentAlignment(arch catalog.ArchitectureEntry, di intent.DerivedIntent) ScoringDimension {
	if len(arch.SupportedTreatments) == 0 {
		return dim("treatment_alignment", 1.0, "No treatment restriction", true, true)
	}
	for _, t := range arch.SupportedTreatments {
		if t == di.Treatment.Value {
			return dim("treatment_alignment", 1.0, fmt.Sprintf("Supports %s treatment", t), true, true)
		}
	}
	return dim("treatment_alignment", 0, fmt.Sprintf("Does not support %s treatment (should have been excluded at eligibility)", di.Treatment.Value), true, false)
}

// scoreRuntimeModelCompatibility: exact match scores high; no match
// but no expectations declared scores neutral with an explicit
// assumption.
func scoreRuntimeModelCompatibility(arch catalog.ArchitectureEntry, di intent.DerivedIntent, assumptions *[]AssumptionMade) ScoringDimension {
	appRuntime := di.LikelyRuntimeModel.Value
	if len(arch.ExpectedRuntimeModels) == 0 {
		*assumptions = append(*assumptions, AssumptionMade{
			Dimension:  "runtime_model_compatibility",
			Assumption: "Architecture declares no expected runtime models; assuming compatible",
		})
		return dim("runtime_model_compatibility", 0.7, "No runtime model expectations declared", false, true)
	}
	for _, r := range arch.ExpectedRuntimeModels {
		if strings.EqualFold(r, appRuntime) {
			return dim("runtime_model_compatibility", 1.0, fmt.Sprintf("App runtime %s matches", appRuntime), false, true)
		}
	}
	if di.LikelyRuntimeModel.Confidence == intent.ConfidenceUnknown {
		*assumptions = append(*assumptions, AssumptionMade{
			Dimension:  "runtime_model_compatibility",
			Assumption: "Runtime model unknown; assuming compatible",
		})
		return dim("runtime_model_compatibility", 0.6, "Runtime model unknown", false, true)
	}
	return dim("runtime_model_compatibility", 0.3, fmt.Sprintf("App: %s, Arch: %v", appRuntime, arch.ExpectedRuntimeModels), false, true)
}

// platformScores maps App-Mod statuses to scores.
var platformScores = map[appctx.PlatformStatus]float64{
	appctx.PlatformFullySupported:        1.0,
	appctx.PlatformSupported:             0.9,
	appctx.PlatformSupportedWithChanges:  0.7,
	appctx.PlatformSupportedWithRefactor: 0.5,
}

// scorePlatformCompatibility averages the status scores over the
// platforms the architecture's services actually reference.
func scorePlatformCompatibility(arch catalog.ArchitectureEntry, ctx appctx.ApplicationContext) ScoringDimension {
	if ctx.AppMod == nil {
		return dim("platform_compatibility", 0.5, "No App Mod data", false, true)
	}

	archServices := strings.ToLower(strings.Join(append(append([]string{}, arch.CoreServices...), arch.SupportingServices...), " "))

	var sum float64
	var count int
	for _, pc := range ctx.AppMod.PlatformCompatibility {
		// Platform names arrive as the canonical tokens Normalize
		// emits; match them against the service list through the same
		// keyword table the eligibility filter uses.
		if !containsAnyKeyword(archServices, appctx.PlatformServiceKeywords(pc.Platform)) {
			continue
		}
		score, ok := platformScores[pc.Status]
		if !ok {
			continue
		}
		sum += score
		count++
	}

	if count == 0 {
		return dim("platform_compatibility", 0.6, "No relevant platforms matched", false, true)
	}
	avg := sum / float64(count)
	return dim("platform_compatibility", avg, fmt.Sprintf("Averaged over %d relevant platform(s)", count), false, true)
}

func containsAnyKeyword(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// scoreAppModRecommended rewards overlap between App Mod's recommended
// targets and the architecture's core services.
func scoreAppModRecommended(arch catalog.ArchitectureEntry, ctx appctx.ApplicationContext) ScoringDimension {
	if ctx.AppMod == nil || len(ctx.AppMod.RecommendedTargets) == 0 {
		return dim("app_mod_recommended", 0.5, "No App Mod recommendations", false, true)
	}

	archServices := make([]string, 0, len(arch.CoreServices))
	for _, s := range arch.CoreServices {
		archServices = append(archServices, strings.ToLower(s))
	}

	matchCount := 0
	for _, rec := range ctx.AppMod.RecommendedTargets {
		recLower := strings.ToLower(rec)
		for _, svc := range archServices {
			if strings.Contains(recLower, svc) || strings.Contains(svc, recLower) {
				matchCount++
				break
			}
		}
	}

	score := 0.4
	if matchCount > 0 {
		score = 0.7 + float64(matchCount)*0.15
		if score > 1.0 {
			score = 1.0
		}
	}
	return dim("app_mod_recommended", score, fmt.Sprintf("Matches %d of %d recommended targets", matchCount, len(ctx.AppMod.RecommendedTargets)), false, true)
}

// scoreServiceOverlap computes bidirectional substring overlap between
// the approved service list and the architecture's services.
func scoreServiceOverlap(arch catalog.ArchitectureEntry, ctx appctx.ApplicationContext) ScoringDimension {
	approved := make([]string, 0, len(ctx.ApprovedServices.Mappings))
	for _, v := range ctx.ApprovedServices.Mappings {
		approved = append(approved, strings.ToLower(v))
	}
	if len(approved) == 0 {
		return dim("service_overlap", 0.5, "No approved services specified", false, true)
	}

	archServices := make([]string, 0, len(arch.CoreServices)+len(arch.SupportingServices))
	for _, s := range append(append([]string{}, arch.CoreServices...), arch.SupportingServices...) {
		archServices = append(archServices, strings.ToLower(s))
	}

	matches := 0
	for _, a := range approved {
		for _, s := range archServices {
			if strings.Contains(a, s) || strings.Contains(s, a) {
				matches++
			}
		}
	}

	ratio := float64(matches) / float64(len(approved))
	if ratio > 1.0 {
		ratio = 1.0
	}
	score := 0.3 + ratio*0.7
	return dim("service_overlap", score, fmt.Sprintf("%d of %d approved services match", matches, len(approved)), false, true)
}

// scoreBrowseTagOverlap matches tags inferred from the detected stack
// against the architecture's browse tags.
func scoreBrowseTagOverlap(arch catalog.ArchitectureEntry, ctx appctx.ApplicationContext) ScoringDimension {
	relevant := inferRelevantTags(ctx)
	if len(relevant) == 0 {
		return dim("browse_tag_overlap", 0.5, "No relevant tags inferred from context", false, true)
	}

	archTags := make(map[string]bool, len(arch.BrowseTags))
	for _, t := range arch.BrowseTags {
		archTags[strings.ToLower(t)] = true
	}

	matches := 0
	for _, t := range relevant {
		if archTags[t] {
			matches++
		}
	}

	ratio := float64(matches) / float64(len(relevant))
	if ratio > 1.0 {
		ratio = 1.0
	}
	score := 0.4 + ratio*0.6
	return dim("browse_tag_overlap", score, fmt.Sprintf("%d relevant browse tags match", matches), false, true)
}

func inferRelevantTags(ctx appctx.ApplicationContext) []string {
	var tags []string
	tech := ctx.Technology

	switch strings.ToLower(tech.PrimaryRuntime) {
	case "java":
		tags = append(tags, runtimeTagHints["java"]...)
	case ".net", "dotnet":
		tags = append(tags, runtimeTagHints[".net"]...)
	}
	if tech.DatabasePresent {
		tags = append(tags, "databases")
	}
	if tech.MessagingPresent {
		tags = append(tags, "messaging")
	}
	if ctx.AppMod != nil && ctx.AppMod.ContainerReady != nil && *ctx.AppMod.ContainerReady {
		tags = append(tags, "containers")
	}

	appType := strings.ToLower(ctx.Overview.AppType)
	if strings.Contains(appType, "web") {
		tags = append(tags, "web")
	}
	if strings.Contains(appType, "api") {
		tags = append(tags, "api")
	}

	return tags
}

// scoreAvailabilityAlignment: exact match 1.0, a strictly higher
// supported tier 0.9, else 0.4.
func scoreAvailabilityAlignment(arch catalog.ArchitectureEntry, di intent.DerivedIntent, assumptions *[]AssumptionMade) ScoringDimension {
	required := di.AvailabilityRequirement.Value
	if di.AvailabilityRequirement.Confidence == intent.ConfidenceUnknown {
		*assumptions = append(*assumptions, AssumptionMade{
			Dimension:  "availability_alignment",
			Assumption: "Availability requirement unknown; assuming zone_redundant",
		})
	}

	for _, a := range arch.AvailabilityModelsSupported {
		if a == required {
			return dim("availability_alignment", 1.0, fmt.Sprintf("Exact availability match: %s", required), false, true)
		}
	}
	if availabilityExceeds(arch.AvailabilityModelsSupported, required) {
		return dim("availability_alignment", 0.9, fmt.Sprintf("Architecture exceeds required availability (%s)", required), false, true)
	}
	return dim("availability_alignment", 0.4, fmt.Sprintf("Architecture does not meet required availability (%s)", required), false, true)
}

var availabilityRank = map[string]int{
	"single_region":               0,
	"zone_redundant":              1,
	"multi_region_active_passive": 2,
	"multi_region_active_active":  3,
}

func availabilityExceeds(supported []string, required string) bool {
	reqRank, ok := availabilityRank[required]
	if !ok {
		return false
	}
	for _, s := range supported {
		if r, ok := availabilityRank[s]; ok && r > reqRank {
			return true
		}
	}
	return false
}

// scoreOperatingModelFit: equal maturity 1.0, over-qualified 0.9,
// under-qualified decays 0.3 per level with a 0.2 floor.
func scoreOperatingModelFit(arch catalog.ArchitectureEntry, di intent.DerivedIntent, assumptions *[]AssumptionMade) ScoringDimension {
	if di.OperationalMaturityEstimate.Confidence == intent.ConfidenceUnknown {
		*assumptions = append(*assumptions, AssumptionMade{
			Dimension:  "operating_model_fit",
			Assumption: "Operational maturity unknown; assuming equal to architecture requirement",
		})
	}

	appLevel := di.OperationalMaturityEstimate.Value.Rank()
	archLevel := arch.RequiredOperatingModel.Rank()

	switch {
	case appLevel == archLevel:
		return dim("operating_model_fit", 1.0, "Operating model matches exactly", false, true)
	case appLevel > archLevel:
		return dim("operating_model_fit", 0.9, "App maturity exceeds architecture requirement", false, true)
	default:
		gap := archLevel - appLevel
		score := 1.0 - 0.3*float64(gap)
		if score < 0.2 {
			score = 0.2
		}
		return dim("operating_model_fit", score, fmt.Sprintf("App maturity below architecture requirement by %d level(s)", gap), false, true)
	}
}

// criticalityTolerance maps business criticality to a complexity
// tolerance.
var criticalityTolerance = map[appctx.BusinessCriticality]catalog.Complexity{
	appctx.CriticalityLow:             catalog.ComplexityHigh,
	appctx.CriticalityMedium:          catalog.ComplexityMedium,
	appctx.CriticalityHigh:            catalog.ComplexityMedium,
	appctx.CriticalityMissionCritical: catalog.ComplexityLow,
}

// scoreComplexityTolerance compares max(impl, ops) complexity with the
// criticality-derived tolerance; each level over costs 0.35 with a 0.3
// floor.
func scoreComplexityTolerance(arch catalog.ArchitectureEntry, ctx appctx.ApplicationContext) ScoringDimension {
	tolerance, ok := criticalityTolerance[ctx.Overview.BusinessCriticality]
	if !ok {
		tolerance = catalog.ComplexityMedium
	}

	archComplexity := arch.ImplementationComplexity
	if arch.OperationalComplexity.Rank() > archComplexity.Rank() {
		archComplexity = arch.OperationalComplexity
	}

	if archComplexity.Rank() <= tolerance.Rank() {
		return dim("complexity_tolerance", 1.0, fmt.Sprintf("Architecture complexity (%s) within tolerance (%s)", archComplexity, tolerance), false, true)
	}

	gap := archComplexity.Rank() - tolerance.Rank()
	score := 1.0 - 0.35*float64(gap)
	if score < 0.3 {
		score = 0.3
	}
	return dim("complexity_tolerance", score, fmt.Sprintf("Architecture complexity (%s) exceeds tolerance (%s)", archComplexity, tolerance), false, true)
}

var costProfileRank = map[string]int{
	"cost_minimized":   0,
	"balanced":         1,
	"scale_optimized":  2,
	"innovation_first": 3,
}

// scoreCostPostureAlignment: same profile 1.0, adjacent 0.8, else 0.5.
func scoreCostPostureAlignment(arch catalog.ArchitectureEntry, di intent.DerivedIntent) ScoringDimension {
	appRank, appOK := costProfileRank[di.CostPosture.Value]
	archRank, archOK := costProfileRank[arch.CostProfile]
	if !appOK || !archOK {
		return dim("cost_posture_alignment", 0.5, "Cost posture not comparable", false, true)
	}

	gap := appRank - archRank
	if gap < 0 {
		gap = -gap
	}

	switch gap {
	case 0:
		return dim("cost_posture_alignment", 1.0, fmt.Sprintf("Cost posture matches (%s)", di.CostPosture.Value), false, true)
	case 1:
		return dim("cost_posture_alignment", 0.8, fmt.Sprintf("Cost posture adjacent (app %s, arch %s)", di.CostPosture.Value, arch.CostProfile), false, true)
	default:
		return dim("cost_posture_alignment", 0.5, fmt.Sprintf("Cost posture far apart (app %s, arch %s)", di.CostPosture.Value, arch.CostProfile), false, true)
	}
}
