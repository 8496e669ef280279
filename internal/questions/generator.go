package questions

import (
	"sort"
	"strconv"

	"github.com/migrationcopilot/architecture-agent/internal/appctx"
	"github.com/migrationcopilot/architecture-agent/internal/catalog"
	"github.com/migrationcopilot/architecture-agent/internal/intent"
)

var treatmentOptions = []Option{
	{Value: string(catalog.TreatmentTolerate), Label: "Tolerate (Keep as-is)", Description: "Maintain current state, minimal cloud involvement"},
	{Value: string(catalog.TreatmentRehost), Label: "Rehost (Lift & Shift)", Description: "Move to cloud VMs with minimal changes"},
	{Value: string(catalog.TreatmentReplatform), Label: "Replatform (Lift & Optimize)", Description: "Move to PaaS services with minimal code changes"},
	{Value: string(catalog.TreatmentRefactor), Label: "Refactor (Modernize)", Description: "Significant changes to leverage cloud-native capabilities"},
}

var timeCategoryOptions = []Option{
	{Value: string(catalog.TimeCategoryShortTerm), Label: "Short Term", Description: "Quick execution, minimal ongoing investment"},
	{Value: string(catalog.TimeCategoryMediumTerm), Label: "Medium Term", Description: "Measured investment over the next planning cycle"},
	{Value: string(catalog.TimeCategoryLongTerm), Label: "Long Term", Description: "Strategic asset warranting significant modernization investment"},
}

var availabilityOptions = []Option{
	{Value: "single_region", Label: "Single Region", Description: "Standard availability within one Azure region"},
	{Value: "zone_redundant", Label: "Zone Redundant", Description: "High availability across availability zones"},
	{Value: "multi_region_active_passive", Label: "Multi-Region (Active/Passive)", Description: "Disaster recovery with failover to a secondary region"},
	{Value: "multi_region_active_active", Label: "Multi-Region (Active/Active)", Description: "Always-on global availability across regions"},
}

var securityOptions = []Option{
	{Value: string(catalog.SecurityBasic), Label: "Basic", Description: "Standard security practices, no specific compliance"},
	{Value: string(catalog.SecurityEnterprise), Label: "Enterprise", Description: "Enterprise security (zero trust, private endpoints)"},
	{Value: string(catalog.SecurityRegulated), Label: "Regulated", Description: "Industry compliance (SOC 2, ISO 27001, GDPR)"},
	{Value: string(catalog.SecurityHighlyRegulated), Label: "Highly Regulated", Description: "Strict compliance (HIPAA, PCI-DSS, FedRAMP)"},
}

var operatingModelOptions = []Option{
	{Value: string(catalog.OperatingTraditionalIT), Label: "Traditional IT", Description: "Manual deployments, ITIL processes, separate ops team"},
	{Value: string(catalog.OperatingTransitional), Label: "Transitional", Description: "Some automation, moving toward DevOps practices"},
	{Value: string(catalog.OperatingDevOps), Label: "DevOps", Description: "CI/CD, infrastructure as code, team owns deployment"},
	{Value: string(catalog.OperatingSRE), Label: "SRE", Description: "SLO-driven, comprehensive observability, error budgets"},
}

var costPostureOptions = []Option{
	{Value: "cost_minimized", Label: "Cost Minimized", Description: "Minimize spend, use consumption/spot pricing where possible"},
	{Value: "balanced", Label: "Balanced", Description: "Balance cost and performance for production workloads"},
	{Value: "scale_optimized", Label: "Scale Optimized", Description: "Prioritize scalability and performance over cost"},
	{Value: "innovation_first", Label: "Innovation First", Description: "Use latest services regardless of cost"},
}

var runtimeModelOptions = []Option{
	{Value: "monolith", Label: "Monolith", Description: "Single deployable unit on one or few servers"},
	{Value: "n_tier", Label: "N-Tier", Description: "Separate web, application, and data tiers"},
	{Value: "microservices", Label: "Microservices", Description: "Independently deployable services"},
	{Value: "event_driven", Label: "Event-Driven", Description: "Components coordinating through messages and events"},
	{Value: "api", Label: "API", Description: "Headless API serving other applications"},
}

var modernizationDepthOptions = []Option{
	{Value: "true", Label: "Yes", Description: "The application can absorb significant rework (containers, managed services)"},
	{Value: "false", Label: "No", Description: "Only light-touch changes are realistic"},
}

var cloudNativeOptions = []Option{
	{Value: "low", Label: "Low", Description: "Strong coupling to current infrastructure"},
	{Value: "medium", Label: "Medium", Description: "Cloud-native adoption is plausible with effort"},
	{Value: "high", Label: "High", Description: "Well positioned for containers and managed services"},
}

var networkExposureOptions = []Option{
	{Value: "external", Label: "External (Internet-facing)", Description: "Publicly accessible from the internet (customers, partners, public APIs)"},
	{Value: "internal", Label: "Internal Only", Description: "Only accessible within the corporate network"},
	{Value: "mixed", Label: "Mixed (Both)", Description: "Has both public-facing and internal-only components"},
}

// GenerateQuestions builds the pending question list: network_exposure
// is always asked unless the user already answered it; every other
// checked signal is asked only when its confidence is at or below
// questionThreshold.
func GenerateQuestions(ctx appctx.ApplicationContext, di intent.DerivedIntent, questionThreshold intent.Confidence) []ClarificationQuestion {
	var qs []ClarificationQuestion

	if ctx.UserAnswers["network_exposure"] == "" {
		qs = append(qs, ClarificationQuestion{
			ID:                  "network_exposure",
			Dimension:           "network_exposure",
			QuestionText:        "Is this application external-facing, internal-only, or mixed?",
			Options:             networkExposureOptions,
			Required:            true,
			AffectsEligibility:  true,
			CurrentInference:    di.NetworkExposure.Value,
			InferenceConfidence: di.NetworkExposure.Confidence,
		})
	}

	if ctx.Overview.DeclaredTreatment == nil && di.Treatment.Confidence.AtOrBelow(questionThreshold) {
		qs = append(qs, ClarificationQuestion{
			ID:                  "treatment",
			Dimension:           "treatment",
			QuestionText:        "What is the target migration strategy for this application?",
			Options:             treatmentOptions,
			Required:            false,
			AffectsEligibility:  true,
			CurrentInference:    string(di.Treatment.Value),
			InferenceConfidence: di.Treatment.Confidence,
		})
	}

	if ctx.Overview.DeclaredTimeCategory == nil && di.TimeCategory.Confidence.AtOrBelow(questionThreshold) {
		qs = append(qs, ClarificationQuestion{
			ID:                  "time_category",
			Dimension:           "time_category",
			QuestionText:        "What is the strategic investment posture for this application?",
			Options:             timeCategoryOptions,
			Required:            false,
			AffectsEligibility:  true,
			CurrentInference:    string(di.TimeCategory.Value),
			InferenceConfidence: di.TimeCategory.Confidence,
		})
	}

	if ctx.Overview.AvailabilityRequirement == "" && di.AvailabilityRequirement.Confidence.AtOrBelow(questionThreshold) {
		qs = append(qs, ClarificationQuestion{
			ID:                  "availability",
			Dimension:           "availability_requirement",
			QuestionText:        "What are the availability requirements for this application?",
			Options:             availabilityOptions,
			Required:            false,
			AffectsEligibility:  true,
			CurrentInference:    di.AvailabilityRequirement.Value,
			InferenceConfidence: di.AvailabilityRequirement.Confidence,
		})
	}

	if len(ctx.Overview.ComplianceRequirements) == 0 && di.SecurityRequirement.Confidence.AtOrBelow(questionThreshold) {
		qs = append(qs, ClarificationQuestion{
			ID:                  "security_level",
			Dimension:           "security_requirement",
			QuestionText:        "What security/compliance level is required for this application?",
			Options:             securityOptions,
			Required:            false,
			AffectsEligibility:  true,
			CurrentInference:    string(di.SecurityRequirement.Value),
			InferenceConfidence: di.SecurityRequirement.Confidence,
		})
	}

	if di.OperationalMaturityEstimate.Confidence.AtOrBelow(questionThreshold) {
		qs = append(qs, ClarificationQuestion{
			ID:                  "operating_model",
			Dimension:           "operational_maturity_estimate",
			QuestionText:        "What is your team's operational maturity level?",
			Options:             operatingModelOptions,
			Required:            false,
			AffectsEligibility:  true,
			CurrentInference:    string(di.OperationalMaturityEstimate.Value),
			InferenceConfidence: di.OperationalMaturityEstimate.Confidence,
		})
	}

	if di.LikelyRuntimeModel.Confidence.AtOrBelow(questionThreshold) {
		qs = append(qs, ClarificationQuestion{
			ID:                  "likely_runtime_model",
			Dimension:           "likely_runtime_model",
			QuestionText:        "Which runtime model best describes this application?",
			Options:             runtimeModelOptions,
			Required:            false,
			AffectsEligibility:  false,
			CurrentInference:    di.LikelyRuntimeModel.Value,
			InferenceConfidence: di.LikelyRuntimeModel.Confidence,
		})
	}

	if di.ModernizationDepthFeasible.Confidence.AtOrBelow(questionThreshold) {
		qs = append(qs, ClarificationQuestion{
			ID:                  "modernization_depth",
			Dimension:           "modernization_depth_feasible",
			QuestionText:        "Could this application absorb deep modernization (containers, managed services)?",
			Options:             modernizationDepthOptions,
			Required:            false,
			AffectsEligibility:  true,
			CurrentInference:    strconv.FormatBool(di.ModernizationDepthFeasible.Value),
			InferenceConfidence: di.ModernizationDepthFeasible.Confidence,
		})
	}

	if di.CloudNativeFeasibility.Confidence.AtOrBelow(questionThreshold) {
		qs = append(qs, ClarificationQuestion{
			ID:                  "cloud_native_feasibility",
			Dimension:           "cloud_native_feasibility",
			QuestionText:        "How feasible is a cloud-native architecture for this application?",
			Options:             cloudNativeOptions,
			Required:            false,
			AffectsEligibility:  false,
			CurrentInference:    di.CloudNativeFeasibility.Value,
			InferenceConfidence: di.CloudNativeFeasibility.Confidence,
		})
	}

	if di.CostPosture.Confidence.AtOrBelow(questionThreshold) {
		qs = append(qs, ClarificationQuestion{
			ID:                  "cost_posture",
			Dimension:           "cost_posture",
			QuestionText:        "What is your cost optimization priority for this application?",
			Options:             costPostureOptions,
			Required:            false,
			AffectsEligibility:  false,
			CurrentInference:    di.CostPosture.Value,
			InferenceConfidence: di.CostPosture.Confidence,
		})
	}

	sort.SliceStable(qs, func(i, j int) bool {
		if qs[i].Required != qs[j].Required {
			return qs[i].Required
		}
		if qs[i].AffectsEligibility != qs[j].AffectsEligibility {
			return qs[i].AffectsEligibility
		}
		return qs[i].ID < qs[j].ID
	})

	return qs
}

// ApplyAnswers returns a new DerivedIntent with every answered signal
// overwritten to the user's value, confidence high, source
// "user_answer". Unanswered signals are copied unchanged.
func ApplyAnswers(di intent.DerivedIntent, answers map[string]string) intent.DerivedIntent {
	updated := di.Clone()

	if v, ok := answers["treatment"]; ok {
		updated.Treatment = overwrite(catalog.Treatment(v), "User specified treatment")
	}
	if v, ok := answers["time_category"]; ok {
		updated.TimeCategory = overwrite(catalog.TimeCategory(v), "User specified TIME category")
	}
	if v, ok := answers["availability"]; ok {
		updated.AvailabilityRequirement = overwrite(v, "User specified availability")
	}
	if v, ok := answers["security_level"]; ok {
		updated.SecurityRequirement = overwrite(catalog.SecurityLevel(v), "User specified security level")
	}
	if v, ok := answers["operating_model"]; ok {
		updated.OperationalMaturityEstimate = overwrite(catalog.OperatingModel(v), "User specified operating model")
	}
	if v, ok := answers["likely_runtime_model"]; ok {
		updated.LikelyRuntimeModel = overwrite(v, "User specified runtime model")
	}
	if v, ok := answers["modernization_depth"]; ok {
		updated.ModernizationDepthFeasible = overwrite(v == "true" || v == "yes", "User specified modernization depth")
	}
	if v, ok := answers["cloud_native_feasibility"]; ok {
		updated.CloudNativeFeasibility = overwrite(v, "User specified cloud-native feasibility")
	}
	if v, ok := answers["cost_posture"]; ok {
		updated.CostPosture = overwrite(v, "User specified cost posture")
	}
	if v, ok := answers["network_exposure"]; ok {
		updated.NetworkExposure = overwrite(v, "User specified network exposure")
	}

	return updated
}

func overwrite[T any](value T, reasoning string) intent.DerivedSignal[T] {
	return intent.DerivedSignal[T]{
		Value:      value,
		Confidence: intent.ConfidenceHigh,
		Source:     "user_answer",
		Reasoning:  reasoning,
	}
}
