// Package explainer assembles the final ScoringResult from the
// eligible/excluded sets, the scored recommendations, and a
// confidence-banded summary.
package explainer

import (
	"fmt"

	"github.com/migrationcopilot/architecture-agent/internal/catalog"
	"github.com/migrationcopilot/architecture-agent/internal/eligibility"
	"github.com/migrationcopilot/architecture-agent/internal/intent"
	"github.com/migrationcopilot/architecture-agent/internal/questions"
	"github.com/migrationcopilot/architecture-agent/internal/scorer"
)

// RecommendationSummary is the top-level result summary.
type RecommendationSummary struct {
	Primary              *string  `json:"primary,omitempty"`
	ConfidenceLevel      string   `json:"confidence_level"`
	KeyDrivers           []string `json:"key_drivers"`
	KeyRisks             []string `json:"key_risks"`
	AssumptionsCount     int      `json:"assumptions_count"`
	ClarificationsNeeded int      `json:"clarifications_needed"`
}

// ScoringResult is the complete output of one scoring run.
type ScoringResult struct {
	ApplicationName    string                              `json:"application_name"`
	CatalogVersion     string                              `json:"catalog_version"`
	CatalogCount       int                                 `json:"catalog_count"`
	DerivedIntent      intent.DerivedIntent                `json:"derived_intent"`
	PendingQuestions   []questions.ClarificationQuestion   `json:"pending_questions"`
	Recommendations    []scorer.ArchitectureRecommendation `json:"recommendations"`
	Excluded           []eligibility.ExcludedArchitecture  `json:"excluded"`
	Summary            RecommendationSummary               `json:"summary"`
	ProcessingWarnings []string                            `json:"processing_warnings,omitempty"`
}

// lowConfidenceThreshold mirrors the question generator's default
// question_threshold: a signal at or below "low" counts against the
// summary's confidence banding.
const lowConfidenceThreshold = intent.ConfidenceLow

// Explain builds the final ScoringResult. Every summary list here is
// freshly allocated, never a slice shared with a recommendation's
// MatchedDimensions/MismatchedDimensions.
func Explain(
	appName string,
	cat *catalog.ArchitectureCatalog,
	di intent.DerivedIntent,
	pending []questions.ClarificationQuestion,
	recommendations []scorer.ArchitectureRecommendation,
	excluded []eligibility.ExcludedArchitecture,
	warnings []string,
) ScoringResult {
	summary := buildSummary(di, pending, recommendations)

	return ScoringResult{
		ApplicationName:    appName,
		CatalogVersion:     cat.Version,
		CatalogCount:       len(cat.Architectures),
		DerivedIntent:      di,
		PendingQuestions:   pending,
		Recommendations:    recommendations,
		Excluded:           excluded,
		Summary:            summary,
		ProcessingWarnings: warnings,
	}
}

func buildSummary(di intent.DerivedIntent, pending []questions.ClarificationQuestion, recs []scorer.ArchitectureRecommendation) RecommendationSummary {
	var primary *string
	if len(recs) > 0 {
		name := recs[0].Name
		primary = &name
	}

	confidence := confidenceLevel(di)

	keyDrivers := make([]string, 0)
	keyRisks := make([]string, 0)
	assumptionsCount := 0
	if len(recs) > 0 {
		top := recs[0]
		for _, m := range top.MatchedDimensions {
			keyDrivers = append(keyDrivers, m.Reason)
		}
		for _, m := range top.MismatchedDimensions {
			keyRisks = append(keyRisks, m.Reason)
		}
		assumptionsCount = len(top.Assumptions)
	}

	clarificationsNeeded := 0
	for _, q := range pending {
		if q.Required || q.AffectsEligibility {
			clarificationsNeeded++
		}
	}

	return RecommendationSummary{
		Primary:              primary,
		ConfidenceLevel:      confidence,
		KeyDrivers:           keyDrivers,
		KeyRisks:             keyRisks,
		AssumptionsCount:     assumptionsCount,
		ClarificationsNeeded: clarificationsNeeded,
	}
}

// confidenceLevel bands the overall result: "low" if any of the ten
// signals is at or below the question threshold, "medium" if none are
// low but at least one is only "medium", else "high".
func confidenceLevel(di intent.DerivedIntent) string {
	signals := []intent.Confidence{
		di.Treatment.Confidence,
		di.TimeCategory.Confidence,
		di.LikelyRuntimeModel.Confidence,
		di.ModernizationDepthFeasible.Confidence,
		di.CloudNativeFeasibility.Confidence,
		di.OperationalMaturityEstimate.Confidence,
		di.AvailabilityRequirement.Confidence,
		di.SecurityRequirement.Confidence,
		di.CostPosture.Confidence,
		di.NetworkExposure.Confidence,
	}

	hasLow, hasMedium := false, false
	for _, c := range signals {
		if c.AtOrBelow(lowConfidenceThreshold) {
			hasLow = true
		}
		if c == intent.ConfidenceMedium {
			hasMedium = true
		}
	}

	switch {
	case hasLow:
		return "low"
	case hasMedium:
		return "medium"
	default:
		return "high"
	}
}

// FormatTopRecommendation renders a short, tool-facing summary of the
// result's top recommendation.
func FormatTopRecommendation(result ScoringResult) string {
	if len(result.Recommendations) == 0 {
		return fmt.Sprintf("No eligible architectures found for %s (%d excluded).", result.ApplicationName, len(result.Excluded))
	}
	top := result.Recommendations[0]
	return fmt.Sprintf("Top recommendation for %s: %s (%.0f%%) — %s", result.ApplicationName, top.Name, top.LikelihoodScore, top.Description)
}
