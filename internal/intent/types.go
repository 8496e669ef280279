// Package intent derives the ten migration-intent signals, each with
// an explicit value, confidence, evidence source, and reasoning.
package intent

import "github.com/migrationcopilot/architecture-agent/internal/catalog"

// Confidence is a closed enum.
type Confidence string

const (
	ConfidenceHigh    Confidence = "high"
	ConfidenceMedium  Confidence = "medium"
	ConfidenceLow     Confidence = "low"
	ConfidenceUnknown Confidence = "unknown"
)

// ConfidencePenalty is the per-signal confidence_penalty table used by
// the scorer.
var ConfidencePenalty = map[Confidence]float64{
	ConfidenceHigh:    0,
	ConfidenceMedium:  0.05,
	ConfidenceLow:     0.15,
	ConfidenceUnknown: 0.25,
}

// rank orders confidence from least to most certain, used by the
// question generator's question_threshold comparison.
var confidenceRank = map[Confidence]int{
	ConfidenceUnknown: 0,
	ConfidenceLow:     1,
	ConfidenceMedium:  2,
	ConfidenceHigh:    3,
}

// AtOrBelow reports whether c is at or below threshold in certainty.
func (c Confidence) AtOrBelow(threshold Confidence) bool {
	return confidenceRank[c] <= confidenceRank[threshold]
}

// DerivedSignal is a single inferred dimension: value, confidence,
// evidence source token, and a one-sentence human explanation.
type DerivedSignal[T any] struct {
	Value      T          `json:"value"`
	Confidence Confidence `json:"confidence"`
	Source     string     `json:"source"`
	Reasoning  string     `json:"reasoning"`
}

func signal[T any](value T, confidence Confidence, source, reasoning string) DerivedSignal[T] {
	return DerivedSignal[T]{Value: value, Confidence: confidence, Source: source, Reasoning: reasoning}
}

// DerivedIntent bundles the ten derived signals. Every signal is
// always populated.
type DerivedIntent struct {
	Treatment                   DerivedSignal[catalog.Treatment]      `json:"treatment"`
	TimeCategory                DerivedSignal[catalog.TimeCategory]   `json:"time_category"`
	LikelyRuntimeModel          DerivedSignal[string]                 `json:"likely_runtime_model"`
	ModernizationDepthFeasible  DerivedSignal[bool]                   `json:"modernization_depth_feasible"`
	CloudNativeFeasibility      DerivedSignal[string]                 `json:"cloud_native_feasibility"`
	OperationalMaturityEstimate DerivedSignal[catalog.OperatingModel] `json:"operational_maturity_estimate"`
	AvailabilityRequirement     DerivedSignal[string]                 `json:"availability_requirement"`
	SecurityRequirement         DerivedSignal[catalog.SecurityLevel]  `json:"security_requirement"`
	CostPosture                 DerivedSignal[string]                 `json:"cost_posture"`
	NetworkExposure             DerivedSignal[string]                 `json:"network_exposure"`
}

// Clone returns a deep-enough copy for apply_answers to mutate safely
// (DerivedSignal values are themselves immutable value types).
func (d DerivedIntent) Clone() DerivedIntent { return d }
