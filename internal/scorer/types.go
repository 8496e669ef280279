// Package scorer scores every eligible catalog entry across ten
// weighted dimensions and computes a final likelihood score with a
// confidence-penalty adjustment.
package scorer

import "github.com/migrationcopilot/architecture-agent/internal/catalog"

// ScoringDimension is the per-dimension scoring record.
type ScoringDimension struct {
	Dimension     string  `json:"dimension"`
	Weight        float64 `json:"weight"`
	RawScore      float64 `json:"raw_score"`
	WeightedScore float64 `json:"weighted_score"`
	Reasoning     string  `json:"reasoning"`
	IsHardGate    bool    `json:"is_hard_gate"`
	PassedGate    bool    `json:"passed_gate"`
}

// MatchedDimension is a short human-readable note on a well-fitting
// dimension (raw_score at or above the "matched" threshold).
type MatchedDimension struct {
	Dimension string `json:"dimension"`
	Reason    string `json:"reason"`
}

// MismatchedDimension is the converse: a dimension that struggled.
type MismatchedDimension struct {
	Dimension string `json:"dimension"`
	Reason    string `json:"reason"`
}

// AssumptionMade records an inference the scorer relied on because a
// signal was not supplied with high confidence.
type AssumptionMade struct {
	Dimension  string `json:"dimension"`
	Assumption string `json:"assumption"`
}

// ArchitectureRecommendation is a fully scored catalog entry.
type ArchitectureRecommendation struct {
	ArchitectureID       string                 `json:"architecture_id"`
	Name                 string                 `json:"name"`
	Description          string                 `json:"description"`
	CatalogURL           string                 `json:"catalog_url"`
	DiagramRefs          []string               `json:"diagram_refs,omitempty"`
	CatalogQuality       catalog.CatalogQuality `json:"catalog_quality"`
	LikelihoodScore      float64                `json:"likelihood_score"`
	ConfidencePenalty    float64                `json:"confidence_penalty"`
	Dimensions           []ScoringDimension     `json:"dimensions"`
	MatchedDimensions    []MatchedDimension     `json:"matched_dimensions"`
	MismatchedDimensions []MismatchedDimension  `json:"mismatched_dimensions"`
	Assumptions          []AssumptionMade       `json:"assumptions"`
	CoreServices         []string               `json:"core_services"`
	SupportingServices   []string               `json:"supporting_services"`
}

// matchedThreshold is the raw-score cutoff at or above which a dimension
// is reported as matched; mismatchedThreshold the cutoff at or below
// which it is reported as mismatched.
const (
	matchedThreshold    = 0.7
	mismatchedThreshold = 0.4
)

// dimensionWeight is the default weight table; the weights sum to 1.00.
var dimensionWeight = map[string]float64{
	"treatment_alignment":          0.20,
	"runtime_model_compatibility":  0.10,
	"platform_compatibility":       0.15,
	"app_mod_recommended":          0.10,
	"service_overlap":              0.10,
	"browse_tag_overlap":           0.05,
	"availability_alignment":       0.10,
	"operating_model_fit":          0.08,
	"complexity_tolerance":         0.07,
	"cost_posture_alignment":       0.05,
}
