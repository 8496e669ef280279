// Package catalog loads and validates the versioned architecture
// catalog consumed by the eligibility filter and scorer.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/migrationcopilot/architecture-agent/core"
)

// Closed enumerations used across the catalog and scoring pipeline.

type Treatment string

const (
	TreatmentRehost     Treatment = "rehost"
	TreatmentReplatform Treatment = "replatform"
	TreatmentRefactor   Treatment = "refactor"
	TreatmentRebuild    Treatment = "rebuild"
	TreatmentReplace    Treatment = "replace"
	TreatmentRetain     Treatment = "retain"
	TreatmentTolerate   Treatment = "tolerate"
	TreatmentRetire     Treatment = "retire"
)

var AllTreatments = []Treatment{
	TreatmentRehost, TreatmentReplatform, TreatmentRefactor, TreatmentRebuild,
	TreatmentReplace, TreatmentRetain, TreatmentTolerate, TreatmentRetire,
}

func (t Treatment) Valid() bool {
	for _, v := range AllTreatments {
		if v == t {
			return true
		}
	}
	return false
}

type TimeCategory string

const (
	TimeCategoryShortTerm  TimeCategory = "short_term"
	TimeCategoryMediumTerm TimeCategory = "medium_term"
	TimeCategoryLongTerm   TimeCategory = "long_term"
)

type SecurityLevel string

const (
	SecurityBasic           SecurityLevel = "basic"
	SecurityEnterprise      SecurityLevel = "enterprise"
	SecurityRegulated       SecurityLevel = "regulated"
	SecurityHighlyRegulated SecurityLevel = "highly_regulated"
)

// securityOrder is the ordered hierarchy used by the eligibility filter's
// security gate.
var securityOrder = map[SecurityLevel]int{
	SecurityBasic:           0,
	SecurityEnterprise:      1,
	SecurityRegulated:       2,
	SecurityHighlyRegulated: 3,
}

// Rank returns the hierarchy position of a security level, or -1 if unknown.
func (s SecurityLevel) Rank() int {
	if r, ok := securityOrder[s]; ok {
		return r
	}
	return -1
}

type OperatingModel string

const (
	OperatingTraditionalIT OperatingModel = "traditional_it"
	OperatingTransitional  OperatingModel = "transitional"
	OperatingDevOps        OperatingModel = "devops"
	OperatingSRE           OperatingModel = "sre"
)

var operatingOrder = map[OperatingModel]int{
	OperatingTraditionalIT: 0,
	OperatingTransitional:  1,
	OperatingDevOps:        2,
	OperatingSRE:           3,
}

// Rank returns the hierarchy position of an operating model, or -1 if unknown.
func (o OperatingModel) Rank() int {
	if r, ok := operatingOrder[o]; ok {
		return r
	}
	return -1
}

type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

var complexityOrder = map[Complexity]int{
	ComplexityLow:    0,
	ComplexityMedium: 1,
	ComplexityHigh:   2,
}

func (c Complexity) Rank() int {
	if r, ok := complexityOrder[c]; ok {
		return r
	}
	return 1 // unknown defaults to medium tolerance
}

type NotSuitableReason string

const (
	NotSuitableSingleVMWorkloads  NotSuitableReason = "single_vm_workloads"
	NotSuitableLegacyWindows      NotSuitableReason = "legacy_windows_only"
	NotSuitableNoContainerSupport NotSuitableReason = "no_container_support"
	NotSuitableHighComplianceOnly NotSuitableReason = "high_compliance_only"
	NotSuitableLowBudget          NotSuitableReason = "low_budget"
)

type CatalogQuality string

const (
	QualityCurated     CatalogQuality = "curated"
	QualityAIEnriched  CatalogQuality = "ai_enriched"
	QualityAISuggested CatalogQuality = "ai_suggested"
	QualityExampleOnly CatalogQuality = "example_only"
)

// QualityWeight scales a final score by the provenance of the entry.
var QualityWeight = map[CatalogQuality]float64{
	QualityCurated:     1.0,
	QualityAIEnriched:  0.95,
	QualityAISuggested: 0.90,
	QualityExampleOnly: 0.85,
}

func (q CatalogQuality) Valid() bool {
	_, ok := QualityWeight[q]
	return ok
}

// ClassificationMeta carries the confidence/source provenance for every
// classification field on an ArchitectureEntry.
type ClassificationMeta struct {
	Confidence string `json:"confidence"`
	Source     string `json:"source"`
}

// ArchitectureEntry is a single catalog item.
type ArchitectureEntry struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	PatternName string   `json:"pattern_name"`
	Description string   `json:"description"`
	CatalogURL  string   `json:"catalog_url"`
	DiagramRefs []string `json:"diagram_refs,omitempty"`

	Family                  string             `json:"family"`
	FamilyMeta              ClassificationMeta `json:"family_meta"`
	WorkloadDomain          string             `json:"workload_domain"`
	WorkloadDomainMeta      ClassificationMeta `json:"workload_domain_meta"`
	ExpectedRuntimeModels   []string           `json:"expected_runtime_models"`
	ExpectedCharacteristics []string           `json:"expected_characteristics"`

	SupportedTreatments     []Treatment    `json:"supported_treatments"`
	SupportedTimeCategories []TimeCategory `json:"supported_time_categories"`

	AvailabilityModelsSupported []string       `json:"availability_models_supported"`
	SecurityLevel               SecurityLevel  `json:"security_level"`
	RequiredOperatingModel      OperatingModel `json:"required_operating_model"`

	CostProfile string `json:"cost_profile"` // cost_minimized|balanced|scale_optimized|innovation_first

	ImplementationComplexity Complexity `json:"implementation_complexity"`
	OperationalComplexity    Complexity `json:"operational_complexity"`

	NotSuitableFor []NotSuitableReason `json:"not_suitable_for"`

	CoreServices       []string `json:"core_services"`
	SupportingServices []string `json:"supporting_services"`
	BrowseTags         []string `json:"browse_tags"`

	CatalogQuality CatalogQuality `json:"catalog_quality"`
}

// ArchitectureCatalog is the top-level versioned catalog. The JSON file
// format accepts either {"architectures": [...]} or a bare
// list-of-objects document.
type ArchitectureCatalog struct {
	Version      string              `json:"version"`
	GeneratedAt  time.Time           `json:"generated_at"`
	Architectures []ArchitectureEntry `json:"architectures"`
}

// Load reads, parses, and validates a catalog file from path. Any
// validation failure aborts with core.InvalidCatalog.
func Load(path string) (*ArchitectureCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &core.InvalidCatalog{Reason: fmt.Sprintf("read %s: %v", path, err)}
	}
	return Parse(data)
}

// Parse validates raw JSON bytes into an ArchitectureCatalog.
func Parse(data []byte) (*ArchitectureCatalog, error) {
	var cat ArchitectureCatalog
	if err := json.Unmarshal(data, &cat); err != nil {
		// Fall back to a bare list-of-entries document.
		var entries []ArchitectureEntry
		if err2 := json.Unmarshal(data, &entries); err2 != nil {
			return nil, &core.InvalidCatalog{Reason: fmt.Sprintf("parse catalog JSON: %v", err)}
		}
		cat = ArchitectureCatalog{Architectures: entries}
	}

	if err := Validate(&cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

// Validate checks catalog invariants: unique ids, valid closed enums,
// valid catalog_quality.
func Validate(cat *ArchitectureCatalog) error {
	seen := make(map[string]bool, len(cat.Architectures))
	for _, e := range cat.Architectures {
		if e.ID == "" {
			return &core.InvalidCatalog{Reason: "entry missing id"}
		}
		if seen[e.ID] {
			return &core.InvalidCatalog{Reason: fmt.Sprintf("duplicate entry id %q", e.ID)}
		}
		seen[e.ID] = true

		if !e.CatalogQuality.Valid() {
			return &core.InvalidCatalog{Reason: fmt.Sprintf("entry %q: invalid catalog_quality %q", e.ID, e.CatalogQuality)}
		}
		for _, t := range e.SupportedTreatments {
			if !t.Valid() {
				return &core.InvalidCatalog{Reason: fmt.Sprintf("entry %q: invalid treatment %q", e.ID, t)}
			}
		}
		if e.SecurityLevel != "" && e.SecurityLevel.Rank() < 0 {
			return &core.InvalidCatalog{Reason: fmt.Sprintf("entry %q: invalid security level %q", e.ID, e.SecurityLevel)}
		}
		if e.RequiredOperatingModel != "" && e.RequiredOperatingModel.Rank() < 0 {
			return &core.InvalidCatalog{Reason: fmt.Sprintf("entry %q: invalid operating model %q", e.ID, e.RequiredOperatingModel)}
		}
	}
	return nil
}
