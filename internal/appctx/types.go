// Package appctx converts a raw application context file into the
// typed ApplicationContext the scoring pipeline consumes.
package appctx

import "github.com/migrationcopilot/architecture-agent/internal/catalog"

// BusinessCriticality is a closed enum.
type BusinessCriticality string

const (
	CriticalityLow             BusinessCriticality = "low"
	CriticalityMedium          BusinessCriticality = "medium"
	CriticalityHigh            BusinessCriticality = "high"
	CriticalityMissionCritical BusinessCriticality = "mission_critical"
)

// UtilizationProfile is a closed enum.
type UtilizationProfile string

const (
	UtilizationLow    UtilizationProfile = "low"
	UtilizationMedium UtilizationProfile = "medium"
	UtilizationHigh   UtilizationProfile = "high"
)

// PlatformStatus is a closed enum.
type PlatformStatus string

const (
	PlatformFullySupported        PlatformStatus = "fully_supported"
	PlatformSupported             PlatformStatus = "supported"
	PlatformSupportedWithChanges  PlatformStatus = "supported_with_changes"
	PlatformSupportedWithRefactor PlatformStatus = "supported_with_refactor"
	PlatformNotSupported          PlatformStatus = "not_supported"
)

// AppOverview is the top-level application summary.
type AppOverview struct {
	Name                    string               `json:"name"`
	AppType                 string               `json:"app_type,omitempty"`
	BusinessCriticality     BusinessCriticality  `json:"business_criticality"`
	DeclaredTreatment       *catalog.Treatment   `json:"declared_treatment,omitempty"`
	DeclaredTimeCategory    *catalog.TimeCategory `json:"declared_time_category,omitempty"`
	AvailabilityRequirement string               `json:"availability_requirement,omitempty"`
	ComplianceRequirements  []string             `json:"compliance_requirements,omitempty"`
}

// RawServer is one entry of the raw server inventory list.
type RawServer struct {
	Name              string  `json:"name"`
	OS                string  `json:"os"`
	Environment       string  `json:"environment,omitempty"`
	CPUPercent        float64 `json:"cpu_percent"`
	MemPercent        float64 `json:"mem_percent"`
	Cores             int     `json:"cores"`
	MemoryGB          float64 `json:"memory_gb"`
	VMReadiness       string  `json:"vm_readiness,omitempty"`
	MigrationStrategy string  `json:"migration_strategy,omitempty"`
}

// ServerSummary is the aggregated view over the raw server inventory
//, computed by Normalize.
type ServerSummary struct {
	ServerCount             int                `json:"server_count"`
	Servers                 []RawServer        `json:"servers"`
	EnvironmentsPresent     []string           `json:"environments_present"`
	OSMix                   map[string]int     `json:"os_mix"` // "windows"/"linux"/"other" -> count
	VMReadinessDistribution map[string]int     `json:"vm_readiness_distribution"`
	UtilizationProfile      UtilizationProfile `json:"utilization_profile"`
	AvgCPU                  float64            `json:"avg_cpu"`
	AvgMem                  float64            `json:"avg_mem"`
	TotalCores              int                `json:"total_cores"`
	TotalMemoryGB           float64            `json:"total_memory_gb"`
	DependencyComplexity    string             `json:"dependency_complexity"` // simple|moderate|complex
}

// DetectedTechnology summarizes the stack detection results.
type DetectedTechnology struct {
	PrimaryRuntime    string   `json:"primary_runtime,omitempty"`
	RuntimeVersion    string   `json:"runtime_version,omitempty"`
	Frameworks        []string `json:"frameworks,omitempty"`
	DatabasePresent   bool     `json:"database_present"`
	MiddlewarePresent bool     `json:"middleware_present"`
	MessagingPresent  bool     `json:"messaging_present"`
	Containerized     bool     `json:"containerized"`
	HasCICD           bool     `json:"has_ci_cd"`
	IsWindows         bool     `json:"is_windows"`
	IsLinux           bool     `json:"is_linux"`
}

// PlatformCompatibility is one entry of AppModResults.PlatformCompatibility.
type PlatformCompatibility struct {
	Platform string         `json:"platform"`
	Status   PlatformStatus `json:"status"`
}

// AppModResults is the optional App Mod modernization assessment.
type AppModResults struct {
	ContainerReady        *bool                   `json:"container_ready,omitempty"`
	ModernizationFeasible *bool                   `json:"modernization_feasible,omitempty"`
	PlatformCompatibility []PlatformCompatibility `json:"platform_compatibility,omitempty"`
	RecommendedTargets    []string                `json:"recommended_targets,omitempty"`
	ExplicitBlockers      []string                `json:"explicit_blockers,omitempty"`
	CriticalFindings      []string                `json:"critical_findings,omitempty"`
	HighSeverityFindings  []string                `json:"high_severity_findings,omitempty"`
}

// ApprovedServices maps a technology name to the Azure service approved
// to replace it.
type ApprovedServices struct {
	Mappings map[string]string `json:"mappings"`
}

// ApplicationContext is the normalized form Normalize produces.
type ApplicationContext struct {
	Overview         AppOverview        `json:"overview"`
	Servers          ServerSummary      `json:"servers"`
	Technology       DetectedTechnology `json:"technology"`
	AppMod           *AppModResults     `json:"app_mod,omitempty"`
	ApprovedServices ApprovedServices   `json:"approved_services"`
	UserAnswers      map[string]string  `json:"user_answers"`
}

// RawContextFile is the as-received document: the raw
// server list plus whatever detection/app-mod payload the upstream
// producer emitted. Unknown fields are ignored by encoding/json by
// default, matching the Context file format contract.
type RawContextFile struct {
	Overview         RawOverview       `json:"overview"`
	Servers          []RawServer       `json:"servers"`
	RawTechnology    RawTechnology     `json:"technology"`
	AppMod           *AppModResults    `json:"app_mod,omitempty"`
	ApprovedServices map[string]string `json:"approved_services,omitempty"`
	UserAnswers      map[string]string `json:"user_answers,omitempty"`
}

// RawOverview mirrors AppOverview but accepts a free-text declared
// treatment string, classified by Normalize against the closed set.
type RawOverview struct {
	Name                    string   `json:"name"`
	AppType                 string   `json:"app_type,omitempty"`
	BusinessCriticality     string   `json:"business_criticality,omitempty"`
	DeclaredTreatment       string   `json:"declared_treatment,omitempty"`
	DeclaredTimeCategory    string   `json:"declared_time_category,omitempty"`
	AvailabilityRequirement string   `json:"availability_requirement,omitempty"`
	ComplianceRequirements  []string `json:"compliance_requirements,omitempty"`
}

// RawTechnology is the raw, pre-detection technology hint payload; most
// detection happens from free-text server/app fields via Normalize's
// keyword table, but explicit hints here short-circuit detection.
type RawTechnology struct {
	PrimaryRuntime string   `json:"primary_runtime,omitempty"`
	Frameworks     []string `json:"frameworks,omitempty"`
	RawText        string   `json:"raw_text,omitempty"` // free text scanned by the keyword table
	Containerized  bool     `json:"containerized,omitempty"`
	HasCICD        bool     `json:"has_ci_cd,omitempty"`
}
