package appctx

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/migrationcopilot/architecture-agent/internal/catalog"
)

// ParseRawContextFile tolerates both a single object and a one-element
// list wrapping it.
func ParseRawContextFile(data []byte) (*RawContextFile, error) {
	var single RawContextFile
	if err := json.Unmarshal(data, &single); err == nil && looksLikeObject(data) {
		return &single, nil
	}

	var list []RawContextFile
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse context file: %w", err)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("parse context file: empty list")
	}
	return &list[0], nil
}

func looksLikeObject(data []byte) bool {
	trimmed := strings.TrimSpace(string(data))
	return strings.HasPrefix(trimmed, "{")
}

// technologyKeywords drives runtime detection; database, middleware,
// and messaging detection have their own tables below.
var technologyKeywords = map[string]*regexp.Regexp{
	"java":     regexp.MustCompile(`(?i)\bjava\b`),
	"dotnet":   regexp.MustCompile(`(?i)\.net|dotnet|c#`),
	"python":   regexp.MustCompile(`(?i)\bpython\b`),
	"nodejs":   regexp.MustCompile(`(?i)node\.?js`),
	"php":      regexp.MustCompile(`(?i)\bphp\b`),
}

var versionRe = regexp.MustCompile(`\d+(\.\d+)*`)

var databaseKeywords = regexp.MustCompile(`(?i)sql server|postgres|mysql|oracle|mongodb|cosmos|redis`)
var middlewareKeywords = regexp.MustCompile(`(?i)iis|tomcat|weblogic|websphere|nginx|apache`)
var messagingKeywords = regexp.MustCompile(`(?i)kafka|rabbitmq|service bus|sqs|activemq`)

// platformNameMapping normalizes raw platform identifiers to canonical
// tokens before scoring sees them.
var platformNameMapping = map[string]string{
	"azure kubernetes service": "aks",
	"kubernetes":               "aks",
	"aks":                      "aks",
	"app service":              "app_service",
	"azure app service":        "app_service",
	"container apps":           "container_apps",
	"azure container apps":     "container_apps",
	"azure functions":          "functions",
	"functions":                "functions",
	"virtual machines":         "vm",
	"vm":                       "vm",
}

// platformKeywordTable maps a canonical platform name to the
// service-name keywords that identify an architecture exercising that
// platform. Keyed by the tokens platformNameMapping produces, so the
// eligibility filter and scorer match what Normalize actually emits.
var platformKeywordTable = map[string][]string{
	"aks":            {"aks", "kubernetes"},
	"app_service":    {"app service", "app_service"},
	"container_apps": {"container apps", "container_apps", "aca"},
	"functions":      {"functions"},
	"vm":             {"virtual machine", "vm"},
}

// PlatformServiceKeywords returns the service-name keywords for a
// platform, accepting both raw and canonical names. An unknown platform
// falls back to its own lowercased name as the sole keyword.
func PlatformServiceKeywords(platform string) []string {
	key := strings.ToLower(strings.TrimSpace(platform))
	if mapped, ok := platformNameMapping[key]; ok {
		key = mapped
	}
	if keywords, ok := platformKeywordTable[key]; ok {
		return keywords
	}
	return []string{key}
}

// Normalize converts a raw context file into a typed ApplicationContext.
func Normalize(raw *RawContextFile) ApplicationContext {
	ctx := ApplicationContext{
		UserAnswers: map[string]string{},
	}

	ctx.Overview = normalizeOverview(raw.Overview)
	ctx.Servers = summarizeServers(raw.Servers)
	ctx.Technology = detectTechnology(raw)
	ctx.AppMod = normalizeAppMod(raw.AppMod)
	ctx.ApprovedServices = ApprovedServices{Mappings: mergeApprovedServices(raw.ApprovedServices)}

	for k, v := range raw.UserAnswers {
		ctx.UserAnswers[k] = v
	}

	return ctx
}

func normalizeOverview(raw RawOverview) AppOverview {
	ov := AppOverview{
		Name:                    raw.Name,
		AppType:                 raw.AppType,
		BusinessCriticality:     BusinessCriticality(strings.ToLower(raw.BusinessCriticality)),
		AvailabilityRequirement: raw.AvailabilityRequirement,
		ComplianceRequirements:  raw.ComplianceRequirements,
	}
	if ov.BusinessCriticality == "" {
		ov.BusinessCriticality = CriticalityMedium
	}

	if t := catalog.Treatment(strings.ToLower(strings.TrimSpace(raw.DeclaredTreatment))); t.Valid() {
		ov.DeclaredTreatment = &t
	}
	if tc := catalog.TimeCategory(strings.ToLower(strings.TrimSpace(raw.DeclaredTimeCategory))); tc != "" {
		switch tc {
		case catalog.TimeCategoryShortTerm, catalog.TimeCategoryMediumTerm, catalog.TimeCategoryLongTerm:
			ov.DeclaredTimeCategory = &tc
		}
	}
	return ov
}

func summarizeServers(servers []RawServer) ServerSummary {
	summary := ServerSummary{
		ServerCount:             len(servers),
		Servers:                 servers,
		OSMix:                   map[string]int{},
		VMReadinessDistribution: map[string]int{},
	}

	envSet := map[string]bool{}
	var totalCPU, totalMem float64
	for _, s := range servers {
		osLower := strings.ToLower(s.OS)
		switch {
		case strings.Contains(osLower, "windows"):
			summary.OSMix["windows"]++
		case strings.Contains(osLower, "linux"):
			summary.OSMix["linux"]++
		default:
			summary.OSMix["other"]++
		}
		if s.Environment != "" {
			envSet[s.Environment] = true
		}
		if s.VMReadiness != "" {
			summary.VMReadinessDistribution[s.VMReadiness]++
		}
		totalCPU += s.CPUPercent
		totalMem += s.MemPercent
		summary.TotalCores += s.Cores
		summary.TotalMemoryGB += s.MemoryGB
	}
	for env := range envSet {
		summary.EnvironmentsPresent = append(summary.EnvironmentsPresent, env)
	}

	if n := len(servers); n > 0 {
		summary.AvgCPU = totalCPU / float64(n)
		summary.AvgMem = totalMem / float64(n)
	}

	// Utilization profile from the max of mean CPU and mean memory
	// usage: <30% low, <70% medium, else high.
	maxUtil := summary.AvgCPU
	if summary.AvgMem > maxUtil {
		maxUtil = summary.AvgMem
	}
	switch {
	case maxUtil < 30:
		summary.UtilizationProfile = UtilizationLow
	case maxUtil < 70:
		summary.UtilizationProfile = UtilizationMedium
	default:
		summary.UtilizationProfile = UtilizationHigh
	}

	summary.DependencyComplexity = dependencyComplexity(summary)
	return summary
}

// dependencyComplexity: 1 server -> simple; <=3 servers single-OS ->
// simple; <=5 -> moderate; else complex.
func dependencyComplexity(s ServerSummary) string {
	n := s.ServerCount
	if n <= 1 {
		return "simple"
	}
	singleOS := len(nonZeroKeys(s.OSMix)) <= 1
	if n <= 3 && singleOS {
		return "simple"
	}
	if n <= 5 {
		return "moderate"
	}
	return "complex"
}

func nonZeroKeys(m map[string]int) []string {
	var keys []string
	for k, v := range m {
		if v > 0 {
			keys = append(keys, k)
		}
	}
	return keys
}

func detectTechnology(raw *RawContextFile) DetectedTechnology {
	tech := DetectedTechnology{
		Frameworks:    raw.RawTechnology.Frameworks,
		Containerized: raw.RawTechnology.Containerized,
		HasCICD:       raw.RawTechnology.HasCICD,
	}

	text := raw.RawTechnology.RawText
	if raw.RawTechnology.PrimaryRuntime != "" {
		text = raw.RawTechnology.PrimaryRuntime + " " + text
	}
	for _, s := range raw.Servers {
		text += " " + s.OS
	}

	if raw.RawTechnology.PrimaryRuntime != "" {
		tech.PrimaryRuntime = raw.RawTechnology.PrimaryRuntime
	} else {
		for name, re := range technologyKeywords {
			if re.MatchString(text) {
				tech.PrimaryRuntime = name
				break
			}
		}
	}
	if m := versionRe.FindString(text); m != "" {
		tech.RuntimeVersion = m
	}

	tech.DatabasePresent = databaseKeywords.MatchString(text)
	tech.MiddlewarePresent = middlewareKeywords.MatchString(text)
	tech.MessagingPresent = messagingKeywords.MatchString(text)

	for _, s := range raw.Servers {
		osLower := strings.ToLower(s.OS)
		if strings.Contains(osLower, "windows") {
			tech.IsWindows = true
		}
		if strings.Contains(osLower, "linux") {
			tech.IsLinux = true
		}
	}
	return tech
}

func normalizeAppMod(raw *AppModResults) *AppModResults {
	if raw == nil {
		return nil
	}
	normalized := *raw
	normalized.PlatformCompatibility = make([]PlatformCompatibility, len(raw.PlatformCompatibility))
	for i, pc := range raw.PlatformCompatibility {
		key := strings.ToLower(strings.TrimSpace(pc.Platform))
		if mapped, ok := platformNameMapping[key]; ok {
			pc.Platform = mapped
		}
		normalized.PlatformCompatibility[i] = pc
	}
	return &normalized
}

// mergeApprovedServices returns a fresh copy of a technology->service
// dictionary. It copies a single source map; folding further mappings
// in with last-write-wins is done by (*ApplicationContext).MergeApprovedServices.
func mergeApprovedServices(src map[string]string) map[string]string {
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// MergeApprovedServices folds additional mappings into ctx, overwriting
// existing keys (last write wins).
func (ctx *ApplicationContext) MergeApprovedServices(additional map[string]string) {
	if ctx.ApprovedServices.Mappings == nil {
		ctx.ApprovedServices.Mappings = map[string]string{}
	}
	for k, v := range additional {
		ctx.ApprovedServices.Mappings[k] = v
	}
}
