// Package personas defines the closed set of agent personalities: a
// default generalist (core) plus five specialists, each bound to a
// prompt-resolver section directory and a one-line description used in
// the delegation brief.
package personas

import "strings"

// ID is a stable persona identifier. It doubles as the directory name
// the prompt resolver (internal/prompts) looks sections up under, so
// renaming a persona here means renaming its section directory too.
type ID string

const (
	Core              ID = "core"
	ProjectManager    ID = "project_manager"
	SystemArchitect   ID = "system_architect"
	FinancialPlanner  ID = "financial_planner"
	NetworkSpecialist ID = "network_specialist"
	MigrationEngineer ID = "migration_engineer"
)

// Persona binds an ID to the metadata the delegation tool and the
// transport layer need: a display label and a one-line description. It
// carries no toolset binding; every persona sees the same tool registry.
type Persona struct {
	ID          ID
	Label       string
	Description string
}

// All is the closed, ordered persona catalog. Core is always first and
// is the delegation fallback.
var All = []Persona{
	{ID: Core, Label: "core", Description: "Default generalist agent for cross-cutting questions that don't fit a specialist."},
	{ID: ProjectManager, Label: "project manager", Description: "Project management and coordination specialist for migration timelines and staffing."},
	{ID: SystemArchitect, Label: "system architect", Description: "Technical architecture and design expert for Azure reference architecture selection."},
	{ID: FinancialPlanner, Label: "financial planner", Description: "Cost optimization and financial analysis specialist for budget fit and spend tradeoffs."},
	{ID: NetworkSpecialist, Label: "network specialist", Description: "Network infrastructure and connectivity specialist for exposure, VPN, and peering questions."},
	{ID: MigrationEngineer, Label: "migration engineer", Description: "Migration execution and technical implementation specialist for rehost/refactor mechanics."},
}

var byID = func() map[ID]Persona {
	m := make(map[ID]Persona, len(All))
	for _, p := range All {
		m[p.ID] = p
	}
	return m
}()

// Lookup returns the persona for id, or false if id is not a member of
// the closed set.
func Lookup(id ID) (Persona, bool) {
	p, ok := byID[id]
	return p, ok
}

// Valid reports whether id names a known persona.
func Valid(id ID) bool {
	_, ok := byID[id]
	return ok
}

// Brief renders the delegation prompt: every persona's label and
// description, plus the fallback instruction.
func Brief() string {
	var b strings.Builder
	b.WriteString("The available agents are:\n")
	for _, p := range All {
		b.WriteString("- **")
		b.WriteString(p.Label)
		b.WriteString("**: ")
		b.WriteString(p.Description)
		b.WriteString("\n")
	}
	b.WriteString("Choose the agent that is best suited to answer the user's question based on their description. ")
	b.WriteString("If you are unsure, choose the core agent.")
	return b.String()
}
