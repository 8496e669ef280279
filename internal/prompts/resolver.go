// Package prompts implements the provider-conditional prompt resolver:
// a lookup over {persona}/{provider} -> {persona} -> core/{provider} ->
// core, concatenating six named sections (ROLE, RESPONSIBILITIES,
// TOOLS, DATA, STYLE, FINAL_NOTE) with missing sections treated as
// empty, plus a small named-variable substitution pass. The section
// library ships inside the binary via embed.FS.
package prompts

import (
	"embed"
	"strings"
)

//go:embed sections
var sectionsFS embed.FS

// sectionNames is the fixed concatenation order.
var sectionNames = []string{"ROLE", "RESPONSIBILITIES", "TOOLS", "DATA", "STYLE", "FINAL_NOTE"}

const coreFolder = "core"

// Variables carries the named substitutions applied to resolved
// instructions and injected templates.
type Variables struct {
	MigrationTarget string
	DataSchema      string
}

// Resolve builds the full instruction text for a persona/provider pair.
// Missing sections are treated as empty, never an error.
func Resolve(persona, provider string, vars Variables) string {
	var sections []string
	for _, name := range sectionNames {
		if text, ok := lookupSection(persona, provider, name); ok {
			sections = append(sections, text)
		}
	}
	instructions := strings.TrimSpace(strings.Join(sections, "\n\n"))
	return substitute(instructions, vars)
}

// lookupSection searches the four candidate directories in priority
// order and returns the first file found.
func lookupSection(persona, provider, section string) (string, bool) {
	candidates := []string{
		path(persona, provider, section),
		path(persona, "", section),
		path(coreFolder, provider, section),
		path(coreFolder, "", section),
	}
	for _, p := range candidates {
		if p == "" {
			continue
		}
		data, err := sectionsFS.ReadFile(p)
		if err == nil {
			return strings.TrimSpace(string(data)), true
		}
	}
	return "", false
}

func path(persona, provider, section string) string {
	if persona == "" {
		return ""
	}
	parts := []string{"sections", persona}
	if provider != "" {
		parts = append(parts, provider)
	}
	parts = append(parts, section+".md")
	return strings.Join(parts, "/")
}

func substitute(text string, vars Variables) string {
	text = strings.ReplaceAll(text, "{{MIGRATION_TARGET}}", vars.MigrationTarget)
	text = strings.ReplaceAll(text, "{{DATA_SCHEMA}}", vars.DataSchema)
	return text
}
