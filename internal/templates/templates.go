// Package templates implements the named-template catalog:
// "# DESCRIPTION"/"# RESPONSE TEMPLATE" markdown files, loaded once at
// startup, addressable by name, and convertible into a system message
// with variable substitution applied.
package templates

import (
	"embed"
	"fmt"
	"sort"
	"strings"
)

//go:embed definitions
var definitionsFS embed.FS

const responseTemplateHeader = "# RESPONSE TEMPLATE"
const descriptionHeader = "# DESCRIPTION"

// Template is a single named, described prompt body.
type Template struct {
	Name        string
	Description string
	Prompt      string
}

// SystemMessage formats the template's prompt with the given variable
// substitutions and returns it as a ready-to-inject system message
// body.
func (t Template) SystemMessage(substitute func(string) string) string {
	if substitute == nil {
		return t.Prompt
	}
	return substitute(t.Prompt)
}

// Catalog is the closed, load-once set of templates available for
// selection by the pre-processor's light-tier template-selection call.
type Catalog struct {
	byName map[string]Template
	names  []string
}

// Load reads every *.md file under definitions/ and builds the catalog.
// A malformed template file (missing the RESPONSE TEMPLATE marker) is a
// startup configuration error.
func Load() (*Catalog, error) {
	entries, err := definitionsFS.ReadDir("definitions")
	if err != nil {
		return nil, fmt.Errorf("read template definitions: %w", err)
	}

	c := &Catalog{byName: make(map[string]Template)}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		data, err := definitionsFS.ReadFile("definitions/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", entry.Name(), err)
		}
		tmpl, err := parseTemplate(strings.TrimSuffix(entry.Name(), ".md"), string(data))
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", entry.Name(), err)
		}
		c.byName[tmpl.Name] = tmpl
		c.names = append(c.names, tmpl.Name)
	}
	sort.Strings(c.names)
	return c, nil
}

func parseTemplate(name, text string) (Template, error) {
	text = strings.TrimSpace(text)
	idx := strings.Index(text, responseTemplateHeader)
	if idx < 0 {
		return Template{}, fmt.Errorf("missing %q marker", responseTemplateHeader)
	}
	description := strings.TrimSpace(strings.ReplaceAll(text[:idx], descriptionHeader, ""))
	prompt := responseTemplateHeader + "\n" + strings.TrimSpace(text[idx+len(responseTemplateHeader):])
	return Template{Name: name, Description: description, Prompt: prompt}, nil
}

// Names returns every registered template name, sorted, for use in the
// enumerated list the pre-processor's template-selection prompt needs.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Get looks up a template by name. Returns false (not an error) if
// name is empty or unknown; an empty selection simply means no template
// was chosen this turn.
func (c *Catalog) Get(name string) (Template, bool) {
	if name == "" {
		return Template{}, false
	}
	t, ok := c.byName[name]
	return t, ok
}

// BuildSelectionPrompt lists every template with its description, the
// text injected alongside the trailing message window for the light-tier
// template-selection call.
func (c *Catalog) BuildSelectionPrompt() string {
	var b strings.Builder
	b.WriteString("Available Templates:\n\n")
	for _, name := range c.names {
		t := c.byName[name]
		b.WriteString(fmt.Sprintf("### %s\n%s\n\n", t.Name, t.Description))
	}
	return strings.TrimRight(b.String(), "\n")
}
