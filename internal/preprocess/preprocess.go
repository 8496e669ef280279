// Package preprocess runs the per-turn pre-processing: request
// parsing, the pre-LLM quota check, and the parallel
// template-selection/persona-delegation fan-out whose result is
// committed to AgentState before the agent stream starts.
package preprocess

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/migrationcopilot/architecture-agent/core"
	"github.com/migrationcopilot/architecture-agent/internal/llmtransport"
	"github.com/migrationcopilot/architecture-agent/internal/personas"
	"github.com/migrationcopilot/architecture-agent/internal/templates"
	"github.com/migrationcopilot/architecture-agent/internal/threadstate"
	"github.com/migrationcopilot/architecture-agent/internal/usage"
)

// RunInput is the parsed request body for a single turn:
// thread_id, optional user_id, and ordered messages.
type RunInput struct {
	ThreadID string
	UserID   string
	Messages []llmtransport.Message
}

// Options configures a single pre-processing call.
type Options struct {
	ForcedPersona   personas.ID // empty when not forced
	QuotaAggregator *usage.Aggregator
	QuotaEnforced   bool
	Provider        llmtransport.Provider
	Templates       *templates.Catalog
}

// Result is what the pre-processor hands back to the runner: the
// chosen template (if any) and the persona now committed to
// AgentState, plus timing for observability.
type Result struct {
	Template         *templates.Template
	Persona          personas.ID
	TemplateDuration time.Duration
	PersonaDuration  time.Duration
	GatherDuration   time.Duration
}

// Validate checks the minimal request shape, returning *core.InvalidRequest
// on failure.
func (in RunInput) Validate() error {
	if in.ThreadID == "" {
		return &core.InvalidRequest{Reason: "thread_id is required"}
	}
	return nil
}

// Run executes the pre-processor for one turn: quota check, then
// parallel template-selection and persona-delegation, then commits the
// chosen persona to deps.State before returning, so the stream's
// initial snapshot always reflects the post-delegation persona.
func Run(ctx context.Context, deps *threadstate.AgentDeps, in RunInput, opts Options) (Result, error) {
	if err := in.Validate(); err != nil {
		return Result{}, err
	}

	if in.UserID != "" && opts.QuotaEnforced && opts.QuotaAggregator != nil {
		if err := opts.QuotaAggregator.CheckQuota(in.UserID, in.ThreadID); err != nil {
			return Result{}, err
		}
	}

	var (
		chosenTemplate   *templates.Template
		chosenPersona    personas.ID
		templateDuration time.Duration
		personaDuration  time.Duration
	)

	gatherStart := time.Now()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		start := time.Now()
		defer func() { templateDuration = time.Since(start) }()
		t, err := selectTemplate(gctx, opts.Provider, opts.Templates, in.Messages)
		if err != nil {
			return err
		}
		chosenTemplate = t
		return nil
	})

	g.Go(func() error {
		start := time.Now()
		defer func() { personaDuration = time.Since(start) }()
		p, err := selectPersona(gctx, deps, opts, in.Messages)
		if err != nil {
			return err
		}
		chosenPersona = p
		return nil
	})

	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	gatherDuration := time.Since(gatherStart)

	deps.State.SetPersona(string(chosenPersona))

	return Result{
		Template:         chosenTemplate,
		Persona:          chosenPersona,
		TemplateDuration: templateDuration,
		PersonaDuration:  personaDuration,
		GatherDuration:   gatherDuration,
	}, nil
}

// trailingTextWindow returns the last five user/assistant turns
// containing textual content, oldest first.
func trailingTextWindow(messages []llmtransport.Message) []llmtransport.Message {
	var textual []llmtransport.Message
	for _, m := range messages {
		if (m.Role == "user" || m.Role == "assistant") && m.Content != "" {
			textual = append(textual, m)
		}
	}
	if len(textual) > 5 {
		textual = textual[len(textual)-5:]
	}
	return textual
}

func selectTemplate(ctx context.Context, provider llmtransport.Provider, catalog *templates.Catalog, messages []llmtransport.Message) (*templates.Template, error) {
	if provider == nil || catalog == nil {
		return nil, nil
	}
	window := trailingTextWindow(messages)
	if len(window) == 0 {
		return nil, nil
	}

	req := llmtransport.CompletionRequest{
		Tier:         llmtransport.TierLight,
		SystemPrompt: "Choose the best-fitting template name from the list, or \"null\" if none fits.\n\n" + catalog.BuildSelectionPrompt(),
		Messages:     window,
	}
	resp, err := provider.Complete(ctx, req)
	if err != nil {
		return nil, &core.TransportFailure{Component: "template_selection", Cause: err}
	}

	name := resp.Text
	if name == "" || name == "null" {
		return nil, nil
	}
	if t, ok := catalog.Get(name); ok {
		return &t, nil
	}
	return nil, nil
}

func selectPersona(ctx context.Context, deps *threadstate.AgentDeps, opts Options, messages []llmtransport.Message) (personas.ID, error) {
	if opts.ForcedPersona != "" {
		return opts.ForcedPersona, nil
	}
	if !deps.State.AutoDelegate() {
		return personas.ID(deps.State.Persona()), nil
	}
	if opts.Provider == nil {
		return personas.ID(deps.State.Persona()), nil
	}

	lastUser := lastUserMessage(messages)
	if lastUser == "" {
		return personas.ID(deps.State.Persona()), nil
	}

	req := llmtransport.CompletionRequest{
		Tier:         llmtransport.TierLight,
		SystemPrompt: personas.Brief(),
		Messages:     []llmtransport.Message{{Role: "user", Content: lastUser}},
	}
	resp, err := opts.Provider.Complete(ctx, req)
	if err != nil {
		return "", &core.TransportFailure{Component: "persona_delegation", Cause: err}
	}

	selected := personas.ID(resp.Text)
	if selected == personas.Core || !personas.Valid(selected) {
		// "If the LLM selects CORE, keep the current active persona"
		// — an unrecognized selection falls back the
		// same way, never adopting an invalid persona.
		return personas.ID(deps.State.Persona()), nil
	}
	return selected, nil
}

func lastUserMessage(messages []llmtransport.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}
