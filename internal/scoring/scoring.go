// Package scoring wires the context normalizer, intent deriver,
// question generator, eligibility filter, scorer, and explainer into a
// single entry point: normalize, derive, question, filter, score,
// explain.
package scoring

import (
	"sort"

	"github.com/migrationcopilot/architecture-agent/internal/appctx"
	"github.com/migrationcopilot/architecture-agent/internal/catalog"
	"github.com/migrationcopilot/architecture-agent/internal/eligibility"
	"github.com/migrationcopilot/architecture-agent/internal/explainer"
	"github.com/migrationcopilot/architecture-agent/internal/intent"
	"github.com/migrationcopilot/architecture-agent/internal/questions"
	"github.com/migrationcopilot/architecture-agent/internal/scorer"
)

// Options configures a single scoring run.
type Options struct {
	QuestionThreshold intent.Confidence
	AllowedQualities  map[catalog.CatalogQuality]bool
	MaxRecommendations int // 0 means unlimited
}

// DefaultOptions mirrors core.AgentsConfig.QuestionThreshold's "low"
// default.
func DefaultOptions() Options {
	return Options{QuestionThreshold: intent.ConfidenceLow}
}

// Engine holds an immutable, loaded catalog and scores application
// contexts against it. The catalog is read-only after load, matching the
// concurrency model's "no global mutable state shared across threads
// except the catalog" invariant.
type Engine struct {
	catalog *catalog.ArchitectureCatalog
}

// NewEngine wraps an already-loaded, validated catalog.
func NewEngine(cat *catalog.ArchitectureCatalog) *Engine {
	return &Engine{catalog: cat}
}

// Catalog returns the engine's loaded catalog.
func (e *Engine) Catalog() *catalog.ArchitectureCatalog { return e.catalog }

// ScoreContext runs the full pipeline for an already normalized
// ApplicationContext and a fixed set of user answers (if any answers
// were previously collected). It does not loop on clarification:
// callers that want to apply newly collected answers call
// questions.ApplyAnswers themselves and re-invoke ScoreContext.
func (e *Engine) ScoreContext(appName string, ctx appctx.ApplicationContext, opts Options) explainer.ScoringResult {
	di := intent.Derive(ctx)
	if len(ctx.UserAnswers) > 0 {
		di = questions.ApplyAnswers(di, ctx.UserAnswers)
	}

	pending := questions.GenerateQuestions(ctx, di, opts.QuestionThreshold)

	eligible, excluded := eligibility.Filter(e.catalog.Architectures, ctx, di, opts.AllowedQualities)
	recs := scorer.Score(eligible, ctx, di)

	sort.SliceStable(recs, func(i, j int) bool { return recs[i].LikelihoodScore > recs[j].LikelihoodScore })
	if opts.MaxRecommendations > 0 && len(recs) > opts.MaxRecommendations {
		recs = recs[:opts.MaxRecommendations]
	}

	return explainer.Explain(appName, e.catalog, di, pending, recs, excluded, nil)
}

// ScoreRawContext normalizes raw bytes (tolerating a list-of-one
// wrapping) and then scores them.
func (e *Engine) ScoreRawContext(appName string, data []byte, opts Options) (explainer.ScoringResult, error) {
	raw, err := appctx.ParseRawContextFile(data)
	if err != nil {
		return explainer.ScoringResult{}, err
	}
	ctx := appctx.Normalize(raw)
	return e.ScoreContext(appName, ctx, opts), nil
}
