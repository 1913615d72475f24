// Package engine wires the pipeline stages together: extract, analyze,
// resolve, graph, group, split, validate, with optional enrichment
// checkpoints between them.
package engine

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/patchforge/patchforge/internal/analyzer"
	"github.com/patchforge/patchforge/internal/config"
	"github.com/patchforge/patchforge/internal/depgraph"
	"github.com/patchforge/patchforge/internal/enrich"
	"github.com/patchforge/patchforge/internal/extractor"
	"github.com/patchforge/patchforge/internal/grouper"
	"github.com/patchforge/patchforge/internal/models"
	"github.com/patchforge/patchforge/internal/resolver"
	"github.com/patchforge/patchforge/internal/splitter"
	"github.com/patchforge/patchforge/internal/validator"
)

// Engine runs the split pipeline. One Engine may serve many runs; each
// run owns its own data and runs are independent, so re-running the same
// diff with the same config yields the same result.
type Engine struct {
	cfg      *config.Config
	enricher enrich.Enricher
	cache    analyzer.Cache
	logger   *slog.Logger
}

type Option func(*Engine)

// WithEnricher installs the LLM collaborator. Default is Noop.
func WithEnricher(e enrich.Enricher) Option {
	return func(eng *Engine) {
		if e != nil {
			eng.enricher = e
		}
	}
}

// WithCache installs a symbol extraction cache shared across runs.
func WithCache(c analyzer.Cache) Option {
	return func(eng *Engine) { eng.cache = c }
}

func New(cfg *config.Config, opts ...Option) *Engine {
	eng := &Engine{
		cfg:      cfg,
		enricher: enrich.Noop{},
		logger:   slog.Default().With("component", "engine"),
	}
	for _, opt := range opts {
		opt(eng)
	}
	return eng
}

// Run executes the full pipeline over one diff. languageFor may be nil.
// Cancellation is honored between stages; stages themselves run to
// completion.
func (e *Engine) Run(ctx context.Context, diffText string, languageFor func(string) string) (*models.Result, error) {
	res := &models.Result{RunID: uuid.New().String()}
	log := e.logger.With("run_id", res.RunID)

	extracted, err := extractor.Extract(diffText, extractor.Options{LanguageFor: languageFor})
	if err != nil {
		return nil, err
	}
	res.Changes = extracted.Changes
	res.Warnings = append(res.Warnings, extracted.Warnings...)
	log.Info("extracted changes", "changes", len(res.Changes), "warnings", len(extracted.Warnings))

	if len(res.Changes) == 0 {
		res.Metrics = models.Metrics{BalanceScore: 1.0, ReviewabilityScore: 1.0}
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	anOpts := []analyzer.Option{}
	if e.cache != nil {
		anOpts = append(anOpts, analyzer.WithCache(e.cache))
	}
	an := analyzer.New(e.cfg.Analyzer.Workers, anOpts...)
	if err := an.AnalyzeAll(ctx, res.Changes); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx := resolver.BuildIndex(res.Changes)
	resolved := resolver.Resolve(res.Changes, idx)
	res.Dependencies = resolved.Edges
	res.Warnings = append(res.Warnings, resolved.Warnings...)
	log.Info("resolved dependencies", "edges", len(res.Dependencies))

	graph := depgraph.Build(res.Changes, res.Dependencies)
	res.AtomicGroups = graph.Groups()
	log.Info("built dependency graph", "atomic_groups", len(res.AtomicGroups))

	e.annotate(ctx, log, enrich.CheckpointDependencies, res)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clusters := grouper.New(e.cfg.Cohesion, graph, res.Changes).Clusters()
	log.Info("scored cohesion clusters", "clusters", len(clusters))

	e.annotate(ctx, log, enrich.CheckpointGrouping, res)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	patches, splitWarnings, err := splitter.New(e.cfg.Split, graph, res.Changes).Split(clusters)
	if err != nil {
		return nil, err
	}
	res.Patches = patches
	res.Warnings = append(res.Warnings, splitWarnings...)
	log.Info("split into patches", "patches", len(patches))

	if notes := e.enricher.NamePatches(ctx, res.Patches); len(notes) > 0 {
		res.Warnings = append(res.Warnings, notes...)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	metrics, err := validator.New(e.cfg.Split).Validate(res.Patches, graph)
	if err != nil {
		return nil, err
	}
	res.Metrics = metrics
	log.Info("validated split",
		"balance", metrics.BalanceScore,
		"reviewability", metrics.ReviewabilityScore,
		"max_depth", metrics.MaxDependencyDepth)

	e.annotate(ctx, log, enrich.CheckpointValidation, res)

	return res, nil
}

// annotate runs one enrichment checkpoint; notes land in warnings so
// they survive into the manifest.
func (e *Engine) annotate(ctx context.Context, log *slog.Logger, cp enrich.Checkpoint, res *models.Result) {
	notes := e.enricher.Annotate(ctx, cp, res)
	for _, n := range notes {
		log.Info("enrichment note", "checkpoint", string(cp), "note", n)
	}
	res.Warnings = append(res.Warnings, notes...)
}
