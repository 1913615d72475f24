// Package analyzer extracts declared and referenced symbols from changes.
//
// Extraction is polymorphic over a per-language plugin registry; a
// line-oriented heuristic extractor is always present as the fallback, so
// a change in an unknown language degrades to fewer, less precise symbols
// instead of failing the run.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/patchforge/patchforge/internal/models"
	"github.com/patchforge/patchforge/internal/treesitter"
)

// Plugin is the per-language extraction capability. Implementations must
// tolerate syntactically incomplete fragments and return a best-effort
// partial result rather than failing.
type Plugin interface {
	Extract(content []byte) (*treesitter.ExtractResult, error)
}

// PluginFunc adapts a function to the Plugin interface
type PluginFunc func(content []byte) (*treesitter.ExtractResult, error)

func (f PluginFunc) Extract(content []byte) (*treesitter.ExtractResult, error) {
	return f(content)
}

// Registry maps language identifiers to extraction plugins. New languages
// are added by registering an implementation, not by modifying dispatch.
type Registry struct {
	plugins map[string]Plugin
}

// NewRegistry creates a registry with tree-sitter plugins for every
// bundled grammar.
func NewRegistry() *Registry {
	r := &Registry{plugins: make(map[string]Plugin)}
	for _, lang := range treesitter.Supported() {
		lang := lang
		r.Register(lang, PluginFunc(func(content []byte) (*treesitter.ExtractResult, error) {
			return treesitter.Extract(lang, content)
		}))
	}
	return r
}

// Register adds or replaces the plugin for a language
func (r *Registry) Register(lang string, p Plugin) {
	r.plugins[lang] = p
}

// Lookup returns the plugin for a language, if any
func (r *Registry) Lookup(lang string) (Plugin, bool) {
	p, ok := r.plugins[lang]
	return p, ok
}

// Cache stores extraction results keyed by content digest and language so
// re-splitting the same hunks skips the parse. Optional and
// correctness-neutral.
type Cache interface {
	Get(digest, lang string) (*CachedAnalysis, bool)
	Put(digest, lang string, entry *CachedAnalysis) error
}

// CachedAnalysis is the cacheable portion of a change analysis
type CachedAnalysis struct {
	Symbols []models.Symbol `json:"symbols"`
	Imports []string        `json:"imports"`
}

// Analyzer runs symbol extraction over all changes of a run.
type Analyzer struct {
	registry *Registry
	workers  int
	cache    Cache
	logger   *slog.Logger
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithCache attaches an extraction cache
func WithCache(c Cache) Option {
	return func(a *Analyzer) { a.cache = c }
}

// WithRegistry overrides the default plugin registry
func WithRegistry(r *Registry) Option {
	return func(a *Analyzer) { a.registry = r }
}

// New creates an Analyzer with the given worker count
func New(workers int, opts ...Option) *Analyzer {
	if workers <= 0 {
		workers = 1
	}
	a := &Analyzer{
		registry: NewRegistry(),
		workers:  workers,
		logger:   slog.Default().With("component", "analyzer"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AnalyzeAll extracts symbols for every change, fanning out over a bounded
// worker pool. Each worker writes only its own change, so no re-sort is
// needed at the join point: slice order is the original extraction order,
// which keeps index build order deterministic for the resolver.
func (a *Analyzer) AnalyzeAll(ctx context.Context, changes []*models.Change) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)

	for _, change := range changes {
		change := change
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			a.analyze(change)
			return nil
		})
	}

	return g.Wait()
}

// analyze fills in Symbols, Imports, and extraction warnings on one change
func (a *Analyzer) analyze(change *models.Change) {
	if a.cache != nil {
		if entry, ok := a.cache.Get(change.Digest, change.Language); ok {
			change.Symbols = entry.Symbols
			change.Imports = entry.Imports
			return
		}
	}

	newFrag := buildFragment(change.Body, '+')
	oldFrag := buildFragment(change.Body, '-')

	plugin, hasPlugin := a.registry.Lookup(change.Language)
	if !hasPlugin {
		a.logger.Debug("no plugin registered, using heuristic extractor",
			"change", change.ID, "language", change.Language)
	}

	change.Symbols = nil
	change.Imports = nil
	for _, side := range []struct {
		frag fragment
		side models.SymbolSide
	}{
		{newFrag, models.SideNew},
		{oldFrag, models.SideOld},
	} {
		symbols, imports, degraded := a.extractSide(plugin, hasPlugin, change.Language, side.frag, side.side)
		change.Symbols = append(change.Symbols, symbols...)
		change.Imports = appendUnique(change.Imports, imports...)
		if degraded != "" {
			change.Warnings = append(change.Warnings, degraded)
		}
	}

	if a.cache != nil {
		entry := &CachedAnalysis{Symbols: change.Symbols, Imports: change.Imports}
		if err := a.cache.Put(change.Digest, change.Language, entry); err != nil {
			a.logger.Warn("failed to cache extraction", "change", change.ID, "error", err)
		}
	}
}

// extractSide runs the plugin (or fallback) over one fragment and keeps
// only symbols on changed lines. Context lines belong to surrounding code,
// not to this change.
func (a *Analyzer) extractSide(plugin Plugin, hasPlugin bool, lang string, frag fragment, side models.SymbolSide) ([]models.Symbol, []string, string) {
	if len(frag.changedRows) == 0 {
		return nil, nil, ""
	}

	var res *treesitter.ExtractResult
	degraded := ""

	if hasPlugin {
		var err error
		res, err = plugin.Extract([]byte(frag.content))
		if err != nil {
			degraded = fmt.Sprintf("symbol extraction degraded (%s side): %v", side, err)
			a.logger.Debug("plugin failed, falling back to heuristics",
				"language", lang, "error", err)
			res = nil
		}
	}
	if res == nil {
		res = heuristicExtract(lang, frag.content)
	}

	var symbols []models.Symbol
	for _, occ := range res.Occurrences {
		if !frag.changedRows[occ.Row] {
			continue
		}
		pkg := occ.Package
		if pkg == "" && occ.Role == treesitter.RoleDefinition {
			pkg = res.Package
		}
		symbols = append(symbols, models.Symbol{
			Name:    occ.Name,
			Kind:    models.SymbolKind(occ.Kind),
			Role:    models.SymbolRole(occ.Role),
			Package: pkg,
			Side:    side,
			Context: models.UsageContext(occ.Context),
			Line:    occ.Row + 1,
		})
	}

	// Imports are kept regardless of row: an import statement inside the
	// fragment is linkage context for the whole hunk.
	return symbols, res.Imports, degraded
}

// fragment is one side of a hunk reassembled into parseable source
type fragment struct {
	content     string
	changedRows map[int]bool // 0-based rows that came from +/- lines
}

// buildFragment reassembles the chosen side of a hunk body. marker selects
// which changed lines belong to the side ('+' for new, '-' for old);
// context lines appear on both sides.
func buildFragment(body string, marker byte) fragment {
	frag := fragment{changedRows: make(map[int]bool)}
	var sb strings.Builder
	rowNum := 0

	for _, line := range strings.Split(body, "\n") {
		if line == "" {
			continue
		}
		switch line[0] {
		case ' ':
			sb.WriteString(line[1:])
			sb.WriteByte('\n')
			rowNum++
		case marker:
			sb.WriteString(line[1:])
			sb.WriteByte('\n')
			frag.changedRows[rowNum] = true
			rowNum++
		case '\\':
			// "\ No newline at end of file"
		default:
			// The opposite side's changed line: not part of this fragment
		}
	}

	frag.content = sb.String()
	return frag
}

func appendUnique(dst []string, items ...string) []string {
	seen := make(map[string]bool, len(dst))
	for _, s := range dst {
		seen[s] = true
	}
	for _, s := range items {
		if s != "" && !seen[s] {
			dst = append(dst, s)
			seen[s] = true
		}
	}
	return dst
}
