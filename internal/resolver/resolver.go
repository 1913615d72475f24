// Package resolver turns extracted symbols into directed dependency edges
// between changes.
//
// Resolution is two-phase: Phase A builds a global index of every
// definition symbol; Phase B resolves usages against that index, falling
// back to import-level linkage when no symbol match exists. The index is
// request-scoped: built fresh per run and passed explicitly, never stored.
package resolver

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/patchforge/patchforge/internal/models"
)

// Edge strength policy. A strength of 1.0 means breaking the edge breaks
// the build, so the two changes must co-locate.
const (
	strengthModifiesUses = 1.0
	strengthImport       = 1.0
	strengthDefinesMin   = 0.6
	strengthDefinesMax   = 0.9
	strengthScopedMin    = 0.3
	strengthScopedMax    = 0.6
	occurrenceStep       = 0.05
)

// definition is one indexed definition symbol occurrence
type definition struct {
	changeID  string
	file      string
	pkg       string
	declOrder int // global first-declared order, used as the final tie-break
}

// Index is the Phase-A global symbol index: qualified name (primary key)
// and bare name (secondary key) to candidate definitions. Collisions are
// kept as sets; both definitions stay candidate targets.
type Index struct {
	byQualified map[string][]definition
	byBare      map[string][]definition
}

// BuildIndex runs Phase A: collect every definition symbol across all
// changes in order. Definitions on the new side always count; old-side
// definitions count only for delete hunks, where removing the definition
// is the owning change.
func BuildIndex(changes []*models.Change) *Index {
	idx := &Index{
		byQualified: make(map[string][]definition),
		byBare:      make(map[string][]definition),
	}

	order := 0
	for _, change := range changes {
		for _, sym := range change.Symbols {
			if sym.Role != models.RoleDefinition {
				continue
			}
			if sym.Side == models.SideOld && change.Kind != models.ChangeDelete {
				continue
			}
			def := definition{
				changeID:  change.ID,
				file:      change.File,
				pkg:       sym.Package,
				declOrder: order,
			}
			order++
			idx.byQualified[sym.QualifiedName()] = append(idx.byQualified[sym.QualifiedName()], def)
			idx.byBare[sym.Name] = append(idx.byBare[sym.Name], def)
		}
	}

	return idx
}

// Result carries resolved edges plus non-fatal resolution warnings.
type Result struct {
	Edges    []models.Dependency
	Warnings []string
}

// usageKey groups equivalent usages so occurrence counts can weight edges
type usageKey struct {
	name    string
	pkg     string
	context models.UsageContext
}

// Resolve runs Phase B: match every usage symbol against the index and
// emit dependency edges. Edges point from the dependent change (source) to
// the depended-upon change (target).
func Resolve(changes []*models.Change, idx *Index) *Result {
	res := &Result{}
	logger := slog.Default().With("component", "resolver")

	// One edge per ordered pair; duplicates collapse keeping max strength.
	edgeSet := make(map[[2]string]models.Dependency)
	addEdge := func(e models.Dependency) {
		if e.Source == e.Target {
			return
		}
		key := [2]string{e.Source, e.Target}
		if prev, ok := edgeSet[key]; ok && prev.Strength >= e.Strength {
			return
		}
		edgeSet[key] = e
	}

	changeByID := make(map[string]*models.Change, len(changes))
	for _, c := range changes {
		changeByID[c.ID] = c
	}

	// Call-derived direct edges, kept for chain composition afterwards
	callTargets := make(map[string][]string)

	for _, change := range changes {
		usages := collectUsages(change)
		unresolved := 0

		for key, count := range usages {
			candidates, qualifiedHit := lookup(idx, key, change)
			if len(candidates) == 0 {
				unresolved++
				continue
			}

			if len(candidates) > 1 {
				// True qualified-name collision: rather than guessing, edge
				// every candidate with the strength split among them.
				warning := fmt.Sprintf("ambiguous resolution for %q: %d candidate definitions",
					key.name, len(candidates))
				change.Warnings = append(change.Warnings, warning)
				res.Warnings = append(res.Warnings, warning)
				logger.Debug("splitting ambiguous edge", "symbol", key.name,
					"change", change.ID, "candidates", len(candidates))
			}

			split := float64(len(candidates))
			for _, cand := range candidates {
				target := changeByID[cand.changeID]
				if target == nil {
					continue
				}
				depType, strength := classify(key, count, target.Kind)
				addEdge(models.Dependency{
					Source:   change.ID,
					Target:   cand.changeID,
					Type:     depType,
					Strength: strength / split,
					Reason:   edgeReason(key, change, target, qualifiedHit),
				})
				if key.context == models.ContextCall {
					callTargets[change.ID] = append(callTargets[change.ID], cand.changeID)
				}
			}
		}

		// Import fallback: only when symbol matching came up empty for at
		// least one usage, and only against changes the imports can reach.
		if unresolved > 0 {
			for _, imp := range change.Imports {
				for _, target := range changes {
					if target.ID == change.ID || !importMatches(imp, target.File) {
						continue
					}
					addEdge(models.Dependency{
						Source:   change.ID,
						Target:   target.ID,
						Type:     models.DepImport,
						Strength: strengthImport,
						Reason:   fmt.Sprintf("%s imports %s (%s)", change.File, imp, target.File),
					})
				}
			}
		}
	}

	// Compose one-step call chains: when X calls into Y and Y calls into
	// Z, X transitively depends on Z. The max-strength dedup in addEdge
	// keeps any stronger direct edge between X and Z.
	callSources := make([]string, 0, len(callTargets))
	for src := range callTargets {
		callSources = append(callSources, src)
	}
	sort.Strings(callSources)
	for _, src := range callSources {
		mids := append([]string(nil), callTargets[src]...)
		sort.Strings(mids)
		for _, mid := range mids {
			for _, dst := range callTargets[mid] {
				if dst == src {
					continue
				}
				addEdge(models.Dependency{
					Source:   src,
					Target:   dst,
					Type:     models.DepCallChain,
					Strength: strengthScopedMin,
					Reason:   fmt.Sprintf("%s calls into %s, which calls into %s", src, mid, dst),
				})
			}
		}
	}

	res.Edges = make([]models.Dependency, 0, len(edgeSet))
	for _, e := range edgeSet {
		res.Edges = append(res.Edges, e)
	}
	// Deterministic output order regardless of map iteration
	sort.Slice(res.Edges, func(i, j int) bool {
		if res.Edges[i].Source != res.Edges[j].Source {
			return res.Edges[i].Source < res.Edges[j].Source
		}
		return res.Edges[i].Target < res.Edges[j].Target
	})

	return res
}

// collectUsages groups a change's usage symbols with occurrence counts
func collectUsages(change *models.Change) map[usageKey]int {
	usages := make(map[usageKey]int)
	for _, sym := range change.Symbols {
		if sym.Role != models.RoleUsage {
			continue
		}
		if sym.Side == models.SideOld && change.Kind != models.ChangeDelete {
			continue
		}
		key := usageKey{name: sym.Name, pkg: sym.Package, context: sym.Context}
		usages[key]++
	}
	return usages
}

// lookup resolves one usage against the index. Qualified name first; then
// bare name narrowed by same file, then same package, then the
// first-declared definition globally. Qualified collisions return the full
// candidate set; bare-name tiers always narrow to one.
func lookup(idx *Index, key usageKey, change *models.Change) ([]definition, bool) {
	if key.pkg != "" {
		qualified := key.pkg + "." + key.name
		if defs := withoutSelf(idx.byQualified[qualified], change.ID); len(defs) > 0 {
			return defs, true
		}
	}

	defs := withoutSelf(idx.byBare[key.name], change.ID)
	if len(defs) == 0 {
		return nil, false
	}
	if len(defs) == 1 {
		return defs, false
	}

	if sameFile := filterDefs(defs, func(d definition) bool { return d.file == change.File }); len(sameFile) > 0 {
		defs = sameFile
	} else if pkg := changePackage(change); pkg != "" {
		if samePkg := filterDefs(defs, func(d definition) bool { return d.pkg == pkg }); len(samePkg) > 0 {
			defs = samePkg
		}
	}

	// First-declared preference makes the remaining choice deterministic
	best := defs[0]
	for _, d := range defs[1:] {
		if d.declOrder < best.declOrder {
			best = d
		}
	}
	return []definition{best}, false
}

func withoutSelf(defs []definition, selfID string) []definition {
	return filterDefs(defs, func(d definition) bool { return d.changeID != selfID })
}

func filterDefs(defs []definition, keep func(definition) bool) []definition {
	var out []definition
	for _, d := range defs {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}

// changePackage returns the package its definitions declare, if any
func changePackage(change *models.Change) string {
	for _, sym := range change.Symbols {
		if sym.Role == models.RoleDefinition && sym.Package != "" {
			return sym.Package
		}
	}
	return ""
}

// classify maps a usage to its edge type and strength. Type positions get
// their own edge type in the scoped band; calls and plain usages of a
// defined symbol get defines_uses. Plain usages upgrade to modifies_uses
// when the owning change modifies the definition in place. Occurrence
// count raises the strength within each band. Call-chain edges are not
// produced here: they come from composing two call-derived edges.
func classify(key usageKey, count int, targetKind models.ChangeKind) (models.DependencyType, float64) {
	switch key.context {
	case models.ContextType:
		return models.DepTypeDep, banded(strengthScopedMin, strengthScopedMax, count)
	case models.ContextCall:
		return models.DepDefinesUses, banded(strengthDefinesMin, strengthDefinesMax, count)
	default:
		if targetKind == models.ChangeModify {
			return models.DepModifiesUses, strengthModifiesUses
		}
		return models.DepDefinesUses, banded(strengthDefinesMin, strengthDefinesMax, count)
	}
}

func banded(min, max float64, count int) float64 {
	s := min + occurrenceStep*float64(count-1)
	if s > max {
		return max
	}
	return s
}

func edgeReason(key usageKey, source, target *models.Change, qualified bool) string {
	how := "bare name"
	if qualified {
		how = "qualified name"
	}
	return fmt.Sprintf("%s uses %s defined in %s (matched by %s)",
		source.ID, key.name, target.ID, how)
}

// importMatches reports whether an import path plausibly refers to a file.
// Dotted module paths are normalized to slashes; the match is on the
// extension-less path suffix.
func importMatches(importPath, file string) bool {
	imp := strings.TrimPrefix(importPath, "./")
	for strings.HasPrefix(imp, "../") {
		imp = imp[3:]
	}
	if !strings.Contains(imp, "/") {
		// Dotted module path (python-style)
		imp = strings.ReplaceAll(imp, ".", "/")
	}
	if imp == "" {
		return false
	}

	noExt := file
	if idx := strings.LastIndex(noExt, "."); idx > 0 {
		noExt = noExt[:idx]
	}
	noExt = strings.TrimSuffix(noExt, "/index")

	// Either side may carry extra leading path: a module-prefixed import
	// against a repo-relative file, or a repo-relative import against a
	// nested file.
	return noExt == imp ||
		strings.HasSuffix(noExt, "/"+imp) ||
		strings.HasSuffix(imp, "/"+noExt)
}
