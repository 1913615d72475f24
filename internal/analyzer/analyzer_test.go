package analyzer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patchforge/patchforge/internal/models"
	"github.com/patchforge/patchforge/internal/treesitter"
)

// stubPlugin returns a canned extraction result
func stubPlugin(res *treesitter.ExtractResult, err error) Plugin {
	return PluginFunc(func(content []byte) (*treesitter.ExtractResult, error) {
		return res, err
	})
}

func TestAnalyzeAllKeepsChangedRowsOnly(t *testing.T) {
	reg := &Registry{plugins: map[string]Plugin{}}
	reg.Register("go", stubPlugin(&treesitter.ExtractResult{
		Package: "util",
		Occurrences: []treesitter.Occurrence{
			{Name: "Context", Kind: "function", Role: treesitter.RoleDefinition, Row: 0},
			{Name: "Added", Kind: "function", Role: treesitter.RoleDefinition, Row: 1},
		},
	}, nil))

	change := &models.Change{
		ID:       "x.go#0",
		Language: "go",
		// row 0 is context on both sides, row 1 is the added line
		Body: " func Context() {}\n+func Added() {}\n",
	}

	a := New(2, WithRegistry(reg))
	require.NoError(t, a.AnalyzeAll(context.Background(), []*models.Change{change}))

	require.Len(t, change.Symbols, 1)
	sym := change.Symbols[0]
	assert.Equal(t, "Added", sym.Name)
	assert.Equal(t, models.RoleDefinition, sym.Role)
	assert.Equal(t, models.SideNew, sym.Side)
	assert.Equal(t, "util", sym.Package)
	assert.Equal(t, 2, sym.Line)
}

func TestAnalyzeBothSides(t *testing.T) {
	reg := &Registry{plugins: map[string]Plugin{}}
	reg.Register("go", stubPlugin(&treesitter.ExtractResult{
		Occurrences: []treesitter.Occurrence{
			{Name: "Renamed", Kind: "function", Role: treesitter.RoleDefinition, Row: 0},
		},
	}, nil))

	change := &models.Change{
		ID:       "x.go#0",
		Language: "go",
		Body:     "-func Renamed() {}\n+func Renamed() {}\n",
	}

	a := New(1, WithRegistry(reg))
	require.NoError(t, a.AnalyzeAll(context.Background(), []*models.Change{change}))

	require.Len(t, change.Symbols, 2)
	assert.Equal(t, models.SideNew, change.Symbols[0].Side)
	assert.Equal(t, models.SideOld, change.Symbols[1].Side)
}

func TestAnalyzeFallsBackOnPluginError(t *testing.T) {
	reg := &Registry{plugins: map[string]Plugin{}}
	reg.Register("go", stubPlugin(nil, assert.AnError))

	change := &models.Change{
		ID:       "x.go#0",
		Language: "go",
		Body:     "+func Recovered() int { return 1 }\n",
	}

	a := New(1, WithRegistry(reg))
	require.NoError(t, a.AnalyzeAll(context.Background(), []*models.Change{change}))

	// heuristic extractor still finds the definition
	var names []string
	for _, s := range change.Symbols {
		if s.Role == models.RoleDefinition {
			names = append(names, s.Name)
		}
	}
	assert.Contains(t, names, "Recovered")
	require.NotEmpty(t, change.Warnings)
	assert.Contains(t, change.Warnings[0], "symbol extraction degraded")
}

func TestAnalyzeUnknownLanguageUsesHeuristics(t *testing.T) {
	change := &models.Change{
		ID:       "x.rb#0",
		Language: "ruby",
		Body:     "+def process_order(order)\n+  validate_items()\n+end\n",
	}

	a := New(1)
	require.NoError(t, a.AnalyzeAll(context.Background(), []*models.Change{change}))

	var defs, usages []string
	for _, s := range change.Symbols {
		if s.Role == models.RoleDefinition {
			defs = append(defs, s.Name)
		} else {
			usages = append(usages, s.Name)
		}
	}
	assert.Contains(t, defs, "process_order")
	assert.Contains(t, usages, "validate_items")
	// no plugin means silent degradation, no warning
	assert.Empty(t, change.Warnings)
}

func TestNewRegistryCoversBundledGrammars(t *testing.T) {
	r := NewRegistry()
	for _, lang := range treesitter.Supported() {
		_, ok := r.Lookup(lang)
		assert.True(t, ok, "missing plugin for %s", lang)
	}
	_, ok := r.Lookup("cobol")
	assert.False(t, ok)
}

func TestHeuristicExtractSingleLetterCall(t *testing.T) {
	res := heuristicExtract("", "x := f(1)\ny := g(x)\n")

	var calls []string
	for _, occ := range res.Occurrences {
		if occ.Role == treesitter.RoleUsage && occ.Context == treesitter.ContextCall {
			calls = append(calls, occ.Name)
		}
	}
	assert.ElementsMatch(t, []string{"f", "g"}, calls, "one-letter callees count as calls")
}

type mapCache struct {
	entries map[string]*CachedAnalysis
	puts    int
}

func (m *mapCache) Get(digest, lang string) (*CachedAnalysis, bool) {
	e, ok := m.entries[digest+":"+lang]
	return e, ok
}

func (m *mapCache) Put(digest, lang string, entry *CachedAnalysis) error {
	m.entries[digest+":"+lang] = entry
	m.puts++
	return nil
}

func TestAnalyzeCacheRoundtrip(t *testing.T) {
	reg := &Registry{plugins: map[string]Plugin{}}
	reg.Register("go", stubPlugin(&treesitter.ExtractResult{
		Occurrences: []treesitter.Occurrence{
			{Name: "Cached", Kind: "function", Role: treesitter.RoleDefinition, Row: 0},
		},
	}, nil))

	c := &mapCache{entries: make(map[string]*CachedAnalysis)}
	a := New(1, WithRegistry(reg), WithCache(c))

	body := "+func Cached() {}\n"
	first := &models.Change{ID: "x.go#0", Language: "go", Body: body, Digest: models.ContentDigest(body)}
	require.NoError(t, a.AnalyzeAll(context.Background(), []*models.Change{first}))
	assert.Equal(t, 1, c.puts)

	// Second change with the same digest: plugin is bypassed entirely.
	reg.Register("go", stubPlugin(nil, assert.AnError))
	second := &models.Change{ID: "y.go#0", Language: "go", Body: body, Digest: first.Digest}
	require.NoError(t, a.AnalyzeAll(context.Background(), []*models.Change{second}))

	assert.Equal(t, 1, c.puts)
	require.Len(t, second.Symbols, 1)
	assert.Equal(t, "Cached", second.Symbols[0].Name)
	assert.Empty(t, second.Warnings)
}

func TestBuildFragment(t *testing.T) {
	body := " context line\n+added line\n-deleted line\n another context\n"

	newSide := buildFragment(body, '+')
	assert.Equal(t, "context line\nadded line\nanother context\n", newSide.content)
	assert.Equal(t, map[int]bool{1: true}, newSide.changedRows)

	oldSide := buildFragment(body, '-')
	assert.Equal(t, "context line\ndeleted line\nanother context\n", oldSide.content)
	assert.Equal(t, map[int]bool{1: true}, oldSide.changedRows)
}

func TestAnalyzeAllPreservesOrder(t *testing.T) {
	reg := &Registry{plugins: map[string]Plugin{}}
	changes := make([]*models.Change, 20)
	for i := range changes {
		changes[i] = &models.Change{ID: models.ChangeID("x.go", i), Language: "none", Body: "+line\n"}
	}

	a := New(8, WithRegistry(reg))
	require.NoError(t, a.AnalyzeAll(context.Background(), changes))

	for i, c := range changes {
		assert.Equal(t, models.ChangeID("x.go", i), c.ID)
	}
}
