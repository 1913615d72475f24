package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patchforge/patchforge/internal/models"
)

func defChange(id, file, name string, kind models.ChangeKind) *models.Change {
	return &models.Change{
		ID:   id,
		File: file,
		Kind: kind,
		Symbols: []models.Symbol{
			{Name: name, Kind: models.SymbolFunction, Role: models.RoleDefinition, Side: models.SideNew},
		},
	}
}

func useChange(id, file, name string, ctx models.UsageContext) *models.Change {
	return &models.Change{
		ID:   id,
		File: file,
		Kind: models.ChangeModify,
		Symbols: []models.Symbol{
			{Name: name, Kind: models.SymbolFunction, Role: models.RoleUsage, Side: models.SideNew, Context: ctx},
		},
	}
}

func TestResolveDefinitionUsageEdge(t *testing.T) {
	def := defChange("def.go#0", "def.go", "Helper", models.ChangeAdd)
	use := useChange("use.go#0", "use.go", "Helper", models.ContextCall)
	changes := []*models.Change{def, use}

	res := Resolve(changes, BuildIndex(changes))

	require.Len(t, res.Edges, 1)
	edge := res.Edges[0]
	assert.Equal(t, "use.go#0", edge.Source, "edge points from the dependent change")
	assert.Equal(t, "def.go#0", edge.Target)
	assert.Equal(t, models.DepDefinesUses, edge.Type, "calling a defined symbol links use to definition")
	assert.InDelta(t, 0.6, edge.Strength, 1e-9)
}

func TestResolveComposesCallChain(t *testing.T) {
	// a calls b, b calls c: a picks up a transitive call_chain edge to c
	a := &models.Change{
		ID: "a.go#0", File: "a.go", Kind: models.ChangeModify,
		Symbols: []models.Symbol{
			{Name: "B", Kind: models.SymbolFunction, Role: models.RoleUsage, Side: models.SideNew, Context: models.ContextCall},
		},
	}
	b := &models.Change{
		ID: "b.go#0", File: "b.go", Kind: models.ChangeAdd,
		Symbols: []models.Symbol{
			{Name: "B", Kind: models.SymbolFunction, Role: models.RoleDefinition, Side: models.SideNew},
			{Name: "C", Kind: models.SymbolFunction, Role: models.RoleUsage, Side: models.SideNew, Context: models.ContextCall},
		},
	}
	c := defChange("c.go#0", "c.go", "C", models.ChangeAdd)

	changes := []*models.Change{a, b, c}
	res := Resolve(changes, BuildIndex(changes))

	byPair := make(map[[2]string]models.Dependency)
	for _, e := range res.Edges {
		byPair[[2]string{e.Source, e.Target}] = e
	}
	require.Len(t, byPair, 3)
	assert.Equal(t, models.DepDefinesUses, byPair[[2]string{"a.go#0", "b.go#0"}].Type)
	assert.Equal(t, models.DepDefinesUses, byPair[[2]string{"b.go#0", "c.go#0"}].Type)

	chain, ok := byPair[[2]string{"a.go#0", "c.go#0"}]
	require.True(t, ok, "transitive edge from caller to callee's callee")
	assert.Equal(t, models.DepCallChain, chain.Type)
	assert.InDelta(t, 0.3, chain.Strength, 1e-9)
	assert.Contains(t, chain.Reason, "calls into")
}

func TestResolveCallChainNeverDowngradesDirectEdge(t *testing.T) {
	// x both calls y's symbol directly and reaches it through a chain;
	// the stronger direct edge wins
	x := &models.Change{
		ID: "x.go#0", File: "x.go", Kind: models.ChangeModify,
		Symbols: []models.Symbol{
			{Name: "Mid", Kind: models.SymbolFunction, Role: models.RoleUsage, Side: models.SideNew, Context: models.ContextCall},
			{Name: "Leaf", Kind: models.SymbolFunction, Role: models.RoleUsage, Side: models.SideNew, Context: models.ContextCall},
		},
	}
	mid := &models.Change{
		ID: "mid.go#0", File: "mid.go", Kind: models.ChangeAdd,
		Symbols: []models.Symbol{
			{Name: "Mid", Kind: models.SymbolFunction, Role: models.RoleDefinition, Side: models.SideNew},
			{Name: "Leaf", Kind: models.SymbolFunction, Role: models.RoleUsage, Side: models.SideNew, Context: models.ContextCall},
		},
	}
	leaf := defChange("leaf.go#0", "leaf.go", "Leaf", models.ChangeAdd)

	changes := []*models.Change{x, mid, leaf}
	res := Resolve(changes, BuildIndex(changes))

	for _, e := range res.Edges {
		if e.Source == "x.go#0" && e.Target == "leaf.go#0" {
			assert.Equal(t, models.DepDefinesUses, e.Type)
			assert.InDelta(t, 0.6, e.Strength, 1e-9)
			return
		}
	}
	t.Fatal("missing edge from x.go#0 to leaf.go#0")
}

func TestResolveModifiesUsesIsAtomic(t *testing.T) {
	def := defChange("def.go#0", "def.go", "Helper", models.ChangeModify)
	use := useChange("use.go#0", "use.go", "Helper", models.ContextPlain)
	changes := []*models.Change{def, use}

	res := Resolve(changes, BuildIndex(changes))

	require.Len(t, res.Edges, 1)
	assert.Equal(t, models.DepModifiesUses, res.Edges[0].Type)
	assert.Equal(t, 1.0, res.Edges[0].Strength)
}

func TestResolveOccurrenceCountRaisesStrength(t *testing.T) {
	def := defChange("def.go#0", "def.go", "Helper", models.ChangeAdd)
	use := useChange("use.go#0", "use.go", "Helper", models.ContextCall)
	// five call occurrences of the same symbol
	for i := 0; i < 4; i++ {
		use.Symbols = append(use.Symbols, models.Symbol{
			Name: "Helper", Kind: models.SymbolFunction, Role: models.RoleUsage,
			Side: models.SideNew, Context: models.ContextCall,
		})
	}
	changes := []*models.Change{def, use}

	res := Resolve(changes, BuildIndex(changes))

	require.Len(t, res.Edges, 1)
	assert.InDelta(t, 0.8, res.Edges[0].Strength, 1e-9) // 0.6 + 4*0.05
}

func TestResolveQualifiedCollisionSplitsEdge(t *testing.T) {
	defA := defChange("a.go#0", "a.go", "Helper", models.ChangeAdd)
	defA.Symbols[0].Package = "util"
	defB := defChange("b.go#0", "b.go", "Helper", models.ChangeAdd)
	defB.Symbols[0].Package = "util"

	use := useChange("use.go#0", "use.go", "Helper", models.ContextCall)
	use.Symbols[0].Package = "util"

	changes := []*models.Change{defA, defB, use}
	res := Resolve(changes, BuildIndex(changes))

	require.Len(t, res.Edges, 2)
	for _, e := range res.Edges {
		assert.Equal(t, "use.go#0", e.Source)
		assert.InDelta(t, 0.3, e.Strength, 1e-9) // 0.6 split across 2 candidates
	}
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "ambiguous resolution")
	assert.NotEmpty(t, use.Warnings)
}

func TestResolveBareNameNarrowsDeterministically(t *testing.T) {
	// two bare-name candidates in different files; the usage sits in one
	// of those files, so same-file narrowing picks it without a warning
	defA := defChange("x.go#0", "x.go", "helper", models.ChangeAdd)
	defB := defChange("y.go#0", "y.go", "helper", models.ChangeAdd)
	use := useChange("x.go#1", "x.go", "helper", models.ContextCall)

	changes := []*models.Change{defA, defB, use}
	res := Resolve(changes, BuildIndex(changes))

	require.Len(t, res.Edges, 1)
	assert.Equal(t, "x.go#0", res.Edges[0].Target)
	assert.Empty(t, res.Warnings)
}

func TestResolveBareNameFirstDeclaredFallback(t *testing.T) {
	defA := defChange("x.go#0", "x.go", "helper", models.ChangeAdd)
	defB := defChange("y.go#0", "y.go", "helper", models.ChangeAdd)
	use := useChange("z.go#0", "z.go", "helper", models.ContextCall)

	changes := []*models.Change{defA, defB, use}
	res := Resolve(changes, BuildIndex(changes))

	require.Len(t, res.Edges, 1)
	assert.Equal(t, "x.go#0", res.Edges[0].Target, "first-declared definition wins")
}

func TestResolveImportFallback(t *testing.T) {
	target := defChange("pkg/util.go#0", "pkg/util.go", "internalHelper", models.ChangeAdd)
	use := useChange("main.go#0", "main.go", "somethingUnknown", models.ContextCall)
	use.Imports = []string{"example.com/project/pkg/util"}

	changes := []*models.Change{target, use}
	res := Resolve(changes, BuildIndex(changes))

	require.Len(t, res.Edges, 1)
	edge := res.Edges[0]
	assert.Equal(t, models.DepImport, edge.Type)
	assert.Equal(t, 1.0, edge.Strength)
	assert.Equal(t, "pkg/util.go#0", edge.Target)
}

func TestResolveNoImportFallbackWhenAllResolved(t *testing.T) {
	def := defChange("pkg/util.go#0", "pkg/util.go", "Helper", models.ChangeAdd)
	use := useChange("main.go#0", "main.go", "Helper", models.ContextCall)
	use.Imports = []string{"example.com/project/pkg/util"}

	changes := []*models.Change{def, use}
	res := Resolve(changes, BuildIndex(changes))

	require.Len(t, res.Edges, 1)
	assert.Equal(t, models.DepDefinesUses, res.Edges[0].Type)
}

func TestResolveOldSideDefinitionOnlyForDeletes(t *testing.T) {
	removed := &models.Change{
		ID: "gone.go#0", File: "gone.go", Kind: models.ChangeDelete,
		Symbols: []models.Symbol{
			{Name: "Removed", Kind: models.SymbolFunction, Role: models.RoleDefinition, Side: models.SideOld},
		},
	}
	modified := &models.Change{
		ID: "kept.go#0", File: "kept.go", Kind: models.ChangeModify,
		Symbols: []models.Symbol{
			{Name: "Shadow", Kind: models.SymbolFunction, Role: models.RoleDefinition, Side: models.SideOld},
		},
	}

	idx := BuildIndex([]*models.Change{removed, modified})
	assert.Len(t, idx.byBare["Removed"], 1)
	assert.Empty(t, idx.byBare["Shadow"])
}

func TestImportMatches(t *testing.T) {
	tests := []struct {
		imp, file string
		want      bool
	}{
		{"example.com/project/pkg/util", "pkg/util.go", true},
		{"pkg/util", "pkg/util.go", true},
		{"./utils", "src/utils.ts", true},
		{"../shared/types", "shared/types.ts", true},
		{"./components/Button", "src/components/Button/index.tsx", true},
		{"app.services.orders", "app/services/orders.py", true},
		{"pkg/other", "pkg/util.go", false},
		{"util", "pkg/utility.go", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, importMatches(tt.imp, tt.file), "import %q vs file %q", tt.imp, tt.file)
	}
}

func TestResolveNoSelfEdges(t *testing.T) {
	c := &models.Change{
		ID: "x.go#0", File: "x.go", Kind: models.ChangeAdd,
		Symbols: []models.Symbol{
			{Name: "Self", Kind: models.SymbolFunction, Role: models.RoleDefinition, Side: models.SideNew},
			{Name: "Self", Kind: models.SymbolFunction, Role: models.RoleUsage, Side: models.SideNew, Context: models.ContextCall},
		},
	}
	res := Resolve([]*models.Change{c}, BuildIndex([]*models.Change{c}))
	assert.Empty(t, res.Edges)
}
