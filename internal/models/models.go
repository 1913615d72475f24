package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// ChangeKind describes how a hunk affects its file
type ChangeKind string

const (
	ChangeAdd    ChangeKind = "add"
	ChangeModify ChangeKind = "modify"
	ChangeDelete ChangeKind = "delete"
)

// LineRange holds the old/new start-length pairs from a hunk header
type LineRange struct {
	OldStart int `json:"old_start" yaml:"old_start"`
	OldLines int `json:"old_lines" yaml:"old_lines"`
	NewStart int `json:"new_start" yaml:"new_start"`
	NewLines int `json:"new_lines" yaml:"new_lines"`
}

// Change is one atomic change unit: a single hunk from a unified diff.
// ID is file path + ordinal within that file, stable within a run.
// Digest identifies the same logical hunk across re-diffing at different
// line offsets (it covers normalized body content, never line numbers).
type Change struct {
	ID       string     `json:"id" yaml:"id"`
	File     string     `json:"file" yaml:"file"`
	Kind     ChangeKind `json:"kind" yaml:"kind"`
	Range    LineRange  `json:"range" yaml:"range"`
	Body     string     `json:"-" yaml:"-"` // raw hunk body with +/-/space markers
	Added    int        `json:"added" yaml:"added"`
	Deleted  int        `json:"deleted" yaml:"deleted"`
	Digest   string     `json:"digest" yaml:"digest"`
	Language string     `json:"language,omitempty" yaml:"language,omitempty"`

	// Filled in by the symbol analyzer
	Symbols  []Symbol `json:"symbols,omitempty" yaml:"-"`
	Imports  []string `json:"imports,omitempty" yaml:"-"`
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// SizeLines is the change's contribution to patch size. Context lines do
// not count.
func (c *Change) SizeLines() int {
	return c.Added + c.Deleted
}

// ChangeID builds the stable hunk identifier for a file and hunk ordinal.
func ChangeID(file string, ordinal int) string {
	return fmt.Sprintf("%s#%d", file, ordinal)
}

// ContentDigest hashes the hunk body with whitespace collapsed so that the
// same logical change re-extracted at a different offset hashes identically.
// The leading diff marker of each line is preserved since it distinguishes
// additions from deletions.
func ContentDigest(body string) string {
	h := sha256.New()
	for _, line := range strings.Split(body, "\n") {
		if line == "" {
			continue
		}
		marker := line[0]
		rest := strings.Join(strings.Fields(line[1:]), " ")
		h.Write([]byte{marker})
		h.Write([]byte(rest))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// SymbolKind categorizes an extracted symbol
type SymbolKind string

const (
	SymbolFunction SymbolKind = "function"
	SymbolClass    SymbolKind = "class"
	SymbolVariable SymbolKind = "variable"
	SymbolType     SymbolKind = "type"
	SymbolField    SymbolKind = "field"
)

// SymbolRole distinguishes definitions from usages
type SymbolRole string

const (
	RoleDefinition SymbolRole = "definition"
	RoleUsage      SymbolRole = "usage"
)

// SymbolSide records which side of the hunk the symbol came from
type SymbolSide string

const (
	SideNew SymbolSide = "new"
	SideOld SymbolSide = "old"
)

// UsageContext narrows how a usage symbol appears in the source
type UsageContext string

const (
	ContextPlain UsageContext = ""
	ContextCall  UsageContext = "call"
	ContextType  UsageContext = "type"
)

// Symbol is one symbol occurrence inside a Change.
type Symbol struct {
	Name    string       `json:"name"`
	Kind    SymbolKind   `json:"kind"`
	Role    SymbolRole   `json:"role"`
	Package string       `json:"package,omitempty"`
	Side    SymbolSide   `json:"side"`
	Context UsageContext `json:"context,omitempty"`
	Line    int          `json:"line,omitempty"` // fragment-relative, 1-based
}

// QualifiedName returns the package-qualified name when the package is
// known, the bare name otherwise.
func (s Symbol) QualifiedName() string {
	if s.Package != "" {
		return s.Package + "." + s.Name
	}
	return s.Name
}

// DependencyType classifies a dependency edge
type DependencyType string

const (
	DepDefinesUses  DependencyType = "defines_uses"
	DepModifiesUses DependencyType = "modifies_uses"
	DepImport       DependencyType = "import"
	DepCallChain    DependencyType = "call_chain"
	DepTypeDep      DependencyType = "type_dependency"
)

// Dependency is a directed edge between two Changes. Source is the
// dependent change; Target is the depended-upon change, the one that must
// be applied no later than the source. Strength 1.0 means the two must
// co-locate in one patch.
type Dependency struct {
	Source   string         `json:"source"`
	Target   string         `json:"target"`
	Type     DependencyType `json:"type"`
	Strength float64        `json:"strength"`
	Reason   string         `json:"reason"`
}

// AtomicGroup is a set of Change ids that must never be split across
// patches: either a dependency cycle, or changes bound by a strength-1.0
// edge.
type AtomicGroup struct {
	ID      int      `json:"id"`
	Changes []string `json:"changes"`
	Reason  string   `json:"reason"`
}

// Patch is one final output unit. IDs are assigned in topological order,
// so every DependsOn entry is strictly smaller than ID.
type Patch struct {
	ID          int       `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Changes     []*Change `json:"-" yaml:"-"`
	DependsOn   []int     `json:"depends_on" yaml:"depends_on"`
	SizeLines   int       `json:"size_lines" yaml:"size_lines"`
	Files       []string  `json:"files" yaml:"files"`
	Warnings    []string  `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// ChangeIDs returns the ids of the patch's changes in emission order
func (p *Patch) ChangeIDs() []string {
	ids := make([]string, len(p.Changes))
	for i, c := range p.Changes {
		ids[i] = c.ID
	}
	return ids
}

// Metrics are advisory quality scores for a split. They never block output.
type Metrics struct {
	BalanceScore       float64 `json:"balance_score" yaml:"balance_score"`
	ReviewabilityScore float64 `json:"reviewability_score" yaml:"reviewability_score"`
	MaxDependencyDepth int     `json:"max_dependency_depth" yaml:"max_dependency_depth"`
}

// Result bundles everything a single pipeline run produces.
type Result struct {
	RunID        string        `json:"run_id" yaml:"run_id"`
	Changes      []*Change     `json:"changes" yaml:"-"`
	Dependencies []Dependency  `json:"dependencies" yaml:"-"`
	AtomicGroups []AtomicGroup `json:"atomic_groups" yaml:"-"`
	Patches      []*Patch      `json:"patches" yaml:"patches"`
	Metrics      Metrics       `json:"metrics" yaml:"metrics"`
	Warnings     []string      `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}
