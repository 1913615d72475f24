package treesitter

// OccurrenceRole distinguishes a declaration from a reference
type OccurrenceRole string

const (
	RoleDefinition OccurrenceRole = "definition"
	RoleUsage      OccurrenceRole = "usage"
)

// OccurrenceContext narrows how a usage appears in the source
type OccurrenceContext string

const (
	ContextPlain OccurrenceContext = ""
	ContextCall  OccurrenceContext = "call"
	ContextType  OccurrenceContext = "type"
)

// Occurrence is one symbol occurrence extracted from a source fragment.
// Row is 0-based relative to the fragment, not the original file; callers
// map rows back to hunk lines.
type Occurrence struct {
	Name    string
	Kind    string // "function", "class", "type", "variable", "field"
	Role    OccurrenceRole
	Context OccurrenceContext
	Package string
	Row     int
}

// ExtractResult contains everything extracted from one fragment.
type ExtractResult struct {
	Package     string
	Occurrences []Occurrence
	Imports     []string
}
