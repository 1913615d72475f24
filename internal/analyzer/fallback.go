package analyzer

import (
	"regexp"
	"strings"

	"github.com/patchforge/patchforge/internal/treesitter"
)

// Language-specific definition patterns. The capture group is the symbol
// name; kind is implied by the keyword.
var definitionPatterns = []struct {
	re   *regexp.Regexp
	kind string
}{
	{regexp.MustCompile(`^\s*func\s+(?:\([^)]*\)\s+)?([A-Za-z_]\w*)\s*\(`), "function"},
	{regexp.MustCompile(`^\s*(?:async\s+)?def\s+([A-Za-z_]\w*)\s*\(`), "function"},
	{regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*([A-Za-z_]\w*)`), "function"},
	{regexp.MustCompile(`^\s*(?:export\s+)?(?:abstract\s+)?class\s+([A-Za-z_]\w*)`), "class"},
	{regexp.MustCompile(`^\s*type\s+([A-Za-z_]\w*)`), "type"},
	{regexp.MustCompile(`^\s*(?:export\s+)?interface\s+([A-Za-z_]\w*)`), "type"},
	{regexp.MustCompile(`^\s*(?:export\s+)?enum\s+([A-Za-z_]\w*)`), "type"},
	{regexp.MustCompile(`^\s*(?:pub\s+)?fn\s+([A-Za-z_]\w*)`), "function"},
	{regexp.MustCompile(`^\s*(?:export\s+)?(?:const|let|var)\s+([A-Za-z_]\w*)\s*=`), "variable"},
	{regexp.MustCompile(`^\s*(?:public|private|protected)\s+(?:static\s+)?[\w<>\[\]]+\s+([A-Za-z_]\w*)\s*\(`), "function"},
}

var importPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\s*import\s+"([^"]+)"`),                  // Go single import
	regexp.MustCompile(`^\s*"([^"]+)"\s*$`),                       // Go import block member
	regexp.MustCompile(`^\s*from\s+(\S+)\s+import\b`),             // Python from-import
	regexp.MustCompile(`^\s*import\s+([\w.]+)\s*$`),               // Python import
	regexp.MustCompile(`^\s*import\s+.*?from\s+['"]([^'"]+)['"]`), // ES import
	regexp.MustCompile(`\brequire\(\s*['"]([^'"]+)['"]\s*\)`),     // CommonJS require
	regexp.MustCompile(`^\s*#include\s+[<"]([^>"]+)[>"]`),         // C/C++
}

var (
	callPattern    = regexp.MustCompile(`([A-Za-z_]\w*)\s*\(`)
	packagePattern = regexp.MustCompile(`^package\s+([A-Za-z_]\w*)`)
	keywords       = map[string]bool{
		"if": true, "for": true, "while": true, "switch": true, "return": true,
		"func": true, "def": true, "function": true, "class": true, "type": true,
		"catch": true, "print": true, "new": true, "in": true, "range": true,
		"make": true, "len": true, "cap": true, "append": true, "delete": true,
	}
)

// heuristicExtract is the deterministic line-oriented fallback used when no
// plugin covers a language or the plugin failed on a partial fragment. It
// trades precision for resilience: keyword-pattern definitions and
// call-shaped identifier tokens only.
func heuristicExtract(lang, content string) *treesitter.ExtractResult {
	res := &treesitter.ExtractResult{}

	for rowNum, line := range strings.Split(content, "\n") {
		if m := packagePattern.FindStringSubmatch(line); m != nil {
			res.Package = m[1]
			continue
		}

		for _, p := range importPatterns {
			if m := p.FindStringSubmatch(line); m != nil {
				res.Imports = append(res.Imports, m[1])
				break
			}
		}

		defined := ""
		for _, p := range definitionPatterns {
			if m := p.re.FindStringSubmatch(line); m != nil {
				defined = m[1]
				res.Occurrences = append(res.Occurrences, treesitter.Occurrence{
					Name: m[1],
					Kind: p.kind,
					Role: treesitter.RoleDefinition,
					Row:  rowNum,
				})
				break
			}
		}

		for _, m := range callPattern.FindAllStringSubmatch(line, -1) {
			name := m[1]
			if keywords[name] || name == defined {
				continue
			}
			res.Occurrences = append(res.Occurrences, treesitter.Occurrence{
				Name:    name,
				Kind:    "function",
				Role:    treesitter.RoleUsage,
				Context: treesitter.ContextCall,
				Row:     rowNum,
			})
		}
	}

	_ = lang // patterns are cross-language; lang reserved for future narrowing
	return res
}
