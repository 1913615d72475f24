// Package treesitter extracts symbol occurrences from source fragments
// using tree-sitter grammars. Diff hunks are routinely incomplete; the
// grammars are error-tolerant, so extraction walks whatever tree comes back
// and skips ERROR subtrees instead of failing.
package treesitter

import (
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// LanguageParser wraps a tree-sitter parser with a language grammar.
// IMPORTANT: Always call Close() to prevent memory leaks (CGO requirement)
type LanguageParser struct {
	parser   *sitter.Parser
	langName string
}

// Supported lists the language identifiers with a bundled grammar.
func Supported() []string {
	return []string{"go", "python", "javascript", "jsx", "typescript", "tsx"}
}

// NewLanguageParser creates a parser for the specified language.
// Supported languages: go, python, javascript, typescript (plus jsx/tsx).
func NewLanguageParser(lang string) (*LanguageParser, error) {
	parser := sitter.NewParser()
	if parser == nil {
		return nil, fmt.Errorf("failed to create tree-sitter parser")
	}

	var language *sitter.Language
	switch lang {
	case "go":
		language = sitter.NewLanguage(tree_sitter_go.Language())
	case "javascript", "jsx":
		language = sitter.NewLanguage(tree_sitter_javascript.Language())
	case "typescript", "tsx":
		language = sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
	case "python":
		language = sitter.NewLanguage(tree_sitter_python.Language())
	default:
		parser.Close()
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}

	if err := parser.SetLanguage(language); err != nil {
		parser.Close()
		return nil, fmt.Errorf("failed to set language %s: %w", lang, err)
	}

	return &LanguageParser{
		parser:   parser,
		langName: lang,
	}, nil
}

// Close releases parser resources (REQUIRED - CGO memory management)
func (lp *LanguageParser) Close() {
	if lp.parser != nil {
		lp.parser.Close()
	}
}

// Extract parses a source fragment and extracts symbol occurrences.
// The fragment does not have to be syntactically complete.
func Extract(lang string, code []byte) (*ExtractResult, error) {
	lp, err := NewLanguageParser(lang)
	if err != nil {
		return nil, err
	}
	defer lp.Close()

	tree := lp.parser.Parse(code, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse %s fragment", lang)
	}
	defer tree.Close()

	root := tree.RootNode()

	switch lang {
	case "go":
		return extractGoOccurrences(root, code)
	case "python":
		return extractPythonOccurrences(root, code)
	case "javascript", "jsx":
		return extractJavaScriptOccurrences(root, code)
	case "typescript", "tsx":
		return extractTypeScriptOccurrences(root, code)
	}
	return nil, fmt.Errorf("unsupported language: %s", lang)
}
