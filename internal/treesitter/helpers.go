package treesitter

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// getNodeText extracts text from a node using byte offsets
func getNodeText(node *sitter.Node, code []byte) string {
	if node == nil {
		return ""
	}
	start := node.StartByte()
	end := node.EndByte()
	if int(end) > len(code) {
		end = uint(len(code))
	}
	return string(code[start:end])
}

// row returns the 0-based starting row of a node
func row(node *sitter.Node) int {
	return int(node.StartPosition().Row)
}

// walkChildren applies fn to every child of node
func walkChildren(node *sitter.Node, fn func(*sitter.Node)) {
	for i := uint(0); i < node.ChildCount(); i++ {
		fn(node.Child(i))
	}
}

// unquote strips matching string delimiters from an import path literal
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') || (first == '`' && last == '`') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// selectorParts splits a qualified reference like pkg.Name into its
// qualifier and final identifier. A bare name comes back with an empty
// qualifier.
func selectorParts(text string) (pkg, name string) {
	idx := strings.LastIndex(text, ".")
	if idx < 0 {
		return "", text
	}
	return text[:idx], text[idx+1:]
}

// isIdentifier reports whether the text is a plausible symbol name worth
// indexing. Single letters and blank strings generate noise, not edges.
func isIdentifier(text string) bool {
	if len(text) < 2 {
		return false
	}
	for i, r := range text {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
