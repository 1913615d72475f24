package treesitter

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// extractPythonOccurrences extracts symbol occurrences from a Python AST
func extractPythonOccurrences(root *sitter.Node, code []byte) (*ExtractResult, error) {
	res := &ExtractResult{}

	var walk func(*sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}

		switch node.Kind() {
		case "function_definition":
			if nameNode := node.ChildByFieldName("name"); nameNode != nil {
				res.Occurrences = append(res.Occurrences, Occurrence{
					Name: getNodeText(nameNode, code),
					Kind: "function",
					Role: RoleDefinition,
					Row:  row(nameNode),
				})
			}
			if bodyNode := node.ChildByFieldName("body"); bodyNode != nil {
				walk(bodyNode)
			}
			return

		case "class_definition":
			if nameNode := node.ChildByFieldName("name"); nameNode != nil {
				res.Occurrences = append(res.Occurrences, Occurrence{
					Name: getNodeText(nameNode, code),
					Kind: "class",
					Role: RoleDefinition,
					Row:  row(nameNode),
				})
			}
			// Superclasses are type usages
			if supNode := node.ChildByFieldName("superclasses"); supNode != nil {
				walkChildren(supNode, func(child *sitter.Node) {
					if child.Kind() == "identifier" {
						res.Occurrences = append(res.Occurrences, Occurrence{
							Name:    getNodeText(child, code),
							Kind:    "class",
							Role:    RoleUsage,
							Context: ContextType,
							Row:     row(child),
						})
					}
				})
			}
			if bodyNode := node.ChildByFieldName("body"); bodyNode != nil {
				walk(bodyNode)
			}
			return

		case "import_statement", "import_from_statement":
			walkChildren(node, func(child *sitter.Node) {
				if child.Kind() == "dotted_name" || child.Kind() == "aliased_import" {
					text := getNodeText(child, code)
					if idx := strings.Index(text, " as "); idx > 0 {
						text = text[:idx]
					}
					res.Imports = append(res.Imports, text)
				}
			})
			return

		case "call":
			if fnNode := node.ChildByFieldName("function"); fnNode != nil {
				pkg, name := selectorParts(getNodeText(fnNode, code))
				if isIdentifier(name) {
					res.Occurrences = append(res.Occurrences, Occurrence{
						Name:    name,
						Kind:    "function",
						Role:    RoleUsage,
						Context: ContextCall,
						Package: pkg,
						Row:     row(fnNode),
					})
				}
			}
			if argsNode := node.ChildByFieldName("arguments"); argsNode != nil {
				walk(argsNode)
			}
			return

		case "type":
			// Annotation position: every identifier inside is a type usage
			collectIdentifiers(node, code, func(name string, r int) {
				res.Occurrences = append(res.Occurrences, Occurrence{
					Name:    name,
					Kind:    "type",
					Role:    RoleUsage,
					Context: ContextType,
					Row:     r,
				})
			})
			return

		case "assignment":
			if leftNode := node.ChildByFieldName("left"); leftNode != nil && leftNode.Kind() == "identifier" {
				res.Occurrences = append(res.Occurrences, Occurrence{
					Name: getNodeText(leftNode, code),
					Kind: "variable",
					Role: RoleDefinition,
					Row:  row(leftNode),
				})
			}
			if rightNode := node.ChildByFieldName("right"); rightNode != nil {
				walk(rightNode)
			}
			return

		case "identifier":
			name := getNodeText(node, code)
			if isIdentifier(name) {
				res.Occurrences = append(res.Occurrences, Occurrence{
					Name: name,
					Kind: "variable",
					Role: RoleUsage,
					Row:  row(node),
				})
			}
			return
		}

		walkChildren(node, walk)
	}

	walk(root)
	return res, nil
}

// collectIdentifiers gathers all identifier leaves under a node
func collectIdentifiers(node *sitter.Node, code []byte, fn func(name string, row int)) {
	if node == nil {
		return
	}
	if node.Kind() == "identifier" {
		name := getNodeText(node, code)
		if isIdentifier(name) {
			fn(name, int(node.StartPosition().Row))
		}
		return
	}
	walkChildren(node, func(child *sitter.Node) {
		collectIdentifiers(child, code, fn)
	})
}
