package treesitter

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// extractGoOccurrences extracts symbol occurrences from a Go AST
func extractGoOccurrences(root *sitter.Node, code []byte) (*ExtractResult, error) {
	res := &ExtractResult{}

	var walk func(*sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}

		switch node.Kind() {
		case "package_clause":
			walkChildren(node, func(child *sitter.Node) {
				if child.Kind() == "package_identifier" {
					res.Package = getNodeText(child, code)
				}
			})
			return

		case "import_spec":
			if pathNode := node.ChildByFieldName("path"); pathNode != nil {
				res.Imports = append(res.Imports, unquote(getNodeText(pathNode, code)))
			}
			return

		case "function_declaration", "method_declaration":
			if nameNode := node.ChildByFieldName("name"); nameNode != nil {
				res.Occurrences = append(res.Occurrences, Occurrence{
					Name: getNodeText(nameNode, code),
					Kind: "function",
					Role: RoleDefinition,
					Row:  row(nameNode),
				})
			}
			// Body still holds usages
			walkChildren(node, walk)
			return

		case "type_spec":
			if nameNode := node.ChildByFieldName("name"); nameNode != nil {
				res.Occurrences = append(res.Occurrences, Occurrence{
					Name: getNodeText(nameNode, code),
					Kind: "type",
					Role: RoleDefinition,
					Row:  row(nameNode),
				})
			}
			if typeNode := node.ChildByFieldName("type"); typeNode != nil {
				walk(typeNode)
			}
			return

		case "var_spec", "const_spec":
			if nameNode := node.ChildByFieldName("name"); nameNode != nil {
				res.Occurrences = append(res.Occurrences, Occurrence{
					Name: getNodeText(nameNode, code),
					Kind: "variable",
					Role: RoleDefinition,
					Row:  row(nameNode),
				})
			}
			if valNode := node.ChildByFieldName("value"); valNode != nil {
				walk(valNode)
			}
			if typeNode := node.ChildByFieldName("type"); typeNode != nil {
				walk(typeNode)
			}
			return

		case "field_declaration":
			if nameNode := node.ChildByFieldName("name"); nameNode != nil {
				res.Occurrences = append(res.Occurrences, Occurrence{
					Name: getNodeText(nameNode, code),
					Kind: "field",
					Role: RoleDefinition,
					Row:  row(nameNode),
				})
			}
			if typeNode := node.ChildByFieldName("type"); typeNode != nil {
				walk(typeNode)
			}
			return

		case "call_expression":
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

		case "type_identifier":
			name := getNodeText(node, code)
			if isIdentifier(name) {
				res.Occurrences = append(res.Occurrences, Occurrence{
					Name:    name,
					Kind:    "type",
					Role:    RoleUsage,
					Context: ContextType,
					Row:     row(node),
				})
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
