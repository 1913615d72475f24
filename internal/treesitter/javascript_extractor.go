package treesitter

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// extractJavaScriptOccurrences extracts symbol occurrences from a
// JavaScript AST
func extractJavaScriptOccurrences(root *sitter.Node, code []byte) (*ExtractResult, error) {
	res := &ExtractResult{}
	var walk func(*sitter.Node)
	walk = func(node *sitter.Node) {
		walkJSNode(node, code, res, walk)
	}
	walk(root)
	return res, nil
}

// walkJSNode handles the node kinds JavaScript and TypeScript share.
// recurse is the caller's walker so language-specific node kinds nested
// under shared constructs keep being handled by their own extractor.
func walkJSNode(node *sitter.Node, code []byte, res *ExtractResult, recurse func(*sitter.Node)) {
	if node == nil {
		return
	}

	switch node.Kind() {
	case "function_declaration", "generator_function_declaration":
		if nameNode := node.ChildByFieldName("name"); nameNode != nil {
			res.Occurrences = append(res.Occurrences, Occurrence{
				Name: getNodeText(nameNode, code),
				Kind: "function",
				Role: RoleDefinition,
				Row:  row(nameNode),
			})
		}
		if bodyNode := node.ChildByFieldName("body"); bodyNode != nil {
			recurse(bodyNode)
		}
		return

	case "class_declaration":
		if nameNode := node.ChildByFieldName("name"); nameNode != nil {
			res.Occurrences = append(res.Occurrences, Occurrence{
				Name: getNodeText(nameNode, code),
				Kind: "class",
				Role: RoleDefinition,
				Row:  row(nameNode),
			})
		}
		if bodyNode := node.ChildByFieldName("body"); bodyNode != nil {
			recurse(bodyNode)
		}
		return

	case "method_definition":
		if nameNode := node.ChildByFieldName("name"); nameNode != nil {
			res.Occurrences = append(res.Occurrences, Occurrence{
				Name: getNodeText(nameNode, code),
				Kind: "function",
				Role: RoleDefinition,
				Row:  row(nameNode),
			})
		}
		if bodyNode := node.ChildByFieldName("body"); bodyNode != nil {
			recurse(bodyNode)
		}
		return

	case "variable_declarator":
		nameNode := node.ChildByFieldName("name")
		valueNode := node.ChildByFieldName("value")
		if nameNode != nil && nameNode.Kind() == "identifier" {
			kind := "variable"
			if valueNode != nil {
				switch valueNode.Kind() {
				case "arrow_function", "function_expression", "function":
					kind = "function"
				}
			}
			res.Occurrences = append(res.Occurrences, Occurrence{
				Name: getNodeText(nameNode, code),
				Kind: kind,
				Role: RoleDefinition,
				Row:  row(nameNode),
			})
		}
		if valueNode != nil {
			recurse(valueNode)
		}
		return

	case "import_statement":
		if srcNode := node.ChildByFieldName("source"); srcNode != nil {
			res.Imports = append(res.Imports, unquote(getNodeText(srcNode, code)))
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
			recurse(argsNode)
		}
		return

	case "new_expression":
		if ctorNode := node.ChildByFieldName("constructor"); ctorNode != nil {
			pkg, name := selectorParts(getNodeText(ctorNode, code))
			if isIdentifier(name) {
				res.Occurrences = append(res.Occurrences, Occurrence{
					Name:    name,
					Kind:    "class",
					Role:    RoleUsage,
					Context: ContextType,
					Package: pkg,
					Row:     row(ctorNode),
				})
			}
		}
		if argsNode := node.ChildByFieldName("arguments"); argsNode != nil {
			recurse(argsNode)
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

	walkChildren(node, recurse)
}
