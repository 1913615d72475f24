package treesitter

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// extractTypeScriptOccurrences extracts symbol occurrences from a
// TypeScript AST. TypeScript shares most node kinds with JavaScript and
// adds interface, type alias, and enum declarations plus explicit type
// annotations.
func extractTypeScriptOccurrences(root *sitter.Node, code []byte) (*ExtractResult, error) {
	res := &ExtractResult{}

	var walk func(*sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}

		switch node.Kind() {
		case "interface_declaration", "type_alias_declaration", "enum_declaration":
			if nameNode := node.ChildByFieldName("name"); nameNode != nil {
				res.Occurrences = append(res.Occurrences, Occurrence{
					Name: getNodeText(nameNode, code),
					Kind: "type",
					Role: RoleDefinition,
					Row:  row(nameNode),
				})
			}
			if bodyNode := node.ChildByFieldName("body"); bodyNode != nil {
				walk(bodyNode)
			}
			if valueNode := node.ChildByFieldName("value"); valueNode != nil {
				walk(valueNode)
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

		case "property_signature", "public_field_definition":
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

		case "function_declaration", "generator_function_declaration",
			"class_declaration", "method_definition", "variable_declarator",
			"import_statement", "call_expression", "new_expression", "identifier":
			// Shared JavaScript handling
			walkJSNode(node, code, res, walk)
			return
		}

		walkChildren(node, walk)
	}

	walk(root)
	return res, nil
}
