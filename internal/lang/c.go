package lang

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
)

func init() {
	Register(&treeAdapter{
		name:       "c",
		extensions: []string{".c", ".h"},
		grammar:    c.GetLanguage(),
		signature:  cParameterSignature,
		enclosing:  cEnclosingFunction,
	})
}

// cParameterSignature returns the raw parameter list of a function definition
// or declaration, e.g. "(int a, char *s)".
func cParameterSignature(defNode *sitter.Node, src []byte) string {
	params := findDescendant(defNode, "parameter_list")
	if params == nil {
		return ""
	}
	return collapseWhitespace(nodeText(params, src))
}

// cEnclosingFunction returns the name of the function a call site is nested
// in, or "" at file scope.
func cEnclosingFunction(node *sitter.Node, src []byte) string {
	for cur := node.Parent(); cur != nil; cur = cur.Parent() {
		if cur.Type() != "function_definition" {
			continue
		}
		decl := findDescendant(cur, "function_declarator")
		if decl == nil {
			return ""
		}
		if name := firstChildOfType(decl, "identifier"); name != nil {
			return nodeText(name, src)
		}
		return ""
	}
	return ""
}
