package lang

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"
)

func init() {
	Register(&treeAdapter{
		name:       "cpp",
		extensions: []string{".cpp", ".cc", ".cxx", ".hpp", ".hh"},
		grammar:    cpp.GetLanguage(),
		qualifier:  cppQualifier,
		signature:  cParameterSignature,
		enclosing:  cppEnclosingFunction,
	})
}

// cppQualifier returns the class or namespace path of a definition:
// "Foo::Bar" for out-of-line members, the class name for in-class members,
// "" for free functions.
func cppQualifier(defNode *sitter.Node, src []byte) string {
	decl := findDescendant(defNode, "function_declarator")
	if decl == nil {
		return ""
	}
	if qid := firstChildOfType(decl, "qualified_identifier"); qid != nil {
		full := nodeText(qid, src)
		if i := strings.LastIndex(full, "::"); i >= 0 {
			return full[:i]
		}
		return ""
	}
	// In-class definition or declaration: the qualifier is the enclosing
	// class name.
	for cur := defNode.Parent(); cur != nil; cur = cur.Parent() {
		if cur.Type() == "class_specifier" || cur.Type() == "struct_specifier" {
			if name := firstChildOfType(cur, "type_identifier"); name != nil {
				return nodeText(name, src)
			}
			return ""
		}
	}
	return ""
}

// cppEnclosingFunction returns the (possibly qualified) name of the function
// a call site is nested in, e.g. "Foo::bar", or "" at file scope.
func cppEnclosingFunction(node *sitter.Node, src []byte) string {
	for cur := node.Parent(); cur != nil; cur = cur.Parent() {
		if cur.Type() != "function_definition" {
			continue
		}
		decl := findDescendant(cur, "function_declarator")
		if decl == nil {
			return ""
		}
		for i := 0; i < int(decl.ChildCount()); i++ {
			c := decl.Child(i)
			switch c.Type() {
			case "identifier", "field_identifier", "qualified_identifier":
				return nodeText(c, src)
			}
		}
		return ""
	}
	return ""
}
