package lang

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

func init() {
	Register(&treeAdapter{
		name:       "python",
		extensions: []string{".py"},
		grammar:    python.GetLanguage(),
		qualifier:  pythonEnclosingClass,
		enclosing:  pythonEnclosingDef,
		isMethod: func(node *sitter.Node, src []byte) bool {
			return pythonEnclosingClass(node, src) != ""
		},
		// Python call sites carry no static argument types; overload keys
		// collapse to the bare name.
	})
}

// pythonEnclosingClass returns the name of the class a function_definition is
// nested in, handling decorated definitions, or "" for free functions.
func pythonEnclosingClass(defNode *sitter.Node, src []byte) string {
	parent := defNode.Parent()
	if parent == nil {
		return ""
	}
	cls := pythonClassOfBlock(parent)
	if cls == nil && parent.Type() == "decorated_definition" {
		cls = pythonClassOfBlock(parent.Parent())
	}
	if cls == nil {
		return ""
	}
	if name := firstChildOfType(cls, "identifier"); name != nil {
		return nodeText(name, src)
	}
	return ""
}

func pythonClassOfBlock(block *sitter.Node) *sitter.Node {
	if block == nil || block.Type() != "block" {
		return nil
	}
	if p := block.Parent(); p != nil && p.Type() == "class_definition" {
		return p
	}
	return nil
}

// pythonEnclosingDef returns the qualified name of the function containing a
// call site ("Class.method" or "func"), or "" at module top level.
func pythonEnclosingDef(node *sitter.Node, src []byte) string {
	for cur := node.Parent(); cur != nil; cur = cur.Parent() {
		if cur.Type() != "function_definition" {
			continue
		}
		name := firstChildOfType(cur, "identifier")
		if name == nil {
			return ""
		}
		funcName := nodeText(name, src)
		if cls := pythonEnclosingClass(cur, src); cls != "" {
			return cls + "." + funcName
		}
		return funcName
	}
	return ""
}
