package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// ClassInfo describes a module-level class definition: its name, the
// superclasses listed in its header and the methods defined in its body.
type ClassInfo struct {
	Name         string
	Line         uint32 // 1-based line of the class keyword
	Superclasses []string
	Methods      []string
}

// ExtractClasses returns the module-level classes of a parsed Python module
// in source order. Nested classes are not reported.
//
// Superclasses are taken verbatim from the header argument list: plain names
// and dotted names ("unittest.TestCase"). Keyword arguments (metaclass=...)
// and splats are not superclasses and are ignored.
func ExtractClasses(result *ParseResult) []ClassInfo {
	if result == nil || result.Tree == nil || result.Language != LangPython {
		return nil
	}

	root := result.Tree.RootNode()
	var classes []ClassInfo
	for i := range int(root.NamedChildCount()) {
		node := unwrapDecorated(root.NamedChild(i))
		if node == nil || node.Type() != "class_definition" {
			continue
		}
		if cls := extractClass(node, result.Source); cls != nil {
			classes = append(classes, *cls)
		}
	}
	return classes
}

func extractClass(node *sitter.Node, source []byte) *ClassInfo {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}

	cls := &ClassInfo{
		Name: GetNodeText(nameNode, source),
		Line: node.StartPoint().Row + 1,
	}

	if args := node.ChildByFieldName("superclasses"); args != nil {
		for j := range int(args.NamedChildCount()) {
			arg := args.NamedChild(j)
			switch arg.Type() {
			case "identifier", "attribute":
				cls.Superclasses = append(cls.Superclasses, compactName(GetNodeText(arg, source)))
			}
		}
	}

	if body := node.ChildByFieldName("body"); body != nil {
		for j := range int(body.NamedChildCount()) {
			stmt := unwrapDecorated(body.NamedChild(j))
			if stmt == nil || stmt.Type() != "function_definition" {
				continue
			}
			if fnName := stmt.ChildByFieldName("name"); fnName != nil {
				cls.Methods = append(cls.Methods, GetNodeText(fnName, source))
			}
		}
	}

	return cls
}

// unwrapDecorated returns the definition wrapped by a decorated_definition,
// or the node itself.
func unwrapDecorated(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	if node.Type() == "decorated_definition" {
		return node.ChildByFieldName("definition")
	}
	return node
}

// compactName drops whitespace inside dotted names split across lines.
func compactName(s string) string {
	return strings.Join(strings.Fields(s), "")
}
