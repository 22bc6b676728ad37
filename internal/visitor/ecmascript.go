package visitor

import (
	"strings"

	"github.com/standardbeagle/bmcp/internal/graph"
	"github.com/standardbeagle/bmcp/internal/identity"
	"github.com/standardbeagle/bmcp/internal/workerproto"
)

// ECMAScriptVisitor handles JavaScript, TypeScript, and TSX alike: their
// grammars share enough node-type vocabulary (class_declaration,
// method_definition, call_expression, import_statement) that one table
// covers all three, the same way the teacher's TypeScript setup shares a
// query family with its JavaScript one.
type ECMAScriptVisitor struct{}

func NewECMAScriptVisitor() *ECMAScriptVisitor { return &ECMAScriptVisitor{} }

func (v *ECMAScriptVisitor) Visit(filePath, language string, source []byte, cst *workerproto.CST, opts Options) (Result, error) {
	c := newVisitCtx(filePath, language, source, cst, opts)

	file := fileEntity(c)
	c.addEntity(file)
	c.pushScope(file.CanonicalID)
	defer c.popScope()

	if _, ok := cst.Root(); !ok {
		scanHintComments(c, "comment")
		return c.result, nil
	}

	var t table
	t = table{
		"internal_module":      esNamespaceHandler(&t),
		"class_declaration":    esClassHandler,
		"function_declaration": esFunctionHandler,
		"method_definition":    esMethodHandler,
		"import_statement":     esImportStatementHandler,
		"call_expression":      esCallHandler,
	}
	walk(c, t, 0)

	scanHintComments(c, "comment")
	return c.result, nil
}

// esNamespaceHandler covers TypeScript's `namespace Foo { ... }` / `module
// Foo { ... }` construct, parsed by tree-sitter-typescript as an
// internal_module node. §4.5's "Namespace / module declaration" pattern
// applies here the same as it does for C#'s namespace_declaration: emit
// the entity, a DECLARES_NAMESPACE edge from File, and make it the current
// scope for everything nested inside the braces. t is a pointer back to
// the visitor's own table so nested declarations (classes, functions,
// further namespaces) resolve through the same handler set instead of a
// narrowed one, matching a plain JS/TS file's top-level table.
func esNamespaceHandler(t *table) handler {
	return func(c *visitCtx, id workerproto.NodeID, n workerproto.CSTNode) bool {
		name := goChildText(c, n, "identifier")
		if name == "" {
			name = goChildText(c, n, "nested_identifier")
		}
		if name == "" {
			return true
		}
		canonical := identity.MakeCanonical(c.filePath, string(graph.KindNamespaceDeclaration), name, "", nil)
		c.addEntity(graph.Entity{CanonicalID: canonical, Kind: graph.KindNamespaceDeclaration, Name: name, Span: spanOf(n)})
		c.addRelationship(graph.RelDeclaresNamespace, identity.NormalizePath(c.filePath), canonical)

		c.pushScope(canonical)
		for _, child := range n.Children {
			walk(c, *t, child)
		}
		c.popScope()
		return false
	}
}

func esClassHandler(c *visitCtx, id workerproto.NodeID, n workerproto.CSTNode) bool {
	name := goChildText(c, n, "type_identifier")
	if name == "" {
		name = goChildText(c, n, "identifier")
	}
	if name == "" {
		return true
	}
	canonical := identity.MakeCanonical(c.filePath, string(graph.KindClass), name, "", nil)
	c.addEntity(graph.Entity{CanonicalID: canonical, Kind: graph.KindClass, Name: name, Span: spanOf(n)})

	if heritage := esChildByType(c, n, "class_heritage"); heritage != nil {
		emitClassHeritage(c, *heritage, canonical)
	}

	c.pushScope(canonical)
	for _, child := range n.Children {
		walk(c, table{
			"method_definition": esMethodHandler,
			"call_expression":   esCallHandler,
		}, child)
	}
	c.popScope()
	return false
}

func emitClassHeritage(c *visitCtx, heritage workerproto.CSTNode, classID string) {
	text := c.text(heritage)
	switch {
	case strings.Contains(text, "extends"):
		after := strings.TrimSpace(strings.SplitN(text, "extends", 2)[1])
		base := strings.TrimSpace(strings.Fields(strings.Split(after, "implements")[0])[0])
		if base != "" {
			c.addRelationship(graph.RelExtends, classID, graph.Placeholder(base))
		}
	}
}

func esFunctionHandler(c *visitCtx, id workerproto.NodeID, n workerproto.CSTNode) bool {
	name := goChildText(c, n, "identifier")
	if name == "" {
		return true
	}
	canonical := identity.MakeCanonical(c.filePath, string(graph.KindFunction), name, "", nil)
	c.addEntity(graph.Entity{CanonicalID: canonical, Kind: graph.KindFunction, Name: name, Span: spanOf(n)})
	c.pushScope(canonical)
	for _, child := range n.Children {
		walk(c, table{"call_expression": esCallHandler}, child)
	}
	c.popScope()
	return false
}

func esMethodHandler(c *visitCtx, id workerproto.NodeID, n workerproto.CSTNode) bool {
	name := goChildText(c, n, "property_identifier")
	if name == "" {
		return true
	}
	parent := c.currentScope()
	canonical := identity.MakeCanonical(c.filePath, string(graph.KindMethod), name, parent, nil)
	c.addEntity(graph.Entity{CanonicalID: canonical, Kind: graph.KindMethod, Name: name, ParentID: parent, Span: spanOf(n)})
	c.addRelationship(graph.RelHasMethod, parent, canonical)
	c.pushScope(canonical)
	for _, child := range n.Children {
		walk(c, table{"call_expression": esCallHandler}, child)
	}
	c.popScope()
	return false
}

// esImportStatementHandler covers ES module `import` syntax. CommonJS
// `require(...)` calls are not import_statement nodes at all — they parse
// as ordinary call_expressions — so those are caught by esCallHandler
// below instead, which special-cases a callee named "require".
func esImportStatementHandler(c *visitCtx, id workerproto.NodeID, n workerproto.CSTNode) bool {
	spec := goChildText(c, n, "string")
	spec = strings.Trim(spec, `"'`)
	if spec == "" {
		return true
	}
	canonical := identity.MakeCanonical(c.filePath, string(graph.KindImport), spec, "", nil)
	c.addEntity(graph.Entity{CanonicalID: canonical, Kind: graph.KindImport, Name: spec, Span: spanOf(n)})
	c.addRelationship(graph.RelImports, c.currentScope(), canonical)
	return true
}

func esCallHandler(c *visitCtx, id workerproto.NodeID, n workerproto.CSTNode) bool {
	if len(n.Children) == 0 {
		return true
	}
	callee, ok := c.cst.Node(n.Children[0])
	if !ok {
		return true
	}
	name := c.text(callee)
	if name == "" {
		return true
	}
	if name == "require" {
		arg := firstStringArgument(c, n)
		if arg != "" {
			canonical := identity.MakeCanonical(c.filePath, string(graph.KindImport), arg, "", nil)
			c.addEntity(graph.Entity{CanonicalID: canonical, Kind: graph.KindImport, Name: arg, Span: spanOf(n)})
			c.addRelationship(graph.RelImports, c.currentScope(), canonical)
		}
		return true
	}
	c.addRelationship(graph.RelCalls, c.currentScope(), graph.Placeholder(name))
	return true
}

func firstStringArgument(c *visitCtx, call workerproto.CSTNode) string {
	for _, childID := range call.Children {
		child, ok := c.cst.Node(childID)
		if !ok || child.Type != "arguments" {
			continue
		}
		for _, argID := range child.Children {
			arg, ok := c.cst.Node(argID)
			if ok && (arg.Type == "string" || arg.Type == "template_string") {
				return strings.Trim(c.text(arg), `"'`+"`")
			}
		}
	}
	return ""
}

func esChildByType(c *visitCtx, n workerproto.CSTNode, t string) *workerproto.CSTNode {
	for _, childID := range n.Children {
		if child, ok := c.cst.Node(childID); ok && child.Type == t {
			return &child
		}
	}
	return nil
}
