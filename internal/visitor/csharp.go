package visitor

import (
	"strings"

	"github.com/standardbeagle/bmcp/internal/graph"
	"github.com/standardbeagle/bmcp/internal/identity"
	"github.com/standardbeagle/bmcp/internal/workerproto"
)

// CSharpVisitor handles C# class/interface declarations, base lists,
// using directives, and method bodies. C#'s base_list grammar node mixes
// base classes and implemented interfaces with no syntactic marker
// distinguishing them (unlike `extends`/`implements` in Java or
// TypeScript) — §9's Open Question 2 settled this by emitting every
// base-list entry as IMPLEMENTS and letting the resolver's Class->EXTENDS
// promotion fix up the one that turns out to name a class.
type CSharpVisitor struct{}

func NewCSharpVisitor() *CSharpVisitor { return &CSharpVisitor{} }

func (v *CSharpVisitor) Visit(filePath, language string, source []byte, cst *workerproto.CST, opts Options) (Result, error) {
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
		"namespace_declaration":             csNamespaceHandler(&t),
		"file_scoped_namespace_declaration": csNamespaceHandler(&t),
		"class_declaration":                 csTypeHandler(graph.KindClass),
		"interface_declaration":             csTypeHandler(graph.KindInterface),
		"using_directive":                   csUsingHandler,
		"invocation_expression":             csCallHandler,
	}
	walk(c, t, 0)

	scanHintComments(c, "comment")
	return c.result, nil
}

// csNamespaceHandler covers both `namespace N { ... }` and C# 10's
// file-scoped `namespace N;` forms, grounded on the teacher's
// extractNamespaceDeclaration (csharp_extractor.go): emit a
// NamespaceDeclaration entity, a DECLARES_NAMESPACE edge from File, and
// make the namespace the current scope for every contained class or
// interface. t is a pointer back to the visitor's own table so the
// namespace's children (class_declaration, interface_declaration, nested
// namespaces) are walked with the full handler set rather than a narrowed
// one-off table.
func csNamespaceHandler(t *table) handler {
	return func(c *visitCtx, id workerproto.NodeID, n workerproto.CSTNode) bool {
		name := goChildText(c, n, "qualified_name")
		if name == "" {
			name = goChildText(c, n, "identifier")
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

func csTypeHandler(kind graph.EntityKind) handler {
	return func(c *visitCtx, id workerproto.NodeID, n workerproto.CSTNode) bool {
		name := goChildText(c, n, "identifier")
		if name == "" {
			return true
		}
		canonical := identity.MakeCanonical(c.filePath, string(kind), name, "", nil)
		c.addEntity(graph.Entity{CanonicalID: canonical, Kind: kind, Name: name, Span: spanOf(n)})

		if baseList := esChildByType(c, n, "base_list"); baseList != nil {
			forEachDescendant(c, *baseList, "identifier", func(base workerproto.CSTNode) {
				name := c.text(base)
				if name == "" {
					return
				}
				c.addRelationship(graph.RelImplements, canonical, graph.Placeholder(name))
			})
		}

		c.pushScope(canonical)
		forEachDescendant(c, n, "method_declaration", func(method workerproto.CSTNode) {
			csMethodHandler(c, method, canonical)
		})
		c.popScope()
		return false
	}
}

func csMethodHandler(c *visitCtx, n workerproto.CSTNode, containerID string) {
	name := goChildText(c, n, "identifier")
	if name == "" {
		return
	}
	canonical := identity.MakeCanonical(c.filePath, string(graph.KindMethod), name, containerID, nil)
	c.addEntity(graph.Entity{CanonicalID: canonical, Kind: graph.KindMethod, Name: name, ParentID: containerID, Span: spanOf(n)})
	c.addRelationship(graph.RelHasMethod, containerID, canonical)
	c.pushScope(canonical)
	forEachDescendant(c, n, "invocation_expression", func(call workerproto.CSTNode) {
		csCallHandler(c, 0, call)
	})
	c.popScope()
}

func csUsingHandler(c *visitCtx, id workerproto.NodeID, n workerproto.CSTNode) bool {
	name := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(c.text(n), "using"), ";"))
	name = strings.TrimSpace(name)
	if name == "" {
		return true
	}
	canonical := identity.MakeCanonical(c.filePath, string(graph.KindUsingDirective), name, "", nil)
	c.addEntity(graph.Entity{CanonicalID: canonical, Kind: graph.KindUsingDirective, Name: name, Span: spanOf(n)})
	c.addRelationship(graph.RelCSharpUsing, c.currentScope(), canonical)
	return false
}

func csCallHandler(c *visitCtx, id workerproto.NodeID, n workerproto.CSTNode) bool {
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
	c.addRelationship(graph.RelCalls, c.currentScope(), graph.Placeholder(name))
	return true
}
