package visitor

import (
	"strings"

	"github.com/standardbeagle/bmcp/internal/graph"
	"github.com/standardbeagle/bmcp/internal/identity"
	"github.com/standardbeagle/bmcp/internal/workerproto"
)

// GoVisitor extracts entities and relationships from a Go source file's
// CST: package-level functions, methods (receiver-qualified), struct and
// interface declarations, field declarations, imports, and call
// expressions. Grounded on the teacher's Go extraction pass in
// internal/parser/parser_language_setup.go's tree-sitter query shapes.
type GoVisitor struct{}

func NewGoVisitor() *GoVisitor { return &GoVisitor{} }

func (v *GoVisitor) Visit(filePath, language string, source []byte, cst *workerproto.CST, opts Options) (Result, error) {
	c := newVisitCtx(filePath, language, source, cst, opts)

	file := fileEntity(c)
	c.addEntity(file)
	c.pushScope(file.CanonicalID)
	defer c.popScope()

	if _, ok := cst.Root(); !ok {
		scanHintComments(c, "comment")
		return c.result, nil
	}

	t := table{
		"function_declaration": goFunctionHandler,
		"method_declaration":   goMethodHandler,
		"type_declaration":     goTypeDeclarationHandler,
		"import_spec":          goImportHandler,
		"call_expression":      goCallHandler,
	}
	walk(c, t, 0)

	scanHintComments(c, "comment")
	return c.result, nil
}

func goFunctionHandler(c *visitCtx, id workerproto.NodeID, n workerproto.CSTNode) bool {
	name := goChildText(c, n, "identifier")
	if name == "" {
		return true
	}
	canonical := identity.MakeCanonical(c.filePath, string(graph.KindFunction), name, "", nil)
	c.addEntity(graph.Entity{
		CanonicalID: canonical,
		Kind:        graph.KindFunction,
		Name:        name,
		Span:        spanOf(n),
	})
	c.pushScope(canonical)
	for _, child := range n.Children {
		walkFunctionBody(c, child)
	}
	c.popScope()
	return false
}

func goMethodHandler(c *visitCtx, id workerproto.NodeID, n workerproto.CSTNode) bool {
	name := goChildText(c, n, "field_identifier")
	receiver := goReceiverType(c, n)
	if name == "" || receiver == "" {
		return true
	}
	receiverID := identity.MakeCanonical(c.filePath, string(graph.KindStruct), receiver, "", nil)
	canonical := identity.MakeCanonical(c.filePath, string(graph.KindMethod), name, receiverID, nil)
	c.addEntity(graph.Entity{
		CanonicalID: canonical,
		Kind:        graph.KindMethod,
		Name:        name,
		ParentID:    receiverID,
		Span:        spanOf(n),
	})
	c.addRelationship(graph.RelHasMethod, receiverID, canonical)
	c.pushScope(canonical)
	for _, child := range n.Children {
		walkFunctionBody(c, child)
	}
	c.popScope()
	return false
}

func goTypeDeclarationHandler(c *visitCtx, id workerproto.NodeID, n workerproto.CSTNode) bool {
	for _, childID := range n.Children {
		child, ok := c.cst.Node(childID)
		if !ok || child.Type != "type_spec" {
			continue
		}
		name := goChildText(c, child, "type_identifier")
		if name == "" {
			continue
		}
		kind := graph.KindStruct
		if hasDescendantType(c, child, "interface_type") {
			kind = graph.KindInterface
		}
		canonical := identity.MakeCanonical(c.filePath, string(kind), name, "", nil)
		c.addEntity(graph.Entity{
			CanonicalID: canonical,
			Kind:        kind,
			Name:        name,
			Span:        spanOf(child),
		})
		if kind == graph.KindStruct {
			emitFieldDeclarations(c, child, canonical)
		}
	}
	return false
}

func emitFieldDeclarations(c *visitCtx, structSpec workerproto.CSTNode, structID string) {
	forEachDescendant(c, structSpec, "field_declaration", func(field workerproto.CSTNode) {
		name := goChildText(c, field, "field_identifier")
		if name == "" {
			return
		}
		canonical := identity.MakeCanonical(c.filePath, string(graph.KindField), name, structID, nil)
		c.addEntity(graph.Entity{
			CanonicalID: canonical,
			Kind:        graph.KindField,
			Name:        name,
			ParentID:    structID,
			Span:        spanOf(field),
		})
		c.addRelationship(graph.RelHasField, structID, canonical)
	})
}

func goImportHandler(c *visitCtx, id workerproto.NodeID, n workerproto.CSTNode) bool {
	path := goChildText(c, n, "interpreted_string_literal")
	path = strings.Trim(path, `"`)
	if path == "" {
		return true
	}
	canonical := identity.MakeCanonical(c.filePath, string(graph.KindImport), path, "", nil)
	c.addEntity(graph.Entity{
		CanonicalID: canonical,
		Kind:        graph.KindImport,
		Name:        path,
		Span:        spanOf(n),
	})
	c.addRelationship(graph.RelImports, c.currentScope(), canonical)
	return true
}

func goCallHandler(c *visitCtx, id workerproto.NodeID, n workerproto.CSTNode) bool {
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

func walkFunctionBody(c *visitCtx, id workerproto.NodeID) {
	walk(c, table{"call_expression": goCallHandler}, id)
}

func goChildText(c *visitCtx, n workerproto.CSTNode, childType string) string {
	for _, childID := range n.Children {
		child, ok := c.cst.Node(childID)
		if ok && child.Type == childType {
			return c.text(child)
		}
	}
	return ""
}

func goReceiverType(c *visitCtx, n workerproto.CSTNode) string {
	for _, childID := range n.Children {
		child, ok := c.cst.Node(childID)
		if !ok || child.Type != "parameter_list" {
			continue
		}
		if name := goChildText(c, child, "type_identifier"); name != "" {
			return name
		}
		forEachDescendant(c, child, "type_identifier", func(typeNode workerproto.CSTNode) {})
	}
	return ""
}

func hasDescendantType(c *visitCtx, n workerproto.CSTNode, t string) bool {
	found := false
	forEachDescendant(c, n, t, func(workerproto.CSTNode) { found = true })
	return found
}

func forEachDescendant(c *visitCtx, n workerproto.CSTNode, t string, fn func(workerproto.CSTNode)) {
	for _, childID := range n.Children {
		child, ok := c.cst.Node(childID)
		if !ok {
			continue
		}
		if child.Type == t {
			fn(child)
		}
		forEachDescendant(c, child, t, fn)
	}
}

func spanOf(n workerproto.CSTNode) graph.Span {
	return graph.Span{StartLine: n.StartLine, EndLine: n.EndLine, StartColumn: n.StartColumn, EndColumn: n.EndColumn}
}
