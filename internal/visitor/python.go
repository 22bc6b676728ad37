package visitor

import (
	"strings"

	"github.com/standardbeagle/bmcp/internal/graph"
	"github.com/standardbeagle/bmcp/internal/identity"
	"github.com/standardbeagle/bmcp/internal/workerproto"
)

// PythonVisitor extracts entities and relationships from a Python source
// file's CST: module-level and nested function definitions (methods when
// inside a class body), class definitions with their base-class list,
// import/from-import statements, and call expressions. Grounded on the
// teacher's internal/symbollinker/python_extractor.go, which walks the
// same tree-sitter-python node vocabulary (function_definition,
// class_definition, import_statement, import_from_statement, call) with a
// scope-manager push/pop per def/class, generalized here onto this
// system's shared table-driven visitCtx instead of the teacher's
// ScopeManager.
type PythonVisitor struct{}

func NewPythonVisitor() *PythonVisitor { return &PythonVisitor{} }

func (v *PythonVisitor) Visit(filePath, language string, source []byte, cst *workerproto.CST, opts Options) (Result, error) {
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
		"function_definition":   pyFunctionHandler,
		"class_definition":      pyClassHandler,
		"import_statement":      pyImportHandler,
		"import_from_statement": pyImportFromHandler,
		"call":                  pyCallHandler,
	}
	walk(c, t, 0)

	scanHintComments(c, "comment")
	return c.result, nil
}

// pyInClass reports whether the current innermost scope was pushed by
// pyClassHandler, by checking whether any entity already emitted for that
// canonical id has KindClass. Rather than threading a parallel "current
// container kind" stack (visitCtx keeps only scope ids), this walks the
// already-accumulated nodes once per
// function definition, which is cheap since a file's class count is small.
func pyInClass(c *visitCtx) (string, bool) {
	scope := c.currentScope()
	for i := len(c.result.Nodes) - 1; i >= 0; i-- {
		if c.result.Nodes[i].CanonicalID == scope {
			return scope, c.result.Nodes[i].Kind == graph.KindClass
		}
	}
	return scope, false
}

func pyFunctionHandler(c *visitCtx, id workerproto.NodeID, n workerproto.CSTNode) bool {
	name := goChildText(c, n, "identifier")
	if name == "" {
		return true
	}
	containerID, inClass := pyInClass(c)
	kind := graph.KindFunction
	parent := ""
	if inClass {
		kind = graph.KindMethod
		parent = containerID
	}
	canonical := identity.MakeCanonical(c.filePath, string(kind), name, parent, nil)
	c.addEntity(graph.Entity{
		CanonicalID: canonical,
		Kind:        kind,
		Name:        name,
		ParentID:    parent,
		Span:        spanOf(n),
	})
	if inClass {
		c.addRelationship(graph.RelHasMethod, containerID, canonical)
	}

	c.pushScope(canonical)
	for _, child := range n.Children {
		walk(c, table{
			"call":                pyCallHandler,
			"function_definition": pyFunctionHandler,
		}, child)
	}
	c.popScope()
	return false
}

func pyClassHandler(c *visitCtx, id workerproto.NodeID, n workerproto.CSTNode) bool {
	name := goChildText(c, n, "identifier")
	if name == "" {
		return true
	}
	canonical := identity.MakeCanonical(c.filePath, string(graph.KindClass), name, "", nil)
	c.addEntity(graph.Entity{CanonicalID: canonical, Kind: graph.KindClass, Name: name, Span: spanOf(n)})

	if argList := esChildByType(c, n, "argument_list"); argList != nil {
		forEachDescendant(c, *argList, "identifier", func(base workerproto.CSTNode) {
			baseName := c.text(base)
			if baseName == "" {
				return
			}
			c.addRelationship(graph.RelExtends, canonical, graph.Placeholder(baseName))
		})
	}

	c.pushScope(canonical)
	for _, child := range n.Children {
		walk(c, table{
			"function_definition": pyFunctionHandler,
			"class_definition":    pyClassHandler,
		}, child)
	}
	c.popScope()
	return false
}

func pyImportHandler(c *visitCtx, id workerproto.NodeID, n workerproto.CSTNode) bool {
	name := goChildText(c, n, "dotted_name")
	if name == "" {
		name = goChildText(c, n, "identifier")
	}
	if name == "" {
		return true
	}
	canonical := identity.MakeCanonical(c.filePath, string(graph.KindImport), name, "", nil)
	c.addEntity(graph.Entity{CanonicalID: canonical, Kind: graph.KindImport, Name: name, Span: spanOf(n)})
	c.addRelationship(graph.RelImports, c.currentScope(), canonical)
	return false
}

func pyImportFromHandler(c *visitCtx, id workerproto.NodeID, n workerproto.CSTNode) bool {
	module := goChildText(c, n, "dotted_name")
	if module == "" {
		module = goChildText(c, n, "relative_import")
	}
	if module == "" {
		return true
	}
	canonical := identity.MakeCanonical(c.filePath, string(graph.KindImport), module, "", nil)
	c.addEntity(graph.Entity{
		CanonicalID: canonical,
		Kind:        graph.KindImport,
		Name:        module,
		Span:        spanOf(n),
		Attributes:  map[string]any{"fromImport": true},
	})
	c.addRelationship(graph.RelImports, c.currentScope(), canonical)
	return false
}

func pyCallHandler(c *visitCtx, id workerproto.NodeID, n workerproto.CSTNode) bool {
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
	name = strings.TrimSpace(name)
	c.addRelationship(graph.RelCalls, c.currentScope(), graph.Placeholder(name))
	return true
}
