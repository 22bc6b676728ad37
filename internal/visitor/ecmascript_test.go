package visitor_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/bmcp/internal/graph"
	"github.com/standardbeagle/bmcp/internal/visitor"
	"github.com/standardbeagle/bmcp/internal/workerproto"
	"github.com/standardbeagle/bmcp/testhelpers/cstbuilder"
)

// esClassCST builds program -> class_declaration(name, class_heritage,
// method_definition), exercising esClassHandler, emitClassHeritage, and
// esMethodHandler together.
func esClassCST(source, className, baseName, methodName string) *workerproto.CST {
	classStart := uint32(strings.Index(source, className))
	classEnd := classStart + uint32(len(className))
	heritageStart := uint32(strings.Index(source, "extends"))
	heritageEnd := heritageStart + uint32(len("extends "+baseName))
	methodStart := uint32(strings.Index(source, methodName))
	methodEnd := methodStart + uint32(len(methodName))

	b := cstbuilder.New()
	b.Node("program", 0, uint32(len(source)), 1, func() []workerproto.NodeID {
		class := b.Node("class_declaration", 0, uint32(len(source)), 1, func() []workerproto.NodeID {
			ident := b.Leaf("type_identifier", classStart, classEnd, 1)
			heritage := b.Leaf("class_heritage", heritageStart, heritageEnd, 1)
			method := b.Node("method_definition", methodStart, uint32(len(source)), 2, func() []workerproto.NodeID {
				propIdent := b.Leaf("property_identifier", methodStart, methodEnd, 2)
				return []workerproto.NodeID{propIdent}
			})
			return []workerproto.NodeID{ident, heritage, method}
		})
		return []workerproto.NodeID{class}
	})
	return b.Build()
}

func TestECMAScriptVisitor_ClassWithHeritageAndMethod(t *testing.T) {
	source := "class Dog extends Animal {\n  bark() {}\n}\n"
	cst := esClassCST(source, "Dog", "Animal", "bark")

	v := visitor.NewECMAScriptVisitor()
	result, err := v.Visit("/src/dog.js", "JavaScript", []byte(source), cst, visitor.Options{})
	require.NoError(t, err)

	class, ok := findEntity(result.Nodes, graph.KindClass, "Dog")
	require.True(t, ok)
	assert.True(t, findRelationship(result.Relationships, graph.RelExtends, class.CanonicalID, "Animal"))

	method, ok := findEntity(result.Nodes, graph.KindMethod, "bark")
	require.True(t, ok)
	assert.Equal(t, class.CanonicalID, method.ParentID)
	assert.True(t, findRelationship(result.Relationships, graph.RelHasMethod, class.CanonicalID, method.CanonicalID))
}

// esImportCST builds program -> import_statement -> string.
func esImportCST(source, spec string) *workerproto.CST {
	quoted := `"` + spec + `"`
	start := uint32(strings.Index(source, quoted))
	end := start + uint32(len(quoted))

	b := cstbuilder.New()
	b.Node("program", 0, uint32(len(source)), 1, func() []workerproto.NodeID {
		imp := b.Node("import_statement", 0, end, 1, func() []workerproto.NodeID {
			str := b.Leaf("string", start, end, 1)
			return []workerproto.NodeID{str}
		})
		return []workerproto.NodeID{imp}
	})
	return b.Build()
}

func TestECMAScriptVisitor_ImportStatement(t *testing.T) {
	source := `import "./util"` + "\n"
	cst := esImportCST(source, "./util")

	v := visitor.NewECMAScriptVisitor()
	result, err := v.Visit("/src/a.ts", "TypeScript", []byte(source), cst, visitor.Options{})
	require.NoError(t, err)

	imp, ok := findEntity(result.Nodes, graph.KindImport, "./util")
	require.True(t, ok)
	assert.True(t, findRelationship(result.Relationships, graph.RelImports, "", imp.CanonicalID))
}

// esRequireCST builds program -> call_expression(identifier "require",
// arguments -> string), exercising the CommonJS require() special-case in
// esCallHandler.
func esRequireCST(source, arg string) *workerproto.CST {
	calleeStart := uint32(strings.Index(source, "require"))
	calleeEnd := calleeStart + uint32(len("require"))
	quoted := `"` + arg + `"`
	argStart := uint32(strings.Index(source, quoted))
	argEnd := argStart + uint32(len(quoted))

	b := cstbuilder.New()
	b.Node("program", 0, uint32(len(source)), 1, func() []workerproto.NodeID {
		call := b.Node("call_expression", 0, uint32(len(source)), 1, func() []workerproto.NodeID {
			callee := b.Leaf("identifier", calleeStart, calleeEnd, 1)
			args := b.Node("arguments", argStart-1, argEnd+1, 1, func() []workerproto.NodeID {
				str := b.Leaf("string", argStart, argEnd, 1)
				return []workerproto.NodeID{str}
			})
			return []workerproto.NodeID{callee, args}
		})
		return []workerproto.NodeID{call}
	})
	return b.Build()
}

func TestECMAScriptVisitor_RequireCallEmitsImportNotCall(t *testing.T) {
	source := `const fs = require("fs")` + "\n"
	cst := esRequireCST(source, "fs")

	v := visitor.NewECMAScriptVisitor()
	result, err := v.Visit("/src/a.js", "JavaScript", []byte(source), cst, visitor.Options{})
	require.NoError(t, err)

	imp, ok := findEntity(result.Nodes, graph.KindImport, "fs")
	require.True(t, ok)
	assert.True(t, findRelationship(result.Relationships, graph.RelImports, "", imp.CanonicalID))
	assert.False(t, findRelationship(result.Relationships, graph.RelCalls, "", graph.Placeholder("require")))
}
