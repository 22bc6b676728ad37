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

// csClassCST builds compilation_unit -> class_declaration(identifier,
// base_list -> identifier, method_declaration -> identifier).
func csClassCST(source, className, baseName, methodName string) *workerproto.CST {
	classStart := uint32(strings.Index(source, className))
	classEnd := classStart + uint32(len(className))
	baseStart := uint32(strings.Index(source, baseName))
	baseEnd := baseStart + uint32(len(baseName))
	methodStart := uint32(strings.Index(source, methodName))
	methodEnd := methodStart + uint32(len(methodName))

	b := cstbuilder.New()
	b.Node("compilation_unit", 0, uint32(len(source)), 1, func() []workerproto.NodeID {
		class := b.Node("class_declaration", 0, uint32(len(source)), 1, func() []workerproto.NodeID {
			ident := b.Leaf("identifier", classStart, classEnd, 1)
			baseList := b.Node("base_list", baseStart-1, baseEnd+1, 1, func() []workerproto.NodeID {
				baseIdent := b.Leaf("identifier", baseStart, baseEnd, 1)
				return []workerproto.NodeID{baseIdent}
			})
			method := b.Node("method_declaration", methodStart, uint32(len(source)), 2, func() []workerproto.NodeID {
				methodIdent := b.Leaf("identifier", methodStart, methodEnd, 2)
				return []workerproto.NodeID{methodIdent}
			})
			return []workerproto.NodeID{ident, baseList, method}
		})
		return []workerproto.NodeID{class}
	})
	return b.Build()
}

func TestCSharpVisitor_ClassWithBaseListAndMethod(t *testing.T) {
	source := "class Dog : Animal {\n  void Bark() {}\n}\n"
	cst := csClassCST(source, "Dog", "Animal", "Bark")

	v := visitor.NewCSharpVisitor()
	result, err := v.Visit("/src/Dog.cs", "CSharp", []byte(source), cst, visitor.Options{})
	require.NoError(t, err)

	class, ok := findEntity(result.Nodes, graph.KindClass, "Dog")
	require.True(t, ok)

	// Every base_list entry is emitted as IMPLEMENTS regardless of whether
	// it names a base class or an interface; promoting a class target to
	// EXTENDS is the resolver's job, not the visitor's.
	assert.True(t, findRelationship(result.Relationships, graph.RelImplements, class.CanonicalID, "Animal"))

	method, ok := findEntity(result.Nodes, graph.KindMethod, "Bark")
	require.True(t, ok)
	assert.Equal(t, class.CanonicalID, method.ParentID)
	assert.True(t, findRelationship(result.Relationships, graph.RelHasMethod, class.CanonicalID, method.CanonicalID))
}

// csUsingCST builds compilation_unit -> using_directive spanning the whole
// "using System;" statement, matching csUsingHandler's text-trim approach.
func csUsingCST(source string) *workerproto.CST {
	start := uint32(strings.Index(source, "using"))
	end := start + uint32(len("using System;"))

	b := cstbuilder.New()
	b.Node("compilation_unit", 0, uint32(len(source)), 1, func() []workerproto.NodeID {
		using := b.Leaf("using_directive", start, end, 1)
		return []workerproto.NodeID{using}
	})
	return b.Build()
}

func TestCSharpVisitor_UsingDirective(t *testing.T) {
	source := "using System;\n"
	cst := csUsingCST(source)

	v := visitor.NewCSharpVisitor()
	result, err := v.Visit("/src/Program.cs", "CSharp", []byte(source), cst, visitor.Options{})
	require.NoError(t, err)

	using, ok := findEntity(result.Nodes, graph.KindUsingDirective, "System")
	require.True(t, ok)
	assert.True(t, findRelationship(result.Relationships, graph.RelCSharpUsing, "", using.CanonicalID))
}
