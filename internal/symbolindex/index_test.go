package symbolindex_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/standardbeagle/bmcp/internal/graph"
	"github.com/standardbeagle/bmcp/internal/symbolindex"
)

func TestLookup_FindsInDeclaringScope(t *testing.T) {
	idx := symbolindex.New()
	widget := &graph.Entity{CanonicalID: "a.go::Class::Widget", Kind: graph.KindClass}
	idx.Register("a.go::Class::Widget", "Render", widget)

	got, ok := idx.Lookup("a.go::Class::Widget", "Render")

	assert.True(t, ok)
	assert.Same(t, widget, got)
}

func TestLookup_WalksParentScopeChain(t *testing.T) {
	idx := symbolindex.New()
	base := &graph.Entity{CanonicalID: "a.go::Class::Base"}
	idx.Register("a.go", "Base", base)

	got, ok := idx.Lookup("a.go::Class::Widget::Method::Render", "Base")

	assert.True(t, ok)
	assert.Same(t, base, got)
}

func TestLookup_FallsBackToGlobalScope(t *testing.T) {
	idx := symbolindex.New()
	global := &graph.Entity{CanonicalID: "::Function::helper"}
	idx.Register("", "helper", global)

	got, ok := idx.Lookup("a.go::Class::Widget", "helper")

	assert.True(t, ok)
	assert.Same(t, global, got)
}

func TestLookup_MissingReturnsFalse(t *testing.T) {
	idx := symbolindex.New()

	_, ok := idx.Lookup("a.go", "Nowhere")

	assert.False(t, ok)
}

func TestRegister_DuplicateLaterWins(t *testing.T) {
	idx := symbolindex.New()
	first := &graph.Entity{CanonicalID: "a.go::Function::f"}
	second := &graph.Entity{CanonicalID: "a.go::Function::f2"}

	idx.Register("a.go", "f", first)
	idx.Register("a.go", "f", second)

	got, ok := idx.Lookup("a.go", "f")
	assert.True(t, ok)
	assert.Same(t, second, got)
}
