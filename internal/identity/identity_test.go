package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMakeCanonical_File(t *testing.T) {
	got := MakeCanonical("src/app.go", "Function", "main", "", nil)
	assert.Equal(t, "src/app.go::Function::main", got)
}

func TestMakeCanonical_WindowsPathNormalized(t *testing.T) {
	got := MakeCanonical(`src\app.go`, "Function", "main", "", nil)
	assert.Equal(t, "src/app.go::Function::main", got)
}

func TestMakeCanonical_Method(t *testing.T) {
	class := MakeCanonical("src/app.go", "Class", "Widget", "", nil)
	got := MakeCanonical("src/app.go", "Method", "resize", class, []string{"int", "int"})
	assert.Equal(t, "src/app.go::Class::Widget::Method::resize(int,int)", got)
}

func TestMakeCanonical_SanitizesName(t *testing.T) {
	got := MakeCanonical("src/app.go", "Function", "do thing!", "", nil)
	assert.Equal(t, "src/app.go::Function::do_thing_", got)
}

func TestMakeCanonical_DeterministicAcrossCalls(t *testing.T) {
	a := MakeCanonical("a/b.ts", "Class", "Foo", "", nil)
	b := MakeCanonical("a/b.ts", "Class", "Foo", "", nil)
	assert.Equal(t, a, b)
}

func TestMakeGID_DeterministicAndPrefixed(t *testing.T) {
	canonical := MakeCanonical("a/b.go", "Function", "run", "", nil)
	gid1 := MakeGID(canonical, LanguagePrefix("go", "a/b.go"))
	gid2 := MakeGID(canonical, LanguagePrefix("go", "a/b.go"))
	assert.Equal(t, gid1, gid2)
	assert.Regexp(t, `^go_[0-9a-f]{16}$`, gid1)
}

func TestMakeGID_DependsOnLanguagePrefix(t *testing.T) {
	canonical := MakeCanonical("a/b", "Function", "run", "", nil)
	goGID := MakeGID(canonical, "go")
	jsGID := MakeGID(canonical, "js")
	assert.NotEqual(t, goGID, jsGID)
}

func TestLanguagePrefix_FallsBackToExtension(t *testing.T) {
	assert.Equal(t, "ts", LanguagePrefix("", "x/y.ts"))
	assert.Equal(t, "py", LanguagePrefix("", "x/y.py"))
	assert.Equal(t, DefaultLanguagePrefix, LanguagePrefix("", "x/y.unknownext"))
}

func TestMakeScopeID_JoinsAndSanitizes(t *testing.T) {
	got := MakeScopeID("global", "N", "Widget constructor")
	assert.Equal(t, "global::N::Widget_constructor", got)
}

func TestRelationshipID_Deterministic(t *testing.T) {
	a := RelationshipID("src::A", "placeholder:B", "EXTENDS")
	b := RelationshipID("src::A", "placeholder:B", "EXTENDS")
	assert.Equal(t, a, b)

	c := RelationshipID("src::A", "placeholder:B", "IMPLEMENTS")
	assert.NotEqual(t, a, c)
}
