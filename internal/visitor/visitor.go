// Package visitor turns one file's serialized CST into graph entities and
// relationships. Each language gets its own visitor built from a node-type
// -> handler function table rather than a type-switch tree, following
// Design Notes §9's guidance to model dynamic per-kind dispatch as a table
// instead of a growing switch; the table-driven shape itself is grounded
// on the teacher's ExtractorRegistry (register-by-language, lookup-by-
// node-type) in internal/symbollinker/extractor.go.
package visitor

import (
	"strings"
	"time"

	"github.com/standardbeagle/bmcp/internal/graph"
	"github.com/standardbeagle/bmcp/internal/identity"
	"github.com/standardbeagle/bmcp/internal/workerproto"
)

// Options parametrizes a visit. AttributeHintsToNearestEntity controls
// where a `bmcp:` hint comment's manual edge is attributed: to the File
// entity (false, the default settled by Open Question 1) or to the
// innermost declaration enclosing the comment (true).
type Options struct {
	AttributeHintsToNearestEntity bool
}

// Result is one file's extracted, not-yet-resolved graph.
type Result struct {
	Nodes         []graph.Entity
	Relationships []graph.Relationship
}

// LanguageVisitor extracts entities and relationships from one file's CST.
type LanguageVisitor interface {
	Visit(filePath, language string, source []byte, cst *workerproto.CST, opts Options) (Result, error)
}

// Registry looks up a LanguageVisitor by language tag.
type Registry struct {
	visitors map[string]LanguageVisitor
}

// NewRegistry wires every supported language's visitor.
func NewRegistry() *Registry {
	r := &Registry{visitors: make(map[string]LanguageVisitor)}
	r.Register("Go", NewGoVisitor())
	r.Register("JavaScript", NewECMAScriptVisitor())
	r.Register("TypeScript", NewECMAScriptVisitor())
	r.Register("TSX", NewECMAScriptVisitor())
	r.Register("CSharp", NewCSharpVisitor())
	r.Register("SQL", NewSQLVisitor())
	r.Register("HTML", NewHTMLVisitor())
	r.Register("CSS", NewCSSVisitor())
	r.Register("Python", NewPythonVisitor())
	// Java, C, C++, and Zig have loadable grammars (internal/grammar) but
	// no dedicated extraction rules yet; they still parse and still yield
	// a File entity plus hint-comment edges via the generic fallback.
	generic := NewGenericVisitor()
	r.Register("Java", generic)
	r.Register("C", generic)
	r.Register("CPP", generic)
	r.Register("Zig", generic)
	return r
}

func (r *Registry) Register(language string, v LanguageVisitor) { r.visitors[language] = v }

func (r *Registry) Get(language string) (LanguageVisitor, bool) {
	v, ok := r.visitors[language]
	return v, ok
}

// visitCtx is the shared traversal state every language visitor builds its
// table-driven handlers around: a text accessor, the current lexical-scope
// stack (file -> namespace -> container -> method), and the accumulating
// result.
type visitCtx struct {
	filePath string
	language string
	source   []byte
	cst      *workerproto.CST
	opts     Options

	scopeStack []string // canonical ids, innermost last
	result     Result
}

func newVisitCtx(filePath, language string, source []byte, cst *workerproto.CST, opts Options) *visitCtx {
	return &visitCtx{filePath: filePath, language: language, source: source, cst: cst, opts: opts}
}

// fileEntity builds the File entity every visitor emits first, with its
// span set to the whole file whenever a root node exists (§4.5: "its span
// is updated to the whole file when the root exit is seen" — here set up
// front from the root's own bounds rather than patched in on exit, since
// the root's span is already known before the walk starts).
func fileEntity(c *visitCtx) graph.Entity {
	e := graph.Entity{CanonicalID: identity.NormalizePath(c.filePath), Kind: graph.KindFile, Name: c.filePath}
	if root, ok := c.cst.Root(); ok {
		e.Span = spanOf(root)
	}
	return e
}

func (c *visitCtx) text(n workerproto.CSTNode) string {
	if int(n.EndByte) > len(c.source) || n.StartByte > n.EndByte {
		return ""
	}
	return string(c.source[n.StartByte:n.EndByte])
}

func (c *visitCtx) currentScope() string {
	if len(c.scopeStack) == 0 {
		return identity.NormalizePath(c.filePath)
	}
	return c.scopeStack[len(c.scopeStack)-1]
}

func (c *visitCtx) pushScope(id string) { c.scopeStack = append(c.scopeStack, id) }
func (c *visitCtx) popScope()           { c.scopeStack = c.scopeStack[:len(c.scopeStack)-1] }

func (c *visitCtx) addEntity(e graph.Entity) {
	e.FilePath = identity.NormalizePath(c.filePath)
	e.Language = c.language
	if e.ParentID == "" {
		e.ParentID = c.currentScope()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if e.GID == "" {
		e.GID = identity.MakeGID(e.CanonicalID, identity.LanguagePrefix(c.language, c.filePath))
	}
	c.result.Nodes = append(c.result.Nodes, e)
}

func (c *visitCtx) addRelationship(kind graph.RelationshipKind, sourceID, targetID string) {
	c.result.Relationships = append(c.result.Relationships, graph.Relationship{
		ID:       identity.RelationshipID(sourceID, targetID, string(kind)),
		Kind:     kind,
		SourceID: sourceID,
		TargetID: targetID,
	})
}

// handler processes one visited node; returning false stops the walker
// from descending into this node's children (used when a handler already
// consumed the subtree itself, e.g. a declaration walking its own body).
type handler func(c *visitCtx, id workerproto.NodeID, n workerproto.CSTNode) bool

// table is a node-type -> handler function table, the per-language
// dispatch mechanism every visitor builds.
type table map[string]handler

// walk depth-first visits id and its children, invoking t[n.Type] when
// present. Node types with no registered handler are simply descended
// into, matching the teacher's ASTTraversal default of "keep going".
func walk(c *visitCtx, t table, id workerproto.NodeID) {
	n, ok := c.cst.Node(id)
	if !ok {
		return
	}
	descend := true
	if h, ok := t[n.Type]; ok {
		descend = h(c, id, n)
	}
	if !descend {
		return
	}
	for _, child := range n.Children {
		walk(c, t, child)
	}
}

// scanHintComments finds `bmcp:(call-target|imports|uses-type) <target>`
// single-line comments in source and emits a manual placeholder edge for
// each, attributed per opts.AttributeHintsToNearestEntity (§4.6).
func scanHintComments(c *visitCtx, commentNodeType string) {
	lines := strings.Split(string(c.source), "\n")
	for i, line := range lines {
		idx := strings.Index(line, "bmcp:")
		if idx < 0 {
			continue
		}
		rest := strings.TrimSpace(line[idx+len("bmcp:"):])
		fields := strings.SplitN(rest, " ", 2)
		if len(fields) != 2 {
			continue
		}
		kind, target := fields[0], strings.TrimSpace(fields[1])
		if target == "" {
			continue
		}

		var relKind graph.RelationshipKind
		switch kind {
		case "call-target":
			relKind = graph.RelCalls
		case "imports":
			relKind = graph.RelImports
		case "uses-type":
			relKind = graph.RelUsesType
		default:
			continue
		}

		source := identity.NormalizePath(c.filePath)
		if c.opts.AttributeHintsToNearestEntity {
			bestSize := -1
			for _, e := range c.result.Nodes {
				if e.Kind == graph.KindFile || e.Span.StartLine > i+1 || e.Span.EndLine < i+1 {
					continue
				}
				if size := e.Span.EndLine - e.Span.StartLine; bestSize < 0 || size <= bestSize {
					bestSize, source = size, e.CanonicalID
				}
			}
		}
		rel := graph.Relationship{
			ID:       identity.RelationshipID(source, graph.Placeholder(target), string(relKind)),
			Kind:     relKind,
			SourceID: source,
			TargetID: graph.Placeholder(target),
			Properties: map[string]any{
				"manual_hint": true,
				"source_line": i + 1,
			},
		}
		c.result.Relationships = append(c.result.Relationships, rel)
	}
}
