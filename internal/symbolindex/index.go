// Package symbolindex builds the in-memory symbol table pass one leaves
// behind for the resolver: entities keyed by (scope, simple name), with
// hierarchical lookup up the scope chain. It is rebuilt fresh for every
// batch and discarded once the resolver pass finishes — it carries no
// state across batches, unlike the graph store.
package symbolindex

import (
	"strings"

	"github.com/standardbeagle/bmcp/internal/debug"
	"github.com/standardbeagle/bmcp/internal/graph"
	"github.com/standardbeagle/bmcp/internal/identity"
)

type key struct {
	scope string
	name  string
}

// Index maps (scope, simple name) to the entity declared there. Duplicate
// declarations are non-fatal: the later registration wins and a warning is
// logged, matching the teacher's lenient re-declaration handling.
type Index struct {
	entries map[key]*graph.Entity
}

// New builds an empty index.
func New() *Index {
	return &Index{entries: make(map[key]*graph.Entity)}
}

// Register records entity under scope using its simple (unqualified) name.
// scope is typically the entity's ParentID, or the file scope for
// top-level declarations.
func (idx *Index) Register(scope, name string, entity *graph.Entity) {
	k := key{scope: scope, name: name}
	if existing, ok := idx.entries[k]; ok && existing.CanonicalID != entity.CanonicalID {
		debug.LogResolve("duplicate declaration of %q in scope %q: %s shadows %s", name, scope, entity.CanonicalID, existing.CanonicalID)
	}
	idx.entries[k] = entity
}

// Lookup resolves name starting at scope, then walking successively
// shorter `::`-prefixed parent scopes, finally falling back to the global
// (empty-string) scope. Returns (nil, false) if nothing matches.
func (idx *Index) Lookup(scope, name string) (*graph.Entity, bool) {
	for _, s := range scopeChain(scope) {
		if e, ok := idx.entries[key{scope: s, name: name}]; ok {
			return e, true
		}
	}
	return nil, false
}

// scopeChain returns scope, then each successively shorter `::`-delimited
// prefix of scope, ending with the global scope "".
func scopeChain(scope string) []string {
	if scope == "" {
		return []string{""}
	}
	parts := strings.Split(scope, identity.Separator)
	chain := make([]string, 0, len(parts)+1)
	for i := len(parts); i > 0; i-- {
		chain = append(chain, strings.Join(parts[:i], identity.Separator))
	}
	chain = append(chain, "")
	return chain
}

// Len reports how many (scope, name) bindings are registered.
func (idx *Index) Len() int { return len(idx.entries) }
