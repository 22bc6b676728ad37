// Package resolver implements extraction's pass two: rewriting placeholder
// relationship targets left by visitors into resolved entity ids, using the
// symbol index pass one built. Unresolved placeholders are retained, never
// dropped, with `unresolved: true` recorded in the relationship's
// properties so downstream consumers can tell "looked but didn't find" from
// "never looked".
package resolver

import (
	"regexp"
	"strings"

	"github.com/standardbeagle/bmcp/internal/debug"
	"github.com/standardbeagle/bmcp/internal/graph"
	"github.com/standardbeagle/bmcp/internal/identity"
	"github.com/standardbeagle/bmcp/internal/symbolindex"
)

// Resolver rewrites one batch's placeholder relationship targets against a
// freshly built symbol index.
type Resolver struct {
	idx  *symbolindex.Index
	byID map[string]*graph.Entity
}

// New builds a Resolver over entities, indexing them by canonical id so
// CALLS/EXTENDS/IMPLEMENTS lookups can start from the edge's source scope.
func New(entities []graph.Entity, idx *symbolindex.Index) *Resolver {
	byID := make(map[string]*graph.Entity, len(entities))
	for i := range entities {
		byID[entities[i].CanonicalID] = &entities[i]
	}
	return &Resolver{idx: idx, byID: byID}
}

// Resolve rewrites rels in place, resolving each placeholder target it can
// and marking the rest unresolved.
func (r *Resolver) Resolve(rels []graph.Relationship) {
	for i := range rels {
		rel := &rels[i]
		if !graph.IsPlaceholder(rel.TargetID) {
			continue
		}
		name := strings.TrimPrefix(rel.TargetID, graph.PlaceholderPrefix)

		switch rel.Kind {
		case graph.RelExtends, graph.RelImplements:
			r.resolveInheritance(rel, name)
		case graph.RelCalls:
			r.resolveCall(rel, name)
		case graph.RelImports, graph.RelCSharpUsing:
			r.resolveImport(rel, name)
		default:
			r.resolveGeneric(rel, name)
		}
	}
}

func (r *Resolver) scopeOf(sourceID string) string {
	if e, ok := r.byID[sourceID]; ok {
		return e.CanonicalID
	}
	return sourceID
}

// resolveInheritance resolves an EXTENDS/IMPLEMENTS placeholder. Per §4.7's
// Class->EXTENDS promotion, an IMPLEMENTS edge whose target turns out to
// name a Class (not an Interface) is rewritten to EXTENDS — most grammars
// can't tell "extends" from "implements" in a base-list without resolving
// the base name first.
func (r *Resolver) resolveInheritance(rel *graph.Relationship, name string) {
	target, ok := r.idx.Lookup(r.scopeOf(rel.SourceID), name)
	if !ok {
		markUnresolved(rel)
		return
	}
	rel.TargetID = target.CanonicalID
	if rel.Kind == graph.RelImplements && target.Kind == graph.KindClass {
		rel.Kind = graph.RelExtends
	}
	debug.LogResolve("resolved %s %s -> %s", rel.Kind, name, target.CanonicalID)
}

// resolveCall resolves a CALLS placeholder. Member-expression targets
// (`obj.method`) are split; the method's simple name is looked up first,
// falling back to the full dotted text if that fails, since many callers
// don't have enough type information to resolve the receiver.
func (r *Resolver) resolveCall(rel *graph.Relationship, name string) {
	scope := r.scopeOf(rel.SourceID)
	simple := name
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		simple = name[idx+1:]
	}
	if target, ok := r.idx.Lookup(scope, simple); ok {
		rel.TargetID = target.CanonicalID
		return
	}
	if target, ok := r.idx.Lookup(scope, name); ok {
		rel.TargetID = target.CanonicalID
		return
	}
	markUnresolved(rel)
}

func (r *Resolver) resolveImport(rel *graph.Relationship, name string) {
	if target, ok := r.idx.Lookup(r.scopeOf(rel.SourceID), name); ok {
		rel.TargetID = target.CanonicalID
		return
	}
	markUnresolved(rel)
}

func (r *Resolver) resolveGeneric(rel *graph.Relationship, name string) {
	if target, ok := r.idx.Lookup(r.scopeOf(rel.SourceID), name); ok {
		rel.TargetID = target.CanonicalID
		return
	}
	markUnresolved(rel)
}

func markUnresolved(rel *graph.Relationship) {
	if rel.Properties == nil {
		rel.Properties = make(map[string]any)
	}
	rel.Properties["unresolved"] = true
}

// identifierPattern matches bare SQL identifiers for the view/statement
// text scan below. It intentionally ignores quoting and schema-qualified
// names (`schema.table`) beyond taking the last dotted segment, matching
// the grammar-vocabulary-probing approach §9's Open Question 3 settled on:
// a best-effort lexical scan rather than a full SQL AST walk.
var identifierPattern = regexp.MustCompile(`\b[A-Za-z_][A-Za-z0-9_]*\b`)

// ResolveSQLReferences scans the query text attribute of SQL view and
// statement entities for bare identifiers matching a known table or view,
// emitting a REFERENCES relationship per match. known maps a simple table
// or view name to its canonical id.
func ResolveSQLReferences(entities []graph.Entity, known map[string]string) []graph.Relationship {
	var out []graph.Relationship
	for i := range entities {
		e := &entities[i]
		switch e.Kind {
		case graph.KindSQLView, graph.KindSQLSelectStatement, graph.KindSQLInsertStatement,
			graph.KindSQLUpdateStatement, graph.KindSQLDeleteStatement:
		default:
			continue
		}
		text, _ := e.Attributes["query_text"].(string)
		if text == "" {
			continue
		}
		seen := make(map[string]bool)
		for _, match := range identifierPattern.FindAllString(text, -1) {
			targetID, ok := known[match]
			if !ok || match == e.Name || seen[targetID] {
				continue
			}
			seen[targetID] = true
			out = append(out, graph.Relationship{
				ID:       identity.RelationshipID(e.CanonicalID, targetID, string(graph.RelReferences)),
				Kind:     graph.RelReferences,
				SourceID: e.CanonicalID,
				TargetID: targetID,
			})
		}
	}
	return out
}
