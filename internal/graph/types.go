// Package graph defines the typed node/relationship data model produced by
// extraction: entities, relationships, and the closed kind vocabularies that
// classify them.
package graph

import "time"

// EntityKind is the closed set of node kinds the extractor can emit.
type EntityKind string

const (
	KindFile                 EntityKind = "File"
	KindNamespaceDeclaration EntityKind = "NamespaceDeclaration"
	KindUsingDirective       EntityKind = "UsingDirective"
	KindClass                EntityKind = "Class"
	KindInterface            EntityKind = "Interface"
	KindStruct               EntityKind = "Struct"
	KindMethod               EntityKind = "Method"
	KindProperty             EntityKind = "Property"
	KindField                EntityKind = "Field"
	KindFunction             EntityKind = "Function"
	KindVariable             EntityKind = "Variable"
	KindParameter            EntityKind = "Parameter"
	KindEnum                 EntityKind = "Enum"
	KindEnumMember           EntityKind = "EnumMember"
	KindImport               EntityKind = "Import"
	KindSQLTable             EntityKind = "SQLTable"
	KindSQLColumn            EntityKind = "SQLColumn"
	KindSQLView              EntityKind = "SQLView"
	KindSQLSelectStatement   EntityKind = "SQLSelectStatement"
	KindSQLInsertStatement   EntityKind = "SQLInsertStatement"
	KindSQLUpdateStatement   EntityKind = "SQLUpdateStatement"
	KindSQLDeleteStatement   EntityKind = "SQLDeleteStatement"
	KindHTMLElement          EntityKind = "HTMLElement"
	KindHTMLAttribute        EntityKind = "HTMLAttribute"
	KindCSSRule              EntityKind = "CSSRule"
	KindCSSSelector          EntityKind = "CSSSelector"
	KindCSSProperty          EntityKind = "CSSProperty"
	KindModule               EntityKind = "Module"
	KindUnknown              EntityKind = "Unknown"
)

// RelationshipKind is the closed set of directed edge kinds.
type RelationshipKind string

const (
	RelDeclaresNamespace RelationshipKind = "DECLARES_NAMESPACE"
	RelUsesNamespace     RelationshipKind = "USES_NAMESPACE"
	RelDefinesClass      RelationshipKind = "DEFINES_CLASS"
	RelDefinesInterface  RelationshipKind = "DEFINES_INTERFACE"
	RelDefinesStruct     RelationshipKind = "DEFINES_STRUCT"
	RelExtends           RelationshipKind = "EXTENDS"
	RelImplements        RelationshipKind = "IMPLEMENTS"
	RelHasMethod         RelationshipKind = "HAS_METHOD"
	RelHasProperty       RelationshipKind = "HAS_PROPERTY"
	RelHasField          RelationshipKind = "HAS_FIELD"
	RelImports           RelationshipKind = "IMPORTS"
	RelCalls             RelationshipKind = "CALLS"
	RelReferences        RelationshipKind = "REFERENCES"
	RelDefinesTable      RelationshipKind = "DEFINES_TABLE"
	RelHasColumn         RelationshipKind = "HAS_COLUMN"
	RelDefinesView       RelationshipKind = "DEFINES_VIEW"
	RelContains          RelationshipKind = "CONTAINS"
	RelHasAttribute      RelationshipKind = "HAS_ATTRIBUTE"
	RelIncludes          RelationshipKind = "INCLUDES"
	RelStyles            RelationshipKind = "STYLES"
	RelDefines           RelationshipKind = "DEFINES"
	RelUsesType          RelationshipKind = "USES_TYPE"
	// CSharpUsing mirrors RelImports for `using` directives, kept as a
	// distinct tag so consumers can tell C# usings from other imports.
	RelCSharpUsing RelationshipKind = "CSHARP_USING"
)

// PlaceholderPrefix marks an unresolved relationship target. Resolved
// targets never carry this prefix.
const PlaceholderPrefix = "placeholder:"

// Placeholder builds a synthetic, pre-resolution target identity for name.
func Placeholder(name string) string {
	return PlaceholderPrefix + name
}

// IsPlaceholder reports whether target is an unresolved placeholder.
func IsPlaceholder(target string) bool {
	return len(target) >= len(PlaceholderPrefix) && target[:len(PlaceholderPrefix)] == PlaceholderPrefix
}

// Span is a 1-based line / 0-based column source range, inclusive on both
// ends, matching the convention the teacher's parser uses for tree-sitter
// node positions.
type Span struct {
	StartLine   int
	EndLine     int
	StartColumn int
	EndColumn   int
}

// Entity is one node in the code graph.
type Entity struct {
	CanonicalID string
	GID         string
	Kind        EntityKind
	Name        string
	FilePath    string
	Language    string
	Span        Span
	CreatedAt   time.Time
	ParentID    string // empty if this entity has no parent
	Attributes  map[string]any
}

// Relationship is one directed edge in the code graph.
type Relationship struct {
	ID         string
	Kind       RelationshipKind
	SourceID   string
	TargetID   string
	Weight     int
	Properties map[string]any
}

// Graph is the extraction output for one file (or one batch): the nodes and
// edges a visitor produced before resolution.
type Graph struct {
	Nodes         []Entity
	Relationships []Relationship
}
