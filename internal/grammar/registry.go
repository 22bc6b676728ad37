// Package grammar maps a detected language to a concrete tree-sitter
// grammar handle (§4.2). Grammars are loaded lazily on first use and
// cached for the process lifetime; a compound package that bundles
// variants (TypeScript/TSX) is indexed by a (package, variant) pair.
package grammar

import (
	"fmt"
	"sync"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
	tree_sitter_css "github.com/tree-sitter/tree-sitter-css/bindings/go"
	tree_sitter_csharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_html "github.com/tree-sitter/tree-sitter-html/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_sql "github.com/DerekStride/tree-sitter-sql/bindings/go"
	typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
	tree_sitter_zig "github.com/tree-sitter-grammars/tree-sitter-zig/bindings/go"
)

// Language is the closed set of language tags the registry understands,
// matching §4.2's enumeration.
type Language string

const (
	TypeScript Language = "TypeScript"
	JavaScript Language = "JavaScript"
	TSX        Language = "TSX"
	Python     Language = "Python"
	SQL        Language = "SQL"
	Go         Language = "Go"
	Java       Language = "Java"
	CSharp     Language = "CSharp"
	C          Language = "C"
	CPP        Language = "CPP"
	HTML       Language = "HTML"
	CSS        Language = "CSS"
	// Zig is a community-bundle grammar, registered to exercise policy P2
	// (compound package indexed by (package, variant)) — it is the second
	// variant the "community" package family provides alongside its core
	// set, mirroring the teacher's setupCommunityParsers split.
	Zig Language = "Zig"
)

// UnavailableError is returned when a requested language has no loadable
// grammar. Kept distinct from a parse failure so callers never confuse
// "nothing to parse with" for "this file's syntax is broken".
type UnavailableError struct {
	Language Language
	Reason   string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("grammar: %s unavailable: %s", e.Language, e.Reason)
}

// loader lazily constructs the *sitter.Language for one tag.
type loader func() (*sitter.Language, error)

// Registry loads and caches grammar handles for the process lifetime (P1).
type Registry struct {
	mu      sync.Mutex
	loaders map[Language]loader
	cache   map[Language]*sitter.Language
}

// NewRegistry builds a registry with the default closed-set language
// loaders wired in. Nothing is loaded eagerly.
func NewRegistry() *Registry {
	r := &Registry{
		loaders: make(map[Language]loader),
		cache:   make(map[Language]*sitter.Language),
	}
	r.loaders[Go] = func() (*sitter.Language, error) { return sitter.NewLanguage(tree_sitter_go.Language()), nil }
	r.loaders[JavaScript] = func() (*sitter.Language, error) {
		return sitter.NewLanguage(tree_sitter_javascript.Language()), nil
	}
	r.loaders[TypeScript] = func() (*sitter.Language, error) {
		return sitter.NewLanguage(typescript.LanguageTypescript()), nil
	}
	r.loaders[TSX] = func() (*sitter.Language, error) {
		return sitter.NewLanguage(typescript.LanguageTSX()), nil
	}
	r.loaders[Python] = func() (*sitter.Language, error) {
		return sitter.NewLanguage(tree_sitter_python.Language()), nil
	}
	r.loaders[CSharp] = func() (*sitter.Language, error) {
		return sitter.NewLanguage(tree_sitter_csharp.Language()), nil
	}
	// The cpp grammar package covers both C and C++ source (the teacher's
	// setupCpp wires the same parser to .c/.h and .cpp/.cc/.hpp alike).
	r.loaders[CPP] = func() (*sitter.Language, error) { return sitter.NewLanguage(tree_sitter_cpp.Language()), nil }
	r.loaders[C] = func() (*sitter.Language, error) { return sitter.NewLanguage(tree_sitter_cpp.Language()), nil }
	r.loaders[Java] = func() (*sitter.Language, error) {
		return sitter.NewLanguage(tree_sitter_java.Language()), nil
	}
	r.loaders[SQL] = func() (*sitter.Language, error) { return sitter.NewLanguage(tree_sitter_sql.Language()), nil }
	r.loaders[HTML] = func() (*sitter.Language, error) {
		return sitter.NewLanguage(tree_sitter_html.Language()), nil
	}
	r.loaders[CSS] = func() (*sitter.Language, error) { return sitter.NewLanguage(tree_sitter_css.Language()), nil }
	r.loaders[Zig] = func() (*sitter.Language, error) { return sitter.NewLanguage(tree_sitter_zig.Language()), nil }
	return r
}

// Get returns the cached grammar handle for lang, loading it on first use.
func (r *Registry) Get(lang Language) (*sitter.Language, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.cache[lang]; ok {
		return cached, nil
	}

	load, ok := r.loaders[lang]
	if !ok {
		return nil, &UnavailableError{Language: lang, Reason: "no grammar registered for this language"}
	}

	handle, err := load()
	if err != nil || handle == nil {
		return nil, &UnavailableError{Language: lang, Reason: fmt.Sprintf("load failed: %v", err)}
	}
	r.cache[lang] = handle
	return handle, nil
}

// extensionLanguage maps a lowercase file extension to the language tag
// the registry expects. The scanner collaborator owns the allow-list;
// this is purely tag resolution for files the scanner already let through.
var extensionLanguage = map[string]Language{
	".ts":   TypeScript,
	".tsx":  TSX,
	".js":   JavaScript,
	".jsx":  JavaScript,
	".mjs":  JavaScript,
	".cjs":  JavaScript,
	".py":   Python,
	".sql":  SQL,
	".go":   Go,
	".java": Java,
	".cs":   CSharp,
	".c":    C,
	".h":    C,
	".cpp":  CPP,
	".cc":   CPP,
	".hpp":  CPP,
	".html": HTML,
	".htm":  HTML,
	".css":  CSS,
	".zig":  Zig,
}

// DetectLanguage resolves a Language tag from a file extension (including
// the leading dot). Returns ("", false) for unrecognized extensions.
func DetectLanguage(ext string) (Language, bool) {
	lang, ok := extensionLanguage[ext]
	return lang, ok
}
