// Package identity derives the two stable identifiers every graph entity
// carries: a human-readable canonical id and a short cryptographic-hash
// global id (gid). Both operations are pure and safe for concurrent use,
// matching the teacher's idcodec package contract of side-effect-free,
// thread-safe encode/decode helpers.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/bmcp/internal/idcodec"
)

// Separator joins canonical-id and scope-id segments.
const Separator = "::"

// sanitize works rune-by-rune rather than via regexp: the allowed
// set is small and fixed, and per-rune inspection avoids pulling in
// regexp for a one-character-class check on every identifier segment.
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '$':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// NormalizePath rewrites platform path separators to '/', matching §3's
// requirement that canonical ids be insensitive to platform separators.
func NormalizePath(path string) string {
	return filepath.ToSlash(path)
}

// MakeCanonical builds the `[<parent>::]<Kind>::<name>[(p1,p2)]` canonical
// identity grammar rooted at the normalized file path. kind is a graph
// EntityKind string; paramTypes, when non-empty, are rendered as raw,
// comma-joined type text in declaration order.
func MakeCanonical(file, kind, name string, parent string, paramTypes []string) string {
	file = NormalizePath(file)
	segment := sanitize(kind) + Separator + sanitize(name)
	if len(paramTypes) > 0 {
		segment += "(" + strings.Join(paramTypes, ",") + ")"
	}
	if parent != "" {
		return parent + Separator + segment
	}
	return file + Separator + segment
}

// MakeScopeID builds a `::`-joined chain from free-form parts, using the
// same grammar as canonical ids. It is how the symbol index and visitors
// name lexical scopes (file scope, namespace scope, container scope, ...).
func MakeScopeID(parts ...string) string {
	sanitized := make([]string, len(parts))
	for i, p := range parts {
		sanitized[i] = sanitize(p)
	}
	return strings.Join(sanitized, Separator)
}

// defaultLanguagePrefix maps a language tag to its gid prefix. The two
// variants of the TypeScript bundle get distinct prefixes ("ts", "tsx");
// SQL/HTML/CSS get their own 2-3 char tags per §3.
var defaultLanguagePrefix = map[string]string{
	"typescript": "ts",
	"tsx":        "tsx",
	"javascript": "js",
	"python":     "py",
	"sql":        "sql",
	"go":         "go",
	"java":       "jav",
	"csharp":     "cs",
	"c":          "c",
	"cpp":        "cpp",
	"html":       "htm",
	"css":        "css",
	"zig":        "zig",
}

// extensionLanguagePrefix is the fallback path when no explicit language
// tag is supplied: resolve a prefix from the file extension.
var extensionLanguagePrefix = map[string]string{
	".ts":   "ts",
	".tsx":  "tsx",
	".js":   "js",
	".jsx":  "js",
	".mjs":  "js",
	".py":   "py",
	".sql":  "sql",
	".go":   "go",
	".java": "jav",
	".cs":   "cs",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".cc":   "cpp",
	".hpp":  "cpp",
	".html": "htm",
	".htm":  "htm",
	".css":  "css",
	".zig":  "zig",
}

// DefaultLanguagePrefix is used when neither an explicit language tag nor
// a recognized extension is available.
const DefaultLanguagePrefix = "unk"

// LanguagePrefix resolves the gid language prefix: explicit language tag
// first, then file extension, then the default.
func LanguagePrefix(language, filePath string) string {
	if language != "" {
		if p, ok := defaultLanguagePrefix[strings.ToLower(language)]; ok {
			return p
		}
	}
	ext := strings.ToLower(filepath.Ext(filePath))
	if p, ok := extensionLanguagePrefix[ext]; ok {
		return p
	}
	return DefaultLanguagePrefix
}

// gidHexChars is the number of lowercase hex characters carried from the
// leading 64 bits of the canonical id's SHA-256 digest.
const gidHexChars = 16

// MakeGID derives `<lang>_<16 lowercase hex chars>` from a canonical id and
// a resolved language prefix. It depends on nothing else: same canonical +
// same prefix always yields the same gid, on any machine.
func MakeGID(canonical, languagePrefix string) string {
	sum := sha256.Sum256([]byte(canonical))
	return fmt.Sprintf("%s_%s", languagePrefix, hex.EncodeToString(sum[:])[:gidHexChars])
}

// RelationshipID derives the deterministic identity of an edge from its
// endpoints and kind, so identical (source, target, kind) triples always
// collapse to the same relationship id across runs. §3 leaves the
// relationship-id format unspecified (unlike the gid, which is pinned to a
// cryptographic hash); this uses the non-cryptographic xxhash + base-63
// encoding the teacher uses for its own fast content hashes and compact
// ids, since nothing here needs to resist deliberate collision.
func RelationshipID(sourceID, targetID, kind string) string {
	sum := xxhash.Sum64String(sourceID + Separator + targetID + Separator + kind)
	return "rel_" + idcodec.Encode(sum)
}
