// Package scanner decides which files in a project tree are eligible for
// extraction, via a small pinned collaborator interface (§6) so the watch
// loop and the initial full-tree walk share one inclusion policy.
package scanner

import (
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/standardbeagle/bmcp/internal/grammar"
)

// Scanner decides whether path should be parsed and, if found during a
// directory walk, whether dir should be descended into at all.
type Scanner interface {
	ShouldProcess(path string) bool
	ShouldDescend(dir string) bool
}

// GlobScanner is the doublestar-backed reference implementation: exclude
// patterns win over include patterns, and a path only passes once it also
// resolves to a language the grammar registry recognizes.
type GlobScanner struct {
	Include []string
	Exclude []string
}

// New builds a GlobScanner from include/exclude glob pattern lists.
func New(include, exclude []string) *GlobScanner {
	return &GlobScanner{Include: include, Exclude: exclude}
}

// ShouldProcess reports whether path should be parsed: not excluded, and
// either covered by an include pattern (or no include patterns at all),
// and mapped to a known language by extension.
func (s *GlobScanner) ShouldProcess(path string) bool {
	clean := filepath.ToSlash(path)

	for _, pattern := range s.Exclude {
		if matched, _ := doublestar.Match(pattern, clean); matched {
			return false
		}
	}

	if len(s.Include) > 0 {
		matched := false
		for _, pattern := range s.Include {
			if ok, _ := doublestar.Match(pattern, clean); ok {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	ext := pathExt(clean)
	_, known := grammar.DetectLanguage(ext)
	return known
}

// ShouldDescend reports whether dir should be walked, applying the same
// exclude patterns used for files (a directory matching an exclude glob
// like "**/node_modules/**" is skipped entirely rather than filtered
// file-by-file).
func (s *GlobScanner) ShouldDescend(dir string) bool {
	clean := filepath.ToSlash(dir)
	for _, pattern := range s.Exclude {
		if matched, _ := doublestar.Match(pattern, clean); matched {
			return false
		}
		if matched, _ := doublestar.Match(pattern, clean+"/"); matched {
			return false
		}
	}
	return true
}

func pathExt(path string) string {
	ext := filepath.Ext(path)
	for i, r := range ext {
		if r >= 'A' && r <= 'Z' {
			ext = ext[:i] + string(r+32) + ext[i+1:]
		}
	}
	return ext
}

// Walk visits every regular file under root that scanner.ShouldProcess
// accepts, skipping directories scanner.ShouldDescend rejects.
func Walk(root string, sc Scanner, visit func(path string) error) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && !sc.ShouldDescend(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !sc.ShouldProcess(path) {
			return nil
		}
		return visit(path)
	})
}
