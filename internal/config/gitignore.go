// Gitignore support translates a project's .gitignore into doublestar
// glob patterns the scanner's Exclude list already knows how to apply,
// adapted from the teacher's GitignoreParser (internal/config/gitignore.go)
// down to the subset of gitignore syntax a polyglot source scan actually
// needs: comments, blank lines, directory-only patterns (trailing "/"),
// and root-anchored patterns (leading "/"). Negation (`!pattern`) lines
// are recognized and skipped rather than re-included, since doublestar's
// Exclude list has no ordered allow/deny stack to re-admit a path once a
// later pattern has excluded it — the same simplification the teacher
// documents for its own negation handling.
package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// LoadGitignorePatterns reads projectRoot/.gitignore, if present, and
// returns its patterns translated to doublestar globs. A missing
// .gitignore yields (nil, nil): RespectGitignore degrades gracefully
// rather than failing a scan.
func LoadGitignorePatterns(projectRoot string) ([]string, error) {
	f, err := os.Open(filepath.Join(projectRoot, ".gitignore"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var patterns []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		patterns = append(patterns, translateGitignoreLine(line)...)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return patterns, nil
}

// translateGitignoreLine converts one gitignore pattern line into the
// doublestar glob(s) that match the same paths: a bare entry (no
// trailing "/") can name either a file or a directory, so it yields both
// the pattern itself and pattern+"/**" to also catch everything git
// would consider "inside" it when it names a directory. A directory-only
// entry (trailing "/") yields just the "/**" form.
func translateGitignoreLine(line string) []string {
	anchored := strings.HasPrefix(line, "/")
	line = strings.TrimPrefix(line, "/")
	dirOnly := strings.HasSuffix(line, "/")
	line = strings.TrimSuffix(line, "/")

	pattern := line
	if !anchored {
		pattern = "**/" + line
	}
	if dirOnly {
		return []string{pattern + "/**"}
	}
	return []string{pattern, pattern + "/**"}
}
