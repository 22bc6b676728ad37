package visitor

import (
	"github.com/standardbeagle/bmcp/internal/workerproto"
)

// GenericVisitor handles any language whose grammar the registry can parse
// but for which no dedicated extraction rules exist yet (Java, C, C++, Zig
// today). It emits the File entity and scans hint comments, per
// the boundary case in spec.md §8: "File whose root node type is
// unexpected: visitor falls back to generic traversal and still emits the
// File node." Here the fallback is the whole language, not just an
// unrecognized root, but the contract is the same — a File node and
// manual-hint edges are never skipped even with zero grammar-specific
// handlers.
type GenericVisitor struct{}

func NewGenericVisitor() *GenericVisitor { return &GenericVisitor{} }

func (v *GenericVisitor) Visit(filePath, language string, source []byte, cst *workerproto.CST, opts Options) (Result, error) {
	c := newVisitCtx(filePath, language, source, cst, opts)

	file := fileEntity(c)
	c.addEntity(file)
	c.pushScope(file.CanonicalID)
	defer c.popScope()

	if _, ok := cst.Root(); ok {
		walk(c, table{}, 0)
	}

	scanHintComments(c, "comment")
	return c.result, nil
}
