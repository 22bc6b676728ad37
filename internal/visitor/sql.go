package visitor

import (
	"strconv"

	"github.com/standardbeagle/bmcp/internal/graph"
	"github.com/standardbeagle/bmcp/internal/identity"
	"github.com/standardbeagle/bmcp/internal/workerproto"
)

// SQLVisitor extracts table/column definitions and view/DML statement
// text. It does not resolve REFERENCES itself — each statement or view
// entity carries its raw text under Attributes["query_text"], and
// resolver.ResolveSQLReferences does the bare-identifier scan against
// known table/view names once the whole batch's symbol index exists.
type SQLVisitor struct{}

func NewSQLVisitor() *SQLVisitor { return &SQLVisitor{} }

func (v *SQLVisitor) Visit(filePath, language string, source []byte, cst *workerproto.CST, opts Options) (Result, error) {
	c := newVisitCtx(filePath, language, source, cst, opts)

	file := fileEntity(c)
	c.addEntity(file)
	c.pushScope(file.CanonicalID)
	defer c.popScope()

	if _, ok := cst.Root(); !ok {
		return c.result, nil
	}

	t := table{
		"create_table":     sqlCreateTableHandler,
		"create_view":      sqlCreateViewHandler,
		"select_statement": sqlStatementHandler(graph.KindSQLSelectStatement),
		"insert_statement": sqlStatementHandler(graph.KindSQLInsertStatement),
		"update_statement": sqlStatementHandler(graph.KindSQLUpdateStatement),
		"delete_statement": sqlStatementHandler(graph.KindSQLDeleteStatement),
	}
	walk(c, t, 0)
	return c.result, nil
}

func sqlCreateTableHandler(c *visitCtx, id workerproto.NodeID, n workerproto.CSTNode) bool {
	name := sqlIdentifier(c, n)
	if name == "" {
		return true
	}
	canonical := identity.MakeCanonical(c.filePath, string(graph.KindSQLTable), name, "", nil)
	c.addEntity(graph.Entity{CanonicalID: canonical, Kind: graph.KindSQLTable, Name: name, Span: spanOf(n)})

	forEachDescendant(c, n, "column_definition", func(col workerproto.CSTNode) {
		colName := sqlIdentifier(c, col)
		if colName == "" {
			return
		}
		colID := identity.MakeCanonical(c.filePath, string(graph.KindSQLColumn), colName, canonical, nil)
		c.addEntity(graph.Entity{CanonicalID: colID, Kind: graph.KindSQLColumn, Name: colName, ParentID: canonical, Span: spanOf(col)})
		c.addRelationship(graph.RelHasColumn, canonical, colID)
	})
	return false
}

func sqlCreateViewHandler(c *visitCtx, id workerproto.NodeID, n workerproto.CSTNode) bool {
	name := sqlIdentifier(c, n)
	if name == "" {
		return true
	}
	canonical := identity.MakeCanonical(c.filePath, string(graph.KindSQLView), name, "", nil)
	c.addEntity(graph.Entity{
		CanonicalID: canonical,
		Kind:        graph.KindSQLView,
		Name:        name,
		Span:        spanOf(n),
		Attributes:  map[string]any{"query_text": c.text(n)},
	})
	c.addRelationship(graph.RelDefinesView, c.currentScope(), canonical)
	return false
}

func sqlStatementHandler(kind graph.EntityKind) handler {
	return func(c *visitCtx, id workerproto.NodeID, n workerproto.CSTNode) bool {
		canonical := identity.MakeCanonical(c.filePath, string(kind), spanLabel(n), "", nil)
		c.addEntity(graph.Entity{
			CanonicalID: canonical,
			Kind:        kind,
			Name:        spanLabel(n),
			Span:        spanOf(n),
			Attributes:  map[string]any{"query_text": c.text(n)},
		})
		return false
	}
}

func sqlIdentifier(c *visitCtx, n workerproto.CSTNode) string {
	if name := goChildText(c, n, "identifier"); name != "" {
		return name
	}
	if name := goChildText(c, n, "object_reference"); name != "" {
		return name
	}
	return ""
}

func spanLabel(n workerproto.CSTNode) string {
	return "stmt@" + strconv.Itoa(n.StartLine)
}
