package visitor_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/bmcp/internal/graph"
	"github.com/standardbeagle/bmcp/internal/visitor"
	"github.com/standardbeagle/bmcp/internal/workerproto"
	"github.com/standardbeagle/bmcp/testhelpers/cstbuilder"
)

// sqlCreateTableCST builds a program -> create_table(identifier,
// column_definition(identifier)) shape.
func sqlCreateTableCST(source, tableName, colName string) *workerproto.CST {
	tableStart := uint32(strings.Index(source, tableName))
	tableEnd := tableStart + uint32(len(tableName))
	colStart := uint32(strings.Index(source, colName))
	colEnd := colStart + uint32(len(colName))

	b := cstbuilder.New()
	b.Node("program", 0, uint32(len(source)), 1, func() []workerproto.NodeID {
		create := b.Node("create_table", 0, uint32(len(source)), 1, func() []workerproto.NodeID {
			ident := b.Leaf("identifier", tableStart, tableEnd, 1)
			col := b.Node("column_definition", colStart, colEnd+7, 1, func() []workerproto.NodeID {
				colIdent := b.Leaf("identifier", colStart, colEnd, 1)
				return []workerproto.NodeID{colIdent}
			})
			return []workerproto.NodeID{ident, col}
		})
		return []workerproto.NodeID{create}
	})
	return b.Build()
}

func TestSQLVisitor_CreateTableEmitsTableAndColumn(t *testing.T) {
	source := "CREATE TABLE users (\n  id INTEGER\n);\n"
	cst := sqlCreateTableCST(source, "users", "id")

	v := visitor.NewSQLVisitor()
	result, err := v.Visit("/src/schema.sql", "SQL", []byte(source), cst, visitor.Options{})
	require.NoError(t, err)

	table, ok := findEntity(result.Nodes, graph.KindSQLTable, "users")
	require.True(t, ok)

	col, ok := findEntity(result.Nodes, graph.KindSQLColumn, "id")
	require.True(t, ok)
	assert.Equal(t, table.CanonicalID, col.ParentID)
	assert.True(t, findRelationship(result.Relationships, graph.RelHasColumn, table.CanonicalID, col.CanonicalID))
}

// sqlCreateViewCST builds program -> create_view(identifier).
func sqlCreateViewCST(source, viewName string) *workerproto.CST {
	start := uint32(strings.Index(source, viewName))
	end := start + uint32(len(viewName))

	b := cstbuilder.New()
	b.Node("program", 0, uint32(len(source)), 1, func() []workerproto.NodeID {
		view := b.Node("create_view", 0, uint32(len(strings.TrimRight(source, "\n"))), 1, func() []workerproto.NodeID {
			ident := b.Leaf("identifier", start, end, 1)
			return []workerproto.NodeID{ident}
		})
		return []workerproto.NodeID{view}
	})
	return b.Build()
}

func TestSQLVisitor_CreateViewCarriesQueryText(t *testing.T) {
	source := "CREATE VIEW active_users AS SELECT * FROM users WHERE active;\n"
	cst := sqlCreateViewCST(source, "active_users")

	v := visitor.NewSQLVisitor()
	result, err := v.Visit("/src/view.sql", "SQL", []byte(source), cst, visitor.Options{})
	require.NoError(t, err)

	view, ok := findEntity(result.Nodes, graph.KindSQLView, "active_users")
	require.True(t, ok)
	assert.Equal(t, source[:len(source)-1], view.Attributes["query_text"])
	assert.True(t, findRelationship(result.Relationships, graph.RelDefinesView, "", view.CanonicalID))
}

func TestSQLVisitor_SelectStatementEmittedWithQueryText(t *testing.T) {
	source := "SELECT * FROM users;\n"

	b := cstbuilder.New()
	b.Node("program", 0, uint32(len(source)), 1, func() []workerproto.NodeID {
		stmt := b.Leaf("select_statement", 0, uint32(len(source)-1), 1)
		return []workerproto.NodeID{stmt}
	})
	cst := b.Build()

	v := visitor.NewSQLVisitor()
	result, err := v.Visit("/src/query.sql", "SQL", []byte(source), cst, visitor.Options{})
	require.NoError(t, err)

	stmt, ok := findEntity(result.Nodes, graph.KindSQLSelectStatement, "stmt@1")
	require.True(t, ok)
	assert.Equal(t, source[:len(source)-1], stmt.Attributes["query_text"])
}
