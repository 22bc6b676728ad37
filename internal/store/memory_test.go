package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/bmcp/internal/store"
)

func TestMemory_UpsertAndListByFile(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, m.UpsertNodes(ctx, []store.Node{
		{CanonicalID: "a.go::Function::f", FilePath: "a.go"},
		{CanonicalID: "b.go::Function::g", FilePath: "b.go"},
	}))
	require.NoError(t, m.UpsertRelationships(ctx, []store.Relationship{
		{ID: "rel1", SourceID: "a.go::Function::f", TargetID: "b.go::Function::g"},
	}))

	nodes, rels, err := m.ListByFile(ctx, "a.go")
	require.NoError(t, err)
	assert.Len(t, nodes, 1)
	assert.Len(t, rels, 1)

	nodes, rels, err = m.ListByFile(ctx, "b.go")
	require.NoError(t, err)
	assert.Len(t, nodes, 1)
	assert.Empty(t, rels)
}

func TestMemory_DeleteNodesAndRelationships(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, m.UpsertNodes(ctx, []store.Node{{CanonicalID: "a.go::Function::f", FilePath: "a.go"}}))
	require.NoError(t, m.UpsertRelationships(ctx, []store.Relationship{
		{ID: "rel1", SourceID: "a.go::Function::f", TargetID: "x"},
	}))

	require.NoError(t, m.DeleteRelationshipsByID(ctx, []string{"rel1"}))
	require.NoError(t, m.DeleteNodesByID(ctx, []string{"a.go::Function::f"}))

	nodes, rels, err := m.ListByFile(ctx, "a.go")
	require.NoError(t, err)
	assert.Empty(t, nodes)
	assert.Empty(t, rels)

	nodeCount, relCount := m.Len()
	assert.Equal(t, 0, nodeCount)
	assert.Equal(t, 0, relCount)
}
