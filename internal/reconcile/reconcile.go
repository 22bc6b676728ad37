// Package reconcile applies one file's freshly extracted (and resolved)
// graph against what the store already holds for that file: upserting
// what's new or changed, then deleting what's gone. The apply order
// (upsert nodes, upsert relationships, delete stale relationships, delete
// stale nodes) preserves referential integrity at every intermediate step
// — a relationship is never upserted before its endpoints exist, and a
// node is never deleted while a relationship still points at it (§4.8).
package reconcile

import (
	"context"

	"github.com/standardbeagle/bmcp/internal/debug"
	bmcperrors "github.com/standardbeagle/bmcp/internal/errors"
	"github.com/standardbeagle/bmcp/internal/graph"
	"github.com/standardbeagle/bmcp/internal/store"
)

// Result reports what one Reconcile call changed, mirroring the teacher's
// FileWatcher.GetStats() shape: a small observable counter pair.
type Result struct {
	Upserted int
	Deleted  int
}

// Reconcile diffs (newNodes, newRels) against what filePath already has in
// st and applies the difference.
func Reconcile(ctx context.Context, st store.Store, filePath string, newNodes []graph.Entity, newRels []graph.Relationship) (Result, error) {
	oldNodes, oldRels, err := st.ListByFile(ctx, filePath)
	if err != nil {
		return Result{}, bmcperrors.NewStoreError("list_by_file", filePath, err)
	}

	storeNodes := make([]store.Node, len(newNodes))
	for i, n := range newNodes {
		storeNodes[i] = toStoreNode(n)
	}
	storeRels := make([]store.Relationship, len(newRels))
	for i, r := range newRels {
		storeRels[i] = toStoreRelationship(r)
	}

	newNodeIDs := idSet(storeNodes, func(n store.Node) string { return n.CanonicalID })
	newRelIDs := idSet(storeRels, func(r store.Relationship) string { return r.ID })

	var deleteRelIDs []string
	for _, r := range oldRels {
		if !newRelIDs[r.ID] {
			deleteRelIDs = append(deleteRelIDs, r.ID)
		}
	}
	var deleteNodeIDs []string
	for _, n := range oldNodes {
		if !newNodeIDs[n.CanonicalID] {
			deleteNodeIDs = append(deleteNodeIDs, n.CanonicalID)
		}
	}

	if len(storeNodes) > 0 {
		if err := st.UpsertNodes(ctx, storeNodes); err != nil {
			return Result{}, bmcperrors.NewStoreError("upsert_nodes", filePath, err)
		}
	}
	if len(storeRels) > 0 {
		if err := st.UpsertRelationships(ctx, storeRels); err != nil {
			return Result{}, bmcperrors.NewStoreError("upsert_relationships", filePath, err)
		}
	}
	if len(deleteRelIDs) > 0 {
		if err := st.DeleteRelationshipsByID(ctx, deleteRelIDs); err != nil {
			return Result{}, bmcperrors.NewStoreError("delete_relationships", filePath, err)
		}
	}
	if len(deleteNodeIDs) > 0 {
		if err := st.DeleteNodesByID(ctx, deleteNodeIDs); err != nil {
			return Result{}, bmcperrors.NewStoreError("delete_nodes", filePath, err)
		}
	}

	result := Result{
		Upserted: len(storeNodes) + len(storeRels),
		Deleted:  len(deleteNodeIDs) + len(deleteRelIDs),
	}
	debug.LogReconcile("%s: upserted=%d deleted=%d", filePath, result.Upserted, result.Deleted)
	return result, nil
}

func idSet[T any](items []T, id func(T) string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[id(item)] = true
	}
	return set
}

func toStoreNode(e graph.Entity) store.Node {
	return store.Node{
		CanonicalID: e.CanonicalID,
		GID:         e.GID,
		Kind:        string(e.Kind),
		Name:        e.Name,
		FilePath:    e.FilePath,
		Language:    e.Language,
		ParentID:    e.ParentID,
		Attributes:  e.Attributes,
	}
}

func toStoreRelationship(r graph.Relationship) store.Relationship {
	return store.Relationship{
		ID:         r.ID,
		Kind:       string(r.Kind),
		SourceID:   r.SourceID,
		TargetID:   r.TargetID,
		Weight:     r.Weight,
		Properties: r.Properties,
	}
}
