package store

import (
	"context"
	"sync"
)

// Memory is an in-memory Store, grounded on the teacher's in-process graph
// (a mutex-guarded map indexed by file, name, and language): nodes and
// relationships are kept in maps keyed by id, with by-file indexes for
// nodes and relationships backing ListByFile. There is no by-name index.
type Memory struct {
	mu sync.RWMutex

	nodes map[string]Node
	rels  map[string]Relationship

	byFile map[string]map[string]bool // filePath -> set of node CanonicalIDs
	// relsByFile indexes relationships by the file of their source node,
	// since a relationship has no FilePath of its own.
	relsByFile map[string]map[string]bool
}

// NewMemory builds an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		nodes:      make(map[string]Node),
		rels:       make(map[string]Relationship),
		byFile:     make(map[string]map[string]bool),
		relsByFile: make(map[string]map[string]bool),
	}
}

func (m *Memory) ListByFile(_ context.Context, filePath string) ([]Node, []Relationship, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var nodes []Node
	for id := range m.byFile[filePath] {
		nodes = append(nodes, m.nodes[id])
	}
	var rels []Relationship
	for id := range m.relsByFile[filePath] {
		rels = append(rels, m.rels[id])
	}
	return nodes, rels, nil
}

func (m *Memory) UpsertNodes(_ context.Context, nodes []Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, n := range nodes {
		m.nodes[n.CanonicalID] = n
		if m.byFile[n.FilePath] == nil {
			m.byFile[n.FilePath] = make(map[string]bool)
		}
		m.byFile[n.FilePath][n.CanonicalID] = true
	}
	return nil
}

func (m *Memory) UpsertRelationships(_ context.Context, rels []Relationship) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range rels {
		m.rels[r.ID] = r
		filePath := m.nodes[r.SourceID].FilePath
		if filePath == "" {
			continue
		}
		if m.relsByFile[filePath] == nil {
			m.relsByFile[filePath] = make(map[string]bool)
		}
		m.relsByFile[filePath][r.ID] = true
	}
	return nil
}

func (m *Memory) DeleteRelationshipsByID(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range ids {
		if r, ok := m.rels[id]; ok {
			filePath := m.nodes[r.SourceID].FilePath
			if set := m.relsByFile[filePath]; set != nil {
				delete(set, id)
			}
		}
		delete(m.rels, id)
	}
	return nil
}

func (m *Memory) DeleteNodesByID(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range ids {
		n, ok := m.nodes[id]
		if ok {
			if set := m.byFile[n.FilePath]; set != nil {
				delete(set, id)
			}
		}
		delete(m.nodes, id)
	}
	return nil
}

// Len reports the total node and relationship counts, for tests.
func (m *Memory) Len() (nodes, rels int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes), len(m.rels)
}
