// Package pipeline wires the four core subsystems into the two workflows
// the rest of the system exposes: a full re-analysis over a directory tree
// (§2 "Watcher/Scanner -> FileEvents -> Dispatcher -> ParserWorker(s) ->
// Visitor -> LocalGraph -> Resolver -> ResolvedGraph -> Reconciler ->
// Store") and a single-file incremental update driven by the watch loop.
// Nothing here is itself one of the four pinned subsystems; it is the
// coordinator that owns their lifetimes and calls them in the order §5
// requires: parse -> extract -> resolve -> reconcile, strictly ordered
// within one file.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/standardbeagle/bmcp/internal/debug"
	"github.com/standardbeagle/bmcp/internal/dispatcher"
	bmcperrors "github.com/standardbeagle/bmcp/internal/errors"
	"github.com/standardbeagle/bmcp/internal/graph"
	"github.com/standardbeagle/bmcp/internal/grammar"
	"github.com/standardbeagle/bmcp/internal/reconcile"
	"github.com/standardbeagle/bmcp/internal/resolver"
	"github.com/standardbeagle/bmcp/internal/scanner"
	"github.com/standardbeagle/bmcp/internal/store"
	"github.com/standardbeagle/bmcp/internal/symbolindex"
	"github.com/standardbeagle/bmcp/internal/visitor"
	"github.com/standardbeagle/bmcp/internal/workerproto"
)

// Pipeline owns the collaborators a run needs: the dispatcher for
// out-of-process parsing, the per-language visitor registry, and the
// persistent store the reconciler targets.
type Pipeline struct {
	Dispatcher *dispatcher.Dispatcher
	Visitors   *visitor.Registry
	Store      store.Store
	Options    visitor.Options
}

// New builds a Pipeline from its three collaborators.
func New(d *dispatcher.Dispatcher, visitors *visitor.Registry, st store.Store, opts visitor.Options) *Pipeline {
	return &Pipeline{Dispatcher: d, Visitors: visitors, Store: st, Options: opts}
}

// FileResult is one file's outcome within a larger batch: its extracted
// graph (pre-resolution) plus the error, if any, extraction raised. A
// FileResult with a non-nil Err carries an empty graph and must not be
// reconciled (§7: ParseFailure / ParseTimeout skip reconciliation rather
// than deleting prior good data).
type FileResult struct {
	FilePath string
	Graph    graph.Graph
	Err      error
}

// ExtractFile reads filePath from disk, dispatches it to a parser worker,
// and runs the matching language visitor over the returned CST. Detection
// failures and dispatcher errors are returned as-is so callers can apply
// §7's per-error-kind disposition.
func (p *Pipeline) ExtractFile(ctx context.Context, filePath string) (graph.Graph, error) {
	source, err := os.ReadFile(filePath)
	if err != nil {
		return graph.Graph{}, bmcperrors.NewParseFailureError(filePath, err)
	}

	ext := strings.ToLower(filepath.Ext(filePath))
	lang, ok := grammar.DetectLanguage(ext)
	if !ok {
		return graph.Graph{}, bmcperrors.NewGrammarUnavailableError(ext, "no language mapped to this extension")
	}

	v, ok := p.Visitors.Get(string(lang))
	if !ok {
		return graph.Graph{}, bmcperrors.NewGrammarUnavailableError(string(lang), "no visitor registered for this language")
	}

	cst, err := p.Dispatcher.Dispatch(ctx, workerproto.Request{
		Language: string(lang),
		FilePath: filePath,
		Source:   string(source),
		Output:   "ast",
	})
	if err != nil {
		return graph.Graph{}, err
	}

	result, err := v.Visit(filePath, string(lang), source, cst, p.Options)
	if err != nil {
		return graph.Graph{}, bmcperrors.NewParseFailureError(filePath, err)
	}
	debug.LogVisit("%s: %d nodes, %d relationships", filePath, len(result.Nodes), len(result.Relationships))
	return graph.Graph{Nodes: result.Nodes, Relationships: result.Relationships}, nil
}

// BatchResult is the outcome of resolving and reconciling one set of
// files extracted together: every file that extracted cleanly is
// reconciled against the same symbol index, so cross-file EXTENDS,
// CALLS, and IMPORTS edges within the batch can resolve (§4.6 — the
// index is rebuilt per batch and discarded once resolution finishes).
type BatchResult struct {
	Files     []FileResult
	Reconcile map[string]reconcile.Result
	Errors    []error
}

// AnalyzeTree walks root with sc, extracts every file it accepts, resolves
// placeholder relationships against the combined batch's symbol index,
// derives SQL view/statement REFERENCES edges, and reconciles each
// successfully extracted file against st. A single file's parse failure
// does not abort the run (§7); it is recorded in BatchResult.Errors and
// that file's reconciliation is skipped, preserving whatever the store
// already held for it (I4).
func (p *Pipeline) AnalyzeTree(ctx context.Context, root string, sc scanner.Scanner) (BatchResult, error) {
	var paths []string
	err := scanner.Walk(root, sc, func(path string) error {
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return BatchResult{}, fmt.Errorf("pipeline: walk %s: %w", root, err)
	}
	debug.LogIndexing("scanned %d files under %s", len(paths), root)
	return p.analyzeBatch(ctx, paths)
}

// AnalyzeFile runs the full parse -> extract -> resolve -> reconcile
// pipeline for exactly one file, the shape the watch loop's Handler
// drives for a created/modified event. The symbol index for this batch
// contains only this file's declarations, so cross-file references stay
// unresolved (marked `unresolved: true`) until a later full AnalyzeTree
// run — a deliberate consequence of §4.6's "no cross-batch mutable shared
// state", not a bug in the single-file path.
func (p *Pipeline) AnalyzeFile(ctx context.Context, filePath string) (reconcile.Result, error) {
	batch, err := p.analyzeBatch(ctx, []string{filePath})
	if err != nil {
		return reconcile.Result{}, err
	}
	if len(batch.Files) > 0 && batch.Files[0].Err != nil {
		return reconcile.Result{}, batch.Files[0].Err
	}
	return batch.Reconcile[filePath], nil
}

// DeleteFile reconciles filePath against an empty extraction, the path
// taken for a filesystem-deletion event (§4.9): every entity and
// relationship the store held for that file is removed, and nothing is
// upserted in its place.
func (p *Pipeline) DeleteFile(ctx context.Context, filePath string) (reconcile.Result, error) {
	return reconcile.Reconcile(ctx, p.Store, filePath, nil, nil)
}

// extractionParallelism returns the fan-out bound for a batch's extraction
// stage: workers x 2 (§5), so a worker freed by a fast file immediately
// picks up the next one instead of the pool sitting half idle.
func (p *Pipeline) extractionParallelism() int64 {
	n := p.Dispatcher.WorkerCount() * 2
	if n < 1 {
		n = 1
	}
	return int64(n)
}

func (p *Pipeline) analyzeBatch(ctx context.Context, paths []string) (BatchResult, error) {
	result := BatchResult{Reconcile: make(map[string]reconcile.Result)}

	files := make([]FileResult, len(paths))
	sem := semaphore.NewWeighted(p.extractionParallelism())
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)
			gr, err := p.ExtractFile(gctx, path)
			files[i] = FileResult{FilePath: path, Graph: gr, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BatchResult{}, fmt.Errorf("pipeline: extract batch: %w", err)
	}
	result.Files = files

	var allEntities []graph.Entity
	relsByFile := make(map[string][]graph.Relationship)
	byCanonical := make(map[string]graph.Entity)
	byGID := make(map[string]graph.Entity)
	for _, fr := range files {
		if fr.Err != nil {
			result.Errors = append(result.Errors, fr.Err)
			debug.LogIndexing("extraction failed for %s: %v", fr.FilePath, fr.Err)
			continue
		}
		for _, e := range fr.Graph.Nodes {
			// I1/I2/§7: a canonical id seen twice with a different span, or a
			// gid shared by two different canonical ids, is a batch-fatal
			// invariant violation — never silently merged.
			if prior, ok := byCanonical[e.CanonicalID]; ok && prior.Span != e.Span {
				return BatchResult{}, bmcperrors.NewInvariantError("canonical id collision across different spans", prior.CanonicalID, e.CanonicalID)
			}
			if prior, ok := byGID[e.GID]; ok && prior.CanonicalID != e.CanonicalID {
				return BatchResult{}, bmcperrors.NewInvariantError("gid collision", prior.CanonicalID, e.CanonicalID)
			}
			byCanonical[e.CanonicalID] = e
			byGID[e.GID] = e
		}
		allEntities = append(allEntities, fr.Graph.Nodes...)
		relsByFile[fr.FilePath] = fr.Graph.Relationships
	}

	idx := symbolindex.New()
	for i := range allEntities {
		e := &allEntities[i]
		if e.Name == "" {
			continue
		}
		idx.Register(e.ParentID, e.Name, e)
	}

	res := resolver.New(allEntities, idx)
	allRels := make([]graph.Relationship, 0)
	for _, rels := range relsByFile {
		allRels = append(allRels, rels...)
	}
	res.Resolve(allRels)

	known := knownSQLNames(allEntities)
	sqlRefs := resolver.ResolveSQLReferences(allEntities, known)
	allRels = append(allRels, sqlRefs...)

	// Reassemble the resolved relationships back onto their source file so
	// each can be reconciled in its own file-scoped transaction (I4), then
	// hand SQL REFERENCES edges to whichever file declared the source view
	// or statement.
	rebuilt := make(map[string][]graph.Relationship, len(relsByFile))
	fileOf := make(map[string]string, len(allEntities))
	for _, e := range allEntities {
		fileOf[e.CanonicalID] = e.FilePath
	}
	for _, rel := range allRels {
		f := fileOf[rel.SourceID]
		if f == "" {
			continue
		}
		rebuilt[f] = append(rebuilt[f], rel)
	}

	for _, fr := range result.Files {
		if fr.Err != nil {
			continue
		}
		nodes := nodesForFile(allEntities, fr.FilePath)
		rc, err := reconcile.Reconcile(ctx, p.Store, fr.FilePath, nodes, rebuilt[fr.FilePath])
		if err != nil {
			result.Errors = append(result.Errors, err)
			debug.LogIndexing("reconcile failed for %s: %v", fr.FilePath, err)
			continue
		}
		result.Reconcile[fr.FilePath] = rc
	}

	return result, nil
}

func nodesForFile(entities []graph.Entity, filePath string) []graph.Entity {
	var out []graph.Entity
	for _, e := range entities {
		if e.FilePath == filePath {
			out = append(out, e)
		}
	}
	return out
}

// knownSQLNames maps a bare SQLTable/SQLView name to its canonical id, the
// lookup resolver.ResolveSQLReferences needs to bind a query's referenced
// identifiers (§4.7).
func knownSQLNames(entities []graph.Entity) map[string]string {
	known := make(map[string]string)
	for _, e := range entities {
		switch e.Kind {
		case graph.KindSQLTable, graph.KindSQLView:
			known[e.Name] = e.CanonicalID
			if qn, _ := e.Attributes["qualified_name"].(string); qn != "" {
				if idx := strings.LastIndex(qn, "."); idx >= 0 {
					known[qn[idx+1:]] = e.CanonicalID
				}
			}
		}
	}
	return known
}
