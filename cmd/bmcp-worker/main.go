// Command bmcp-worker is the out-of-process parser worker: it reads
// length-delimited workerproto.Request frames from stdin, parses the
// requested source with tree-sitter, and writes workerproto.Response
// frames to stdout. It deliberately does not recover from panics raised
// by a grammar during parsing — a crash here is the coordinator's signal
// to respawn, and recovering would hide a broken grammar behind a
// half-parsed tree.
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/bmcp/internal/grammar"
	"github.com/standardbeagle/bmcp/internal/workerproto"
)

func main() {
	registry := grammar.NewRegistry()
	reader := bufio.NewReader(os.Stdin)
	writer := bufio.NewWriter(os.Stdout)
	defer writer.Flush()

	for {
		var req workerproto.Request
		if err := workerproto.ReadMessage(reader, &req); err != nil {
			return
		}
		resp := handle(registry, req)
		if err := workerproto.WriteMessage(writer, resp); err != nil {
			return
		}
		writer.Flush()
	}
}

func handle(registry *grammar.Registry, req workerproto.Request) workerproto.Response {
	lang, ok := resolveLanguage(req.Language, req.FilePath)
	if !ok {
		return workerproto.Response{ID: req.ID, OK: false, Error: fmt.Sprintf("unrecognized language %q for %s", req.Language, req.FilePath)}
	}

	handle, err := registry.Get(lang)
	if err != nil {
		return workerproto.Response{ID: req.ID, OK: false, Error: err.Error()}
	}

	parser := sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(handle); err != nil {
		return workerproto.Response{ID: req.ID, OK: false, Error: fmt.Sprintf("set language: %v", err)}
	}

	source := []byte(req.Source)
	tree := parser.Parse(source, nil)
	defer tree.Close()

	cst := buildCST(tree.RootNode())
	return workerproto.Response{ID: req.ID, OK: true, Root: &cst}
}

func resolveLanguage(tag, filePath string) (grammar.Language, bool) {
	if tag != "" {
		return grammar.Language(tag), true
	}
	ext := strings.ToLower(filepath.Ext(filePath))
	return grammar.DetectLanguage(ext)
}

// buildCST flattens a native *sitter.Node tree into the serializable arena
// workerproto carries across the process boundary (no native pointers
// cross it — Design Notes §9).
func buildCST(root *sitter.Node) workerproto.CST {
	cst := workerproto.CST{}
	appendNode(&cst, root)
	return cst
}

func appendNode(cst *workerproto.CST, n *sitter.Node) workerproto.NodeID {
	id := workerproto.NodeID(len(cst.Nodes))
	cst.Nodes = append(cst.Nodes, workerproto.CSTNode{})

	childCount := n.ChildCount()
	children := make([]workerproto.NodeID, 0, childCount)
	for i := uint(0); i < childCount; i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		children = append(children, appendNode(cst, child))
	}

	start, end := n.StartPosition(), n.EndPosition()
	cst.Nodes[id] = workerproto.CSTNode{
		Type:        n.Kind(),
		Named:       n.IsNamed(),
		StartByte:   uint32(n.StartByte()),
		EndByte:     uint32(n.EndByte()),
		StartLine:   int(start.Row) + 1,
		StartColumn: int(start.Column),
		EndLine:     int(end.Row) + 1,
		EndColumn:   int(end.Column),
		Children:    children,
	}
	return id
}
