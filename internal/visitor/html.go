package visitor

import (
	"strings"

	"github.com/standardbeagle/bmcp/internal/graph"
	"github.com/standardbeagle/bmcp/internal/identity"
	"github.com/standardbeagle/bmcp/internal/workerproto"
)

// HTMLVisitor extracts element/attribute nodes, CONTAINS edges between
// nested elements, INCLUDES edges for <script src="...">/<link href="...">
// references, and CALLS placeholders for inline event-handler attributes
// (onclick="handler()").
type HTMLVisitor struct{}

func NewHTMLVisitor() *HTMLVisitor { return &HTMLVisitor{} }

func (v *HTMLVisitor) Visit(filePath, language string, source []byte, cst *workerproto.CST, opts Options) (Result, error) {
	c := newVisitCtx(filePath, language, source, cst, opts)

	file := fileEntity(c)
	c.addEntity(file)
	c.pushScope(file.CanonicalID)
	defer c.popScope()

	if _, ok := cst.Root(); !ok {
		return c.result, nil
	}

	walk(c, table{"element": htmlElementHandler}, 0)
	return c.result, nil
}

func htmlElementHandler(c *visitCtx, id workerproto.NodeID, n workerproto.CSTNode) bool {
	tagName := htmlTagName(c, n)
	if tagName == "" {
		return true
	}
	parent := c.currentScope()
	canonical := identity.MakeCanonical(c.filePath, string(graph.KindHTMLElement), tagName, parent, nil)
	c.addEntity(graph.Entity{CanonicalID: canonical, Kind: graph.KindHTMLElement, Name: tagName, ParentID: parent, Span: spanOf(n)})
	c.addRelationship(graph.RelContains, parent, canonical)

	forEachDescendant(c, n, "attribute", func(attr workerproto.CSTNode) {
		htmlAttributeHandler(c, attr, canonical, tagName)
	})

	c.pushScope(canonical)
	for _, childID := range n.Children {
		walk(c, table{"element": htmlElementHandler}, childID)
	}
	c.popScope()
	return false
}

func htmlAttributeHandler(c *visitCtx, attr workerproto.CSTNode, elementID, tagName string) {
	name := goChildText(c, attr, "attribute_name")
	value := strings.Trim(goChildText(c, attr, "attribute_value"), `"'`)
	if name == "" {
		return
	}
	canonical := identity.MakeCanonical(c.filePath, string(graph.KindHTMLAttribute), name, elementID, nil)
	c.addEntity(graph.Entity{
		CanonicalID: canonical,
		Kind:        graph.KindHTMLAttribute,
		Name:        name,
		ParentID:    elementID,
		Span:        spanOf(attr),
		Attributes:  map[string]any{"value": value},
	})
	c.addRelationship(graph.RelHasAttribute, elementID, canonical)

	switch {
	case strings.HasPrefix(name, "on") && value != "":
		handlerName := strings.TrimSuffix(strings.SplitN(value, "(", 2)[0], ";")
		if handlerName != "" {
			c.addRelationship(graph.RelCalls, elementID, graph.Placeholder(handlerName))
		}
	case (tagName == "script" && name == "src") || (tagName == "link" && name == "href"):
		if value != "" {
			c.addRelationship(graph.RelIncludes, elementID, graph.Placeholder(value))
		}
	}
}

func htmlTagName(c *visitCtx, n workerproto.CSTNode) string {
	for _, childID := range n.Children {
		child, ok := c.cst.Node(childID)
		if !ok {
			continue
		}
		if child.Type == "start_tag" || child.Type == "self_closing_tag" {
			return goChildText(c, child, "tag_name")
		}
	}
	return ""
}
