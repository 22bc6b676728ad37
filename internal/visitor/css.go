package visitor

import (
	"github.com/standardbeagle/bmcp/internal/graph"
	"github.com/standardbeagle/bmcp/internal/identity"
	"github.com/standardbeagle/bmcp/internal/workerproto"
)

// CSSVisitor extracts rule/selector/property entities and STYLES edges
// from each rule to the HTML element name or class its selectors target (best
// effort: a bare element selector like "div" links by tag name; a class
// or id selector is recorded by its literal text, left for the resolver
// to bind if a matching HTML attribute value surfaces).
type CSSVisitor struct{}

func NewCSSVisitor() *CSSVisitor { return &CSSVisitor{} }

func (v *CSSVisitor) Visit(filePath, language string, source []byte, cst *workerproto.CST, opts Options) (Result, error) {
	c := newVisitCtx(filePath, language, source, cst, opts)

	file := fileEntity(c)
	c.addEntity(file)
	c.pushScope(file.CanonicalID)
	defer c.popScope()

	if _, ok := cst.Root(); !ok {
		return c.result, nil
	}

	walk(c, table{"rule_set": cssRuleHandler}, 0)
	return c.result, nil
}

func cssRuleHandler(c *visitCtx, id workerproto.NodeID, n workerproto.CSTNode) bool {
	selectors := esChildByType(c, n, "selectors")
	if selectors == nil {
		return true
	}
	selectorText := c.text(*selectors)
	ruleID := identity.MakeCanonical(c.filePath, string(graph.KindCSSRule), selectorText, "", nil)
	c.addEntity(graph.Entity{CanonicalID: ruleID, Kind: graph.KindCSSRule, Name: selectorText, Span: spanOf(n)})
	c.addRelationship(graph.RelDefines, c.currentScope(), ruleID)

	forEachDescendant(c, *selectors, "tag_name", func(sel workerproto.CSTNode) {
		emitSelectorEntity(c, sel, ruleID)
	})
	forEachDescendant(c, *selectors, "class_selector", func(sel workerproto.CSTNode) {
		emitSelectorEntity(c, sel, ruleID)
	})
	forEachDescendant(c, *selectors, "id_selector", func(sel workerproto.CSTNode) {
		emitSelectorEntity(c, sel, ruleID)
	})

	if block := esChildByType(c, n, "block"); block != nil {
		forEachDescendant(c, *block, "declaration", func(decl workerproto.CSTNode) {
			emitCSSProperty(c, decl, ruleID)
		})
	}
	return false
}

func emitSelectorEntity(c *visitCtx, sel workerproto.CSTNode, ruleID string) {
	name := c.text(sel)
	if name == "" {
		return
	}
	canonical := identity.MakeCanonical(c.filePath, string(graph.KindCSSSelector), name, ruleID, nil)
	c.addEntity(graph.Entity{CanonicalID: canonical, Kind: graph.KindCSSSelector, Name: name, ParentID: ruleID, Span: spanOf(sel)})
	c.addRelationship(graph.RelStyles, ruleID, graph.Placeholder(name))
}

func emitCSSProperty(c *visitCtx, decl workerproto.CSTNode, ruleID string) {
	name := goChildText(c, decl, "property_name")
	if name == "" {
		return
	}
	canonical := identity.MakeCanonical(c.filePath, string(graph.KindCSSProperty), name, ruleID, nil)
	c.addEntity(graph.Entity{CanonicalID: canonical, Kind: graph.KindCSSProperty, Name: name, ParentID: ruleID, Span: spanOf(decl)})
	c.addRelationship(graph.RelDefines, ruleID, canonical)
}
