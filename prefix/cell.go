package prefix

import (
	"strings"

	"github.com/hupe1980/geoprefix/shape"
)

// Cell is one node of a Grid.
//
// A cell memoizes its bounds and its relation to the query it is evaluated
// against. Cells belong to a single query and are not safe for concurrent use.
type Cell struct {
	g       geometry
	token   []byte
	leaf    bool
	rect    shape.Rect
	hasRect bool
	rel     shape.Relation
	hasRel  bool
}

func (c *Cell) reset(g geometry, token []byte) {
	c.g = g
	c.token = append(c.token[:0], token...)
	c.leaf = false
	c.hasRect = false
	c.hasRel = false
}

// Grid returns the grid the cell belongs to.
func (c *Cell) Grid() Grid { return c.g }

// Level is the depth of the cell. The world cell is level 0.
func (c *Cell) Level() int { return len(c.token) }

// Token returns the cell path without the leaf marker. The slice is owned
// by the cell and must not be modified.
func (c *Cell) Token() []byte { return c.token }

// TokenBytes returns a copy of the token including the leaf marker when the
// cell is a leaf.
func (c *Cell) TokenBytes() []byte {
	b := make([]byte, len(c.token), len(c.token)+1)
	copy(b, c.token)
	if c.leaf {
		b = append(b, LeafByte)
	}
	return b
}

// IsLeaf reports whether the cell is a leaf.
func (c *Cell) IsLeaf() bool { return c.leaf }

// SetLeaf marks the cell as a leaf. The world cell is never a leaf.
func (c *Cell) SetLeaf() {
	if len(c.token) > 0 {
		c.leaf = true
	}
}

// Rect returns the bounds of the cell.
func (c *Cell) Rect() shape.Rect {
	if !c.hasRect {
		r := c.g.Context().World()
		for i, sel := range c.token {
			r = c.g.childRect(r, i, sel)
		}
		c.rect, c.hasRect = r, true
	}
	return c.rect
}

// Shape returns the cell bounds as a shape.
func (c *Cell) Shape() shape.Shape { return c.Rect() }

// Center returns the center of the cell.
func (c *Cell) Center() shape.Point { return c.Rect().Center() }

// RelationTo returns how the cell relates to q. The first result is
// memoized: a cell must only ever be related to one query.
func (c *Cell) RelationTo(q shape.Shape) shape.Relation {
	if !c.hasRel {
		c.rel, c.hasRel = c.Rect().Relate(q), true
	}
	return c.rel
}

// SubCells returns the children of c that are not disjoint from q, in
// ascending token order. Children of a cell within q are within q as well
// and are not tested again.
func (c *Cell) SubCells(q shape.Shape) []*Cell {
	kids := c.children()
	within := c.hasRel && c.rel == shape.Within
	out := kids[:0]
	for _, k := range kids {
		if within {
			k.rel, k.hasRel = shape.Within, true
			out = append(out, k)
			continue
		}
		if k.RelationTo(q) != shape.Disjoint {
			out = append(out, k)
		}
	}
	return out
}

// children returns every child of c in ascending token order.
func (c *Cell) children() []*Cell {
	level := len(c.token)
	if level >= c.g.MaxLevels() {
		return nil
	}
	sels := c.g.selectors()
	parent := c.Rect()
	buf := make([]byte, len(sels)*(level+1))
	cells := make([]Cell, len(sels))
	out := make([]*Cell, len(sels))
	for i, sel := range sels {
		tok := buf[i*(level+1) : (i+1)*(level+1) : (i+1)*(level+1)]
		copy(tok, c.token)
		tok[level] = sel
		cells[i] = Cell{
			g:       c.g,
			token:   tok,
			leaf:    level+1 == c.g.MaxLevels(),
			rect:    c.g.childRect(parent, level, sel),
			hasRect: true,
		}
		out[i] = &cells[i]
	}
	return out
}

func (c *Cell) String() string {
	if c.leaf {
		return string(c.token) + string(LeafByte)
	}
	return string(c.token)
}

// CellsToTokenStrings joins the tokens of cells with a space, in order.
func CellsToTokenStrings(cells []*Cell) string {
	var sb strings.Builder
	for i, c := range cells {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(c.String())
	}
	return sb.String()
}
