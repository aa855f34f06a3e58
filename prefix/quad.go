package prefix

import (
	"fmt"

	"github.com/hupe1980/geoprefix/shape"
)

// MaxQuadLevels is the deepest supported QuadGrid.
const MaxQuadLevels = 50

var quadSelectors = []byte{'A', 'B', 'C', 'D'}

// QuadGrid splits every cell into four quadrants:
//
//	A | B
//	--+--
//	C | D
//
// A is the upper-left quadrant and D the lower-right one.
type QuadGrid struct {
	levels
}

// Ensure QuadGrid implements Grid.
var _ Grid = (*QuadGrid)(nil)

// NewQuadGrid creates a quad grid over the world of ctx.
func NewQuadGrid(ctx *shape.Context, maxLevels int) (*QuadGrid, error) {
	if maxLevels < 1 || maxLevels > MaxQuadLevels {
		return nil, fmt.Errorf("%w: quad grid supports 1..%d, got %d", ErrInvalidMaxLevels, MaxQuadLevels, maxLevels)
	}
	return &QuadGrid{
		levels: newLevels(ctx, maxLevels, func(int) (int, int) { return 2, 2 }),
	}, nil
}

// Name implements Grid.
func (g *QuadGrid) Name() string { return KindQuad }

// Config implements Grid.
func (g *QuadGrid) Config() Config {
	cfg := Config{Kind: KindQuad, MaxLevels: g.maxLevels}
	if !g.ctx.IsGeo() {
		w := g.ctx.World()
		cfg.World = &w
	}
	return cfg
}

// Context implements Grid.
func (g *QuadGrid) Context() *shape.Context { return g.ctx }

// MaxLevels implements Grid.
func (g *QuadGrid) MaxLevels() int { return g.maxLevels }

// WorldCell implements Grid.
func (g *QuadGrid) WorldCell() *Cell {
	return &Cell{g: g, rect: g.ctx.World(), hasRect: true}
}

// ReadCell implements Grid.
func (g *QuadGrid) ReadCell(token []byte, scratch *Cell) (*Cell, error) {
	return readCell(g, token, scratch)
}

// CellAt implements Grid. Points on a split line belong to the right or
// upper side.
func (g *QuadGrid) CellAt(p shape.Point, level int) *Cell {
	level = max(0, min(level, g.maxLevels))
	r := g.ctx.World()
	tok := make([]byte, level)
	for i := range tok {
		midX, midY := (r.MinX+r.MaxX)/2, (r.MinY+r.MaxY)/2
		right, upper := p.X >= midX, p.Y >= midY
		switch {
		case upper && !right:
			tok[i] = 'A'
		case upper && right:
			tok[i] = 'B'
		case !right:
			tok[i] = 'C'
		default:
			tok[i] = 'D'
		}
		r = g.childRect(r, i, tok[i])
	}
	c := &Cell{g: g, token: tok, rect: r, hasRect: true}
	if level == g.maxLevels {
		c.SetLeaf()
	}
	return c
}

// LevelForDistance implements Grid.
func (g *QuadGrid) LevelForDistance(dist float64) int { return g.levelForDistance(dist) }

// MaxLevelForPrecision implements Grid.
func (g *QuadGrid) MaxLevelForPrecision(s shape.Shape, distErrPct float64) (int, error) {
	return g.maxLevelForPrecision(s, distErrPct)
}

// Cells implements Grid.
func (g *QuadGrid) Cells(s shape.Shape, detailLevel int, inclParents bool) ([]*Cell, error) {
	return cells(g, s, detailLevel, inclParents)
}

func (g *QuadGrid) selectors() []byte { return quadSelectors }

func (g *QuadGrid) selectorIndex(b byte) int {
	if b < 'A' || b > 'D' {
		return -1
	}
	return int(b - 'A')
}

func (g *QuadGrid) childRect(parent shape.Rect, _ int, sel byte) shape.Rect {
	midX, midY := (parent.MinX+parent.MaxX)/2, (parent.MinY+parent.MaxY)/2
	r := parent
	switch sel {
	case 'A':
		r.MaxX, r.MinY = midX, midY
	case 'B':
		r.MinX, r.MinY = midX, midY
	case 'C':
		r.MaxX, r.MaxY = midX, midY
	case 'D':
		r.MinX, r.MaxY = midX, midY
	}
	return r
}
