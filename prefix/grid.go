package prefix

import (
	"fmt"
	"math"

	"github.com/hupe1980/geoprefix/shape"
)

// LeafByte marks a leaf token. It sorts below every selector byte of every
// grid, so a leaf term directly follows the plain term of the same cell.
const LeafByte byte = '+'

// Grid kinds.
const (
	KindQuad    = "quad"
	KindGeohash = "geohash"
)

// Grid is a hierarchical subdivision of a world into cells.
type Grid interface {
	// Name identifies the grid kind.
	Name() string
	// Config returns the configuration the grid was built from.
	Config() Config
	// Context returns the shape context the world is taken from.
	Context() *shape.Context
	// MaxLevels is the depth of the deepest cells.
	MaxLevels() int
	// WorldCell returns a new level 0 cell covering the whole world.
	WorldCell() *Cell
	// ReadCell decodes token. When scratch is non-nil it is overwritten and
	// returned instead of allocating a new cell.
	ReadCell(token []byte, scratch *Cell) (*Cell, error)
	// CellAt returns the cell at level containing p.
	CellAt(p shape.Point, level int) *Cell
	// LevelForDistance returns the coarsest level whose cells are smaller
	// than dist in both dimensions.
	LevelForDistance(dist float64) int
	// MaxLevelForPrecision returns the detail level at which s is indexed
	// or queried for the given distance error percentage.
	MaxLevelForPrecision(s shape.Shape, distErrPct float64) (int, error)
	// Cells decomposes s into the cells that cover it down to detailLevel.
	Cells(s shape.Shape, detailLevel int, inclParents bool) ([]*Cell, error)
}

// geometry is implemented by the concrete grids. It is what cells need to
// derive their children and shapes.
type geometry interface {
	Grid
	// selectors returns the child selector bytes in ascending order.
	selectors() []byte
	// selectorIndex returns the position of b in selectors, or -1.
	selectorIndex(b byte) int
	// childRect returns the bounds of child sel of a cell at parentLevel.
	childRect(parent shape.Rect, parentLevel int, sel byte) shape.Rect
}

// Config describes a grid. It is stored alongside persisted indexes so the
// same grid can be rebuilt on open.
type Config struct {
	Kind      string      `json:"kind"`
	MaxLevels int         `json:"max_levels"`
	World     *shape.Rect `json:"world,omitempty"`
}

// New builds the grid described by cfg.
func New(cfg Config) (Grid, error) {
	switch cfg.Kind {
	case KindQuad:
		ctx := shape.NewGeoContext()
		if cfg.World != nil {
			c, err := shape.NewCartesianContext(*cfg.World)
			if err != nil {
				return nil, err
			}
			ctx = c
		}
		return NewQuadGrid(ctx, cfg.MaxLevels)
	case KindGeohash:
		return NewGeohashGrid(cfg.MaxLevels)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownGrid, cfg.Kind)
	}
}

// levels holds the cell dimensions of every level of a grid whose cells
// at a given level all share the same size.
type levels struct {
	ctx       *shape.Context
	maxLevels int
	w, h      []float64
}

func newLevels(ctx *shape.Context, maxLevels int, split func(level int) (xs, ys int)) levels {
	l := levels{
		ctx:       ctx,
		maxLevels: maxLevels,
		w:         make([]float64, maxLevels+1),
		h:         make([]float64, maxLevels+1),
	}
	world := ctx.World()
	l.w[0], l.h[0] = world.Width(), world.Height()
	for i := 1; i <= maxLevels; i++ {
		xs, ys := split(i - 1)
		l.w[i] = l.w[i-1] / float64(xs)
		l.h[i] = l.h[i-1] / float64(ys)
	}
	return l
}

func (l *levels) levelForDistance(dist float64) int {
	if dist <= 0 {
		return l.maxLevels
	}
	for i := 1; i < l.maxLevels; i++ {
		if l.w[i] < dist && l.h[i] < dist {
			return i
		}
	}
	return l.maxLevels
}

func (l *levels) maxLevelForPrecision(s shape.Shape, distErrPct float64) (int, error) {
	if distErrPct < 0 || distErrPct > 0.5 || math.IsNaN(distErrPct) {
		return 0, fmt.Errorf("%w: %v not in [0, 0.5]", ErrInvalidPrecision, distErrPct)
	}
	if distErrPct == 0 {
		return l.maxLevels, nil
	}
	if _, ok := s.(shape.Point); ok {
		return l.maxLevels, nil
	}
	area := s.BoundingBox().Area()
	if area <= 0 {
		return l.maxLevels, nil
	}
	return l.levelForDistance(math.Sqrt(area) / 2 * distErrPct), nil
}

func checkDetailLevel(g Grid, level int) error {
	if level < 1 || level > g.MaxLevels() {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidDetailLevel, level, g.MaxLevels())
	}
	return nil
}

func readCell(g geometry, token []byte, scratch *Cell) (*Cell, error) {
	raw := token
	leaf := false
	if n := len(token); n > 0 && token[n-1] == LeafByte {
		leaf = true
		token = token[:n-1]
	}
	if len(token) == 0 {
		return nil, &TokenError{Token: cloneBytes(raw), Reason: "empty cell path"}
	}
	if len(token) > g.MaxLevels() {
		return nil, &TokenError{
			Token:  cloneBytes(raw),
			Reason: fmt.Sprintf("level %d exceeds max levels %d", len(token), g.MaxLevels()),
		}
	}
	for i, b := range token {
		if b == LeafByte {
			return nil, &TokenError{Token: cloneBytes(raw), Reason: fmt.Sprintf("leaf marker at position %d", i)}
		}
		if g.selectorIndex(b) < 0 {
			return nil, &TokenError{Token: cloneBytes(raw), Reason: fmt.Sprintf("invalid selector %q at position %d", b, i)}
		}
	}
	c := scratch
	if c == nil {
		c = &Cell{}
	}
	c.reset(g, token)
	c.leaf = leaf
	return c, nil
}

// cells implements Grid.Cells for every geometry.
func cells(g geometry, s shape.Shape, detailLevel int, inclParents bool) ([]*Cell, error) {
	if s == nil {
		return nil, ErrNilQuery
	}
	if err := checkDetailLevel(g, detailLevel); err != nil {
		return nil, err
	}
	if p, ok := s.(shape.Point); ok {
		var out []*Cell
		start := detailLevel
		if inclParents {
			start = 1
		}
		for l := start; l <= detailLevel; l++ {
			out = append(out, g.CellAt(p, l))
		}
		out[len(out)-1].SetLeaf()
		return out, nil
	}
	d := decomposer{shape: s, detail: detailLevel, inclParents: inclParents, fanout: len(g.selectors())}
	d.visit(g.WorldCell())
	return d.out, nil
}

type decomposer struct {
	shape       shape.Shape
	detail      int
	inclParents bool
	fanout      int
	out         []*Cell
}

func (d *decomposer) visit(c *Cell) {
	if c.IsLeaf() {
		d.out = append(d.out, c)
		return
	}
	subs := c.SubCells(d.shape)
	for _, sub := range subs {
		if sub.RelationTo(d.shape) == shape.Within {
			sub.SetLeaf()
		}
	}
	if c.Level() == d.detail-1 {
		if len(subs) == d.fanout && c.Level() > 0 {
			c.SetLeaf()
			d.out = append(d.out, c)
			return
		}
		if d.inclParents && c.Level() > 0 {
			d.out = append(d.out, c)
		}
		for _, sub := range subs {
			sub.SetLeaf()
			d.out = append(d.out, sub)
		}
		return
	}
	if d.inclParents && c.Level() > 0 {
		d.out = append(d.out, c)
	}
	for _, sub := range subs {
		d.visit(sub)
	}
}

func cloneBytes(b []byte) []byte {
	return append([]byte(nil), b...)
}
