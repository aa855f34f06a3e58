package prefix

import (
	"fmt"

	"github.com/hupe1980/geoprefix/shape"
)

// MaxGeohashLevels is the deepest supported GeohashGrid.
const MaxGeohashLevels = 24

const geohashAlphabet = "0123456789bcdefghjkmnpqrstuvwxyz"

var (
	geohashSelectors = []byte(geohashAlphabet)
	geohashIndex     [256]int8
)

func init() {
	for i := range geohashIndex {
		geohashIndex[i] = -1
	}
	for i := 0; i < len(geohashAlphabet); i++ {
		geohashIndex[geohashAlphabet[i]] = int8(i)
	}
}

// GeohashGrid is the standard geohash tree over longitude/latitude degrees.
// Each level adds one base32 character, i.e. five interleaved bits starting
// with longitude.
type GeohashGrid struct {
	levels
}

// Ensure GeohashGrid implements Grid.
var _ Grid = (*GeohashGrid)(nil)

// NewGeohashGrid creates a geohash grid with the given precision.
func NewGeohashGrid(maxLevels int) (*GeohashGrid, error) {
	if maxLevels < 1 || maxLevels > MaxGeohashLevels {
		return nil, fmt.Errorf("%w: geohash grid supports 1..%d, got %d", ErrInvalidMaxLevels, MaxGeohashLevels, maxLevels)
	}
	return &GeohashGrid{
		levels: newLevels(shape.NewGeoContext(), maxLevels, func(level int) (int, int) {
			if level%2 == 0 {
				return 8, 4
			}
			return 4, 8
		}),
	}, nil
}

// Name implements Grid.
func (g *GeohashGrid) Name() string { return KindGeohash }

// Config implements Grid.
func (g *GeohashGrid) Config() Config { return Config{Kind: KindGeohash, MaxLevels: g.maxLevels} }

// Context implements Grid.
func (g *GeohashGrid) Context() *shape.Context { return g.ctx }

// MaxLevels implements Grid.
func (g *GeohashGrid) MaxLevels() int { return g.maxLevels }

// WorldCell implements Grid.
func (g *GeohashGrid) WorldCell() *Cell {
	return &Cell{g: g, rect: g.ctx.World(), hasRect: true}
}

// ReadCell implements Grid.
func (g *GeohashGrid) ReadCell(token []byte, scratch *Cell) (*Cell, error) {
	return readCell(g, token, scratch)
}

// CellAt implements Grid.
func (g *GeohashGrid) CellAt(p shape.Point, level int) *Cell {
	level = max(0, min(level, g.maxLevels))
	tok := make([]byte, level)
	r := geohashEncode(p, tok)
	c := &Cell{g: g, token: tok, rect: r, hasRect: true}
	if level == g.maxLevels {
		c.SetLeaf()
	}
	return c
}

// LevelForDistance implements Grid.
func (g *GeohashGrid) LevelForDistance(dist float64) int { return g.levelForDistance(dist) }

// MaxLevelForPrecision implements Grid.
func (g *GeohashGrid) MaxLevelForPrecision(s shape.Shape, distErrPct float64) (int, error) {
	return g.maxLevelForPrecision(s, distErrPct)
}

// Cells implements Grid.
func (g *GeohashGrid) Cells(s shape.Shape, detailLevel int, inclParents bool) ([]*Cell, error) {
	return cells(g, s, detailLevel, inclParents)
}

func (g *GeohashGrid) selectors() []byte { return geohashSelectors }

func (g *GeohashGrid) selectorIndex(b byte) int { return int(geohashIndex[b]) }

func (g *GeohashGrid) childRect(parent shape.Rect, parentLevel int, sel byte) shape.Rect {
	v := geohashIndex[sel]
	r := parent
	for k := 0; k < 5; k++ {
		bit := (v>>(4-k))&1 == 1
		if (parentLevel*5+k)%2 == 0 {
			mid := (r.MinX + r.MaxX) / 2
			if bit {
				r.MinX = mid
			} else {
				r.MaxX = mid
			}
		} else {
			mid := (r.MinY + r.MaxY) / 2
			if bit {
				r.MinY = mid
			} else {
				r.MaxY = mid
			}
		}
	}
	return r
}

// geohashEncode fills dst with the geohash of p and returns the bounds of
// the resulting cell.
func geohashEncode(p shape.Point, dst []byte) shape.Rect {
	r := shape.Rect{MinX: -180, MinY: -90, MaxX: 180, MaxY: 90}
	bit := 0
	for i := range dst {
		var v byte
		for k := 0; k < 5; k++ {
			v <<= 1
			if bit%2 == 0 {
				mid := (r.MinX + r.MaxX) / 2
				if p.X >= mid {
					v |= 1
					r.MinX = mid
				} else {
					r.MaxX = mid
				}
			} else {
				mid := (r.MinY + r.MaxY) / 2
				if p.Y >= mid {
					v |= 1
					r.MinY = mid
				} else {
					r.MaxY = mid
				}
			}
			bit++
		}
		dst[i] = geohashAlphabet[v]
	}
	return r
}

// EncodeGeohash returns the geohash of p with the given number of characters.
func EncodeGeohash(p shape.Point, precision int) string {
	buf := make([]byte, max(precision, 0))
	geohashEncode(p, buf)
	return string(buf)
}

// DecodeGeohash returns the bounds of the cell named by hash.
func DecodeGeohash(hash string) (shape.Rect, error) {
	r := shape.Rect{MinX: -180, MinY: -90, MaxX: 180, MaxY: 90}
	g := &GeohashGrid{}
	for i := 0; i < len(hash); i++ {
		if geohashIndex[hash[i]] < 0 {
			return shape.Rect{}, &TokenError{Token: []byte(hash), Reason: fmt.Sprintf("invalid geohash character %q", hash[i])}
		}
		r = g.childRect(r, i, hash[i])
	}
	return r, nil
}
