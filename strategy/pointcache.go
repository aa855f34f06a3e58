package strategy

import (
	"context"
	"math"

	"github.com/hupe1980/geoprefix/index"
	"github.com/hupe1980/geoprefix/prefix"
	"github.com/hupe1980/geoprefix/shape"
)

// PointCache holds the full-precision points of every live document of one
// segment, read back from the leaf-marked deepest tokens.
type PointCache struct {
	points [][]shape.Point
	count  int
}

// BuildPointCache scans the term dictionary of r once.
func BuildPointCache(ctx context.Context, grid prefix.Grid, r index.Reader) (*PointCache, error) {
	pc := &PointCache{points: make([][]shape.Point, r.MaxDoc())}
	te := r.Terms()
	accept := r.LiveDocs()
	buf := make([]uint32, 256)

	// The scratch cell is private to this scan.
	var scratch prefix.Cell
	full := grid.MaxLevels() + 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		term, err := te.Next()
		if err != nil {
			return nil, err
		}
		if term == nil {
			break
		}
		if len(term) != full || term[full-1] != prefix.LeafByte {
			continue
		}
		c, err := grid.ReadCell(term, &scratch)
		if err != nil {
			return nil, err
		}
		p := c.Center()
		it, err := te.Docs(accept)
		if err != nil {
			return nil, err
		}
		for {
			n, err := it.NextBatch(buf)
			if err != nil {
				return nil, err
			}
			if n == 0 {
				break
			}
			for _, d := range buf[:n] {
				pc.points[d] = append(pc.points[d], p)
				pc.count++
			}
		}
	}
	return pc, nil
}

// Points returns the points of doc, or nil if it has none.
func (pc *PointCache) Points(doc uint32) []shape.Point {
	if int(doc) >= len(pc.points) {
		return nil
	}
	return pc.points[doc]
}

// Len returns the number of cached points.
func (pc *PointCache) Len() int { return pc.count }

// DistanceValueSource computes the distance between a fixed point and the
// cached points of a document.
type DistanceValueSource struct {
	cache *PointCache
	from  shape.Point
	calc  shape.DistanceCalculator
}

// NewDistanceValueSource creates a value source measuring from from with calc.
func NewDistanceValueSource(cache *PointCache, from shape.Point, calc shape.DistanceCalculator) *DistanceValueSource {
	return &DistanceValueSource{cache: cache, from: from, calc: calc}
}

// Value returns the smallest distance from the origin to a point of doc,
// or NaN if the document has no point.
func (v *DistanceValueSource) Value(doc uint32) float64 {
	pts := v.cache.Points(doc)
	if len(pts) == 0 {
		return math.NaN()
	}
	best := math.Inf(1)
	for _, p := range pts {
		best = math.Min(best, v.calc.Distance(v.from, p))
	}
	return best
}
