package shape

import (
	"fmt"
	"math"
)

// Shape is the capability every geometry exposes to the grid.
type Shape interface {
	// Relate describes how the receiver relates to other.
	Relate(other Shape) Relation
	// BoundingBox returns the smallest rectangle covering the shape.
	BoundingBox() Rect
	// Center returns the center of the shape.
	Center() Point
	// HasArea reports whether the shape covers a non-zero area.
	HasArea() bool
}

// Point is a single location.
type Point struct {
	X, Y float64
}

// Ensure Point implements Shape.
var _ Shape = Point{}

// Relate implements Shape.
func (p Point) Relate(other Shape) Relation {
	if o, ok := other.(Point); ok {
		if p == o {
			return Intersects
		}
		return Disjoint
	}
	return other.Relate(p).Transpose()
}

// BoundingBox implements Shape.
func (p Point) BoundingBox() Rect {
	return Rect{MinX: p.X, MinY: p.Y, MaxX: p.X, MaxY: p.Y}
}

// Center implements Shape.
func (p Point) Center() Point { return p }

// HasArea implements Shape.
func (p Point) HasArea() bool { return false }

func (p Point) String() string {
	return fmt.Sprintf("Pt(x=%g,y=%g)", p.X, p.Y)
}

// Rect is an axis-aligned rectangle. Edges are part of the rectangle.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

// Ensure Rect implements Shape.
var _ Shape = Rect{}

// Valid reports whether the rectangle has ordered, finite bounds.
func (r Rect) Valid() bool {
	for _, v := range [...]float64{r.MinX, r.MinY, r.MaxX, r.MaxY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return r.MinX <= r.MaxX && r.MinY <= r.MaxY
}

// Width returns the extent along the x axis.
func (r Rect) Width() float64 { return r.MaxX - r.MinX }

// Height returns the extent along the y axis.
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Area returns Width * Height.
func (r Rect) Area() float64 { return r.Width() * r.Height() }

// ContainsPoint reports whether p lies inside or on the edge of r.
func (r Rect) ContainsPoint(p Point) bool {
	return p.X >= r.MinX && p.X <= r.MaxX && p.Y >= r.MinY && p.Y <= r.MaxY
}

// Union returns the smallest rectangle covering r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		MinX: math.Min(r.MinX, o.MinX),
		MinY: math.Min(r.MinY, o.MinY),
		MaxX: math.Max(r.MaxX, o.MaxX),
		MaxY: math.Max(r.MaxY, o.MaxY),
	}
}

// Relate implements Shape.
func (r Rect) Relate(other Shape) Relation {
	switch o := other.(type) {
	case Point:
		if r.ContainsPoint(o) {
			return Contains
		}
		return Disjoint
	case Rect:
		return r.relateRect(o)
	default:
		return other.Relate(r).Transpose()
	}
}

func (r Rect) relateRect(o Rect) Relation {
	xIn, xOver, xOK := relateRange(r.MinX, r.MaxX, o.MinX, o.MaxX)
	if !xOK {
		return Disjoint
	}
	yIn, yOver, yOK := relateRange(r.MinY, r.MaxY, o.MinY, o.MaxY)
	if !yOK {
		return Disjoint
	}
	switch {
	case xIn && yIn:
		return Within
	case xOver && yOver:
		return Contains
	default:
		return Intersects
	}
}

// relateRange compares [aMin,aMax] with [bMin,bMax]. It reports whether a is
// inside b, whether a covers b, and whether they overlap at all.
func relateRange(aMin, aMax, bMin, bMax float64) (inside, covers, overlap bool) {
	if aMin > bMax || aMax < bMin {
		return false, false, false
	}
	inside = aMin >= bMin && aMax <= bMax
	covers = aMin <= bMin && aMax >= bMax
	return inside, covers, true
}

// BoundingBox implements Shape.
func (r Rect) BoundingBox() Rect { return r }

// Center implements Shape.
func (r Rect) Center() Point {
	return Point{X: (r.MinX + r.MaxX) / 2, Y: (r.MinY + r.MaxY) / 2}
}

// HasArea implements Shape.
func (r Rect) HasArea() bool { return r.Width() > 0 && r.Height() > 0 }

func (r Rect) String() string {
	return fmt.Sprintf("Rect(minX=%g,maxX=%g,minY=%g,maxY=%g)", r.MinX, r.MaxX, r.MinY, r.MaxY)
}
