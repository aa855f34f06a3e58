package shape

import (
	"fmt"
	"math"
)

// Circle is a planar disc in the units of its context.
type Circle struct {
	Origin Point
	Radius float64
}

// Ensure Circle implements Shape.
var _ Shape = Circle{}

// Relate implements Shape.
func (c Circle) Relate(other Shape) Relation {
	switch o := other.(type) {
	case Point:
		if planarDistance(c.Origin, o) <= c.Radius {
			return Contains
		}
		return Disjoint
	case Rect:
		return c.relateRect(o)
	case Circle:
		return c.relateCircle(o)
	default:
		return other.Relate(c).Transpose()
	}
}

func (c Circle) relateRect(r Rect) Relation {
	nearX := math.Max(r.MinX, math.Min(c.Origin.X, r.MaxX))
	nearY := math.Max(r.MinY, math.Min(c.Origin.Y, r.MaxY))
	if planarDistance(c.Origin, Point{X: nearX, Y: nearY}) > c.Radius {
		return Disjoint
	}

	farX := math.Max(math.Abs(c.Origin.X-r.MinX), math.Abs(c.Origin.X-r.MaxX))
	farY := math.Max(math.Abs(c.Origin.Y-r.MinY), math.Abs(c.Origin.Y-r.MaxY))
	if math.Hypot(farX, farY) <= c.Radius {
		return Contains
	}

	if c.BoundingBox().relateRect(r) == Within {
		return Within
	}
	return Intersects
}

func (c Circle) relateCircle(o Circle) Relation {
	d := planarDistance(c.Origin, o.Origin)
	switch {
	case d > c.Radius+o.Radius:
		return Disjoint
	case d+o.Radius <= c.Radius:
		return Contains
	case d+c.Radius <= o.Radius:
		return Within
	default:
		return Intersects
	}
}

// BoundingBox implements Shape.
func (c Circle) BoundingBox() Rect {
	return Rect{
		MinX: c.Origin.X - c.Radius,
		MinY: c.Origin.Y - c.Radius,
		MaxX: c.Origin.X + c.Radius,
		MaxY: c.Origin.Y + c.Radius,
	}
}

// Center implements Shape.
func (c Circle) Center() Point { return c.Origin }

// HasArea implements Shape.
func (c Circle) HasArea() bool { return c.Radius > 0 }

func (c Circle) String() string {
	return fmt.Sprintf("Circle(%v, r=%g)", c.Origin, c.Radius)
}

func planarDistance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
