package strategy

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/hupe1980/geoprefix/shape"
)

// ErrUnsupportedOperation is returned for operations the strategy cannot answer.
var ErrUnsupportedOperation = errors.New("strategy: unsupported operation")

// Operation is a spatial predicate between an indexed shape and a query shape.
type Operation uint8

const (
	// Intersects matches indexed shapes sharing at least one point with the query.
	Intersects Operation = iota
	// IsWithin matches indexed shapes inside the query. It is answered with
	// the intersects filter, so it returns a superset of the exact matches.
	IsWithin
	// Contains matches indexed shapes that contain the query.
	Contains
	// IsDisjointTo matches indexed shapes sharing no point with the query.
	IsDisjointTo
	// BBoxIntersects matches indexed shapes intersecting the query's bounding box.
	BBoxIntersects
)

func (o Operation) String() string {
	switch o {
	case Intersects:
		return "Intersects"
	case IsWithin:
		return "IsWithin"
	case Contains:
		return "Contains"
	case IsDisjointTo:
		return "IsDisjointTo"
	case BBoxIntersects:
		return "BBoxIntersects"
	default:
		return fmt.Sprintf("Operation(%d)", o)
	}
}

// ParseOperation parses an operation name, ignoring case.
func ParseOperation(s string) (Operation, error) {
	for _, op := range []Operation{Intersects, IsWithin, Contains, IsDisjointTo, BBoxIntersects} {
		if strings.EqualFold(s, op.String()) {
			return op, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedOperation, s)
}

// SpatialArgs are the arguments of a spatial query.
type SpatialArgs struct {
	Operation Operation
	Shape     shape.Shape

	// DistErrPct overrides the strategy's distance error percentage when set.
	DistErrPct *float64
	// DistErr is an absolute precision in world units. It takes precedence
	// over DistErrPct when positive.
	DistErr float64
}

// NewSpatialArgs returns arguments with the strategy defaults.
func NewSpatialArgs(op Operation, s shape.Shape) SpatialArgs {
	return SpatialArgs{Operation: op, Shape: s}
}

// Pct is a helper for SpatialArgs.DistErrPct.
func Pct(v float64) *float64 { return &v }

// ResolveDistErr returns the absolute precision of the query in world units.
// Without an explicit DistErr it is the distance from the center of the
// shape's bounding box to its corner, scaled by the error percentage.
func (a SpatialArgs) ResolveDistErr(ctx *shape.Context, defaultPct float64) float64 {
	if a.DistErr > 0 {
		return a.DistErr
	}
	pct := defaultPct
	if a.DistErrPct != nil {
		pct = *a.DistErrPct
	}
	return DistanceFromErrPct(ctx, a.Shape, pct)
}

// DistanceFromErrPct scales the half diagonal of the bounding box of s by pct.
// Points and a zero pct yield 0, meaning full precision.
func DistanceFromErrPct(ctx *shape.Context, s shape.Shape, pct float64) float64 {
	if pct <= 0 {
		return 0
	}
	if _, ok := s.(shape.Point); ok {
		return 0
	}
	bb := s.BoundingBox()
	c := bb.Center()
	corner := shape.Point{X: bb.MaxX, Y: bb.MaxY}
	if ctx != nil {
		return ctx.Distance(c, corner) * pct
	}
	return math.Hypot(corner.X-c.X, corner.Y-c.Y) * pct
}
