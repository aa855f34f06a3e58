package shape

import (
	"errors"
	"fmt"
	"math"
)

// EarthMeanRadiusKM is the mean earth radius used by HaversineCalculator.
const EarthMeanRadiusKM = 6371.0087714

// ErrOutOfWorld is returned when a shape does not fit the context's world bounds.
var ErrOutOfWorld = errors.New("shape outside world bounds")

// DistanceCalculator computes distances between points of a context.
type DistanceCalculator interface {
	Distance(a, b Point) float64
}

// CartesianCalculator measures euclidean distance.
type CartesianCalculator struct{}

// Distance implements DistanceCalculator.
func (CartesianCalculator) Distance(a, b Point) float64 {
	return planarDistance(a, b)
}

// HaversineCalculator measures great-circle distance between points given in
// degrees (X longitude, Y latitude). The result is in degrees of arc.
type HaversineCalculator struct{}

// Distance implements DistanceCalculator.
func (HaversineCalculator) Distance(a, b Point) float64 {
	lat1 := a.Y * math.Pi / 180
	lat2 := b.Y * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.X - a.X) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return c * 180 / math.Pi
}

// DegreesToKM converts degrees of arc to kilometers on the mean earth sphere.
func DegreesToKM(deg float64) float64 {
	return deg * math.Pi / 180 * EarthMeanRadiusKM
}

// KMToDegrees converts kilometers on the mean earth sphere to degrees of arc.
func KMToDegrees(km float64) float64 {
	return km / EarthMeanRadiusKM * 180 / math.Pi
}

// Context binds the world bounds shapes live in to a distance calculator.
// A Context is immutable and safe for concurrent use.
type Context struct {
	world Rect
	geo   bool
	calc  DistanceCalculator
}

// NewCartesianContext creates a planar context over world.
func NewCartesianContext(world Rect) (*Context, error) {
	if !world.Valid() || !world.HasArea() {
		return nil, fmt.Errorf("invalid world bounds %v", world)
	}
	return &Context{world: world, calc: CartesianCalculator{}}, nil
}

// NewGeoContext creates a geodetic context with longitude in [-180,180] and
// latitude in [-90,90]. Distances are computed with the haversine formula.
func NewGeoContext() *Context {
	return &Context{
		world: Rect{MinX: -180, MinY: -90, MaxX: 180, MaxY: 90},
		geo:   true,
		calc:  HaversineCalculator{},
	}
}

// World returns the world bounds.
func (c *Context) World() Rect { return c.world }

// IsGeo reports whether the context is geodetic.
func (c *Context) IsGeo() bool { return c.geo }

// Calculator returns the distance calculator.
func (c *Context) Calculator() DistanceCalculator { return c.calc }

// Distance is shorthand for c.Calculator().Distance(a, b).
func (c *Context) Distance(a, b Point) float64 { return c.calc.Distance(a, b) }

// Check verifies that s lies inside the world bounds.
func (c *Context) Check(s Shape) error {
	bb := s.BoundingBox()
	if !bb.Valid() {
		return fmt.Errorf("%w: invalid bounds %v", ErrOutOfWorld, bb)
	}
	if bb.Relate(c.world) != Within {
		return fmt.Errorf("%w: %v not inside %v", ErrOutOfWorld, bb, c.world)
	}
	return nil
}
