package shape

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRectRelate(t *testing.T) {
	r := Rect{MinX: 0, MinY: 0, MaxX: 2, MaxY: 2}

	tests := []struct {
		name  string
		other Shape
		want  Relation
	}{
		{"inside point", Point{X: 1, Y: 1}, Contains},
		{"edge point", Point{X: 2, Y: 1}, Contains},
		{"outside point", Point{X: 3, Y: 1}, Disjoint},
		{"bigger rect", Rect{MinX: -1, MinY: -1, MaxX: 3, MaxY: 3}, Within},
		{"smaller rect", Rect{MinX: 0.5, MinY: 0.5, MaxX: 1, MaxY: 1}, Contains},
		{"overlapping rect", Rect{MinX: 1, MinY: 1, MaxX: 3, MaxY: 3}, Intersects},
		{"touching rect", Rect{MinX: 2, MinY: 0, MaxX: 3, MaxY: 2}, Intersects},
		{"far rect", Rect{MinX: 5, MinY: 5, MaxX: 6, MaxY: 6}, Disjoint},
		{"cross rect", Rect{MinX: 0.5, MinY: -1, MaxX: 1.5, MaxY: 3}, Intersects},
		{"circle inside", Circle{Origin: Point{X: 1, Y: 1}, Radius: 0.5}, Contains},
		{"circle around", Circle{Origin: Point{X: 1, Y: 1}, Radius: 5}, Within},
		{"circle far", Circle{Origin: Point{X: 10, Y: 10}, Radius: 1}, Disjoint},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Relate(tt.other))
			assert.Equal(t, tt.want.Transpose(), tt.other.Relate(r))
		})
	}
}

func TestRectRelateEqual(t *testing.T) {
	r := Rect{MinX: 0, MinY: 0, MaxX: 2, MaxY: 2}
	// Equal rectangles resolve to Within so that a cell matching the query
	// exactly can be accepted without descending.
	assert.Equal(t, Within, r.Relate(r))
}

func TestCircleRelate(t *testing.T) {
	c := Circle{Origin: Point{X: 0, Y: 0}, Radius: 2}

	assert.Equal(t, Contains, c.Relate(Point{X: 1, Y: 1}))
	assert.Equal(t, Disjoint, c.Relate(Point{X: 2, Y: 2}))
	assert.Equal(t, Contains, c.Relate(Circle{Origin: Point{X: 0.5}, Radius: 1}))
	assert.Equal(t, Within, c.Relate(Circle{Origin: Point{X: 0.5}, Radius: 4}))
	assert.Equal(t, Intersects, c.Relate(Circle{Origin: Point{X: 3}, Radius: 2}))
	assert.Equal(t, Disjoint, c.Relate(Circle{Origin: Point{X: 5}, Radius: 2}))

	// The corner of this rectangle is outside the circle but its edge is not.
	assert.Equal(t, Intersects, c.Relate(Rect{MinX: 1, MinY: 1, MaxX: 3, MaxY: 3}))
	assert.Equal(t, Disjoint, c.Relate(Rect{MinX: 1.5, MinY: 1.5, MaxX: 3, MaxY: 3}))
}

func TestCollectionRelate(t *testing.T) {
	left := Rect{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1}
	right := Rect{MinX: 3, MinY: 0, MaxX: 4, MaxY: 1}
	coll := Collection{left, right}

	assert.Equal(t, Rect{MinX: 0, MinY: 0, MaxX: 4, MaxY: 1}, coll.BoundingBox())
	assert.Equal(t, Contains, coll.Relate(Point{X: 0.5, Y: 0.5}))
	assert.Equal(t, Disjoint, coll.Relate(Point{X: 2, Y: 0.5}))
	assert.Equal(t, Within, coll.Relate(Rect{MinX: -1, MinY: -1, MaxX: 5, MaxY: 2}))
	assert.Equal(t, Intersects, coll.Relate(Rect{MinX: 0.5, MinY: 0, MaxX: 3.5, MaxY: 1}))

	// A cell inside one member is within the union.
	assert.Equal(t, Within, Rect{MinX: 3.2, MinY: 0.2, MaxX: 3.4, MaxY: 0.4}.Relate(coll))
	assert.Equal(t, Disjoint, Collection(nil).Relate(left))
}

func TestRelateTransposeProperty(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	randomShape := func() Shape {
		x, y := rnd.Float64()*10, rnd.Float64()*10
		switch rnd.Intn(3) {
		case 0:
			return Point{X: math.Round(x), Y: math.Round(y)}
		case 1:
			return Rect{MinX: x, MinY: y, MaxX: x + rnd.Float64()*4, MaxY: y + rnd.Float64()*4}
		default:
			return Circle{Origin: Point{X: x, Y: y}, Radius: rnd.Float64() * 3}
		}
	}

	for i := 0; i < 2000; i++ {
		a, b := randomShape(), randomShape()
		assert.Equal(t, a.Relate(b), b.Relate(a).Transpose(), "%v vs %v", a, b)
	}
}

func TestContext(t *testing.T) {
	_, err := NewCartesianContext(Rect{MinX: 1, MinY: 0, MaxX: 0, MaxY: 1})
	require.Error(t, err)

	ctx, err := NewCartesianContext(Rect{MinX: 0, MinY: 0, MaxX: 4, MaxY: 4})
	require.NoError(t, err)
	assert.False(t, ctx.IsGeo())
	assert.InDelta(t, 5.0, ctx.Distance(Point{X: 0, Y: 0}, Point{X: 3, Y: 4}), 1e-9)
	require.NoError(t, ctx.Check(Rect{MinX: 1, MinY: 1, MaxX: 2, MaxY: 2}))
	require.ErrorIs(t, ctx.Check(Point{X: 5, Y: 1}), ErrOutOfWorld)

	geo := NewGeoContext()
	assert.True(t, geo.IsGeo())
	// A quarter of the equator.
	assert.InDelta(t, 90.0, geo.Distance(Point{X: 0, Y: 0}, Point{X: 90, Y: 0}), 1e-9)
	assert.InDelta(t, 111.19, DegreesToKM(1), 0.01)
	assert.InDelta(t, 1.0, KMToDegrees(DegreesToKM(1)), 1e-12)
}
