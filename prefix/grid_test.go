package prefix

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/geoprefix/shape"
)

func newTestQuadGrid(t *testing.T, side float64, maxLevels int) *QuadGrid {
	t.Helper()
	ctx, err := shape.NewCartesianContext(shape.Rect{MaxX: side, MaxY: side})
	require.NoError(t, err)
	g, err := NewQuadGrid(ctx, maxLevels)
	require.NoError(t, err)
	return g
}

func TestNewGridRejectsDepth(t *testing.T) {
	_, err := NewQuadGrid(shape.NewGeoContext(), 0)
	require.ErrorIs(t, err, ErrInvalidMaxLevels)
	_, err = NewQuadGrid(shape.NewGeoContext(), MaxQuadLevels+1)
	require.ErrorIs(t, err, ErrInvalidMaxLevels)
	_, err = NewGeohashGrid(MaxGeohashLevels + 1)
	require.ErrorIs(t, err, ErrInvalidMaxLevels)
}

func TestNewFromConfig(t *testing.T) {
	world := shape.Rect{MaxX: 16, MaxY: 16}
	g, err := New(Config{Kind: KindQuad, MaxLevels: 4, World: &world})
	require.NoError(t, err)
	assert.Equal(t, KindQuad, g.Name())
	assert.Equal(t, world, g.Context().World())
	assert.Equal(t, Config{Kind: KindQuad, MaxLevels: 4, World: &world}, g.Config())

	g, err = New(Config{Kind: KindGeohash, MaxLevels: 6})
	require.NoError(t, err)
	assert.Equal(t, 6, g.MaxLevels())
	assert.True(t, g.Context().IsGeo())

	_, err = New(Config{Kind: "hex", MaxLevels: 3})
	require.ErrorIs(t, err, ErrUnknownGrid)
}

func TestLeafByteSortsFirst(t *testing.T) {
	for _, sel := range quadSelectors {
		assert.Less(t, LeafByte, sel)
	}
	for _, sel := range geohashSelectors {
		assert.Less(t, LeafByte, sel)
	}
}

func TestQuadWorldSubCells(t *testing.T) {
	g := newTestQuadGrid(t, 4, 2)
	world := g.WorldCell()
	assert.Equal(t, 0, world.Level())

	subs := world.SubCells(shape.Rect{MaxX: 4, MaxY: 4})
	require.Len(t, subs, 4)
	assert.Equal(t, "A B C D", CellsToTokenStrings(subs))
	assert.Equal(t, shape.Rect{MinX: 0, MinY: 2, MaxX: 2, MaxY: 4}, subs[0].Rect())
	assert.Equal(t, shape.Rect{MinX: 2, MinY: 2, MaxX: 4, MaxY: 4}, subs[1].Rect())
	assert.Equal(t, shape.Rect{MinX: 0, MinY: 0, MaxX: 2, MaxY: 2}, subs[2].Rect())
	assert.Equal(t, shape.Rect{MinX: 2, MinY: 0, MaxX: 4, MaxY: 2}, subs[3].Rect())

	// Only the upper-left quadrant.
	subs = g.WorldCell().SubCells(shape.Rect{MinX: 0.5, MinY: 2.5, MaxX: 1.5, MaxY: 3.5})
	assert.Equal(t, "A", CellsToTokenStrings(subs))

	// No children below the deepest level.
	leaf := g.CellAt(shape.Point{X: 1, Y: 1}, 2)
	assert.Empty(t, leaf.SubCells(shape.Rect{MaxX: 4, MaxY: 4}))
}

func TestSubCellsInheritWithin(t *testing.T) {
	g := newTestQuadGrid(t, 4, 3)
	query := shape.Rect{MinX: 0, MinY: 2, MaxX: 2, MaxY: 4}
	subs := g.WorldCell().SubCells(query)
	require.Equal(t, shape.Within, subs[0].RelationTo(query))
	for _, c := range subs[0].SubCells(query) {
		assert.Equal(t, shape.Within, c.RelationTo(query))
	}
}

func TestQuadCellAt(t *testing.T) {
	g := newTestQuadGrid(t, 4, 2)

	c := g.CellAt(shape.Point{X: 1, Y: 3}, 1)
	assert.Equal(t, "A", c.String())
	assert.False(t, c.IsLeaf())

	c = g.CellAt(shape.Point{X: 1, Y: 3}, 2)
	assert.Equal(t, "AB+", c.String())
	assert.Equal(t, shape.Rect{MinX: 1, MinY: 3, MaxX: 2, MaxY: 4}, c.Rect())

	c = g.CellAt(shape.Point{X: 3.5, Y: 0.5}, 2)
	assert.Equal(t, "DD+", c.String())
	assert.Equal(t, shape.Point{X: 3.5, Y: 0.5}, c.Center())
}

func TestReadCell(t *testing.T) {
	g := newTestQuadGrid(t, 4, 2)

	c, err := g.ReadCell([]byte("A"), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Level())
	assert.False(t, c.IsLeaf())
	assert.Equal(t, shape.Rect{MinX: 0, MinY: 2, MaxX: 2, MaxY: 4}, c.Rect())

	c, err = g.ReadCell([]byte("C+"), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Level())
	assert.True(t, c.IsLeaf())
	assert.Equal(t, []byte("C"), c.Token())
	assert.Equal(t, []byte("C+"), c.TokenBytes())

	// At the deepest level only the marker makes a leaf.
	c, err = g.ReadCell([]byte("CB"), nil)
	require.NoError(t, err)
	assert.False(t, c.IsLeaf())
	assert.Equal(t, []byte("CB"), c.TokenBytes())
	assert.Equal(t, shape.Rect{MinX: 1, MinY: 1, MaxX: 2, MaxY: 2}, c.Rect())

	c, err = g.ReadCell([]byte("CB+"), nil)
	require.NoError(t, err)
	assert.True(t, c.IsLeaf())
	assert.Equal(t, 2, c.Level())
}

func TestReadCellCorrupt(t *testing.T) {
	g := newTestQuadGrid(t, 4, 2)

	for _, tok := range []string{"", "+", "A+B", "ABC", "ABC+", "AE", "a", "++"} {
		t.Run(tok, func(t *testing.T) {
			_, err := g.ReadCell([]byte(tok), nil)
			require.ErrorIs(t, err, ErrCorruptToken)

			var te *TokenError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, tok, string(te.Token))
		})
	}
}

func TestReadCellScratch(t *testing.T) {
	g := newTestQuadGrid(t, 4, 2)
	query := shape.Rect{MinX: 0, MinY: 0, MaxX: 0.5, MaxY: 0.5}

	var scratch Cell
	c, err := g.ReadCell([]byte("A"), &scratch)
	require.NoError(t, err)
	assert.Same(t, &scratch, c)
	assert.Equal(t, shape.Disjoint, c.RelationTo(query))

	c, err = g.ReadCell([]byte("CC+"), &scratch)
	require.NoError(t, err)
	assert.Same(t, &scratch, c)
	assert.Equal(t, "CC+", c.String())
	assert.Equal(t, shape.Rect{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1}, c.Rect())
	assert.Equal(t, shape.Contains, c.RelationTo(query))

	// The token is copied, so the input may be reused by the caller.
	buf := []byte("B")
	c, err = g.ReadCell(buf, &scratch)
	require.NoError(t, err)
	buf[0] = 'D'
	assert.Equal(t, "B", c.String())
}

func TestLevelForDistance(t *testing.T) {
	g := newTestQuadGrid(t, 4, 4)

	tests := []struct {
		dist float64
		want int
	}{
		{dist: 0, want: 4},
		{dist: 100, want: 1},
		{dist: 2, want: 2},
		{dist: 1.5, want: 2},
		{dist: 0.6, want: 3},
		{dist: 0.1, want: 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, g.LevelForDistance(tt.dist), "dist %v", tt.dist)
	}
}

func TestMaxLevelForPrecision(t *testing.T) {
	g := newTestQuadGrid(t, 4, 4)
	square := shape.Rect{MaxX: 4, MaxY: 4}

	_, err := g.MaxLevelForPrecision(square, 0.6)
	require.ErrorIs(t, err, ErrInvalidPrecision)
	_, err = g.MaxLevelForPrecision(square, -0.1)
	require.ErrorIs(t, err, ErrInvalidPrecision)

	level, err := g.MaxLevelForPrecision(square, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, level)

	level, err = g.MaxLevelForPrecision(shape.Point{X: 1, Y: 1}, 0.25)
	require.NoError(t, err)
	assert.Equal(t, 4, level)

	// sqrt(16) / 2 * 0.5 = 1; level 3 cells are 0.5 wide.
	level, err = g.MaxLevelForPrecision(square, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 3, level)

	// Zero area behaves like a point.
	level, err = g.MaxLevelForPrecision(shape.Rect{MinX: 1, MaxX: 3, MinY: 2, MaxY: 2}, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 4, level)
}

func TestCellsDecomposition(t *testing.T) {
	g := newTestQuadGrid(t, 4, 2)

	tests := []struct {
		name        string
		shape       shape.Shape
		inclParents bool
		want        string
	}{
		{
			name:        "point",
			shape:       shape.Point{X: 1, Y: 3},
			inclParents: true,
			want:        "A AB+",
		},
		{
			name:  "point without parents",
			shape: shape.Point{X: 1, Y: 3},
			want:  "AB+",
		},
		{
			name:        "all children intersect",
			shape:       shape.Rect{MinX: 0.5, MinY: 2.5, MaxX: 1.5, MaxY: 3.5},
			inclParents: true,
			want:        "A+",
		},
		{
			name:        "some children intersect",
			shape:       shape.Rect{MinX: 0.5, MinY: 2.5, MaxX: 1.5, MaxY: 2.8},
			inclParents: true,
			want:        "A AC+ AD+",
		},
		{
			name:  "some children intersect without parents",
			shape: shape.Rect{MinX: 0.5, MinY: 2.5, MaxX: 1.5, MaxY: 2.8},
			want:  "AC+ AD+",
		},
		{
			name:        "cell within shape is a leaf and touching cells intersect",
			shape:       shape.Rect{MinX: 0, MinY: 2, MaxX: 2, MaxY: 4},
			inclParents: true,
			want:        "A+ B BA+ BC+ C CA+ CB+ D DA+",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cells, err := g.Cells(tt.shape, 2, tt.inclParents)
			require.NoError(t, err)
			assert.Equal(t, tt.want, CellsToTokenStrings(cells))
		})
	}

	_, err := g.Cells(shape.Point{}, 3, true)
	require.ErrorIs(t, err, ErrInvalidDetailLevel)
	_, err = g.Cells(nil, 1, true)
	require.ErrorIs(t, err, ErrNilQuery)
}

func TestGeohashEncode(t *testing.T) {
	p := shape.Point{X: 10.40744, Y: 57.64911}
	assert.Equal(t, "u4pruydqqvj", EncodeGeohash(p, 11))

	r, err := DecodeGeohash("u4pruydqqvj")
	require.NoError(t, err)
	assert.True(t, r.ContainsPoint(p))
	assert.Less(t, r.Width(), 0.001)

	r, err = DecodeGeohash("ezs42")
	require.NoError(t, err)
	assert.InDelta(t, -5.603, r.Center().X, 0.01)
	assert.InDelta(t, 42.605, r.Center().Y, 0.01)

	_, err = DecodeGeohash("ezs4a")
	require.ErrorIs(t, err, ErrCorruptToken)
}

func TestGeohashGrid(t *testing.T) {
	g, err := NewGeohashGrid(6)
	require.NoError(t, err)
	p := shape.Point{X: 10.40744, Y: 57.64911}

	c := g.CellAt(p, 5)
	assert.Equal(t, "u4pru", c.String())

	read, err := g.ReadCell([]byte("u4pru"), nil)
	require.NoError(t, err)
	want, err := DecodeGeohash("u4pru")
	require.NoError(t, err)
	assert.Equal(t, want, read.Rect())
	assert.Equal(t, c.Rect(), read.Rect())

	// Level 1 cells are 45x45 degrees, level 2 cells 11.25x5.625.
	assert.Equal(t, 1, g.LevelForDistance(50))
	assert.Equal(t, 2, g.LevelForDistance(40))

	world := g.WorldCell().SubCells(g.Context().World())
	require.Len(t, world, 32)
	assert.Equal(t, "0", world[0].String())
	assert.Equal(t, "z", world[31].String())

	for _, tok := range []string{"a", "i", "l", "o", "u4prA"} {
		_, err := g.ReadCell([]byte(tok), nil)
		require.ErrorIs(t, err, ErrCorruptToken, tok)
	}
}

func TestCellStack(t *testing.T) {
	g := newTestQuadGrid(t, 4, 2)
	var s CellStack
	assert.Nil(t, s.PopFront())
	assert.Nil(t, s.PeekFront())

	world := g.WorldCell().SubCells(shape.Rect{MaxX: 4, MaxY: 4})
	s.PushFront(world)
	require.Equal(t, 4, s.Len())

	a := s.PopFront()
	assert.Equal(t, "A", a.String())
	s.PushFront(a.SubCells(shape.Rect{MaxX: 4, MaxY: 4}))

	var got []string
	for s.Len() > 0 {
		got = append(got, s.PopFront().String())
	}
	assert.Equal(t, []string{"AA+", "AB+", "AC+", "AD+", "B", "C", "D"}, got)
}
