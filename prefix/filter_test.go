package prefix

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/geoprefix/index"
	"github.com/hupe1980/geoprefix/shape"
)

func toks(ss ...string) [][]byte {
	out := make([][]byte, len(ss))
	for i, s := range ss {
		out[i] = []byte(s)
	}
	return out
}

func indexTokens(t *testing.T, g Grid, s shape.Shape, detail int) [][]byte {
	t.Helper()
	cells, err := g.Cells(s, detail, true)
	require.NoError(t, err)
	var out [][]byte
	for _, c := range cells {
		if !c.IsLeaf() || c.Level() < g.MaxLevels() {
			out = append(out, append([]byte(nil), c.Token()...))
		}
		if c.IsLeaf() {
			out = append(out, c.TokenBytes())
		}
	}
	return out
}

func docs(res *Result) []uint {
	var out []uint
	for i, ok := res.Docs.NextSet(0); ok; i, ok = res.Docs.NextSet(i + 1) {
		out = append(out, i)
	}
	return out
}

// seekRecorder records the targets of every seek.
type seekRecorder struct {
	index.Reader
	seeks []string
}

func (r *seekRecorder) Terms() index.TermsEnum {
	return &recordingEnum{TermsEnum: r.Reader.Terms(), r: r}
}

type recordingEnum struct {
	index.TermsEnum
	r *seekRecorder
}

func (e *recordingEnum) SeekCeil(term []byte) (index.SeekStatus, error) {
	e.r.seeks = append(e.r.seeks, string(term))
	return e.TermsEnum.SeekCeil(term)
}

type failingReader struct {
	index.Reader
	err error
}

func (r failingReader) Terms() index.TermsEnum {
	return failingEnum{TermsEnum: r.Reader.Terms(), err: r.err}
}

type failingEnum struct {
	index.TermsEnum
	err error
}

func (e failingEnum) SeekCeil([]byte) (index.SeekStatus, error) { return index.SeekEnd, e.err }

// scenarioQuery covers quadrants A and B and a strip along the left edge of
// quadrant C. Relations are closed, so C and D both touch the upper part
// along y=2 and intersect the query.
var scenarioQuery = shape.Collection{
	shape.Rect{MinX: 0, MinY: 2, MaxX: 4, MaxY: 4},
	shape.Rect{MinX: 0, MinY: 0, MaxX: 0.5, MaxY: 1.5},
}

func scenarioSegment() *index.Segment {
	b := index.NewSegmentBuilder("scenario")
	b.Add(1, toks("A"))       // within the query
	b.Add(2, toks("C", "CA")) // partially intersects
	b.Add(3, toks("D", "DD")) // disjoint sub-cell of a touching quadrant
	b.Add(4, toks("C", "CD")) // disjoint sub-cell of a matching quadrant
	b.Add(5, toks("B"))       // within the query
	return b.Build()
}

func TestFilterScenarioScan(t *testing.T) {
	g := newTestQuadGrid(t, 4, 2)
	seg := scenarioSegment()

	var popped []string
	f, err := NewFilter(g, scenarioQuery, 1, 2, WithPopHook(func(c *Cell) {
		popped = append(popped, string(c.Token()))
	}))
	require.NoError(t, err)

	res, err := f.DocIDSet(context.Background(), seg)
	require.NoError(t, err)
	assert.Equal(t, []uint{0, 1, 4}, docs(res))
	assert.Equal(t, uint(5), res.Docs.Len())
	assert.Equal(t, []string{"A", "B", "C", "D"}, popped)
	assert.Equal(t, Stats{
		CellsPopped:   4,
		Seeks:         4,
		TermsScanned:  3,
		TermsAccepted: 3,
	}, res.Stats)
}

func TestFilterScenarioDivide(t *testing.T) {
	g := newTestQuadGrid(t, 4, 3)
	seg := scenarioSegment()

	var popped []string
	f, err := NewFilter(g, scenarioQuery, 2, 2, WithPopHook(func(c *Cell) {
		popped = append(popped, string(c.Token()))
	}))
	require.NoError(t, err)

	res, err := f.DocIDSet(context.Background(), seg)
	require.NoError(t, err)
	assert.Equal(t, []uint{0, 1, 4}, docs(res))
	// CD, DC and DD are disjoint and never leave SubCells.
	assert.Equal(t, []string{"A", "B", "C", "CA", "CB", "CC", "D", "DA", "DB"}, popped)
	assert.Equal(t, 4, res.Stats.SeekMisses)
	assert.Zero(t, res.Stats.TermsScanned)
}

func TestFilterSkipsDeletedDocs(t *testing.T) {
	g := newTestQuadGrid(t, 4, 2)
	b := index.NewSegmentBuilder("deleted")
	b.Add(1, toks("A"))
	b.Add(2, toks("C", "CA"))
	b.Delete(0)

	f, err := NewFilter(g, scenarioQuery, 1, 2)
	require.NoError(t, err)
	res, err := f.DocIDSet(context.Background(), b.Build())
	require.NoError(t, err)
	assert.Equal(t, []uint{1}, docs(res))
}

func TestFilterLeafPoint(t *testing.T) {
	g := newTestQuadGrid(t, 4, 2)
	b := index.NewSegmentBuilder("leaf")
	b.Add(1, toks("B", "BB+")) // point decoded at the center of BB
	b.Add(2, toks("B", "BB"))  // region covering BB
	seg := b.Build()

	tests := []struct {
		name  string
		query shape.Rect
		want  []uint
	}{
		{name: "center outside", query: shape.Rect{MinX: 3.6, MinY: 3.6, MaxX: 4, MaxY: 4}, want: []uint{1}},
		{name: "center inside", query: shape.Rect{MinX: 3.4, MinY: 3.4, MaxX: 4, MaxY: 4}, want: []uint{0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFilter(g, tt.query, 1, 2)
			require.NoError(t, err)
			res, err := f.DocIDSet(context.Background(), seg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, docs(res))
		})
	}
}

func TestFilterLeafAfterPartialCell(t *testing.T) {
	g := newTestQuadGrid(t, 8, 3)
	b := index.NewSegmentBuilder("leaf")
	b.Add(1, toks("A", "A+"))       // covers all of A
	b.Add(2, toks("A", "AA", "AA+")) // covers AA only
	seg := b.Build()

	// Partially inside A and AD, far from AA.
	query := shape.Rect{MinX: 3, MinY: 4.5, MaxX: 3.5, MaxY: 5}
	for scan := 1; scan <= 2; scan++ {
		f, err := NewFilter(g, query, scan, 3)
		require.NoError(t, err)
		res, err := f.DocIDSet(context.Background(), seg)
		require.NoError(t, err)
		assert.Equal(t, []uint{0}, docs(res), "scan level %d", scan)
	}
}

func TestFilterAncestorPrecondition(t *testing.T) {
	g := newTestQuadGrid(t, 4, 2)

	with := index.NewSegmentBuilder("with")
	with.Add(1, toks("A"))
	with.Add(2, toks("CA")) // no ancestor term
	without := index.NewSegmentBuilder("without")
	without.Add(1, toks("A"))
	without.Add(2, nil)

	f, err := NewFilter(g, scenarioQuery, 1, 2)
	require.NoError(t, err)
	a, err := f.DocIDSet(context.Background(), with.Build())
	require.NoError(t, err)
	b, err := f.DocIDSet(context.Background(), without.Build())
	require.NoError(t, err)
	assert.True(t, a.Docs.Equal(b.Docs))
	assert.Equal(t, []uint{0}, docs(a))
}

func TestFilterCorruptToken(t *testing.T) {
	g := newTestQuadGrid(t, 4, 2)
	b := index.NewSegmentBuilder("corrupt")
	b.Add(1, toks("A", "AX"))
	seg := b.Build()

	f, err := NewFilter(g, shape.Rect{MinX: 0, MinY: 2, MaxX: 1, MaxY: 3}, 1, 2)
	require.NoError(t, err)
	_, err = f.DocIDSet(context.Background(), seg)
	require.ErrorIs(t, err, ErrCorruptToken)
}

func TestFilterPropagatesErrors(t *testing.T) {
	g := newTestQuadGrid(t, 4, 2)
	ioErr := errors.New("read failed")

	f, err := NewFilter(g, scenarioQuery, 1, 2)
	require.NoError(t, err)
	_, err = f.DocIDSet(context.Background(), failingReader{Reader: scenarioSegment(), err: ioErr})
	require.ErrorIs(t, err, ioErr)
}

func TestFilterCanceled(t *testing.T) {
	g := newTestQuadGrid(t, 4, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f, err := NewFilter(g, scenarioQuery, 1, 2)
	require.NoError(t, err)
	_, err = f.DocIDSet(ctx, scenarioSegment())
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewFilterLevels(t *testing.T) {
	g := newTestQuadGrid(t, 4, 6)
	q := shape.Rect{MaxX: 1, MaxY: 1}

	_, err := NewFilter(g, q, 3, 0)
	require.ErrorIs(t, err, ErrInvalidDetailLevel)
	_, err = NewFilter(g, q, 3, 7)
	require.ErrorIs(t, err, ErrInvalidDetailLevel)
	_, err = NewFilter(g, nil, 3, 3)
	require.ErrorIs(t, err, ErrNilQuery)

	for _, tt := range []struct{ in, want int }{{-4, 1}, {0, 1}, {3, 3}, {5, 5}, {6, 5}, {40, 5}} {
		f, err := NewFilter(g, q, tt.in, 6)
		require.NoError(t, err)
		assert.Equal(t, tt.want, f.ScanLevel(), "scan level %d", tt.in)
	}

	// A single level grid still has a usable scan level.
	g1 := newTestQuadGrid(t, 4, 1)
	f, err := NewFilter(g1, q, 5, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, f.ScanLevel())
}

func TestFilterRandomized(t *testing.T) {
	g := newTestQuadGrid(t, 64, 6)
	rnd := rand.New(rand.NewSource(42))

	const deleted = 7
	b := index.NewSegmentBuilder("random")
	var shapes []shape.Shape
	for i := 0; i < 200; i++ {
		var s shape.Shape
		detail := g.MaxLevels()
		if i%2 == 0 {
			s = shape.Point{X: rnd.Float64() * 64, Y: rnd.Float64() * 64}
		} else {
			x, y := rnd.Float64()*56, rnd.Float64()*56
			s = shape.Rect{MinX: x, MinY: y, MaxX: x + 0.5 + rnd.Float64()*7.5, MaxY: y + 0.5 + rnd.Float64()*7.5}
			detail = 2 + rnd.Intn(4)
		}
		b.Add(uint64(i), indexTokens(t, g, s, detail))
		shapes = append(shapes, s)
	}
	b.Delete(deleted)
	seg := b.Build()

	for q := 0; q < 40; q++ {
		x, y := rnd.Float64()*60, rnd.Float64()*60
		query := shape.Rect{MinX: x, MinY: y, MaxX: x + rnd.Float64()*(64-x), MaxY: y + rnd.Float64()*(64-y)}

		for detail := 1; detail <= g.MaxLevels(); detail++ {
			var want *bitset.BitSet
			for scan := 1; scan < g.MaxLevels(); scan++ {
				var prev []byte
				rec := &seekRecorder{Reader: seg}
				f, err := NewFilter(g, query, scan, detail, WithPopHook(func(c *Cell) {
					require.Negative(t, bytes.Compare(prev, c.Token()), "pop order %q after %q", c.Token(), prev)
					prev = append(prev[:0], c.Token()...)
				}))
				require.NoError(t, err)

				res, err := f.DocIDSet(context.Background(), rec)
				require.NoError(t, err)
				for i := 1; i < len(rec.seeks); i++ {
					require.Less(t, rec.seeks[i-1], rec.seeks[i])
				}
				if want == nil {
					want = res.Docs
					continue
				}
				require.True(t, want.Equal(res.Docs), "query %v detail %d scan %d", query, detail, scan)
			}

			require.False(t, want.Test(deleted))
			if detail == g.MaxLevels() {
				// Points are tested by their cell center at full precision.
				continue
			}
			for i, s := range shapes {
				if i != deleted && s.Relate(query) != shape.Disjoint {
					require.True(t, want.Test(uint(i)), "doc %d %v missing for %v detail %d", i, s, query, detail)
				}
			}
		}
	}
}
