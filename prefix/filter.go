package prefix

import (
	"bytes"
	"context"
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/hupe1980/geoprefix/index"
	"github.com/hupe1980/geoprefix/shape"
)

const docBatchSize = 256

// Filter finds the documents whose indexed cells intersect a query shape.
//
// Cells are visited depth-first in ascending token order. Above the scan
// level a cell that partially intersects the query is divided into its
// sub-cells; at or below it the terms under the cell are scanned linearly
// and tested one by one. Documents are collected from cells within the
// query, from cells at the detail level and from leaf terms.
//
// The index must hold every ancestor token of every indexed token. A cell
// whose own token is missing is pruned with its whole subtree, so an index
// that skips intermediate levels yields false negatives.
//
// A Filter is immutable and may run concurrently against many readers.
type Filter struct {
	grid        Grid
	query       shape.Shape
	scanLevel   int
	detailLevel int
	onPop       func(*Cell)
}

// FilterOption configures a Filter.
type FilterOption func(*Filter)

// WithPopHook registers fn to be called with every cell taken from the
// stack, in the order they are visited.
func WithPopHook(fn func(c *Cell)) FilterOption {
	return func(f *Filter) {
		f.onPop = fn
	}
}

// NewFilter creates a filter for query. detailLevel must be within
// [1, g.MaxLevels()]; scanLevel is clamped to [1, g.MaxLevels()-1].
func NewFilter(g Grid, query shape.Shape, scanLevel, detailLevel int, opts ...FilterOption) (*Filter, error) {
	if query == nil {
		return nil, ErrNilQuery
	}
	if err := checkDetailLevel(g, detailLevel); err != nil {
		return nil, err
	}
	f := &Filter{
		grid:        g,
		query:       query,
		scanLevel:   max(1, min(scanLevel, g.MaxLevels()-1)),
		detailLevel: detailLevel,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Query returns the query shape.
func (f *Filter) Query() shape.Shape { return f.query }

// ScanLevel returns the effective scan level.
func (f *Filter) ScanLevel() int { return f.scanLevel }

// DetailLevel returns the detail level.
func (f *Filter) DetailLevel() int { return f.detailLevel }

func (f *Filter) String() string {
	return fmt.Sprintf("prefix.Filter(%s, query=%v, scan=%d, detail=%d)", f.grid.Name(), f.query, f.scanLevel, f.detailLevel)
}

// Stats counts the work done by one DocIDSet call.
type Stats struct {
	CellsPopped   int
	Seeks         int
	SeekMisses    int
	TermsScanned  int
	TermsAccepted int
}

// Result is the outcome of a filter run against one reader.
type Result struct {
	// Docs has a bit set for every matching live document. Its length is
	// the reader's MaxDoc.
	Docs  *bitset.BitSet
	Stats Stats
}

// DocIDSet runs the filter against r. Deleted documents are never returned.
//
// The context is checked between cells. A term that does not decode into a
// cell aborts the run with an error wrapping ErrCorruptToken.
func (f *Filter) DocIDSet(ctx context.Context, r index.Reader) (*Result, error) {
	t := &traversal{
		Filter: f,
		te:     r.Terms(),
		accept: r.LiveDocs(),
		docs:   bitset.New(uint(r.MaxDoc())),
		buf:    make([]uint32, docBatchSize),
	}
	if err := t.run(ctx); err != nil {
		return nil, err
	}
	return &Result{Docs: t.docs, Stats: t.stats}, nil
}

// traversal is the per-reader state of a filter run.
type traversal struct {
	*Filter
	te      index.TermsEnum
	accept  index.AcceptDocs
	docs    *bitset.BitSet
	buf     []uint32
	scratch Cell
	stack   CellStack
	stats   Stats
}

func (t *traversal) run(ctx context.Context) error {
	t.stack.PushFront(t.grid.WorldCell().SubCells(t.query))
	for t.stack.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		cell := t.stack.PopFront()
		t.stats.CellsPopped++
		if t.onPop != nil {
			t.onPop(cell)
		}
		if cell.RelationTo(t.query) == shape.Disjoint {
			continue
		}
		token := cell.Token()
		t.stats.Seeks++
		status, err := t.te.SeekCeil(token)
		if err != nil {
			return err
		}
		switch status {
		case index.SeekEnd:
			return nil
		case index.SeekNotFound:
			t.stats.SeekMisses++
			continue
		}
		if cell.RelationTo(t.query) == shape.Within || cell.Level() == t.detailLevel {
			if err := t.collect(); err != nil {
				return err
			}
			continue
		}
		next, err := t.te.Next()
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}
		if isLeafOf(next, token) {
			// the whole cell is covered by these documents
			if err := t.collect(); err != nil {
				return err
			}
			if next, err = t.te.Next(); err != nil {
				return err
			}
			if next == nil {
				return nil
			}
		}
		if cell.Level() < t.scanLevel {
			t.stack.PushFront(cell.SubCells(t.query))
			continue
		}
		if err := t.scan(token, next); err != nil {
			return err
		}
	}
	return nil
}

// scan tests every term below prefix, starting with term, the current one.
func (t *traversal) scan(prefix, term []byte) error {
	for term != nil && bytes.HasPrefix(term, prefix) {
		t.stats.TermsScanned++
		c, err := t.grid.ReadCell(term, &t.scratch)
		if err != nil {
			return err
		}
		if level := c.Level(); level == t.detailLevel || (level < t.detailLevel && c.IsLeaf()) {
			// Only a marked term at the deepest level is a point; a plain
			// term of the same length still covers its cell.
			var s shape.Shape = c.Rect()
			if c.IsLeaf() && level == t.grid.MaxLevels() {
				s = c.Center()
			}
			if s.Relate(t.query) != shape.Disjoint {
				if err := t.collect(); err != nil {
					return err
				}
			}
		}
		if term, err = t.te.Next(); err != nil {
			return err
		}
	}
	return nil
}

// collect adds the accepted documents of the current term.
func (t *traversal) collect() error {
	it, err := t.te.Docs(t.accept)
	if err != nil {
		return err
	}
	for {
		n, err := it.NextBatch(t.buf)
		if err != nil {
			return err
		}
		if n == 0 {
			break
		}
		for _, d := range t.buf[:n] {
			t.docs.Set(uint(d))
		}
	}
	t.stats.TermsAccepted++
	return nil
}

func isLeafOf(term, token []byte) bool {
	return len(term) == len(token)+1 && term[len(token)] == LeafByte && bytes.HasPrefix(term, token)
}
