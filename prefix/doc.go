// Package prefix implements hierarchical spatial prefix grids and the
// recursive range query that runs over them.
//
// A Grid recursively subdivides a bounded world. Every Cell is named by a
// token: the concatenation of one selector byte per level on the path from
// the root. A cell is an ancestor of another exactly when its token is a
// byte prefix of the other's, so sorting tokens as bytes yields a depth-first
// walk of the tree. Documents are indexed under the tokens of the cells that
// cover their shape, every ancestor included.
//
// Two grids are provided:
//
//   - QuadGrid splits each cell into four quadrants A, B, C and D.
//   - GeohashGrid uses the 32 symbols of the geohash alphabet.
//
// A token may carry a trailing LeafByte. Such a term stands for an exact
// point or for a shape that covers its whole cell, as opposed to the plain
// token of the same cell, which only says "something below here".
//
// # Range queries
//
// Filter answers "which documents intersect this shape" against an
// index.Reader. It pops cells from a CellStack in strictly ascending token
// order, which lets every dictionary seek move forward only:
//
//	g, _ := prefix.NewQuadGrid(ctx, 12)
//	f, _ := prefix.NewFilter(g, query, 8, 10)
//	res, err := f.DocIDSet(context.Background(), segment)
//
// The scan level only trades dictionary seeks against linear term scans. Any
// legal value returns the same documents.
//
// # Thread Safety
//
// Grids and Filters are immutable and safe for concurrent use. Cells are
// cheap values owned by a single query. ReadCell with a scratch cell mutates
// that cell in place: a scratch cell must never be shared between goroutines
// or between interleaved queries.
package prefix
