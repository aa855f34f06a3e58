package strategy

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/hupe1980/geoprefix/prefix"
	"github.com/hupe1980/geoprefix/shape"
)

const (
	// DefaultDistErrPct is the default precision of indexed and query shapes,
	// as a fraction of the shape size.
	DefaultDistErrPct = 0.025

	// DefaultScanLevelOffset puts the default scan level this many levels
	// above the grid's deepest level.
	DefaultScanLevelOffset = 4
)

// RecursivePrefixTreeStrategy indexes shapes as the tokens of every cell
// covering them, ancestors included, and queries them with prefix.Filter.
//
// A strategy is immutable after construction and safe for concurrent use.
type RecursivePrefixTreeStrategy struct {
	grid       prefix.Grid
	field      string
	distErrPct float64
	scanLevel  int
}

// Option configures a RecursivePrefixTreeStrategy.
type Option func(*RecursivePrefixTreeStrategy)

// WithDistErrPct sets the precision used when indexing and as query default.
func WithDistErrPct(pct float64) Option {
	return func(s *RecursivePrefixTreeStrategy) {
		s.distErrPct = pct
	}
}

// WithScanLevelOffset sets the scan level to maxLevels - offset.
func WithScanLevelOffset(offset int) Option {
	return func(s *RecursivePrefixTreeStrategy) {
		s.scanLevel = s.grid.MaxLevels() - offset
	}
}

// WithPrefixGridScanLevel sets the scan level directly.
func WithPrefixGridScanLevel(level int) Option {
	return func(s *RecursivePrefixTreeStrategy) {
		s.scanLevel = level
	}
}

// New creates a strategy for the named field over grid.
func New(grid prefix.Grid, field string, opts ...Option) (*RecursivePrefixTreeStrategy, error) {
	s := &RecursivePrefixTreeStrategy{
		grid:       grid,
		field:      field,
		distErrPct: DefaultDistErrPct,
		scanLevel:  grid.MaxLevels() - DefaultScanLevelOffset,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.distErrPct < 0 || s.distErrPct > 0.5 {
		return nil, fmt.Errorf("%w: %v not in [0, 0.5]", prefix.ErrInvalidPrecision, s.distErrPct)
	}
	s.scanLevel = max(1, min(s.scanLevel, grid.MaxLevels()-1))
	return s, nil
}

// Grid returns the prefix grid.
func (s *RecursivePrefixTreeStrategy) Grid() prefix.Grid { return s.grid }

// FieldName returns the indexed field name.
func (s *RecursivePrefixTreeStrategy) FieldName() string { return s.field }

// DistErrPct returns the default precision.
func (s *RecursivePrefixTreeStrategy) DistErrPct() float64 { return s.distErrPct }

// ScanLevel returns the scan level handed to every filter.
func (s *RecursivePrefixTreeStrategy) ScanLevel() int { return s.scanLevel }

func (s *RecursivePrefixTreeStrategy) String() string {
	return fmt.Sprintf("RecursivePrefixTreeStrategy(field=%s, grid=%s/%d, pct=%v, scan=%d)",
		s.field, s.grid.Name(), s.grid.MaxLevels(), s.distErrPct, s.scanLevel)
}

// IndexableTokens returns the sorted, de-duplicated tokens to index sh under.
//
// Leaf cells contribute their plain and their leaf-marked token, except at
// the deepest level where only the marked token is written. Shapes other
// than points are decomposed no deeper than one level above the grid's
// deepest level and also contribute the full-precision path of their
// center, so every deepest token names exactly one point.
func (s *RecursivePrefixTreeStrategy) IndexableTokens(sh shape.Shape) ([][]byte, error) {
	if sh == nil {
		return nil, prefix.ErrNilQuery
	}
	if err := s.grid.Context().Check(sh); err != nil {
		return nil, err
	}
	detail, err := s.grid.MaxLevelForPrecision(sh, s.distErrPct)
	if err != nil {
		return nil, err
	}
	_, isPoint := sh.(shape.Point)
	if !isPoint {
		// The deepest level is reserved for points and centers.
		detail = min(detail, max(1, s.grid.MaxLevels()-1))
	}
	cells, err := s.grid.Cells(sh, detail, true)
	if err != nil {
		return nil, err
	}
	if !isPoint {
		center, err := s.grid.Cells(sh.Center(), s.grid.MaxLevels(), true)
		if err != nil {
			return nil, err
		}
		cells = append(cells, center...)
	}

	seen := make(map[string]struct{}, 2*len(cells))
	tokens := make([][]byte, 0, 2*len(cells))
	add := func(tok []byte) {
		if _, ok := seen[string(tok)]; ok {
			return
		}
		seen[string(tok)] = struct{}{}
		tokens = append(tokens, tok)
	}
	deepest := s.grid.MaxLevels()
	for _, c := range cells {
		if !c.IsLeaf() || c.Level() < deepest {
			add(append([]byte(nil), c.Token()...))
		}
		if c.IsLeaf() {
			add(c.TokenBytes())
		}
	}
	sort.Slice(tokens, func(i, j int) bool {
		return bytes.Compare(tokens[i], tokens[j]) < 0
	})
	return tokens, nil
}

// DetailLevel returns the detail level a query with args runs at.
func (s *RecursivePrefixTreeStrategy) DetailLevel(args SpatialArgs) (int, error) {
	if args.DistErr > 0 {
		return s.grid.LevelForDistance(args.DistErr), nil
	}
	pct := s.distErrPct
	if args.DistErrPct != nil {
		pct = *args.DistErrPct
	}
	return s.grid.MaxLevelForPrecision(args.Shape, pct)
}

// MakeFilter returns the filter answering args.
func (s *RecursivePrefixTreeStrategy) MakeFilter(args SpatialArgs, opts ...prefix.FilterOption) (*prefix.Filter, error) {
	if args.Shape == nil {
		return nil, prefix.ErrNilQuery
	}
	switch args.Operation {
	case Intersects, IsWithin:
	case BBoxIntersects:
		args.Shape = args.Shape.BoundingBox()
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOperation, args.Operation)
	}
	detail, err := s.DetailLevel(args)
	if err != nil {
		return nil, err
	}
	return prefix.NewFilter(s.grid, args.Shape, s.scanLevel, detail, opts...)
}
