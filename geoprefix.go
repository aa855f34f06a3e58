package geoprefix

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/bits-and-blooms/bitset"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/geoprefix/blobstore"
	"github.com/hupe1980/geoprefix/index"
	"github.com/hupe1980/geoprefix/internal/cache"
	"github.com/hupe1980/geoprefix/internal/resource"
	"github.com/hupe1980/geoprefix/manifest"
	"github.com/hupe1980/geoprefix/prefix"
	"github.com/hupe1980/geoprefix/shape"
	"github.com/hupe1980/geoprefix/strategy"
)

// Index is a spatial index persisted as immutable segments in a blob store.
//
// Added and deleted documents become visible to searches after Commit.
// An Index is safe for concurrent use.
type Index struct {
	mu sync.RWMutex

	store     blobstore.Store
	manifests *manifest.Store
	m         *manifest.Manifest
	grid      prefix.Grid
	strategy  *strategy.RecursivePrefixTreeStrategy
	rc        *resource.Controller
	opts      options

	segments []*segment

	builder   *index.SegmentBuilder
	pending   map[uint64]uint32
	deletions map[string]*roaring.Bitmap

	closed bool
}

type segment struct {
	info manifest.SegmentInfo
	seg  *index.Segment

	mu     sync.Mutex
	points *strategy.PointCache
}

func (s *segment) pointCache(ctx context.Context, g prefix.Grid) (*strategy.PointCache, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.points == nil {
		pc, err := strategy.BuildPointCache(ctx, g, s.seg)
		if err != nil {
			return nil, err
		}
		s.points = pc
	}
	return s.points, nil
}

// Hit is a matching document.
type Hit struct {
	// ID is the id the document was added with.
	ID uint64
	// Doc is the index-wide document number.
	Doc uint64
}

// SearchResult holds the hits of a search in document order.
type SearchResult struct {
	Hits  []Hit
	Stats prefix.Stats
}

// IDs returns the ids of all hits.
func (r *SearchResult) IDs() []uint64 {
	ids := make([]uint64, len(r.Hits))
	for i, h := range r.Hits {
		ids[i] = h.ID
	}
	return ids
}

// Neighbor is a hit with its distance to a reference point.
type Neighbor struct {
	Hit
	Distance float64
}

// Stats describes the state of an index.
type Stats struct {
	Generation     uint64
	Grid           string
	Segments       int
	Docs           uint64
	Deleted        uint64
	Terms          int
	PendingDocs    int
	PendingDeletes int
}

// Open opens the index stored in store, or prepares a new one if nothing
// has been committed there yet.
func Open(ctx context.Context, store blobstore.Store, optFns ...Option) (*Index, error) {
	o := applyOptions(optFns)
	rc := resource.NewController(o.resource)

	if o.blockCacheBytes > 0 {
		store = blobstore.NewCachingStore(store, cache.NewLRU(o.blockCacheBytes, rc), 0)
	}

	var mopts []manifest.Option
	if o.committer != nil {
		mopts = append(mopts, manifest.WithCommitter(o.committer))
	}
	ms := manifest.NewStore(store, mopts...)

	m, err := ms.Load(ctx)
	switch {
	case errors.Is(err, manifest.ErrNoManifest):
		cfg := DefaultGrid
		if o.grid != nil {
			cfg = *o.grid
		}
		m = &manifest.Manifest{Version: manifest.CurrentVersion, Grid: cfg}
	case err != nil:
		o.logger.LogOpen(ctx, 0, 0, "", err)
		return nil, err
	case o.grid != nil && !sameGrid(*o.grid, m.Grid):
		return nil, &ErrGridMismatch{Configured: *o.grid, Stored: m.Grid}
	}

	grid, err := prefix.New(m.Grid)
	if err != nil {
		return nil, err
	}
	strat, err := strategy.New(grid, o.field, o.strategyOpts...)
	if err != nil {
		return nil, err
	}

	idx := &Index{
		store:     store,
		manifests: ms,
		m:         m,
		grid:      grid,
		strategy:  strat,
		rc:        rc,
		opts:      o,
	}
	idx.segments, err = idx.loadSegments(ctx, m.Segments)
	if err != nil {
		o.logger.LogOpen(ctx, m.Generation, 0, grid.Name(), err)
		return nil, err
	}
	idx.resetPending()

	o.logger.LogOpen(ctx, m.Generation, len(idx.segments), grid.Name(), nil)
	return idx, nil
}

func sameGrid(a, b prefix.Config) bool {
	if a.Kind != b.Kind || a.MaxLevels != b.MaxLevels {
		return false
	}
	if a.World == nil || b.World == nil {
		return a.World == b.World
	}
	return *a.World == *b.World
}

func (idx *Index) loadSegments(ctx context.Context, infos []manifest.SegmentInfo) ([]*segment, error) {
	out := make([]*segment, len(infos))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, info := range infos {
		g.Go(func() error {
			s, err := idx.loadSegment(gctx, info)
			if err != nil {
				idx.opts.logger.LogSegmentLoad(gctx, info.Name, 0, 0, err)
				return &SegmentError{Segment: info.Name, Op: "load", cause: err}
			}
			out[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (idx *Index) loadSegment(ctx context.Context, info manifest.SegmentInfo) (*segment, error) {
	b, err := idx.store.Open(ctx, info.Name)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	if err := idx.rc.AcquireIO(ctx, int(b.Size())); err != nil {
		return nil, err
	}
	data, err := blobstore.ReadAll(ctx, b)
	if err != nil {
		return nil, err
	}
	seg, err := index.ReadSegment(data)
	if err != nil {
		return nil, err
	}
	if seg.MaxDoc() != info.MaxDoc {
		return nil, fmt.Errorf("%w: %d docs, manifest has %d", index.ErrCorruptSegment, seg.MaxDoc(), info.MaxDoc)
	}

	if info.Deletions != "" {
		raw, err := blobstore.Get(ctx, idx.store, info.Deletions)
		if err != nil {
			return nil, err
		}
		del, err := index.DecodeDeletions(raw)
		if err != nil {
			return nil, err
		}
		seg = seg.WithDeletions(del)
	}

	idx.opts.logger.LogSegmentLoad(ctx, info.Name, len(data), seg.MaxDoc(), nil)
	return &segment{info: info, seg: seg}, nil
}

func (idx *Index) resetPending() {
	idx.builder = index.NewSegmentBuilder(manifest.NewSegmentName())
	idx.pending = make(map[uint64]uint32)
	idx.deletions = make(map[string]*roaring.Bitmap)
}

// Grid returns the prefix grid of the index.
func (idx *Index) Grid() prefix.Grid { return idx.grid }

// Strategy returns the strategy used to index and query shapes.
func (idx *Index) Strategy() *strategy.RecursivePrefixTreeStrategy { return idx.strategy }

// AddDocument adds s under id, replacing any document with the same id.
func (idx *Index) AddDocument(id uint64, s shape.Shape) error {
	tokens, err := idx.strategy.IndexableTokens(s)
	if err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return ErrClosed
	}
	idx.deleteLocked(id)
	idx.pending[id] = idx.builder.Add(id, tokens)
	return nil
}

// Delete removes the document with the given id.
func (idx *Index) Delete(id uint64) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return ErrClosed
	}
	if !idx.deleteLocked(id) {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return nil
}

func (idx *Index) deleteLocked(id uint64) bool {
	found := false
	if doc, ok := idx.pending[id]; ok {
		idx.builder.Delete(doc)
		delete(idx.pending, id)
		found = true
	}
	for _, s := range idx.segments {
		doc, ok := s.seg.LocalDoc(id)
		if !ok || s.seg.IsDeleted(doc) {
			continue
		}
		bm, ok := idx.deletions[s.info.Name]
		if !ok {
			bm = roaring.New()
			idx.deletions[s.info.Name] = bm
		}
		if bm.CheckedAdd(doc) {
			found = true
		}
	}
	return found
}

func (idx *Index) pendingDeletes() int {
	n := 0
	for _, bm := range idx.deletions {
		n += int(bm.GetCardinality())
	}
	return n
}

// Commit writes pending documents as a new segment, persists pending
// deletions and publishes a new manifest. Commit with nothing pending is a
// no-op.
func (idx *Index) Commit(ctx context.Context) error {
	start := time.Now()

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return ErrClosed
	}
	added, deleted := len(idx.pending), idx.pendingDeletes()
	if idx.builder.Len() == 0 && deleted == 0 {
		return nil
	}

	m, segs, err := idx.commitLocked(ctx)
	took := time.Since(start)
	idx.opts.metricsCollector.RecordCommit(added, deleted, took, err)
	if err != nil {
		idx.opts.logger.LogCommit(ctx, idx.m.Generation, added, deleted, took, err)
		return err
	}

	idx.m = m
	idx.segments = segs
	idx.resetPending()
	idx.opts.logger.LogCommit(ctx, m.Generation, added, deleted, took, nil)
	return nil
}

func (idx *Index) commitLocked(ctx context.Context) (*manifest.Manifest, []*segment, error) {
	next := idx.m.Clone()
	gen := next.Generation + 1

	var written []string
	fail := func(err error) (*manifest.Manifest, []*segment, error) {
		for _, name := range written {
			_ = idx.store.Delete(ctx, name)
		}
		return nil, nil, err
	}

	views := make([]*index.Segment, 0, len(idx.segments)+1)
	infos := make([]manifest.SegmentInfo, 0, len(idx.segments)+1)
	reuse := make(map[int]*segment)

	for _, s := range idx.segments {
		del, ok := idx.deletions[s.info.Name]
		if !ok || del.IsEmpty() {
			reuse[len(infos)] = s
			views = append(views, s.seg)
			infos = append(infos, s.info)
			continue
		}
		view := s.seg.WithDeletions(del)
		if view.LiveCount() == 0 {
			continue
		}
		raw, err := index.EncodeDeletions(view.Deleted())
		if err != nil {
			return fail(err)
		}
		info := s.info
		info.Deletions = manifest.DeletionsName(info.Name, gen)
		info.NumDeleted = view.NumDeleted()
		if err := idx.store.Put(ctx, info.Deletions, raw); err != nil {
			return fail(&SegmentError{Segment: info.Name, Op: "write deletions of", cause: err})
		}
		written = append(written, info.Deletions)
		views = append(views, view)
		infos = append(infos, info)
	}

	if idx.builder.Len() > 0 {
		seg := idx.builder.Build()
		if seg.LiveCount() > 0 {
			data, err := index.EncodeSegment(seg, idx.opts.compression)
			if err != nil {
				return fail(err)
			}
			if err := idx.store.Put(ctx, seg.Name(), data); err != nil {
				return fail(&SegmentError{Segment: seg.Name(), Op: "write", cause: err})
			}
			written = append(written, seg.Name())
			views = append(views, seg)
			infos = append(infos, manifest.SegmentInfo{
				Name:        seg.Name(),
				MaxDoc:      seg.MaxDoc(),
				Compression: idx.opts.compression.String(),
				NumDeleted:  seg.NumDeleted(),
			})
		}
	}

	next.Segments = infos
	if err := idx.manifests.Save(ctx, next); err != nil {
		return fail(err)
	}

	// Save assigned the doc bases, so every handle gets a fresh info.
	segs := make([]*segment, len(views))
	for i, view := range views {
		s := &segment{info: next.Segments[i], seg: view}
		if old, ok := reuse[i]; ok {
			old.mu.Lock()
			s.points = old.points
			old.mu.Unlock()
		}
		segs[i] = s
	}
	return next, segs, nil
}

func (idx *Index) snapshot() ([]*segment, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.closed {
		return nil, ErrClosed
	}
	return idx.segments, nil
}

// searchSegments runs the filter for args on segs in parallel and passes
// each segment's matches to fn.
func (idx *Index) searchSegments(ctx context.Context, segs []*segment, args strategy.SpatialArgs, fn func(ctx context.Context, i int, s *segment, docs *bitset.BitSet) error) (prefix.Stats, error) {
	f, err := idx.strategy.MakeFilter(args)
	if err != nil {
		return prefix.Stats{}, err
	}

	stats := make([]prefix.Stats, len(segs))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range segs {
		g.Go(func() error {
			if err := idx.rc.AcquireSearch(gctx); err != nil {
				return err
			}
			defer idx.rc.ReleaseSearch()

			res, err := f.DocIDSet(gctx, s.seg)
			if err != nil {
				return &SegmentError{Segment: s.info.Name, Op: "search", cause: err}
			}
			stats[i] = res.Stats
			idx.opts.metricsCollector.RecordFilter(res.Stats)
			return fn(gctx, i, s, res.Docs)
		})
	}
	if err := g.Wait(); err != nil {
		return prefix.Stats{}, err
	}

	var total prefix.Stats
	for _, st := range stats {
		total.CellsPopped += st.CellsPopped
		total.Seeks += st.Seeks
		total.SeekMisses += st.SeekMisses
		total.TermsScanned += st.TermsScanned
		total.TermsAccepted += st.TermsAccepted
	}
	return total, nil
}

// Search returns the committed documents matching args.
func (idx *Index) Search(ctx context.Context, args strategy.SpatialArgs) (*SearchResult, error) {
	start := time.Now()
	segs, err := idx.snapshot()
	if err != nil {
		return nil, err
	}

	perSeg := make([][]Hit, len(segs))
	stats, err := idx.searchSegments(ctx, segs, args, func(_ context.Context, i int, s *segment, docs *bitset.BitSet) error {
		hits := make([]Hit, 0, docs.Count())
		for doc, ok := docs.NextSet(0); ok; doc, ok = docs.NextSet(doc + 1) {
			hits = append(hits, Hit{
				ID:  s.seg.ExternalID(uint32(doc)),
				Doc: s.info.DocBase + uint64(doc),
			})
		}
		perSeg[i] = hits
		return nil
	})

	res := &SearchResult{Stats: stats}
	for _, hits := range perSeg {
		res.Hits = append(res.Hits, hits...)
	}
	took := time.Since(start)
	idx.opts.metricsCollector.RecordSearch(len(res.Hits), took, err)
	idx.opts.logger.LogSearch(ctx, args.Operation.String(), len(res.Hits), took, err)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// SearchByDistance returns up to k committed documents matching args,
// nearest first, measured from the point each document was indexed with
// (its center for non-point shapes).
func (idx *Index) SearchByDistance(ctx context.Context, args strategy.SpatialArgs, from shape.Point, k int) ([]Neighbor, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	start := time.Now()
	segs, err := idx.snapshot()
	if err != nil {
		return nil, err
	}
	calc := idx.grid.Context().Calculator()

	var mu sync.Mutex
	var all []Neighbor
	_, err = idx.searchSegments(ctx, segs, args, func(ctx context.Context, _ int, s *segment, docs *bitset.BitSet) error {
		pc, err := s.pointCache(ctx, idx.grid)
		if err != nil {
			return &SegmentError{Segment: s.info.Name, Op: "cache points of", cause: err}
		}
		dist := strategy.NewDistanceValueSource(pc, from, calc)

		var near []Neighbor
		for doc, ok := docs.NextSet(0); ok; doc, ok = docs.NextSet(doc + 1) {
			d := dist.Value(uint32(doc))
			if math.IsNaN(d) {
				continue
			}
			near = append(near, Neighbor{
				Hit:      Hit{ID: s.seg.ExternalID(uint32(doc)), Doc: s.info.DocBase + uint64(doc)},
				Distance: d,
			})
		}
		sortNeighbors(near)
		if len(near) > k {
			near = near[:k]
		}

		mu.Lock()
		defer mu.Unlock()
		all = append(all, near...)
		return nil
	})
	if err == nil {
		sortNeighbors(all)
		if len(all) > k {
			all = all[:k]
		}
	}

	took := time.Since(start)
	idx.opts.metricsCollector.RecordSearch(len(all), took, err)
	idx.opts.logger.LogSearch(ctx, args.Operation.String(), len(all), took, err)
	if err != nil {
		return nil, err
	}
	return all, nil
}

func sortNeighbors(ns []Neighbor) {
	sort.Slice(ns, func(i, j int) bool {
		if ns[i].Distance != ns[j].Distance {
			return ns[i].Distance < ns[j].Distance
		}
		return ns[i].Doc < ns[j].Doc
	})
}

// Stats returns a snapshot of the index state.
func (idx *Index) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	st := Stats{
		Generation:     idx.m.Generation,
		Grid:           idx.grid.Name(),
		Segments:       len(idx.segments),
		PendingDocs:    len(idx.pending),
		PendingDeletes: idx.pendingDeletes(),
	}
	for _, s := range idx.segments {
		st.Docs += s.seg.LiveCount()
		st.Deleted += s.seg.NumDeleted()
		st.Terms += s.seg.NumTerms()
	}
	return st
}

// Prune deletes blobs no longer referenced by the current manifest and
// returns their names.
func (idx *Index) Prune(ctx context.Context) ([]string, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return nil, ErrClosed
	}
	return idx.manifests.Prune(ctx, idx.m)
}

// Close discards uncommitted changes and releases the loaded segments.
// Close is idempotent.
func (idx *Index) Close() error {
	if idx == nil {
		return nil
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return nil
	}
	if n := len(idx.pending) + idx.pendingDeletes(); n > 0 {
		idx.opts.logger.Warn("discarding uncommitted changes", "changes", n)
	}
	idx.closed = true
	idx.segments = nil
	idx.builder = nil
	idx.pending = nil
	idx.deletions = nil
	return nil
}
