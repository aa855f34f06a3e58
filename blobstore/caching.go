package blobstore

import (
	"context"
	"errors"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/geoprefix/internal/cache"
)

// DefaultBlockSize is the block size used by NewCachingStore when none is given.
const DefaultBlockSize = 64 << 10

// maxFetchConcurrency caps parallel backend reads for one ReadAt.
const maxFetchConcurrency = 8

// CachingStore wraps a Store with a block-level read cache. It is meant for
// remote stores where every ReadAt is a round trip.
type CachingStore struct {
	inner     Store
	cache     *cache.LRU
	blockSize int64
}

// Ensure CachingStore implements Store.
var _ Store = (*CachingStore)(nil)

// NewCachingStore creates a caching wrapper around inner. blockSize defaults
// to DefaultBlockSize if <= 0.
func NewCachingStore(inner Store, c *cache.LRU, blockSize int64) *CachingStore {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &CachingStore{
		inner:     inner,
		cache:     c,
		blockSize: blockSize,
	}
}

// Open implements Store.
func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &cachingBlob{inner: b, store: s, name: name}, nil
}

// Put implements Store.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.cache.Invalidate(name)
	return s.inner.Put(ctx, name, data)
}

// Delete implements Store.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.cache.Invalidate(name)
	return s.inner.Delete(ctx, name)
}

// List implements Store.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

type cachingBlob struct {
	inner Blob
	store *CachingStore
	name  string
}

func (b *cachingBlob) Size() int64 { return b.inner.Size() }

func (b *cachingBlob) Close() error { return b.inner.Close() }

func (b *cachingBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	size := b.Size()
	if off < 0 || off >= size {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}

	want := p
	if rest := size - off; int64(len(p)) > rest {
		want = p[:rest]
	}

	bs := b.store.blockSize
	first := off / bs
	last := (off + int64(len(want)) - 1) / bs

	blocks, err := b.blocks(ctx, first, last)
	if err != nil {
		return 0, err
	}

	n := 0
	for blk := first; blk <= last; blk++ {
		data := blocks[blk-first]
		start := max(blk*bs, off) - blk*bs
		if start >= int64(len(data)) {
			break
		}
		n += copy(want[n:], data[start:])
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// blocks returns blocks first..last, reading contiguous runs of missing
// blocks from the backend in parallel.
func (b *cachingBlob) blocks(ctx context.Context, first, last int64) ([][]byte, error) {
	out := make([][]byte, last-first+1)

	type run struct{ start, count int64 }
	var missing []run
	for blk := first; blk <= last; blk++ {
		if data, ok := b.store.cache.Get(cache.Key{Name: b.name, Block: blk}); ok {
			out[blk-first] = data
			continue
		}
		if n := len(missing); n > 0 && missing[n-1].start+missing[n-1].count == blk {
			missing[n-1].count++
		} else {
			missing = append(missing, run{start: blk, count: 1})
		}
	}
	if len(missing) == 0 {
		return out, nil
	}

	bs := b.store.blockSize
	size := b.Size()

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxFetchConcurrency)
	for _, r := range missing {
		g.Go(func() error {
			start := r.start * bs
			buf := make([]byte, min(r.count*bs, size-start))
			n, err := b.inner.ReadAt(gctx, buf, start)
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			buf = buf[:n]

			mu.Lock()
			defer mu.Unlock()
			for i := int64(0); i < r.count; i++ {
				lo := i * bs
				if lo >= int64(len(buf)) {
					break
				}
				// Copy so a cached block does not pin the whole run.
				block := append([]byte(nil), buf[lo:min(lo+bs, int64(len(buf)))]...)
				b.store.cache.Set(cache.Key{Name: b.name, Block: r.start + i}, block)
				out[r.start+i-first] = block
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
