package manifest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/hupe1980/geoprefix/blobstore"
	"github.com/hupe1980/geoprefix/codec"
	"github.com/hupe1980/geoprefix/prefix"
)

const (
	// CurrentFileName names the blob holding the current manifest name.
	CurrentFileName = "CURRENT"
	// CurrentVersion is the manifest format version written by this package.
	CurrentVersion = 1

	manifestPrefix = "manifest-"
	segmentDir     = "segments/"
)

var (
	// ErrNoManifest is returned by Load when nothing has been committed yet.
	ErrNoManifest = errors.New("manifest: no committed manifest")

	// ErrConcurrentModification is returned when another writer committed
	// the same generation first.
	ErrConcurrentModification = errors.New("manifest: concurrent modification detected")
)

// Manifest describes the committed state of an index.
type Manifest struct {
	Version    int           `json:"version"`
	Generation uint64        `json:"generation"`
	Grid       prefix.Config `json:"grid"`
	Segments   []SegmentInfo `json:"segments"`
}

// SegmentInfo describes one segment blob.
type SegmentInfo struct {
	Name        string `json:"name"`
	MaxDoc      uint32 `json:"max_doc"`
	DocBase     uint64 `json:"doc_base"`
	Compression string `json:"compression"`

	// Deletions names the blob with deletions applied after the segment was
	// written, if any.
	Deletions  string `json:"deletions,omitempty"`
	NumDeleted uint64 `json:"num_deleted,omitempty"`
}

// Clone returns a deep copy of m.
func (m *Manifest) Clone() *Manifest {
	c := *m
	c.Segments = append([]SegmentInfo(nil), m.Segments...)
	if m.Grid.World != nil {
		w := *m.Grid.World
		c.Grid.World = &w
	}
	return &c
}

// MaxDoc returns the number of documents across all segments, deleted ones
// included.
func (m *Manifest) MaxDoc() uint64 {
	var n uint64
	for _, s := range m.Segments {
		n += uint64(s.MaxDoc)
	}
	return n
}

// Rebase recomputes DocBase of every segment from the segment order.
func (m *Manifest) Rebase() {
	var base uint64
	for i := range m.Segments {
		m.Segments[i].DocBase = base
		base += uint64(m.Segments[i].MaxDoc)
	}
}

// NewSegmentName returns a fresh, unique segment blob name.
func NewSegmentName() string {
	return segmentDir + "seg-" + uuid.NewString() + ".gps"
}

// DeletionsName returns the blob name for the deletions of segment at
// generation gen.
func DeletionsName(segment string, gen uint64) string {
	return fmt.Sprintf("%s.%d.del", strings.TrimSuffix(segment, ".gps"), gen)
}

func manifestName(gen uint64) string {
	return fmt.Sprintf("%s%06d-%s.json", manifestPrefix, gen, uuid.NewString())
}

// Option configures a Store.
type Option func(*Store)

// WithCommitter replaces the default CURRENT-blob committer.
func WithCommitter(c Committer) Option {
	return func(s *Store) {
		s.committer = c
	}
}

// WithCodec sets the codec used for new manifests.
func WithCodec(c codec.Codec) Option {
	return func(s *Store) {
		s.codec = c
	}
}

// Store loads and saves manifests in a blob store.
type Store struct {
	mu        sync.Mutex
	blobs     blobstore.Store
	committer Committer
	codec     codec.Codec
}

// NewStore creates a manifest store on blobs.
func NewStore(blobs blobstore.Store, opts ...Option) *Store {
	s := &Store{
		blobs: blobs,
		codec: codec.Default,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.committer == nil {
		s.committer = NewBlobCommitter(blobs)
	}
	return s
}

// Load returns the current manifest or ErrNoManifest.
func (s *Store) Load(ctx context.Context) (*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gen, name, err := s.committer.Current(ctx)
	if err != nil {
		return nil, err
	}
	if gen == 0 {
		return nil, ErrNoManifest
	}

	data, err := blobstore.Get(ctx, s.blobs, name)
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", name, err)
	}

	var m Manifest
	if err := s.codec.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: decode %s: %w", name, err)
	}
	if m.Version != CurrentVersion {
		return nil, fmt.Errorf("manifest: unsupported version %d (expected %d)", m.Version, CurrentVersion)
	}
	if m.Generation != gen {
		return nil, fmt.Errorf("manifest: %s has generation %d, committed as %d", name, m.Generation, gen)
	}
	return &m, nil
}

// Save writes m as the next generation and publishes it. On success
// m.Generation is advanced; on failure m is left unchanged.
func (s *Store) Save(ctx context.Context, m *Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := m.Clone()
	next.Version = CurrentVersion
	next.Generation++
	next.Rebase()

	data, err := s.codec.Marshal(next)
	if err != nil {
		return err
	}
	name := manifestName(next.Generation)
	if err := s.blobs.Put(ctx, name, data); err != nil {
		return err
	}
	if err := s.committer.Commit(ctx, next.Generation, name); err != nil {
		// Unreferenced; a failed delete is cleaned up by Prune.
		_ = s.blobs.Delete(ctx, name)
		return err
	}
	*m = *next
	return nil
}

// Prune deletes manifests and segment files not referenced by m. Manifests
// of generation >= m.Generation are kept.
func (s *Store) Prune(ctx context.Context, m *Manifest) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	live := make(map[string]struct{}, 2*len(m.Segments))
	for _, seg := range m.Segments {
		live[seg.Name] = struct{}{}
		if seg.Deletions != "" {
			live[seg.Deletions] = struct{}{}
		}
	}

	var doomed []string
	segs, err := s.blobs.List(ctx, segmentDir)
	if err != nil {
		return nil, err
	}
	for _, name := range segs {
		if _, ok := live[name]; !ok {
			doomed = append(doomed, name)
		}
	}

	manifests, err := s.blobs.List(ctx, manifestPrefix)
	if err != nil {
		return nil, err
	}
	for _, name := range manifests {
		var gen uint64
		if _, err := fmt.Sscanf(name, manifestPrefix+"%d-", &gen); err != nil {
			continue
		}
		if gen < m.Generation {
			doomed = append(doomed, name)
		}
	}

	for _, name := range doomed {
		if err := s.blobs.Delete(ctx, name); err != nil {
			return nil, err
		}
	}
	return doomed, nil
}
