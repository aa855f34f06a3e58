package manifest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/geoprefix/blobstore"
)

// Committer publishes manifest generations.
type Committer interface {
	// Current returns the latest generation and its manifest blob name.
	// Generation 0 means nothing has been committed.
	Current(ctx context.Context) (uint64, string, error)

	// Commit publishes name as generation gen, which must be the successor
	// of the current generation. It returns ErrConcurrentModification
	// otherwise.
	Commit(ctx context.Context, gen uint64, name string) error
}

// BlobCommitter keeps the current manifest name in the CURRENT blob. Its
// compare-and-swap is only as strong as the blob store: it detects stale
// writers but does not serialize writers racing on a store without
// conditional writes.
type BlobCommitter struct {
	blobs blobstore.Store
}

// Ensure BlobCommitter implements Committer.
var _ Committer = (*BlobCommitter)(nil)

// NewBlobCommitter creates a committer on blobs.
func NewBlobCommitter(blobs blobstore.Store) *BlobCommitter {
	return &BlobCommitter{blobs: blobs}
}

// Current implements Committer.
func (c *BlobCommitter) Current(ctx context.Context) (uint64, string, error) {
	data, err := blobstore.Get(ctx, c.blobs, CurrentFileName)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return 0, "", nil
		}
		return 0, "", err
	}
	name := strings.TrimSpace(string(data))
	var gen uint64
	if _, err := fmt.Sscanf(name, manifestPrefix+"%d-", &gen); err != nil || gen == 0 {
		return 0, "", fmt.Errorf("manifest: malformed %s content %q", CurrentFileName, name)
	}
	return gen, name, nil
}

// Commit implements Committer.
func (c *BlobCommitter) Commit(ctx context.Context, gen uint64, name string) error {
	cur, _, err := c.Current(ctx)
	if err != nil {
		return err
	}
	if cur+1 != gen {
		return fmt.Errorf("%w: generation %d, current %d", ErrConcurrentModification, gen, cur)
	}
	return c.blobs.Put(ctx, CurrentFileName, []byte(name))
}
