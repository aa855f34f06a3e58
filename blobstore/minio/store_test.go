package minio

import (
	"context"
	"os"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/geoprefix/blobstore"
)

func TestStore_Keys(t *testing.T) {
	s := NewStore(nil, "bucket", "/indexes/places/")
	assert.Equal(t, "indexes/places/CURRENT", s.key("CURRENT"))
	assert.Equal(t, "segments/seg-1.gps", s.rel("indexes/places/segments/seg-1.gps"))

	s = NewStore(nil, "bucket", "")
	assert.Equal(t, "CURRENT", s.key("CURRENT"))
	assert.Equal(t, "CURRENT", s.rel("CURRENT"))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.False(t, isNotFound(minio.ErrorResponse{Code: "AccessDenied"}))
}

// TestStore_Integration runs against the MinIO server named by
// GEOPREFIX_MINIO_ENDPOINT.
func TestStore_Integration(t *testing.T) {
	endpoint := os.Getenv("GEOPREFIX_MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("GEOPREFIX_MINIO_ENDPOINT not set")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	require.NoError(t, err)

	ctx := context.Background()
	bucket := "geoprefix-test"
	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	s := NewStore(client, bucket, t.Name())

	_, err = s.Open(ctx, "missing")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	require.NoError(t, s.Put(ctx, "segments/seg-1.gps", []byte("hello world")))
	got, err := blobstore.Get(ctx, s, "segments/seg-1.gps")
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(got))

	names, err := s.List(ctx, "segments/")
	require.NoError(t, err)
	assert.Equal(t, []string{"segments/seg-1.gps"}, names)

	require.NoError(t, s.Delete(ctx, "segments/seg-1.gps"))
	require.NoError(t, s.Delete(ctx, "segments/seg-1.gps"))
}
