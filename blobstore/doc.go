// Package blobstore stores the immutable blobs of an index: segments,
// deletion files and manifests.
//
// # Built-in Implementations
//
//   - MemoryStore: in-process map, for tests and ephemeral indexes
//   - LocalStore: local directory with atomic writes and mmap reads
//   - s3.Store: Amazon S3 with ranged reads and multipart uploads
//   - minio.Store: MinIO and other S3-compatible services
//
// CachingStore wraps any Store with an LRU block cache, which pays off for
// the remote implementations.
//
// Implementations must be safe for concurrent use.
package blobstore
