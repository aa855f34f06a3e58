// Package minio implements blobstore.Store on MinIO and other
// S3-compatible object stores using minio-go.
package minio
