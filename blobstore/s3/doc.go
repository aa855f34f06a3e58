// Package s3 implements blobstore.Store on Amazon S3 and S3-compatible
// services using aws-sdk-go-v2.
//
// Reads are ranged GetObject requests, so segments are usually opened
// through a blobstore.CachingStore. Large blobs are uploaded with the
// multipart upload manager.
package s3
