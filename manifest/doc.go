// Package manifest tracks the segments of a committed index.
//
// A commit writes an immutable manifest blob (manifest-<generation>-<uuid>.json)
// and then publishes it through a Committer. The default committer keeps a
// CURRENT blob naming the manifest; DynamoCommitter publishes with a DynamoDB
// conditional write so that concurrent writers cannot both win the same
// generation.
package manifest
