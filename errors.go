package geoprefix

import (
	"errors"
	"fmt"

	"github.com/hupe1980/geoprefix/prefix"
)

var (
	// ErrClosed is returned by operations on a closed index.
	ErrClosed = errors.New("geoprefix: index closed")

	// ErrNotFound is returned when a document id is not in the index.
	ErrNotFound = errors.New("geoprefix: not found")

	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("geoprefix: k must be positive")
)

// ErrGridMismatch is returned by Open when the configured grid differs from
// the grid the index was created with.
type ErrGridMismatch struct {
	Configured prefix.Config
	Stored     prefix.Config
}

func (e *ErrGridMismatch) Error() string {
	return fmt.Sprintf("geoprefix: grid mismatch: configured %s/%d, index has %s/%d",
		e.Configured.Kind, e.Configured.MaxLevels, e.Stored.Kind, e.Stored.MaxLevels)
}

// SegmentError reports a failure tied to one segment. The cause can be
// accessed via errors.Unwrap.
type SegmentError struct {
	Segment string
	Op      string
	cause   error
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("geoprefix: %s segment %s: %v", e.Op, e.Segment, e.cause)
}

func (e *SegmentError) Unwrap() error { return e.cause }
