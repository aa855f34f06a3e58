package index

import "errors"

var (
	// ErrCorruptSegment is returned when persisted segment data cannot be decoded.
	ErrCorruptSegment = errors.New("index: corrupt segment")

	// ErrUnpositioned is returned when postings are requested before the
	// enum is positioned on a term.
	ErrUnpositioned = errors.New("index: terms enum not positioned")
)
