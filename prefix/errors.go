package prefix

import (
	"errors"
	"fmt"
)

var (
	// ErrCorruptToken is returned when a term cannot be decoded into a cell.
	// It signals an inconsistent index, not a bad query.
	ErrCorruptToken = errors.New("prefix: corrupt cell token")

	// ErrInvalidDetailLevel is returned when a detail level is outside [1, maxLevels].
	ErrInvalidDetailLevel = errors.New("prefix: invalid detail level")

	// ErrInvalidMaxLevels is returned when a grid is configured with an unsupported depth.
	ErrInvalidMaxLevels = errors.New("prefix: invalid max levels")

	// ErrInvalidPrecision is returned when a distance error percentage is outside [0, 0.5].
	ErrInvalidPrecision = errors.New("prefix: invalid precision")

	// ErrNilQuery is returned when a filter is built without a query shape.
	ErrNilQuery = errors.New("prefix: nil query shape")

	// ErrUnknownGrid is returned for an unknown grid kind.
	ErrUnknownGrid = errors.New("prefix: unknown grid")
)

// TokenError describes a token that failed to decode.
//
// It unwraps to ErrCorruptToken.
type TokenError struct {
	Token  []byte
	Reason string
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("prefix: corrupt cell token %q: %s", e.Token, e.Reason)
}

func (e *TokenError) Unwrap() error { return ErrCorruptToken }
