// Package codec encodes the JSON documents around an index: manifests,
// the shape documents read by the command line tool and its output.
//
// Decoding is strict. Unknown fields are errors, so a manifest written with
// fields this version does not know is rejected rather than rewritten
// without them.
package codec

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

// MaxLineSize is the longest line ReadLines accepts.
const MaxLineSize = 16 << 20

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Write encodes v with c and writes it to w, followed by a newline.
func Write(w io.Writer, c Codec, v any) error {
	b, err := c.Marshal(v)
	if err != nil {
		return fmt.Errorf("codec %s: %w", c.Name(), err)
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}

// ReadLines decodes every non-blank line of r into a new T and calls fn
// with it and its 1-based line number. Errors from decoding and from fn are
// returned with the line number attached; the first one stops the read.
func ReadLines[T any](r io.Reader, c Codec, fn func(line int, v T) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), MaxLineSize)
	line := 0
	for sc.Scan() {
		line++
		data := bytes.TrimSpace(sc.Bytes())
		if len(data) == 0 {
			continue
		}
		var v T
		if err := c.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := fn(line, v); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
	return sc.Err()
}
