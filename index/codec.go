package index

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/RoaringBitmap/roaring/v2"
)

// Segment file layout:
//
//	magic "GPSG" | version u8 | compression u8 | reserved u16 | crc32c u32 | block
//
// The checksum covers the block as stored. The decompressed block holds:
//
//	name | maxDoc | numTerms | terms (front coded) + postings | ids | deleted
//
// with every length and integer encoded as a uvarint.
const (
	segmentMagic      = "GPSG"
	segmentVersion    = 1
	segmentHeaderSize = 12
)

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// WriteSegment serializes seg to w.
func WriteSegment(w io.Writer, seg *Segment, c Compression) (int64, error) {
	var payload bytes.Buffer
	var scratch [binary.MaxVarintLen64]byte
	putUvarint := func(v uint64) {
		n := binary.PutUvarint(scratch[:], v)
		payload.Write(scratch[:n])
	}
	putBytes := func(b []byte) {
		putUvarint(uint64(len(b)))
		payload.Write(b)
	}

	putBytes([]byte(seg.name))
	putUvarint(uint64(seg.maxDoc))
	putUvarint(uint64(len(seg.terms)))

	var prev []byte
	var bm bytes.Buffer
	for i, term := range seg.terms {
		shared := sharedPrefix(prev, term)
		putUvarint(uint64(shared))
		putBytes(term[shared:])
		prev = term

		bm.Reset()
		if _, err := seg.postings[i].WriteTo(&bm); err != nil {
			return 0, fmt.Errorf("write postings of %q: %w", term, err)
		}
		putBytes(bm.Bytes())
	}

	for _, id := range seg.ids {
		putUvarint(id)
	}

	if seg.deleted.IsEmpty() {
		putUvarint(0)
	} else {
		bm.Reset()
		if _, err := seg.deleted.WriteTo(&bm); err != nil {
			return 0, fmt.Errorf("write deletions: %w", err)
		}
		putBytes(bm.Bytes())
	}

	block, err := compressBlock(payload.Bytes(), c)
	if err != nil {
		return 0, err
	}

	header := make([]byte, segmentHeaderSize)
	copy(header, segmentMagic)
	header[4] = segmentVersion
	header[5] = byte(c)
	binary.LittleEndian.PutUint32(header[8:], crc32.Checksum(block, crc32cTable))

	n, err := w.Write(header)
	if err != nil {
		return int64(n), err
	}
	m, err := w.Write(block)
	return int64(n + m), err
}

// EncodeSegment is WriteSegment into a byte slice.
func EncodeSegment(seg *Segment, c Compression) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := WriteSegment(&buf, seg, c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadSegment decodes a segment written by WriteSegment. The returned
// segment does not reference data.
func ReadSegment(data []byte) (*Segment, error) {
	if len(data) < segmentHeaderSize || string(data[:4]) != segmentMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorruptSegment)
	}
	if data[4] != segmentVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptSegment, data[4])
	}
	c := Compression(data[5])
	block := data[segmentHeaderSize:]
	if want := binary.LittleEndian.Uint32(data[8:]); crc32.Checksum(block, crc32cTable) != want {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptSegment)
	}

	payload, err := decompressBlock(block, c)
	if err != nil {
		return nil, err
	}

	r := &payloadReader{buf: payload}
	name := string(r.bytes())
	maxDoc := r.uvarint()
	numTerms := r.uvarint()
	if r.err != nil {
		return nil, r.err
	}
	if numTerms > uint64(len(payload)) {
		return nil, fmt.Errorf("%w: term count %d exceeds payload", ErrCorruptSegment, numTerms)
	}

	terms := make([][]byte, 0, numTerms)
	postings := make([]*roaring.Bitmap, 0, numTerms)
	var prev []byte
	for i := uint64(0); i < numTerms && r.err == nil; i++ {
		shared := r.uvarint()
		suffix := r.bytes()
		if shared > uint64(len(prev)) {
			return nil, fmt.Errorf("%w: term %d shares %d bytes with a %d byte term", ErrCorruptSegment, i, shared, len(prev))
		}
		term := make([]byte, 0, int(shared)+len(suffix))
		term = append(term, prev[:shared]...)
		term = append(term, suffix...)
		if len(terms) > 0 && bytes.Compare(prev, term) >= 0 {
			return nil, fmt.Errorf("%w: terms out of order at %d", ErrCorruptSegment, i)
		}
		bm, err := readBitmap(r.bytes())
		if err != nil {
			return nil, err
		}
		terms = append(terms, term)
		postings = append(postings, bm)
		prev = term
	}

	if maxDoc > uint64(len(payload)) {
		return nil, fmt.Errorf("%w: doc count %d exceeds payload", ErrCorruptSegment, maxDoc)
	}
	ids := make([]uint64, maxDoc)
	for i := range ids {
		ids[i] = r.uvarint()
	}

	var deleted *roaring.Bitmap
	if raw := r.bytes(); len(raw) > 0 {
		if deleted, err = readBitmap(raw); err != nil {
			return nil, err
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return newSegment(name, terms, postings, ids, deleted), nil
}

// EncodeDeletions serializes a deleted-document set.
func EncodeDeletions(del *roaring.Bitmap) ([]byte, error) {
	return del.ToBytes()
}

// DecodeDeletions is the inverse of EncodeDeletions.
func DecodeDeletions(data []byte) (*roaring.Bitmap, error) {
	return readBitmap(data)
}

func readBitmap(data []byte) (*roaring.Bitmap, error) {
	bm := roaring.New()
	if _, err := bm.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptSegment, err)
	}
	return bm, nil
}

func sharedPrefix(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

// payloadReader decodes uvarints and length-prefixed byte strings, keeping
// the first error.
type payloadReader struct {
	buf []byte
	off int
	err error
}

func (r *payloadReader) uvarint() uint64 {
	if r.err != nil {
		return 0
	}
	v, n := binary.Uvarint(r.buf[r.off:])
	if n <= 0 {
		r.err = fmt.Errorf("%w: truncated varint at %d", ErrCorruptSegment, r.off)
		return 0
	}
	r.off += n
	return v
}

func (r *payloadReader) bytes() []byte {
	n := r.uvarint()
	if r.err != nil {
		return nil
	}
	if n > uint64(len(r.buf)-r.off) {
		r.err = fmt.Errorf("%w: %d byte field overruns payload at %d", ErrCorruptSegment, n, r.off)
		return nil
	}
	b := r.buf[r.off : r.off+int(n)]
	r.off += int(n)
	return b
}
