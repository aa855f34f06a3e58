package index

import (
	"bytes"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
)

// SegmentBuilder accumulates documents and their tokens into a Segment.
// It is not safe for concurrent use.
type SegmentBuilder struct {
	name     string
	postings map[string]*roaring.Bitmap
	ids      []uint64
	deleted  *roaring.Bitmap
}

// NewSegmentBuilder creates an empty builder for a segment called name.
func NewSegmentBuilder(name string) *SegmentBuilder {
	return &SegmentBuilder{
		name:     name,
		postings: make(map[string]*roaring.Bitmap),
		deleted:  roaring.New(),
	}
}

// Add appends a document with the given external id and tokens and returns
// its segment-local document number.
func (b *SegmentBuilder) Add(id uint64, tokens [][]byte) uint32 {
	doc := uint32(len(b.ids))
	b.ids = append(b.ids, id)
	for _, tok := range tokens {
		bm, ok := b.postings[string(tok)]
		if !ok {
			bm = roaring.New()
			b.postings[string(tok)] = bm
		}
		bm.Add(doc)
	}
	return doc
}

// Delete marks a document added to this builder as deleted.
func (b *SegmentBuilder) Delete(doc uint32) {
	b.deleted.Add(doc)
}

// Len returns the number of documents added so far.
func (b *SegmentBuilder) Len() int { return len(b.ids) }

// Build sorts the term dictionary and returns the immutable segment.
// The builder must not be used afterwards.
func (b *SegmentBuilder) Build() *Segment {
	terms := make([][]byte, 0, len(b.postings))
	for tok := range b.postings {
		terms = append(terms, []byte(tok))
	}
	sort.Slice(terms, func(i, j int) bool {
		return bytes.Compare(terms[i], terms[j]) < 0
	})

	postings := make([]*roaring.Bitmap, len(terms))
	for i, t := range terms {
		bm := b.postings[string(t)]
		bm.RunOptimize()
		postings[i] = bm
	}
	return newSegment(b.name, terms, postings, b.ids, b.deleted)
}
