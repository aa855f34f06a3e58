package index

import (
	"bytes"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
)

// Segment is an immutable term dictionary with roaring postings.
type Segment struct {
	name     string
	maxDoc   uint32
	terms    [][]byte
	postings []*roaring.Bitmap
	deleted  *roaring.Bitmap
	ids      []uint64
	byID     map[uint64]uint32
}

// Ensure Segment implements Reader.
var _ Reader = (*Segment)(nil)

func newSegment(name string, terms [][]byte, postings []*roaring.Bitmap, ids []uint64, deleted *roaring.Bitmap) *Segment {
	if deleted == nil {
		deleted = roaring.New()
	}
	byID := make(map[uint64]uint32, len(ids))
	for doc, id := range ids {
		byID[id] = uint32(doc)
	}
	return &Segment{
		name:     name,
		maxDoc:   uint32(len(ids)),
		terms:    terms,
		postings: postings,
		deleted:  deleted,
		ids:      ids,
		byID:     byID,
	}
}

// Name returns the segment name.
func (s *Segment) Name() string { return s.name }

// MaxDoc implements Reader.
func (s *Segment) MaxDoc() uint32 { return s.maxDoc }

// NumTerms returns the number of distinct terms.
func (s *Segment) NumTerms() int { return len(s.terms) }

// NumDeleted returns the number of deleted documents.
func (s *Segment) NumDeleted() uint64 { return s.deleted.GetCardinality() }

// LiveCount returns the number of non-deleted documents.
func (s *Segment) LiveCount() uint64 { return uint64(s.maxDoc) - s.NumDeleted() }

// ExternalID returns the caller-assigned id of a segment-local document.
func (s *Segment) ExternalID(doc uint32) uint64 { return s.ids[doc] }

// LocalDoc returns the segment-local document number of an external id.
func (s *Segment) LocalDoc(id uint64) (uint32, bool) {
	doc, ok := s.byID[id]
	return doc, ok
}

// IsDeleted reports whether doc has been deleted.
func (s *Segment) IsDeleted(doc uint32) bool { return s.deleted.Contains(doc) }

// Deleted returns a copy of the deleted-document set.
func (s *Segment) Deleted() *roaring.Bitmap { return s.deleted.Clone() }

// WithDeletions returns a view of the segment whose deleted set is the union
// of the current one and del. The receiver is left unchanged, so readers
// holding it keep their snapshot.
func (s *Segment) WithDeletions(del *roaring.Bitmap) *Segment {
	merged := roaring.Or(s.deleted, del)
	clone := *s
	clone.deleted = merged
	return &clone
}

// LiveDocs implements Reader.
func (s *Segment) LiveDocs() AcceptDocs {
	if s.deleted.IsEmpty() {
		return nil
	}
	return liveDocs{deleted: s.deleted}
}

// Terms implements Reader.
func (s *Segment) Terms() TermsEnum {
	return &termsEnum{seg: s, pos: -1}
}

// TermAt returns the i-th term in sort order.
func (s *Segment) TermAt(i int) []byte { return s.terms[i] }

// DocFreq returns the number of documents carrying term, deleted ones included.
func (s *Segment) DocFreq(term []byte) uint64 {
	i, ok := s.find(term)
	if !ok {
		return 0
	}
	return s.postings[i].GetCardinality()
}

func (s *Segment) find(term []byte) (int, bool) {
	i := sort.Search(len(s.terms), func(i int) bool {
		return bytes.Compare(s.terms[i], term) >= 0
	})
	return i, i < len(s.terms) && bytes.Equal(s.terms[i], term)
}

type liveDocs struct {
	deleted *roaring.Bitmap
}

func (l liveDocs) Accept(doc uint32) bool { return !l.deleted.Contains(doc) }

// termsEnum is a cursor over the sorted terms. pos == -1 means unpositioned,
// pos == len(terms) means exhausted.
type termsEnum struct {
	seg *Segment
	pos int
}

func (e *termsEnum) SeekCeil(term []byte) (SeekStatus, error) {
	terms := e.seg.terms
	lo := 0
	// Seeks are usually forward; start the search at the current position.
	if e.pos >= 0 && e.pos < len(terms) && bytes.Compare(term, terms[e.pos]) >= 0 {
		lo = e.pos
	}
	i := lo + sort.Search(len(terms)-lo, func(i int) bool {
		return bytes.Compare(terms[lo+i], term) >= 0
	})
	e.pos = i
	switch {
	case i == len(terms):
		return SeekEnd, nil
	case bytes.Equal(terms[i], term):
		return SeekFound, nil
	default:
		return SeekNotFound, nil
	}
}

func (e *termsEnum) Term() []byte {
	if e.pos < 0 || e.pos >= len(e.seg.terms) {
		return nil
	}
	return e.seg.terms[e.pos]
}

func (e *termsEnum) Next() ([]byte, error) {
	if e.pos < len(e.seg.terms) {
		e.pos++
	}
	return e.Term(), nil
}

func (e *termsEnum) Docs(accept AcceptDocs) (DocIterator, error) {
	if e.pos < 0 || e.pos >= len(e.seg.terms) {
		return nil, ErrUnpositioned
	}
	return &docsEnum{it: e.seg.postings[e.pos].ManyIterator(), accept: accept}, nil
}

type docsEnum struct {
	it     roaring.ManyIntIterable
	accept AcceptDocs
}

func (d *docsEnum) NextBatch(buf []uint32) (int, error) {
	for {
		n := d.it.NextMany(buf)
		if n == 0 || d.accept == nil {
			return n, nil
		}
		k := 0
		for _, doc := range buf[:n] {
			if d.accept.Accept(doc) {
				buf[k] = doc
				k++
			}
		}
		if k > 0 {
			return k, nil
		}
	}
}
