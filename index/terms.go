package index

// SeekStatus is the outcome of TermsEnum.SeekCeil.
type SeekStatus uint8

const (
	// SeekFound means the exact term exists; the enum is positioned on it.
	SeekFound SeekStatus = iota
	// SeekNotFound means the term does not exist; the enum is positioned on
	// the smallest term greater than it.
	SeekNotFound
	// SeekEnd means no term greater than or equal to the target exists.
	SeekEnd
)

func (s SeekStatus) String() string {
	switch s {
	case SeekFound:
		return "FOUND"
	case SeekNotFound:
		return "NOT_FOUND"
	case SeekEnd:
		return "END"
	default:
		return "UNKNOWN"
	}
}

// AcceptDocs filters documents while reading postings. A nil AcceptDocs
// accepts every document.
type AcceptDocs interface {
	Accept(doc uint32) bool
}

// DocIterator reads the documents of one posting list in ascending order.
type DocIterator interface {
	// NextBatch fills buf with the next documents and returns how many were
	// written. It returns 0 once the postings are exhausted.
	NextBatch(buf []uint32) (int, error)
}

// TermsEnum walks a sorted term dictionary.
//
// Terms returned by Term and Next are only valid until the enum moves.
type TermsEnum interface {
	// SeekCeil positions the enum on the smallest term >= term.
	SeekCeil(term []byte) (SeekStatus, error)
	// Term returns the current term, or nil if the enum is exhausted or
	// not yet positioned.
	Term() []byte
	// Next advances to the following term and returns it, or nil at the end.
	Next() ([]byte, error)
	// Docs returns the postings of the current term.
	Docs(accept AcceptDocs) (DocIterator, error)
}

// Reader is a read-only view of one segment's term dictionary.
type Reader interface {
	// MaxDoc is one more than the largest document number in the segment.
	MaxDoc() uint32
	// Terms returns a fresh, unpositioned enum.
	Terms() TermsEnum
	// LiveDocs returns the filter of non-deleted documents, or nil when
	// nothing was deleted.
	LiveDocs() AcceptDocs
}
