// Package index provides the term dictionary the prefix grid queries run
// against.
//
// A Segment is an immutable point-in-time snapshot: a sorted dictionary of
// byte-string terms, one roaring posting bitmap per term and an optional set
// of deleted documents. Queries walk it through a TermsEnum, which supports
// SeekCeil plus forward iteration, and read postings in batches through a
// DocIterator.
//
//	b := index.NewSegmentBuilder("seg-1")
//	b.Add(42, [][]byte{[]byte("A"), []byte("AB")})
//	seg := b.Build()
//
//	te := seg.Terms()
//	if st, _ := te.SeekCeil([]byte("A")); st == index.SeekFound {
//	    docs, _ := te.Docs(seg.LiveDocs())
//	    ...
//	}
//
// Segments are persisted with WriteSegment and loaded with ReadSegment. The
// payload is block-compressed with LZ4 or ZSTD and guarded by a CRC32-C
// checksum.
//
// # Thread Safety
//
// A Segment is safe for concurrent use. A TermsEnum or DocIterator is not;
// every query takes its own.
package index
