package index

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomSegment(rnd *rand.Rand, docs int) *Segment {
	b := NewSegmentBuilder("random")
	alphabet := "ABCD"
	for d := 0; d < docs; d++ {
		var tokens [][]byte
		tok := make([]byte, 0, 8)
		depth := 1 + rnd.Intn(8)
		for l := 0; l < depth; l++ {
			tok = append(tok, alphabet[rnd.Intn(len(alphabet))])
			tokens = append(tokens, append([]byte(nil), tok...))
		}
		tokens = append(tokens, append(append([]byte(nil), tok...), '+'))
		b.Add(uint64(d)*7+1, tokens)
	}
	if docs > 3 {
		b.Delete(2)
	}
	return b.Build()
}

func TestSegmentCodecRoundTrip(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			rnd := rand.New(rand.NewSource(7))
			seg := randomSegment(rnd, 500)

			data, err := EncodeSegment(seg, c)
			require.NoError(t, err)

			got, err := ReadSegment(data)
			require.NoError(t, err)

			assert.Equal(t, seg.Name(), got.Name())
			assert.Equal(t, seg.MaxDoc(), got.MaxDoc())
			require.Equal(t, seg.NumTerms(), got.NumTerms())
			for i := 0; i < seg.NumTerms(); i++ {
				require.Equal(t, seg.TermAt(i), got.TermAt(i))
				assert.True(t, seg.postings[i].Equals(got.postings[i]), "postings of %q", seg.TermAt(i))
			}
			for d := uint32(0); d < seg.MaxDoc(); d++ {
				assert.Equal(t, seg.ExternalID(d), got.ExternalID(d))
			}
			assert.True(t, got.IsDeleted(2))
			assert.Equal(t, seg.NumDeleted(), got.NumDeleted())
		})
	}
}

func TestSegmentCodecEmpty(t *testing.T) {
	seg := NewSegmentBuilder("empty").Build()
	data, err := EncodeSegment(seg, CompressionZSTD)
	require.NoError(t, err)

	got, err := ReadSegment(data)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), got.MaxDoc())
	assert.Equal(t, 0, got.NumTerms())
}

func TestReadSegmentCorrupt(t *testing.T) {
	seg := randomSegment(rand.New(rand.NewSource(1)), 50)
	data, err := EncodeSegment(seg, CompressionLZ4)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"bad magic", func(b []byte) []byte { b[0] = 'X'; return b }},
		{"bad version", func(b []byte) []byte { b[4] = 99; return b }},
		{"flipped payload bit", func(b []byte) []byte { b[len(b)-1] ^= 0xFF; return b }},
		{"truncated", func(b []byte) []byte { return b[:len(b)/2] }},
		{"header only", func(b []byte) []byte { return b[:segmentHeaderSize-1] }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := append([]byte(nil), data...)
			_, err := ReadSegment(tt.mutate(buf))
			require.ErrorIs(t, err, ErrCorruptSegment)
		})
	}
}

func TestDeletionsCodec(t *testing.T) {
	del := roaring.BitmapOf(1, 5, 1000)
	data, err := EncodeDeletions(del)
	require.NoError(t, err)
	got, err := DecodeDeletions(data)
	require.NoError(t, err)
	assert.True(t, del.Equals(got))
}

func TestParseCompression(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		got, err := ParseCompression(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	_, err := ParseCompression("brotli")
	require.Error(t, err)
	assert.Equal(t, "compression(9)", fmt.Sprint(Compression(9)))
}
