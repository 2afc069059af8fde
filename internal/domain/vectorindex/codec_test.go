package vectorindex

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIndexRoundTripPreservesSearch(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	rows := make([][]float32, 50)
	for i := range rows {
		rows[i] = make([]float32, 12)
		for j := range rows[i] {
			rows[i][j] = rng.Float32()*2 - 1
		}
	}
	original, err := Build(mustMatrix(t, rows), "text-embedding-3-small")
	require.NoError(t, err)

	blob, err := original.MarshalBinary()
	require.NoError(t, err)
	restored, err := UnmarshalIndex(blob)
	require.NoError(t, err)

	require.Equal(t, original.Len(), restored.Len())
	require.Equal(t, original.Dim(), restored.Dim())
	require.Equal(t, "text-embedding-3-small", restored.Model())
	require.True(t, original.Vectors().Equal(restored.Vectors()))

	for q := 0; q < 20; q++ {
		query := make([]float32, 12)
		for j := range query {
			query[j] = rng.Float32()*2 - 1
		}
		want, err := original.Search(query, 5)
		require.NoError(t, err)
		got, err := restored.Search(query, 5)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestIndexRoundTripEmpty(t *testing.T) {
	idx, err := Build(Matrix{Dim: 3}, "")
	require.NoError(t, err)
	blob, err := idx.MarshalBinary()
	require.NoError(t, err)

	restored, err := UnmarshalIndex(blob)
	require.NoError(t, err)
	require.Equal(t, 0, restored.Len())
	require.Equal(t, 3, restored.Dim())
}

func TestUnmarshalIndexRejectsCorruption(t *testing.T) {
	idx, err := Build(mustMatrix(t, [][]float32{{1, 2}, {3, 4}}), "m")
	require.NoError(t, err)
	blob, err := idx.MarshalBinary()
	require.NoError(t, err)

	cases := map[string][]byte{
		"empty":     nil,
		"truncated": blob[:len(blob)-6],
		"flipped":   flipByte(blob, len(blob)/2),
		"bad magic": flipByte(blob, 0),
		"oversized": headerOnly(1<<31, 1<<31),
		"short":     headerOnly(2, 3),
	}
	for name, data := range cases {
		_, err := UnmarshalIndex(data)
		require.ErrorIs(t, err, ErrMalformedIndex, name)
	}
}

// headerOnly builds a checksummed blob that declares count x dim values but
// carries no payload.
func headerOnly(count, dim uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString(indexMagic)
	_ = binary.Write(&buf, binary.LittleEndian, indexVersion)
	buf.WriteByte(byte(MetricL2))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	buf.WriteString("m")
	_ = binary.Write(&buf, binary.LittleEndian, count)
	_ = binary.Write(&buf, binary.LittleEndian, dim)
	_ = binary.Write(&buf, binary.LittleEndian, crc32.ChecksumIEEE(buf.Bytes()))
	return buf.Bytes()
}

func flipByte(data []byte, at int) []byte {
	out := bytes.Clone(data)
	out[at] ^= 0xff
	return out
}
