package hashx

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"math/rand"
	"testing"

	"github.com/dmitrijs2005/imgvault/internal/common"
	"github.com/stretchr/testify/require"
)

func TestSum_Deterministic(t *testing.T) {
	data := []byte("the same bytes every time")

	first, err := Sum(bytes.NewReader(data))
	require.NoError(t, err)
	second, err := Sum(bytes.NewReader(data))
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Len(t, first, 64)
}

func TestSum_ChunkingDoesNotChangeResult(t *testing.T) {
	// Multi-chunk input: over twice the chunk size plus a ragged tail.
	data := make([]byte, 2*common.HashChunkSize+12345)
	rnd := rand.New(rand.NewSource(42))
	_, err := rnd.Read(data)
	require.NoError(t, err)

	got, err := Sum(bytes.NewReader(data))
	require.NoError(t, err)

	want := sha256.Sum256(data)
	require.Equal(t, hex.EncodeToString(want[:]), got)
}

func TestSum_DifferentContentDifferentDigest(t *testing.T) {
	a, err := Sum(bytes.NewReader([]byte("a")))
	require.NoError(t, err)
	b, err := Sum(bytes.NewReader([]byte("b")))
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

type failingReader struct {
	data []byte
	err  error
	read bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.read {
		return 0, r.err
	}
	r.read = true
	return copy(p, r.data), nil
}

func TestSum_ReadErrorAborts(t *testing.T) {
	boom := errors.New("disk gone")
	_, err := Sum(&failingReader{data: []byte("partial"), err: boom})
	require.ErrorIs(t, err, boom)
}

func TestSum_EmptyInput(t *testing.T) {
	got, err := Sum(bytes.NewReader(nil))
	require.NoError(t, err)

	want := sha256.Sum256(nil)
	require.Equal(t, hex.EncodeToString(want[:]), got)
}

func TestSumBytes_MatchesSum(t *testing.T) {
	data := []byte("same input")
	viaReader, err := Sum(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, viaReader, SumBytes(data))
}

var _ io.Reader = (*failingReader)(nil)
