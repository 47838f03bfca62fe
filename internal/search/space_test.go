package search

import (
	"encoding/binary"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wskdf/internal/kdf"
)

func TestNewSpaceSize(t *testing.T) {
	for bits := MinBits; bits <= MaxBits; bits++ {
		s, err := NewSpace(bits)
		require.NoError(t, err)
		assert.Equal(t, uint64(1)<<(bits-1), s.Size(), "bits=%d", bits)
		assert.Equal(t, math.Pow(2, float64(bits-1)), s.SizeFloat(), "bits=%d", bits)
	}
}

func TestNewSpaceRejectsOutOfRange(t *testing.T) {
	for _, bits := range []int{-1, 0, 64, 200} {
		_, err := NewSpace(bits)
		assert.True(t, errors.Is(err, ErrInvalidBits), "bits=%d", bits)
	}
}

func TestWalkIsBijection(t *testing.T) {
	for _, bits := range []int{1, 2, 3, 8, 12} {
		s, err := NewSpace(bits)
		require.NoError(t, err)
		for _, start := range []uint64{0, 1, s.Size() - 1, 12345} {
			w := s.Walk(start)
			seen := make(map[kdf.Preimage]struct{}, s.Size())
			for i := uint64(0); i < s.Size(); i++ {
				p := w.At(i)
				require.True(t, s.Contains(p), "bits=%d start=%d i=%d", bits, start, i)
				seen[p] = struct{}{}
			}
			assert.Len(t, seen, int(s.Size()), "bits=%d start=%d", bits, start)
		}
	}
}

func TestWalkOrderFollowsStart(t *testing.T) {
	s, err := NewSpace(8)
	require.NoError(t, err)
	w := s.Walk(5)

	first := w.At(0)
	assert.Equal(t, uint64(0x80|5), binary.BigEndian.Uint64(first[:]))
	last := w.At(s.Size() - 5)
	assert.Equal(t, uint64(0x80), binary.BigEndian.Uint64(last[:]))
	assert.Equal(t, s.Walk(5).At(17), w.At(17))
	assert.Equal(t, s.Walk(5+s.Size()).At(17), w.At(17))
}

func TestWalkTopBitAtMaxBits(t *testing.T) {
	s, err := NewSpace(MaxBits)
	require.NoError(t, err)
	w := s.Walk(math.MaxUint64)
	for _, i := range []uint64{0, 1, s.Size() - 1} {
		p := w.At(i)
		v := binary.BigEndian.Uint64(p[:])
		assert.Equal(t, uint64(1)<<62, v&(uint64(1)<<62))
		assert.Zero(t, v>>63)
	}
}

func TestRandomStaysInRange(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for _, bits := range []int{1, 2, 5, 32, 63} {
		s, err := NewSpace(bits)
		require.NoError(t, err)
		for range 1000 {
			require.True(t, s.Contains(s.Random(r)), "bits=%d", bits)
		}
	}
}

func TestRandomCoversSmallSpace(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	s, err := NewSpace(4)
	require.NoError(t, err)
	seen := map[kdf.Preimage]int{}
	for range 4000 {
		seen[s.Random(r)]++
	}
	require.Len(t, seen, 8)
	for p, n := range seen {
		assert.Greater(t, n, 300, "candidate %s drawn too rarely", p)
	}
}
