package search

import (
	crand "crypto/rand"
	"encoding/binary"
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"

	"wskdf/internal/kdf"
)

const (
	MinBits = 1
	MaxBits = 63
)

var ErrInvalidBits = errors.New("n_bits must be between 1 and 63")

// Space is the set of preimages of exactly Bits significant bits: the top
// bit is always set, so it holds 2^(Bits-1) candidates.
type Space struct {
	bits uint8
	low  uint64
}

func NewSpace(bits int) (Space, error) {
	if bits < MinBits || bits > MaxBits {
		return Space{}, errors.Wrapf(ErrInvalidBits, "got %d", bits)
	}
	return Space{bits: uint8(bits), low: 1 << (bits - 1)}, nil
}

func (s Space) Bits() int { return int(s.bits) }

// Size is the number of candidates, 2^(Bits-1).
func (s Space) Size() uint64 { return s.low }

func (s Space) SizeFloat() float64 { return math.Ldexp(1, int(s.bits)-1) }

// Contains reports whether p has exactly Bits significant bits.
func (s Space) Contains(p kdf.Preimage) bool {
	v := binary.BigEndian.Uint64(p[:])
	return v >= s.low && v < s.low<<1
}

// Random draws uniformly from [2^(Bits-1), 2^Bits).
func (s Space) Random(r *rand.Rand) kdf.Preimage {
	return encode(s.low + r.Uint64N(s.low))
}

// NewSecureRand returns a ChaCha8 generator keyed from crypto/rand, fit for
// drawing secret preimages.
func NewSecureRand() *rand.Rand {
	var seed [32]byte
	_, _ = crand.Read(seed[:])
	return rand.New(rand.NewChaCha8(seed))
}

// Walk returns the deterministic enumeration of s that begins at start.
// start is reduced modulo Size.
func (s Space) Walk(start uint64) Walk {
	return Walk{start: start & (s.low - 1), low: s.low}
}

// Walk maps an index in [0, Size) to a unique candidate. The mapping only
// depends on the start offset, so workers can share it without coordination.
type Walk struct {
	start uint64
	low   uint64
}

func (w Walk) Start() uint64 { return w.start }

// At returns ((start + i) mod Size) with the top bit forced on. Indices at
// or beyond Size wrap around.
func (w Walk) At(i uint64) kdf.Preimage {
	return encode(((w.start + i) & (w.low - 1)) | w.low)
}

func encode(v uint64) kdf.Preimage {
	var p kdf.Preimage
	binary.BigEndian.PutUint64(p[:], v)
	return p
}
