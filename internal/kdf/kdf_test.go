package kdf

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveRegression(t *testing.T) {
	if testing.Short() {
		t.Skip("argon2id with 256 MiB and 42 passes is slow")
	}
	salt, err := ParseSalt("000102030405060708090a0b0c0d0e0f")
	require.NoError(t, err)
	preimage, err := ParsePreimage("000000000000000d")
	require.NoError(t, err)

	key, err := Derive(preimage, salt, Params{OpsLimit: 42, MemLimitKiB: 256 * 1024})
	require.NoError(t, err)

	want, err := ParseKey("dc6b9dbde1d29c7e76549cd3cddbc7edee76966bbc0cf7afb13134ae4f43a043")
	require.NoError(t, err)
	assert.Equal(t, want, key)
}

func TestDeriveDeterministic(t *testing.T) {
	p := Params{OpsLimit: 1, MemLimitKiB: 64}
	var salt Salt
	a, err := Derive(Preimage{0, 0, 0, 0, 0, 0, 0, 0x80}, salt, p)
	require.NoError(t, err)
	b, err := Argon2id{}.Derive(Preimage{0, 0, 0, 0, 0, 0, 0, 0x80}, salt, p)
	require.NoError(t, err)
	c, err := Derive(Preimage{0, 0, 0, 0, 0, 0, 0, 0x81}, salt, p)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestDeriveRejectsBadParams(t *testing.T) {
	tests := []struct {
		name   string
		params Params
	}{
		{"zero ops", Params{OpsLimit: 0, MemLimitKiB: 64}},
		{"zero mem", Params{OpsLimit: 1, MemLimitKiB: 0}},
		{"mem below one block set", Params{OpsLimit: 1, MemLimitKiB: 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Derive(Preimage{}, Salt{}, tt.params)
			assert.True(t, errors.Is(err, ErrInvalidParams), "got %v", err)
		})
	}
}

func TestParseFixedWidth(t *testing.T) {
	p, err := ParsePreimage("000000000000000d\n")
	require.NoError(t, err)
	assert.Equal(t, Preimage{0, 0, 0, 0, 0, 0, 0, 0x0d}, p)
	assert.Equal(t, "000000000000000d", p.String())

	_, err = ParsePreimage("0d")
	assert.True(t, errors.Is(err, ErrInvalidHex))

	_, err = ParseSalt("zz0102030405060708090a0b0c0d0e0f")
	assert.True(t, errors.Is(err, ErrInvalidHex))

	_, err = ParseKey("00")
	assert.ErrorContains(t, err, "key must be 32 bytes")
}

func TestNewSalt(t *testing.T) {
	a, err := NewSalt()
	require.NoError(t, err)
	b, err := NewSalt()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, a.String(), 2*SaltSize)
}
