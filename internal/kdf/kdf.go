// Package kdf is the derivation boundary: fixed-width preimage, salt and key
// types, their hex codecs, and the Argon2id derivation.
package kdf

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"
)

const (
	SaltSize     = 16
	KeySize      = 32
	PreimageSize = 8

	// minMemKiB is the smallest memory cost Argon2id accepts with one lane.
	minMemKiB = 8
)

var (
	ErrInvalidParams = errors.New("invalid kdf params")
	ErrInvalidHex    = errors.New("invalid hex input")
)

type (
	Preimage [PreimageSize]byte
	Salt     [SaltSize]byte
	Key      [KeySize]byte
)

func (p Preimage) String() string { return hex.EncodeToString(p[:]) }
func (s Salt) String() string     { return hex.EncodeToString(s[:]) }
func (k Key) String() string      { return hex.EncodeToString(k[:]) }

// Params are the two Argon2id cost knobs. MemLimitKiB is in kibibytes.
type Params struct {
	OpsLimit    uint32 `json:"ops_limit" yaml:"ops_limit" mapstructure:"ops_limit"`
	MemLimitKiB uint32 `json:"mem_limit_kbytes" yaml:"mem_limit_kbytes" mapstructure:"mem_limit_kbytes"`
}

func (p Params) Validate() error {
	if p.OpsLimit < 1 {
		return errors.Wrap(ErrInvalidParams, "ops limit must be > 0")
	}
	if p.MemLimitKiB < minMemKiB {
		return errors.Wrapf(ErrInvalidParams, "mem limit must be at least %d KiB", minMemKiB)
	}
	return nil
}

// Derive runs Argon2id v1.3 with a single lane over the preimage and salt.
func Derive(preimage Preimage, salt Salt, params Params) (Key, error) {
	var key Key
	if err := params.Validate(); err != nil {
		return key, err
	}
	raw := argon2.IDKey(preimage[:], salt[:], params.OpsLimit, params.MemLimitKiB, 1, KeySize)
	copy(key[:], raw)
	return key, nil
}

// Argon2id adapts Derive to the search and bench Deriver interfaces.
type Argon2id struct{}

func (Argon2id) Derive(preimage Preimage, salt Salt, params Params) (Key, error) {
	return Derive(preimage, salt, params)
}

// NewSalt reads a fresh salt from crypto/rand.
func NewSalt() (Salt, error) {
	var s Salt
	if _, err := rand.Read(s[:]); err != nil {
		return s, errors.Wrap(err, "failed to generate salt")
	}
	return s, nil
}

func ParseSalt(s string) (Salt, error) {
	var out Salt
	return out, decodeFixed("salt", s, out[:])
}

func ParsePreimage(s string) (Preimage, error) {
	var out Preimage
	return out, decodeFixed("preimage", s, out[:])
}

func ParseKey(s string) (Key, error) {
	var out Key
	return out, decodeFixed("key", s, out[:])
}

// decodeFixed decodes hex into dst, which must be filled exactly.
// Surrounding whitespace such as a trailing newline is ignored.
func decodeFixed(name, s string, dst []byte) error {
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return errors.Wrapf(ErrInvalidHex, "%s isn't valid hex: %v", name, err)
	}
	if len(raw) != len(dst) {
		return errors.Wrapf(ErrInvalidHex, "%s must be %d bytes, got %d", name, len(dst), len(raw))
	}
	copy(dst, raw)
	return nil
}
