package oracle

import (
	"bytes"
	"context"
	"crypto/sha256"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wskdf/internal/kdf"
	"wskdf/internal/search"
)

// TestHelperVerifier is the verifier process itself when re-executed by the
// tests below. It accepts stdin only if it is exactly WSKDF_HELPER_WANT.
func TestHelperVerifier(t *testing.T) {
	if os.Getenv("WSKDF_HELPER_VERIFIER") != "1" {
		return
	}
	got, err := io.ReadAll(os.Stdin)
	if err != nil {
		os.Exit(2)
	}
	if string(got) == os.Getenv("WSKDF_HELPER_WANT") {
		os.Exit(0)
	}
	os.Exit(1)
}

func helperCommand(t *testing.T, want kdf.Key, opts ...Option) *Command {
	t.Helper()
	t.Setenv("WSKDF_HELPER_VERIFIER", "1")
	t.Setenv("WSKDF_HELPER_WANT", want.String())
	opts = append([]Option{WithArgs("-test.run=^TestHelperVerifier$"), WithOutput(io.Discard)}, opts...)
	return New(os.Args[0], opts...)
}

func TestVerifyAcceptsExactHex(t *testing.T) {
	want := kdf.Key{0xde, 0xad, 0xbe, 0xef}
	c := helperCommand(t, want)

	ok, err := c.Run(want)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, c.Verify(context.Background(), want))
}

func TestVerifyRejectsOtherKey(t *testing.T) {
	c := helperCommand(t, kdf.Key{1})

	ok, err := c.Run(kdf.Key{2})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, c.Verify(context.Background(), kdf.Key{2}))
}

func TestVerifySpawnFailureIsRejection(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "no-such-verifier"))

	ok, err := c.Run(kdf.Key{})
	assert.Error(t, err)
	assert.False(t, ok)
	assert.False(t, c.Verify(context.Background(), kdf.Key{}))
}

func TestVerifierOutputIsForwarded(t *testing.T) {
	var out bytes.Buffer
	c := New("/bin/sh", WithArgs("-c", "cat; echo"), WithOutput(&out))
	ok, err := c.Run(kdf.Key{0xff})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, kdf.Key{0xff}.String()+"\n", out.String())
}

func TestVerifyRateLimitHonoursCancel(t *testing.T) {
	want := kdf.Key{7}
	c := helperCommand(t, want, WithRateLimit(0.001, 1))
	assert.True(t, c.Verify(context.Background(), want))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, c.Verify(ctx, want))
}

func TestSearchWithCommandVerifier(t *testing.T) {
	salt := kdf.Salt{9, 9, 9}
	deriver := search.DeriverFunc(func(p kdf.Preimage, s kdf.Salt, _ kdf.Params) (kdf.Key, error) {
		return sha256.Sum256(append(p[:], s[:]...)), nil
	})
	target := kdf.Preimage{0, 0, 0, 0, 0, 0, 0, 0x93}
	want, err := deriver.Derive(target, salt, kdf.Params{})
	require.NoError(t, err)

	space, err := search.NewSpace(8)
	require.NoError(t, err)
	res, err := search.Run(context.Background(), search.Request{
		Space:    space,
		Salt:     salt,
		Threads:  4,
		Strategy: search.StrategyWalk,
		Deriver:  deriver,
		Verifier: helperCommand(t, want),
	})
	require.NoError(t, err)
	require.Equal(t, search.Found, res.Outcome)
	assert.Equal(t, target, res.Match.Preimage)
	assert.Equal(t, want, res.Match.Key)
}
