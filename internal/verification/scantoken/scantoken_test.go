package scantoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presence/internal/verification"
)

const t0 = int64(1_700_000_000_000)

func window() Token {
	return Token{EventID: "evt", IssuedAtMs: t0, ValidFromMs: t0, ValidToMs: t0 + 300_000}
}

func reasonOf(t *testing.T, err error) verification.Reason {
	t.Helper()
	require.Error(t, err)
	reason, ok := verification.ReasonOf(err)
	require.True(t, ok)
	return reason
}

func TestValidateBoundaries(t *testing.T) {
	tok := window()
	skew := 30 * time.Second

	require.NoError(t, Validate(tok, time.UnixMilli(t0-30_000), skew))
	require.NoError(t, Validate(tok, time.UnixMilli(tok.ValidToMs+30_000), skew))
	require.NoError(t, Validate(tok, time.UnixMilli(t0+150_000), skew))

	assert.Equal(t, verification.ReasonNotYetValid, reasonOf(t, Validate(tok, time.UnixMilli(t0-30_001), skew)))
	assert.Equal(t, verification.ReasonExpired, reasonOf(t, Validate(tok, time.UnixMilli(tok.ValidToMs+30_001), skew)))
}

func TestValidateInvalidRange(t *testing.T) {
	tok := Token{ValidFromMs: t0, ValidToMs: t0 - 1}
	assert.Equal(t, verification.ReasonInvalidRange, reasonOf(t, Validate(tok, time.UnixMilli(t0), DefaultClockSkew)))
}

func TestValidateZeroSkew(t *testing.T) {
	tok := window()
	require.NoError(t, Validate(tok, time.UnixMilli(t0), 0))
	assert.Equal(t, verification.ReasonNotYetValid, reasonOf(t, Validate(tok, time.UnixMilli(t0-1), 0)))
}

func TestValidateFor(t *testing.T) {
	tok := window()
	now := time.UnixMilli(t0 + 1)

	require.NoError(t, ValidateFor(tok, "evt", now, DefaultClockSkew))
	assert.Equal(t, verification.ReasonEventMismatch, reasonOf(t, ValidateFor(tok, "other", now, DefaultClockSkew)))
	// Window errors win over event mismatch.
	assert.Equal(t, verification.ReasonExpired, reasonOf(t, ValidateFor(tok, "other", time.UnixMilli(t0+400_000), DefaultClockSkew)))
}

func TestNew(t *testing.T) {
	tok := New("evt", time.UnixMilli(t0), 5*time.Minute)
	assert.Equal(t, window(), tok)
}

func TestCodec(t *testing.T) {
	codec, err := NewCodec("signing-key")
	require.NoError(t, err)

	t.Run("round trip keeps the window", func(t *testing.T) {
		raw, err := codec.Encode(window())
		require.NoError(t, err)
		tok, err := codec.Decode(raw)
		require.NoError(t, err)
		assert.Equal(t, window(), tok)
	})

	t.Run("decodes expired tokens so Validate can report why", func(t *testing.T) {
		old := New("evt", time.UnixMilli(0), time.Minute)
		raw, err := codec.Encode(old)
		require.NoError(t, err)
		tok, err := codec.Decode(raw)
		require.NoError(t, err)
		assert.Equal(t, verification.ReasonExpired, reasonOf(t, Validate(tok, time.UnixMilli(t0), DefaultClockSkew)))
	})

	t.Run("rejects foreign signatures", func(t *testing.T) {
		other, err := NewCodec("other-key")
		require.NoError(t, err)
		raw, err := other.Encode(window())
		require.NoError(t, err)
		_, err = codec.Decode(raw)
		assert.Equal(t, verification.ReasonInvalidToken, reasonOf(t, err))
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := codec.Decode("not-a-token")
		assert.Equal(t, verification.ReasonInvalidToken, reasonOf(t, err))
	})

	t.Run("requires key", func(t *testing.T) {
		_, err := NewCodec("")
		require.Error(t, err)
	})
}
