package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	h := New(WithCost(4))

	hash, err := h.Hash("correct-horse-battery")
	require.NoError(t, err)
	assert.NotEqual(t, "correct-horse-battery", hash)

	assert.NoError(t, h.Verify("correct-horse-battery", hash))
	assert.ErrorIs(t, h.Verify("wrong-password", hash), ErrPasswordMismatch)
	assert.ErrorIs(t, h.Verify("correct-horse-battery", "not-a-bcrypt-hash"), ErrInvalidHash)
}

func TestValidate(t *testing.T) {
	h := New()

	assert.NoError(t, h.Validate("12345678"))
	assert.ErrorIs(t, h.Validate("1234567"), ErrPasswordTooShort)
	assert.ErrorIs(t, h.Validate(""), ErrPasswordTooShort)

	custom := New(WithMinLength(12))
	assert.ErrorIs(t, custom.Validate("elevenchars"), ErrPasswordTooShort)
	assert.NoError(t, custom.Validate("twelve-chars"))
}

func TestAnswerDigest(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)
	assert.Len(t, salt, 32) // 16 bytes hex encoded

	digest := DigestAnswer("Rex", salt)

	t.Run("normalization", func(t *testing.T) {
		assert.True(t, VerifyAnswer("Rex", salt, digest))
		assert.True(t, VerifyAnswer("rex", salt, digest))
		assert.True(t, VerifyAnswer("  REX  ", salt, digest))
		assert.False(t, VerifyAnswer("Fido", salt, digest))
	})

	t.Run("salt binds the digest", func(t *testing.T) {
		otherSalt, err := NewSalt()
		require.NoError(t, err)
		assert.NotEqual(t, digest, DigestAnswer("Rex", otherSalt))
		assert.False(t, VerifyAnswer("Rex", otherSalt, digest))
	})
}

func TestGenerateSecureToken(t *testing.T) {
	a, err := GenerateSecureToken(32)
	require.NoError(t, err)
	b, err := GenerateSecureToken(32)
	require.NoError(t, err)

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
