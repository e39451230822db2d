package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc, err := NewCredentialEncryptor("unit-test-passphrase")
	require.NoError(t, err)

	ciphertext, err := enc.Encrypt("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", ciphertext)

	plaintext, err := enc.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", plaintext)
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	enc, err := NewCredentialEncryptor("unit-test-passphrase")
	require.NoError(t, err)

	a, err := enc.Encrypt("same-password")
	require.NoError(t, err)
	b, err := enc.Encrypt("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, a, b) // fresh nonce every call
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	enc1, err := NewCredentialEncryptor("key-one")
	require.NoError(t, err)
	enc2, err := NewCredentialEncryptor("key-two")
	require.NoError(t, err)

	ciphertext, err := enc1.Encrypt("secret")
	require.NoError(t, err)

	_, err = enc2.Decrypt(ciphertext)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestEmptyKeyRejected(t *testing.T) {
	_, err := NewCredentialEncryptor("")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestEmptyStringsPassThrough(t *testing.T) {
	enc, err := NewCredentialEncryptor("key")
	require.NoError(t, err)

	ct, err := enc.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, ct)

	pt, err := enc.Decrypt("")
	require.NoError(t, err)
	assert.Empty(t, pt)
}
