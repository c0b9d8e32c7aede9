package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAESKey = "0123456789abcdef0123456789abcdef"

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("hunter22hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22hunter22", hash)

	assert.True(t, CheckPassword("hunter22hunter22", hash))
	assert.False(t, CheckPassword("wrong", hash))
}

func TestEncryptDecrypt(t *testing.T) {
	ciphertext, err := Encrypt(testAESKey, "secret payload")
	require.NoError(t, err)
	assert.NotContains(t, ciphertext, "secret payload")

	plaintext, err := Decrypt(testAESKey, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "secret payload", plaintext)

	// Nonces are random, so two encryptions differ.
	again, err := Encrypt(testAESKey, "secret payload")
	require.NoError(t, err)
	assert.NotEqual(t, ciphertext, again)
}

func TestDecryptWrongKey(t *testing.T) {
	ciphertext, err := Encrypt(testAESKey, "secret payload")
	require.NoError(t, err)

	_, err = Decrypt("ffffffffffffffffffffffffffffffff", ciphertext)
	assert.Error(t, err)
}

func TestGenerateSSHKeyPair(t *testing.T) {
	publicKey, privateKey, err := GenerateSSHKeyPair("gradient-test")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(publicKey, "ssh-ed25519 "))
	assert.True(t, strings.HasSuffix(publicKey, " gradient-test"))
	assert.Len(t, privateKey, 64) // 32-byte seed, hex

	signer, err := SignerFromPrivateKey(privateKey)
	require.NoError(t, err)
	assert.Equal(t, "ssh-ed25519", signer.PublicKey().Type())
}

func TestSignerFromPrivateKeyRejectsGarbage(t *testing.T) {
	_, err := SignerFromPrivateKey("not-hex")
	assert.Error(t, err)

	_, err = SignerFromPrivateKey("abcd")
	assert.Error(t, err)
}

func TestGenerateAPIKey(t *testing.T) {
	key, hash, err := GenerateAPIKey()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(key, "grad_"))
	assert.Len(t, key, 5+64)
	assert.Equal(t, HashAPIKey(key), hash)
	assert.NotEqual(t, key, hash)

	other, _, err := GenerateAPIKey()
	require.NoError(t, err)
	assert.NotEqual(t, key, other)
}
