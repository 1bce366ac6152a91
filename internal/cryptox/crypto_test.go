package cryptox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashEmail_NormalizesCase(t *testing.T) {
	a := HashEmail("User@Example.COM")
	b := HashEmail("  user@example.com ")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestHashPassword_SaltChangesDigest(t *testing.T) {
	a := HashPassword("hunter2", "salt-a")
	b := HashPassword("hunter2", "salt-b")
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 128)
}

func TestRequestToken_Deterministic(t *testing.T) {
	a := RequestToken(300, 1700000000, "secret")
	b := RequestToken(300, 1700000000, "secret")
	c := RequestToken(300, 1700000001, "secret")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestFileMD5_KnownDigest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	got, err := FileMD5(path)
	require.NoError(t, err)
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", got)
}

func TestFileMD5_MissingFile(t *testing.T) {
	_, err := FileMD5(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestSealOpen_RoundTrip(t *testing.T) {
	key := DeriveKey([]byte("machine-id"), []byte("credentials"))
	require.Len(t, key, 32)

	sealed, err := Seal([]byte("password-hash"), key)
	require.NoError(t, err)

	plain, err := Open(sealed, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("password-hash"), plain)
}

func TestOpen_WrongKeyFails(t *testing.T) {
	key := DeriveKey([]byte("machine-id"), []byte("credentials"))
	other := DeriveKey([]byte("other-machine"), []byte("credentials"))

	sealed, err := Seal([]byte("secret"), key)
	require.NoError(t, err)

	_, err = Open(sealed, other)
	assert.Error(t, err)
}

func TestOpen_TruncatedBlob(t *testing.T) {
	key := DeriveKey([]byte("machine-id"), []byte("credentials"))
	_, err := Open([]byte{1, 2, 3}, key)
	assert.Error(t, err)
}
