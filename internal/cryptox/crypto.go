// Package cryptox implements the hashing the remote service contract
// requires (email, password, request token) plus at-rest sealing of stored
// credentials.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/argon2"
)

// HashEmail returns the hex sha256 of the lowercased, trimmed email. The
// server only ever sees this hash.
func HashEmail(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])
}

// HashPassword returns the hex sha512 of password+salt. Produced once at
// login submission; the plaintext password is never stored.
func HashPassword(password, salt string) string {
	sum := sha512.Sum512([]byte(password + salt))
	return hex.EncodeToString(sum[:])
}

// RequestToken derives the per-request token the server validates:
// sha256("version:time:salt").
func RequestToken(version int, unixTime int64, salt string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%d:%s", version, unixTime, salt)))
	return hex.EncodeToString(sum[:])
}

// FileMD5 returns the hex md5 digest of the file at path. Used to build the
// self-update manifest the server compares against.
func FileMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// DeriveKey produces a 32-byte AES key from a machine-bound secret via
// Argon2id.
func DeriveKey(secret, salt []byte) []byte {
	return argon2.IDKey(secret, salt, 1, 64*1024, 4, 32)
}

// Seal encrypts plaintext with AES-GCM and returns nonce||ciphertext.
func Seal(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aesgcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a nonce||ciphertext blob produced by Seal.
func Open(sealed, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aesgcm.NonceSize() {
		return nil, errors.New("sealed blob too short")
	}
	nonce, ciphertext := sealed[:aesgcm.NonceSize()], sealed[aesgcm.NonceSize():]
	return aesgcm.Open(nil, nonce, ciphertext, nil)
}
