// Package envelope implements the AEAD wrapper applied to a whole file once,
// before chunking (component F, spec §4.F). It is grounded on the chunked
// AES-256-GCM scheme in kenchrcum-s3-encryption-gateway/internal/crypto,
// adapted to a single-shot whole-file envelope instead of a streamed,
// per-chunk one: this pipeline already chunks the envelope's ciphertext
// downstream in the fountain code, so a second layer of chunked encryption
// would only add overhead without changing the confidentiality or
// authentication guarantees.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"

	"github.com/n0remac/rvs/rvserr"
)

const (
	saltSize      = 16
	nonceFieldLen = 16 // spec §9 open question 1: 12-byte GCM nonce stored in a 16-byte field
	nonceUsedLen  = 12
	tagSize       = 16
	keySize       = 32
	pbkdf2Iters   = 100_000
)

const headerSize = saltSize + nonceFieldLen + tagSize

// deriveKey runs PBKDF2-HMAC-SHA256 over password and salt (spec §4.F).
func deriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, pbkdf2Iters, keySize, sha256.New)
}

// Encrypt wraps plaintext in an AEAD envelope: salt(16) | nonce_field(16,
// trailing 4 bytes reserved/zero) | tag(16) | ciphertext. Associated data is
// empty (spec §4.F).
func Encrypt(plaintext []byte, password string) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, rvserr.IoError("generate salt", err)
	}
	nonce := make([]byte, nonceUsedLen)
	if _, err := rand.Read(nonce); err != nil {
		return nil, rvserr.IoError("generate nonce", err)
	}

	key := deriveKey(password, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, rvserr.AuthFailure("build cipher: %v", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, rvserr.AuthFailure("build gcm: %v", err)
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	ciphertext := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	nonceField := make([]byte, nonceFieldLen)
	copy(nonceField, nonce)

	out := make([]byte, 0, headerSize+len(ciphertext))
	out = append(out, salt...)
	out = append(out, nonceField...)
	out = append(out, tag...)
	out = append(out, ciphertext...)
	return out, nil
}

// Decrypt parses envelope, rederives the key from password, and verifies the
// tag. A tag mismatch, or an envelope too short to parse, is
// rvserr.AuthFailureError: the pipeline must not emit any plaintext bytes on
// failure (spec §4.F).
func Decrypt(env []byte, password string) ([]byte, error) {
	if len(env) < headerSize {
		return nil, rvserr.AuthFailure("envelope too short: %d bytes", len(env))
	}
	off := 0
	salt := env[off : off+saltSize]
	off += saltSize
	nonceField := env[off : off+nonceFieldLen]
	off += nonceFieldLen
	tag := env[off : off+tagSize]
	off += tagSize
	ciphertext := env[off:]

	nonce := nonceField[:nonceUsedLen]

	key := deriveKey(password, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, rvserr.AuthFailure("build cipher: %v", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, rvserr.AuthFailure("build gcm: %v", err)
	}

	sealed := make([]byte, 0, len(ciphertext)+tagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, rvserr.AuthFailure("tag verification failed")
	}
	return plaintext, nil
}
