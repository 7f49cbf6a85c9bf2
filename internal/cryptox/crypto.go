// Package cryptox implements the envelope encryption used by the local
// offline store: AES-256-GCM over JSON-serialized records, with keys derived
// via argon2id from a device-bound secret and an optional user PIN.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/dpetrovs/stockkeeper/internal/common"
	"golang.org/x/crypto/argon2"
)

// NonceSize is the AES-GCM nonce length used for every sealed record.
const NonceSize = 12

// DeriveKey derives a 32-byte AES key from the device-bound secret, an
// optional user PIN and a per-installation salt using argon2id.
//
// When pin is empty the key is bound to the device secret alone; when a PIN
// is set the same derivation runs over secret||pin, so a store sealed with a
// PIN-strengthened key cannot be opened without the PIN. The PIN itself is
// never persisted, only a verifier of the derived key (see MakeVerifier).
func DeriveKey(secret, pin, salt []byte) []byte {
	material := make([]byte, 0, len(secret)+len(pin))
	material = append(material, secret...)
	material = append(material, pin...)
	return argon2.IDKey(material, salt, 1, 64*1024, 4, 32)
}

// MakeVerifier returns a value safe to persist that allows checking a
// candidate key without storing the key itself.
func MakeVerifier(key []byte) []byte {
	hash := sha256.Sum256(key)
	return hash[:]
}

// Seal serializes v to JSON and encrypts it with AES-GCM under key.
// A fresh random nonce is generated per call and returned alongside the
// ciphertext; both must be persisted to decrypt later.
func Seal(v any, key []byte) (ciphertext, nonce []byte, err error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}

	nonce = common.GenerateRandByteArray(NonceSize)
	ciphertext = aesgcm.Seal(nil, nonce, plaintext, nil)
	return ciphertext, nonce, nil
}

// Open decrypts ciphertext produced by Seal and unmarshals the plaintext
// JSON into v.
//
// An authentication failure (wrong key, tampered record) is reported as
// common.ErrDecryptionFailed so callers can distinguish unusable key
// material from a missing record.
func Open(ciphertext, nonce, key []byte, v any) error {
	block, err := aes.NewCipher(key)
	if err != nil {
		return err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return err
	}

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrDecryptionFailed, err)
	}
	return json.Unmarshal(plaintext, v)
}
