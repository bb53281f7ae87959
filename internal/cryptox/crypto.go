// Package cryptox provides encrypt/decrypt-given-a-key helpers for sealed
// container payloads. Key management and exchange live outside this module;
// callers hand in a 32-byte key and get an opaque ciphertext back.
package cryptox

import (
	"crypto/rand"
	"encoding/json"
	"errors"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the byte length of keys accepted by SealItem/OpenItem.
const KeySize = chacha20poly1305.KeySize

// DeriveKey stretches a secret and salt into a KeySize key with argon2id.
func DeriveKey(secret []byte, salt []byte) []byte {
	return argon2.IDKey(secret, salt, 1, 64*1024, 4, KeySize)
}

// SealItem serializes item to JSON and encrypts it with XChaCha20-Poly1305.
// A fresh random nonce is generated per call and returned alongside the
// ciphertext.
func SealItem(item any, key []byte) (ciphertext, nonce []byte, err error) {
	plaintext, err := json.Marshal(item)
	if err != nil {
		return nil, nil, err
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}

	return aead.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// OpenItem decrypts ciphertext produced by SealItem and unmarshals the
// plaintext JSON into v. The key and nonce must match the sealing call.
func OpenItem(ciphertext, nonce, key []byte, v any) error {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return err
	}
	if len(nonce) != aead.NonceSize() {
		return errors.New("invalid nonce size")
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return err
	}

	return json.Unmarshal(plaintext, v)
}

// Wipe overwrites b with zeros. Used for secrets that should not linger
// in memory after use.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
