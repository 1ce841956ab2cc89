package field

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"github.com/caredata-io/school-health-module-encryption/types"
)

// newGCM builds an AEAD over the material with the 16-byte nonce size
func newGCM(material []byte) (cipher.AEAD, error) {
	switch len(material) {
	case 16, 32:
	default:
		return nil, &types.ValidationError{Reason: fmt.Sprintf("key material must be 16 or 32 bytes, got %d", len(material))}
	}

	block, err := aes.NewCipher(material)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, NonceSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// Seal encrypts plaintext under raw key material with a fresh random
// nonce and returns the encoded blob.
func Seal(material []byte, plaintext []byte) (string, error) {
	gcm, err := newGCM(material)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	ciphertext := sealed[:len(sealed)-TagSize]
	tag := sealed[len(sealed)-TagSize:]

	return EncodeBlob(nonce, tag, ciphertext), nil
}

// Open decodes a blob and decrypts it under raw key material. A failed
// authentication check yields an IntegrityError.
func Open(material []byte, blob string) ([]byte, error) {
	gcm, err := newGCM(material)
	if err != nil {
		return nil, err
	}

	nonce, tag, ciphertext, err := DecodeBlob(blob)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, &types.IntegrityError{Reason: "authentication tag mismatch"}
	}
	return plaintext, nil
}
