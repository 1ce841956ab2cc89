package types

import (
	"time"
)

// KeyStatus represents the lifecycle state of an encryption key
type KeyStatus string

const (
	KeyStatusActive  KeyStatus = "active"
	KeyStatusRotated KeyStatus = "rotated"
	KeyStatusRevoked KeyStatus = "revoked"
)

// Supported key algorithms
const (
	AlgorithmAES256GCM = "AES-256-GCM"
	AlgorithmAES128GCM = "AES-128-GCM"
)

// DefaultKeyLifetime is applied when a key is generated without an
// explicit expiry.
const DefaultKeyLifetime = 365 * 24 * time.Hour

// EncryptionKey holds a symmetric key and its lifecycle metadata.
// Material is never serialized; persistent stores must wrap it first.
type EncryptionKey struct {
	ID        string            `json:"id" bson:"_id"`
	Algorithm string            `json:"algorithm" bson:"algorithm"`
	Material  []byte            `json:"-" bson:"-"`
	CreatedAt time.Time         `json:"createdAt" bson:"createdAt"`
	ExpiresAt time.Time         `json:"expiresAt" bson:"expiresAt"`
	Status    KeyStatus         `json:"status" bson:"status"`
	Usage     string            `json:"usage" bson:"usage"`
	Metadata  map[string]string `json:"metadata,omitempty" bson:"metadata,omitempty"`
}

// Export returns the serializable shape of the key, without material.
func (k *EncryptionKey) Export() KeyExport {
	return KeyExport{
		ID:        k.ID,
		Algorithm: k.Algorithm,
		CreatedAt: k.CreatedAt,
		ExpiresAt: k.ExpiresAt,
		Status:    k.Status,
		Usage:     k.Usage,
		Metadata:  k.Metadata,
	}
}

// KeyExport is the external representation of an EncryptionKey
type KeyExport struct {
	ID        string            `json:"id" bson:"_id"`
	Algorithm string            `json:"algorithm" bson:"algorithm"`
	CreatedAt time.Time         `json:"createdAt" bson:"createdAt"`
	ExpiresAt time.Time         `json:"expiresAt" bson:"expiresAt"`
	Status    KeyStatus         `json:"status" bson:"status"`
	Usage     string            `json:"usage" bson:"usage"`
	Metadata  map[string]string `json:"metadata,omitempty" bson:"metadata,omitempty"`
}

// KeyFilter narrows List results. Zero-value fields match everything.
type KeyFilter struct {
	Status    KeyStatus
	Usage     string
	Algorithm string
}

// Matches reports whether the key satisfies every set filter field
func (f KeyFilter) Matches(k *EncryptionKey) bool {
	if f.Status != "" && k.Status != f.Status {
		return false
	}
	if f.Usage != "" && k.Usage != f.Usage {
		return false
	}
	if f.Algorithm != "" && k.Algorithm != f.Algorithm {
		return false
	}
	return true
}

// KeySizeForAlgorithm returns the key material size in bytes for a
// supported algorithm, or 0 when the algorithm is unknown.
func KeySizeForAlgorithm(algorithm string) int {
	switch algorithm {
	case AlgorithmAES256GCM:
		return 32
	case AlgorithmAES128GCM:
		return 16
	default:
		return 0
	}
}
