package kms

import (
	"context"

	wrapping "github.com/hashicorp/go-kms-wrapping/v2"
)

// Provider wraps and unwraps key material so it is never persisted in
// plaintext.
type Provider interface {
	// GetWrapper returns the underlying wrapper
	GetWrapper() wrapping.Wrapper

	// Test performs a test encryption/decryption
	Test(ctx context.Context) error

	// HealthCheck performs a comprehensive health check
	HealthCheck(ctx context.Context) error

	// GetLastHealthCheckError returns the last health check error
	GetLastHealthCheckError() error
}

// ProviderType represents the type of wrapping provider
type ProviderType string

const (
	// ProviderLocal wraps with a locally held AEAD key
	ProviderLocal ProviderType = "local"

	// ProviderExternalVault is reserved for an external key vault.
	// Not implemented; NewProvider rejects it explicitly.
	ProviderExternalVault ProviderType = "external-vault"
)

// Config configures a wrapping provider. Exactly one of KeyBase64 or
// Passphrase must be set for the local provider; Passphrase derives
// the wrapping key with PBKDF2.
type Config struct {
	Type       ProviderType `json:"type" bson:"type"`
	KeyID      string       `json:"keyId" bson:"keyId"`
	KeyBase64  string       `json:"keyBase64,omitempty" bson:"-"`
	Passphrase string       `json:"-" bson:"-"`
	Salt       string       `json:"salt,omitempty" bson:"salt,omitempty"`
}
