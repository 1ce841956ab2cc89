// Package interfaces is the single source of truth for the service
// contracts shared across the module.
package interfaces

import (
	"context"

	"github.com/caredata-io/school-health-module-encryption/types"
)

// KeyStore manages the lifecycle of encryption keys
type KeyStore interface {
	// Generate creates, stores and returns a new key. Empty algorithm
	// defaults to AES-256-GCM; zero expiry defaults to one year out.
	Generate(ctx context.Context, algorithm string, usage string) (*types.EncryptionKey, error)

	// Put stores a fully specified key, validating material length
	// against the algorithm.
	Put(ctx context.Context, key *types.EncryptionKey) error

	// Get returns the key by ID regardless of status
	Get(ctx context.Context, keyID string) (*types.EncryptionKey, error)

	// List returns keys matching the filter, newest first
	List(ctx context.Context, filter types.KeyFilter) ([]*types.EncryptionKey, error)

	// UpdateStatus transitions the key lifecycle state
	UpdateStatus(ctx context.Context, keyID string, status types.KeyStatus) error

	// Revoke marks the key revoked. Idempotent.
	Revoke(ctx context.Context, keyID string) error

	// Export returns the serializable key shape without material
	Export(ctx context.Context, keyID string) (*types.KeyExport, error)
}

// FieldCipher encrypts and decrypts individual values
type FieldCipher interface {
	// Encrypt seals plaintext under the active key and returns the
	// encoded blob.
	Encrypt(ctx context.Context, keyID string, plaintext string) (string, error)

	// Decrypt opens an encoded blob. Works for rotated and revoked
	// keys; fails on tampered or malformed input.
	Decrypt(ctx context.Context, keyID string, blob string) (string, error)
}

// RowStore abstracts the table storage that column operations mutate.
// Implementations must return rows in a deterministic order.
type RowStore interface {
	// SelectWhereColumnNotNull returns (pk, value) pairs for rows
	// where the column holds a non-null value.
	SelectWhereColumnNotNull(ctx context.Context, table, column string) ([]types.Row, error)

	// UpdateColumnByKey sets the column for one row. A nil value
	// stores NULL.
	UpdateColumnByKey(ctx context.Context, table, column, key string, value *string) error
}

// SchemaProvider exposes table and column metadata for scanning
type SchemaProvider interface {
	Tables(ctx context.Context) ([]string, error)
	Columns(ctx context.Context, table string) ([]types.ColumnInfo, error)
}

// AuditLogger records security-relevant events
type AuditLogger interface {
	// LogEvent appends an event to the ledger
	LogEvent(ctx context.Context, event *types.AuditEvent) error

	// Query returns events matching the filter, oldest first
	Query(ctx context.Context, filter types.AuditFilter) ([]*types.AuditEvent, error)
}

// DurableSink receives copies of audit events for long-term retention
type DurableSink interface {
	Append(ctx context.Context, event *types.AuditEvent) error
	Close() error
}

// TokenVault maps opaque tokens to original sensitive values
type TokenVault interface {
	// Tokenize returns a token for the value, reusing an existing
	// token when the value was seen before.
	Tokenize(ctx context.Context, value string) (string, error)

	// Detokenize resolves a token back to its value
	Detokenize(ctx context.Context, token string) (string, error)
}

// RecordStore persists encrypted-column registry records
type RecordStore interface {
	Put(ctx context.Context, record *types.EncryptedColumnRecord) error
	Get(ctx context.Context, table, column string) (*types.EncryptedColumnRecord, error)
	Delete(ctx context.Context, table, column string) error
	List(ctx context.Context) ([]*types.EncryptedColumnRecord, error)
}
