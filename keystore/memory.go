// Package keystore manages the lifecycle of encryption keys: creation,
// lookup, rotation bookkeeping, revocation and export.
package keystore

import (
	"context"
	"crypto/rand"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/caredata-io/school-health-module-encryption/audit"
	"github.com/caredata-io/school-health-module-encryption/interfaces"
	"github.com/caredata-io/school-health-module-encryption/types"
)

// MemoryStore is the in-memory KeyStore implementation
type MemoryStore struct {
	mu      sync.RWMutex
	keys    map[string]*types.EncryptionKey
	auditor interfaces.AuditLogger
	logger  zerolog.Logger
}

// NewMemoryStore creates an empty key store. The audit logger is
// optional.
func NewMemoryStore(auditor interfaces.AuditLogger) *MemoryStore {
	return &MemoryStore{
		keys:    make(map[string]*types.EncryptionKey),
		auditor: auditor,
		logger:  log.With().Str("component", "keystore").Logger(),
	}
}

// generateMaterial produces size random bytes and rejects the
// degenerate all-zero output.
func generateMaterial(size int) ([]byte, error) {
	material := make([]byte, size)
	if _, err := rand.Read(material); err != nil {
		return nil, fmt.Errorf("failed to generate key material: %w", err)
	}

	allZero := true
	for _, b := range material {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return nil, fmt.Errorf("generated key material is all zeros")
	}
	return material, nil
}

// Generate creates, stores and returns a new active key
func (s *MemoryStore) Generate(ctx context.Context, algorithm string, usage string) (*types.EncryptionKey, error) {
	if algorithm == "" {
		algorithm = types.AlgorithmAES256GCM
	}
	size := types.KeySizeForAlgorithm(algorithm)
	if size == 0 {
		return nil, &types.ValidationError{Reason: fmt.Sprintf("unsupported algorithm: %s", algorithm)}
	}

	material, err := generateMaterial(size)
	if err != nil {
		s.logAuditEvent(ctx, audit.ActionKeyGenerate, "", false, types.SeverityHigh, err)
		return nil, err
	}

	now := time.Now().UTC()
	key := &types.EncryptionKey{
		ID:        uuid.New().String(),
		Algorithm: algorithm,
		Material:  material,
		CreatedAt: now,
		ExpiresAt: now.Add(types.DefaultKeyLifetime),
		Status:    types.KeyStatusActive,
		Usage:     usage,
		Metadata:  make(map[string]string),
	}

	s.mu.Lock()
	s.keys[key.ID] = key
	s.mu.Unlock()

	s.logger.Info().
		Str("keyId", key.ID).
		Str("algorithm", algorithm).
		Str("usage", usage).
		Msg("Generated encryption key")
	s.logAuditEvent(ctx, audit.ActionKeyGenerate, key.ID, true, types.SeverityMedium, nil)

	return key, nil
}

// Put stores a fully specified key
func (s *MemoryStore) Put(ctx context.Context, key *types.EncryptionKey) error {
	if key == nil || key.ID == "" {
		return types.ErrInvalidInput
	}
	size := types.KeySizeForAlgorithm(key.Algorithm)
	if size == 0 {
		return &types.ValidationError{Reason: fmt.Sprintf("unsupported algorithm: %s", key.Algorithm)}
	}
	if len(key.Material) != size {
		return &types.ValidationError{Reason: fmt.Sprintf("key material must be %d bytes for %s, got %d", size, key.Algorithm, len(key.Material))}
	}
	if key.Status == "" {
		key.Status = types.KeyStatusActive
	}

	s.mu.Lock()
	s.keys[key.ID] = key
	s.mu.Unlock()
	return nil
}

// Get returns the key by ID regardless of status
func (s *MemoryStore) Get(ctx context.Context, keyID string) (*types.EncryptionKey, error) {
	s.mu.RLock()
	key, ok := s.keys[keyID]
	s.mu.RUnlock()
	if !ok {
		return nil, &types.KeyNotFoundError{KeyID: keyID}
	}
	return key, nil
}

// List returns keys matching the filter, newest first
func (s *MemoryStore) List(ctx context.Context, filter types.KeyFilter) ([]*types.EncryptionKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*types.EncryptionKey
	for _, key := range s.keys {
		if filter.Matches(key) {
			matched = append(matched, key)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return matched, nil
}

// UpdateStatus transitions the key lifecycle state. Valid moves are
// active->rotated, active->revoked and rotated->revoked. Setting the
// current status again is a no-op.
func (s *MemoryStore) UpdateStatus(ctx context.Context, keyID string, status types.KeyStatus) error {
	switch status {
	case types.KeyStatusActive, types.KeyStatusRotated, types.KeyStatusRevoked:
	default:
		return &types.ValidationError{Reason: fmt.Sprintf("unknown key status: %s", status)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.keys[keyID]
	if !ok {
		return &types.KeyNotFoundError{KeyID: keyID}
	}
	if key.Status == status {
		return nil
	}
	if !validTransition(key.Status, status) {
		return &types.ValidationError{Reason: fmt.Sprintf("invalid status transition %s -> %s", key.Status, status)}
	}

	key.Status = status
	s.logger.Info().
		Str("keyId", keyID).
		Str("status", string(status)).
		Msg("Key status updated")
	return nil
}

func validTransition(from, to types.KeyStatus) bool {
	switch from {
	case types.KeyStatusActive:
		return to == types.KeyStatusRotated || to == types.KeyStatusRevoked
	case types.KeyStatusRotated:
		return to == types.KeyStatusRevoked
	default:
		return false
	}
}

// Revoke marks the key revoked. Revoking an already revoked key is a
// no-op; the key can still decrypt but never encrypt again.
func (s *MemoryStore) Revoke(ctx context.Context, keyID string) error {
	s.mu.Lock()
	key, ok := s.keys[keyID]
	if !ok {
		s.mu.Unlock()
		return &types.KeyNotFoundError{KeyID: keyID}
	}
	already := key.Status == types.KeyStatusRevoked
	key.Status = types.KeyStatusRevoked
	s.mu.Unlock()

	if !already {
		s.logger.Warn().Str("keyId", keyID).Msg("Key revoked")
		s.logAuditEvent(ctx, audit.ActionKeyRevoke, keyID, true, types.SeverityHigh, nil)
	}
	return nil
}

// Export returns the serializable key shape without material
func (s *MemoryStore) Export(ctx context.Context, keyID string) (*types.KeyExport, error) {
	s.mu.RLock()
	key, ok := s.keys[keyID]
	s.mu.RUnlock()
	if !ok {
		return nil, &types.KeyNotFoundError{KeyID: keyID}
	}

	export := key.Export()
	s.logAuditEvent(ctx, audit.ActionKeyExport, keyID, true, types.SeverityMedium, nil)
	return &export, nil
}

// logAuditEvent records the operation, swallowing audit failures
func (s *MemoryStore) logAuditEvent(ctx context.Context, action, keyID string, success bool, severity types.Severity, opErr error) {
	if s.auditor == nil {
		return
	}
	event := audit.NewEvent(ctx, action, "key:"+keyID, success, severity)
	if opErr != nil {
		event.Metadata["error"] = opErr.Error()
	}
	if err := s.auditor.LogEvent(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("Failed to log audit event")
	}
}
