// Package field implements the per-value cipher engine. Values are
// sealed with AES-GCM under a key from the key store and rendered in
// the portable blob format.
package field

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/caredata-io/school-health-module-encryption/audit"
	"github.com/caredata-io/school-health-module-encryption/interfaces"
	"github.com/caredata-io/school-health-module-encryption/types"
)

// Service encrypts and decrypts individual values. It implements
// interfaces.FieldCipher.
type Service struct {
	keys    interfaces.KeyStore
	auditor interfaces.AuditLogger
	logger  zerolog.Logger
}

// NewService creates a cipher service. The audit logger is optional;
// the key store is not.
func NewService(keys interfaces.KeyStore, auditor interfaces.AuditLogger) (*Service, error) {
	if keys == nil {
		return nil, fmt.Errorf("key store is required")
	}
	return &Service{
		keys:    keys,
		auditor: auditor,
		logger:  log.With().Str("component", "field-cipher").Logger(),
	}, nil
}

// Encrypt seals plaintext under the key and returns the encoded blob.
// Only active keys may encrypt.
func (s *Service) Encrypt(ctx context.Context, keyID string, plaintext string) (string, error) {
	key, err := s.keys.Get(ctx, keyID)
	if err != nil {
		s.logAuditEvent(ctx, audit.ActionFieldEncrypt, keyID, false, types.SeverityMedium, err)
		return "", err
	}
	if key.Status != types.KeyStatusActive {
		err = &types.KeyInactiveError{KeyID: keyID, Status: key.Status}
		s.logAuditEvent(ctx, audit.ActionFieldEncrypt, keyID, false, types.SeverityMedium, err)
		return "", err
	}

	blob, err := Seal(key.Material, []byte(plaintext))
	if err != nil {
		s.logger.Error().Err(err).Str("keyId", keyID).Msg("Encryption failed")
		s.logAuditEvent(ctx, audit.ActionFieldEncrypt, keyID, false, types.SeverityHigh, err)
		return "", fmt.Errorf("failed to encrypt value: %w", err)
	}

	s.logAuditEvent(ctx, audit.ActionFieldEncrypt, keyID, true, types.SeverityLow, nil)
	return blob, nil
}

// Decrypt opens an encoded blob. Rotated and revoked keys may still
// decrypt; tampered or malformed blobs fail.
func (s *Service) Decrypt(ctx context.Context, keyID string, blob string) (string, error) {
	key, err := s.keys.Get(ctx, keyID)
	if err != nil {
		s.logAuditEvent(ctx, audit.ActionFieldDecrypt, keyID, false, types.SeverityMedium, err)
		return "", err
	}

	plaintext, err := Open(key.Material, blob)
	if err != nil {
		s.logger.Warn().Err(err).Str("keyId", keyID).Msg("Decryption failed")
		s.logAuditEvent(ctx, audit.ActionFieldDecrypt, keyID, false, types.SeverityHigh, err)
		return "", err
	}

	s.logAuditEvent(ctx, audit.ActionFieldDecrypt, keyID, true, types.SeverityLow, nil)
	return string(plaintext), nil
}

// logAuditEvent records the operation. Audit failures are logged and
// swallowed; they never fail the primary operation.
func (s *Service) logAuditEvent(ctx context.Context, action, keyID string, success bool, severity types.Severity, opErr error) {
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
