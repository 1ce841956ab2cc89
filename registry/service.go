// Package registry tracks which (table, column) pairs are encrypted
// under which key and coordinates bulk column operations: initial
// encryption, decryption, and key rotation.
package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/caredata-io/school-health-module-encryption/audit"
	"github.com/caredata-io/school-health-module-encryption/field"
	"github.com/caredata-io/school-health-module-encryption/interfaces"
	"github.com/caredata-io/school-health-module-encryption/types"
)

// ShadowSuffix names the column holding pre-encryption originals for
// rollback.
const ShadowSuffix = "__shadow"

// validationSampleSize caps how many rows ValidateEncryption inspects
const validationSampleSize = 100

// Service coordinates column-level encryption. Batch operations are
// observable through the progress tracker.
type Service struct {
	rows    interfaces.RowStore
	cipher  interfaces.FieldCipher
	keys    interfaces.KeyStore
	records interfaces.RecordStore
	auditor interfaces.AuditLogger
	tracker *Tracker
	logger  zerolog.Logger
}

// NewService creates a registry service. Row store, cipher, key store
// and record store are required; the audit logger is optional.
func NewService(rows interfaces.RowStore, cipher interfaces.FieldCipher, keys interfaces.KeyStore, records interfaces.RecordStore, auditor interfaces.AuditLogger) (*Service, error) {
	if rows == nil {
		return nil, fmt.Errorf("row store is required")
	}
	if cipher == nil {
		return nil, fmt.Errorf("field cipher is required")
	}
	if keys == nil {
		return nil, fmt.Errorf("key store is required")
	}
	if records == nil {
		return nil, fmt.Errorf("record store is required")
	}
	return &Service{
		rows:    rows,
		cipher:  cipher,
		keys:    keys,
		records: records,
		auditor: auditor,
		tracker: NewTracker(),
		logger:  log.With().Str("component", "column-registry").Logger(),
	}, nil
}

// Tracker exposes the progress tracker for operational observation
func (s *Service) Tracker() *Tracker {
	return s.tracker
}

// columnChecksum fingerprints the column identity for the registry
// record. It does not cover the data.
func columnChecksum(table, column string) string {
	sum := sha256.Sum256([]byte(table + "." + column))
	return hex.EncodeToString(sum[:])
}

// EncryptColumn encrypts every non-null value of the column under the
// key, preserving originals in the shadow column first, and registers
// the column. Fail-fast: the first row error aborts the operation,
// leaving the shadow values in place for rollback.
func (s *Service) EncryptColumn(ctx context.Context, table, column, keyID string) (int, error) {
	processID := uuid.New().String()
	s.tracker.Begin(processID, "encrypt", table, column)

	n, err := s.encryptColumn(ctx, processID, table, column, keyID)
	if err != nil {
		s.tracker.Fail(processID, err)
		s.logAuditEvent(ctx, audit.ActionColumnEncrypt, table, column, keyID, false, err)
		return n, err
	}

	s.tracker.Complete(processID)
	s.logAuditEvent(ctx, audit.ActionColumnEncrypt, table, column, keyID, true, nil)
	return n, nil
}

func (s *Service) encryptColumn(ctx context.Context, processID, table, column, keyID string) (int, error) {
	key, err := s.keys.Get(ctx, keyID)
	if err != nil {
		return 0, err
	}

	rows, err := s.rows.SelectWhereColumnNotNull(ctx, table, column)
	if err != nil {
		return 0, fmt.Errorf("failed to read column %s.%s: %w", table, column, err)
	}

	shadow := column + ShadowSuffix
	for i, row := range rows {
		original := row.Value
		if err := s.rows.UpdateColumnByKey(ctx, table, shadow, row.Key, &original); err != nil {
			return i, fmt.Errorf("failed to preserve original for row %s: %w", row.Key, err)
		}

		blob, err := s.cipher.Encrypt(ctx, keyID, row.Value)
		if err != nil {
			return i, fmt.Errorf("failed to encrypt row %s of %s.%s: %w", row.Key, table, column, err)
		}
		if err := s.rows.UpdateColumnByKey(ctx, table, column, row.Key, &blob); err != nil {
			return i, fmt.Errorf("failed to write encrypted row %s: %w", row.Key, err)
		}
		s.tracker.Update(processID, float64(i+1)/float64(len(rows)))
	}

	record := &types.EncryptedColumnRecord{
		Table:       table,
		Column:      column,
		Algorithm:   key.Algorithm,
		KeyID:       keyID,
		EncryptedAt: time.Now().UTC(),
		Checksum:    columnChecksum(table, column),
	}
	if err := s.records.Put(ctx, record); err != nil {
		return len(rows), fmt.Errorf("failed to register encrypted column: %w", err)
	}

	s.logger.Info().
		Str("table", table).
		Str("column", column).
		Str("keyId", keyID).
		Int("rows", len(rows)).
		Msg("Column encrypted")
	return len(rows), nil
}

// DecryptColumn decrypts every non-null value of the column, removes
// the registry entry, then makes a best-effort pass discarding shadow
// values. The cleanup outcome is reported separately and never fails
// the operation.
func (s *Service) DecryptColumn(ctx context.Context, table, column, keyID string) (*types.CleanupOutcome, error) {
	processID := uuid.New().String()
	s.tracker.Begin(processID, "decrypt", table, column)

	rows, err := s.rows.SelectWhereColumnNotNull(ctx, table, column)
	if err != nil {
		err = fmt.Errorf("failed to read column %s.%s: %w", table, column, err)
		s.tracker.Fail(processID, err)
		s.logAuditEvent(ctx, audit.ActionColumnDecrypt, table, column, keyID, false, err)
		return nil, err
	}

	for i, row := range rows {
		plaintext, err := s.cipher.Decrypt(ctx, keyID, row.Value)
		if err != nil {
			err = fmt.Errorf("failed to decrypt row %s of %s.%s: %w", row.Key, table, column, err)
			s.tracker.Fail(processID, err)
			s.logAuditEvent(ctx, audit.ActionColumnDecrypt, table, column, keyID, false, err)
			return nil, err
		}
		if err := s.rows.UpdateColumnByKey(ctx, table, column, row.Key, &plaintext); err != nil {
			err = fmt.Errorf("failed to write decrypted row %s: %w", row.Key, err)
			s.tracker.Fail(processID, err)
			s.logAuditEvent(ctx, audit.ActionColumnDecrypt, table, column, keyID, false, err)
			return nil, err
		}
		s.tracker.Update(processID, float64(i+1)/float64(len(rows)))
	}

	if err := s.records.Delete(ctx, table, column); err != nil && err != types.ErrRecordNotFound {
		err = fmt.Errorf("failed to deregister column: %w", err)
		s.tracker.Fail(processID, err)
		return nil, err
	}

	cleanup := s.discardShadow(ctx, table, column, rows)
	s.tracker.Complete(processID)
	s.logAuditEvent(ctx, audit.ActionColumnDecrypt, table, column, keyID, true, nil)
	return cleanup, nil
}

// discardShadow nulls the shadow values, tolerating per-row failures
func (s *Service) discardShadow(ctx context.Context, table, column string, rows []types.Row) *types.CleanupOutcome {
	shadow := column + ShadowSuffix
	outcome := &types.CleanupOutcome{Attempted: len(rows)}
	for _, row := range rows {
		if err := s.rows.UpdateColumnByKey(ctx, table, shadow, row.Key, nil); err != nil {
			if outcome.Err == nil {
				outcome.Err = err
			}
			continue
		}
		outcome.Discarded++
	}
	if outcome.Err != nil {
		s.logger.Warn().
			Err(outcome.Err).
			Str("table", table).
			Str("column", column).
			Int("discarded", outcome.Discarded).
			Int("attempted", outcome.Attempted).
			Msg("Shadow cleanup was incomplete")
	}
	return outcome
}

// RotateColumnEncryption re-encrypts every row under the new key and
// updates the registry. The old key transitions to rotated only once
// no registry entry references it any longer; until then it stays
// active so its remaining columns keep working. Not
// transactional: a partial failure leaves mixed-key rows; the tracker
// retains the failure point for manual reconciliation.
func (s *Service) RotateColumnEncryption(ctx context.Context, table, column, oldKeyID, newKeyID string) error {
	processID := uuid.New().String()
	s.tracker.Begin(processID, "rotate", table, column)

	err := s.rotateColumn(ctx, processID, table, column, oldKeyID, newKeyID)
	if err != nil {
		s.tracker.Fail(processID, err)
		s.logAuditEvent(ctx, audit.ActionColumnRotate, table, column, newKeyID, false, err)
		return err
	}

	s.tracker.Complete(processID)
	s.logAuditEvent(ctx, audit.ActionColumnRotate, table, column, newKeyID, true, nil)
	return nil
}

func (s *Service) rotateColumn(ctx context.Context, processID, table, column, oldKeyID, newKeyID string) error {
	record, err := s.records.Get(ctx, table, column)
	if err != nil {
		return fmt.Errorf("column %s.%s is not registered as encrypted: %w", table, column, err)
	}
	if record.KeyID != oldKeyID {
		return &types.ValidationError{Reason: fmt.Sprintf("column %s.%s is encrypted under key %s, not %s", table, column, record.KeyID, oldKeyID)}
	}

	rows, err := s.rows.SelectWhereColumnNotNull(ctx, table, column)
	if err != nil {
		return fmt.Errorf("failed to read column %s.%s: %w", table, column, err)
	}

	for i, row := range rows {
		plaintext, err := s.cipher.Decrypt(ctx, oldKeyID, row.Value)
		if err != nil {
			return fmt.Errorf("failed to decrypt row %s during rotation: %w", row.Key, err)
		}
		blob, err := s.cipher.Encrypt(ctx, newKeyID, plaintext)
		if err != nil {
			return fmt.Errorf("failed to re-encrypt row %s during rotation: %w", row.Key, err)
		}
		if err := s.rows.UpdateColumnByKey(ctx, table, column, row.Key, &blob); err != nil {
			return fmt.Errorf("failed to write re-encrypted row %s: %w", row.Key, err)
		}
		s.tracker.Update(processID, float64(i+1)/float64(len(rows)))
	}

	newKey, err := s.keys.Get(ctx, newKeyID)
	if err != nil {
		return err
	}
	record.KeyID = newKeyID
	record.Algorithm = newKey.Algorithm
	record.EncryptedAt = time.Now().UTC()
	if err := s.records.Put(ctx, record); err != nil {
		return fmt.Errorf("failed to update registry after rotation: %w", err)
	}

	// The old key leaves active service only once no registry entry
	// references it; other columns may still be encrypted under it.
	remaining, err := s.keyStillReferenced(ctx, oldKeyID)
	if err != nil {
		return err
	}
	if remaining > 0 {
		s.logger.Info().
			Str("keyId", oldKeyID).
			Int("columns", remaining).
			Msg("Old key still covers other columns, deferring rotation")
	} else if err := s.keys.UpdateStatus(ctx, oldKeyID, types.KeyStatusRotated); err != nil {
		return fmt.Errorf("failed to mark old key rotated: %w", err)
	}

	s.logger.Info().
		Str("table", table).
		Str("column", column).
		Str("oldKeyId", oldKeyID).
		Str("newKeyId", newKeyID).
		Int("rows", len(rows)).
		Msg("Column rotated to new key")
	return nil
}

// keyStillReferenced counts registry entries encrypted under the key
func (s *Service) keyStillReferenced(ctx context.Context, keyID string) (int, error) {
	records, err := s.records.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list registry records: %w", err)
	}
	count := 0
	for _, record := range records {
		if record.KeyID == keyID {
			count++
		}
	}
	return count, nil
}

// EncryptMultipleColumns encrypts several columns under one key,
// fail-soft across columns: each column gets its own outcome and a
// failure does not stop the remaining columns.
func (s *Service) EncryptMultipleColumns(ctx context.Context, table string, columns []string, keyID string) []types.ColumnOutcome {
	outcomes := make([]types.ColumnOutcome, 0, len(columns))
	for _, column := range columns {
		rows, err := s.EncryptColumn(ctx, table, column, keyID)
		outcomes = append(outcomes, types.ColumnOutcome{
			Table:  table,
			Column: column,
			Rows:   rows,
			Err:    err,
		})
	}
	return outcomes
}

// ValidateEncryption samples up to 100 rows and checks each value is a
// well-formed ciphertext blob. A sample pass is evidence, not proof.
func (s *Service) ValidateEncryption(ctx context.Context, table, column string) (bool, error) {
	rows, err := s.rows.SelectWhereColumnNotNull(ctx, table, column)
	if err != nil {
		return false, fmt.Errorf("failed to read column %s.%s: %w", table, column, err)
	}

	sample := rows
	if len(sample) > validationSampleSize {
		sample = sample[:validationSampleSize]
	}
	for _, row := range sample {
		if _, _, _, err := field.DecodeBlob(row.Value); err != nil {
			s.logAuditEvent(ctx, audit.ActionColumnValidate, table, column, "", false, err)
			return false, nil
		}
	}

	s.logAuditEvent(ctx, audit.ActionColumnValidate, table, column, "", true, nil)
	return true, nil
}

// ListRecords returns the current registry contents
func (s *Service) ListRecords(ctx context.Context) ([]*types.EncryptedColumnRecord, error) {
	return s.records.List(ctx)
}

// logAuditEvent records the operation, swallowing audit failures
func (s *Service) logAuditEvent(ctx context.Context, action, table, column, keyID string, success bool, opErr error) {
	if s.auditor == nil {
		return
	}
	severity := types.SeverityMedium
	if !success {
		severity = types.SeverityHigh
	}
	event := audit.NewEvent(ctx, action, fmt.Sprintf("column:%s.%s", table, column), success, severity)
	if keyID != "" {
		event.Metadata["keyId"] = keyID
	}
	if opErr != nil {
		event.Metadata["error"] = opErr.Error()
	}
	if err := s.auditor.LogEvent(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("Failed to log audit event")
	}
}
