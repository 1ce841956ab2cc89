// Package tde simulates transparent data encryption at the database
// level: an enable/disable state machine, master-key custody and
// rotation, and overhead measurement.
package tde

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	wrapping "github.com/hashicorp/go-kms-wrapping/v2"

	"github.com/caredata-io/school-health-module-encryption/audit"
	"github.com/caredata-io/school-health-module-encryption/field"
	"github.com/caredata-io/school-health-module-encryption/interfaces"
	"github.com/caredata-io/school-health-module-encryption/kms"
	"github.com/caredata-io/school-health-module-encryption/types"
)

// perfSamples is the fixed number of operations MonitorPerformance
// runs in each phase.
const perfSamples = 500

// Service is the per-database TDE simulator. The raw master key is
// held only in wrapped form; MasterKeyRef carries its fingerprint for
// rotation authorization.
type Service struct {
	mu         sync.Mutex
	database   string
	config     *types.TDEConfig
	wrappedKey *wrapping.BlobInfo
	provider   kms.Provider
	auditor    interfaces.AuditLogger
	logger     zerolog.Logger
}

// NewService creates a simulator for one database. The wrapping
// provider and audit logger are required: master-key custody and the
// rotation trail both depend on them.
func NewService(database string, provider kms.Provider, auditor interfaces.AuditLogger) (*Service, error) {
	if database == "" {
		return nil, fmt.Errorf("database name is required")
	}
	if provider == nil {
		return nil, fmt.Errorf("wrapping provider is required")
	}
	if auditor == nil {
		return nil, fmt.Errorf("audit logger is required")
	}
	return &Service{
		database: database,
		provider: provider,
		auditor:  auditor,
		logger:   log.With().Str("component", "tde").Str("database", database).Logger(),
	}, nil
}

// fingerprint identifies a master key without retaining it
func fingerprint(masterKey []byte) string {
	sum := sha256.Sum256(masterKey)
	return hex.EncodeToString(sum[:])
}

// Enable turns encryption on with the given master key
func (s *Service) Enable(ctx context.Context, masterKey []byte, policy types.RotationPolicy) error {
	if len(masterKey) != field.KeySize {
		return &types.ValidationError{Reason: fmt.Sprintf("master key must be %d bytes, got %d", field.KeySize, len(masterKey))}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config != nil && s.config.Enabled {
		return &types.AlreadyEnabledError{Database: s.database}
	}

	wrapped, err := s.provider.GetWrapper().Encrypt(ctx, masterKey)
	if err != nil {
		s.logAuditEvent(ctx, audit.ActionTDEEnable, false, types.SeverityHigh, err)
		return fmt.Errorf("failed to wrap master key: %w", err)
	}

	if policy.Interval <= 0 {
		policy.Interval = types.DefaultRotationInterval
	}

	s.wrappedKey = wrapped
	s.config = &types.TDEConfig{
		Database:     s.database,
		Enabled:      true,
		Algorithm:    types.AlgorithmAES256GCM,
		MasterKeyRef: fingerprint(masterKey),
		EnabledAt:    time.Now().UTC(),
		Policy:       policy,
	}

	s.logger.Info().Msg("Transparent encryption enabled")
	s.logAuditEvent(ctx, audit.ActionTDEEnable, true, types.SeverityHigh, nil)
	return nil
}

// Disable turns encryption off, discarding the wrapped master key
func (s *Service) Disable(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config == nil || !s.config.Enabled {
		return &types.NotEnabledError{Database: s.database}
	}

	s.config.Enabled = false
	s.wrappedKey = nil
	s.config.MasterKeyRef = ""

	s.logger.Warn().Msg("Transparent encryption disabled")
	s.logAuditEvent(ctx, audit.ActionTDEDisable, true, types.SeverityHigh, nil)
	return nil
}

// RotateMasterKey swaps the master key. The caller must present the
// current key; a mismatch is an authorization failure.
func (s *Service) RotateMasterKey(ctx context.Context, oldKey, newKey []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config == nil || !s.config.Enabled {
		return &types.NotEnabledError{Database: s.database}
	}

	oldRef := fingerprint(oldKey)
	if subtle.ConstantTimeCompare([]byte(oldRef), []byte(s.config.MasterKeyRef)) != 1 {
		err := &types.AuthorizationError{Reason: "presented master key does not match the configured master key"}
		s.logAuditEvent(ctx, audit.ActionTDERotateKey, false, types.SeverityCritical, err)
		return err
	}
	if len(newKey) != field.KeySize {
		return &types.ValidationError{Reason: fmt.Sprintf("new master key must be %d bytes, got %d", field.KeySize, len(newKey))}
	}

	wrapped, err := s.provider.GetWrapper().Encrypt(ctx, newKey)
	if err != nil {
		s.logAuditEvent(ctx, audit.ActionTDERotateKey, false, types.SeverityHigh, err)
		return fmt.Errorf("failed to wrap new master key: %w", err)
	}

	s.wrappedKey = wrapped
	s.config.MasterKeyRef = fingerprint(newKey)

	s.logger.Info().Msg("Master key rotated")
	s.logAuditEvent(ctx, audit.ActionTDERotateKey, true, types.SeverityHigh, nil)
	return nil
}

// ConfigurePolicy replaces the rotation policy. Storage only: nothing
// rotates automatically on its behalf.
func (s *Service) ConfigurePolicy(policy types.RotationPolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config == nil || !s.config.Enabled {
		return &types.NotEnabledError{Database: s.database}
	}
	if policy.Interval <= 0 {
		policy.Interval = types.DefaultRotationInterval
	}
	s.config.Policy = policy

	s.logger.Info().Dur("interval", policy.Interval).Msg("Rotation policy configured")
	return nil
}

// GetStatus reports the current state. Rotation due is derived from
// the most recent rotation audit event plus the policy interval; a
// database that never rotated is due once the interval has passed
// since enablement.
func (s *Service) GetStatus(ctx context.Context) (*types.TDEStatus, error) {
	s.mu.Lock()
	config := s.config
	s.mu.Unlock()

	status := &types.TDEStatus{Database: s.database}
	if config == nil || !config.Enabled {
		return status, nil
	}

	status.Enabled = true
	status.Algorithm = config.Algorithm
	status.MasterKeyRef = config.MasterKeyRef
	status.EnabledAt = config.EnabledAt

	events, err := s.auditor.Query(ctx, types.AuditFilter{
		Action:   audit.ActionTDERotateKey,
		Resource: "database:" + s.database,
		Success:  boolPtr(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query rotation history: %w", err)
	}

	interval := config.Policy.Interval
	if interval <= 0 {
		interval = types.DefaultRotationInterval
	}

	if len(events) == 0 {
		status.RotationDue = time.Now().UTC().After(config.EnabledAt.Add(interval))
		return status, nil
	}

	latest := events[len(events)-1]
	status.LastRotatedAt = latest.Timestamp
	status.RotationDue = time.Now().UTC().After(latest.Timestamp.Add(interval))
	return status, nil
}

func boolPtr(b bool) *bool {
	return &b
}

// MonitorPerformance measures encryption overhead: it runs a fixed
// workload with encryption on, forces the flag off, reruns the same
// workload, and restores the original flag even if measurement fails.
func (s *Service) MonitorPerformance(ctx context.Context) (report *types.TDEPerfReport, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config == nil || !s.config.Enabled {
		return nil, &types.NotEnabledError{Database: s.database}
	}

	masterKey, err := s.provider.GetWrapper().Decrypt(ctx, s.wrappedKey)
	if err != nil {
		return nil, fmt.Errorf("failed to unwrap master key: %w", err)
	}

	original := s.config.Enabled
	defer func() {
		s.config.Enabled = original
	}()

	payload := []byte("representative workload sample, sized like a short clinical note")

	encryptElapsed, err := s.runSamples(masterKey, payload, true)
	if err != nil {
		return nil, err
	}

	s.config.Enabled = false
	plainElapsed, err := s.runSamples(masterKey, payload, false)
	if err != nil {
		return nil, err
	}

	report = &types.TDEPerfReport{
		Database:       s.database,
		Samples:        perfSamples,
		PlainElapsed:   plainElapsed,
		EncryptElapsed: encryptElapsed,
	}
	if plainElapsed > 0 {
		report.OverheadPct = (float64(encryptElapsed)/float64(plainElapsed) - 1) * 100
	}

	s.logger.Info().
		Float64("overheadPct", report.OverheadPct).
		Msg("Performance measurement completed")
	return report, nil
}

// runSamples executes the fixed workload. With encryption on, each
// sample is a full seal+open round trip; off, it is the plain copy
// the storage layer would otherwise do.
func (s *Service) runSamples(masterKey, payload []byte, encrypted bool) (time.Duration, error) {
	start := time.Now()
	for i := 0; i < perfSamples; i++ {
		if encrypted {
			blob, err := field.Seal(masterKey, payload)
			if err != nil {
				return 0, fmt.Errorf("sample encryption failed: %w", err)
			}
			if _, err := field.Open(masterKey, blob); err != nil {
				return 0, fmt.Errorf("sample decryption failed: %w", err)
			}
			continue
		}
		buf := make([]byte, len(payload))
		copy(buf, payload)
	}
	return time.Since(start), nil
}

// logAuditEvent records the operation, swallowing audit failures
func (s *Service) logAuditEvent(ctx context.Context, action string, success bool, severity types.Severity, opErr error) {
	event := audit.NewEvent(ctx, action, "database:"+s.database, success, severity)
	if opErr != nil {
		event.Metadata["error"] = opErr.Error()
	}
	if err := s.auditor.LogEvent(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("Failed to log audit event")
	}
}
