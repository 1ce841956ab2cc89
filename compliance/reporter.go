// Package compliance cross-references detected PII columns against
// the column registry and reports unencrypted personal data.
package compliance

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/caredata-io/school-health-module-encryption/audit"
	"github.com/caredata-io/school-health-module-encryption/interfaces"
	"github.com/caredata-io/school-health-module-encryption/pii"
	"github.com/caredata-io/school-health-module-encryption/types"
)

// Reporter checks PII coverage across a schema
type Reporter struct {
	mu      sync.RWMutex
	records interfaces.RecordStore
	auditor interfaces.AuditLogger
	policy  *types.CompliancePolicy
	logger  zerolog.Logger
}

// NewReporter creates a reporter over the record store. The audit
// logger is optional.
func NewReporter(records interfaces.RecordStore, auditor interfaces.AuditLogger) (*Reporter, error) {
	if records == nil {
		return nil, fmt.Errorf("record store is required")
	}
	return &Reporter{
		records: records,
		auditor: auditor,
		logger:  log.With().Str("component", "compliance").Logger(),
	}, nil
}

// ConfigurePolicy stores the policy for reference. Advisory only:
// nothing enforces thresholds automatically.
func (r *Reporter) ConfigurePolicy(policy *types.CompliancePolicy) error {
	if policy == nil {
		return types.ErrInvalidInput
	}
	r.mu.Lock()
	r.policy = policy
	r.mu.Unlock()

	r.logger.Info().Str("policy", policy.Name).Msg("Compliance policy configured")
	return nil
}

// Policy returns the configured policy, nil when none is set
func (r *Reporter) Policy() *types.CompliancePolicy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.policy
}

// ValidatePIICompliance detects PII columns across the schema and
// reports each one without a registry entry as a violation.
func (r *Reporter) ValidatePIICompliance(ctx context.Context, schema interfaces.SchemaProvider) ([]types.PIIViolation, error) {
	detector := pii.NewDetector(schema)
	matches, err := detector.DetectAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan schema: %w", err)
	}

	excluded := r.excludedTables()
	var violations []types.PIIViolation
	for _, match := range matches {
		if excluded[match.Table] {
			continue
		}
		if _, err := r.records.Get(ctx, match.Table, match.Column); err == nil {
			continue
		} else if err != types.ErrRecordNotFound {
			return nil, fmt.Errorf("failed to check registry for %s.%s: %w", match.Table, match.Column, err)
		}
		violations = append(violations, types.PIIViolation{
			Table:    match.Table,
			Column:   match.Column,
			Category: match.Category,
			Reason:   "detected PII column has no encryption registry entry",
			Severity: types.SeverityHigh,
		})
	}
	return violations, nil
}

func (r *Reporter) excludedTables() map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	excluded := make(map[string]bool)
	if r.policy != nil {
		for _, table := range r.policy.ExcludedTables {
			excluded[table] = true
		}
	}
	return excluded
}

// GenerateReport scans the schema and renders the full compliance
// picture: PII columns found, encryption coverage, and violations.
func (r *Reporter) GenerateReport(ctx context.Context, schema interfaces.SchemaProvider) (*types.ComplianceReport, error) {
	tables, err := schema.Tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	detector := pii.NewDetector(schema)
	columnsScanned := 0
	var piiColumns []types.PIIMatch
	for _, table := range tables {
		columns, err := schema.Columns(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("failed to list columns of %s: %w", table, err)
		}
		columnsScanned += len(columns)

		matches, err := detector.DetectTable(ctx, table)
		if err != nil {
			return nil, err
		}
		piiColumns = append(piiColumns, matches...)
	}

	violations, err := r.ValidatePIICompliance(ctx, schema)
	if err != nil {
		return nil, err
	}

	records, err := r.records.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list registry records: %w", err)
	}

	report := &types.ComplianceReport{
		GeneratedAt:      time.Now().UTC(),
		TablesScanned:    len(tables),
		ColumnsScanned:   columnsScanned,
		PIIColumns:       piiColumns,
		EncryptedColumns: len(records),
		Violations:       violations,
	}
	if policy := r.Policy(); policy != nil {
		report.PolicyName = policy.Name
	}
	report.Summary = renderSummary(report)

	r.logAuditEvent(ctx, len(violations))
	return report, nil
}

// renderSummary produces the human-readable report body
func renderSummary(report *types.ComplianceReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Compliance report generated at %s\n", report.GeneratedAt.Format(time.RFC3339))
	if report.PolicyName != "" {
		fmt.Fprintf(&b, "Policy: %s\n", report.PolicyName)
	}
	fmt.Fprintf(&b, "Scanned %d tables, %d columns\n", report.TablesScanned, report.ColumnsScanned)
	fmt.Fprintf(&b, "PII columns detected: %d\n", len(report.PIIColumns))
	fmt.Fprintf(&b, "Columns registered as encrypted: %d\n", report.EncryptedColumns)
	fmt.Fprintf(&b, "Violations: %d\n", len(report.Violations))
	for _, v := range report.Violations {
		fmt.Fprintf(&b, "  - [%s] %s.%s (%s): %s\n", v.Severity, v.Table, v.Column, v.Category, v.Reason)
	}
	return b.String()
}

func (r *Reporter) logAuditEvent(ctx context.Context, violations int) {
	if r.auditor == nil {
		return
	}
	severity := types.SeverityLow
	if violations > 0 {
		severity = types.SeverityHigh
	}
	event := audit.NewEvent(ctx, audit.ActionComplianceReport, "schema", true, severity)
	event.Metadata["violations"] = fmt.Sprintf("%d", violations)
	if err := r.auditor.LogEvent(ctx, event); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to log audit event")
	}
}
