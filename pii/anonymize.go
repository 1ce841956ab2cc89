package pii

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/caredata-io/school-health-module-encryption/audit"
	"github.com/caredata-io/school-health-module-encryption/interfaces"
	"github.com/caredata-io/school-health-module-encryption/types"
)

// Anonymizer irreversibly overwrites column values with the redaction
// marker.
type Anonymizer struct {
	rows    interfaces.RowStore
	auditor interfaces.AuditLogger
	logger  zerolog.Logger
}

// NewAnonymizer creates an anonymizer. Both dependencies are
// required: anonymization must always leave an audit trail.
func NewAnonymizer(rows interfaces.RowStore, auditor interfaces.AuditLogger) (*Anonymizer, error) {
	if rows == nil {
		return nil, fmt.Errorf("row store is required")
	}
	if auditor == nil {
		return nil, fmt.Errorf("audit logger is required")
	}
	return &Anonymizer{
		rows:    rows,
		auditor: auditor,
		logger:  log.With().Str("component", "anonymizer").Logger(),
	}, nil
}

// Anonymize overwrites all non-null values in the given columns with
// the fixed marker. Irreversible; always logged at high severity.
func (a *Anonymizer) Anonymize(ctx context.Context, table string, columns []string) (int, error) {
	total := 0
	for _, column := range columns {
		rows, err := a.rows.SelectWhereColumnNotNull(ctx, table, column)
		if err != nil {
			a.logAuditEvent(ctx, table, column, 0, false, err)
			return total, fmt.Errorf("failed to read column %s.%s: %w", table, column, err)
		}

		marker := types.AnonymizedMarker
		for _, row := range rows {
			if err := a.rows.UpdateColumnByKey(ctx, table, column, row.Key, &marker); err != nil {
				a.logAuditEvent(ctx, table, column, total, false, err)
				return total, fmt.Errorf("failed to anonymize row %s of %s.%s: %w", row.Key, table, column, err)
			}
			total++
		}

		a.logger.Info().
			Str("table", table).
			Str("column", column).
			Int("rows", len(rows)).
			Msg("Column anonymized")
		a.logAuditEvent(ctx, table, column, len(rows), true, nil)
	}
	return total, nil
}

func (a *Anonymizer) logAuditEvent(ctx context.Context, table, column string, rows int, success bool, opErr error) {
	event := audit.NewEvent(ctx, audit.ActionPIIAnonymize, fmt.Sprintf("column:%s.%s", table, column), success, types.SeverityHigh)
	event.Metadata["rows"] = fmt.Sprintf("%d", rows)
	if opErr != nil {
		event.Metadata["error"] = opErr.Error()
	}
	if err := a.auditor.LogEvent(ctx, event); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to log audit event")
	}
}
