package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/caredata-io/school-health-module-encryption/types"
)

// Actions recorded in the ledger
const (
	ActionKeyGenerate = "key.generate"
	ActionKeyRevoke   = "key.revoke"
	ActionKeyRotate   = "key.rotate"
	ActionKeyExport   = "key.export"
	ActionKeyExpired  = "key.expired"

	ActionFieldEncrypt = "field.encrypt"
	ActionFieldDecrypt = "field.decrypt"

	ActionColumnEncrypt  = "column.encrypt"
	ActionColumnDecrypt  = "column.decrypt"
	ActionColumnRotate   = "column.rotate"
	ActionColumnValidate = "column.validate"

	ActionTDEEnable    = "tde.enable"
	ActionTDEDisable   = "tde.disable"
	ActionTDERotateKey = "tde.rotate_key"

	ActionPIIScan       = "pii.scan"
	ActionPIIMask       = "pii.mask"
	ActionPIITokenize   = "pii.tokenize"
	ActionPIIDetokenize = "pii.detokenize"
	ActionPIIAnonymize  = "pii.anonymize"

	ActionComplianceReport = "compliance.report"
	ActionLedgerArchive    = "ledger.archive"
)

// NewEvent builds an audit event for the given operation, pulling the
// actor and session from the context.
func NewEvent(ctx context.Context, action, resource string, success bool, severity types.Severity) *types.AuditEvent {
	return &types.AuditEvent{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		ActorID:   ActorFromContext(ctx),
		SessionID: SessionFromContext(ctx),
		Action:    action,
		Resource:  resource,
		Success:   success,
		Severity:  severity,
		Metadata:  make(map[string]string),
	}
}
