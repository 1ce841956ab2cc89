package pii

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/caredata-io/school-health-module-encryption/audit"
	"github.com/caredata-io/school-health-module-encryption/interfaces"
	"github.com/caredata-io/school-health-module-encryption/types"
)

// tokenPrefix marks vault tokens so they are recognizable in data
const tokenPrefix = "tok_"

// Vault is an in-memory reversible token vault. Tokens carry no
// intrinsic expiry; callers wanting expiry must layer it externally.
// Implements interfaces.TokenVault.
type Vault struct {
	mu      sync.RWMutex
	byToken map[string]string
	byValue map[string]string
	auditor interfaces.AuditLogger
	logger  zerolog.Logger
}

// NewVault creates an empty vault. The audit logger is optional.
func NewVault(auditor interfaces.AuditLogger) *Vault {
	return &Vault{
		byToken: make(map[string]string),
		byValue: make(map[string]string),
		auditor: auditor,
		logger:  log.With().Str("component", "token-vault").Logger(),
	}
}

// Tokenize returns a token for the value, reusing the existing token
// when the value was seen before.
func (v *Vault) Tokenize(ctx context.Context, value string) (string, error) {
	v.mu.Lock()
	token, ok := v.byValue[value]
	if !ok {
		token = tokenPrefix + uuid.New().String()
		v.byToken[token] = value
		v.byValue[value] = token
	}
	v.mu.Unlock()

	v.logAuditEvent(ctx, audit.ActionPIITokenize, token, true)
	return token, nil
}

// Detokenize resolves a token back to its value
func (v *Vault) Detokenize(ctx context.Context, token string) (string, error) {
	v.mu.RLock()
	value, ok := v.byToken[token]
	v.mu.RUnlock()

	if !ok {
		v.logAuditEvent(ctx, audit.ActionPIIDetokenize, token, false)
		return "", &types.DetokenizeError{Token: token}
	}

	v.logAuditEvent(ctx, audit.ActionPIIDetokenize, token, true)
	return value, nil
}

// Len returns the number of vaulted values
func (v *Vault) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.byToken)
}

func (v *Vault) logAuditEvent(ctx context.Context, action, token string, success bool) {
	if v.auditor == nil {
		return
	}
	severity := types.SeverityLow
	if !success {
		severity = types.SeverityMedium
	}
	event := audit.NewEvent(ctx, action, "token:"+token, success, severity)
	if err := v.auditor.LogEvent(ctx, event); err != nil {
		v.logger.Warn().Err(err).Str("action", action).Msg("Failed to log audit event")
	}
}
