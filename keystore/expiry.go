package keystore

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/caredata-io/school-health-module-encryption/audit"
	"github.com/caredata-io/school-health-module-encryption/interfaces"
	"github.com/caredata-io/school-health-module-encryption/types"
)

// DefaultCheckInterval is how often the expiry checker scans the store
const DefaultCheckInterval = time.Hour

// ExpiryChecker periodically scans for active keys past their expiry
// and raises advisory events. It never rotates or revokes anything on
// its own.
type ExpiryChecker struct {
	keys     interfaces.KeyStore
	auditor  interfaces.AuditLogger
	interval time.Duration
	done     chan struct{}
	logger   zerolog.Logger
}

// NewExpiryChecker creates a checker over the store. Zero interval
// defaults to hourly.
func NewExpiryChecker(keys interfaces.KeyStore, auditor interfaces.AuditLogger, interval time.Duration) *ExpiryChecker {
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	return &ExpiryChecker{
		keys:     keys,
		auditor:  auditor,
		interval: interval,
		done:     make(chan struct{}),
		logger:   log.With().Str("component", "key-expiry").Logger(),
	}
}

// Start runs the scan loop until Stop is called or ctx is cancelled
func (c *ExpiryChecker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-c.done:
				return
			case <-ticker.C:
				if _, err := c.CheckOnce(ctx); err != nil {
					c.logger.Error().Err(err).Msg("Expiry scan failed")
				}
			}
		}
	}()
}

// Stop terminates the scan loop
func (c *ExpiryChecker) Stop() {
	close(c.done)
}

// CheckOnce performs a single scan and returns the expired active
// keys it found.
func (c *ExpiryChecker) CheckOnce(ctx context.Context) ([]*types.EncryptionKey, error) {
	active, err := c.keys.List(ctx, types.KeyFilter{Status: types.KeyStatusActive})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var expired []*types.EncryptionKey
	for _, key := range active {
		if key.ExpiresAt.IsZero() || key.ExpiresAt.After(now) {
			continue
		}
		expired = append(expired, key)

		c.logger.Warn().
			Str("keyId", key.ID).
			Time("expiresAt", key.ExpiresAt).
			Msg("Active key is past its expiry, rotation recommended")

		if c.auditor != nil {
			event := audit.NewEvent(ctx, audit.ActionKeyExpired, "key:"+key.ID, true, types.SeverityLow)
			event.Metadata["expiresAt"] = key.ExpiresAt.Format(time.RFC3339)
			if err := c.auditor.LogEvent(ctx, event); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to log audit event")
			}
		}
	}
	return expired, nil
}
