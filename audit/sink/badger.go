// Package sink provides durable destinations for audit events leaving
// the live ledger.
package sink

import (
	"context"
	"encoding/json"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/caredata-io/school-health-module-encryption/types"
)

// eventPrefix namespaces audit entries inside the Badger keyspace
const eventPrefix = "audit:"

// BadgerSink appends audit events to a BadgerDB instance. Keys are
// ordered by timestamp so range scans replay events chronologically.
type BadgerSink struct {
	db     *badger.DB
	logger zerolog.Logger
}

// NewBadgerSink opens (or creates) a Badger database at path
func NewBadgerSink(path string) (*BadgerSink, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit sink database: %w", err)
	}

	return &BadgerSink{
		db:     db,
		logger: log.With().Str("component", "audit-sink").Logger(),
	}, nil
}

// Append durably stores one event
func (s *BadgerSink) Append(ctx context.Context, event *types.AuditEvent) error {
	if event == nil {
		return types.ErrInvalidInput
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	key := []byte(fmt.Sprintf("%s%d:%s", eventPrefix, event.Timestamp.UnixNano(), event.ID))
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, payload)
	})
	if err != nil {
		return fmt.Errorf("failed to persist audit event: %w", err)
	}
	return nil
}

// Replay streams every stored event, oldest first, to fn. Iteration
// stops on the first error fn returns.
func (s *BadgerSink) Replay(ctx context.Context, fn func(*types.AuditEvent) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(eventPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := it.Item().Value(func(val []byte) error {
				var event types.AuditEvent
				if err := json.Unmarshal(val, &event); err != nil {
					s.logger.Warn().Err(err).Msg("Skipping undecodable audit entry")
					return nil
				}
				return fn(&event)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Close releases the underlying database
func (s *BadgerSink) Close() error {
	return s.db.Close()
}
