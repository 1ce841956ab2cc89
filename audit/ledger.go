package audit

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/caredata-io/school-health-module-encryption/interfaces"
	"github.com/caredata-io/school-health-module-encryption/types"
)

// DefaultCapacity bounds the in-memory ledger
const DefaultCapacity = 10000

// suspiciousWindow is the trailing period scanned by
// DetectSuspiciousActivity.
const suspiciousWindow = time.Hour

// failureThreshold is the number of failed events within the window
// that flags an actor.
const failureThreshold = 5

// Ledger is a bounded in-memory audit log. When capacity is exceeded
// the oldest event is evicted; if a durable sink is configured the
// evicted event is offered to it first, best-effort.
type Ledger struct {
	mu       sync.RWMutex
	events   []*types.AuditEvent
	capacity int
	sink     interfaces.DurableSink
	logger   zerolog.Logger
}

// Option configures a Ledger
type Option func(*Ledger)

// WithCapacity overrides the default event capacity
func WithCapacity(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.capacity = n
		}
	}
}

// WithSink attaches a durable sink receiving a copy of every event
func WithSink(sink interfaces.DurableSink) Option {
	return func(l *Ledger) {
		l.sink = sink
	}
}

// NewLedger creates an empty ledger
func NewLedger(opts ...Option) *Ledger {
	l := &Ledger{
		capacity: DefaultCapacity,
		logger:   log.With().Str("component", "audit-ledger").Logger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LogEvent appends an event, evicting the oldest when full. The event
// is also forwarded to the sink immediately when one is configured;
// sink failures never propagate to the caller.
func (l *Ledger) LogEvent(ctx context.Context, event *types.AuditEvent) error {
	if event == nil {
		return types.ErrInvalidInput
	}

	l.mu.Lock()
	if len(l.events) >= l.capacity {
		evicted := l.events[0]
		l.events = l.events[1:]
		l.flushToSink(ctx, evicted, "eviction")
	}
	l.events = append(l.events, event)
	l.mu.Unlock()

	if l.sink != nil {
		if err := l.sink.Append(ctx, event); err != nil {
			l.logger.Warn().
				Err(err).
				Str("eventId", event.ID).
				Msg("Durable sink append failed")
		}
	}

	l.logger.Debug().
		Str("action", event.Action).
		Str("resource", event.Resource).
		Bool("success", event.Success).
		Msg("Audit event recorded")
	return nil
}

// flushToSink offers an event to the sink before it leaves the live
// ledger. Caller holds the lock; failures are logged and swallowed.
func (l *Ledger) flushToSink(ctx context.Context, event *types.AuditEvent, reason string) {
	if l.sink == nil {
		return
	}
	if err := l.sink.Append(ctx, event); err != nil {
		l.logger.Warn().
			Err(err).
			Str("eventId", event.ID).
			Str("reason", reason).
			Msg("Evicted audit event was not durably flushed")
	}
}

// Query returns events matching the filter, oldest first. The ledger
// is not mutated.
func (l *Ledger) Query(ctx context.Context, filter types.AuditFilter) ([]*types.AuditEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var matched []*types.AuditEvent
	for _, e := range l.events {
		if filter.Matches(e) {
			matched = append(matched, e)
			if filter.Limit > 0 && len(matched) >= filter.Limit {
				break
			}
		}
	}
	return matched, nil
}

// Len returns the current number of live events
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// Archive removes events older than the cutoff from the live ledger
// and returns the removed count. Removed events are offered to the
// durable sink; persistence beyond that is the sink's concern.
func (l *Ledger) Archive(ctx context.Context, olderThan time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.events[:0]
	removed := 0
	for _, e := range l.events {
		if e.Timestamp.Before(olderThan) {
			l.flushToSink(ctx, e, "archive")
			removed++
			continue
		}
		kept = append(kept, e)
	}
	l.events = kept

	l.logger.Info().
		Int("removed", removed).
		Time("olderThan", olderThan).
		Msg("Archived audit events")
	return removed, nil
}

// ValidateIntegrity checks that every live event carries the minimally
// required fields. Structural only; there is no hash chain.
func (l *Ledger) ValidateIntegrity(ctx context.Context) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var malformed []string
	for _, e := range l.events {
		if e.ID == "" || e.Timestamp.IsZero() || e.ActorID == "" || e.Action == "" {
			malformed = append(malformed, e.ID)
		}
	}
	return malformed, nil
}

// DetectSuspiciousActivity scans the trailing one-hour window and
// flags actors with five or more failed events, plus all critical
// events not already attributed to a flagged actor.
func (l *Ledger) DetectSuspiciousActivity(ctx context.Context) (*types.SuspiciousActivityReport, error) {
	now := time.Now().UTC()
	start := now.Add(-suspiciousWindow)

	l.mu.RLock()
	defer l.mu.RUnlock()

	failuresByActor := make(map[string][]*types.AuditEvent)
	var criticals []*types.AuditEvent
	for _, e := range l.events {
		if e.Timestamp.Before(start) {
			continue
		}
		if !e.Success {
			failuresByActor[e.ActorID] = append(failuresByActor[e.ActorID], e)
		}
		if e.Severity == types.SeverityCritical {
			criticals = append(criticals, e)
		}
	}

	report := &types.SuspiciousActivityReport{
		WindowStart: start,
		WindowEnd:   now,
	}

	flagged := make(map[string]bool)
	var actors []string
	for actor := range failuresByActor {
		actors = append(actors, actor)
	}
	sort.Strings(actors)
	for _, actor := range actors {
		failures := failuresByActor[actor]
		if len(failures) < failureThreshold {
			continue
		}
		flagged[actor] = true
		activity := types.SuspiciousActivity{
			ActorID:     actor,
			FailedCount: len(failures),
			WindowStart: start,
			WindowEnd:   now,
			Events:      failures,
		}
		seen := make(map[string]bool)
		for _, e := range failures {
			if !seen[e.Action] {
				seen[e.Action] = true
				activity.Actions = append(activity.Actions, e.Action)
			}
		}
		report.FlaggedActors = append(report.FlaggedActors, activity)
	}

	for _, e := range criticals {
		if flagged[e.ActorID] && !e.Success {
			continue
		}
		report.CriticalEvents = append(report.CriticalEvents, e)
	}

	return report, nil
}
