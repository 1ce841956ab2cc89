package types

import (
	"time"
)

// Severity grades audit events for review and alerting
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AuditEvent is one immutable entry in the audit ledger
type AuditEvent struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	ActorID   string            `json:"actorId"`
	SessionID string            `json:"sessionId,omitempty"`
	Action    string            `json:"action"`
	Resource  string            `json:"resource"`
	Success   bool              `json:"success"`
	Severity  Severity          `json:"severity"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AuditFilter narrows Query results. Nil/zero fields match everything.
type AuditFilter struct {
	ActorID  string
	Action   string
	Resource string
	Success  *bool
	Severity Severity
	From     time.Time
	To       time.Time
	Limit    int
}

// Matches reports whether the event satisfies every set filter field
func (f AuditFilter) Matches(e *AuditEvent) bool {
	if f.ActorID != "" && e.ActorID != f.ActorID {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.Resource != "" && e.Resource != f.Resource {
		return false
	}
	if f.Success != nil && e.Success != *f.Success {
		return false
	}
	if f.Severity != "" && e.Severity != f.Severity {
		return false
	}
	if !f.From.IsZero() && e.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.Timestamp.After(f.To) {
		return false
	}
	return true
}

// SuspiciousActivity flags an actor whose recent failure pattern
// crossed the detection threshold. Events carries the failed events
// themselves so callers can inspect them directly.
type SuspiciousActivity struct {
	ActorID     string        `json:"actorId"`
	FailedCount int           `json:"failedCount"`
	WindowStart time.Time     `json:"windowStart"`
	WindowEnd   time.Time     `json:"windowEnd"`
	Actions     []string      `json:"actions"`
	Events      []*AuditEvent `json:"events"`
}

// SuspiciousActivityReport is the result of a detection pass over the
// trailing window. CriticalEvents excludes events already attributed
// to a flagged actor.
type SuspiciousActivityReport struct {
	WindowStart    time.Time            `json:"windowStart"`
	WindowEnd      time.Time            `json:"windowEnd"`
	FlaggedActors  []SuspiciousActivity `json:"flaggedActors"`
	CriticalEvents []*AuditEvent        `json:"criticalEvents"`
}
