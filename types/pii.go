package types

import (
	"time"
)

// PIICategory classifies a column by the kind of personal data its
// name suggests.
type PIICategory string

const (
	PIIEmail       PIICategory = "email"
	PIIPhone       PIICategory = "phone"
	PIISSN         PIICategory = "ssn"
	PIICreditCard  PIICategory = "credit_card"
	PIIName        PIICategory = "name"
	PIIAddress     PIICategory = "address"
	PIIDateOfBirth PIICategory = "date_of_birth"
)

// AnonymizedMarker replaces column values during anonymization
const AnonymizedMarker = "[REDACTED]"

// PIIMatch is one column flagged by the detector
type PIIMatch struct {
	Table    string      `json:"table"`
	Column   string      `json:"column"`
	Category PIICategory `json:"category"`
}

// PIIViolation is a detected PII column with no registry entry.
// Unencrypted personal data is always graded high.
type PIIViolation struct {
	Table    string      `json:"table"`
	Column   string      `json:"column"`
	Category PIICategory `json:"category"`
	Reason   string      `json:"reason"`
	Severity Severity    `json:"severity"`
}

// CompliancePolicy configures the reporter. Advisory only; it does not
// block operations.
type CompliancePolicy struct {
	Name               string        `json:"name" yaml:"name"`
	RequireEncryption  []PIICategory `json:"requireEncryption" yaml:"requireEncryption"`
	MaxKeyAge          time.Duration `json:"maxKeyAge" yaml:"maxKeyAge"`
	RequireAuditTrail  bool          `json:"requireAuditTrail" yaml:"requireAuditTrail"`
	ExcludedTables     []string      `json:"excludedTables" yaml:"excludedTables"`
	NotifyOnViolations bool          `json:"notifyOnViolations" yaml:"notifyOnViolations"`
}

// ComplianceReport summarizes PII coverage across the schema
type ComplianceReport struct {
	GeneratedAt      time.Time      `json:"generatedAt"`
	PolicyName       string         `json:"policyName,omitempty"`
	TablesScanned    int            `json:"tablesScanned"`
	ColumnsScanned   int            `json:"columnsScanned"`
	PIIColumns       []PIIMatch     `json:"piiColumns"`
	EncryptedColumns int            `json:"encryptedColumns"`
	Violations       []PIIViolation `json:"violations"`
	Summary          string         `json:"summary"`
}
