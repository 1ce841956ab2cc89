package types

import (
	"time"
)

// RotationPolicy controls how often the TDE master key should rotate
type RotationPolicy struct {
	Interval      time.Duration `json:"interval" yaml:"interval"`
	RemindersOnly bool          `json:"remindersOnly" yaml:"remindersOnly"`
}

// DefaultRotationInterval is used when a policy does not set one
const DefaultRotationInterval = 90 * 24 * time.Hour

// TDEConfig captures the persistent state of the transparent
// encryption simulator for one database.
type TDEConfig struct {
	Database     string         `json:"database"`
	Enabled      bool           `json:"enabled"`
	Algorithm    string         `json:"algorithm"`
	MasterKeyRef string         `json:"masterKeyRef"`
	EnabledAt    time.Time      `json:"enabledAt"`
	Policy       RotationPolicy `json:"policy"`
}

// TDEStatus is the point-in-time view returned by GetStatus
type TDEStatus struct {
	Database      string    `json:"database"`
	Enabled       bool      `json:"enabled"`
	Algorithm     string    `json:"algorithm,omitempty"`
	MasterKeyRef  string    `json:"masterKeyRef,omitempty"`
	EnabledAt     time.Time `json:"enabledAt,omitempty"`
	LastRotatedAt time.Time `json:"lastRotatedAt,omitempty"`
	RotationDue   bool      `json:"rotationDue"`
}

// TDEPerfReport summarizes the simulated overhead measurement
type TDEPerfReport struct {
	Database       string        `json:"database"`
	Samples        int           `json:"samples"`
	PlainElapsed   time.Duration `json:"plainElapsed"`
	EncryptElapsed time.Duration `json:"encryptElapsed"`
	OverheadPct    float64       `json:"overheadPct"`
}
