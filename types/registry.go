package types

import (
	"time"
)

// EncryptedColumnRecord is the registry entry for one encrypted column.
// Checksum fingerprints the table.column identity, not the data.
type EncryptedColumnRecord struct {
	Table       string    `json:"table" bson:"table"`
	Column      string    `json:"column" bson:"column"`
	Algorithm   string    `json:"algorithm" bson:"algorithm"`
	KeyID       string    `json:"keyId" bson:"keyId"`
	EncryptedAt time.Time `json:"encryptedAt" bson:"encryptedAt"`
	Checksum    string    `json:"checksum" bson:"checksum"`
}

// ColumnOutcome reports the result of one column within a batch
// operation. Err is nil on success.
type ColumnOutcome struct {
	Table  string `json:"table"`
	Column string `json:"column"`
	Rows   int    `json:"rows"`
	Err    error  `json:"-"`
}

// CleanupOutcome reports the best-effort shadow cleanup performed after
// a column decryption, separately from the primary result.
type CleanupOutcome struct {
	Attempted int   `json:"attempted"`
	Discarded int   `json:"discarded"`
	Err       error `json:"-"`
}

// BenchmarkResult holds the measured throughput of encrypt+decrypt
// round trips for one algorithm.
type BenchmarkResult struct {
	Algorithm    string        `json:"algorithm"`
	Ops          int           `json:"ops"`
	Elapsed      time.Duration `json:"elapsed"`
	OpsPerSecond float64       `json:"opsPerSecond"`
}

// Row is one (primary key, value) pair returned by a RowStore
type Row struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ColumnInfo describes one column of a table as exposed by a schema
// provider.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}
