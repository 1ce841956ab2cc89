// Package rowstore provides the table storage backends that column
// operations read and mutate.
package rowstore

import (
	"context"
	"sort"
	"sync"

	"github.com/caredata-io/school-health-module-encryption/types"
)

// MemoryStore is an in-memory RowStore and SchemaProvider, used in
// tests and the transparent-encryption simulator.
type MemoryStore struct {
	mu      sync.RWMutex
	schemas map[string][]types.ColumnInfo
	rows    map[string]map[string]map[string]*string // table -> pk -> column -> value
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		schemas: make(map[string][]types.ColumnInfo),
		rows:    make(map[string]map[string]map[string]*string),
	}
}

// AddTable registers a table and its columns
func (s *MemoryStore) AddTable(table string, columns []types.ColumnInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schemas[table] = columns
	if _, ok := s.rows[table]; !ok {
		s.rows[table] = make(map[string]map[string]*string)
	}
}

// InsertRow stores a row keyed by its primary key. String values are
// copied; nil means NULL.
func (s *MemoryStore) InsertRow(table, key string, values map[string]*string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rows[table]; !ok {
		s.rows[table] = make(map[string]map[string]*string)
	}
	row := make(map[string]*string, len(values))
	for col, val := range values {
		if val == nil {
			row[col] = nil
			continue
		}
		v := *val
		row[col] = &v
	}
	s.rows[table][key] = row
}

// GetValue returns the column value for one row; nil means NULL or
// missing.
func (s *MemoryStore) GetValue(table, key, column string) *string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rows[table][key]
	if !ok {
		return nil
	}
	val := row[column]
	if val == nil {
		return nil
	}
	v := *val
	return &v
}

// SelectWhereColumnNotNull returns (pk, value) pairs for rows holding
// a non-null value in the column, ordered by primary key.
func (s *MemoryStore) SelectWhereColumnNotNull(ctx context.Context, table, column string) ([]types.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tableRows, ok := s.rows[table]
	if !ok {
		return nil, types.ErrColumnNotFound
	}

	var out []types.Row
	for pk, row := range tableRows {
		if val, ok := row[column]; ok && val != nil {
			out = append(out, types.Row{Key: pk, Value: *val})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// UpdateColumnByKey sets the column for one row; nil stores NULL
func (s *MemoryStore) UpdateColumnByKey(ctx context.Context, table, column, key string, value *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[table][key]
	if !ok {
		return types.ErrRecordNotFound
	}
	if value == nil {
		row[column] = nil
		return nil
	}
	v := *value
	row[column] = &v
	return nil
}

// Tables returns registered table names, sorted
func (s *MemoryStore) Tables(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.schemas))
	for name := range s.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Columns returns the registered columns of a table
func (s *MemoryStore) Columns(ctx context.Context, table string) ([]types.ColumnInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	columns, ok := s.schemas[table]
	if !ok {
		return nil, types.ErrColumnNotFound
	}
	return columns, nil
}
