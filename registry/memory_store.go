package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/caredata-io/school-health-module-encryption/types"
)

// MemoryRecordStore is the in-memory RecordStore implementation
type MemoryRecordStore struct {
	mu      sync.RWMutex
	records map[string]*types.EncryptedColumnRecord
}

// NewMemoryRecordStore creates an empty record store
func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{records: make(map[string]*types.EncryptedColumnRecord)}
}

func recordKey(table, column string) string {
	return table + "." + column
}

// Put stores or replaces the record for (table, column)
func (s *MemoryRecordStore) Put(ctx context.Context, record *types.EncryptedColumnRecord) error {
	if record == nil || record.Table == "" || record.Column == "" {
		return types.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[recordKey(record.Table, record.Column)] = record
	return nil
}

// Get returns the record for (table, column)
func (s *MemoryRecordStore) Get(ctx context.Context, table, column string) (*types.EncryptedColumnRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[recordKey(table, column)]
	if !ok {
		return nil, types.ErrRecordNotFound
	}
	return record, nil
}

// Delete removes the record for (table, column)
func (s *MemoryRecordStore) Delete(ctx context.Context, table, column string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey(table, column)
	if _, ok := s.records[key]; !ok {
		return types.ErrRecordNotFound
	}
	delete(s.records, key)
	return nil
}

// List returns all records ordered by table then column
func (s *MemoryRecordStore) List(ctx context.Context) ([]*types.EncryptedColumnRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.EncryptedColumnRecord, 0, len(s.records))
	for _, record := range s.records {
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Table != out[j].Table {
			return out[i].Table < out[j].Table
		}
		return out[i].Column < out[j].Column
	})
	return out, nil
}
