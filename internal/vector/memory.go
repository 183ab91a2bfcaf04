package vector

import (
	"context"
	"sync"
)

// MemoryStore keeps records in process memory and scans them on query.
type MemoryStore struct {
	mu      sync.RWMutex
	docsets map[string]map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docsets: map[string]map[string]Record{}}
}

func (m *MemoryStore) Upsert(_ context.Context, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		ds := m.docsets[r.DocsetID]
		if ds == nil {
			ds = map[string]Record{}
			m.docsets[r.DocsetID] = ds
		}
		r.Embedding = append([]float32(nil), r.Embedding...)
		ds[r.ID] = r
	}
	return nil
}

func (m *MemoryStore) snapshot(docsetID string) []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ds := m.docsets[docsetID]
	out := make([]Record, 0, len(ds))
	for _, r := range ds {
		out = append(out, r)
	}
	return out
}

func (m *MemoryStore) Query(_ context.Context, docsetID string, vec []float32, topK int) ([]Match, error) {
	records := m.snapshot(docsetID)
	sortRecords(records)
	return rankByDistance(records, vec, topK), nil
}

func (m *MemoryStore) All(_ context.Context, docsetID string, limit int) ([]Record, error) {
	records := m.snapshot(docsetID)
	sortRecords(records)
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (m *MemoryStore) Count(_ context.Context, docsetID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docsets[docsetID]), nil
}

func (m *MemoryStore) DeleteDocset(_ context.Context, docsetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docsets, docsetID)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
