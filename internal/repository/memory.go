package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/jijunnie/jijunnie-portfolio-sub000/internal/domain"
)

// MemoryStore keeps settings in process memory. Used when no table is
// configured.
type MemoryStore struct {
	mu   sync.Mutex
	recs map[string]domain.SettingsRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[string]domain.SettingsRecord)}
}

func (m *MemoryStore) Get(_ context.Context, clientID string) (domain.SettingsRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[clientID]
	if !ok {
		return domain.SettingsRecord{}, false, nil
	}
	rec.Doc = append([]byte(nil), rec.Doc...)
	return rec, true, nil
}

func (m *MemoryStore) Put(_ context.Context, rec domain.SettingsRecord, expectedRevision int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.recs[rec.ClientID]
	switch {
	case !ok && expectedRevision != 0, ok && current.Revision != expectedRevision:
		return fmt.Errorf("repository: Put: %w", domain.ErrRevisionConflict)
	}
	rec.Doc = append([]byte(nil), rec.Doc...)
	m.recs[rec.ClientID] = rec
	return nil
}
