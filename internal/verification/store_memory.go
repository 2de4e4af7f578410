package verification

import (
	"context"
	"sync"

	id "github.com/creerlio2026/creerlio-platform-sub005/pkg/domain"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu   sync.RWMutex
	logs []*Log
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, log *Log) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := *log
	s.logs = append(s.logs, &entry)
	return nil
}

func (s *MemoryStore) ListByCredential(_ context.Context, credentialID id.CredentialID, limit int) ([]*Log, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Log
	for i := len(s.logs) - 1; i >= 0; i-- {
		if s.logs[i].CredentialID != credentialID {
			continue
		}
		entry := *s.logs[i]
		out = append(out, &entry)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// All returns every appended log, oldest first. Test helper.
func (s *MemoryStore) All() []*Log {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Log, len(s.logs))
	copy(out, s.logs)
	return out
}
