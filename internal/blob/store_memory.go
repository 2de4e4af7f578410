package blob

import (
	"context"
	"fmt"
	"sync"
	"time"

	dErrors "github.com/creerlio2026/creerlio-platform-sub005/pkg/domain-errors"
)

// MemoryStore is an in-memory blob store for tests. Tamper scenarios mutate
// stored bytes directly via Corrupt.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (s *MemoryStore) Put(_ context.Context, path string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	s.blobs[path] = buf
	return nil
}

func (s *MemoryStore) Get(_ context.Context, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[path]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "blob not found")
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *MemoryStore) SignedReadURL(path string, ttl time.Duration) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.blobs[path]; !ok {
		return "", dErrors.New(dErrors.CodeNotFound, "blob not found")
	}
	return fmt.Sprintf("memory://%s?ttl=%s", path, ttl), nil
}

func (s *MemoryStore) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, path)
	return nil
}

// Corrupt overwrites the stored bytes for path, simulating post-ingestion
// tampering with the durable file.
func (s *MemoryStore) Corrupt(path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[path] = append([]byte(nil), data...)
}

// Paths returns every stored blob path.
func (s *MemoryStore) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.blobs))
	for path := range s.blobs {
		out = append(out, path)
	}
	return out
}

// Exists reports whether a blob is present. Tests use it to assert the
// compensating delete ran.
func (s *MemoryStore) Exists(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blobs[path]
	return ok
}
