package anchor

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/creerlio2026/creerlio-platform-sub005/internal/chain"
	id "github.com/creerlio2026/creerlio-platform-sub005/pkg/domain"
	dErrors "github.com/creerlio2026/creerlio-platform-sub005/pkg/domain-errors"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	anchors map[id.AnchorID]*Anchor
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{anchors: make(map[id.AnchorID]*Anchor)}
}

func (s *MemoryStore) CreatePending(_ context.Context, a *Anchor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.anchors[a.ID]; exists {
		return dErrors.New(dErrors.CodeConflict, "anchor already exists")
	}
	anchorCopy := *a
	s.anchors[a.ID] = &anchorCopy
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, anchorID id.AnchorID) (*Anchor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.anchors[anchorID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "anchor not found")
	}
	out := *a
	return &out, nil
}

func (s *MemoryStore) FindConfirmedByCredential(_ context.Context, credentialID id.CredentialID) (*Anchor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.anchors {
		if a.CredentialID == credentialID && a.Status == StatusConfirmed {
			out := *a
			return &out, nil
		}
	}
	return nil, dErrors.New(dErrors.CodeNotFound, "no confirmed anchor for credential")
}

// ListByCredential returns anchors newest first, matching the postgres store.
func (s *MemoryStore) ListByCredential(_ context.Context, credentialID id.CredentialID) ([]*Anchor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Anchor
	for _, a := range s.anchors {
		if a.CredentialID == credentialID {
			anchorCopy := *a
			out = append(out, &anchorCopy)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) MarkConfirmed(_ context.Context, anchorID id.AnchorID, receipt chain.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.anchors[anchorID]
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "anchor not found")
	}
	if a.Terminal() {
		return dErrors.New(dErrors.CodeConflict, "anchor is already terminal")
	}
	for _, other := range s.anchors {
		if other.CredentialID == a.CredentialID && other.Status == StatusConfirmed {
			return dErrors.New(dErrors.CodeConflict, "credential already has a confirmed anchor")
		}
	}
	now := time.Now().UTC()
	a.Status = StatusConfirmed
	a.TxHash = receipt.TxHash
	a.BlockNumber = receipt.BlockNumber
	if !receipt.BlockTime.IsZero() {
		bt := receipt.BlockTime
		a.BlockTime = &bt
	}
	a.Confirmations = receipt.Confirmations
	a.GasUsed = receipt.GasUsed
	a.UpdatedAt = now
	return nil
}

func (s *MemoryStore) MarkFailed(_ context.Context, anchorID id.AnchorID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.anchors[anchorID]
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "anchor not found")
	}
	if a.Terminal() {
		return dErrors.New(dErrors.CodeConflict, "anchor is already terminal")
	}
	a.Status = StatusFailed
	a.FailureReason = reason
	a.UpdatedAt = time.Now().UTC()
	return nil
}
