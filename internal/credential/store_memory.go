package credential

import (
	"context"
	"sync"
	"time"

	id "github.com/creerlio2026/creerlio-platform-sub005/pkg/domain"
	dErrors "github.com/creerlio2026/creerlio-platform-sub005/pkg/domain-errors"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu          sync.RWMutex
	credentials map[id.CredentialID]*Credential
	byToken     map[string]id.CredentialID
	attachments map[id.CredentialID][]*Attachment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		credentials: make(map[id.CredentialID]*Credential),
		byToken:     make(map[string]id.CredentialID),
		attachments: make(map[id.CredentialID][]*Attachment),
	}
}

func (s *MemoryStore) Create(_ context.Context, cred *Credential, att *Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byToken[cred.QRToken]; exists {
		return dErrors.New(dErrors.CodeConflict, "verification token already in use")
	}
	if _, exists := s.credentials[cred.ID]; exists {
		return dErrors.New(dErrors.CodeConflict, "credential already exists")
	}
	credCopy := *cred
	attCopy := *att
	s.credentials[cred.ID] = &credCopy
	s.byToken[cred.QRToken] = cred.ID
	s.attachments[cred.ID] = append(s.attachments[cred.ID], &attCopy)
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, credentialID id.CredentialID) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.credentials[credentialID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "credential not found")
	}
	out := *cred
	return &out, nil
}

func (s *MemoryStore) FindByToken(_ context.Context, token string) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	credID, ok := s.byToken[token]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "credential not found")
	}
	out := *s.credentials[credID]
	return &out, nil
}

func (s *MemoryStore) ListByOwner(_ context.Context, ownerID id.UserID) ([]*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Credential
	for _, cred := range s.credentials {
		if cred.OwnerID == ownerID {
			credCopy := *cred
			out = append(out, &credCopy)
		}
	}
	return out, nil
}

func (s *MemoryStore) Revoke(_ context.Context, credentialID id.CredentialID, revokedAt time.Time, revokedBy id.UserID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.credentials[credentialID]
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "credential not found")
	}
	if cred.Status != StatusActive {
		return dErrors.New(dErrors.CodeConflict, "credential is already revoked")
	}
	cred.Status = StatusRevoked
	cred.RevokedAt = &revokedAt
	cred.RevokedBy = &revokedBy
	cred.RevocationReason = reason
	cred.UpdatedAt = revokedAt
	return nil
}

func (s *MemoryStore) IncrementScanCount(_ context.Context, credentialID id.CredentialID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.credentials[credentialID]
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "credential not found")
	}
	cred.ScanCount++
	return nil
}

func (s *MemoryStore) PrimaryAttachment(_ context.Context, credentialID id.CredentialID) (*Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, att := range s.attachments[credentialID] {
		if att.Primary {
			out := *att
			return &out, nil
		}
	}
	return nil, dErrors.New(dErrors.CodeNotFound, "primary attachment not found")
}

// MemoryIssuerStore is an in-memory IssuerStore for tests.
type MemoryIssuerStore struct {
	mu      sync.RWMutex
	issuers map[id.IssuerID]*Issuer
}

func NewMemoryIssuerStore() *MemoryIssuerStore {
	return &MemoryIssuerStore{issuers: make(map[id.IssuerID]*Issuer)}
}

func (s *MemoryIssuerStore) Save(_ context.Context, issuer *Issuer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	issuerCopy := *issuer
	s.issuers[issuer.ID] = &issuerCopy
	return nil
}

func (s *MemoryIssuerStore) FindByID(_ context.Context, issuerID id.IssuerID) (*Issuer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	issuer, ok := s.issuers[issuerID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "issuer not found")
	}
	out := *issuer
	return &out, nil
}
