package credential

import (
	"context"
	"time"

	id "github.com/creerlio2026/creerlio-platform-sub005/pkg/domain"
)

// Store persists credentials and their attachments. Implementations map
// uniqueness violations on the verification token to CodeConflict so the
// service can retry token generation, and guard the revocation update on the
// active status so revoking twice surfaces as CodeConflict.
type Store interface {
	// Create persists the credential and its primary attachment atomically.
	Create(ctx context.Context, cred *Credential, att *Attachment) error
	FindByID(ctx context.Context, credentialID id.CredentialID) (*Credential, error)
	FindByToken(ctx context.Context, token string) (*Credential, error)
	ListByOwner(ctx context.Context, ownerID id.UserID) ([]*Credential, error)
	// Revoke flips status active -> revoked. Returns CodeNotFound for an
	// unknown credential and CodeConflict when it is already revoked.
	Revoke(ctx context.Context, credentialID id.CredentialID, revokedAt time.Time, revokedBy id.UserID, reason string) error
	// IncrementScanCount bumps the public scan counter by one.
	IncrementScanCount(ctx context.Context, credentialID id.CredentialID) error
	PrimaryAttachment(ctx context.Context, credentialID id.CredentialID) (*Attachment, error)
}

// IssuerStore resolves issuer display fields for verification responses.
type IssuerStore interface {
	Save(ctx context.Context, issuer *Issuer) error
	FindByID(ctx context.Context, issuerID id.IssuerID) (*Issuer, error)
}
