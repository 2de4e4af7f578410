// Package credential holds the core entity of the platform: a claim a holder
// wants to prove, backed by exactly one primary file whose SHA-256 digest is
// fixed at ingestion.
package credential

import (
	"time"

	id "github.com/creerlio2026/creerlio-platform-sub005/pkg/domain"
)

// Status is the credential lifecycle state. Transitions are one-directional:
// active -> revoked, never reversed.
type Status string

const (
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
)

// TrustLevel distinguishes self-asserted claims from issuer-verified ones.
type TrustLevel string

const (
	TrustSelfAsserted   TrustLevel = "self_asserted"
	TrustIssuerVerified TrustLevel = "issuer_verified"
)

// Visibility controls who can discover the credential. Verification by token
// works for public and link_only; private credentials resolve only for their
// holder.
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityLinkOnly Visibility = "link_only"
	VisibilityPrivate  Visibility = "private"
)

// Credential is a holder's provable claim.
//
// SHA256Hash is immutable once set; QRToken is globally unique and never
// reused. Both invariants are enforced by the store layer.
type Credential struct {
	ID          id.CredentialID
	OwnerID     id.UserID
	Title       string
	Description string
	Type        string
	Category    string
	IssuerID    *id.IssuerID

	IssuedAt  *time.Time
	ExpiresAt *time.Time

	Status     Status
	TrustLevel TrustLevel
	Visibility Visibility

	SHA256Hash  string // hex-encoded digest of the backing file
	QRToken     string // opaque public verification token
	StoragePath string // blob store path of the primary file

	ScanCount int64

	RevokedAt        *time.Time
	RevokedBy        *id.UserID
	RevocationReason string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the credential's expiry date, if set, is in the
// past relative to now.
func (c *Credential) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}

// Attachment is the file-metadata record for a credential's backing file.
// Exactly one attachment is primary per credential.
type Attachment struct {
	ID           id.AttachmentID
	CredentialID id.CredentialID
	FileName     string
	ContentType  string
	SizeBytes    int64
	SHA256Hash   string
	Primary      bool
	StoragePath  string
	CreatedAt    time.Time
}

// Issuer is a registered issuing organisation, resolved for display in the
// public verification response.
type Issuer struct {
	ID       id.IssuerID
	Name     string
	Website  string
	Verified bool
}
