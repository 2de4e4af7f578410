// Package domain defines typed identifiers shared across the platform.
// Wrapping uuid.UUID in distinct types makes cross-entity ID mixups a compile
// error rather than a data corruption incident.
package domain

import (
	"github.com/google/uuid"

	dErrors "github.com/creerlio2026/creerlio-platform-sub005/pkg/domain-errors"
)

type (
	// UserID identifies a credential holder (the owning principal).
	UserID uuid.UUID
	// CredentialID identifies a credential record.
	CredentialID uuid.UUID
	// IssuerID identifies a registered issuer organisation.
	IssuerID uuid.UUID
	// AnchorID identifies one on-chain anchoring attempt.
	AnchorID uuid.UUID
	// AttachmentID identifies a stored backing file record.
	AttachmentID uuid.UUID
)

func (id UserID) String() string       { return uuid.UUID(id).String() }
func (id CredentialID) String() string { return uuid.UUID(id).String() }
func (id IssuerID) String() string     { return uuid.UUID(id).String() }
func (id AnchorID) String() string     { return uuid.UUID(id).String() }
func (id AttachmentID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id CredentialID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id IssuerID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id AnchorID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }

// NewUserID returns a fresh random user ID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewCredentialID returns a fresh random credential ID.
func NewCredentialID() CredentialID { return CredentialID(uuid.New()) }

// NewIssuerID returns a fresh random issuer ID.
func NewIssuerID() IssuerID { return IssuerID(uuid.New()) }

// NewAnchorID returns a fresh random anchor ID.
func NewAnchorID() AnchorID { return AnchorID(uuid.New()) }

// NewAttachmentID returns a fresh random attachment ID.
func NewAttachmentID() AttachmentID { return AttachmentID(uuid.New()) }

// parseUUID enforces the shared invariant: IDs must be valid, non-empty,
// non-nil UUIDs. Applied at every trust boundary.
func parseUUID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be empty")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(dErrors.CodeInvalidInput, "id must be a valid uuid", err)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil uuid")
	}
	return parsed, nil
}

// ParseUserID parses and validates a user ID from its string form.
func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return UserID{}, err
	}
	return UserID(parsed), nil
}

// ParseCredentialID parses and validates a credential ID from its string form.
func ParseCredentialID(raw string) (CredentialID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return CredentialID{}, err
	}
	return CredentialID(parsed), nil
}

// ParseIssuerID parses and validates an issuer ID from its string form.
func ParseIssuerID(raw string) (IssuerID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return IssuerID{}, err
	}
	return IssuerID(parsed), nil
}

// ParseAnchorID parses and validates an anchor ID from its string form.
func ParseAnchorID(raw string) (AnchorID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return AnchorID{}, err
	}
	return AnchorID(parsed), nil
}
