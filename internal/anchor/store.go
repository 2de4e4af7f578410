package anchor

import (
	"context"

	"github.com/creerlio2026/creerlio-platform-sub005/internal/chain"
	id "github.com/creerlio2026/creerlio-platform-sub005/pkg/domain"
)

// Store persists anchoring attempts. The postgres implementation backs the
// single-confirmed-anchor invariant with a partial unique index on
// (credential_id) where status = 'confirmed'; MarkConfirmed maps that
// uniqueness violation to CodeConflict so the service can return the winning
// anchor of a concurrent race.
type Store interface {
	// CreatePending inserts the anchor in pending state.
	CreatePending(ctx context.Context, a *Anchor) error
	FindByID(ctx context.Context, anchorID id.AnchorID) (*Anchor, error)
	// FindConfirmedByCredential returns the authoritative confirmed anchor,
	// or CodeNotFound when none exists.
	FindConfirmedByCredential(ctx context.Context, credentialID id.CredentialID) (*Anchor, error)
	ListByCredential(ctx context.Context, credentialID id.CredentialID) ([]*Anchor, error)
	// MarkConfirmed moves a pending anchor to confirmed with the receipt
	// metadata. Terminal anchors are never updated.
	MarkConfirmed(ctx context.Context, anchorID id.AnchorID, receipt chain.Receipt) error
	// MarkFailed moves a pending anchor to failed, capturing the reason.
	MarkFailed(ctx context.Context, anchorID id.AnchorID, reason string) error
}
