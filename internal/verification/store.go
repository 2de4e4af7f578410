package verification

import (
	"context"

	id "github.com/creerlio2026/creerlio-platform-sub005/pkg/domain"
)

// Store persists verification logs. Appends must not fail a verification;
// the service logs append errors and still returns its verdict.
type Store interface {
	Append(ctx context.Context, log *Log) error
	// ListByCredential returns scans newest first.
	ListByCredential(ctx context.Context, credentialID id.CredentialID, limit int) ([]*Log, error)
}
