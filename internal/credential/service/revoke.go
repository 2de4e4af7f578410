package service

import (
	"context"

	"github.com/creerlio2026/creerlio-platform-sub005/internal/audit"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/chain"
	id "github.com/creerlio2026/creerlio-platform-sub005/pkg/domain"
	dErrors "github.com/creerlio2026/creerlio-platform-sub005/pkg/domain-errors"
	"github.com/creerlio2026/creerlio-platform-sub005/pkg/requestcontext"
)

// ChainRevokeOutcome reports what happened to the on-chain side of a
// revocation. The database revocation is authoritative either way.
type ChainRevokeOutcome string

const (
	// ChainRevokeSkipped means the credential had no confirmed anchor or no
	// chain client is configured, so there was nothing to revoke on chain.
	ChainRevokeSkipped ChainRevokeOutcome = "skipped"
	// ChainRevokeSucceeded means the revocation transaction was mined.
	ChainRevokeSucceeded ChainRevokeOutcome = "succeeded"
	// ChainRevokeFailed means the transaction failed or timed out. The
	// failure is surfaced, not hidden, so callers can retry out of band.
	ChainRevokeFailed ChainRevokeOutcome = "failed"
)

// RevokeResult describes a completed revocation.
type RevokeResult struct {
	CredentialID id.CredentialID
	ChainOutcome ChainRevokeOutcome
	ChainTxHash  string
	ChainError   string
}

// Revoke permanently deactivates the credential. Only the holder may revoke.
// When the credential carries a confirmed anchor and a chain client is
// configured, a best-effort on-chain revocation follows the database update;
// its outcome is reported explicitly and never rolls back the revocation.
func (s *Service) Revoke(ctx context.Context, credentialID id.CredentialID, callerID id.UserID, reason string) (*RevokeResult, error) {
	ctx, span := s.tracer.Start(ctx, "credential.Revoke")
	defer span.End()

	if callerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}

	cred, err := s.credentials.FindByID(ctx, credentialID)
	if err != nil {
		return nil, err
	}
	if cred.OwnerID != callerID {
		return nil, dErrors.New(dErrors.CodeForbidden, "credential belongs to another holder")
	}

	now := requestcontext.Now(ctx)
	if err := s.credentials.Revoke(ctx, credentialID, now, callerID, reason); err != nil {
		return nil, err
	}

	s.publisher.Emit(ctx, audit.EventCredentialRevoked, audit.Event{
		UserID:       callerID,
		CredentialID: credentialID,
		Subject:      cred.Title,
		Reason:       reason,
	})
	if s.metrics != nil {
		s.metrics.CredentialsRevoked.Inc()
	}

	result := &RevokeResult{
		CredentialID: credentialID,
		ChainOutcome: ChainRevokeSkipped,
	}
	s.revokeOnChain(ctx, credentialID, result)
	return result, nil
}

// revokeOnChain mirrors the revocation to the registry contract when the
// credential has a confirmed anchor. Failures mark the result and emit a
// security audit event; they never fail the revocation itself.
func (s *Service) revokeOnChain(ctx context.Context, credentialID id.CredentialID, result *RevokeResult) {
	if s.chainClient == nil {
		return
	}
	if _, err := s.anchors.FindConfirmedByCredential(ctx, credentialID); err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			s.logger.WarnContext(ctx, "anchor lookup failed during revocation",
				"credential_id", credentialID.String(),
				"error", err,
			)
		}
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, s.chainCallTimeout)
	defer cancel()

	receipt, err := s.chainClient.Revoke(callCtx, chain.CredentialIDHash(credentialID))
	if err != nil {
		result.ChainOutcome = ChainRevokeFailed
		result.ChainError = err.Error()
		s.logger.ErrorContext(ctx, "on-chain revocation failed",
			"credential_id", credentialID.String(),
			"error", err,
		)
		s.publisher.Emit(ctx, audit.EventChainRevokeFailed, audit.Event{
			CredentialID: credentialID,
			Reason:       err.Error(),
		})
		if s.metrics != nil {
			s.metrics.ChainRevokeFailures.Inc()
		}
		return
	}

	result.ChainOutcome = ChainRevokeSucceeded
	result.ChainTxHash = receipt.TxHash
}
