// Package service implements on-chain anchoring of credentials.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/creerlio2026/creerlio-platform-sub005/internal/anchor"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/audit"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/chain"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/credential"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/platform/metrics"
	id "github.com/creerlio2026/creerlio-platform-sub005/pkg/domain"
	dErrors "github.com/creerlio2026/creerlio-platform-sub005/pkg/domain-errors"
	"github.com/creerlio2026/creerlio-platform-sub005/pkg/requestcontext"
)

// ChainInfo identifies where anchors are written.
type ChainInfo struct {
	Name            string
	Network         string
	ContractAddress string
}

// Service submits anchoring transactions and records their outcomes.
type Service struct {
	anchors        anchor.Store
	credentials    credential.Store
	chainClient    chain.Client
	publisher      *audit.Publisher
	metrics        *metrics.Metrics
	logger         *slog.Logger
	tracer         trace.Tracer
	chainInfo      ChainInfo
	confirmTimeout time.Duration
}

// Option configures optional collaborators.
type Option func(*Service)

// WithMetrics attaches Prometheus instruments.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithConfirmTimeout bounds how long a single anchoring call waits for block
// inclusion before the attempt is marked failed.
func WithConfirmTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.confirmTimeout = d
		}
	}
}

// New builds the anchoring service. A nil chain client is allowed; anchoring
// then reports unavailable while listing keeps working.
func New(
	anchors anchor.Store,
	credentials credential.Store,
	chainClient chain.Client,
	publisher *audit.Publisher,
	logger *slog.Logger,
	info ChainInfo,
	opts ...Option,
) (*Service, error) {
	if anchors == nil {
		return nil, fmt.Errorf("anchor store is required")
	}
	if credentials == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("audit publisher is required")
	}

	svc := &Service{
		anchors:        anchors,
		credentials:    credentials,
		chainClient:    chainClient,
		publisher:      publisher,
		logger:         logger,
		tracer:         otel.Tracer("creerlio/anchor"),
		chainInfo:      info,
		confirmTimeout: 90 * time.Second,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Result is the outcome of an anchoring request.
type Result struct {
	Anchor *anchor.Anchor
	// AlreadyAnchored is true when a confirmed anchor existed before this
	// call; the returned anchor is the existing one.
	AlreadyAnchored bool
	TxURL           string
}

// Anchor commits the credential's identity and content hash to the registry
// contract. The call is idempotent with respect to confirmed anchors: if one
// already exists it is returned unchanged, including when a concurrent caller
// confirms first. Only the holder of an active credential may anchor it.
func (s *Service) Anchor(ctx context.Context, credentialID id.CredentialID, callerID id.UserID) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "anchor.Anchor")
	defer span.End()

	if callerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	if s.chainClient == nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "anchoring is not configured")
	}

	cred, err := s.credentials.FindByID(ctx, credentialID)
	if err != nil {
		return nil, err
	}
	if cred.OwnerID != callerID {
		return nil, dErrors.New(dErrors.CodeForbidden, "credential belongs to another holder")
	}
	if cred.Status != credential.StatusActive {
		return nil, dErrors.New(dErrors.CodeConflict, "only active credentials can be anchored")
	}

	if existing, err := s.anchors.FindConfirmedByCredential(ctx, credentialID); err == nil {
		return &Result{Anchor: existing, AlreadyAnchored: true, TxURL: s.chainClient.TxURL(existing.TxHash)}, nil
	} else if !dErrors.HasCode(err, dErrors.CodeNotFound) {
		return nil, err
	}

	contentHash, err := chain.ContentHashWord(cred.SHA256Hash)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	pending := &anchor.Anchor{
		ID:              id.NewAnchorID(),
		CredentialID:    credentialID,
		ChainName:       s.chainInfo.Name,
		Network:         s.chainInfo.Network,
		ContractAddress: s.chainInfo.ContractAddress,
		Status:          anchor.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	// The pending row goes in before the transaction so a crash mid-submit
	// leaves a visible attempt instead of an orphaned on-chain write.
	if err := s.anchors.CreatePending(ctx, pending); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.confirmTimeout)
	defer cancel()

	receipt, err := s.chainClient.Issue(callCtx, chain.CredentialIDHash(credentialID), contentHash)
	if err != nil {
		return nil, s.failAnchor(ctx, pending, err)
	}

	if err := s.anchors.MarkConfirmed(ctx, pending.ID, receipt); err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			return s.resolveRace(ctx, pending, receipt)
		}
		return nil, err
	}

	s.publisher.Emit(ctx, audit.EventAnchorConfirmed, audit.Event{
		UserID:       callerID,
		CredentialID: credentialID,
		Subject:      receipt.TxHash,
	})
	if s.metrics != nil {
		s.metrics.AnchorsConfirmed.Inc()
	}

	confirmed, err := s.anchors.FindByID(ctx, pending.ID)
	if err != nil {
		return nil, err
	}
	return &Result{Anchor: confirmed, TxURL: s.chainClient.TxURL(confirmed.TxHash)}, nil
}

// ListByCredential returns anchoring history, newest first, restricted to the
// credential's holder.
func (s *Service) ListByCredential(ctx context.Context, credentialID id.CredentialID, callerID id.UserID) ([]*anchor.Anchor, error) {
	cred, err := s.credentials.FindByID(ctx, credentialID)
	if err != nil {
		return nil, err
	}
	if cred.OwnerID != callerID {
		return nil, dErrors.New(dErrors.CodeForbidden, "credential belongs to another holder")
	}
	return s.anchors.ListByCredential(ctx, credentialID)
}

// failAnchor marks the pending attempt failed and returns the original chain
// error wrapped as unavailable.
func (s *Service) failAnchor(ctx context.Context, pending *anchor.Anchor, cause error) error {
	if err := s.anchors.MarkFailed(ctx, pending.ID, cause.Error()); err != nil {
		s.logger.ErrorContext(ctx, "failed to mark anchor failed",
			"anchor_id", pending.ID.String(),
			"error", err,
		)
	}
	s.publisher.Emit(ctx, audit.EventAnchorFailed, audit.Event{
		CredentialID: pending.CredentialID,
		Reason:       cause.Error(),
	})
	if s.metrics != nil {
		s.metrics.AnchorsFailed.Inc()
	}
	return dErrors.Wrap(dErrors.CodeUnavailable, "anchoring transaction failed", cause)
}

// resolveRace handles the losing side of two concurrent anchoring calls: a
// competitor confirmed first, so this attempt is recorded failed and the
// winner is returned as the authoritative anchor.
func (s *Service) resolveRace(ctx context.Context, pending *anchor.Anchor, receipt chain.Receipt) (*Result, error) {
	s.logger.WarnContext(ctx, "concurrent anchoring detected, yielding to confirmed anchor",
		"credential_id", pending.CredentialID.String(),
		"tx_hash", receipt.TxHash,
	)
	if err := s.anchors.MarkFailed(ctx, pending.ID, "superseded by concurrently confirmed anchor"); err != nil {
		s.logger.ErrorContext(ctx, "failed to mark superseded anchor",
			"anchor_id", pending.ID.String(),
			"error", err,
		)
	}
	winner, err := s.anchors.FindConfirmedByCredential(ctx, pending.CredentialID)
	if err != nil {
		return nil, err
	}
	return &Result{Anchor: winner, AlreadyAnchored: true, TxURL: s.chainClient.TxURL(winner.TxHash)}, nil
}
