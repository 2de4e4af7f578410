package verification

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/creerlio2026/creerlio-platform-sub005/internal/anchor"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/audit"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/blob"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/chain"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/credential"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/platform/metrics"
	id "github.com/creerlio2026/creerlio-platform-sub005/pkg/domain"
	dErrors "github.com/creerlio2026/creerlio-platform-sub005/pkg/domain-errors"
	"github.com/creerlio2026/creerlio-platform-sub005/pkg/requestcontext"
)

// IssuerSummary is the issuer slice of a verification response.
type IssuerSummary struct {
	Name     string `json:"name"`
	Website  string `json:"website,omitempty"`
	Verified bool   `json:"verified"`
}

// CredentialSummary is the public slice of a credential shown to scanners.
// It never includes the holder's identity or the backing file itself.
type CredentialSummary struct {
	Title      string     `json:"title"`
	Type       string     `json:"type,omitempty"`
	Category   string     `json:"category,omitempty"`
	TrustLevel string     `json:"trust_level"`
	IssuedAt   *time.Time `json:"issued_at,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`

	Issuer *IssuerSummary `json:"issuer,omitempty"`

	ScanCount int64 `json:"scan_count"`
}

// Outcome is the verdict slice of a verification response.
type Outcome struct {
	Result             Verdict `json:"result"`
	HashMatch          bool    `json:"hash_match"`
	BlockchainVerified bool    `json:"blockchain_verified"`
	BlockchainTxURL    string  `json:"blockchain_tx_url,omitempty"`
}

// Response is the public answer to a verification scan. Credential is nil for
// not_found verdicts.
type Response struct {
	Credential   *CredentialSummary `json:"credential,omitempty"`
	Verification Outcome            `json:"verification"`
}

// Service resolves verification tokens to verdicts.
type Service struct {
	credentials credential.Store
	issuers     credential.IssuerStore
	anchors     anchor.Store
	logs        Store
	blobs       blob.Store
	chainClient chain.Client // nil when no chain is configured
	publisher   *audit.Publisher
	metrics     *metrics.Metrics
	logger      *slog.Logger
	tracer      trace.Tracer
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithChainClient enables the on-chain record check.
func WithChainClient(client chain.Client) Option {
	return func(s *Service) {
		s.chainClient = client
	}
}

// WithMetrics attaches Prometheus instruments.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(
	credentials credential.Store,
	issuers credential.IssuerStore,
	anchors anchor.Store,
	logs Store,
	blobs blob.Store,
	publisher *audit.Publisher,
	logger *slog.Logger,
	opts ...Option,
) (*Service, error) {
	if credentials == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	if issuers == nil {
		return nil, fmt.Errorf("issuer store is required")
	}
	if anchors == nil {
		return nil, fmt.Errorf("anchor store is required")
	}
	if logs == nil {
		return nil, fmt.Errorf("verification log store is required")
	}
	if blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("audit publisher is required")
	}

	svc := &Service{
		credentials: credentials,
		issuers:     issuers,
		anchors:     anchors,
		logs:        logs,
		blobs:       blobs,
		publisher:   publisher,
		logger:      logger,
		tracer:      otel.Tracer("creerlio/verification"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Verify resolves a public verification token to a verdict. Revocation
// outranks expiry, which outranks the content-integrity check. The blob
// re-hash and the chain read run concurrently; a failing chain read degrades
// to blockchain_verified=false rather than failing the scan. Unknown and
// private tokens produce a bare not_found response with no log entry.
func (s *Service) Verify(ctx context.Context, token string) (*Response, error) {
	ctx, span := s.tracer.Start(ctx, "verification.Verify")
	defer span.End()

	start := time.Now()
	resp, cred, err := s.verify(ctx, token)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ObserveVerification(string(resp.Verification.Result), time.Since(start))
	}
	if cred != nil {
		s.record(ctx, cred, token, resp.Verification)
	}
	return resp, nil
}

func (s *Service) verify(ctx context.Context, token string) (*Response, *credential.Credential, error) {
	if token == "" {
		return nil, nil, dErrors.New(dErrors.CodeInvalidInput, "verification token must not be empty")
	}

	cred, err := s.credentials.FindByToken(ctx, token)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return &Response{Verification: Outcome{Result: VerdictNotFound}}, nil, nil
		}
		return nil, nil, err
	}
	// Private credentials are invisible to public verification.
	if cred.Visibility == credential.VisibilityPrivate {
		return &Response{Verification: Outcome{Result: VerdictNotFound}}, nil, nil
	}

	hashMatch, hashKnown, chainVerified, txURL := s.integrityChecks(ctx, cred)

	verdict := VerdictValid
	switch {
	case cred.Status == credential.StatusRevoked:
		verdict = VerdictRevoked
	case cred.Expired(requestcontext.Now(ctx)):
		verdict = VerdictExpired
	case hashKnown && !hashMatch:
		verdict = VerdictMismatch
	}

	resp := &Response{
		Credential: &CredentialSummary{
			Title:      cred.Title,
			Type:       cred.Type,
			Category:   cred.Category,
			TrustLevel: string(cred.TrustLevel),
			IssuedAt:   cred.IssuedAt,
			ExpiresAt:  cred.ExpiresAt,
			ScanCount:  cred.ScanCount + 1,
		},
		Verification: Outcome{
			Result:             verdict,
			HashMatch:          hashMatch,
			BlockchainVerified: chainVerified,
			BlockchainTxURL:    txURL,
		},
	}
	if cred.IssuerID != nil {
		if issuer, err := s.issuers.FindByID(ctx, *cred.IssuerID); err == nil {
			resp.Credential.Issuer = &IssuerSummary{
				Name:     issuer.Name,
				Website:  issuer.Website,
				Verified: issuer.Verified,
			}
		} else if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			s.logger.WarnContext(ctx, "issuer lookup failed",
				"issuer_id", cred.IssuerID.String(),
				"error", err,
			)
		}
	}
	return resp, cred, nil
}

// integrityChecks re-hashes the stored file and reads the on-chain record
// concurrently. Both run to completion even for revoked and expired
// credentials so the response always carries a truthful hash_match. When the
// blob cannot be read at all, hashKnown is false: a storage outage is not
// evidence of tampering, so the caller must not report mismatch from it.
func (s *Service) integrityChecks(ctx context.Context, cred *credential.Credential) (hashMatch, hashKnown, chainVerified bool, txURL string) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		data, err := s.blobs.Get(gctx, cred.StoragePath)
		if err != nil {
			s.logger.ErrorContext(gctx, "backing file read failed during verification",
				"credential_id", cred.ID.String(),
				"error", err,
			)
			return nil
		}
		digest := sha256.Sum256(data)
		hashKnown = true
		hashMatch = bytes.Equal(digest[:], mustHexDecode(cred.SHA256Hash))
		return nil
	})

	g.Go(func() error {
		if s.chainClient == nil {
			return nil
		}
		confirmed, err := s.anchors.FindConfirmedByCredential(gctx, cred.ID)
		if err != nil {
			if !dErrors.HasCode(err, dErrors.CodeNotFound) {
				s.logger.WarnContext(gctx, "anchor lookup failed during verification",
					"credential_id", cred.ID.String(),
					"error", err,
				)
			}
			return nil
		}
		record, err := s.chainClient.Read(gctx, chain.CredentialIDHash(cred.ID))
		if err != nil {
			// Chain outages must not fail a scan. The verdict is computed
			// without the on-chain record.
			s.logger.WarnContext(gctx, "chain read failed during verification",
				"credential_id", cred.ID.String(),
				"error", err,
			)
			return nil
		}
		expected, hashErr := chain.ContentHashWord(cred.SHA256Hash)
		chainVerified = record.Exists && !record.Revoked && hashErr == nil && record.ContentHash == expected
		if chainVerified {
			txURL = s.chainClient.TxURL(confirmed.TxHash)
		}
		return nil
	})

	_ = g.Wait()
	return hashMatch, hashKnown, chainVerified, txURL
}

// mustHexDecode returns the decoded digest, or nil when the stored value is
// not valid hex. A nil result can never equal a freshly computed digest.
func mustHexDecode(s string) []byte {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil
	}
	return raw
}

// record appends the verification log and bumps the scan counter. Neither
// failure is surfaced to the scanner.
func (s *Service) record(ctx context.Context, cred *credential.Credential, token string, out Outcome) {
	log := &Log{
		ID:                 uuid.New(),
		CredentialID:       cred.ID,
		Token:              token,
		Verdict:            out.Result,
		HashMatch:          out.HashMatch,
		BlockchainVerified: out.BlockchainVerified,
		IPAddress:          requestcontext.ClientIP(ctx),
		UserAgent:          requestcontext.UserAgent(ctx),
		Referrer:           requestcontext.Referrer(ctx),
		CreatedAt:          requestcontext.Now(ctx),
	}
	log.ParseClient()
	if err := s.logs.Append(ctx, log); err != nil {
		s.logger.ErrorContext(ctx, "failed to append verification log",
			"credential_id", cred.ID.String(),
			"error", err,
		)
	}
	if err := s.credentials.IncrementScanCount(ctx, cred.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to increment scan count",
			"credential_id", cred.ID.String(),
			"error", err,
		)
	}
	s.publisher.Emit(ctx, audit.EventCredentialVerified, audit.Event{
		CredentialID: cred.ID,
		Decision:     string(out.Result),
	})
}

// ListScans returns recent verification logs for a credential, restricted to
// its holder.
func (s *Service) ListScans(ctx context.Context, credentialID id.CredentialID, callerID id.UserID, limit int) ([]*Log, error) {
	cred, err := s.credentials.FindByID(ctx, credentialID)
	if err != nil {
		return nil, err
	}
	if cred.OwnerID != callerID {
		return nil, dErrors.New(dErrors.CodeForbidden, "credential belongs to another holder")
	}
	return s.logs.ListByCredential(ctx, credentialID, limit)
}
