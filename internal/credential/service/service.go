// Package service implements credential ingestion and revocation.
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

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

// tokenAttempts bounds verification-token collision retries. Exceeding it is
// a fatal ingestion error.
const tokenAttempts = 5

// Service coordinates credential lifecycle operations.
type Service struct {
	credentials credential.Store
	anchors     anchor.Store
	blobs       blob.Store
	chainClient chain.Client // nil when no chain is configured
	publisher   *audit.Publisher
	metrics     *metrics.Metrics
	logger      *slog.Logger
	tracer      trace.Tracer
	baseURL     string

	chainCallTimeout time.Duration
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithChainClient enables best-effort on-chain revocation.
func WithChainClient(client chain.Client, callTimeout time.Duration) Option {
	return func(s *Service) {
		s.chainClient = client
		s.chainCallTimeout = callTimeout
	}
}

// WithMetrics attaches Prometheus instruments.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithBaseURL sets the public prefix verification URLs are built on.
func WithBaseURL(baseURL string) Option {
	return func(s *Service) {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
}

func New(
	credentials credential.Store,
	anchors anchor.Store,
	blobs blob.Store,
	publisher *audit.Publisher,
	logger *slog.Logger,
	opts ...Option,
) (*Service, error) {
	if credentials == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	if anchors == nil {
		return nil, fmt.Errorf("anchor store is required")
	}
	if blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("audit publisher is required")
	}

	svc := &Service{
		credentials:      credentials,
		anchors:          anchors,
		blobs:            blobs,
		publisher:        publisher,
		logger:           logger,
		tracer:           otel.Tracer("creerlio/credential"),
		chainCallTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// IngestRequest carries everything needed to create a credential from an
// uploaded file.
type IngestRequest struct {
	OwnerID     id.UserID
	FileBytes   []byte
	FileName    string
	ContentType string

	Title          string
	Description    string
	CredentialType string
	Category       string
	IssuerID       *id.IssuerID
	IssuedAt       *time.Time
	ExpiresAt      *time.Time
	TrustLevel     credential.TrustLevel
	Visibility     credential.Visibility
}

// IngestResult is returned on successful ingestion.
type IngestResult struct {
	CredentialID    id.CredentialID
	Title           string
	QRToken         string
	SHA256Hash      string
	VerificationURL string
}

// Ingest stores the uploaded file, fixes its content digest, and creates the
// credential record with a unique public verification token. The operation
// has succeeded only when both the blob and the record exist; a failed record
// write triggers a compensating blob delete.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	ctx, span := s.tracer.Start(ctx, "credential.Ingest")
	defer span.End()

	if req.OwnerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	if len(req.FileBytes) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "file must not be empty")
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "title must not be empty")
	}
	if req.TrustLevel == "" {
		req.TrustLevel = credential.TrustSelfAsserted
	}
	if req.Visibility == "" {
		req.Visibility = credential.VisibilityLinkOnly
	}

	digest := sha256.Sum256(req.FileBytes)
	digestHex := hex.EncodeToString(digest[:])

	credID := id.NewCredentialID()
	now := requestcontext.Now(ctx)
	storagePath := buildStoragePath(req.OwnerID, credID, req.FileName)

	if err := s.blobs.Put(ctx, storagePath, req.FileBytes, req.ContentType); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeUnavailable, "failed to store file", err)
	}

	cred := &credential.Credential{
		ID:          credID,
		OwnerID:     req.OwnerID,
		Title:       req.Title,
		Description: req.Description,
		Type:        req.CredentialType,
		Category:    req.Category,
		IssuerID:    req.IssuerID,
		IssuedAt:    req.IssuedAt,
		ExpiresAt:   req.ExpiresAt,
		Status:      credential.StatusActive,
		TrustLevel:  req.TrustLevel,
		Visibility:  req.Visibility,
		SHA256Hash:  digestHex,
		StoragePath: storagePath,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	att := &credential.Attachment{
		ID:           id.NewAttachmentID(),
		CredentialID: credID,
		FileName:     req.FileName,
		ContentType:  req.ContentType,
		SizeBytes:    int64(len(req.FileBytes)),
		SHA256Hash:   digestHex,
		Primary:      true,
		StoragePath:  storagePath,
		CreatedAt:    now,
	}

	var createErr error
	for attempt := 0; attempt < tokenAttempts; attempt++ {
		token, err := newVerificationToken()
		if err != nil {
			createErr = err
			break
		}
		cred.QRToken = token
		createErr = s.credentials.Create(ctx, cred, att)
		if createErr == nil || !dErrors.HasCode(createErr, dErrors.CodeConflict) {
			break
		}
		s.logger.WarnContext(ctx, "verification token collision, retrying",
			"credential_id", credID.String(),
			"attempt", attempt+1,
		)
	}
	if createErr != nil {
		// Compensate: never leave an orphaned blob behind a failed record.
		if delErr := s.blobs.Delete(ctx, storagePath); delErr != nil {
			s.logger.ErrorContext(ctx, "compensating blob delete failed",
				"path", storagePath,
				"error", delErr,
			)
		}
		if dErrors.HasCode(createErr, dErrors.CodeConflict) {
			return nil, dErrors.Wrap(dErrors.CodeInternal, "could not allocate a unique verification token", createErr)
		}
		return nil, createErr
	}

	s.publisher.Emit(ctx, audit.EventCredentialCreated, audit.Event{
		UserID:       req.OwnerID,
		CredentialID: credID,
		Subject:      cred.Title,
	})
	if s.metrics != nil {
		s.metrics.CredentialsIngested.Inc()
	}

	return &IngestResult{
		CredentialID:    credID,
		Title:           cred.Title,
		QRToken:         cred.QRToken,
		SHA256Hash:      digestHex,
		VerificationURL: s.baseURL + "/verify/" + cred.QRToken,
	}, nil
}

// ListByOwner returns the caller's credentials.
func (s *Service) ListByOwner(ctx context.Context, ownerID id.UserID) ([]*credential.Credential, error) {
	if ownerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	return s.credentials.ListByOwner(ctx, ownerID)
}

// Get returns one credential, restricted to its holder.
func (s *Service) Get(ctx context.Context, credentialID id.CredentialID, callerID id.UserID) (*credential.Credential, error) {
	cred, err := s.credentials.FindByID(ctx, credentialID)
	if err != nil {
		return nil, err
	}
	if cred.OwnerID != callerID {
		return nil, dErrors.New(dErrors.CodeForbidden, "credential belongs to another holder")
	}
	return cred, nil
}

// newVerificationToken returns 32 hex chars of CSPRNG output. Uniqueness is
// ultimately enforced by the store; this just makes collisions negligible.
func newVerificationToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate verification token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// buildStoragePath scopes blobs by holder so there is no cross-holder
// contention in the file store.
func buildStoragePath(ownerID id.UserID, credentialID id.CredentialID, fileName string) string {
	base := path.Base(fileName)
	if base == "." || base == "/" || base == "" {
		base = "upload"
	}
	return ownerID.String() + "/" + credentialID.String() + "/" + base
}
