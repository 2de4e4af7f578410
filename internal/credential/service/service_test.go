package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creerlio2026/creerlio-platform-sub005/internal/anchor"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/audit"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/blob"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/credential"
	id "github.com/creerlio2026/creerlio-platform-sub005/pkg/domain"
	dErrors "github.com/creerlio2026/creerlio-platform-sub005/pkg/domain-errors"
)

type fixture struct {
	service     *Service
	credentials *credential.MemoryStore
	anchors     *anchor.MemoryStore
	blobs       *blob.MemoryStore
	audits      *audit.MemoryStore
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		credentials: credential.NewMemoryStore(),
		anchors:     anchor.NewMemoryStore(),
		blobs:       blob.NewMemoryStore(),
		audits:      audit.NewMemoryStore(),
	}
	publisher := audit.NewPublisher(f.audits, logger)

	opts = append([]Option{WithBaseURL("https://creerl.io")}, opts...)
	svc, err := New(f.credentials, f.anchors, f.blobs, publisher, logger, opts...)
	require.NoError(t, err)
	f.service = svc
	return f
}

func validIngest(ownerID id.UserID) IngestRequest {
	return IngestRequest{
		OwnerID:     ownerID,
		FileBytes:   []byte("certificate body"),
		FileName:    "certificate.pdf",
		ContentType: "application/pdf",
		Title:       "Forklift Licence",
		Category:    "licence",
	}
}

func TestIngest(t *testing.T) {
	f := newFixture(t)
	ownerID := id.NewUserID()

	result, err := f.service.Ingest(context.Background(), validIngest(ownerID))
	require.NoError(t, err)

	digest := sha256.Sum256([]byte("certificate body"))
	assert.Equal(t, hex.EncodeToString(digest[:]), result.SHA256Hash)
	assert.Len(t, result.QRToken, 32)
	assert.Equal(t, "https://creerl.io/verify/"+result.QRToken, result.VerificationURL)

	cred, err := f.credentials.FindByID(context.Background(), result.CredentialID)
	require.NoError(t, err)
	assert.Equal(t, credential.StatusActive, cred.Status)
	assert.Equal(t, credential.TrustSelfAsserted, cred.TrustLevel)
	assert.Equal(t, ownerID, cred.OwnerID)
	assert.True(t, f.blobs.Exists(cred.StoragePath))

	att, err := f.credentials.PrimaryAttachment(context.Background(), result.CredentialID)
	require.NoError(t, err)
	assert.Equal(t, "certificate.pdf", att.FileName)
	assert.Equal(t, result.SHA256Hash, att.SHA256Hash)

	events := f.audits.ByAction(audit.EventCredentialCreated)
	require.Len(t, events, 1)
	assert.Equal(t, result.CredentialID, events[0].CredentialID)
}

func TestIngestValidation(t *testing.T) {
	f := newFixture(t)
	ownerID := id.NewUserID()

	t.Run("missing owner is unauthorized", func(t *testing.T) {
		req := validIngest(id.UserID{})
		_, err := f.service.Ingest(context.Background(), req)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("empty file is rejected", func(t *testing.T) {
		req := validIngest(ownerID)
		req.FileBytes = nil
		_, err := f.service.Ingest(context.Background(), req)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("empty title is rejected", func(t *testing.T) {
		req := validIngest(ownerID)
		req.Title = "   "
		_, err := f.service.Ingest(context.Background(), req)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

// failingStore wraps the memory store and fails every Create.
type failingStore struct {
	*credential.MemoryStore
}

func (s *failingStore) Create(context.Context, *credential.Credential, *credential.Attachment) error {
	return dErrors.New(dErrors.CodeInternal, "create failed")
}

func TestIngestCompensatesBlobOnCreateFailure(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	blobs := blob.NewMemoryStore()
	publisher := audit.NewPublisher(audit.NewMemoryStore(), logger)

	svc, err := New(&failingStore{credential.NewMemoryStore()}, anchor.NewMemoryStore(), blobs, publisher, logger)
	require.NoError(t, err)

	_, err = svc.Ingest(context.Background(), validIngest(id.NewUserID()))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))

	// The stored file must not outlive the failed record.
	assert.Empty(t, blobs.Paths())
}

func TestIngestTokensAreUnique(t *testing.T) {
	f := newFixture(t)
	ownerID := id.NewUserID()

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		result, err := f.service.Ingest(context.Background(), validIngest(ownerID))
		require.NoError(t, err)
		require.False(t, seen[result.QRToken], "verification token reused")
		seen[result.QRToken] = true
	}
}

func TestGetEnforcesOwnership(t *testing.T) {
	f := newFixture(t)
	ownerID := id.NewUserID()

	result, err := f.service.Ingest(context.Background(), validIngest(ownerID))
	require.NoError(t, err)

	_, err = f.service.Get(context.Background(), result.CredentialID, id.NewUserID())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

	cred, err := f.service.Get(context.Background(), result.CredentialID, ownerID)
	require.NoError(t, err)
	assert.Equal(t, result.CredentialID, cred.ID)
}
