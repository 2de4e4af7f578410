package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/creerlio2026/creerlio-platform-sub005/internal/anchor"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/audit"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/chain"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/chain/mocks"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/credential"
	id "github.com/creerlio2026/creerlio-platform-sub005/pkg/domain"
	dErrors "github.com/creerlio2026/creerlio-platform-sub005/pkg/domain-errors"
)

func TestRevoke(t *testing.T) {
	f := newFixture(t)
	ownerID := id.NewUserID()

	result, err := f.service.Ingest(context.Background(), validIngest(ownerID))
	require.NoError(t, err)

	revoked, err := f.service.Revoke(context.Background(), result.CredentialID, ownerID, "credential superseded")
	require.NoError(t, err)
	assert.Equal(t, ChainRevokeSkipped, revoked.ChainOutcome)

	cred, err := f.credentials.FindByID(context.Background(), result.CredentialID)
	require.NoError(t, err)
	assert.Equal(t, credential.StatusRevoked, cred.Status)
	assert.NotNil(t, cred.RevokedAt)
	assert.Equal(t, "credential superseded", cred.RevocationReason)

	events := f.audits.ByAction(audit.EventCredentialRevoked)
	require.Len(t, events, 1)
	assert.Equal(t, "credential superseded", events[0].Reason)
}

func TestRevokeIsPermanent(t *testing.T) {
	f := newFixture(t)
	ownerID := id.NewUserID()

	result, err := f.service.Ingest(context.Background(), validIngest(ownerID))
	require.NoError(t, err)

	_, err = f.service.Revoke(context.Background(), result.CredentialID, ownerID, "")
	require.NoError(t, err)

	_, err = f.service.Revoke(context.Background(), result.CredentialID, ownerID, "")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestRevokeAuthorization(t *testing.T) {
	f := newFixture(t)
	ownerID := id.NewUserID()

	result, err := f.service.Ingest(context.Background(), validIngest(ownerID))
	require.NoError(t, err)

	t.Run("other holder is forbidden", func(t *testing.T) {
		_, err := f.service.Revoke(context.Background(), result.CredentialID, id.NewUserID(), "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("unknown credential is not found", func(t *testing.T) {
		_, err := f.service.Revoke(context.Background(), id.NewCredentialID(), ownerID, "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// confirmAnchor records a confirmed anchor for the credential so the chain
// revocation path activates.
func confirmAnchor(t *testing.T, anchors *anchor.MemoryStore, credentialID id.CredentialID) {
	t.Helper()
	pending := &anchor.Anchor{
		ID:           id.NewAnchorID(),
		CredentialID: credentialID,
		ChainName:    "polygon",
		Network:      "amoy",
		Status:       anchor.StatusPending,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, anchors.CreatePending(context.Background(), pending))
	require.NoError(t, anchors.MarkConfirmed(context.Background(), pending.ID, chain.Receipt{
		TxHash:      "0xabc",
		BlockNumber: 12,
	}))
}

func TestRevokeMirrorsOnChain(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockClient := mocks.NewMockClient(ctrl)

	f := newFixture(t, WithChainClient(mockClient, 5*time.Second))
	ownerID := id.NewUserID()

	result, err := f.service.Ingest(context.Background(), validIngest(ownerID))
	require.NoError(t, err)
	confirmAnchor(t, f.anchors, result.CredentialID)

	mockClient.EXPECT().
		Revoke(gomock.Any(), chain.CredentialIDHash(result.CredentialID)).
		Return(chain.Receipt{TxHash: "0xdead"}, nil)

	revoked, err := f.service.Revoke(context.Background(), result.CredentialID, ownerID, "")
	require.NoError(t, err)
	assert.Equal(t, ChainRevokeSucceeded, revoked.ChainOutcome)
	assert.Equal(t, "0xdead", revoked.ChainTxHash)
}

func TestRevokeSurvivesChainFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockClient := mocks.NewMockClient(ctrl)

	f := newFixture(t, WithChainClient(mockClient, 5*time.Second))
	ownerID := id.NewUserID()

	result, err := f.service.Ingest(context.Background(), validIngest(ownerID))
	require.NoError(t, err)
	confirmAnchor(t, f.anchors, result.CredentialID)

	mockClient.EXPECT().
		Revoke(gomock.Any(), gomock.Any()).
		Return(chain.Receipt{}, dErrors.New(dErrors.CodeUnavailable, "rpc timeout"))

	revoked, err := f.service.Revoke(context.Background(), result.CredentialID, ownerID, "")
	require.NoError(t, err, "database revocation must not depend on the chain")
	assert.Equal(t, ChainRevokeFailed, revoked.ChainOutcome)
	assert.NotEmpty(t, revoked.ChainError)

	// The credential is revoked regardless.
	cred, err := f.credentials.FindByID(context.Background(), result.CredentialID)
	require.NoError(t, err)
	assert.Equal(t, credential.StatusRevoked, cred.Status)

	events := f.audits.ByAction(audit.EventChainRevokeFailed)
	require.Len(t, events, 1)
}

func TestRevokeSkipsChainWithoutConfirmedAnchor(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockClient := mocks.NewMockClient(ctrl)

	f := newFixture(t, WithChainClient(mockClient, 5*time.Second))
	ownerID := id.NewUserID()

	result, err := f.service.Ingest(context.Background(), validIngest(ownerID))
	require.NoError(t, err)

	// No Revoke expectation: the client must not be called.
	revoked, err := f.service.Revoke(context.Background(), result.CredentialID, ownerID, "")
	require.NoError(t, err)
	assert.Equal(t, ChainRevokeSkipped, revoked.ChainOutcome)
}
