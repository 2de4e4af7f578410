//go:build integration

package stores

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creerlio2026/creerlio-platform-sub005/internal/anchor"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/audit"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/chain"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/credential"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/verification"
	id "github.com/creerlio2026/creerlio-platform-sub005/pkg/domain"
	dErrors "github.com/creerlio2026/creerlio-platform-sub005/pkg/domain-errors"
	"github.com/creerlio2026/creerlio-platform-sub005/pkg/testutil/containers"
)

func seedCredential(t *testing.T, store *credential.PostgresStore, token string) *credential.Credential {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	cred := &credential.Credential{
		ID:          id.NewCredentialID(),
		OwnerID:     id.NewUserID(),
		Title:       "Forklift Licence",
		Status:      credential.StatusActive,
		TrustLevel:  credential.TrustSelfAsserted,
		Visibility:  credential.VisibilityLinkOnly,
		SHA256Hash:  "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
		QRToken:     token,
		StoragePath: "owner/cred/file.pdf",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	att := &credential.Attachment{
		ID:           id.NewAttachmentID(),
		CredentialID: cred.ID,
		FileName:     "file.pdf",
		SizeBytes:    42,
		SHA256Hash:   cred.SHA256Hash,
		Primary:      true,
		StoragePath:  cred.StoragePath,
		CreatedAt:    now,
	}
	require.NoError(t, store.Create(context.Background(), cred, att))
	return cred
}

func TestPostgresStores(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pg := containers.NewPostgresContainer(t, "../../../migrations")
	ctx := context.Background()

	credStore := credential.NewPostgres(pg.DB)
	anchStore := anchor.NewPostgres(pg.DB)
	logStore := verification.NewPostgresStore(pg.DB)
	outbox := audit.NewPostgres(pg.DB)

	t.Run("verification token uniqueness", func(t *testing.T) {
		cred := seedCredential(t, credStore, "unique-token-1")

		dupe := *cred
		dupe.ID = id.NewCredentialID()
		att := &credential.Attachment{
			ID:           id.NewAttachmentID(),
			CredentialID: dupe.ID,
			FileName:     "file.pdf",
			SHA256Hash:   dupe.SHA256Hash,
			Primary:      true,
			StoragePath:  dupe.StoragePath,
			CreatedAt:    dupe.CreatedAt,
		}
		err := credStore.Create(ctx, &dupe, att)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("find by token", func(t *testing.T) {
		cred := seedCredential(t, credStore, "find-me")
		found, err := credStore.FindByToken(ctx, "find-me")
		require.NoError(t, err)
		assert.Equal(t, cred.ID, found.ID)

		_, err = credStore.FindByToken(ctx, "never-issued")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("guarded revoke", func(t *testing.T) {
		cred := seedCredential(t, credStore, "revoke-me")
		now := time.Now().UTC()

		require.NoError(t, credStore.Revoke(ctx, cred.ID, now, cred.OwnerID, "superseded"))

		stored, err := credStore.FindByID(ctx, cred.ID)
		require.NoError(t, err)
		assert.Equal(t, credential.StatusRevoked, stored.Status)
		assert.Equal(t, "superseded", stored.RevocationReason)

		err = credStore.Revoke(ctx, cred.ID, now, cred.OwnerID, "again")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("scan count increments", func(t *testing.T) {
		cred := seedCredential(t, credStore, "count-me")
		require.NoError(t, credStore.IncrementScanCount(ctx, cred.ID))
		require.NoError(t, credStore.IncrementScanCount(ctx, cred.ID))

		stored, err := credStore.FindByID(ctx, cred.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), stored.ScanCount)
	})

	t.Run("single confirmed anchor per credential", func(t *testing.T) {
		cred := seedCredential(t, credStore, "anchor-me")

		newPending := func() *anchor.Anchor {
			a := &anchor.Anchor{
				ID:              id.NewAnchorID(),
				CredentialID:    cred.ID,
				ChainName:       "polygon",
				Network:         "amoy",
				ContractAddress: "0xabc",
				Status:          anchor.StatusPending,
				CreatedAt:       time.Now().UTC(),
				UpdatedAt:       time.Now().UTC(),
			}
			require.NoError(t, anchStore.CreatePending(ctx, a))
			return a
		}

		first := newPending()
		second := newPending()

		require.NoError(t, anchStore.MarkConfirmed(ctx, first.ID, chain.Receipt{TxHash: "0x1", BlockNumber: 10}))

		// The partial unique index rejects a second confirmation.
		err := anchStore.MarkConfirmed(ctx, second.ID, chain.Receipt{TxHash: "0x2", BlockNumber: 11})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

		winner, err := anchStore.FindConfirmedByCredential(ctx, cred.ID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, winner.ID)
	})

	t.Run("terminal anchors are immutable", func(t *testing.T) {
		cred := seedCredential(t, credStore, "terminal-anchor")
		a := &anchor.Anchor{
			ID:           id.NewAnchorID(),
			CredentialID: cred.ID,
			ChainName:    "polygon",
			Network:      "amoy",
			Status:       anchor.StatusPending,
			CreatedAt:    time.Now().UTC(),
			UpdatedAt:    time.Now().UTC(),
		}
		require.NoError(t, anchStore.CreatePending(ctx, a))
		require.NoError(t, anchStore.MarkFailed(ctx, a.ID, "rpc timeout"))

		err := anchStore.MarkConfirmed(ctx, a.ID, chain.Receipt{TxHash: "0x3"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("verification log round trip", func(t *testing.T) {
		cred := seedCredential(t, credStore, "log-me")
		log := &verification.Log{
			CredentialID:       cred.ID,
			Token:              cred.QRToken,
			Verdict:            verification.VerdictValid,
			HashMatch:          true,
			BlockchainVerified: true,
			IPAddress:          "203.0.113.9",
			UserAgent:          "Mozilla/5.0",
			Browser:            "Chrome 126",
			OS:                 "Windows 10",
			CreatedAt:          time.Now().UTC().Truncate(time.Microsecond),
		}
		require.NoError(t, logStore.Append(ctx, log))

		logs, err := logStore.ListByCredential(ctx, cred.ID, 10)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, verification.VerdictValid, logs[0].Verdict)
		assert.Equal(t, cred.QRToken, logs[0].Token)
		assert.True(t, logs[0].HashMatch)
		assert.True(t, logs[0].BlockchainVerified)
		assert.Equal(t, "203.0.113.9", logs[0].IPAddress)
	})

	t.Run("audit outbox lifecycle", func(t *testing.T) {
		cred := seedCredential(t, credStore, "audit-me")
		event := audit.Event{
			Category:     audit.CategoryCompliance,
			Timestamp:    time.Now().UTC(),
			UserID:       cred.OwnerID,
			CredentialID: cred.ID,
			Action:       string(audit.EventCredentialCreated),
		}
		require.NoError(t, outbox.Append(ctx, event))

		batch, err := outbox.NextBatch(ctx, 10)
		require.NoError(t, err)
		require.NotEmpty(t, batch)

		entry := batch[len(batch)-1]
		require.NoError(t, outbox.MarkPublished(ctx, entry.ID))

		next, err := outbox.NextBatch(ctx, 100)
		require.NoError(t, err)
		for _, e := range next {
			assert.NotEqual(t, entry.ID, e.ID, "published entries must leave the batch")
		}
	})
}
