package lifecycle

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/creerlio2026/creerlio-platform-sub005/contracts/registry"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/anchor"
	anchorservice "github.com/creerlio2026/creerlio-platform-sub005/internal/anchor/service"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/audit"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/blob"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/chain"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/chain/mocks"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/credential"
	credservice "github.com/creerlio2026/creerlio-platform-sub005/internal/credential/service"
	jwttoken "github.com/creerlio2026/creerlio-platform-sub005/internal/jwt_token"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/ratelimit"
	httptransport "github.com/creerlio2026/creerlio-platform-sub005/internal/transport/http"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/verification"
	"github.com/creerlio2026/creerlio-platform-sub005/pkg/testutil"
)

type env struct {
	router    http.Handler
	jwt       *jwttoken.JWTService
	chainMock *mocks.MockClient
	audits    *audit.MemoryStore
}

func newEnv(t *testing.T) *env {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctrl := gomock.NewController(t)
	chainMock := mocks.NewMockClient(ctrl)

	credStore := credential.NewMemoryStore()
	issuerStore := credential.NewMemoryIssuerStore()
	anchStore := anchor.NewMemoryStore()
	logStore := verification.NewMemoryStore()
	audits := audit.NewMemoryStore()
	publisher := audit.NewPublisher(audits, logger)

	blobs, err := blob.NewFSStore(t.TempDir(), "http://creerl.io/files", "lifecycle-secret")
	require.NoError(t, err)

	credSvc, err := credservice.New(credStore, anchStore, blobs, publisher, logger,
		credservice.WithBaseURL("http://creerl.io"),
		credservice.WithChainClient(chainMock, 5*time.Second))
	require.NoError(t, err)

	anchorSvc, err := anchorservice.New(anchStore, credStore, chainMock, publisher, logger,
		anchorservice.ChainInfo{Name: "polygon", Network: "amoy", ContractAddress: "0xabc"})
	require.NoError(t, err)

	verifySvc, err := verification.New(credStore, issuerStore, anchStore, logStore, blobs, publisher, logger,
		verification.WithChainClient(chainMock))
	require.NoError(t, err)

	jwtService := jwttoken.NewJWTService("lifecycle-signing-key", "creerlio", "creerlio")

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:      logger,
		Validator:   jwtService,
		Limiter:     ratelimit.NewMemoryLimiter(100, time.Minute),
		Publisher:   publisher,
		Credentials: httptransport.NewCredentialHandler(credSvc, verifySvc, logger),
		Anchors:     httptransport.NewAnchorHandler(anchorSvc, logger),
		Verify:      httptransport.NewVerifyHandler(verifySvc, logger),
		Files:       httptransport.NewFileHandler(blobs, logger),
		Health:      httptransport.NewHealthHandler(nil, nil),
	})

	return &env{router: router, jwt: jwtService, chainMock: chainMock, audits: audits}
}

func (e *env) bearer(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, err := e.jwt.GenerateAccessToken(userID, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

// TestCredentialLifecycle walks a credential through its whole life: upload,
// on-chain anchoring, public verification, revocation, and verification again.
func TestCredentialLifecycle(t *testing.T) {
	e := newEnv(t)
	holder := uuid.New()

	var (
		issuedIDHash  [32]byte
		issuedContent [32]byte
	)
	e.chainMock.EXPECT().
		Issue(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, idHash, contentHash [32]byte) (chain.Receipt, error) {
			issuedIDHash = idHash
			issuedContent = contentHash
			return chain.Receipt{TxHash: "0xabc", BlockNumber: 73, BlockTime: time.Now().UTC()}, nil
		})
	e.chainMock.EXPECT().
		TxURL("0xabc").
		Return("https://amoy.polygonscan.com/tx/0xabc").
		AnyTimes()
	// Ingest.
	req := testutil.NewUploadRequest(t, "/credentials", "diploma.pdf",
		[]byte("diploma body"), map[string]string{
			"title":    "Engineering Diploma",
			"type":     "qualification",
			"category": "education",
		})
	req.Header.Set("Authorization", e.bearer(t, holder))
	rr := testutil.DoRequest(e.router, req)
	testutil.AssertStatus(t, rr, http.StatusCreated)
	ingested := testutil.UnmarshalResponse[struct {
		ID              string `json:"id"`
		QRToken         string `json:"qr_token"`
		SHA256Hash      string `json:"sha256_hash"`
		VerificationURL string `json:"verification_url"`
	}](t, rr)
	require.NotEmpty(t, ingested.QRToken)

	// Anchor.
	req = testutil.NewRequest(t, http.MethodPost, "/credentials/"+ingested.ID+"/anchor")
	req.Header.Set("Authorization", e.bearer(t, holder))
	rr = testutil.DoRequest(e.router, req)
	testutil.AssertStatus(t, rr, http.StatusCreated)
	anchored := testutil.UnmarshalResponse[struct {
		Anchor struct {
			Status string `json:"status"`
			TxHash string `json:"transaction_hash"`
			TxURL  string `json:"transaction_url"`
		} `json:"anchor"`
	}](t, rr)
	assert.Equal(t, "confirmed", anchored.Anchor.Status)
	assert.Equal(t, "0xabc", anchored.Anchor.TxHash)
	assert.Equal(t, "https://amoy.polygonscan.com/tx/0xabc", anchored.Anchor.TxURL)

	expectedContent, err := chain.ContentHashWord(ingested.SHA256Hash)
	require.NoError(t, err)
	assert.Equal(t, expectedContent, issuedContent)

	// Verify: the on-chain record backs the scan.
	e.chainMock.EXPECT().
		Read(gomock.Any(), issuedIDHash).
		Return(registry.Record{Exists: true, ContentHash: issuedContent}, nil)

	rr = testutil.DoRequest(e.router, testutil.NewRequest(t, http.MethodGet, "/verify/"+ingested.QRToken))
	testutil.AssertStatus(t, rr, http.StatusOK)
	verified := testutil.UnmarshalResponse[verification.Response](t, rr)
	assert.Equal(t, verification.VerdictValid, verified.Verification.Result)
	assert.True(t, verified.Verification.HashMatch)
	assert.True(t, verified.Verification.BlockchainVerified)
	assert.Equal(t, "https://amoy.polygonscan.com/tx/0xabc", verified.Verification.BlockchainTxURL)
	require.NotNil(t, verified.Credential)
	assert.Equal(t, int64(1), verified.Credential.ScanCount)

	// Revoke: the registry is updated best effort.
	e.chainMock.EXPECT().
		Revoke(gomock.Any(), issuedIDHash).
		Return(chain.Receipt{TxHash: "0xdead", BlockNumber: 74}, nil)

	req = testutil.NewJSONRequest(t, http.MethodPost, "/credentials/"+ingested.ID+"/revoke",
		map[string]string{"reason": "issued in error"})
	req.Header.Set("Authorization", e.bearer(t, holder))
	rr = testutil.DoRequest(e.router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)
	revoked := testutil.UnmarshalResponse[struct {
		Success      bool   `json:"success"`
		Status       string `json:"status"`
		ChainOutcome string `json:"chain_revocation"`
		ChainTxHash  string `json:"chain_tx_hash"`
	}](t, rr)
	assert.True(t, revoked.Success)
	assert.Equal(t, "revoked", revoked.Status)
	assert.Equal(t, "succeeded", revoked.ChainOutcome)
	assert.Equal(t, "0xdead", revoked.ChainTxHash)

	// Verify again: the verdict flips, the scan is still logged.
	e.chainMock.EXPECT().
		Read(gomock.Any(), issuedIDHash).
		Return(registry.Record{Exists: true, ContentHash: issuedContent, Revoked: true}, nil)

	rr = testutil.DoRequest(e.router, testutil.NewRequest(t, http.MethodGet, "/verify/"+ingested.QRToken))
	testutil.AssertStatus(t, rr, http.StatusOK)
	verified = testutil.UnmarshalResponse[verification.Response](t, rr)
	assert.Equal(t, verification.VerdictRevoked, verified.Verification.Result)
	assert.True(t, verified.Verification.HashMatch)
	assert.False(t, verified.Verification.BlockchainVerified)
	require.NotNil(t, verified.Credential)
	assert.Equal(t, int64(2), verified.Credential.ScanCount)

	// The audit trail covers the full lifecycle.
	assert.NotEmpty(t, e.audits.ByAction(audit.EventCredentialCreated))
	assert.NotEmpty(t, e.audits.ByAction(audit.EventAnchorConfirmed))
	assert.NotEmpty(t, e.audits.ByAction(audit.EventCredentialRevoked))
	assert.NotEmpty(t, e.audits.ByAction(audit.EventCredentialVerified))
}
