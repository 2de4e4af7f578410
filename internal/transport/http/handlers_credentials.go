package httptransport

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/creerlio2026/creerlio-platform-sub005/internal/credential"
	credservice "github.com/creerlio2026/creerlio-platform-sub005/internal/credential/service"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/verification"
	id "github.com/creerlio2026/creerlio-platform-sub005/pkg/domain"
	dErrors "github.com/creerlio2026/creerlio-platform-sub005/pkg/domain-errors"
	"github.com/creerlio2026/creerlio-platform-sub005/pkg/platform/httputil"
	"github.com/creerlio2026/creerlio-platform-sub005/pkg/requestcontext"
)

// maxUploadBytes caps credential file uploads at 25 MiB.
const maxUploadBytes = 25 << 20

// CredentialService is the credential lifecycle boundary the handler needs.
type CredentialService interface {
	Ingest(ctx context.Context, req credservice.IngestRequest) (*credservice.IngestResult, error)
	ListByOwner(ctx context.Context, ownerID id.UserID) ([]*credential.Credential, error)
	Get(ctx context.Context, credentialID id.CredentialID, callerID id.UserID) (*credential.Credential, error)
	Revoke(ctx context.Context, credentialID id.CredentialID, callerID id.UserID, reason string) (*credservice.RevokeResult, error)
}

// ScanService exposes a credential's verification history to its holder.
type ScanService interface {
	ListScans(ctx context.Context, credentialID id.CredentialID, callerID id.UserID, limit int) ([]*verification.Log, error)
}

// CredentialHandler wires credential lifecycle endpoints to the service.
type CredentialHandler struct {
	service CredentialService
	scans   ScanService
	logger  *slog.Logger
}

func NewCredentialHandler(service CredentialService, scans ScanService, logger *slog.Logger) *CredentialHandler {
	return &CredentialHandler{
		service: service,
		scans:   scans,
		logger:  logger,
	}
}

// Register mounts credential endpoints on the authenticated router.
func (h *CredentialHandler) Register(r chi.Router) {
	r.Post("/credentials", h.HandleIngest)
	r.Get("/credentials", h.HandleList)
	r.Get("/credentials/{credentialID}", h.HandleGet)
	r.Post("/credentials/{credentialID}/revoke", h.HandleRevoke)
	r.Get("/credentials/{credentialID}/scans", h.HandleScans)
}

type ingestResponse struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	QRToken         string `json:"qr_token"`
	SHA256Hash      string `json:"sha256_hash"`
	VerificationURL string `json:"verification_url"`
}

// HandleIngest handles POST /credentials multipart uploads. The file part is
// named "file"; the remaining parts are plain form fields.
func (h *CredentialHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request must be multipart form data"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "file part is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "failed to read uploaded file"))
		return
	}

	req := credservice.IngestRequest{
		OwnerID:        requestcontext.UserID(ctx),
		FileBytes:      data,
		FileName:       header.Filename,
		ContentType:    header.Header.Get("Content-Type"),
		Title:          r.FormValue("title"),
		Description:    r.FormValue("description"),
		CredentialType: r.FormValue("type"),
		Category:       r.FormValue("category"),
		TrustLevel:     credential.TrustLevel(r.FormValue("trust_level")),
		Visibility:     credential.Visibility(r.FormValue("visibility")),
	}
	if v := r.FormValue("issuer_id"); v != "" {
		issuerID, err := id.ParseIssuerID(v)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		req.IssuerID = &issuerID
	}
	if req.IssuedAt, err = parseOptionalTime(r.FormValue("issued_at")); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "issued_at must be RFC 3339"))
		return
	}
	if req.ExpiresAt, err = parseOptionalTime(r.FormValue("expires_at")); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "expires_at must be RFC 3339"))
		return
	}

	result, err := h.service.Ingest(ctx, req)
	if err != nil {
		h.logger.ErrorContext(ctx, "credential ingestion failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, ingestResponse{
		ID:              result.CredentialID.String(),
		Title:           result.Title,
		QRToken:         result.QRToken,
		SHA256Hash:      result.SHA256Hash,
		VerificationURL: result.VerificationURL,
	})
}

type credentialResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Type        string     `json:"type,omitempty"`
	Category    string     `json:"category,omitempty"`
	Status      string     `json:"status"`
	TrustLevel  string     `json:"trust_level"`
	Visibility  string     `json:"visibility"`
	SHA256Hash  string     `json:"sha256_hash"`
	QRToken     string     `json:"qr_token"`
	IssuedAt    *time.Time `json:"issued_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
	ScanCount   int64      `json:"scan_count"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toCredentialResponse(c *credential.Credential) credentialResponse {
	return credentialResponse{
		ID:          c.ID.String(),
		Title:       c.Title,
		Description: c.Description,
		Type:        c.Type,
		Category:    c.Category,
		Status:      string(c.Status),
		TrustLevel:  string(c.TrustLevel),
		Visibility:  string(c.Visibility),
		SHA256Hash:  c.SHA256Hash,
		QRToken:     c.QRToken,
		IssuedAt:    c.IssuedAt,
		ExpiresAt:   c.ExpiresAt,
		RevokedAt:   c.RevokedAt,
		ScanCount:   c.ScanCount,
		CreatedAt:   c.CreatedAt,
	}
}

// HandleList handles GET /credentials for the authenticated holder.
func (h *CredentialHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	creds, err := h.service.ListByOwner(ctx, requestcontext.UserID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]credentialResponse, 0, len(creds))
	for _, c := range creds {
		out = append(out, toCredentialResponse(c))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"credentials": out})
}

// HandleGet handles GET /credentials/{credentialID}.
func (h *CredentialHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	credentialID, err := id.ParseCredentialID(chi.URLParam(r, "credentialID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	cred, err := h.service.Get(ctx, credentialID, requestcontext.UserID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCredentialResponse(cred))
}

type revokeRequest struct {
	Reason string `json:"reason"`
}

type revokeResponse struct {
	Success      bool   `json:"success"`
	ID           string `json:"id"`
	Status       string `json:"status"`
	ChainOutcome string `json:"chain_revocation"`
	ChainTxHash  string `json:"chain_tx_hash,omitempty"`
	ChainError   string `json:"chain_error,omitempty"`
}

// HandleRevoke handles POST /credentials/{credentialID}/revoke. The response
// reports whether the on-chain mirror of the revocation went through.
func (h *CredentialHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	credentialID, err := id.ParseCredentialID(chi.URLParam(r, "credentialID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	// The body is optional; revoking without a reason is allowed.
	var req revokeRequest
	if r.Body != nil && r.ContentLength != 0 {
		var ok bool
		if req, ok = httputil.DecodeJSON[revokeRequest](w, r, h.logger, ctx, requestID); !ok {
			return
		}
	}

	result, err := h.service.Revoke(ctx, credentialID, requestcontext.UserID(ctx), req.Reason)
	if err != nil {
		h.logger.ErrorContext(ctx, "credential revocation failed",
			"request_id", requestID,
			"credential_id", credentialID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, revokeResponse{
		Success:      true,
		ID:           result.CredentialID.String(),
		Status:       string(credential.StatusRevoked),
		ChainOutcome: string(result.ChainOutcome),
		ChainTxHash:  result.ChainTxHash,
		ChainError:   result.ChainError,
	})
}

type scanResponse struct {
	Verdict   string    `json:"verdict"`
	IPAddress string    `json:"ip_address,omitempty"`
	Browser   string    `json:"browser,omitempty"`
	OS        string    `json:"os,omitempty"`
	Referrer  string    `json:"referrer,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// HandleScans handles GET /credentials/{credentialID}/scans.
func (h *CredentialHandler) HandleScans(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	credentialID, err := id.ParseCredentialID(chi.URLParam(r, "credentialID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	logs, err := h.scans.ListScans(ctx, credentialID, requestcontext.UserID(ctx), 100)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]scanResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, scanResponse{
			Verdict:   string(l.Verdict),
			IPAddress: l.IPAddress,
			Browser:   l.Browser,
			OS:        l.OS,
			Referrer:  l.Referrer,
			CreatedAt: l.CreatedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"scans": out})
}

func parseOptionalTime(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
