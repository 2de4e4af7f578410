package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/creerlio2026/creerlio-platform-sub005/internal/anchor"
	anchorservice "github.com/creerlio2026/creerlio-platform-sub005/internal/anchor/service"
	id "github.com/creerlio2026/creerlio-platform-sub005/pkg/domain"
	"github.com/creerlio2026/creerlio-platform-sub005/pkg/platform/httputil"
	"github.com/creerlio2026/creerlio-platform-sub005/pkg/requestcontext"
)

// AnchorService is the anchoring boundary the handler needs.
type AnchorService interface {
	Anchor(ctx context.Context, credentialID id.CredentialID, callerID id.UserID) (*anchorservice.Result, error)
	ListByCredential(ctx context.Context, credentialID id.CredentialID, callerID id.UserID) ([]*anchor.Anchor, error)
}

// AnchorHandler wires anchoring endpoints to the service.
type AnchorHandler struct {
	service AnchorService
	logger  *slog.Logger
}

func NewAnchorHandler(service AnchorService, logger *slog.Logger) *AnchorHandler {
	return &AnchorHandler{service: service, logger: logger}
}

// Register mounts anchoring endpoints on the authenticated router.
func (h *AnchorHandler) Register(r chi.Router) {
	r.Post("/credentials/{credentialID}/anchor", h.HandleAnchor)
	r.Get("/credentials/{credentialID}/anchors", h.HandleList)
}

type anchorResponse struct {
	ID            string     `json:"id"`
	CredentialID  string     `json:"credential_id"`
	ChainName     string     `json:"chain_name"`
	Network       string     `json:"network"`
	Status        string     `json:"status"`
	TxHash        string     `json:"transaction_hash,omitempty"`
	TxURL         string     `json:"transaction_url,omitempty"`
	BlockNumber   uint64     `json:"block_number,omitempty"`
	BlockTime     *time.Time `json:"block_time,omitempty"`
	Confirmations uint64     `json:"confirmations,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// anchorEnvelope is the single-anchor payload shape.
type anchorEnvelope struct {
	Anchor anchorResponse `json:"anchor"`
}

func toAnchorResponse(a *anchor.Anchor, txURL string) anchorResponse {
	return anchorResponse{
		ID:            a.ID.String(),
		CredentialID:  a.CredentialID.String(),
		ChainName:     a.ChainName,
		Network:       a.Network,
		Status:        string(a.Status),
		TxHash:        a.TxHash,
		TxURL:         txURL,
		BlockNumber:   a.BlockNumber,
		BlockTime:     a.BlockTime,
		Confirmations: a.Confirmations,
		FailureReason: a.FailureReason,
		CreatedAt:     a.CreatedAt,
	}
}

// HandleAnchor handles POST /credentials/{credentialID}/anchor. Returns 200
// with the existing anchor when the credential is already anchored, 201 when
// a new anchor was confirmed.
func (h *AnchorHandler) HandleAnchor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	credentialID, err := id.ParseCredentialID(chi.URLParam(r, "credentialID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.Anchor(ctx, credentialID, requestcontext.UserID(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "anchoring failed",
			"request_id", requestID,
			"credential_id", credentialID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	status := http.StatusCreated
	if result.AlreadyAnchored {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, anchorEnvelope{Anchor: toAnchorResponse(result.Anchor, result.TxURL)})
}

// HandleList handles GET /credentials/{credentialID}/anchors.
func (h *AnchorHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	credentialID, err := id.ParseCredentialID(chi.URLParam(r, "credentialID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	anchors, err := h.service.ListByCredential(ctx, credentialID, requestcontext.UserID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]anchorResponse, 0, len(anchors))
	for _, a := range anchors {
		out = append(out, toAnchorResponse(a, ""))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"anchors": out})
}
