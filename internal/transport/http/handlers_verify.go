package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/creerlio2026/creerlio-platform-sub005/internal/verification"
	"github.com/creerlio2026/creerlio-platform-sub005/pkg/platform/httputil"
	"github.com/creerlio2026/creerlio-platform-sub005/pkg/requestcontext"
)

// VerificationService is the public verification boundary.
type VerificationService interface {
	Verify(ctx context.Context, token string) (*verification.Response, error)
}

// VerifyHandler serves the public verification endpoint.
type VerifyHandler struct {
	service VerificationService
	logger  *slog.Logger
}

func NewVerifyHandler(service VerificationService, logger *slog.Logger) *VerifyHandler {
	return &VerifyHandler{service: service, logger: logger}
}

// HandleVerify handles GET /verify/{token}. Unknown tokens return 404 with a
// not_found verdict body so scanners can distinguish "no such credential"
// from transport errors.
func (h *VerifyHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp, err := h.service.Verify(ctx, chi.URLParam(r, "token"))
	if err != nil {
		h.logger.ErrorContext(ctx, "verification failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	status := http.StatusOK
	if resp.Verification.Result == verification.VerdictNotFound {
		status = http.StatusNotFound
	}
	httputil.WriteJSON(w, status, resp)
}
