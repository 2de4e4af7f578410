package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	dErrors "github.com/creerlio2026/creerlio-platform-sub005/pkg/domain-errors"
	"github.com/creerlio2026/creerlio-platform-sub005/pkg/platform/httputil"
	"github.com/creerlio2026/creerlio-platform-sub005/pkg/requestcontext"
)

// BlobReadVerifier is implemented by the filesystem blob store.
type BlobReadVerifier interface {
	Get(ctx context.Context, path string) ([]byte, error)
	VerifyReadRequest(path string, exp int64, sig string, now time.Time) error
}

// FileHandler serves signed backing-file reads.
type FileHandler struct {
	blobs  BlobReadVerifier
	logger *slog.Logger
}

func NewFileHandler(blobs BlobReadVerifier, logger *slog.Logger) *FileHandler {
	return &FileHandler{blobs: blobs, logger: logger}
}

// HandleRead handles GET /files/{path} with exp and sig query parameters
// produced by SignedReadURL. An invalid or expired signature is a 403.
func (h *FileHandler) HandleRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	path := chi.URLParam(r, "*")
	if unescaped, err := url.PathUnescape(path); err == nil {
		path = unescaped
	}

	exp, err := strconv.ParseInt(r.URL.Query().Get("exp"), 10, 64)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "exp query parameter is required"))
		return
	}
	sig := r.URL.Query().Get("sig")

	if err := h.blobs.VerifyReadRequest(path, exp, sig, requestcontext.Now(ctx)); err != nil {
		httputil.WriteError(w, err)
		return
	}

	data, err := h.blobs.Get(ctx, path)
	if err != nil {
		h.logger.ErrorContext(ctx, "signed file read failed",
			"path", path,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Cache-Control", "private, no-store")
	_, _ = w.Write(data)
}
